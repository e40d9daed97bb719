package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newPromptCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Manage instruction files",
	}

	var effective bool
	show := &cobra.Command{
		Use:   "show",
		Short: "Show the conversation's instruction",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := conversationID(cmd)
			if err != nil {
				return err
			}
			repo, err := openRepository()
			if err != nil {
				return err
			}

			var content string
			if effective {
				content, err = repo.EffectiveInstruction(id)
			} else {
				content, err = repo.Instruction(id)
			}
			if err != nil {
				return err
			}
			fmt.Println(content)
			return nil
		},
	}
	show.Flags().BoolVar(&effective, "effective", false, "include the global instruction")
	cmd.AddCommand(show)

	var fromFile string
	set := &cobra.Command{
		Use:   "set [text]",
		Short: "Set the conversation's instruction",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := conversationID(cmd)
			if err != nil {
				return err
			}
			repo, err := openRepository()
			if err != nil {
				return err
			}

			content, err := promptContent(args, fromFile)
			if err != nil {
				return err
			}
			return repo.SaveInstruction(id, content, true)
		},
	}
	set.Flags().StringVar(&fromFile, "file", "", "read the instruction from a file")
	cmd.AddCommand(set)

	cmd.AddCommand(&cobra.Command{
		Use:   "global-show",
		Short: "Show the instruction shared by all conversations",
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := openRepository()
			if err != nil {
				return err
			}
			content, err := repo.GlobalInstruction()
			if err != nil {
				return err
			}
			fmt.Println(content)
			return nil
		},
	})

	var globalFromFile string
	globalSet := &cobra.Command{
		Use:   "global-set [text]",
		Short: "Set the instruction shared by all conversations",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := openRepository()
			if err != nil {
				return err
			}
			content, err := promptContent(args, globalFromFile)
			if err != nil {
				return err
			}
			return repo.SaveGlobalInstruction(content)
		},
	}
	globalSet.Flags().StringVar(&globalFromFile, "file", "", "read the instruction from a file")
	cmd.AddCommand(globalSet)

	return cmd
}

func promptContent(args []string, fromFile string) (string, error) {
	if fromFile != "" {
		data, err := os.ReadFile(fromFile)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	if len(args) == 1 {
		return args[0], nil
	}
	return "", nil
}
