package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newBranchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "branch",
		Short: "Manage a conversation's history branches",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List branches",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := conversationID(cmd)
			if err != nil {
				return err
			}
			repo, err := openRepository()
			if err != nil {
				return err
			}
			branches, err := repo.ListBranches(id)
			if err != nil {
				return err
			}
			current, err := repo.CurrentBranch(id)
			if err != nil {
				return err
			}
			for _, branch := range branches {
				marker := "  "
				if branch == current {
					marker = "* "
				}
				fmt.Println(marker + branch)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "create <name>",
		Short: "Create a branch at the current snapshot and switch to it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := conversationID(cmd)
			if err != nil {
				return err
			}
			repo, err := openRepository()
			if err != nil {
				return err
			}
			if err := repo.CreateBranch(id, args[0], true); err != nil {
				return err
			}
			fmt.Printf("created and switched to branch %q\n", args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "switch <name>",
		Short: "Switch to a branch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := conversationID(cmd)
			if err != nil {
				return err
			}
			repo, err := openRepository()
			if err != nil {
				return err
			}
			if err := repo.SwitchBranch(id, args[0]); err != nil {
				return err
			}
			fmt.Printf("switched to branch %q\n", args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a branch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := conversationID(cmd)
			if err != nil {
				return err
			}
			repo, err := openRepository()
			if err != nil {
				return err
			}
			if err := repo.DeleteBranch(id, args[0]); err != nil {
				return err
			}
			fmt.Printf("deleted branch %q\n", args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "merge <name>",
		Short: "Merge a branch's diverged messages into the current branch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := conversationID(cmd)
			if err != nil {
				return err
			}
			repo, err := openRepository()
			if err != nil {
				return err
			}
			merged, err := repo.MergeBranch(id, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("merged %d message(s) from %q\n", merged, args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rename <new-name>",
		Short: "Rename the current branch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := conversationID(cmd)
			if err != nil {
				return err
			}
			repo, err := openRepository()
			if err != nil {
				return err
			}
			if err := repo.RenameBranch(id, args[0]); err != nil {
				return err
			}
			fmt.Printf("renamed current branch to %q\n", args[0])
			return nil
		},
	})

	return cmd
}
