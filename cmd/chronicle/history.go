package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

func newConversationsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "conversations",
		Short: "List all conversations with a history repository",
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := openRepository()
			if err != nil {
				return err
			}
			ids, err := repo.ListConversations()
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Println(id)
			}
			return nil
		},
	}
}

func newShowCommand() *cobra.Command {
	var start, count int

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a conversation's message log",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := conversationID(cmd)
			if err != nil {
				return err
			}
			repo, err := openRepository()
			if err != nil {
				return err
			}
			doc, err := repo.Load(id)
			if err != nil {
				return err
			}
			if doc == nil || len(doc.Messages) == 0 {
				fmt.Println("no messages")
				return nil
			}

			total := len(doc.Messages)
			count = max(1, min(count, 50))
			startIndex := max(0, total-count)
			if start > 0 {
				startIndex = max(0, min(start-1, total-1))
			}
			endIndex := min(startIndex+count, total)

			for i, msg := range doc.Messages[startIndex:endIndex] {
				preview := msg.Content
				if idx := strings.IndexByte(preview, '\n'); idx >= 0 {
					preview = preview[:idx]
				}
				if len(preview) > 80 {
					preview = preview[:80] + "..."
				}
				fmt.Printf("%d. [%s] %s\n", startIndex+i+1, strings.ToUpper(string(msg.Role)), preview)
			}
			fmt.Printf("showing %d of %d messages\n", endIndex-startIndex, total)
			return nil
		},
	}

	cmd.Flags().IntVar(&start, "start", 0, "first message number to show (1-based)")
	cmd.Flags().IntVar(&count, "count", 10, "number of messages to show")
	return cmd
}

func newClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear a conversation's message log",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := conversationID(cmd)
			if err != nil {
				return err
			}
			repo, err := openRepository()
			if err != nil {
				return err
			}
			if err := repo.Clear(id, true); err != nil {
				return err
			}
			fmt.Println("conversation cleared")
			return nil
		},
	}
}

func newDeleteCommand() *cobra.Command {
	var index int

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a message and its paired turn",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := conversationID(cmd)
			if err != nil {
				return err
			}
			repo, err := openRepository()
			if err != nil {
				return err
			}
			deleted, err := repo.DeleteMessagePair(id, index-1)
			if err != nil {
				return err
			}
			fmt.Printf("deleted %d message(s)\n", deleted)
			return nil
		},
	}

	cmd.Flags().IntVar(&index, "index", 0, "message number to delete (1-based)")
	_ = cmd.MarkFlagRequired("index")
	return cmd
}

func newCommitCommand() *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "commit",
		Short: "Snapshot a conversation's working tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := conversationID(cmd)
			if err != nil {
				return err
			}
			repo, err := openRepository()
			if err != nil {
				return err
			}
			committed, err := repo.Store().Commit(id, message)
			if err != nil {
				return err
			}
			if committed {
				fmt.Println("snapshot recorded")
			} else {
				fmt.Println("nothing to snapshot")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "Manual snapshot", "snapshot message")
	return cmd
}

func newLogCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show a conversation's snapshot history",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := conversationID(cmd)
			if err != nil {
				return err
			}
			repo, err := openRepository()
			if err != nil {
				return err
			}
			commits, err := repo.Log(id, limit)
			if err != nil {
				return err
			}
			for _, c := range commits {
				fmt.Printf("%s  %s  %s  %s\n", c.Hash[:8], c.Date.Format("2006-01-02 15:04:05"), c.Author, c.Message)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "maximum number of snapshots to show")
	return cmd
}

func newExportCommand() *cobra.Command {
	var outDir, name string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a conversation to markdown, bundling attachments",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := conversationID(cmd)
			if err != nil {
				return err
			}
			repo, err := openRepository()
			if err != nil {
				return err
			}
			bundle, err := repo.Export(id, name)
			if err != nil {
				return err
			}
			if bundle == nil {
				fmt.Println("nothing to export")
				return nil
			}

			path := filepath.Join(outDir, bundle.Filename)
			if err := os.WriteFile(path, bundle.Data, 0o644); err != nil {
				return err
			}
			fmt.Printf("exported to %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "output directory")
	cmd.Flags().StringVar(&name, "name", "", "bundle name (default <id>_<branch>_<timestamp>)")
	return cmd
}
