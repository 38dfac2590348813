package cli

import (
	"os"

	"github.com/spf13/cobra"
)

func newAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <local-file> <remote-path>",
		Short: "Upload a new file into the synchronized tree",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			sess, err := openSession(ctx, flagRoot, flagUserID, flagPassword, flagPin)
			if err != nil {
				return err
			}
			defer sess.close(ctx)
			return sess.node.AddFile(ctx, args[1], data)
		},
	}
}

func newUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update <local-file> <remote-path>",
		Short: "Upload a new version of an existing file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			sess, err := openSession(ctx, flagRoot, flagUserID, flagPassword, flagPin)
			if err != nil {
				return err
			}
			defer sess.close(ctx)
			return sess.node.UpdateFile(ctx, args[1], data)
		},
	}
}

func newRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <remote-path>",
		Short: "Delete a file from the synchronized tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sess, err := openSession(ctx, flagRoot, flagUserID, flagPassword, flagPin)
			if err != nil {
				return err
			}
			defer sess.close(ctx)
			return sess.node.DeleteFile(ctx, args[0])
		},
	}
}

func newMvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mv <remote-source> <remote-dest>",
		Short: "Move or rename a file or folder",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sess, err := openSession(ctx, flagRoot, flagUserID, flagPassword, flagPin)
			if err != nil {
				return err
			}
			defer sess.close(ctx)
			return sess.node.MoveFile(ctx, args[0], args[1])
		},
	}
}
