package cli

import (
	"crypto/x509"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newShareCmd() *cobra.Command {
	var canWrite bool
	cmd := &cobra.Command{
		Use:   "share <remote-folder> <friend-user-id> [friend-public-key-der-file]",
		Short: "Grant a friend access to a shared folder",
		Long: "Grant a friend access to a shared folder. The friend's public key DER " +
			"file is required the first time a friend is shared with; after that it " +
			"is cached in the local sidecar and can be omitted.",
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			folderPath, friendUserID := args[0], args[1]

			sess, err := openSession(ctx, flagRoot, flagUserID, flagPassword, flagPin)
			if err != nil {
				return err
			}
			defer sess.close(ctx)

			friendKey, ok := sess.friendKey(friendUserID)
			if len(args) == 3 {
				der, err := os.ReadFile(args[2])
				if err != nil {
					return err
				}
				friendKey, err = x509.ParsePKCS1PublicKey(der)
				if err != nil {
					return err
				}
				if err := sess.cacheFriendKey(friendUserID, friendKey); err != nil {
					return fmt.Errorf("cache friend key: %w", err)
				}
			} else if !ok {
				return fmt.Errorf("no cached public key for %s; pass the friend's DER file once", friendUserID)
			}

			return sess.node.ShareFolder(ctx, folderPath, friendUserID, friendKey, canWrite)
		},
	}
	cmd.Flags().BoolVar(&canWrite, "write", false, "grant the friend write access, not just read")
	return cmd
}
