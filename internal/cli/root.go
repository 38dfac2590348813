package cli

import (
	"github.com/spf13/cobra"
)

var (
	flagRoot     string
	flagUserID   string
	flagPassword string
	flagPin      string
)

// Execute builds the h2h root command and runs it, grounded on the
// teacher's internal/client/cmd/root.go persistent-flag pattern.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "h2h",
		Short: "Single-peer client for a Hive2Hive-style decentralized file sync network",
	}

	root.PersistentFlags().StringVar(&flagRoot, "root", ".", "local synchronized directory")
	root.PersistentFlags().StringVar(&flagUserID, "user", "", "user id")
	root.PersistentFlags().StringVar(&flagPassword, "password", "", "user password")
	root.PersistentFlags().StringVar(&flagPin, "pin", "", "user pin")
	_ = root.MarkPersistentFlagRequired("user")
	_ = root.MarkPersistentFlagRequired("password")

	root.AddCommand(
		newRegisterCmd(),
		newAddCmd(),
		newUpdateCmd(),
		newRmCmd(),
		newMvCmd(),
		newDownloadCmd(),
		newRecoverCmd(),
		newShareCmd(),
	)
	return root
}
