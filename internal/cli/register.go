package cli

import (
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hive2hive/h2h/internal/config"
	"github.com/hive2hive/h2h/internal/network/data"
	"github.com/hive2hive/h2h/internal/network/messenger/loopmessenger"
	"github.com/hive2hive/h2h/internal/network/overlay/sqliteoverlay"
	"github.com/hive2hive/h2h/internal/node"
	"github.com/hive2hive/h2h/internal/security"
)

func newRegisterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register",
		Short: "Create a new user profile in the network",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			dbPath := overlayDBPath(flagRoot)
			if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
				return err
			}
			overlay, err := sqliteoverlay.Open(dbPath)
			if err != nil {
				return err
			}
			defer overlay.Close()

			registry := loopmessenger.NewRegistry()
			messenger := loopmessenger.New(registry, flagUserID)
			dm := data.NewDataManager(overlay, messenger, logrus.StandardLogger())

			creds := security.UserCredentials{UserID: flagUserID, Password: flagPassword, Pin: flagPin}
			return node.Register(ctx, dm, creds, config.Default())
		},
	}
}
