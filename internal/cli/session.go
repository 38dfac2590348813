// Package cli wires the h2h command's cobra tree around internal/node,
// grounded on the teacher's internal/client/cmd layout: one file per
// subcommand, a shared session helper opening the backing store.
package cli

import (
	"context"
	"crypto/rsa"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/hive2hive/h2h/internal/config"
	"github.com/hive2hive/h2h/internal/h2hconst"
	"github.com/hive2hive/h2h/internal/network/data"
	"github.com/hive2hive/h2h/internal/network/messenger/loopmessenger"
	"github.com/hive2hive/h2h/internal/network/overlay/sqliteoverlay"
	"github.com/hive2hive/h2h/internal/node"
	"github.com/hive2hive/h2h/internal/persistence"
	"github.com/hive2hive/h2h/internal/security"
)

// overlayDBPath is the durable overlay's database file, kept under the
// root's reserved control directory so it is never mistaken for a
// synchronized user file by login/logout's filesystem walk.
func overlayDBPath(root string) string {
	return filepath.Join(root, h2hconst.ControlDirName, "overlay.sqlite3")
}

// session is one CLI invocation's worth of wiring: a durable overlay
// backed by sqlite, a loopback messenger (this CLI is a single-peer
// client; swap in webrtcmessenger for real multi-peer transport), and
// the resulting Node, logged in and ready. It also carries the sidecar
// loaded at login so commands like share can grow its PublicKeyCache
// and have the addition survive through to the logout save.
type session struct {
	node    *node.Node
	overlay *sqliteoverlay.Overlay
	sidecar *persistence.Sidecar
	root    string
}

func openSession(ctx context.Context, root, userID, password, pin string) (*session, error) {
	dbPath := overlayDBPath(root)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("ensure control dir: %w", err)
	}
	overlay, err := sqliteoverlay.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open overlay: %w", err)
	}

	registry := loopmessenger.NewRegistry()
	messenger := loopmessenger.New(registry, userID)
	dm := data.NewDataManager(overlay, messenger, logrus.StandardLogger())

	creds := security.UserCredentials{UserID: userID, Password: password, Pin: pin}
	cfg := config.Default()

	n := node.New(dm, creds, cfg, root, logrus.StandardLogger())

	sc, err := persistence.Load(root)
	if err != nil {
		return nil, fmt.Errorf("load sidecar: %w", err)
	}
	if _, err := n.Login(ctx, sc.FileTree); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	return &session{node: n, overlay: overlay, sidecar: sc, root: root}, nil
}

// cacheFriendKey records a friend's public key in the session's sidecar
// and persists it immediately, so it survives even if this process
// never reaches a clean close.
func (s *session) cacheFriendKey(userID string, pub *rsa.PublicKey) error {
	s.sidecar.CachePublicKey(userID, pub)
	return s.sidecar.Save(s.root)
}

// friendKey returns a previously cached public key for userID, if any.
func (s *session) friendKey(userID string) (*rsa.PublicKey, bool) {
	return s.sidecar.CachedPublicKey(userID)
}

func (s *session) close(ctx context.Context) error {
	if err := s.node.Logout(ctx); err != nil {
		return err
	}
	return s.overlay.Close()
}
