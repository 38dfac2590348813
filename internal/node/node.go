// Package node is the façade of spec.md §4: it wires one user's
// DataManager, ProfileManager and notification Process together and
// exposes the operations a CLI or daemon drives (register, login,
// logout, the file pipelines, share, download, recover).
package node

import (
	"context"
	"crypto/rsa"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/hive2hive/h2h/internal/config"
	"github.com/hive2hive/h2h/internal/location"
	"github.com/hive2hive/h2h/internal/model"
	"github.com/hive2hive/h2h/internal/network/data"
	"github.com/hive2hive/h2h/internal/notify"
	pctx "github.com/hive2hive/h2h/internal/processes/context"
	"github.com/hive2hive/h2h/internal/processes/files/add"
	"github.com/hive2hive/h2h/internal/processes/files/delete"
	"github.com/hive2hive/h2h/internal/processes/files/download"
	"github.com/hive2hive/h2h/internal/processes/files/move"
	"github.com/hive2hive/h2h/internal/processes/files/recover"
	"github.com/hive2hive/h2h/internal/processes/files/update"
	"github.com/hive2hive/h2h/internal/processes/login"
	"github.com/hive2hive/h2h/internal/processes/logout"
	"github.com/hive2hive/h2h/internal/processes/share"
	"github.com/hive2hive/h2h/internal/profilemanager"
	"github.com/hive2hive/h2h/internal/security"
)

// Node is one user's running session: everything a file operation needs
// to thread through a FileOperationContext, built once at Login and torn
// down at Logout.
type Node struct {
	UserID      string
	Root        string
	credentials security.UserCredentials
	cfg         *config.Configuration

	dm        *data.DataManager
	profiles  *profilemanager.Manager
	locations *location.Registry
	notifier  *notify.Process
	log       *logrus.Entry
}

// New wires a Node around an already-constructed DataManager (its
// concrete Overlay/Messenger pair is chosen by the caller: memoverlay +
// loopmessenger for tests, sqliteoverlay + webrtcmessenger in the CLI).
func New(dm *data.DataManager, creds security.UserCredentials, cfg *config.Configuration, root string, log *logrus.Logger) *Node {
	if log == nil {
		log = logrus.New()
	}
	locations := location.New(dm)
	return &Node{
		UserID:      creds.UserID,
		Root:        root,
		credentials: creds,
		cfg:         cfg,
		dm:          dm,
		profiles:    profilemanager.New(dm, creds, *cfg, log),
		locations:   locations,
		notifier:    notify.New(dm, locations, creds.UserID),
		log:         log.WithField("component", "node").WithField("user", creds.UserID),
	}
}

// Register creates creds' profile: a fresh protection keypair, an empty
// root folder, and an initial put (spec.md §4.3). It must run before any
// Node is constructed for that user.
func Register(ctx context.Context, dm *data.DataManager, creds security.UserCredentials, cfg *config.Configuration) error {
	protectionKey, err := security.GenerateKeyPair(cfg.RSAKeyLengthUser)
	if err != nil {
		return fmt.Errorf("generate protection key: %w", err)
	}
	rootKey, err := security.GenerateKeyPair(cfg.RSAKeyLengthFile)
	if err != nil {
		return fmt.Errorf("generate root folder key: %w", err)
	}
	root := model.NewFolderIndex("", "", rootKey)
	profile := model.NewUserProfile(root, protectionKey)
	return profilemanager.CreateProfile(ctx, dm, creds, *cfg, profile)
}

func (n *Node) newFctx() *pctx.FileOperationContext {
	return pctx.New(n.UserID, n.credentials, n.cfg, n.dm, n.profiles, n.notifier)
}

// Login registers this peer's address in the user's Locations and
// reconciles any changes made to Root while this peer was offline.
func (n *Node) Login(ctx context.Context, sidecarTree map[string][16]byte) (login.Reconciliation, error) {
	deps := login.Deps{Locations: n.locations, Root: n.Root, NewFctx: n.newFctx}
	var result login.Reconciliation
	proc := login.New(deps, n.UserID, n.dm.LocalAddress(), sidecarTree, &result)
	if _, failure := proc.ExecuteBlocking(ctx); failure != nil {
		return login.Reconciliation{}, failure
	}
	return result, nil
}

// Logout persists the sidecar, removes this peer from Locations, and
// stops the profile manager's worker. The Node must not be used again
// afterward.
func (n *Node) Logout(ctx context.Context) error {
	deps := logout.Deps{Locations: n.locations, ProfileManager: n.profiles, Root: n.Root}
	proc := logout.New(deps, n.UserID, n.dm.LocalAddress())
	_, failure := proc.ExecuteBlocking(ctx)
	if failure != nil {
		return failure
	}
	return nil
}

func (n *Node) AddFile(ctx context.Context, path string, fileData []byte) error {
	_, failure := add.New(n.newFctx(), path, fileData).ExecuteBlocking(ctx)
	if failure != nil {
		return failure
	}
	return nil
}

func (n *Node) UpdateFile(ctx context.Context, path string, fileData []byte) error {
	_, failure := update.New(n.newFctx(), path, fileData).ExecuteBlocking(ctx)
	if failure != nil {
		return failure
	}
	return nil
}

func (n *Node) DeleteFile(ctx context.Context, path string) error {
	_, failure := delete.New(n.newFctx(), path).ExecuteBlocking(ctx)
	if failure != nil {
		return failure
	}
	return nil
}

func (n *Node) MoveFile(ctx context.Context, sourcePath, destPath string) error {
	_, failure := move.New(n.newFctx(), sourcePath, destPath).ExecuteBlocking(ctx)
	if failure != nil {
		return failure
	}
	return nil
}

func (n *Node) ShareFolder(ctx context.Context, folderPath, friendUserID string, friendPublicKey *rsa.PublicKey, canWrite bool) error {
	_, failure := share.New(n.newFctx(), folderPath, friendUserID, friendPublicKey, canWrite).ExecuteBlocking(ctx)
	if failure != nil {
		return failure
	}
	return nil
}

// Download fetches selectVersion's pick of path's versions into destPath,
// skipping the transfer entirely if destPath already holds identical
// content.
func (n *Node) Download(ctx context.Context, path, destPath string, selectVersion download.VersionSelector) error {
	_, failure := download.New(n.newFctx(), path, destPath, selectVersion).ExecuteBlocking(ctx)
	if failure != nil {
		return failure
	}
	return nil
}

// RecoverVersion downloads selectVersion's pick of path's retained
// versions into destPath, alongside the current file, without touching
// the profile.
func (n *Node) RecoverVersion(ctx context.Context, path, destPath string, selectVersion download.VersionSelector) error {
	_, failure := recover.New(n.newFctx(), path, destPath, selectVersion).ExecuteBlocking(ctx)
	if failure != nil {
		return failure
	}
	return nil
}
