// Package context defines the typed shared state threaded between the
// steps of a single file operation (spec.md §2 "Process contexts"). It is
// named context (not ctx) to read naturally as pctx.FileOperationContext
// at call sites, avoiding confusion with context.Context.
package context

import (
	"github.com/hive2hive/h2h/internal/config"
	"github.com/hive2hive/h2h/internal/model"
	"github.com/hive2hive/h2h/internal/network/data"
	"github.com/hive2hive/h2h/internal/notify"
	"github.com/hive2hive/h2h/internal/profilemanager"
	"github.com/hive2hive/h2h/internal/security"
)

// FileOperationContext is shared, mutable scratch space for one running
// process. Each step reads what earlier steps left behind and writes
// what later steps (or its own rollback) will need.
type FileOperationContext struct {
	UserID      string
	Credentials security.UserCredentials
	Config      *config.Configuration

	DataManager    *data.DataManager
	ProfileManager *profilemanager.Manager
	Notifier       *notify.Process

	PID profilemanager.PID

	// Path is the profile-tree-relative path the operation targets.
	Path string

	Profile      *model.UserProfile
	TargetIndex  model.Index
	ParentFolder *model.FolderIndex

	MetaFile       *model.MetaFile
	NewVersion     model.FileVersion
	UploadedChunks []model.MetaChunk
	EvictedChunks  []model.MetaChunk

	// NodeKeyPair is the fresh identity keypair of the FileIndex being
	// created (add) or the existing one reused (update). ChunkKey is the
	// meta-file's chunk-encryption keypair.
	NodeKeyPair security.KeyPair
	ChunkKey    security.KeyPair

	// FileData is the plaintext content a step chunks and uploads (add,
	// update), or the existing destination file's content when download's
	// skip-if-identical check finds a match. download/recover otherwise
	// stream chunks straight into a preallocated destination file and
	// never hold the full content in memory.
	FileData []byte
}

func New(userID string, creds security.UserCredentials, cfg *config.Configuration, dm *data.DataManager, pm *profilemanager.Manager, notifier *notify.Process) *FileOperationContext {
	return &FileOperationContext{
		UserID:         userID,
		Credentials:    creds,
		Config:         cfg,
		DataManager:    dm,
		ProfileManager: pm,
		Notifier:       notifier,
		PID:            profilemanager.NewPID(),
	}
}
