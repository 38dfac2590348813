// Package logout implements the logout process of spec.md §4.4: persist
// the local root's current state to the sidecar, remove this peer from
// the user's Locations, and stop the profile manager's worker.
package logout

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hive2hive/h2h/internal/h2hconst"
	"github.com/hive2hive/h2h/internal/h2herrors"
	"github.com/hive2hive/h2h/internal/location"
	"github.com/hive2hive/h2h/internal/persistence"
	"github.com/hive2hive/h2h/internal/profilemanager"
	"github.com/hive2hive/h2h/internal/procfx"
	"github.com/hive2hive/h2h/internal/security"
)

type Deps struct {
	Locations      *location.Registry
	ProfileManager *profilemanager.Manager
	Root           string
}

func New(deps Deps, userID, peerAddress string) *procfx.Process {
	saveSidecar := procfx.NewStep("save-sidecar",
		func(ctx context.Context) *procfx.StepFailure { return saveSidecarStep(deps) }, nil)

	removeLocation := procfx.NewStep("remove-location",
		func(ctx context.Context) *procfx.StepFailure {
			if err := deps.Locations.Logout(ctx, userID, peerAddress); err != nil {
				return procfx.WrapFailure(h2herrors.PutFailed, "remove location", err)
			}
			return nil
		}, nil)

	stopManager := procfx.NewStep("stop-profile-manager",
		func(ctx context.Context) *procfx.StepFailure { deps.ProfileManager.Close(); return nil }, nil)

	return procfx.New(procfx.NewSequential("logout", saveSidecar, removeLocation, stopManager))
}

// saveSidecarStep rebuilds the FileTree from the live filesystem but
// preserves the PublicKeyCache accumulated across the session: it loads
// the existing sidecar (the cache share.go populated) rather than
// starting from an empty one.
func saveSidecarStep(deps Deps) *procfx.StepFailure {
	sc, err := persistence.Load(deps.Root)
	if err != nil {
		return procfx.WrapFailure(h2herrors.ProcessExecutionFailure, "load sidecar", err)
	}
	sc.FileTree = make(map[string][16]byte)

	walkErr := filepath.WalkDir(deps.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == h2hconst.ControlDirName {
				return fs.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(deps.Root, path)
		if err != nil {
			return err
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		sc.FileTree[filepath.ToSlash(rel)] = security.MD5Bytes(content)
		return nil
	})
	if walkErr != nil {
		return procfx.WrapFailure(h2herrors.ProcessExecutionFailure, "walk local root for sidecar", walkErr)
	}
	if err := sc.Save(deps.Root); err != nil {
		return procfx.WrapFailure(h2herrors.ProcessExecutionFailure, "save sidecar", err)
	}
	return nil
}
