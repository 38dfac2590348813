// Package login implements the login process of spec.md §4.4: register
// this peer as one of userID's Locations, then reconcile any changes
// made to the local root while this peer was offline (detected via the
// persisted sidecar) into the profile by replaying add/update/delete.
package login

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hive2hive/h2h/internal/h2hconst"
	"github.com/hive2hive/h2h/internal/h2herrors"
	"github.com/hive2hive/h2h/internal/location"
	pctx "github.com/hive2hive/h2h/internal/processes/context"
	"github.com/hive2hive/h2h/internal/processes/files/add"
	"github.com/hive2hive/h2h/internal/processes/files/delete"
	"github.com/hive2hive/h2h/internal/processes/files/update"
	"github.com/hive2hive/h2h/internal/procfx"
	"github.com/hive2hive/h2h/internal/security"
)

// Reconciliation reports the offline changes login detected and replayed.
type Reconciliation struct {
	Added   []string
	Updated []string
	Deleted []string
}

// Deps bundles the collaborators login needs beyond the FileOperationContext,
// since login runs before there is a single "current operation" path.
type Deps struct {
	Locations *location.Registry
	Root      string
	NewFctx   func() *pctx.FileOperationContext
}

// New builds the login process. out is filled in with what the
// reconcile step found once the process has run; the caller reads it
// only after ExecuteBlocking returns.
func New(deps Deps, userID, peerAddress string, sidecarTree map[string][16]byte, out *Reconciliation) *procfx.Process {
	registerLocation := procfx.NewStep("register-location",
		func(ctx context.Context) *procfx.StepFailure {
			if err := deps.Locations.Login(ctx, userID, peerAddress); err != nil {
				return procfx.WrapFailure(h2herrors.PutFailed, "register location", err)
			}
			return nil
		},
		func(ctx context.Context, _ *procfx.StepFailure) { _ = deps.Locations.Logout(ctx, userID, peerAddress) })

	reconcile := procfx.NewStep("reconcile-offline-changes",
		func(ctx context.Context) *procfx.StepFailure {
			r, failure := reconcileStep(ctx, deps, sidecarTree)
			if out != nil {
				*out = r
			}
			return failure
		}, nil)

	return procfx.New(procfx.NewSequential("login", registerLocation, reconcile))
}

// reconcileStep walks deps.Root, compares each file's current MD5 against
// sidecarTree (the last-known state at logout), and replays the
// corresponding add/update/delete pipeline for anything that changed.
// Files recorded in sidecarTree but no longer on disk are deleted from the
// profile; files on disk but absent from sidecarTree are added.
func reconcileStep(ctx context.Context, deps Deps, sidecarTree map[string][16]byte) (Reconciliation, *procfx.StepFailure) {
	var result Reconciliation
	seen := make(map[string]bool, len(sidecarTree))

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
		rel = filepath.ToSlash(rel)
		seen[rel] = true

		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		currentMD5 := security.MD5Bytes(content)
		priorMD5, known := sidecarTree[rel]

		switch {
		case !known:
			fctx := deps.NewFctx()
			proc := add.New(fctx, "/"+rel, content)
			if _, failure := proc.ExecuteBlocking(ctx); failure != nil {
				return failure
			}
			result.Added = append(result.Added, rel)
		case priorMD5 != currentMD5:
			fctx := deps.NewFctx()
			proc := update.New(fctx, "/"+rel, content)
			if _, failure := proc.ExecuteBlocking(ctx); failure != nil {
				return failure
			}
			result.Updated = append(result.Updated, rel)
		}
		return nil
	})
	if walkErr != nil {
		if failure, ok := walkErr.(*procfx.StepFailure); ok {
			return result, failure
		}
		return result, procfx.WrapFailure(h2herrors.ProcessExecutionFailure, "walk local root", walkErr)
	}

	for rel := range sidecarTree {
		if seen[rel] {
			continue
		}
		fctx := deps.NewFctx()
		proc := delete.New(fctx, "/"+rel)
		if _, failure := proc.ExecuteBlocking(ctx); failure != nil {
			return result, failure
		}
		result.Deleted = append(result.Deleted, rel)
	}

	return result, nil
}
