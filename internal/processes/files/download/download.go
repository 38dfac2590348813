// Package download implements the download process of spec.md §4.7: fetch
// a file's meta-file, let the caller choose a version, fetch and
// reassemble its chunks, and write the result under a caller-chosen
// destination name. A pre-flight MD5 compare against an existing
// destination file skips the download entirely when the content already
// matches (spec.md §4.7 "skip if identical").
package download

import (
	"context"
	"os"

	"github.com/hive2hive/h2h/internal/chunking"
	"github.com/hive2hive/h2h/internal/h2herrors"
	"github.com/hive2hive/h2h/internal/model"
	pctx "github.com/hive2hive/h2h/internal/processes/context"
	"github.com/hive2hive/h2h/internal/procfx"
	"github.com/hive2hive/h2h/internal/security"
)

// VersionSelector picks one of the available versions of a file, most
// recent last. Returning false aborts the download.
type VersionSelector func(versions []model.FileVersion) (model.FileVersion, bool)

// Newest always selects the most recent version.
func Newest(versions []model.FileVersion) (model.FileVersion, bool) {
	if len(versions) == 0 {
		return model.FileVersion{}, false
	}
	return versions[len(versions)-1], true
}

func New(fctx *pctx.FileOperationContext, filePath, destPath string, selectVersion VersionSelector) *procfx.Process {
	fctx.Path = filePath

	fetchMeta := procfx.NewStep("fetch-meta-file",
		func(ctx context.Context) *procfx.StepFailure { return fetchMetaFileStep(ctx, fctx, filePath) }, nil)

	skipIfIdentical := procfx.NewStep("skip-if-destination-identical",
		func(ctx context.Context) *procfx.StepFailure { return checkIdenticalStep(fctx, destPath) }, nil)

	selectAndDownload := procfx.NewStep("select-version-and-download",
		func(ctx context.Context) *procfx.StepFailure {
			return selectAndDownloadStep(ctx, fctx, destPath, selectVersion)
		}, nil)

	return procfx.New(procfx.NewSequential("download-file", fetchMeta, skipIfIdentical, selectAndDownload))
}

func fetchMetaFileStep(ctx context.Context, fctx *pctx.FileOperationContext, filePath string) *procfx.StepFailure {
	profile, err := fctx.ProfileManager.GetUserProfile(ctx, fctx.PID, false)
	if err != nil {
		return procfx.WrapFailure(h2herrors.GetFailed, "get profile for download", err)
	}
	idx, ok := profile.Tree.Resolve(filePath)
	if !ok {
		return procfx.Fail(h2herrors.IllegalFileLocation, "no such file: "+filePath)
	}
	fileIndex, ok := idx.(*model.FileIndex)
	if !ok {
		return procfx.Fail(h2herrors.IllegalFileLocation, "not a file: "+filePath)
	}
	mf, err := chunking.GetMetaFile(ctx, fctx.DataManager, fileIndex.KeyPair(), fileIndex.ID())
	if err != nil {
		return procfx.WrapFailure(h2herrors.GetFailed, "get meta-file for download", err)
	}
	fctx.Profile = profile
	fctx.TargetIndex = fileIndex
	fctx.MetaFile = mf
	return nil
}

// checkIdenticalStep compares the target FileIndex's MD5 against any file
// already at destPath; if they match, the remaining steps are skipped by
// marking fctx.FileData non-nil with length 0 is not safe (a genuinely
// empty file is valid), so a dedicated flag on the context is avoided in
// favor of returning early from the next step instead.
func checkIdenticalStep(fctx *pctx.FileOperationContext, destPath string) *procfx.StepFailure {
	existing, err := os.ReadFile(destPath)
	if err != nil {
		return nil
	}
	fileIndex := fctx.TargetIndex.(*model.FileIndex)
	if security.MD5Bytes(existing) == fileIndex.MD5 {
		fctx.FileData = existing
	}
	return nil
}

func selectAndDownloadStep(ctx context.Context, fctx *pctx.FileOperationContext, destPath string, selectVersion VersionSelector) *procfx.StepFailure {
	if fctx.FileData != nil {
		return nil // checkIdenticalStep already populated it from an identical destination file
	}
	mf := fctx.MetaFile
	version, ok := selectVersion(mf.Versions)
	if !ok {
		return procfx.Fail(h2herrors.AbortedByUser, "no version selected")
	}

	dest, err := chunking.CreatePreallocatedFile(destPath, version.Size)
	if err != nil {
		return procfx.WrapFailure(h2herrors.ProcessExecutionFailure, "preallocate destination file", err)
	}
	downloader := chunking.NewDownloader(fctx.DataManager, mf.ChunkKey)
	if err := downloader.DownloadTo(ctx, dest, version.MetaChunks); err != nil {
		dest.Close()
		os.Remove(destPath)
		return procfx.WrapFailure(h2herrors.GetFailed, "download chunks", err)
	}
	if err := dest.Close(); err != nil {
		return procfx.WrapFailure(h2herrors.ProcessExecutionFailure, "close downloaded file", err)
	}
	fctx.NewVersion = version
	return nil
}
