// Package recover implements the version-recovery process of spec.md
// §4.7: list a file's retained versions, let the caller choose one, and
// download it into a caller-chosen destination alongside the current
// file, without mutating the profile or the meta-file.
package recover

import (
	"context"
	"os"

	"github.com/hive2hive/h2h/internal/chunking"
	"github.com/hive2hive/h2h/internal/h2herrors"
	"github.com/hive2hive/h2h/internal/model"
	pctx "github.com/hive2hive/h2h/internal/processes/context"
	"github.com/hive2hive/h2h/internal/processes/files/download"
	"github.com/hive2hive/h2h/internal/procfx"
)

func New(fctx *pctx.FileOperationContext, filePath, destPath string, selectVersion download.VersionSelector) *procfx.Process {
	fctx.Path = filePath

	fetchMeta := procfx.NewStep("fetch-meta-file",
		func(ctx context.Context) *procfx.StepFailure { return fetchMetaFileStep(ctx, fctx, filePath) }, nil)

	selectAndDownload := procfx.NewStep("select-version-and-recover",
		func(ctx context.Context) *procfx.StepFailure {
			return selectAndRecoverStep(ctx, fctx, destPath, selectVersion)
		}, nil)

	return procfx.New(procfx.NewSequential("recover-file", fetchMeta, selectAndDownload))
}

func fetchMetaFileStep(ctx context.Context, fctx *pctx.FileOperationContext, filePath string) *procfx.StepFailure {
	profile, err := fctx.ProfileManager.GetUserProfile(ctx, fctx.PID, false)
	if err != nil {
		return procfx.WrapFailure(h2herrors.GetFailed, "get profile for recover", err)
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
		return procfx.WrapFailure(h2herrors.GetFailed, "get meta-file for recover", err)
	}
	fctx.Profile = profile
	fctx.TargetIndex = fileIndex
	fctx.MetaFile = mf
	return nil
}

func selectAndRecoverStep(ctx context.Context, fctx *pctx.FileOperationContext, destPath string, selectVersion download.VersionSelector) *procfx.StepFailure {
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
		return procfx.WrapFailure(h2herrors.GetFailed, "download recovered version", err)
	}
	if err := dest.Close(); err != nil {
		return procfx.WrapFailure(h2herrors.ProcessExecutionFailure, "close recovered file", err)
	}
	fctx.NewVersion = version
	return nil
}
