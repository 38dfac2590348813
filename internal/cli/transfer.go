package cli

import (
	"context"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/hive2hive/h2h/internal/model"
	"github.com/hive2hive/h2h/internal/processes/files/download"
)

// byIndex selects the version whose Index matches, used by recover's
// --version flag. download's own pipelines don't expose per-chunk
// progress, so runWithSpinner below wraps the whole blocking call with
// an indeterminate progressbar.Spinner instead of a byte counter.
func byIndex(index int) download.VersionSelector {
	return func(versions []model.FileVersion) (model.FileVersion, bool) {
		for _, v := range versions {
			if v.Index == index {
				return v, true
			}
		}
		return model.FileVersion{}, false
	}
}

func runWithSpinner(ctx context.Context, description string, fn func(context.Context) error) error {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWriter(os.Stderr))
	defer bar.Finish()

	done := make(chan error, 1)
	go func() { done <- fn(ctx) }()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case err := <-done:
			return err
		case <-ticker.C:
			_ = bar.Add(1)
		}
	}
}

func newDownloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "download <remote-path> <local-dest>",
		Short: "Download the newest version of a file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sess, err := openSession(ctx, flagRoot, flagUserID, flagPassword, flagPin)
			if err != nil {
				return err
			}
			defer sess.close(ctx)
			return runWithSpinner(ctx, "downloading "+args[0], func(ctx context.Context) error {
				return sess.node.Download(ctx, args[0], args[1], download.Newest)
			})
		},
	}
}

func newRecoverCmd() *cobra.Command {
	var version int
	cmd := &cobra.Command{
		Use:   "recover <remote-path> <local-dest>",
		Short: "Download a past retained version of a file alongside the current one",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sess, err := openSession(ctx, flagRoot, flagUserID, flagPassword, flagPin)
			if err != nil {
				return err
			}
			defer sess.close(ctx)

			selector := download.Newest
			if version >= 0 {
				selector = byIndex(version)
			}
			return runWithSpinner(ctx, "recovering "+args[0], func(ctx context.Context) error {
				return sess.node.RecoverVersion(ctx, args[0], args[1], selector)
			})
		},
	}
	cmd.Flags().IntVar(&version, "version", -1, "version index to recover (default: newest retained)")
	return cmd
}
