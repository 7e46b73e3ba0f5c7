package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/handiism/mediavault/internal/app"
	"github.com/handiism/mediavault/internal/download"
)

var downloadCmd = &cobra.Command{
	Use:   "download [url...]",
	Short: "Download media files",
	Long: `Download media by URL, or every gallery item with --all.

Each file is tried as a native save (with --ask), then a direct fetch, then
through the backend download proxy.`,
	RunE: runDownload,
}

func init() {
	downloadCmd.Flags().Bool("all", false, "Download every gallery item")
	downloadCmd.Flags().String("scope", "", "Gallery scope for --all")
	downloadCmd.Flags().StringP("name", "n", "", "Suggested file name (single URL only)")
	downloadCmd.Flags().StringP("output", "o", "", "Downloads directory (overrides config)")
	downloadCmd.Flags().Bool("ask", false, "Ask where to save each file")
	downloadCmd.Flags().Bool("thumbnails", false, "Write JPEG thumbnails next to images")
}

func runDownload(cmd *cobra.Command, args []string) error {
	all, _ := cmd.Flags().GetBool("all")
	if !all && len(args) == 0 {
		return fmt.Errorf("give at least one URL or --all")
	}
	name, _ := cmd.Flags().GetString("name")
	if name != "" && (all || len(args) > 1) {
		return fmt.Errorf("--name needs exactly one URL")
	}

	a, ctx, stop, err := setup(cmd)
	if err != nil {
		return err
	}
	defer stop()

	if v, _ := cmd.Flags().GetString("output"); v != "" {
		a.Settings.DownloadsPath = v
	}
	if v, _ := cmd.Flags().GetBool("thumbnails"); v {
		a.Settings.SaveThumbnails = true
	}

	opts := app.PipelineOptions{OnProgress: printProgress(verbose(cmd))}
	if ask, _ := cmd.Flags().GetBool("ask"); ask || a.Settings.AskDestination {
		opts.Saver = download.NewPromptSaver(os.Stdin, os.Stdout, a.Settings.DownloadsPath)
	}
	pipeline := a.Pipeline(opts)

	var reqs []download.Request
	if all {
		items, err := a.Fetcher.Fetch(ctx, scopeFlag(cmd, a.Settings.GalleryScope), false)
		if err != nil {
			return err
		}
		for _, item := range items {
			if !item.HasURL() {
				continue
			}
			u, err := a.Fetcher.URLFor(ctx, item)
			if err != nil {
				a.Log.Warn().Err(err).Str("id", item.ID).Msg("skipping item")
				continue
			}
			reqs = append(reqs, download.Request{URL: u})
		}
	} else {
		for _, u := range args {
			reqs = append(reqs, download.Request{URL: u, Name: name})
		}
	}

	if opts.Saver != nil {
		// The prompt reads one answer at a time.
		return downloadSequential(ctx, pipeline, reqs)
	}

	jobs, err := pipeline.DownloadAll(ctx, reqs)
	summarize(jobs)
	return err
}

func downloadSequential(ctx context.Context, pipeline *download.Pipeline, reqs []download.Request) error {
	var errs []error
	jobs := make([]*download.Job, 0, len(reqs))
	for _, req := range reqs {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		job, err := pipeline.Download(ctx, req.URL, req.Name)
		jobs = append(jobs, job)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", req.URL, err))
		}
	}
	summarize(jobs)
	return errors.Join(errs...)
}

func summarize(jobs []*download.Job) {
	var saved, cancelled, skipped, failed int
	for _, job := range jobs {
		switch {
		case job == nil:
			failed++
		case job.Skipped:
			skipped++
		case job.Cancelled:
			cancelled++
		case job.State == download.StateDone:
			saved++
		default:
			failed++
		}
	}
	fmt.Printf("\n%d saved, %d cancelled, %d skipped, %d failed\n", saved, cancelled, skipped, failed)
}
