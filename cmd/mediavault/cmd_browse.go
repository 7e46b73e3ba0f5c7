package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/handiism/mediavault/internal/app"
	"github.com/handiism/mediavault/internal/download"
	"github.com/handiism/mediavault/internal/tui"
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse the gallery interactively",
	Long:  `Open the terminal gallery browser with a paged grid, full list and item viewer.`,
	RunE:  runBrowse,
}

func init() {
	browseCmd.Flags().String("scope", "", "Gallery scope (default from config)")
}

func runBrowse(cmd *cobra.Command, args []string) error {
	// Logs would draw over the alt screen.
	a, _, stop, err := setupWithLog(cmd, io.Discard)
	if err != nil {
		return err
	}
	defer stop()

	return tui.Run(tui.Options{
		Gallery:  a.Fetcher,
		Scope:    scopeFlag(cmd, a.Settings.GalleryScope),
		PageSize: a.Settings.PageSize,
		URLFor:   a.Fetcher.URLFor,
	}, func(onProgress func(download.ProgressEvent), onBytes func(string, int64, int64)) tui.Downloader {
		return a.Pipeline(app.PipelineOptions{OnProgress: onProgress, OnBytes: onBytes})
	})
}
