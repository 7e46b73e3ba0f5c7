package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/handiism/mediavault/internal/app"
	"github.com/handiism/mediavault/internal/config"
	"github.com/handiism/mediavault/internal/download"
	"github.com/handiism/mediavault/internal/logging"
	"github.com/handiism/mediavault/internal/tui"
)

func main() {
	configPath := flag.String("config", config.DefaultConfigPath(), "Config file (JSON or YAML)")
	scope := flag.String("scope", "", "Gallery scope (default from config)")
	flag.Parse()

	if err := run(*configPath, *scope); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, scope string) error {
	settings, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// The alt screen owns the terminal; logs only go to a file if asked for.
	var out io.Writer = io.Discard
	if path := os.Getenv("MEDIAVAULT_LOG_FILE"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	log, err := logging.New(settings.LogLevel, logging.FormatJSON, out)
	if err != nil {
		return err
	}

	a, err := app.New(settings, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if scope == "" {
		scope = settings.GalleryScope
	}
	return tui.Run(tui.Options{
		Gallery:  a.Fetcher,
		Scope:    scope,
		PageSize: settings.PageSize,
		URLFor:   a.Fetcher.URLFor,
	}, func(onProgress func(download.ProgressEvent), onBytes func(string, int64, int64)) tui.Downloader {
		return a.Pipeline(app.PipelineOptions{OnProgress: onProgress, OnBytes: onBytes})
	})
}
