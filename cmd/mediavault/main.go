package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/handiism/mediavault/internal/app"
	"github.com/handiism/mediavault/internal/config"
	"github.com/handiism/mediavault/internal/download"
	"github.com/handiism/mediavault/internal/logging"
)

var version = "0.1.0"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "mediavault",
	Short: "Browse, cache and download your generated media gallery",
	Long: `mediavault fetches your media gallery from the backend, keeps short-lived
presigned URLs and gallery snapshots cached locally, and downloads files
through a native save, direct fetch, then proxy fallback chain.

Examples:
  mediavault gallery list
  mediavault gallery reload
  mediavault gallery export --format m3u -o gallery.m3u
  mediavault download https://cdn.example.com/a/b/c.jpg
  mediavault download --all
  mediavault browse`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(galleryCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(browseCmd)
	rootCmd.AddCommand(configCmd)

	rootCmd.PersistentFlags().StringP("config", "c", config.DefaultConfigPath(), "Config file (JSON or YAML)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "Log format (console, json)")
	rootCmd.PersistentFlags().String("metrics-addr", "", "Serve prometheus metrics on this address")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Show verbose output")
}

// loadSettings reads the config file and applies persistent flag overrides.
func loadSettings(cmd *cobra.Command) (*config.Settings, error) {
	path, _ := cmd.Flags().GetString("config")
	settings, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		settings.LogLevel = v
	}
	if v, _ := cmd.Flags().GetString("log-format"); v != "" {
		settings.LogFormat = v
	}
	if v, _ := cmd.Flags().GetString("metrics-addr"); v != "" {
		settings.MetricsAddr = v
	}
	return settings, nil
}

// setup builds the App and a context cancelled on SIGINT/SIGTERM.
func setup(cmd *cobra.Command) (*app.App, context.Context, context.CancelFunc, error) {
	return setupWithLog(cmd, os.Stderr)
}

func setupWithLog(cmd *cobra.Command, logOut io.Writer) (*app.App, context.Context, context.CancelFunc, error) {
	settings, err := loadSettings(cmd)
	if err != nil {
		return nil, nil, nil, err
	}

	log, err := logging.New(settings.LogLevel, settings.LogFormat, logOut)
	if err != nil {
		return nil, nil, nil, err
	}

	a, err := app.New(settings, log)
	if err != nil {
		return nil, nil, nil, err
	}

	// Handle interrupts
	ctx, cancel := context.WithCancel(cmd.Context())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(os.Stderr, "\nInterrupted, cancelling...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	a.ServeMetrics(ctx)

	stop := func() {
		cancel()
		if err := a.Close(); err != nil {
			log.Warn().Err(err).Msg("closing state store")
		}
	}
	return a, ctx, stop, nil
}

// printProgress renders pipeline events on stdout.
func printProgress(verbose bool) func(download.ProgressEvent) {
	return func(event download.ProgressEvent) {
		if event.Level == download.LevelVerbose && !verbose {
			return
		}

		prefix := ""
		switch event.Level {
		case download.LevelError:
			prefix = "✗ "
		case download.LevelWarning:
			prefix = "! "
		case download.LevelSuccess:
			prefix = "✓ "
		case download.LevelInfo:
			prefix = "› "
		default:
			prefix = "  "
		}

		fmt.Println(prefix + event.Message)
	}
}

func verbose(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("verbose")
	return v
}
