package main

import (
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handiism/mediavault/internal/config"
)

func newFlagCommand(t *testing.T, path string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("config", path, "")
	cmd.Flags().String("log-level", "", "")
	cmd.Flags().String("log-format", "", "")
	cmd.Flags().String("metrics-addr", "", "")
	return cmd
}

func TestLoadSettings_FlagOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	settings := config.DefaultSettings()
	settings.LogLevel = "warn"
	require.NoError(t, settings.Save(path))

	cmd := newFlagCommand(t, path)
	require.NoError(t, cmd.Flags().Set("log-format", "json"))
	require.NoError(t, cmd.Flags().Set("metrics-addr", ":9100"))

	got, err := loadSettings(cmd)
	require.NoError(t, err)
	assert.Equal(t, "warn", got.LogLevel)
	assert.Equal(t, "json", got.LogFormat)
	assert.Equal(t, ":9100", got.MetricsAddr)
}

func TestLoadSettings_MissingFileUsesDefaults(t *testing.T) {
	cmd := newFlagCommand(t, filepath.Join(t.TempDir(), "absent.yaml"))

	got, err := loadSettings(cmd)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultSettings().APIBaseURL, got.APIBaseURL)
}

func TestCommandTree(t *testing.T) {
	for _, path := range [][]string{
		{"gallery", "list"},
		{"gallery", "reload"},
		{"gallery", "export"},
		{"download"},
		{"browse"},
		{"config", "init"},
	} {
		cmd, _, err := rootCmd.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}

func TestRunDownload_NeedsURL(t *testing.T) {
	err := runDownload(downloadCmd, nil)
	assert.ErrorContains(t, err, "at least one URL")
}
