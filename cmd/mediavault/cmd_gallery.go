package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/handiism/mediavault/internal/export"
	ioutils "github.com/handiism/mediavault/internal/io"
	"github.com/handiism/mediavault/internal/model"
)

var galleryCmd = &cobra.Command{
	Use:   "gallery",
	Short: "Gallery commands",
	Long:  `List, reload and export the media gallery.`,
}

var galleryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List gallery items",
	Long:  `List gallery items, served from the local snapshot while it is fresh.`,
	RunE:  runGalleryList,
}

var galleryReloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Drop the cached snapshot and fetch the gallery again",
	RunE:  runGalleryReload,
}

var galleryExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the gallery as a playlist",
	Long:  `Export gallery URLs as an M3U or PLS playlist, or the normalized items as JSON.`,
	RunE:  runGalleryExport,
}

func init() {
	galleryCmd.AddCommand(galleryListCmd)
	galleryCmd.AddCommand(galleryReloadCmd)
	galleryCmd.AddCommand(galleryExportCmd)

	galleryCmd.PersistentFlags().String("scope", "", "Gallery scope (default from config)")

	galleryListCmd.Flags().Bool("force", false, "Skip the cached snapshot")
	galleryListCmd.Flags().Bool("json", false, "Print items as JSON")

	galleryExportCmd.Flags().String("format", "m3u", "Output format: m3u, pls, json")
	galleryExportCmd.Flags().Bool("extended", true, "M3U: include #EXTINF titles")
	galleryExportCmd.Flags().StringP("output", "o", "", "Output file (default: stdout)")
	galleryExportCmd.Flags().Bool("force", false, "Skip the cached snapshot")
}

func scopeFlag(cmd *cobra.Command, fallback string) string {
	if s, _ := cmd.Flags().GetString("scope"); s != "" {
		return s
	}
	return fallback
}

func runGalleryList(cmd *cobra.Command, args []string) error {
	a, ctx, stop, err := setup(cmd)
	if err != nil {
		return err
	}
	defer stop()

	force, _ := cmd.Flags().GetBool("force")
	items, err := a.Fetcher.Fetch(ctx, scopeFlag(cmd, a.Settings.GalleryScope), force)
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}
	printItems(items)
	return nil
}

func runGalleryReload(cmd *cobra.Command, args []string) error {
	a, ctx, stop, err := setup(cmd)
	if err != nil {
		return err
	}
	defer stop()

	items, err := a.Fetcher.Reload(ctx, scopeFlag(cmd, a.Settings.GalleryScope))
	if err != nil {
		return err
	}
	fmt.Printf("Reloaded %d item(s)\n", len(items))
	return nil
}

func runGalleryExport(cmd *cobra.Command, args []string) error {
	formatName, _ := cmd.Flags().GetString("format")
	format, err := export.ParseFormat(formatName)
	if err != nil {
		return err
	}

	a, ctx, stop, err := setup(cmd)
	if err != nil {
		return err
	}
	defer stop()

	force, _ := cmd.Flags().GetBool("force")
	items, err := a.Fetcher.Fetch(ctx, scopeFlag(cmd, a.Settings.GalleryScope), force)
	if err != nil {
		return err
	}

	extended, _ := cmd.Flags().GetBool("extended")
	content, err := export.NewExporter(format, extended).Render(items)
	if err != nil {
		return err
	}

	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		_, err = fmt.Print(content)
		return err
	}
	if err := ioutils.WriteFile(ctx, output, []byte(content)); err != nil {
		return fmt.Errorf("writing %s: %w", output, err)
	}
	fmt.Fprintf(os.Stderr, "Exported %d item(s) to %s\n", len(items), output)
	return nil
}

func printItems(items []model.MediaItem) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tID\tKIND\tTITLE\tURL")
	for i, item := range items {
		u := item.ResolvedURL
		if u == "" {
			u = "(unresolved)"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", i+1, item.ID, item.Kind, item.Title(), u)
	}
	w.Flush()
}
