// Package export writes gallery listings as playlists so they can be opened
// in a media player or slideshow tool.
package export

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/handiism/mediavault/internal/model"
)

// Format is a playlist format.
//
//   - M3U: plain list of URLs, optionally with #EXTINF titles
//   - PLS: INI-style File/Title entries
//   - JSON: the normalized items, for scripting
type Format int

const (
	FormatM3U Format = iota
	FormatPLS
	FormatJSON
)

// ParseFormat maps a name or file extension ("m3u", ".pls") to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "", "m3u", "m3u8":
		return FormatM3U, nil
	case "pls":
		return FormatPLS, nil
	case "json":
		return FormatJSON, nil
	}
	return FormatM3U, fmt.Errorf("unsupported export format %q", s)
}

// Extension returns the file extension for f, without the dot.
func (f Format) Extension() string {
	switch f {
	case FormatPLS:
		return "pls"
	case FormatJSON:
		return "json"
	default:
		return "m3u"
	}
}

// Exporter renders gallery items as a playlist.
//
// Items without a resolved URL have nothing to play and are left out of
// M3U and PLS output; JSON output keeps them.
//
// Example:
//
//	exp := NewExporter(FormatM3U, true)
//	content, err := exp.Render(items)
//
//	// #EXTM3U
//	// #EXTINF:-1,sunset.png
//	// https://cdn.example.com/sunset.png
type Exporter struct {
	format   Format
	extended bool // M3U only: include #EXTINF lines
}

// NewExporter creates an Exporter.
func NewExporter(format Format, extended bool) *Exporter {
	return &Exporter{format: format, extended: extended}
}

// Render returns the playlist content.
func (e *Exporter) Render(items []model.MediaItem) (string, error) {
	switch e.format {
	case FormatPLS:
		return e.renderPLS(items), nil
	case FormatJSON:
		data, err := json.MarshalIndent(items, "", "  ")
		if err != nil {
			return "", err
		}
		return string(data) + "\n", nil
	default:
		return e.renderM3U(items), nil
	}
}

func (e *Exporter) renderM3U(items []model.MediaItem) string {
	var sb strings.Builder

	if e.extended {
		sb.WriteString("#EXTM3U\n")
	}
	for _, item := range playable(items) {
		if e.extended {
			sb.WriteString(fmt.Sprintf("#EXTINF:-1,%s\n", oneLine(item.Title())))
		}
		sb.WriteString(item.ResolvedURL + "\n")
	}
	return sb.String()
}

// renderPLS writes the INI-style format:
//
//	[playlist]
//	File1=https://cdn/a.png
//	Title1=a.png
//	Length1=-1
//	NumberOfEntries=1
//	Version=2
func (e *Exporter) renderPLS(items []model.MediaItem) string {
	var sb strings.Builder

	sb.WriteString("[playlist]\n")
	list := playable(items)
	for i, item := range list {
		idx := i + 1
		sb.WriteString(fmt.Sprintf("File%d=%s\n", idx, item.ResolvedURL))
		sb.WriteString(fmt.Sprintf("Title%d=%s\n", idx, oneLine(item.Title())))
		sb.WriteString(fmt.Sprintf("Length%d=-1\n", idx))
	}
	sb.WriteString(fmt.Sprintf("NumberOfEntries=%d\n", len(list)))
	sb.WriteString("Version=2\n")
	return sb.String()
}

func playable(items []model.MediaItem) []model.MediaItem {
	out := make([]model.MediaItem, 0, len(items))
	for _, item := range items {
		if item.HasURL() {
			out = append(out, item)
		}
	}
	return out
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
