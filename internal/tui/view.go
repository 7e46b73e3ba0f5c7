package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/handiism/mediavault/internal/download"
	"github.com/handiism/mediavault/internal/model"
	"github.com/handiism/mediavault/internal/viewer"
)

const cellWidth = 22

// Styles for the TUI
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8DADC"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4ECDC4")).
			Padding(1, 2)

	cellStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("#6C757D")).
			Width(cellWidth).
			Height(3)

	selectedCellStyle = cellStyle.
				BorderForeground(lipgloss.Color("#F8B500"))

	selectedLineStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#F8B500"))
)

// View renders the UI.
func (m Model) View() string {
	var b strings.Builder

	// Header
	b.WriteString(titleStyle.Render("mediavault"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("Gallery: %s (%d items)", m.scope, len(m.items))))
	b.WriteString("\n\n")

	switch m.state {
	case StateLoading:
		b.WriteString(m.spinner.View())
		b.WriteString(" ")
		b.WriteString(subtitleStyle.Render("Loading gallery..."))
		b.WriteString("\n")
	case StateGrid:
		b.WriteString(m.viewGrid())
	case StateFullList:
		b.WriteString(m.viewFullList())
	case StateViewer:
		b.WriteString(m.viewViewer())
	case StateError:
		b.WriteString(m.viewError())
	}

	if len(m.downloading) > 0 {
		b.WriteString("\n")
		b.WriteString(m.spinner.View())
		b.WriteString(infoStyle.Render(fmt.Sprintf(" Downloading %d file(s)", len(m.downloading))))
		b.WriteString("\n")
		if m.transfer >= 0 {
			b.WriteString(m.progress.View())
			b.WriteString("\n")
		}
	}

	if len(m.logs) > 0 {
		b.WriteString("\n")
		b.WriteString(m.renderLogs())
	}

	// Footer
	b.WriteString("\n")
	b.WriteString(m.help.View(m.helpKeys()))

	return b.String()
}

func (m Model) viewGrid() string {
	if len(m.items) == 0 {
		return dimStyle.Render("No media yet.") + "\n"
	}

	shown, more := viewer.Limit(m.items, m.pageSize)
	cols := m.columns()

	var rows []string
	for start := 0; start < len(shown); start += cols {
		end := start + cols
		if end > len(shown) {
			end = len(shown)
		}
		var cells []string
		for i := start; i < end; i++ {
			style := cellStyle
			if i == m.cursor {
				style = selectedCellStyle
			}
			cells = append(cells, style.Render(m.cellText(shown[i])))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}

	var b strings.Builder
	b.WriteString(lipgloss.JoinVertical(lipgloss.Left, rows...))
	b.WriteString("\n")
	if more {
		b.WriteString(subtitleStyle.Render(fmt.Sprintf("View more (%d total): press m", len(m.items))))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) cellText(item model.MediaItem) string {
	title := truncate(item.Title(), cellWidth-2)
	switch {
	case !item.HasURL():
		return title + "\n" + warningStyle.Render("(no url)")
	case m.downloading[item.ResolvedURL]:
		return title + "\n" + infoStyle.Render(kindIcon(item.Kind)+" downloading")
	default:
		return title + "\n" + dimStyle.Render(kindIcon(item.Kind)+" "+string(item.Kind))
	}
}

func (m Model) viewFullList() string {
	var b strings.Builder

	b.WriteString(subtitleStyle.Render("All media"))
	b.WriteString("\n\n")

	start, end := m.pageBounds()
	for i, item := range m.items[start:end] {
		line := fmt.Sprintf("%3d. %s %s", start+i+1, kindIcon(item.Kind), item.Title())
		if !item.HasURL() {
			line += warningStyle.Render("  (no url)")
		} else if m.downloading[item.ResolvedURL] {
			line += infoStyle.Render("  downloading")
		}
		if i == m.cursor {
			b.WriteString(selectedLineStyle.Render("› " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Page " + m.pages.View()))
	b.WriteString("\n")
	return b.String()
}

func (m Model) viewViewer() string {
	item, ok := m.viewer.Current()
	if !ok {
		return ""
	}
	pos, total := m.viewer.Position()

	var body strings.Builder
	body.WriteString(fmt.Sprintf("%s %s\n\n", kindIcon(item.Kind), item.Title()))
	if item.ID != "" {
		body.WriteString(fmt.Sprintf("ID:   %s\n", item.ID))
	}
	body.WriteString(fmt.Sprintf("Kind: %s\n", item.Kind))
	if item.HasURL() {
		body.WriteString(fmt.Sprintf("URL:  %s\n", truncate(item.ResolvedURL, 70)))
	} else {
		body.WriteString(warningStyle.Render("No playable URL for this item") + "\n")
	}
	if m.downloading[item.ResolvedURL] {
		body.WriteString(infoStyle.Render("\nDownloading...") + "\n")
	}
	body.WriteString(dimStyle.Render(fmt.Sprintf("\n%d / %d", pos, total)))

	return boxStyle.Render(body.String()) + "\n"
}

func (m Model) viewError() string {
	var b strings.Builder

	b.WriteString(errorStyle.Render("Failed to load gallery:"))
	b.WriteString("\n\n")
	if m.err != nil {
		b.WriteString(fmt.Sprintf("  %s", m.err.Error()))
	}
	b.WriteString("\n")
	return b.String()
}

func (m Model) renderLogs() string {
	var b strings.Builder

	for _, log := range m.logs {
		var style lipgloss.Style
		prefix := "•"
		switch log.Level {
		case download.LevelError:
			style = errorStyle
			prefix = "✗"
		case download.LevelWarning:
			style = warningStyle
			prefix = "!"
		case download.LevelSuccess:
			style = successStyle
			prefix = "✓"
		case download.LevelInfo:
			style = infoStyle
			prefix = "›"
		default:
			style = dimStyle
		}
		b.WriteString(style.Render(prefix + " " + log.Message))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) helpKeys() helpKeys {
	k := m.keys
	switch m.state {
	case StateGrid:
		return helpKeys{k.Open, k.Download, k.More, k.Reload, k.Verbose, k.Quit}
	case StateFullList:
		return helpKeys{k.Up, k.Down, m.pages.KeyMap.NextPage, k.Open, k.Download, k.Back, k.Quit}
	case StateViewer:
		return append(helpKeys(m.viewer.Keys.ShortHelp()), k.Download, k.Quit)
	case StateError:
		return helpKeys{k.Reload, k.Quit}
	}
	return helpKeys{k.Quit}
}

func kindIcon(kind model.MediaKind) string {
	if kind == model.KindVideo {
		return "▶"
	}
	return "◼"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
