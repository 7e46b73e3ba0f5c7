// Package tui provides a Bubble Tea terminal user interface for browsing
// and downloading a mediavault gallery.
package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/paginator"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/handiism/mediavault/internal/download"
	"github.com/handiism/mediavault/internal/model"
	"github.com/handiism/mediavault/internal/viewer"
)

// State represents the current UI state.
type State int

const (
	StateLoading State = iota
	StateGrid
	StateFullList
	StateViewer
	StateError
)

// GallerySource is the part of gallery.Fetcher the UI needs.
type GallerySource interface {
	Fetch(ctx context.Context, scope string, force bool) ([]model.MediaItem, error)
	Reload(ctx context.Context, scope string) ([]model.MediaItem, error)
}

// Downloader is the part of download.Pipeline the UI needs.
type Downloader interface {
	Download(ctx context.Context, url, suggested string) (*download.Job, error)
	InFlight(url string) bool
}

// LogEntry represents a log message in the UI.
type LogEntry struct {
	Message string
	Level   download.ProgressLevel
}

// Options configures a Model.
type Options struct {
	Gallery  GallerySource
	Scope    string
	PageSize int
	// URLFor optionally refreshes an item's URL before download.
	URLFor func(ctx context.Context, item model.MediaItem) (string, error)
}

// Model is the Bubble Tea model for the TUI.
type Model struct {
	state State
	// back is where esc returns to from the viewer.
	back State

	gallery    GallerySource
	downloader Downloader
	urlFor     func(context.Context, model.MediaItem) (string, error)
	scope      string
	pageSize   int

	items  []model.MediaItem
	viewer *viewer.Viewer
	cursor int

	pages    paginator.Model
	spinner  spinner.Model
	progress progress.Model
	help     help.Model
	keys     keyMap

	logs    []LogEntry
	verbose bool
	err     error

	// downloading holds the URLs with a job started from this UI.
	downloading map[string]bool
	// transfer is the byte fraction of the latest reporting job, -1 if unknown.
	transfer float64

	ctx    context.Context
	cancel context.CancelFunc
	events chan tea.Msg

	width  int
	height int
}

// NewModel creates a new TUI model. Attach a downloader with WithDownloader,
// wiring its progress callbacks to OnProgress and OnBytes.
func NewModel(opts Options) Model {
	if opts.PageSize <= 0 {
		opts.PageSize = 12
	}
	if opts.Scope == "" {
		opts.Scope = "generated"
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 40

	pg := paginator.New()
	pg.Type = paginator.Arabic
	pg.PerPage = opts.PageSize

	ctx, cancel := context.WithCancel(context.Background())

	return Model{
		state:       StateLoading,
		gallery:     opts.Gallery,
		urlFor:      opts.URLFor,
		scope:       opts.Scope,
		pageSize:    opts.PageSize,
		viewer:      viewer.New(nil),
		pages:       pg,
		spinner:     sp,
		progress:    prog,
		help:        help.New(),
		keys:        defaultKeyMap(),
		downloading: make(map[string]bool),
		transfer:    -1,
		ctx:         ctx,
		cancel:      cancel,
		events:      make(chan tea.Msg, 64),
	}
}

// WithDownloader returns m with d attached.
func (m Model) WithDownloader(d Downloader) Model {
	m.downloader = d
	return m
}

// OnProgress forwards pipeline progress events into the UI.
func (m Model) OnProgress(event download.ProgressEvent) {
	m.send(ProgressMsg{Event: event})
}

// OnBytes forwards streamed byte counts into the UI.
func (m Model) OnBytes(jobID string, read, total int64) {
	select {
	case m.events <- BytesMsg{JobID: jobID, Read: read, Total: total}:
	default: // byte updates are lossy
	}
}

func (m Model) send(msg tea.Msg) {
	select {
	case m.events <- msg:
	case <-m.ctx.Done():
	}
}

// Message types
type (
	// GalleryMsg carries the result of a fetch or reload.
	GalleryMsg struct {
		Items []model.MediaItem
		Err   error
	}

	// ProgressMsg is sent when download progress updates.
	ProgressMsg struct {
		Event download.ProgressEvent
	}

	// BytesMsg reports streamed bytes for a job.
	BytesMsg struct {
		JobID string
		Read  int64
		Total int64
	}

	// DownloadDoneMsg is sent when a download reaches a terminal state.
	DownloadDoneMsg struct {
		URL string
		Job *download.Job
		Err error
	}
)

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.fetch(false), m.waitForEvent())
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.progress.Width = msg.Width - 20
		if m.progress.Width > 80 {
			m.progress.Width = 80
		}
		if m.progress.Width < 20 {
			m.progress.Width = 20
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case GalleryMsg:
		if msg.Err != nil {
			m.err = msg.Err
			m.state = StateError
			m.viewer.Close()
			return m, nil
		}
		m.err = nil
		m.setItems(msg.Items)
		if m.state == StateLoading || m.state == StateError {
			m.state = StateGrid
		}
		if m.state == StateViewer && !m.viewer.IsOpen() {
			m.state = m.back
		}

	case ProgressMsg:
		if msg.Event.Level != download.LevelVerbose || m.verbose {
			m.log(msg.Event.Message, msg.Event.Level)
		}
		cmds = append(cmds, m.waitForEvent())

	case BytesMsg:
		if len(m.downloading) > 0 {
			m.transfer = fraction(msg.Read, msg.Total)
			if m.transfer >= 0 {
				cmds = append(cmds, m.progress.SetPercent(m.transfer))
			}
		}
		cmds = append(cmds, m.waitForEvent())

	case DownloadDoneMsg:
		// Terminal either way; never leave a stale indicator behind.
		delete(m.downloading, msg.URL)
		if len(m.downloading) == 0 {
			m.transfer = -1
		}
		if msg.Err != nil && m.ctx.Err() == nil {
			m.log(msg.Err.Error(), download.LevelError)
		}

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.cancel()
		return m, tea.Quit
	}

	// Viewer bindings only match while an item is open.
	if m.state == StateViewer {
		if m.viewer.HandleKey(msg) {
			if !m.viewer.IsOpen() {
				m.state = m.back
			}
			return m, nil
		}
		switch {
		case key.Matches(msg, m.keys.Download):
			if item, ok := m.viewer.Current(); ok {
				return m, m.download(item)
			}
		case key.Matches(msg, m.keys.Quit):
			m.cancel()
			return m, tea.Quit
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.cancel()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Verbose):
		m.verbose = !m.verbose

	case key.Matches(msg, m.keys.Reload):
		if m.state != StateLoading {
			return m, tea.Batch(m.fetch(true), m.spinner.Tick)
		}

	case m.state == StateGrid:
		return m.handleGridKey(msg)

	case m.state == StateFullList:
		return m.handleListKey(msg)
	}
	return m, nil
}

func (m Model) handleGridKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	shown, more := viewer.Limit(m.items, m.pageSize)
	cols := m.columns()

	switch {
	case key.Matches(msg, m.keys.Left):
		m.cursor = clamp(m.cursor-1, len(shown))
	case key.Matches(msg, m.keys.Right):
		m.cursor = clamp(m.cursor+1, len(shown))
	case key.Matches(msg, m.keys.Up):
		m.cursor = clamp(m.cursor-cols, len(shown))
	case key.Matches(msg, m.keys.Down):
		m.cursor = clamp(m.cursor+cols, len(shown))
	case key.Matches(msg, m.keys.Open):
		m.open(m.cursor, StateGrid)
	case key.Matches(msg, m.keys.Download):
		if m.cursor < len(shown) {
			return m, m.download(shown[m.cursor])
		}
	case key.Matches(msg, m.keys.More):
		if more {
			m.state = StateFullList
			m.pages.Page = 0
			m.cursor = 0
		}
	}
	return m, nil
}

// pageBounds is the slice of items shown on the current full-list page.
func (m Model) pageBounds() (int, int) {
	return viewer.PageBounds(len(m.items), m.pages.Page, m.pages.PerPage)
}

func (m Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	start, end := m.pageBounds()

	switch {
	case key.Matches(msg, m.keys.Back):
		m.state = StateGrid
		m.cursor = 0
		return m, nil
	case key.Matches(msg, m.keys.Up):
		m.cursor = clamp(m.cursor-1, end-start)
	case key.Matches(msg, m.keys.Down):
		m.cursor = clamp(m.cursor+1, end-start)
	case key.Matches(msg, m.keys.Open):
		m.open(start+m.cursor, StateFullList)
	case key.Matches(msg, m.keys.Download):
		if start+m.cursor < end {
			return m, m.download(m.items[start+m.cursor])
		}
	default:
		page := m.pages.Page
		var cmd tea.Cmd
		m.pages, cmd = m.pages.Update(msg)
		if m.pages.Page != page {
			m.cursor = 0
		}
		return m, cmd
	}
	return m, nil
}

func (m *Model) open(index int, from State) {
	if m.viewer.OpenAt(index) {
		m.back = from
		m.state = StateViewer
	}
}

func (m *Model) setItems(items []model.MediaItem) {
	m.items = items
	m.viewer.SetItems(items)
	m.pages.SetTotalPages(len(items))
	if m.pages.Page >= m.pages.TotalPages {
		m.pages.Page = 0
	}
	m.cursor = clamp(m.cursor, len(items))
}

func (m *Model) log(message string, level download.ProgressLevel) {
	m.logs = append(m.logs, LogEntry{Message: message, Level: level})
	// Keep only last 8 logs
	if len(m.logs) > 8 {
		m.logs = m.logs[len(m.logs)-8:]
	}
}

func (m Model) columns() int {
	cols := (m.width - 2) / (cellWidth + 2)
	if cols < 1 {
		cols = 1
	}
	if cols > 4 {
		cols = 4
	}
	return cols
}

// fetch loads the gallery; force drops the cached snapshot first.
func (m Model) fetch(force bool) tea.Cmd {
	ctx, gallery, scope := m.ctx, m.gallery, m.scope
	return func() tea.Msg {
		if gallery == nil {
			return GalleryMsg{Err: fmt.Errorf("no gallery source configured")}
		}
		var items []model.MediaItem
		var err error
		if force {
			items, err = gallery.Reload(ctx, scope)
		} else {
			items, err = gallery.Fetch(ctx, scope, false)
		}
		return GalleryMsg{Items: items, Err: err}
	}
}

// download starts a job for item unless one is already running for its URL.
func (m Model) download(item model.MediaItem) tea.Cmd {
	if m.downloader == nil || !item.HasURL() {
		return nil
	}
	if m.downloading[item.ResolvedURL] || m.downloader.InFlight(item.ResolvedURL) {
		return nil
	}
	m.downloading[item.ResolvedURL] = true

	ctx, d, urlFor := m.ctx, m.downloader, m.urlFor
	itemURL := item.ResolvedURL
	return func() tea.Msg {
		target := item.ResolvedURL
		if urlFor != nil {
			if u, err := urlFor(ctx, item); err == nil && u != "" {
				target = u
			}
		}
		job, err := d.Download(ctx, target, "")
		return DownloadDoneMsg{URL: itemURL, Job: job, Err: err}
	}
}

func (m Model) waitForEvent() tea.Cmd {
	events, ctx := m.events, m.ctx
	return func() tea.Msg {
		select {
		case msg := <-events:
			return msg
		case <-ctx.Done():
			return nil
		}
	}
}

func clamp(i, n int) int {
	if n <= 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func fraction(read, total int64) float64 {
	if total <= 0 {
		return -1
	}
	f := float64(read) / float64(total)
	if f > 1 {
		f = 1
	}
	return f
}

// Run starts the TUI application. The downloader is built by newDownloader
// so it can report progress into the program.
func Run(opts Options, newDownloader func(onProgress func(download.ProgressEvent), onBytes func(string, int64, int64)) Downloader) error {
	m := NewModel(opts)
	if newDownloader != nil {
		m = m.WithDownloader(newDownloader(m.OnProgress, m.OnBytes))
	}
	defer m.cancel()

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
