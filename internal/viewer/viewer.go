// Package viewer holds the navigation state behind the gallery viewer: an
// ordered item list, the currently open item, clamped prev/next movement
// and the key bindings that drive it.
//
// Viewer carries no rendering; the TUI draws whatever Current returns.
package viewer

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/handiism/mediavault/internal/model"
)

// KeyMap defines the viewer key bindings.
type KeyMap struct {
	Prev  key.Binding
	Next  key.Binding
	Close key.Binding
}

// DefaultKeyMap returns the default bindings, disabled until a viewer opens.
func DefaultKeyMap() KeyMap {
	km := KeyMap{
		Prev: key.NewBinding(
			key.WithKeys("left"),
			key.WithHelp("←", "previous"),
		),
		Next: key.NewBinding(
			key.WithKeys("right"),
			key.WithHelp("→", "next"),
		),
		Close: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "close"),
		),
	}
	km.setEnabled(false)
	return km
}

func (k *KeyMap) setEnabled(on bool) {
	k.Prev.SetEnabled(on)
	k.Next.SetEnabled(on)
	k.Close.SetEnabled(on)
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Prev, k.Next, k.Close}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

// Viewer tracks an open item within a list it does not own.
type Viewer struct {
	items []model.MediaItem
	index int
	Keys  KeyMap
}

// New returns a closed viewer over items.
func New(items []model.MediaItem) *Viewer {
	return &Viewer{items: items, index: -1, Keys: DefaultKeyMap()}
}

// Items returns the list the viewer navigates.
func (v *Viewer) Items() []model.MediaItem { return v.items }

// Len returns the number of items.
func (v *Viewer) Len() int { return len(v.items) }

// SetItems swaps the backing list. An open item stays open if it is still
// present, otherwise the viewer closes.
func (v *Viewer) SetItems(items []model.MediaItem) {
	var current model.MediaItem
	wasOpen := v.IsOpen()
	if wasOpen {
		current = v.items[v.index]
	}
	v.items = items
	if !wasOpen {
		return
	}
	if i := IndexOf(items, current); i >= 0 {
		v.index = i
		return
	}
	v.Close()
}

// IndexOf returns the position of item in the viewer's list, or -1.
func (v *Viewer) IndexOf(item model.MediaItem) int {
	return IndexOf(v.items, item)
}

// IndexOf returns the position of item in items, or -1.
//
// When both sides carry an id they match on id alone; otherwise they match
// on a non-empty resolved URL.
func IndexOf(items []model.MediaItem, item model.MediaItem) int {
	for i, candidate := range items {
		if same(candidate, item) {
			return i
		}
	}
	return -1
}

func same(a, b model.MediaItem) bool {
	if a.ID != "" && b.ID != "" {
		return a.ID == b.ID
	}
	return a.ResolvedURL != "" && a.ResolvedURL == b.ResolvedURL
}

// Open opens item. It returns false, leaving the viewer unchanged, when the
// item is not in the list.
func (v *Viewer) Open(item model.MediaItem) bool {
	return v.OpenAt(v.IndexOf(item))
}

// OpenAt opens the item at index i.
func (v *Viewer) OpenAt(i int) bool {
	if i < 0 || i >= len(v.items) {
		return false
	}
	v.index = i
	v.Keys.setEnabled(true)
	return true
}

// Close closes the viewer and disables its key bindings.
func (v *Viewer) Close() {
	v.index = -1
	v.Keys.setEnabled(false)
}

// IsOpen reports whether an item is open.
func (v *Viewer) IsOpen() bool {
	return v.index >= 0 && v.index < len(v.items)
}

// Index returns the open position, or -1 when closed.
func (v *Viewer) Index() int {
	if !v.IsOpen() {
		return -1
	}
	return v.index
}

// Current returns the open item.
func (v *Viewer) Current() (model.MediaItem, bool) {
	if !v.IsOpen() {
		return model.MediaItem{}, false
	}
	return v.items[v.index], true
}

// Prev moves to the previous item. At the first item it does nothing.
// Reports whether the position changed.
func (v *Viewer) Prev() bool {
	if !v.IsOpen() || v.index == 0 {
		return false
	}
	v.index--
	return true
}

// Next moves to the next item. At the last item it does nothing.
func (v *Viewer) Next() bool {
	if !v.IsOpen() || v.index == len(v.items)-1 {
		return false
	}
	v.index++
	return true
}

// HandleKey applies a key press. Keys are ignored while the viewer is
// closed; the return value reports whether the key was consumed.
func (v *Viewer) HandleKey(msg tea.KeyMsg) bool {
	if !v.IsOpen() {
		return false
	}
	switch {
	case key.Matches(msg, v.Keys.Prev):
		v.Prev()
	case key.Matches(msg, v.Keys.Next):
		v.Next()
	case key.Matches(msg, v.Keys.Close):
		v.Close()
	default:
		return false
	}
	return true
}

// Position returns a 1-based "i / n" label for the open item.
func (v *Viewer) Position() (int, int) {
	return v.Index() + 1, len(v.items)
}
