package viewer

import "github.com/handiism/mediavault/internal/model"

// Limit returns the first n items for the grid and whether more exist.
// The remainder is reached through the full-list view, never by growing
// the grid.
func Limit(items []model.MediaItem, n int) ([]model.MediaItem, bool) {
	if n <= 0 {
		return nil, len(items) > 0
	}
	if len(items) <= n {
		return items, false
	}
	return items[:n], true
}

// PageBounds returns the [start, end) slice bounds of page (0-based) for
// pages of size perPage, clamped to the list length.
func PageBounds(total, page, perPage int) (int, int) {
	if perPage <= 0 || total <= 0 || page < 0 {
		return 0, 0
	}
	start := page * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}
	return start, end
}
