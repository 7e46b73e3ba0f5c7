package model

import (
	"encoding/json"
	"path"
	"regexp"
	"strconv"
	"strings"
)

// MediaKind classifies a media item for rendering.
type MediaKind string

const (
	// KindImage is the default for anything that is not clearly a video.
	KindImage MediaKind = "image"

	// KindVideo is used when the MIME type or the URL extension says so.
	KindVideo MediaKind = "video"
)

// MediaRecord is a raw gallery record as decoded from the backend JSON.
type MediaRecord map[string]any

// String returns the value of key if it is a string that is not blank.
// Whitespace-only values count as absent.
func (r MediaRecord) String(key string) (string, bool) {
	if r == nil {
		return "", false
	}
	s, ok := r[key].(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

// Object returns the nested object stored under key, if any.
func (r MediaRecord) Object(key string) (MediaRecord, bool) {
	if r == nil {
		return nil, false
	}
	switch v := r[key].(type) {
	case map[string]any:
		return MediaRecord(v), true
	case MediaRecord:
		return v, true
	}
	return nil, false
}

// AsRecord converts an arbitrary decoded JSON value into a MediaRecord.
// Anything that is not a JSON object yields false.
func AsRecord(v any) (MediaRecord, bool) {
	switch rec := v.(type) {
	case MediaRecord:
		return rec, rec != nil
	case map[string]any:
		return MediaRecord(rec), rec != nil
	}
	return nil, false
}

// MediaItem is a normalized gallery entry.
//
// ResolvedURL is empty when no URL could be extracted from the record; such
// items are kept so counts stay accurate and the UI can show a placeholder.
type MediaItem struct {
	ID          string      `json:"id,omitempty"`
	Kind        MediaKind   `json:"kind"`
	ResolvedURL string      `json:"resolved_url,omitempty"`
	Raw         MediaRecord `json:"raw,omitempty"`
}

// NewMediaItem builds a MediaItem from a record and its resolved URL.
func NewMediaItem(rec MediaRecord, resolvedURL string) MediaItem {
	return MediaItem{
		ID:          RecordID(rec),
		Kind:        InferKind(rec, resolvedURL),
		ResolvedURL: resolvedURL,
		Raw:         rec,
	}
}

// HasURL reports whether the item has a playable/downloadable URL.
func (m MediaItem) HasURL() bool {
	return m.ResolvedURL != ""
}

// Title returns a short human readable label for the item.
func (m MediaItem) Title() string {
	for _, key := range []string{"title", "name", "prompt", "filename"} {
		if s, ok := m.Raw.String(key); ok {
			return s
		}
	}
	if m.HasURL() {
		if name := URLBaseName(m.ResolvedURL); name != "" {
			return name
		}
	}
	if m.ID != "" {
		return m.ID
	}
	return "untitled"
}

var idKeys = []string{"id", "_id", "uuid", "media_id", "image_id", "key"}

// RecordID extracts the record identifier, accepting string and numeric ids.
func RecordID(rec MediaRecord) string {
	for _, key := range idKeys {
		switch v := rec[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case int:
			return strconv.Itoa(v)
		case int64:
			return strconv.FormatInt(v, 10)
		case json.Number:
			return v.String()
		}
	}
	return ""
}

var mimeKeys = []string{"mime", "mime_type", "mimeType", "content_type", "contentType", "media_type", "mediaType"}

var (
	videoExtPattern = regexp.MustCompile(`(?i)\.(mp4|webm|mov|m4v|mkv|avi|ogv)(?:[?#]|$)`)
	mediaExtPattern = regexp.MustCompile(`(?i)\.(png|jpe?g|gif|webp|bmp|svg|avif|heic|mp4|webm|mov|m4v|mkv|avi|ogv|mp3|wav|ogg)(?:[?#]|$)`)
)

// InferKind determines the media kind from a MIME field or the URL extension.
func InferKind(rec MediaRecord, resolvedURL string) MediaKind {
	for _, key := range mimeKeys {
		mime, ok := rec.String(key)
		if !ok {
			continue
		}
		mime = strings.ToLower(mime)
		switch {
		case strings.HasPrefix(mime, "video/"):
			return KindVideo
		case strings.HasPrefix(mime, "image/"):
			return KindImage
		}
	}
	if videoExtPattern.MatchString(resolvedURL) {
		return KindVideo
	}
	return KindImage
}

// MediaExtension returns the known media extension found in rawURL, lowercased
// and without the dot, or "" when none matches.
func MediaExtension(rawURL string) string {
	m := mediaExtPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return ""
	}
	return strings.ToLower(m[1])
}

// URLBaseName returns the last path segment of rawURL without query or fragment.
func URLBaseName(rawURL string) string {
	s := rawURL
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
		if j := strings.Index(s, "/"); j >= 0 {
			s = s[j:]
		} else {
			return ""
		}
	}
	base := path.Base(s)
	if base == "/" || base == "." {
		return ""
	}
	return base
}
