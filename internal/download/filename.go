package download

import (
	"mime"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	ioutils "github.com/handiism/mediavault/internal/io"
	"github.com/handiism/mediavault/internal/model"
)

const fallbackStem = "download"

// Loose match for malformed headers mime.ParseMediaType rejects, such as
// unquoted names containing spaces.
var dispositionName = regexp.MustCompile(`(?i)filename\s*=\s*"?([^";]+)"?`)

// ResolveFilename picks the local file name for a completed fetch of rawURL.
//
// Order:
//  1. Content-Disposition filename* or filename
//  2. the last URL path segment, if it contains a dot
//  3. download.<ext>, with ext sniffed from the URL, or "bin"
func ResolveFilename(header http.Header, rawURL string) string {
	if header != nil {
		if name := DispositionFilename(header.Get("Content-Disposition")); name != "" {
			return name
		}
	}
	return FilenameFromURL(rawURL)
}

// FilenameFromURL applies steps 2 and 3 of ResolveFilename.
func FilenameFromURL(rawURL string) string {
	base := model.URLBaseName(rawURL)
	if unescaped, err := url.PathUnescape(base); err == nil {
		base = unescaped
	}
	if strings.Contains(base, ".") {
		if name := ioutils.SanitizeFileName(base); name != "" && strings.Trim(name, ".") != "" {
			return name
		}
	}
	ext := model.MediaExtension(rawURL)
	if ext == "" {
		ext = "bin"
	}
	return fallbackStem + "." + ext
}

// DispositionFilename extracts and sanitizes the file name carried by a
// Content-Disposition header value. filename* (RFC 5987) wins over filename.
func DispositionFilename(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}

	var name string
	if _, params, err := mime.ParseMediaType(value); err == nil {
		// ParseMediaType decodes filename* and stores it under "filename".
		name = params["filename"]
	} else if m := dispositionName.FindStringSubmatch(value); m != nil {
		name = m[1]
		if decoded, err := url.QueryUnescape(name); err == nil {
			name = decoded
		}
	}

	// Never let a header choose a directory.
	name = strings.ReplaceAll(name, "\\", "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return ioutils.SanitizeFileName(name)
}
