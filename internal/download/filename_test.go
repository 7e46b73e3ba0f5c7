package download

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveFilename(t *testing.T) {
	tests := []struct {
		name        string
		disposition string
		url         string
		want        string
	}{
		{"header filename", `attachment; filename="photo.png"`, "https://cdn/a/b/c.jpg", "photo.png"},
		{"header filename star", `attachment; filename*=UTF-8''na%C3%AFve%20pic.png`, "https://cdn/x", "naïve pic.png"},
		{"star wins over plain", `attachment; filename="plain.png"; filename*=UTF-8''fancy.png`, "https://cdn/x", "fancy.png"},
		{"malformed header", `attachment; filename=my photo.png`, "https://cdn/x", "my photo.png"},
		{"header path stripped", `attachment; filename="../../etc/passwd"`, "https://cdn/x", "passwd"},
		{"url segment", "", "https://cdn/a/b/c.jpg?x=1", "c.jpg"},
		{"escaped url segment", "", "https://cdn/a/my%20clip.mp4", "my clip.mp4"},
		{"no extension", "", "https://cdn/a/b/render", "download.bin"},
		{"sniffed extension", "", "https://cdn/media/stream?file=clip.mp4", "download.mp4"},
		{"empty header value", "inline", "https://cdn/a/b/c.jpg", "c.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			if tt.disposition != "" {
				h.Set("Content-Disposition", tt.disposition)
			}
			assert.Equal(t, tt.want, ResolveFilename(h, tt.url))
		})
	}
}

func TestResolveFilename_NilHeader(t *testing.T) {
	assert.Equal(t, "download.bin", ResolveFilename(nil, "https://cdn/"))
}
