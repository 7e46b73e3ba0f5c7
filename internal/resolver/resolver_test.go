package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handiism/mediavault/internal/model"
)

func TestResolve_Scenarios(t *testing.T) {
	tests := []struct {
		name   string
		input  any
		want   string
		wantOK bool
	}{
		{"gallery path", map[string]any{"s3_path_gallery": "https://cdn/x.png"}, "https://cdn/x.png", true},
		{"nested attributes", map[string]any{"attributes": map[string]any{"url": "https://cdn/y.mp4"}}, "https://cdn/y.mp4", true},
		{"empty record", map[string]any{}, "", false},
		{"nil", nil, "", false},
		{"string input", "https://cdn/x.png", "", false},
		{"array input", []any{map[string]any{"url": "https://cdn/x.png"}}, "", false},
		{"empty string skipped", map[string]any{"s3_path": "", "url": "https://cdn/u.png"}, "https://cdn/u.png", true},
		{"whitespace skipped", map[string]any{"s3_path": "  ", "file": "https://cdn/f.png"}, "https://cdn/f.png", true},
		{"only blank values", map[string]any{"url": " \t", "attributes": map[string]any{"path": "\n"}}, "", false},
		{"non-string skipped", map[string]any{"url": 42, "path": "https://cdn/p.png"}, "https://cdn/p.png", true},
		{"data wrapper", map[string]any{"data": map[string]any{"image_url": "https://cdn/d.png"}}, "https://cdn/d.png", true},
		{"data then attributes", map[string]any{"data": map[string]any{"attributes": map[string]any{"path": "https://cdn/da.png"}}}, "https://cdn/da.png", true},
		{"model record", model.MediaRecord{"signed_url": "https://cdn/s.png"}, "https://cdn/s.png", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Resolve(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_SingleAlias(t *testing.T) {
	for _, alias := range DefaultAliases {
		t.Run(alias, func(t *testing.T) {
			got, ok := Resolve(map[string]any{alias: "https://cdn/" + alias})
			require.True(t, ok)
			assert.Equal(t, "https://cdn/"+alias, got)
		})
	}
}

func TestResolve_PriorityOrder(t *testing.T) {
	// Build the record with every alias populated; the first alias must win
	// no matter how often the map is iterated.
	rec := map[string]any{}
	for _, alias := range DefaultAliases {
		rec[alias] = "https://cdn/" + alias
	}
	for i := 0; i < 50; i++ {
		got, ok := Resolve(rec)
		require.True(t, ok)
		assert.Equal(t, "https://cdn/"+DefaultAliases[0], got)
	}

	// Dropping aliases from the front promotes the next one.
	for i, alias := range DefaultAliases[:len(DefaultAliases)-1] {
		delete(rec, alias)
		got, ok := Resolve(rec)
		require.True(t, ok)
		assert.Equal(t, "https://cdn/"+DefaultAliases[i+1], got)
	}
}

func TestResolve_DirectBeatsNested(t *testing.T) {
	rec := map[string]any{
		"presignedUrl": "https://cdn/direct.png",
		"attributes":   map[string]any{"s3_path_gallery": "https://cdn/attr.png"},
		"data":         map[string]any{"s3_path_gallery": "https://cdn/data.png"},
	}
	url, kind, ok := Default.ResolveWith(rec)
	require.True(t, ok)
	assert.Equal(t, "https://cdn/direct.png", url)
	assert.Equal(t, ExtractDirect, kind)

	delete(rec, "presignedUrl")
	url, kind, ok = Default.ResolveWith(rec)
	require.True(t, ok)
	assert.Equal(t, "https://cdn/attr.png", url)
	assert.Equal(t, ExtractAttributes, kind)

	delete(rec, "attributes")
	url, kind, ok = Default.ResolveWith(rec)
	require.True(t, ok)
	assert.Equal(t, "https://cdn/data.png", url)
	assert.Equal(t, ExtractData, kind)
}

func TestResolve_AttributesAreNotRecursive(t *testing.T) {
	rec := map[string]any{
		"attributes": map[string]any{
			"attributes": map[string]any{"url": "https://cdn/deep.png"},
		},
	}
	_, ok := Resolve(rec)
	assert.False(t, ok)
}

func TestResolve_DataDepthIsBounded(t *testing.T) {
	rec := map[string]any{
		"data": map[string]any{
			"data": map[string]any{"url": "https://cdn/too-deep.png"},
		},
	}
	_, ok := Resolve(rec)
	assert.False(t, ok)

	// A self-referencing record must terminate.
	self := map[string]any{}
	self["data"] = self
	_, ok = Resolve(self)
	assert.False(t, ok)
}

func TestNew_CustomAliases(t *testing.T) {
	r := New([]string{"thumb", "url"})
	got, ok := r.Resolve(map[string]any{"url": "https://cdn/u.png", "thumb": "https://cdn/t.png"})
	require.True(t, ok)
	assert.Equal(t, "https://cdn/t.png", got)

	_, ok = r.Resolve(map[string]any{"s3_path_gallery": "https://cdn/x.png"})
	assert.False(t, ok)
}
