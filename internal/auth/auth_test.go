package auth

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripBearer(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"abc", "abc"},
		{"bearer abc", "abc"},
		{"Bearer abc", "abc"},
		{"BEARER abc", "abc"},
		{"Bearer bearer abc", "abc"},
		{"  Bearer   abc  ", "abc"},
		{"bearerabc", "bearerabc"},
		{"", ""},
		{"Bearer ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, StripBearer(tt.input))
		})
	}
}

func TestHeader(t *testing.T) {
	assert.Equal(t, "bearer abc", Header("Bearer abc"))
	assert.Equal(t, "bearer abc", Header("abc"))
	assert.Equal(t, "", Header("bearer "))
}

func TestFileToken(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "token")

	tok, err := FileToken{Path: path}.Token(ctx)
	require.NoError(t, err)
	assert.Empty(t, tok)

	require.NoError(t, os.WriteFile(path, []byte("Bearer xyz\n"), 0600))
	tok, err = FileToken{Path: path}.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Bearer xyz", tok)
	assert.Equal(t, "bearer xyz", HeaderFrom(ctx, FileToken{Path: path}))
}

func TestEnvToken(t *testing.T) {
	ctx := context.Background()
	src := EnvToken{Var: "MEDIAVAULT_TEST_TOKEN", Fallback: StaticToken("fallback")}

	assert.Equal(t, "bearer fallback", HeaderFrom(ctx, src))

	t.Setenv("MEDIAVAULT_TEST_TOKEN", "from-env")
	assert.Equal(t, "bearer from-env", HeaderFrom(ctx, src))
}

func TestHeaderFrom_NilSource(t *testing.T) {
	assert.Empty(t, HeaderFrom(context.Background(), nil))
}

func TestOriginPolicy(t *testing.T) {
	p := NewOriginPolicy("https://app.example.com/gallery", "https://api.example.com:443/v1", "")

	tests := []struct {
		target string
		want   bool
	}{
		{"https://app.example.com/anything", true},
		{"https://API.example.com/api/download/proxy?url=x", true},
		{"https://api.example.com:8443/", false},
		{"http://api.example.com/", false},
		{"https://bucket.s3.amazonaws.com/x.png?X-Amz-Signature=1", false},
		{"not a url", false},
		{"/relative/path", false},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Allows(tt.target))
		})
	}
}
