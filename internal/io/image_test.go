package ioutils

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestResizeImage_PreservesAspectRatio(t *testing.T) {
	svc := NewImageService()

	out, err := svc.ResizeImage(context.Background(), encodePNG(t, 300, 200), 150, 150)
	require.NoError(t, err)

	img, format, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 150, img.Bounds().Dx())
	assert.Equal(t, 100, img.Bounds().Dy())
}

func TestResizeImage_InvalidData(t *testing.T) {
	_, err := NewImageService().ResizeImage(context.Background(), []byte("not an image"), 10, 10)
	assert.Error(t, err)
}

func TestWriteThumbnail(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "photo.png")
	require.NoError(t, os.WriteFile(src, encodePNG(t, 64, 32), 0644))

	thumb, err := NewImageService().WriteThumbnail(context.Background(), src, 16)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "photo.thumb.jpg"), thumb)

	_, err = os.Stat(thumb)
	assert.NoError(t, err)
}
