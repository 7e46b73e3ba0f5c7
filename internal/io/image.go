package ioutils

import (
	"bytes"
	"context"
	"image"
	_ "image/gif" // GIF decoder registration
	"image/jpeg"
	_ "image/png" // PNG decoder registration
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // WebP decoder registration
)

// ImageService provides image processing operations for downloaded media.
//
// It is used to produce small JPEG previews next to downloaded images so a
// file manager can show them without decoding the full original.
type ImageService struct {
	quality int
}

// NewImageService creates a new ImageService.
func NewImageService() *ImageService {
	return &ImageService{quality: 85}
}

// ThumbnailPath returns where the thumbnail for src is written.
//
//	ThumbnailPath("/dl/photo.png") // "/dl/photo.thumb.jpg"
func ThumbnailPath(src string) string {
	ext := filepath.Ext(src)
	return strings.TrimSuffix(src, ext) + ".thumb.jpg"
}

// WriteThumbnail decodes the image at src and writes a JPEG thumbnail that
// fits within maxSize x maxSize. Returns the thumbnail path.
func (s *ImageService) WriteThumbnail(ctx context.Context, src string, maxSize int) (string, error) {
	data, err := os.ReadFile(src)
	if err != nil {
		return "", err
	}
	thumb, err := s.ResizeImage(ctx, data, maxSize, maxSize)
	if err != nil {
		return "", err
	}
	dst := ThumbnailPath(src)
	if err := WriteFile(ctx, dst, thumb); err != nil {
		return "", err
	}
	return dst, nil
}

// ResizeImage resizes an image to fit within the specified maximum dimensions.
//
// The aspect ratio is preserved. Images already smaller than the maximum
// dimensions keep their size but are still re-encoded as JPEG.
//
// The Catmull-Rom algorithm is used for high-quality resizing.
//
// Example:
//
//	// A 1500x1000 image becomes 320x213
//	resized, err := svc.ResizeImage(ctx, imageData, 320, 320)
func (s *ImageService) ResizeImage(ctx context.Context, data []byte, maxWidth, maxHeight int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if width > maxWidth || height > maxHeight {
		ratio := float64(width) / float64(height)
		if float64(maxWidth)/float64(maxHeight) > ratio {
			width = int(float64(maxHeight) * ratio)
			height = maxHeight
		} else {
			height = int(float64(maxWidth) / ratio)
			width = maxWidth
		}
	}
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: s.quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
