// Package ioutils provides file system and image processing utilities.
//
// This package contains functions for:
//   - Atomic writes for persisted state
//   - Materializing downloads (part file, then rename into place)
//   - Filename sanitization for cross-platform compatibility
//   - Thumbnail generation for downloaded images
//
// # File Operations
//
//	// Write state atomically
//	err := ioutils.WriteFile(ctx, "/state/gallery.json", data)
//
//	// Stream a response body into the downloads folder
//	path, n, err := ioutils.Materialize(ctx, "/home/me/Downloads", "photo.png", resp.Body)
//
// # Filename Sanitization
//
// Use SanitizeFileName to remove invalid characters from filenames:
//
//	safe := ioutils.SanitizeFileName("Photo: Part 1/2") // Returns "Photo_ Part 1_2"
//
// # Image Processing
//
// The ImageService writes JPEG thumbnails next to downloaded images:
//
//	svc := ioutils.NewImageService()
//	thumbPath, err := svc.WriteThumbnail(ctx, "/home/me/Downloads/photo.png", 320)
package ioutils
