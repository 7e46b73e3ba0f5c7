// Package model defines the core data structures used throughout
// the mediavault application.
//
// # MediaRecord
//
// MediaRecord is the untrusted, loosely shaped object returned by the gallery
// backend. Field names vary between backend versions, so nothing in a record
// is assumed to exist:
//
//	rec := model.MediaRecord{"id": "42", "s3_path_gallery": "https://cdn/x.png"}
//
// # MediaItem
//
// MediaItem is the normalized form the rest of the application works with:
//
//	item := model.NewMediaItem(rec, "https://cdn/x.png")
//	fmt.Println(item.ID, item.Kind, item.ResolvedURL)
//
// Items without a resolvable URL are still valid; HasURL reports false and
// the UI renders a placeholder for them.
//
// # Kind Inference
//
// InferKind looks at a MIME/content-type field first and falls back to the
// URL extension. Anything ambiguous is treated as an image.
package model
