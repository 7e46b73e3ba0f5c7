// Package gallery retrieves a user's media collection from the backend.
//
// A Fetcher reads through a cache.GalleryCache: a valid snapshot is returned
// without a network call, otherwise one request is made, every record is
// normalized through the resolver (records without a URL are kept), and the
// list is written back with a fresh TTL. Failed requests return an error and
// never fall back to a stale snapshot.
//
// Concurrent refreshes of the same scope share a single backend request.
//
//	f := gallery.NewFetcher(gallery.Options{
//	    Endpoint: settings.GalleryURL(),
//	    Tokens:   auth.FileToken{Path: settings.TokenPath},
//	    Gallery:  galleryCache,
//	    URLs:     urlCache,
//	})
//
//	items, err := f.Fetch(ctx, "generated", false)
//	items, err = f.Reload(ctx, "generated")
package gallery
