// Package cache implements the two client-side caches of mediavault.
//
// # Presigned URL Cache
//
// URLCache maps a resource id to a short-lived URL with an expiry. Lookups of
// missing or expired entries are misses; misses never write anything back.
//
//	urls := cache.NewURLCache(store, "url-cache", 6*time.Hour)
//	urls.Put(ctx, "42", "https://bucket.example/42.png?X-Amz-Signature=...")
//	if u, ok := urls.Get(ctx, "42"); ok { ... }
//
// # Gallery Cache
//
// GalleryCache stores one normalized item list per gallery scope with its own
// TTL and can be invalidated explicitly.
//
// # Failure Semantics
//
// Both caches are an optimization only. Storage failures (unwritable state
// dir, corrupt JSON, closed database) are logged and swallowed: the cache then
// behaves as if it were always empty.
package cache
