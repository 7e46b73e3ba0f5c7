// Package resolver extracts the best available media URL from gallery
// records whose field names are not fixed.
//
// Resolution runs a fixed list of extractors in order:
//
//  1. direct: the record's own fields, scanned in alias priority order
//  2. attributes: the same scan against a nested "attributes" object
//  3. data: a full resolution of a nested "data" object, one level deep
//
// The first non-blank string wins. A value that is empty or only whitespace
// is treated as a missing field, so the scan moves on to the next alias.
// Resolve never panics and returns false for anything that is not a JSON
// object.
package resolver

import (
	"github.com/handiism/mediavault/internal/model"
)

// DefaultAliases lists URL-bearing field names, most specific first.
var DefaultAliases = []string{
	"s3_path_gallery",
	"gallery_path",
	"galleryUrl",
	"s3_path",
	"s3_url",
	"image_url",
	"imageUrl",
	"video_url",
	"videoUrl",
	"url",
	"path",
	"file",
	"image",
	"signed_url",
	"signedUrl",
	"presigned_url",
	"presignedUrl",
}

// maxDataDepth bounds recursion through nested "data" wrappers.
const maxDataDepth = 1

// ExtractorKind tags an extractor variant.
type ExtractorKind string

const (
	ExtractDirect     ExtractorKind = "direct"
	ExtractAttributes ExtractorKind = "attributes"
	ExtractData       ExtractorKind = "data"
)

// Extractor is one step of the resolution chain.
type Extractor struct {
	Kind    ExtractorKind
	extract func(r *Resolver, rec model.MediaRecord, depth int) (string, bool)
}

// Resolver resolves MediaRecords to URLs. The zero value is not usable; use New.
type Resolver struct {
	aliases    []string
	extractors []Extractor
}

// New creates a Resolver with the given alias priority list. A nil or empty
// list selects DefaultAliases.
func New(aliases []string) *Resolver {
	if len(aliases) == 0 {
		aliases = DefaultAliases
	}
	return &Resolver{
		aliases: append([]string(nil), aliases...),
		extractors: []Extractor{
			{Kind: ExtractDirect, extract: extractDirect},
			{Kind: ExtractAttributes, extract: extractAttributes},
			{Kind: ExtractData, extract: extractData},
		},
	}
}

// Default is the resolver used by the package-level Resolve.
var Default = New(nil)

// Resolve resolves v with the Default resolver.
func Resolve(v any) (string, bool) {
	return Default.Resolve(v)
}

// Resolve returns the first URL found in v according to the extractor order.
func (r *Resolver) Resolve(v any) (string, bool) {
	url, _, ok := r.ResolveWith(v)
	return url, ok
}

// ResolveWith is Resolve that also reports which extractor matched.
func (r *Resolver) ResolveWith(v any) (string, ExtractorKind, bool) {
	rec, ok := model.AsRecord(v)
	if !ok {
		return "", "", false
	}
	return r.resolve(rec, 0)
}

func (r *Resolver) resolve(rec model.MediaRecord, depth int) (string, ExtractorKind, bool) {
	for _, ex := range r.extractors {
		if url, ok := ex.extract(r, rec, depth); ok {
			return url, ex.Kind, true
		}
	}
	return "", "", false
}

func (r *Resolver) scan(rec model.MediaRecord) (string, bool) {
	for _, alias := range r.aliases {
		if s, ok := rec.String(alias); ok {
			return s, true
		}
	}
	return "", false
}

func extractDirect(r *Resolver, rec model.MediaRecord, _ int) (string, bool) {
	return r.scan(rec)
}

func extractAttributes(r *Resolver, rec model.MediaRecord, _ int) (string, bool) {
	attrs, ok := rec.Object("attributes")
	if !ok {
		return "", false
	}
	return r.scan(attrs)
}

func extractData(r *Resolver, rec model.MediaRecord, depth int) (string, bool) {
	if depth >= maxDataDepth {
		return "", false
	}
	data, ok := rec.Object("data")
	if !ok {
		return "", false
	}
	url, _, ok := r.resolve(data, depth+1)
	return url, ok
}
