package fscms

import (
	"context"
	"fmt"

	"github.com/aweris/fscms/internal/codec"
	"github.com/aweris/fscms/internal/metadata"
)

// Filter selects posts by field equality. Values are compared after JSON
// normalization, so 1, int64(1) and json.Number("1") are the same value.
type Filter map[string]any

// indexed reports the fields of f that can be answered from the posts index.
func (f Filter) indexed() map[string]any {
	out := make(map[string]any)
	for _, name := range []string{FieldType, FieldStatus, FieldLanguage} {
		if v, ok := f[name]; ok {
			out[name] = v
		}
	}
	return out
}

// Match reports whether p carries every field of f with an equal value.
// A post lacking a filtered field does not match.
func (f Filter) Match(p Post) bool {
	for name, want := range f {
		got, ok := p.Get(name)
		if !ok || !codec.Equal(got, want) {
			return false
		}
	}
	return true
}

func entryMatches(e metadata.Entry, want map[string]any) bool {
	for name, v := range want {
		var got string
		switch name {
		case FieldType:
			got = e.Type
		case FieldStatus:
			got = e.Status
		case FieldLanguage:
			got = e.Language
		}
		if !codec.Equal(got, v) {
			return false
		}
	}
	return true
}

// ListPosts returns the posts matching every field of filter, keyed by id.
//
// Type, status and language are matched against the posts index only; the
// surviving documents are read and checked for the remaining fields. Index entries whose document is gone are skipped.
// An empty filter lists every post.
func (r *Repository) ListPosts(ctx context.Context, filter Filter) (map[int64]Post, error) {
	want := filter.indexed()
	if len(want) == 0 {
		posts, err := r.ListByType(ctx, "")
		if err != nil {
			return nil, err
		}
		for id, p := range posts {
			if !filter.Match(p) {
				delete(posts, id)
			}
		}
		return posts, nil
	}

	if err := r.idx.EnsurePosts(ctx); err != nil {
		return nil, err
	}

	// fields answered by the index are not checked again on the document
	rest := make(Filter, len(filter))
	for name, v := range filter {
		if _, ok := want[name]; !ok {
			rest[name] = v
		}
	}

	posts := make(map[int64]Post)
	for id, e := range r.idx.Entries() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !entryMatches(e, want) {
			continue
		}

		p, err := r.contents.Read(ctx, e.Type, id)
		if err != nil {
			return nil, fmt.Errorf("list posts: %w", err)
		}
		if p.IsZero() {
			r.log.Warn().Int64("id", id).Str("type", e.Type).Msg("skipping stale index entry")
			continue
		}
		if rest.Match(p) {
			posts[id] = p
		}
	}
	return posts, nil
}
