// Package metadata maintains the post index: a small summary of every document
// kept in memory and mirrored to JSON files under root/metadata.
//
// The index is a cache. RegeneratePosts rebuilds it from the documents at any time
// and must agree with the incremental Upsert/Remove path.
package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aweris/fscms/internal/codec"
	"github.com/aweris/fscms/internal/content"
	"github.com/aweris/fscms/internal/record"
)

// Index names with a fixed meaning. Any other file under metadata/ is loaded as-is.
const (
	PostsIndex    = "posts"
	SequenceIndex = "sequence"
)

const ext = ".json"

// Entry is the indexed projection of a post.
type Entry struct {
	ID        int64  `json:"id"`
	Type      string `json:"type"`
	Status    string `json:"status"`
	Published string `json:"published"`
	Language  string `json:"language"`
}

// EntryOf derives the index entry of p.
func EntryOf(p record.Post) Entry {
	return Entry{
		ID:        p.ID,
		Type:      p.Type,
		Status:    p.Status,
		Published: p.Published,
		Language:  p.Language,
	}
}

// Source lists every stored document. It is the ground truth used by RegeneratePosts.
type Source func(ctx context.Context) (map[int64]record.Post, error)

// Snapshot is a copy of all loaded indexes.
type Snapshot struct {
	Posts   map[int64]Entry
	Indexes map[string]json.RawMessage
}

// Index holds the posts index, the id high-water mark and any other index files.
type Index struct {
	dir string
	src Source
	log zerolog.Logger

	posts  map[int64]Entry // nil until loaded or regenerated
	issued int64
	extra  map[string]json.RawMessage
	dirty  bool
}

// New returns an empty, unloaded index for root/metadata.
func New(root string, src Source, log zerolog.Logger) *Index {
	return &Index{
		dir:   filepath.Join(root, "metadata"),
		src:   src,
		log:   log.With().Str("component", "metadata").Logger(),
		extra: make(map[string]json.RawMessage),
	}
}

// Dir returns the metadata directory.
func (i *Index) Dir() string { return i.dir }

// Loaded reports whether the posts index is present in memory.
func (i *Index) Loaded() bool { return i.posts != nil }

// Dirty reports whether the posts index has changes that failed to persist.
func (i *Index) Dirty() bool { return i.dirty }

// Len returns the number of indexed posts.
func (i *Index) Len() int { return len(i.posts) }

// Load reads every index file. A missing or malformed posts index is regenerated.
func (i *Index) Load(ctx context.Context) error {
	entries, err := os.ReadDir(i.dir)
	if err != nil && !os.IsNotExist(err) {
		return &content.StorageError{Op: "list", Path: i.dir, Err: err}
	}

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ext) {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ext)
		path := filepath.Join(i.dir, e.Name())

		data, err := os.ReadFile(path)
		if err != nil {
			return &content.StorageError{Op: "read", Path: path, Err: err}
		}
		if err := i.loadFile(name, data); err != nil {
			i.log.Warn().Str("index", name).Str("path", path).Err(err).Msg("ignoring malformed index file")
		}
	}

	if i.posts == nil {
		return i.RegeneratePosts(ctx)
	}
	return nil
}

func (i *Index) loadFile(name string, data []byte) error {
	switch name {
	case PostsIndex:
		posts, err := decodePosts(data)
		if err != nil {
			return err
		}
		i.posts = posts
	case SequenceIndex:
		var seq map[string]int64
		if err := codec.Unmarshal(data, &seq); err != nil {
			return err
		}
		i.issued = seq[PostsIndex]
	default:
		if !json.Valid(data) {
			return errors.New("invalid JSON")
		}
		i.extra[name] = json.RawMessage(bytes.Clone(data))
	}
	return nil
}

func decodePosts(data []byte) (map[int64]Entry, error) {
	// an empty index written as a list
	if string(bytes.TrimSpace(data)) == "[]" {
		return make(map[int64]Entry), nil
	}

	var raw map[string]Entry
	if err := codec.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, errors.New("posts index is not a mapping")
	}

	posts := make(map[int64]Entry, len(raw))
	for key, e := range raw {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid post id %q", key)
		}
		if e.ID == 0 {
			e.ID = id
		}
		posts[id] = e
	}
	return posts, nil
}

// EnsurePosts regenerates the posts index if it is not loaded.
func (i *Index) EnsurePosts(ctx context.Context) error {
	if i.posts != nil {
		return nil
	}
	return i.RegeneratePosts(ctx)
}

// RegeneratePosts rebuilds the posts index from the documents and persists it.
func (i *Index) RegeneratePosts(ctx context.Context) error {
	start := time.Now()

	docs, err := i.src(ctx)
	if err != nil {
		return fmt.Errorf("regenerate posts index: %w", err)
	}

	posts := make(map[int64]Entry, len(docs))
	for id, p := range docs {
		e := EntryOf(p)
		e.ID = id
		posts[id] = e
	}
	i.posts = posts

	i.log.Debug().
		Int("record_count", len(posts)).
		Dur("duration_ms", time.Since(start)).
		Msg("posts index regenerated")

	return i.Persist()
}

// Persist writes the posts index to metadata/posts.json.
func (i *Index) Persist() error {
	raw := make(map[string]Entry, len(i.posts))
	for id, e := range i.posts {
		raw[strconv.FormatInt(id, 10)] = e
	}
	if err := i.writeFile(PostsIndex, raw); err != nil {
		i.dirty = true
		i.log.Error().Err(err).Msg("persist posts index")
		return err
	}
	i.dirty = false
	return nil
}

// Sync persists the posts index if an earlier write failed.
func (i *Index) Sync() error {
	if !i.dirty {
		return nil
	}
	return i.Persist()
}

// Upsert stores the entry of p and persists the index. When the posts index is
// not loaded it is regenerated instead, which already covers p.
func (i *Index) Upsert(ctx context.Context, p record.Post) error {
	if i.posts == nil {
		return i.RegeneratePosts(ctx)
	}
	i.posts[p.ID] = EntryOf(p)
	return i.Persist()
}

// Remove deletes the entry for id and persists the index. It reports whether
// the entry existed; unknown ids leave the index untouched.
func (i *Index) Remove(id int64) (bool, error) {
	if _, ok := i.posts[id]; !ok {
		return false, nil
	}
	delete(i.posts, id)
	return true, i.Persist()
}

// Lookup returns the entry for id.
func (i *Index) Lookup(id int64) (Entry, bool) {
	e, ok := i.posts[id]
	return e, ok
}

// Entries yields the posts index ordered by id.
func (i *Index) Entries() iter.Seq2[int64, Entry] {
	return func(yield func(int64, Entry) bool) {
		for _, id := range slices.Sorted(maps.Keys(i.posts)) {
			if !yield(id, i.posts[id]) {
				return
			}
		}
	}
}

// NextID returns one more than the highest id ever indexed or issued.
// It is not safe for concurrent writers.
func (i *Index) NextID() int64 {
	last := i.issued
	for id := range i.posts {
		last = max(last, id)
	}
	return last + 1
}

// Reserve records id as issued so it is never handed out again.
func (i *Index) Reserve(id int64) error {
	if id <= i.issued {
		return nil
	}
	i.issued = id
	return i.writeFile(SequenceIndex, map[string]int64{PostsIndex: id})
}

// Snapshot returns a copy of every loaded index.
func (i *Index) Snapshot() Snapshot {
	s := Snapshot{
		Posts:   maps.Clone(i.posts),
		Indexes: make(map[string]json.RawMessage, len(i.extra)+1),
	}
	if s.Posts == nil {
		s.Posts = make(map[int64]Entry)
	}
	for name, raw := range i.extra {
		s.Indexes[name] = bytes.Clone(raw)
	}
	if i.issued > 0 {
		s.Indexes[SequenceIndex] = json.RawMessage(`{"` + PostsIndex + `":` + strconv.FormatInt(i.issued, 10) + `}`)
	}
	return s
}

func (i *Index) writeFile(name string, v any) error {
	if err := os.MkdirAll(i.dir, 0755); err != nil {
		return &content.StorageError{Op: "mkdir", Path: i.dir, Err: err}
	}
	data, err := codec.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s index: %w", name, err)
	}
	path := filepath.Join(i.dir, name+ext)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return &content.StorageError{Op: "write", Path: path, Err: err}
	}
	return nil
}
