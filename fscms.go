package fscms

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/aweris/fscms/internal/compression"
	"github.com/aweris/fscms/internal/content"
	"github.com/aweris/fscms/internal/metadata"
	"github.com/aweris/fscms/internal/record"
)

// Repository is the post store rooted at a single folder.
//
// It assumes a single writer: ids are derived from the in-memory index and
// nothing is locked across instances or processes.
type Repository struct {
	root       string
	caller     int64
	language   string
	now        func() time.Time
	log        zerolog.Logger
	contents   *content.LocalStore
	idx        *metadata.Index
	compressor *compression.Compressor
}

// Open creates or opens the store at root and loads its index, regenerating the
// posts index when it is missing or malformed.
func Open(root string, opts ...OpenOption) (*Repository, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	if root == "" {
		return nil, fmt.Errorf("%w: empty path", ErrRootUnavailable)
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRootUnavailable, err)
	}

	r := &Repository{
		root:       root,
		caller:     options.Caller,
		language:   options.Language,
		now:        options.Clock,
		log:        options.Logger,
		contents:   content.NewLocalStore(root, options.Concurrency, options.Logger),
		compressor: compression.NewCompressor(options.CompressionLevel, options.CompressionLevel > 0),
	}
	r.idx = metadata.New(root, r.listAll, options.Logger)

	if err := r.idx.Load(context.Background()); err != nil {
		return nil, fmt.Errorf("load metadata: %w", err)
	}
	return r, nil
}

// OpenOrNull opens the store at root, or returns a NullStore when it cannot be opened.
func OpenOrNull(root string, opts ...OpenOption) Store {
	r, err := Open(root, opts...)
	if err != nil {
		options := defaultOptions()
		for _, opt := range opts {
			opt(options)
		}
		options.Logger.Warn().Str("root", root).Err(err).Msg("store unavailable, using null store")
		return NullStore{}
	}
	return r
}

func (r *Repository) Root() string     { return r.root }
func (r *Repository) Caller() int64    { return r.caller }
func (r *Repository) Language() string { return r.language }

func (r *Repository) listAll(ctx context.Context) (map[int64]record.Post, error) {
	return r.contents.List(ctx, content.Wildcard)
}

// Metadata returns a copy of every loaded index.
func (r *Repository) Metadata() Snapshot {
	return r.idx.Snapshot()
}

// ListByType returns every post of typ keyed by id. An empty type lists all types.
func (r *Repository) ListByType(ctx context.Context, typ string) (map[int64]Post, error) {
	posts, err := r.contents.List(ctx, typ)
	if err != nil {
		return nil, fmt.Errorf("list %q: %w", typ, err)
	}
	return posts, nil
}

// AddPost stores a new post of typ built from fields and returns it.
//
// The post gets the next free id, the given status (draft by default), the current
// time as created, the caller as creator, and a published time when the status is
// published. Those keys in fields are overwritten.
func (r *Repository) AddPost(ctx context.Context, typ string, fields map[string]any, opts ...PostOption) (Post, error) {
	o := newPostOptions(opts)

	if err := content.ValidateType(typ); err != nil {
		return Post{}, err
	}
	post, err := record.FromFields(withoutStamped(fields))
	if err != nil {
		return Post{}, fmt.Errorf("%w: %w", ErrInvalidPost, err)
	}
	if err := r.idx.EnsurePosts(ctx); err != nil {
		return Post{}, err
	}
	if err := r.contents.EnsureTypeDirectory(typ); err != nil {
		return Post{}, err
	}

	post.ID = r.idx.NextID()
	post.Type = typ
	post.Status = o.status
	post.Created = r.now().Format(TimeLayout)
	post.Creator = r.caller
	post.Published = ""
	if o.status == StatusPublished {
		post.Published = post.Created
		if o.publishAt != nil {
			post.Published = o.publishAt.Format(TimeLayout)
		}
	}

	if err := r.idx.Reserve(post.ID); err != nil {
		return Post{}, fmt.Errorf("reserve id %d: %w", post.ID, err)
	}
	if err := r.contents.Write(ctx, typ, post); err != nil {
		return Post{}, fmt.Errorf("add post %d: %w", post.ID, err)
	}
	if err := r.idx.Upsert(ctx, post); err != nil {
		return post, fmt.Errorf("index post %d: %w", post.ID, err)
	}

	r.log.Debug().Int64("id", post.ID).Str("type", typ).Str("status", post.Status).Msg("post added")
	return post, nil
}

// stamped are the reserved fields AddPost assigns itself.
var stamped = []string{FieldID, FieldType, FieldStatus, FieldCreated, FieldCreator, FieldPublished}

func withoutStamped(fields map[string]any) map[string]any {
	out := maps.Clone(fields)
	for _, name := range stamped {
		delete(out, name)
	}
	return out
}

// UpdatePost stores post exactly as given under its type and id. Nothing is
// computed or merged: fields missing from post are gone afterwards. The exceptions
// are id, type, status and published, which every document carries; an empty
// status or published is written as "".
func (r *Repository) UpdatePost(ctx context.Context, post Post) error {
	if post.ID <= 0 {
		return fmt.Errorf("%w: missing id", ErrInvalidPost)
	}
	if err := content.ValidateType(post.Type); err != nil {
		return err
	}
	if err := r.idx.EnsurePosts(ctx); err != nil {
		return err
	}

	prev, known := r.idx.Lookup(post.ID)
	if err := r.contents.Write(ctx, post.Type, post); err != nil {
		return fmt.Errorf("update post %d: %w", post.ID, err)
	}
	if known && prev.Type != post.Type {
		if err := r.contents.Delete(ctx, prev.Type, post.ID); err != nil {
			return fmt.Errorf("move post %d from %q: %w", post.ID, prev.Type, err)
		}
	}
	if err := r.idx.Reserve(post.ID); err != nil {
		return fmt.Errorf("reserve id %d: %w", post.ID, err)
	}
	if err := r.idx.Upsert(ctx, post); err != nil {
		return fmt.Errorf("index post %d: %w", post.ID, err)
	}

	r.log.Debug().Int64("id", post.ID).Str("type", post.Type).Msg("post updated")
	return nil
}

// DeletePost removes the post with id. Unknown ids are ignored.
func (r *Repository) DeletePost(ctx context.Context, id int64) error {
	if err := r.idx.EnsurePosts(ctx); err != nil {
		return err
	}
	e, ok := r.idx.Lookup(id)
	if !ok {
		return nil
	}

	if err := r.idx.Reserve(id); err != nil {
		return fmt.Errorf("reserve id %d: %w", id, err)
	}
	if err := r.contents.Delete(ctx, e.Type, id); err != nil {
		return fmt.Errorf("delete post %d: %w", id, err)
	}
	if _, err := r.idx.Remove(id); err != nil {
		return fmt.Errorf("unindex post %d: %w", id, err)
	}

	r.log.Debug().Int64("id", id).Str("type", e.Type).Msg("post deleted")
	return nil
}

// Lookup returns the post with id, or ErrNotFound when it is not indexed or its
// document is missing or empty.
func (r *Repository) Lookup(ctx context.Context, id int64) (Post, error) {
	if err := r.idx.EnsurePosts(ctx); err != nil {
		return Post{}, err
	}
	e, ok := r.idx.Lookup(id)
	if !ok {
		return Post{}, ErrNotFound
	}

	post, err := r.contents.Read(ctx, e.Type, id)
	if err != nil {
		return Post{}, fmt.Errorf("get post %d: %w", id, err)
	}
	if post.IsZero() {
		return Post{}, ErrNotFound
	}
	return post, nil
}

// GetPost returns the post with id, or the zero Post when there is none.
func (r *Repository) GetPost(ctx context.Context, id int64) (Post, error) {
	post, err := r.Lookup(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return Post{}, nil
	}
	return post, err
}

// RepairIndex rebuilds the posts index from the documents on disk. It is the
// recovery path after a crash between writing a document and its index.
func (r *Repository) RepairIndex(ctx context.Context) error {
	return r.idx.RegeneratePosts(ctx)
}

// Close persists the posts index if an earlier write of it failed.
func (r *Repository) Close() error {
	return r.idx.Sync()
}

var _ Store = (*Repository)(nil)
