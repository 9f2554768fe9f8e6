package fscms

import (
	"context"

	"github.com/aweris/fscms/internal/metadata"
	"github.com/aweris/fscms/internal/record"
)

// Post is a content document. Re-exported from internal/record.
type Post = record.Post

// Entry is the indexed summary of a post. Re-exported from internal/metadata.
type Entry = metadata.Entry

// Snapshot is a copy of every loaded index. Re-exported from internal/metadata.
type Snapshot = metadata.Snapshot

// Reserved field names and status values.
const (
	FieldID        = record.FieldID
	FieldType      = record.FieldType
	FieldStatus    = record.FieldStatus
	FieldPublished = record.FieldPublished
	FieldLanguage  = record.FieldLanguage
	FieldCreator   = record.FieldCreator
	FieldCreated   = record.FieldCreated

	StatusDraft     = record.StatusDraft
	StatusPublished = record.StatusPublished

	TimeLayout = record.TimeLayout
)

// PostFromFields builds a Post from a flat field map.
func PostFromFields(fields map[string]any) (Post, error) {
	return record.FromFields(fields)
}

// Store is the post repository contract shared by Repository and NullStore.
// Absence is never an error: unknown ids yield the zero Post.
type Store interface {
	Metadata() Snapshot
	ListByType(ctx context.Context, typ string) (map[int64]Post, error)
	ListPosts(ctx context.Context, filter Filter) (map[int64]Post, error)

	AddPost(ctx context.Context, typ string, fields map[string]any, opts ...PostOption) (Post, error)
	UpdatePost(ctx context.Context, post Post) error
	DeletePost(ctx context.Context, id int64) error
	GetPost(ctx context.Context, id int64) (Post, error)

	RepairIndex(ctx context.Context) error
	Close() error
}
