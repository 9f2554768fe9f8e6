package fscms

import (
	"context"
	"encoding/json"
)

// NullStore is a Store that holds nothing and accepts every write as a no-op.
// OpenOrNull falls back to it when the root folder cannot be used.
type NullStore struct{}

func (NullStore) Metadata() Snapshot {
	return Snapshot{Posts: map[int64]Entry{}, Indexes: map[string]json.RawMessage{}}
}

func (NullStore) ListByType(context.Context, string) (map[int64]Post, error) {
	return map[int64]Post{}, nil
}

func (NullStore) ListPosts(context.Context, Filter) (map[int64]Post, error) {
	return map[int64]Post{}, nil
}

func (NullStore) AddPost(context.Context, string, map[string]any, ...PostOption) (Post, error) {
	return Post{}, nil
}

func (NullStore) UpdatePost(context.Context, Post) error { return nil }
func (NullStore) DeletePost(context.Context, int64) error { return nil }

func (NullStore) GetPost(context.Context, int64) (Post, error) { return Post{}, nil }

func (NullStore) RepairIndex(context.Context) error { return nil }
func (NullStore) Close() error                      { return nil }

var _ Store = NullStore{}
