package fscms_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aweris/fscms"
)

var fixedTime = time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

func openRepo(t *testing.T, root string, opts ...fscms.OpenOption) *fscms.Repository {
	t.Helper()
	opts = append([]fscms.OpenOption{fscms.WithClock(func() time.Time { return fixedTime })}, opts...)
	repo, err := fscms.Open(root, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func ids(posts map[int64]fscms.Post) []int64 {
	out := make([]int64, 0, len(posts))
	for id := range posts {
		out = append(out, id)
	}
	return out
}

func TestOpen_CreatesLayout(t *testing.T) {
	root := filepath.Join(t.TempDir(), "site")
	repo := openRepo(t, root)

	assert.Equal(t, root, repo.Root())
	data, err := os.ReadFile(filepath.Join(root, "metadata", "posts.json"))
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
	assert.Empty(t, repo.Metadata().Posts)
}

func TestOpen_RootIsFile(t *testing.T) {
	root := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(root, []byte("x"), 0644))

	_, err := fscms.Open(root)
	assert.ErrorIs(t, err, fscms.ErrRootUnavailable)

	_, err = fscms.Open("")
	assert.ErrorIs(t, err, fscms.ErrRootUnavailable)

	store := fscms.OpenOrNull(root)
	assert.IsType(t, fscms.NullStore{}, store)
}

func TestAddPost_AssignsFields(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	repo := openRepo(t, root)

	post, err := repo.AddPost(ctx, "article", map[string]any{"title": "Hello", "id": 99, "creator": 5})
	require.NoError(t, err)

	assert.Equal(t, int64(1), post.ID)
	assert.Equal(t, "article", post.Type)
	assert.Equal(t, fscms.StatusDraft, post.Status)
	assert.Equal(t, "", post.Published)
	assert.Equal(t, int64(1), post.Creator)
	assert.Equal(t, "2024-03-09 14:05:07", post.Created)
	assert.Equal(t, "Hello", post.Fields["title"])

	got, err := repo.GetPost(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, post.ID, got.ID)
	assert.Equal(t, "Hello", got.Fields["title"])
	assert.Equal(t, post.Created, got.Created)

	data, err := os.ReadFile(filepath.Join(root, "contents", "article", "1.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n    \"title\": \"Hello\"")

	e, ok := repo.Metadata().Posts[1]
	require.True(t, ok)
	assert.Equal(t, fscms.Entry{ID: 1, Type: "article", Status: "draft"}, e)
}

func TestAddPost_Published(t *testing.T) {
	ctx := context.Background()
	repo := openRepo(t, t.TempDir(), fscms.WithCaller(7))

	post, err := repo.AddPost(ctx, "page", nil, fscms.WithStatus(fscms.StatusPublished))
	require.NoError(t, err)
	assert.Equal(t, post.Created, post.Published)
	assert.Equal(t, int64(7), post.Creator)

	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	post, err = repo.AddPost(ctx, "page", nil, fscms.WithStatus(fscms.StatusPublished), fscms.WithPublishAt(at))
	require.NoError(t, err)
	assert.Equal(t, "2025-01-01 00:00:00", post.Published)
}

func TestAddPost_PublishedScenario(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	repo := openRepo(t, root)

	_, err := repo.AddPost(ctx, "article", map[string]any{"title": "Hello"}, fscms.WithStatus(fscms.StatusPublished))
	require.NoError(t, err)

	got, err := repo.GetPost(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"id":        int64(1),
		"type":      "article",
		"status":    "published",
		"created":   "2024-03-09 14:05:07",
		"creator":   int64(1),
		"published": "2024-03-09 14:05:07",
		"title":     "Hello",
	}, got.Map())

	data, err := os.ReadFile(filepath.Join(root, "metadata", "posts.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"1": {"id": 1, "type": "article", "status": "published", "published": "2024-03-09 14:05:07", "language": ""}}`, string(data))
}

func TestAddPost_IgnoresStampedFields(t *testing.T) {
	ctx := context.Background()
	repo := openRepo(t, t.TempDir())

	post, err := repo.AddPost(ctx, "article", map[string]any{
		"id":        "x",
		"creator":   "alice",
		"type":      "page",
		"status":    "archived",
		"published": "yesterday",
		"language":  "de",
		"title":     "Hello",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), post.ID)
	assert.Equal(t, "article", post.Type)
	assert.Equal(t, fscms.StatusDraft, post.Status)
	assert.Equal(t, "", post.Published)
	assert.Equal(t, "de", post.Language)

	got, err := repo.GetPost(ctx, 1)
	require.NoError(t, err)
	creator, ok := got.Get(fscms.FieldCreator)
	require.True(t, ok)
	assert.Equal(t, int64(1), creator)
}

func TestOpen_IndexesDocumentWithStringCreator(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	dir := filepath.Join(root, "contents", "article")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "1.json"),
		[]byte(`{"id": 1, "type": "article", "status": "draft", "published": "", "creator": "alice"}`), 0644))

	repo := openRepo(t, root)
	assert.Len(t, repo.Metadata().Posts, 1)

	all, err := repo.ListPosts(ctx, nil)
	require.NoError(t, err)
	require.Contains(t, all, int64(1))

	creator, ok := all[1].Get(fscms.FieldCreator)
	require.True(t, ok)
	assert.Equal(t, "alice", creator)

	byCreator, err := repo.ListPosts(ctx, fscms.Filter{"creator": "alice"})
	require.NoError(t, err)
	assert.Len(t, byCreator, 1)

	// written back unchanged
	require.NoError(t, repo.UpdatePost(ctx, all[1]))
	data, err := os.ReadFile(filepath.Join(dir, "1.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"creator": "alice"`)
}

func TestAddPost_InvalidType(t *testing.T) {
	repo := openRepo(t, t.TempDir())

	for _, typ := range []string{"", "..", "a/b", "*"} {
		_, err := repo.AddPost(context.Background(), typ, nil)
		assert.ErrorIs(t, err, fscms.ErrInvalidType, typ)
	}
}

func TestAddPost_IDsAcrossTypes(t *testing.T) {
	ctx := context.Background()
	repo := openRepo(t, t.TempDir())

	for i, typ := range []string{"article", "page", "article"} {
		post, err := repo.AddPost(ctx, typ, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(i+1), post.ID)
	}
}

func TestAddPost_NoReuseAfterDelete(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	repo := openRepo(t, root)

	for range 3 {
		_, err := repo.AddPost(ctx, "article", nil)
		require.NoError(t, err)
	}
	require.NoError(t, repo.DeletePost(ctx, 3))

	post, err := repo.AddPost(ctx, "article", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(4), post.ID)

	// the high-water mark survives a reopen and a lost posts index
	require.NoError(t, repo.DeletePost(ctx, 4))
	require.NoError(t, os.Remove(filepath.Join(root, "metadata", "posts.json")))
	reopened := openRepo(t, root)
	post, err = reopened.AddPost(ctx, "article", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(5), post.ID)
}

func TestDeletePost(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	repo := openRepo(t, root)

	post, err := repo.AddPost(ctx, "article", map[string]any{"title": "gone"})
	require.NoError(t, err)
	require.NoError(t, repo.DeletePost(ctx, post.ID))

	got, err := repo.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	_, err = repo.Lookup(ctx, post.ID)
	assert.ErrorIs(t, err, fscms.ErrNotFound)

	all, err := repo.ListPosts(ctx, nil)
	require.NoError(t, err)
	assert.NotContains(t, all, post.ID)

	_, err = os.Stat(filepath.Join(root, "contents", "article", "1.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestDeletePost_WithoutSequenceFile(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	repo := openRepo(t, root)

	for range 3 {
		_, err := repo.AddPost(ctx, "article", nil)
		require.NoError(t, err)
	}
	require.NoError(t, os.Remove(filepath.Join(root, "metadata", "sequence.json")))

	reopened := openRepo(t, root)
	require.NoError(t, reopened.DeletePost(ctx, 3))

	post, err := reopened.AddPost(ctx, "article", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(4), post.ID)
}

func TestDeletePost_UnknownID(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	repo := openRepo(t, root)
	require.NoError(t, repo.DeletePost(ctx, 999))
	assert.Empty(t, repo.Metadata().Posts)

	_, err := repo.AddPost(ctx, "article", nil)
	require.NoError(t, err)
	before, err := os.ReadFile(filepath.Join(root, "metadata", "posts.json"))
	require.NoError(t, err)

	require.NoError(t, repo.DeletePost(ctx, 999))

	after, err := os.ReadFile(filepath.Join(root, "metadata", "posts.json"))
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Len(t, repo.Metadata().Posts, 1)
}

func TestUpdatePost_Overwrites(t *testing.T) {
	ctx := context.Background()
	repo := openRepo(t, t.TempDir())

	post, err := repo.AddPost(ctx, "article", map[string]any{"title": "a", "body": "b"})
	require.NoError(t, err)

	require.NoError(t, repo.UpdatePost(ctx, fscms.Post{
		ID:     post.ID,
		Type:   "article",
		Status: fscms.StatusPublished,
		Fields: map[string]any{"title": "c"},
	}))

	got, err := repo.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "c", got.Fields["title"])
	assert.NotContains(t, got.Fields, "body")
	assert.Equal(t, "", got.Created)
	assert.Equal(t, int64(0), got.Creator)
	assert.Equal(t, "published", repo.Metadata().Posts[post.ID].Status)
}

func TestUpdatePost_WritesEmptyStatusAndPublished(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	repo := openRepo(t, root)

	post, err := repo.AddPost(ctx, "article", nil, fscms.WithStatus(fscms.StatusPublished))
	require.NoError(t, err)
	require.NoError(t, repo.UpdatePost(ctx, fscms.Post{ID: post.ID, Type: "article"}))

	data, err := os.ReadFile(filepath.Join(root, "contents", "article", "1.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"id": 1, "type": "article", "status": "", "published": ""}`, string(data))
}

func TestUpdatePost_ChangesType(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	repo := openRepo(t, root)

	post, err := repo.AddPost(ctx, "article", nil)
	require.NoError(t, err)
	post.Type = "page"
	require.NoError(t, repo.UpdatePost(ctx, post))

	_, err = os.Stat(filepath.Join(root, "contents", "article", "1.json"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(root, "contents", "page", "1.json"))
	assert.NoError(t, err)

	got, err := repo.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "page", got.Type)
}

func TestUpdatePost_Invalid(t *testing.T) {
	repo := openRepo(t, t.TempDir())

	err := repo.UpdatePost(context.Background(), fscms.Post{Type: "article"})
	assert.ErrorIs(t, err, fscms.ErrInvalidPost)

	err = repo.UpdatePost(context.Background(), fscms.Post{ID: 1, Type: "../x"})
	assert.ErrorIs(t, err, fscms.ErrInvalidType)
}

func TestUpdatePost_UnknownIDRaisesSequence(t *testing.T) {
	ctx := context.Background()
	repo := openRepo(t, t.TempDir())

	require.NoError(t, repo.UpdatePost(ctx, fscms.Post{ID: 10, Type: "article", Status: "draft"}))
	post, err := repo.AddPost(ctx, "article", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(11), post.ID)
}

func TestRepairIndex_MatchesIncremental(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	repo := openRepo(t, root)

	for i, typ := range []string{"article", "page", "article", "news"} {
		opts := []fscms.PostOption{}
		if i%2 == 1 {
			opts = append(opts, fscms.WithStatus(fscms.StatusPublished))
		}
		_, err := repo.AddPost(ctx, typ, map[string]any{"n": i}, opts...)
		require.NoError(t, err)
	}
	post, err := repo.GetPost(ctx, 3)
	require.NoError(t, err)
	post.Type = "page"
	post.Language = "de"
	require.NoError(t, repo.UpdatePost(ctx, post))
	require.NoError(t, repo.DeletePost(ctx, 2))

	incremental := repo.Metadata().Posts
	require.NoError(t, repo.RepairIndex(ctx))
	assert.Equal(t, incremental, repo.Metadata().Posts)

	require.NoError(t, os.Remove(filepath.Join(root, "metadata", "posts.json")))
	assert.Equal(t, incremental, openRepo(t, root).Metadata().Posts)
}

func TestOpen_MalformedIndexRegenerates(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	repo := openRepo(t, root)
	_, err := repo.AddPost(ctx, "article", nil)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(root, "metadata", "posts.json"), []byte("{not json"), 0644))
	reopened := openRepo(t, root)
	assert.Len(t, reopened.Metadata().Posts, 1)
}

func TestListByType(t *testing.T) {
	ctx := context.Background()
	repo := openRepo(t, t.TempDir())

	for _, typ := range []string{"article", "page", "article"} {
		_, err := repo.AddPost(ctx, typ, nil)
		require.NoError(t, err)
	}

	articles, err := repo.ListByType(ctx, "article")
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 3}, ids(articles))

	all, err := repo.ListByType(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	none, err := repo.ListByType(ctx, "event")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestListPosts(t *testing.T) {
	ctx := context.Background()
	repo := openRepo(t, t.TempDir())

	add := func(typ string, fields map[string]any, opts ...fscms.PostOption) {
		_, err := repo.AddPost(ctx, typ, fields, opts...)
		require.NoError(t, err)
	}
	published := fscms.WithStatus(fscms.StatusPublished)
	add("article", map[string]any{"author": "ann"})            // 1
	add("article", map[string]any{"author": "bob"}, published) // 2
	add("page", map[string]any{"author": "ann"}, published)    // 3
	add("article", map[string]any{"author": "ann"}, published) // 4

	tests := []struct {
		name   string
		filter fscms.Filter
		want   []int64
	}{
		{"empty", nil, []int64{1, 2, 3, 4}},
		{"type", fscms.Filter{"type": "article"}, []int64{1, 2, 4}},
		{"type and status", fscms.Filter{"type": "article", "status": "published"}, []int64{2, 4}},
		{"status only", fscms.Filter{"status": "draft"}, []int64{1}},
		{"indexed and field", fscms.Filter{"type": "article", "author": "ann"}, []int64{1, 4}},
		{"field only", fscms.Filter{"author": "ann"}, []int64{1, 3, 4}},
		{"numeric id", fscms.Filter{"id": 3}, []int64{3}},
		{"missing field", fscms.Filter{"tag": "go"}, []int64{}},
		{"unknown type", fscms.Filter{"type": "event"}, []int64{}},
		{"language unset", fscms.Filter{"language": "en"}, []int64{}},
		{"empty language", fscms.Filter{"language": ""}, []int64{1, 2, 3, 4}},
		{"empty language and field", fscms.Filter{"language": "", "author": "bob"}, []int64{2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.ListPosts(ctx, tt.filter)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, ids(got))
		})
	}
}

func TestListPosts_SkipsStaleEntries(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	repo := openRepo(t, root)

	for range 2 {
		_, err := repo.AddPost(ctx, "article", nil)
		require.NoError(t, err)
	}
	require.NoError(t, os.Remove(filepath.Join(root, "contents", "article", "1.json")))

	got, err := repo.ListPosts(ctx, fscms.Filter{"type": "article"})
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, ids(got))

	post, err := repo.GetPost(ctx, 1)
	require.NoError(t, err)
	assert.True(t, post.IsZero())
}

func TestExportImport(t *testing.T) {
	ctx := context.Background()
	repo := openRepo(t, t.TempDir())

	_, err := repo.AddPost(ctx, "article", map[string]any{"title": "one"})
	require.NoError(t, err)
	_, err = repo.AddPost(ctx, "page", map[string]any{"title": "two"}, fscms.WithStatus(fscms.StatusPublished))
	require.NoError(t, err)
	require.NoError(t, repo.DeletePost(ctx, 2))

	var buf bytes.Buffer
	require.NoError(t, repo.Export(ctx, &buf))

	restored, err := fscms.Import(ctx, filepath.Join(t.TempDir(), "restored"), &buf)
	require.NoError(t, err)
	defer restored.Close()

	assert.Equal(t, repo.Metadata().Posts, restored.Metadata().Posts)
	got, err := restored.GetPost(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "one", got.Fields["title"])

	post, err := restored.AddPost(ctx, "article", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), post.ID)
}

func TestImport_RefusesNonEmptyRoot(t *testing.T) {
	ctx := context.Background()
	repo := openRepo(t, t.TempDir(), fscms.WithCompressionLevel(0))

	var buf bytes.Buffer
	require.NoError(t, repo.Export(ctx, &buf))

	_, err := fscms.Import(ctx, repo.Root(), &buf)
	assert.Error(t, err)
}

func TestNullStore(t *testing.T) {
	ctx := context.Background()
	var store fscms.Store = fscms.NullStore{}

	post, err := store.AddPost(ctx, "article", map[string]any{"title": "x"})
	require.NoError(t, err)
	assert.True(t, post.IsZero())

	got, err := store.GetPost(ctx, 1)
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	all, err := store.ListPosts(ctx, fscms.Filter{"type": "article"})
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Empty(t, store.Metadata().Posts)
	assert.NoError(t, store.DeletePost(ctx, 1))
	assert.NoError(t, store.Close())
}
