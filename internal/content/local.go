package content

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	"github.com/aweris/fscms/internal/codec"
	"github.com/aweris/fscms/internal/record"
)

// DefaultConcurrency is the number of documents parsed in parallel by List.
const DefaultConcurrency = 4

const ext = ".json"

// LocalStore implements Store on the local filesystem.
//
// Storage layout:
//
//	root/
//	  contents/
//	    article/
//	      1.json
//	      7.json
//	    page/
//	      2.json
//
// Directories are created lazily on first write.
type LocalStore struct {
	dir         string
	concurrency int
	cache       *docCache
	log         zerolog.Logger
}

// NewLocalStore returns a store rooted at root/contents.
func NewLocalStore(root string, concurrency int, log zerolog.Logger) *LocalStore {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &LocalStore{
		dir:         filepath.Join(root, "contents"),
		concurrency: concurrency,
		cache:       newDocCache(DefaultCacheSize),
		log:         log.With().Str("component", "content").Logger(),
	}
}

// Dir returns the contents directory.
func (s *LocalStore) Dir() string {
	return s.dir
}

// Path returns the file path of a document.
func (s *LocalStore) Path(typ string, id int64) string {
	return filepath.Join(s.dir, typ, strconv.FormatInt(id, 10)+ext)
}

func (s *LocalStore) EnsureTypeDirectory(typ string) error {
	if err := ValidateType(typ); err != nil {
		return err
	}
	dir := filepath.Join(s.dir, typ)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &StorageError{Op: "mkdir", Path: dir, Err: err}
	}
	return nil
}

func (s *LocalStore) Write(ctx context.Context, typ string, p record.Post) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateID(p.ID); err != nil {
		return err
	}
	if err := s.EnsureTypeDirectory(typ); err != nil {
		return err
	}

	data, err := codec.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode post %d: %w", p.ID, err)
	}

	path := s.Path(typ, p.ID)
	s.cache.remove(path)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return &StorageError{Op: "write", Path: path, Err: err}
	}
	return nil
}

func (s *LocalStore) Read(ctx context.Context, typ string, id int64) (record.Post, error) {
	if err := ctx.Err(); err != nil {
		return record.Post{}, err
	}
	if err := ValidateType(typ); err != nil {
		return record.Post{}, err
	}
	if err := validateID(id); err != nil {
		return record.Post{}, err
	}
	return s.readFile(s.Path(typ, id))
}

func (s *LocalStore) Delete(ctx context.Context, typ string, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateType(typ); err != nil {
		return err
	}
	if err := validateID(id); err != nil {
		return err
	}

	path := s.Path(typ, id)
	s.cache.remove(path)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return &StorageError{Op: "delete", Path: path, Err: err}
	}
	return nil
}

func (s *LocalStore) List(ctx context.Context, typ string) (map[int64]record.Post, error) {
	if typ == "" {
		typ = Wildcard
	}
	if typ != Wildcard {
		if err := ValidateType(typ); err != nil {
			return nil, err
		}
	}

	files, err := s.documentFiles(typ)
	if err != nil {
		return nil, err
	}

	p := pool.NewWithResults[record.Post]().
		WithMaxGoroutines(s.concurrency).
		WithContext(ctx).
		WithCancelOnError()
	for _, file := range files {
		p.Go(func(ctx context.Context) (record.Post, error) {
			if err := ctx.Err(); err != nil {
				return record.Post{}, err
			}
			return s.loadListed(file)
		})
	}
	posts, err := p.Wait()
	if err != nil {
		return nil, err
	}

	out := make(map[int64]record.Post, len(posts))
	for _, post := range posts {
		if post.IsZero() {
			continue
		}
		out[post.ID] = post
	}
	return out, nil
}

// documentFiles returns the document paths of typ, or of every type for Wildcard.
func (s *LocalStore) documentFiles(typ string) ([]string, error) {
	types := []string{typ}
	if typ == Wildcard {
		entries, err := os.ReadDir(s.dir)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, nil
			}
			return nil, &StorageError{Op: "list", Path: s.dir, Err: err}
		}
		types = types[:0]
		for _, e := range entries {
			if e.IsDir() {
				types = append(types, e.Name())
			}
		}
	}

	var files []string
	for _, t := range types {
		dir := filepath.Join(s.dir, t)
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, &StorageError{Op: "list", Path: dir, Err: err}
		}
		for _, e := range entries {
			if !e.IsDir() && strings.HasSuffix(e.Name(), ext) {
				files = append(files, filepath.Join(dir, e.Name()))
			}
		}
	}
	return files, nil
}

// loadListed reads a file found by List. Malformed and empty documents are skipped
// with a warning; a document without an id takes it from its file name.
func (s *LocalStore) loadListed(path string) (record.Post, error) {
	post, err := s.readFile(path)
	var se *StorageError
	if errors.As(err, &se) && se.Op == "decode" {
		s.log.Warn().Str("path", path).Err(se.Err).Msg("skipping malformed document")
		return record.Post{}, nil
	}
	if err != nil || post.IsZero() {
		return record.Post{}, err
	}

	if post.ID == 0 {
		id, err := strconv.ParseInt(strings.TrimSuffix(filepath.Base(path), ext), 10, 64)
		if err != nil || id <= 0 {
			s.log.Warn().Str("path", path).Msg("skipping document without id")
			return record.Post{}, nil
		}
		post.ID = id
	}
	if post.Type == "" {
		post.Type = filepath.Base(filepath.Dir(path))
	}
	return post, nil
}

func (s *LocalStore) readFile(path string) (record.Post, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			s.cache.remove(path)
			return record.Post{}, nil
		}
		return record.Post{}, &StorageError{Op: "read", Path: path, Err: err}
	}
	if post, ok := s.cache.get(path, info); ok {
		return post, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return record.Post{}, nil
		}
		return record.Post{}, &StorageError{Op: "read", Path: path, Err: err}
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return record.Post{}, nil
	}

	var post record.Post
	if err := codec.Unmarshal(data, &post); err != nil {
		return record.Post{}, &StorageError{Op: "decode", Path: path, Err: err}
	}
	s.cache.add(path, info, post)
	return post, nil
}

var _ Store = (*LocalStore)(nil)
