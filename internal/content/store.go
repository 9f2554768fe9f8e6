// Package content implements the document layer of the store.
//
// Every post is one JSON file and the directory tree is the source of truth:
// the metadata index is rebuilt from it whenever it is lost.
package content

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aweris/fscms/internal/record"
)

// Wildcard selects every type directory in List.
const Wildcard = "*"

var (
	// ErrInvalidType is returned for type names that are not a single path segment.
	ErrInvalidType = errors.New("invalid type")
	// ErrInvalidID is returned for ids that are not positive.
	ErrInvalidID = errors.New("invalid id")
)

// Store reads and writes post documents grouped by type.
type Store interface {
	// EnsureTypeDirectory creates the directory for typ if it is missing.
	EnsureTypeDirectory(typ string) error

	// Write stores p under typ, replacing any previous document with the same id.
	Write(ctx context.Context, typ string, p record.Post) error

	// Read loads a document. A missing or empty file yields the zero Post and no error.
	Read(ctx context.Context, typ string, id int64) (record.Post, error)

	// Delete removes a document.
	Delete(ctx context.Context, typ string, id int64) error

	// List loads all documents of typ, or of every type for Wildcard, keyed by id.
	List(ctx context.Context, typ string) (map[int64]record.Post, error)
}

// StorageError describes a failed filesystem operation on a document or index file.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ValidateType checks that typ can be used as a directory name.
func ValidateType(typ string) error {
	switch {
	case typ == "", typ == ".", typ == "..":
		return fmt.Errorf("%w: %q", ErrInvalidType, typ)
	case strings.ContainsAny(typ, `/\*?[]`):
		return fmt.Errorf("%w: %q", ErrInvalidType, typ)
	}
	return nil
}

func validateID(id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidID, id)
	}
	return nil
}
