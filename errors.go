package fscms

import (
	"errors"

	"github.com/aweris/fscms/internal/content"
)

var (
	ErrNotFound        = errors.New("fscms: not found")
	ErrInvalidPost     = errors.New("fscms: invalid post")
	ErrRootUnavailable = errors.New("fscms: root folder unavailable")

	// ErrInvalidType is returned for type names that cannot be used as a directory.
	ErrInvalidType = content.ErrInvalidType
)

// StorageError describes a failed filesystem operation.
type StorageError = content.StorageError
