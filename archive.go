package fscms

import (
	"context"
	"fmt"
	"io"

	"github.com/aweris/fscms/internal/archive"
	"github.com/aweris/fscms/internal/compression"
)

// Export writes the metadata and contents trees to w as a tar stream,
// zstd-compressed unless the store was opened with compression level 0.
func (r *Repository) Export(ctx context.Context, w io.Writer) error {
	if err := r.idx.Sync(); err != nil {
		return fmt.Errorf("sync index: %w", err)
	}
	if err := archive.Write(ctx, w, r.root, r.compressor); err != nil {
		return fmt.Errorf("export %s: %w", r.root, err)
	}
	r.log.Debug().Str("root", r.root).Msg("store exported")
	return nil
}

// Import restores an archive written by Export into root, which must be missing
// or empty, and opens it. Compressed and plain archives are both accepted.
// The posts index is rebuilt from the restored documents.
func Import(ctx context.Context, root string, src io.Reader, opts ...OpenOption) (*Repository, error) {
	if err := archive.Extract(ctx, src, root, compression.NewCompressor(0, false)); err != nil {
		return nil, fmt.Errorf("import %s: %w", root, err)
	}

	r, err := Open(root, opts...)
	if err != nil {
		return nil, err
	}
	if err := r.RepairIndex(ctx); err != nil {
		return nil, err
	}
	return r, nil
}
