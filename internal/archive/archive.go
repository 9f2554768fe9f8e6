// Package archive packs a store root into a single compressed tar stream and back.
//
// Only the metadata and contents trees are archived; anything else under the
// root is left out.
package archive

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aweris/fscms/internal/compression"
)

// Dirs are the root subdirectories included in an archive.
var Dirs = []string{"metadata", "contents"}

var (
	// ErrNotEmpty is returned when extracting into a root that already has content.
	ErrNotEmpty = errors.New("target root is not empty")
	// ErrUnsafePath is returned for archive entries outside the archived trees.
	ErrUnsafePath = errors.New("unsafe archive entry")
)

// maxFileSize bounds a single extracted file.
const maxFileSize = 64 << 20

// Write archives root to w.
func Write(ctx context.Context, w io.Writer, root string, c *compression.Compressor) error {
	cw, err := c.NewWriter(w)
	if err != nil {
		return fmt.Errorf("create compressor: %w", err)
	}
	tw := tar.NewWriter(cw)

	for _, dir := range Dirs {
		if err := addTree(ctx, tw, root, dir); err != nil {
			return err
		}
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("close archive: %w", err)
	}
	return cw.Close()
}

func addTree(ctx context.Context, tw *tar.Writer, root, dir string) error {
	base := filepath.Join(root, dir)
	if _, err := os.Stat(base); os.IsNotExist(err) {
		return nil
	}

	return filepath.WalkDir(base, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.IsDir() && !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		if d.IsDir() {
			hdr.Name += "/"
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("write header %s: %w", hdr.Name, err)
		}
		if d.IsDir() {
			return nil
		}

		f, err := os.Open(p)
		if err != nil {
			return err
		}
		defer f.Close()
		if _, err := io.Copy(tw, f); err != nil {
			return fmt.Errorf("write %s: %w", hdr.Name, err)
		}
		return nil
	})
}

// Extract unpacks an archive from r into root. root must be missing or empty.
func Extract(ctx context.Context, r io.Reader, root string, c *compression.Compressor) error {
	if err := checkEmpty(root); err != nil {
		return err
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return fmt.Errorf("create root: %w", err)
	}

	cr, err := c.NewReader(r)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer cr.Close()

	tr := tar.NewReader(cr)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read archive: %w", err)
		}

		target, err := targetPath(root, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
		case tar.TypeReg:
			if hdr.Size > maxFileSize {
				return fmt.Errorf("%w: %s is too large", ErrUnsafePath, hdr.Name)
			}
			if err := writeFile(target, tr, hdr.ModTime); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: %s has unsupported type %c", ErrUnsafePath, hdr.Name, hdr.Typeflag)
		}
	}
}

func targetPath(root, name string) (string, error) {
	clean := path.Clean(strings.TrimSuffix(name, "/"))
	if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	top, _, _ := strings.Cut(clean, "/")
	allowed := false
	for _, dir := range Dirs {
		if top == dir {
			allowed = true
		}
	}
	if !allowed {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	return filepath.Join(root, filepath.FromSlash(clean)), nil
}

func writeFile(target string, r io.Reader, modTime time.Time) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, io.LimitReader(r, maxFileSize)); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if !modTime.IsZero() {
		_ = os.Chtimes(target, modTime, modTime)
	}
	return nil
}

func checkEmpty(root string) error {
	entries, err := os.ReadDir(root)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(entries) > 0 {
		return fmt.Errorf("%w: %s", ErrNotEmpty, root)
	}
	return nil
}
