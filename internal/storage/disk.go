// Package storage keeps attachment bytes on the local filesystem.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrBlobNotFound is returned when the named blob is absent from disk.
	ErrBlobNotFound = errors.New("blob not found")
	// ErrTooLarge is returned when the stream exceeds the size limit passed to Save.
	ErrTooLarge = errors.New("blob exceeds size limit")
	// ErrInvalidName is returned for names that are not a single path element.
	ErrInvalidName = errors.New("invalid blob name")
)

// BlobStore persists opaque byte streams under generated names.
type BlobStore interface {
	Save(ctx context.Context, name string, r io.Reader, limit int64) (int64, error)
	Open(name string) (io.ReadCloser, error)
	Remove(name string) error
	Path(name string) string
}

// DiskStore writes blobs into a single directory.
type DiskStore struct {
	dir string
}

// NewDiskStore returns a store rooted at dir. The directory is created lazily.
func NewDiskStore(dir string) *DiskStore {
	return &DiskStore{dir: filepath.Clean(dir)}
}

// Dir returns the root directory.
func (s *DiskStore) Dir() string {
	return s.dir
}

// Path returns where name is stored.
func (s *DiskStore) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// Save streams r to disk and returns the number of bytes written. A limit <= 0
// disables the check. On any error the partial file is removed.
func (s *DiskStore) Save(ctx context.Context, name string, r io.Reader, limit int64) (int64, error) {
	if err := validName(name); err != nil {
		return 0, err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return 0, fmt.Errorf("create upload dir: %w", err)
	}

	f, err := os.OpenFile(s.Path(name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return 0, fmt.Errorf("create blob: %w", err)
	}

	src := r
	if limit > 0 {
		src = io.LimitReader(r, limit+1)
	}
	written, copyErr := io.Copy(f, &ctxReader{ctx: ctx, r: src})
	closeErr := f.Close()

	switch {
	case copyErr != nil:
		err = fmt.Errorf("write blob: %w", copyErr)
	case closeErr != nil:
		err = fmt.Errorf("close blob: %w", closeErr)
	case limit > 0 && written > limit:
		err = ErrTooLarge
	}
	if err != nil {
		_ = os.Remove(s.Path(name))
		return 0, err
	}
	return written, nil
}

// Open returns a reader for name or ErrBlobNotFound.
func (s *DiskStore) Open(name string) (io.ReadCloser, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	f, err := os.Open(s.Path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrBlobNotFound
		}
		return nil, err
	}
	return f, nil
}

// Remove deletes name. A missing blob is not an error.
func (s *DiskStore) Remove(name string) error {
	if err := validName(name); err != nil {
		return err
	}
	if err := os.Remove(s.Path(name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return ErrInvalidName
	}
	return nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
