// Package blobstore keeps content-addressed payloads (snapshot documents,
// rendered comparison artifacts) on the filesystem.
//
// Layout: <dir>/<first two hex chars>/<sha256 hex>.
package blobstore

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrNotFound is returned when no blob exists for an id.
var ErrNotFound = errors.New("blob not found")

// Blobstore is a content-addressed store rooted at a directory.
type Blobstore struct {
	dir string
}

// New creates the root directory if needed and returns a Blobstore.
func New(dir string) (*Blobstore, error) {
	if dir == "" {
		return nil, errors.New("blobstore: empty directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create blobs directory: %w", err)
	}
	return &Blobstore{dir: dir}, nil
}

// ID returns the content address of data.
func ID(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Put stores data and returns its id. Storing the same bytes twice is a no-op.
func (b *Blobstore) Put(data []byte) (string, error) {
	id := ID(data)
	p := b.path(id)
	if _, err := os.Stat(p); err == nil {
		return id, nil
	}
	if err := AtomicWriteFile(p, data, 0o644); err != nil {
		return "", fmt.Errorf("write blob %s: %w", id, err)
	}
	return id, nil
}

// Get returns the bytes for id after verifying their hash.
func (b *Blobstore) Get(id string) ([]byte, error) {
	data, err := os.ReadFile(b.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("read blob: %w", err)
	}
	if got := ID(data); got != id {
		return nil, fmt.Errorf("blob integrity check failed: expected %s, got %s", id, got)
	}
	return data, nil
}

// GetReader opens the blob for streaming. The caller closes it.
func (b *Blobstore) GetReader(id string) (io.ReadCloser, error) {
	f, err := os.Open(b.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("open blob: %w", err)
	}
	return f, nil
}

// Exists reports whether a blob is stored under id.
func (b *Blobstore) Exists(id string) bool {
	_, err := os.Stat(b.path(id))
	return err == nil
}

// Delete removes a blob. Deleting a missing blob is not an error.
func (b *Blobstore) Delete(id string) error {
	if err := os.Remove(b.path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}

func (b *Blobstore) path(id string) string {
	// Anything that is not a 64-char hex digest maps to a directory that
	// never holds real blobs.
	if len(id) != sha256.Size*2 {
		return filepath.Join(b.dir, "__invalid__", filepath.Base(id))
	}
	if _, err := hex.DecodeString(id); err != nil {
		return filepath.Join(b.dir, "__invalid__", filepath.Base(id))
	}
	return filepath.Join(b.dir, id[:2], id)
}
