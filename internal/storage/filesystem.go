// Package storage persists uploaded document binaries. Blobs are keyed by
// document id plus original extension, never by the user-supplied filename.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// BlobStore is a filesystem-backed binary store rooted at one directory.
type BlobStore struct {
	root string
}

func NewBlobStore(root string) (*BlobStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &BlobStore{root: root}, nil
}

func (s *BlobStore) path(documentID, ext string) string {
	return filepath.Join(s.root, documentID+ext)
}

// Write persists content and returns the storage path recorded on the
// document row.
func (s *BlobStore) Write(ctx context.Context, documentID, ext string, content []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path := s.path(documentID, ext)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("write blob %s: %w", path, err)
	}
	return path, nil
}

func (s *BlobStore) Read(ctx context.Context, documentID, ext string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	content, err := os.ReadFile(s.path(documentID, ext))
	if err != nil {
		return nil, fmt.Errorf("read blob: %w", err)
	}
	return content, nil
}

// Delete removes the blob; a missing blob is not an error.
func (s *BlobStore) Delete(ctx context.Context, documentID, ext string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := os.Remove(s.path(documentID, ext))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}

func (s *BlobStore) Exists(ctx context.Context, documentID, ext string) bool {
	if ctx.Err() != nil {
		return false
	}

	_, err := os.Stat(s.path(documentID, ext))
	return err == nil
}
