// Package local keeps objects as files under a base directory.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"readiness-backend/internal/shared/storage/object"
)

// Store implements object.Store on the local filesystem.
type Store struct {
	baseDir string
}

// New creates a store rooted at baseDir. The directory is created lazily.
func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// SaveUpload writes r under the session's upload directory.
func (s *Store) SaveUpload(ctx context.Context, sessionID, fileName string, r io.Reader) (object.Upload, error) {
	key, err := object.UploadKey(sessionID, fileName)
	if err != nil {
		return object.Upload{}, err
	}
	mimeType, body, err := object.Sniff(r)
	if err != nil {
		return object.Upload{}, err
	}
	size, err := s.Put(ctx, key, mimeType, body)
	if err != nil {
		return object.Upload{}, err
	}
	return object.Upload{Key: key, Size: size, MIMEType: mimeType}, nil
}

// Put writes r at key. The content type is not recorded on disk.
func (s *Store) Put(ctx context.Context, key, _ string, r io.Reader) (int64, error) {
	fullPath, err := s.path(ctx, key)
	if err != nil {
		return 0, err
	}
	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("mkdir: %w", err)
	}

	// Write then rename so readers never observe a partial record.
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	written, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return 0, fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		return 0, fmt.Errorf("rename: %w", err)
	}
	return written, nil
}

// Open opens a stored object for reading.
func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	fullPath, err := s.path(ctx, key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(fullPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("open %s: %w", key, object.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Delete removes a stored object.
func (s *Store) Delete(ctx context.Context, key string) error {
	fullPath, err := s.path(ctx, key)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (s *Store) path(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean, err := object.CleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.baseDir, filepath.FromSlash(clean)), nil
}

var _ object.Store = (*Store)(nil)
