package object

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by Open when no object exists under the key.
var ErrNotFound = errors.New("object not found")

// Upload describes a stored resume upload.
type Upload struct {
	Key      string
	Size     int64
	MIMEType string
}

// Store holds resume uploads, the text extracted from them and persisted
// progress records. Keys are slash separated and relative.
type Store interface {
	// SaveUpload stores r under a fresh key in the session's upload area.
	SaveUpload(ctx context.Context, sessionID, fileName string, r io.Reader) (Upload, error)
	// Put writes r under key, replacing any previous object.
	Put(ctx context.Context, key, contentType string, r io.Reader) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes the object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
