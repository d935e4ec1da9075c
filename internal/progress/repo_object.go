package progress

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"readiness-backend/internal/shared/storage/object"
)

// ObjectRepo stores one JSON object per key in an object store (local
// filesystem or S3).
type ObjectRepo struct {
	store object.Store
}

// NewObjectRepo wraps store.
func NewObjectRepo(store object.Store) *ObjectRepo {
	return &ObjectRepo{store: store}
}

func (r *ObjectRepo) Save(ctx context.Context, key string, rec Record) error {
	data, err := Encode(rec)
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}
	if _, err := r.store.Put(ctx, object.ProgressKey(key), "application/json", bytes.NewReader(data)); err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

func (r *ObjectRepo) Load(ctx context.Context, key string) (Record, error) {
	body, err := r.store.Open(ctx, object.ProgressKey(key))
	if errors.Is(err, object.ErrNotFound) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("load progress: %w", err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return Record{}, fmt.Errorf("read progress: %w", err)
	}
	return Decode(data)
}

func (r *ObjectRepo) Delete(ctx context.Context, key string) error {
	if err := r.store.Delete(ctx, object.ProgressKey(key)); err != nil {
		return fmt.Errorf("delete progress: %w", err)
	}
	return nil
}

var _ Repo = (*ObjectRepo)(nil)
