package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/omgclient/internal/client/models"
)

var (
	ErrNotFound   = errors.New("record not found")
	ErrLocalStore = errors.New("local store failure")
)

// Store is a keyed persistence layer, one record per key.
type Store interface {
	// Read returns the payload stored under key, or ErrNotFound.
	Read(ctx context.Context, key models.CacheKey) ([]byte, error)
	// Write replaces whatever is stored under key.
	Write(ctx context.Context, key models.CacheKey, data []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key models.CacheKey) error
	// List returns the keys stored for kind, in no particular order.
	List(ctx context.Context, kind models.Kind) ([]models.CacheKey, error)
	Close() error
}

// Batcher is implemented by stores that can write several rows atomically.
type Batcher interface {
	WriteBatch(ctx context.Context, rows map[models.CacheKey][]byte) error
}

// WriteAll writes rows through Batcher when s supports it, otherwise one by one.
func WriteAll(ctx context.Context, s Store, rows map[models.CacheKey][]byte) error {
	if len(rows) == 0 {
		return nil
	}
	if b, ok := s.(Batcher); ok {
		return b.WriteBatch(ctx, rows)
	}
	for k, v := range rows {
		if err := s.Write(ctx, k, v); err != nil {
			return err
		}
	}
	return nil
}

// ReadJSON decodes the record under key into a T.
func ReadJSON[T any](ctx context.Context, s Store, key models.CacheKey) (T, error) {
	var v T
	data, err := s.Read(ctx, key)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("%w: decode %s: %w", ErrLocalStore, key, err)
	}
	return v, nil
}

// WriteJSON encodes v and stores it under key.
func WriteJSON(ctx context.Context, s Store, key models.CacheKey, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %w", ErrLocalStore, key, err)
	}
	return s.Write(ctx, key, data)
}

func wrap(op string, key models.CacheKey, err error) error {
	return fmt.Errorf("%w: %s %s: %w", ErrLocalStore, op, key, err)
}
