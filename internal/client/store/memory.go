package store

import (
	"bytes"
	"context"
	"sync"

	"github.com/dmitrijs2005/omgclient/internal/client/models"
)

// Memory is an in-process Store. The zero value is not usable; use NewMemory.
type Memory struct {
	mu   sync.RWMutex
	rows map[models.CacheKey][]byte
}

func NewMemory() *Memory {
	return &Memory{rows: make(map[models.CacheKey][]byte)}
}

func (m *Memory) Read(ctx context.Context, key models.CacheKey) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, wrap("read", key, err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.rows[key]
	if !ok {
		return nil, ErrNotFound
	}
	return bytes.Clone(v), nil
}

func (m *Memory) Write(ctx context.Context, key models.CacheKey, data []byte) error {
	if err := ctx.Err(); err != nil {
		return wrap("write", key, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[key] = bytes.Clone(data)
	return nil
}

func (m *Memory) WriteBatch(ctx context.Context, rows map[models.CacheKey][]byte) error {
	if err := ctx.Err(); err != nil {
		return wrap("write batch", models.CacheKey{}, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range rows {
		m.rows[k] = bytes.Clone(v)
	}
	return nil
}

func (m *Memory) Delete(ctx context.Context, key models.CacheKey) error {
	if err := ctx.Err(); err != nil {
		return wrap("delete", key, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, key)
	return nil
}

func (m *Memory) List(ctx context.Context, kind models.Kind) ([]models.CacheKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var keys []models.CacheKey
	for k := range m.rows {
		if k.Kind == kind {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// Len reports the number of stored rows.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rows)
}

func (m *Memory) Close() error { return nil }
