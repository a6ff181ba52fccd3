package store

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/dmitrijs2005/omgclient/internal/client/models"
)

// Serialized wraps a Store so that writes and deletes to the same key never
// run concurrently. Reads are passed straight through.
type Serialized struct {
	Store

	mu    sync.Mutex
	locks map[models.CacheKey]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func NewSerialized(s Store) *Serialized {
	return &Serialized{Store: s, locks: make(map[models.CacheKey]*keyLock)}
}

func (s *Serialized) lock(key models.CacheKey) func() {
	s.mu.Lock()
	l, ok := s.locks[key]
	if !ok {
		l = &keyLock{}
		s.locks[key] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, key)
		}
		s.mu.Unlock()
	}
}

func (s *Serialized) Write(ctx context.Context, key models.CacheKey, data []byte) error {
	unlock := s.lock(key)
	defer unlock()
	return s.Store.Write(ctx, key, data)
}

func (s *Serialized) Delete(ctx context.Context, key models.CacheKey) error {
	unlock := s.lock(key)
	defer unlock()
	return s.Store.Delete(ctx, key)
}

// WriteBatch keeps the inner store's atomic batch when it has one. Per-key
// locks are taken for the whole batch in key order so two batches cannot
// deadlock.
func (s *Serialized) WriteBatch(ctx context.Context, rows map[models.CacheKey][]byte) error {
	keys := sortedKeys(rows)
	for _, k := range keys {
		unlock := s.lock(k)
		defer unlock()
	}
	return WriteAll(ctx, s.Store, rows)
}

func sortedKeys(rows map[models.CacheKey][]byte) []models.CacheKey {
	keys := make([]models.CacheKey, 0, len(rows))
	for k := range rows {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b models.CacheKey) int {
		return strings.Compare(a.String(), b.String())
	})
	return keys
}
