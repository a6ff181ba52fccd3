package fetch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/omgclient/internal/client/models"
	"github.com/dmitrijs2005/omgclient/internal/client/store"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *fakeClock { return &fakeClock{t: t0} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type staticCreds string

func (s staticCreds) Token(context.Context) (string, error) { return string(s), nil }

var errDisk = errors.New("disk full")

// flakyStore fails writes (and optionally reads) on demand.
type flakyStore struct {
	*store.Memory
	mu        sync.Mutex
	failWrite bool
	failRead  bool
}

func newFlakyStore() *flakyStore { return &flakyStore{Memory: store.NewMemory()} }

func (s *flakyStore) set(write, read bool) {
	s.mu.Lock()
	s.failWrite, s.failRead = write, read
	s.mu.Unlock()
}

func (s *flakyStore) Read(ctx context.Context, key models.CacheKey) ([]byte, error) {
	s.mu.Lock()
	fail := s.failRead
	s.mu.Unlock()
	if fail {
		return nil, errors.Join(store.ErrLocalStore, errDisk)
	}
	return s.Memory.Read(ctx, key)
}

func (s *flakyStore) Write(ctx context.Context, key models.CacheKey, data []byte) error {
	s.mu.Lock()
	fail := s.failWrite
	s.mu.Unlock()
	if fail {
		return errors.Join(store.ErrLocalStore, errDisk)
	}
	return s.Memory.Write(ctx, key, data)
}

func (s *flakyStore) Delete(ctx context.Context, key models.CacheKey) error {
	s.mu.Lock()
	fail := s.failWrite
	s.mu.Unlock()
	if fail {
		return errors.Join(store.ErrLocalStore, errDisk)
	}
	return s.Memory.Delete(ctx, key)
}

// WriteBatch hides Memory's batch so every row goes through Write.
func (s *flakyStore) WriteBatch(ctx context.Context, rows map[models.CacheKey][]byte) error {
	for k, v := range rows {
		if err := s.Write(ctx, k, v); err != nil {
			return err
		}
	}
	return nil
}
