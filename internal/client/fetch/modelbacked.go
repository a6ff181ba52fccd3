package fetch

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/omgclient/internal/client/models"
	"github.com/dmitrijs2005/omgclient/internal/client/store"
)

// RemoteFunc loads the authoritative copy of a single record.
type RemoteFunc[T any] func(ctx context.Context) (T, error)

// ModelBackedFetcher keeps one record, reading the local store before the
// service and writing the service's copy back. The remote copy always wins;
// the local one is only a placeholder until it arrives or when it fails.
//
// A nil store makes it a plain remote fetcher.
type ModelBackedFetcher[T any] struct {
	*Request

	store  store.Store
	remote RemoteFunc[T]

	// guarded by Request.mu
	result *T
	local  bool
}

func NewModelBackedFetcher[T any](key models.CacheKey, s store.Store, remote RemoteFunc[T], opts ...Option) *ModelBackedFetcher[T] {
	f := &ModelBackedFetcher[T]{store: s, remote: remote}
	f.Request = newRequest(key, f.fetch, buildOptions(opts))
	return f
}

func (f *ModelBackedFetcher[T]) fetch(ctx context.Context) error {
	f.mu.Lock()
	gen := f.gen
	f.mu.Unlock()

	if f.store != nil {
		f.readLocal(ctx, gen)
	}

	v, err := f.remote(ctx)
	if err != nil {
		return err
	}
	current := false
	f.commit(func() {
		if gen != f.gen {
			return
		}
		current = true
		f.result = &v
		f.local = false
	})

	// A Forget during the fetch wins over its result.
	if f.store == nil || !current {
		return nil
	}
	return store.WriteJSON(ctx, f.store, f.key, v)
}

// readLocal publishes the cached copy, but only while nothing better is
// shown, so the displayed value never goes from fresh back to cached.
func (f *ModelBackedFetcher[T]) readLocal(ctx context.Context, gen uint64) {
	f.mu.Lock()
	have := f.result != nil
	f.mu.Unlock()
	if have {
		return
	}

	v, err := store.ReadJSON[T](ctx, f.store, f.key)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return
	case err != nil:
		f.log.Warn(ctx, "local read failed", "error", err)
		return
	}
	f.commit(func() {
		if f.result == nil && gen == f.gen {
			f.result = &v
			f.local = true
		}
	})
}

// Result returns the current record and whether there is one.
func (f *ModelBackedFetcher[T]) Result() (T, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.result == nil {
		var zero T
		return zero, false
	}
	return *f.result, true
}

// FromCache reports whether the shown result came from the local store and
// has not been confirmed by the service yet.
func (f *ModelBackedFetcher[T]) FromCache() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result != nil && f.local
}

// Set replaces the result and the cached copy, e.g. after a publish.
func (f *ModelBackedFetcher[T]) Set(ctx context.Context, v T) error {
	f.commit(func() {
		f.result = &v
		f.local = false
	})
	if f.store == nil {
		return nil
	}
	return store.WriteJSON(ctx, f.store, f.key, v)
}

// Forget drops the result and the cached copy, e.g. after the record was
// deleted on the service. The fetcher is left idle.
func (f *ModelBackedFetcher[T]) Forget(ctx context.Context) error {
	f.commit(func() {
		f.resetLocked()
		f.result = nil
		f.local = false
	})
	if f.store == nil {
		return nil
	}
	if err := f.store.Delete(ctx, f.key); err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	return nil
}
