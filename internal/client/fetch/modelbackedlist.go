package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/omgclient/internal/client/models"
	"github.com/dmitrijs2005/omgclient/internal/client/store"
)

// ItemKeyFunc maps a list item to the key of its own local-store row, the
// same key a single-record fetcher for that item uses.
type ItemKeyFunc[T any] func(T) models.CacheKey

// ModelBackedListFetcher is a ListFetcher whose items are also persisted one
// row per item. The list row holds only the ordered item ids.
//
// Before the first page arrives, the cached ids are read and each item is
// read from its own row, so items cached through another fetcher show up
// straight away. Every page fetched from the service is written back.
type ModelBackedListFetcher[T models.Listable] struct {
	*ListFetcher[T]

	store   store.Store
	itemKey ItemKeyFunc[T]
}

// NewModelBackedListFetcher wraps a non-paginated source.
func NewModelBackedListFetcher[T models.Listable](key models.CacheKey, s store.Store, itemKey ItemKeyFunc[T], load LoadAllFunc[T], opts ...Option) *ModelBackedListFetcher[T] {
	l := NewListFetcher(key, load, opts...)
	return backList(l, s, itemKey)
}

// NewModelBackedPagedListFetcher wraps a paginated source.
func NewModelBackedPagedListFetcher[T models.Listable](key models.CacheKey, s store.Store, itemKey ItemKeyFunc[T], page PageFunc[T], opts ...Option) *ModelBackedListFetcher[T] {
	l := NewPagedListFetcher(key, page, opts...)
	return backList(l, s, itemKey)
}

func backList[T models.Listable](l *ListFetcher[T], s store.Store, itemKey ItemKeyFunc[T]) *ModelBackedListFetcher[T] {
	m := &ModelBackedListFetcher[T]{ListFetcher: l, store: s, itemKey: itemKey}
	l.provisional = m.readLocal
	l.persist = m.writeLocal
	return m
}

func (m *ModelBackedListFetcher[T]) readLocal(ctx context.Context) []T {
	ids, err := store.ReadJSON[[]models.CacheKey](ctx, m.store, m.key)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		m.log.Warn(ctx, "local list read failed", "error", err)
		return nil
	}

	items := make([]T, 0, len(ids))
	for _, k := range ids {
		it, err := store.ReadJSON[T](ctx, m.store, k)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			m.log.Warn(ctx, "local item read failed", "item", k.String(), "error", err)
			continue
		}
		items = append(items, it)
	}
	return items
}

// writeLocal stores the page items one row each, then the ordered item keys
// of the whole result set, in one batch where the store supports it.
func (m *ModelBackedListFetcher[T]) writeLocal(ctx context.Context, page []T) error {
	rows := make(map[models.CacheKey][]byte, len(page)+1)
	for _, it := range page {
		data, err := marshal(it)
		if err != nil {
			return err
		}
		rows[m.itemKey(it)] = data
	}

	results := m.Results()
	keys := make([]models.CacheKey, 0, len(results))
	for _, it := range results {
		keys = append(keys, m.itemKey(it))
	}
	data, err := marshal(keys)
	if err != nil {
		return err
	}
	rows[m.key] = data
	return store.WriteAll(ctx, m.store, rows)
}

// Upsert merges item and writes its row.
func (m *ModelBackedListFetcher[T]) Upsert(ctx context.Context, item T) error {
	m.ListFetcher.Upsert(item)
	return m.writeLocal(ctx, []T{item})
}

// Remove drops the item with id from the results and the cached id list.
// The item row itself is left for any single-record fetcher still using it.
func (m *ModelBackedListFetcher[T]) Remove(ctx context.Context, id string) error {
	m.ListFetcher.Remove(id)
	return m.writeLocal(ctx, nil)
}

func marshal(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: encode: %w", store.ErrLocalStore, err)
	}
	return b, nil
}
