package fetch

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/dmitrijs2005/omgclient/internal/client/models"
)

// PageQuery is what a page source is asked for.
type PageQuery struct {
	// Cursor is empty for the first page.
	Cursor  string
	Limit   int
	Filters models.FilterSet
	Sort    models.SortOrder
}

// Page is one slice of a collection. An empty Next means there are no
// more pages.
type Page[T any] struct {
	Items []T
	Next  string
}

// PageFunc loads one page of a collection.
type PageFunc[T any] func(ctx context.Context, q PageQuery) (Page[T], error)

// LoadAllFunc loads a whole, non-paginated collection.
type LoadAllFunc[T any] func(ctx context.Context) ([]T, error)

// ListFetcher is a filterable, sortable collection. Results are kept in
// fetch/merge order; Display derives the presentation order.
//
// For sources built with NewListFetcher, changing filters or sort only
// changes Display. For paginated sources the results are dropped and the
// first page is refetched on the next UpdateIfNeeded, because the source
// pages with the filters and sort applied.
type ListFetcher[T models.Listable] struct {
	*Request

	page      PageFunc[T]
	limit     int
	paginated bool

	// Optional hooks used by ModelBackedListFetcher.
	provisional func(ctx context.Context) []T
	persist     func(ctx context.Context, items []T) error

	// guarded by Request.mu
	results []T
	index   map[string]int
	next    string
	paged   bool
	filters models.FilterSet
	sort    models.SortOrder
}

// NewListFetcher wraps a source that returns the whole collection at once.
func NewListFetcher[T models.Listable](key models.CacheKey, load LoadAllFunc[T], opts ...Option) *ListFetcher[T] {
	page := func(ctx context.Context, _ PageQuery) (Page[T], error) {
		items, err := load(ctx)
		return Page[T]{Items: items}, err
	}
	return newListFetcher(key, page, false, buildOptions(opts))
}

// NewPagedListFetcher wraps a paginated source.
func NewPagedListFetcher[T models.Listable](key models.CacheKey, page PageFunc[T], opts ...Option) *ListFetcher[T] {
	return newListFetcher(key, page, true, buildOptions(opts))
}

func newListFetcher[T models.Listable](key models.CacheKey, page PageFunc[T], paginated bool, o options) *ListFetcher[T] {
	l := &ListFetcher[T]{
		page:      page,
		limit:     o.limit,
		paginated: paginated,
		sort:      models.SortNewestFirst,
	}
	l.Request = newRequest(key, l.fetchFirst, o)
	return l
}

func (l *ListFetcher[T]) query(cursor string) PageQuery {
	return PageQuery{Cursor: cursor, Limit: l.limit, Filters: l.filters, Sort: l.sort}
}

func (l *ListFetcher[T]) fetchFirst(ctx context.Context) error {
	l.mu.Lock()
	gen := l.gen
	q := l.query("")
	empty := len(l.results) == 0
	l.mu.Unlock()

	if empty && l.provisional != nil {
		if items := l.provisional(ctx); len(items) > 0 {
			l.commit(func() {
				if gen == l.gen && len(l.results) == 0 {
					l.replaceLocked(items)
				}
			})
		}
	}

	p, err := l.page(ctx, q)
	if err != nil {
		return err
	}
	stale := false
	l.commit(func() {
		if gen != l.gen {
			stale = true
			return
		}
		l.replaceLocked(p.Items)
		l.next = p.Next
		l.paged = true
	})
	if stale || l.persist == nil {
		return nil
	}
	return l.persist(ctx, p.Items)
}

// FetchNextPageIfNeeded loads the next page when one exists and nothing is
// in flight. New items are appended; items already present are updated in
// place. It reports whether a fetch ran.
func (l *ListFetcher[T]) FetchNextPageIfNeeded(ctx context.Context) bool {
	var (
		gen uint64
		q   PageQuery
	)
	return l.run(ctx, func() bool {
		if !l.paged || l.next == "" {
			return false
		}
		gen = l.gen
		q = l.query(l.next)
		return true
	}, func(ctx context.Context) error {
		p, err := l.page(ctx, q)
		if err != nil {
			return err
		}
		stale := false
		l.commit(func() {
			if gen != l.gen {
				stale = true
				return
			}
			l.mergeLocked(p.Items)
			l.next = p.Next
		})
		if stale || l.persist == nil {
			return nil
		}
		return l.persist(ctx, p.Items)
	})
}

func (l *ListFetcher[T]) replaceLocked(items []T) {
	l.results = nil
	l.index = make(map[string]int, len(items))
	l.mergeLocked(items)
}

func (l *ListFetcher[T]) mergeLocked(items []T) {
	if l.index == nil {
		l.index = make(map[string]int, len(items))
	}
	for _, it := range items {
		id := it.ListID()
		if i, ok := l.index[id]; ok {
			l.results[i] = it
			continue
		}
		l.index[id] = len(l.results)
		l.results = append(l.results, it)
	}
}

// HasMorePages reports whether FetchNextPageIfNeeded has anything to load.
func (l *ListFetcher[T]) HasMorePages() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.paged && l.next != ""
}

// Results returns the unfiltered items in fetch order.
func (l *ListFetcher[T]) Results() []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.results)
}

func (l *ListFetcher[T]) HasContent() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.results) > 0
}

// NoContent distinguishes a confirmed empty list from one still loading.
func (l *ListFetcher[T]) NoContent() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return !l.state.Loading && l.state.Loaded != nil && len(l.results) == 0
}

func (l *ListFetcher[T]) Filters() models.FilterSet {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.filters)
}

func (l *ListFetcher[T]) Sort() models.SortOrder {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sort
}

// SetFilters replaces the active filter set.
func (l *ListFetcher[T]) SetFilters(fs models.FilterSet) {
	l.commit(func() {
		if l.filters.Equal(fs) {
			return
		}
		l.filters = slices.Clone(fs)
		l.resetPagesLocked()
	})
}

// AddFilter adds o, replacing any option with the same tag.
func (l *ListFetcher[T]) AddFilter(o models.FilterOption) {
	l.SetFilters(l.Filters().With(o))
}

func (l *ListFetcher[T]) RemoveFilter(tag models.FilterTag) {
	l.SetFilters(l.Filters().Without(tag))
}

func (l *ListFetcher[T]) SetSort(s models.SortOrder) {
	l.commit(func() {
		if l.sort == s && s != models.SortShuffle {
			return
		}
		l.sort = s
		l.resetPagesLocked()
	})
}

func (l *ListFetcher[T]) resetPagesLocked() {
	if !l.paginated {
		return
	}
	l.results = nil
	l.index = nil
	l.next = ""
	l.paged = false
	l.resetLocked()
}

// Display returns the results that pass every active filter against acct,
// in the active sort order. acct may be nil.
func (l *ListFetcher[T]) Display(acct models.AccountContext) []T {
	l.mu.Lock()
	items := slices.Clone(l.results)
	filters := l.filters
	order := l.sort
	now := l.now()
	l.mu.Unlock()

	out := items[:0]
	for _, it := range items {
		if filters.Match(it, acct, now) {
			out = append(out, it)
		}
	}
	SortItems(out, order)
	return out
}

// SortItems orders items in place. Shuffle draws a new order on every call.
func SortItems[T models.Listable](items []T, order models.SortOrder) {
	switch order {
	case models.SortAlphabetical:
		slices.SortStableFunc(items, func(a, b T) int {
			return strings.Compare(strings.ToLower(a.SortKey()), strings.ToLower(b.SortKey()))
		})
	case models.SortNewestFirst:
		slices.SortStableFunc(items, func(a, b T) int { return b.FilterDate().Compare(a.FilterDate()) })
	case models.SortOldestFirst:
		slices.SortStableFunc(items, func(a, b T) int { return a.FilterDate().Compare(b.FilterDate()) })
	case models.SortShuffle:
		rand.Shuffle(len(items), func(i, j int) { items[i], items[j] = items[j], items[i] })
	}
}

// Upsert merges item into the results, e.g. after a draft was published.
func (l *ListFetcher[T]) Upsert(item T) {
	l.commit(func() { l.mergeLocked([]T{item}) })
}

// Remove drops the item with the given ListID.
func (l *ListFetcher[T]) Remove(id string) {
	l.commit(func() {
		i, ok := l.index[id]
		if !ok {
			return
		}
		l.results = slices.Delete(l.results, i, i+1)
		delete(l.index, id)
		for k, j := range l.index {
			if j > i {
				l.index[k] = j - 1
			}
		}
	})
}

var errBadCursor = errors.New("bad page cursor")

// Paginate adapts a non-paginated source into pages of q.Limit items. The
// first page takes a snapshot; later pages slice it, so the cursor stays
// consistent even if the remote collection changes in between.
func Paginate[T any](load LoadAllFunc[T]) PageFunc[T] {
	var (
		mu   sync.Mutex
		snap []T
	)
	return func(ctx context.Context, q PageQuery) (Page[T], error) {
		mu.Lock()
		defer mu.Unlock()

		off := 0
		if q.Cursor == "" {
			items, err := load(ctx)
			if err != nil {
				return Page[T]{}, err
			}
			snap = items
		} else {
			n, err := strconv.Atoi(q.Cursor)
			if err != nil || n < 0 || n > len(snap) {
				return Page[T]{}, fmt.Errorf("%w: %q", errBadCursor, q.Cursor)
			}
			off = n
		}

		end := len(snap)
		if q.Limit > 0 && off+q.Limit < end {
			end = off + q.Limit
		}
		p := Page[T]{Items: slices.Clone(snap[off:end])}
		if end < len(snap) {
			p.Next = strconv.Itoa(end)
		}
		return p, nil
	}
}
