package fetch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/omgclient/internal/client/models"
	"github.com/dmitrijs2005/omgclient/internal/logging"
)

// ErrPanicked wraps a panic recovered from a perform function.
var ErrPanicked = errors.New("fetch panicked")

// FetchState is the observable lifecycle of a Request. Loaded is nil until
// the first fetch attempt completes, whatever its outcome.
type FetchState struct {
	Loading bool
	Loaded  *time.Time
	Err     error
}

// Idle reports whether no fetch has started or completed yet.
func (s FetchState) Idle() bool { return !s.Loading && s.Loaded == nil }

// PerformFunc does the actual work of a fetch.
type PerformFunc func(ctx context.Context) error

// Request is the base state machine shared by every fetcher:
// idle -> loading -> loaded (success or error) -> loading -> ...
//
// The mutex also guards the state of the fetcher that embeds the Request, so
// a transition and the data it publishes are always seen together.
type Request struct {
	key     models.CacheKey
	perform PerformFunc
	policy  models.AutomationPolicy
	now     func() time.Time
	log     logging.Logger

	mu    sync.Mutex
	state FetchState
	// gen is bumped by reset; a fetch started under an older generation
	// does not mark the request as loaded.
	gen uint64

	observers
}

// NewRequest builds a Request around perform.
func NewRequest(key models.CacheKey, perform PerformFunc, opts ...Option) *Request {
	o := buildOptions(opts)
	return newRequest(key, perform, o)
}

func newRequest(key models.CacheKey, perform PerformFunc, o options) *Request {
	return &Request{
		key:     key,
		perform: perform,
		policy:  o.policy,
		now:     o.now,
		log:     o.log.With("key", key.String()),
	}
}

func (r *Request) Key() models.CacheKey { return r.key }

func (r *Request) Policy() models.AutomationPolicy { return r.policy }

// State returns a copy of the current lifecycle state.
func (r *Request) State() FetchState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stateLocked()
}

func (r *Request) stateLocked() FetchState {
	s := r.state
	if s.Loaded != nil {
		t := *s.Loaded
		s.Loaded = &t
	}
	return s
}

func (r *Request) Loading() bool { return r.State().Loading }

func (r *Request) Err() error { return r.State().Err }

// IsStale reports whether UpdateIfNeeded(ctx, false) would fetch.
func (r *Request) IsStale() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.state.Loading && r.policy.IsStale(r.state.Loaded, r.now())
}

// UpdateIfNeeded fetches when force is set or the request is stale, unless a
// fetch is already in flight. It runs in the caller's goroutine and reports
// whether it fetched. Failures are recorded in State().Err, never returned.
func (r *Request) UpdateIfNeeded(ctx context.Context, force bool) bool {
	return r.run(ctx, func() bool {
		return force || r.policy.IsStale(r.state.Loaded, r.now())
	}, r.perform)
}

// OnAppear is what a view calls when it comes on screen: it updates only
// when the policy auto-loads.
func (r *Request) OnAppear(ctx context.Context) bool {
	if !r.policy.AutoLoad {
		return false
	}
	return r.UpdateIfNeeded(ctx, false)
}

// Reset returns the request to idle so the next UpdateIfNeeded fetches.
// A fetch already in flight completes but no longer marks it loaded.
func (r *Request) Reset() {
	r.mu.Lock()
	r.resetLocked()
	r.mu.Unlock()
	r.notify()
}

func (r *Request) resetLocked() {
	r.gen++
	r.state.Loaded = nil
	r.state.Err = nil
}

// run is the guarded transition shared by every kind of fetch. due is
// evaluated with the lock held.
func (r *Request) run(ctx context.Context, due func() bool, perform PerformFunc) bool {
	r.mu.Lock()
	if r.state.Loading || !due() {
		r.mu.Unlock()
		return false
	}
	r.state.Loading = true
	gen := r.gen
	r.mu.Unlock()
	r.notify()

	r.log.Debug(ctx, "fetch started")
	start := r.now()
	err := safePerform(ctx, perform)

	r.mu.Lock()
	r.state.Loading = false
	if gen == r.gen {
		now := r.now()
		r.state.Loaded = &now
		r.state.Err = err
	}
	r.mu.Unlock()

	if err != nil {
		r.log.Warn(ctx, "fetch failed", "error", err)
	} else {
		r.log.Debug(ctx, "fetch finished", "elapsed", r.now().Sub(start))
	}
	r.notify()
	return true
}

func safePerform(ctx context.Context, perform PerformFunc) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrPanicked, p)
		}
	}()
	if perform == nil {
		return nil
	}
	return perform(ctx)
}

// commit applies fn with the lock held and notifies observers afterwards.
func (r *Request) commit(fn func()) {
	r.mu.Lock()
	fn()
	r.mu.Unlock()
	r.notify()
}

// observers is a set of change callbacks.
type observers struct {
	obsMu sync.Mutex
	next  uint64
	fns   map[uint64]func()
}

// Subscribe registers fn to be called after every state change. The returned
// function removes it.
func (o *observers) Subscribe(fn func()) (unsubscribe func()) {
	o.obsMu.Lock()
	defer o.obsMu.Unlock()
	if o.fns == nil {
		o.fns = make(map[uint64]func())
	}
	id := o.next
	o.next++
	o.fns[id] = fn
	return func() {
		o.obsMu.Lock()
		delete(o.fns, id)
		o.obsMu.Unlock()
	}
}

func (o *observers) notify() {
	o.obsMu.Lock()
	fns := make([]func(), 0, len(o.fns))
	for _, fn := range o.fns {
		fns = append(fns, fn)
	}
	o.obsMu.Unlock()
	for _, fn := range fns {
		fn()
	}
}
