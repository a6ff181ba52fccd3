package fetch

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/omgclient/internal/client/api"
	"github.com/dmitrijs2005/omgclient/internal/client/models"
	"github.com/dmitrijs2005/omgclient/internal/client/store"
	"github.com/dmitrijs2005/omgclient/internal/logging"
)

var (
	// ErrNotPublishable is returned, before any network call, for a draft
	// missing required fields.
	ErrNotPublishable = errors.New("draft is not publishable")
	ErrPosterBusy     = errors.New("draft is being saved or published")
	// ErrNotPublished is returned by DeleteLatestDraft before a successful
	// publish.
	ErrNotPublished = errors.New("draft has not been published")
	// ErrNotStaged is returned by Publish when the current draft has not
	// been saved locally since its last change.
	ErrNotStaged = errors.New("draft is not staged")
)

// PosterState is the phase of a DraftPoster.
type PosterState string

const (
	PosterEditing       PosterState = "editing"
	PosterSavingLocal   PosterState = "saving-local"
	PosterPublishing    PosterState = "publishing"
	PosterPublished     PosterState = "published"
	PosterPublishFailed PosterState = "publish-failed"
	PosterCleanup       PosterState = "cleanup"
)

func (s PosterState) busy() bool {
	return s == PosterSavingLocal || s == PosterPublishing || s == PosterCleanup
}

// CredentialFunc returns the credential used for writes.
type CredentialFunc func(ctx context.Context) (string, error)

// PosterConfig wires a DraftPoster to its store and service calls.
type PosterConfig[D models.Draft, R any] struct {
	// Key is where the draft is staged.
	Key   models.CacheKey
	Store store.Store
	// Seed is the record being edited, or a blank draft for a new one.
	Seed       D
	Publish    func(ctx context.Context, d D, credential string) (R, error)
	Credential CredentialFunc
	// Delete removes the remote record a renamed draft replaces. Nil for
	// kinds that cannot be renamed.
	Delete func(ctx context.Context, previous D, credential string) error
	// Blank builds the next draft after a successful publish. The default
	// is the zero D.
	Blank func(published D) D
}

// PublishEvent is passed to OnPublished hooks.
type PublishEvent[D models.Draft, R any] struct {
	Draft  D
	Result R
}

type stagedDraft[D any] struct {
	Draft    D `json:"draft"`
	Original D `json:"original"`
	Remote   D `json:"remote"`
}

type publishedSession[D any] struct {
	original  D
	published D
}

// DraftPoster is the write path for one draft: stage locally, publish, then
// clear the staged copy. A staged draft is only deleted after the service
// confirmed the publish.
type DraftPoster[D models.Draft, R any] struct {
	cfg PosterConfig[D, R]
	log logging.Logger

	submitMu sync.Mutex

	mu       sync.Mutex
	state    PosterState
	draft    D
	original D
	// remote is what the service currently holds for this draft, the target
	// of a rename delete.
	remote D
	last   *publishedSession[D]
	result *R
	err    error
	hooks  []func(context.Context, PublishEvent[D, R])
	// replacedHooks run once the record a rename replaces is deleted.
	replacedHooks []func(context.Context, D)

	// rev counts draft changes; staged is true while the store holds the
	// draft as of rev.
	rev    uint64
	staged bool

	observers
}

func NewDraftPoster[D models.Draft, R any](cfg PosterConfig[D, R], opts ...Option) *DraftPoster[D, R] {
	o := buildOptions(opts)
	if cfg.Blank == nil {
		cfg.Blank = func(D) D {
			var zero D
			return zero
		}
	}
	p := &DraftPoster[D, R]{
		cfg:      cfg,
		log:      o.log.With("draft", cfg.Key.String()),
		state:    PosterEditing,
		draft:    cfg.Seed,
		original: cfg.Seed,
	}
	if cfg.Seed.Identity() != "" {
		p.remote = cfg.Seed
	}
	return p
}

func (p *DraftPoster[D, R]) Key() models.CacheKey { return p.cfg.Key }

func (p *DraftPoster[D, R]) State() PosterState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *DraftPoster[D, R]) Draft() D {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.draft
}

// Original is the snapshot the current edit started from.
func (p *DraftPoster[D, R]) Original() D {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.original
}

// Result returns the record produced by the last successful publish.
func (p *DraftPoster[D, R]) Result() (R, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.result == nil {
		var zero R
		return zero, false
	}
	return *p.result, true
}

func (p *DraftPoster[D, R]) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// OnPublished registers fn to run after every successful publish.
func (p *DraftPoster[D, R]) OnPublished(fn func(context.Context, PublishEvent[D, R])) {
	p.mu.Lock()
	p.hooks = append(p.hooks, fn)
	p.mu.Unlock()
}

// OnReplaced registers fn to run when a rename has deleted the record under
// the previous name, whether or not the publish that follows succeeds.
func (p *DraftPoster[D, R]) OnReplaced(fn func(ctx context.Context, previous D)) {
	p.mu.Lock()
	p.replacedHooks = append(p.replacedHooks, fn)
	p.mu.Unlock()
}

// changedLocked marks the draft as differing from the staged copy.
func (p *DraftPoster[D, R]) changedLocked() {
	p.rev++
	p.staged = false
}

func (p *DraftPoster[D, R]) commit(fn func()) {
	p.mu.Lock()
	fn()
	p.mu.Unlock()
	p.notify()
}

// SetDraft replaces the draft without staging it.
func (p *DraftPoster[D, R]) SetDraft(d D) error {
	var err error
	p.commit(func() {
		if p.state.busy() {
			err = ErrPosterBusy
			return
		}
		p.draft = d
		p.state = PosterEditing
		p.changedLocked()
	})
	return err
}

// Edit applies fn to the draft and stages the result.
func (p *DraftPoster[D, R]) Edit(ctx context.Context, fn func(*D)) error {
	var err error
	p.commit(func() {
		if p.state.busy() {
			err = ErrPosterBusy
			return
		}
		fn(&p.draft)
		p.state = PosterEditing
		p.changedLocked()
	})
	if err != nil {
		return err
	}
	return p.SaveDraft(ctx)
}

// SaveDraft stages the current draft in the local store. It returns only
// once the write is durable.
func (p *DraftPoster[D, R]) SaveDraft(ctx context.Context) error {
	var (
		staged stagedDraft[D]
		rev    uint64
		busy   bool
	)
	p.commit(func() {
		if p.state.busy() {
			busy = true
			return
		}
		p.state = PosterSavingLocal
		staged = stagedDraft[D]{Draft: p.draft, Original: p.original, Remote: p.remote}
		rev = p.rev
	})
	if busy {
		return ErrPosterBusy
	}

	err := store.WriteJSON(ctx, p.cfg.Store, p.cfg.Key, staged)
	if err != nil {
		p.log.Warn(ctx, "stage draft failed", "error", err)
	}
	p.commit(func() {
		p.state = PosterEditing
		p.err = err
		if err == nil && rev == p.rev {
			p.staged = true
		}
	})
	return err
}

// Publish sends the draft to the service. The draft must have been staged
// with SaveDraft since its last change, otherwise ErrNotStaged is returned
// before any network call. A renamed draft first deletes the record under
// its previous name. On failure the draft and its staged copy are left
// untouched.
func (p *DraftPoster[D, R]) Publish(ctx context.Context) (R, error) {
	var (
		d, prev D
		err     error
	)
	p.commit(func() {
		if p.state.busy() {
			err = ErrPosterBusy
			return
		}
		if !p.draft.Publishable() {
			err = ErrNotPublishable
			p.err = err
			return
		}
		if !p.staged {
			err = ErrNotStaged
			p.err = err
			return
		}
		d, prev = p.draft, p.remote
		p.state = PosterPublishing
		p.err = nil
	})
	if err != nil {
		var r R
		return r, err
	}

	r, err := p.send(ctx, d, prev)
	if err != nil {
		p.log.Warn(ctx, "publish failed", "error", err)
		p.commit(func() {
			p.state = PosterPublishFailed
			p.err = err
		})
		p.commit(func() { p.state = PosterEditing })
		return r, err
	}

	var hooks []func(context.Context, PublishEvent[D, R])
	p.commit(func() {
		p.state = PosterPublished
		p.result = &r
		p.remote = d
		p.last = &publishedSession[D]{original: p.original, published: d}
		hooks = append(hooks, p.hooks...)
	})
	ev := PublishEvent[D, R]{Draft: d, Result: r}
	for _, fn := range hooks {
		fn(ctx, ev)
	}
	p.log.Info(ctx, "draft published", "identity", d.Identity())
	return r, nil
}

func renamed[D models.Draft](prev, d D) bool {
	return prev.Identity() != "" && prev.Identity() != d.Identity()
}

func (p *DraftPoster[D, R]) send(ctx context.Context, d, prev D) (R, error) {
	var zero R
	cred := ""
	if p.cfg.Credential != nil {
		c, err := p.cfg.Credential(ctx)
		if err != nil {
			return zero, fmt.Errorf("credential: %w", err)
		}
		cred = c
	}

	if p.cfg.Delete != nil && renamed(prev, d) {
		err := p.cfg.Delete(ctx, prev, cred)
		if err != nil && !errors.Is(err, api.ErrNotFound) {
			return zero, fmt.Errorf("delete %q: %w", prev.Identity(), err)
		}
		// The old record is gone; a retry must not delete it again.
		p.mu.Lock()
		var none D
		p.remote = none
		hooks := append([]func(context.Context, D){}, p.replacedHooks...)
		p.mu.Unlock()
		for _, fn := range hooks {
			fn(ctx, prev)
		}
	}
	return p.cfg.Publish(ctx, d, cred)
}

// DeleteLatestDraft removes the staged copy after a successful publish and
// starts a new draft.
func (p *DraftPoster[D, R]) DeleteLatestDraft(ctx context.Context) error {
	var (
		published D
		err       error
	)
	p.commit(func() {
		if p.state != PosterPublished {
			err = ErrNotPublished
			return
		}
		p.state = PosterCleanup
		published = p.remote
	})
	if err != nil {
		return err
	}

	if err := p.cfg.Store.Delete(ctx, p.cfg.Key); err != nil {
		p.commit(func() {
			p.state = PosterPublished
			p.err = err
		})
		return err
	}
	p.commit(func() {
		var none D
		next := p.cfg.Blank(published)
		p.draft = next
		p.original = next
		p.remote = none
		if next.Identity() != "" {
			p.remote = next
		}
		p.state = PosterEditing
		p.err = nil
		p.changedLocked()
	})
	return nil
}

// Submit runs the whole write path: stage, publish, clear the staged copy.
// It is also how a failed publish is retried.
func (p *DraftPoster[D, R]) Submit(ctx context.Context) (R, error) {
	var zero R
	if !p.submitMu.TryLock() {
		return zero, ErrPosterBusy
	}
	defer p.submitMu.Unlock()

	if !p.Draft().Publishable() {
		p.commit(func() { p.err = ErrNotPublishable })
		return zero, ErrNotPublishable
	}
	if err := p.SaveDraft(ctx); err != nil {
		return zero, err
	}
	r, err := p.Publish(ctx)
	if err != nil {
		return zero, err
	}
	if err := p.DeleteLatestDraft(ctx); err != nil {
		return r, fmt.Errorf("published but staged draft kept: %w", err)
	}
	return r, nil
}

// Undo reverts to the snapshot the last published edit started from, or,
// when nothing was published yet, to the current original, and submits it.
func (p *DraftPoster[D, R]) Undo(ctx context.Context) (R, error) {
	var err error
	p.commit(func() {
		if p.state.busy() {
			err = ErrPosterBusy
			return
		}
		if p.last != nil {
			p.draft = p.last.original
			p.original = p.last.original
			p.remote = p.last.published
			p.changedLocked()
			return
		}
		p.draft = p.original
		p.changedLocked()
	})
	if err != nil {
		var zero R
		return zero, err
	}
	return p.Submit(ctx)
}

// Restore loads a draft staged by an earlier run. It reports whether one
// was found.
func (p *DraftPoster[D, R]) Restore(ctx context.Context) (bool, error) {
	staged, err := store.ReadJSON[stagedDraft[D]](ctx, p.cfg.Store, p.cfg.Key)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	p.commit(func() {
		p.draft = staged.Draft
		p.original = staged.Original
		p.remote = staged.Remote
		p.state = PosterEditing
		p.rev++
		p.staged = true
	})
	return true, nil
}

// Discard drops the staged copy and reverts the draft to its original.
func (p *DraftPoster[D, R]) Discard(ctx context.Context) error {
	if p.State().busy() {
		return ErrPosterBusy
	}
	if err := p.cfg.Store.Delete(ctx, p.cfg.Key); err != nil {
		return err
	}
	p.commit(func() {
		p.draft = p.original
		p.state = PosterEditing
		p.err = nil
		p.changedLocked()
	})
	return nil
}

// HasStagedDraft reports whether a draft is staged in the local store.
func (p *DraftPoster[D, R]) HasStagedDraft(ctx context.Context) (bool, error) {
	_, err := p.cfg.Store.Read(ctx, p.cfg.Key)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}
