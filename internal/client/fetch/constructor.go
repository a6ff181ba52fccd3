package fetch

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/dmitrijs2005/omgclient/internal/client/api"
	"github.com/dmitrijs2005/omgclient/internal/client/models"
	"github.com/dmitrijs2005/omgclient/internal/client/store"
	"github.com/dmitrijs2005/omgclient/internal/logging"
)

// Credentials supplies the session credential. An empty token with a nil
// error means signed out.
type Credentials interface {
	Token(ctx context.Context) (string, error)
}

// StatusLogPageSize is the page size of the global status log.
const StatusLogPageSize = 50

// newDraftID stands in for the identity of a draft that has none yet.
const newDraftID = "new"

// Constructor builds fetchers and posters and keeps exactly one per
// CacheKey for the life of the process. Building never touches the network.
type Constructor struct {
	api   api.Interface
	store store.Store
	creds Credentials
	opts  []Option
	log   logging.Logger

	mu   sync.Mutex
	memo map[models.CacheKey]any
}

func NewConstructor(remote api.Interface, s store.Store, creds Credentials, opts ...Option) *Constructor {
	o := buildOptions(opts)
	return &Constructor{
		api:   remote,
		store: s,
		creds: creds,
		opts:  opts,
		log:   o.log,
		memo:  make(map[models.CacheKey]any),
	}
}

// lookup returns the instance memoized under key, building it on first use.
// build runs with the lock held, so racing callers get the same instance.
func lookup[F any](c *Constructor, key models.CacheKey, build func() F) F {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.memo[key]; ok {
		return v.(F)
	}
	f := build()
	c.memo[key] = f
	return f
}

// Len reports how many instances are memoized.
func (c *Constructor) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.memo)
}

func (c *Constructor) token(ctx context.Context) string {
	if c.creds == nil {
		return ""
	}
	t, err := c.creds.Token(ctx)
	if err != nil {
		c.log.Warn(ctx, "credential unavailable", "error", err)
		return ""
	}
	return t
}

func (c *Constructor) credential(ctx context.Context) (string, error) {
	if c.creds == nil {
		return "", api.ErrNoCredential
	}
	return c.creds.Token(ctx)
}

func modelBacked[T any](c *Constructor, key models.CacheKey, remote RemoteFunc[T]) *ModelBackedFetcher[T] {
	return lookup(c, key, func() *ModelBackedFetcher[T] {
		return NewModelBackedFetcher(key, c.store, remote, c.opts...)
	})
}

func (c *Constructor) ServiceInfo() *ModelBackedFetcher[models.ServiceInfo] {
	return modelBacked(c, models.Key(models.KindServiceInfo, ""), c.api.ServiceInfo)
}

func (c *Constructor) GlobalBlocklist() *ModelBackedFetcher[models.AddressList] {
	return modelBacked(c, models.Key(models.KindGlobalBlocklist, ""), c.api.GlobalBlocklist)
}

func (c *Constructor) Directory() *ModelBackedListFetcher[models.DirectoryEntry] {
	key := models.Key(models.KindDirectory, "")
	return lookup(c, key, func() *ModelBackedListFetcher[models.DirectoryEntry] {
		itemKey := func(e models.DirectoryEntry) models.CacheKey { return models.Key(models.KindDirectory, e.Address) }
		return NewModelBackedListFetcher(key, c.store, itemKey, c.api.Directory, c.opts...)
	})
}

func (c *Constructor) NowGarden() *ListFetcher[models.NowGardenEntry] {
	key := models.Key(models.KindNowGarden, "")
	return lookup(c, key, func() *ListFetcher[models.NowGardenEntry] {
		return NewListFetcher(key, c.api.NowGarden, c.opts...)
	})
}

func (c *Constructor) Profile(addr models.AddressName) *ModelBackedFetcher[models.ProfilePage] {
	return modelBacked(c, models.Key(models.KindProfile, addr), func(ctx context.Context) (models.ProfilePage, error) {
		return c.api.Profile(ctx, addr)
	})
}

func (c *Constructor) AddressInfo(addr models.AddressName) *ModelBackedFetcher[models.AddressInfo] {
	return modelBacked(c, models.Key(models.KindAddressInfo, addr), func(ctx context.Context) (models.AddressInfo, error) {
		return c.api.AddressInfo(ctx, addr)
	})
}

// Availability is not cached locally; the answer only matters right now.
func (c *Constructor) Availability(addr models.AddressName) *ModelBackedFetcher[models.Availability] {
	key := models.Key(models.KindAvailability, addr)
	return lookup(c, key, func() *ModelBackedFetcher[models.Availability] {
		return NewModelBackedFetcher(key, nil, func(ctx context.Context) (models.Availability, error) {
			return c.api.Availability(ctx, addr)
		}, c.opts...)
	})
}

func (c *Constructor) Now(addr models.AddressName) *ModelBackedFetcher[models.NowPage] {
	return modelBacked(c, models.Key(models.KindNow, addr), func(ctx context.Context) (models.NowPage, error) {
		return c.api.Now(ctx, addr)
	})
}

func (c *Constructor) Bio(addr models.AddressName) *ModelBackedFetcher[models.Bio] {
	return modelBacked(c, models.Key(models.KindBio, addr), func(ctx context.Context) (models.Bio, error) {
		return c.api.Bio(ctx, addr)
	})
}

func (c *Constructor) Icon(addr models.AddressName) *ModelBackedFetcher[models.Icon] {
	return modelBacked(c, models.Key(models.KindIcon, addr), func(ctx context.Context) (models.Icon, error) {
		return c.api.Icon(ctx, addr)
	})
}

func pasteKey(p models.Paste) models.CacheKey { return models.Key(models.KindPaste, p.Address, p.Name) }
func purlKey(p models.PURL) models.CacheKey   { return models.Key(models.KindPURL, p.Address, p.Name) }
func statusKey(s models.Status) models.CacheKey {
	return models.Key(models.KindStatus, s.Address, s.ID)
}

func (c *Constructor) Pastes(addr models.AddressName) *ModelBackedListFetcher[models.Paste] {
	key := models.Key(models.KindPastes, addr)
	return lookup(c, key, func() *ModelBackedListFetcher[models.Paste] {
		return NewModelBackedListFetcher(key, c.store, pasteKey, func(ctx context.Context) ([]models.Paste, error) {
			return c.api.Pastes(ctx, addr, c.token(ctx))
		}, c.opts...)
	})
}

func (c *Constructor) Paste(addr models.AddressName, name string) *ModelBackedFetcher[models.Paste] {
	return modelBacked(c, models.Key(models.KindPaste, addr, name), func(ctx context.Context) (models.Paste, error) {
		return c.api.Paste(ctx, addr, name, c.token(ctx))
	})
}

func (c *Constructor) PURLs(addr models.AddressName) *ModelBackedListFetcher[models.PURL] {
	key := models.Key(models.KindPURLs, addr)
	return lookup(c, key, func() *ModelBackedListFetcher[models.PURL] {
		return NewModelBackedListFetcher(key, c.store, purlKey, func(ctx context.Context) ([]models.PURL, error) {
			return c.api.PURLs(ctx, addr, c.token(ctx))
		}, c.opts...)
	})
}

func (c *Constructor) PURL(addr models.AddressName, name string) *ModelBackedFetcher[models.PURL] {
	return modelBacked(c, models.Key(models.KindPURL, addr, name), func(ctx context.Context) (models.PURL, error) {
		return c.api.PURL(ctx, addr, name, c.token(ctx))
	})
}

// StatusLog is the service-wide status log, paged locally.
func (c *Constructor) StatusLog() *ListFetcher[models.Status] {
	key := models.Key(models.KindStatusLog, "")
	return lookup(c, key, func() *ListFetcher[models.Status] {
		opts := append(slices.Clone(c.opts), WithLimit(StatusLogPageSize))
		return NewPagedListFetcher(key, Paginate(c.api.StatusLog), opts...)
	})
}

// Statuses is the status list of one address.
func (c *Constructor) Statuses(addr models.AddressName) *ModelBackedListFetcher[models.Status] {
	key := models.Key(models.KindStatuses, addr)
	return lookup(c, key, func() *ModelBackedListFetcher[models.Status] {
		return NewModelBackedListFetcher(key, c.store, statusKey, func(ctx context.Context) ([]models.Status, error) {
			return c.api.Statuses(ctx, []models.AddressName{addr})
		}, c.opts...)
	})
}

// StatusFeed merges the statuses of several addresses, e.g. everyone
// followed. The same set in any order maps to the same fetcher.
func (c *Constructor) StatusFeed(addrs []models.AddressName) *ListFetcher[models.Status] {
	set := slices.Compact(slices.Sorted(slices.Values(addrs)))
	ids := make([]string, len(set))
	for i, a := range set {
		ids[i] = string(a)
	}
	key := models.Key(models.KindStatuses, "", strings.Join(ids, ","))
	return lookup(c, key, func() *ListFetcher[models.Status] {
		return NewListFetcher(key, func(ctx context.Context) ([]models.Status, error) {
			return c.api.Statuses(ctx, set)
		}, c.opts...)
	})
}

func (c *Constructor) Status(addr models.AddressName, id string) *ModelBackedFetcher[models.Status] {
	return modelBacked(c, models.Key(models.KindStatus, addr, id), func(ctx context.Context) (models.Status, error) {
		return c.api.Status(ctx, addr, id)
	})
}

func (c *Constructor) AccountInfo(addr models.AddressName) *ModelBackedFetcher[models.AccountInfo] {
	return modelBacked(c, models.Key(models.KindAccountInfo, addr), func(ctx context.Context) (models.AccountInfo, error) {
		cred, err := c.credential(ctx)
		if err != nil {
			return models.AccountInfo{}, err
		}
		return c.api.AccountInfo(ctx, addr, cred)
	})
}

func (c *Constructor) AccountAddresses() *ModelBackedFetcher[[]models.AddressName] {
	return modelBacked(c, models.Key(models.KindAccountAddresses, ""), func(ctx context.Context) ([]models.AddressName, error) {
		cred, err := c.credential(ctx)
		if err != nil {
			return nil, err
		}
		return c.api.AccountAddresses(ctx, cred)
	})
}

func (c *Constructor) Following(addr models.AddressName) *ModelBackedFetcher[models.AddressList] {
	return modelBacked(c, models.Key(models.KindFollowing, addr), func(ctx context.Context) (models.AddressList, error) {
		cred, err := c.credential(ctx)
		if err != nil {
			return models.AddressList{}, err
		}
		return c.api.Following(ctx, addr, cred)
	})
}

func (c *Constructor) Blocked(addr models.AddressName) *ModelBackedFetcher[models.AddressList] {
	return modelBacked(c, models.Key(models.KindBlocked, addr), func(ctx context.Context) (models.AddressList, error) {
		cred, err := c.credential(ctx)
		if err != nil {
			return models.AddressList{}, err
		}
		return c.api.Blocked(ctx, addr, cred)
	})
}

func draftID(identity string) string {
	if identity == "" {
		return newDraftID
	}
	return identity
}

// PastePoster edits seed, a new or existing paste. The poster is keyed by
// the paste's original name, so renames stay on the same poster.
func (c *Constructor) PastePoster(seed models.PasteDraft) *DraftPoster[models.PasteDraft, models.Paste] {
	key := models.Key(models.KindDraftPaste, seed.Address, draftID(seed.Identity()))
	return lookup(c, key, func() *DraftPoster[models.PasteDraft, models.Paste] {
		p := NewDraftPoster(PosterConfig[models.PasteDraft, models.Paste]{
			Key:        key,
			Store:      c.store,
			Seed:       seed,
			Credential: c.credential,
			Publish:    c.api.SavePaste,
			Delete: func(ctx context.Context, prev models.PasteDraft, cred string) error {
				return c.api.DeletePaste(ctx, prev.Address, prev.Name, cred)
			},
			Blank: func(d models.PasteDraft) models.PasteDraft { return models.PasteDraft{Address: d.Address} },
		}, c.opts...)
		p.OnReplaced(func(ctx context.Context, prev models.PasteDraft) {
			c.warn(ctx, c.Pastes(prev.Address).Remove(ctx, prev.Name))
			c.warn(ctx, c.Paste(prev.Address, prev.Name).Forget(ctx))
		})
		p.OnPublished(func(ctx context.Context, ev PublishEvent[models.PasteDraft, models.Paste]) {
			list := c.Pastes(ev.Result.Address)
			c.warn(ctx, list.Upsert(ctx, ev.Result))
			c.warn(ctx, c.Paste(ev.Result.Address, ev.Result.Name).Set(ctx, ev.Result))
		})
		return p
	})
}

func (c *Constructor) PURLPoster(seed models.PURLDraft) *DraftPoster[models.PURLDraft, models.PURL] {
	key := models.Key(models.KindDraftPURL, seed.Address, draftID(seed.Identity()))
	return lookup(c, key, func() *DraftPoster[models.PURLDraft, models.PURL] {
		p := NewDraftPoster(PosterConfig[models.PURLDraft, models.PURL]{
			Key:        key,
			Store:      c.store,
			Seed:       seed,
			Credential: c.credential,
			Publish:    c.api.SavePURL,
			Delete: func(ctx context.Context, prev models.PURLDraft, cred string) error {
				return c.api.DeletePURL(ctx, prev.Address, prev.Name, cred)
			},
			Blank: func(d models.PURLDraft) models.PURLDraft { return models.PURLDraft{Address: d.Address} },
		}, c.opts...)
		p.OnReplaced(func(ctx context.Context, prev models.PURLDraft) {
			c.warn(ctx, c.PURLs(prev.Address).Remove(ctx, prev.Name))
			c.warn(ctx, c.PURL(prev.Address, prev.Name).Forget(ctx))
		})
		p.OnPublished(func(ctx context.Context, ev PublishEvent[models.PURLDraft, models.PURL]) {
			list := c.PURLs(ev.Result.Address)
			c.warn(ctx, list.Upsert(ctx, ev.Result))
			c.warn(ctx, c.PURL(ev.Result.Address, ev.Result.Name).Set(ctx, ev.Result))
		})
		return p
	})
}

// StatusPoster posts a new status (empty seed ID) or edits one by id.
func (c *Constructor) StatusPoster(seed models.StatusDraft) *DraftPoster[models.StatusDraft, models.Status] {
	key := models.Key(models.KindDraftStatus, seed.Address, draftID(seed.Identity()))
	return lookup(c, key, func() *DraftPoster[models.StatusDraft, models.Status] {
		p := NewDraftPoster(PosterConfig[models.StatusDraft, models.Status]{
			Key:        key,
			Store:      c.store,
			Seed:       seed,
			Credential: c.credential,
			Publish:    c.api.SaveStatus,
			Blank:      func(d models.StatusDraft) models.StatusDraft { return models.StatusDraft{Address: d.Address} },
		}, c.opts...)
		p.OnPublished(func(ctx context.Context, ev PublishEvent[models.StatusDraft, models.Status]) {
			c.warn(ctx, c.Statuses(ev.Result.Address).Upsert(ctx, ev.Result))
			c.StatusLog().Upsert(ev.Result)
			c.warn(ctx, c.Status(ev.Result.Address, ev.Result.ID).Set(ctx, ev.Result))
		})
		return p
	})
}

// NowPoster edits the now page of addr. After a publish the draft keeps the
// published content, since there is only ever one page.
func (c *Constructor) NowPoster(seed models.NowDraft) *DraftPoster[models.NowDraft, models.NowPage] {
	key := models.Key(models.KindDraftNow, seed.Address)
	return lookup(c, key, func() *DraftPoster[models.NowDraft, models.NowPage] {
		p := NewDraftPoster(PosterConfig[models.NowDraft, models.NowPage]{
			Key:        key,
			Store:      c.store,
			Seed:       seed,
			Credential: c.credential,
			Publish:    c.api.SaveNow,
			Blank:      func(d models.NowDraft) models.NowDraft { return d },
		}, c.opts...)
		p.OnPublished(func(ctx context.Context, ev PublishEvent[models.NowDraft, models.NowPage]) {
			c.warn(ctx, c.Now(ev.Result.Address).Set(ctx, ev.Result))
		})
		return p
	})
}

func (c *Constructor) ProfilePoster(seed models.ProfileDraft) *DraftPoster[models.ProfileDraft, models.ProfilePage] {
	key := models.Key(models.KindDraftProfile, seed.Address)
	return lookup(c, key, func() *DraftPoster[models.ProfileDraft, models.ProfilePage] {
		p := NewDraftPoster(PosterConfig[models.ProfileDraft, models.ProfilePage]{
			Key:        key,
			Store:      c.store,
			Seed:       seed,
			Credential: c.credential,
			Publish:    c.api.SaveProfile,
			Blank:      func(d models.ProfileDraft) models.ProfileDraft { return d },
		}, c.opts...)
		p.OnPublished(func(ctx context.Context, ev PublishEvent[models.ProfileDraft, models.ProfilePage]) {
			c.warn(ctx, c.Profile(ev.Result.Address).Set(ctx, ev.Result))
		})
		return p
	})
}

var draftKinds = []models.Kind{
	models.KindDraftPaste,
	models.KindDraftPURL,
	models.KindDraftStatus,
	models.KindDraftNow,
	models.KindDraftProfile,
}

// StagedDrafts lists every draft left in the local store, e.g. by a run
// that was interrupted before publishing.
func (c *Constructor) StagedDrafts(ctx context.Context) ([]models.CacheKey, error) {
	var out []models.CacheKey
	for _, k := range draftKinds {
		keys, err := c.store.List(ctx, k)
		if err != nil {
			return nil, err
		}
		out = append(out, keys...)
	}
	slices.SortFunc(out, func(a, b models.CacheKey) int { return strings.Compare(a.String(), b.String()) })
	return out, nil
}

func (c *Constructor) warn(ctx context.Context, err error) {
	if err != nil {
		c.log.Warn(ctx, "merge published result failed", "error", err)
	}
}
