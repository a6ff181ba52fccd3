package app

import (
	"context"
	"errors"
	"slices"

	"github.com/dmitrijs2005/omgclient/internal/client/api"
	"github.com/dmitrijs2005/omgclient/internal/client/fetch"
	"github.com/dmitrijs2005/omgclient/internal/client/models"
	"github.com/dmitrijs2005/omgclient/internal/client/store"
)

// AccountContext is a snapshot of who the user follows and blocks, used by
// list filters. Blocked combines the account blocklist, the service-wide
// blocklist and addresses blocked locally.
type AccountContext struct {
	following map[models.AddressName]struct{}
	blocked   map[models.AddressName]struct{}
}

var _ models.AccountContext = (*AccountContext)(nil)

func NewAccountContext(following []models.AddressName, blocked ...[]models.AddressName) *AccountContext {
	a := &AccountContext{
		following: make(map[models.AddressName]struct{}, len(following)),
		blocked:   make(map[models.AddressName]struct{}),
	}
	for _, x := range following {
		a.following[x] = struct{}{}
	}
	for _, list := range blocked {
		for _, x := range list {
			a.blocked[x] = struct{}{}
		}
	}
	return a
}

func (a *AccountContext) IsFollowing(x models.AddressName) bool {
	_, ok := a.following[x]
	return ok
}

func (a *AccountContext) IsBlocked(x models.AddressName) bool {
	_, ok := a.blocked[x]
	return ok
}

// Account loads what it needs and returns the current AccountContext. Lists
// that fail to load count as empty.
func (a *App) Account(ctx context.Context) *AccountContext {
	global := a.Fetch.GlobalBlocklist()
	global.UpdateIfNeeded(ctx, false)
	g, _ := global.Result()

	local, err := a.Settings.Addresses(ctx, store.SettingBlocked)
	if err != nil {
		a.Log.Warn(ctx, "read local blocklist failed", "error", err)
	}

	var following, blocked []models.AddressName
	owner, _ := a.Auth.ActiveAddress(ctx)
	if owner != "" && a.Auth.SignedIn(ctx) {
		following = loadList(ctx, a.Fetch.Following(owner))
		blocked = loadList(ctx, a.Fetch.Blocked(owner))
	}
	return NewAccountContext(following, blocked, g.Addresses, local)
}

func loadList(ctx context.Context, f *fetch.ModelBackedFetcher[models.AddressList]) []models.AddressName {
	f.UpdateIfNeeded(ctx, false)
	l, _ := f.Result()
	return l.Addresses
}

// ErrFollowingNobody is returned by Feed when the following list is empty.
var ErrFollowingNobody = errors.New("not following anyone")

// Feed returns the merged statuses of everyone the active address follows.
func (a *App) Feed(ctx context.Context) (*fetch.ListFetcher[models.Status], error) {
	owner, err := a.Auth.ActiveAddress(ctx)
	if err != nil {
		return nil, err
	}
	if owner == "" || !a.Auth.SignedIn(ctx) {
		return nil, api.ErrNoCredential
	}
	f := a.Fetch.Following(owner)
	following := loadList(ctx, f)
	if len(following) == 0 {
		if err := f.Err(); err != nil && !errors.Is(err, api.ErrNotFound) {
			return nil, err
		}
		return nil, ErrFollowingNobody
	}
	return a.Fetch.StatusFeed(following), nil
}

func (a *App) Follow(ctx context.Context, target models.AddressName) error {
	return a.editRemoteList(ctx, a.Fetch.Following, api.FollowingPaste, target, true)
}

func (a *App) Unfollow(ctx context.Context, target models.AddressName) error {
	return a.editRemoteList(ctx, a.Fetch.Following, api.FollowingPaste, target, false)
}

// Block hides target locally and, when signed in, on the account blocklist.
func (a *App) Block(ctx context.Context, target models.AddressName) error {
	if err := a.Settings.AddAddress(ctx, store.SettingBlocked, target); err != nil {
		return err
	}
	if !a.Auth.SignedIn(ctx) {
		return nil
	}
	return a.editRemoteList(ctx, a.Fetch.Blocked, api.BlockedPaste, target, true)
}

func (a *App) Unblock(ctx context.Context, target models.AddressName) error {
	if err := a.Settings.RemoveAddress(ctx, store.SettingBlocked, target); err != nil {
		return err
	}
	if !a.Auth.SignedIn(ctx) {
		return nil
	}
	return a.editRemoteList(ctx, a.Fetch.Blocked, api.BlockedPaste, target, false)
}

// editRemoteList publishes the updated list as the owner's paste. An empty
// list deletes the paste, since a paste cannot be empty.
func (a *App) editRemoteList(ctx context.Context, fetcher func(models.AddressName) *fetch.ModelBackedFetcher[models.AddressList], paste string, target models.AddressName, add bool) error {
	owner, err := a.Auth.ActiveAddress(ctx)
	if err != nil {
		return err
	}
	if owner == "" {
		return api.ErrNoCredential
	}

	f := fetcher(owner)
	current := loadList(ctx, f)
	if err := f.Err(); err != nil && !errors.Is(err, api.ErrNotFound) {
		// Publishing now would overwrite entries we could not read.
		return err
	}

	next := slices.Clone(current)
	switch {
	case add && !slices.Contains(next, target):
		next = append(next, target)
	case !add:
		next = slices.DeleteFunc(next, func(x models.AddressName) bool { return x == target })
	}
	if slices.Equal(next, current) {
		return nil
	}

	if len(next) == 0 {
		token, err := a.Auth.Token(ctx)
		if err != nil {
			return err
		}
		if err := a.API.DeletePaste(ctx, owner, paste, token); err != nil && !errors.Is(err, api.ErrNotFound) {
			return err
		}
		if err := a.Fetch.Pastes(owner).Remove(ctx, paste); err != nil {
			a.Log.Warn(ctx, "drop list paste from cache failed", "error", err)
		}
	} else {
		p := a.Fetch.PastePoster(models.PasteDraft{Address: owner, Name: paste})
		if err := p.SetDraft(models.PasteDraft{Address: owner, Name: paste, Content: models.FormatAddressList(next)}); err != nil {
			return err
		}
		if _, err := p.Submit(ctx); err != nil {
			return err
		}
	}
	return f.Set(ctx, models.AddressList{Address: owner, Addresses: next})
}

// Pin keeps addr in the locally pinned list.
func (a *App) Pin(ctx context.Context, addr models.AddressName) error {
	return a.Settings.AddAddress(ctx, store.SettingPinned, addr)
}

func (a *App) Unpin(ctx context.Context, addr models.AddressName) error {
	return a.Settings.RemoveAddress(ctx, store.SettingPinned, addr)
}

func (a *App) Pinned(ctx context.Context) ([]models.AddressName, error) {
	return a.Settings.Addresses(ctx, store.SettingPinned)
}
