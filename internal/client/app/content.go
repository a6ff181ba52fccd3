package app

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/omgclient/internal/client/api"
	"github.com/dmitrijs2005/omgclient/internal/client/models"
)

// DeletePaste removes a paste remotely, from the cached lists and from the
// local store. A paste that is already gone counts as deleted.
func (a *App) DeletePaste(ctx context.Context, addr models.AddressName, name string) error {
	token, err := a.Auth.Token(ctx)
	if err != nil {
		return err
	}
	if err := a.API.DeletePaste(ctx, addr, name, token); err != nil && !errors.Is(err, api.ErrNotFound) {
		return err
	}
	if err := a.Fetch.Paste(addr, name).Forget(ctx); err != nil {
		return err
	}
	return a.Fetch.Pastes(addr).Remove(ctx, name)
}

// DeleteStatus removes a status remotely and from the cached lists.
func (a *App) DeleteStatus(ctx context.Context, addr models.AddressName, id string) error {
	token, err := a.Auth.Token(ctx)
	if err != nil {
		return err
	}
	if err := a.API.DeleteStatus(ctx, addr, id, token); err != nil && !errors.Is(err, api.ErrNotFound) {
		return err
	}
	if err := a.Fetch.Status(addr, id).Forget(ctx); err != nil {
		return err
	}
	a.Fetch.StatusLog().Remove(id)
	return a.Fetch.Statuses(addr).Remove(ctx, id)
}
