package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/omgclient/internal/client/api"
	"github.com/dmitrijs2005/omgclient/internal/client/models"
	"github.com/dmitrijs2005/omgclient/internal/client/store"
	"github.com/dmitrijs2005/omgclient/internal/logging"
)

// ErrNotConfigured is returned by LoginURL and CompleteLogin when no OAuth
// client id is configured.
var ErrNotConfigured = errors.New("oauth client is not configured")

// AuthService owns the session credential and the active address. It
// implements fetch.Credentials.
type AuthService struct {
	api      api.Interface
	settings *store.Settings
	log      logging.Logger

	clientID     string
	clientSecret string
	redirectURI  string
}

func NewAuthService(remote api.Interface, settings *store.Settings, clientID, clientSecret, redirectURI string, log logging.Logger) *AuthService {
	return &AuthService{
		api:          remote,
		settings:     settings,
		log:          log,
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURI:  redirectURI,
	}
}

// LoginURL is the page the user opens in a browser to sign in.
func (a *AuthService) LoginURL() (string, error) {
	if a.clientID == "" {
		return "", ErrNotConfigured
	}
	return a.api.AuthURL(a.clientID, a.redirectURI), nil
}

// CompleteLogin exchanges the code from the login redirect for a token and
// stores it.
func (a *AuthService) CompleteLogin(ctx context.Context, code string) error {
	if a.clientID == "" {
		return ErrNotConfigured
	}
	token, err := a.api.AccessToken(ctx, strings.TrimSpace(code), a.clientID, a.clientSecret, a.redirectURI)
	if err != nil {
		return fmt.Errorf("exchange code: %w", err)
	}
	return a.UseToken(ctx, token)
}

// UseToken stores an API key or access token and picks the first owned
// address as active when none is set.
func (a *AuthService) UseToken(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return api.ErrNoCredential
	}
	if err := a.settings.SetString(ctx, store.SettingToken, token); err != nil {
		return err
	}

	active, err := a.ActiveAddress(ctx)
	if err != nil || active != "" {
		return err
	}
	owned, err := a.api.AccountAddresses(ctx, token)
	if err != nil {
		// Signed in anyway; the address can be chosen later.
		a.log.Warn(ctx, "list account addresses failed", "error", err)
		return nil
	}
	if len(owned) > 0 {
		return a.SetActiveAddress(ctx, owned[0])
	}
	return nil
}

// Token returns the stored credential, empty when signed out.
func (a *AuthService) Token(ctx context.Context) (string, error) {
	return a.settings.String(ctx, store.SettingToken)
}

func (a *AuthService) SignedIn(ctx context.Context) bool {
	t, err := a.Token(ctx)
	return err == nil && t != ""
}

// ActiveAddress is the address writes are made as.
func (a *AuthService) ActiveAddress(ctx context.Context) (models.AddressName, error) {
	s, err := a.settings.String(ctx, store.SettingActive)
	return models.AddressName(s), err
}

func (a *AuthService) SetActiveAddress(ctx context.Context, addr models.AddressName) error {
	return a.settings.SetString(ctx, store.SettingActive, string(addr))
}

// Logout removes the credential together with every other local setting.
func (a *AuthService) Logout(ctx context.Context) error {
	if err := a.settings.Clear(ctx); err != nil {
		return fmt.Errorf("clear settings: %w", err)
	}
	a.log.Info(ctx, "signed out")
	return nil
}
