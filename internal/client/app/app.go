package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/omgclient/internal/client/api"
	"github.com/dmitrijs2005/omgclient/internal/client/config"
	"github.com/dmitrijs2005/omgclient/internal/client/fetch"
	"github.com/dmitrijs2005/omgclient/internal/client/store"
	"github.com/dmitrijs2005/omgclient/internal/cryptox"
	"github.com/dmitrijs2005/omgclient/internal/logging"
)

// App is the process-wide context object.
type App struct {
	Config   *config.Config
	Log      logging.Logger
	Store    store.Store
	Settings *store.Settings
	API      api.Interface
	Auth     *AuthService
	Fetch    *fetch.Constructor
}

// New builds an App from cfg. Logs go to logOut.
func New(ctx context.Context, cfg *config.Config, logOut io.Writer) (*App, error) {
	log, err := logging.NewLogger(logOut, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, store.Options{
		Driver: cfg.StoreDriver,
		DSN:    cfg.StoreDSN,
		S3: store.S3Options{
			Bucket:    cfg.S3.Bucket,
			Prefix:    cfg.S3.Prefix,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
		},
	})
	if err != nil {
		return nil, err
	}

	client, err := api.NewHTTPClient(api.Options{
		BaseURL:           cfg.APIBaseURL,
		AuthURL:           cfg.AuthURL,
		ProfileCacheURL:   cfg.ProfileCacheURL,
		Timeout:           cfg.RequestTimeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.Burst,
		Logger:            log.With("component", "api"),
	})
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("api client: %w", err)
	}

	a := Assemble(cfg, log, client, st)
	if cfg.KeyFile != "" {
		if err := a.sealToken(cfg.KeyFile); err != nil {
			_ = st.Close()
			return nil, err
		}
	}
	return a, nil
}

// sealToken keeps the session token encrypted in the store with the key
// held in path, which is created on first use.
func (a *App) sealToken(path string) error {
	key, err := cryptox.LoadKeyFile(path)
	if err != nil {
		return fmt.Errorf("key file: %w", err)
	}
	sealer, err := cryptox.NewSealer(key)
	if err != nil {
		return err
	}
	a.Settings.Protect(sealer, store.SettingToken)
	return nil
}

// Assemble wires an App from parts that are already built.
func Assemble(cfg *config.Config, log logging.Logger, remote api.Interface, s store.Store) *App {
	settings := store.NewSettings(s)
	auth := NewAuthService(remote, settings, cfg.ClientID, cfg.ClientSecret, cfg.RedirectURI, log.With("component", "auth"))
	constructor := fetch.NewConstructor(remote, s, auth,
		fetch.WithReloadInterval(cfg.ReloadInterval),
		fetch.WithLogger(log.With("component", "fetch")),
	)
	return &App{
		Config:   cfg,
		Log:      log,
		Store:    s,
		Settings: settings,
		API:      remote,
		Auth:     auth,
		Fetch:    constructor,
	}
}

// Logout signs out, forgets local settings and drops account data.
func (a *App) Logout(ctx context.Context) error {
	addr, _ := a.Auth.ActiveAddress(ctx)
	if err := a.Auth.Logout(ctx); err != nil {
		return err
	}
	errs := []error{a.Fetch.AccountAddresses().Forget(ctx)}
	if addr != "" {
		errs = append(errs,
			a.Fetch.AccountInfo(addr).Forget(ctx),
			a.Fetch.Following(addr).Forget(ctx),
			a.Fetch.Blocked(addr).Forget(ctx),
		)
	}
	return errors.Join(errs...)
}

func (a *App) Close() error {
	return a.Store.Close()
}
