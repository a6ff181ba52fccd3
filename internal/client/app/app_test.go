package app

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/omgclient/internal/client/api"
	"github.com/dmitrijs2005/omgclient/internal/client/api/apitest"
	"github.com/dmitrijs2005/omgclient/internal/client/config"
	"github.com/dmitrijs2005/omgclient/internal/client/models"
	"github.com/dmitrijs2005/omgclient/internal/client/store"
	"github.com/dmitrijs2005/omgclient/internal/logging"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.StoreDriver = store.DriverMemory
	cfg.ClientID = "cid"
	return cfg
}

func newTestApp(t *testing.T) (*App, *apitest.Fake) {
	t.Helper()
	fake := apitest.New()
	fake.Token = "tok"
	fake.Owned = []models.AddressName{"alice", "alice2"}
	a := Assemble(testConfig(), logging.Nop(), fake, store.NewMemory())
	t.Cleanup(func() { _ = a.Close() })
	return a, fake
}

func TestNew_WiresConfiguredBackends(t *testing.T) {
	cfg := testConfig()
	cfg.KeyFile = filepath.Join(t.TempDir(), "client.key")
	a, err := New(context.Background(), cfg, io.Discard)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	assert.IsType(t, &api.HTTPClient{}, a.API)
	assert.NotNil(t, a.Fetch.Directory())
	assert.False(t, a.Auth.SignedIn(context.Background()))
	assert.FileExists(t, cfg.KeyFile)
}

func TestNew_SealsStoredToken(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.StoreDriver = store.DriverSQLite
	cfg.StoreDSN = filepath.Join(t.TempDir(), "client.db")
	cfg.KeyFile = filepath.Join(t.TempDir(), "client.key")

	a, err := New(ctx, cfg, io.Discard)
	require.NoError(t, err)
	require.NoError(t, a.Settings.SetString(ctx, store.SettingToken, "secret-token"))
	raw, err := a.Store.Read(ctx, models.Key(models.KindSetting, "", store.SettingToken))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret-token")
	require.NoError(t, a.Close())

	b, err := New(ctx, cfg, io.Discard)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	tok, err := b.Auth.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "secret-token", tok)
}

func TestNew_Errors(t *testing.T) {
	cfg := testConfig()
	cfg.LogLevel = "chatty"
	_, err := New(context.Background(), cfg, io.Discard)
	assert.Error(t, err)

	cfg = testConfig()
	cfg.StoreDriver = "floppy"
	_, err = New(context.Background(), cfg, io.Discard)
	assert.Error(t, err)

	cfg = testConfig()
	cfg.APIBaseURL = "::not a url"
	_, err = New(context.Background(), cfg, io.Discard)
	assert.Error(t, err)
}

func TestAuth_CompleteLogin(t *testing.T) {
	ctx := context.Background()
	a, fake := newTestApp(t)

	u, err := a.Auth.LoginURL()
	require.NoError(t, err)
	assert.Contains(t, u, "client_id=cid")

	require.NoError(t, a.Auth.CompleteLogin(ctx, " code "))
	tok, err := a.Auth.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok", tok)
	active, err := a.Auth.ActiveAddress(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.AddressName("alice"), active)
	assert.Equal(t, 1, fake.Count("AccessToken"))
}

func TestAuth_LoginFailures(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestApp(t)

	assert.ErrorIs(t, a.Auth.CompleteLogin(ctx, ""), api.ErrRejected)
	assert.ErrorIs(t, a.Auth.UseToken(ctx, "  "), api.ErrNoCredential)
	assert.False(t, a.Auth.SignedIn(ctx))

	unconfigured := NewAuthService(apitest.New(), store.NewSettings(store.NewMemory()), "", "", "", logging.Nop())
	_, err := unconfigured.LoginURL()
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestAuth_UseTokenKeepsChosenAddress(t *testing.T) {
	ctx := context.Background()
	a, fake := newTestApp(t)
	require.NoError(t, a.Auth.SetActiveAddress(ctx, "alice2"))

	require.NoError(t, a.Auth.UseToken(ctx, "key"))
	active, _ := a.Auth.ActiveAddress(ctx)
	assert.Equal(t, models.AddressName("alice2"), active)
	assert.Zero(t, fake.Count("AccountAddresses"))
}

func TestLogout_ClearsSettings(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestApp(t)
	require.NoError(t, a.Auth.UseToken(ctx, "tok"))
	require.NoError(t, a.Pin(ctx, "bob"))

	require.NoError(t, a.Logout(ctx))

	assert.False(t, a.Auth.SignedIn(ctx))
	pinned, err := a.Pinned(ctx)
	require.NoError(t, err)
	assert.Empty(t, pinned)
	active, _ := a.Auth.ActiveAddress(ctx)
	assert.Empty(t, active)
}

func TestLogout_DropsAccountData(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestApp(t)
	require.NoError(t, a.Auth.UseToken(ctx, "tok"))
	require.NoError(t, a.Auth.SetActiveAddress(ctx, "alice"))

	addrs := a.Fetch.AccountAddresses()
	following := a.Fetch.Following("alice")
	addrs.UpdateIfNeeded(ctx, false)
	following.UpdateIfNeeded(ctx, false)
	_, ok := following.Result()
	require.True(t, ok)

	require.NoError(t, a.Logout(ctx))

	_, ok = addrs.Result()
	assert.False(t, ok)
	_, ok = following.Result()
	assert.False(t, ok)
	_, ok = a.Fetch.AccountInfo("alice").Result()
	assert.False(t, ok)
	for _, key := range []models.CacheKey{
		models.Key(models.KindAccountAddresses, ""),
		models.Key(models.KindFollowing, "alice"),
	} {
		_, err := a.Store.Read(ctx, key)
		assert.ErrorIs(t, err, store.ErrNotFound, key.String())
	}
}

func TestPins(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestApp(t)
	require.NoError(t, a.Pin(ctx, "bob"))
	require.NoError(t, a.Pin(ctx, "carol"))
	require.NoError(t, a.Pin(ctx, "bob"))
	require.NoError(t, a.Unpin(ctx, "carol"))

	pinned, err := a.Pinned(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.AddressName{"bob"}, pinned)
}
