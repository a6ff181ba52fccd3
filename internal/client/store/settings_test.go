package store

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/omgclient/internal/client/models"
	"github.com/dmitrijs2005/omgclient/internal/cryptox"
)

func TestSettings_StringRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewSettings(NewMemory())

	v, err := s.String(ctx, SettingToken)
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, s.SetString(ctx, SettingToken, "abc"))
	v, err = s.String(ctx, SettingToken)
	require.NoError(t, err)
	assert.Equal(t, "abc", v)

	require.NoError(t, s.Delete(ctx, SettingToken))
	v, err = s.String(ctx, SettingToken)
	require.NoError(t, err)
	assert.Empty(t, v)
}

func TestSettings_CacheAndInvalidate(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	s := NewSettings(m)

	require.NoError(t, s.SetString(ctx, SettingEmail, "a@example.com"))
	// Change the row behind the cache's back.
	require.NoError(t, m.Write(ctx, models.Key(models.KindSetting, "", SettingEmail), []byte("b@example.com")))

	v, _ := s.String(ctx, SettingEmail)
	assert.Equal(t, "a@example.com", v, "served from cache")

	s.Invalidate(SettingEmail)
	v, _ = s.String(ctx, SettingEmail)
	assert.Equal(t, "b@example.com", v)
}

func TestSettings_AddressLists(t *testing.T) {
	ctx := context.Background()
	s := NewSettings(NewMemory())

	require.NoError(t, s.AddAddress(ctx, SettingPinned, "alice"))
	require.NoError(t, s.AddAddress(ctx, SettingPinned, "bob"))
	require.NoError(t, s.AddAddress(ctx, SettingPinned, "alice"))

	list, err := s.Addresses(ctx, SettingPinned)
	require.NoError(t, err)
	assert.Equal(t, []models.AddressName{"alice", "bob"}, list)

	require.NoError(t, s.RemoveAddress(ctx, SettingPinned, "alice"))
	list, err = s.Addresses(ctx, SettingPinned)
	require.NoError(t, err)
	assert.Equal(t, []models.AddressName{"bob"}, list)
}

func TestSettings_ClearLeavesOtherRows(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	s := NewSettings(m)

	require.NoError(t, s.SetString(ctx, SettingToken, "t"))
	require.NoError(t, s.SetString(ctx, SettingActive, "alice"))
	require.NoError(t, m.Write(ctx, models.Key(models.KindDraftStatus, "alice"), []byte("{}")))

	require.NoError(t, s.Clear(ctx))

	v, _ := s.String(ctx, SettingToken)
	assert.Empty(t, v)
	assert.Equal(t, 1, m.Len())
}

func TestSettings_ProtectedValuesAreSealed(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	key := bytes.Repeat([]byte{1}, 32)
	sealer, err := cryptox.NewSealer(key)
	require.NoError(t, err)
	s := NewSettings(m)
	s.Protect(sealer, SettingToken)

	require.NoError(t, s.SetString(ctx, SettingToken, "secret-token"))
	require.NoError(t, s.SetString(ctx, SettingEmail, "a@example.com"))

	raw, err := m.Read(ctx, models.Key(models.KindSetting, "", SettingToken))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret-token")
	raw, err = m.Read(ctx, models.Key(models.KindSetting, "", SettingEmail))
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", string(raw), "unprotected names stay readable")

	// A later run with the same key reads it back.
	again := NewSettings(m)
	again.Protect(sealer, SettingToken)
	v, err := again.String(ctx, SettingToken)
	require.NoError(t, err)
	assert.Equal(t, "secret-token", v)

	other, err := cryptox.NewSealer(bytes.Repeat([]byte{2}, 32))
	require.NoError(t, err)
	wrong := NewSettings(m)
	wrong.Protect(other, SettingToken)
	_, err = wrong.String(ctx, SettingToken)
	assert.ErrorIs(t, err, ErrLocalStore)
	assert.ErrorIs(t, err, cryptox.ErrOpen)
}

func TestSettings_SQLiteBacked(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)
	s := NewSettings(db)

	require.NoError(t, s.SetAddresses(ctx, SettingBlocked, []models.AddressName{"spam", "troll"}))
	require.NoError(t, s.Clear(ctx))
	list, err := s.Addresses(ctx, SettingBlocked)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestOpen_Drivers(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Options{Driver: DriverMemory})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(ctx, Options{Driver: DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Open(ctx, Options{Driver: "redis"})
	require.Error(t, err)
}
