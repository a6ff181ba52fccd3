package cryptox

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveKey(t *testing.T) {
	k1 := DeriveKey([]byte("secret"), []byte("salt-1"))
	k2 := DeriveKey([]byte("secret"), []byte("salt-1"))
	k3 := DeriveKey([]byte("secret"), []byte("salt-2"))

	assert.Len(t, k1, 32)
	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
}

func TestSealer_RoundTrip(t *testing.T) {
	s, err := NewSealer(bytes.Repeat([]byte{7}, 32))
	require.NoError(t, err)

	a, err := s.Seal([]byte("token"))
	require.NoError(t, err)
	b, err := s.Seal([]byte("token"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "fresh nonce per seal")
	assert.NotContains(t, string(a), "token")

	got, err := s.Open(a)
	require.NoError(t, err)
	assert.Equal(t, "token", string(got))
}

func TestSealer_OpenRejects(t *testing.T) {
	s, err := NewSealer(bytes.Repeat([]byte{7}, 32))
	require.NoError(t, err)
	other, err := NewSealer(bytes.Repeat([]byte{8}, 32))
	require.NoError(t, err)

	sealed, err := s.Seal([]byte("token"))
	require.NoError(t, err)

	_, err = other.Open(sealed)
	assert.ErrorIs(t, err, ErrOpen)

	sealed[len(sealed)-1] ^= 1
	_, err = s.Open(sealed)
	assert.ErrorIs(t, err, ErrOpen)

	_, err = s.Open([]byte("short"))
	assert.ErrorIs(t, err, ErrOpen)

	_, err = NewSealer([]byte("short"))
	assert.Error(t, err)
}

func TestLoadKeyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "client.key")

	k1, err := LoadKeyFile(path)
	require.NoError(t, err)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	k2, err := LoadKeyFile(path)
	require.NoError(t, err)
	assert.Equal(t, k1, k2, "same file, same key")

	require.NoError(t, os.WriteFile(path, []byte("truncated"), 0o600))
	_, err = LoadKeyFile(path)
	assert.Error(t, err)
}
