// Package cryptox seals small secrets, such as the session token, before
// they reach a store that may be shared or remote.
package cryptox

import (
	"crypto/rand"
	"errors"
	"fmt"
	"os"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/dmitrijs2005/omgclient/internal/filex"
)

const (
	saltSize   = 16
	secretSize = 32
)

// ErrOpen is returned when sealed data cannot be decrypted, e.g. because it
// was sealed with another key file or was altered.
var ErrOpen = errors.New("cannot open sealed value")

func DeriveKey(secret, salt []byte) []byte {
	return argon2.IDKey(secret, salt, 1, 64*1024, 4, chacha20poly1305.KeySize)
}

// Sealer encrypts with XChaCha20-Poly1305. Sealed values carry their random
// nonce as a prefix.
type Sealer struct {
	key []byte
}

func NewSealer(key []byte) (*Sealer, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("sealer key: want %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	return &Sealer{key: key}, nil
}

func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, err
	}
	if len(sealed) < aead.NonceSize()+aead.Overhead() {
		return nil, ErrOpen
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrOpen
	}
	return plaintext, nil
}

// LoadKeyFile returns the sealing key kept in the file at path, creating the
// file with fresh random material when it does not exist. The file never
// leaves the machine; only values sealed with it go to the store.
func LoadKeyFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		data = make([]byte, saltSize+secretSize)
		if _, err := rand.Read(data); err != nil {
			return nil, err
		}
		if err := filex.EnsureParentDir(path); err != nil {
			return nil, err
		}
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return nil, fmt.Errorf("write key file: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("read key file: %w", err)
	}
	if len(data) != saltSize+secretSize {
		return nil, fmt.Errorf("key file %s: unexpected size %d", path, len(data))
	}
	return DeriveKey(data[saltSize:], data[:saltSize]), nil
}
