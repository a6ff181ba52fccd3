package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/omgclient/internal/client/models"
)

// Well-known setting names.
const (
	SettingToken   = "token"
	SettingEmail   = "email"
	SettingPinned  = "pinned"
	SettingBlocked = "blocked"
	SettingActive  = "active-address"
)

// Cipher seals values before they are written and opens them after reading.
type Cipher interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(sealed []byte) ([]byte, error)
}

// Settings is a small key/value store for user preferences and the session
// credential, persisted through a Store under KindSetting keys. Values are
// cached in memory after the first read; Invalidate drops cached entries so
// the next read goes back to the store. Names passed to Protect are stored
// sealed; the cache holds them in the clear.
type Settings struct {
	store Store

	mu     sync.Mutex
	cache  map[string][]byte
	cipher Cipher
	sealed map[string]bool
}

func NewSettings(s Store) *Settings {
	return &Settings{store: s, cache: make(map[string][]byte)}
}

// Protect makes the named settings go through c on their way to the store.
func (s *Settings) Protect(c Cipher, names ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cipher = c
	if s.sealed == nil {
		s.sealed = make(map[string]bool)
	}
	for _, n := range names {
		s.sealed[n] = true
		delete(s.cache, n)
	}
}

func (s *Settings) cipherFor(name string) Cipher {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sealed[name] {
		return s.cipher
	}
	return nil
}

func settingKey(name string) models.CacheKey {
	return models.Key(models.KindSetting, "", name)
}

// Get returns the raw value, or nil when unset.
func (s *Settings) Get(ctx context.Context, name string) ([]byte, error) {
	s.mu.Lock()
	if v, ok := s.cache[name]; ok {
		s.mu.Unlock()
		return v, nil
	}
	s.mu.Unlock()

	v, err := s.store.Read(ctx, settingKey(name))
	if errors.Is(err, ErrNotFound) {
		v, err = nil, nil
	}
	if err != nil {
		return nil, err
	}
	if c := s.cipherFor(name); c != nil && v != nil {
		if v, err = c.Open(v); err != nil {
			return nil, fmt.Errorf("%w: setting %s: %w", ErrLocalStore, name, err)
		}
	}

	s.mu.Lock()
	s.cache[name] = v
	s.mu.Unlock()
	return v, nil
}

func (s *Settings) Set(ctx context.Context, name string, value []byte) error {
	stored := value
	if c := s.cipherFor(name); c != nil {
		var err error
		if stored, err = c.Seal(value); err != nil {
			return fmt.Errorf("%w: setting %s: %w", ErrLocalStore, name, err)
		}
	}
	if err := s.store.Write(ctx, settingKey(name), stored); err != nil {
		return err
	}
	s.mu.Lock()
	s.cache[name] = value
	s.mu.Unlock()
	return nil
}

func (s *Settings) Delete(ctx context.Context, name string) error {
	if err := s.store.Delete(ctx, settingKey(name)); err != nil {
		return err
	}
	s.mu.Lock()
	s.cache[name] = nil
	s.mu.Unlock()
	return nil
}

// String returns the value as a string, empty when unset.
func (s *Settings) String(ctx context.Context, name string) (string, error) {
	v, err := s.Get(ctx, name)
	return string(v), err
}

func (s *Settings) SetString(ctx context.Context, name, value string) error {
	return s.Set(ctx, name, []byte(value))
}

// Addresses returns a stored address list.
func (s *Settings) Addresses(ctx context.Context, name string) ([]models.AddressName, error) {
	v, err := s.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	return models.ParseAddressList(string(v)), nil
}

func (s *Settings) SetAddresses(ctx context.Context, name string, list []models.AddressName) error {
	return s.SetString(ctx, name, models.FormatAddressList(list))
}

// AddAddress appends a to the named list if it is not there yet.
func (s *Settings) AddAddress(ctx context.Context, name string, a models.AddressName) error {
	list, err := s.Addresses(ctx, name)
	if err != nil {
		return err
	}
	for _, x := range list {
		if x == a {
			return nil
		}
	}
	return s.SetAddresses(ctx, name, append(list, a))
}

// RemoveAddress drops a from the named list.
func (s *Settings) RemoveAddress(ctx context.Context, name string, a models.AddressName) error {
	list, err := s.Addresses(ctx, name)
	if err != nil {
		return err
	}
	out := list[:0]
	for _, x := range list {
		if x != a {
			out = append(out, x)
		}
	}
	return s.SetAddresses(ctx, name, out)
}

// Invalidate drops cached values; with no names it drops all of them.
func (s *Settings) Invalidate(names ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(names) == 0 {
		s.cache = make(map[string][]byte)
		return
	}
	for _, n := range names {
		delete(s.cache, n)
	}
}

// Clear deletes every stored setting.
func (s *Settings) Clear(ctx context.Context) error {
	keys, err := s.store.List(ctx, models.KindSetting)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := s.store.Delete(ctx, k); err != nil {
			return err
		}
	}
	s.Invalidate()
	return nil
}
