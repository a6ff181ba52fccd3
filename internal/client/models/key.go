package models

import (
	"fmt"
	"strings"
)

// Kind classifies the entity a fetcher or a stored row holds.
type Kind string

const (
	KindServiceInfo      Kind = "service-info"
	KindGlobalBlocklist  Kind = "global-blocklist"
	KindDirectory        Kind = "directory"
	KindNowGarden        Kind = "now-garden"
	KindProfile          Kind = "profile"
	KindAddressInfo      Kind = "address-info"
	KindNow              Kind = "now"
	KindPURLs            Kind = "purls"
	KindPURL             Kind = "purl"
	KindPastes           Kind = "pastes"
	KindPaste            Kind = "paste"
	KindBio              Kind = "bio"
	KindIcon             Kind = "icon"
	KindStatusLog        Kind = "statuslog"
	KindStatuses         Kind = "statuses"
	KindStatus           Kind = "status"
	KindAccountInfo      Kind = "account-info"
	KindAvailability     Kind = "availability"
	KindAccountAddresses Kind = "account-addresses"
	KindFollowing        Kind = "following"
	KindBlocked          Kind = "blocked"

	KindDraftPaste   Kind = "draft-paste"
	KindDraftPURL    Kind = "draft-purl"
	KindDraftStatus  Kind = "draft-status"
	KindDraftNow     Kind = "draft-now"
	KindDraftProfile Kind = "draft-profile"

	KindSetting Kind = "setting"
)

// IsDraft reports whether rows of this kind hold staged drafts.
func (k Kind) IsDraft() bool { return strings.HasPrefix(string(k), "draft-") }

// CacheKey identifies one fetcher instance and one local-store row.
// The zero Address is used for service-wide entities.
type CacheKey struct {
	Kind    Kind
	Address AddressName
	ID      string
}

// Key builds a CacheKey; id is optional.
func Key(kind Kind, address AddressName, id ...string) CacheKey {
	k := CacheKey{Kind: kind, Address: address}
	if len(id) > 0 {
		k.ID = id[0]
	}
	return k
}

// String renders kind/address[/id]. Service-wide keys render as kind/-.
func (k CacheKey) String() string {
	addr := string(k.Address)
	if addr == "" {
		addr = "-"
	}
	s := string(k.Kind) + "/" + addr
	if k.ID != "" {
		s += "/" + k.ID
	}
	return s
}

// ParseCacheKey is the inverse of CacheKey.String. The id part may itself
// contain slashes.
func ParseCacheKey(s string) (CacheKey, error) {
	parts := strings.SplitN(s, "/", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return CacheKey{}, fmt.Errorf("malformed cache key %q", s)
	}
	k := CacheKey{Kind: Kind(parts[0])}
	if parts[1] != "-" {
		k.Address = AddressName(parts[1])
	}
	if len(parts) == 3 {
		k.ID = parts[2]
	}
	return k, nil
}
