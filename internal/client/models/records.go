package models

import (
	"strconv"
	"time"
)

// Listable is implemented by every record that can appear in a ListFetcher.
type Listable interface {
	// ListID is the stable identity used to de-duplicate merged pages.
	ListID() string
	// Owner is the address the record belongs to.
	Owner() AddressName
	// SearchableStrings feed the text-query filter.
	SearchableStrings() []string
	// SortKey orders records alphabetically.
	SortKey() string
	// FilterDate orders records by time and feeds the recency filter.
	// The zero time means the record carries no date.
	FilterDate() time.Time
}

type ServiceInfo struct {
	Members   int    `json:"members"`
	Addresses int    `json:"addresses"`
	Profiles  int    `json:"profiles"`
	Message   string `json:"message"`
}

// DirectoryEntry is one public address in the service directory.
type DirectoryEntry struct {
	Address AddressName `json:"address"`
	URL     string      `json:"url"`
}

func (e DirectoryEntry) ListID() string              { return string(e.Address) }
func (e DirectoryEntry) Owner() AddressName          { return e.Address }
func (e DirectoryEntry) SearchableStrings() []string { return []string{string(e.Address)} }
func (e DirectoryEntry) SortKey() string             { return string(e.Address) }
func (e DirectoryEntry) FilterDate() time.Time       { return time.Time{} }

// NowGardenEntry is one listed now page.
type NowGardenEntry struct {
	Address AddressName `json:"address"`
	URL     string      `json:"url"`
	Updated time.Time   `json:"updated"`
}

func (e NowGardenEntry) ListID() string              { return string(e.Address) }
func (e NowGardenEntry) Owner() AddressName          { return e.Address }
func (e NowGardenEntry) SearchableStrings() []string { return []string{string(e.Address), e.URL} }
func (e NowGardenEntry) SortKey() string             { return string(e.Address) }
func (e NowGardenEntry) FilterDate() time.Time       { return e.Updated }

// ProfilePage is an address's web page, as markdown source and rendered html.
type ProfilePage struct {
	Address AddressName `json:"address"`
	Content string      `json:"content"`
	HTML    string      `json:"html"`
	Type    string      `json:"type"`
	Updated time.Time   `json:"updated"`
}

type AddressInfo struct {
	Address    AddressName `json:"address"`
	Registered time.Time   `json:"registered"`
	Expired    bool        `json:"expired"`
	Verified   bool        `json:"verified"`
	Message    string      `json:"message"`
}

func (a AddressInfo) ListID() string              { return string(a.Address) }
func (a AddressInfo) Owner() AddressName          { return a.Address }
func (a AddressInfo) SearchableStrings() []string { return []string{string(a.Address)} }
func (a AddressInfo) SortKey() string             { return string(a.Address) }
func (a AddressInfo) FilterDate() time.Time       { return a.Registered }

type NowPage struct {
	Address AddressName `json:"address"`
	Content string      `json:"content"`
	Listed  bool        `json:"listed"`
	Updated time.Time   `json:"updated"`
}

// PURL is a named redirect owned by an address.
type PURL struct {
	Address AddressName `json:"address"`
	Name    string      `json:"name"`
	URL     string      `json:"url"`
	Counter int         `json:"counter"`
	Listed  bool        `json:"listed"`
}

func (p PURL) ListID() string              { return p.Name }
func (p PURL) Owner() AddressName          { return p.Address }
func (p PURL) SearchableStrings() []string { return []string{p.Name, p.URL} }
func (p PURL) SortKey() string             { return p.Name }
func (p PURL) FilterDate() time.Time       { return time.Time{} }

// Paste is a named text snippet owned by an address.
type Paste struct {
	Address  AddressName `json:"address"`
	Name     string      `json:"name"`
	Content  string      `json:"content"`
	Listed   bool        `json:"listed"`
	Modified time.Time   `json:"modified"`
}

func (p Paste) ListID() string              { return p.Name }
func (p Paste) Owner() AddressName          { return p.Address }
func (p Paste) SearchableStrings() []string { return []string{p.Name, p.Content} }
func (p Paste) SortKey() string             { return p.Name }
func (p Paste) FilterDate() time.Time       { return p.Modified }

type Bio struct {
	Address AddressName `json:"address"`
	Content string      `json:"content"`
}

// Icon holds the raw avatar bytes for an address.
type Icon struct {
	Address     AddressName `json:"address"`
	ContentType string      `json:"content_type"`
	Data        []byte      `json:"data"`
}

// Status is one statuslog post.
type Status struct {
	ID          string      `json:"id"`
	Address     AddressName `json:"address"`
	Emoji       string      `json:"emoji"`
	Content     string      `json:"content"`
	ExternalURL string      `json:"external_url"`
	Created     time.Time   `json:"created"`
}

func (s Status) ListID() string     { return s.ID }
func (s Status) Owner() AddressName { return s.Address }
func (s Status) SearchableStrings() []string {
	return []string{string(s.Address), s.Emoji, s.Content}
}
func (s Status) SortKey() string {
	return string(s.Address) + "/" + strconv.FormatInt(s.Created.Unix(), 10)
}
func (s Status) FilterDate() time.Time { return s.Created }

type AccountInfo struct {
	Email   string    `json:"email"`
	Name    string    `json:"name"`
	Created time.Time `json:"created"`
}

type Availability struct {
	Address   AddressName `json:"address"`
	Available bool        `json:"available"`
	Punycode  string      `json:"punycode"`
}

// AddressList is a following or blocked list owned by an address
// (or the service-wide blocklist when Owner is empty).
type AddressList struct {
	Address   AddressName   `json:"address"`
	Addresses []AddressName `json:"addresses"`
}

// Contains reports whether a is on the list.
func (l AddressList) Contains(a AddressName) bool {
	for _, x := range l.Addresses {
		if x == a {
			return true
		}
	}
	return false
}
