package models

import "strings"

// Draft is a user-edited precursor to a record.
type Draft interface {
	Owner() AddressName
	// Identity is the remote name or id the draft refers to; empty means new.
	Identity() string
	// Publishable reports whether all required fields are filled in.
	Publishable() bool
}

type PasteDraft struct {
	Address AddressName `json:"address"`
	Name    string      `json:"name"`
	Content string      `json:"content"`
	Listed  bool        `json:"listed"`
}

func (d PasteDraft) Owner() AddressName { return d.Address }
func (d PasteDraft) Identity() string   { return d.Name }
func (d PasteDraft) Publishable() bool {
	return d.Address != "" && notBlank(d.Name) && notBlank(d.Content)
}

type PURLDraft struct {
	Address AddressName `json:"address"`
	Name    string      `json:"name"`
	URL     string      `json:"url"`
	Listed  bool        `json:"listed"`
}

func (d PURLDraft) Owner() AddressName { return d.Address }
func (d PURLDraft) Identity() string   { return d.Name }
func (d PURLDraft) Publishable() bool {
	return d.Address != "" && notBlank(d.Name) && notBlank(d.URL)
}

// StatusDraft has an empty ID until the service assigns one.
type StatusDraft struct {
	Address     AddressName `json:"address"`
	ID          string      `json:"id"`
	Emoji       string      `json:"emoji"`
	Content     string      `json:"content"`
	ExternalURL string      `json:"external_url"`
}

func (d StatusDraft) Owner() AddressName { return d.Address }
func (d StatusDraft) Identity() string   { return d.ID }
func (d StatusDraft) Publishable() bool  { return d.Address != "" && notBlank(d.Content) }

type NowDraft struct {
	Address AddressName `json:"address"`
	Content string      `json:"content"`
	Listed  bool        `json:"listed"`
}

func (d NowDraft) Owner() AddressName { return d.Address }
func (d NowDraft) Identity() string   { return "" }
func (d NowDraft) Publishable() bool  { return d.Address != "" && notBlank(d.Content) }

type ProfileDraft struct {
	Address AddressName `json:"address"`
	Content string      `json:"content"`
	Publish bool        `json:"publish"`
}

func (d ProfileDraft) Owner() AddressName { return d.Address }
func (d ProfileDraft) Identity() string   { return "" }
func (d ProfileDraft) Publishable() bool  { return d.Address != "" && notBlank(d.Content) }

// PasteDraftFrom seeds an edit of an existing paste.
func PasteDraftFrom(p Paste) PasteDraft {
	return PasteDraft{Address: p.Address, Name: p.Name, Content: p.Content, Listed: p.Listed}
}

// PURLDraftFrom seeds an edit of an existing PURL.
func PURLDraftFrom(p PURL) PURLDraft {
	return PURLDraft{Address: p.Address, Name: p.Name, URL: p.URL, Listed: p.Listed}
}

// StatusDraftFrom seeds an edit of an existing status.
func StatusDraftFrom(s Status) StatusDraft {
	return StatusDraft{Address: s.Address, ID: s.ID, Emoji: s.Emoji, Content: s.Content, ExternalURL: s.ExternalURL}
}

func notBlank(s string) bool { return strings.TrimSpace(s) != "" }
