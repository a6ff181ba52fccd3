package models

import (
	"fmt"
	"strings"
	"time"
)

// FilterTag names a FilterOption variant.
type FilterTag string

const (
	FilterFollowingOnly FilterTag = "following"
	FilterNotBlocked    FilterTag = "not-blocked"
	FilterRecent        FilterTag = "recent"
	FilterQuery         FilterTag = "query"
)

// FilterOption is a predicate over a Listable. Within is used by FilterRecent,
// Text by FilterQuery.
type FilterOption struct {
	Tag    FilterTag
	Within time.Duration
	Text   string
}

func FollowingOnly() FilterOption { return FilterOption{Tag: FilterFollowingOnly} }
func NotBlocked() FilterOption    { return FilterOption{Tag: FilterNotBlocked} }

func RecentWithin(d time.Duration) FilterOption {
	return FilterOption{Tag: FilterRecent, Within: d}
}

func Query(text string) FilterOption { return FilterOption{Tag: FilterQuery, Text: text} }

func (o FilterOption) String() string {
	switch o.Tag {
	case FilterRecent:
		return fmt.Sprintf("%s(%s)", o.Tag, o.Within)
	case FilterQuery:
		return fmt.Sprintf("%s(%q)", o.Tag, o.Text)
	default:
		return string(o.Tag)
	}
}

// AccountContext answers the account-relative questions filters ask.
type AccountContext interface {
	IsFollowing(a AddressName) bool
	IsBlocked(a AddressName) bool
}

// Match evaluates a single option. The text query is a case-insensitive
// substring match over SearchableStrings; an empty query matches everything.
// A nil account context follows nobody and blocks nobody.
func (o FilterOption) Match(item Listable, acct AccountContext, now time.Time) bool {
	switch o.Tag {
	case FilterFollowingOnly:
		return acct != nil && acct.IsFollowing(item.Owner())
	case FilterNotBlocked:
		return acct == nil || !acct.IsBlocked(item.Owner())
	case FilterRecent:
		d := item.FilterDate()
		if d.IsZero() {
			return false
		}
		return now.Sub(d) <= o.Within
	case FilterQuery:
		q := strings.ToLower(strings.TrimSpace(o.Text))
		if q == "" {
			return true
		}
		for _, s := range item.SearchableStrings() {
			if strings.Contains(strings.ToLower(s), q) {
				return true
			}
		}
		return false
	default:
		return true
	}
}

// FilterSet is an ordered set of options keyed by tag: adding an option with
// a tag already present replaces it in place.
type FilterSet []FilterOption

// NewFilterSet builds a set from opts, applying With in order.
func NewFilterSet(opts ...FilterOption) FilterSet {
	var s FilterSet
	for _, o := range opts {
		s = s.With(o)
	}
	return s
}

// With returns a copy of s containing o.
func (s FilterSet) With(o FilterOption) FilterSet {
	out := make(FilterSet, 0, len(s)+1)
	replaced := false
	for _, x := range s {
		if x.Tag == o.Tag {
			out = append(out, o)
			replaced = true
			continue
		}
		out = append(out, x)
	}
	if !replaced {
		out = append(out, o)
	}
	return out
}

// Without returns a copy of s with the tag removed.
func (s FilterSet) Without(tag FilterTag) FilterSet {
	out := make(FilterSet, 0, len(s))
	for _, x := range s {
		if x.Tag != tag {
			out = append(out, x)
		}
	}
	return out
}

// Match reports whether item passes every option.
func (s FilterSet) Match(item Listable, acct AccountContext, now time.Time) bool {
	for _, o := range s {
		if !o.Match(item, acct, now) {
			return false
		}
	}
	return true
}

// Equal compares two sets including order.
func (s FilterSet) Equal(other FilterSet) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// SortOrder selects the display order of a list.
type SortOrder string

const (
	SortAlphabetical SortOrder = "alphabetical"
	SortNewestFirst  SortOrder = "newest"
	SortOldestFirst  SortOrder = "oldest"
	SortShuffle      SortOrder = "shuffle"
)

// ParseSortOrder accepts the SortOrder string values.
func ParseSortOrder(s string) (SortOrder, error) {
	switch o := SortOrder(strings.ToLower(strings.TrimSpace(s))); o {
	case SortAlphabetical, SortNewestFirst, SortOldestFirst, SortShuffle:
		return o, nil
	}
	return "", fmt.Errorf("unknown sort order %q", s)
}
