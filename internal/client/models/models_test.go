package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeAddress(t *testing.T) {
	tests := []struct {
		in      string
		want    AddressName
		wantErr bool
	}{
		{in: "Alice", want: "alice"},
		{in: "  @Bob.omg.lol ", want: "bob"},
		{in: "", wantErr: true},
		{in: "@", wantErr: true},
		{in: "a b", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeAddress(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidAddress)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseAddressList_DedupAndSkipInvalid(t *testing.T) {
	got := ParseAddressList("alice\n@BOB\n\nalice, carol.omg.lol\nbad name")
	assert.Equal(t, []AddressName{"alice", "bob", "carol"}, got)
	assert.Equal(t, "alice\nbob\ncarol", FormatAddressList(got))
}

func TestCacheKey_String(t *testing.T) {
	assert.Equal(t, "directory/-", Key(KindDirectory, "").String())
	assert.Equal(t, "paste/alice/abc", Key(KindPaste, "alice", "abc").String())
	assert.True(t, KindDraftPaste.IsDraft())
	assert.False(t, KindPaste.IsDraft())
}

func TestAutomationPolicy_IsStale(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p := AutomationPolicy{ReloadInterval: time.Minute}

	assert.True(t, p.IsStale(nil, t0))
	assert.False(t, p.IsStale(&t0, t0.Add(time.Minute)), "exactly the interval is not stale")
	assert.True(t, p.IsStale(&t0, t0.Add(time.Minute+time.Nanosecond)))

	never := AutomationPolicy{}
	assert.False(t, never.IsStale(&t0, t0.Add(24*time.Hour)))
}

type fakeAccount struct {
	following map[AddressName]bool
	blocked   map[AddressName]bool
}

func (f fakeAccount) IsFollowing(a AddressName) bool { return f.following[a] }
func (f fakeAccount) IsBlocked(a AddressName) bool   { return f.blocked[a] }

func TestFilterSet_Match(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	acct := fakeAccount{
		following: map[AddressName]bool{"alice": true},
		blocked:   map[AddressName]bool{"mallory": true},
	}
	fresh := Status{ID: "1", Address: "alice", Content: "Hello World", Created: now.Add(-time.Hour)}
	old := Status{ID: "2", Address: "bob", Content: "ancient", Created: now.Add(-48 * time.Hour)}
	spam := Status{ID: "3", Address: "mallory", Content: "buy now", Created: now}

	assert.True(t, NewFilterSet(FollowingOnly()).Match(fresh, acct, now))
	assert.False(t, NewFilterSet(FollowingOnly()).Match(old, acct, now))
	assert.False(t, NewFilterSet(NotBlocked()).Match(spam, acct, now))
	assert.True(t, NewFilterSet(NotBlocked()).Match(spam, nil, now))
	assert.True(t, NewFilterSet(RecentWithin(24*time.Hour)).Match(fresh, acct, now))
	assert.False(t, NewFilterSet(RecentWithin(24*time.Hour)).Match(old, acct, now))

	// query is case-insensitive
	assert.True(t, NewFilterSet(Query("hello")).Match(fresh, acct, now))
	assert.True(t, NewFilterSet(Query("WORLD")).Match(fresh, acct, now))
	assert.False(t, NewFilterSet(Query("nope")).Match(fresh, acct, now))

	all := NewFilterSet(NotBlocked(), Query("o"), RecentWithin(24*time.Hour))
	assert.True(t, all.Match(fresh, acct, now))
	assert.False(t, all.Match(spam, acct, now))
}

func TestFilterSet_WithReplacesByTag(t *testing.T) {
	s := NewFilterSet(Query("a"), NotBlocked(), Query("b"))
	require.Len(t, s, 2)
	assert.Equal(t, Query("b"), s[0])
	assert.Equal(t, FilterSet{NotBlocked()}, s.Without(FilterQuery))
	assert.True(t, s.Equal(NewFilterSet(Query("b"), NotBlocked())))
}

func TestDraftsPublishable(t *testing.T) {
	assert.True(t, PasteDraft{Address: "a", Name: "abc", Content: "hello"}.Publishable())
	assert.False(t, PasteDraft{Address: "a", Name: "abc", Content: "  "}.Publishable())
	assert.False(t, PURLDraft{Address: "a", Name: "x"}.Publishable())
	assert.True(t, StatusDraft{Address: "a", Content: "hi"}.Publishable())
	assert.Equal(t, "", StatusDraft{Address: "a"}.Identity())
}

func TestParseSortOrder(t *testing.T) {
	o, err := ParseSortOrder(" Newest ")
	require.NoError(t, err)
	assert.Equal(t, SortNewestFirst, o)
	_, err = ParseSortOrder("sideways")
	require.Error(t, err)
}

func TestParseCacheKey_RoundTrip(t *testing.T) {
	for _, k := range []CacheKey{
		Key(KindDirectory, ""),
		Key(KindPaste, "alice", "abc"),
		Key(KindPURL, "bob", "nested/name"),
	} {
		got, err := ParseCacheKey(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	_, err := ParseCacheKey("nonsense")
	require.Error(t, err)
}
