package fetch

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/omgclient/internal/client/api"
	"github.com/dmitrijs2005/omgclient/internal/client/api/apitest"
	"github.com/dmitrijs2005/omgclient/internal/client/models"
	"github.com/dmitrijs2005/omgclient/internal/client/store"
)

func TestConstructor_SameKeySameInstance(t *testing.T) {
	c, fake, _ := newTestConstructor(t)

	assert.Same(t, c.Profile("alice"), c.Profile("alice"))
	assert.NotSame(t, c.Profile("alice"), c.Profile("bob"))
	assert.Same(t, c.Pastes("alice"), c.Pastes("alice"))
	assert.Same(t, c.Paste("alice", "abc"), c.Paste("alice", "abc"))
	assert.Same(t, c.PastePoster(models.PasteDraft{Address: "alice"}), c.PastePoster(models.PasteDraft{Address: "alice"}))
	assert.Same(t, c.StatusFeed([]models.AddressName{"bob", "alice"}), c.StatusFeed([]models.AddressName{"alice", "bob", "alice"}))
	assert.Empty(t, fake.Calls(), "building never fetches")
}

func TestConstructor_ConcurrentLookups(t *testing.T) {
	c, _, _ := newTestConstructor(t)
	const n = 16
	got := make([]*ModelBackedListFetcher[models.DirectoryEntry], n)

	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got[i] = c.Directory()
		}()
	}
	wg.Wait()

	for _, f := range got {
		assert.Same(t, got[0], f)
	}
	assert.Equal(t, 1, c.Len())
}

func TestConstructor_DirectoryReloadInterval(t *testing.T) {
	ctx := context.Background()
	fake := apitest.New()
	for i := range 7 {
		fake.Entries = append(fake.Entries, models.DirectoryEntry{Address: models.AddressName(fmt.Sprintf("user%d", i))})
	}
	clk := newClock()
	c := NewConstructor(fake, store.NewMemory(), nil, WithReloadInterval(time.Minute), WithClock(clk.Now))

	dir := c.Directory()
	require.True(t, dir.UpdateIfNeeded(ctx, false))
	assert.Len(t, dir.Results(), 7)
	assert.Equal(t, 1, fake.Count("Directory"))

	clk.Advance(10 * time.Second)
	assert.False(t, c.Directory().UpdateIfNeeded(ctx, false))
	assert.Equal(t, 1, fake.Count("Directory"))

	clk.Advance(51 * time.Second)
	assert.True(t, c.Directory().UpdateIfNeeded(ctx, false))
	assert.Equal(t, 2, fake.Count("Directory"))
	assert.Len(t, dir.Results(), 7)
}

func TestConstructor_DirectoryServedFromCacheOffline(t *testing.T) {
	ctx := context.Background()
	fake := apitest.New()
	fake.Entries = []models.DirectoryEntry{{Address: "alice"}, {Address: "bob"}}
	mem := store.NewMemory()
	NewConstructor(fake, mem, nil).Directory().UpdateIfNeeded(ctx, false)

	fake.SetFail(api.ErrUnavailable)
	dir := NewConstructor(fake, mem, nil).Directory()
	dir.UpdateIfNeeded(ctx, false)

	assert.Len(t, dir.Results(), 2)
	assert.ErrorIs(t, dir.Err(), api.ErrUnavailable)
}

func TestConstructor_StatusLogPages(t *testing.T) {
	ctx := context.Background()
	c, fake, _ := newTestConstructor(t)
	for i := range StatusLogPageSize + 5 {
		fake.StatusSet = append(fake.StatusSet, models.Status{ID: fmt.Sprint(i), Address: "alice", Content: "x"})
	}

	log := c.StatusLog()
	log.UpdateIfNeeded(ctx, false)
	assert.Len(t, log.Results(), StatusLogPageSize)
	assert.True(t, log.HasMorePages())
	log.FetchNextPageIfNeeded(ctx)
	assert.Len(t, log.Results(), StatusLogPageSize+5)
	assert.Equal(t, 1, fake.Count("StatusLog"))
}

func TestConstructor_AccountFetchersNeedCredential(t *testing.T) {
	ctx := context.Background()
	c := NewConstructor(apitest.New(), store.NewMemory(), nil)

	info := c.AccountInfo("alice")
	info.UpdateIfNeeded(ctx, false)
	assert.ErrorIs(t, info.Err(), api.ErrNoCredential)
}

func TestConstructor_AvailabilityIsNotCached(t *testing.T) {
	ctx := context.Background()
	c, _, mem := newTestConstructor(t)
	a := c.Availability("alice")
	a.UpdateIfNeeded(ctx, false)

	_, err := mem.Read(ctx, a.Key())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestConstructor_StagedDraftsAcrossKinds(t *testing.T) {
	ctx := context.Background()
	c, _, mem := newTestConstructor(t)
	require.NoError(t, c.StatusPoster(models.StatusDraft{Address: "bob"}).Edit(ctx, func(d *models.StatusDraft) { d.Content = "x" }))
	require.NoError(t, c.NowPoster(models.NowDraft{Address: "alice"}).Edit(ctx, func(d *models.NowDraft) { d.Content = "y" }))
	require.NoError(t, store.WriteJSON(ctx, mem, models.Key(models.KindProfile, "alice"), models.ProfilePage{}))

	got, err := c.StagedDrafts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.CacheKey{
		models.Key(models.KindDraftNow, "alice"),
		models.Key(models.KindDraftStatus, "bob", "new"),
	}, got)
}
