package fetch

import (
	"context"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/omgclient/internal/client/api"
	"github.com/dmitrijs2005/omgclient/internal/client/api/apitest"
	"github.com/dmitrijs2005/omgclient/internal/client/models"
	"github.com/dmitrijs2005/omgclient/internal/client/store"
)

func newTestConstructor(t *testing.T) (*Constructor, *apitest.Fake, *store.Memory) {
	t.Helper()
	fake := apitest.New()
	clk := newClock()
	fake.Clock = clk.Now
	mem := store.NewMemory()
	return NewConstructor(fake, mem, staticCreds("tok"), WithClock(clk.Now)), fake, mem
}

func TestPoster_StagedDraftSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	c, fake, mem := newTestConstructor(t)

	p := c.PastePoster(models.PasteDraft{Address: "alice"})
	require.NoError(t, p.Edit(ctx, func(d *models.PasteDraft) {
		d.Name = "abc"
		d.Content = "half written"
	}))

	// A new process over the same store.
	c2 := NewConstructor(fake, mem, staticCreds("tok"))
	p2 := c2.PastePoster(models.PasteDraft{Address: "alice"})
	found, err := p2.Restore(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, models.PasteDraft{Address: "alice", Name: "abc", Content: "half written"}, p2.Draft())

	staged, err := c2.StagedDrafts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.CacheKey{models.Key(models.KindDraftPaste, "alice", "new")}, staged)
	assert.Empty(t, fake.Calls())
}

func TestPoster_PublishClearsStagedDraft(t *testing.T) {
	ctx := context.Background()
	c, fake, _ := newTestConstructor(t)

	p := c.PastePoster(models.PasteDraft{Address: "alice"})
	require.NoError(t, p.SetDraft(models.PasteDraft{Address: "alice", Name: "abc", Content: "hello"}))
	res, err := p.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc", res.Name)

	staged, err := p.HasStagedDraft(ctx)
	require.NoError(t, err)
	assert.False(t, staged)
	assert.Equal(t, PosterEditing, p.State())
	assert.Equal(t, models.PasteDraft{Address: "alice"}, p.Draft(), "a new blank draft follows a publish")

	list := c.Pastes("alice")
	assert.Equal(t, []string{"abc"}, names(list.Results()), "merged before any refresh")
	list.UpdateIfNeeded(ctx, true)
	assert.Equal(t, []string{"abc"}, names(list.Results()))
	assert.Equal(t, 1, fake.Count("SavePaste"))

	single, ok := c.Paste("alice", "abc").Result()
	require.True(t, ok)
	assert.Equal(t, "hello", single.Content)
}

func TestPoster_RenameDeletesOldNameFirst(t *testing.T) {
	ctx := context.Background()
	c, fake, _ := newTestConstructor(t)
	orig := models.Paste{Address: "alice", Name: "abc", Content: "body"}
	fake.PasteSet["alice"] = []models.Paste{orig}
	c.Pastes("alice").UpdateIfNeeded(ctx, false)

	p := c.PastePoster(models.PasteDraftFrom(orig))
	require.NoError(t, p.Edit(ctx, func(d *models.PasteDraft) { d.Name = "xyz" }))
	_, err := p.Submit(ctx)
	require.NoError(t, err)

	calls := fake.Calls()
	del := slices.Index(calls, "DeletePaste alice/abc")
	save := slices.Index(calls, "SavePaste alice/xyz")
	require.NotEqual(t, -1, del)
	require.NotEqual(t, -1, save)
	assert.Less(t, del, save)

	assert.Equal(t, []string{"xyz"}, names(c.Pastes("alice").Results()))
	assert.Equal(t, []string{"xyz"}, names(fake.PasteSet["alice"]))
}

func TestPoster_RenameRetryDoesNotDeleteTwice(t *testing.T) {
	ctx := context.Background()
	c, fake, _ := newTestConstructor(t)
	orig := models.Paste{Address: "alice", Name: "abc", Content: "body"}
	fake.PasteSet["alice"] = []models.Paste{orig}

	p := c.PastePoster(models.PasteDraftFrom(orig))
	require.NoError(t, p.SetDraft(models.PasteDraft{Address: "alice", Name: "xyz", Content: "body"}))
	fake.FailOn["SavePaste"] = api.ErrUnavailable
	_, err := p.Submit(ctx)
	require.ErrorIs(t, err, api.ErrUnavailable)

	delete(fake.FailOn, "SavePaste")
	_, err = p.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, fake.Count("DeletePaste"))
	assert.Equal(t, 2, fake.Count("SavePaste"))
}

func TestPoster_RenameWithFailedCreateDropsOldName(t *testing.T) {
	ctx := context.Background()
	c, fake, mem := newTestConstructor(t)
	orig := models.Paste{Address: "alice", Name: "abc", Content: "body"}
	fake.PasteSet["alice"] = []models.Paste{orig}
	list := c.Pastes("alice")
	list.UpdateIfNeeded(ctx, false)
	c.Paste("alice", "abc").UpdateIfNeeded(ctx, false)

	p := c.PastePoster(models.PasteDraftFrom(orig))
	require.NoError(t, p.SetDraft(models.PasteDraft{Address: "alice", Name: "xyz", Content: "body"}))
	fake.FailOn["SavePaste"] = api.ErrUnavailable
	_, err := p.Submit(ctx)
	require.ErrorIs(t, err, api.ErrUnavailable)

	assert.Empty(t, names(list.Results()), "old name is gone remotely")
	_, ok := c.Paste("alice", "abc").Result()
	assert.False(t, ok)
	_, err = mem.Read(ctx, models.Key(models.KindPaste, "alice", "abc"))
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPoster_FailedPublishKeepsStagedDraft(t *testing.T) {
	ctx := context.Background()
	c, fake, mem := newTestConstructor(t)
	fake.SetFail(api.ErrUnavailable)

	draft := models.PasteDraft{Address: "alice", Name: "abc", Content: "hello"}
	p := c.PastePoster(models.PasteDraft{Address: "alice"})
	require.NoError(t, p.SetDraft(draft))
	_, err := p.Submit(ctx)
	require.ErrorIs(t, err, api.ErrUnavailable)

	assert.ErrorIs(t, p.Err(), api.ErrUnavailable)
	assert.Equal(t, PosterEditing, p.State())
	assert.Equal(t, draft, p.Draft())
	staged, err := store.ReadJSON[stagedDraft[models.PasteDraft]](ctx, mem, p.Key())
	require.NoError(t, err)
	assert.Equal(t, draft, staged.Draft)

	fake.SetFail(nil)
	_, err = p.Submit(ctx)
	require.NoError(t, err)
	assert.NoError(t, p.Err())
	has, err := p.HasStagedDraft(ctx)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestPoster_NotPublishableMakesNoCalls(t *testing.T) {
	ctx := context.Background()
	c, fake, _ := newTestConstructor(t)

	p := c.PastePoster(models.PasteDraft{Address: "alice"})
	require.NoError(t, p.SetDraft(models.PasteDraft{Address: "alice", Name: "abc", Content: "  "}))
	_, err := p.Submit(ctx)
	require.ErrorIs(t, err, ErrNotPublishable)
	_, err = p.Publish(ctx)
	require.ErrorIs(t, err, ErrNotPublishable)

	assert.Empty(t, fake.Calls())
	assert.ErrorIs(t, p.Err(), ErrNotPublishable)
}

func TestPoster_PublishNeedsStagedDraft(t *testing.T) {
	ctx := context.Background()
	c, fake, _ := newTestConstructor(t)
	p := c.PastePoster(models.PasteDraft{Address: "alice"})

	require.NoError(t, p.SetDraft(models.PasteDraft{Address: "alice", Name: "abc", Content: "x"}))
	_, err := p.Publish(ctx)
	require.ErrorIs(t, err, ErrNotStaged)
	assert.Empty(t, fake.Calls())

	require.NoError(t, p.SaveDraft(ctx))
	require.NoError(t, p.SetDraft(models.PasteDraft{Address: "alice", Name: "abc", Content: "changed"}))
	_, err = p.Publish(ctx)
	require.ErrorIs(t, err, ErrNotStaged, "changed after staging")
	assert.Equal(t, PosterEditing, p.State())

	require.NoError(t, p.SaveDraft(ctx))
	res, err := p.Publish(ctx)
	require.NoError(t, err)
	assert.Equal(t, "changed", res.Content)
}

func TestPoster_RestoredDraftIsStaged(t *testing.T) {
	ctx := context.Background()
	c, fake, mem := newTestConstructor(t)
	p := c.PastePoster(models.PasteDraft{Address: "alice"})
	require.NoError(t, p.Edit(ctx, func(d *models.PasteDraft) {
		d.Name = "abc"
		d.Content = "x"
	}))

	p2 := NewConstructor(fake, mem, staticCreds("tok")).PastePoster(models.PasteDraft{Address: "alice"})
	found, err := p2.Restore(ctx)
	require.NoError(t, err)
	require.True(t, found)
	_, err = p2.Publish(ctx)
	assert.NoError(t, err)
}

func TestPoster_DeleteLatestDraftNeedsPublish(t *testing.T) {
	c, _, _ := newTestConstructor(t)
	p := c.StatusPoster(models.StatusDraft{Address: "alice"})
	assert.ErrorIs(t, p.DeleteLatestDraft(context.Background()), ErrNotPublished)
}

func TestPoster_StepwisePublish(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestConstructor(t)
	p := c.PastePoster(models.PasteDraft{Address: "alice"})
	require.NoError(t, p.SetDraft(models.PasteDraft{Address: "alice", Name: "abc", Content: "x"}))
	require.NoError(t, p.SaveDraft(ctx))

	_, err := p.Publish(ctx)
	require.NoError(t, err)
	assert.Equal(t, PosterPublished, p.State())
	has, _ := p.HasStagedDraft(ctx)
	assert.True(t, has, "staged copy stays until cleanup")

	require.NoError(t, p.DeleteLatestDraft(ctx))
	has, _ = p.HasStagedDraft(ctx)
	assert.False(t, has)
}

func TestPoster_Undo(t *testing.T) {
	ctx := context.Background()
	c, fake, _ := newTestConstructor(t)
	orig := models.Paste{Address: "alice", Name: "abc", Content: "one"}
	fake.PasteSet["alice"] = []models.Paste{orig}

	p := c.PastePoster(models.PasteDraftFrom(orig))
	require.NoError(t, p.Edit(ctx, func(d *models.PasteDraft) { d.Content = "two" }))
	_, err := p.Submit(ctx)
	require.NoError(t, err)
	require.Equal(t, "two", fake.PasteSet["alice"][0].Content)

	res, err := p.Undo(ctx)
	require.NoError(t, err)
	assert.Equal(t, "one", res.Content)
	assert.Equal(t, "one", fake.PasteSet["alice"][0].Content)
	assert.Equal(t, 0, fake.Count("DeletePaste"))
}

func TestPoster_Discard(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestConstructor(t)
	seed := models.PasteDraft{Address: "alice", Name: "abc", Content: "one"}
	p := c.PastePoster(seed)
	require.NoError(t, p.Edit(ctx, func(d *models.PasteDraft) { d.Content = "scratch" }))

	require.NoError(t, p.Discard(ctx))
	assert.Equal(t, seed, p.Draft())
	has, err := p.HasStagedDraft(ctx)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestPoster_BusyWhilePublishing(t *testing.T) {
	ctx := context.Background()
	c, fake, _ := newTestConstructor(t)
	started := make(chan struct{})
	release := make(chan struct{})
	fake.Before = func(method string) {
		if method == "SaveStatus" {
			close(started)
			<-release
		}
	}

	p := c.StatusPoster(models.StatusDraft{Address: "alice"})
	require.NoError(t, p.SetDraft(models.StatusDraft{Address: "alice", Content: "hi"}))
	done := make(chan error, 1)
	go func() {
		_, err := p.Submit(ctx)
		done <- err
	}()
	<-started

	_, err := p.Submit(ctx)
	assert.ErrorIs(t, err, ErrPosterBusy)
	assert.ErrorIs(t, p.SetDraft(models.StatusDraft{}), ErrPosterBusy)
	assert.Equal(t, PosterPublishing, p.State())

	close(release)
	require.NoError(t, <-done)
}

func TestPoster_StatusMergesIntoLists(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestConstructor(t)
	p := c.StatusPoster(models.StatusDraft{Address: "alice"})
	require.NoError(t, p.SetDraft(models.StatusDraft{Address: "alice", Emoji: "🙂", Content: "hi"}))

	res, err := p.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, "s1", res.ID)

	got := c.Statuses("alice").Results()
	require.Len(t, got, 1)
	assert.Equal(t, "s1", got[0].ID)
	assert.Len(t, c.StatusLog().Results(), 1)
	single, ok := c.Status("alice", "s1").Result()
	require.True(t, ok)
	assert.Equal(t, "hi", single.Content)
}

func TestPoster_NowKeepsPublishedContent(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestConstructor(t)
	p := c.NowPoster(models.NowDraft{Address: "alice"})
	require.NoError(t, p.SetDraft(models.NowDraft{Address: "alice", Content: "reading"}))

	_, err := p.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, "reading", p.Draft().Content)
	page, ok := c.Now("alice").Result()
	require.True(t, ok)
	assert.Equal(t, "reading", page.Content)
}

func TestPoster_SignedOutPublishFails(t *testing.T) {
	ctx := context.Background()
	c := NewConstructor(apitest.New(), store.NewMemory(), staticCreds(""))
	p := c.ProfilePoster(models.ProfileDraft{Address: "alice", Content: "# hi"})

	_, err := p.Submit(ctx)
	require.ErrorIs(t, err, api.ErrNoCredential)
	has, _ := p.HasStagedDraft(ctx)
	assert.True(t, has)
}
