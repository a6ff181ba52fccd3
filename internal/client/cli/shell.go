package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dmitrijs2005/omgclient/internal/client/app"
	"github.com/dmitrijs2005/omgclient/internal/client/fetch"
	"github.com/dmitrijs2005/omgclient/internal/client/models"
)

// getSimpleText, getSecret and getMultiline are indirections used to
// facilitate testing.
var (
	getSimpleText = GetSimpleText
	getSecret     = GetSecret
	getMultiline  = GetMultiline
)

// Shell runs REPL commands against an App. The filter and sort it keeps are
// applied to every list it prints.
type Shell struct {
	app    *app.App
	reader *bufio.Reader
	out    io.Writer

	filters models.FilterSet
	sort    models.SortOrder
}

func NewShell(a *app.App, in io.Reader, out io.Writer) *Shell {
	return &Shell{
		app:    a,
		reader: bufio.NewReader(in),
		out:    out,
		sort:   models.SortNewestFirst,
	}
}

// Run starts the REPL and blocks until the user exits.
func (s *Shell) Run(ctx context.Context) {
	fmt.Fprintln(s.out, "omg.lol client (type 'help' for commands)")
	if err := s.Drafts(ctx); err != nil {
		s.app.Log.Warn(ctx, "list staged drafts failed", "error", err)
	}
	runREPL(ctx, s, func() string { return s.status(ctx) }, s.reader)
}

func (s *Shell) status(ctx context.Context) string {
	if !s.app.Auth.SignedIn(ctx) {
		return "(signed out)"
	}
	addr, _ := s.app.Auth.ActiveAddress(ctx)
	if addr == "" {
		return "(signed in)"
	}
	return "(@" + string(addr) + ")"
}

func (s *Shell) isLoggedIn(ctx context.Context) bool { return s.app.Auth.SignedIn(ctx) }

func (s *Shell) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}

// Login signs in through the browser when an OAuth client is configured,
// otherwise with an API key read without echo.
func (s *Shell) Login(ctx context.Context) error {
	u, err := s.app.Auth.LoginURL()
	if errors.Is(err, app.ErrNotConfigured) {
		key, err := getSecret("API key", s.out)
		if err != nil {
			return err
		}
		if err := s.app.Auth.UseToken(ctx, key); err != nil {
			return err
		}
		s.printf("Signed in %s\n", s.status(ctx))
		return nil
	}
	if err != nil {
		return err
	}

	s.printf("Open this page to sign in:\n  %s\n", u)
	code, err := getSimpleText(s.reader, "Paste the code from the redirect", s.out)
	if err != nil {
		return err
	}
	if err := s.app.Auth.CompleteLogin(ctx, code); err != nil {
		return err
	}
	s.printf("Signed in %s\n", s.status(ctx))
	return nil
}

func (s *Shell) Logout(ctx context.Context) error {
	if err := s.app.Logout(ctx); err != nil {
		return err
	}
	s.printf("Signed out\n")
	return nil
}

func address(raw string) (models.AddressName, error) {
	return models.NormalizeAddress(raw)
}

// refresh brings r up to date. A failure is only an error when there is
// nothing cached to show instead.
func (s *Shell) refresh(ctx context.Context, r *fetch.Request, have func() bool) error {
	r.UpdateIfNeeded(ctx, false)
	err := r.Err()
	if err == nil {
		return nil
	}
	if have() {
		s.printf("(offline, showing saved copy: %v)\n", err)
		return nil
	}
	return err
}

func printList[T models.Listable](ctx context.Context, s *Shell, l *fetch.ListFetcher[T], line func(T) string) error {
	l.SetFilters(s.filters)
	l.SetSort(s.sort)
	if err := s.refresh(ctx, l.Request, l.HasContent); err != nil {
		return err
	}
	if l.NoContent() {
		s.printf("Nothing here yet\n")
		return nil
	}
	items := l.Display(s.app.Account(ctx))
	for _, it := range items {
		s.printf("%s\n", line(it))
	}
	if hidden := len(l.Results()) - len(items); hidden > 0 {
		s.printf("(%d hidden by filters)\n", hidden)
	}
	return nil
}

func showOne[T any](ctx context.Context, s *Shell, f *fetch.ModelBackedFetcher[T], print func(T)) error {
	if err := s.refresh(ctx, f.Request, func() bool { _, ok := f.Result(); return ok }); err != nil {
		return err
	}
	v, ok := f.Result()
	if !ok {
		return errors.New("not found")
	}
	print(v)
	return nil
}

func (s *Shell) Directory(ctx context.Context) error {
	return printList(ctx, s, s.app.Fetch.Directory().ListFetcher, func(e models.DirectoryEntry) string {
		return "@" + string(e.Address)
	})
}

func (s *Shell) Show(ctx context.Context, raw string) error {
	addr, err := address(raw)
	if err != nil {
		return err
	}
	if err := showOne(ctx, s, s.app.Fetch.AddressInfo(addr), func(i models.AddressInfo) {
		s.printf("@%s  registered %s\n", i.Address, i.Registered.Format("2006-01-02"))
		if i.Message != "" {
			s.printf("%s\n", i.Message)
		}
	}); err != nil {
		return err
	}
	return showOne(ctx, s, s.app.Fetch.Bio(addr), func(b models.Bio) {
		if b.Content != "" {
			s.printf("\n%s\n", b.Content)
		}
	})
}

func (s *Shell) Now(ctx context.Context, raw string) error {
	addr, err := address(raw)
	if err != nil {
		return err
	}
	return showOne(ctx, s, s.app.Fetch.Now(addr), func(p models.NowPage) {
		s.printf("/now for @%s (updated %s)\n\n%s\n", p.Address, p.Updated.Format("2006-01-02"), p.Content)
	})
}

func statusLine(st models.Status) string {
	return fmt.Sprintf("%s @%s %s  %s", st.Created.Format("2006-01-02 15:04"), st.Address, st.Emoji, st.Content)
}

// Statuses prints the status log of addr, or the global log when addr is
// empty, loading one more page of it on every call.
func (s *Shell) Statuses(ctx context.Context, raw string) error {
	if raw == "" {
		log := s.app.Fetch.StatusLog()
		if log.HasContent() && log.HasMorePages() {
			log.FetchNextPageIfNeeded(ctx)
		}
		return printList(ctx, s, log, statusLine)
	}
	addr, err := address(raw)
	if err != nil {
		return err
	}
	return printList(ctx, s, s.app.Fetch.Statuses(addr).ListFetcher, statusLine)
}

// Feed prints statuses from everyone the active address follows.
func (s *Shell) Feed(ctx context.Context) error {
	feed, err := s.app.Feed(ctx)
	if errors.Is(err, app.ErrFollowingNobody) {
		s.printf("Not following anyone yet\n")
		return nil
	}
	if err != nil {
		return err
	}
	return printList(ctx, s, feed, statusLine)
}

func (s *Shell) Pastes(ctx context.Context, raw string) error {
	addr, err := address(raw)
	if err != nil {
		return err
	}
	return printList(ctx, s, s.app.Fetch.Pastes(addr).ListFetcher, func(p models.Paste) string {
		return fmt.Sprintf("%-24s %s", p.Name, p.Modified.Format("2006-01-02"))
	})
}

func (s *Shell) PURLs(ctx context.Context, raw string) error {
	addr, err := address(raw)
	if err != nil {
		return err
	}
	return printList(ctx, s, s.app.Fetch.PURLs(addr).ListFetcher, func(p models.PURL) string {
		return fmt.Sprintf("%-24s %s", p.Name, p.URL)
	})
}

// Post composes and publishes a status as addr. A draft left by an earlier
// run is offered first.
func (s *Shell) Post(ctx context.Context, raw string) error {
	addr, err := address(raw)
	if err != nil {
		return err
	}
	p := s.app.Fetch.StatusPoster(models.StatusDraft{Address: addr})
	restored, err := p.Restore(ctx)
	if err != nil {
		return err
	}
	if restored && !Confirm(s.reader, fmt.Sprintf("Continue the unsent status %q?", p.Draft().Content), s.out) {
		if err := p.Discard(ctx); err != nil {
			return err
		}
		restored = false
	}

	if !restored {
		emoji, err := getSimpleText(s.reader, "Emoji (optional)", s.out)
		if err != nil {
			return err
		}
		content, err := getMultiline(s.reader, "Status", s.out)
		if err != nil {
			return err
		}
		if err := p.Edit(ctx, func(d *models.StatusDraft) {
			d.Emoji = emoji
			d.Content = content
		}); err != nil {
			return err
		}
	}

	st, err := p.Submit(ctx)
	if err != nil {
		if errors.Is(err, fetch.ErrNotPublishable) {
			return errors.New("a status needs some text")
		}
		return fmt.Errorf("not posted, the draft is saved: %w", err)
	}
	s.printf("Posted %s\n", statusLine(st))
	return nil
}

func (s *Shell) Paste(ctx context.Context, raw, name string) error {
	addr, err := address(raw)
	if err != nil {
		return err
	}
	return showOne(ctx, s, s.app.Fetch.Paste(addr, name), func(p models.Paste) {
		s.printf("%s/%s\n\n%s\n", p.Address, p.Name, p.Content)
	})
}

func (s *Shell) RemovePaste(ctx context.Context, raw, name string) error {
	addr, err := address(raw)
	if err != nil {
		return err
	}
	if !Confirm(s.reader, fmt.Sprintf("Delete paste %s/%s?", addr, name), s.out) {
		return nil
	}
	if err := s.app.DeletePaste(ctx, addr, name); err != nil {
		return err
	}
	s.printf("Deleted\n")
	return nil
}

func (s *Shell) Pin(ctx context.Context, raw string) error {
	addr, err := address(raw)
	if err != nil {
		return err
	}
	return s.app.Pin(ctx, addr)
}

func (s *Shell) Unpin(ctx context.Context, raw string) error {
	addr, err := address(raw)
	if err != nil {
		return err
	}
	return s.app.Unpin(ctx, addr)
}

func (s *Shell) Pinned(ctx context.Context) error {
	list, err := s.app.Pinned(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		s.printf("No pinned addresses\n")
	}
	for _, a := range list {
		s.printf("@%s\n", a)
	}
	return nil
}

func (s *Shell) Follow(ctx context.Context, raw string, follow bool) error {
	addr, err := address(raw)
	if err != nil {
		return err
	}
	if follow {
		return s.app.Follow(ctx, addr)
	}
	return s.app.Unfollow(ctx, addr)
}

func (s *Shell) Block(ctx context.Context, raw string, block bool) error {
	addr, err := address(raw)
	if err != nil {
		return err
	}
	if block {
		return s.app.Block(ctx, addr)
	}
	return s.app.Unblock(ctx, addr)
}

// Filter sets the text query; an empty query clears it. "following" and
// "recent" toggle the matching options.
func (s *Shell) Filter(ctx context.Context, query string) error {
	switch q := strings.TrimSpace(query); q {
	case "":
		s.filters = nil
		s.printf("Filters cleared\n")
		return nil
	case "following":
		s.filters = toggle(s.filters, models.FollowingOnly())
	case "recent":
		s.filters = toggle(s.filters, models.RecentWithin(7*24*time.Hour))
	default:
		s.filters = s.filters.With(models.Query(q))
	}
	s.printf("Filters: %v\n", s.filters)
	return nil
}

func toggle(fs models.FilterSet, o models.FilterOption) models.FilterSet {
	for _, x := range fs {
		if x.Tag == o.Tag {
			return fs.Without(o.Tag)
		}
	}
	return fs.With(o)
}

func (s *Shell) Sort(ctx context.Context, raw string) error {
	o, err := models.ParseSortOrder(raw)
	if err != nil {
		return err
	}
	s.sort = o
	return nil
}

// Drafts reports drafts staged by an earlier run that were never published.
func (s *Shell) Drafts(ctx context.Context) error {
	keys, err := s.app.Fetch.StagedDrafts(ctx)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	s.printf("Unsent drafts:\n")
	for _, k := range keys {
		s.printf("  %s\n", k)
	}
	return nil
}
