package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/omgclient/internal/client/models"
)

// statusFanout bounds concurrent per-address statuslog reads.
const statusFanout = 4

func (c *HTTPClient) get(ctx context.Context, credential string, out any, segments ...string) error {
	return c.do(ctx, call{method: http.MethodGet, url: endpoint(c.base, segments...), credential: credential}, out)
}

func (c *HTTPClient) ServiceInfo(ctx context.Context) (models.ServiceInfo, error) {
	var b serviceInfoBody
	if err := c.get(ctx, "", &b, "service", "info"); err != nil {
		return models.ServiceInfo{}, err
	}
	return models.ServiceInfo(b), nil
}

func (c *HTTPClient) Directory(ctx context.Context) ([]models.DirectoryEntry, error) {
	var b directoryBody
	if err := c.get(ctx, "", &b, "directory"); err != nil {
		return nil, err
	}
	out := make([]models.DirectoryEntry, 0, len(b.Directory))
	for _, raw := range b.Directory {
		addr, err := models.NormalizeAddress(raw)
		if err != nil {
			continue
		}
		out = append(out, models.DirectoryEntry{Address: addr, URL: "https://" + string(addr) + ".omg.lol"})
	}
	return out, nil
}

func (c *HTTPClient) NowGarden(ctx context.Context) ([]models.NowGardenEntry, error) {
	var b gardenBody
	if err := c.get(ctx, "", &b, "now", "garden"); err != nil {
		return nil, err
	}
	out := make([]models.NowGardenEntry, 0, len(b.Garden))
	for _, g := range b.Garden {
		addr, err := models.NormalizeAddress(g.Address)
		if err != nil {
			continue
		}
		out = append(out, models.NowGardenEntry{Address: addr, URL: g.URL, Updated: g.Updated.UnixEpochTime.Time})
	}
	return out, nil
}

func (c *HTTPClient) Profile(ctx context.Context, addr models.AddressName) (models.ProfilePage, error) {
	var b webBody
	if err := c.get(ctx, "", &b, "address", string(addr), "web"); err != nil {
		return models.ProfilePage{}, err
	}
	return models.ProfilePage{Address: addr, Content: b.Content, HTML: b.HTML, Type: b.Type, Updated: b.Modified.Time}, nil
}

func (c *HTTPClient) AddressInfo(ctx context.Context, addr models.AddressName) (models.AddressInfo, error) {
	var b addressInfoBody
	if err := c.get(ctx, "", &b, "address", string(addr), "info"); err != nil {
		return models.AddressInfo{}, err
	}
	return models.AddressInfo{
		Address:    addr,
		Registered: b.Registration.UnixEpochTime.Time,
		Expired:    bool(b.Expiration.Expired),
		Verified:   bool(b.Verification.Verified),
		Message:    b.Message,
	}, nil
}

func (c *HTTPClient) Availability(ctx context.Context, addr models.AddressName) (models.Availability, error) {
	var b availabilityBody
	if err := c.get(ctx, "", &b, "address", string(addr), "availability"); err != nil {
		return models.Availability{}, err
	}
	return models.Availability{Address: addr, Available: bool(b.Available), Punycode: b.Punycode}, nil
}

func (c *HTTPClient) Now(ctx context.Context, addr models.AddressName) (models.NowPage, error) {
	var b nowBody
	if err := c.get(ctx, "", &b, "address", string(addr), "now"); err != nil {
		return models.NowPage{}, err
	}
	return models.NowPage{Address: addr, Content: b.Now.Content, Listed: bool(b.Now.Listed), Updated: b.Now.Updated.Time}, nil
}

func (c *HTTPClient) PURLs(ctx context.Context, addr models.AddressName, credential string) ([]models.PURL, error) {
	var b purlsBody
	if err := c.get(ctx, credential, &b, "address", string(addr), "purls"); err != nil {
		return nil, err
	}
	out := make([]models.PURL, 0, len(b.PURLs))
	for _, p := range b.PURLs {
		out = append(out, p.model(addr))
	}
	return out, nil
}

func (c *HTTPClient) PURL(ctx context.Context, addr models.AddressName, name, credential string) (models.PURL, error) {
	var b purlBody
	if err := c.get(ctx, credential, &b, "address", string(addr), "purl", name); err != nil {
		return models.PURL{}, err
	}
	return b.PURL.model(addr), nil
}

func (c *HTTPClient) Pastes(ctx context.Context, addr models.AddressName, credential string) ([]models.Paste, error) {
	var b pastebinBody
	if err := c.get(ctx, credential, &b, "address", string(addr), "pastebin"); err != nil {
		return nil, err
	}
	out := make([]models.Paste, 0, len(b.Pastebin))
	for _, p := range b.Pastebin {
		out = append(out, p.model(addr))
	}
	return out, nil
}

func (c *HTTPClient) Paste(ctx context.Context, addr models.AddressName, name, credential string) (models.Paste, error) {
	var b pasteBody
	if err := c.get(ctx, credential, &b, "address", string(addr), "pastebin", name); err != nil {
		return models.Paste{}, err
	}
	return b.Paste.model(addr), nil
}

func (c *HTTPClient) Bio(ctx context.Context, addr models.AddressName) (models.Bio, error) {
	var b bioBody
	if err := c.get(ctx, "", &b, "address", string(addr), "statuses", "bio"); err != nil {
		return models.Bio{}, err
	}
	return models.Bio{Address: addr, Content: b.Bio}, nil
}

// Icon reads the avatar from the profile cache host. The reply is raw image
// bytes, not an envelope.
func (c *HTTPClient) Icon(ctx context.Context, addr models.AddressName) (models.Icon, error) {
	resp, err := c.send(ctx, call{method: http.MethodGet, url: endpoint(c.cacheURL, string(addr), "picture")})
	if err != nil {
		return models.Icon{}, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.Icon{}, fmt.Errorf("%w: read icon: %w", ErrUnavailable, err)
	}
	return models.Icon{Address: addr, ContentType: resp.Header.Get("Content-Type"), Data: data}, nil
}

func (c *HTTPClient) StatusLog(ctx context.Context) ([]models.Status, error) {
	var b statusesBody
	if err := c.get(ctx, "", &b, "statuslog", "latest"); err != nil {
		return nil, err
	}
	return statusModels(b.Statuses), nil
}

func (c *HTTPClient) Statuses(ctx context.Context, addrs []models.AddressName) ([]models.Status, error) {
	if len(addrs) == 0 {
		return c.StatusLog(ctx)
	}

	var (
		mu  sync.Mutex
		all []models.Status
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(statusFanout)
	for _, addr := range slices.Compact(slices.Sorted(slices.Values(addrs))) {
		g.Go(func() error {
			var b statusesBody
			err := c.get(gctx, "", &b, "address", string(addr), "statuses")
			if errors.Is(err, ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			mu.Lock()
			all = append(all, statusModels(b.Statuses)...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	slices.SortStableFunc(all, func(a, b models.Status) int {
		if n := b.Created.Compare(a.Created); n != 0 {
			return n
		}
		return strings.Compare(a.ID, b.ID)
	})
	return all, nil
}

func (c *HTTPClient) Status(ctx context.Context, addr models.AddressName, id string) (models.Status, error) {
	var b statusBody
	if err := c.get(ctx, "", &b, "address", string(addr), "statuses", id); err != nil {
		return models.Status{}, err
	}
	s := b.Status.model()
	if s.Address == "" {
		s.Address = addr
	}
	return s, nil
}

func statusModels(in []statusWire) []models.Status {
	out := make([]models.Status, 0, len(in))
	for _, w := range in {
		out = append(out, w.model())
	}
	return out
}

func (c *HTTPClient) AccountInfo(ctx context.Context, addr models.AddressName, credential string) (models.AccountInfo, error) {
	if err := requireCredential(credential); err != nil {
		return models.AccountInfo{}, err
	}
	var b accountInfoBody
	if err := c.get(ctx, credential, &b, "account", string(addr), "info"); err != nil {
		return models.AccountInfo{}, err
	}
	return models.AccountInfo{Email: b.Email, Name: b.Name, Created: b.Created.UnixEpochTime.Time}, nil
}

func (c *HTTPClient) AccountAddresses(ctx context.Context, credential string) ([]models.AddressName, error) {
	if err := requireCredential(credential); err != nil {
		return nil, err
	}
	var b []accountAddressWire
	if err := c.get(ctx, credential, &b, "account", "application", "addresses"); err != nil {
		return nil, err
	}
	out := make([]models.AddressName, 0, len(b))
	for _, w := range b {
		if a, err := models.NormalizeAddress(w.Address); err == nil {
			out = append(out, a)
		}
	}
	return out, nil
}

// addressListPaste reads a newline-separated address list kept in a paste.
// A missing paste is an empty list.
func (c *HTTPClient) addressListPaste(ctx context.Context, owner models.AddressName, name, credential string) (models.AddressList, error) {
	list := models.AddressList{Address: owner}
	p, err := c.Paste(ctx, owner, name, credential)
	if errors.Is(err, ErrNotFound) {
		return list, nil
	}
	if err != nil {
		return list, err
	}
	list.Addresses = models.ParseAddressList(p.Content)
	return list, nil
}

func (c *HTTPClient) GlobalBlocklist(ctx context.Context) (models.AddressList, error) {
	list, err := c.addressListPaste(ctx, GlobalBlocklistAddress, BlockedPaste, "")
	list.Address = ""
	return list, err
}

func (c *HTTPClient) Following(ctx context.Context, addr models.AddressName, credential string) (models.AddressList, error) {
	if err := requireCredential(credential); err != nil {
		return models.AddressList{}, err
	}
	return c.addressListPaste(ctx, addr, FollowingPaste, credential)
}

func (c *HTTPClient) Blocked(ctx context.Context, addr models.AddressName, credential string) (models.AddressList, error) {
	if err := requireCredential(credential); err != nil {
		return models.AddressList{}, err
	}
	return c.addressListPaste(ctx, addr, BlockedPaste, credential)
}
