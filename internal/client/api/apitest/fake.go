// Package apitest provides an in-memory api.Interface for tests.
package apitest

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/dmitrijs2005/omgclient/internal/client/api"
	"github.com/dmitrijs2005/omgclient/internal/client/models"
)

// Fake is an in-memory service. Writes change what later reads return.
// Every call is recorded in Calls as "Method" or "Method addr/id".
type Fake struct {
	mu sync.Mutex

	Info      models.ServiceInfo
	Global    []models.AddressName
	Entries   []models.DirectoryEntry
	Garden    []models.NowGardenEntry
	Profiles  map[models.AddressName]models.ProfilePage
	Infos     map[models.AddressName]models.AddressInfo
	NowPages  map[models.AddressName]models.NowPage
	PURLSet   map[models.AddressName][]models.PURL
	PasteSet  map[models.AddressName][]models.Paste
	Bios      map[models.AddressName]models.Bio
	Icons     map[models.AddressName]models.Icon
	StatusSet []models.Status
	Account   models.AccountInfo
	Owned     []models.AddressName
	Token     string

	// Fail makes every call return the error; FailOn does it per method.
	Fail   error
	FailOn map[string]error
	// Before runs at the start of every call, outside the lock.
	Before func(method string)
	// Clock stamps written records; defaults to time.Now.
	Clock func() time.Time

	calls  []string
	nextID int
}

var _ api.Interface = (*Fake)(nil)

func New() *Fake {
	return &Fake{
		Profiles: map[models.AddressName]models.ProfilePage{},
		Infos:    map[models.AddressName]models.AddressInfo{},
		NowPages: map[models.AddressName]models.NowPage{},
		PURLSet:  map[models.AddressName][]models.PURL{},
		PasteSet: map[models.AddressName][]models.Paste{},
		Bios:     map[models.AddressName]models.Bio{},
		Icons:    map[models.AddressName]models.Icon{},
		FailOn:   map[string]error{},
	}
}

// Calls returns the recorded calls in order.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

// Count returns how many times method was called.
func (f *Fake) Count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == method || len(c) > len(method) && c[:len(method)+1] == method+" " {
			n++
		}
	}
	return n
}

// SetFail changes Fail under the lock.
func (f *Fake) SetFail(err error) {
	f.mu.Lock()
	f.Fail = err
	f.mu.Unlock()
}

// enter records the call and returns the configured failure, if any. On
// success the lock is held and the caller must call f.mu.Unlock.
func (f *Fake) enter(method string, args ...any) error {
	if f.Before != nil {
		f.Before(method)
	}
	f.mu.Lock()
	name := method
	if len(args) > 0 {
		name = fmt.Sprint(append([]any{method + " "}, args...)...)
	}
	f.calls = append(f.calls, name)
	err := f.Fail
	if e, ok := f.FailOn[method]; ok {
		err = e
	}
	if err != nil {
		f.mu.Unlock()
		return err
	}
	return nil
}

func (f *Fake) now() time.Time {
	if f.Clock != nil {
		return f.Clock()
	}
	return time.Now()
}

func cred(c string) error {
	if c == "" {
		return api.ErrNoCredential
	}
	return nil
}

func (f *Fake) ServiceInfo(ctx context.Context) (models.ServiceInfo, error) {
	if err := f.enter("ServiceInfo"); err != nil {
		return models.ServiceInfo{}, err
	}
	defer f.mu.Unlock()
	return f.Info, nil
}

func (f *Fake) GlobalBlocklist(ctx context.Context) (models.AddressList, error) {
	if err := f.enter("GlobalBlocklist"); err != nil {
		return models.AddressList{}, err
	}
	defer f.mu.Unlock()
	return models.AddressList{Addresses: slices.Clone(f.Global)}, nil
}

func (f *Fake) Directory(ctx context.Context) ([]models.DirectoryEntry, error) {
	if err := f.enter("Directory"); err != nil {
		return nil, err
	}
	defer f.mu.Unlock()
	return slices.Clone(f.Entries), nil
}

func (f *Fake) NowGarden(ctx context.Context) ([]models.NowGardenEntry, error) {
	if err := f.enter("NowGarden"); err != nil {
		return nil, err
	}
	defer f.mu.Unlock()
	return slices.Clone(f.Garden), nil
}

func lookup[V any](m map[models.AddressName]V, addr models.AddressName) (V, error) {
	v, ok := m[addr]
	if !ok {
		return v, api.ErrNotFound
	}
	return v, nil
}

func (f *Fake) Profile(ctx context.Context, addr models.AddressName) (models.ProfilePage, error) {
	if err := f.enter("Profile", addr); err != nil {
		return models.ProfilePage{}, err
	}
	defer f.mu.Unlock()
	return lookup(f.Profiles, addr)
}

func (f *Fake) AddressInfo(ctx context.Context, addr models.AddressName) (models.AddressInfo, error) {
	if err := f.enter("AddressInfo", addr); err != nil {
		return models.AddressInfo{}, err
	}
	defer f.mu.Unlock()
	return lookup(f.Infos, addr)
}

func (f *Fake) Availability(ctx context.Context, addr models.AddressName) (models.Availability, error) {
	if err := f.enter("Availability", addr); err != nil {
		return models.Availability{}, err
	}
	defer f.mu.Unlock()
	_, taken := f.Infos[addr]
	return models.Availability{Address: addr, Available: !taken}, nil
}

func (f *Fake) Now(ctx context.Context, addr models.AddressName) (models.NowPage, error) {
	if err := f.enter("Now", addr); err != nil {
		return models.NowPage{}, err
	}
	defer f.mu.Unlock()
	return lookup(f.NowPages, addr)
}

func (f *Fake) PURLs(ctx context.Context, addr models.AddressName, credential string) ([]models.PURL, error) {
	if err := f.enter("PURLs", addr); err != nil {
		return nil, err
	}
	defer f.mu.Unlock()
	return slices.Clone(f.PURLSet[addr]), nil
}

func (f *Fake) PURL(ctx context.Context, addr models.AddressName, name, credential string) (models.PURL, error) {
	if err := f.enter("PURL", addr, "/", name); err != nil {
		return models.PURL{}, err
	}
	defer f.mu.Unlock()
	for _, p := range f.PURLSet[addr] {
		if p.Name == name {
			return p, nil
		}
	}
	return models.PURL{}, api.ErrNotFound
}

func (f *Fake) Pastes(ctx context.Context, addr models.AddressName, credential string) ([]models.Paste, error) {
	if err := f.enter("Pastes", addr); err != nil {
		return nil, err
	}
	defer f.mu.Unlock()
	return slices.Clone(f.PasteSet[addr]), nil
}

func (f *Fake) Paste(ctx context.Context, addr models.AddressName, name, credential string) (models.Paste, error) {
	if err := f.enter("Paste", addr, "/", name); err != nil {
		return models.Paste{}, err
	}
	defer f.mu.Unlock()
	for _, p := range f.PasteSet[addr] {
		if p.Name == name {
			return p, nil
		}
	}
	return models.Paste{}, api.ErrNotFound
}

func (f *Fake) Bio(ctx context.Context, addr models.AddressName) (models.Bio, error) {
	if err := f.enter("Bio", addr); err != nil {
		return models.Bio{}, err
	}
	defer f.mu.Unlock()
	return lookup(f.Bios, addr)
}

func (f *Fake) Icon(ctx context.Context, addr models.AddressName) (models.Icon, error) {
	if err := f.enter("Icon", addr); err != nil {
		return models.Icon{}, err
	}
	defer f.mu.Unlock()
	return lookup(f.Icons, addr)
}

func (f *Fake) StatusLog(ctx context.Context) ([]models.Status, error) {
	if err := f.enter("StatusLog"); err != nil {
		return nil, err
	}
	defer f.mu.Unlock()
	return slices.Clone(f.StatusSet), nil
}

func (f *Fake) Statuses(ctx context.Context, addrs []models.AddressName) ([]models.Status, error) {
	if err := f.enter("Statuses", addrs); err != nil {
		return nil, err
	}
	defer f.mu.Unlock()
	var out []models.Status
	for _, s := range f.StatusSet {
		if len(addrs) == 0 || slices.Contains(addrs, s.Address) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *Fake) Status(ctx context.Context, addr models.AddressName, id string) (models.Status, error) {
	if err := f.enter("Status", addr, "/", id); err != nil {
		return models.Status{}, err
	}
	defer f.mu.Unlock()
	for _, s := range f.StatusSet {
		if s.Address == addr && s.ID == id {
			return s, nil
		}
	}
	return models.Status{}, api.ErrNotFound
}

func (f *Fake) AccountInfo(ctx context.Context, addr models.AddressName, credential string) (models.AccountInfo, error) {
	if err := cred(credential); err != nil {
		return models.AccountInfo{}, err
	}
	if err := f.enter("AccountInfo", addr); err != nil {
		return models.AccountInfo{}, err
	}
	defer f.mu.Unlock()
	return f.Account, nil
}

func (f *Fake) AccountAddresses(ctx context.Context, credential string) ([]models.AddressName, error) {
	if err := cred(credential); err != nil {
		return nil, err
	}
	if err := f.enter("AccountAddresses"); err != nil {
		return nil, err
	}
	defer f.mu.Unlock()
	return slices.Clone(f.Owned), nil
}

func (f *Fake) addressList(addr models.AddressName, name string) models.AddressList {
	for _, p := range f.PasteSet[addr] {
		if p.Name == name {
			return models.AddressList{Address: addr, Addresses: models.ParseAddressList(p.Content)}
		}
	}
	return models.AddressList{Address: addr}
}

func (f *Fake) Following(ctx context.Context, addr models.AddressName, credential string) (models.AddressList, error) {
	if err := cred(credential); err != nil {
		return models.AddressList{}, err
	}
	if err := f.enter("Following", addr); err != nil {
		return models.AddressList{}, err
	}
	defer f.mu.Unlock()
	return f.addressList(addr, api.FollowingPaste), nil
}

func (f *Fake) Blocked(ctx context.Context, addr models.AddressName, credential string) (models.AddressList, error) {
	if err := cred(credential); err != nil {
		return models.AddressList{}, err
	}
	if err := f.enter("Blocked", addr); err != nil {
		return models.AddressList{}, err
	}
	defer f.mu.Unlock()
	return f.addressList(addr, api.BlockedPaste), nil
}

func (f *Fake) SaveProfile(ctx context.Context, d models.ProfileDraft, credential string) (models.ProfilePage, error) {
	if err := cred(credential); err != nil {
		return models.ProfilePage{}, err
	}
	if err := f.enter("SaveProfile", d.Address); err != nil {
		return models.ProfilePage{}, err
	}
	defer f.mu.Unlock()
	p := models.ProfilePage{Address: d.Address, Content: d.Content, Updated: f.now()}
	f.Profiles[d.Address] = p
	return p, nil
}

func (f *Fake) SaveNow(ctx context.Context, d models.NowDraft, credential string) (models.NowPage, error) {
	if err := cred(credential); err != nil {
		return models.NowPage{}, err
	}
	if err := f.enter("SaveNow", d.Address); err != nil {
		return models.NowPage{}, err
	}
	defer f.mu.Unlock()
	p := models.NowPage{Address: d.Address, Content: d.Content, Listed: d.Listed, Updated: f.now()}
	f.NowPages[d.Address] = p
	return p, nil
}

func (f *Fake) SavePaste(ctx context.Context, d models.PasteDraft, credential string) (models.Paste, error) {
	if err := cred(credential); err != nil {
		return models.Paste{}, err
	}
	if err := f.enter("SavePaste", d.Address, "/", d.Name); err != nil {
		return models.Paste{}, err
	}
	defer f.mu.Unlock()
	p := models.Paste{Address: d.Address, Name: d.Name, Content: d.Content, Listed: d.Listed, Modified: f.now()}
	list := slices.DeleteFunc(f.PasteSet[d.Address], func(x models.Paste) bool { return x.Name == d.Name })
	f.PasteSet[d.Address] = append(list, p)
	return p, nil
}

func (f *Fake) DeletePaste(ctx context.Context, addr models.AddressName, name, credential string) error {
	if err := cred(credential); err != nil {
		return err
	}
	if err := f.enter("DeletePaste", addr, "/", name); err != nil {
		return err
	}
	defer f.mu.Unlock()
	f.PasteSet[addr] = slices.DeleteFunc(f.PasteSet[addr], func(x models.Paste) bool { return x.Name == name })
	return nil
}

func (f *Fake) SavePURL(ctx context.Context, d models.PURLDraft, credential string) (models.PURL, error) {
	if err := cred(credential); err != nil {
		return models.PURL{}, err
	}
	if err := f.enter("SavePURL", d.Address, "/", d.Name); err != nil {
		return models.PURL{}, err
	}
	defer f.mu.Unlock()
	p := models.PURL{Address: d.Address, Name: d.Name, URL: d.URL, Listed: d.Listed}
	list := slices.DeleteFunc(f.PURLSet[d.Address], func(x models.PURL) bool { return x.Name == d.Name })
	f.PURLSet[d.Address] = append(list, p)
	return p, nil
}

func (f *Fake) DeletePURL(ctx context.Context, addr models.AddressName, name, credential string) error {
	if err := cred(credential); err != nil {
		return err
	}
	if err := f.enter("DeletePURL", addr, "/", name); err != nil {
		return err
	}
	defer f.mu.Unlock()
	f.PURLSet[addr] = slices.DeleteFunc(f.PURLSet[addr], func(x models.PURL) bool { return x.Name == name })
	return nil
}

func (f *Fake) SaveStatus(ctx context.Context, d models.StatusDraft, credential string) (models.Status, error) {
	if err := cred(credential); err != nil {
		return models.Status{}, err
	}
	if err := f.enter("SaveStatus", d.Address); err != nil {
		return models.Status{}, err
	}
	defer f.mu.Unlock()
	id := d.ID
	if id == "" {
		f.nextID++
		id = fmt.Sprintf("s%d", f.nextID)
	}
	s := models.Status{ID: id, Address: d.Address, Emoji: d.Emoji, Content: d.Content, ExternalURL: d.ExternalURL, Created: f.now()}
	f.StatusSet = slices.DeleteFunc(f.StatusSet, func(x models.Status) bool { return x.ID == id })
	f.StatusSet = append(f.StatusSet, s)
	return s, nil
}

func (f *Fake) DeleteStatus(ctx context.Context, addr models.AddressName, id, credential string) error {
	if err := cred(credential); err != nil {
		return err
	}
	if err := f.enter("DeleteStatus", addr, "/", id); err != nil {
		return err
	}
	defer f.mu.Unlock()
	f.StatusSet = slices.DeleteFunc(f.StatusSet, func(x models.Status) bool { return x.ID == id })
	return nil
}

func (f *Fake) AuthURL(clientID, redirectURI string) string {
	return "https://auth.test/authorize?client_id=" + clientID
}

func (f *Fake) AccessToken(ctx context.Context, code, clientID, clientSecret, redirectURI string) (string, error) {
	if err := f.enter("AccessToken"); err != nil {
		return "", err
	}
	defer f.mu.Unlock()
	if code == "" || f.Token == "" {
		return "", api.ErrRejected
	}
	return f.Token, nil
}
