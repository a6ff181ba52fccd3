package api

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/omgclient/internal/client/models"
)

var (
	// ErrUnavailable covers transport failures, timeouts, 5xx replies and
	// responses that cannot be decoded.
	ErrUnavailable = errors.New("service unavailable")
	// ErrUnauthorized is returned for 401 and 403 replies.
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	// ErrRejected is any other 4xx reply; the service message is wrapped.
	ErrRejected = errors.New("rejected by service")
	// ErrNoCredential is returned before any request is made when a write
	// or an account read is attempted without a credential.
	ErrNoCredential = errors.New("credential required")
)

// Names of the pastes that hold an address's following and blocked lists.
const (
	FollowingPaste = "app.lol.following"
	BlockedPaste   = "app.lol.blocked"
	// GlobalBlocklistAddress owns the service-wide blocklist paste.
	GlobalBlocklistAddress models.AddressName = "app"
)

// Interface is everything the client reads from and writes to the service.
// credential may be empty on reads; the service then returns only public data.
type Interface interface {
	ServiceInfo(ctx context.Context) (models.ServiceInfo, error)
	GlobalBlocklist(ctx context.Context) (models.AddressList, error)
	Directory(ctx context.Context) ([]models.DirectoryEntry, error)
	NowGarden(ctx context.Context) ([]models.NowGardenEntry, error)

	Profile(ctx context.Context, addr models.AddressName) (models.ProfilePage, error)
	AddressInfo(ctx context.Context, addr models.AddressName) (models.AddressInfo, error)
	Availability(ctx context.Context, addr models.AddressName) (models.Availability, error)
	Now(ctx context.Context, addr models.AddressName) (models.NowPage, error)
	PURLs(ctx context.Context, addr models.AddressName, credential string) ([]models.PURL, error)
	PURL(ctx context.Context, addr models.AddressName, name, credential string) (models.PURL, error)
	Pastes(ctx context.Context, addr models.AddressName, credential string) ([]models.Paste, error)
	Paste(ctx context.Context, addr models.AddressName, name, credential string) (models.Paste, error)
	Bio(ctx context.Context, addr models.AddressName) (models.Bio, error)
	Icon(ctx context.Context, addr models.AddressName) (models.Icon, error)

	// StatusLog returns the latest statuses across the whole service.
	StatusLog(ctx context.Context) ([]models.Status, error)
	// Statuses returns the statuses of every address in addrs, newest first.
	// An empty set is the same as StatusLog.
	Statuses(ctx context.Context, addrs []models.AddressName) ([]models.Status, error)
	Status(ctx context.Context, addr models.AddressName, id string) (models.Status, error)

	AccountInfo(ctx context.Context, addr models.AddressName, credential string) (models.AccountInfo, error)
	AccountAddresses(ctx context.Context, credential string) ([]models.AddressName, error)
	Following(ctx context.Context, addr models.AddressName, credential string) (models.AddressList, error)
	Blocked(ctx context.Context, addr models.AddressName, credential string) (models.AddressList, error)

	SaveProfile(ctx context.Context, d models.ProfileDraft, credential string) (models.ProfilePage, error)
	SaveNow(ctx context.Context, d models.NowDraft, credential string) (models.NowPage, error)
	SavePaste(ctx context.Context, d models.PasteDraft, credential string) (models.Paste, error)
	DeletePaste(ctx context.Context, addr models.AddressName, name, credential string) error
	SavePURL(ctx context.Context, d models.PURLDraft, credential string) (models.PURL, error)
	DeletePURL(ctx context.Context, addr models.AddressName, name, credential string) error
	// SaveStatus creates a status when d has no ID and updates it otherwise.
	SaveStatus(ctx context.Context, d models.StatusDraft, credential string) (models.Status, error)
	DeleteStatus(ctx context.Context, addr models.AddressName, id, credential string) error

	// AuthURL is the browser URL that starts the login flow.
	AuthURL(clientID, redirectURI string) string
	// AccessToken exchanges the code returned to redirectURI for a credential.
	AccessToken(ctx context.Context, code, clientID, clientSecret, redirectURI string) (string, error)
}

var _ Interface = (*HTTPClient)(nil)
