package fetch

import (
	"time"

	"github.com/dmitrijs2005/omgclient/internal/client/models"
	"github.com/dmitrijs2005/omgclient/internal/logging"
)

type options struct {
	policy models.AutomationPolicy
	now    func() time.Time
	log    logging.Logger
	limit  int
}

// Option configures a fetcher or poster.
type Option func(*options)

// WithPolicy sets the automation policy. The default auto-loads and never
// goes stale once loaded.
func WithPolicy(p models.AutomationPolicy) Option {
	return func(o *options) { o.policy = p }
}

// WithReloadInterval is shorthand for an auto-loading policy with interval d.
func WithReloadInterval(d time.Duration) Option {
	return func(o *options) { o.policy = models.AutomationPolicy{AutoLoad: true, ReloadInterval: d} }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func WithLogger(l logging.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithLimit sets the page size of a ListFetcher. Zero means the source decides.
func WithLimit(n int) Option {
	return func(o *options) { o.limit = n }
}

func buildOptions(opts []Option) options {
	o := options{
		policy: models.AutomationPolicy{AutoLoad: true},
		now:    time.Now,
		log:    logging.Nop(),
	}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}
