package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/dmitrijs2005/omgclient/internal/logging"
)

const (
	DefaultBaseURL         = "https://api.omg.lol"
	DefaultAuthURL         = "https://home.omg.lol/oauth/authorize"
	DefaultProfileCacheURL = "https://profiles.cache.lol"

	defaultUserAgent = "omgclient/0.1"
	defaultTimeout   = 15 * time.Second
	maxErrorBody     = 4 << 10
)

// Options configures an HTTPClient. Zero fields take the defaults above;
// a zero RequestsPerSecond disables pacing.
type Options struct {
	BaseURL           string
	AuthURL           string
	ProfileCacheURL   string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	UserAgent         string
	Logger            logging.Logger
}

// HTTPClient talks to the service REST API.
type HTTPClient struct {
	base      *url.URL
	authURL   *url.URL
	cacheURL  *url.URL
	http      *http.Client
	limiter   *rate.Limiter
	userAgent string
	log       logging.Logger
	newID     func() string
	now       func() time.Time
}

func NewHTTPClient(o Options) (*HTTPClient, error) {
	base, err := parseBase(o.BaseURL, DefaultBaseURL)
	if err != nil {
		return nil, fmt.Errorf("base url: %w", err)
	}
	authURL, err := parseBase(o.AuthURL, DefaultAuthURL)
	if err != nil {
		return nil, fmt.Errorf("auth url: %w", err)
	}
	cacheURL, err := parseBase(o.ProfileCacheURL, DefaultProfileCacheURL)
	if err != nil {
		return nil, fmt.Errorf("profile cache url: %w", err)
	}

	timeout := o.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	limit := rate.Inf
	if o.RequestsPerSecond > 0 {
		limit = rate.Limit(o.RequestsPerSecond)
	}
	burst := o.Burst
	if burst <= 0 {
		burst = 1
	}
	ua := strings.TrimSpace(o.UserAgent)
	if ua == "" {
		ua = defaultUserAgent
	}
	log := o.Logger
	if log == nil {
		log = logging.Nop()
	}

	return &HTTPClient{
		base:      base,
		authURL:   authURL,
		cacheURL:  cacheURL,
		http:      &http.Client{Timeout: timeout},
		limiter:   rate.NewLimiter(limit, burst),
		userAgent: ua,
		log:       log,
		newID:     uuid.NewString,
		now:       time.Now,
	}, nil
}

func parseBase(raw, def string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = def
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, errors.New("missing host")
	}
	u.RawQuery = ""
	u.Fragment = ""
	u.Path = strings.TrimSuffix(u.Path, "/")
	return u, nil
}

// endpoint joins escaped path segments onto base.
func endpoint(base *url.URL, segments ...string) *url.URL {
	esc := make([]string, len(segments))
	for i, s := range segments {
		esc[i] = url.PathEscape(s)
	}
	return base.JoinPath(esc...)
}

type call struct {
	method     string
	url        *url.URL
	query      url.Values
	credential string
	body       any
}

// send performs the request and returns the response with a 2xx status.
// Any other status is mapped onto a sentinel and the body is closed.
func (c *HTTPClient) send(ctx context.Context, r call) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	u := *r.url
	if len(r.query) > 0 {
		u.RawQuery = r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	reqID := c.newID()
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.credential != "" {
		req.Header.Set("Authorization", "Bearer "+r.credential)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn(ctx, "request failed", "method", r.method, "path", u.Path, "request_id", reqID, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	c.log.Debug(ctx, "request done", "method", r.method, "path", u.Path, "status", resp.StatusCode,
		"request_id", reqID, "elapsed", time.Since(start))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return nil, statusError(resp.StatusCode, errorMessage(raw))
}

func statusError(code int, msg string) error {
	var sentinel error
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		sentinel = ErrUnauthorized
	case code == http.StatusNotFound:
		sentinel = ErrNotFound
	case code == http.StatusTooManyRequests || code >= 500:
		sentinel = ErrUnavailable
	default:
		sentinel = ErrRejected
	}
	if msg == "" {
		return fmt.Errorf("%w: status %d", sentinel, code)
	}
	return fmt.Errorf("%w: status %d: %s", sentinel, code, msg)
}

// errorMessage pulls the service message out of an error reply.
func errorMessage(raw []byte) string {
	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil && len(env.Response) > 0 {
		var m messageBody
		if json.Unmarshal(env.Response, &m) == nil && m.Message != "" {
			return m.Message
		}
	}
	return strings.TrimSpace(string(raw))
}

// do sends r and decodes the envelope's response field into out (if non-nil).
func (c *HTTPClient) do(ctx context.Context, r call, out any) error {
	resp, err := c.send(ctx, r)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%w: decode response: %w", ErrUnavailable, err)
	}
	if env.Request.StatusCode != 0 && !env.Request.Success {
		return statusError(env.Request.StatusCode, errorMessage(mustMarshal(env)))
	}
	if out == nil || len(env.Response) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Response, out); err != nil {
		return fmt.Errorf("%w: decode response: %w", ErrUnavailable, err)
	}
	return nil
}

func mustMarshal(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}

func requireCredential(credential string) error {
	if strings.TrimSpace(credential) == "" {
		return ErrNoCredential
	}
	return nil
}
