package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const oauthScope = "everything"

func (c *HTTPClient) AuthURL(clientID, redirectURI string) string {
	u := *c.authURL
	q := url.Values{}
	q.Set("client_id", clientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("scope", oauthScope)
	q.Set("response_type", "code")
	u.RawQuery = q.Encode()
	return u.String()
}

// AccessToken exchanges an authorization code. The token endpoint replies
// with a bare JSON object rather than the usual envelope.
func (c *HTTPClient) AccessToken(ctx context.Context, code, clientID, clientSecret, redirectURI string) (string, error) {
	if strings.TrimSpace(code) == "" {
		return "", fmt.Errorf("%w: empty authorization code", ErrRejected)
	}
	q := url.Values{}
	q.Set("client_id", clientID)
	q.Set("client_secret", clientSecret)
	q.Set("redirect_uri", redirectURI)
	q.Set("code", code)
	q.Set("scope", oauthScope)

	resp, err := c.send(ctx, call{method: http.MethodGet, url: endpoint(c.base, "oauth"), query: q})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var b tokenBody
	if err := json.NewDecoder(resp.Body).Decode(&b); err != nil {
		return "", fmt.Errorf("%w: decode token: %w", ErrUnavailable, err)
	}
	if b.AccessToken == "" {
		return "", fmt.Errorf("%w: no access token in reply", ErrRejected)
	}
	return b.AccessToken, nil
}
