package api

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/omgclient/internal/client/models"
)

func (c *HTTPClient) write(ctx context.Context, method, credential string, body, out any, segments ...string) error {
	if err := requireCredential(credential); err != nil {
		return err
	}
	return c.do(ctx, call{method: method, url: endpoint(c.base, segments...), credential: credential, body: body}, out)
}

func (c *HTTPClient) SaveProfile(ctx context.Context, d models.ProfileDraft, credential string) (models.ProfilePage, error) {
	body := map[string]any{"content": d.Content, "publish": d.Publish}
	if err := c.write(ctx, http.MethodPost, credential, body, nil, "address", string(d.Address), "web"); err != nil {
		return models.ProfilePage{}, err
	}
	return models.ProfilePage{Address: d.Address, Content: d.Content, Updated: c.now().UTC()}, nil
}

func (c *HTTPClient) SaveNow(ctx context.Context, d models.NowDraft, credential string) (models.NowPage, error) {
	listed := 0
	if d.Listed {
		listed = 1
	}
	body := map[string]any{"content": d.Content, "listed": listed}
	if err := c.write(ctx, http.MethodPost, credential, body, nil, "address", string(d.Address), "now"); err != nil {
		return models.NowPage{}, err
	}
	return models.NowPage{Address: d.Address, Content: d.Content, Listed: d.Listed, Updated: c.now().UTC()}, nil
}

func (c *HTTPClient) SavePaste(ctx context.Context, d models.PasteDraft, credential string) (models.Paste, error) {
	body := map[string]any{"title": d.Name, "content": d.Content}
	if d.Listed {
		body["listed"] = true
	}
	if err := c.write(ctx, http.MethodPost, credential, body, nil, "address", string(d.Address), "pastebin"); err != nil {
		return models.Paste{}, err
	}
	return models.Paste{Address: d.Address, Name: d.Name, Content: d.Content, Listed: d.Listed, Modified: c.now().UTC()}, nil
}

func (c *HTTPClient) DeletePaste(ctx context.Context, addr models.AddressName, name, credential string) error {
	return c.write(ctx, http.MethodDelete, credential, nil, nil, "address", string(addr), "pastebin", name)
}

func (c *HTTPClient) SavePURL(ctx context.Context, d models.PURLDraft, credential string) (models.PURL, error) {
	body := map[string]any{"name": d.Name, "url": d.URL}
	if d.Listed {
		body["listed"] = true
	}
	if err := c.write(ctx, http.MethodPost, credential, body, nil, "address", string(d.Address), "purl"); err != nil {
		return models.PURL{}, err
	}
	return models.PURL{Address: d.Address, Name: d.Name, URL: d.URL, Listed: d.Listed}, nil
}

func (c *HTTPClient) DeletePURL(ctx context.Context, addr models.AddressName, name, credential string) error {
	return c.write(ctx, http.MethodDelete, credential, nil, nil, "address", string(addr), "purl", name)
}

func (c *HTTPClient) SaveStatus(ctx context.Context, d models.StatusDraft, credential string) (models.Status, error) {
	body := map[string]any{"emoji": d.Emoji, "content": d.Content}
	if d.ExternalURL != "" {
		body["external_url"] = d.ExternalURL
	}
	method := http.MethodPost
	if d.ID != "" {
		method = http.MethodPatch
		body["id"] = d.ID
	}
	var b savedStatusBody
	if err := c.write(ctx, method, credential, body, &b, "address", string(d.Address), "statuses"); err != nil {
		return models.Status{}, err
	}
	id := b.ID
	if id == "" {
		id = d.ID
	}
	return models.Status{
		ID:          id,
		Address:     d.Address,
		Emoji:       d.Emoji,
		Content:     d.Content,
		ExternalURL: d.ExternalURL,
		Created:     c.now().UTC(),
	}, nil
}

func (c *HTTPClient) DeleteStatus(ctx context.Context, addr models.AddressName, id, credential string) error {
	return c.write(ctx, http.MethodDelete, credential, nil, nil, "address", string(addr), "statuses", id)
}
