package api

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/omgclient/internal/client/models"
)

// envelope wraps every JSON reply of the service.
type envelope struct {
	Request struct {
		StatusCode int  `json:"status_code"`
		Success    bool `json:"success"`
	} `json:"request"`
	Response json.RawMessage `json:"response"`
}

type messageBody struct {
	Message string `json:"message"`
}

// unixTime decodes epoch seconds sent either as a number or a string.
// Empty and zero values decode to the zero time.
type unixTime struct{ time.Time }

func (u *unixTime) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	s := strings.Trim(string(b), `"`)
	if s == "" {
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return err
	}
	if n > 0 {
		u.Time = time.Unix(n, 0).UTC()
	}
	return nil
}

// flag decodes booleans the service sometimes sends as 0/1 or "true".
type flag bool

func (f *flag) UnmarshalJSON(b []byte) error {
	switch strings.Trim(strings.TrimSpace(string(b)), `"`) {
	case "1", "true", "yes":
		*f = true
	default:
		*f = false
	}
	return nil
}

type epochField struct {
	UnixEpochTime unixTime `json:"unix_epoch_time"`
}

type serviceInfoBody struct {
	Members   int    `json:"members"`
	Addresses int    `json:"addresses"`
	Profiles  int    `json:"profiles"`
	Message   string `json:"message"`
}

type directoryBody struct {
	URL       string   `json:"url"`
	Directory []string `json:"directory"`
}

type gardenBody struct {
	Garden []struct {
		Address string     `json:"address"`
		URL     string     `json:"url"`
		Updated epochField `json:"updated"`
	} `json:"garden"`
}

type webBody struct {
	Content  string   `json:"content"`
	HTML     string   `json:"html"`
	Type     string   `json:"type"`
	Modified unixTime `json:"modified"`
}

type addressInfoBody struct {
	Address      string     `json:"address"`
	Message      string     `json:"message"`
	Registration epochField `json:"registration"`
	Expiration   struct {
		Expired flag `json:"expired"`
	} `json:"expiration"`
	Verification struct {
		Verified flag `json:"verified"`
	} `json:"verification"`
	Owner string `json:"owner"`
}

type availabilityBody struct {
	Address   string `json:"address"`
	Available flag   `json:"available"`
	Punycode  string `json:"punycode"`
}

type nowBody struct {
	Now struct {
		Content string   `json:"content"`
		Updated unixTime `json:"updated"`
		Listed  flag     `json:"listed"`
	} `json:"now"`
}

type purlWire struct {
	Name    string `json:"name"`
	URL     string `json:"url"`
	Counter int    `json:"counter"`
	Listed  flag   `json:"listed"`
}

func (w purlWire) model(addr models.AddressName) models.PURL {
	return models.PURL{Address: addr, Name: w.Name, URL: w.URL, Counter: w.Counter, Listed: bool(w.Listed)}
}

type purlsBody struct {
	PURLs []purlWire `json:"purls"`
}

type purlBody struct {
	PURL purlWire `json:"purl"`
}

type pasteWire struct {
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	ModifiedOn unixTime `json:"modified_on"`
	Listed     flag     `json:"listed"`
}

func (w pasteWire) model(addr models.AddressName) models.Paste {
	return models.Paste{Address: addr, Name: w.Title, Content: w.Content, Listed: bool(w.Listed), Modified: w.ModifiedOn.Time}
}

type pastebinBody struct {
	Pastebin []pasteWire `json:"pastebin"`
}

type pasteBody struct {
	Paste pasteWire `json:"paste"`
}

type bioBody struct {
	Bio string `json:"bio"`
}

type statusWire struct {
	ID          string   `json:"id"`
	Address     string   `json:"address"`
	Created     unixTime `json:"created"`
	Emoji       string   `json:"emoji"`
	Content     string   `json:"content"`
	ExternalURL string   `json:"external_url"`
}

func (w statusWire) model() models.Status {
	addr, _ := models.NormalizeAddress(w.Address)
	return models.Status{
		ID:          w.ID,
		Address:     addr,
		Emoji:       w.Emoji,
		Content:     w.Content,
		ExternalURL: w.ExternalURL,
		Created:     w.Created.Time,
	}
}

type statusesBody struct {
	Statuses []statusWire `json:"statuses"`
}

type statusBody struct {
	Status statusWire `json:"status"`
}

type savedStatusBody struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	ExternalURL string `json:"external_url"`
}

type accountInfoBody struct {
	Email   string     `json:"email"`
	Name    string     `json:"name"`
	Created epochField `json:"created"`
}

type accountAddressWire struct {
	Address string `json:"address"`
}

type tokenBody struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}
