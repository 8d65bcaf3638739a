// Package pushover sends push notifications through the Pushover API. The
// events command uses it to forward backend changes to a phone.
package pushover

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/oxyadmin/oxyadmin/internal/config"
)

const (
	DefaultAPIURL = "https://api.pushover.net/1/messages.json"

	// MaxTitleLen is the maximum length for a Pushover notification title.
	MaxTitleLen = 250

	// MaxMessageLen is the maximum length for a Pushover notification message.
	MaxMessageLen = 1024
)

// Priority levels for Pushover notifications.
const (
	PriorityLowest = -2
	PriorityLow    = -1
	PriorityNormal = 0
	PriorityHigh   = 1
)

// Message represents a Pushover notification to send.
type Message struct {
	Title    string
	Body     string
	Priority int
}

// Response is the JSON response from the Pushover API.
type Response struct {
	Status  int      `json:"status"`
	Request string   `json:"request"`
	Errors  []string `json:"errors,omitempty"`
}

// Client posts messages with one set of credentials.
type Client struct {
	Creds  config.PushoverConfig
	APIURL string
	HTTP   *http.Client
}

// New returns a client for creds against the public API.
func New(creds config.PushoverConfig) *Client {
	return &Client{Creds: creds, APIURL: DefaultAPIURL, HTTP: http.DefaultClient}
}

// Send delivers msg. Title and body are clipped to the API limits.
func (c *Client) Send(ctx context.Context, msg Message) error {
	if !c.Creds.Configured() {
		return fmt.Errorf("pushover not configured: run 'oxyadmin pushover setup' to set credentials")
	}

	form := url.Values{
		"token":    {c.Creds.AppToken},
		"user":     {c.Creds.UserKey},
		"title":    {clip(msg.Title, MaxTitleLen)},
		"message":  {clip(msg.Body, MaxMessageLen)},
		"priority": {fmt.Sprintf("%d", msg.Priority)},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("sending pushover notification: %w", err)
	}
	defer resp.Body.Close()

	var result Response
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decoding pushover response: %w", err)
	}
	if result.Status != 1 {
		return fmt.Errorf("pushover API error: %s", strings.Join(result.Errors, "; "))
	}
	return nil
}

func clip(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
