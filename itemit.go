package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/felixgeelhaar/bolt/v3"
)

// ---------------------------------------------------------------------------
// Replies
// ---------------------------------------------------------------------------

// Reply is a decoded upstream body: either an *Envelope or an *ErrorEnvelope.
// A nil Reply means the API could not be reached or answered badly.
type Reply interface {
	// Raw returns the body exactly as received.
	Raw() json.RawMessage
}

// Envelope is a successful reply. Results is empty when the body had no
// results list.
type Envelope struct {
	Results []json.RawMessage
	Total   *int64
	raw     json.RawMessage
}

func (e *Envelope) Raw() json.RawMessage { return e.raw }

// ErrorEnvelope is a reply carrying a truthy "error" field. It wins over any
// results in the same body.
type ErrorEnvelope struct {
	Message string
	raw     json.RawMessage
}

func (e *ErrorEnvelope) Raw() json.RawMessage { return e.raw }

// decodeReply classifies a JSON body. A falsy document (null, false, 0, "")
// is an error. Other non-object bodies decode to an empty Envelope.
func decodeReply(body []byte) (Reply, error) {
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	raw := json.RawMessage(bytes.TrimSpace(body))
	if _, ok := truthyText(raw); !ok {
		return nil, fmt.Errorf("empty body %s", raw)
	}

	var fields map[string]json.RawMessage
	if _, isObject := doc.(map[string]any); !isObject {
		return &Envelope{raw: raw}, nil
	}
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}

	if msg, ok := truthyText(fields["error"]); ok {
		return &ErrorEnvelope{Message: msg, raw: raw}, nil
	}

	env := &Envelope{raw: raw}
	if r, ok := fields["results"]; ok {
		// A results field that is not a list counts as no results.
		_ = json.Unmarshal(r, &env.Results)
	}
	if t, ok := fields["total"]; ok {
		var total int64
		if err := json.Unmarshal(t, &total); err == nil {
			env.Total = &total
		}
	}
	return env, nil
}

// truthyText renders a JSON value for display and reports whether it is set.
// null, false, 0 and "" are unset.
func truthyText(v json.RawMessage) (string, bool) {
	if len(v) == 0 {
		return "", false
	}
	var val any
	if err := json.Unmarshal(v, &val); err != nil {
		return "", false
	}
	switch x := val.(type) {
	case nil:
		return "", false
	case bool:
		return "true", x
	case float64:
		if x == 0 {
			return "", false
		}
		return strings.TrimSpace(string(v)), true
	case string:
		return x, x != ""
	default:
		var buf bytes.Buffer
		if err := json.Compact(&buf, v); err != nil {
			return string(v), true
		}
		return buf.String(), true
	}
}

// ---------------------------------------------------------------------------
// Client
// ---------------------------------------------------------------------------

// Client performs one request per call against the Itemit REST API with the
// static credential headers attached.
type Client struct {
	base    string
	headers map[string]string
	http    *http.Client
	log     *bolt.Logger
}

// NewClient creates a client from cfg. A nil httpClient uses a plain
// http.Client with no timeout.
func NewClient(cfg Config, httpClient *http.Client, logger *bolt.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		base: cfg.APIBase,
		headers: map[string]string{
			"Accept":         "application/json",
			"Content-Type":   "application/json",
			"X-Api-Key":      cfg.APIKey,
			"X-User-Id":      cfg.UserID,
			"X-User-Token":   cfg.UserToken,
			"X-Workspace-Id": cfg.WorkspaceID,
		},
		http: httpClient,
		log:  logger,
	}
}

// Do issues a single request and returns the decoded reply, or nil on any
// transport failure, non-2xx status or undecodable body. body is sent only for
// POST and PUT and only when non-nil.
func (c *Client) Do(ctx context.Context, method, rawURL string, body any) Reply {
	reply, err := c.do(ctx, method, rawURL, body)
	if err != nil {
		c.log.Error().Str("method", method).Str("url", rawURL).Err(err).Msg("itemit request failed")
		return nil
	}
	c.log.Debug().Str("method", method).Str("url", rawURL).Msg("itemit request ok")
	return reply
}

func (c *Client) do(ctx context.Context, method, rawURL string, body any) (Reply, error) {
	var reader io.Reader
	if body != nil && (method == http.MethodPost || method == http.MethodPut) {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("http status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return decodeReply(data)
}

// ---------------------------------------------------------------------------
// Endpoints
// ---------------------------------------------------------------------------

// escapeComponent percent-encodes s for use inside a query value, spaces as %20.
func escapeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func (c *Client) locationSearchURL(name string, limit, skip int) string {
	return fmt.Sprintf("%s/location-profiles?limit=%d&skip=%d&search=%s", c.base, limit, skip, escapeComponent(name))
}

func (c *Client) itemSearchURL(name string, size, page int) string {
	return fmt.Sprintf("%s/item-profiles/_search?size=%d&page=%d&search=%s", c.base, size, page, escapeComponent(name))
}

func (c *Client) itemListURL(size, page int) string {
	return c.base + "/item-profiles/_search?size=" + strconv.Itoa(size) + "&page=" + strconv.Itoa(page)
}

func (c *Client) itemURL(id string) string {
	return c.base + "/items/" + url.PathEscape(id)
}

func (c *Client) remindersURL() string {
	return c.base + "/reminders"
}
