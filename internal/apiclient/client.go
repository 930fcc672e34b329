package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"rustactions/internal/config"
	"rustactions/internal/services"
)

const defaultTimeout = 30 * time.Second

// Error is a non-2xx daemon response.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("daemon returned %d: %s", e.Status, e.Message)
}

// Unwrap maps the status back to the services marker the daemon rendered.
func (e *Error) Unwrap() error {
	switch e.Status {
	case http.StatusBadRequest:
		return services.ErrValidation
	case http.StatusNotFound:
		return services.ErrNotFound
	case http.StatusConflict:
		return services.ErrState
	case http.StatusBadGateway:
		return services.ErrExternalTool
	default:
		return nil
	}
}

// ErrUnavailable reports that no daemon answered.
var ErrUnavailable = errors.New("daemon not reachable")

// Client talks to one daemon.
type Client struct {
	base  string
	token string
	http  *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithToken sets the bearer token.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

// New returns a client for baseURL, e.g. "http://127.0.0.1:5000".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FromConfig builds a client for the daemon configured in cfg. Wildcard
// bind hosts are dialed on loopback.
func FromConfig(cfg *config.Config, opts ...Option) *Client {
	return New(BaseURL(cfg.Paths.APIBind), append([]Option{WithToken(cfg.Paths.APIToken)}, opts...)...)
}

// BaseURL converts a listen address into a dialable URL.
func BaseURL(bind string) string {
	host, port, err := net.SplitHostPort(strings.TrimSpace(bind))
	if err != nil {
		return "http://" + strings.TrimSpace(bind)
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

// BaseURLString returns the URL requests are sent to.
func (c *Client) BaseURLString() string {
	return c.base
}

// Do sends a JSON request and decodes the response into out when non-nil.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		var opErr *net.OpError
		if errors.As(err, &opErr) && opErr.Op == "dial" {
			return fmt.Errorf("%w at %s: %v", ErrUnavailable, c.base, err)
		}
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var envelope struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &envelope) == nil && envelope.Error != "" {
			msg = envelope.Error
		}
		return &Error{Status: resp.StatusCode, Message: msg}
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Raw decodes responses into a generic map.
type Raw map[string]any

// Health pings the unauthenticated health endpoint.
func (c *Client) Health(ctx context.Context) error {
	return c.Do(ctx, http.MethodGet, "/health", nil, nil)
}

// Status returns the daemon status document.
func (c *Client) Status(ctx context.Context) (Status, error) {
	var st Status
	err := c.Do(ctx, http.MethodGet, "/api/status", nil, &st)
	return st, err
}

// Actions lists the registered actions and gestures.
func (c *Client) Actions(ctx context.Context) (ActionList, error) {
	var list ActionList
	err := c.Do(ctx, http.MethodGet, "/actions", nil, &list)
	return list, err
}

// Execute runs the named action with params.
func (c *Client) Execute(ctx context.Context, action string, params map[string]any) (Raw, error) {
	if params == nil {
		params = map[string]any{}
	}
	var out Raw
	err := c.Do(ctx, http.MethodPost, "/actions/"+url.PathEscape(action), params, &out)
	return out, err
}

// Items lists items, optionally filtered by category and query.
func (c *Client) Items(ctx context.Context, category, query string) ([]Item, error) {
	q := url.Values{}
	if category != "" {
		q.Set("category", category)
	}
	if query != "" {
		q.Set("q", query)
	}
	path := "/items"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out struct {
		Items []Item `json:"items"`
	}
	err := c.Do(ctx, http.MethodGet, path, nil, &out)
	return out.Items, err
}

// Item returns one item.
func (c *Client) Item(ctx context.Context, id string) (Item, error) {
	var out struct {
		Item Item `json:"item"`
	}
	err := c.Do(ctx, http.MethodGet, "/items/"+url.PathEscape(id), nil, &out)
	return out.Item, err
}

// UpsertItem creates or replaces an item and reports whether it was new.
func (c *Client) UpsertItem(ctx context.Context, item Item) (bool, error) {
	var out struct {
		Created bool `json:"created"`
	}
	err := c.Do(ctx, http.MethodPost, "/items", item, &out)
	return out.Created, err
}

// DeleteItem removes an item and reports whether it was present.
func (c *Client) DeleteItem(ctx context.Context, id string) (bool, error) {
	var out struct {
		Deleted bool `json:"deleted"`
	}
	err := c.Do(ctx, http.MethodDelete, "/items/"+url.PathEscape(id), nil, &out)
	return out.Deleted, err
}

// Categories lists item categories.
func (c *Client) Categories(ctx context.Context) ([]string, error) {
	var out struct {
		Categories []string `json:"categories"`
	}
	err := c.Do(ctx, http.MethodGet, "/items/categories", nil, &out)
	return out.Categories, err
}

// MergeRecipes merges the daemon's crafting data file using mapping pairs.
func (c *Client) MergeRecipes(ctx context.Context, mapping []string) (Raw, error) {
	var out Raw
	err := c.Do(ctx, http.MethodPost, "/recipes/merge", map[string]any{"mapping": mapping}, &out)
	return out, err
}

// Binds returns the bind summary and tables.
func (c *Client) Binds(ctx context.Context) (Binds, error) {
	var out Binds
	err := c.Do(ctx, http.MethodGet, "/binds", nil, &out)
	return out, err
}

// ResolveBind returns the key combination bound to action.
func (c *Client) ResolveBind(ctx context.Context, action string) (string, error) {
	var out struct {
		Combo string `json:"combo"`
	}
	err := c.Do(ctx, http.MethodGet, "/binds/resolve/"+url.PathEscape(action), nil, &out)
	return out.Combo, err
}

// BindsOp posts to one of the bind maintenance endpoints: generate,
// regenerate, reload, or clear-cache.
func (c *Client) BindsOp(ctx context.Context, op string) (Raw, error) {
	var out Raw
	err := c.Do(ctx, http.MethodPost, "/binds/"+op, nil, &out)
	return out, err
}

// History lists recorded actions, newest first.
func (c *Client) History(ctx context.Context, action string, limit int) ([]HistoryEntry, error) {
	q := url.Values{}
	if action != "" {
		q.Set("action", action)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/history"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out struct {
		Entries []HistoryEntry `json:"entries"`
	}
	err := c.Do(ctx, http.MethodGet, path, nil, &out)
	return out.Entries, err
}

// ClearHistory deletes every recorded action.
func (c *Client) ClearHistory(ctx context.Context) (int64, error) {
	var out struct {
		Deleted int64 `json:"deleted"`
	}
	err := c.Do(ctx, http.MethodDelete, "/history", nil, &out)
	return out.Deleted, err
}

// SteamLogin logs steamcmd in. The password only travels in this request.
func (c *Client) SteamLogin(ctx context.Context, username, password, guardCode string) (Raw, error) {
	var out Raw
	err := c.Do(ctx, http.MethodPost, "/steam/login", map[string]string{
		"username":   username,
		"password":   password,
		"guard_code": guardCode,
	}, &out)
	return out, err
}

// Steam posts to a steam endpoint without a body: logout, sync, or
// reset-database.
func (c *Client) Steam(ctx context.Context, op string) (Raw, error) {
	var out Raw
	err := c.Do(ctx, http.MethodPost, "/steam/"+op, nil, &out)
	return out, err
}

// SteamStatus returns the login and database summary.
func (c *Client) SteamStatus(ctx context.Context) (Raw, error) {
	var out Raw
	err := c.Do(ctx, http.MethodGet, "/steam/status", nil, &out)
	return out, err
}
