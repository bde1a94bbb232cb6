package httpapi

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

	"github.com/roach88/til/internal/fact"
	"github.com/roach88/til/internal/queryir"
)

// StatusError is a non-2xx answer from the facade.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("http %d", e.Code)
	}
	return fmt.Sprintf("http %d: %s", e.Code, e.Message)
}

// Unwrap maps 404 to queryir.ErrNoMatch so callers can classify it.
func (e *StatusError) Unwrap() error {
	if e.Code == http.StatusNotFound {
		return queryir.ErrNoMatch
	}
	return nil
}

// Client implements the remote facts contract over the REST facade.
//
// Thread-safety: Client is safe for concurrent use.
type Client struct {
	base *url.URL
	http *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.http = &http.Client{Timeout: d}
		}
	}
}

// NewClient creates a client for the facade rooted at baseURL.
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse remote url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("remote url must be http or https: %q", baseURL)
	}
	c := &Client{base: u, http: &http.Client{Timeout: 10 * time.Second}}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Select implements the remote contract.
func (c *Client) Select(ctx context.Context, q queryir.Select) ([]fact.Fact, error) {
	if q.From != factsTable {
		return nil, fmt.Errorf("select: unknown table %q", q.From)
	}
	var facts []fact.Fact
	if err := c.do(ctx, http.MethodGet, encodeSelect(q), nil, &facts); err != nil {
		return nil, fmt.Errorf("select: %w", err)
	}
	if facts == nil {
		facts = []fact.Fact{}
	}
	return facts, nil
}

// Insert implements the remote contract.
func (c *Client) Insert(ctx context.Context, q queryir.Insert) (fact.Fact, error) {
	if q.Into != factsTable {
		return fact.Fact{}, fmt.Errorf("insert: unknown table %q", q.Into)
	}
	body := make(map[string]any, len(q.Values))
	for _, a := range q.Values {
		body[a.Field] = a.Value
	}
	f, err := c.one(ctx, http.MethodPost, url.Values{}, body)
	if err != nil {
		return fact.Fact{}, fmt.Errorf("insert: %w", err)
	}
	return f, nil
}

// Update implements the remote contract.
func (c *Client) Update(ctx context.Context, q queryir.Update) (fact.Fact, error) {
	if q.Table != factsTable {
		return fact.Fact{}, fmt.Errorf("update: unknown table %q", q.Table)
	}
	if len(queryir.Conjuncts(q.Filter)) == 0 {
		return fact.Fact{}, fmt.Errorf("update: %w: missing filter", queryir.ErrInvalidQuery)
	}
	params := url.Values{}
	encodeFilter(params, q.Filter)
	body := make(map[string]any, len(q.Set))
	for _, a := range q.Set {
		body[a.Field] = a.Value
	}
	f, err := c.one(ctx, http.MethodPatch, params, body)
	if err != nil {
		return fact.Fact{}, fmt.Errorf("update: %w", err)
	}
	return f, nil
}

// one issues a write and returns the first echoed row.
func (c *Client) one(ctx context.Context, method string, params url.Values, body any) (fact.Fact, error) {
	var rows []fact.Fact
	if err := c.do(ctx, method, params, body, &rows); err != nil {
		return fact.Fact{}, err
	}
	if len(rows) == 0 {
		return fact.Fact{}, errors.New("empty response")
	}
	return rows[0], nil
}

func (c *Client) do(ctx context.Context, method string, params url.Values, body, out any) error {
	u := *c.base
	u.Path += factsPath
	u.RawQuery = params.Encode()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var payload struct {
			Err string `json:"err"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(raw, &payload) != nil || payload.Err == "" {
			payload.Err = strings.TrimSpace(string(raw))
		}
		return &StatusError{Code: resp.StatusCode, Message: payload.Err}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
