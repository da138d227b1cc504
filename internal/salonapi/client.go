// Package salonapi is a read-side client for the salon management API.
package salonapi

import (
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

	appLog "salondesk/internal/log"
	"salondesk/internal/model"
)

var (
	// ErrUnauthorized matches a 401 from the API; the caller's token is no
	// longer accepted.
	ErrUnauthorized = errors.New("salonapi: unauthorized")

	// ErrInvalidCredentials is returned by Login for rejected credentials.
	ErrInvalidCredentials = errors.New("salonapi: invalid credentials")
)

const (
	// maxErrorBody caps how much of an error response is kept.
	maxErrorBody = 512

	// defaultPageSize is the limit sent to paginated list endpoints. The
	// API defaults to 100 when none is given.
	defaultPageSize = 500
)

// StatusError is a non-2xx API response.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("salonapi: %s %s: status=%d body=%s", e.Method, e.Path, e.Code, e.Body)
}

// Is lets errors.Is(err, ErrUnauthorized) match 401 responses.
func (e *StatusError) Is(target error) bool {
	return target == ErrUnauthorized && e.Code == http.StatusUnauthorized
}

// Token is the login response.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Client talks to the API over HTTP. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	cache    *responseCache
	pageSize int
	now      func() time.Time
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default transport-tuned client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithCacheSize bounds the conditional-GET cache.
func WithCacheSize(n int) Option {
	return func(c *Client) { c.cache = newResponseCache(n) }
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   5 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        100,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		cache:    newResponseCache(defaultCacheEntries),
		pageSize: defaultPageSize,
		now:      time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Login exchanges credentials for a bearer token at POST /auth/login. The
// API expects an OAuth2 password form.
func (c *Client) Login(ctx context.Context, username, password string) (Token, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/login", strings.NewReader(form.Encode()))
	if err != nil {
		return Token{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Token{}, fmt.Errorf("salonapi: login: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized:
		return Token{}, ErrInvalidCredentials
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return Token{}, statusError(http.MethodPost, "/auth/login", resp)
	}

	var tok Token
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return Token{}, fmt.Errorf("salonapi: decode login response: %w", err)
	}
	if tok.AccessToken == "" {
		return Token{}, errors.New("salonapi: login response carried no access_token")
	}
	return tok, nil
}

// Appointments returns every appointment visible to token (GET /appointments/).
func (c *Client) Appointments(ctx context.Context, token string) ([]model.Appointment, error) {
	var out []model.Appointment
	if err := c.getJSON(ctx, token, "/appointments/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Customers returns the whole customer directory. GET /customers/ is paged
// with skip/limit; pages are requested until a short one comes back.
func (c *Client) Customers(ctx context.Context, token string) ([]model.Customer, error) {
	var out []model.Customer
	for skip := 0; ; {
		q := url.Values{}
		q.Set("skip", strconv.Itoa(skip))
		q.Set("limit", strconv.Itoa(c.pageSize))

		var page []model.Customer
		if err := c.getJSON(ctx, token, "/customers/", q, &page); err != nil {
			return nil, err
		}
		out = append(out, page...)
		if len(page) < c.pageSize {
			return out, nil
		}
		skip += len(page)
	}
}

// Summary returns dashboard counters (GET /dashboard/summary).
func (c *Client) Summary(ctx context.Context, token string) (model.Summary, error) {
	var out model.Summary
	err := c.getJSON(ctx, token, "/dashboard/summary", nil, &out)
	return out, err
}

// Reports returns the detailed revenue report (GET /dashboard/reports).
func (c *Client) Reports(ctx context.Context, token string) (model.Reports, error) {
	var out model.Reports
	err := c.getJSON(ctx, token, "/dashboard/reports", nil, &out)
	return out, err
}

func (c *Client) getJSON(ctx context.Context, token, path string, query url.Values, out any) error {
	body, err := c.get(ctx, token, path, query)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("salonapi: decode %s: %w", path, err)
	}
	return nil
}

// get performs a conditional GET. Validators from an earlier response are
// sent along; a 304 reuses the cached body. When the API is unreachable or
// failing, a recent cached body is served instead, except for auth
// failures, which always propagate.
func (c *Client) get(ctx context.Context, token, path string, query url.Values) ([]byte, error) {
	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}
	key := cacheKey(fullURL, token)
	cached, hasCached := c.cache.get(key)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if hasCached {
		if cached.ETag != "" {
			req.Header.Set("If-None-Match", cached.ETag)
		}
		if cached.LastModified != "" {
			req.Header.Set("If-Modified-Since", cached.LastModified)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if e, ok := c.cache.stale(key, c.now()); ok {
			appLog.Warn("api request failed, serving cached body", "path", path, "err", err)
			return e.Body, nil
		}
		return nil, fmt.Errorf("salonapi: GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified:
		if !hasCached {
			return nil, fmt.Errorf("salonapi: GET %s: 304 without a cached body", path)
		}
		c.cache.touch(key, c.now())
		appLog.Debug("api not modified; using cache", "path", path)
		return cached.Body, nil

	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("salonapi: read %s: %w", path, err)
		}
		etag, lastMod := resp.Header.Get("ETag"), resp.Header.Get("Last-Modified")
		if etag != "" || lastMod != "" {
			c.cache.put(key, cacheEntry{ETag: etag, LastModified: lastMod, Body: body, UpdatedAt: c.now()})
		}
		return body, nil

	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, statusError(http.MethodGet, path, resp)

	default:
		serr := statusError(http.MethodGet, path, resp)
		if e, ok := c.cache.stale(key, c.now()); ok {
			appLog.Warn("api non-OK, serving cached body", "path", path, "status", resp.StatusCode)
			return e.Body, nil
		}
		return nil, serr
	}
}

func statusError(method, path string, resp *http.Response) *StatusError {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
}
