// Package apiclient talks to the lead board API. Expired access tokens are
// renewed transparently: concurrent 401s share a single refresh call and each
// request is replayed at most once.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

var errNoSession = errors.New("no refresh token")

const (
	refreshTimeout = 15 * time.Second

	loginPath   = "/auth/login"
	refreshPath = "/auth/refresh-token"
	logoutPath  = "/auth/logout"
)

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// IsUnauthorized reports whether err is a 401 from the API.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

type Client struct {
	baseURL string
	http    *http.Client
	session *Session
	group   singleflight.Group

	refreshTimeout time.Duration

	// OnLogout runs after a failed refresh has cleared the session.
	OnLogout func()
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogoutHandler(fn func()) Option {
	return func(c *Client) { c.OnLogout = fn }
}

func New(baseURL string, session *Session, opts ...Option) *Client {
	if session == nil {
		session = &Session{}
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		session: session,

		refreshTimeout: refreshTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Session() *Session { return c.session }

// Do sends body as JSON and decodes the response into out (either may be nil).
func (c *Client) Do(ctx context.Context, method, path string, body, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	token := c.session.Token()
	err := c.send(ctx, method, path, payload, token, out)
	if !IsUnauthorized(err) || exempt(path) {
		return err
	}

	if rerr := c.refresh(ctx, token); rerr != nil {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		return err
	}
	return c.send(ctx, method, path, payload, c.session.Token(), out)
}

func exempt(path string) bool {
	return strings.HasPrefix(path, loginPath) || strings.HasPrefix(path, refreshPath)
}

// refresh renews the access token unless another caller already replaced
// the stale one. The shared call is detached from ctx so one caller giving up
// does not fail the refresh for the others; a failed refresh clears the
// session and calls OnLogout once, however many callers were waiting on it.
func (c *Client) refresh(ctx context.Context, stale string) error {
	if cur := c.session.Token(); cur != "" && cur != stale {
		return nil
	}
	ch := c.group.DoChan("refresh", func() (interface{}, error) {
		if cur := c.session.Token(); cur != "" && cur != stale {
			return nil, nil
		}
		refreshToken := c.session.RefreshToken()
		if refreshToken == "" {
			return nil, errNoSession
		}

		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.refreshTimeout)
		defer cancel()

		var resp struct {
			Token string `json:"token"`
		}
		body, _ := json.Marshal(map[string]string{"refresh_token": refreshToken})
		err := c.send(rctx, http.MethodPost, refreshPath, body, "", &resp)
		if err == nil && resp.Token == "" {
			err = errors.New("refresh response carried no token")
		}
		if err != nil {
			c.session.Clear()
			if c.OnLogout != nil {
				c.OnLogout()
			}
			return nil, err
		}
		c.session.SetToken(resp.Token)
		return nil, nil
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte, token string, out interface{}) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var e struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&e) == nil && e.Error != "" {
			apiErr.Message = e.Error
		}
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
