// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package apic

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/tidwall/gjson"
)

// APICConfig holds APIC connection settings and credentials
type APICConfig struct {
	Host          string
	Port          int
	UseSSL        bool
	ValidateCerts bool
	Timeout       time.Duration
	Username      string
	Password      string
}

// Client speaks the APIC REST API: token-based authentication plus
// JSON requests against /api paths. Retries and re-authentication live
// here so callers can treat every request as a single blocking exchange.
type Client struct {
	cfg  *APICConfig
	base *url.URL
	http *http.Client

	mu    sync.Mutex
	token string
}

// RequestOptions defines options for an API request
type RequestOptions struct {
	Method string
	Path   string // /api/... path including any filter string
	Body   []byte // JSON document, nil for GET/DELETE
}

// Response represents a parsed APIC response
type Response struct {
	StatusCode int
	TotalCount int
	Imdata     []json.RawMessage
}

// NewClient creates a new APIC API client from config
func NewClient(cfg *APICConfig) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if cfg.Host == "" {
		return nil, fmt.Errorf("host is required")
	}

	scheme := "https"
	port := cfg.Port
	if !cfg.UseSSL {
		scheme = "http"
		if port == 0 {
			port = 80
		}
	}
	if port == 0 {
		port = 443
	}

	base, err := url.Parse(fmt.Sprintf("%s://%s:%d", scheme, cfg.Host, port))
	if err != nil {
		return nil, fmt.Errorf("invalid host %q: %w", cfg.Host, err)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.UseSSL && !cfg.ValidateCerts {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &Client{
		cfg:  cfg,
		base: base,
		http: &http.Client{Timeout: timeout, Transport: transport},
	}, nil
}

// Login authenticates against the APIC and caches the session token.
// Do calls it lazily, so explicit use is only needed to verify credentials
// up front.
func (c *Client) Login(ctx context.Context) error {
	body, err := json.Marshal(map[string]any{
		"aaaUser": map[string]any{
			"attributes": map[string]string{
				"name": c.cfg.Username,
				"pwd":  c.cfg.Password,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to build login payload: %w", err)
	}

	resp, err := backoff.Retry(ctx, func() (*Response, error) {
		resp, err := c.do(ctx, "POST", "/api/aaaLogin.json", body, false)
		if err != nil {
			if transient(err) {
				return nil, err
			}
			return nil, backoff.Permanent(err)
		}
		return resp, nil
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(3))
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	if len(resp.Imdata) == 0 {
		return NewError(ErrorCodeUnauthorized, "login response contained no session token", nil)
	}
	token := gjson.GetBytes(resp.Imdata[0], "aaaLogin.attributes.token").String()
	if token == "" {
		return NewError(ErrorCodeUnauthorized, "login response contained no session token", nil)
	}

	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
	return nil
}

// Do executes an API request, authenticating first if needed.
// An expired session (403) triggers a single re-login and retry.
func (c *Client) Do(ctx context.Context, opts RequestOptions) (*Response, error) {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()

	if token == "" {
		if err := c.Login(ctx); err != nil {
			return nil, err
		}
	}

	resp, err := c.do(ctx, opts.Method, opts.Path, opts.Body, true)
	if err != nil {
		var apicErr *Error
		if asError(err, &apicErr) && apicErr.Code == ErrorCodeUnauthorized {
			if loginErr := c.Login(ctx); loginErr != nil {
				return nil, loginErr
			}
			return c.do(ctx, opts.Method, opts.Path, opts.Body, true)
		}
		return nil, err
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, authed bool) (*Response, error) {
	u, err := c.base.Parse(path)
	if err != nil {
		return nil, NewError(ErrorCodeInvalidInput, fmt.Sprintf("invalid request path %q", path), err)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, NewError(ErrorCodeInvalidInput, "failed to build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if authed {
		c.mu.Lock()
		req.AddCookie(&http.Cookie{Name: "APIC-cookie", Value: c.token})
		c.mu.Unlock()
	}

	httpResp, err := c.http.Do(req)
	if err != nil {
		return nil, NewError(ErrorCodeUnavailable, err.Error(), err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, NewError(ErrorCodeUnavailable, "failed to read response body", err)
	}

	return parseResponse(httpResp.StatusCode, raw)
}

// parseResponse converts a raw APIC body into a Response. The APIC reports
// remote-side failures inside imdata rather than via bare status codes, so
// both the HTTP status and the first imdata entry are inspected.
func parseResponse(statusCode int, raw []byte) (*Response, error) {
	if !gjson.ValidBytes(raw) {
		return nil, &Error{
			Code:     ErrorCodeParse,
			Message:  "unparseable response from APIC",
			HTTPCode: statusCode,
			Raw:      string(raw),
		}
	}

	parsed := gjson.ParseBytes(raw)
	resp := &Response{
		StatusCode: statusCode,
		TotalCount: int(parsed.Get("totalCount").Int()),
	}
	for _, entry := range parsed.Get("imdata").Array() {
		resp.Imdata = append(resp.Imdata, json.RawMessage(entry.Raw))
	}

	if len(resp.Imdata) > 0 {
		if errAttrs := gjson.GetBytes(resp.Imdata[0], "error.attributes"); errAttrs.Exists() {
			code := ClassifyHTTPStatus(statusCode)
			if code == ErrorCodeNone {
				code = ErrorCodeRemote
			}
			return nil, &Error{
				Code:       code,
				Message:    errAttrs.Get("text").String(),
				RemoteCode: errAttrs.Get("code").String(),
				HTTPCode:   statusCode,
			}
		}
	}

	if code := ClassifyHTTPStatus(statusCode); code != ErrorCodeNone {
		return nil, &Error{
			Code:     code,
			Message:  http.StatusText(statusCode),
			HTTPCode: statusCode,
		}
	}

	return resp, nil
}

// transient reports whether an error is worth retrying during login.
func transient(err error) bool {
	var apicErr *Error
	if asError(err, &apicErr) {
		switch apicErr.Code {
		case ErrorCodeUnavailable, ErrorCodeThrottling, ErrorCodeInternalError:
			return true
		}
	}
	return false
}
