// Package apiclient talks to the marketplace REST backend. It owns the wire
// format and turns every failure into an internal/errors taxonomy error.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "github.com/jrsteele09/lingo-web/internal/errors"
	"github.com/rs/zerolog/log"
)

// Backend routes, relative to the configured base URL
const (
	PathLogin       = "/auth/login"
	PathRegister    = "/auth/register"
	PathGoogle      = "/auth/google"
	PathMe          = "/auth/me"
	PathAcceptTerms = "/auth/accept-terms"
	PathLogout      = "/auth/logout"
	PathAnalytics   = "/admin/analytics"
)

const (
	contentTypeJSON  = "application/json"
	maxErrorBodySize = 64 * 1024
	defaultUserAgent = "lingo-web"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
}

// ClientOption defines a function type to modify the Client instance.
type ClientOption func(*Client)

// WithHTTPClient replaces the transport; the default has no timeout and relies on ctx.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

func New(baseURL string, options ...ClientOption) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("[apiclient New] baseURL is required")
	}
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{},
		userAgent:  defaultUserAgent,
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// errorBody covers the two error shapes the backend uses.
type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// do sends a JSON request and decodes a JSON response into out (when non-nil).
func (c *Client) do(ctx context.Context, op, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return apperrors.Internal(op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return apperrors.Internal(op, err)
	}
	req.Header.Set("Accept", contentTypeJSON)
	req.Header.Set("User-Agent", c.userAgent)
	if in != nil {
		req.Header.Set("Content-Type", contentTypeJSON)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Debug().Err(err).Str("op", op).Msg("backend request failed")
		return apperrors.Network(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return translateStatus(op, resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.Internal(op, fmt.Errorf("decoding response: %w", err))
	}
	return nil
}

func translateStatus(op string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))

	var eb errorBody
	msg := ""
	if json.Unmarshal(raw, &eb) == nil {
		msg = eb.Message
		if msg == "" {
			msg = eb.Error
		}
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	status := resp.StatusCode
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return apperrors.Auth(op, status, msg)
	case status == http.StatusServiceUnavailable && strings.Contains(strings.ToLower(msg), "not configured"):
		return apperrors.Configuration(op, msg)
	case status >= 500:
		e := apperrors.Network(op, fmt.Errorf("backend status %d: %s", status, msg))
		e.Status = status
		return e
	default:
		return apperrors.Rejected(op, status, msg)
	}
}
