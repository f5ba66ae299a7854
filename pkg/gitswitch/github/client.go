// Package github talks to the hosting provider's OAuth device endpoints and
// REST API: minting tokens via the device authorization grant, validating
// them, and reading granted scopes.
package github

import (
	"errors"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/gitswitch/gitswitch/pkg/version"
)

const (
	defaultDeviceURL = "https://github.com"
	defaultAPIURL    = "https://api.github.com"

	acceptJSON   = "application/json"
	acceptGitHub = "application/vnd.github.v3+json"
)

var (
	// ErrInvalidToken is returned when the provider rejects a token. The
	// specific HTTP status is deliberately not surfaced.
	ErrInvalidToken = errors.New("invalid token")

	// Terminal device-flow outcomes. None of these are retried.
	ErrDenied  = errors.New("device authorization denied")
	ErrExpired = errors.New("device code expired")
	ErrTimeout = errors.New("device flow timed out")
)

type Client struct {
	http      *resty.Client
	clientID  string
	deviceURL string
	apiURL    string
	scopes    []string
}

type Option func(*Client)

func WithClientID(clientID string) Option {
	return func(c *Client) { c.clientID = clientID }
}

func WithDeviceURL(baseURL string) Option {
	return func(c *Client) { c.deviceURL = strings.TrimRight(baseURL, "/") }
}

func WithAPIURL(baseURL string) Option {
	return func(c *Client) { c.apiURL = strings.TrimRight(baseURL, "/") }
}

func WithScopes(scopes []string) Option {
	return func(c *Client) { c.scopes = scopes }
}

func WithHTTPClient(http *resty.Client) Option {
	return func(c *Client) { c.http = http }
}

func New(opts ...Option) (*Client, error) {
	c := &Client{
		deviceURL: defaultDeviceURL,
		apiURL:    defaultAPIURL,
		scopes:    []string{"repo", "user"},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.clientID == "" {
		return nil, errors.New("client id is required")
	}
	if c.http == nil {
		c.http = resty.New().SetTimeout(30 * time.Second)
	}
	c.http.SetHeader("User-Agent", "gitswitch/"+version.Version)
	return c, nil
}
