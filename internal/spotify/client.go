// Package spotify provides a wrapper around the Spotify Web API.
package spotify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
)

const defaultTimeout = 30 * time.Second

// Client wraps the Spotify API client with convenience methods.
type Client struct {
	api *spotify.Client
	now func() time.Time
}

// New creates a new Spotify client wrapper.
// The underlying client should already be authenticated.
func New(api *spotify.Client) *Client {
	return &Client{api: api, now: time.Now}
}

// Factory builds per-request clients from a user's access token.
type Factory struct {
	baseURL string
	timeout time.Duration
	now     func() time.Time
}

// Option configures a Factory.
type Option func(*Factory)

// WithBaseURL points clients at a different Web API root, such as a test server.
// The URL must end with a slash.
func WithBaseURL(url string) Option {
	return func(f *Factory) {
		f.baseURL = url
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Factory) {
		f.timeout = d
	}
}

// WithClock overrides the time source used to stamp playlist names.
func WithClock(now func() time.Time) Option {
	return func(f *Factory) {
		f.now = now
	}
}

// NewFactory creates a Factory.
func NewFactory(opts ...Option) *Factory {
	f := &Factory{timeout: defaultTimeout, now: time.Now}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// ForToken returns a client that authenticates with accessToken.
// The token is used as-is; refreshing is the caller's concern.
func (f *Factory) ForToken(accessToken string) *Client {
	httpClient := &http.Client{
		Timeout: f.timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}),
		},
	}

	var opts []spotify.ClientOption
	if f.baseURL != "" {
		opts = append(opts, spotify.WithBaseURL(f.baseURL))
	}

	return &Client{api: spotify.New(httpClient, opts...), now: f.now}
}

// CurrentUser returns the profile of the token's owner.
func (c *Client) CurrentUser(ctx context.Context) (*Profile, error) {
	user, err := c.api.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting current user: %w", err)
	}
	return &Profile{
		ID:          user.ID,
		DisplayName: user.DisplayName,
		Email:       user.Email,
	}, nil
}
