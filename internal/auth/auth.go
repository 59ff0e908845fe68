// Package auth implements the Spotify OAuth authorization-code flow and token refresh.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
)

const defaultTimeout = 30 * time.Second

var (
	// ErrMissingCredentials is returned when the client ID or secret is empty.
	ErrMissingCredentials = errors.New("missing Spotify client ID or secret")

	// ErrStateMismatch is returned when the OAuth state parameter doesn't match.
	ErrStateMismatch = errors.New("OAuth state mismatch")

	// ErrMissingRefreshToken is returned when a credential has no refresh token to exchange.
	ErrMissingRefreshToken = errors.New("credential has no refresh token")
)

// Scopes requested at login.
var Scopes = []string{
	spotifyauth.ScopePlaylistModifyPublic,
	spotifyauth.ScopePlaylistModifyPrivate,
	spotifyauth.ScopeUserReadRecentlyPlayed,
	spotifyauth.ScopeUserReadCurrentlyPlaying,
	spotifyauth.ScopeUserReadEmail,
}

// ProviderError reports a failed call to the token endpoint.
// StatusCode is zero for transport failures and timeouts.
type ProviderError struct {
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("token endpoint returned %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("token endpoint: %v", e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func providerError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		return &ProviderError{StatusCode: re.Response.StatusCode, Err: err}
	}
	return &ProviderError{Err: err}
}

// Config describes the OAuth client registration.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// AuthURL and TokenURL default to Spotify's accounts service.
	AuthURL  string
	TokenURL string
}

// Grant is the result of a successful token exchange.
type Grant struct {
	AccessToken  string
	RefreshToken string
	Scope        string
	Expires      time.Time
}

// Authenticator handles Spotify OAuth2 authentication.
type Authenticator struct {
	oauth      *oauth2.Config
	httpClient *http.Client
	now        func() time.Time
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithHTTPClient sets the client used to reach the token endpoint.
func WithHTTPClient(c *http.Client) Option {
	return func(a *Authenticator) {
		a.httpClient = c
	}
}

// WithClock overrides the time source used to compute token expiry.
func WithClock(now func() time.Time) Option {
	return func(a *Authenticator) {
		a.now = now
	}
}

// New creates an Authenticator. Returns ErrMissingCredentials if the client ID or secret is empty.
func New(cfg Config, opts ...Option) (*Authenticator, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, ErrMissingCredentials
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = spotifyauth.AuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = spotifyauth.TokenURL
	}

	a := &Authenticator{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		httpClient: &http.Client{Timeout: defaultTimeout},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// AuthURL returns the provider consent URL carrying state.
func (a *Authenticator) AuthURL(state string) string {
	return a.oauth.AuthCodeURL(state)
}

// Exchange trades an authorization code for tokens.
func (a *Authenticator) Exchange(ctx context.Context, code string) (*Grant, error) {
	tok, err := a.oauth.Exchange(a.clientContext(ctx), code)
	if err != nil {
		return nil, providerError(fmt.Errorf("exchanging authorization code: %w", err))
	}
	return a.grant(tok, ""), nil
}

// refresh exchanges refreshToken for a new access token.
func (a *Authenticator) refresh(ctx context.Context, refreshToken, scope string) (*Grant, error) {
	src := a.oauth.TokenSource(a.clientContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, providerError(fmt.Errorf("refreshing access token: %w", err))
	}
	g := a.grant(tok, scope)
	if g.RefreshToken == "" {
		g.RefreshToken = refreshToken
	}
	return g, nil
}

func (a *Authenticator) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
}

// grant converts an oauth2 token, computing expiry from expires_in against the injected clock.
func (a *Authenticator) grant(tok *oauth2.Token, fallbackScope string) *Grant {
	g := &Grant{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Scope:        fallbackScope,
		Expires:      tok.Expiry.UTC(),
	}
	if scope, ok := tok.Extra("scope").(string); ok && scope != "" {
		g.Scope = scope
	}
	if secs, ok := expiresIn(tok.Extra("expires_in")); ok {
		g.Expires = a.now().UTC().Add(time.Duration(secs) * time.Second)
	}
	return g
}

func expiresIn(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case string:
		secs, err := strconv.ParseInt(n, 10, 64)
		return secs, err == nil
	}
	return 0, false
}

// GenerateState creates a random state string for OAuth.
func GenerateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
