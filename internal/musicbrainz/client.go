// Package musicbrainz looks up MusicBrainz recordings, pacing requests by the
// quota headers the service returns.
package musicbrainz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/justestif/mixtape-studio/internal/logging"
)

const (
	defaultBaseURL   = "https://musicbrainz.org/ws/2"
	defaultUserAgent = "MixtapeStudio/1.0 ( https://mixtapestudy.com )"
	defaultPause     = time.Second
)

// ErrMissingUserAgent is returned when no descriptive User-Agent is configured.
var ErrMissingUserAgent = errors.New("musicbrainz requires a descriptive User-Agent")

// APIError is a non-2xx response from MusicBrainz.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("musicbrainz returned %d: %s", e.StatusCode, e.Message)
}

// Recording is the subset of a MusicBrainz recording used for catalog matching.
type Recording struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	ISRCs   []string `json:"isrcs"`
	Artists []string `json:"artists"`
}

// Config holds MusicBrainz client settings.
type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration

	// DefaultPause spaces requests when a response carries no quota headers.
	DefaultPause time.Duration
}

// Client is a MusicBrainz API client.
type Client struct {
	baseURL      string
	userAgent    string
	httpClient   *http.Client
	defaultPause time.Duration
	now          func() time.Time

	cache Cache

	mu      sync.Mutex
	limiter *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithCache stores looked-up recordings in cache.
func WithCache(cache Cache) Option {
	return func(c *Client) {
		c.cache = cache
	}
}

// WithClock overrides the time source used to read quota reset times.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient creates a new MusicBrainz client.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.UserAgent) == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if !strings.Contains(cfg.UserAgent, "(") {
		return nil, fmt.Errorf("%w: %q", ErrMissingUserAgent, cfg.UserAgent)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.DefaultPause < 0 {
		cfg.DefaultPause = defaultPause
	}

	c := &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		userAgent:    cfg.UserAgent,
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		defaultPause: cfg.DefaultPause,
		now:          time.Now,
		limiter:      rate.NewLimiter(rate.Inf, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Recording fetches a recording with its ISRCs and artist credits.
// Cached recordings are returned without touching the network.
func (c *Client) Recording(ctx context.Context, mbid string) (*Recording, error) {
	if c.cache != nil {
		rec, ok, err := c.cache.Get(ctx, mbid)
		if err != nil {
			logging.FromContext(ctx).Warn("recording cache read failed", "mbid", mbid, "err", err)
		}
		if ok {
			return rec, nil
		}
	}

	params := url.Values{
		"fmt": {"json"},
		"inc": {"isrcs artist-credits"},
	}
	reqURL := c.baseURL + "/recording/" + url.PathEscape(mbid) + "?" + params.Encode()

	body, err := c.doRequest(ctx, reqURL)
	if err != nil {
		return nil, fmt.Errorf("looking up recording %s: %w", mbid, err)
	}

	var resp recordingResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing recording %s: %w", mbid, err)
	}
	rec := resp.recording()

	if c.cache != nil {
		if err := c.cache.Set(ctx, rec); err != nil {
			logging.FromContext(ctx).Warn("recording cache write failed", "mbid", mbid, "err", err)
		}
	}
	return rec, nil
}

// doRequest waits for the pacing limiter, performs a GET and re-paces from the response.
func (c *Client) doRequest(ctx context.Context, reqURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for quota: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	c.pace(parseQuota(resp.Header, c.now()).Pause(c.defaultPause))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e errorResponse
		msg := strings.TrimSpace(string(body))
		if err := json.Unmarshal(body, &e); err == nil && e.Error != "" {
			msg = e.Error
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	return body, nil
}

// pace makes the next request wait at least d.
func (c *Client) pace(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if d <= 0 {
		c.limiter.SetLimit(rate.Inf)
		return
	}
	c.limiter.SetLimit(rate.Every(d))
	c.limiter.Allow()
}
