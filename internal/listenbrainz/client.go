// Package listenbrainz provides a client for the ListenBrainz LB Radio API.
package listenbrainz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const (
	defaultBaseURL   = "https://api.listenbrainz.org"
	defaultUserAgent = "MixtapeStudio/1.0 ( https://mixtapestudy.com )"
	radioPath        = "/1/explore/lb-radio"
	radioMode        = "easy"
)

// ErrRateLimited is returned when the API keeps answering 429 after retries.
var ErrRateLimited = errors.New("rate limit exceeded")

// APIError is a non-2xx response from ListenBrainz.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("listenbrainz returned %d: %s", e.StatusCode, e.Message)
}

var offendingArtistRe = regexp.MustCompile(`Artist (.+?) could not be looked up`)

// OffendingArtist reports the artist name a 4xx radio error rejected, if any.
func OffendingArtist(err error) (string, bool) {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return "", false
	}
	if apiErr.StatusCode < 400 || apiErr.StatusCode >= 500 {
		return "", false
	}
	m := offendingArtistRe.FindStringSubmatch(apiErr.Message)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Prompt builds an LB Radio prompt naming each artist.
func Prompt(artists []string) string {
	parts := make([]string, len(artists))
	for i, a := range artists {
		parts[i] = "artist:(" + a + ")"
	}
	return strings.Join(parts, " ")
}

// Config holds ListenBrainz client settings.
type Config struct {
	APIKey    string
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// Client is a ListenBrainz API client.
type Client struct {
	apiKey     string
	userAgent  string
	baseURL    string
	httpClient *http.Client

	// retryDelays are the waits between attempts after a 429.
	retryDelays []time.Duration
}

// NewClient creates a new ListenBrainz client from the provided configuration.
func NewClient(cfg Config) *Client {
	c := &Client{
		apiKey:      cfg.APIKey,
		userAgent:   cfg.UserAgent,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		retryDelays: []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second},
	}
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	if c.userAgent == "" {
		c.userAgent = defaultUserAgent
	}
	if c.httpClient.Timeout == 0 {
		c.httpClient.Timeout = 30 * time.Second
	}
	return c
}

// Radio generates a radio playlist for the given artists.
func (c *Client) Radio(ctx context.Context, artists []string) ([]RadioTrack, error) {
	params := url.Values{
		"mode":   {radioMode},
		"prompt": {Prompt(artists)},
	}

	body, err := c.doRequest(ctx, c.baseURL+radioPath+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("generating radio: %w", err)
	}

	var resp radioResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing radio response: %w", err)
	}

	tracks := make([]RadioTrack, 0, len(resp.Payload.JSPF.Playlist.Track))
	for _, t := range resp.Payload.JSPF.Playlist.Track {
		tracks = append(tracks, RadioTrack{
			Title:       t.Title,
			Creator:     t.Creator,
			Identifiers: t.Identifier,
		})
	}
	return tracks, nil
}

// doRequest performs a GET, retrying only when rate limited.
func (c *Client) doRequest(ctx context.Context, reqURL string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= len(c.retryDelays); attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryDelays[attempt-1]):
			}
		}

		body, err := c.doSingleRequest(ctx, reqURL)
		if err == nil {
			return body, nil
		}
		if errors.Is(err, ErrRateLimited) {
			lastErr = err
			continue
		}
		return nil, err
	}

	return nil, lastErr
}

func (c *Client) doSingleRequest(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Token "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
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
