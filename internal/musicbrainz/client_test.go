package musicbrainz

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"
)

const recordingJSON = `{
	"id": "8f3471b5-7e6a-48da-86a9-c1c07a0f47ae",
	"title": "Song 0",
	"isrcs": ["USRC17607839"],
	"artist-credit": [
		{"name": "Artist A", "joinphrase": " feat. ", "artist": {"id": "a", "name": "Artist A"}},
		{"name": "", "artist": {"id": "b", "name": "Artist B"}}
	]
}`

func newTestClient(t *testing.T, srv *httptest.Server, opts ...Option) *Client {
	t.Helper()
	c, err := NewClient(Config{
		BaseURL:   srv.URL + "/ws/2",
		UserAgent: "MixtapeStudioTest/0.1 ( test@example.com )",
	}, opts...)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return c
}

func TestRecording(t *testing.T) {
	var gotUA, gotInc, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotInc = r.URL.Query().Get("inc")
		gotPath = r.URL.Path
		fmt.Fprint(w, recordingJSON)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	rec, err := c.Recording(context.Background(), "8f3471b5-7e6a-48da-86a9-c1c07a0f47ae")
	if err != nil {
		t.Fatalf("Recording() error = %v", err)
	}

	if gotPath != "/ws/2/recording/8f3471b5-7e6a-48da-86a9-c1c07a0f47ae" {
		t.Errorf("path = %q", gotPath)
	}
	if gotInc != "isrcs artist-credits" {
		t.Errorf("inc = %q", gotInc)
	}
	if gotUA != "MixtapeStudioTest/0.1 ( test@example.com )" {
		t.Errorf("User-Agent = %q", gotUA)
	}
	if rec.Title != "Song 0" || len(rec.ISRCs) != 1 || rec.ISRCs[0] != "USRC17607839" {
		t.Errorf("Recording() = %+v", rec)
	}
	if len(rec.Artists) != 2 || rec.Artists[0] != "Artist A" || rec.Artists[1] != "Artist B" {
		t.Errorf("Artists = %v", rec.Artists)
	}
}

func TestRecording_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":"Not Found","help":"For usage, please see: https://musicbrainz.org/development/mmd"}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.Recording(context.Background(), "missing")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Recording() error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusNotFound || apiErr.Message != "Not Found" {
		t.Errorf("APIError = %+v", apiErr)
	}
}

func TestRecording_CacheHitSkipsNetwork(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, recordingJSON)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, WithCache(NewMemoryCache(time.Hour)))
	ctx := context.Background()

	for range 3 {
		if _, err := c.Recording(ctx, "8f3471b5-7e6a-48da-86a9-c1c07a0f47ae"); err != nil {
			t.Fatalf("Recording() error = %v", err)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("server calls = %d, want 1", calls.Load())
	}
}

func TestRecording_PacedByQuotaHeaders(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		// Half the allowance used with one second left: wait half a second.
		w.Header().Set("X-RateLimit-Limit", "2")
		w.Header().Set("X-RateLimit-Remaining", "1")
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(time.Second).Unix(), 10))
		fmt.Fprint(w, recordingJSON)
	}))
	defer srv.Close()

	fixed := time.Now().Truncate(time.Second)
	c := newTestClient(t, srv, WithClock(func() time.Time { return fixed }))
	ctx := context.Background()

	start := time.Now()
	if _, err := c.Recording(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Recording(ctx, "b"); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed < 400*time.Millisecond {
		t.Errorf("second lookup after %v, want it paced", elapsed)
	}
}

func TestRecording_ContextCancelledWhilePaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, recordingJSON)
	}))
	defer srv.Close()

	c, err := NewClient(Config{
		BaseURL:      srv.URL,
		UserAgent:    "MixtapeStudioTest/0.1 ( test@example.com )",
		DefaultPause: time.Hour,
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := c.Recording(context.Background(), "a"); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := c.Recording(ctx, "b"); err == nil {
		t.Error("Recording() succeeded despite an hour-long pause")
	}
}

func TestNewClient_UserAgent(t *testing.T) {
	if _, err := NewClient(Config{UserAgent: "curl"}); !errors.Is(err, ErrMissingUserAgent) {
		t.Errorf("NewClient() error = %v, want ErrMissingUserAgent", err)
	}
	c, err := NewClient(Config{})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if c.userAgent != defaultUserAgent {
		t.Errorf("userAgent = %q", c.userAgent)
	}
}
