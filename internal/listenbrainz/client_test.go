package listenbrainz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestRadio(t *testing.T) {
	var gotQuery, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/1/explore/lb-radio" {
			t.Errorf("path = %q", r.URL.Path)
		}
		gotQuery = r.URL.Query().Get("prompt")
		gotAuth = r.Header.Get("Authorization")
		if r.URL.Query().Get("mode") != "easy" {
			t.Errorf("mode = %q", r.URL.Query().Get("mode"))
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"payload":{"jspf":{"playlist":{"track":[
			{"title":"Song 0","creator":"Artist 0","identifier":["https://musicbrainz.org/recording/8f3471b5-7e6a-48da-86a9-c1c07a0f47ae"]},
			{"title":"Song 1","creator":"Artist 1","identifier":"https://musicbrainz.org/recording/not-a-uuid"},
			{"title":"Song 2","creator":"Artist 2"}
		]}}}}`)
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "lb-key", BaseURL: srv.URL})
	tracks, err := c.Radio(context.Background(), []string{"Artist A", "Artist B"})
	if err != nil {
		t.Fatalf("Radio() error = %v", err)
	}

	if gotQuery != "artist:(Artist A) artist:(Artist B)" {
		t.Errorf("prompt = %q", gotQuery)
	}
	if gotAuth != "Token lb-key" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if len(tracks) != 3 {
		t.Fatalf("got %d tracks, want 3", len(tracks))
	}

	tests := []struct {
		idx     int
		wantID  string
		wantHas bool
	}{
		{0, "8f3471b5-7e6a-48da-86a9-c1c07a0f47ae", true},
		{1, "", false},
		{2, "", false},
	}
	for _, tt := range tests {
		id, ok := tracks[tt.idx].RecordingMBID()
		if ok != tt.wantHas || id != tt.wantID {
			t.Errorf("track %d RecordingMBID() = %q, %v", tt.idx, id, ok)
		}
	}
	if tracks[2].Title != "Song 2" || tracks[2].Creator != "Artist 2" {
		t.Errorf("track 2 = %+v", tracks[2])
	}
}

func TestRadio_NoAPIKeyOmitsHeader(t *testing.T) {
	var sawAuth bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawAuth = r.Header["Authorization"]
		fmt.Fprint(w, `{"payload":{"jspf":{"playlist":{"track":[]}}}}`)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	if _, err := c.Radio(context.Background(), []string{"x"}); err != nil {
		t.Fatalf("Radio() error = %v", err)
	}
	if sawAuth {
		t.Error("Authorization header sent without an API key")
	}
}

func TestRadio_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"code":  400,
			"error": "LB Radio generation failed: Artist selected-artist-3 could not be looked up. Please use exact spelling.",
		})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	_, err := c.Radio(context.Background(), []string{"selected-artist-3"})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Radio() error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest {
		t.Errorf("StatusCode = %d", apiErr.StatusCode)
	}

	name, ok := OffendingArtist(err)
	if !ok || name != "selected-artist-3" {
		t.Errorf("OffendingArtist() = %q, %v", name, ok)
	}
}

func TestRadio_RateLimitRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"payload":{"jspf":{"playlist":{"track":[{"title":"t","creator":"c"}]}}}}`)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	c.retryDelays = []time.Duration{time.Millisecond, time.Millisecond, time.Millisecond}

	tracks, err := c.Radio(context.Background(), []string{"x"})
	if err != nil {
		t.Fatalf("Radio() error = %v", err)
	}
	if len(tracks) != 1 || calls.Load() != 3 {
		t.Errorf("tracks = %d, calls = %d", len(tracks), calls.Load())
	}
}

func TestRadio_RateLimitExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	c.retryDelays = []time.Duration{time.Millisecond}

	_, err := c.Radio(context.Background(), []string{"x"})
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("Radio() error = %v, want ErrRateLimited", err)
	}
}

func TestOffendingArtist(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantName string
		wantOK   bool
	}{
		{
			name:     "lookup failure",
			err:      &APIError{StatusCode: 400, Message: "LB Radio generation failed: Artist Björk could not be looked up. Please use exact spelling."},
			wantName: "Björk",
			wantOK:   true,
		},
		{
			name:     "wrapped",
			err:      fmt.Errorf("generating radio: %w", &APIError{StatusCode: 404, Message: "Artist The The could not be looked up."}),
			wantName: "The The",
			wantOK:   true,
		},
		{
			name:   "server error",
			err:    &APIError{StatusCode: 500, Message: "Artist X could not be looked up."},
			wantOK: false,
		},
		{
			name:   "other 4xx message",
			err:    &APIError{StatusCode: 400, Message: "prompt is empty"},
			wantOK: false,
		},
		{
			name:   "not an api error",
			err:    errors.New("Artist X could not be looked up"),
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := OffendingArtist(tt.err)
			if ok != tt.wantOK || got != tt.wantName {
				t.Errorf("OffendingArtist() = %q, %v, want %q, %v", got, ok, tt.wantName, tt.wantOK)
			}
		})
	}
}

func TestPrompt(t *testing.T) {
	if got := Prompt([]string{"a", "b c"}); got != "artist:(a) artist:(b c)" {
		t.Errorf("Prompt() = %q", got)
	}
}
