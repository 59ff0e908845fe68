package recommend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justestif/mixtape-studio/internal/config"
	"github.com/justestif/mixtape-studio/internal/listenbrainz"
	"github.com/justestif/mixtape-studio/internal/musicbrainz"
	"github.com/justestif/mixtape-studio/internal/spotify"
)

// TestGenerate_ListenBrainzOverHTTP runs the cross-reference backend against
// stand-ins for all three services.
func TestGenerate_ListenBrainzOverHTTP(t *testing.T) {
	const mbid = "8f3471b5-7e6a-48da-86a9-c1c07a0f47ae"

	var radioPrompts []string
	lb := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		prompt := r.URL.Query().Get("prompt")
		radioPrompts = append(radioPrompts, prompt)
		if strings.Contains(prompt, "bad-artist") {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"code":400,"error":"LB Radio generation failed: Artist bad-artist could not be looked up. Please use exact spelling."}`)
			return
		}
		fmt.Fprintf(w, `{"payload":{"jspf":{"playlist":{"track":[
			{"title":"Song 0","creator":"Artist 0","identifier":["https://musicbrainz.org/recording/%s"]},
			{"title":"Song 1","creator":"Artist 1","identifier":[]}
		]}}}}`, mbid)
	}))
	defer lb.Close()

	mb := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"id":%q,"title":"Song 0","isrcs":["USRC17607839"],"artist-credit":[{"name":"Artist 0"}]}`, mbid)
	}))
	defer mb.Close()

	var searches []string
	sp := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer user-token" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		q := r.URL.Query().Get("q")
		searches = append(searches, q)
		items := []any{}
		switch q {
		case "isrc:USRC17607839":
			items = append(items, map[string]any{"id": "sp0", "uri": "spotify:track:sp0", "name": "Song 0", "artists": []any{map[string]any{"name": "Artist 0"}}})
		case "Song 1 Artist 1":
			items = append(items, map[string]any{"id": "sp1", "uri": "spotify:track:sp1", "name": "Song 1", "artists": []any{map[string]any{"name": "Artist 1"}}})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"tracks": map[string]any{"items": items}})
	}))
	defer sp.Close()

	mbClient, err := musicbrainz.NewClient(musicbrainz.Config{
		BaseURL:   mb.URL,
		UserAgent: "MixtapeStudioTest/0.1 ( test@example.com )",
	}, musicbrainz.WithCache(musicbrainz.NewMemoryCache(musicbrainz.CacheTTL)))
	require.NoError(t, err)

	o := New(
		config.ServiceListenBrainz,
		SpotifyCatalog(spotify.NewFactory(spotify.WithBaseURL(sp.URL+"/"))),
		listenbrainz.NewClient(listenbrainz.Config{BaseURL: lb.URL}),
		mbClient,
	)

	got, err := o.Generate(context.Background(), seeds(2, func(i int) []string {
		if i == 1 {
			return []string{"bad-artist"}
		}
		return []string{"good-artist"}
	}), "user-token")
	require.NoError(t, err)

	require.Len(t, got, 4)
	assert.Equal(t, "selected-song-0", got[0].Name)
	assert.Equal(t, "selected-song-1", got[1].Name)
	assert.Equal(t, "spotify:track:sp0", got[2].URI)
	assert.Equal(t, "spotify:track:sp1", got[3].URI)

	assert.Equal(t, []string{
		"artist:(good-artist) artist:(bad-artist)",
		"artist:(good-artist)",
	}, radioPrompts)
	assert.Equal(t, []string{
		"isrc:USRC17607839",
		"track:Song 1 artist:Artist 1",
		"Song 1 Artist 1",
	}, searches)
}
