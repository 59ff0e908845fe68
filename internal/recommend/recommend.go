// Package recommend builds playlist previews from a user's seed tracks.
//
// Two backends are supported. The Spotify backend asks the catalog for
// recommendations directly. The ListenBrainz backend generates an artist radio,
// resolves each radio track through MusicBrainz and matches it back to the
// catalog by ISRC or by title and artist.
package recommend

import (
	"context"
	"errors"
	"fmt"

	"github.com/justestif/mixtape-studio/internal/config"
	"github.com/justestif/mixtape-studio/internal/listenbrainz"
	"github.com/justestif/mixtape-studio/internal/musicbrainz"
	"github.com/justestif/mixtape-studio/internal/session"
	"github.com/justestif/mixtape-studio/internal/spotify"
)

const (
	// RecommendationLimit is the number of tracks requested from the Spotify backend.
	RecommendationLimit = 72

	// MaxRadioAttempts bounds the artist-rejection retry loop.
	MaxRadioAttempts = 30

	maxQueryArtists = 3
)

var (
	// ErrNoSeeds is returned when Generate is called without seed tracks.
	ErrNoSeeds = errors.New("no seed tracks")

	// ErrNoArtists is returned when no seed artist is left to build a radio prompt from.
	ErrNoArtists = errors.New("no seed artists left")

	// ErrAttemptsExhausted is returned when the radio retry budget runs out.
	ErrAttemptsExhausted = errors.New("radio attempts exhausted")
)

// BackendError reports a recommendation backend failure.
type BackendError struct {
	Backend config.RecommendationService
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s recommendations: %v", e.Backend, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// Track is one row of a playlist preview.
type Track struct {
	URI    string
	ID     string
	Name   string
	Artist string
}

// Catalog is the subset of the Spotify client the orchestrator uses.
type Catalog interface {
	Recommendations(ctx context.Context, seedIDs []string, limit int) ([]spotify.Track, error)
	FirstTrack(ctx context.Context, query string) (spotify.Track, bool, error)
}

// CatalogFactory returns a Catalog acting with accessToken.
type CatalogFactory func(accessToken string) Catalog

// Radio generates artist radio playlists.
type Radio interface {
	Radio(ctx context.Context, artists []string) ([]listenbrainz.RadioTrack, error)
}

// Recordings looks up MusicBrainz recordings.
type Recordings interface {
	Recording(ctx context.Context, mbid string) (*musicbrainz.Recording, error)
}

// Orchestrator produces playlist previews with the configured backend.
type Orchestrator struct {
	service     config.RecommendationService
	catalog     CatalogFactory
	radio       Radio
	recordings  Recordings
	maxAttempts int
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMaxAttempts overrides the radio retry budget.
func WithMaxAttempts(n int) Option {
	return func(o *Orchestrator) {
		o.maxAttempts = n
	}
}

// New creates an Orchestrator. radio and recordings are only used by the ListenBrainz backend.
func New(service config.RecommendationService, catalog CatalogFactory, radio Radio, recordings Recordings, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		service:     service,
		catalog:     catalog,
		radio:       radio,
		recordings:  recordings,
		maxAttempts: MaxRadioAttempts,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// SpotifyCatalog adapts a spotify.Factory to a CatalogFactory.
func SpotifyCatalog(f *spotify.Factory) CatalogFactory {
	return func(accessToken string) Catalog {
		return f.ForToken(accessToken)
	}
}

// Generate returns the seeds, in slot order, followed by recommended tracks.
func (o *Orchestrator) Generate(ctx context.Context, seeds []session.SeedTrack, accessToken string) ([]Track, error) {
	if len(seeds) == 0 {
		return nil, &BackendError{Backend: o.service, Err: ErrNoSeeds}
	}

	catalog := o.catalog(accessToken)

	var (
		recs []Track
		err  error
	)
	switch o.service {
	case config.ServiceListenBrainz:
		recs, err = o.crossReference(ctx, catalog, seeds)
	case config.ServiceSpotify:
		recs, err = o.direct(ctx, catalog, seeds)
	default:
		err = fmt.Errorf("%w: %q", config.ErrUnknownService, o.service)
	}
	if err != nil {
		return nil, &BackendError{Backend: o.service, Err: err}
	}

	out := make([]Track, 0, len(seeds)+len(recs))
	for _, s := range seeds {
		out = append(out, Track{URI: s.URI, ID: s.ID, Name: s.Name, Artist: s.Artist})
	}
	return append(out, recs...), nil
}

func (o *Orchestrator) direct(ctx context.Context, catalog Catalog, seeds []session.SeedTrack) ([]Track, error) {
	ids := make([]string, len(seeds))
	for i, s := range seeds {
		ids[i] = s.ID
	}

	tracks, err := catalog.Recommendations(ctx, ids, RecommendationLimit)
	if err != nil {
		return nil, err
	}

	out := make([]Track, len(tracks))
	for i, t := range tracks {
		out[i] = fromCatalog(t)
	}
	return out, nil
}

func fromCatalog(t spotify.Track) Track {
	return Track{URI: t.URI, ID: t.ID, Name: t.Name, Artist: t.Artist()}
}
