package recommend

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/justestif/mixtape-studio/internal/listenbrainz"
	"github.com/justestif/mixtape-studio/internal/logging"
	"github.com/justestif/mixtape-studio/internal/session"
)

func (o *Orchestrator) crossReference(ctx context.Context, catalog Catalog, seeds []session.SeedTrack) ([]Track, error) {
	artists, err := seedArtists(seeds)
	if err != nil {
		return nil, err
	}

	radio, err := o.generateRadio(ctx, artists)
	if err != nil {
		return nil, err
	}

	log := logging.FromContext(ctx)
	out := make([]Track, 0, len(radio))
	for _, rt := range radio {
		queries := o.queriesFor(ctx, rt)

		matched := false
		for _, q := range queries {
			t, ok, err := catalog.FirstTrack(ctx, q)
			if err != nil {
				return nil, fmt.Errorf("searching catalog: %w", err)
			}
			if ok {
				out = append(out, fromCatalog(t))
				matched = true
				break
			}
		}
		if !matched {
			log.Debug("no catalog match for radio track", "title", rt.Title, "creator", rt.Creator)
		}
	}
	return out, nil
}

// seedArtists returns every seed artist once, in seed order.
func seedArtists(seeds []session.SeedTrack) ([]string, error) {
	var artists []string
	seen := make(map[string]bool)
	for _, s := range seeds {
		names, err := s.Artists()
		if err != nil {
			return nil, err
		}
		for _, n := range names {
			if !seen[n] {
				seen[n] = true
				artists = append(artists, n)
			}
		}
	}
	return artists, nil
}

// generateRadio asks for a radio, dropping each artist the service cannot look up
// and trying again with the rest.
func (o *Orchestrator) generateRadio(ctx context.Context, artists []string) ([]listenbrainz.RadioTrack, error) {
	log := logging.FromContext(ctx)
	artists = slices.Clone(artists)

	for attempt := 1; ; attempt++ {
		if len(artists) == 0 {
			return nil, ErrNoArtists
		}

		tracks, err := o.radio.Radio(ctx, artists)
		if err == nil {
			return tracks, nil
		}
		if attempt >= o.maxAttempts {
			return nil, fmt.Errorf("%w after %d attempts: %w", ErrAttemptsExhausted, attempt, err)
		}

		name, ok := listenbrainz.OffendingArtist(err)
		if !ok {
			return nil, err
		}
		idx := slices.Index(artists, name)
		if idx < 0 {
			return nil, fmt.Errorf("rejected artist %q is not in the prompt: %w", name, err)
		}

		log.Info("dropping artist rejected by radio", "artist", name, "attempt", attempt)
		artists = slices.Delete(artists, idx, idx+1)
	}
}

// queriesFor returns the catalog searches to try, in order, for one radio track.
func (o *Orchestrator) queriesFor(ctx context.Context, rt listenbrainz.RadioTrack) []string {
	title := rt.Title
	artists := []string{}
	if rt.Creator != "" {
		artists = []string{rt.Creator}
	}

	if mbid, ok := rt.RecordingMBID(); ok && o.recordings != nil {
		rec, err := o.recordings.Recording(ctx, mbid)
		switch {
		case err != nil:
			logging.FromContext(ctx).Warn("recording lookup failed", "mbid", mbid, "err", err)
		case len(rec.ISRCs) > 0:
			return []string{"isrc:" + rec.ISRCs[0]}
		default:
			if rec.Title != "" {
				title = rec.Title
			}
			if len(rec.Artists) > 0 {
				artists = rec.Artists
			}
		}
	}

	if len(artists) > maxQueryArtists {
		artists = artists[:maxQueryArtists]
	}
	return []string{fieldQuery(title, artists), freeTextQuery(title, artists)}
}

func fieldQuery(title string, artists []string) string {
	parts := []string{"track:" + title}
	for _, a := range artists {
		parts = append(parts, "artist:"+a)
	}
	return strings.Join(parts, " ")
}

func freeTextQuery(title string, artists []string) string {
	return strings.Join(append([]string{title}, artists...), " ")
}
