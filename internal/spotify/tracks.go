package spotify

import (
	"context"
	"fmt"

	"github.com/zmb3/spotify/v2"
)

// Search returns up to limit tracks matching query.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Track, error) {
	res, err := c.api.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(limit))
	if err != nil {
		return nil, fmt.Errorf("searching tracks: %w", err)
	}
	if res.Tracks == nil {
		return nil, nil
	}

	tracks := make([]Track, 0, len(res.Tracks.Tracks))
	for _, t := range res.Tracks.Tracks {
		tracks = append(tracks, convertTrack(t.SimpleTrack))
	}
	return tracks, nil
}

// FirstTrack returns the best match for query. The boolean is false when nothing matched.
func (c *Client) FirstTrack(ctx context.Context, query string) (Track, bool, error) {
	tracks, err := c.Search(ctx, query, 1)
	if err != nil {
		return Track{}, false, err
	}
	if len(tracks) == 0 {
		return Track{}, false, nil
	}
	return tracks[0], true, nil
}

// Recommendations returns up to limit tracks seeded by the given track IDs.
func (c *Client) Recommendations(ctx context.Context, seedIDs []string, limit int) ([]Track, error) {
	seeds := spotify.Seeds{Tracks: make([]spotify.ID, len(seedIDs))}
	for i, id := range seedIDs {
		seeds.Tracks[i] = spotify.ID(id)
	}

	recs, err := c.api.GetRecommendations(ctx, seeds, nil, spotify.Limit(limit))
	if err != nil {
		return nil, fmt.Errorf("getting recommendations: %w", err)
	}

	tracks := make([]Track, 0, len(recs.Tracks))
	for _, t := range recs.Tracks {
		tracks = append(tracks, convertTrack(t))
	}
	return tracks, nil
}

// convertTrack converts a Spotify SimpleTrack to a Track.
func convertTrack(t spotify.SimpleTrack) Track {
	artists := make([]string, len(t.Artists))
	for i, a := range t.Artists {
		artists[i] = a.Name
	}
	return Track{
		URI:     string(t.URI),
		ID:      t.ID.String(),
		Name:    t.Name,
		Artists: artists,
	}
}
