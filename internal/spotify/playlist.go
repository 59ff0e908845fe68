package spotify

import (
	"context"
	"fmt"
	"strings"

	"github.com/zmb3/spotify/v2"
)

const (
	maxTracksPerRequest = 100

	playlistDescription = "Generated by mixtapestudy.com"
	playlistTimeLayout  = "2006-01-02 15:04:05"
	playlistURLPrefix   = "https://open.spotify.com/playlist/"
)

// SavePlaylist creates a public, non-collaborative playlist for userID named after
// name and the current UTC time, adds every track URI, and returns the playlist URL.
func (c *Client) SavePlaylist(ctx context.Context, userID, name string, uris []string) (string, error) {
	title := fmt.Sprintf("%s (%s)", name, c.now().UTC().Format(playlistTimeLayout))

	playlist, err := c.api.CreatePlaylistForUser(ctx, userID, title, playlistDescription, true, false)
	if err != nil {
		return "", fmt.Errorf("creating playlist: %w", err)
	}

	ids := make([]string, len(uris))
	for i, uri := range uris {
		ids[i] = trackIDFromURI(uri)
	}
	if err := c.AddTracksToPlaylist(ctx, playlist.ID.String(), ids); err != nil {
		return "", err
	}

	return playlistURLPrefix + playlist.ID.String(), nil
}

// AddTracksToPlaylist adds tracks to a playlist, handling batching for large sets.
// Spotify allows max 100 tracks per request.
func (c *Client) AddTracksToPlaylist(ctx context.Context, playlistID string, trackIDs []string) error {
	if len(trackIDs) == 0 {
		return nil
	}

	ids := make([]spotify.ID, len(trackIDs))
	for i, id := range trackIDs {
		ids[i] = spotify.ID(id)
	}

	for i := 0; i < len(ids); i += maxTracksPerRequest {
		end := min(i+maxTracksPerRequest, len(ids))
		batch := ids[i:end]

		_, err := c.api.AddTracksToPlaylist(ctx, spotify.ID(playlistID), batch...)
		if err != nil {
			return fmt.Errorf("adding tracks (batch %d-%d): %w", i+1, end, err)
		}
	}

	return nil
}

// trackIDFromURI returns the ID part of a spotify:track:<id> URI.
func trackIDFromURI(uri string) string {
	if i := strings.LastIndexByte(uri, ':'); i >= 0 {
		return uri[i+1:]
	}
	return uri
}
