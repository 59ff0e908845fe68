package spotify

import "strings"

// Track is the catalog view of a track used throughout the app.
type Track struct {
	URI     string
	ID      string
	Name    string
	Artists []string
}

// Artist joins the artist names for display.
func (t Track) Artist() string {
	return strings.Join(t.Artists, ", ")
}

// Profile is the signed-in user's Spotify identity.
type Profile struct {
	ID          string
	DisplayName string
	Email       string
}
