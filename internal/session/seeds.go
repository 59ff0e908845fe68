package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// NumSeedSlots is the number of seed tracks a user can pick.
const NumSeedSlots = 3

var (
	// ErrSlotsFull is returned when selecting a seed while every slot is filled.
	ErrSlotsFull = errors.New("all seed slots are filled")

	// ErrSlotIndex is returned for a slot index outside the slot range.
	ErrSlotIndex = errors.New("seed slot index out of range")
)

// SeedTrack is a track chosen to seed recommendations.
type SeedTrack struct {
	URI  string `json:"uri"`
	ID   string `json:"id"`
	Name string `json:"name"`

	// Artist is the display form of the artist list.
	Artist string `json:"artist"`

	// ArtistRaw is the JSON-encoded list of artist names.
	ArtistRaw string `json:"artist_raw"`
}

// NewSeedTrack builds a SeedTrack from a track's artist names.
func NewSeedTrack(uri, id, name string, artists []string) SeedTrack {
	if artists == nil {
		artists = []string{}
	}
	raw, _ := json.Marshal(artists)
	return SeedTrack{
		URI:       uri,
		ID:        id,
		Name:      name,
		Artist:    strings.Join(artists, ", "),
		ArtistRaw: string(raw),
	}
}

// Artists decodes ArtistRaw.
func (t SeedTrack) Artists() ([]string, error) {
	if t.ArtistRaw == "" {
		return nil, nil
	}
	var names []string
	if err := json.Unmarshal([]byte(t.ArtistRaw), &names); err != nil {
		return nil, fmt.Errorf("decoding artists of seed %s: %w", t.ID, err)
	}
	return names, nil
}

// SeedSlots holds the user's seed picks. A nil slot is empty; slots are never compacted.
type SeedSlots [NumSeedSlots]*SeedTrack

// Select puts t into the first empty slot.
func (s *SeedSlots) Select(t SeedTrack) error {
	for i := range s {
		if s[i] == nil {
			s[i] = &t
			return nil
		}
	}
	return ErrSlotsFull
}

// Remove empties slot i (zero-based) without moving the others.
func (s *SeedSlots) Remove(i int) error {
	if i < 0 || i >= len(s) {
		return fmt.Errorf("%w: %d", ErrSlotIndex, i)
	}
	s[i] = nil
	return nil
}

// Full reports whether every slot is filled.
func (s *SeedSlots) Full() bool {
	for _, t := range s {
		if t == nil {
			return false
		}
	}
	return true
}

// Populated returns the filled slots in slot order.
func (s *SeedSlots) Populated() []SeedTrack {
	var out []SeedTrack
	for _, t := range s {
		if t != nil {
			out = append(out, *t)
		}
	}
	return out
}
