package listenbrainz

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// RadioTrack is one entry of a generated radio playlist.
type RadioTrack struct {
	Title       string
	Creator     string
	Identifiers []string
}

// RecordingMBID returns the MusicBrainz recording ID named by the track's identifiers.
func (t RadioTrack) RecordingMBID() (string, bool) {
	for _, ident := range t.Identifiers {
		u, err := url.Parse(ident)
		if err != nil || u.Host != "musicbrainz.org" {
			continue
		}
		rest, ok := strings.CutPrefix(u.Path, "/recording/")
		if !ok {
			continue
		}
		if id, err := uuid.Parse(strings.Trim(rest, "/")); err == nil {
			return id.String(), true
		}
	}
	return "", false
}

// identifiers accepts a JSPF identifier given as a single string or a list.
type identifiers []string

func (ids *identifiers) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*ids = identifiers{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*ids = many
	return nil
}

type radioResponse struct {
	Payload struct {
		JSPF struct {
			Playlist struct {
				Track []struct {
					Title      string      `json:"title"`
					Creator    string      `json:"creator"`
					Identifier identifiers `json:"identifier"`
				} `json:"track"`
			} `json:"playlist"`
		} `json:"jspf"`
	} `json:"payload"`
}

type errorResponse struct {
	Code  int    `json:"code"`
	Error string `json:"error"`
}
