package musicbrainz

type recordingResponse struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	ISRCs        []string `json:"isrcs"`
	ArtistCredit []struct {
		Name   string `json:"name"`
		Artist struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"artist"`
	} `json:"artist-credit"`
}

func (r recordingResponse) recording() *Recording {
	rec := &Recording{ID: r.ID, Title: r.Title, ISRCs: r.ISRCs}
	for _, credit := range r.ArtistCredit {
		name := credit.Name
		if name == "" {
			name = credit.Artist.Name
		}
		if name != "" {
			rec.Artists = append(rec.Artists, name)
		}
	}
	return rec
}

type errorResponse struct {
	Error string `json:"error"`
}
