package web

import (
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/justestif/mixtape-studio/internal/recommend"
	"github.com/justestif/mixtape-studio/internal/session"
	"github.com/justestif/mixtape-studio/internal/spotify"
)

// Templates holds one parsed template set per page, each sharing the layouts and partials.
type Templates struct {
	pages map[string]*template.Template
}

// NewTemplates parses layouts/*.html and partials/*.html once, then clones that set for
// every file under pages/.
func NewTemplates(templatesFS fs.FS) (*Templates, error) {
	shared := template.New("shared").Funcs(template.FuncMap{
		"add": func(a, b int) int { return a + b },
	})
	for _, pattern := range []string{"layouts/*.html", "partials/*.html"} {
		matches, err := fs.Glob(templatesFS, pattern)
		if err != nil {
			return nil, fmt.Errorf("globbing %s: %w", pattern, err)
		}
		if len(matches) == 0 {
			continue
		}
		if shared, err = shared.ParseFS(templatesFS, matches...); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", pattern, err)
		}
	}

	pageFiles, err := fs.Glob(templatesFS, "pages/*.html")
	if err != nil {
		return nil, fmt.Errorf("globbing pages: %w", err)
	}
	if len(pageFiles) == 0 {
		return nil, errors.New("no page templates found")
	}

	t := &Templates{pages: make(map[string]*template.Template, len(pageFiles))}
	for _, file := range pageFiles {
		name := strings.TrimSuffix(path.Base(file), ".html")

		set, err := shared.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning layouts for %s: %w", name, err)
		}
		if _, err := set.ParseFS(templatesFS, file); err != nil {
			return nil, fmt.Errorf("parsing page %s: %w", name, err)
		}
		t.pages[name] = set
	}
	return t, nil
}

// Render writes page through the "base" layout.
func (t *Templates) Render(w io.Writer, page string, data any) error {
	set, ok := t.pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}
	return set.ExecuteTemplate(w, "base", data)
}

// PageData is embedded in every page's data.
type PageData struct {
	Title       string
	User        *UserData
	CurrentPath string
}

// UserData is the signed-in user shown in the nav bar.
type UserData struct {
	Name string
}

// LoginPageData contains data for the login page.
type LoginPageData struct {
	PageData
}

// SearchPageData contains data for the search page.
type SearchPageData struct {
	PageData
	SearchTerm     string
	Results        []TrackData
	Slots          []SlotData
	AllowSelecting bool
}

// SlotData is one seed slot; Track is nil for an empty slot.
type SlotData struct {
	Index int
	Track *session.SeedTrack
}

// TrackData is a search result with the fields the select form posts back.
type TrackData struct {
	URI       string
	ID        string
	Name      string
	Artist    string
	ArtistRaw string
}

// PlaylistPageData contains data for the playlist preview.
type PlaylistPageData struct {
	PageData
	Tracks     []recommend.Track
	TracksJSON string
}

// ErrorPageData is rendered by the error page. Code is the short error code written to the log.
type ErrorPageData struct {
	PageData
	Heading string
	Message string
	Code    string
}

func slotData(slots session.SeedSlots) []SlotData {
	out := make([]SlotData, len(slots))
	for i, t := range slots {
		out[i] = SlotData{Index: i + 1, Track: t}
	}
	return out
}

func trackData(t spotify.Track) TrackData {
	st := session.NewSeedTrack(t.URI, t.ID, t.Name, t.Artists)
	return TrackData{
		URI:       st.URI,
		ID:        st.ID,
		Name:      st.Name,
		Artist:    st.Artist,
		ArtistRaw: st.ArtistRaw,
	}
}
