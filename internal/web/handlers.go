package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/justestif/mixtape-studio/internal/auth"
	"github.com/justestif/mixtape-studio/internal/db"
	"github.com/justestif/mixtape-studio/internal/logging"
	"github.com/justestif/mixtape-studio/internal/recommend"
	"github.com/justestif/mixtape-studio/internal/session"
	"github.com/justestif/mixtape-studio/internal/spotify"
)

const searchLimit = 8

// Authenticator runs the OAuth authorization-code flow.
type Authenticator interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.Grant, error)
}

// Resolver returns the signed-in user's credential with a usable access token.
type Resolver interface {
	Resolve(ctx context.Context, sc *session.Context) (*db.Credential, error)
}

// CredentialWriter persists credentials after login.
type CredentialWriter interface {
	Upsert(ctx context.Context, c *db.Credential) error
}

// Catalog is the part of the Spotify client used by handlers.
type Catalog interface {
	CurrentUser(ctx context.Context) (*spotify.Profile, error)
	Search(ctx context.Context, query string, limit int) ([]spotify.Track, error)
	SavePlaylist(ctx context.Context, userID, name string, uris []string) (string, error)
}

// CatalogFactory returns a Catalog acting with accessToken.
type CatalogFactory func(accessToken string) Catalog

// Recommender builds playlist previews.
type Recommender interface {
	Generate(ctx context.Context, seeds []session.SeedTrack, accessToken string) ([]recommend.Track, error)
}

// Handlers contains HTTP handlers for the web application.
type Handlers struct {
	auth        Authenticator
	sessions    *session.Store
	resolver    Resolver
	credentials CredentialWriter
	catalog     CatalogFactory
	recommender Recommender
	templates   *Templates
	health      func(context.Context) error
}

// Home shows the login page, or sends signed-in users to search (GET /).
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	sc, err := h.sessions.Load(r)
	if err != nil {
		h.fail(w, r, nil, err)
		return
	}
	if _, ok := sc.UserID(); ok {
		http.Redirect(w, r, "/search", http.StatusFound)
		return
	}

	h.render(w, r, http.StatusOK, "login", LoginPageData{
		PageData: PageData{Title: "Mixtape Studio", CurrentPath: r.URL.Path},
	})
}

// Login resets the session and redirects to the Spotify consent page (GET /login).
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	sc, err := h.sessions.Load(r)
	if err != nil {
		h.fail(w, r, nil, err)
		return
	}

	state, err := auth.GenerateState()
	if err != nil {
		h.fail(w, r, sc, err)
		return
	}

	sc.Clear()
	sc.SetState(state)
	if err := h.sessions.Save(r, w, sc); err != nil {
		h.fail(w, r, sc, err)
		return
	}

	http.Redirect(w, r, h.auth.AuthURL(state), http.StatusFound)
}

// Callback completes the OAuth flow (GET /oauth-callback).
func (h *Handlers) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sc, err := h.sessions.Load(r)
	if err != nil {
		h.fail(w, r, nil, err)
		return
	}

	q := r.URL.Query()
	if q.Get("state") == "" || q.Get("state") != sc.State() {
		h.fail(w, r, sc, auth.ErrStateMismatch)
		return
	}
	sc.ClearState()

	if errMsg := q.Get("error"); errMsg != "" {
		h.fail(w, r, sc, &auth.ProviderError{Err: fmt.Errorf("authorization denied: %s", errMsg)})
		return
	}

	grant, err := h.auth.Exchange(ctx, q.Get("code"))
	if err != nil {
		h.fail(w, r, sc, err)
		return
	}

	profile, err := h.catalog(grant.AccessToken).CurrentUser(ctx)
	if err != nil {
		h.fail(w, r, sc, err)
		return
	}

	cred := &db.Credential{
		ProviderUserID: profile.ID,
		Email:          profile.Email,
		DisplayName:    profile.DisplayName,
		AccessToken:    grant.AccessToken,
		RefreshToken:   grant.RefreshToken,
		TokenScope:     grant.Scope,
		TokenExpires:   grant.Expires,
	}
	if err := h.credentials.Upsert(ctx, cred); err != nil {
		h.fail(w, r, sc, err)
		return
	}

	sc.SetUser(cred.ID, cred.DisplayName)
	if err := h.sessions.Save(r, w, sc); err != nil {
		h.fail(w, r, sc, err)
		return
	}

	logging.FromContext(ctx).Info("user signed in", "credential_id", cred.ID)
	http.Redirect(w, r, "/search", http.StatusFound)
}

// Logout clears the session (GET /logout).
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	sc, err := h.sessions.Load(r)
	if err != nil {
		h.fail(w, r, nil, err)
		return
	}
	sc.Clear()
	if err := h.sessions.Save(r, w, sc); err != nil {
		h.fail(w, r, sc, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

// Search shows search results and the seed slots (GET /search).
func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	r, sc, cred, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	slots, err := sc.Seeds()
	if err != nil {
		h.fail(w, r, sc, err)
		return
	}

	data := SearchPageData{
		PageData:       h.pageData(r, "Search", sc),
		SearchTerm:     strings.TrimSpace(r.URL.Query().Get("search_term")),
		Slots:          slotData(slots),
		AllowSelecting: !slots.Full(),
	}

	if data.SearchTerm != "" {
		tracks, err := h.catalog(cred.AccessToken).Search(r.Context(), data.SearchTerm, searchLimit)
		if err != nil {
			h.fail(w, r, sc, err)
			return
		}
		for _, t := range tracks {
			data.Results = append(data.Results, trackData(t))
		}
	}

	if err := h.sessions.Save(r, w, sc); err != nil {
		h.fail(w, r, sc, err)
		return
	}
	h.render(w, r, http.StatusOK, "search", data)
}

// Select puts a track into the first empty seed slot (POST /search/select).
func (h *Handlers) Select(w http.ResponseWriter, r *http.Request) {
	r, sc, _, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	slots, err := sc.Seeds()
	if err != nil {
		h.fail(w, r, sc, err)
		return
	}

	var artists []string
	if raw := r.PostFormValue("artist_raw"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &artists); err != nil {
			h.badRequest(w, r, sc, "invalid artist list")
			return
		}
	}
	id := r.PostFormValue("id")
	if id == "" {
		h.badRequest(w, r, sc, "missing track id")
		return
	}
	track := session.NewSeedTrack(r.PostFormValue("uri"), id, r.PostFormValue("name"), artists)

	if err := slots.Select(track); err != nil {
		logging.FromContext(r.Context()).Debug("seed slots full", "track_id", id)
	}
	h.saveSeedsAndReturn(w, r, sc, slots)
}

// Remove empties a seed slot; the form index is one-based (POST /search/remove).
func (h *Handlers) Remove(w http.ResponseWriter, r *http.Request) {
	r, sc, _, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	slots, err := sc.Seeds()
	if err != nil {
		h.fail(w, r, sc, err)
		return
	}

	idx, err := strconv.Atoi(r.PostFormValue("index"))
	if err != nil {
		h.badRequest(w, r, sc, "invalid slot index")
		return
	}
	if err := slots.Remove(idx - 1); err != nil {
		h.badRequest(w, r, sc, "invalid slot index")
		return
	}
	h.saveSeedsAndReturn(w, r, sc, slots)
}

// Preview generates the playlist preview (POST /playlist/preview).
func (h *Handlers) Preview(w http.ResponseWriter, r *http.Request) {
	r, sc, cred, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	slots, err := sc.Seeds()
	if err != nil {
		h.fail(w, r, sc, err)
		return
	}
	seeds := slots.Populated()
	if len(seeds) == 0 {
		http.Redirect(w, r, "/search", http.StatusFound)
		return
	}

	tracks, err := h.recommender.Generate(r.Context(), seeds, cred.AccessToken)
	if err != nil {
		h.fail(w, r, sc, err)
		return
	}

	payload := make([]savedTrack, len(tracks))
	for i, t := range tracks {
		payload[i] = savedTrack{URI: t.URI}
	}
	tracksJSON, err := json.Marshal(payload)
	if err != nil {
		h.fail(w, r, sc, err)
		return
	}

	if err := h.sessions.Save(r, w, sc); err != nil {
		h.fail(w, r, sc, err)
		return
	}
	h.render(w, r, http.StatusOK, "playlist", PlaylistPageData{
		PageData:   h.pageData(r, "Playlist preview", sc),
		Tracks:     tracks,
		TracksJSON: string(tracksJSON),
	})
}

// Save creates the previewed playlist and redirects to it (POST /playlist/save).
func (h *Handlers) Save(w http.ResponseWriter, r *http.Request) {
	r, sc, cred, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	var tracks []savedTrack
	if err := json.Unmarshal([]byte(r.PostFormValue("playlist_songs")), &tracks); err != nil {
		h.badRequest(w, r, sc, "invalid playlist")
		return
	}
	name := strings.TrimSpace(r.PostFormValue("playlist_name"))
	if name == "" {
		name = "Mixtape"
	}

	uris := make([]string, 0, len(tracks))
	for _, t := range tracks {
		if t.URI != "" {
			uris = append(uris, t.URI)
		}
	}

	url, err := h.catalog(cred.AccessToken).SavePlaylist(r.Context(), cred.ProviderUserID, name, uris)
	if err != nil {
		h.fail(w, r, sc, err)
		return
	}

	logging.FromContext(r.Context()).Info("playlist saved", "credential_id", cred.ID, "tracks", len(uris))
	http.Redirect(w, r, url, http.StatusFound)
}

// Health reports whether the database is reachable (GET /health).
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health(r.Context()); err != nil {
			logging.FromContext(r.Context()).Error("health check failed", "err", err)
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("success"))
}

// NotFound renders the 404 page.
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	code := errorCode()
	logging.FromContext(r.Context()).Debug("unknown page requested", "path", r.URL.Path, "error_code", code)
	h.render(w, r, http.StatusNotFound, "error", ErrorPageData{
		PageData: PageData{Title: "Not found", CurrentPath: r.URL.Path},
		Heading:  "Page not found",
		Code:     code,
	})
}

// authenticate loads the session and resolves its user, writing the failure response itself.
// The returned request carries a logger tagged with the user.
func (h *Handlers) authenticate(w http.ResponseWriter, r *http.Request) (*http.Request, *session.Context, *db.Credential, bool) {
	sc, err := h.sessions.Load(r)
	if err != nil {
		h.fail(w, r, nil, err)
		return r, nil, nil, false
	}

	cred, err := h.resolver.Resolve(r.Context(), sc)
	if err != nil {
		h.fail(w, r, sc, err)
		return r, nil, nil, false
	}

	ctx := logging.WithContext(r.Context(), logging.FromContext(r.Context()).With("user_id", cred.ID))
	return r.WithContext(ctx), sc, cred, true
}

func (h *Handlers) saveSeedsAndReturn(w http.ResponseWriter, r *http.Request, sc *session.Context, slots session.SeedSlots) {
	if err := sc.SetSeeds(slots); err != nil {
		h.fail(w, r, sc, err)
		return
	}
	if err := h.sessions.Save(r, w, sc); err != nil {
		h.fail(w, r, sc, err)
		return
	}
	http.Redirect(w, r, backTo(r), http.StatusFound)
}

// backTo returns the local page the request came from, defaulting to /search.
func backTo(r *http.Request) string {
	ref := r.Referer()
	if ref == "" {
		return "/search"
	}
	if i := strings.Index(ref, "://"); i >= 0 {
		rest := ref[i+3:]
		host, path, _ := strings.Cut(rest, "/")
		if host != r.Host {
			return "/search"
		}
		return "/" + path
	}
	if strings.HasPrefix(ref, "/") && !strings.HasPrefix(ref, "//") {
		return ref
	}
	return "/search"
}

func (h *Handlers) pageData(r *http.Request, title string, sc *session.Context) PageData {
	return PageData{
		Title:       title,
		CurrentPath: r.URL.Path,
		User:        &UserData{Name: sc.DisplayName()},
	}
}

func (h *Handlers) render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.templates.Render(w, page, data); err != nil {
		logging.FromContext(r.Context()).Error("rendering template", "page", page, "err", err)
	}
}

type savedTrack struct {
	URI string `json:"uri"`
}
