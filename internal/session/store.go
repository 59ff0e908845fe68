// Package session carries per-visitor state in a signed cookie and resolves the
// signed-in user's credential for every authenticated request.
package session

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
)

const (
	keyUserID      = "id"
	keyDisplayName = "display_name"
	keyState       = "oauth_state"
	keySeeds       = "seed_tracks"

	cookieMaxAge = 30 * 24 * 60 * 60
)

// Store loads and saves session cookies.
type Store struct {
	name  string
	store sessions.Store
}

// NewCookieStore creates a Store backed by a signed cookie named name.
func NewCookieStore(name string, secure bool, keyPairs ...[]byte) *Store {
	cs := sessions.NewCookieStore(keyPairs...)
	cs.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   cookieMaxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &Store{name: name, store: cs}
}

// Load returns the session for r. A cookie that fails to decode yields an empty session.
func (s *Store) Load(r *http.Request) (*Context, error) {
	sess, err := s.store.Get(r, s.name)
	if sess == nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	return NewContext(sess), nil
}

// Save writes the session cookie.
func (s *Store) Save(r *http.Request, w http.ResponseWriter, c *Context) error {
	if err := s.store.Save(r, w, c.sess); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// Context is the mutable session of one request.
type Context struct {
	sess *sessions.Session
}

// NewContext wraps a gorilla session.
func NewContext(sess *sessions.Session) *Context {
	if sess.Values == nil {
		sess.Values = make(map[interface{}]interface{})
	}
	return &Context{sess: sess}
}

func (c *Context) str(key string) string {
	v, _ := c.sess.Values[key].(string)
	return v
}

// UserID returns the stored credential ID, if any.
func (c *Context) UserID() (string, bool) {
	id := c.str(keyUserID)
	return id, id != ""
}

// DisplayName returns the signed-in user's display name.
func (c *Context) DisplayName() string {
	return c.str(keyDisplayName)
}

// SetUser records the signed-in user.
func (c *Context) SetUser(id uuid.UUID, displayName string) {
	c.sess.Values[keyUserID] = id.String()
	c.sess.Values[keyDisplayName] = displayName
}

// State returns the pending OAuth state.
func (c *Context) State() string {
	return c.str(keyState)
}

// SetState stores the OAuth state sent with the login redirect.
func (c *Context) SetState(state string) {
	c.sess.Values[keyState] = state
}

// ClearState forgets the OAuth state once it has been checked.
func (c *Context) ClearState() {
	delete(c.sess.Values, keyState)
}

// Seeds returns the seed slots; a session without any yields three empty slots.
func (c *Context) Seeds() (SeedSlots, error) {
	var slots SeedSlots
	raw := c.str(keySeeds)
	if raw == "" {
		return slots, nil
	}
	if err := json.Unmarshal([]byte(raw), &slots); err != nil {
		return SeedSlots{}, fmt.Errorf("decoding seed slots: %w", err)
	}
	return slots, nil
}

// SetSeeds stores the seed slots.
func (c *Context) SetSeeds(slots SeedSlots) error {
	data, err := json.Marshal(slots)
	if err != nil {
		return fmt.Errorf("encoding seed slots: %w", err)
	}
	c.sess.Values[keySeeds] = string(data)
	return nil
}

// Clear removes every value from the session.
func (c *Context) Clear() {
	for k := range c.sess.Values {
		delete(c.sess.Values, k)
	}
}
