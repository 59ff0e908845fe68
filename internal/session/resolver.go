package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/justestif/mixtape-studio/internal/db"
	"github.com/justestif/mixtape-studio/internal/logging"
)

// RefreshWindow is how close to expiry a token may get before it is refreshed.
const RefreshWindow = 5 * time.Minute

var (
	// ErrNoSession is returned when the session carries no user.
	ErrNoSession = errors.New("no user in session")

	// ErrNoSuchUser is returned when the session names a credential that does not exist.
	ErrNoSuchUser = errors.New("session user has no credential")
)

// CredentialStore reads credentials.
type CredentialStore interface {
	Get(ctx context.Context, id uuid.UUID) (*db.Credential, error)
}

// Refresher renews a credential's access token.
type Refresher interface {
	Refresh(ctx context.Context, cred *db.Credential) (*db.Credential, error)
}

// Resolver turns a session into a credential with a usable access token.
type Resolver struct {
	store     CredentialStore
	refresher Refresher
	now       func() time.Time
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithClock overrides the time source used for the expiry check.
func WithClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) {
		r.now = now
	}
}

// NewResolver creates a Resolver.
func NewResolver(store CredentialStore, refresher Refresher, opts ...ResolverOption) *Resolver {
	r := &Resolver{store: store, refresher: refresher, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the session user's credential, refreshing the access token first
// when it expires within RefreshWindow. A session naming a missing credential is
// cleared. Refresh failures are returned unchanged and leave the session intact.
func (r *Resolver) Resolve(ctx context.Context, sc *Context) (*db.Credential, error) {
	rawID, ok := sc.UserID()
	if !ok {
		return nil, ErrNoSession
	}

	id, err := uuid.Parse(rawID)
	if err != nil {
		sc.Clear()
		return nil, ErrNoSuchUser
	}

	cred, err := r.store.Get(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		sc.Clear()
		return nil, ErrNoSuchUser
	}
	if err != nil {
		return nil, fmt.Errorf("loading credential: %w", err)
	}

	if !cred.TokenExpires.Before(r.now().Add(RefreshWindow)) {
		return cred, nil
	}

	logging.FromContext(ctx).Debug("access token near expiry", "credential_id", cred.ID, "expires", cred.TokenExpires)
	return r.refresher.Refresh(ctx, cred)
}
