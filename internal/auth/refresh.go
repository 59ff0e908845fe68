package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/justestif/mixtape-studio/internal/db"
	"github.com/justestif/mixtape-studio/internal/logging"
)

// TokenWriter persists refreshed tokens.
type TokenWriter interface {
	UpdateToken(ctx context.Context, id uuid.UUID, u db.TokenUpdate) (*db.Credential, error)
}

// Refresher exchanges a credential's refresh token for a new access token and
// writes the result back to the store.
type Refresher struct {
	auth  *Authenticator
	store TokenWriter
}

// NewRefresher creates a Refresher.
func NewRefresher(a *Authenticator, store TokenWriter) *Refresher {
	return &Refresher{auth: a, store: store}
}

// Refresh renews cred's access token. The store is written exactly once on success
// and not at all on failure. Provider failures are returned as *ProviderError.
func (r *Refresher) Refresh(ctx context.Context, cred *db.Credential) (*db.Credential, error) {
	if cred.RefreshToken == "" {
		return nil, ErrMissingRefreshToken
	}

	g, err := r.auth.refresh(ctx, cred.RefreshToken, cred.TokenScope)
	if err != nil {
		return nil, err
	}

	updated, err := r.store.UpdateToken(ctx, cred.ID, db.TokenUpdate{
		AccessToken:  g.AccessToken,
		RefreshToken: g.RefreshToken,
		TokenScope:   g.Scope,
		TokenExpires: g.Expires,
	})
	if err != nil {
		return nil, fmt.Errorf("saving refreshed token: %w", err)
	}

	logging.FromContext(ctx).Debug("refreshed access token",
		"credential_id", cred.ID,
		"expires", updated.TokenExpires,
	)
	return updated, nil
}
