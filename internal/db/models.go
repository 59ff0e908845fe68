package db

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Credential is a user's provider identity and the OAuth tokens issued for it.
type Credential struct {
	ID             uuid.UUID
	ProviderUserID string
	Email          string
	DisplayName    string
	AccessToken    string
	RefreshToken   string
	TokenScope     string
	TokenExpires   time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// String omits token values.
func (c *Credential) String() string {
	return fmt.Sprintf("Credential{id=%s provider_user_id=%s expires=%s}",
		c.ID, c.ProviderUserID, c.TokenExpires.UTC().Format(time.RFC3339))
}

// LogValue omits token values.
func (c *Credential) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("id", c.ID.String()),
		slog.String("provider_user_id", c.ProviderUserID),
		slog.Time("token_expires", c.TokenExpires),
	)
}

// TokenUpdate is the set of token fields rewritten by a refresh.
type TokenUpdate struct {
	AccessToken  string
	RefreshToken string
	TokenScope   string
	TokenExpires time.Time
}
