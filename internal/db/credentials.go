package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const credentialColumns = `id, provider_user_id, email, display_name, access_token, refresh_token,
		token_scope, token_expires, created_at, updated_at`

// CredentialRepository handles credential database operations.
type CredentialRepository struct {
	pool *pgxpool.Pool
}

func scanCredential(row pgx.Row) (*Credential, error) {
	var c Credential
	err := row.Scan(
		&c.ID,
		&c.ProviderUserID,
		&c.Email,
		&c.DisplayName,
		&c.AccessToken,
		&c.RefreshToken,
		&c.TokenScope,
		&c.TokenExpires,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	c.TokenExpires = c.TokenExpires.UTC()
	return &c, nil
}

// Get retrieves a credential by its ID.
func (r *CredentialRepository) Get(ctx context.Context, id uuid.UUID) (*Credential, error) {
	query := `SELECT ` + credentialColumns + ` FROM credentials WHERE id = $1`
	c, err := scanCredential(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying credential: %w", err)
	}
	return c, nil
}

// GetByProviderUserID retrieves a credential by the provider's user ID.
func (r *CredentialRepository) GetByProviderUserID(ctx context.Context, providerUserID string) (*Credential, error) {
	query := `SELECT ` + credentialColumns + ` FROM credentials WHERE provider_user_id = $1`
	c, err := scanCredential(r.pool.QueryRow(ctx, query, providerUserID))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying credential by provider user: %w", err)
	}
	return c, nil
}

// Upsert inserts a credential or, when the provider user already has one, replaces its
// profile and token fields. The stored row (with its original ID) is written back into c.
func (r *CredentialRepository) Upsert(ctx context.Context, c *Credential) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	query := `
		INSERT INTO credentials (id, provider_user_id, email, display_name, access_token,
			refresh_token, token_scope, token_expires, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		ON CONFLICT (provider_user_id) DO UPDATE SET
			email = EXCLUDED.email,
			display_name = EXCLUDED.display_name,
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_scope = EXCLUDED.token_scope,
			token_expires = EXCLUDED.token_expires,
			updated_at = NOW()
		RETURNING ` + credentialColumns
	stored, err := scanCredential(r.pool.QueryRow(ctx, query,
		c.ID,
		c.ProviderUserID,
		c.Email,
		c.DisplayName,
		c.AccessToken,
		c.RefreshToken,
		c.TokenScope,
		c.TokenExpires.UTC(),
	))
	if err != nil {
		return fmt.Errorf("upserting credential: %w", err)
	}
	*c = *stored
	return nil
}

// UpdateToken rewrites the token fields of one credential in a single statement and
// returns the updated row.
func (r *CredentialRepository) UpdateToken(ctx context.Context, id uuid.UUID, u TokenUpdate) (*Credential, error) {
	query := `
		UPDATE credentials
		SET access_token = $2, refresh_token = $3, token_scope = $4, token_expires = $5,
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + credentialColumns
	c, err := scanCredential(r.pool.QueryRow(ctx, query,
		id,
		u.AccessToken,
		u.RefreshToken,
		u.TokenScope,
		u.TokenExpires.UTC(),
	))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("updating credential token: %w", err)
	}
	return c, nil
}
