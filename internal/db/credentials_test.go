package db

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestDB connects to MIXTAPE_TEST_DATABASE_URL, applies the schema and
// empties the credentials table. Tests are skipped when the variable is unset.
func openTestDB(t *testing.T) *DB {
	t.Helper()

	url := os.Getenv("MIXTAPE_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("MIXTAPE_TEST_DATABASE_URL not set")
	}

	_, err := Migrate(url, Up)
	require.NoError(t, err)

	ctx := context.Background()
	database, err := New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(database.Close)

	_, err = database.pool.Exec(ctx, "TRUNCATE credentials")
	require.NoError(t, err)
	return database
}

func newCredential(providerID string) *Credential {
	return &Credential{
		ProviderUserID: providerID,
		Email:          providerID + "@example.com",
		DisplayName:    "Display " + providerID,
		AccessToken:    "access",
		RefreshToken:   "refresh",
		TokenScope:     "playlist-modify-public",
		TokenExpires:   time.Date(2020, 1, 1, 1, 0, 0, 0, time.UTC),
	}
}

func TestCredentialRepository_UpsertAndGet(t *testing.T) {
	database := openTestDB(t)
	repo := database.Credentials()
	ctx := context.Background()

	c := newCredential("user-1")
	require.NoError(t, repo.Upsert(ctx, c))
	require.NotEqual(t, uuid.Nil, c.ID)
	assert.False(t, c.CreatedAt.IsZero())

	got, err := repo.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.ProviderUserID)
	assert.Equal(t, "access", got.AccessToken)
	assert.True(t, got.TokenExpires.Equal(c.TokenExpires))
}

func TestCredentialRepository_UpsertReauthKeepsRow(t *testing.T) {
	database := openTestDB(t)
	repo := database.Credentials()
	ctx := context.Background()

	first := newCredential("user-2")
	require.NoError(t, repo.Upsert(ctx, first))

	again := newCredential("user-2")
	again.AccessToken = "access-2"
	again.DisplayName = "Renamed"
	require.NoError(t, repo.Upsert(ctx, again))

	assert.Equal(t, first.ID, again.ID, "re-auth must update the existing row")

	got, err := repo.GetByProviderUserID(ctx, "user-2")
	require.NoError(t, err)
	assert.Equal(t, "access-2", got.AccessToken)
	assert.Equal(t, "Renamed", got.DisplayName)
}

func TestCredentialRepository_UpdateToken(t *testing.T) {
	database := openTestDB(t)
	repo := database.Credentials()
	ctx := context.Background()

	c := newCredential("user-3")
	require.NoError(t, repo.Upsert(ctx, c))

	expires := time.Date(2020, 1, 1, 3, 0, 0, 0, time.UTC)
	updated, err := repo.UpdateToken(ctx, c.ID, TokenUpdate{
		AccessToken:  "access_new",
		RefreshToken: "refresh_new",
		TokenScope:   "scope_new",
		TokenExpires: expires,
	})
	require.NoError(t, err)
	assert.Equal(t, "access_new", updated.AccessToken)
	assert.Equal(t, "refresh_new", updated.RefreshToken)
	assert.Equal(t, "scope_new", updated.TokenScope)
	assert.True(t, updated.TokenExpires.Equal(expires))
	assert.Equal(t, c.Email, updated.Email)
}

func TestCredentialRepository_NotFound(t *testing.T) {
	database := openTestDB(t)
	repo := database.Credentials()
	ctx := context.Background()

	_, err := repo.Get(ctx, uuid.New())
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = repo.UpdateToken(ctx, uuid.New(), TokenUpdate{TokenExpires: time.Now()})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestCredential_StringOmitsTokens(t *testing.T) {
	c := newCredential("user-4")
	c.AccessToken = "secret-access"
	c.RefreshToken = "secret-refresh"

	s := c.String()
	if strings.Contains(s, "secret") {
		t.Errorf("String() leaked a token: %q", s)
	}
	if !strings.Contains(s, "user-4") {
		t.Errorf("String() = %q, want provider user id", s)
	}
}

func TestMigrateURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"postgres://u:p@localhost:5432/db?sslmode=disable", "pgx5://u:p@localhost:5432/db?sslmode=disable"},
		{"postgresql://localhost/db", "pgx5://localhost/db"},
		{"pgx5://localhost/db", "pgx5://localhost/db"},
	}
	for _, tt := range tests {
		if got := migrateURL(tt.in); got != tt.want {
			t.Errorf("migrateURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
