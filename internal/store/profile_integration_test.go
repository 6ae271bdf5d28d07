//go:build integration

package store

import (
	"context"
	"errors"
	"testing"

	"github.com/civiclens/webclient/internal/db"
	"github.com/civiclens/webclient/types"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

func startProfilesDB(t *testing.T) *ProfileRepository {
	t.Helper()
	ctx := context.Background()

	pgC, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("civiclens"),
		postgres.WithUsername("civiclens"),
		postgres.WithPassword("civiclens"),
		postgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = pgC.Terminate(context.Background())
	})

	dsn, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	migrator, err := migrate.New("file://../db/migrations", dsn)
	require.NoError(t, err)
	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		t.Fatalf("migrate up: %v", err)
	}
	_, _ = migrator.Close()

	conn, err := db.OpenDSN(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return NewProfileRepository(conn)
}

func seedProfile(t *testing.T, repo *ProfileRepository, profile types.Profile) {
	t.Helper()
	const query = `
		INSERT INTO profiles (id, email, name, role, department)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''))
		ON CONFLICT (id) DO UPDATE
		SET email = EXCLUDED.email,
			name = EXCLUDED.name,
			role = EXCLUDED.role,
			department = EXCLUDED.department,
			updated_at = now()`
	_, err := repo.db.ExecContext(context.Background(), query,
		profile.ID, profile.Email, profile.Name, profile.Role, profile.Department)
	require.NoError(t, err)
}

func TestProfileRepository(t *testing.T) {
	ctx := context.Background()
	repo := startProfilesDB(t)

	_, err := repo.GetByID(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	profile := types.Profile{
		ID:    "user-1",
		Email: "asha@example.com",
		Name:  "Asha",
		Role:  "Head Authority",
	}
	seedProfile(t, repo, profile)

	got, err := repo.GetByID(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Asha", got.Name)
	assert.Equal(t, "Head Authority", got.Role)
	assert.Empty(t, got.Department)
	assert.False(t, got.CreatedAt.IsZero())

	profile.Department = "Road Maintenance"
	seedProfile(t, repo, profile)

	got, err = repo.GetByID(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Road Maintenance", got.Department)
}
