package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupUserTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&identity.User{})
	require.NoError(t, err)

	return db
}

func mustUser(t *testing.T, email string) *identity.User {
	t.Helper()
	user, err := identity.NewUser(email, "Test User", "secret123", identity.RoleUser)
	require.NoError(t, err)
	return user
}

func TestUserRepository_SaveAndFind(t *testing.T) {
	db := setupUserTestDB(t)
	repo := NewGormUserRepository(db)
	ctx := context.Background()

	user := mustUser(t, "alice@example.com")
	require.NoError(t, repo.Save(ctx, user))

	t.Run("finds by ID", func(t *testing.T) {
		found, err := repo.FindByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", found.Email)
		assert.True(t, found.IsActive)
	})

	t.Run("finds by email regardless of case", func(t *testing.T) {
		found, err := repo.FindByEmail(ctx, "  Alice@Example.COM ")
		require.NoError(t, err)
		assert.Equal(t, user.ID, found.ID)
	})

	t.Run("returns ErrNotFound for unknown email", func(t *testing.T) {
		_, err := repo.FindByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestUserRepository_FindInactiveSince(t *testing.T) {
	db := setupUserTestDB(t)
	repo := NewGormUserRepository(db)
	ctx := context.Background()
	cutoff := time.Now().Add(-30 * 24 * time.Hour)

	fresh := mustUser(t, "fresh@example.com")

	stale := mustUser(t, "stale@example.com")
	old := time.Now().Add(-45 * 24 * time.Hour)
	stale.LastLoginAt = &old

	neverLoggedIn := mustUser(t, "ghost@example.com")
	neverLoggedIn.LastLoginAt = nil
	neverLoggedIn.CreatedAt = time.Now().Add(-60 * 24 * time.Hour)

	for _, u := range []*identity.User{fresh, stale, neverLoggedIn} {
		require.NoError(t, repo.Save(ctx, u))
	}

	found, err := repo.FindInactiveSince(ctx, cutoff)
	require.NoError(t, err)
	require.Len(t, found, 2)

	emails := []string{found[0].Email, found[1].Email}
	assert.Contains(t, emails, "stale@example.com")
	assert.Contains(t, emails, "ghost@example.com")
}

func TestUserRepository_DeleteInactiveSince(t *testing.T) {
	db := setupUserTestDB(t)
	repo := NewGormUserRepository(db)
	ctx := context.Background()
	cutoff := time.Now().Add(-30 * 24 * time.Hour)

	// Deactivated long ago: should be purged
	purgeable := mustUser(t, "old@example.com")
	old := time.Now().Add(-45 * 24 * time.Hour)
	purgeable.LastLoginAt = &old
	purgeable.Deactivate()

	// Still active: must survive even though stale
	activeStale := mustUser(t, "stale@example.com")
	activeStale.LastLoginAt = &old

	for _, u := range []*identity.User{purgeable, activeStale} {
		require.NoError(t, repo.Save(ctx, u))
	}

	removed, err := repo.DeleteInactiveSince(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, err = repo.FindByEmail(ctx, "old@example.com")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = repo.FindByEmail(ctx, "stale@example.com")
	require.NoError(t, err)
}

func TestUserRepository_Delete(t *testing.T) {
	db := setupUserTestDB(t)
	repo := NewGormUserRepository(db)
	ctx := context.Background()

	user := mustUser(t, "alice@example.com")
	require.NoError(t, repo.Save(ctx, user))

	require.NoError(t, repo.Delete(ctx, user.ID))
	assert.ErrorIs(t, repo.Delete(ctx, uuid.New()), shared.ErrNotFound)
}
