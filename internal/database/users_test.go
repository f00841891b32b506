package database

import (
	"database/sql"
	"testing"
	"time"

	"github.com/shopit-io/shopit/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/mattn/go-sqlite3"
)

func newTestStore(t *testing.T) *SQLUserStore {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, RunMigrations(db, "sqlite"))
	return NewUserStore(db, "sqlite")
}

func testUser(email string) *models.User {
	return &models.User{
		Name:     "Test User",
		Email:    email,
		Password: "$2a$10$fakebcrypthashfakebcrypthashfakebcrypthashfakebcrypt",
		Avatar: models.Avatar{
			PublicID: "default_avatar",
			URL:      "/images/default_avatar.jpg",
		},
	}
}

func TestUserStore_CreateAndGet(t *testing.T) {
	store := newTestStore(t)

	user := testUser("alice@example.com")
	require.NoError(t, store.Create(user))
	assert.NotEmpty(t, user.ID)

	got, err := store.GetByEmail("alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "Test User", got.Name)
	assert.Equal(t, "default_avatar", got.Avatar.PublicID)
	assert.Empty(t, got.ResetPasswordToken)

	byID, err := store.GetByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, got.Email, byID.Email)
}

func TestUserStore_GetByEmail_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetByEmail("nobody@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserStore_DuplicateEmail(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Create(testUser("bob@example.com")))

	err := store.Create(testUser("bob@example.com"))
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestUserStore_SaveRoundTrip(t *testing.T) {
	store := newTestStore(t)

	user := testUser("carol@example.com")
	require.NoError(t, store.Create(user))

	user.Name = "Carol"
	user.ResetPasswordToken = "abc123hash"
	user.ResetPasswordExpires = time.Now().Add(30 * time.Minute)
	require.NoError(t, store.Save(user))

	got, err := store.GetByEmail("carol@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Carol", got.Name)
	assert.Equal(t, "abc123hash", got.ResetPasswordToken)
	assert.True(t, got.HasActiveReset(time.Now()))

	// Clearing the reset fields persists as NULL.
	got.ResetPasswordToken = ""
	got.ResetPasswordExpires = time.Time{}
	require.NoError(t, store.Save(got))

	cleared, err := store.GetByEmail("carol@example.com")
	require.NoError(t, err)
	assert.Empty(t, cleared.ResetPasswordToken)
	assert.False(t, cleared.HasActiveReset(time.Now()))
}

func TestUserStore_SaveUnknownUser(t *testing.T) {
	store := newTestStore(t)

	user := testUser("ghost@example.com")
	user.ID = "no-such-id"
	assert.ErrorIs(t, store.Save(user), ErrUserNotFound)
}

func TestUserStore_GetByResetTokenHash(t *testing.T) {
	store := newTestStore(t)

	user := testUser("dave@example.com")
	require.NoError(t, store.Create(user))

	user.ResetPasswordToken = "tokenhash1"
	user.ResetPasswordExpires = time.Now().Add(30 * time.Minute)
	require.NoError(t, store.Save(user))

	got, err := store.GetByResetTokenHash("tokenhash1", time.Now())
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	t.Run("expired token does not match", func(t *testing.T) {
		user.ResetPasswordExpires = time.Now().Add(-time.Minute)
		require.NoError(t, store.Save(user))

		_, err := store.GetByResetTokenHash("tokenhash1", time.Now())
		assert.ErrorIs(t, err, ErrNoActiveReset)
	})

	t.Run("second token replaces the first", func(t *testing.T) {
		user.ResetPasswordToken = "tokenhash2"
		user.ResetPasswordExpires = time.Now().Add(30 * time.Minute)
		require.NoError(t, store.Save(user))

		_, err := store.GetByResetTokenHash("tokenhash1", time.Now())
		assert.ErrorIs(t, err, ErrNoActiveReset)

		got, err := store.GetByResetTokenHash("tokenhash2", time.Now())
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
	})
}
