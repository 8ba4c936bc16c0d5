package storage

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/user-service/internal/lib/query"
	"github.com/magabrotheeeer/user-service/internal/models"
)

func TestStorage_CreateAndGetUser(t *testing.T) {
	s := setupTestDatabase(t)
	ctx := context.Background()
	factory := NewTestDataFactory(s)

	created := factory.CreateUser(t, "alice", "alice@example.com", models.RoleUser)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "alice", created.Name)
	assert.Nil(t, created.PasswordChangedAt)
	assert.Equal(t, 0, created.Version)

	byEmail, err := s.GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)
	assert.Equal(t, "$2a$10$hashedpassword", byEmail.PasswordHash)

	byID, err := s.GetUserByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", byID.Email)

	_, err = s.CreateUser(ctx, models.NewUser{Name: "other", Email: "alice@example.com", PasswordHash: "h", Role: models.RoleUser})
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestStorage_GetUserByID_NotFound(t *testing.T) {
	s := setupTestDatabase(t)
	ctx := context.Background()

	_, err := s.GetUserByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = s.GetUserByID(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = s.GetUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestStorage_ResetTokenLifecycle(t *testing.T) {
	s := setupTestDatabase(t)
	ctx := context.Background()
	u := NewTestDataFactory(s).CreateUser(t, "bob", "bob@example.com", models.RoleUser)

	now := time.Now()
	require.NoError(t, s.SetPasswordResetToken(ctx, u.ID, "hash-1", now.Add(10*time.Minute)))

	found, err := s.GetUserByResetToken(ctx, "hash-1", now)
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)

	_, err = s.GetUserByResetToken(ctx, "hash-1", now.Add(11*time.Minute))
	assert.ErrorIs(t, err, ErrUserNotFound, "expired token must not match")

	_, err = s.GetUserByResetToken(ctx, "other", now)
	assert.ErrorIs(t, err, ErrUserNotFound)

	changedAt := now.Add(-time.Second)
	require.NoError(t, s.UpdatePassword(ctx, u.ID, "new-hash", changedAt))

	after, err := s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", after.PasswordHash)
	assert.Nil(t, after.PasswordResetToken)
	assert.Nil(t, after.PasswordResetExpires)
	require.NotNil(t, after.PasswordChangedAt)
	assert.WithinDuration(t, changedAt, *after.PasswordChangedAt, time.Millisecond)

	NewTestVerification(s).VerifyVersion(t, u.ID, 2)
}

func TestStorage_UpdateProfile(t *testing.T) {
	s := setupTestDatabase(t)
	ctx := context.Background()
	factory := NewTestDataFactory(s)
	u := factory.CreateUser(t, "carol", "carol@example.com", models.RoleUser)
	factory.CreateUser(t, "dave", "dave@example.com", models.RoleUser)

	name := "caroline"
	updated, err := s.UpdateProfile(ctx, u.ID, models.ProfileUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "caroline", updated.Name)
	assert.Equal(t, "carol@example.com", updated.Email)
	assert.Equal(t, 1, updated.Version)

	taken := "dave@example.com"
	_, err = s.UpdateProfile(ctx, u.ID, models.ProfileUpdate{Email: &taken})
	assert.ErrorIs(t, err, ErrUserExists)

	_, err = s.UpdateProfile(ctx, uuid.NewString(), models.ProfileUpdate{Name: &name})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestStorage_SoftDelete(t *testing.T) {
	s := setupTestDatabase(t)
	ctx := context.Background()
	u := NewTestDataFactory(s).CreateUser(t, "erin", "erin@example.com", models.RoleUser)

	deleted, err := s.SoftDeleteUser(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, deleted.IsDeleted)

	NewTestVerification(s).VerifyRowRetained(t, u.ID)

	_, err = s.GetUserByID(ctx, u.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = s.GetUserByEmail(ctx, "erin@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = s.SoftDeleteUser(ctx, u.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)

	rows, err := s.ListUsers(ctx, query.New(models.UserSchema, nil).LimitFields().Paginate().Build())
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestStorage_ListUsers(t *testing.T) {
	s := setupTestDatabase(t)
	ctx := context.Background()
	factory := NewTestDataFactory(s)
	for _, name := range []string{"u1", "u2", "u3", "u4", "u5", "u6", "u7"} {
		factory.CreateUser(t, name, name+"@example.com", models.RoleUser)
	}
	factory.CreateUser(t, "boss", "boss@example.com", models.RoleAdmin)

	t.Run("insertion order and pagination", func(t *testing.T) {
		params := url.Values{"page": {"2"}, "limit": {"3"}}
		rows, err := s.ListUsers(ctx, query.New(models.UserSchema, params).Filter().Sort().LimitFields().Paginate().Build())
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, "u4", rows[0]["name"])
		assert.Equal(t, "u6", rows[2]["name"])
		assert.NotContains(t, rows[0], "version")
		assert.NotContains(t, rows[0], "password_hash")
	})

	t.Run("filter and projection", func(t *testing.T) {
		params := url.Values{"role": {"admin"}, "fields": {"email"}}
		rows, err := s.ListUsers(ctx, query.New(models.UserSchema, params).Filter().Sort().LimitFields().Paginate().Build())
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "boss@example.com", rows[0]["email"])
		assert.Contains(t, rows[0], "id")
		assert.NotContains(t, rows[0], "name")
	})

	t.Run("sort descending", func(t *testing.T) {
		params := url.Values{"sort": {"-name"}, "limit": {"1"}}
		rows, err := s.ListUsers(ctx, query.New(models.UserSchema, params).Filter().Sort().LimitFields().Paginate().Build())
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "u7", rows[0]["name"])
	})

	t.Run("malformed typed value fails in the database", func(t *testing.T) {
		params := url.Values{"createdAt[gte]": {"yesterday-ish"}}
		_, err := s.ListUsers(ctx, query.New(models.UserSchema, params).Filter().Build())
		assert.Error(t, err)
	})
}
