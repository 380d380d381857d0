package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"user-service/internal/domain"
	"user-service/internal/repository"
)

func newTestRepo(t *testing.T) repository.UserRepository {
	t.Helper()
	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "users.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := NewUserRepository(db)
	require.NoError(t, repo.Init(context.Background()))
	return repo
}

func strPtr(s string) *string { return &s }

func TestUserRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	user := &domain.User{
		Name:         "Alice",
		Email:        "alice@example.com",
		PasswordHash: "hash",
		Address:      "1 Main St",
		Phone:        "555",
		CreatedAt:    created,
	}
	id, err := repo.Create(ctx, user)
	require.NoError(t, err)
	require.NotEmpty(t, id)
	assert.Equal(t, id, user.ID)

	got, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.Name)
	assert.Equal(t, "alice@example.com", got.Email)
	assert.Equal(t, "hash", got.PasswordHash)
	assert.Equal(t, "1 Main St", got.Address)
	assert.Equal(t, "555", got.Phone)
	assert.True(t, created.Equal(got.CreatedAt), "created_at %v", got.CreatedAt)

	byEmail, err := repo.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, id, byEmail.ID)
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	_, err := repo.Create(ctx, &domain.User{Email: "dup@example.com", PasswordHash: "h"})
	require.NoError(t, err)

	_, err = repo.Create(ctx, &domain.User{Email: "dup@example.com", PasswordHash: "h"})
	require.ErrorIs(t, err, repository.ErrDuplicateEmail)
}

func TestUserRepository_Lookups(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	t.Run("malformed id", func(t *testing.T) {
		_, err := repo.GetByID(ctx, "not-a-uuid")
		assert.ErrorIs(t, err, repository.ErrInvalidID)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := repo.GetByID(ctx, "6f1c2b1e-2f7a-4a8e-9a4b-0d3c5b7e9f10")
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := repo.GetByEmail(ctx, "ghost@example.com")
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}

func TestUserRepository_List(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	users, err := repo.List(ctx)
	require.NoError(t, err)
	assert.NotNil(t, users)
	assert.Empty(t, users)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, email := range []string{"a@example.com", "b@example.com"} {
		_, err := repo.Create(ctx, &domain.User{Email: email, PasswordHash: "h", CreatedAt: base.Add(time.Duration(i) * time.Minute)})
		require.NoError(t, err)
	}

	users, err = repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "a@example.com", users[0].Email)
	assert.Equal(t, "b@example.com", users[1].Email)
}

func TestUserRepository_Update(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	id, err := repo.Create(ctx, &domain.User{Name: "Old", Email: "u@example.com", PasswordHash: "h", Phone: "1"})
	require.NoError(t, err)
	_, err = repo.Create(ctx, &domain.User{Email: "taken@example.com", PasswordHash: "h"})
	require.NoError(t, err)

	t.Run("partial", func(t *testing.T) {
		got, err := repo.Update(ctx, id, domain.UserPatch{Name: strPtr("New")})
		require.NoError(t, err)
		assert.Equal(t, "New", got.Name)
		assert.Equal(t, "u@example.com", got.Email)
		assert.Equal(t, "1", got.Phone)
		assert.Equal(t, "h", got.PasswordHash)
	})

	t.Run("empty patch returns current", func(t *testing.T) {
		got, err := repo.Update(ctx, id, domain.UserPatch{})
		require.NoError(t, err)
		assert.Equal(t, "New", got.Name)
	})

	t.Run("email collision", func(t *testing.T) {
		_, err := repo.Update(ctx, id, domain.UserPatch{Email: strPtr("taken@example.com")})
		assert.ErrorIs(t, err, repository.ErrDuplicateEmail)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := repo.Update(ctx, "6f1c2b1e-2f7a-4a8e-9a4b-0d3c5b7e9f10", domain.UserPatch{Name: strPtr("x")})
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}

func TestUserRepository_Delete(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	id, err := repo.Create(ctx, &domain.User{Email: "gone@example.com", PasswordHash: "h"})
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, id))
	_, err = repo.GetByID(ctx, id)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, id), repository.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "bogus"), repository.ErrInvalidID)
}
