package cache

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shortlink-be/internal/entities"
	"shortlink-be/internal/repository"
	"shortlink-be/internal/repository/inmemory"
)

func newCachedLinks(t *testing.T) (repository.LinkRepository, *inmemory.LinkStorage, Cache) {
	t.Helper()
	c, _ := newTestCache(t)
	store := inmemory.NewLinkStorage()
	return NewLinkRepository(store, c, zerolog.Nop()), store, c
}

func TestLinkRepository_FindByCodeKeepsPasswordHash(t *testing.T) {
	ctx := context.Background()
	repo, _, c := newCachedLinks(t)

	expires := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	link := &entities.Link{
		Code:        "a1b2c3",
		Destination: "https://example.com",
		Password:    entities.PasswordPolicy{Enabled: true, Hash: "$2a$10$hash"},
		ExpiresAt:   &expires,
	}
	require.NoError(t, repo.Create(ctx, link))

	exists, err := c.Exists(ctx, linkKey("a1b2c3"))
	require.NoError(t, err)
	assert.True(t, exists)

	got, err := repo.FindByCode(ctx, "a1b2c3")
	require.NoError(t, err)
	assert.Equal(t, link.ID, got.ID)
	assert.True(t, got.Password.Enabled)
	assert.Equal(t, "$2a$10$hash", got.Password.Hash)
	require.NotNil(t, got.ExpiresAt)
	assert.True(t, expires.Equal(*got.ExpiresAt))
}

func TestLinkRepository_UpdateEvicts(t *testing.T) {
	ctx := context.Background()
	repo, _, _ := newCachedLinks(t)

	link := &entities.Link{Code: "a1b2c3", Destination: "https://old.example.com"}
	require.NoError(t, repo.Create(ctx, link))
	_, err := repo.FindByCode(ctx, "a1b2c3")
	require.NoError(t, err)

	link.Destination = "https://new.example.com"
	require.NoError(t, repo.Update(ctx, link))

	got, err := repo.FindByCode(ctx, "a1b2c3")
	require.NoError(t, err)
	assert.Equal(t, "https://new.example.com", got.Destination)
}

func TestLinkRepository_DeleteClearsHints(t *testing.T) {
	ctx := context.Background()
	repo, _, _ := newCachedLinks(t)

	link := &entities.Link{Code: "a1b2c3", Destination: "https://example.com"}
	require.NoError(t, repo.Create(ctx, link))

	exists, err := repo.ExistsByCode(ctx, "a1b2c3")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, repo.Delete(ctx, link.ID))

	exists, err = repo.ExistsByCode(ctx, "a1b2c3")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = repo.FindByCode(ctx, "a1b2c3")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestLinkRepository_DuplicateMarksTaken(t *testing.T) {
	ctx := context.Background()
	repo, store, c := newCachedLinks(t)

	require.NoError(t, store.Create(ctx, &entities.Link{Code: "dup123", Destination: "https://example.com"}))

	err := repo.Create(ctx, &entities.Link{Code: "dup123", Destination: "https://other.example.com"})
	assert.ErrorIs(t, err, repository.ErrDuplicateCode)

	taken, err := c.Exists(ctx, codeTakenKey("dup123"))
	require.NoError(t, err)
	assert.True(t, taken)
}
