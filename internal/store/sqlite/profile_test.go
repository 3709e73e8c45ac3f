package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/MrSnakeDoc/tabgate/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileRepo(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProfileRepo(db)
	ctx := context.Background()

	p, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, p)

	email := "ada@example.com"
	require.NoError(t, repo.Upsert(ctx, domain.Profile{
		ID: "u1", Username: "ada", Email: &email, CreatedAt: t0, UpdatedAt: t0,
	}))
	require.NoError(t, repo.Upsert(ctx, domain.Profile{
		ID: "u1", Username: "ada.l", Email: &email, CreatedAt: t0.Add(time.Hour), UpdatedAt: t0.Add(time.Hour),
	}))

	p, err = repo.Get(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "ada.l", p.Username)
	require.NotNil(t, p.Email)
	assert.Equal(t, email, *p.Email)
	assert.Nil(t, p.FullName)
	assert.True(t, p.CreatedAt.Equal(t0))
}
