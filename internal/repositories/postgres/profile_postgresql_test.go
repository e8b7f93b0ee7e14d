package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alrena-group/amqms-portal/internal/cache"
	"github.com/alrena-group/amqms-portal/internal/models"
	"github.com/alrena-group/amqms-portal/internal/repositories"
	"github.com/alrena-group/amqms-portal/internal/testutil"
)

func TestProfileRepository_EmailIsCaseInsensitive(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewProfilePostgreSQL(db, cache.NewCacheManager(nil))
	ctx := context.Background()

	profile := &models.Profile{Email: "  Grace@Example.COM ", FullName: "Grace Nakato"}
	require.NoError(t, repo.Create(ctx, nil, profile))
	assert.Equal(t, "grace@example.com", profile.Email)
	assert.Equal(t, models.RoleStudent, profile.Role)

	got, err := repo.GetByEmail(ctx, nil, "GRACE@example.com")
	require.NoError(t, err)
	assert.Equal(t, profile.ID, got.ID)

	_, err = repo.GetByEmail(ctx, nil, "nobody@example.com")
	assert.True(t, repositories.IsNotFoundError(err))
}

func TestProfileRepository_UpdateKeepsPasswordFromCachedCopy(t *testing.T) {
	db := testutil.NewTestDB(t)
	client, _ := testutil.NewTestRedis(t)
	repo := NewProfilePostgreSQL(db, cache.NewCacheManager(client))
	ctx := context.Background()

	hash := "$2a$10$abcdefghijklmnopqrstuv"
	profile := &models.Profile{Email: "grace@example.com", FullName: "Grace", PasswordHash: &hash}
	require.NoError(t, repo.Create(ctx, nil, profile))

	cached, err := repo.GetByID(ctx, nil, profile.ID)
	require.NoError(t, err)
	assert.Nil(t, cached.PasswordHash, "hash is not serialized into the cache")

	cached.FullName = "Grace Nakato"
	require.NoError(t, repo.Update(ctx, nil, cached))

	fresh, err := repo.GetByEmail(ctx, nil, "grace@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Grace Nakato", fresh.FullName)
	require.NotNil(t, fresh.PasswordHash)
	assert.Equal(t, hash, *fresh.PasswordHash)

	again, err := repo.GetByID(ctx, nil, profile.ID)
	require.NoError(t, err)
	assert.Equal(t, "Grace Nakato", again.FullName, "update invalidates the cached profile")
}

func TestInquiryRepository_CreateAndList(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewInquiryPostgreSQL(db)
	ctx := context.Background()

	for _, std := range []string{"ISO 9001", "ISO 22000"} {
		require.NoError(t, repo.Create(ctx, nil, &models.ConsultingInquiry{
			Name: "Peter", Company: "Nile Foods", Email: "peter@example.com", Standard: std, Message: "Help",
		}))
	}

	all, total, err := repo.List(ctx, nil, repositories.InquiryFilters{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, all, 2)

	std := "ISO 22000"
	filtered, total, err := repo.List(ctx, nil, repositories.InquiryFilters{Standard: &std})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, filtered, 1)
	assert.Equal(t, "ISO 22000", filtered[0].Standard)
}
