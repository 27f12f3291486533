package repository_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"

	"device-registry/internal/domain"
	"device-registry/internal/repository"
)

const tenant = "tenant-1"

func newRedisRepo(t *testing.T) *repository.RedisRepository {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return repository.NewRedisRepository(client)
}

func areaType(id, token, name string) *domain.AreaType {
	return &domain.AreaType{
		BrandedEntity: domain.BrandedEntity{
			Entity: domain.Entity{ID: id},
			Token:  token,
		},
		Name: name,
	}
}

func TestRedis_TokenUniquenessAndSoftDelete(t *testing.T) {
	repo := newRedisRepo(t)
	ctx := context.Background()
	store := repo.AreaTypes()

	require.NoError(t, store.Insert(ctx, tenant, areaType("id-1", "building", "Building")))
	err := store.Insert(ctx, tenant, areaType("id-2", "building", "Other"))
	require.ErrorIs(t, err, repository.ErrDuplicateKey)

	got, err := store.GetByToken(ctx, tenant, "building")
	require.NoError(t, err)
	require.Equal(t, "id-1", got.ID)

	// Soft delete hides the record and releases the token.
	deleted, err := store.Delete(ctx, tenant, "id-1", false)
	require.NoError(t, err)
	require.True(t, deleted.Deleted)

	_, err = store.GetByID(ctx, tenant, "id-1")
	require.ErrorIs(t, err, repository.ErrNotFound)
	_, err = store.GetByToken(ctx, tenant, "building")
	require.ErrorIs(t, err, repository.ErrNotFound)

	// A second delete of the same id fails.
	_, err = store.Delete(ctx, tenant, "id-1", false)
	require.ErrorIs(t, err, repository.ErrNotFound)

	// The token is free for a new live record.
	require.NoError(t, store.Insert(ctx, tenant, areaType("id-3", "building", "Rebuilt")))

	// Deleted records stay visible to an explicit history listing.
	all, total, err := store.List(ctx, tenant, repository.SearchCriteria{IncludeDeleted: true})
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Len(t, all, 2)
}

func TestRedis_TenantsAreIsolated(t *testing.T) {
	repo := newRedisRepo(t)
	ctx := context.Background()
	store := repo.AreaTypes()

	require.NoError(t, store.Insert(ctx, "tenant-a", areaType("id-1", "building", "A")))

	_, err := store.GetByToken(ctx, "tenant-b", "building")
	require.ErrorIs(t, err, repository.ErrNotFound)

	// Same token in another tenant is not a duplicate.
	require.NoError(t, store.Insert(ctx, "tenant-b", areaType("id-2", "building", "B")))
}

func TestRedis_ListSortsAndPages(t *testing.T) {
	repo := newRedisRepo(t)
	ctx := context.Background()
	store := repo.AreaTypes()

	for i := 0; i < 5; i++ {
		rec := areaType(fmt.Sprintf("id-%d", i), fmt.Sprintf("tok-%d", i), fmt.Sprintf("Name %d", i))
		require.NoError(t, store.Insert(ctx, tenant, rec))
	}

	page2, total, err := store.List(ctx, tenant, repository.SearchCriteria{Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.Equal(t, 5, total)
	require.Len(t, page2, 2)
	require.Equal(t, "Name 2", page2[0].Name)
	require.Equal(t, "Name 3", page2[1].Name)

	// Past the end: empty page, same total.
	page4, total, err := store.List(ctx, tenant, repository.SearchCriteria{Page: 4, PageSize: 2})
	require.NoError(t, err)
	require.Equal(t, 5, total)
	require.Empty(t, page4)
}

func TestRedis_GroupCounterIsAtomicPerGroup(t *testing.T) {
	repo := newRedisRepo(t)
	ctx := context.Background()

	g := &domain.DeviceGroup{
		BrandedEntity: domain.BrandedEntity{Entity: domain.Entity{ID: "g-1"}, Token: "fleet"},
		Name:          "Fleet",
	}
	require.NoError(t, repo.DeviceGroups().Insert(ctx, tenant, g))

	for want := int64(0); want < 3; want++ {
		idx, err := repo.DeviceGroups().NextElementIndex(ctx, tenant, "g-1")
		require.NoError(t, err)
		require.Equal(t, want, idx)
	}

	_, err := repo.DeviceGroups().NextElementIndex(ctx, tenant, "missing")
	require.ErrorIs(t, err, repository.ErrNotFound)

	// The counter value is reflected on reads.
	got, err := repo.DeviceGroups().GetByID(ctx, tenant, "g-1")
	require.NoError(t, err)
	require.Equal(t, int64(3), got.LastIndex)
}

func TestRedis_GroupElementMembershipUnique(t *testing.T) {
	repo := newRedisRepo(t)
	ctx := context.Background()
	store := repo.DeviceGroupElements()

	el := &domain.DeviceGroupElement{
		Entity:   domain.Entity{ID: "el-1"},
		GroupID:  "g-1",
		DeviceID: "d-1",
		Index:    0,
	}
	require.NoError(t, store.Insert(ctx, tenant, el))

	dup := &domain.DeviceGroupElement{
		Entity:   domain.Entity{ID: "el-2"},
		GroupID:  "g-1",
		DeviceID: "d-1",
		Index:    1,
	}
	require.ErrorIs(t, store.Insert(ctx, tenant, dup), repository.ErrDuplicateKey)

	// The same device in another group is fine.
	other := &domain.DeviceGroupElement{
		Entity:   domain.Entity{ID: "el-3"},
		GroupID:  "g-2",
		DeviceID: "d-1",
		Index:    0,
	}
	require.NoError(t, store.Insert(ctx, tenant, other))

	// Removal frees the membership slot.
	_, err := store.Delete(ctx, tenant, "el-1")
	require.NoError(t, err)
	require.NoError(t, store.Insert(ctx, tenant, &domain.DeviceGroupElement{
		Entity:   domain.Entity{ID: "el-4"},
		GroupID:  "g-1",
		DeviceID: "d-1",
		Index:    2,
	}))
}
