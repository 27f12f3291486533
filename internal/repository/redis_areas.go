package repository

import (
	"context"

	"github.com/go-redis/redis/v8"

	"device-registry/internal/domain"
)

type redisAreaTypes struct {
	*docStore[domain.AreaType, *domain.AreaType]
}

func newRedisAreaTypes(client *redis.Client) *redisAreaTypes {
	return &redisAreaTypes{newDocStore[domain.AreaType](client, "areatypes")}
}

func (s *redisAreaTypes) List(ctx context.Context, tenantID string, crit SearchCriteria) ([]*domain.AreaType, int, error) {
	return s.list(ctx, tenantID, crit, nil,
		func(a, b *domain.AreaType) bool { return a.Name < b.Name })
}

type redisAreas struct {
	*docStore[domain.Area, *domain.Area]
}

func newRedisAreas(client *redis.Client) *redisAreas {
	return &redisAreas{newDocStore[domain.Area](client, "areas")}
}

func (s *redisAreas) List(ctx context.Context, tenantID string, crit AreaCriteria) ([]*domain.Area, int, error) {
	return s.list(ctx, tenantID, crit.SearchCriteria,
		func(a *domain.Area) bool {
			if crit.AreaTypeID != "" && a.AreaTypeID != crit.AreaTypeID {
				return false
			}
			if crit.ParentID != "" && a.ParentID != crit.ParentID {
				return false
			}
			return true
		},
		func(a, b *domain.Area) bool { return a.Name < b.Name })
}

type redisZones struct {
	*docStore[domain.Zone, *domain.Zone]
}

func newRedisZones(client *redis.Client) *redisZones {
	return &redisZones{newDocStore[domain.Zone](client, "zones")}
}

func (s *redisZones) List(ctx context.Context, tenantID string, crit ZoneCriteria) ([]*domain.Zone, int, error) {
	return s.list(ctx, tenantID, crit.SearchCriteria,
		func(z *domain.Zone) bool {
			return crit.AreaID == "" || z.AreaID == crit.AreaID
		},
		func(a, b *domain.Zone) bool { return a.Name < b.Name })
}
