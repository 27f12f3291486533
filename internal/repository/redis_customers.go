package repository

import (
	"context"

	"github.com/go-redis/redis/v8"

	"device-registry/internal/domain"
)

type redisCustomerTypes struct {
	*docStore[domain.CustomerType, *domain.CustomerType]
}

func newRedisCustomerTypes(client *redis.Client) *redisCustomerTypes {
	return &redisCustomerTypes{newDocStore[domain.CustomerType](client, "customertypes")}
}

func (s *redisCustomerTypes) List(ctx context.Context, tenantID string, crit SearchCriteria) ([]*domain.CustomerType, int, error) {
	return s.list(ctx, tenantID, crit, nil,
		func(a, b *domain.CustomerType) bool { return a.Name < b.Name })
}

type redisCustomers struct {
	*docStore[domain.Customer, *domain.Customer]
}

func newRedisCustomers(client *redis.Client) *redisCustomers {
	return &redisCustomers{newDocStore[domain.Customer](client, "customers")}
}

func (s *redisCustomers) List(ctx context.Context, tenantID string, crit CustomerCriteria) ([]*domain.Customer, int, error) {
	return s.list(ctx, tenantID, crit.SearchCriteria,
		func(c *domain.Customer) bool {
			if crit.CustomerTypeID != "" && c.CustomerTypeID != crit.CustomerTypeID {
				return false
			}
			if crit.ParentID != "" && c.ParentID != crit.ParentID {
				return false
			}
			return true
		},
		func(a, b *domain.Customer) bool { return a.Name < b.Name })
}
