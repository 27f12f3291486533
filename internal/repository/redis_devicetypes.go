package repository

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"

	"device-registry/internal/domain"
)

type redisDeviceTypes struct {
	*docStore[domain.DeviceType, *domain.DeviceType]
}

func newRedisDeviceTypes(client *redis.Client) *redisDeviceTypes {
	return &redisDeviceTypes{newDocStore[domain.DeviceType](client, "devicetypes")}
}

func (s *redisDeviceTypes) List(ctx context.Context, tenantID string, crit SearchCriteria) ([]*domain.DeviceType, int, error) {
	return s.list(ctx, tenantID, crit, nil,
		func(a, b *domain.DeviceType) bool { return a.Name < b.Name })
}

type redisDeviceCommands struct {
	*docStore[domain.DeviceCommand, *domain.DeviceCommand]
}

func newRedisDeviceCommands(client *redis.Client) *redisDeviceCommands {
	return &redisDeviceCommands{newDocStore[domain.DeviceCommand](client, "devicecommands")}
}

func (s *redisDeviceCommands) List(ctx context.Context, tenantID string, crit CommandCriteria) ([]*domain.DeviceCommand, int, error) {
	return s.list(ctx, tenantID, crit.SearchCriteria,
		func(c *domain.DeviceCommand) bool {
			return crit.DeviceTypeID == "" || c.DeviceTypeID == crit.DeviceTypeID
		},
		func(a, b *domain.DeviceCommand) bool {
			if a.Namespace != b.Namespace {
				return a.Namespace < b.Namespace
			}
			return a.Name < b.Name
		})
}

// redisDeviceStatuses adds the (deviceTypeId, code) uniqueness hash on top
// of the shared document store.
type redisDeviceStatuses struct {
	*docStore[domain.DeviceStatus, *domain.DeviceStatus]
	client *redis.Client
}

func newRedisDeviceStatuses(client *redis.Client) *redisDeviceStatuses {
	return &redisDeviceStatuses{
		docStore: newDocStore[domain.DeviceStatus](client, "devicestatuses"),
		client:   client,
	}
}

func (s *redisDeviceStatuses) codesKey(tenantID, deviceTypeID string) string {
	return fmt.Sprintf("registry:%s:devicestatuses:codes:%s", tenantID, deviceTypeID)
}

func (s *redisDeviceStatuses) Insert(ctx context.Context, tenantID string, rec *domain.DeviceStatus) error {
	ok, err := s.client.HSetNX(ctx, s.codesKey(tenantID, rec.DeviceTypeID), rec.Code, rec.ID).Result()
	if err != nil {
		return fmt.Errorf("reserve status code: %w", err)
	}
	if !ok {
		return ErrDuplicateKey
	}
	if err := s.docStore.Insert(ctx, tenantID, rec); err != nil {
		s.client.HDel(ctx, s.codesKey(tenantID, rec.DeviceTypeID), rec.Code)
		return err
	}
	return nil
}

// Update moves the code reservation when the code changes, so the old
// code becomes available and the new one is claimed atomically.
func (s *redisDeviceStatuses) Update(ctx context.Context, tenantID string, rec *domain.DeviceStatus) error {
	prev, err := s.docStore.GetByID(ctx, tenantID, rec.ID)
	if err != nil {
		return err
	}
	if prev.Code == rec.Code {
		return s.docStore.Update(ctx, tenantID, rec)
	}
	ok, err := s.client.HSetNX(ctx, s.codesKey(tenantID, rec.DeviceTypeID), rec.Code, rec.ID).Result()
	if err != nil {
		return fmt.Errorf("reserve status code: %w", err)
	}
	if !ok {
		return ErrDuplicateKey
	}
	if err := s.docStore.Update(ctx, tenantID, rec); err != nil {
		s.client.HDel(ctx, s.codesKey(tenantID, rec.DeviceTypeID), rec.Code)
		return err
	}
	s.client.HDel(ctx, s.codesKey(tenantID, prev.DeviceTypeID), prev.Code)
	return nil
}

func (s *redisDeviceStatuses) Delete(ctx context.Context, tenantID, id string, hard bool) (*domain.DeviceStatus, error) {
	rec, err := s.docStore.Delete(ctx, tenantID, id, hard)
	if err != nil {
		return nil, err
	}
	// Code is released on either delete mode, like the token.
	s.client.HDel(ctx, s.codesKey(tenantID, rec.DeviceTypeID), rec.Code)
	return rec, nil
}

func (s *redisDeviceStatuses) List(ctx context.Context, tenantID string, crit StatusCriteria) ([]*domain.DeviceStatus, int, error) {
	return s.list(ctx, tenantID, crit.SearchCriteria,
		func(st *domain.DeviceStatus) bool {
			if crit.DeviceTypeID != "" && st.DeviceTypeID != crit.DeviceTypeID {
				return false
			}
			if crit.Code != "" && st.Code != crit.Code {
				return false
			}
			return true
		},
		func(a, b *domain.DeviceStatus) bool { return a.Code < b.Code })
}
