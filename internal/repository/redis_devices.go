package repository

import (
	"context"

	"github.com/go-redis/redis/v8"

	"device-registry/internal/domain"
)

type redisDevices struct {
	*docStore[domain.Device, *domain.Device]
}

func newRedisDevices(client *redis.Client) *redisDevices {
	return &redisDevices{newDocStore[domain.Device](client, "devices")}
}

func (s *redisDevices) List(ctx context.Context, tenantID string, crit DeviceCriteria) ([]*domain.Device, int, error) {
	return s.list(ctx, tenantID, crit.SearchCriteria,
		func(d *domain.Device) bool {
			if crit.DeviceTypeID != "" && d.DeviceTypeID != crit.DeviceTypeID {
				return false
			}
			if crit.ParentDeviceID != "" && d.ParentDeviceID != crit.ParentDeviceID {
				return false
			}
			if crit.Assigned != nil && (d.DeviceAssignmentID != "") != *crit.Assigned {
				return false
			}
			return true
		},
		func(a, b *domain.Device) bool { return a.Token < b.Token })
}
