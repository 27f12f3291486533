package repository

import (
	"context"

	"github.com/go-redis/redis/v8"

	"device-registry/internal/domain"
)

type redisDeviceAssignments struct {
	*docStore[domain.DeviceAssignment, *domain.DeviceAssignment]
}

func newRedisDeviceAssignments(client *redis.Client) *redisDeviceAssignments {
	return &redisDeviceAssignments{newDocStore[domain.DeviceAssignment](client, "assignments")}
}

func (s *redisDeviceAssignments) List(ctx context.Context, tenantID string, crit AssignmentCriteria) ([]*domain.DeviceAssignment, int, error) {
	return s.list(ctx, tenantID, crit.SearchCriteria,
		func(a *domain.DeviceAssignment) bool {
			if crit.DeviceID != "" && a.DeviceID != crit.DeviceID {
				return false
			}
			if crit.CustomerID != "" && a.CustomerID != crit.CustomerID {
				return false
			}
			if crit.AreaID != "" && a.AreaID != crit.AreaID {
				return false
			}
			if crit.AssetID != "" && a.AssetID != crit.AssetID {
				return false
			}
			if crit.Status != "" && a.Status != crit.Status {
				return false
			}
			return true
		},
		// Most recent assignments first, matching assignment history order.
		func(a, b *domain.DeviceAssignment) bool { return a.ActiveDate.After(b.ActiveDate) })
}

type redisDeviceAlarms struct {
	*docStore[domain.DeviceAlarm, *domain.DeviceAlarm]
}

func newRedisDeviceAlarms(client *redis.Client) *redisDeviceAlarms {
	return &redisDeviceAlarms{newDocStore[domain.DeviceAlarm](client, "alarms")}
}

func (s *redisDeviceAlarms) List(ctx context.Context, tenantID string, crit AlarmCriteria) ([]*domain.DeviceAlarm, int, error) {
	return s.list(ctx, tenantID, crit.SearchCriteria,
		func(a *domain.DeviceAlarm) bool {
			if crit.DeviceID != "" && a.DeviceID != crit.DeviceID {
				return false
			}
			if crit.DeviceAssignmentID != "" && a.DeviceAssignmentID != crit.DeviceAssignmentID {
				return false
			}
			if crit.State != "" && a.State != crit.State {
				return false
			}
			return true
		},
		func(a, b *domain.DeviceAlarm) bool { return a.TriggeredDate.After(b.TriggeredDate) })
}
