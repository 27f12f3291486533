package repository

import (
	"context"

	"github.com/go-redis/redis/v8"
)

// RedisRepository is the document backend. See redis.go for the key
// layout and atomicity notes.
type RedisRepository struct {
	client *redis.Client

	areaTypes     *redisAreaTypes
	areas         *redisAreas
	zones         *redisZones
	customerTypes *redisCustomerTypes
	customers     *redisCustomers
	deviceTypes   *redisDeviceTypes
	commands      *redisDeviceCommands
	statuses      *redisDeviceStatuses
	devices       *redisDevices
	assignments   *redisDeviceAssignments
	alarms        *redisDeviceAlarms
	groups        *redisDeviceGroups
	elements      *redisGroupElements
}

func NewRedisRepository(client *redis.Client) *RedisRepository {
	r := &RedisRepository{client: client}
	r.areaTypes = newRedisAreaTypes(client)
	r.areas = newRedisAreas(client)
	r.zones = newRedisZones(client)
	r.customerTypes = newRedisCustomerTypes(client)
	r.customers = newRedisCustomers(client)
	r.deviceTypes = newRedisDeviceTypes(client)
	r.commands = newRedisDeviceCommands(client)
	r.statuses = newRedisDeviceStatuses(client)
	r.devices = newRedisDevices(client)
	r.assignments = newRedisDeviceAssignments(client)
	r.alarms = newRedisDeviceAlarms(client)
	r.elements = newRedisGroupElements(client)
	r.groups = newRedisDeviceGroups(client, r.elements)
	return r
}

func (r *RedisRepository) AreaTypes() AreaTypeStore                     { return r.areaTypes }
func (r *RedisRepository) Areas() AreaStore                             { return r.areas }
func (r *RedisRepository) Zones() ZoneStore                             { return r.zones }
func (r *RedisRepository) CustomerTypes() CustomerTypeStore             { return r.customerTypes }
func (r *RedisRepository) Customers() CustomerStore                     { return r.customers }
func (r *RedisRepository) DeviceTypes() DeviceTypeStore                 { return r.deviceTypes }
func (r *RedisRepository) DeviceCommands() DeviceCommandStore           { return r.commands }
func (r *RedisRepository) DeviceStatuses() DeviceStatusStore            { return r.statuses }
func (r *RedisRepository) Devices() DeviceStore                         { return r.devices }
func (r *RedisRepository) DeviceAssignments() DeviceAssignmentStore     { return r.assignments }
func (r *RedisRepository) DeviceAlarms() DeviceAlarmStore               { return r.alarms }
func (r *RedisRepository) DeviceGroups() DeviceGroupStore               { return r.groups }
func (r *RedisRepository) DeviceGroupElements() DeviceGroupElementStore { return r.elements }

func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisRepository) Close() error {
	return r.client.Close()
}
