package repository

import (
	"context"
	"errors"

	"device-registry/internal/domain"
)

// Sentinel errors shared by both backends. Domain services translate these
// into their own error taxonomy; backend connectivity failures are returned
// as-is (wrapped) and are distinguishable from both sentinels.
var (
	// ErrNotFound means an id/token lookup matched no live record.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateKey means an insert violated a uniqueness constraint
	// (token, (deviceTypeId, code), or (groupId, deviceId)).
	ErrDuplicateKey = errors.New("duplicate key")
)

// SearchCriteria controls paging and deleted-record visibility for list
// operations. PageSize <= 0 disables paging. Soft-deleted records are
// excluded unless IncludeDeleted is set.
type SearchCriteria struct {
	Page           int
	PageSize       int
	IncludeDeleted bool
}

// Store is the create/read/update/delete surface every collection exposes.
// Both backends must produce identical success/failure outcomes for
// identical input sequences. Delete with hard=false marks the record
// deleted; hard=true removes it and any rows it exclusively owns. Either
// way the removed record is returned, and a second delete of the same id
// fails with ErrNotFound.
type Store[T any] interface {
	Insert(ctx context.Context, tenantID string, rec *T) error
	GetByID(ctx context.Context, tenantID, id string) (*T, error)
	Update(ctx context.Context, tenantID string, rec *T) error
	Delete(ctx context.Context, tenantID, id string, hard bool) (*T, error)
}

// BrandedStore adds token lookup for entities carrying a token.
type BrandedStore[T any] interface {
	Store[T]
	GetByToken(ctx context.Context, tenantID, token string) (*T, error)
}

type AreaTypeStore interface {
	BrandedStore[domain.AreaType]
	List(ctx context.Context, tenantID string, crit SearchCriteria) ([]*domain.AreaType, int, error)
}

// AreaCriteria filters area lists. Empty fields are ignored.
type AreaCriteria struct {
	SearchCriteria
	AreaTypeID string
	ParentID   string
}

type AreaStore interface {
	BrandedStore[domain.Area]
	List(ctx context.Context, tenantID string, crit AreaCriteria) ([]*domain.Area, int, error)
}

// ZoneCriteria filters zone lists.
type ZoneCriteria struct {
	SearchCriteria
	AreaID string
}

type ZoneStore interface {
	BrandedStore[domain.Zone]
	List(ctx context.Context, tenantID string, crit ZoneCriteria) ([]*domain.Zone, int, error)
}

type CustomerTypeStore interface {
	BrandedStore[domain.CustomerType]
	List(ctx context.Context, tenantID string, crit SearchCriteria) ([]*domain.CustomerType, int, error)
}

// CustomerCriteria filters customer lists.
type CustomerCriteria struct {
	SearchCriteria
	CustomerTypeID string
	ParentID       string
}

type CustomerStore interface {
	BrandedStore[domain.Customer]
	List(ctx context.Context, tenantID string, crit CustomerCriteria) ([]*domain.Customer, int, error)
}

type DeviceTypeStore interface {
	BrandedStore[domain.DeviceType]
	List(ctx context.Context, tenantID string, crit SearchCriteria) ([]*domain.DeviceType, int, error)
}

// CommandCriteria filters device command lists.
type CommandCriteria struct {
	SearchCriteria
	DeviceTypeID string
}

type DeviceCommandStore interface {
	BrandedStore[domain.DeviceCommand]
	List(ctx context.Context, tenantID string, crit CommandCriteria) ([]*domain.DeviceCommand, int, error)
}

// StatusCriteria filters device status lists.
type StatusCriteria struct {
	SearchCriteria
	DeviceTypeID string
	Code         string
}

type DeviceStatusStore interface {
	BrandedStore[domain.DeviceStatus]
	List(ctx context.Context, tenantID string, crit StatusCriteria) ([]*domain.DeviceStatus, int, error)
}

// DeviceCriteria filters device lists.
type DeviceCriteria struct {
	SearchCriteria
	DeviceTypeID   string
	ParentDeviceID string
	// Assigned filters on whether a device has a live assignment.
	Assigned *bool
}

type DeviceStore interface {
	BrandedStore[domain.Device]
	List(ctx context.Context, tenantID string, crit DeviceCriteria) ([]*domain.Device, int, error)
}

// AssignmentCriteria filters assignment lists.
type AssignmentCriteria struct {
	SearchCriteria
	DeviceID   string
	CustomerID string
	AreaID     string
	AssetID    string
	Status     domain.AssignmentStatus
}

type DeviceAssignmentStore interface {
	BrandedStore[domain.DeviceAssignment]
	List(ctx context.Context, tenantID string, crit AssignmentCriteria) ([]*domain.DeviceAssignment, int, error)
}

// AlarmCriteria filters alarm lists.
type AlarmCriteria struct {
	SearchCriteria
	DeviceID           string
	DeviceAssignmentID string
	State              domain.AlarmState
}

type DeviceAlarmStore interface {
	Store[domain.DeviceAlarm]
	List(ctx context.Context, tenantID string, crit AlarmCriteria) ([]*domain.DeviceAlarm, int, error)
}

// GroupCriteria filters device group lists.
type GroupCriteria struct {
	SearchCriteria
	Role string
}

type DeviceGroupStore interface {
	BrandedStore[domain.DeviceGroup]
	List(ctx context.Context, tenantID string, crit GroupCriteria) ([]*domain.DeviceGroup, int, error)
	// NextElementIndex atomically advances the group's element counter and
	// returns the index to assign. No two concurrent callers receive the
	// same value for the same group.
	NextElementIndex(ctx context.Context, tenantID, groupID string) (int64, error)
}

// DeviceGroupElementStore manages group membership rows. Elements are
// always removed physically; the (groupId, deviceId) and
// (groupId, nestedGroupId) pairs are unique per group.
type DeviceGroupElementStore interface {
	Insert(ctx context.Context, tenantID string, el *domain.DeviceGroupElement) error
	GetByID(ctx context.Context, tenantID, id string) (*domain.DeviceGroupElement, error)
	Delete(ctx context.Context, tenantID, id string) (*domain.DeviceGroupElement, error)
	// ListByGroup returns elements ordered by ascending index.
	ListByGroup(ctx context.Context, tenantID, groupID string, crit SearchCriteria) ([]*domain.DeviceGroupElement, int, error)
	DeleteByGroup(ctx context.Context, tenantID, groupID string) error
}

// Repository aggregates one store per collection. The two implementations
// (relational, document) are interchangeable at deployment time.
type Repository interface {
	AreaTypes() AreaTypeStore
	Areas() AreaStore
	Zones() ZoneStore
	CustomerTypes() CustomerTypeStore
	Customers() CustomerStore
	DeviceTypes() DeviceTypeStore
	DeviceCommands() DeviceCommandStore
	DeviceStatuses() DeviceStatusStore
	Devices() DeviceStore
	DeviceAssignments() DeviceAssignmentStore
	DeviceAlarms() DeviceAlarmStore
	DeviceGroups() DeviceGroupStore
	DeviceGroupElements() DeviceGroupElementStore
	Ping(ctx context.Context) error
	Close() error
}
