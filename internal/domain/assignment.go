package domain

import "time"

// AssignmentStatus is the assignment lifecycle state. The only transition
// is active -> released; a device gets a new assignment instead of
// re-activating an old one.
type AssignmentStatus string

const (
	AssignmentActive   AssignmentStatus = "active"
	AssignmentReleased AssignmentStatus = "released"
)

// DeviceAssignment links a device to an optional customer, area and asset
// for a period of time. ReleasedDate is set iff Status is released.
type DeviceAssignment struct {
	BrandedEntity
	DeviceID     string           `json:"device_id"`
	DeviceTypeID string           `json:"device_type_id"`
	CustomerID   string           `json:"customer_id,omitempty"`
	AreaID       string           `json:"area_id,omitempty"`
	AssetID      string           `json:"asset_id,omitempty"`
	Status       AssignmentStatus `json:"status"`
	ActiveDate   time.Time        `json:"active_date"`
	ReleasedDate *time.Time       `json:"released_date,omitempty"`
}

// AlarmState is the device alarm lifecycle state.
type AlarmState string

const (
	AlarmTriggered    AlarmState = "triggered"
	AlarmAcknowledged AlarmState = "acknowledged"
	AlarmResolved     AlarmState = "resolved"
)

// DeviceAlarm records an alarm condition raised in the context of a device
// assignment. Device/customer/area/asset references are inherited from the
// assignment at creation time.
type DeviceAlarm struct {
	Entity
	DeviceID           string     `json:"device_id"`
	DeviceAssignmentID string     `json:"device_assignment_id"`
	CustomerID         string     `json:"customer_id,omitempty"`
	AreaID             string     `json:"area_id,omitempty"`
	AssetID            string     `json:"asset_id,omitempty"`
	AlarmMessage       string     `json:"alarm_message"`
	TriggeringEventID  string     `json:"triggering_event_id,omitempty"`
	State              AlarmState `json:"state"`
	TriggeredDate      time.Time  `json:"triggered_date"`
	AcknowledgedDate   *time.Time `json:"acknowledged_date,omitempty"`
	ResolvedDate       *time.Time `json:"resolved_date,omitempty"`
}
