package domain

// DeviceGroup is a named collection of devices and nested groups.
// LastIndex is the next element index to assign; it only ever grows.
type DeviceGroup struct {
	BrandedEntity
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	ImageURL    string   `json:"image_url,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	LastIndex   int64    `json:"last_index"`
}

// DeviceGroupElement is one membership entry of a group. Exactly one of
// DeviceID and NestedGroupID is set. Index is assigned from the owning
// group's counter at insertion and never reused.
type DeviceGroupElement struct {
	Entity
	GroupID       string   `json:"group_id"`
	DeviceID      string   `json:"device_id,omitempty"`
	NestedGroupID string   `json:"nested_group_id,omitempty"`
	Roles         []string `json:"roles,omitempty"`
	Index         int64    `json:"index"`
}
