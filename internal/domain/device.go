package domain

// ContainerPolicy controls whether devices of a type may nest child devices.
type ContainerPolicy string

const (
	ContainerPolicyStandalone ContainerPolicy = "standalone"
	ContainerPolicyComposite  ContainerPolicy = "composite"
)

// DeviceType describes a class of devices and owns its command and status
// catalogs.
type DeviceType struct {
	BrandedEntity
	Name                string          `json:"name"`
	Description         string          `json:"description,omitempty"`
	ImageURL            string          `json:"image_url,omitempty"`
	ContainerPolicy     ContainerPolicy `json:"container_policy"`
	DeviceElementSchema string          `json:"device_element_schema,omitempty"`
}

// CommandParameter is one ordered parameter of a device command.
type CommandParameter struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
}

// DeviceCommand is scoped to one device type. (Namespace, Name) is unique
// among the type's live commands.
type DeviceCommand struct {
	BrandedEntity
	DeviceTypeID string             `json:"device_type_id"`
	Namespace    string             `json:"namespace,omitempty"`
	Name         string             `json:"name"`
	Description  string             `json:"description,omitempty"`
	Parameters   []CommandParameter `json:"parameters,omitempty"`
}

// DeviceStatus is scoped to one device type. Code is unique among the
// type's live statuses.
type DeviceStatus struct {
	BrandedEntity
	DeviceTypeID    string `json:"device_type_id"`
	Code            string `json:"code"`
	Name            string `json:"name,omitempty"`
	BackgroundColor string `json:"background_color,omitempty"`
	ForegroundColor string `json:"foreground_color,omitempty"`
	BorderColor     string `json:"border_color,omitempty"`
	Icon            string `json:"icon,omitempty"`
}

// DeviceElementMapping maps a slot path of a composite device's element
// schema to the token of the child device filling it.
type DeviceElementMapping struct {
	SchemaPath  string `json:"schema_path"`
	DeviceToken string `json:"device_token"`
}

// Device is a registered physical device. Status is a free string; its
// validity against the type's status catalog is a higher-level concern.
// DeviceAssignmentID caches the single currently active assignment.
type Device struct {
	BrandedEntity
	DeviceTypeID       string                 `json:"device_type_id"`
	ParentDeviceID     string                 `json:"parent_device_id,omitempty"`
	ElementMappings    []DeviceElementMapping `json:"element_mappings,omitempty"`
	Status             string                 `json:"status,omitempty"`
	Comments           string                 `json:"comments,omitempty"`
	DeviceAssignmentID string                 `json:"device_assignment_id,omitempty"`
}
