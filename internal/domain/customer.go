package domain

// CustomerType classifies customers; containment works like AreaType.
type CustomerType struct {
	BrandedEntity
	Name                     string   `json:"name"`
	Description              string   `json:"description,omitempty"`
	Icon                     string   `json:"icon,omitempty"`
	ContainedCustomerTypeIDs []string `json:"contained_customer_type_ids,omitempty"`
}

// Customer is a node in the per-tenant customer forest.
type Customer struct {
	BrandedEntity
	CustomerTypeID string `json:"customer_type_id"`
	ParentID       string `json:"parent_id,omitempty"`
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	ImageURL       string `json:"image_url,omitempty"`
}
