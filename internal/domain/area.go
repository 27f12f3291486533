package domain

// AreaType classifies areas and declares which other area types may be
// nested inside it. Containment references are not checked for cycles.
type AreaType struct {
	BrandedEntity
	Name                 string   `json:"name"`
	Description          string   `json:"description,omitempty"`
	Icon                 string   `json:"icon,omitempty"`
	ContainedAreaTypeIDs []string `json:"contained_area_type_ids,omitempty"`
}

// Area is a node in the per-tenant area forest. Root areas have an empty
// ParentID.
type Area struct {
	BrandedEntity
	AreaTypeID  string     `json:"area_type_id"`
	ParentID    string     `json:"parent_id,omitempty"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	ImageURL    string     `json:"image_url,omitempty"`
	Bounds      []Location `json:"bounds,omitempty"`
}

// Zone is a bounded region inside exactly one area.
type Zone struct {
	BrandedEntity
	AreaID        string     `json:"area_id"`
	Name          string     `json:"name"`
	Bounds        []Location `json:"bounds,omitempty"`
	BorderColor   string     `json:"border_color,omitempty"`
	BorderOpacity float64    `json:"border_opacity,omitempty"`
	FillColor     string     `json:"fill_color,omitempty"`
	FillOpacity   float64    `json:"fill_opacity,omitempty"`
}
