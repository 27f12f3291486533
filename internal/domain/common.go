package domain

import "time"

// Location is a single point in a geo boundary.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Elevation float64 `json:"elevation"`
}

// Entity carries the fields shared by every persisted record.
// IDs are opaque, assigned once at creation and never reused.
type Entity struct {
	ID          string            `json:"id"`
	CreatedDate time.Time         `json:"created_date"`
	UpdatedDate time.Time         `json:"updated_date"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Deleted     bool              `json:"deleted,omitempty"`
}

func (e *Entity) GetID() string { return e.ID }

func (e *Entity) IsDeleted() bool { return e.Deleted }

func (e *Entity) MarkDeleted() { e.Deleted = true }

// GetToken returns the empty string for entities that are not branded.
// BrandedEntity shadows this with the real token.
func (e *Entity) GetToken() string { return "" }

// BrandedEntity adds the caller-visible token. Tokens are immutable after
// creation and unique among live records of a collection.
type BrandedEntity struct {
	Entity
	Token string `json:"token"`
}

func (b *BrandedEntity) GetToken() string { return b.Token }
