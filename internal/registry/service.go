// Package registry implements the relationship and lifecycle rules of the
// device registry once, against the repository contract, so both storage
// backends behave identically.
package registry

import (
	"regexp"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"device-registry/internal/assets"
	"device-registry/internal/domain"
	"device-registry/internal/repository"
)

// Service carries all registry operations. It is safe for concurrent use;
// any locking is delegated to the storage backend.
type Service struct {
	repo   repository.Repository
	assets assets.Resolver
	log    *zap.Logger
}

func New(repo repository.Repository, assets assets.Resolver, log *zap.Logger) *Service {
	return &Service{repo: repo, assets: assets, log: log}
}

func newID() string { return uuid.NewString() }

// tokenOrNew keeps a caller-supplied token or generates an opaque one.
func tokenOrNew(token string) string {
	if token != "" {
		return token
	}
	return uuid.NewString()
}

// Device tokens double as hardware ids, so they follow the stricter
// hardware-id character rule instead of being free-form.
var deviceTokenPattern = regexp.MustCompile(`^[\w-]+$`)

func newEntity() domain.Entity {
	now := time.Now().UTC()
	return domain.Entity{
		ID:          newID(),
		CreatedDate: now,
		UpdatedDate: now,
	}
}

func newBranded(token string) domain.BrandedEntity {
	return domain.BrandedEntity{
		Entity: newEntity(),
		Token:  tokenOrNew(token),
	}
}

func touch(e *domain.Entity) {
	e.UpdatedDate = time.Now().UTC()
}
