package registry

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"device-registry/internal/domain"
	"device-registry/internal/repository"
)

// DeviceCreateRequest registers a device. Token doubles as the hardware
// id and must match ^[\w-]+$; it is required rather than generated.
type DeviceCreateRequest struct {
	Token             string
	DeviceTypeToken   string
	ParentDeviceToken string
	Status            string
	Comments          string
	Metadata          map[string]string
}

type DeviceUpdateRequest struct {
	DeviceTypeToken   string
	ParentDeviceToken string
	Status            string
	Comments          string
	Metadata          map[string]string
}

func (s *Service) resolveDeviceRefs(ctx context.Context, tenantID, typeToken, parentToken string) (typeID, parentID string, err error) {
	dt, err := s.repo.DeviceTypes().GetByToken(ctx, tenantID, typeToken)
	if err != nil {
		return "", "", refErr(err, "device type", typeToken)
	}
	typeID = dt.ID
	if parentToken != "" {
		parent, err := s.repo.Devices().GetByToken(ctx, tenantID, parentToken)
		if err != nil {
			return "", "", refErr(err, "parent device", parentToken)
		}
		parentID = parent.ID
	}
	return typeID, parentID, nil
}

func (s *Service) CreateDevice(ctx context.Context, tenantID string, req DeviceCreateRequest) (*domain.Device, error) {
	if !deviceTokenPattern.MatchString(req.Token) {
		return nil, invalidRequest("device token %q must match ^[\\w-]+$", req.Token)
	}
	typeID, parentID, err := s.resolveDeviceRefs(ctx, tenantID, req.DeviceTypeToken, req.ParentDeviceToken)
	if err != nil {
		return nil, err
	}
	d := &domain.Device{
		BrandedEntity:  newBranded(req.Token),
		DeviceTypeID:   typeID,
		ParentDeviceID: parentID,
		Status:         req.Status,
		Comments:       req.Comments,
	}
	d.Metadata = req.Metadata
	if err := s.repo.Devices().Insert(ctx, tenantID, d); err != nil {
		return nil, storeErr(err, "device", d.Token)
	}
	s.log.Info("device registered",
		zap.String("tenant_id", tenantID), zap.String("token", d.Token))
	return d, nil
}

func (s *Service) GetDevice(ctx context.Context, tenantID, id string) (*domain.Device, error) {
	d, err := s.repo.Devices().GetByID(ctx, tenantID, id)
	return d, storeErr(err, "device", id)
}

func (s *Service) GetDeviceByToken(ctx context.Context, tenantID, token string) (*domain.Device, error) {
	d, err := s.repo.Devices().GetByToken(ctx, tenantID, token)
	return d, storeErr(err, "device", token)
}

func (s *Service) UpdateDevice(ctx context.Context, tenantID, token string, req DeviceUpdateRequest) (*domain.Device, error) {
	d, err := s.GetDeviceByToken(ctx, tenantID, token)
	if err != nil {
		return nil, err
	}
	typeID, parentID, err := s.resolveDeviceRefs(ctx, tenantID, req.DeviceTypeToken, req.ParentDeviceToken)
	if err != nil {
		return nil, err
	}
	d.DeviceTypeID = typeID
	d.ParentDeviceID = parentID
	d.Status = req.Status
	d.Comments = req.Comments
	d.Metadata = req.Metadata
	touch(&d.Entity)
	if err := s.repo.Devices().Update(ctx, tenantID, d); err != nil {
		return nil, storeErr(err, "device", token)
	}
	return d, nil
}

// DeleteDevice refuses while the device is assigned or has assignment
// history; the history is the audit trail and deleting the device would
// orphan it.
func (s *Service) DeleteDevice(ctx context.Context, tenantID, token string, hard bool) (*domain.Device, error) {
	d, err := s.GetDeviceByToken(ctx, tenantID, token)
	if err != nil {
		return nil, err
	}
	if d.DeviceAssignmentID != "" {
		return nil, inUse("device %q has an active assignment", token)
	}
	_, n, err := s.repo.DeviceAssignments().List(ctx, tenantID,
		repository.AssignmentCriteria{DeviceID: d.ID})
	if err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, inUse("device %q has %d assignment(s) on record", token, n)
	}
	deleted, err := s.repo.Devices().Delete(ctx, tenantID, d.ID, hard)
	return deleted, storeErr(err, "device", token)
}

func (s *Service) ListDevices(ctx context.Context, tenantID string, crit repository.DeviceCriteria) ([]*domain.Device, int, error) {
	return s.repo.Devices().List(ctx, tenantID, crit)
}

// CreateDeviceElementMapping maps a slot of a composite device's element
// schema to a child device. The child's parent back-reference is kept in
// step. Duplicate schema paths are not policed here; the last mapping for
// a path wins at lookup time.
func (s *Service) CreateDeviceElementMapping(ctx context.Context, tenantID, deviceToken string, mapping domain.DeviceElementMapping) (*domain.Device, error) {
	if mapping.SchemaPath == "" || mapping.DeviceToken == "" {
		return nil, invalidRequest("element mapping needs both schema path and device token")
	}
	d, err := s.GetDeviceByToken(ctx, tenantID, deviceToken)
	if err != nil {
		return nil, err
	}
	child, err := s.repo.Devices().GetByToken(ctx, tenantID, mapping.DeviceToken)
	if err != nil {
		return nil, refErr(err, "mapped device", mapping.DeviceToken)
	}

	d.ElementMappings = append(d.ElementMappings, mapping)
	touch(&d.Entity)
	if err := s.repo.Devices().Update(ctx, tenantID, d); err != nil {
		return nil, storeErr(err, "device", deviceToken)
	}

	child.ParentDeviceID = d.ID
	touch(&child.Entity)
	if err := s.repo.Devices().Update(ctx, tenantID, child); err != nil {
		return nil, storeErr(err, "device", mapping.DeviceToken)
	}
	return d, nil
}

// DeleteDeviceElementMapping removes the mapping at schemaPath. Removing
// a path that is not mapped is a no-op. When a mapping is removed, the
// child's parent back-reference is cleared if the child still resolves.
func (s *Service) DeleteDeviceElementMapping(ctx context.Context, tenantID, deviceToken, schemaPath string) (*domain.Device, error) {
	d, err := s.GetDeviceByToken(ctx, tenantID, deviceToken)
	if err != nil {
		return nil, err
	}
	kept := d.ElementMappings[:0]
	var removed *domain.DeviceElementMapping
	for i := range d.ElementMappings {
		if d.ElementMappings[i].SchemaPath == schemaPath && removed == nil {
			m := d.ElementMappings[i]
			removed = &m
			continue
		}
		kept = append(kept, d.ElementMappings[i])
	}
	if removed == nil {
		return d, nil
	}
	d.ElementMappings = kept
	touch(&d.Entity)
	if err := s.repo.Devices().Update(ctx, tenantID, d); err != nil {
		return nil, storeErr(err, "device", deviceToken)
	}

	child, err := s.repo.Devices().GetByToken(ctx, tenantID, removed.DeviceToken)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return d, nil
		}
		return nil, err
	}
	if child.ParentDeviceID == d.ID {
		child.ParentDeviceID = ""
		touch(&child.Entity)
		if err := s.repo.Devices().Update(ctx, tenantID, child); err != nil {
			return nil, storeErr(err, "device", removed.DeviceToken)
		}
	}
	return d, nil
}
