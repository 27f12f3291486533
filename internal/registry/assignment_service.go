package registry

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"device-registry/internal/assets"
	"device-registry/internal/domain"
	"device-registry/internal/repository"
)

// DeviceAssignmentCreateRequest assigns a device to an optional customer,
// area and asset. All references are given by token.
type DeviceAssignmentCreateRequest struct {
	Token         string
	DeviceToken   string
	CustomerToken string
	AreaToken     string
	AssetToken    string
	Metadata      map[string]string
}

type DeviceAssignmentUpdateRequest struct {
	CustomerToken string
	AreaToken     string
	AssetToken    string
	Metadata      map[string]string
}

// assignmentRefs resolves the optional customer/area/asset references.
// Asset validity is checked against the asset-management collaborator;
// the asset token itself is stored since assets live outside the registry.
func (s *Service) assignmentRefs(ctx context.Context, tenantID string, req DeviceAssignmentUpdateRequest) (customerID, areaID, assetID string, err error) {
	if req.CustomerToken != "" {
		c, err := s.repo.Customers().GetByToken(ctx, tenantID, req.CustomerToken)
		if err != nil {
			return "", "", "", refErr(err, "customer", req.CustomerToken)
		}
		customerID = c.ID
	}
	if req.AreaToken != "" {
		a, err := s.repo.Areas().GetByToken(ctx, tenantID, req.AreaToken)
		if err != nil {
			return "", "", "", refErr(err, "area", req.AreaToken)
		}
		areaID = a.ID
	}
	if req.AssetToken != "" {
		if _, err := s.assets.GetAssetByToken(ctx, req.AssetToken); err != nil {
			if errors.Is(err, assets.ErrAssetNotFound) {
				return "", "", "", invalidReference("asset", req.AssetToken)
			}
			return "", "", "", err
		}
		assetID = req.AssetToken
	}
	return customerID, areaID, assetID, nil
}

// CreateDeviceAssignment creates an active assignment. The assignment
// record is written before the device back-reference; a crash between the
// two writes leaves the device looking unassigned until repaired, which
// is the accepted trade-off for running without cross-record
// transactions.
func (s *Service) CreateDeviceAssignment(ctx context.Context, tenantID string, req DeviceAssignmentCreateRequest) (*domain.DeviceAssignment, error) {
	d, err := s.repo.Devices().GetByToken(ctx, tenantID, req.DeviceToken)
	if err != nil {
		return nil, refErr(err, "device", req.DeviceToken)
	}
	if d.DeviceAssignmentID != "" {
		return nil, newError(CodeAlreadyAssigned, "device %q already has an active assignment", req.DeviceToken)
	}
	customerID, areaID, assetID, err := s.assignmentRefs(ctx, tenantID, DeviceAssignmentUpdateRequest{
		CustomerToken: req.CustomerToken, AreaToken: req.AreaToken, AssetToken: req.AssetToken})
	if err != nil {
		return nil, err
	}

	a := &domain.DeviceAssignment{
		BrandedEntity: newBranded(req.Token),
		DeviceID:      d.ID,
		DeviceTypeID:  d.DeviceTypeID,
		CustomerID:    customerID,
		AreaID:        areaID,
		AssetID:       assetID,
		Status:        domain.AssignmentActive,
		ActiveDate:    time.Now().UTC(),
	}
	a.Metadata = req.Metadata
	if err := s.repo.DeviceAssignments().Insert(ctx, tenantID, a); err != nil {
		return nil, storeErr(err, "assignment", a.Token)
	}

	d.DeviceAssignmentID = a.ID
	touch(&d.Entity)
	if err := s.repo.Devices().Update(ctx, tenantID, d); err != nil {
		s.log.Error("assignment created but device back-reference update failed",
			zap.String("tenant_id", tenantID),
			zap.String("assignment_id", a.ID),
			zap.String("device_token", req.DeviceToken),
			zap.Error(err))
		return nil, storeErr(err, "device", req.DeviceToken)
	}
	s.log.Info("device assigned",
		zap.String("tenant_id", tenantID),
		zap.String("device_token", req.DeviceToken),
		zap.String("assignment_token", a.Token))
	return a, nil
}

func (s *Service) GetDeviceAssignment(ctx context.Context, tenantID, id string) (*domain.DeviceAssignment, error) {
	a, err := s.repo.DeviceAssignments().GetByID(ctx, tenantID, id)
	return a, storeErr(err, "assignment", id)
}

func (s *Service) GetDeviceAssignmentByToken(ctx context.Context, tenantID, token string) (*domain.DeviceAssignment, error) {
	a, err := s.repo.DeviceAssignments().GetByToken(ctx, tenantID, token)
	return a, storeErr(err, "assignment", token)
}

// UpdateDeviceAssignment re-validates every reference; status and dates
// only change through EndDeviceAssignment.
func (s *Service) UpdateDeviceAssignment(ctx context.Context, tenantID, token string, req DeviceAssignmentUpdateRequest) (*domain.DeviceAssignment, error) {
	a, err := s.GetDeviceAssignmentByToken(ctx, tenantID, token)
	if err != nil {
		return nil, err
	}
	customerID, areaID, assetID, err := s.assignmentRefs(ctx, tenantID, req)
	if err != nil {
		return nil, err
	}
	a.CustomerID = customerID
	a.AreaID = areaID
	a.AssetID = assetID
	a.Metadata = req.Metadata
	touch(&a.Entity)
	if err := s.repo.DeviceAssignments().Update(ctx, tenantID, a); err != nil {
		return nil, storeErr(err, "assignment", token)
	}
	return a, nil
}

// EndDeviceAssignment releases an active assignment and frees the device.
// The assignment record stays as history.
func (s *Service) EndDeviceAssignment(ctx context.Context, tenantID, token string) (*domain.DeviceAssignment, error) {
	a, err := s.GetDeviceAssignmentByToken(ctx, tenantID, token)
	if err != nil {
		return nil, err
	}
	if a.Status == domain.AssignmentReleased {
		return nil, invalidRequest("assignment %q is already released", token)
	}
	now := time.Now().UTC()
	a.Status = domain.AssignmentReleased
	a.ReleasedDate = &now
	touch(&a.Entity)
	if err := s.repo.DeviceAssignments().Update(ctx, tenantID, a); err != nil {
		return nil, storeErr(err, "assignment", token)
	}
	if err := s.clearDeviceBackref(ctx, tenantID, a); err != nil {
		return nil, err
	}
	s.log.Info("device assignment released",
		zap.String("tenant_id", tenantID), zap.String("assignment_token", token))
	return a, nil
}

// clearDeviceBackref clears the device's cached assignment id when it
// still points at the given assignment. A missing device is tolerated.
func (s *Service) clearDeviceBackref(ctx context.Context, tenantID string, a *domain.DeviceAssignment) error {
	d, err := s.repo.Devices().GetByID(ctx, tenantID, a.DeviceID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}
	if d.DeviceAssignmentID != a.ID {
		return nil
	}
	d.DeviceAssignmentID = ""
	touch(&d.Entity)
	if err := s.repo.Devices().Update(ctx, tenantID, d); err != nil {
		return storeErr(err, "device", d.Token)
	}
	return nil
}

// DeleteDeviceAssignment removes the record. The device back-reference is
// cleared only when the deleted record was the device's live assignment.
func (s *Service) DeleteDeviceAssignment(ctx context.Context, tenantID, token string, hard bool) (*domain.DeviceAssignment, error) {
	a, err := s.GetDeviceAssignmentByToken(ctx, tenantID, token)
	if err != nil {
		return nil, err
	}
	deleted, err := s.repo.DeviceAssignments().Delete(ctx, tenantID, a.ID, hard)
	if err != nil {
		return nil, storeErr(err, "assignment", token)
	}
	if err := s.clearDeviceBackref(ctx, tenantID, deleted); err != nil {
		return nil, err
	}
	return deleted, nil
}

// AssignmentListRequest filters assignment history. DeviceToken is
// resolved to the device id; the other filters pass through.
type AssignmentListRequest struct {
	repository.SearchCriteria
	DeviceToken   string
	CustomerToken string
	AreaToken     string
	AssetID       string
	Status        domain.AssignmentStatus
}

func (s *Service) ListDeviceAssignments(ctx context.Context, tenantID string, req AssignmentListRequest) ([]*domain.DeviceAssignment, int, error) {
	crit := repository.AssignmentCriteria{
		SearchCriteria: req.SearchCriteria,
		AssetID:        req.AssetID,
		Status:         req.Status,
	}
	if req.DeviceToken != "" {
		d, err := s.repo.Devices().GetByToken(ctx, tenantID, req.DeviceToken)
		if err != nil {
			return nil, 0, refErr(err, "device", req.DeviceToken)
		}
		crit.DeviceID = d.ID
	}
	if req.CustomerToken != "" {
		c, err := s.repo.Customers().GetByToken(ctx, tenantID, req.CustomerToken)
		if err != nil {
			return nil, 0, refErr(err, "customer", req.CustomerToken)
		}
		crit.CustomerID = c.ID
	}
	if req.AreaToken != "" {
		a, err := s.repo.Areas().GetByToken(ctx, tenantID, req.AreaToken)
		if err != nil {
			return nil, 0, refErr(err, "area", req.AreaToken)
		}
		crit.AreaID = a.ID
	}
	return s.repo.DeviceAssignments().List(ctx, tenantID, crit)
}

// DeviceAlarmCreateRequest raises an alarm in the context of an
// assignment. Device/customer/area/asset references are inherited from
// the assignment; AssetToken optionally overrides the inherited asset.
type DeviceAlarmCreateRequest struct {
	AssignmentToken   string
	AlarmMessage      string
	TriggeringEventID string
	AssetToken        string
	Metadata          map[string]string
}

type DeviceAlarmUpdateRequest struct {
	AlarmMessage string
	State        domain.AlarmState
	Metadata     map[string]string
}

func (s *Service) CreateDeviceAlarm(ctx context.Context, tenantID string, req DeviceAlarmCreateRequest) (*domain.DeviceAlarm, error) {
	if req.AlarmMessage == "" {
		return nil, invalidRequest("alarm message is required")
	}
	a, err := s.repo.DeviceAssignments().GetByToken(ctx, tenantID, req.AssignmentToken)
	if err != nil {
		return nil, refErr(err, "assignment", req.AssignmentToken)
	}
	assetID := a.AssetID
	if req.AssetToken != "" {
		if _, err := s.assets.GetAssetByToken(ctx, req.AssetToken); err != nil {
			if errors.Is(err, assets.ErrAssetNotFound) {
				return nil, invalidReference("asset", req.AssetToken)
			}
			return nil, err
		}
		assetID = req.AssetToken
	}
	alarm := &domain.DeviceAlarm{
		Entity:             newEntity(),
		DeviceID:           a.DeviceID,
		DeviceAssignmentID: a.ID,
		CustomerID:         a.CustomerID,
		AreaID:             a.AreaID,
		AssetID:            assetID,
		AlarmMessage:       req.AlarmMessage,
		TriggeringEventID:  req.TriggeringEventID,
		State:              domain.AlarmTriggered,
		TriggeredDate:      time.Now().UTC(),
	}
	alarm.Metadata = req.Metadata
	if err := s.repo.DeviceAlarms().Insert(ctx, tenantID, alarm); err != nil {
		return nil, storeErr(err, "alarm", alarm.ID)
	}
	return alarm, nil
}

func (s *Service) GetDeviceAlarm(ctx context.Context, tenantID, id string) (*domain.DeviceAlarm, error) {
	alarm, err := s.repo.DeviceAlarms().GetByID(ctx, tenantID, id)
	return alarm, storeErr(err, "alarm", id)
}

// UpdateDeviceAlarm applies message/state changes and stamps the per-state
// timestamp on the transition into acknowledged or resolved.
func (s *Service) UpdateDeviceAlarm(ctx context.Context, tenantID, id string, req DeviceAlarmUpdateRequest) (*domain.DeviceAlarm, error) {
	alarm, err := s.GetDeviceAlarm(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if req.AlarmMessage != "" {
		alarm.AlarmMessage = req.AlarmMessage
	}
	if req.State != "" && req.State != alarm.State {
		now := time.Now().UTC()
		switch req.State {
		case domain.AlarmAcknowledged:
			alarm.AcknowledgedDate = &now
		case domain.AlarmResolved:
			alarm.ResolvedDate = &now
		case domain.AlarmTriggered:
			// Re-triggering resets the downstream timestamps.
			alarm.AcknowledgedDate = nil
			alarm.ResolvedDate = nil
		default:
			return nil, invalidRequest("unknown alarm state %q", req.State)
		}
		alarm.State = req.State
	}
	alarm.Metadata = req.Metadata
	touch(&alarm.Entity)
	if err := s.repo.DeviceAlarms().Update(ctx, tenantID, alarm); err != nil {
		return nil, storeErr(err, "alarm", id)
	}
	return alarm, nil
}

func (s *Service) DeleteDeviceAlarm(ctx context.Context, tenantID, id string, hard bool) (*domain.DeviceAlarm, error) {
	alarm, err := s.repo.DeviceAlarms().Delete(ctx, tenantID, id, hard)
	return alarm, storeErr(err, "alarm", id)
}

func (s *Service) ListDeviceAlarms(ctx context.Context, tenantID string, crit repository.AlarmCriteria) ([]*domain.DeviceAlarm, int, error) {
	return s.repo.DeviceAlarms().List(ctx, tenantID, crit)
}
