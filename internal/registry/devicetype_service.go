package registry

import (
	"context"

	"go.uber.org/zap"

	"device-registry/internal/domain"
	"device-registry/internal/repository"
)

type DeviceTypeCreateRequest struct {
	Token               string
	Name                string
	Description         string
	ImageURL            string
	ContainerPolicy     domain.ContainerPolicy
	DeviceElementSchema string
	Metadata            map[string]string
}

type DeviceTypeUpdateRequest struct {
	Name                string
	Description         string
	ImageURL            string
	ContainerPolicy     domain.ContainerPolicy
	DeviceElementSchema string
	Metadata            map[string]string
}

func validContainerPolicy(p domain.ContainerPolicy) bool {
	return p == domain.ContainerPolicyStandalone || p == domain.ContainerPolicyComposite
}

func (s *Service) CreateDeviceType(ctx context.Context, tenantID string, req DeviceTypeCreateRequest) (*domain.DeviceType, error) {
	if req.Name == "" {
		return nil, invalidRequest("device type name is required")
	}
	policy := req.ContainerPolicy
	if policy == "" {
		policy = domain.ContainerPolicyStandalone
	}
	if !validContainerPolicy(policy) {
		return nil, invalidRequest("unknown container policy %q", policy)
	}
	dt := &domain.DeviceType{
		BrandedEntity:       newBranded(req.Token),
		Name:                req.Name,
		Description:         req.Description,
		ImageURL:            req.ImageURL,
		ContainerPolicy:     policy,
		DeviceElementSchema: req.DeviceElementSchema,
	}
	dt.Metadata = req.Metadata
	if err := s.repo.DeviceTypes().Insert(ctx, tenantID, dt); err != nil {
		return nil, storeErr(err, "device type", dt.Token)
	}
	s.log.Info("device type created",
		zap.String("tenant_id", tenantID), zap.String("token", dt.Token))
	return dt, nil
}

func (s *Service) GetDeviceType(ctx context.Context, tenantID, id string) (*domain.DeviceType, error) {
	dt, err := s.repo.DeviceTypes().GetByID(ctx, tenantID, id)
	return dt, storeErr(err, "device type", id)
}

func (s *Service) GetDeviceTypeByToken(ctx context.Context, tenantID, token string) (*domain.DeviceType, error) {
	dt, err := s.repo.DeviceTypes().GetByToken(ctx, tenantID, token)
	return dt, storeErr(err, "device type", token)
}

func (s *Service) UpdateDeviceType(ctx context.Context, tenantID, token string, req DeviceTypeUpdateRequest) (*domain.DeviceType, error) {
	dt, err := s.GetDeviceTypeByToken(ctx, tenantID, token)
	if err != nil {
		return nil, err
	}
	if req.ContainerPolicy != "" && !validContainerPolicy(req.ContainerPolicy) {
		return nil, invalidRequest("unknown container policy %q", req.ContainerPolicy)
	}
	dt.Name = req.Name
	dt.Description = req.Description
	dt.ImageURL = req.ImageURL
	if req.ContainerPolicy != "" {
		dt.ContainerPolicy = req.ContainerPolicy
	}
	dt.DeviceElementSchema = req.DeviceElementSchema
	dt.Metadata = req.Metadata
	touch(&dt.Entity)
	if err := s.repo.DeviceTypes().Update(ctx, tenantID, dt); err != nil {
		return nil, storeErr(err, "device type", token)
	}
	return dt, nil
}

// DeleteDeviceType rejects deletion while devices of the type exist.
func (s *Service) DeleteDeviceType(ctx context.Context, tenantID, token string, hard bool) (*domain.DeviceType, error) {
	dt, err := s.GetDeviceTypeByToken(ctx, tenantID, token)
	if err != nil {
		return nil, err
	}
	_, n, err := s.repo.Devices().List(ctx, tenantID, repository.DeviceCriteria{DeviceTypeID: dt.ID})
	if err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, inUse("device type %q is referenced by %d device(s)", token, n)
	}
	deleted, err := s.repo.DeviceTypes().Delete(ctx, tenantID, dt.ID, hard)
	return deleted, storeErr(err, "device type", token)
}

func (s *Service) ListDeviceTypes(ctx context.Context, tenantID string, crit repository.SearchCriteria) ([]*domain.DeviceType, int, error) {
	return s.repo.DeviceTypes().List(ctx, tenantID, crit)
}

type DeviceCommandCreateRequest struct {
	Token           string
	DeviceTypeToken string
	Namespace       string
	Name            string
	Description     string
	Parameters      []domain.CommandParameter
	Metadata        map[string]string
}

type DeviceCommandUpdateRequest struct {
	Namespace   string
	Name        string
	Description string
	Parameters  []domain.CommandParameter
	Metadata    map[string]string
}

// commandNameTaken reports whether another live command of the type uses
// the (namespace, name) pair. excludeID skips the command being updated.
func (s *Service) commandNameTaken(ctx context.Context, tenantID, deviceTypeID, namespace, name, excludeID string) (bool, error) {
	cmds, _, err := s.repo.DeviceCommands().List(ctx, tenantID,
		repository.CommandCriteria{DeviceTypeID: deviceTypeID})
	if err != nil {
		return false, err
	}
	for _, c := range cmds {
		if c.ID != excludeID && c.Namespace == namespace && c.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (s *Service) CreateDeviceCommand(ctx context.Context, tenantID string, req DeviceCommandCreateRequest) (*domain.DeviceCommand, error) {
	if req.Name == "" {
		return nil, invalidRequest("command name is required")
	}
	dt, err := s.repo.DeviceTypes().GetByToken(ctx, tenantID, req.DeviceTypeToken)
	if err != nil {
		return nil, refErr(err, "device type", req.DeviceTypeToken)
	}
	taken, err := s.commandNameTaken(ctx, tenantID, dt.ID, req.Namespace, req.Name, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, newError(CodeDuplicateKey,
			"command %s/%s already exists for device type %q", req.Namespace, req.Name, req.DeviceTypeToken)
	}
	cmd := &domain.DeviceCommand{
		BrandedEntity: newBranded(req.Token),
		DeviceTypeID:  dt.ID,
		Namespace:     req.Namespace,
		Name:          req.Name,
		Description:   req.Description,
		Parameters:    req.Parameters,
	}
	cmd.Metadata = req.Metadata
	if err := s.repo.DeviceCommands().Insert(ctx, tenantID, cmd); err != nil {
		return nil, storeErr(err, "device command", cmd.Token)
	}
	return cmd, nil
}

func (s *Service) GetDeviceCommandByToken(ctx context.Context, tenantID, token string) (*domain.DeviceCommand, error) {
	cmd, err := s.repo.DeviceCommands().GetByToken(ctx, tenantID, token)
	return cmd, storeErr(err, "device command", token)
}

func (s *Service) UpdateDeviceCommand(ctx context.Context, tenantID, token string, req DeviceCommandUpdateRequest) (*domain.DeviceCommand, error) {
	cmd, err := s.GetDeviceCommandByToken(ctx, tenantID, token)
	if err != nil {
		return nil, err
	}
	taken, err := s.commandNameTaken(ctx, tenantID, cmd.DeviceTypeID, req.Namespace, req.Name, cmd.ID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, newError(CodeDuplicateKey,
			"command %s/%s already exists for this device type", req.Namespace, req.Name)
	}
	cmd.Namespace = req.Namespace
	cmd.Name = req.Name
	cmd.Description = req.Description
	cmd.Parameters = req.Parameters
	cmd.Metadata = req.Metadata
	touch(&cmd.Entity)
	if err := s.repo.DeviceCommands().Update(ctx, tenantID, cmd); err != nil {
		return nil, storeErr(err, "device command", token)
	}
	return cmd, nil
}

func (s *Service) DeleteDeviceCommand(ctx context.Context, tenantID, token string, hard bool) (*domain.DeviceCommand, error) {
	cmd, err := s.GetDeviceCommandByToken(ctx, tenantID, token)
	if err != nil {
		return nil, err
	}
	deleted, err := s.repo.DeviceCommands().Delete(ctx, tenantID, cmd.ID, hard)
	return deleted, storeErr(err, "device command", token)
}

func (s *Service) ListDeviceCommands(ctx context.Context, tenantID string, crit repository.CommandCriteria) ([]*domain.DeviceCommand, int, error) {
	return s.repo.DeviceCommands().List(ctx, tenantID, crit)
}

type DeviceStatusCreateRequest struct {
	Token           string
	DeviceTypeToken string
	Code            string
	Name            string
	BackgroundColor string
	ForegroundColor string
	BorderColor     string
	Icon            string
	Metadata        map[string]string
}

type DeviceStatusUpdateRequest struct {
	Code            string
	Name            string
	BackgroundColor string
	ForegroundColor string
	BorderColor     string
	Icon            string
	Metadata        map[string]string
}

func (s *Service) CreateDeviceStatus(ctx context.Context, tenantID string, req DeviceStatusCreateRequest) (*domain.DeviceStatus, error) {
	if req.Code == "" {
		return nil, invalidRequest("status code is required")
	}
	dt, err := s.repo.DeviceTypes().GetByToken(ctx, tenantID, req.DeviceTypeToken)
	if err != nil {
		return nil, refErr(err, "device type", req.DeviceTypeToken)
	}
	st := &domain.DeviceStatus{
		BrandedEntity:   newBranded(req.Token),
		DeviceTypeID:    dt.ID,
		Code:            req.Code,
		Name:            req.Name,
		BackgroundColor: req.BackgroundColor,
		ForegroundColor: req.ForegroundColor,
		BorderColor:     req.BorderColor,
		Icon:            req.Icon,
	}
	st.Metadata = req.Metadata
	if err := s.repo.DeviceStatuses().Insert(ctx, tenantID, st); err != nil {
		return nil, storeErr(err, "device status", st.Code)
	}
	return st, nil
}

func (s *Service) GetDeviceStatusByToken(ctx context.Context, tenantID, token string) (*domain.DeviceStatus, error) {
	st, err := s.repo.DeviceStatuses().GetByToken(ctx, tenantID, token)
	return st, storeErr(err, "device status", token)
}

func (s *Service) UpdateDeviceStatus(ctx context.Context, tenantID, token string, req DeviceStatusUpdateRequest) (*domain.DeviceStatus, error) {
	st, err := s.GetDeviceStatusByToken(ctx, tenantID, token)
	if err != nil {
		return nil, err
	}
	if req.Code == "" {
		return nil, invalidRequest("status code is required")
	}
	st.Code = req.Code
	st.Name = req.Name
	st.BackgroundColor = req.BackgroundColor
	st.ForegroundColor = req.ForegroundColor
	st.BorderColor = req.BorderColor
	st.Icon = req.Icon
	st.Metadata = req.Metadata
	touch(&st.Entity)
	if err := s.repo.DeviceStatuses().Update(ctx, tenantID, st); err != nil {
		return nil, storeErr(err, "device status", req.Code)
	}
	return st, nil
}

func (s *Service) DeleteDeviceStatus(ctx context.Context, tenantID, token string, hard bool) (*domain.DeviceStatus, error) {
	st, err := s.GetDeviceStatusByToken(ctx, tenantID, token)
	if err != nil {
		return nil, err
	}
	deleted, err := s.repo.DeviceStatuses().Delete(ctx, tenantID, st.ID, hard)
	return deleted, storeErr(err, "device status", token)
}

func (s *Service) ListDeviceStatuses(ctx context.Context, tenantID string, crit repository.StatusCriteria) ([]*domain.DeviceStatus, int, error) {
	return s.repo.DeviceStatuses().List(ctx, tenantID, crit)
}
