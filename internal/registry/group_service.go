package registry

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"device-registry/internal/domain"
	"device-registry/internal/repository"
)

type DeviceGroupCreateRequest struct {
	Token       string
	Name        string
	Description string
	ImageURL    string
	Roles       []string
	Metadata    map[string]string
}

type DeviceGroupUpdateRequest struct {
	Name        string
	Description string
	ImageURL    string
	Roles       []string
	Metadata    map[string]string
}

func (s *Service) CreateDeviceGroup(ctx context.Context, tenantID string, req DeviceGroupCreateRequest) (*domain.DeviceGroup, error) {
	if req.Name == "" {
		return nil, invalidRequest("device group name is required")
	}
	g := &domain.DeviceGroup{
		BrandedEntity: newBranded(req.Token),
		Name:          req.Name,
		Description:   req.Description,
		ImageURL:      req.ImageURL,
		Roles:         req.Roles,
	}
	g.Metadata = req.Metadata
	if err := s.repo.DeviceGroups().Insert(ctx, tenantID, g); err != nil {
		return nil, storeErr(err, "device group", g.Token)
	}
	s.log.Info("device group created",
		zap.String("tenant_id", tenantID), zap.String("token", g.Token))
	return g, nil
}

func (s *Service) GetDeviceGroup(ctx context.Context, tenantID, id string) (*domain.DeviceGroup, error) {
	g, err := s.repo.DeviceGroups().GetByID(ctx, tenantID, id)
	return g, storeErr(err, "device group", id)
}

func (s *Service) GetDeviceGroupByToken(ctx context.Context, tenantID, token string) (*domain.DeviceGroup, error) {
	g, err := s.repo.DeviceGroups().GetByToken(ctx, tenantID, token)
	return g, storeErr(err, "device group", token)
}

func (s *Service) UpdateDeviceGroup(ctx context.Context, tenantID, token string, req DeviceGroupUpdateRequest) (*domain.DeviceGroup, error) {
	g, err := s.GetDeviceGroupByToken(ctx, tenantID, token)
	if err != nil {
		return nil, err
	}
	g.Name = req.Name
	g.Description = req.Description
	g.ImageURL = req.ImageURL
	g.Roles = req.Roles
	g.Metadata = req.Metadata
	touch(&g.Entity)
	if err := s.repo.DeviceGroups().Update(ctx, tenantID, g); err != nil {
		return nil, storeErr(err, "device group", token)
	}
	return g, nil
}

// DeleteDeviceGroup removes a group. A hard delete also removes the
// membership rows and the element counter, which the group exclusively
// owns.
func (s *Service) DeleteDeviceGroup(ctx context.Context, tenantID, token string, hard bool) (*domain.DeviceGroup, error) {
	g, err := s.GetDeviceGroupByToken(ctx, tenantID, token)
	if err != nil {
		return nil, err
	}
	deleted, err := s.repo.DeviceGroups().Delete(ctx, tenantID, g.ID, hard)
	return deleted, storeErr(err, "device group", token)
}

func (s *Service) ListDeviceGroups(ctx context.Context, tenantID string, crit repository.GroupCriteria) ([]*domain.DeviceGroup, int, error) {
	return s.repo.DeviceGroups().List(ctx, tenantID, crit)
}

// ListDeviceGroupsWithRole lists groups tagged with the given role.
func (s *Service) ListDeviceGroupsWithRole(ctx context.Context, tenantID, role string, crit repository.SearchCriteria) ([]*domain.DeviceGroup, int, error) {
	return s.repo.DeviceGroups().List(ctx, tenantID,
		repository.GroupCriteria{SearchCriteria: crit, Role: role})
}

// GroupElementRequest adds one member to a group: exactly one of
// DeviceToken and NestedGroupToken must be set.
type GroupElementRequest struct {
	DeviceToken      string
	NestedGroupToken string
	Roles            []string
}

// AddDeviceGroupElements adds members to a group in request order. Each
// element gets the next index from the group's counter; an index consumed
// by a skipped duplicate is never handed out again. With ignoreDuplicates
// set, members already in the group are skipped; otherwise the first
// duplicate stops the batch. In every case the elements added so far are
// returned alongside any error.
func (s *Service) AddDeviceGroupElements(ctx context.Context, tenantID, groupToken string, reqs []GroupElementRequest, ignoreDuplicates bool) ([]*domain.DeviceGroupElement, error) {
	g, err := s.GetDeviceGroupByToken(ctx, tenantID, groupToken)
	if err != nil {
		return nil, err
	}

	added := []*domain.DeviceGroupElement{}
	for _, req := range reqs {
		if (req.DeviceToken == "") == (req.NestedGroupToken == "") {
			return added, invalidRequest("group element needs exactly one of device token and nested group token")
		}
		el := &domain.DeviceGroupElement{
			Entity:  newEntity(),
			GroupID: g.ID,
			Roles:   req.Roles,
		}
		if req.DeviceToken != "" {
			d, err := s.repo.Devices().GetByToken(ctx, tenantID, req.DeviceToken)
			if err != nil {
				return added, refErr(err, "device", req.DeviceToken)
			}
			el.DeviceID = d.ID
		} else {
			nested, err := s.repo.DeviceGroups().GetByToken(ctx, tenantID, req.NestedGroupToken)
			if err != nil {
				return added, refErr(err, "device group", req.NestedGroupToken)
			}
			el.NestedGroupID = nested.ID
		}

		idx, err := s.repo.DeviceGroups().NextElementIndex(ctx, tenantID, g.ID)
		if err != nil {
			return added, storeErr(err, "device group", groupToken)
		}
		el.Index = idx

		if err := s.repo.DeviceGroupElements().Insert(ctx, tenantID, el); err != nil {
			if errors.Is(err, repository.ErrDuplicateKey) {
				if ignoreDuplicates {
					continue
				}
				return added, newError(CodeDuplicateKey, "group %q already contains this member", groupToken)
			}
			return added, err
		}
		added = append(added, el)
	}
	return added, nil
}

// RemoveDeviceGroupElements removes members by element id, best effort:
// ids that do not resolve are skipped and only the elements actually
// removed are returned.
func (s *Service) RemoveDeviceGroupElements(ctx context.Context, tenantID, groupToken string, elementIDs []string) ([]*domain.DeviceGroupElement, error) {
	g, err := s.GetDeviceGroupByToken(ctx, tenantID, groupToken)
	if err != nil {
		return nil, err
	}
	removed := []*domain.DeviceGroupElement{}
	for _, id := range elementIDs {
		el, err := s.repo.DeviceGroupElements().GetByID(ctx, tenantID, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			return removed, err
		}
		if el.GroupID != g.ID {
			continue
		}
		el, err = s.repo.DeviceGroupElements().Delete(ctx, tenantID, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			return removed, err
		}
		removed = append(removed, el)
	}
	return removed, nil
}

// ListDeviceGroupElements returns a group's members ordered by insertion
// index.
func (s *Service) ListDeviceGroupElements(ctx context.Context, tenantID, groupToken string, crit repository.SearchCriteria) ([]*domain.DeviceGroupElement, int, error) {
	g, err := s.GetDeviceGroupByToken(ctx, tenantID, groupToken)
	if err != nil {
		return nil, 0, err
	}
	return s.repo.DeviceGroupElements().ListByGroup(ctx, tenantID, g.ID, crit)
}
