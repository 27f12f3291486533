package registry

import (
	"context"

	"go.uber.org/zap"

	"device-registry/internal/domain"
	"device-registry/internal/repository"
)

// AreaTypeCreateRequest creates an area type. Token is generated when
// empty. ContainedAreaTypeTokens name the types allowed underneath.
type AreaTypeCreateRequest struct {
	Token                   string
	Name                    string
	Description             string
	Icon                    string
	ContainedAreaTypeTokens []string
	Metadata                map[string]string
}

type AreaTypeUpdateRequest struct {
	Name                    string
	Description             string
	Icon                    string
	ContainedAreaTypeTokens []string
	Metadata                map[string]string
}

func (s *Service) resolveAreaTypeTokens(ctx context.Context, tenantID string, tokens []string) ([]string, error) {
	ids := make([]string, 0, len(tokens))
	for _, t := range tokens {
		at, err := s.repo.AreaTypes().GetByToken(ctx, tenantID, t)
		if err != nil {
			return nil, refErr(err, "area type", t)
		}
		ids = append(ids, at.ID)
	}
	return ids, nil
}

func (s *Service) CreateAreaType(ctx context.Context, tenantID string, req AreaTypeCreateRequest) (*domain.AreaType, error) {
	if req.Name == "" {
		return nil, invalidRequest("area type name is required")
	}
	contained, err := s.resolveAreaTypeTokens(ctx, tenantID, req.ContainedAreaTypeTokens)
	if err != nil {
		return nil, err
	}
	at := &domain.AreaType{
		BrandedEntity:        newBranded(req.Token),
		Name:                 req.Name,
		Description:          req.Description,
		Icon:                 req.Icon,
		ContainedAreaTypeIDs: contained,
	}
	at.Metadata = req.Metadata
	if err := s.repo.AreaTypes().Insert(ctx, tenantID, at); err != nil {
		return nil, storeErr(err, "area type", at.Token)
	}
	s.log.Info("area type created",
		zap.String("tenant_id", tenantID), zap.String("token", at.Token))
	return at, nil
}

func (s *Service) GetAreaType(ctx context.Context, tenantID, id string) (*domain.AreaType, error) {
	at, err := s.repo.AreaTypes().GetByID(ctx, tenantID, id)
	return at, storeErr(err, "area type", id)
}

func (s *Service) GetAreaTypeByToken(ctx context.Context, tenantID, token string) (*domain.AreaType, error) {
	at, err := s.repo.AreaTypes().GetByToken(ctx, tenantID, token)
	return at, storeErr(err, "area type", token)
}

func (s *Service) UpdateAreaType(ctx context.Context, tenantID, token string, req AreaTypeUpdateRequest) (*domain.AreaType, error) {
	at, err := s.GetAreaTypeByToken(ctx, tenantID, token)
	if err != nil {
		return nil, err
	}
	contained, err := s.resolveAreaTypeTokens(ctx, tenantID, req.ContainedAreaTypeTokens)
	if err != nil {
		return nil, err
	}
	at.Name = req.Name
	at.Description = req.Description
	at.Icon = req.Icon
	at.ContainedAreaTypeIDs = contained
	at.Metadata = req.Metadata
	touch(&at.Entity)
	if err := s.repo.AreaTypes().Update(ctx, tenantID, at); err != nil {
		return nil, storeErr(err, "area type", token)
	}
	return at, nil
}

// DeleteAreaType rejects deletion while areas still reference the type.
func (s *Service) DeleteAreaType(ctx context.Context, tenantID, token string, hard bool) (*domain.AreaType, error) {
	at, err := s.GetAreaTypeByToken(ctx, tenantID, token)
	if err != nil {
		return nil, err
	}
	_, n, err := s.repo.Areas().List(ctx, tenantID, repository.AreaCriteria{AreaTypeID: at.ID})
	if err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, inUse("area type %q is referenced by %d area(s)", token, n)
	}
	deleted, err := s.repo.AreaTypes().Delete(ctx, tenantID, at.ID, hard)
	return deleted, storeErr(err, "area type", token)
}

func (s *Service) ListAreaTypes(ctx context.Context, tenantID string, crit repository.SearchCriteria) ([]*domain.AreaType, int, error) {
	return s.repo.AreaTypes().List(ctx, tenantID, crit)
}

// AreaCreateRequest creates an area under an optional parent area.
type AreaCreateRequest struct {
	Token           string
	AreaTypeToken   string
	ParentAreaToken string
	Name            string
	Description     string
	ImageURL        string
	Bounds          []domain.Location
	Metadata        map[string]string
}

type AreaUpdateRequest struct {
	AreaTypeToken   string
	ParentAreaToken string
	Name            string
	Description     string
	ImageURL        string
	Bounds          []domain.Location
	Metadata        map[string]string
}

func (s *Service) resolveAreaRefs(ctx context.Context, tenantID string, req AreaUpdateRequest) (typeID, parentID string, err error) {
	at, err := s.repo.AreaTypes().GetByToken(ctx, tenantID, req.AreaTypeToken)
	if err != nil {
		return "", "", refErr(err, "area type", req.AreaTypeToken)
	}
	typeID = at.ID
	if req.ParentAreaToken != "" {
		parent, err := s.repo.Areas().GetByToken(ctx, tenantID, req.ParentAreaToken)
		if err != nil {
			return "", "", refErr(err, "parent area", req.ParentAreaToken)
		}
		parentID = parent.ID
	}
	return typeID, parentID, nil
}

func (s *Service) CreateArea(ctx context.Context, tenantID string, req AreaCreateRequest) (*domain.Area, error) {
	if req.Name == "" {
		return nil, invalidRequest("area name is required")
	}
	typeID, parentID, err := s.resolveAreaRefs(ctx, tenantID, AreaUpdateRequest{
		AreaTypeToken: req.AreaTypeToken, ParentAreaToken: req.ParentAreaToken})
	if err != nil {
		return nil, err
	}
	a := &domain.Area{
		BrandedEntity: newBranded(req.Token),
		AreaTypeID:    typeID,
		ParentID:      parentID,
		Name:          req.Name,
		Description:   req.Description,
		ImageURL:      req.ImageURL,
		Bounds:        req.Bounds,
	}
	a.Metadata = req.Metadata
	if err := s.repo.Areas().Insert(ctx, tenantID, a); err != nil {
		return nil, storeErr(err, "area", a.Token)
	}
	s.log.Info("area created",
		zap.String("tenant_id", tenantID), zap.String("token", a.Token))
	return a, nil
}

func (s *Service) GetArea(ctx context.Context, tenantID, id string) (*domain.Area, error) {
	a, err := s.repo.Areas().GetByID(ctx, tenantID, id)
	return a, storeErr(err, "area", id)
}

func (s *Service) GetAreaByToken(ctx context.Context, tenantID, token string) (*domain.Area, error) {
	a, err := s.repo.Areas().GetByToken(ctx, tenantID, token)
	return a, storeErr(err, "area", token)
}

func (s *Service) UpdateArea(ctx context.Context, tenantID, token string, req AreaUpdateRequest) (*domain.Area, error) {
	a, err := s.GetAreaByToken(ctx, tenantID, token)
	if err != nil {
		return nil, err
	}
	typeID, parentID, err := s.resolveAreaRefs(ctx, tenantID, req)
	if err != nil {
		return nil, err
	}
	a.AreaTypeID = typeID
	a.ParentID = parentID
	a.Name = req.Name
	a.Description = req.Description
	a.ImageURL = req.ImageURL
	a.Bounds = req.Bounds
	a.Metadata = req.Metadata
	touch(&a.Entity)
	if err := s.repo.Areas().Update(ctx, tenantID, a); err != nil {
		return nil, storeErr(err, "area", token)
	}
	return a, nil
}

func (s *Service) DeleteArea(ctx context.Context, tenantID, token string, hard bool) (*domain.Area, error) {
	a, err := s.GetAreaByToken(ctx, tenantID, token)
	if err != nil {
		return nil, err
	}
	deleted, err := s.repo.Areas().Delete(ctx, tenantID, a.ID, hard)
	return deleted, storeErr(err, "area", token)
}

func (s *Service) ListAreas(ctx context.Context, tenantID string, crit repository.AreaCriteria) ([]*domain.Area, int, error) {
	return s.repo.Areas().List(ctx, tenantID, crit)
}

// ResolveAreaTree arranges the tenant's areas into their containment
// forest. Areas whose parent no longer resolves surface as roots rather
// than disappearing.
func (s *Service) ResolveAreaTree(ctx context.Context, tenantID string) ([]*TreeNode, error) {
	areas, _, err := s.repo.Areas().List(ctx, tenantID, repository.AreaCriteria{})
	if err != nil {
		return nil, err
	}
	return buildTree(areas,
		func(a *domain.Area) *TreeNode {
			return &TreeNode{ID: a.ID, Token: a.Token, Name: a.Name}
		},
		func(a *domain.Area) string { return a.ParentID }), nil
}

// ZoneCreateRequest creates a zone inside an area.
type ZoneCreateRequest struct {
	Token         string
	AreaToken     string
	Name          string
	Bounds        []domain.Location
	BorderColor   string
	BorderOpacity float64
	FillColor     string
	FillOpacity   float64
	Metadata      map[string]string
}

type ZoneUpdateRequest struct {
	Name          string
	Bounds        []domain.Location
	BorderColor   string
	BorderOpacity float64
	FillColor     string
	FillOpacity   float64
	Metadata      map[string]string
}

func (s *Service) CreateZone(ctx context.Context, tenantID string, req ZoneCreateRequest) (*domain.Zone, error) {
	if req.Name == "" {
		return nil, invalidRequest("zone name is required")
	}
	area, err := s.repo.Areas().GetByToken(ctx, tenantID, req.AreaToken)
	if err != nil {
		return nil, refErr(err, "area", req.AreaToken)
	}
	z := &domain.Zone{
		BrandedEntity: newBranded(req.Token),
		AreaID:        area.ID,
		Name:          req.Name,
		Bounds:        req.Bounds,
		BorderColor:   req.BorderColor,
		BorderOpacity: req.BorderOpacity,
		FillColor:     req.FillColor,
		FillOpacity:   req.FillOpacity,
	}
	z.Metadata = req.Metadata
	if err := s.repo.Zones().Insert(ctx, tenantID, z); err != nil {
		return nil, storeErr(err, "zone", z.Token)
	}
	return z, nil
}

func (s *Service) GetZoneByToken(ctx context.Context, tenantID, token string) (*domain.Zone, error) {
	z, err := s.repo.Zones().GetByToken(ctx, tenantID, token)
	return z, storeErr(err, "zone", token)
}

func (s *Service) UpdateZone(ctx context.Context, tenantID, token string, req ZoneUpdateRequest) (*domain.Zone, error) {
	z, err := s.GetZoneByToken(ctx, tenantID, token)
	if err != nil {
		return nil, err
	}
	z.Name = req.Name
	z.Bounds = req.Bounds
	z.BorderColor = req.BorderColor
	z.BorderOpacity = req.BorderOpacity
	z.FillColor = req.FillColor
	z.FillOpacity = req.FillOpacity
	z.Metadata = req.Metadata
	touch(&z.Entity)
	if err := s.repo.Zones().Update(ctx, tenantID, z); err != nil {
		return nil, storeErr(err, "zone", token)
	}
	return z, nil
}

func (s *Service) DeleteZone(ctx context.Context, tenantID, token string, hard bool) (*domain.Zone, error) {
	z, err := s.GetZoneByToken(ctx, tenantID, token)
	if err != nil {
		return nil, err
	}
	deleted, err := s.repo.Zones().Delete(ctx, tenantID, z.ID, hard)
	return deleted, storeErr(err, "zone", token)
}

func (s *Service) ListZones(ctx context.Context, tenantID string, crit repository.ZoneCriteria) ([]*domain.Zone, int, error) {
	return s.repo.Zones().List(ctx, tenantID, crit)
}
