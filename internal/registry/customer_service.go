package registry

import (
	"context"

	"go.uber.org/zap"

	"device-registry/internal/domain"
	"device-registry/internal/repository"
)

type CustomerTypeCreateRequest struct {
	Token                       string
	Name                        string
	Description                 string
	Icon                        string
	ContainedCustomerTypeTokens []string
	Metadata                    map[string]string
}

type CustomerTypeUpdateRequest struct {
	Name                        string
	Description                 string
	Icon                        string
	ContainedCustomerTypeTokens []string
	Metadata                    map[string]string
}

func (s *Service) resolveCustomerTypeTokens(ctx context.Context, tenantID string, tokens []string) ([]string, error) {
	ids := make([]string, 0, len(tokens))
	for _, t := range tokens {
		ct, err := s.repo.CustomerTypes().GetByToken(ctx, tenantID, t)
		if err != nil {
			return nil, refErr(err, "customer type", t)
		}
		ids = append(ids, ct.ID)
	}
	return ids, nil
}

func (s *Service) CreateCustomerType(ctx context.Context, tenantID string, req CustomerTypeCreateRequest) (*domain.CustomerType, error) {
	if req.Name == "" {
		return nil, invalidRequest("customer type name is required")
	}
	contained, err := s.resolveCustomerTypeTokens(ctx, tenantID, req.ContainedCustomerTypeTokens)
	if err != nil {
		return nil, err
	}
	ct := &domain.CustomerType{
		BrandedEntity:            newBranded(req.Token),
		Name:                     req.Name,
		Description:              req.Description,
		Icon:                     req.Icon,
		ContainedCustomerTypeIDs: contained,
	}
	ct.Metadata = req.Metadata
	if err := s.repo.CustomerTypes().Insert(ctx, tenantID, ct); err != nil {
		return nil, storeErr(err, "customer type", ct.Token)
	}
	s.log.Info("customer type created",
		zap.String("tenant_id", tenantID), zap.String("token", ct.Token))
	return ct, nil
}

func (s *Service) GetCustomerTypeByToken(ctx context.Context, tenantID, token string) (*domain.CustomerType, error) {
	ct, err := s.repo.CustomerTypes().GetByToken(ctx, tenantID, token)
	return ct, storeErr(err, "customer type", token)
}

func (s *Service) UpdateCustomerType(ctx context.Context, tenantID, token string, req CustomerTypeUpdateRequest) (*domain.CustomerType, error) {
	ct, err := s.GetCustomerTypeByToken(ctx, tenantID, token)
	if err != nil {
		return nil, err
	}
	contained, err := s.resolveCustomerTypeTokens(ctx, tenantID, req.ContainedCustomerTypeTokens)
	if err != nil {
		return nil, err
	}
	ct.Name = req.Name
	ct.Description = req.Description
	ct.Icon = req.Icon
	ct.ContainedCustomerTypeIDs = contained
	ct.Metadata = req.Metadata
	touch(&ct.Entity)
	if err := s.repo.CustomerTypes().Update(ctx, tenantID, ct); err != nil {
		return nil, storeErr(err, "customer type", token)
	}
	return ct, nil
}

// DeleteCustomerType rejects deletion while customers reference the type.
func (s *Service) DeleteCustomerType(ctx context.Context, tenantID, token string, hard bool) (*domain.CustomerType, error) {
	ct, err := s.GetCustomerTypeByToken(ctx, tenantID, token)
	if err != nil {
		return nil, err
	}
	_, n, err := s.repo.Customers().List(ctx, tenantID, repository.CustomerCriteria{CustomerTypeID: ct.ID})
	if err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, inUse("customer type %q is referenced by %d customer(s)", token, n)
	}
	deleted, err := s.repo.CustomerTypes().Delete(ctx, tenantID, ct.ID, hard)
	return deleted, storeErr(err, "customer type", token)
}

func (s *Service) ListCustomerTypes(ctx context.Context, tenantID string, crit repository.SearchCriteria) ([]*domain.CustomerType, int, error) {
	return s.repo.CustomerTypes().List(ctx, tenantID, crit)
}

type CustomerCreateRequest struct {
	Token               string
	CustomerTypeToken   string
	ParentCustomerToken string
	Name                string
	Description         string
	ImageURL            string
	Metadata            map[string]string
}

type CustomerUpdateRequest struct {
	CustomerTypeToken   string
	ParentCustomerToken string
	Name                string
	Description         string
	ImageURL            string
	Metadata            map[string]string
}

func (s *Service) resolveCustomerRefs(ctx context.Context, tenantID string, req CustomerUpdateRequest) (typeID, parentID string, err error) {
	ct, err := s.repo.CustomerTypes().GetByToken(ctx, tenantID, req.CustomerTypeToken)
	if err != nil {
		return "", "", refErr(err, "customer type", req.CustomerTypeToken)
	}
	typeID = ct.ID
	if req.ParentCustomerToken != "" {
		parent, err := s.repo.Customers().GetByToken(ctx, tenantID, req.ParentCustomerToken)
		if err != nil {
			return "", "", refErr(err, "parent customer", req.ParentCustomerToken)
		}
		parentID = parent.ID
	}
	return typeID, parentID, nil
}

func (s *Service) CreateCustomer(ctx context.Context, tenantID string, req CustomerCreateRequest) (*domain.Customer, error) {
	if req.Name == "" {
		return nil, invalidRequest("customer name is required")
	}
	typeID, parentID, err := s.resolveCustomerRefs(ctx, tenantID, CustomerUpdateRequest{
		CustomerTypeToken: req.CustomerTypeToken, ParentCustomerToken: req.ParentCustomerToken})
	if err != nil {
		return nil, err
	}
	c := &domain.Customer{
		BrandedEntity:  newBranded(req.Token),
		CustomerTypeID: typeID,
		ParentID:       parentID,
		Name:           req.Name,
		Description:    req.Description,
		ImageURL:       req.ImageURL,
	}
	c.Metadata = req.Metadata
	if err := s.repo.Customers().Insert(ctx, tenantID, c); err != nil {
		return nil, storeErr(err, "customer", c.Token)
	}
	s.log.Info("customer created",
		zap.String("tenant_id", tenantID), zap.String("token", c.Token))
	return c, nil
}

func (s *Service) GetCustomerByToken(ctx context.Context, tenantID, token string) (*domain.Customer, error) {
	c, err := s.repo.Customers().GetByToken(ctx, tenantID, token)
	return c, storeErr(err, "customer", token)
}

func (s *Service) UpdateCustomer(ctx context.Context, tenantID, token string, req CustomerUpdateRequest) (*domain.Customer, error) {
	c, err := s.GetCustomerByToken(ctx, tenantID, token)
	if err != nil {
		return nil, err
	}
	typeID, parentID, err := s.resolveCustomerRefs(ctx, tenantID, req)
	if err != nil {
		return nil, err
	}
	c.CustomerTypeID = typeID
	c.ParentID = parentID
	c.Name = req.Name
	c.Description = req.Description
	c.ImageURL = req.ImageURL
	c.Metadata = req.Metadata
	touch(&c.Entity)
	if err := s.repo.Customers().Update(ctx, tenantID, c); err != nil {
		return nil, storeErr(err, "customer", token)
	}
	return c, nil
}

func (s *Service) DeleteCustomer(ctx context.Context, tenantID, token string, hard bool) (*domain.Customer, error) {
	c, err := s.GetCustomerByToken(ctx, tenantID, token)
	if err != nil {
		return nil, err
	}
	deleted, err := s.repo.Customers().Delete(ctx, tenantID, c.ID, hard)
	return deleted, storeErr(err, "customer", token)
}

func (s *Service) ListCustomers(ctx context.Context, tenantID string, crit repository.CustomerCriteria) ([]*domain.Customer, int, error) {
	return s.repo.Customers().List(ctx, tenantID, crit)
}

// ResolveCustomerTree mirrors ResolveAreaTree for the customer forest.
func (s *Service) ResolveCustomerTree(ctx context.Context, tenantID string) ([]*TreeNode, error) {
	customers, _, err := s.repo.Customers().List(ctx, tenantID, repository.CustomerCriteria{})
	if err != nil {
		return nil, err
	}
	return buildTree(customers,
		func(c *domain.Customer) *TreeNode {
			return &TreeNode{ID: c.ID, Token: c.Token, Name: c.Name}
		},
		func(c *domain.Customer) string { return c.ParentID }), nil
}
