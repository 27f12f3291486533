package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"device-registry/internal/domain"
)

type postgresCustomerTypes struct {
	db *sql.DB
}

const customerTypeCols = `id::text, token, name, description, icon, contained_customer_type_ids,
	metadata, created_date, updated_date, deleted`

func scanCustomerType(sc scanner) (*domain.CustomerType, error) {
	var ct domain.CustomerType
	var desc, icon sql.NullString
	var contained, metadata []byte
	if err := sc.Scan(&ct.ID, &ct.Token, &ct.Name, &desc, &icon, &contained, &metadata,
		&ct.CreatedDate, &ct.UpdatedDate, &ct.Deleted); err != nil {
		return nil, err
	}
	ct.Description = strOf(desc)
	ct.Icon = strOf(icon)
	if err := jsonbScan(contained, &ct.ContainedCustomerTypeIDs); err != nil {
		return nil, err
	}
	if err := jsonbScan(metadata, &ct.Metadata); err != nil {
		return nil, err
	}
	return &ct, nil
}

func (s *postgresCustomerTypes) Insert(ctx context.Context, tenantID string, rec *domain.CustomerType) error {
	contained, err := jsonbValue(rec.ContainedCustomerTypeIDs)
	if err != nil {
		return err
	}
	metadata, err := jsonbValue(rec.Metadata)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO customer_types (id, tenant_id, token, name, description, icon,
			contained_customer_type_ids, metadata, created_date, updated_date, deleted)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, FALSE)`,
		rec.ID, tenantID, rec.Token, rec.Name, nullStr(rec.Description), nullStr(rec.Icon),
		contained, metadata, rec.CreatedDate, rec.UpdatedDate)
	return mapInsertErr(err)
}

func (s *postgresCustomerTypes) GetByID(ctx context.Context, tenantID, id string) (*domain.CustomerType, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+customerTypeCols+` FROM customer_types WHERE tenant_id = $1 AND id = $2 AND NOT deleted`,
		tenantID, id)
	ct, err := scanCustomerType(row)
	if err != nil {
		return nil, mapGetErr(err, "customer type")
	}
	return ct, nil
}

func (s *postgresCustomerTypes) GetByToken(ctx context.Context, tenantID, token string) (*domain.CustomerType, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+customerTypeCols+` FROM customer_types WHERE tenant_id = $1 AND token = $2 AND NOT deleted`,
		tenantID, token)
	ct, err := scanCustomerType(row)
	if err != nil {
		return nil, mapGetErr(err, "customer type")
	}
	return ct, nil
}

func (s *postgresCustomerTypes) Update(ctx context.Context, tenantID string, rec *domain.CustomerType) error {
	contained, err := jsonbValue(rec.ContainedCustomerTypeIDs)
	if err != nil {
		return err
	}
	metadata, err := jsonbValue(rec.Metadata)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE customer_types
		SET name = $3, description = $4, icon = $5, contained_customer_type_ids = $6,
			metadata = $7, updated_date = $8
		WHERE tenant_id = $1 AND id = $2 AND NOT deleted`,
		tenantID, rec.ID, rec.Name, nullStr(rec.Description), nullStr(rec.Icon),
		contained, metadata, rec.UpdatedDate)
	if err != nil {
		return fmt.Errorf("update customer type: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *postgresCustomerTypes) Delete(ctx context.Context, tenantID, id string, hard bool) (*domain.CustomerType, error) {
	var row *sql.Row
	if hard {
		row = s.db.QueryRowContext(ctx,
			`DELETE FROM customer_types WHERE tenant_id = $1 AND id = $2 AND NOT deleted RETURNING `+customerTypeCols,
			tenantID, id)
	} else {
		row = s.db.QueryRowContext(ctx,
			`UPDATE customer_types SET deleted = TRUE, updated_date = now()
			 WHERE tenant_id = $1 AND id = $2 AND NOT deleted RETURNING `+customerTypeCols,
			tenantID, id)
	}
	ct, err := scanCustomerType(row)
	if err != nil {
		return nil, mapGetErr(err, "customer type")
	}
	return ct, nil
}

func (s *postgresCustomerTypes) List(ctx context.Context, tenantID string, crit SearchCriteria) ([]*domain.CustomerType, int, error) {
	where := "tenant_id = $1" + deletedClause(crit, "")
	args := []any{tenantID}

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM customer_types WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count customer types: %w", err)
	}

	clause, args, _ := limitOffset(crit, 2, args)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+customerTypeCols+` FROM customer_types WHERE `+where+` ORDER BY name`+clause, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list customer types: %w", err)
	}
	defer rows.Close()

	out := []*domain.CustomerType{}
	for rows.Next() {
		ct, err := scanCustomerType(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, ct)
	}
	return out, total, rows.Err()
}

type postgresCustomers struct {
	db *sql.DB
}

const customerCols = `id::text, token, customer_type_id::text,
	CASE WHEN parent_id IS NULL THEN '' ELSE parent_id::text END,
	name, description, image_url, metadata, created_date, updated_date, deleted`

func scanCustomer(sc scanner) (*domain.Customer, error) {
	var c domain.Customer
	var desc, image sql.NullString
	var metadata []byte
	if err := sc.Scan(&c.ID, &c.Token, &c.CustomerTypeID, &c.ParentID, &c.Name, &desc, &image,
		&metadata, &c.CreatedDate, &c.UpdatedDate, &c.Deleted); err != nil {
		return nil, err
	}
	c.Description = strOf(desc)
	c.ImageURL = strOf(image)
	if err := jsonbScan(metadata, &c.Metadata); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *postgresCustomers) Insert(ctx context.Context, tenantID string, rec *domain.Customer) error {
	metadata, err := jsonbValue(rec.Metadata)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO customers (id, tenant_id, token, customer_type_id, parent_id, name,
			description, image_url, metadata, created_date, updated_date, deleted)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, FALSE)`,
		rec.ID, tenantID, rec.Token, rec.CustomerTypeID, nullStr(rec.ParentID), rec.Name,
		nullStr(rec.Description), nullStr(rec.ImageURL), metadata,
		rec.CreatedDate, rec.UpdatedDate)
	return mapInsertErr(err)
}

func (s *postgresCustomers) GetByID(ctx context.Context, tenantID, id string) (*domain.Customer, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+customerCols+` FROM customers WHERE tenant_id = $1 AND id = $2 AND NOT deleted`,
		tenantID, id)
	c, err := scanCustomer(row)
	if err != nil {
		return nil, mapGetErr(err, "customer")
	}
	return c, nil
}

func (s *postgresCustomers) GetByToken(ctx context.Context, tenantID, token string) (*domain.Customer, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+customerCols+` FROM customers WHERE tenant_id = $1 AND token = $2 AND NOT deleted`,
		tenantID, token)
	c, err := scanCustomer(row)
	if err != nil {
		return nil, mapGetErr(err, "customer")
	}
	return c, nil
}

func (s *postgresCustomers) Update(ctx context.Context, tenantID string, rec *domain.Customer) error {
	metadata, err := jsonbValue(rec.Metadata)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE customers
		SET customer_type_id = $3, parent_id = $4, name = $5, description = $6,
			image_url = $7, metadata = $8, updated_date = $9
		WHERE tenant_id = $1 AND id = $2 AND NOT deleted`,
		tenantID, rec.ID, rec.CustomerTypeID, nullStr(rec.ParentID), rec.Name,
		nullStr(rec.Description), nullStr(rec.ImageURL), metadata, rec.UpdatedDate)
	if err != nil {
		return fmt.Errorf("update customer: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *postgresCustomers) Delete(ctx context.Context, tenantID, id string, hard bool) (*domain.Customer, error) {
	var row *sql.Row
	if hard {
		row = s.db.QueryRowContext(ctx,
			`DELETE FROM customers WHERE tenant_id = $1 AND id = $2 AND NOT deleted RETURNING `+customerCols,
			tenantID, id)
	} else {
		row = s.db.QueryRowContext(ctx,
			`UPDATE customers SET deleted = TRUE, updated_date = now()
			 WHERE tenant_id = $1 AND id = $2 AND NOT deleted RETURNING `+customerCols,
			tenantID, id)
	}
	c, err := scanCustomer(row)
	if err != nil {
		return nil, mapGetErr(err, "customer")
	}
	return c, nil
}

func (s *postgresCustomers) List(ctx context.Context, tenantID string, crit CustomerCriteria) ([]*domain.Customer, int, error) {
	where := []string{"tenant_id = $1"}
	args := []any{tenantID}
	argN := 2
	if crit.CustomerTypeID != "" {
		where = append(where, fmt.Sprintf("customer_type_id = $%d", argN))
		args = append(args, crit.CustomerTypeID)
		argN++
	}
	if crit.ParentID != "" {
		where = append(where, fmt.Sprintf("parent_id = $%d", argN))
		args = append(args, crit.ParentID)
		argN++
	}
	cond := strings.Join(where, " AND ") + deletedClause(crit.SearchCriteria, "")

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM customers WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count customers: %w", err)
	}

	clause, args, _ := limitOffset(crit.SearchCriteria, argN, args)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+customerCols+` FROM customers WHERE `+cond+` ORDER BY name`+clause, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	out := []*domain.Customer{}
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}
