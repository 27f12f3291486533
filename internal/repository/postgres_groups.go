package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"device-registry/internal/domain"
)

type postgresDeviceGroups struct {
	db *sql.DB
}

const groupCols = `id::text, token, name, description, image_url, roles, last_index,
	metadata, created_date, updated_date, deleted`

func scanDeviceGroup(sc scanner) (*domain.DeviceGroup, error) {
	var g domain.DeviceGroup
	var desc, image sql.NullString
	var roles, metadata []byte
	if err := sc.Scan(&g.ID, &g.Token, &g.Name, &desc, &image, &roles, &g.LastIndex,
		&metadata, &g.CreatedDate, &g.UpdatedDate, &g.Deleted); err != nil {
		return nil, err
	}
	g.Description = strOf(desc)
	g.ImageURL = strOf(image)
	if err := jsonbScan(roles, &g.Roles); err != nil {
		return nil, err
	}
	if err := jsonbScan(metadata, &g.Metadata); err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *postgresDeviceGroups) Insert(ctx context.Context, tenantID string, rec *domain.DeviceGroup) error {
	roles, err := jsonbValue(rec.Roles)
	if err != nil {
		return err
	}
	metadata, err := jsonbValue(rec.Metadata)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO device_groups (id, tenant_id, token, name, description, image_url,
			roles, last_index, metadata, created_date, updated_date, deleted)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8, $9, $10, FALSE)`,
		rec.ID, tenantID, rec.Token, rec.Name, nullStr(rec.Description), nullStr(rec.ImageURL),
		roles, metadata, rec.CreatedDate, rec.UpdatedDate)
	return mapInsertErr(err)
}

func (s *postgresDeviceGroups) GetByID(ctx context.Context, tenantID, id string) (*domain.DeviceGroup, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+groupCols+` FROM device_groups WHERE tenant_id = $1 AND id = $2 AND NOT deleted`,
		tenantID, id)
	g, err := scanDeviceGroup(row)
	if err != nil {
		return nil, mapGetErr(err, "device group")
	}
	return g, nil
}

func (s *postgresDeviceGroups) GetByToken(ctx context.Context, tenantID, token string) (*domain.DeviceGroup, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+groupCols+` FROM device_groups WHERE tenant_id = $1 AND token = $2 AND NOT deleted`,
		tenantID, token)
	g, err := scanDeviceGroup(row)
	if err != nil {
		return nil, mapGetErr(err, "device group")
	}
	return g, nil
}

// Update never touches last_index; the counter only moves through
// NextElementIndex.
func (s *postgresDeviceGroups) Update(ctx context.Context, tenantID string, rec *domain.DeviceGroup) error {
	roles, err := jsonbValue(rec.Roles)
	if err != nil {
		return err
	}
	metadata, err := jsonbValue(rec.Metadata)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE device_groups
		SET name = $3, description = $4, image_url = $5, roles = $6,
			metadata = $7, updated_date = $8
		WHERE tenant_id = $1 AND id = $2 AND NOT deleted`,
		tenantID, rec.ID, rec.Name, nullStr(rec.Description), nullStr(rec.ImageURL),
		roles, metadata, rec.UpdatedDate)
	if err != nil {
		return fmt.Errorf("update device group: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *postgresDeviceGroups) Delete(ctx context.Context, tenantID, id string, hard bool) (*domain.DeviceGroup, error) {
	if !hard {
		row := s.db.QueryRowContext(ctx,
			`UPDATE device_groups SET deleted = TRUE, updated_date = now()
			 WHERE tenant_id = $1 AND id = $2 AND NOT deleted RETURNING `+groupCols,
			tenantID, id)
		g, err := scanDeviceGroup(row)
		if err != nil {
			return nil, mapGetErr(err, "device group")
		}
		return g, nil
	}

	// Hard delete removes membership rows together with the group.
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin delete group: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM device_group_elements WHERE tenant_id = $1 AND group_id = $2`,
		tenantID, id); err != nil {
		return nil, fmt.Errorf("delete group elements: %w", err)
	}
	row := tx.QueryRowContext(ctx,
		`DELETE FROM device_groups WHERE tenant_id = $1 AND id = $2 AND NOT deleted RETURNING `+groupCols,
		tenantID, id)
	g, err := scanDeviceGroup(row)
	if err != nil {
		return nil, mapGetErr(err, "device group")
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit delete group: %w", err)
	}
	return g, nil
}

func (s *postgresDeviceGroups) List(ctx context.Context, tenantID string, crit GroupCriteria) ([]*domain.DeviceGroup, int, error) {
	where := []string{"tenant_id = $1"}
	args := []any{tenantID}
	argN := 2
	if crit.Role != "" {
		where = append(where, fmt.Sprintf("roles @> to_jsonb(ARRAY[$%d::text])", argN))
		args = append(args, crit.Role)
		argN++
	}
	cond := strings.Join(where, " AND ") + deletedClause(crit.SearchCriteria, "")

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM device_groups WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count device groups: %w", err)
	}

	clause, args, _ := limitOffset(crit.SearchCriteria, argN, args)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+groupCols+` FROM device_groups WHERE `+cond+` ORDER BY name`+clause, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list device groups: %w", err)
	}
	defer rows.Close()

	out := []*domain.DeviceGroup{}
	for rows.Next() {
		g, err := scanDeviceGroup(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, g)
	}
	return out, total, rows.Err()
}

// NextElementIndex atomically advances the group counter and returns the
// index to assign. Indices are zero-based and never reused.
func (s *postgresDeviceGroups) NextElementIndex(ctx context.Context, tenantID, groupID string) (int64, error) {
	var idx int64
	err := s.db.QueryRowContext(ctx, `
		UPDATE device_groups
		SET last_index = last_index + 1, updated_date = now()
		WHERE tenant_id = $1 AND id = $2 AND NOT deleted
		RETURNING last_index - 1`,
		tenantID, groupID).Scan(&idx)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("advance group counter: %w", err)
	}
	return idx, nil
}

type postgresGroupElements struct {
	db *sql.DB
}

const elementCols = `id::text, group_id::text,
	CASE WHEN device_id IS NULL THEN '' ELSE device_id::text END,
	CASE WHEN nested_group_id IS NULL THEN '' ELSE nested_group_id::text END,
	roles, element_index, metadata, created_date, updated_date`

func scanGroupElement(sc scanner) (*domain.DeviceGroupElement, error) {
	var el domain.DeviceGroupElement
	var roles, metadata []byte
	if err := sc.Scan(&el.ID, &el.GroupID, &el.DeviceID, &el.NestedGroupID,
		&roles, &el.Index, &metadata, &el.CreatedDate, &el.UpdatedDate); err != nil {
		return nil, err
	}
	if err := jsonbScan(roles, &el.Roles); err != nil {
		return nil, err
	}
	if err := jsonbScan(metadata, &el.Metadata); err != nil {
		return nil, err
	}
	return &el, nil
}

func (s *postgresGroupElements) Insert(ctx context.Context, tenantID string, el *domain.DeviceGroupElement) error {
	roles, err := jsonbValue(el.Roles)
	if err != nil {
		return err
	}
	metadata, err := jsonbValue(el.Metadata)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO device_group_elements (id, tenant_id, group_id, device_id,
			nested_group_id, roles, element_index, metadata, created_date, updated_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		el.ID, tenantID, el.GroupID, nullStr(el.DeviceID), nullStr(el.NestedGroupID),
		roles, el.Index, metadata, el.CreatedDate, el.UpdatedDate)
	return mapInsertErr(err)
}

func (s *postgresGroupElements) GetByID(ctx context.Context, tenantID, id string) (*domain.DeviceGroupElement, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+elementCols+` FROM device_group_elements WHERE tenant_id = $1 AND id = $2`,
		tenantID, id)
	el, err := scanGroupElement(row)
	if err != nil {
		return nil, mapGetErr(err, "group element")
	}
	return el, nil
}

func (s *postgresGroupElements) Delete(ctx context.Context, tenantID, id string) (*domain.DeviceGroupElement, error) {
	row := s.db.QueryRowContext(ctx,
		`DELETE FROM device_group_elements WHERE tenant_id = $1 AND id = $2 RETURNING `+elementCols,
		tenantID, id)
	el, err := scanGroupElement(row)
	if err != nil {
		return nil, mapGetErr(err, "group element")
	}
	return el, nil
}

func (s *postgresGroupElements) ListByGroup(ctx context.Context, tenantID, groupID string, crit SearchCriteria) ([]*domain.DeviceGroupElement, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM device_group_elements WHERE tenant_id = $1 AND group_id = $2`,
		tenantID, groupID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count group elements: %w", err)
	}

	args := []any{tenantID, groupID}
	clause, args, _ := limitOffset(crit, 3, args)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+elementCols+` FROM device_group_elements
		 WHERE tenant_id = $1 AND group_id = $2 ORDER BY element_index`+clause, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list group elements: %w", err)
	}
	defer rows.Close()

	out := []*domain.DeviceGroupElement{}
	for rows.Next() {
		el, err := scanGroupElement(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, el)
	}
	return out, total, rows.Err()
}

func (s *postgresGroupElements) DeleteByGroup(ctx context.Context, tenantID, groupID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM device_group_elements WHERE tenant_id = $1 AND group_id = $2`,
		tenantID, groupID)
	if err != nil {
		return fmt.Errorf("delete group elements: %w", err)
	}
	return nil
}
