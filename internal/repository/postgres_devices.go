package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"device-registry/internal/domain"
)

type postgresDevices struct {
	db *sql.DB
}

const deviceCols = `id::text, token, device_type_id::text,
	CASE WHEN parent_device_id IS NULL THEN '' ELSE parent_device_id::text END,
	element_mappings, status, comments,
	CASE WHEN device_assignment_id IS NULL THEN '' ELSE device_assignment_id::text END,
	metadata, created_date, updated_date, deleted`

func scanDevice(sc scanner) (*domain.Device, error) {
	var d domain.Device
	var status, comments sql.NullString
	var mappings, metadata []byte
	if err := sc.Scan(&d.ID, &d.Token, &d.DeviceTypeID, &d.ParentDeviceID, &mappings,
		&status, &comments, &d.DeviceAssignmentID, &metadata,
		&d.CreatedDate, &d.UpdatedDate, &d.Deleted); err != nil {
		return nil, err
	}
	d.Status = strOf(status)
	d.Comments = strOf(comments)
	if err := jsonbScan(mappings, &d.ElementMappings); err != nil {
		return nil, err
	}
	if err := jsonbScan(metadata, &d.Metadata); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *postgresDevices) Insert(ctx context.Context, tenantID string, rec *domain.Device) error {
	mappings, err := jsonbValue(rec.ElementMappings)
	if err != nil {
		return err
	}
	metadata, err := jsonbValue(rec.Metadata)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO devices (id, tenant_id, token, device_type_id, parent_device_id,
			element_mappings, status, comments, device_assignment_id, metadata,
			created_date, updated_date, deleted)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, FALSE)`,
		rec.ID, tenantID, rec.Token, rec.DeviceTypeID, nullStr(rec.ParentDeviceID),
		mappings, nullStr(rec.Status), nullStr(rec.Comments), nullStr(rec.DeviceAssignmentID),
		metadata, rec.CreatedDate, rec.UpdatedDate)
	return mapInsertErr(err)
}

func (s *postgresDevices) GetByID(ctx context.Context, tenantID, id string) (*domain.Device, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+deviceCols+` FROM devices WHERE tenant_id = $1 AND id = $2 AND NOT deleted`,
		tenantID, id)
	d, err := scanDevice(row)
	if err != nil {
		return nil, mapGetErr(err, "device")
	}
	return d, nil
}

func (s *postgresDevices) GetByToken(ctx context.Context, tenantID, token string) (*domain.Device, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+deviceCols+` FROM devices WHERE tenant_id = $1 AND token = $2 AND NOT deleted`,
		tenantID, token)
	d, err := scanDevice(row)
	if err != nil {
		return nil, mapGetErr(err, "device")
	}
	return d, nil
}

func (s *postgresDevices) Update(ctx context.Context, tenantID string, rec *domain.Device) error {
	mappings, err := jsonbValue(rec.ElementMappings)
	if err != nil {
		return err
	}
	metadata, err := jsonbValue(rec.Metadata)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE devices
		SET device_type_id = $3, parent_device_id = $4, element_mappings = $5,
			status = $6, comments = $7, device_assignment_id = $8, metadata = $9,
			updated_date = $10
		WHERE tenant_id = $1 AND id = $2 AND NOT deleted`,
		tenantID, rec.ID, rec.DeviceTypeID, nullStr(rec.ParentDeviceID), mappings,
		nullStr(rec.Status), nullStr(rec.Comments), nullStr(rec.DeviceAssignmentID),
		metadata, rec.UpdatedDate)
	if err != nil {
		return fmt.Errorf("update device: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *postgresDevices) Delete(ctx context.Context, tenantID, id string, hard bool) (*domain.Device, error) {
	var row *sql.Row
	if hard {
		row = s.db.QueryRowContext(ctx,
			`DELETE FROM devices WHERE tenant_id = $1 AND id = $2 AND NOT deleted RETURNING `+deviceCols,
			tenantID, id)
	} else {
		row = s.db.QueryRowContext(ctx,
			`UPDATE devices SET deleted = TRUE, updated_date = now()
			 WHERE tenant_id = $1 AND id = $2 AND NOT deleted RETURNING `+deviceCols,
			tenantID, id)
	}
	d, err := scanDevice(row)
	if err != nil {
		return nil, mapGetErr(err, "device")
	}
	return d, nil
}

func (s *postgresDevices) List(ctx context.Context, tenantID string, crit DeviceCriteria) ([]*domain.Device, int, error) {
	where := []string{"tenant_id = $1"}
	args := []any{tenantID}
	argN := 2
	if crit.DeviceTypeID != "" {
		where = append(where, fmt.Sprintf("device_type_id = $%d", argN))
		args = append(args, crit.DeviceTypeID)
		argN++
	}
	if crit.ParentDeviceID != "" {
		where = append(where, fmt.Sprintf("parent_device_id = $%d", argN))
		args = append(args, crit.ParentDeviceID)
		argN++
	}
	if crit.Assigned != nil {
		if *crit.Assigned {
			where = append(where, "device_assignment_id IS NOT NULL")
		} else {
			where = append(where, "device_assignment_id IS NULL")
		}
	}
	cond := strings.Join(where, " AND ") + deletedClause(crit.SearchCriteria, "")

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM devices WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count devices: %w", err)
	}

	clause, args, _ := limitOffset(crit.SearchCriteria, argN, args)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+deviceCols+` FROM devices WHERE `+cond+` ORDER BY token`+clause, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list devices: %w", err)
	}
	defer rows.Close()

	out := []*domain.Device{}
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, d)
	}
	return out, total, rows.Err()
}
