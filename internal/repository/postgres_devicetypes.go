package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"device-registry/internal/domain"
)

type postgresDeviceTypes struct {
	db *sql.DB
}

const deviceTypeCols = `id::text, token, name, description, image_url, container_policy,
	device_element_schema, metadata, created_date, updated_date, deleted`

func scanDeviceType(sc scanner) (*domain.DeviceType, error) {
	var dt domain.DeviceType
	var desc, image, schema sql.NullString
	var metadata []byte
	if err := sc.Scan(&dt.ID, &dt.Token, &dt.Name, &desc, &image, &dt.ContainerPolicy,
		&schema, &metadata, &dt.CreatedDate, &dt.UpdatedDate, &dt.Deleted); err != nil {
		return nil, err
	}
	dt.Description = strOf(desc)
	dt.ImageURL = strOf(image)
	dt.DeviceElementSchema = strOf(schema)
	if err := jsonbScan(metadata, &dt.Metadata); err != nil {
		return nil, err
	}
	return &dt, nil
}

func (s *postgresDeviceTypes) Insert(ctx context.Context, tenantID string, rec *domain.DeviceType) error {
	metadata, err := jsonbValue(rec.Metadata)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO device_types (id, tenant_id, token, name, description, image_url,
			container_policy, device_element_schema, metadata, created_date, updated_date, deleted)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, FALSE)`,
		rec.ID, tenantID, rec.Token, rec.Name, nullStr(rec.Description), nullStr(rec.ImageURL),
		string(rec.ContainerPolicy), nullStr(rec.DeviceElementSchema), metadata,
		rec.CreatedDate, rec.UpdatedDate)
	return mapInsertErr(err)
}

func (s *postgresDeviceTypes) GetByID(ctx context.Context, tenantID, id string) (*domain.DeviceType, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+deviceTypeCols+` FROM device_types WHERE tenant_id = $1 AND id = $2 AND NOT deleted`,
		tenantID, id)
	dt, err := scanDeviceType(row)
	if err != nil {
		return nil, mapGetErr(err, "device type")
	}
	return dt, nil
}

func (s *postgresDeviceTypes) GetByToken(ctx context.Context, tenantID, token string) (*domain.DeviceType, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+deviceTypeCols+` FROM device_types WHERE tenant_id = $1 AND token = $2 AND NOT deleted`,
		tenantID, token)
	dt, err := scanDeviceType(row)
	if err != nil {
		return nil, mapGetErr(err, "device type")
	}
	return dt, nil
}

func (s *postgresDeviceTypes) Update(ctx context.Context, tenantID string, rec *domain.DeviceType) error {
	metadata, err := jsonbValue(rec.Metadata)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE device_types
		SET name = $3, description = $4, image_url = $5, container_policy = $6,
			device_element_schema = $7, metadata = $8, updated_date = $9
		WHERE tenant_id = $1 AND id = $2 AND NOT deleted`,
		tenantID, rec.ID, rec.Name, nullStr(rec.Description), nullStr(rec.ImageURL),
		string(rec.ContainerPolicy), nullStr(rec.DeviceElementSchema), metadata, rec.UpdatedDate)
	if err != nil {
		return fmt.Errorf("update device type: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *postgresDeviceTypes) Delete(ctx context.Context, tenantID, id string, hard bool) (*domain.DeviceType, error) {
	var row *sql.Row
	if hard {
		row = s.db.QueryRowContext(ctx,
			`DELETE FROM device_types WHERE tenant_id = $1 AND id = $2 AND NOT deleted RETURNING `+deviceTypeCols,
			tenantID, id)
	} else {
		row = s.db.QueryRowContext(ctx,
			`UPDATE device_types SET deleted = TRUE, updated_date = now()
			 WHERE tenant_id = $1 AND id = $2 AND NOT deleted RETURNING `+deviceTypeCols,
			tenantID, id)
	}
	dt, err := scanDeviceType(row)
	if err != nil {
		return nil, mapGetErr(err, "device type")
	}
	return dt, nil
}

func (s *postgresDeviceTypes) List(ctx context.Context, tenantID string, crit SearchCriteria) ([]*domain.DeviceType, int, error) {
	where := "tenant_id = $1" + deletedClause(crit, "")
	args := []any{tenantID}

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM device_types WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count device types: %w", err)
	}

	clause, args, _ := limitOffset(crit, 2, args)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+deviceTypeCols+` FROM device_types WHERE `+where+` ORDER BY name`+clause, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list device types: %w", err)
	}
	defer rows.Close()

	out := []*domain.DeviceType{}
	for rows.Next() {
		dt, err := scanDeviceType(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, dt)
	}
	return out, total, rows.Err()
}

type postgresDeviceCommands struct {
	db *sql.DB
}

const commandCols = `id::text, token, device_type_id::text, namespace, name, description,
	parameters, metadata, created_date, updated_date, deleted`

func scanDeviceCommand(sc scanner) (*domain.DeviceCommand, error) {
	var c domain.DeviceCommand
	var ns, desc sql.NullString
	var params, metadata []byte
	if err := sc.Scan(&c.ID, &c.Token, &c.DeviceTypeID, &ns, &c.Name, &desc,
		&params, &metadata, &c.CreatedDate, &c.UpdatedDate, &c.Deleted); err != nil {
		return nil, err
	}
	c.Namespace = strOf(ns)
	c.Description = strOf(desc)
	if err := jsonbScan(params, &c.Parameters); err != nil {
		return nil, err
	}
	if err := jsonbScan(metadata, &c.Metadata); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *postgresDeviceCommands) Insert(ctx context.Context, tenantID string, rec *domain.DeviceCommand) error {
	params, err := jsonbValue(rec.Parameters)
	if err != nil {
		return err
	}
	metadata, err := jsonbValue(rec.Metadata)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO device_commands (id, tenant_id, token, device_type_id, namespace, name,
			description, parameters, metadata, created_date, updated_date, deleted)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, FALSE)`,
		rec.ID, tenantID, rec.Token, rec.DeviceTypeID, nullStr(rec.Namespace), rec.Name,
		nullStr(rec.Description), params, metadata, rec.CreatedDate, rec.UpdatedDate)
	return mapInsertErr(err)
}

func (s *postgresDeviceCommands) GetByID(ctx context.Context, tenantID, id string) (*domain.DeviceCommand, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+commandCols+` FROM device_commands WHERE tenant_id = $1 AND id = $2 AND NOT deleted`,
		tenantID, id)
	c, err := scanDeviceCommand(row)
	if err != nil {
		return nil, mapGetErr(err, "device command")
	}
	return c, nil
}

func (s *postgresDeviceCommands) GetByToken(ctx context.Context, tenantID, token string) (*domain.DeviceCommand, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+commandCols+` FROM device_commands WHERE tenant_id = $1 AND token = $2 AND NOT deleted`,
		tenantID, token)
	c, err := scanDeviceCommand(row)
	if err != nil {
		return nil, mapGetErr(err, "device command")
	}
	return c, nil
}

func (s *postgresDeviceCommands) Update(ctx context.Context, tenantID string, rec *domain.DeviceCommand) error {
	params, err := jsonbValue(rec.Parameters)
	if err != nil {
		return err
	}
	metadata, err := jsonbValue(rec.Metadata)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE device_commands
		SET namespace = $3, name = $4, description = $5, parameters = $6,
			metadata = $7, updated_date = $8
		WHERE tenant_id = $1 AND id = $2 AND NOT deleted`,
		tenantID, rec.ID, nullStr(rec.Namespace), rec.Name, nullStr(rec.Description),
		params, metadata, rec.UpdatedDate)
	if err != nil {
		return fmt.Errorf("update device command: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *postgresDeviceCommands) Delete(ctx context.Context, tenantID, id string, hard bool) (*domain.DeviceCommand, error) {
	var row *sql.Row
	if hard {
		row = s.db.QueryRowContext(ctx,
			`DELETE FROM device_commands WHERE tenant_id = $1 AND id = $2 AND NOT deleted RETURNING `+commandCols,
			tenantID, id)
	} else {
		row = s.db.QueryRowContext(ctx,
			`UPDATE device_commands SET deleted = TRUE, updated_date = now()
			 WHERE tenant_id = $1 AND id = $2 AND NOT deleted RETURNING `+commandCols,
			tenantID, id)
	}
	c, err := scanDeviceCommand(row)
	if err != nil {
		return nil, mapGetErr(err, "device command")
	}
	return c, nil
}

func (s *postgresDeviceCommands) List(ctx context.Context, tenantID string, crit CommandCriteria) ([]*domain.DeviceCommand, int, error) {
	where := []string{"tenant_id = $1"}
	args := []any{tenantID}
	argN := 2
	if crit.DeviceTypeID != "" {
		where = append(where, fmt.Sprintf("device_type_id = $%d", argN))
		args = append(args, crit.DeviceTypeID)
		argN++
	}
	cond := strings.Join(where, " AND ") + deletedClause(crit.SearchCriteria, "")

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM device_commands WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count device commands: %w", err)
	}

	clause, args, _ := limitOffset(crit.SearchCriteria, argN, args)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+commandCols+` FROM device_commands WHERE `+cond+
			` ORDER BY namespace NULLS FIRST, name`+clause, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list device commands: %w", err)
	}
	defer rows.Close()

	out := []*domain.DeviceCommand{}
	for rows.Next() {
		c, err := scanDeviceCommand(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

type postgresDeviceStatuses struct {
	db *sql.DB
}

const statusCols = `id::text, token, device_type_id::text, code, name, background_color,
	foreground_color, border_color, icon, metadata, created_date, updated_date, deleted`

func scanDeviceStatus(sc scanner) (*domain.DeviceStatus, error) {
	var st domain.DeviceStatus
	var name, bg, fg, border, icon sql.NullString
	var metadata []byte
	if err := sc.Scan(&st.ID, &st.Token, &st.DeviceTypeID, &st.Code, &name, &bg, &fg,
		&border, &icon, &metadata, &st.CreatedDate, &st.UpdatedDate, &st.Deleted); err != nil {
		return nil, err
	}
	st.Name = strOf(name)
	st.BackgroundColor = strOf(bg)
	st.ForegroundColor = strOf(fg)
	st.BorderColor = strOf(border)
	st.Icon = strOf(icon)
	if err := jsonbScan(metadata, &st.Metadata); err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *postgresDeviceStatuses) Insert(ctx context.Context, tenantID string, rec *domain.DeviceStatus) error {
	metadata, err := jsonbValue(rec.Metadata)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO device_statuses (id, tenant_id, token, device_type_id, code, name,
			background_color, foreground_color, border_color, icon, metadata,
			created_date, updated_date, deleted)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, FALSE)`,
		rec.ID, tenantID, rec.Token, rec.DeviceTypeID, rec.Code, nullStr(rec.Name),
		nullStr(rec.BackgroundColor), nullStr(rec.ForegroundColor), nullStr(rec.BorderColor),
		nullStr(rec.Icon), metadata, rec.CreatedDate, rec.UpdatedDate)
	return mapInsertErr(err)
}

func (s *postgresDeviceStatuses) GetByID(ctx context.Context, tenantID, id string) (*domain.DeviceStatus, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+statusCols+` FROM device_statuses WHERE tenant_id = $1 AND id = $2 AND NOT deleted`,
		tenantID, id)
	st, err := scanDeviceStatus(row)
	if err != nil {
		return nil, mapGetErr(err, "device status")
	}
	return st, nil
}

func (s *postgresDeviceStatuses) GetByToken(ctx context.Context, tenantID, token string) (*domain.DeviceStatus, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+statusCols+` FROM device_statuses WHERE tenant_id = $1 AND token = $2 AND NOT deleted`,
		tenantID, token)
	st, err := scanDeviceStatus(row)
	if err != nil {
		return nil, mapGetErr(err, "device status")
	}
	return st, nil
}

func (s *postgresDeviceStatuses) Update(ctx context.Context, tenantID string, rec *domain.DeviceStatus) error {
	metadata, err := jsonbValue(rec.Metadata)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE device_statuses
		SET code = $3, name = $4, background_color = $5, foreground_color = $6,
			border_color = $7, icon = $8, metadata = $9, updated_date = $10
		WHERE tenant_id = $1 AND id = $2 AND NOT deleted`,
		tenantID, rec.ID, rec.Code, nullStr(rec.Name), nullStr(rec.BackgroundColor),
		nullStr(rec.ForegroundColor), nullStr(rec.BorderColor), nullStr(rec.Icon),
		metadata, rec.UpdatedDate)
	if err != nil {
		return mapInsertErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *postgresDeviceStatuses) Delete(ctx context.Context, tenantID, id string, hard bool) (*domain.DeviceStatus, error) {
	var row *sql.Row
	if hard {
		row = s.db.QueryRowContext(ctx,
			`DELETE FROM device_statuses WHERE tenant_id = $1 AND id = $2 AND NOT deleted RETURNING `+statusCols,
			tenantID, id)
	} else {
		row = s.db.QueryRowContext(ctx,
			`UPDATE device_statuses SET deleted = TRUE, updated_date = now()
			 WHERE tenant_id = $1 AND id = $2 AND NOT deleted RETURNING `+statusCols,
			tenantID, id)
	}
	st, err := scanDeviceStatus(row)
	if err != nil {
		return nil, mapGetErr(err, "device status")
	}
	return st, nil
}

func (s *postgresDeviceStatuses) List(ctx context.Context, tenantID string, crit StatusCriteria) ([]*domain.DeviceStatus, int, error) {
	where := []string{"tenant_id = $1"}
	args := []any{tenantID}
	argN := 2
	if crit.DeviceTypeID != "" {
		where = append(where, fmt.Sprintf("device_type_id = $%d", argN))
		args = append(args, crit.DeviceTypeID)
		argN++
	}
	if crit.Code != "" {
		where = append(where, fmt.Sprintf("code = $%d", argN))
		args = append(args, crit.Code)
		argN++
	}
	cond := strings.Join(where, " AND ") + deletedClause(crit.SearchCriteria, "")

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM device_statuses WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count device statuses: %w", err)
	}

	clause, args, _ := limitOffset(crit.SearchCriteria, argN, args)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+statusCols+` FROM device_statuses WHERE `+cond+` ORDER BY code`+clause, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list device statuses: %w", err)
	}
	defer rows.Close()

	out := []*domain.DeviceStatus{}
	for rows.Next() {
		st, err := scanDeviceStatus(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, st)
	}
	return out, total, rows.Err()
}
