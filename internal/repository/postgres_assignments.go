package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"device-registry/internal/domain"
)

type postgresDeviceAssignments struct {
	db *sql.DB
}

const assignmentCols = `id::text, token, device_id::text, device_type_id::text,
	CASE WHEN customer_id IS NULL THEN '' ELSE customer_id::text END,
	CASE WHEN area_id IS NULL THEN '' ELSE area_id::text END,
	asset_id, status, active_date, released_date, metadata, created_date, updated_date, deleted`

func scanAssignment(sc scanner) (*domain.DeviceAssignment, error) {
	var a domain.DeviceAssignment
	var assetID sql.NullString
	var released sql.NullTime
	var metadata []byte
	if err := sc.Scan(&a.ID, &a.Token, &a.DeviceID, &a.DeviceTypeID, &a.CustomerID, &a.AreaID,
		&assetID, &a.Status, &a.ActiveDate, &released, &metadata,
		&a.CreatedDate, &a.UpdatedDate, &a.Deleted); err != nil {
		return nil, err
	}
	a.AssetID = strOf(assetID)
	if released.Valid {
		t := released.Time
		a.ReleasedDate = &t
	}
	if err := jsonbScan(metadata, &a.Metadata); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *postgresDeviceAssignments) Insert(ctx context.Context, tenantID string, rec *domain.DeviceAssignment) error {
	metadata, err := jsonbValue(rec.Metadata)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO device_assignments (id, tenant_id, token, device_id, device_type_id,
			customer_id, area_id, asset_id, status, active_date, released_date, metadata,
			created_date, updated_date, deleted)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, FALSE)`,
		rec.ID, tenantID, rec.Token, rec.DeviceID, rec.DeviceTypeID,
		nullStr(rec.CustomerID), nullStr(rec.AreaID), nullStr(rec.AssetID),
		string(rec.Status), rec.ActiveDate, rec.ReleasedDate, metadata,
		rec.CreatedDate, rec.UpdatedDate)
	return mapInsertErr(err)
}

func (s *postgresDeviceAssignments) GetByID(ctx context.Context, tenantID, id string) (*domain.DeviceAssignment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+assignmentCols+` FROM device_assignments WHERE tenant_id = $1 AND id = $2 AND NOT deleted`,
		tenantID, id)
	a, err := scanAssignment(row)
	if err != nil {
		return nil, mapGetErr(err, "assignment")
	}
	return a, nil
}

func (s *postgresDeviceAssignments) GetByToken(ctx context.Context, tenantID, token string) (*domain.DeviceAssignment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+assignmentCols+` FROM device_assignments WHERE tenant_id = $1 AND token = $2 AND NOT deleted`,
		tenantID, token)
	a, err := scanAssignment(row)
	if err != nil {
		return nil, mapGetErr(err, "assignment")
	}
	return a, nil
}

func (s *postgresDeviceAssignments) Update(ctx context.Context, tenantID string, rec *domain.DeviceAssignment) error {
	metadata, err := jsonbValue(rec.Metadata)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE device_assignments
		SET customer_id = $3, area_id = $4, asset_id = $5, status = $6,
			active_date = $7, released_date = $8, metadata = $9, updated_date = $10
		WHERE tenant_id = $1 AND id = $2 AND NOT deleted`,
		tenantID, rec.ID, nullStr(rec.CustomerID), nullStr(rec.AreaID), nullStr(rec.AssetID),
		string(rec.Status), rec.ActiveDate, rec.ReleasedDate, metadata, rec.UpdatedDate)
	if err != nil {
		return fmt.Errorf("update assignment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *postgresDeviceAssignments) Delete(ctx context.Context, tenantID, id string, hard bool) (*domain.DeviceAssignment, error) {
	var row *sql.Row
	if hard {
		row = s.db.QueryRowContext(ctx,
			`DELETE FROM device_assignments WHERE tenant_id = $1 AND id = $2 AND NOT deleted RETURNING `+assignmentCols,
			tenantID, id)
	} else {
		row = s.db.QueryRowContext(ctx,
			`UPDATE device_assignments SET deleted = TRUE, updated_date = now()
			 WHERE tenant_id = $1 AND id = $2 AND NOT deleted RETURNING `+assignmentCols,
			tenantID, id)
	}
	a, err := scanAssignment(row)
	if err != nil {
		return nil, mapGetErr(err, "assignment")
	}
	return a, nil
}

func (s *postgresDeviceAssignments) List(ctx context.Context, tenantID string, crit AssignmentCriteria) ([]*domain.DeviceAssignment, int, error) {
	where := []string{"tenant_id = $1"}
	args := []any{tenantID}
	argN := 2
	add := func(col, val string) {
		where = append(where, fmt.Sprintf("%s = $%d", col, argN))
		args = append(args, val)
		argN++
	}
	if crit.DeviceID != "" {
		add("device_id", crit.DeviceID)
	}
	if crit.CustomerID != "" {
		add("customer_id", crit.CustomerID)
	}
	if crit.AreaID != "" {
		add("area_id", crit.AreaID)
	}
	if crit.AssetID != "" {
		add("asset_id", crit.AssetID)
	}
	if crit.Status != "" {
		add("status", string(crit.Status))
	}
	cond := strings.Join(where, " AND ") + deletedClause(crit.SearchCriteria, "")

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM device_assignments WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count assignments: %w", err)
	}

	clause, args, _ := limitOffset(crit.SearchCriteria, argN, args)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+assignmentCols+` FROM device_assignments WHERE `+cond+
			` ORDER BY active_date DESC`+clause, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	out := []*domain.DeviceAssignment{}
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	return out, total, rows.Err()
}

type postgresDeviceAlarms struct {
	db *sql.DB
}

const alarmCols = `id::text, device_id::text, device_assignment_id::text,
	CASE WHEN customer_id IS NULL THEN '' ELSE customer_id::text END,
	CASE WHEN area_id IS NULL THEN '' ELSE area_id::text END,
	asset_id, alarm_message, triggering_event_id, state, triggered_date,
	acknowledged_date, resolved_date, metadata, created_date, updated_date, deleted`

func scanAlarm(sc scanner) (*domain.DeviceAlarm, error) {
	var a domain.DeviceAlarm
	var assetID, eventID sql.NullString
	var acked, resolved sql.NullTime
	var metadata []byte
	if err := sc.Scan(&a.ID, &a.DeviceID, &a.DeviceAssignmentID, &a.CustomerID, &a.AreaID,
		&assetID, &a.AlarmMessage, &eventID, &a.State, &a.TriggeredDate,
		&acked, &resolved, &metadata, &a.CreatedDate, &a.UpdatedDate, &a.Deleted); err != nil {
		return nil, err
	}
	a.AssetID = strOf(assetID)
	a.TriggeringEventID = strOf(eventID)
	if acked.Valid {
		t := acked.Time
		a.AcknowledgedDate = &t
	}
	if resolved.Valid {
		t := resolved.Time
		a.ResolvedDate = &t
	}
	if err := jsonbScan(metadata, &a.Metadata); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *postgresDeviceAlarms) Insert(ctx context.Context, tenantID string, rec *domain.DeviceAlarm) error {
	metadata, err := jsonbValue(rec.Metadata)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO device_alarms (id, tenant_id, device_id, device_assignment_id,
			customer_id, area_id, asset_id, alarm_message, triggering_event_id, state,
			triggered_date, acknowledged_date, resolved_date, metadata,
			created_date, updated_date, deleted)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, FALSE)`,
		rec.ID, tenantID, rec.DeviceID, rec.DeviceAssignmentID,
		nullStr(rec.CustomerID), nullStr(rec.AreaID), nullStr(rec.AssetID),
		rec.AlarmMessage, nullStr(rec.TriggeringEventID), string(rec.State),
		rec.TriggeredDate, rec.AcknowledgedDate, rec.ResolvedDate, metadata,
		rec.CreatedDate, rec.UpdatedDate)
	return mapInsertErr(err)
}

func (s *postgresDeviceAlarms) GetByID(ctx context.Context, tenantID, id string) (*domain.DeviceAlarm, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+alarmCols+` FROM device_alarms WHERE tenant_id = $1 AND id = $2 AND NOT deleted`,
		tenantID, id)
	a, err := scanAlarm(row)
	if err != nil {
		return nil, mapGetErr(err, "alarm")
	}
	return a, nil
}

func (s *postgresDeviceAlarms) Update(ctx context.Context, tenantID string, rec *domain.DeviceAlarm) error {
	metadata, err := jsonbValue(rec.Metadata)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE device_alarms
		SET alarm_message = $3, state = $4, acknowledged_date = $5, resolved_date = $6,
			metadata = $7, updated_date = $8
		WHERE tenant_id = $1 AND id = $2 AND NOT deleted`,
		tenantID, rec.ID, rec.AlarmMessage, string(rec.State),
		rec.AcknowledgedDate, rec.ResolvedDate, metadata, rec.UpdatedDate)
	if err != nil {
		return fmt.Errorf("update alarm: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *postgresDeviceAlarms) Delete(ctx context.Context, tenantID, id string, hard bool) (*domain.DeviceAlarm, error) {
	var row *sql.Row
	if hard {
		row = s.db.QueryRowContext(ctx,
			`DELETE FROM device_alarms WHERE tenant_id = $1 AND id = $2 AND NOT deleted RETURNING `+alarmCols,
			tenantID, id)
	} else {
		row = s.db.QueryRowContext(ctx,
			`UPDATE device_alarms SET deleted = TRUE, updated_date = now()
			 WHERE tenant_id = $1 AND id = $2 AND NOT deleted RETURNING `+alarmCols,
			tenantID, id)
	}
	a, err := scanAlarm(row)
	if err != nil {
		return nil, mapGetErr(err, "alarm")
	}
	return a, nil
}

func (s *postgresDeviceAlarms) List(ctx context.Context, tenantID string, crit AlarmCriteria) ([]*domain.DeviceAlarm, int, error) {
	where := []string{"tenant_id = $1"}
	args := []any{tenantID}
	argN := 2
	if crit.DeviceID != "" {
		where = append(where, fmt.Sprintf("device_id = $%d", argN))
		args = append(args, crit.DeviceID)
		argN++
	}
	if crit.DeviceAssignmentID != "" {
		where = append(where, fmt.Sprintf("device_assignment_id = $%d", argN))
		args = append(args, crit.DeviceAssignmentID)
		argN++
	}
	if crit.State != "" {
		where = append(where, fmt.Sprintf("state = $%d", argN))
		args = append(args, string(crit.State))
		argN++
	}
	cond := strings.Join(where, " AND ") + deletedClause(crit.SearchCriteria, "")

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM device_alarms WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count alarms: %w", err)
	}

	clause, args, _ := limitOffset(crit.SearchCriteria, argN, args)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+alarmCols+` FROM device_alarms WHERE `+cond+
			` ORDER BY triggered_date DESC`+clause, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list alarms: %w", err)
	}
	defer rows.Close()

	out := []*domain.DeviceAlarm{}
	for rows.Next() {
		a, err := scanAlarm(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	return out, total, rows.Err()
}
