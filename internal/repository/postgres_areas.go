package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"device-registry/internal/domain"
)

type postgresAreaTypes struct {
	db *sql.DB
}

const areaTypeCols = `id::text, token, name, description, icon, contained_area_type_ids, metadata, created_date, updated_date, deleted`

func scanAreaType(sc scanner) (*domain.AreaType, error) {
	var at domain.AreaType
	var desc, icon sql.NullString
	var contained, metadata []byte
	if err := sc.Scan(&at.ID, &at.Token, &at.Name, &desc, &icon, &contained, &metadata,
		&at.CreatedDate, &at.UpdatedDate, &at.Deleted); err != nil {
		return nil, err
	}
	at.Description = strOf(desc)
	at.Icon = strOf(icon)
	if err := jsonbScan(contained, &at.ContainedAreaTypeIDs); err != nil {
		return nil, err
	}
	if err := jsonbScan(metadata, &at.Metadata); err != nil {
		return nil, err
	}
	return &at, nil
}

func (s *postgresAreaTypes) Insert(ctx context.Context, tenantID string, rec *domain.AreaType) error {
	contained, err := jsonbValue(rec.ContainedAreaTypeIDs)
	if err != nil {
		return err
	}
	metadata, err := jsonbValue(rec.Metadata)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO area_types (id, tenant_id, token, name, description, icon,
			contained_area_type_ids, metadata, created_date, updated_date, deleted)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, FALSE)`,
		rec.ID, tenantID, rec.Token, rec.Name, nullStr(rec.Description), nullStr(rec.Icon),
		contained, metadata, rec.CreatedDate, rec.UpdatedDate)
	return mapInsertErr(err)
}

func (s *postgresAreaTypes) GetByID(ctx context.Context, tenantID, id string) (*domain.AreaType, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+areaTypeCols+` FROM area_types WHERE tenant_id = $1 AND id = $2 AND NOT deleted`,
		tenantID, id)
	at, err := scanAreaType(row)
	if err != nil {
		return nil, mapGetErr(err, "area type")
	}
	return at, nil
}

func (s *postgresAreaTypes) GetByToken(ctx context.Context, tenantID, token string) (*domain.AreaType, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+areaTypeCols+` FROM area_types WHERE tenant_id = $1 AND token = $2 AND NOT deleted`,
		tenantID, token)
	at, err := scanAreaType(row)
	if err != nil {
		return nil, mapGetErr(err, "area type")
	}
	return at, nil
}

func (s *postgresAreaTypes) Update(ctx context.Context, tenantID string, rec *domain.AreaType) error {
	contained, err := jsonbValue(rec.ContainedAreaTypeIDs)
	if err != nil {
		return err
	}
	metadata, err := jsonbValue(rec.Metadata)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE area_types
		SET name = $3, description = $4, icon = $5, contained_area_type_ids = $6,
			metadata = $7, updated_date = $8
		WHERE tenant_id = $1 AND id = $2 AND NOT deleted`,
		tenantID, rec.ID, rec.Name, nullStr(rec.Description), nullStr(rec.Icon),
		contained, metadata, rec.UpdatedDate)
	if err != nil {
		return fmt.Errorf("update area type: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *postgresAreaTypes) Delete(ctx context.Context, tenantID, id string, hard bool) (*domain.AreaType, error) {
	var row *sql.Row
	if hard {
		row = s.db.QueryRowContext(ctx,
			`DELETE FROM area_types WHERE tenant_id = $1 AND id = $2 AND NOT deleted RETURNING `+areaTypeCols,
			tenantID, id)
	} else {
		row = s.db.QueryRowContext(ctx,
			`UPDATE area_types SET deleted = TRUE, updated_date = now()
			 WHERE tenant_id = $1 AND id = $2 AND NOT deleted RETURNING `+areaTypeCols,
			tenantID, id)
	}
	at, err := scanAreaType(row)
	if err != nil {
		return nil, mapGetErr(err, "area type")
	}
	return at, nil
}

func (s *postgresAreaTypes) List(ctx context.Context, tenantID string, crit SearchCriteria) ([]*domain.AreaType, int, error) {
	where := "tenant_id = $1" + deletedClause(crit, "")
	args := []any{tenantID}

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM area_types WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count area types: %w", err)
	}

	clause, args, _ := limitOffset(crit, 2, args)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+areaTypeCols+` FROM area_types WHERE `+where+` ORDER BY name`+clause, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list area types: %w", err)
	}
	defer rows.Close()

	out := []*domain.AreaType{}
	for rows.Next() {
		at, err := scanAreaType(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, at)
	}
	return out, total, rows.Err()
}

type postgresAreas struct {
	db *sql.DB
}

const areaCols = `id::text, token, area_type_id::text,
	CASE WHEN parent_id IS NULL THEN '' ELSE parent_id::text END,
	name, description, image_url, bounds, metadata, created_date, updated_date, deleted`

func scanArea(sc scanner) (*domain.Area, error) {
	var a domain.Area
	var desc, image sql.NullString
	var bounds, metadata []byte
	if err := sc.Scan(&a.ID, &a.Token, &a.AreaTypeID, &a.ParentID, &a.Name, &desc, &image,
		&bounds, &metadata, &a.CreatedDate, &a.UpdatedDate, &a.Deleted); err != nil {
		return nil, err
	}
	a.Description = strOf(desc)
	a.ImageURL = strOf(image)
	if err := jsonbScan(bounds, &a.Bounds); err != nil {
		return nil, err
	}
	if err := jsonbScan(metadata, &a.Metadata); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *postgresAreas) Insert(ctx context.Context, tenantID string, rec *domain.Area) error {
	bounds, err := jsonbValue(rec.Bounds)
	if err != nil {
		return err
	}
	metadata, err := jsonbValue(rec.Metadata)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO areas (id, tenant_id, token, area_type_id, parent_id, name, description,
			image_url, bounds, metadata, created_date, updated_date, deleted)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, FALSE)`,
		rec.ID, tenantID, rec.Token, rec.AreaTypeID, nullStr(rec.ParentID), rec.Name,
		nullStr(rec.Description), nullStr(rec.ImageURL), bounds, metadata,
		rec.CreatedDate, rec.UpdatedDate)
	return mapInsertErr(err)
}

func (s *postgresAreas) GetByID(ctx context.Context, tenantID, id string) (*domain.Area, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+areaCols+` FROM areas WHERE tenant_id = $1 AND id = $2 AND NOT deleted`,
		tenantID, id)
	a, err := scanArea(row)
	if err != nil {
		return nil, mapGetErr(err, "area")
	}
	return a, nil
}

func (s *postgresAreas) GetByToken(ctx context.Context, tenantID, token string) (*domain.Area, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+areaCols+` FROM areas WHERE tenant_id = $1 AND token = $2 AND NOT deleted`,
		tenantID, token)
	a, err := scanArea(row)
	if err != nil {
		return nil, mapGetErr(err, "area")
	}
	return a, nil
}

func (s *postgresAreas) Update(ctx context.Context, tenantID string, rec *domain.Area) error {
	bounds, err := jsonbValue(rec.Bounds)
	if err != nil {
		return err
	}
	metadata, err := jsonbValue(rec.Metadata)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE areas
		SET area_type_id = $3, parent_id = $4, name = $5, description = $6,
			image_url = $7, bounds = $8, metadata = $9, updated_date = $10
		WHERE tenant_id = $1 AND id = $2 AND NOT deleted`,
		tenantID, rec.ID, rec.AreaTypeID, nullStr(rec.ParentID), rec.Name,
		nullStr(rec.Description), nullStr(rec.ImageURL), bounds, metadata, rec.UpdatedDate)
	if err != nil {
		return fmt.Errorf("update area: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *postgresAreas) Delete(ctx context.Context, tenantID, id string, hard bool) (*domain.Area, error) {
	var row *sql.Row
	if hard {
		row = s.db.QueryRowContext(ctx,
			`DELETE FROM areas WHERE tenant_id = $1 AND id = $2 AND NOT deleted RETURNING `+areaCols,
			tenantID, id)
	} else {
		row = s.db.QueryRowContext(ctx,
			`UPDATE areas SET deleted = TRUE, updated_date = now()
			 WHERE tenant_id = $1 AND id = $2 AND NOT deleted RETURNING `+areaCols,
			tenantID, id)
	}
	a, err := scanArea(row)
	if err != nil {
		return nil, mapGetErr(err, "area")
	}
	return a, nil
}

func (s *postgresAreas) List(ctx context.Context, tenantID string, crit AreaCriteria) ([]*domain.Area, int, error) {
	where := []string{"tenant_id = $1"}
	args := []any{tenantID}
	argN := 2
	if crit.AreaTypeID != "" {
		where = append(where, fmt.Sprintf("area_type_id = $%d", argN))
		args = append(args, crit.AreaTypeID)
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
		`SELECT COUNT(*) FROM areas WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count areas: %w", err)
	}

	clause, args, _ := limitOffset(crit.SearchCriteria, argN, args)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+areaCols+` FROM areas WHERE `+cond+` ORDER BY name`+clause, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list areas: %w", err)
	}
	defer rows.Close()

	out := []*domain.Area{}
	for rows.Next() {
		a, err := scanArea(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	return out, total, rows.Err()
}

type postgresZones struct {
	db *sql.DB
}

const zoneCols = `id::text, token, area_id::text, name, bounds, border_color, border_opacity,
	fill_color, fill_opacity, metadata, created_date, updated_date, deleted`

func scanZone(sc scanner) (*domain.Zone, error) {
	var z domain.Zone
	var borderColor, fillColor sql.NullString
	var borderOpacity, fillOpacity sql.NullFloat64
	var bounds, metadata []byte
	if err := sc.Scan(&z.ID, &z.Token, &z.AreaID, &z.Name, &bounds, &borderColor, &borderOpacity,
		&fillColor, &fillOpacity, &metadata, &z.CreatedDate, &z.UpdatedDate, &z.Deleted); err != nil {
		return nil, err
	}
	z.BorderColor = strOf(borderColor)
	z.FillColor = strOf(fillColor)
	z.BorderOpacity = borderOpacity.Float64
	z.FillOpacity = fillOpacity.Float64
	if err := jsonbScan(bounds, &z.Bounds); err != nil {
		return nil, err
	}
	if err := jsonbScan(metadata, &z.Metadata); err != nil {
		return nil, err
	}
	return &z, nil
}

func (s *postgresZones) Insert(ctx context.Context, tenantID string, rec *domain.Zone) error {
	bounds, err := jsonbValue(rec.Bounds)
	if err != nil {
		return err
	}
	metadata, err := jsonbValue(rec.Metadata)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO zones (id, tenant_id, token, area_id, name, bounds, border_color,
			border_opacity, fill_color, fill_opacity, metadata, created_date, updated_date, deleted)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, FALSE)`,
		rec.ID, tenantID, rec.Token, rec.AreaID, rec.Name, bounds, nullStr(rec.BorderColor),
		rec.BorderOpacity, nullStr(rec.FillColor), rec.FillOpacity, metadata,
		rec.CreatedDate, rec.UpdatedDate)
	return mapInsertErr(err)
}

func (s *postgresZones) GetByID(ctx context.Context, tenantID, id string) (*domain.Zone, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+zoneCols+` FROM zones WHERE tenant_id = $1 AND id = $2 AND NOT deleted`,
		tenantID, id)
	z, err := scanZone(row)
	if err != nil {
		return nil, mapGetErr(err, "zone")
	}
	return z, nil
}

func (s *postgresZones) GetByToken(ctx context.Context, tenantID, token string) (*domain.Zone, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+zoneCols+` FROM zones WHERE tenant_id = $1 AND token = $2 AND NOT deleted`,
		tenantID, token)
	z, err := scanZone(row)
	if err != nil {
		return nil, mapGetErr(err, "zone")
	}
	return z, nil
}

func (s *postgresZones) Update(ctx context.Context, tenantID string, rec *domain.Zone) error {
	bounds, err := jsonbValue(rec.Bounds)
	if err != nil {
		return err
	}
	metadata, err := jsonbValue(rec.Metadata)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE zones
		SET name = $3, bounds = $4, border_color = $5, border_opacity = $6,
			fill_color = $7, fill_opacity = $8, metadata = $9, updated_date = $10
		WHERE tenant_id = $1 AND id = $2 AND NOT deleted`,
		tenantID, rec.ID, rec.Name, bounds, nullStr(rec.BorderColor), rec.BorderOpacity,
		nullStr(rec.FillColor), rec.FillOpacity, metadata, rec.UpdatedDate)
	if err != nil {
		return fmt.Errorf("update zone: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *postgresZones) Delete(ctx context.Context, tenantID, id string, hard bool) (*domain.Zone, error) {
	var row *sql.Row
	if hard {
		row = s.db.QueryRowContext(ctx,
			`DELETE FROM zones WHERE tenant_id = $1 AND id = $2 AND NOT deleted RETURNING `+zoneCols,
			tenantID, id)
	} else {
		row = s.db.QueryRowContext(ctx,
			`UPDATE zones SET deleted = TRUE, updated_date = now()
			 WHERE tenant_id = $1 AND id = $2 AND NOT deleted RETURNING `+zoneCols,
			tenantID, id)
	}
	z, err := scanZone(row)
	if err != nil {
		return nil, mapGetErr(err, "zone")
	}
	return z, nil
}

func (s *postgresZones) List(ctx context.Context, tenantID string, crit ZoneCriteria) ([]*domain.Zone, int, error) {
	where := []string{"tenant_id = $1"}
	args := []any{tenantID}
	argN := 2
	if crit.AreaID != "" {
		where = append(where, fmt.Sprintf("area_id = $%d", argN))
		args = append(args, crit.AreaID)
		argN++
	}
	cond := strings.Join(where, " AND ") + deletedClause(crit.SearchCriteria, "")

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM zones WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count zones: %w", err)
	}

	clause, args, _ := limitOffset(crit.SearchCriteria, argN, args)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+zoneCols+` FROM zones WHERE `+cond+` ORDER BY name`+clause, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list zones: %w", err)
	}
	defer rows.Close()

	out := []*domain.Zone{}
	for rows.Next() {
		z, err := scanZone(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, z)
	}
	return out, total, rows.Err()
}
