package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// PostgresRepository is the relational backend. One table per collection
// (see scripts/schema.sql); nested structures (bounds, parameters, element
// mappings, roles, metadata) live in JSONB columns. Uniqueness is enforced
// by partial unique indexes scoped to live rows, so soft delete releases
// the token/composite key while the row itself is retained.
type PostgresRepository struct {
	db *sql.DB

	areaTypes     *postgresAreaTypes
	areas         *postgresAreas
	zones         *postgresZones
	customerTypes *postgresCustomerTypes
	customers     *postgresCustomers
	deviceTypes   *postgresDeviceTypes
	commands      *postgresDeviceCommands
	statuses      *postgresDeviceStatuses
	devices       *postgresDevices
	assignments   *postgresDeviceAssignments
	alarms        *postgresDeviceAlarms
	groups        *postgresDeviceGroups
	elements      *postgresGroupElements
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{
		db:            db,
		areaTypes:     &postgresAreaTypes{db: db},
		areas:         &postgresAreas{db: db},
		zones:         &postgresZones{db: db},
		customerTypes: &postgresCustomerTypes{db: db},
		customers:     &postgresCustomers{db: db},
		deviceTypes:   &postgresDeviceTypes{db: db},
		commands:      &postgresDeviceCommands{db: db},
		statuses:      &postgresDeviceStatuses{db: db},
		devices:       &postgresDevices{db: db},
		assignments:   &postgresDeviceAssignments{db: db},
		alarms:        &postgresDeviceAlarms{db: db},
		groups:        &postgresDeviceGroups{db: db},
		elements:      &postgresGroupElements{db: db},
	}
}

func (r *PostgresRepository) AreaTypes() AreaTypeStore                     { return r.areaTypes }
func (r *PostgresRepository) Areas() AreaStore                             { return r.areas }
func (r *PostgresRepository) Zones() ZoneStore                             { return r.zones }
func (r *PostgresRepository) CustomerTypes() CustomerTypeStore             { return r.customerTypes }
func (r *PostgresRepository) Customers() CustomerStore                     { return r.customers }
func (r *PostgresRepository) DeviceTypes() DeviceTypeStore                 { return r.deviceTypes }
func (r *PostgresRepository) DeviceCommands() DeviceCommandStore           { return r.commands }
func (r *PostgresRepository) DeviceStatuses() DeviceStatusStore            { return r.statuses }
func (r *PostgresRepository) Devices() DeviceStore                         { return r.devices }
func (r *PostgresRepository) DeviceAssignments() DeviceAssignmentStore     { return r.assignments }
func (r *PostgresRepository) DeviceAlarms() DeviceAlarmStore               { return r.alarms }
func (r *PostgresRepository) DeviceGroups() DeviceGroupStore               { return r.groups }
func (r *PostgresRepository) DeviceGroupElements() DeviceGroupElementStore { return r.elements }

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func mapInsertErr(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrDuplicateKey
	}
	return fmt.Errorf("write: %w", err)
}

func mapGetErr(err error, what string) error {
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	return fmt.Errorf("load %s: %w", what, err)
}

// jsonbValue encodes a nested structure for a JSONB column. Empty values
// are stored as SQL NULL.
func jsonbValue(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode jsonb: %w", err)
	}
	s := string(b)
	if s == "null" || s == "{}" || s == "[]" {
		return nil, nil
	}
	return b, nil
}

func jsonbScan(b []byte, dest any) error {
	if len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, dest)
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func strOf(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// deletedClause returns the live-rows filter unless deleted rows were
// requested explicitly.
func deletedClause(crit SearchCriteria, alias string) string {
	if crit.IncludeDeleted {
		return ""
	}
	if alias != "" {
		return " AND NOT " + alias + ".deleted"
	}
	return " AND NOT deleted"
}

// limitOffset appends LIMIT/OFFSET when paging was requested.
func limitOffset(crit SearchCriteria, argN int, args []any) (string, []any, int) {
	if crit.PageSize <= 0 {
		return "", args, argN
	}
	p := crit.Page
	if p <= 0 {
		p = 1
	}
	clause := fmt.Sprintf(" LIMIT $%d OFFSET $%d", argN, argN+1)
	args = append(args, crit.PageSize, (p-1)*crit.PageSize)
	return clause, args, argN + 2
}
