package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"device-registry/internal/domain"
)

func TestPostgres_UniqueViolationMapsToDuplicateKey(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO area_types").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "ux_area_types_token"})

	store := &postgresAreaTypes{db: db}
	rec := &domain.AreaType{
		BrandedEntity: domain.BrandedEntity{
			Entity: domain.Entity{ID: "id-1", CreatedDate: time.Now(), UpdatedDate: time.Now()},
			Token:  "building",
		},
		Name: "Building",
	}
	err = store.Insert(context.Background(), "tenant-1", rec)
	require.ErrorIs(t, err, ErrDuplicateKey)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_NoRowsMapsToNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT .+ FROM area_types").
		WithArgs("tenant-1", "missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	store := &postgresAreaTypes{db: db}
	_, err = store.GetByToken(context.Background(), "tenant-1", "missing")
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpdateMissingRowIsNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE area_types").
		WillReturnResult(sqlmock.NewResult(0, 0))

	store := &postgresAreaTypes{db: db}
	rec := &domain.AreaType{
		BrandedEntity: domain.BrandedEntity{Entity: domain.Entity{ID: "id-1"}, Token: "t"},
		Name:          "Building",
	}
	err = store.Update(context.Background(), "tenant-1", rec)
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_NextElementIndexReturnsPreIncrementValue(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE device_groups")).
		WithArgs("tenant-1", "g-1").
		WillReturnRows(sqlmock.NewRows([]string{"last_index"}).AddRow(4))

	store := &postgresDeviceGroups{db: db}
	idx, err := store.NextElementIndex(context.Background(), "tenant-1", "g-1")
	require.NoError(t, err)
	require.Equal(t, int64(4), idx)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_NextElementIndexMissingGroup(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE device_groups")).
		WithArgs("tenant-1", "missing").
		WillReturnRows(sqlmock.NewRows([]string{"last_index"}))

	store := &postgresDeviceGroups{db: db}
	_, err = store.NextElementIndex(context.Background(), "tenant-1", "missing")
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GroupHardDeleteCascadesInOneTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM device_group_elements")).
		WithArgs("tenant-1", "g-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery(regexp.QuoteMeta("DELETE FROM device_groups")).
		WithArgs("tenant-1", "g-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "token", "name", "description", "image_url", "roles",
			"last_index", "metadata", "created_date", "updated_date", "deleted",
		}).AddRow("g-1", "fleet", "Fleet", nil, nil, nil, 2, nil, now, now, false))
	mock.ExpectCommit()

	store := &postgresDeviceGroups{db: db}
	g, err := store.Delete(context.Background(), "tenant-1", "g-1", true)
	require.NoError(t, err)
	require.Equal(t, "fleet", g.Token)
	require.Equal(t, int64(2), g.LastIndex)
	require.NoError(t, mock.ExpectationsWereMet())
}
