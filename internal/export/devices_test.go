package export_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"device-registry/internal/assets"
	"device-registry/internal/domain"
	"device-registry/internal/export"
	"device-registry/internal/registry"
	"device-registry/internal/repository"
)

const tenant = "tenant-1"

type stubAssets struct{}

func (stubAssets) GetAssetByToken(_ context.Context, token string) (*domain.Asset, error) {
	if token == "pump-1" {
		return &domain.Asset{ID: token, Token: token}, nil
	}
	return nil, assets.ErrAssetNotFound
}

func TestDeviceExporter_Workbook(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	svc := registry.New(repository.NewRedisRepository(client), stubAssets{}, zap.NewNop())
	ctx := context.Background()

	dt, err := svc.CreateDeviceType(ctx, tenant, registry.DeviceTypeCreateRequest{
		Token: "pump-controller", Name: "Pump Controller"})
	require.NoError(t, err)

	assigned, err := svc.CreateDevice(ctx, tenant, registry.DeviceCreateRequest{
		Token: "dev-a", DeviceTypeToken: dt.Token})
	require.NoError(t, err)
	_, err = svc.CreateDevice(ctx, tenant, registry.DeviceCreateRequest{
		Token: "dev-b", DeviceTypeToken: dt.Token})
	require.NoError(t, err)

	a, err := svc.CreateDeviceAssignment(ctx, tenant, registry.DeviceAssignmentCreateRequest{
		DeviceToken: assigned.Token, AssetToken: "pump-1"})
	require.NoError(t, err)

	wb, err := export.NewDeviceExporter(svc, zap.NewNop()).Workbook(ctx, tenant)
	require.NoError(t, err)
	defer wb.Close()

	// Header row plus one row per device, devices ordered by token.
	header, err := wb.GetCellValue("Devices", "A1")
	require.NoError(t, err)
	require.Equal(t, "Device Token", header)

	token, err := wb.GetCellValue("Devices", "A2")
	require.NoError(t, err)
	require.Equal(t, "dev-a", token)

	typeName, err := wb.GetCellValue("Devices", "B2")
	require.NoError(t, err)
	require.Equal(t, "Pump Controller", typeName)

	assignedCell, err := wb.GetCellValue("Devices", "D2")
	require.NoError(t, err)
	require.Equal(t, "TRUE", assignedCell)

	assignmentToken, err := wb.GetCellValue("Devices", "E2")
	require.NoError(t, err)
	require.Equal(t, a.Token, assignmentToken)

	asset, err := wb.GetCellValue("Devices", "G2")
	require.NoError(t, err)
	require.Equal(t, "pump-1", asset)

	unassignedCell, err := wb.GetCellValue("Devices", "D3")
	require.NoError(t, err)
	require.Equal(t, "FALSE", unassignedCell)
}
