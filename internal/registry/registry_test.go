package registry_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"device-registry/internal/assets"
	"device-registry/internal/domain"
	"device-registry/internal/registry"
	"device-registry/internal/repository"
)

const testTenant = "tenant-1"

// fakeAssets answers for a fixed set of asset tokens.
type fakeAssets struct {
	known map[string]bool
}

func (f fakeAssets) GetAssetByToken(_ context.Context, token string) (*domain.Asset, error) {
	if f.known[token] {
		return &domain.Asset{ID: token, Token: token, Name: "Asset " + token}, nil
	}
	return nil, assets.ErrAssetNotFound
}

// newService runs the full service stack against an in-process document
// backend. The listed asset tokens resolve; everything else is unknown.
func newService(t *testing.T, assetTokens ...string) *registry.Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	known := map[string]bool{}
	for _, tok := range assetTokens {
		known[tok] = true
	}
	return registry.New(repository.NewRedisRepository(client), fakeAssets{known: known}, zap.NewNop())
}

func seedDeviceType(t *testing.T, svc *registry.Service, token string) *domain.DeviceType {
	t.Helper()
	dt, err := svc.CreateDeviceType(context.Background(), testTenant, registry.DeviceTypeCreateRequest{
		Token:           token,
		Name:            "Type " + token,
		ContainerPolicy: domain.ContainerPolicyComposite,
	})
	require.NoError(t, err)
	return dt
}

func seedDevice(t *testing.T, svc *registry.Service, token, typeToken string) *domain.Device {
	t.Helper()
	d, err := svc.CreateDevice(context.Background(), testTenant, registry.DeviceCreateRequest{
		Token:           token,
		DeviceTypeToken: typeToken,
	})
	require.NoError(t, err)
	return d
}

func requireCode(t *testing.T, err error, code registry.ErrorCode) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, registry.CodeOf(err), "unexpected error: %v", err)
}
