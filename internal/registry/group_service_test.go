package registry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"device-registry/internal/registry"
	"device-registry/internal/repository"
)

func seedGroup(t *testing.T, svc *registry.Service, token string, roles ...string) string {
	t.Helper()
	g, err := svc.CreateDeviceGroup(context.Background(), testTenant, registry.DeviceGroupCreateRequest{
		Token: token, Name: "Group " + token, Roles: roles})
	require.NoError(t, err)
	return g.Token
}

func TestGroupElements_IndicesMonotonicAndNeverReused(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	dt := seedDeviceType(t, svc, "sensor")
	d1 := seedDevice(t, svc, "d1", dt.Token)
	d2 := seedDevice(t, svc, "d2", dt.Token)
	d3 := seedDevice(t, svc, "d3", dt.Token)
	gt := seedGroup(t, svc, "fleet")

	added, err := svc.AddDeviceGroupElements(ctx, testTenant, gt, []registry.GroupElementRequest{
		{DeviceToken: d1.Token},
		{DeviceToken: d2.Token},
	}, false)
	require.NoError(t, err)
	require.Len(t, added, 2)
	require.Equal(t, int64(0), added[0].Index)
	require.Equal(t, int64(1), added[1].Index)

	// A skipped duplicate still consumes an index.
	added, err = svc.AddDeviceGroupElements(ctx, testTenant, gt, []registry.GroupElementRequest{
		{DeviceToken: d1.Token},
		{DeviceToken: d3.Token},
	}, true)
	require.NoError(t, err)
	require.Len(t, added, 1)
	require.Equal(t, d3.ID, added[0].DeviceID)
	require.Equal(t, int64(3), added[0].Index)

	els, total, err := svc.ListDeviceGroupElements(ctx, testTenant, gt, repository.SearchCriteria{})
	require.NoError(t, err)
	require.Equal(t, 3, total)
	// Ordered by ascending index.
	require.Equal(t, int64(0), els[0].Index)
	require.Equal(t, int64(1), els[1].Index)
	require.Equal(t, int64(3), els[2].Index)

	g, err := svc.GetDeviceGroupByToken(ctx, testTenant, gt)
	require.NoError(t, err)
	require.Equal(t, int64(4), g.LastIndex)
}

func TestGroupElements_ExactlyOneReference(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	dt := seedDeviceType(t, svc, "sensor")
	d := seedDevice(t, svc, "d1", dt.Token)
	gt := seedGroup(t, svc, "fleet")
	nested := seedGroup(t, svc, "subfleet")

	_, err := svc.AddDeviceGroupElements(ctx, testTenant, gt, []registry.GroupElementRequest{
		{DeviceToken: d.Token, NestedGroupToken: nested},
	}, false)
	requireCode(t, err, registry.CodeInvalidRequest)

	_, err = svc.AddDeviceGroupElements(ctx, testTenant, gt,
		[]registry.GroupElementRequest{{}}, false)
	requireCode(t, err, registry.CodeInvalidRequest)

	added, err := svc.AddDeviceGroupElements(ctx, testTenant, gt, []registry.GroupElementRequest{
		{NestedGroupToken: nested, Roles: []string{"backup"}},
	}, false)
	require.NoError(t, err)
	require.Len(t, added, 1)
	require.Empty(t, added[0].DeviceID)
}

func TestGroupElements_DuplicateStopsBatchWithPartialResult(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	dt := seedDeviceType(t, svc, "sensor")
	d1 := seedDevice(t, svc, "d1", dt.Token)
	d2 := seedDevice(t, svc, "d2", dt.Token)
	gt := seedGroup(t, svc, "fleet")

	_, err := svc.AddDeviceGroupElements(ctx, testTenant, gt,
		[]registry.GroupElementRequest{{DeviceToken: d1.Token}}, false)
	require.NoError(t, err)

	added, err := svc.AddDeviceGroupElements(ctx, testTenant, gt, []registry.GroupElementRequest{
		{DeviceToken: d2.Token},
		{DeviceToken: d1.Token}, // duplicate
	}, false)
	requireCode(t, err, registry.CodeDuplicateKey)
	require.Len(t, added, 1)
	require.Equal(t, d2.ID, added[0].DeviceID)
}

func TestGroupElements_RemoveBestEffort(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	dt := seedDeviceType(t, svc, "sensor")
	d1 := seedDevice(t, svc, "d1", dt.Token)
	gt := seedGroup(t, svc, "fleet")

	added, err := svc.AddDeviceGroupElements(ctx, testTenant, gt,
		[]registry.GroupElementRequest{{DeviceToken: d1.Token}}, false)
	require.NoError(t, err)

	removed, err := svc.RemoveDeviceGroupElements(ctx, testTenant, gt,
		[]string{added[0].ID, "not-an-element"})
	require.NoError(t, err)
	require.Len(t, removed, 1)
	require.Equal(t, added[0].ID, removed[0].ID)

	_, total, err := svc.ListDeviceGroupElements(ctx, testTenant, gt, repository.SearchCriteria{})
	require.NoError(t, err)
	require.Zero(t, total)
}

func TestGroup_HardDeleteCascadesElementsAndCounter(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	dt := seedDeviceType(t, svc, "sensor")
	d := seedDevice(t, svc, "d1", dt.Token)
	gt := seedGroup(t, svc, "fleet")

	_, err := svc.AddDeviceGroupElements(ctx, testTenant, gt,
		[]registry.GroupElementRequest{{DeviceToken: d.Token}}, false)
	require.NoError(t, err)

	_, err = svc.DeleteDeviceGroup(ctx, testTenant, gt, true)
	require.NoError(t, err)

	// Same token again: a fresh group with no members and a reset counter.
	gt = seedGroup(t, svc, "fleet")
	_, total, err := svc.ListDeviceGroupElements(ctx, testTenant, gt, repository.SearchCriteria{})
	require.NoError(t, err)
	require.Zero(t, total)

	added, err := svc.AddDeviceGroupElements(ctx, testTenant, gt,
		[]registry.GroupElementRequest{{DeviceToken: d.Token}}, false)
	require.NoError(t, err)
	require.Equal(t, int64(0), added[0].Index)
}

func TestGroup_ListWithRole(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	seedGroup(t, svc, "a", "primary", "field")
	seedGroup(t, svc, "b", "backup")
	seedGroup(t, svc, "c", "field")

	groups, total, err := svc.ListDeviceGroupsWithRole(ctx, testTenant, "field", repository.SearchCriteria{})
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Equal(t, "Group a", groups[0].Name)
	require.Equal(t, "Group c", groups[1].Name)
}
