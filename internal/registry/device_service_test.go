package registry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"device-registry/internal/domain"
	"device-registry/internal/registry"
	"device-registry/internal/repository"
)

func TestDevice_TokenMustMatchHardwareIDRule(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	dt := seedDeviceType(t, svc, "sensor")

	for _, bad := range []string{"", "has space", "slash/y", "percent%"} {
		_, err := svc.CreateDevice(ctx, testTenant, registry.DeviceCreateRequest{
			Token: bad, DeviceTypeToken: dt.Token})
		requireCode(t, err, registry.CodeInvalidRequest)
	}

	d, err := svc.CreateDevice(ctx, testTenant, registry.DeviceCreateRequest{
		Token: "SN-0042_rev2", DeviceTypeToken: dt.Token})
	require.NoError(t, err)
	require.Equal(t, "SN-0042_rev2", d.Token)
}

func TestDevice_UnknownTypeRejected(t *testing.T) {
	svc := newService(t)

	_, err := svc.CreateDevice(context.Background(), testTenant, registry.DeviceCreateRequest{
		Token: "d1", DeviceTypeToken: "missing"})
	requireCode(t, err, registry.CodeInvalidReference)
}

func TestDevice_DeleteGuardedByAssignmentHistory(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	dt := seedDeviceType(t, svc, "sensor")
	d := seedDevice(t, svc, "d1", dt.Token)

	a, err := svc.CreateDeviceAssignment(ctx, testTenant, registry.DeviceAssignmentCreateRequest{
		DeviceToken: d.Token})
	require.NoError(t, err)

	// Actively assigned: blocked.
	_, err = svc.DeleteDevice(ctx, testTenant, d.Token, false)
	requireCode(t, err, registry.CodeInUse)

	// Released but on record: still blocked, the history is the audit trail.
	_, err = svc.EndDeviceAssignment(ctx, testTenant, a.Token)
	require.NoError(t, err)
	_, err = svc.DeleteDevice(ctx, testTenant, d.Token, false)
	requireCode(t, err, registry.CodeInUse)

	// Hard-deleting the history frees the device.
	_, err = svc.DeleteDeviceAssignment(ctx, testTenant, a.Token, true)
	require.NoError(t, err)
	_, err = svc.DeleteDevice(ctx, testTenant, d.Token, false)
	require.NoError(t, err)
}

func TestDevice_ElementMappings(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	dt := seedDeviceType(t, svc, "composite")
	parent := seedDevice(t, svc, "box-1", dt.Token)
	child := seedDevice(t, svc, "probe-1", dt.Token)

	_, err := svc.CreateDeviceElementMapping(ctx, testTenant, parent.Token,
		domain.DeviceElementMapping{SchemaPath: "/slots/0", DeviceToken: "missing"})
	requireCode(t, err, registry.CodeInvalidReference)

	updated, err := svc.CreateDeviceElementMapping(ctx, testTenant, parent.Token,
		domain.DeviceElementMapping{SchemaPath: "/slots/0", DeviceToken: child.Token})
	require.NoError(t, err)
	require.Len(t, updated.ElementMappings, 1)

	// The child's parent back-reference follows the mapping.
	child, err = svc.GetDeviceByToken(ctx, testTenant, child.Token)
	require.NoError(t, err)
	require.Equal(t, parent.ID, child.ParentDeviceID)

	// Removing an unmapped path is a no-op.
	unchanged, err := svc.DeleteDeviceElementMapping(ctx, testTenant, parent.Token, "/slots/9")
	require.NoError(t, err)
	require.Len(t, unchanged.ElementMappings, 1)

	cleared, err := svc.DeleteDeviceElementMapping(ctx, testTenant, parent.Token, "/slots/0")
	require.NoError(t, err)
	require.Empty(t, cleared.ElementMappings)

	child, err = svc.GetDeviceByToken(ctx, testTenant, child.Token)
	require.NoError(t, err)
	require.Empty(t, child.ParentDeviceID)
}

func TestDevice_ListFilters(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	dt := seedDeviceType(t, svc, "sensor")
	other := seedDeviceType(t, svc, "camera")
	d1 := seedDevice(t, svc, "d1", dt.Token)
	seedDevice(t, svc, "d2", dt.Token)
	seedDevice(t, svc, "c1", other.Token)

	_, err := svc.CreateDeviceAssignment(ctx, testTenant, registry.DeviceAssignmentCreateRequest{
		DeviceToken: d1.Token})
	require.NoError(t, err)

	byType, total, err := svc.ListDevices(ctx, testTenant, repository.DeviceCriteria{DeviceTypeID: dt.ID})
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Equal(t, "d1", byType[0].Token) // sorted by token

	assigned := true
	got, total, err := svc.ListDevices(ctx, testTenant, repository.DeviceCriteria{Assigned: &assigned})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, "d1", got[0].Token)

	unassigned := false
	_, total, err = svc.ListDevices(ctx, testTenant, repository.DeviceCriteria{Assigned: &unassigned})
	require.NoError(t, err)
	require.Equal(t, 2, total)
}
