package registry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"device-registry/internal/domain"
	"device-registry/internal/registry"
	"device-registry/internal/repository"
)

func TestDeviceType_ContainerPolicyValidated(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.CreateDeviceType(ctx, testTenant, registry.DeviceTypeCreateRequest{
		Token: "bad", Name: "Bad", ContainerPolicy: "nested"})
	requireCode(t, err, registry.CodeInvalidRequest)

	dt, err := svc.CreateDeviceType(ctx, testTenant, registry.DeviceTypeCreateRequest{
		Token: "plain", Name: "Plain"})
	require.NoError(t, err)
	require.Equal(t, domain.ContainerPolicyStandalone, dt.ContainerPolicy)
}

func TestDeviceType_DeleteGuardedWhileDevicesExist(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	dt := seedDeviceType(t, svc, "gateway")
	d := seedDevice(t, svc, "gw-001", dt.Token)

	_, err := svc.DeleteDeviceType(ctx, testTenant, dt.Token, false)
	requireCode(t, err, registry.CodeInUse)

	_, err = svc.DeleteDevice(ctx, testTenant, d.Token, false)
	require.NoError(t, err)

	_, err = svc.DeleteDeviceType(ctx, testTenant, dt.Token, false)
	require.NoError(t, err)
}

func TestDeviceCommand_NamespaceNameUniquePerType(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	dt := seedDeviceType(t, svc, "sensor")

	first, err := svc.CreateDeviceCommand(ctx, testTenant, registry.DeviceCommandCreateRequest{
		DeviceTypeToken: dt.Token, Namespace: "http://example/cmds", Name: "reboot",
		Parameters: []domain.CommandParameter{{Name: "delay", Type: "Int32"}}})
	require.NoError(t, err)

	_, err = svc.CreateDeviceCommand(ctx, testTenant, registry.DeviceCommandCreateRequest{
		DeviceTypeToken: dt.Token, Namespace: "http://example/cmds", Name: "reboot"})
	requireCode(t, err, registry.CodeDuplicateKey)

	// Same name in a different namespace is a different command.
	second, err := svc.CreateDeviceCommand(ctx, testTenant, registry.DeviceCommandCreateRequest{
		DeviceTypeToken: dt.Token, Namespace: "http://example/other", Name: "reboot"})
	require.NoError(t, err)

	// Updating into a colliding pair is rejected; updating a command to
	// its own pair is not a collision.
	_, err = svc.UpdateDeviceCommand(ctx, testTenant, second.Token, registry.DeviceCommandUpdateRequest{
		Namespace: "http://example/cmds", Name: "reboot"})
	requireCode(t, err, registry.CodeDuplicateKey)

	_, err = svc.UpdateDeviceCommand(ctx, testTenant, first.Token, registry.DeviceCommandUpdateRequest{
		Namespace: "http://example/cmds", Name: "reboot", Description: "power cycle"})
	require.NoError(t, err)
}

func TestDeviceStatus_CodeUniquePerType(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	dt := seedDeviceType(t, svc, "sensor")
	other := seedDeviceType(t, svc, "camera")

	st, err := svc.CreateDeviceStatus(ctx, testTenant, registry.DeviceStatusCreateRequest{
		DeviceTypeToken: dt.Token, Code: "online", Name: "Online"})
	require.NoError(t, err)

	_, err = svc.CreateDeviceStatus(ctx, testTenant, registry.DeviceStatusCreateRequest{
		DeviceTypeToken: dt.Token, Code: "online", Name: "Also Online"})
	requireCode(t, err, registry.CodeDuplicateKey)

	// The code is scoped per device type.
	_, err = svc.CreateDeviceStatus(ctx, testTenant, registry.DeviceStatusCreateRequest{
		DeviceTypeToken: other.Token, Code: "online"})
	require.NoError(t, err)

	// Deleting releases the code for live records.
	_, err = svc.DeleteDeviceStatus(ctx, testTenant, st.Token, false)
	require.NoError(t, err)
	_, err = svc.CreateDeviceStatus(ctx, testTenant, registry.DeviceStatusCreateRequest{
		DeviceTypeToken: dt.Token, Code: "online"})
	require.NoError(t, err)
}

func TestDeviceStatus_UpdateMovesCode(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	dt := seedDeviceType(t, svc, "sensor")

	a, err := svc.CreateDeviceStatus(ctx, testTenant, registry.DeviceStatusCreateRequest{
		DeviceTypeToken: dt.Token, Code: "on"})
	require.NoError(t, err)
	_, err = svc.CreateDeviceStatus(ctx, testTenant, registry.DeviceStatusCreateRequest{
		DeviceTypeToken: dt.Token, Code: "off"})
	require.NoError(t, err)

	// Moving onto a taken code fails.
	_, err = svc.UpdateDeviceStatus(ctx, testTenant, a.Token, registry.DeviceStatusUpdateRequest{Code: "off"})
	requireCode(t, err, registry.CodeDuplicateKey)

	// Moving to a free code releases the old one.
	_, err = svc.UpdateDeviceStatus(ctx, testTenant, a.Token, registry.DeviceStatusUpdateRequest{Code: "standby"})
	require.NoError(t, err)
	_, err = svc.CreateDeviceStatus(ctx, testTenant, registry.DeviceStatusCreateRequest{
		DeviceTypeToken: dt.Token, Code: "on"})
	require.NoError(t, err)

	statuses, total, err := svc.ListDeviceStatuses(ctx, testTenant,
		repository.StatusCriteria{DeviceTypeID: dt.ID})
	require.NoError(t, err)
	require.Equal(t, 3, total)
	require.Equal(t, "off", statuses[0].Code) // sorted by code
}
