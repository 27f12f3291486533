package registry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"device-registry/internal/domain"
	"device-registry/internal/registry"
)

func TestAssignment_Lifecycle(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	dt := seedDeviceType(t, svc, "tracker")
	d := seedDevice(t, svc, "trk-1", dt.Token)

	a, err := svc.CreateDeviceAssignment(ctx, testTenant, registry.DeviceAssignmentCreateRequest{
		DeviceToken: d.Token})
	require.NoError(t, err)
	require.Equal(t, domain.AssignmentActive, a.Status)
	require.False(t, a.ActiveDate.IsZero())
	require.Nil(t, a.ReleasedDate)
	require.Equal(t, d.ID, a.DeviceID)
	require.Equal(t, dt.ID, a.DeviceTypeID)

	// The device caches its live assignment.
	d, err = svc.GetDeviceByToken(ctx, testTenant, d.Token)
	require.NoError(t, err)
	require.Equal(t, a.ID, d.DeviceAssignmentID)

	// One active assignment per device.
	_, err = svc.CreateDeviceAssignment(ctx, testTenant, registry.DeviceAssignmentCreateRequest{
		DeviceToken: d.Token})
	requireCode(t, err, registry.CodeAlreadyAssigned)

	released, err := svc.EndDeviceAssignment(ctx, testTenant, a.Token)
	require.NoError(t, err)
	require.Equal(t, domain.AssignmentReleased, released.Status)
	require.NotNil(t, released.ReleasedDate)

	// Releasing twice is rejected; released never goes back to active.
	_, err = svc.EndDeviceAssignment(ctx, testTenant, a.Token)
	requireCode(t, err, registry.CodeInvalidRequest)

	d, err = svc.GetDeviceByToken(ctx, testTenant, d.Token)
	require.NoError(t, err)
	require.Empty(t, d.DeviceAssignmentID)

	// A freed device can be assigned again; the history keeps both.
	b, err := svc.CreateDeviceAssignment(ctx, testTenant, registry.DeviceAssignmentCreateRequest{
		DeviceToken: d.Token})
	require.NoError(t, err)

	history, total, err := svc.ListDeviceAssignments(ctx, testTenant,
		registry.AssignmentListRequest{DeviceToken: d.Token})
	require.NoError(t, err)
	require.Equal(t, 2, total)
	// Most recent first.
	require.Equal(t, b.Token, history[0].Token)
	require.Equal(t, a.Token, history[1].Token)

	active, total, err := svc.ListDeviceAssignments(ctx, testTenant,
		registry.AssignmentListRequest{DeviceToken: d.Token, Status: domain.AssignmentActive})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, b.Token, active[0].Token)
}

func TestAssignment_ReferencesValidated(t *testing.T) {
	svc := newService(t, "asset-9")
	ctx := context.Background()

	dt := seedDeviceType(t, svc, "tracker")
	d := seedDevice(t, svc, "trk-1", dt.Token)

	_, err := svc.CreateDeviceAssignment(ctx, testTenant, registry.DeviceAssignmentCreateRequest{
		DeviceToken: "missing"})
	requireCode(t, err, registry.CodeInvalidReference)

	_, err = svc.CreateDeviceAssignment(ctx, testTenant, registry.DeviceAssignmentCreateRequest{
		DeviceToken: d.Token, CustomerToken: "missing"})
	requireCode(t, err, registry.CodeInvalidReference)

	_, err = svc.CreateDeviceAssignment(ctx, testTenant, registry.DeviceAssignmentCreateRequest{
		DeviceToken: d.Token, AssetToken: "unknown-asset"})
	requireCode(t, err, registry.CodeInvalidReference)

	ct, err := svc.CreateCustomerType(ctx, testTenant, registry.CustomerTypeCreateRequest{
		Token: "org", Name: "Org"})
	require.NoError(t, err)
	c, err := svc.CreateCustomer(ctx, testTenant, registry.CustomerCreateRequest{
		Token: "acme", CustomerTypeToken: ct.Token, Name: "ACME"})
	require.NoError(t, err)

	a, err := svc.CreateDeviceAssignment(ctx, testTenant, registry.DeviceAssignmentCreateRequest{
		DeviceToken: d.Token, CustomerToken: c.Token, AssetToken: "asset-9"})
	require.NoError(t, err)
	require.Equal(t, c.ID, a.CustomerID)
	require.Equal(t, "asset-9", a.AssetID)
}

func TestAssignment_DeleteClearsBackrefOnlyWhenLive(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	dt := seedDeviceType(t, svc, "tracker")
	d := seedDevice(t, svc, "trk-1", dt.Token)

	a, err := svc.CreateDeviceAssignment(ctx, testTenant, registry.DeviceAssignmentCreateRequest{
		DeviceToken: d.Token})
	require.NoError(t, err)
	_, err = svc.EndDeviceAssignment(ctx, testTenant, a.Token)
	require.NoError(t, err)

	b, err := svc.CreateDeviceAssignment(ctx, testTenant, registry.DeviceAssignmentCreateRequest{
		DeviceToken: d.Token})
	require.NoError(t, err)

	// Deleting old history must not clear the reference to the live
	// assignment.
	_, err = svc.DeleteDeviceAssignment(ctx, testTenant, a.Token, false)
	require.NoError(t, err)
	d, err = svc.GetDeviceByToken(ctx, testTenant, d.Token)
	require.NoError(t, err)
	require.Equal(t, b.ID, d.DeviceAssignmentID)

	// Deleting the live assignment does clear it.
	_, err = svc.DeleteDeviceAssignment(ctx, testTenant, b.Token, false)
	require.NoError(t, err)
	d, err = svc.GetDeviceByToken(ctx, testTenant, d.Token)
	require.NoError(t, err)
	require.Empty(t, d.DeviceAssignmentID)
}

func TestAlarm_InheritsAssignmentContext(t *testing.T) {
	svc := newService(t, "boiler-7")
	ctx := context.Background()

	dt := seedDeviceType(t, svc, "tracker")
	d := seedDevice(t, svc, "trk-1", dt.Token)

	at, err := svc.CreateAreaType(ctx, testTenant, registry.AreaTypeCreateRequest{
		Token: "site", Name: "Site"})
	require.NoError(t, err)
	area, err := svc.CreateArea(ctx, testTenant, registry.AreaCreateRequest{
		Token: "plant", AreaTypeToken: at.Token, Name: "Plant"})
	require.NoError(t, err)

	a, err := svc.CreateDeviceAssignment(ctx, testTenant, registry.DeviceAssignmentCreateRequest{
		DeviceToken: d.Token, AreaToken: area.Token, AssetToken: "boiler-7"})
	require.NoError(t, err)

	alarm, err := svc.CreateDeviceAlarm(ctx, testTenant, registry.DeviceAlarmCreateRequest{
		AssignmentToken: a.Token, AlarmMessage: "temperature out of range"})
	require.NoError(t, err)
	require.Equal(t, d.ID, alarm.DeviceID)
	require.Equal(t, a.ID, alarm.DeviceAssignmentID)
	require.Equal(t, area.ID, alarm.AreaID)
	require.Equal(t, "boiler-7", alarm.AssetID)
	require.Equal(t, domain.AlarmTriggered, alarm.State)
	require.False(t, alarm.TriggeredDate.IsZero())
	require.Nil(t, alarm.AcknowledgedDate)

	alarm, err = svc.UpdateDeviceAlarm(ctx, testTenant, alarm.ID, registry.DeviceAlarmUpdateRequest{
		State: domain.AlarmAcknowledged})
	require.NoError(t, err)
	require.NotNil(t, alarm.AcknowledgedDate)
	require.Nil(t, alarm.ResolvedDate)

	alarm, err = svc.UpdateDeviceAlarm(ctx, testTenant, alarm.ID, registry.DeviceAlarmUpdateRequest{
		State: domain.AlarmResolved})
	require.NoError(t, err)
	require.NotNil(t, alarm.ResolvedDate)

	_, err = svc.UpdateDeviceAlarm(ctx, testTenant, alarm.ID, registry.DeviceAlarmUpdateRequest{
		State: "snoozed"})
	requireCode(t, err, registry.CodeInvalidRequest)
}
