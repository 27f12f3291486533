package registry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"device-registry/internal/domain"
	"device-registry/internal/registry"
	"device-registry/internal/repository"
)

func TestAreaType_DeleteGuardedWhileReferenced(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	at, err := svc.CreateAreaType(ctx, testTenant, registry.AreaTypeCreateRequest{
		Token: "building", Name: "Building"})
	require.NoError(t, err)

	area, err := svc.CreateArea(ctx, testTenant, registry.AreaCreateRequest{
		Token: "hq", AreaTypeToken: at.Token, Name: "Headquarters"})
	require.NoError(t, err)

	_, err = svc.DeleteAreaType(ctx, testTenant, at.Token, false)
	requireCode(t, err, registry.CodeInUse)

	_, err = svc.DeleteArea(ctx, testTenant, area.Token, false)
	require.NoError(t, err)

	_, err = svc.DeleteAreaType(ctx, testTenant, at.Token, false)
	require.NoError(t, err)

	// Second delete of the same record is a not-found.
	_, err = svc.DeleteAreaType(ctx, testTenant, at.Token, false)
	requireCode(t, err, registry.CodeNotFound)
}

func TestArea_DuplicateTokenRejected(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	at, err := svc.CreateAreaType(ctx, testTenant, registry.AreaTypeCreateRequest{
		Token: "site", Name: "Site"})
	require.NoError(t, err)

	_, err = svc.CreateArea(ctx, testTenant, registry.AreaCreateRequest{
		Token: "plant-1", AreaTypeToken: at.Token, Name: "Plant One"})
	require.NoError(t, err)

	_, err = svc.CreateArea(ctx, testTenant, registry.AreaCreateRequest{
		Token: "plant-1", AreaTypeToken: at.Token, Name: "Other Plant"})
	requireCode(t, err, registry.CodeDuplicateKey)
}

func TestArea_UnknownReferencesRejected(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.CreateArea(ctx, testTenant, registry.AreaCreateRequest{
		Token: "a", AreaTypeToken: "nope", Name: "A"})
	requireCode(t, err, registry.CodeInvalidReference)

	at, err := svc.CreateAreaType(ctx, testTenant, registry.AreaTypeCreateRequest{
		Token: "site", Name: "Site"})
	require.NoError(t, err)

	_, err = svc.CreateArea(ctx, testTenant, registry.AreaCreateRequest{
		Token: "a", AreaTypeToken: at.Token, ParentAreaToken: "missing", Name: "A"})
	requireCode(t, err, registry.CodeInvalidReference)
}

func TestResolveAreaTree(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	at, err := svc.CreateAreaType(ctx, testTenant, registry.AreaTypeCreateRequest{
		Token: "region", Name: "Region"})
	require.NoError(t, err)

	mk := func(token, parent, name string) *domain.Area {
		a, err := svc.CreateArea(ctx, testTenant, registry.AreaCreateRequest{
			Token: token, AreaTypeToken: at.Token, ParentAreaToken: parent, Name: name})
		require.NoError(t, err)
		return a
	}
	root := mk("emea", "", "EMEA")
	mk("emea-south", root.Token, "South")
	mk("emea-north", root.Token, "North")

	tree, err := svc.ResolveAreaTree(ctx, testTenant)
	require.NoError(t, err)
	require.Len(t, tree, 1)
	require.Equal(t, "EMEA", tree[0].Name)
	require.Len(t, tree[0].Children, 2)
	// Children are sorted by name.
	require.Equal(t, "North", tree[0].Children[0].Name)
	require.Equal(t, "South", tree[0].Children[1].Name)

	// Deleting the root orphans the children; they surface as roots
	// instead of disappearing from the tree.
	_, err = svc.DeleteArea(ctx, testTenant, root.Token, false)
	require.NoError(t, err)

	tree, err = svc.ResolveAreaTree(ctx, testTenant)
	require.NoError(t, err)
	require.Len(t, tree, 2)
	require.Equal(t, "North", tree[0].Name)
	require.Equal(t, "South", tree[1].Name)
}

func TestZone_LifecycleAndListByArea(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.CreateZone(ctx, testTenant, registry.ZoneCreateRequest{
		Token: "z1", AreaToken: "missing", Name: "Z1"})
	requireCode(t, err, registry.CodeInvalidReference)

	at, err := svc.CreateAreaType(ctx, testTenant, registry.AreaTypeCreateRequest{
		Token: "site", Name: "Site"})
	require.NoError(t, err)
	area, err := svc.CreateArea(ctx, testTenant, registry.AreaCreateRequest{
		Token: "plant", AreaTypeToken: at.Token, Name: "Plant"})
	require.NoError(t, err)
	other, err := svc.CreateArea(ctx, testTenant, registry.AreaCreateRequest{
		Token: "depot", AreaTypeToken: at.Token, Name: "Depot"})
	require.NoError(t, err)

	z, err := svc.CreateZone(ctx, testTenant, registry.ZoneCreateRequest{
		Token: "loading", AreaToken: area.Token, Name: "Loading Dock",
		Bounds:      []domain.Location{{Latitude: 1, Longitude: 2}},
		BorderColor: "#ff0000", FillOpacity: 0.4})
	require.NoError(t, err)
	require.Equal(t, area.ID, z.AreaID)

	_, err = svc.CreateZone(ctx, testTenant, registry.ZoneCreateRequest{
		Token: "yard", AreaToken: other.Token, Name: "Yard"})
	require.NoError(t, err)

	zones, total, err := svc.ListZones(ctx, testTenant, repository.ZoneCriteria{AreaID: area.ID})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, "loading", zones[0].Token)

	updated, err := svc.UpdateZone(ctx, testTenant, z.Token, registry.ZoneUpdateRequest{
		Name: "Loading Dock B", FillOpacity: 0.7})
	require.NoError(t, err)
	require.Equal(t, "Loading Dock B", updated.Name)
	require.InDelta(t, 0.7, updated.FillOpacity, 1e-9)

	_, err = svc.DeleteZone(ctx, testTenant, z.Token, false)
	require.NoError(t, err)
	_, err = svc.GetZoneByToken(ctx, testTenant, z.Token)
	requireCode(t, err, registry.CodeNotFound)
}

func TestCustomerTree_MirrorsAreas(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	ct, err := svc.CreateCustomerType(ctx, testTenant, registry.CustomerTypeCreateRequest{
		Token: "org", Name: "Organization"})
	require.NoError(t, err)

	parent, err := svc.CreateCustomer(ctx, testTenant, registry.CustomerCreateRequest{
		Token: "acme", CustomerTypeToken: ct.Token, Name: "ACME"})
	require.NoError(t, err)
	_, err = svc.CreateCustomer(ctx, testTenant, registry.CustomerCreateRequest{
		Token: "acme-labs", CustomerTypeToken: ct.Token, ParentCustomerToken: parent.Token, Name: "ACME Labs"})
	require.NoError(t, err)

	tree, err := svc.ResolveCustomerTree(ctx, testTenant)
	require.NoError(t, err)
	require.Len(t, tree, 1)
	require.Len(t, tree[0].Children, 1)
	require.Equal(t, "ACME Labs", tree[0].Children[0].Name)

	_, err = svc.DeleteCustomerType(ctx, testTenant, ct.Token, false)
	requireCode(t, err, registry.CodeInUse)
}
