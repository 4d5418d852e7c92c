package purchasers

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/prosupplyhq/prosupply-backend/pkg/errors"
)

func TestChainStoreCreateRequiresProfile(t *testing.T) {
	t.Parallel()
	client := setupPurchasersDB(t)
	svc := buildPurchaserServices(t, client)
	ctx := context.Background()

	_, err := svc.stores.Create(ctx, purchaserActor(uuid.New()), CreateChainStoreInput{
		Name:    "Downtown",
		Address: "1 Main St",
	})
	requireCode(t, err, pkgerrors.CodeStateConflict)
}

func TestChainStoreCreateForOwnPurchaser(t *testing.T) {
	t.Parallel()
	client := setupPurchasersDB(t)
	svc := buildPurchaserServices(t, client)
	ctx := context.Background()

	ownerUser := uuid.New()
	owner := mustCreatePurchaser(t, client, ownerUser, "Harbor Restaurants")

	created, err := svc.stores.Create(ctx, purchaserActor(ownerUser), CreateChainStoreInput{
		Name:    "  Pier Kitchen  ",
		Address: " 1 Dock Road ",
	})
	require.NoError(t, err)
	assert.Equal(t, "Pier Kitchen", created.Name)
	assert.Equal(t, "1 Dock Road", created.Address)
	assert.Equal(t, owner.ID, created.PurchaserID)

	_, err = svc.stores.Create(ctx, purchaserActor(ownerUser), CreateChainStoreInput{Name: "", Address: "2 Dock Road"})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.stores.Create(ctx, purchaserActor(ownerUser), CreateChainStoreInput{Name: "No Address", Address: "   "})
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestChainStoreCreateOverrideIsAdminOnly(t *testing.T) {
	t.Parallel()
	client := setupPurchasersDB(t)
	svc := buildPurchaserServices(t, client)
	ctx := context.Background()

	ownerUser := uuid.New()
	owner := mustCreatePurchaser(t, client, ownerUser, "Harbor Restaurants")

	_, err := svc.stores.Create(ctx, purchaserActor(uuid.New()), CreateChainStoreInput{
		Name:        "Not Mine",
		Address:     "3 Dock Road",
		PurchaserID: &owner.ID,
	})
	requireCode(t, err, pkgerrors.CodeForbidden)

	created, err := svc.stores.Create(ctx, adminActor(), CreateChainStoreInput{
		Name:        "Admin Provisioned",
		Address:     "4 Dock Road",
		PurchaserID: &owner.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, owner.ID, created.PurchaserID)

	bogus := uuid.New()
	_, err = svc.stores.Create(ctx, adminActor(), CreateChainStoreInput{
		Name:        "Nowhere",
		Address:     "5 Dock Road",
		PurchaserID: &bogus,
	})
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestChainStoreVisibility(t *testing.T) {
	t.Parallel()
	client := setupPurchasersDB(t)
	svc := buildPurchaserServices(t, client)
	ctx := context.Background()

	ownerUser := uuid.New()
	owner := mustCreatePurchaser(t, client, ownerUser, "Harbor Restaurants")
	store := mustCreateChainStore(t, client, owner.ID, "Pier Kitchen", "1 Dock Road")

	got, err := svc.stores.Get(ctx, purchaserActor(ownerUser), store.ID)
	require.NoError(t, err)
	assert.Equal(t, store.ID, got.ID)

	_, err = svc.stores.Get(ctx, purchaserActor(uuid.New()), store.ID)
	requireCode(t, err, pkgerrors.CodeNotFound)

	// A supplier only reaches the store once one of their lines has
	// shipped there.
	supplierUser := uuid.New()
	supplier := mustCreateSupplier(t, client, supplierUser, "Coastal Supply")
	_, err = svc.stores.Get(ctx, supplierActor(supplierUser), store.ID)
	requireCode(t, err, pkgerrors.CodeNotFound)

	stock := mustCreateStock(t, client, supplier.ID)
	order := mustCreateOrder(t, client, owner.ID, store.ID)
	mustCreateOrderPosition(t, client, order.ID, stock.ID)

	got, err = svc.stores.Get(ctx, supplierActor(supplierUser), store.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pier Kitchen", got.Name)

	otherSupplierUser := uuid.New()
	mustCreateSupplier(t, client, otherSupplierUser, "Inland Supply")
	_, err = svc.stores.Get(ctx, supplierActor(otherSupplierUser), store.ID)
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestChainStoreListOrderedByName(t *testing.T) {
	t.Parallel()
	client := setupPurchasersDB(t)
	svc := buildPurchaserServices(t, client)
	ctx := context.Background()

	ownerUser := uuid.New()
	owner := mustCreatePurchaser(t, client, ownerUser, "Harbor Restaurants")
	mustCreateChainStore(t, client, owner.ID, "Seaside", "2 Dock Road")
	mustCreateChainStore(t, client, owner.ID, "Boardwalk", "3 Dock Road")

	other := mustCreatePurchaser(t, client, uuid.New(), "Cove Hotels")
	mustCreateChainStore(t, client, other.ID, "Hilltop", "9 Ridge Way")

	stores, err := svc.stores.List(ctx, purchaserActor(ownerUser), nil)
	require.NoError(t, err)
	require.Len(t, stores, 2)
	assert.Equal(t, "Boardwalk", stores[0].Name)
	assert.Equal(t, "Seaside", stores[1].Name)

	all, err := svc.stores.List(ctx, adminActor(), nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	filtered, err := svc.stores.List(ctx, adminActor(), &other.ID)
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "Hilltop", filtered[0].Name)
}

func TestChainStoreUpdateScopedToOwner(t *testing.T) {
	t.Parallel()
	client := setupPurchasersDB(t)
	svc := buildPurchaserServices(t, client)
	ctx := context.Background()

	ownerUser := uuid.New()
	owner := mustCreatePurchaser(t, client, ownerUser, "Harbor Restaurants")
	store := mustCreateChainStore(t, client, owner.ID, "Pier Kitchen", "1 Dock Road")

	newName := "Pier Kitchen East"
	_, err := svc.stores.Update(ctx, purchaserActor(uuid.New()), store.ID, UpdateChainStoreInput{Name: &newName})
	requireCode(t, err, pkgerrors.CodeNotFound)

	newAddress := "8 Dock Road"
	updated, err := svc.stores.Update(ctx, purchaserActor(ownerUser), store.ID, UpdateChainStoreInput{
		Name:    &newName,
		Address: &newAddress,
	})
	require.NoError(t, err)
	assert.Equal(t, "Pier Kitchen East", updated.Name)
	assert.Equal(t, "8 Dock Road", updated.Address)

	empty := " "
	_, err = svc.stores.Update(ctx, purchaserActor(ownerUser), store.ID, UpdateChainStoreInput{Address: &empty})
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestChainStoreDeleteBlockedByOrders(t *testing.T) {
	t.Parallel()
	client := setupPurchasersDB(t)
	svc := buildPurchaserServices(t, client)
	ctx := context.Background()

	ownerUser := uuid.New()
	owner := mustCreatePurchaser(t, client, ownerUser, "Harbor Restaurants")
	busy := mustCreateChainStore(t, client, owner.ID, "Busy Store", "1 Dock Road")
	idle := mustCreateChainStore(t, client, owner.ID, "Idle Store", "2 Dock Road")
	mustCreateOrder(t, client, owner.ID, busy.ID)

	err := svc.stores.Delete(ctx, purchaserActor(ownerUser), busy.ID)
	requireCode(t, err, pkgerrors.CodeStateConflict)

	supplierUser := uuid.New()
	mustCreateSupplier(t, client, supplierUser, "Coastal Supply")
	err = svc.stores.Delete(ctx, supplierActor(supplierUser), idle.ID)
	requireCode(t, err, pkgerrors.CodeForbidden)

	require.NoError(t, svc.stores.Delete(ctx, purchaserActor(ownerUser), idle.ID))
	_, err = svc.stores.Get(ctx, purchaserActor(ownerUser), idle.ID)
	requireCode(t, err, pkgerrors.CodeNotFound)
}
