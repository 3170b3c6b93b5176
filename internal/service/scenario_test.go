package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/travelhub/internal/model"
)

// TestStorefrontScenario walks an admin and a client through the catalog,
// package and cart flows using tokens issued by the auth service.
func TestStorefrontScenario(t *testing.T) {
	h := newCatalogHarness()
	auth := newAuth(t, h.store)
	ctx := context.Background()

	_, err := auth.CreateAdmin(ctx, "a@x.com", "secret1", "Admin")
	require.NoError(t, err)
	adminLogin, err := auth.Login(ctx, "a@x.com", "secret1")
	require.NoError(t, err)
	adminID, err := auth.Verify(ctx, adminLogin.Token)
	require.NoError(t, err)

	flight, err := h.catalog.CreateProduct(ctx, adminID, flightInput("100"))
	require.NoError(t, err)
	hotel, err := h.catalog.CreateProduct(ctx, adminID, hotelInput("50"))
	require.NoError(t, err)

	combo, err := h.packages.CreatePackage(ctx, adminID, model.PackageInput{
		Name: "Combo", Description: "flight and hotel", Price: decimal.NewFromInt(120),
		ProductIDs: []string{flight.ID, hotel.ID},
	})
	require.NoError(t, err)
	assert.Len(t, combo.Products, 2)
	assert.Equal(t, "120", combo.Price.String())
	sum := flight.Price.Add(hotel.Price)
	assert.Equal(t, "150", sum.String())

	reg, err := auth.Register(ctx, "c@x.com", "secret2", "Client")
	require.NoError(t, err)
	clientID, err := auth.Verify(ctx, reg.Token)
	require.NoError(t, err)

	_, err = h.carts.AddItem(ctx, clientID, model.AddItemInput{ProductID: flight.ID, Quantity: 2})
	require.NoError(t, err)
	item, err := h.carts.AddItem(ctx, clientID, model.AddItemInput{ProductID: flight.ID, Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, 5, item.Quantity)

	cart, err := h.carts.GetOrCreateCart(ctx, clientID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 5, cart.Items[0].Quantity)

	_, err = h.catalog.CreateProduct(ctx, clientID, flightInput("1"))
	assert.ErrorIs(t, err, model.ErrForbidden)
}
