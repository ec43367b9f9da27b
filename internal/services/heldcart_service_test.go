package services

import (
	"context"
	"testing"

	"go-pos-ledger/internal/apperr"
	"go-pos-ledger/internal/models"
	"go-pos-ledger/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHoldAndListCarts(t *testing.T) {
	h := newHarness(t)
	h.carts.now = h.clock.Now
	ctx := context.Background()
	p := testutil.SeedProduct(t, h.db, models.Product{Name: "Mouse", Stock: 5, PriceSell: testutil.Dec("10")})

	first, err := h.carts.Hold(ctx, "", []models.SaleItem{line(p, 1)})
	require.NoError(t, err)
	second, err := h.carts.Hold(ctx, "Alice", []models.SaleItem{line(p, 2)})
	require.NoError(t, err)

	carts, err := h.carts.List(ctx)
	require.NoError(t, err)
	require.Len(t, carts, 2)
	assert.Equal(t, second, carts[0].ID)
	assert.Equal(t, first, carts[1].ID)
	assert.Equal(t, models.WalkInCustomer, carts[1].CustomerName)
	require.Len(t, carts[0].Items, 1)
	assert.Equal(t, 2, carts[0].Items[0].Quantity)

	assert.Equal(t, 5, testutil.StockOf(t, h.db, p.ID), "holding never reserves stock")

	_, err = h.carts.Hold(ctx, "Bob", nil)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestDeleteCart(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := testutil.SeedProduct(t, h.db, models.Product{Name: "Mouse", Stock: 5, PriceSell: testutil.Dec("10")})

	id, err := h.carts.Hold(ctx, "Alice", []models.SaleItem{line(p, 1)})
	require.NoError(t, err)

	require.NoError(t, h.carts.Delete(ctx, id))
	assert.ErrorIs(t, h.carts.Delete(ctx, id), apperr.ErrNotFound)
}

func TestRecallCartReportsShortfalls(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	plenty := testutil.SeedProduct(t, h.db, models.Product{Name: "Cable", Stock: 20, PriceSell: testutil.Dec("5")})
	scarce := testutil.SeedProduct(t, h.db, models.Product{Name: "GPU", Stock: 1, PriceSell: testutil.Dec("900")})

	id, err := h.carts.Hold(ctx, "Alice", []models.SaleItem{line(plenty, 2), line(scarce, 3)})
	require.NoError(t, err)

	recalled, err := h.carts.Recall(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, recalled.Cart.ID)
	assert.Len(t, recalled.Cart.Items, 2)
	require.Len(t, recalled.Shortfalls, 1)
	assert.Equal(t, Shortfall{ProductID: scarce.ID, Name: "GPU", Held: 3, InStock: 1}, recalled.Shortfalls[0])

	assert.Zero(t, testutil.Count(t, h.db, &models.HeldCart{}))
	assert.Equal(t, 1, testutil.StockOf(t, h.db, scarce.ID))

	_, err = h.carts.Recall(ctx, id)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
