package services

import (
	"context"
	"regexp"
	"testing"

	"go-pos-ledger/internal/apperr"
	"go-pos-ledger/internal/models"
	"go-pos-ledger/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var skuPattern = regexp.MustCompile(`^GE-\d{8}-[0-9A-F]{4}$`)

func TestGenerateSKUFormat(t *testing.T) {
	h := newHarness(t)
	assert.Regexp(t, skuPattern, h.products.GenerateSKU())
}

func TestCreateProductBooksInitialStock(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	p, err := h.products.Create(ctx, ProductInput{
		Name:      "  Gaming Mouse ",
		Category:  "Peripherals",
		PriceBuy:  testutil.Dec("1500"),
		PriceSell: testutil.Dec("2200"),
		Stock:     12,
	})
	require.NoError(t, err)
	assert.Equal(t, "Gaming Mouse", p.Name)
	assert.Regexp(t, skuPattern, p.SKU)
	assert.Equal(t, 12, p.Stock)
	assert.Equal(t, 12, testutil.StockOf(t, h.db, p.ID))

	movements, err := h.products.Movements(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, models.MovementInitialStock, movements[0].Reason)
	assert.Equal(t, 12, movements[0].Delta)

	found, err := h.products.GetBySKU(ctx, p.SKU)
	require.NoError(t, err)
	assert.Equal(t, p.ID, found.ID)
}

func TestCreateProductDuplicateSKU(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.products.Create(ctx, ProductInput{Name: "Cable", SKU: "cab-1"})
	require.NoError(t, err)

	_, err = h.products.Create(ctx, ProductInput{Name: "Other cable", SKU: "CAB-1", Stock: 3})
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, int64(1), testutil.Count(t, h.db, &models.Product{}))
	assert.Zero(t, testutil.Count(t, h.db, &models.StockMovement{}))
}

func TestCreateProductValidation(t *testing.T) {
	h := newHarness(t)

	_, err := h.products.Create(context.Background(), ProductInput{Name: "   "})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = h.products.Create(context.Background(), ProductInput{Name: "Fan", PriceSell: testutil.Dec("-1")})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestUpdateProductRoutesStockThroughLedger(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p, err := h.products.Create(ctx, ProductInput{Name: "Webcam", SKU: "CAM-1", PriceSell: testutil.Dec("90"), Stock: 4})
	require.NoError(t, err)

	updated, err := h.products.Update(ctx, p.ID, ProductInput{
		Name:      "Webcam HD",
		Category:  "Video",
		PriceSell: testutil.Dec("95"),
		Stock:     10,
	})
	require.NoError(t, err)
	assert.Equal(t, "Webcam HD", updated.Name)
	assert.Equal(t, "CAM-1", updated.SKU, "blank sku keeps the current one")
	assert.Equal(t, 10, updated.Stock)

	movements, err := h.products.Movements(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, movements, 2)
	assert.Equal(t, models.MovementAdjustment, movements[0].Reason)
	assert.Equal(t, 6, movements[0].Delta)

	got, err := h.products.Get(ctx, p.ID)
	require.NoError(t, err)
	assertDec(t, "95", got.PriceSell)
	assert.Equal(t, "Video", got.Category)
}

func TestUpdateProductUnknown(t *testing.T) {
	h := newHarness(t)
	_, err := h.products.Update(context.Background(), 77, ProductInput{Name: "Nope"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestAdjustStockAndPrice(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p, err := h.products.Create(ctx, ProductInput{Name: "Charger", SKU: "CHG-1", Stock: 2})
	require.NoError(t, err)

	m, err := h.products.AdjustStock(ctx, p.ID, -5)
	require.NoError(t, err)
	assert.Equal(t, -3, m.StockAfter)

	_, err = h.products.AdjustStock(ctx, p.ID, 0)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	require.NoError(t, h.products.UpdatePrice(ctx, p.ID, testutil.Dec("12.5")))
	assert.ErrorIs(t, h.products.UpdatePrice(ctx, 999, testutil.Dec("1")), apperr.ErrNotFound)
}

func TestDeleteProduct(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p, err := h.products.Create(ctx, ProductInput{Name: "Hub", SKU: "HUB-1"})
	require.NoError(t, err)

	require.NoError(t, h.products.Delete(ctx, p.ID))
	assert.ErrorIs(t, h.products.Delete(ctx, p.ID), apperr.ErrNotFound)
	_, err = h.products.Get(ctx, p.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestListProductsByName(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	for _, name := range []string{"Zebra pad", "Alpha cable", "Mid fan"} {
		_, err := h.products.Create(ctx, ProductInput{Name: name})
		require.NoError(t, err)
	}

	products, err := h.products.List(ctx)
	require.NoError(t, err)
	require.Len(t, products, 3)
	assert.Equal(t, "Alpha cable", products[0].Name)
	assert.Equal(t, "Zebra pad", products[2].Name)
}
