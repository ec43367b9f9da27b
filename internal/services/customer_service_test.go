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

func TestCustomerCRUD(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	c, err := h.customers.Create(ctx, CustomerInput{Name: " Nimal ", Phone: "0771234567", Email: "nimal@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "Nimal", c.Name)
	assert.Zero(t, c.Points)

	updated, err := h.customers.Update(ctx, c.ID, CustomerInput{Name: "Nimal Perera", Phone: "0779999999"})
	require.NoError(t, err)
	assert.Equal(t, "Nimal Perera", updated.Name)
	assert.Empty(t, updated.Email)

	_, err = h.customers.Update(ctx, 999, CustomerInput{Name: "Ghost"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	require.NoError(t, h.customers.Delete(ctx, c.ID))
	assert.ErrorIs(t, h.customers.Delete(ctx, c.ID), apperr.ErrNotFound)
}

func TestCustomerValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.customers.Create(ctx, CustomerInput{Name: "Walk-in"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = h.customers.Create(ctx, CustomerInput{Name: "Kamal", Email: "not-an-email"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestListCustomersByPoints(t *testing.T) {
	h := newHarness(t)
	testutil.SeedCustomer(t, h.db, models.Customer{Name: "Low", Points: 1})
	testutil.SeedCustomer(t, h.db, models.Customer{Name: "High", Points: 90})
	testutil.SeedCustomer(t, h.db, models.Customer{Name: "Also low", Points: 1})

	customers, err := h.customers.List(context.Background())
	require.NoError(t, err)
	require.Len(t, customers, 3)
	assert.Equal(t, []string{"High", "Also low", "Low"}, []string{customers[0].Name, customers[1].Name, customers[2].Name})
}

func TestPointsForTypedName(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	testutil.SeedCustomer(t, h.db, models.Customer{Name: "Alice", Points: 12})

	points, err := h.customers.PointsFor(ctx, "ALICE")
	require.NoError(t, err)
	assert.Equal(t, 12, points)

	points, err = h.customers.PointsFor(ctx, "nobody")
	require.NoError(t, err)
	assert.Zero(t, points)

	points, err = h.customers.PointsFor(ctx, "Walk-in")
	require.NoError(t, err)
	assert.Zero(t, points)
}

func TestPointsHistory(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := testutil.SeedProduct(t, h.db, models.Product{Name: "Desk", Stock: 3, PriceSell: testutil.Dec("250")})
	alice := testutil.SeedCustomer(t, h.db, models.Customer{Name: "Alice"})

	_, err := h.sales.CreateTransaction(ctx, NewTransaction{
		Items:       []models.SaleItem{line(p, 1)},
		CustomerRef: refByID(alice.ID),
		Total:       testutil.Dec("250"),
	})
	require.NoError(t, err)

	history, err := h.customers.PointsHistory(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.PointsEarn, history[0].Reason)
	assert.Equal(t, 2, history[0].BalanceAfter)

	_, err = h.customers.PointsHistory(ctx, 999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
