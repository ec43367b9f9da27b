// Package testutil opens throwaway SQLite stores for package tests.
package testutil

import (
	"path/filepath"
	"testing"

	"go-pos-ledger/internal/config"
	"go-pos-ledger/internal/database"
	"go-pos-ledger/internal/models"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB returns a migrated file-backed SQLite store living in t.TempDir().
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, _ := NewDBWithSchema(t)
	return db
}

func NewDBWithSchema(t *testing.T) (*gorm.DB, *database.Schema) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "pos_test.db")
	db, err := database.Open(sqlite.Open(path), logger.Default.LogMode(logger.Silent))
	require.NoError(t, err)

	schema, err := database.Migrate(db, Logger())
	require.NoError(t, err)

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db, schema
}

func Logger() *logrus.Logger {
	return config.DiscardLogger()
}

// Dec parses a decimal literal, failing loudly on typos in test tables.
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// SeedProduct inserts a product directly, bypassing the services.
func SeedProduct(t *testing.T, db *gorm.DB, p models.Product) models.Product {
	t.Helper()
	if p.SKU == "" {
		p.SKU = "TEST-" + p.Name
	}
	require.NoError(t, db.Create(&p).Error)
	return p
}

// SeedCustomer inserts a customer directly, bypassing the services.
func SeedCustomer(t *testing.T, db *gorm.DB, c models.Customer) models.Customer {
	t.Helper()
	require.NoError(t, db.Create(&c).Error)
	return c
}

// StockOf reads a product's current stock.
func StockOf(t *testing.T, db *gorm.DB, productID uint) int {
	t.Helper()
	var p models.Product
	require.NoError(t, db.First(&p, productID).Error)
	return p.Stock
}

// PointsOf reads a customer's current balance.
func PointsOf(t *testing.T, db *gorm.DB, customerID uint) int {
	t.Helper()
	var c models.Customer
	require.NoError(t, db.First(&c, customerID).Error)
	return c.Points
}

// Count returns the number of rows in model's table.
func Count(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}
