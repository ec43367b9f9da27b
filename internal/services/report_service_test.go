package services

import (
	"context"
	"testing"
	"time"

	"go-pos-ledger/internal/apperr"
	"go-pos-ledger/internal/cache"
	"go-pos-ledger/internal/models"
	"go-pos-ledger/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var reportNow = time.Date(2025, 6, 10, 15, 30, 0, 0, time.UTC)

func fixedReports(db *gorm.DB, c cache.ReportCache) *ReportService {
	return NewReportService(db, c, testutil.Logger(), time.UTC, 5).
		WithClock(func() time.Time { return reportNow })
}

func seedSale(t *testing.T, db *gorm.DB, at time.Time, total string, items ...models.SaleItem) models.Transaction {
	t.Helper()
	txn := models.Transaction{
		Timestamp:    at.UTC(),
		Total:        testutil.Dec(total),
		Profit:       Profit(items, decimal.Zero),
		CustomerName: models.WalkInCustomer,
		Items:        items,
	}
	require.NoError(t, db.Create(&txn).Error)
	return txn
}

func item(name, category string, qty int, price string) models.SaleItem {
	return models.SaleItem{ProductID: 1, Name: name, Category: category, Quantity: qty, PriceSell: testutil.Dec(price)}
}

func TestDashboardStats(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.SeedProduct(t, db, models.Product{Name: "Low", Stock: 4})
	testutil.SeedProduct(t, db, models.Product{Name: "Negative", Stock: -1})
	testutil.SeedProduct(t, db, models.Product{Name: "Fine", Stock: 5})

	seedSale(t, db, reportNow.Add(-time.Hour), "100", item("A", "X", 1, "100"))
	seedSale(t, db, reportNow.Add(-15*time.Hour), "50", item("B", "X", 1, "50"))
	seedSale(t, db, reportNow.Add(-24*time.Hour), "999", item("C", "X", 1, "999"))

	stats, err := fixedReports(db, cache.Noop{}).DashboardStats(context.Background())
	require.NoError(t, err)
	assertDec(t, "150", stats.TotalRevenue)
	assert.Equal(t, int64(2), stats.TotalOrders)
	assertDec(t, "1149", stats.NetProfit)
	assert.Equal(t, int64(2), stats.LowStockCount)
}

func TestDashboardStatsFractionalPrices(t *testing.T) {
	db := testutil.NewDB(t)
	cent := models.SaleItem{ProductID: 1, Name: "Sticker", Quantity: 1, PriceSell: testutil.Dec("0.1"), PriceBuy: testutil.Dec("0.05")}
	for i := 0; i < 3; i++ {
		seedSale(t, db, reportNow.Add(-time.Duration(i+1)*time.Minute), "0.1", cent)
	}

	reports := fixedReports(db, cache.Noop{})
	stats, err := reports.DashboardStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0.3", stats.TotalRevenue.String())
	assert.Equal(t, "0.15", stats.NetProfit.String())
	assert.Equal(t, int64(3), stats.TotalOrders)

	report, err := reports.SalesReport(context.Background(), reportNow.Add(-time.Hour), reportNow)
	require.NoError(t, err)
	assert.Equal(t, "0.3", report.TotalRevenue.String())
	assert.Equal(t, "0.15", report.TotalProfit.String())
}

func TestTopSellingProductsIgnoresOlderThanWindow(t *testing.T) {
	db := testutil.NewDB(t)

	// The oldest sale would dominate the ranking if it were inside the window.
	batch := []models.Transaction{{
		Timestamp: reportNow.Add(-time.Duration(TopSellingWindow+1) * time.Minute),
		Total:     testutil.Dec("1000"),
		Items:     []models.SaleItem{item("Rare", "X", 1000, "1")},
	}}
	for i := 0; i < TopSellingWindow; i++ {
		name := "Common"
		if i%4 == 0 {
			name = "Less common"
		}
		batch = append(batch, models.Transaction{
			Timestamp: reportNow.Add(-time.Duration(i) * time.Minute),
			Total:     testutil.Dec("2"),
			Items:     []models.SaleItem{item(name, "X", 1, "2")},
		})
	}
	require.NoError(t, db.CreateInBatches(batch, 50).Error)

	top, err := fixedReports(db, cache.Noop{}).TopSellingProducts(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "Common", top[0].Name)
	assert.Equal(t, 75, top[0].Qty)
	assertDec(t, "150", top[0].Revenue)
	assert.Equal(t, "Less common", top[1].Name)
	assert.Equal(t, 25, top[1].Qty)
	for _, row := range top {
		assert.NotEqual(t, "Rare", row.Name)
	}
}

func TestTopSellingProductsLimit(t *testing.T) {
	db := testutil.NewDB(t)
	seedSale(t, db, reportNow, "0",
		item("A", "X", 5, "0"), item("B", "X", 4, "0"), item("C", "X", 3, "0"),
		item("D", "X", 2, "0"), item("E", "X", 1, "0"), item("F", "X", 1, "0"))

	top, err := fixedReports(db, cache.Noop{}).TopSellingProducts(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, top, 5)
	assert.Equal(t, "E", top[4].Name, "ties break on name")
}

func TestSalesByCategoryWindow(t *testing.T) {
	db := testutil.NewDB(t)

	batch := []models.Transaction{{
		Timestamp: reportNow.Add(-time.Duration(CategoryWindow+1) * time.Minute),
		Total:     testutil.Dec("5000"),
		Items:     []models.SaleItem{item("Old", "Vintage", 1, "5000")},
	}}
	for i := 0; i < CategoryWindow; i++ {
		category := "Audio"
		if i%2 == 0 {
			category = ""
		}
		batch = append(batch, models.Transaction{
			Timestamp: reportNow.Add(-time.Duration(i) * time.Minute),
			Total:     testutil.Dec("3"),
			Items:     []models.SaleItem{item("Thing", category, 1, "3")},
		})
	}
	require.NoError(t, db.CreateInBatches(batch, 100).Error)

	byCategory, err := fixedReports(db, cache.Noop{}).SalesByCategory(context.Background())
	require.NoError(t, err)
	require.Len(t, byCategory, 2)
	assert.Equal(t, "Audio", byCategory[0].Name)
	assertDec(t, "750", byCategory[0].Value)
	assert.Equal(t, "Uncategorized", byCategory[1].Name)
	assertDec(t, "750", byCategory[1].Value)
}

func TestSalesByHour(t *testing.T) {
	db := testutil.NewDB(t)
	seedSale(t, db, time.Date(2025, 6, 9, 10, 5, 0, 0, time.UTC), "20", item("A", "X", 1, "20"))
	seedSale(t, db, time.Date(2025, 6, 1, 10, 55, 0, 0, time.UTC), "30", item("A", "X", 1, "30"))
	seedSale(t, db, time.Date(2025, 6, 10, 14, 0, 0, 0, time.UTC), "7", item("A", "X", 1, "7"))
	seedSale(t, db, reportNow.AddDate(0, 0, -31), "1000", item("A", "X", 1, "1000"))

	hours, err := fixedReports(db, cache.Noop{}).SalesByHour(context.Background())
	require.NoError(t, err)
	require.Len(t, hours, 24)
	assertDec(t, "50", hours[10].Sales)
	assertDec(t, "7", hours[14].Sales)
	assertDec(t, "0", hours[reportNow.Hour()].Sales)
}

func TestSalesByHourCacheRollsOverAtMidnight(t *testing.T) {
	db := testutil.NewDB(t)
	now := reportNow
	reports := NewReportService(db, cache.NewMemory(time.Hour), testutil.Logger(), time.UTC, 5).
		WithClock(func() time.Time { return now })

	hours, err := reports.SalesByHour(context.Background())
	require.NoError(t, err)
	assertDec(t, "0", hours[10].Sales)

	// Inserted behind the services' back, so nothing invalidates the cache.
	seedSale(t, db, time.Date(2025, 6, 10, 10, 0, 0, 0, time.UTC), "20", item("A", "X", 1, "20"))

	hours, err = reports.SalesByHour(context.Background())
	require.NoError(t, err)
	assertDec(t, "0", hours[10].Sales) // same day, served from cache

	now = now.Add(12 * time.Hour)
	hours, err = reports.SalesByHour(context.Background())
	require.NoError(t, err)
	assertDec(t, "20", hours[10].Sales)
}

func TestSalesByDay(t *testing.T) {
	db := testutil.NewDB(t)
	seedSale(t, db, reportNow.Add(-time.Hour), "10", item("A", "X", 1, "10"))
	seedSale(t, db, reportNow.AddDate(0, 0, -6), "20", item("A", "X", 1, "20"))
	seedSale(t, db, reportNow.AddDate(0, 0, -7), "40", item("A", "X", 1, "40"))

	days, err := fixedReports(db, cache.Noop{}).SalesByDay(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, days, 7)
	assert.Equal(t, "2025-06-04", days[0].Date)
	assertDec(t, "20", days[0].Sales)
	assert.Equal(t, "2025-06-10", days[6].Date)
	assertDec(t, "10", days[6].Sales)
	assert.Equal(t, 1, days[6].Orders)
}

func TestStockValuation(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.SeedProduct(t, db, models.Product{Name: "Mic", Category: "Audio", Stock: 3, PriceBuy: testutil.Dec("20")})
	testutil.SeedProduct(t, db, models.Product{Name: "Amp", Category: "Audio", Stock: 1, PriceBuy: testutil.Dec("100")})
	testutil.SeedProduct(t, db, models.Product{Name: "Tape", Stock: 10, PriceBuy: testutil.Dec("0.5")})

	v, err := fixedReports(db, cache.Noop{}).StockValuation(context.Background())
	require.NoError(t, err)
	require.Len(t, v.Categories, 2)
	assert.Equal(t, "Audio", v.Categories[0].CategoryName)
	assertDec(t, "160", v.Categories[0].Subtotal)
	assert.Equal(t, "Uncategorized", v.Categories[1].CategoryName)
	assertDec(t, "165", v.GrandTotal)
}

func TestSalesReportRange(t *testing.T) {
	db := testutil.NewDB(t)
	seedSale(t, db, reportNow.AddDate(0, 0, -2), "10", item("A", "X", 1, "10"))
	seedSale(t, db, reportNow, "5", item("A", "X", 1, "5"))
	r := fixedReports(db, cache.Noop{})

	res, err := r.SalesReport(context.Background(), reportNow.AddDate(0, 0, -3), reportNow)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.TotalCount)
	assertDec(t, "10", res.TotalRevenue)

	_, err = r.SalesReport(context.Background(), reportNow, reportNow)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestReportsAreCachedUntilInvalidated(t *testing.T) {
	db := testutil.NewDB(t)
	mem := cache.NewMemory(time.Hour)
	r := fixedReports(db, mem)
	ctx := context.Background()
	seedSale(t, db, reportNow, "10", item("A", "X", 1, "10"))

	before, err := r.TopSellingProducts(ctx, 5)
	require.NoError(t, err)
	require.Len(t, before, 1)

	seedSale(t, db, reportNow, "10", item("B", "X", 9, "10"))
	cached, err := r.TopSellingProducts(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, cached, 1)

	require.NoError(t, mem.Invalidate(ctx))
	after, err := r.TopSellingProducts(ctx, 5)
	require.NoError(t, err)
	require.Len(t, after, 2)
	assert.Equal(t, "B", after[0].Name)
}

func TestRecentActivity(t *testing.T) {
	db := testutil.NewDB(t)
	var last models.Transaction
	for i := 0; i < 7; i++ {
		last = seedSale(t, db, reportNow.Add(time.Duration(i)*time.Minute), "1", item("A", "X", 1, "1"))
	}

	recent, err := fixedReports(db, cache.Noop{}).RecentActivity(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, recent, 5)
	assert.Equal(t, last.ID, recent[0].ID)
}
