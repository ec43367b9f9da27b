package database

import (
	"time"

	"go-pos-ledger/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SalesReportResult holds the data the assistant and the report endpoint need
type SalesReportResult struct {
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	TotalProfit  decimal.Decimal `json:"total_profit"`
	TotalCount   int64           `json:"total_count"`
}

type sumRow struct {
	Revenue decimal.Decimal
	Profit  decimal.Decimal
}

// GetSalesReport calculates sales within [start, end)
func GetSalesReport(db *gorm.DB, start, end time.Time) (*SalesReportResult, error) {
	var result SalesReportResult
	var sums sumRow

	// 1. Calculate Revenue and Profit
	// COALESCE ensures we get 0 instead of NULL if no sales exist
	err := db.Model(&models.Transaction{}).
		Where("timestamp >= ? AND timestamp < ?", start.UTC(), end.UTC()).
		Select("COALESCE(SUM(total), 0) AS revenue, COALESCE(SUM(profit), 0) AS profit").
		Scan(&sums).Error
	if err != nil {
		return nil, err
	}
	result.TotalRevenue = sums.Revenue.Round(models.MoneyScale)
	result.TotalProfit = sums.Profit.Round(models.MoneyScale)

	// 2. Count Orders
	err = db.Model(&models.Transaction{}).
		Where("timestamp >= ? AND timestamp < ?", start.UTC(), end.UTC()).
		Count(&result.TotalCount).Error
	if err != nil {
		return nil, err
	}

	return &result, nil
}
