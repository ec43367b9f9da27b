package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go-pos-ledger/internal/apperr"
	"go-pos-ledger/internal/cache"
	"go-pos-ledger/internal/database"
	"go-pos-ledger/internal/metrics"
	"go-pos-ledger/internal/models"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Report windows. Top sellers and category sales look at the most recent
// transactions only, hourly sales at the last 30 days.
const (
	TopSellingWindow = 100
	CategoryWindow   = 500
	HourlyWindowDays = 30

	defaultTopLimit    = 5
	defaultRecentLimit = 5
	defaultDays        = 7
)

type DashboardStats struct {
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	NetProfit     decimal.Decimal `json:"net_profit"`
	TotalOrders   int64           `json:"total_orders"`
	LowStockCount int64           `json:"low_stock_count"`
}

type ProductSales struct {
	Name    string          `json:"name"`
	Qty     int             `json:"qty"`
	Revenue decimal.Decimal `json:"revenue"`
}

type CategorySales struct {
	Name  string          `json:"name"`
	Value decimal.Decimal `json:"value"`
}

type HourlySales struct {
	Hour  int             `json:"hour"`
	Sales decimal.Decimal `json:"sales"`
}

type DailySales struct {
	Date   string          `json:"date"`
	Sales  decimal.Decimal `json:"sales"`
	Orders int             `json:"orders"`
}

// ValuationItem is one product line of the stock valuation.
type ValuationItem struct {
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	CostPrice decimal.Decimal `json:"cost_price"`
	TotalCost decimal.Decimal `json:"total_cost"`
}

// CategoryGroup is one category table of the valuation.
type CategoryGroup struct {
	CategoryName string          `json:"category_name"`
	Items        []ValuationItem `json:"items"`
	Subtotal     decimal.Decimal `json:"subtotal"`
}

type Valuation struct {
	Categories []CategoryGroup `json:"categories"`
	GrandTotal decimal.Decimal `json:"grand_total"`
}

// ReportService derives dashboard figures from committed sales. It never writes.
type ReportService struct {
	db       *gorm.DB
	reports  cache.ReportCache
	log      logrus.FieldLogger
	loc      *time.Location
	lowStock int
	now      func() time.Time
}

func NewReportService(db *gorm.DB, reports cache.ReportCache, log logrus.FieldLogger, loc *time.Location, lowStockThreshold int) *ReportService {
	if loc == nil {
		loc = time.Local
	}
	return &ReportService{
		db:       db,
		reports:  reports,
		log:      log.WithField("module", "reports"),
		loc:      loc,
		lowStock: lowStockThreshold,
		now:      time.Now,
	}
}

// WithClock replaces the time source that defines "today".
func (s *ReportService) WithClock(now func() time.Time) *ReportService {
	s.now = now
	return s
}

func (s *ReportService) today() (time.Time, time.Time) {
	n := s.now().In(s.loc)
	start := time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, s.loc)
	return start, start.AddDate(0, 0, 1)
}

// cached serves key from the report cache or computes and stores it.
// A broken cache only costs a recomputation.
func cached[T any](ctx context.Context, s *ReportService, key string, compute func() (T, error)) (T, error) {
	var out T
	hit, err := s.reports.Get(ctx, key, &out)
	if err != nil {
		s.log.WithError(err).WithField("key", key).Warn("report cache read failed")
	}
	if hit && err == nil {
		return out, nil
	}

	out, err = compute()
	if err != nil {
		return out, err
	}
	if err := s.reports.Set(ctx, key, out); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("report cache write failed")
	}
	return out, nil
}

// DashboardStats: today's revenue and order count, all-time net profit and
// the number of products under the low-stock threshold.
func (s *ReportService) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	start, end := s.today()
	key := "dashboard:" + start.Format("2006-01-02")

	stats, err := cached(ctx, s, key, func() (DashboardStats, error) {
		var stats DashboardStats
		db := s.db.WithContext(ctx)

		today, err := database.GetSalesReport(db, start, end)
		if err != nil {
			return stats, err
		}
		stats.TotalRevenue = today.TotalRevenue
		stats.TotalOrders = today.TotalCount

		var profit sumRow
		if err := db.Model(&models.Transaction{}).Select("COALESCE(SUM(profit), 0) AS profit").Scan(&profit).Error; err != nil {
			return stats, err
		}
		stats.NetProfit = profit.Profit.Round(models.MoneyScale)

		if err := db.Model(&models.Product{}).Where("stock < ?", s.lowStock).Count(&stats.LowStockCount).Error; err != nil {
			return stats, err
		}
		return stats, nil
	})
	if err != nil {
		return nil, err
	}

	metrics.LowStockProducts.Set(float64(stats.LowStockCount))
	return &stats, nil
}

type sumRow struct {
	Profit decimal.Decimal
}

// recentItems loads the item snapshots of the newest limit transactions.
func (s *ReportService) recentItems(ctx context.Context, limit int) ([]models.Transaction, error) {
	var txns []models.Transaction
	err := s.db.WithContext(ctx).
		Select("id", "timestamp", "items_json").
		Order("timestamp desc, id desc").
		Limit(limit).
		Find(&txns).Error
	return txns, err
}

// TopSellingProducts ranks item names by quantity over the latest 100 sales.
func (s *ReportService) TopSellingProducts(ctx context.Context, limit int) ([]ProductSales, error) {
	if limit <= 0 {
		limit = defaultTopLimit
	}
	return cached(ctx, s, fmt.Sprintf("top:%d", limit), func() ([]ProductSales, error) {
		txns, err := s.recentItems(ctx, TopSellingWindow)
		if err != nil {
			return nil, err
		}

		byName := map[string]*ProductSales{}
		for _, txn := range txns {
			for _, item := range txn.Items {
				row, ok := byName[item.Name]
				if !ok {
					row = &ProductSales{Name: item.Name, Revenue: decimal.Zero}
					byName[item.Name] = row
				}
				row.Qty += item.Quantity
				row.Revenue = row.Revenue.Add(item.LineTotal())
			}
		}

		out := make([]ProductSales, 0, len(byName))
		for _, row := range byName {
			out = append(out, *row)
		}
		sort.Slice(out, func(i, j int) bool {
			if out[i].Qty != out[j].Qty {
				return out[i].Qty > out[j].Qty
			}
			return out[i].Name < out[j].Name
		})
		if len(out) > limit {
			out = out[:limit]
		}
		return out, nil
	})
}

// SalesByCategory sums line revenue per item category over the latest 500 sales.
func (s *ReportService) SalesByCategory(ctx context.Context) ([]CategorySales, error) {
	return cached(ctx, s, "category", func() ([]CategorySales, error) {
		txns, err := s.recentItems(ctx, CategoryWindow)
		if err != nil {
			return nil, err
		}

		byCategory := map[string]decimal.Decimal{}
		for _, txn := range txns {
			for _, item := range txn.Items {
				name := strings.TrimSpace(item.Category)
				if name == "" {
					name = "Uncategorized"
				}
				byCategory[name] = byCategory[name].Add(item.LineTotal())
			}
		}

		out := make([]CategorySales, 0, len(byCategory))
		for name, value := range byCategory {
			out = append(out, CategorySales{Name: name, Value: value})
		}
		sort.Slice(out, func(i, j int) bool {
			if !out[i].Value.Equal(out[j].Value) {
				return out[i].Value.GreaterThan(out[j].Value)
			}
			return out[i].Name < out[j].Name
		})
		return out, nil
	})
}

// SalesByHour sums totals of the last 30 days into 24 hour-of-day buckets.
func (s *ReportService) SalesByHour(ctx context.Context) ([]HourlySales, error) {
	todayStart, _ := s.today()
	return cached(ctx, s, "hourly:"+todayStart.Format("2006-01-02"), func() ([]HourlySales, error) {
		since := s.now().AddDate(0, 0, -HourlyWindowDays).UTC()

		var txns []models.Transaction
		err := s.db.WithContext(ctx).
			Select("id", "timestamp", "total").
			Where("timestamp >= ?", since).
			Find(&txns).Error
		if err != nil {
			return nil, err
		}

		out := make([]HourlySales, 24)
		for h := range out {
			out[h] = HourlySales{Hour: h, Sales: decimal.Zero}
		}
		for _, txn := range txns {
			h := txn.Timestamp.In(s.loc).Hour()
			out[h].Sales = out[h].Sales.Add(txn.Total)
		}
		return out, nil
	})
}

// SalesByDay returns one bucket per calendar day, oldest first, ending today.
func (s *ReportService) SalesByDay(ctx context.Context, days int) ([]DailySales, error) {
	if days <= 0 {
		days = defaultDays
	}
	todayStart, end := s.today()
	start := todayStart.AddDate(0, 0, -(days - 1))

	return cached(ctx, s, fmt.Sprintf("daily:%s:%d", todayStart.Format("2006-01-02"), days), func() ([]DailySales, error) {
		var txns []models.Transaction
		err := s.db.WithContext(ctx).
			Select("id", "timestamp", "total").
			Where("timestamp >= ? AND timestamp < ?", start.UTC(), end.UTC()).
			Find(&txns).Error
		if err != nil {
			return nil, err
		}

		out := make([]DailySales, days)
		index := make(map[string]int, days)
		for i := range out {
			date := start.AddDate(0, 0, i).Format("2006-01-02")
			out[i] = DailySales{Date: date, Sales: decimal.Zero}
			index[date] = i
		}
		for _, txn := range txns {
			i, ok := index[txn.Timestamp.In(s.loc).Format("2006-01-02")]
			if !ok {
				continue
			}
			out[i].Sales = out[i].Sales.Add(txn.Total)
			out[i].Orders++
		}
		return out, nil
	})
}

// RecentActivity returns the newest sales. It is not cached.
func (s *ReportService) RecentActivity(ctx context.Context, limit int) ([]models.Transaction, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	var txns []models.Transaction
	err := s.db.WithContext(ctx).Order("timestamp desc, id desc").Limit(limit).Find(&txns).Error
	return txns, err
}

// StockValuation values every unit on hand at its buying price, grouped by category.
func (s *ReportService) StockValuation(ctx context.Context) (*Valuation, error) {
	var products []models.Product
	if err := s.db.WithContext(ctx).Order("name asc, id asc").Find(&products).Error; err != nil {
		return nil, err
	}

	grouped := make(map[string]*CategoryGroup)
	out := &Valuation{Categories: []CategoryGroup{}, GrandTotal: decimal.Zero}
	for _, p := range products {
		category := p.Category
		if category == "" {
			category = "Uncategorized"
		}
		group, ok := grouped[category]
		if !ok {
			group = &CategoryGroup{CategoryName: category, Items: []ValuationItem{}, Subtotal: decimal.Zero}
			grouped[category] = group
		}

		total := p.PriceBuy.Mul(decimal.NewFromInt(int64(p.Stock)))
		group.Items = append(group.Items, ValuationItem{
			Name:      p.Name,
			Quantity:  p.Stock,
			CostPrice: p.PriceBuy,
			TotalCost: total,
		})
		group.Subtotal = group.Subtotal.Add(total)
		out.GrandTotal = out.GrandTotal.Add(total)
	}

	for _, group := range grouped {
		out.Categories = append(out.Categories, *group)
	}
	sort.Slice(out.Categories, func(i, j int) bool {
		return out.Categories[i].CategoryName < out.Categories[j].CategoryName
	})
	return out, nil
}

// SalesReport totals sales in [start, end).
func (s *ReportService) SalesReport(ctx context.Context, start, end time.Time) (*database.SalesReportResult, error) {
	if !end.After(start) {
		return nil, apperr.Validation("end must be after start")
	}
	return database.GetSalesReport(s.db.WithContext(ctx), start, end)
}

// Location is the zone that defines calendar days for reports.
func (s *ReportService) Location() *time.Location {
	return s.loc
}

// Invalidate drops every cached report, for writes that bypass the services.
func (s *ReportService) Invalidate(ctx context.Context) error {
	return s.reports.Invalidate(ctx)
}
