// Package metrics exposes Prometheus counters for the sale engine and ledgers.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SalesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pos_sales_created_total",
		Help: "Sales transactions committed.",
	})
	SalesAmended = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pos_sales_amended_total",
		Help: "Sales transactions amended.",
	})
	SalesRevenue = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pos_sales_revenue_total",
		Help: "Sum of totals of committed sales.",
	})
	StockMovements = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_stock_movements_total",
		Help: "Stock ledger movements committed, by reason.",
	}, []string{"reason"})
	PointsMovements = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_points_movements_total",
		Help: "Loyalty ledger movements committed, by reason.",
	}, []string{"reason"})
	RolledBack = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_units_of_work_rolled_back_total",
		Help: "Multi-step mutations that failed and were rolled back, by operation.",
	}, []string{"operation"})
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_http_requests_total",
		Help: "HTTP requests served, by route and status code.",
	}, []string{"method", "route", "status"})
	LowStockProducts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pos_low_stock_products",
		Help: "Products under the low-stock threshold at the last dashboard read.",
	})
)
