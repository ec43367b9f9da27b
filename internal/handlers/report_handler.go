package handlers

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"go-pos-ledger/internal/apperr"
	"go-pos-ledger/internal/export"

	"github.com/gin-gonic/gin"
)

// --- GET: /api/reports/dashboard ---
func (h *Handler) GetDashboard(c *gin.Context) {
	stats, err := h.Reports.DashboardStats(c.Request.Context())
	if err != nil {
		h.respondError(c, "GetDashboard", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// --- GET: /api/reports/top?limit=5 ---
func (h *Handler) GetTopSelling(c *gin.Context) {
	top, err := h.Reports.TopSellingProducts(c.Request.Context(), queryInt(c, "limit"))
	if err != nil {
		h.respondError(c, "GetTopSelling", err)
		return
	}
	c.JSON(http.StatusOK, top)
}

func (h *Handler) GetSalesByCategory(c *gin.Context) {
	rows, err := h.Reports.SalesByCategory(c.Request.Context())
	if err != nil {
		h.respondError(c, "GetSalesByCategory", err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *Handler) GetSalesByHour(c *gin.Context) {
	rows, err := h.Reports.SalesByHour(c.Request.Context())
	if err != nil {
		h.respondError(c, "GetSalesByHour", err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// --- GET: /api/reports/daily?days=7 ---
func (h *Handler) GetSalesByDay(c *gin.Context) {
	rows, err := h.Reports.SalesByDay(c.Request.Context(), queryInt(c, "days"))
	if err != nil {
		h.respondError(c, "GetSalesByDay", err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *Handler) GetRecentActivity(c *gin.Context) {
	rows, err := h.Reports.RecentActivity(c.Request.Context(), queryInt(c, "limit"))
	if err != nil {
		h.respondError(c, "GetRecentActivity", err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// --- GET: /api/reports/valuation ---
// GetStockValuation returns the value of stock on hand at cost, grouped by category.
func (h *Handler) GetStockValuation(c *gin.Context) {
	valuation, err := h.Reports.StockValuation(c.Request.Context())
	if err != nil {
		h.respondError(c, "GetStockValuation", err)
		return
	}
	c.JSON(http.StatusOK, valuation)
}

// --- GET: /api/reports/sales?start=2025-01-01&end=2025-01-31 ---
// Both days are included.
func (h *Handler) GetSalesReport(c *gin.Context) {
	start, end, err := h.dateRange(c)
	if err != nil {
		h.respondError(c, "GetSalesReport", err)
		return
	}
	report, err := h.Reports.SalesReport(c.Request.Context(), start, end)
	if err != nil {
		h.respondError(c, "GetSalesReport", err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// --- GET: /api/reports/export ---
// Streams every recorded sale as an xlsx workbook.
func (h *Handler) ExportTransactions(c *gin.Context) {
	txns, err := h.Sales.ListTransactions(c.Request.Context())
	if err != nil {
		h.respondError(c, "ExportTransactions", err)
		return
	}

	var buf bytes.Buffer
	loc := h.Reports.Location()
	if err := export.WriteTransactions(&buf, txns, loc); err != nil {
		h.respondError(c, "ExportTransactions", err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+export.FileName(time.Now().In(loc))+`"`)
	c.Data(http.StatusOK, export.ContentType, buf.Bytes())
}

func (h *Handler) dateRange(c *gin.Context) (time.Time, time.Time, error) {
	loc := h.Reports.Location()
	start, err := time.ParseInLocation("2006-01-02", c.Query("start"), loc)
	if err != nil {
		return time.Time{}, time.Time{}, apperr.Validation("start must be a YYYY-MM-DD date")
	}
	end, err := time.ParseInLocation("2006-01-02", c.Query("end"), loc)
	if err != nil {
		return time.Time{}, time.Time{}, apperr.Validation("end must be a YYYY-MM-DD date")
	}
	return start, end.AddDate(0, 0, 1), nil
}

// queryInt returns 0 (the service default) when the parameter is missing or not a number.
func queryInt(c *gin.Context, name string) int {
	n, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return 0
	}
	return n
}
