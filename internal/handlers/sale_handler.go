package handlers

import (
	"net/http"
	"strings"
	"time"

	"go-pos-ledger/internal/apperr"
	"go-pos-ledger/internal/ledger"
	"go-pos-ledger/internal/models"
	"go-pos-ledger/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// --- POST: /api/checkout ---
func (h *Handler) ProcessSale(c *gin.Context) {
	var req services.NewTransaction
	if !bindJSON(c, &req) {
		return
	}

	id, err := h.Sales.CreateTransaction(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, "ProcessSale", err)
		return
	}

	h.Log.WithField("cashier", c.GetString("username")).WithField("transaction_id", id).Info("💰 sale recorded")
	c.JSON(http.StatusCreated, gin.H{"message": "Sale successful!", "transaction_id": id})
}

func (h *Handler) GetTransactions(c *gin.Context) {
	txns, err := h.Sales.ListTransactions(c.Request.Context())
	if err != nil {
		h.respondError(c, "GetTransactions", err)
		return
	}
	c.JSON(http.StatusOK, txns)
}

func (h *Handler) GetTransaction(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	txn, err := h.Sales.GetTransaction(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "GetTransaction", err)
		return
	}
	c.JSON(http.StatusOK, txn)
}

type amendRequest struct {
	NewDate     string            `json:"new_date"`
	NewCustomer string            `json:"new_customer"`
	NewTotal    decimal.Decimal   `json:"new_total"`
	NewItems    []models.SaleItem `json:"new_items"`
}

// --- PUT: /api/transactions/:id ---
func (h *Handler) AmendTransaction(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req amendRequest
	if !bindJSON(c, &req) {
		return
	}

	at, err := h.parseDate(req.NewDate)
	if err != nil {
		h.respondError(c, "AmendTransaction", err)
		return
	}

	err = h.Sales.AmendTransaction(c.Request.Context(), services.Amendment{
		ID:           id,
		Timestamp:    at,
		CustomerName: req.NewCustomer,
		Total:        req.NewTotal,
		Items:        req.NewItems,
	})
	if err != nil {
		h.respondError(c, "AmendTransaction", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Transaction updated"})
}

// --- GET: /api/customers/history?customer_id=3 or ?name=Alice ---
func (h *Handler) GetCustomerHistory(c *gin.Context) {
	ref := ledger.CustomerRef{Name: c.Query("name")}
	if raw := c.Query("customer_id"); raw != "" {
		n := queryInt(c, "customer_id")
		if n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid customer_id"})
			return
		}
		id := uint(n)
		ref.ID = &id
	}

	txns, err := h.Sales.GetCustomerHistory(c.Request.Context(), ref)
	if err != nil {
		h.respondError(c, "GetCustomerHistory", err)
		return
	}
	c.JSON(http.StatusOK, txns)
}

// parseDate accepts an RFC 3339 timestamp or a plain YYYY-MM-DD day in the
// shop's timezone. Blank yields the zero time.
func (h *Handler) parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", raw, h.Reports.Location())
	if err != nil {
		return time.Time{}, apperr.Validation("new_date must be YYYY-MM-DD or RFC 3339")
	}
	return t, nil
}
