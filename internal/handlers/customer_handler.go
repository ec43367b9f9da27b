package handlers

import (
	"net/http"

	"go-pos-ledger/internal/services"

	"github.com/gin-gonic/gin"
)

func (h *Handler) GetCustomers(c *gin.Context) {
	customers, err := h.Customers.List(c.Request.Context())
	if err != nil {
		h.respondError(c, "GetCustomers", err)
		return
	}
	c.JSON(http.StatusOK, customers)
}

func (h *Handler) GetCustomer(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	customer, err := h.Customers.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "GetCustomer", err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

func (h *Handler) AddCustomer(c *gin.Context) {
	var in services.CustomerInput
	if !bindJSON(c, &in) {
		return
	}
	customer, err := h.Customers.Create(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, "AddCustomer", err)
		return
	}
	c.JSON(http.StatusCreated, customer)
}

func (h *Handler) UpdateCustomer(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var in services.CustomerInput
	if !bindJSON(c, &in) {
		return
	}
	customer, err := h.Customers.Update(c.Request.Context(), id, in)
	if err != nil {
		h.respondError(c, "UpdateCustomer", err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

func (h *Handler) DeleteCustomer(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.Customers.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, "DeleteCustomer", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Customer deleted successfully"})
}

// --- GET: /api/customers/points?name=Alice ---
// Display helper for the checkout screen; unknown names have 0 points.
func (h *Handler) GetCustomerPoints(c *gin.Context) {
	points, err := h.Customers.PointsFor(c.Request.Context(), c.Query("name"))
	if err != nil {
		h.respondError(c, "GetCustomerPoints", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"points": points})
}

func (h *Handler) GetPointsHistory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	movements, err := h.Customers.PointsHistory(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "GetPointsHistory", err)
		return
	}
	c.JSON(http.StatusOK, movements)
}
