package handlers

import (
	"net/http"

	"go-pos-ledger/internal/models"

	"github.com/gin-gonic/gin"
)

type holdCartRequest struct {
	CustomerName string            `json:"customer_name"`
	Items        []models.SaleItem `json:"items"`
}

// --- POST: /api/held-carts ---
func (h *Handler) HoldCart(c *gin.Context) {
	var req holdCartRequest
	if !bindJSON(c, &req) {
		return
	}
	id, err := h.Carts.Hold(c.Request.Context(), req.CustomerName, req.Items)
	if err != nil {
		h.respondError(c, "HoldCart", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (h *Handler) GetHeldCarts(c *gin.Context) {
	carts, err := h.Carts.List(c.Request.Context())
	if err != nil {
		h.respondError(c, "GetHeldCarts", err)
		return
	}
	c.JSON(http.StatusOK, carts)
}

func (h *Handler) DeleteHeldCart(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.Carts.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, "DeleteHeldCart", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Held cart deleted"})
}

// --- POST: /api/held-carts/:id/recall ---
// The cart is removed and returned with any stock shortfalls; nothing is reserved.
func (h *Handler) RecallHeldCart(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	recalled, err := h.Carts.Recall(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "RecallHeldCart", err)
		return
	}
	c.JSON(http.StatusOK, recalled)
}
