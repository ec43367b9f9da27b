package handlers

import (
	"net/http"

	"go-pos-ledger/internal/models"
	"go-pos-ledger/internal/services"

	"github.com/gin-gonic/gin"
)

func (h *Handler) GetRepairs(c *gin.Context) {
	repairs, err := h.Repairs.List(c.Request.Context())
	if err != nil {
		h.respondError(c, "GetRepairs", err)
		return
	}
	c.JSON(http.StatusOK, repairs)
}

func (h *Handler) AddRepair(c *gin.Context) {
	var in services.RepairInput
	if !bindJSON(c, &in) {
		return
	}
	ticket, err := h.Repairs.Create(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, "AddRepair", err)
		return
	}
	c.JSON(http.StatusCreated, ticket)
}

// --- POST: /api/repairs/:id/advance ---
// Pending -> In_Progress -> Done -> Pending
func (h *Handler) AdvanceRepair(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	status, err := h.Repairs.Advance(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "AdvanceRepair", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "status": status})
}

type repairStatusRequest struct {
	Status models.RepairStatus `json:"status" binding:"required"`
}

func (h *Handler) SetRepairStatus(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req repairStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.Repairs.SetStatus(c.Request.Context(), id, req.Status); err != nil {
		h.respondError(c, "SetRepairStatus", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "status": req.Status})
}

func (h *Handler) DeleteRepair(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.Repairs.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, "DeleteRepair", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Repair deleted successfully"})
}
