package handlers

import (
	"errors"
	"net/http"

	"go-pos-ledger/internal/ai"

	"github.com/gin-gonic/gin"
)

type AskRequest struct {
	Message string `json:"message" binding:"required"`
}

func (h *Handler) AskAI(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message is required"})
		return
	}

	response, err := h.Agent.Ask(c.Request.Context(), req.Message)
	if errors.Is(err, ai.ErrDisabled) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Server missing Gemini API key"})
		return
	}
	if err != nil {
		h.respondError(c, "AskAI", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"reply": response})
}
