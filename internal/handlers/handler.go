package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"go-pos-ledger/internal/ai"
	"go-pos-ledger/internal/apperr"
	"go-pos-ledger/internal/auth"
	"go-pos-ledger/internal/config"
	"go-pos-ledger/internal/database"
	"go-pos-ledger/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Handler binds the HTTP routes to the services.
type Handler struct {
	DB        *gorm.DB
	Schema    *database.Schema
	Config    *config.Config
	Signer    *auth.Signer
	Products  *services.ProductService
	Sales     *services.SaleService
	Customers *services.CustomerService
	Carts     *services.HeldCartService
	Repairs   *services.RepairService
	Reports   *services.ReportService
	Users     *services.UserService
	Agent     *ai.Agent
	Log       logrus.FieldLogger

	// UploadDir is where product images are written; defaults to ./uploads.
	UploadDir string
}

// respondError maps an error kind to a status and writes {"error": ...}.
func (h *Handler) respondError(c *gin.Context, funcName string, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
	case errors.Is(err, apperr.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrIntegrity):
		config.LogError(h.Log, "handlers", funcName, c.FullPath(), nil, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "no changes were saved"})
	default:
		config.LogError(h.Log, "handlers", funcName, c.FullPath(), nil, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// parseID reads a positive numeric path parameter, answering 400 when it is not one.
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return uint(id), true
}

// bindJSON decodes the body, answering 400 on malformed input.
func bindJSON(c *gin.Context, dest any) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return false
	}
	return true
}
