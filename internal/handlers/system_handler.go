package handlers

import (
	"net/http"
	"path/filepath"
	"strings"

	"go-pos-ledger/internal/database"
	"go-pos-ledger/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// GetSystemStatus reports the terminal's device ID and the schema it runs on.
func (h *Handler) GetSystemStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"device_id":         utils.GetDeviceID(),
		"schema_version":    h.Schema.Version,
		"legacy_repair_col": h.Schema.Capabilities.LegacyRepairDateIn,
		"db_driver":         h.DB.Dialector.Name(),
		"assistant_enabled": h.Agent.Enabled(),
	})
}

// --- POST: /api/system/backup ---
func (h *Handler) BackupDatabase(c *gin.Context) {
	path, err := database.Backup(h.DB.WithContext(c.Request.Context()), h.Config.BackupDir, utils.GetDeviceID())
	if err != nil {
		h.respondError(c, "BackupDatabase", err)
		return
	}
	h.Log.WithField("path", path).Info("💾 backup written")
	c.JSON(http.StatusOK, gin.H{"message": "Backup created", "file": filepath.Base(path)})
}

// --- GET: /api/system/backups ---
func (h *Handler) GetBackups(c *gin.Context) {
	files, err := database.ListBackups(h.Config.BackupDir)
	if err != nil {
		h.respondError(c, "GetBackups", err)
		return
	}
	c.JSON(http.StatusOK, files)
}

type restoreRequest struct {
	File string `json:"file" binding:"required"`
}

// --- POST: /api/system/restore ---
// File is a name from GetBackups; paths outside the backup directory are refused.
func (h *Handler) RestoreBackup(c *gin.Context) {
	var req restoreRequest
	if !bindJSON(c, &req) {
		return
	}
	if filepath.Base(req.File) != req.File || strings.HasPrefix(req.File, ".") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file must be a backup name, not a path"})
		return
	}

	ctx := c.Request.Context()
	if err := database.Restore(h.DB.WithContext(ctx), filepath.Join(h.Config.BackupDir, req.File)); err != nil {
		h.respondError(c, "RestoreBackup", err)
		return
	}
	if err := h.Reports.Invalidate(ctx); err != nil {
		h.Log.WithError(err).Warn("could not invalidate report cache")
	}

	h.Log.WithFields(logrus.Fields{"file": req.File, "user": c.GetString("username")}).Warn("♻️ backup restored")
	c.JSON(http.StatusOK, gin.H{"message": "Database restored", "file": req.File})
}

type factoryResetRequest struct {
	Confirm string `json:"confirm" binding:"required"`
}

// --- POST: /api/system/reset ---
// Requires {"confirm": "RESET"} so a stray click cannot wipe the shop.
func (h *Handler) FactoryReset(c *gin.Context) {
	var req factoryResetRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Confirm != "RESET" {
		c.JSON(http.StatusBadRequest, gin.H{"error": `confirm must be "RESET"`})
		return
	}

	ctx := c.Request.Context()
	if err := database.FactoryReset(h.DB.WithContext(ctx)); err != nil {
		h.respondError(c, "FactoryReset", err)
		return
	}
	if err := h.Reports.Invalidate(ctx); err != nil {
		h.Log.WithError(err).Warn("could not invalidate report cache")
	}

	h.Log.WithField("user", c.GetString("username")).Warn("⚠️ factory reset performed")
	c.JSON(http.StatusOK, gin.H{"message": "All sales, stock and customer data was erased"})
}
