package handlers

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"go-pos-ledger/internal/services"

	"github.com/gin-gonic/gin"
)

var imageExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true}

// --- GET: List all products ---
func (h *Handler) GetProducts(c *gin.Context) {
	products, err := h.Products.List(c.Request.Context())
	if err != nil {
		h.respondError(c, "GetProducts", err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (h *Handler) GetProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	product, err := h.Products.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "GetProduct", err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// --- GET: Barcode scanner lookup ---
func (h *Handler) ScanProduct(c *gin.Context) {
	product, err := h.Products.GetBySKU(c.Request.Context(), c.Param("barcode"))
	if err != nil {
		h.respondError(c, "ScanProduct", err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// --- POST: Add a new product ---
func (h *Handler) AddProduct(c *gin.Context) {
	var in services.ProductInput
	if !bindJSON(c, &in) {
		return
	}
	product, err := h.Products.Create(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, "AddProduct", err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

// --- PUT: Update product (stock changes go through the ledger) ---
func (h *Handler) UpdateProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var in services.ProductInput
	if !bindJSON(c, &in) {
		return
	}
	product, err := h.Products.Update(c.Request.Context(), id, in)
	if err != nil {
		h.respondError(c, "UpdateProduct", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product updated successfully", "product": product})
}

type adjustStockRequest struct {
	Delta int `json:"delta" binding:"required"`
}

// --- POST: Manual stock correction ---
func (h *Handler) AdjustStock(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req adjustStockRequest
	if !bindJSON(c, &req) {
		return
	}
	movement, err := h.Products.AdjustStock(c.Request.Context(), id, req.Delta)
	if err != nil {
		h.respondError(c, "AdjustStock", err)
		return
	}
	c.JSON(http.StatusOK, movement)
}

func (h *Handler) GetStockMovements(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	movements, err := h.Products.Movements(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "GetStockMovements", err)
		return
	}
	c.JSON(http.StatusOK, movements)
}

// --- DELETE: Remove a product ---
func (h *Handler) DeleteProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.Products.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, "DeleteProduct", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
}

// --- UPLOAD: Handle Image Files ---
func (h *Handler) UploadImage(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !imageExtensions[ext] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only image files are allowed"})
		return
	}

	// e.g. "167890123_burger.jpg"
	filename := fmt.Sprintf("%d_%s", time.Now().Unix(), filepath.Base(file.Filename))
	dir := h.UploadDir
	if dir == "" {
		dir = "./uploads"
	}
	if err := c.SaveUploadedFile(file, filepath.Join(dir, filename)); err != nil {
		h.respondError(c, "UploadImage", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "File uploaded successfully",
		"url":     strings.TrimRight(h.Config.BaseURL, "/") + "/uploads/" + filename,
	})
}
