package handlers

import (
	"net/http"

	"go-pos-ledger/internal/middleware"
	"go-pos-ledger/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes wires every endpoint onto r. Static frontend serving is left to the caller.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "online"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.POST("/login", h.Login)

	// --- FEATURE FLAG: Registration ---
	// Only opens if we explicitly allow it in config
	if h.Config.AllowRegistration {
		r.POST("/register", h.Register)
		h.Log.Warn("⚠️ Registration route is OPEN. Disable this in production!")
	} else {
		h.Log.Info("🔒 Registration route is safely DISABLED.")
	}

	r.GET("/api/system/status", h.GetSystemStatus)

	// --- PROTECTED ROUTES ---
	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware(h.Signer))
	{
		// PUBLIC TO STAFF & ADMIN
		api.GET("/products", h.GetProducts)
		api.GET("/products/:id", h.GetProduct)
		api.GET("/products/scan/:barcode", h.ScanProduct)

		api.POST("/checkout", h.ProcessSale)
		api.GET("/transactions", h.GetTransactions)
		api.GET("/transactions/:id", h.GetTransaction)

		api.GET("/customers", h.GetCustomers)
		api.GET("/customers/points", h.GetCustomerPoints)
		api.GET("/customers/history", h.GetCustomerHistory)
		api.GET("/customers/:id", h.GetCustomer)
		api.GET("/customers/:id/points", h.GetPointsHistory)
		api.POST("/customers", h.AddCustomer)
		api.PUT("/customers/:id", h.UpdateCustomer)

		api.GET("/held-carts", h.GetHeldCarts)
		api.POST("/held-carts", h.HoldCart)
		api.POST("/held-carts/:id/recall", h.RecallHeldCart)
		api.DELETE("/held-carts/:id", h.DeleteHeldCart)

		api.GET("/repairs", h.GetRepairs)
		api.POST("/repairs", h.AddRepair)
		api.POST("/repairs/:id/advance", h.AdvanceRepair)
		api.PUT("/repairs/:id/status", h.SetRepairStatus)

		api.GET("/reports/dashboard", h.GetDashboard)

		// ADMIN ONLY
		admin := api.Group("/")
		admin.Use(middleware.RequireRole(services.RoleAdmin))
		{
			admin.POST("/ask", h.AskAI)

			admin.POST("/upload", h.UploadImage)
			admin.POST("/products", h.AddProduct)
			admin.PUT("/products/:id", h.UpdateProduct)
			admin.POST("/products/:id/stock", h.AdjustStock)
			admin.GET("/products/:id/movements", h.GetStockMovements)
			admin.DELETE("/products/:id", h.DeleteProduct)

			admin.PUT("/transactions/:id", h.AmendTransaction)
			admin.DELETE("/customers/:id", h.DeleteCustomer)
			admin.DELETE("/repairs/:id", h.DeleteRepair)

			admin.GET("/reports/top", h.GetTopSelling)
			admin.GET("/reports/categories", h.GetSalesByCategory)
			admin.GET("/reports/hourly", h.GetSalesByHour)
			admin.GET("/reports/daily", h.GetSalesByDay)
			admin.GET("/reports/recent", h.GetRecentActivity)
			admin.GET("/reports/valuation", h.GetStockValuation)
			admin.GET("/reports/sales", h.GetSalesReport)
			admin.GET("/reports/export", h.ExportTransactions)

			admin.GET("/users", h.GetUsers)
			admin.POST("/users", h.AddUser)
			admin.PUT("/users/:id", h.UpdateUser)
			admin.DELETE("/users/:id", h.DeleteUser)

			admin.POST("/system/backup", h.BackupDatabase)
			admin.GET("/system/backups", h.GetBackups)
			admin.POST("/system/restore", h.RestoreBackup)
			admin.POST("/system/reset", h.FactoryReset)
		}
	}
}
