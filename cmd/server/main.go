package main

import (
	"os"
	"time"

	"go-pos-ledger/internal/app"
	"go-pos-ledger/internal/config"
	"go-pos-ledger/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	log := config.NewLogger(cfg.LogLevel)

	// Money goes over the wire as JSON numbers, the way the React client expects.
	decimal.MarshalJSONWithoutQuotes = true

	pos, err := app.New(cfg, log)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer pos.Close()

	if err := os.MkdirAll("./uploads", 0o755); err != nil {
		log.Fatalf("Failed to create uploads dir: %v", err)
	}

	r := gin.New()
	r.Use(middleware.Recovery(log), middleware.RequestLogger(log))

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.Static("/uploads", "./uploads")
	pos.Handler.RegisterRoutes(r)

	// --- DEPLOYMENT: Serve React Frontend ---
	r.Static("/assets", "./web/assets")
	r.StaticFile("/vite.svg", "./web/vite.svg")

	// SPA Catch-All: If the user refreshes on "/dashboard",
	// serve index.html so React can handle the routing.
	r.NoRoute(func(c *gin.Context) {
		c.File("./web/index.html")
	})

	log.WithFields(logrus.Fields{
		"base_url":       cfg.BaseURL,
		"schema_version": pos.Schema.Version,
	}).Info("🚀 Server starting")
	if err := r.Run(":" + cfg.ServerPort); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
