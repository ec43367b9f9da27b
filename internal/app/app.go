// Package app assembles the store, caches and services from a Config.
// The HTTP server and the posctl CLI share it.
package app

import (
	"fmt"

	"go-pos-ledger/internal/ai"
	"go-pos-ledger/internal/auth"
	"go-pos-ledger/internal/cache"
	"go-pos-ledger/internal/config"
	"go-pos-ledger/internal/database"
	"go-pos-ledger/internal/handlers"
	"go-pos-ledger/internal/ledger"
	"go-pos-ledger/internal/services"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type App struct {
	Config  *config.Config
	DB      *gorm.DB
	Schema  *database.Schema
	Handler *handlers.Handler

	closeCache func() error
}

var connect = database.Connect

// New connects, migrates and wires every service.
func New(cfg *config.Config, log *logrus.Logger) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	if cfg.UsesDefaultSecret() {
		log.Warn("⚠️ jwt_secret is the built-in default; set JWT_SECRET before exposing the server")
	}

	db, err := connect(cfg, log)
	if err != nil {
		return nil, err
	}
	schema, err := database.Migrate(db, log)
	if err != nil {
		closeDB(db, log)
		return nil, fmt.Errorf("migrate: %w", err)
	}

	reportCache, closeCache, err := cache.New(cfg.RedisURL, cfg.ReportCacheTTL)
	if err != nil {
		closeDB(db, log)
		return nil, fmt.Errorf("report cache: %w", err)
	}

	inventory := ledger.NewInventory()
	loyalty := ledger.NewLoyalty(log)
	products := services.NewProductService(db, inventory, reportCache, log, cfg.SKUPrefix)
	reports := services.NewReportService(db, reportCache, log, loc, cfg.LowStockThreshold)

	h := &handlers.Handler{
		DB:        db,
		Schema:    schema,
		Config:    cfg,
		Signer:    auth.NewSigner(cfg.JWTSecret),
		Products:  products,
		Sales:     services.NewSaleService(db, inventory, loyalty, reportCache, log),
		Customers: services.NewCustomerService(db, loyalty, log),
		Carts:     services.NewHeldCartService(db, log),
		Repairs:   services.NewRepairService(db, schema.Capabilities, log),
		Reports:   reports,
		Users:     services.NewUserService(db, log),
		Agent:     ai.NewAgent(cfg.GeminiAPIKey, products, reports, log),
		Log:       log,
	}

	return &App{Config: cfg, DB: db, Schema: schema, Handler: h, closeCache: closeCache}, nil
}

// closeDB releases the pool when startup fails after the connection was opened.
func closeDB(db *gorm.DB, log logrus.FieldLogger) {
	sqlDB, err := db.DB()
	if err == nil {
		err = sqlDB.Close()
	}
	if err != nil {
		log.WithError(err).Warn("could not close database")
	}
}

func (a *App) Close() error {
	if err := a.closeCache(); err != nil {
		return err
	}
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
