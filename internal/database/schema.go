package database

import (
	"fmt"
	"time"

	"go-pos-ledger/internal/models"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Capabilities describes optional shapes of an existing database, resolved
// once by Migrate. Services branch on these flags instead of probing the schema.
type Capabilities struct {
	// LegacyRepairDateIn is set when an old database still has repairs.date_in,
	// which must be written on insert.
	LegacyRepairDateIn bool
}

// Schema is the state of the store after migration.
type Schema struct {
	Version      int
	Capabilities Capabilities
}

type migration struct {
	version int
	name    string
	apply   func(tx *gorm.DB) error
}

// tables in dependency order
var tables = []interface{}{
	&models.User{},
	&models.Product{},
	&models.Customer{},
	&models.Transaction{},
	&models.HeldCart{},
	&models.RepairTicket{},
	&models.StockMovement{},
	&models.PointsMovement{},
}

var migrations = []migration{
	{version: 1, name: "core tables", apply: func(tx *gorm.DB) error {
		return tx.AutoMigrate(tables...)
	}},
	{version: 2, name: "default admin", apply: seedDefaultAdmin},
	{version: 3, name: "ledger backfill", apply: backfillOpeningStock},
}

// LatestVersion is the schema version this build writes.
func LatestVersion() int {
	return migrations[len(migrations)-1].version
}

// Migrate applies every migration newer than the recorded version, then
// resolves the capability descriptor.
func Migrate(db *gorm.DB, log logrus.FieldLogger) (*Schema, error) {
	if err := db.AutoMigrate(&models.SchemaMigration{}); err != nil {
		return nil, fmt.Errorf("create schema_migrations: %w", err)
	}

	var current int
	if err := db.Model(&models.SchemaMigration{}).Select("COALESCE(MAX(version), 0)").Scan(&current).Error; err != nil {
		return nil, fmt.Errorf("read schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := m.apply(tx); err != nil {
				return err
			}
			return tx.Create(&models.SchemaMigration{Version: m.version, Name: m.name, AppliedAt: time.Now().UTC()}).Error
		})
		if err != nil {
			return nil, fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
		log.WithFields(logrus.Fields{"version": m.version, "name": m.name}).Info("Applied schema migration")
		current = m.version
	}

	// Columns added after version 1 are picked up by AutoMigrate on every start.
	if err := db.AutoMigrate(tables...); err != nil {
		return nil, fmt.Errorf("sync schema: %w", err)
	}

	caps := Capabilities{
		LegacyRepairDateIn: db.Migrator().HasColumn(&models.RepairTicket{}, "date_in"),
	}
	if caps.LegacyRepairDateIn {
		log.Warn("repairs.date_in found, writing it for new tickets")
	}

	return &Schema{Version: current, Capabilities: caps}, nil
}

func seedDefaultAdmin(tx *gorm.DB) error {
	var count int64
	if err := tx.Model(&models.User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return tx.Create(&models.User{
		Name:         "Administrator",
		Username:     "admin",
		PasswordHash: string(hash),
		Role:         "admin",
	}).Error
}

// backfillOpeningStock gives products that predate the stock ledger an
// opening movement, so every unit on hand is accounted for.
func backfillOpeningStock(tx *gorm.DB) error {
	var products []models.Product
	err := tx.Where("stock <> 0 AND id NOT IN (?)",
		tx.Model(&models.StockMovement{}).Select("product_id")).
		Find(&products).Error
	if err != nil {
		return err
	}

	for _, p := range products {
		movement := models.StockMovement{
			ProductID:  p.ID,
			Delta:      p.Stock,
			StockAfter: p.Stock,
			Reason:     models.MovementOpening,
		}
		if err := tx.Create(&movement).Error; err != nil {
			return err
		}
	}
	return nil
}
