package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-pos-ledger/internal/apperr"
	"go-pos-ledger/internal/cache"
	"go-pos-ledger/internal/ledger"
	"go-pos-ledger/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const skuAttempts = 3

// ProductInput is the full editable shape of a product.
type ProductInput struct {
	Name      string          `json:"name" validate:"required,max=255"`
	SKU       string          `json:"sku" validate:"max=64"`
	Category  string          `json:"category" validate:"max=100"`
	PriceBuy  decimal.Decimal `json:"price_buy"`
	PriceSell decimal.Decimal `json:"price_sell"`
	Stock     int             `json:"stock"`
	Image     string          `json:"image"`
	Warranty  string          `json:"warranty"`
}

func (in *ProductInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	in.SKU = strings.ToUpper(strings.TrimSpace(in.SKU))
	in.Category = strings.TrimSpace(in.Category)
	if err := validateStruct(in); err != nil {
		return err
	}
	if in.PriceBuy.IsNegative() || in.PriceSell.IsNegative() {
		return apperr.Validation("prices must not be negative")
	}
	return nil
}

type ProductService struct {
	db        *gorm.DB
	inventory *ledger.Inventory
	reports   cache.ReportCache
	log       logrus.FieldLogger
	skuPrefix string
	now       func() time.Time
}

func NewProductService(db *gorm.DB, inventory *ledger.Inventory, reports cache.ReportCache, log logrus.FieldLogger, skuPrefix string) *ProductService {
	if skuPrefix == "" {
		skuPrefix = "GE"
	}
	return &ProductService{
		db:        db,
		inventory: inventory,
		reports:   reports,
		log:       log.WithField("module", "products"),
		skuPrefix: strings.ToUpper(skuPrefix),
		now:       time.Now,
	}
}

// GenerateSKU builds PREFIX-YYYYMMDD-XXXX.
func (s *ProductService) GenerateSKU() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:4])
	return fmt.Sprintf("%s-%s-%s", s.skuPrefix, s.now().Format("20060102"), suffix)
}

func (s *ProductService) List(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := s.db.WithContext(ctx).Order("name asc, id asc").Find(&products).Error
	return products, err
}

func (s *ProductService) Get(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	if err := s.db.WithContext(ctx).First(&product, id).Error; err != nil {
		return nil, apperr.FromDB(err, fmt.Sprintf("product %d", id))
	}
	return &product, nil
}

// GetBySKU backs the barcode scanner lookup.
func (s *ProductService) GetBySKU(ctx context.Context, sku string) (*models.Product, error) {
	sku = strings.ToUpper(strings.TrimSpace(sku))
	var product models.Product
	if err := s.db.WithContext(ctx).Where("sku = ?", sku).First(&product).Error; err != nil {
		return nil, apperr.FromDB(err, fmt.Sprintf("product with sku %s", sku))
	}
	return &product, nil
}

// Create inserts a product. Opening stock is booked through the inventory
// ledger. A generated SKU is retried on collision; a supplied one is not.
func (s *ProductService) Create(ctx context.Context, in ProductInput) (*models.Product, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	generated := in.SKU == ""

	var product models.Product
	var err error
	for attempt := 0; attempt < skuAttempts; attempt++ {
		sku := in.SKU
		if generated {
			sku = s.GenerateSKU()
		}
		product, err = s.create(ctx, in, sku)
		if !generated || !errors.Is(err, apperr.ErrConflict) {
			break
		}
		s.log.WithField("sku", sku).Warn("generated SKU collided, retrying")
	}
	if err != nil {
		return nil, err
	}

	s.invalidateReports(ctx)
	return &product, nil
}

func (s *ProductService) create(ctx context.Context, in ProductInput, sku string) (models.Product, error) {
	product := models.Product{
		Name:      in.Name,
		SKU:       sku,
		Category:  in.Category,
		PriceBuy:  in.PriceBuy,
		PriceSell: in.PriceSell,
		Image:     in.Image,
		Warranty:  in.Warranty,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&product).Error; err != nil {
			return apperr.FromDB(err, fmt.Sprintf("sku %s", sku))
		}
		if in.Stock == 0 {
			return nil
		}
		m, err := s.inventory.ApplyStockDelta(tx, product.ID, in.Stock, ledger.Entry{Reason: models.MovementInitialStock})
		if err != nil {
			return err
		}
		product.Stock = m.StockAfter
		return nil
	})
	return product, apperr.Integrity("create product", err)
}

// Update overwrites every editable field. A changed stock figure is booked as
// an adjustment movement rather than written directly.
func (s *ProductService) Update(ctx context.Context, id uint, in ProductInput) (*models.Product, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	var product models.Product
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&product, id).Error; err != nil {
			return apperr.FromDB(err, fmt.Sprintf("product %d", id))
		}

		if in.SKU != "" {
			product.SKU = in.SKU
		}
		product.Name = in.Name
		product.Category = in.Category
		product.PriceBuy = in.PriceBuy
		product.PriceSell = in.PriceSell
		product.Image = in.Image
		product.Warranty = in.Warranty

		// stock is left out on purpose, it only moves through the ledger
		err := tx.Model(&product).
			Select("name", "sku", "category", "price_buy", "price_sell", "image", "warranty").
			Updates(&product).Error
		if err != nil {
			return apperr.FromDB(err, fmt.Sprintf("sku %s", product.SKU))
		}

		if delta := in.Stock - product.Stock; delta != 0 {
			m, err := s.inventory.ApplyStockDelta(tx, product.ID, delta, ledger.Entry{Reason: models.MovementAdjustment})
			if err != nil {
				return err
			}
			product.Stock = m.StockAfter
		}
		return nil
	})
	if err != nil {
		return nil, apperr.Integrity("update product", err)
	}

	s.invalidateReports(ctx)
	return &product, nil
}

// AdjustStock books a manual restock or write-off.
func (s *ProductService) AdjustStock(ctx context.Context, id uint, delta int) (*models.StockMovement, error) {
	if delta == 0 {
		return nil, apperr.Validation("delta must not be zero")
	}

	var movement *models.StockMovement
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := s.inventory.ApplyStockDelta(tx, id, delta, ledger.Entry{Reason: models.MovementAdjustment})
		movement = m
		return err
	})
	if err != nil {
		return nil, apperr.Integrity("adjust stock", err)
	}

	s.invalidateReports(ctx)
	return movement, nil
}

// UpdatePrice changes only the selling price. Past sales keep their snapshot.
func (s *ProductService) UpdatePrice(ctx context.Context, id uint, price decimal.Decimal) error {
	if price.IsNegative() {
		return apperr.Validation("price must not be negative")
	}
	res := s.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Update("price_sell", price)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("product %d", id)
	}
	s.invalidateReports(ctx)
	return nil
}

// Movements lists the stock ledger of one product, newest first.
func (s *ProductService) Movements(ctx context.Context, id uint) ([]models.StockMovement, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.inventory.Movements(s.db.WithContext(ctx), id)
}

func (s *ProductService) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Product{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("product %d", id)
	}
	s.invalidateReports(ctx)
	return nil
}

func (s *ProductService) invalidateReports(ctx context.Context) {
	if err := s.reports.Invalidate(ctx); err != nil {
		s.log.WithError(err).Warn("could not invalidate report cache")
	}
}
