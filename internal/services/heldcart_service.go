package services

import (
	"context"
	"strings"
	"time"

	"go-pos-ledger/internal/apperr"
	"go-pos-ledger/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Shortfall flags a held line whose quantity is above what is on the shelf now.
type Shortfall struct {
	ProductID uint   `json:"product_id"`
	Name      string `json:"name"`
	Held      int    `json:"held"`
	InStock   int    `json:"in_stock"`
}

// RecalledCart is a held cart taken back to the till.
type RecalledCart struct {
	Cart       models.HeldCart `json:"cart"`
	Shortfalls []Shortfall     `json:"shortfalls"`
}

// HeldCartService parks carts without reserving stock.
type HeldCartService struct {
	db  *gorm.DB
	log logrus.FieldLogger
	now func() time.Time
}

func NewHeldCartService(db *gorm.DB, log logrus.FieldLogger) *HeldCartService {
	return &HeldCartService{db: db, log: log.WithField("module", "held_carts"), now: time.Now}
}

func (s *HeldCartService) Hold(ctx context.Context, customerName string, items []models.SaleItem) (uint, error) {
	if err := validateItems(items); err != nil {
		return 0, err
	}
	customerName = strings.TrimSpace(customerName)
	if customerName == "" {
		customerName = models.WalkInCustomer
	}

	cart := models.HeldCart{
		CustomerName: customerName,
		Items:        items,
		Timestamp:    s.now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&cart).Error; err != nil {
		return 0, err
	}
	return cart.ID, nil
}

// List returns held carts, newest first.
func (s *HeldCartService) List(ctx context.Context) ([]models.HeldCart, error) {
	var carts []models.HeldCart
	err := s.db.WithContext(ctx).Order("timestamp desc, id desc").Find(&carts).Error
	return carts, err
}

func (s *HeldCartService) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.HeldCart{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("held cart %d", id)
	}
	return nil
}

// Recall removes the cart and hands it back together with lines that are now
// short on stock. The shortfalls are advisory; nothing is reserved or blocked.
func (s *HeldCartService) Recall(ctx context.Context, id uint) (*RecalledCart, error) {
	var out RecalledCart
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&out.Cart, id).Error; err != nil {
			return apperr.FromDB(err, "held cart")
		}
		if err := tx.Delete(&models.HeldCart{}, id).Error; err != nil {
			return err
		}

		ids := make([]uint, 0, len(out.Cart.Items))
		for _, item := range out.Cart.Items {
			ids = append(ids, item.ProductID)
		}
		var products []models.Product
		if len(ids) > 0 {
			if err := tx.Select("id", "stock").Where("id IN ?", ids).Find(&products).Error; err != nil {
				return err
			}
		}
		stock := make(map[uint]int, len(products))
		for _, p := range products {
			stock[p.ID] = p.Stock
		}

		out.Shortfalls = []Shortfall{}
		for _, item := range out.Cart.Items {
			have := stock[item.ProductID]
			if item.Quantity > have {
				out.Shortfalls = append(out.Shortfalls, Shortfall{
					ProductID: item.ProductID,
					Name:      item.Name,
					Held:      item.Quantity,
					InStock:   have,
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, apperr.Integrity("recall held cart", err)
	}

	if len(out.Shortfalls) > 0 {
		s.log.WithFields(logrus.Fields{"cart_id": id, "short_lines": len(out.Shortfalls)}).Warn("recalled cart exceeds current stock")
	}
	return &out, nil
}
