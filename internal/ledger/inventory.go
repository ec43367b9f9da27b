// Package ledger owns the two balances the sale engine mutates: product
// stock and customer loyalty points. Every method runs on the caller's
// *gorm.DB transaction and never commits on its own.
package ledger

import (
	"go-pos-ledger/internal/apperr"
	"go-pos-ledger/internal/models"

	"gorm.io/gorm"
)

// Entry describes why a balance moved.
type Entry struct {
	Reason        string
	TransactionID *uint
}

// Inventory applies signed stock deltas.
type Inventory struct{}

func NewInventory() *Inventory {
	return &Inventory{}
}

// ApplyStockDelta adds delta to the product's stock and records the movement.
// There is no floor check: stock may go negative, callers that care must look.
// An unknown product fails with apperr.ErrNotFound.
func (l *Inventory) ApplyStockDelta(tx *gorm.DB, productID uint, delta int, entry Entry) (*models.StockMovement, error) {
	res := tx.Model(&models.Product{}).
		Where("id = ?", productID).
		Update("stock", gorm.Expr("stock + ?", delta))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, apperr.NotFound("product %d", productID)
	}

	var after int
	if err := tx.Model(&models.Product{}).Select("stock").Where("id = ?", productID).Scan(&after).Error; err != nil {
		return nil, err
	}

	movement := models.StockMovement{
		ProductID:     productID,
		Delta:         delta,
		StockAfter:    after,
		Reason:        entry.Reason,
		TransactionID: entry.TransactionID,
	}
	if err := tx.Create(&movement).Error; err != nil {
		return nil, err
	}
	return &movement, nil
}

// Movements lists a product's stock history, newest first.
func (l *Inventory) Movements(db *gorm.DB, productID uint) ([]models.StockMovement, error) {
	var out []models.StockMovement
	err := db.Where("product_id = ?", productID).Order("id desc").Find(&out).Error
	return out, err
}
