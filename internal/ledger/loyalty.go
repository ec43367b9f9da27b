package ledger

import (
	"strings"

	"go-pos-ledger/internal/apperr"
	"go-pos-ledger/internal/models"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// PointsPerUnit: one point is earned for every 100 of currency paid.
var PointsPerUnit = decimal.NewFromInt(100)

// CustomerRef identifies the customer of a sale. ID wins whenever it is set;
// Name is a compatibility path for clients that only send the typed name.
type CustomerRef struct {
	ID   *uint  `json:"customer_id,omitempty"`
	Name string `json:"customer_name"`
}

// IsWalkIn reports whether the ref names no customer at all.
func (r CustomerRef) IsWalkIn() bool {
	return r.ID == nil && models.IsWalkIn(r.Name)
}

// Loyalty applies signed point deltas.
type Loyalty struct {
	log logrus.FieldLogger
}

func NewLoyalty(log logrus.FieldLogger) *Loyalty {
	return &Loyalty{log: log}
}

// Resolve finds the customer a ref points at. A set ID must exist
// (apperr.ErrNotFound otherwise). A name is matched case-insensitively, the same
// rule the point display uses, and returns (nil, nil) when nobody matches.
//
// NOTE: the old terminal matched case-insensitively for display but
// case-sensitively when writing points, so "alice" saw Alice's balance but
// earned nothing. Writes here always go through the resolved ID.
func (l *Loyalty) Resolve(tx *gorm.DB, ref CustomerRef) (*models.Customer, error) {
	if ref.ID != nil {
		var c models.Customer
		if err := tx.First(&c, *ref.ID).Error; err != nil {
			return nil, apperr.FromDB(err, "customer")
		}
		return &c, nil
	}

	name := strings.TrimSpace(ref.Name)
	if models.IsWalkIn(name) {
		return nil, nil
	}

	var matches []models.Customer
	if err := tx.Where("LOWER(name) = LOWER(?)", name).Order("id").Limit(2).Find(&matches).Error; err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		l.log.WithField("customer_name", name).Warn("customer name did not match any customer record")
		return nil, nil
	case 1:
	default:
		l.log.WithField("customer_name", name).Warn("customer name is ambiguous, using the oldest record")
	}
	return &matches[0], nil
}

// ApplyPointsDelta adds delta to the customer's points and records the movement.
func (l *Loyalty) ApplyPointsDelta(tx *gorm.DB, customerID uint, delta int, entry Entry) (*models.PointsMovement, error) {
	res := tx.Model(&models.Customer{}).
		Where("id = ?", customerID).
		Update("points", gorm.Expr("points + ?", delta))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, apperr.NotFound("customer %d", customerID)
	}

	balance, err := l.Balance(tx, customerID)
	if err != nil {
		return nil, err
	}

	movement := models.PointsMovement{
		CustomerID:    customerID,
		Delta:         delta,
		BalanceAfter:  balance,
		Reason:        entry.Reason,
		TransactionID: entry.TransactionID,
	}
	if err := tx.Create(&movement).Error; err != nil {
		return nil, err
	}
	return &movement, nil
}

// Balance reads the customer's current points.
func (l *Loyalty) Balance(tx *gorm.DB, customerID uint) (int, error) {
	var c models.Customer
	if err := tx.Select("id", "points").First(&c, customerID).Error; err != nil {
		return 0, apperr.FromDB(err, "customer")
	}
	return c.Points, nil
}

// PointsEarned = floor(totalPaid / 100), never negative.
func PointsEarned(totalPaid decimal.Decimal) int {
	if !totalPaid.IsPositive() {
		return 0
	}
	return int(totalPaid.Div(PointsPerUnit).Floor().IntPart())
}
