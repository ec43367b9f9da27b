package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// WalkInCustomer is stored as customer_name when a sale has no customer.
const WalkInCustomer = "Walk-in"

// MoneyScale is the number of decimal places every money column stores.
// SQLite sums NUMERIC columns as floats, so aggregates are rounded back to it.
const MoneyScale = 4

// User - staff accounts that sign in to the terminal
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:100;not null" json:"name"`
	Username     string    `gorm:"uniqueIndex;size:50;not null" json:"username"`
	PasswordHash string    `gorm:"not null" json:"-"` // Never return this in JSON
	Role         string    `gorm:"size:20;default:staff" json:"role"` // 'admin', 'staff'
	CreatedAt    time.Time `json:"created_at"`
}

// Product - The Inventory
type Product struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	Name      string          `gorm:"size:255;not null" json:"name"`
	SKU       string          `gorm:"column:sku;uniqueIndex;size:64;not null" json:"sku"`
	Category  string          `gorm:"size:100;index" json:"category"`
	PriceBuy  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"price_buy"`
	PriceSell decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"price_sell"`
	Stock     int             `gorm:"default:0" json:"stock"`
	Image     string          `json:"image"`
	Warranty  string          `json:"warranty"`
}

// Customer - loyalty members. Points only move through the loyalty ledger.
type Customer struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	Name   string `gorm:"size:255;not null;index" json:"name"`
	Phone  string `gorm:"size:50" json:"phone"`
	Email  string `gorm:"size:255" json:"email"`
	Points int    `gorm:"default:0" json:"points"`
}

// SaleItem is the snapshot of a cart line at the moment of sale (or hold).
// It is never a live reference to Product.
type SaleItem struct {
	ProductID uint            `json:"product_id" validate:"required"`
	Name      string          `json:"name" validate:"required"`
	Category  string          `json:"category"`
	Quantity  int             `json:"quantity" validate:"gt=0"`
	PriceSell decimal.Decimal `json:"price_sell"`
	PriceBuy  decimal.Decimal `json:"price_buy"`
}

// LineTotal = quantity * price_sell
func (i SaleItem) LineTotal() decimal.Decimal {
	return i.PriceSell.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// LineProfit = (price_sell - price_buy) * quantity
func (i SaleItem) LineProfit() decimal.Decimal {
	return i.PriceSell.Sub(i.PriceBuy).Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// PaymentDetails carries the split between tender types for "Split" payments.
type PaymentDetails struct {
	Cash decimal.Decimal `json:"cash"`
	Card decimal.Decimal `json:"card"`
}

// Transaction - a completed sale. Immutable except through amendment.
type Transaction struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	Timestamp      time.Time       `gorm:"index;not null" json:"timestamp"`
	Total          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total"`
	Profit         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"profit"`
	PaymentMethod  string          `gorm:"size:20;default:Cash" json:"payment_method"`
	CustomerName   string          `gorm:"size:255;index" json:"customer_name"`
	CustomerID     *uint           `gorm:"index" json:"customer_id,omitempty"`
	Items          []SaleItem      `gorm:"column:items_json;type:text;serializer:json" json:"items"`
	Discount       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"discount"`
	Tax            decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"tax"`
	PointsUsed     int             `gorm:"default:0" json:"points_used"`
	PointsEarned   int             `gorm:"default:0" json:"points_earned"`
	PaymentDetails *PaymentDetails `gorm:"type:text;serializer:json" json:"payment_details,omitempty"`
}

// IsWalkIn reports whether a typed customer name means "no customer".
func IsWalkIn(name string) bool {
	name = strings.TrimSpace(name)
	return name == "" || strings.EqualFold(name, WalkInCustomer)
}

// HeldCart - a paused cart waiting to be recalled
type HeldCart struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	CustomerName string     `gorm:"size:255" json:"customer_name"`
	Items        []SaleItem `gorm:"column:items_json;type:text;serializer:json" json:"items"`
	Timestamp    time.Time  `gorm:"index" json:"timestamp"`
}

type RepairStatus string

const (
	RepairPending    RepairStatus = "Pending"
	RepairInProgress RepairStatus = "In_Progress"
	RepairDone       RepairStatus = "Done"
)

// RepairTicket - a device left for repair
type RepairTicket struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	CustomerID *uint           `gorm:"index" json:"customer_id"`
	Device     string          `gorm:"size:255;not null" json:"device"`
	Issue      string          `json:"issue"`
	Status     RepairStatus    `gorm:"size:20;default:Pending" json:"status"`
	Cost       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"cost"`
	CreatedAt  time.Time       `gorm:"index;not null" json:"created_at"`
}

func (RepairTicket) TableName() string { return "repairs" }

// StockMovement records every change of Product.Stock.
// Delta is positive for stock coming in, negative for stock going out.
type StockMovement struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	ProductID     uint      `gorm:"index;not null" json:"product_id"`
	Delta         int       `gorm:"not null" json:"delta"`
	StockAfter    int       `gorm:"not null" json:"stock_after"`
	Reason        string    `gorm:"size:32;not null" json:"reason"`
	TransactionID *uint     `gorm:"index" json:"transaction_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// PointsMovement records every change of Customer.Points.
type PointsMovement struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	CustomerID    uint      `gorm:"index;not null" json:"customer_id"`
	Delta         int       `gorm:"not null" json:"delta"`
	BalanceAfter  int       `gorm:"not null" json:"balance_after"`
	Reason        string    `gorm:"size:32;not null" json:"reason"`
	TransactionID *uint     `gorm:"index" json:"transaction_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// SchemaMigration - one row per applied schema version
type SchemaMigration struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false" json:"version"`
	Name      string    `gorm:"size:100" json:"name"`
	AppliedAt time.Time `json:"applied_at"`
}

// Stock movement reasons
const (
	MovementOpening      = "opening"
	MovementInitialStock = "initial_stock"
	MovementAdjustment   = "adjustment"
	MovementSale         = "sale"
	MovementSaleReversal = "sale_reversal"
	MovementSaleReapply  = "sale_reapply"
)

// Points movement reasons
const (
	PointsEarn   = "earn"
	PointsRedeem = "redeem"
)
