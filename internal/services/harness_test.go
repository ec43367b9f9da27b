package services

import (
	"testing"
	"time"

	"go-pos-ledger/internal/cache"
	"go-pos-ledger/internal/database"
	"go-pos-ledger/internal/ledger"
	"go-pos-ledger/internal/models"
	"go-pos-ledger/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

type harness struct {
	db        *gorm.DB
	schema    *database.Schema
	inventory *ledger.Inventory
	loyalty   *ledger.Loyalty
	sales     *SaleService
	products  *ProductService
	customers *CustomerService
	carts     *HeldCartService
	repairs   *RepairService
	reports   *ReportService
	users     *UserService
	clock     *fakeClock
}

// fakeClock advances one minute on every read so sales get distinct timestamps.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time {
	now := c.t
	c.t = c.t.Add(time.Minute)
	return now
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, schema := testutil.NewDBWithSchema(t)
	log := testutil.Logger()
	inventory := ledger.NewInventory()
	loyalty := ledger.NewLoyalty(log)
	noop := cache.Noop{}
	clock := &fakeClock{t: time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)}

	return &harness{
		db:        db,
		schema:    schema,
		inventory: inventory,
		loyalty:   loyalty,
		sales:     NewSaleService(db, inventory, loyalty, noop, log).WithClock(clock.Now),
		products:  NewProductService(db, inventory, noop, log, "GE"),
		customers: NewCustomerService(db, loyalty, log),
		carts:     NewHeldCartService(db, log),
		repairs:   NewRepairService(db, schema.Capabilities, log),
		reports:   NewReportService(db, noop, log, time.UTC, 5).WithClock(clock.Now),
		users:     NewUserService(db, log),
		clock:     clock,
	}
}

// line snapshots qty units of p as a cart line.
func line(p models.Product, qty int) models.SaleItem {
	return models.SaleItem{
		ProductID: p.ID,
		Name:      p.Name,
		Category:  p.Category,
		Quantity:  qty,
		PriceSell: p.PriceSell,
		PriceBuy:  p.PriceBuy,
	}
}

func assertDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, testutil.Dec(want).Equal(got), "want %s, got %s", want, got.String())
}

func refByID(id uint) ledger.CustomerRef {
	return ledger.CustomerRef{ID: &id}
}
