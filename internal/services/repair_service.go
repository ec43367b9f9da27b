package services

import (
	"context"
	"strings"
	"time"

	"go-pos-ledger/internal/apperr"
	"go-pos-ledger/internal/database"
	"go-pos-ledger/internal/models"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// nextStatus is the repair board cycle. Done wraps back to Pending so a
// returned device can be reopened with a single tap.
var nextStatus = map[models.RepairStatus]models.RepairStatus{
	models.RepairPending:    models.RepairInProgress,
	models.RepairInProgress: models.RepairDone,
	models.RepairDone:       models.RepairPending,
}

// ValidRepairStatus reports whether status is one of the board columns.
func ValidRepairStatus(status models.RepairStatus) bool {
	_, ok := nextStatus[status]
	return ok
}

type RepairInput struct {
	CustomerID *uint           `json:"customer_id"`
	Device     string          `json:"device" validate:"required,max=255"`
	Issue      string          `json:"issue"`
	Cost       decimal.Decimal `json:"cost"`
}

// RepairView is a ticket with the owner's contact details.
type RepairView struct {
	models.RepairTicket
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
}

// legacyRepairTicket is written instead of RepairTicket on databases that
// still carry the old date_in column.
type legacyRepairTicket struct {
	models.RepairTicket
	DateIn time.Time `gorm:"column:date_in"`
}

func (legacyRepairTicket) TableName() string { return "repairs" }

type RepairService struct {
	db   *gorm.DB
	caps database.Capabilities
	log  logrus.FieldLogger
	now  func() time.Time
}

func NewRepairService(db *gorm.DB, caps database.Capabilities, log logrus.FieldLogger) *RepairService {
	return &RepairService{db: db, caps: caps, log: log.WithField("module", "repairs"), now: time.Now}
}

func (s *RepairService) Create(ctx context.Context, in RepairInput) (*models.RepairTicket, error) {
	in.Device = strings.TrimSpace(in.Device)
	in.Issue = strings.TrimSpace(in.Issue)
	if err := validateStruct(&in); err != nil {
		return nil, err
	}
	if in.Cost.IsNegative() {
		return nil, apperr.Validation("cost must not be negative")
	}

	ticket := models.RepairTicket{
		CustomerID: in.CustomerID,
		Device:     in.Device,
		Issue:      in.Issue,
		Status:     models.RepairPending,
		Cost:       in.Cost,
		CreatedAt:  s.now().UTC(),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if in.CustomerID != nil {
			var c models.Customer
			if err := tx.Select("id").First(&c, *in.CustomerID).Error; err != nil {
				return apperr.FromDB(err, "customer")
			}
		}

		if !s.caps.LegacyRepairDateIn {
			return tx.Create(&ticket).Error
		}
		row := legacyRepairTicket{RepairTicket: ticket, DateIn: ticket.CreatedAt}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		ticket = row.RepairTicket
		return nil
	})
	if err != nil {
		return nil, apperr.Integrity("create repair", err)
	}

	s.log.WithField("repair_id", ticket.ID).Info("repair ticket opened")
	return &ticket, nil
}

// Advance moves a ticket to the next board column and returns the new status.
func (s *RepairService) Advance(ctx context.Context, id uint) (models.RepairStatus, error) {
	var next models.RepairStatus
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ticket models.RepairTicket
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id", "status").First(&ticket, id).Error; err != nil {
			return apperr.FromDB(err, "repair")
		}
		n, ok := nextStatus[ticket.Status]
		if !ok {
			s.log.WithFields(logrus.Fields{"repair_id": id, "status": ticket.Status}).Warn("unknown repair status, restarting at Pending")
			n = models.RepairPending
		}
		next = n
		return tx.Model(&models.RepairTicket{}).Where("id = ?", id).Update("status", next).Error
	})
	if err != nil {
		return "", apperr.Integrity("advance repair", err)
	}
	return next, nil
}

func (s *RepairService) SetStatus(ctx context.Context, id uint, status models.RepairStatus) error {
	if !ValidRepairStatus(status) {
		return apperr.Validation("unknown repair status %q", status)
	}
	res := s.db.WithContext(ctx).Model(&models.RepairTicket{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("repair %d", id)
	}
	return nil
}

func (s *RepairService) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.RepairTicket{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("repair %d", id)
	}
	return nil
}

// List returns every ticket with its customer's name and phone, newest first.
func (s *RepairService) List(ctx context.Context) ([]RepairView, error) {
	var views []RepairView
	err := s.db.WithContext(ctx).
		Table("repairs").
		Select("repairs.id, repairs.customer_id, repairs.device, repairs.issue, repairs.status, repairs.cost, repairs.created_at, " +
			"COALESCE(customers.name, '') AS customer_name, COALESCE(customers.phone, '') AS customer_phone").
		Joins("LEFT JOIN customers ON repairs.customer_id = customers.id").
		Order("repairs.created_at desc, repairs.id desc").
		Scan(&views).Error
	return views, err
}
