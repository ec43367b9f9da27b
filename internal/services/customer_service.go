package services

import (
	"context"
	"fmt"
	"strings"

	"go-pos-ledger/internal/apperr"
	"go-pos-ledger/internal/ledger"
	"go-pos-ledger/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// CustomerInput holds the editable contact fields. Points are never editable
// here; they only move through sales.
type CustomerInput struct {
	Name  string `json:"name" validate:"required,max=255"`
	Phone string `json:"phone" validate:"max=50"`
	Email string `json:"email" validate:"omitempty,email,max=255"`
}

func (in *CustomerInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Email = strings.TrimSpace(in.Email)
	if models.IsWalkIn(in.Name) {
		return apperr.Validation("%q is reserved for walk-in sales", in.Name)
	}
	return validateStruct(in)
}

type CustomerService struct {
	db      *gorm.DB
	loyalty *ledger.Loyalty
	log     logrus.FieldLogger
}

func NewCustomerService(db *gorm.DB, loyalty *ledger.Loyalty, log logrus.FieldLogger) *CustomerService {
	return &CustomerService{db: db, loyalty: loyalty, log: log.WithField("module", "customers")}
}

// List orders customers by points, best first.
func (s *CustomerService) List(ctx context.Context) ([]models.Customer, error) {
	var customers []models.Customer
	err := s.db.WithContext(ctx).Order("points desc, name asc, id asc").Find(&customers).Error
	return customers, err
}

func (s *CustomerService) Get(ctx context.Context, id uint) (*models.Customer, error) {
	var customer models.Customer
	if err := s.db.WithContext(ctx).First(&customer, id).Error; err != nil {
		return nil, apperr.FromDB(err, fmt.Sprintf("customer %d", id))
	}
	return &customer, nil
}

func (s *CustomerService) Create(ctx context.Context, in CustomerInput) (*models.Customer, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	customer := models.Customer{Name: in.Name, Phone: in.Phone, Email: in.Email}
	if err := s.db.WithContext(ctx).Create(&customer).Error; err != nil {
		return nil, apperr.FromDB(err, "customer")
	}
	s.log.WithField("customer_id", customer.ID).Info("customer created")
	return &customer, nil
}

func (s *CustomerService) Update(ctx context.Context, id uint, in CustomerInput) (*models.Customer, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	res := s.db.WithContext(ctx).Model(&models.Customer{}).
		Where("id = ?", id).
		Select("name", "phone", "email").
		Updates(models.Customer{Name: in.Name, Phone: in.Phone, Email: in.Email})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, apperr.NotFound("customer %d", id)
	}
	return s.Get(ctx, id)
}

// Delete removes the customer. Past sales keep their recorded name.
func (s *CustomerService) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Customer{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("customer %d", id)
	}
	return nil
}

// PointsFor returns the balance shown at the till for a typed name. Unknown
// names and walk-ins have zero points.
func (s *CustomerService) PointsFor(ctx context.Context, name string) (int, error) {
	customer, err := s.loyalty.Resolve(s.db.WithContext(ctx), ledger.CustomerRef{Name: name})
	if err != nil || customer == nil {
		return 0, err
	}
	return customer.Points, nil
}

// PointsHistory lists a customer's loyalty movements, newest first.
func (s *CustomerService) PointsHistory(ctx context.Context, id uint) ([]models.PointsMovement, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	var movements []models.PointsMovement
	err := s.db.WithContext(ctx).Where("customer_id = ?", id).Order("id desc").Find(&movements).Error
	return movements, err
}
