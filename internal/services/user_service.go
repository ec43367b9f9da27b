package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go-pos-ledger/internal/apperr"
	"go-pos-ledger/internal/models"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

// ErrInvalidCredentials is returned for an unknown user or a wrong password alike.
var ErrInvalidCredentials = errors.New("invalid credentials")

type UserInput struct {
	Name     string `json:"name" validate:"max=100"`
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"omitempty,min=6,max=72"`
	Role     string `json:"role" validate:"omitempty,oneof=admin staff"`
}

func (in *UserInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Username = strings.ToLower(strings.TrimSpace(in.Username))
	in.Role = strings.TrimSpace(in.Role)
	if in.Role == "" {
		in.Role = RoleStaff
	}
	if in.Name == "" {
		in.Name = in.Username
	}
	return validateStruct(in)
}

type UserService struct {
	db  *gorm.DB
	log logrus.FieldLogger
}

func NewUserService(db *gorm.DB, log logrus.FieldLogger) *UserService {
	return &UserService{db: db, log: log.WithField("module", "users")}
}

// Authenticate checks a username and password against the stored bcrypt hash.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", strings.ToLower(strings.TrimSpace(username))).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := s.db.WithContext(ctx).Order("username asc").Find(&users).Error
	return users, err
}

func (s *UserService) Create(ctx context.Context, in UserInput) (*models.User, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	if in.Password == "" {
		return nil, apperr.Validation("password is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := models.User{
		Name:         in.Name,
		Username:     in.Username,
		PasswordHash: string(hash),
		Role:         in.Role,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, apperr.FromDB(err, fmt.Sprintf("user %s", in.Username))
	}
	s.log.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role}).Info("user created")
	return &user, nil
}

// Update edits a user. An empty password keeps the current one.
func (s *UserService) Update(ctx context.Context, id uint, in UserInput) (*models.User, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, id).Error; err != nil {
			return apperr.FromDB(err, fmt.Sprintf("user %d", id))
		}
		if user.Role == RoleAdmin && in.Role != RoleAdmin {
			if err := ensureAnotherAdmin(tx, id); err != nil {
				return err
			}
		}

		user.Name = in.Name
		user.Username = in.Username
		user.Role = in.Role
		if in.Password != "" {
			hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}
			user.PasswordHash = string(hash)
		}
		if err := tx.Save(&user).Error; err != nil {
			return apperr.FromDB(err, fmt.Sprintf("user %s", in.Username))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Delete removes a user but never the last admin.
func (s *UserService) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, id).Error; err != nil {
			return apperr.FromDB(err, fmt.Sprintf("user %d", id))
		}
		if user.Role == RoleAdmin {
			if err := ensureAnotherAdmin(tx, id); err != nil {
				return err
			}
		}
		return tx.Delete(&models.User{}, id).Error
	})
}

func ensureAnotherAdmin(tx *gorm.DB, exceptID uint) error {
	var admins int64
	if err := tx.Model(&models.User{}).Where("role = ? AND id <> ?", RoleAdmin, exceptID).Count(&admins).Error; err != nil {
		return err
	}
	if admins == 0 {
		return apperr.Validation("at least one admin account must remain")
	}
	return nil
}
