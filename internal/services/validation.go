package services

import (
	"errors"
	"fmt"
	"strings"

	"go-pos-ledger/internal/apperr"
	"go-pos-ledger/internal/models"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateItems checks a cart snapshot before any ledger is touched.
func validateItems(items []models.SaleItem) error {
	if len(items) == 0 {
		return apperr.Validation("at least one item is required")
	}
	for i, item := range items {
		if err := validate.Struct(item); err != nil {
			return apperr.Validation("item %d: %s", i, describe(err))
		}
		if item.PriceSell.IsNegative() || item.PriceBuy.IsNegative() {
			return apperr.Validation("item %d: prices must not be negative", i)
		}
	}
	return nil
}

// validateStruct runs the tag rules on input and converts failures to apperr.ErrValidation.
func validateStruct(input any) error {
	if err := validate.Struct(input); err != nil {
		return apperr.Validation("%s", describe(err))
	}
	return nil
}

func describe(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s must satisfy %s=%s", strings.ToLower(fe.Field()), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s is %s", strings.ToLower(fe.Field()), fe.Tag()))
		}
	}
	return strings.Join(parts, ", ")
}
