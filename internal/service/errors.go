// Package service contains the business logic of the application.
package service

import (
	"errors"
	"fmt"

	"copro-smart-go/internal/apperr"

	"gorm.io/gorm"
)

// notFoundOr translates a missing row into apperr.NotFound and wraps any
// other failure with the attempted action.
func notFoundOr(err error, what, action string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("%s not found", what)
	}
	return fmt.Errorf("%s: %w", action, err)
}
