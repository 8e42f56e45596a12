package handlers

import (
	"errors"

	"github.com/accounthub/user-service/internal/services"
)

// isValidationError reports whether the error is a request validation
// failure that should surface as a 400 with its own message
func isValidationError(err error) bool {
	return errors.Is(err, services.ErrInvalidEmail) ||
		errors.Is(err, services.ErrNameRequired) ||
		errors.Is(err, services.ErrPasswordTooShort) ||
		errors.Is(err, services.ErrInvalidRole)
}
