package services

import "errors"

// Validation errors surfaced to the routing layer as bad requests
var (
	ErrInvalidEmail     = errors.New("invalid email format")
	ErrNameRequired     = errors.New("name cannot be empty")
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")
	ErrInvalidRole      = errors.New("invalid role")
)
