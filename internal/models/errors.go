package models

import "errors"

// Domain error sentinels. Handlers translate these into HTTP status codes,
// everything else is treated as an internal error.
var (
	// ErrInvalidCredentials covers unknown email, wrong password and
	// invalid or expired tokens. The causes are deliberately not
	// distinguishable so the API does not leak which check failed.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrForbidden means the caller is authenticated but not allowed to
	// perform the operation.
	ErrForbidden = errors.New("forbidden")

	// ErrEmailTaken means the email is already owned by another user.
	ErrEmailTaken = errors.New("email already exists")

	// ErrNotFound means the target record does not exist.
	ErrNotFound = errors.New("user not found")
)
