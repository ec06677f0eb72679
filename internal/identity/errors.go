package identity

import "errors"

// Validation and authentication errors. HTTP handlers map the first five
// to 400, ErrEmailInUse to 409 and the rest to 401.
var (
	ErrMissingFields      = errors.New("email and password are required")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrPasswordTooLong    = errors.New("password must be at most 72 bytes")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrEmailInUse         = errors.New("email already in use")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnauthenticated    = errors.New("not authenticated")

	// ErrClosed is returned by operations on a closed Service.
	ErrClosed = errors.New("identity service is closed")
)

// IsValidation reports whether err is a registration input error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrMissingFields) ||
		errors.Is(err, ErrPasswordMismatch) ||
		errors.Is(err, ErrWeakPassword) ||
		errors.Is(err, ErrPasswordTooLong) ||
		errors.Is(err, ErrInvalidEmail)
}
