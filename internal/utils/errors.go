package utils

import "errors"

// Common application errors used across services.
var (
	ErrSoftwareNotFound  = errors.New("SOFTWARE_NOT_FOUND")
	ErrVersionNotFound   = errors.New("VERSION_NOT_FOUND")
	ErrLicenseNotFound   = errors.New("LICENSE_NOT_FOUND")
	ErrOrderNotFound     = errors.New("ORDER_NOT_FOUND")
	ErrInsufficientStock = errors.New("INSUFFICIENT_STOCK")
	ErrLicenseUsed       = errors.New("LICENSE_ALREADY_USED")
	ErrDuplicateUsername = errors.New("DUPLICATE_USERNAME")
	ErrInvalidToken      = errors.New("INVALID_TOKEN")
	ErrForbidden         = errors.New("FORBIDDEN")
	ErrInvalidCredential = errors.New("INVALID_CREDENTIALS")
)
