package ports

import "errors"

// Standard application-level errors.
// Adapters should wrap underlying infrastructure errors with these standard errors.
var (
	// General Errors
	ErrUnknown            = errors.New("unknown error occurred")
	ErrInvalidRequest     = errors.New("invalid request parameters or format")
	ErrNotFound           = errors.New("resource not found")
	ErrUnauthorized       = errors.New("authentication required or credentials invalid")
	ErrConfigurationError = errors.New("invalid or missing configuration")

	// Matching / PnL Errors
	ErrMatchRejected = errors.New("trades cannot be matched")
	ErrInvalidPrice  = errors.New("price is not a finite number")

	// Quote Provider Errors
	ErrPriceFetch          = errors.New("failed to fetch current price")
	ErrProviderUnavailable = errors.New("quote provider is unavailable")

	// Database Specific Errors
	ErrDuplicateEntry = errors.New("database record already exists")
	ErrDBConnection   = errors.New("database connection error")
	ErrQueryFailed    = errors.New("database query failed")
	ErrUpdateFailed   = errors.New("database update failed")
	ErrDeleteFailed   = errors.New("database delete failed")
)
