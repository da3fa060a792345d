package ports

import "errors"

// Standard application-level errors.
// Adapters should wrap underlying infrastructure errors with these standard errors.
var (
	// General Errors
	ErrUnknown            = errors.New("unknown error occurred")
	ErrInvalidRequest     = errors.New("invalid request parameters or format")
	ErrNotFound           = errors.New("resource not found")
	ErrTimeout            = errors.New("operation timed out")
	ErrContextCanceled    = errors.New("operation canceled via context")
	ErrConfigurationError = errors.New("invalid or missing configuration")

	// Forecast Errors
	ErrInsufficientHistory = errors.New("not enough history for the look-back window")
	ErrInvalidHorizon      = errors.New("forecast horizon must be at least one day")
	ErrPredictorInvocation = errors.New("predictor invocation failed")

	// Model Store Errors
	ErrModelNotFound  = errors.New("model not found for symbol")
	ErrScalerNotFound = errors.New("scaler not found for symbol")
	ErrInvalidModel   = errors.New("model or scaler file is invalid")

	// Dataset Errors
	ErrDatasetNotFound = errors.New("dataset not found")
	ErrNoDataForSymbol = errors.New("no data for symbol")
	ErrInvalidDataset  = errors.New("dataset row is malformed")

	// Exchange Specific Errors
	ErrExchangeUnavailable = errors.New("exchange API is unavailable")
	ErrConnectionFailed    = errors.New("failed to connect to the exchange")
	ErrRateLimited         = errors.New("API rate limit exceeded")

	// Database Specific Errors
	ErrDBConnection = errors.New("database connection error")
	ErrQueryFailed  = errors.New("database query failed")
	ErrUpdateFailed = errors.New("database update failed")
)
