package common

// Error codes shared across the API surface.
const (
	CodeInvalidArgument   = "INVALID_ARGUMENT"
	CodeDivisionByZero    = "DIVISION_BY_ZERO"
	CodeCurrencyMismatch  = "CURRENCY_MISMATCH"
	CodeCurrencyNotFound  = "CURRENCY_NOT_FOUND"
	CodeOrderNotFound     = "ORDER_NOT_FOUND"
	CodeStaleVersion      = "STALE_VERSION"
	CodeCalculationFailed = "CALCULATION_FAILED"
)
