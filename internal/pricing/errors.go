package pricing

import (
	"errors"
	"net/http"

	"github.com/noah-isme/commerce-pricing/internal/calc"
	"github.com/noah-isme/commerce-pricing/internal/common"
	"github.com/noah-isme/commerce-pricing/internal/currency"
	"github.com/noah-isme/commerce-pricing/internal/order"
	"github.com/noah-isme/commerce-pricing/internal/price"
)

// mapCalculationError translates domain errors into the API error envelope.
// Anything unrecognised becomes the generic calculation failure so internal
// details never leak to clients.
func mapCalculationError(err error) *common.AppError {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, calc.ErrDivisionByZero):
		return common.NewAppError(common.CodeDivisionByZero, "division by zero", http.StatusBadRequest, err)
	case errors.Is(err, calc.ErrInvalidNumber), errors.Is(err, calc.ErrUnknownRoundMode):
		return common.NewAppError(common.CodeInvalidArgument, err.Error(), http.StatusBadRequest, err)
	case errors.Is(err, price.ErrCurrencyMismatch):
		return common.NewAppError(common.CodeCurrencyMismatch, "prices have different currencies", http.StatusBadRequest, err)
	case errors.Is(err, currency.ErrNotFound):
		return common.NewAppError(common.CodeCurrencyNotFound, "unknown currency", http.StatusUnprocessableEntity, err)
	case errors.Is(err, order.ErrNotFound):
		return common.NewAppError(common.CodeOrderNotFound, "order not found", http.StatusNotFound, err)
	case errors.Is(err, order.ErrStaleVersion):
		return common.NewAppError(common.CodeStaleVersion, "order was modified concurrently", http.StatusConflict, err)
	default:
		return common.NewAppError(common.CodeCalculationFailed, "could not calculate order total", http.StatusInternalServerError, err)
	}
}

// writeError renders err through mapCalculationError.
func writeError(w http.ResponseWriter, err error) {
	appErr := mapCalculationError(err)
	if appErr == nil {
		return
	}
	common.JSONError(w, appErr.HTTPStatus, appErr.Code, appErr.Message, appErr.Details)
}
