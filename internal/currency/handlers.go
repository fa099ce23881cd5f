package currency

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/noah-isme/commerce-pricing/internal/common"
)

// Handler exposes administrative currency management endpoints. OnChange is
// invoked after a successful write so the caller can emit a change event.
type Handler struct {
	Repo     *PGRepository
	Cache    *Cache
	OnChange func(ctx context.Context, code string)
	Logger   zerolog.Logger
}

type currencyPayload struct {
	Code           string `json:"code"`
	NumericCode    string `json:"numeric_code"`
	Name           string `json:"name"`
	Symbol         string `json:"symbol"`
	FractionDigits int32  `json:"fraction_digits"`
	RoundingStep   string `json:"rounding_step"`
}

// List returns every known currency.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	currencies, err := h.Repo.List(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list currencies", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": currencies})
}

// Get returns a single currency by code.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "code")))
	c, err := h.Repo.Get(r.Context(), code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, common.CodeCurrencyNotFound, "unknown currency", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load currency", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": c})
}

// Upsert creates or updates a currency and invalidates its cache entry.
func (h *Handler) Upsert(w http.ResponseWriter, r *http.Request) {
	var payload currencyPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeInvalidArgument, "invalid payload", nil)
		return
	}
	code := strings.ToUpper(strings.TrimSpace(payload.Code))
	if code == "" {
		code = strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "code")))
	}
	if len(code) != 3 {
		common.JSONError(w, http.StatusBadRequest, common.CodeInvalidArgument, "code must be 3 letters", nil)
		return
	}
	if payload.FractionDigits < 0 {
		common.JSONError(w, http.StatusBadRequest, common.CodeInvalidArgument, "fraction_digits must not be negative", nil)
		return
	}
	c := Currency{
		Code:           code,
		NumericCode:    payload.NumericCode,
		Name:           payload.Name,
		Symbol:         payload.Symbol,
		FractionDigits: payload.FractionDigits,
		RoundingStep:   payload.RoundingStep,
	}
	if err := h.Repo.Upsert(r.Context(), c); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to save currency", nil)
		return
	}
	if h.Cache != nil {
		if err := h.Cache.Invalidate(r.Context(), code); err != nil {
			h.Logger.Error().Err(err).Str("code", code).Msg("invalidate currency cache")
		}
	}
	if h.OnChange != nil {
		h.OnChange(r.Context(), code)
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": c})
}
