package store

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/commerce-pricing/internal/common"
	"github.com/noah-isme/commerce-pricing/internal/events"
)

// Handler exposes administrative store management endpoints.
type Handler struct {
	Repo   *PGRepository
	Bus    *events.Bus
	Logger zerolog.Logger
}

type storePayload struct {
	Name             string `json:"name"`
	DefaultCurrency  string `json:"default_currency"`
	CountryCode      string `json:"country_code"`
	PricesIncludeTax bool   `json:"prices_include_tax"`
	IsDefault        bool   `json:"is_default"`
}

func validateStore(p storePayload) error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("name is required")
	}
	if len(strings.TrimSpace(p.DefaultCurrency)) != 3 {
		return errors.New("default_currency must be 3 letters")
	}
	return nil
}

// List returns all stores.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	stores, err := h.Repo.List(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list stores", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": stores})
}

// Get returns one store.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeInvalidArgument, "invalid store id", nil)
		return
	}
	s, err := h.Repo.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "store not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load store", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": s})
}

// Upsert creates or updates a store.
func (h *Handler) Upsert(w http.ResponseWriter, r *http.Request) {
	var payload storePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeInvalidArgument, "invalid payload", nil)
		return
	}
	if err := validateStore(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeInvalidArgument, err.Error(), nil)
		return
	}
	s := Store{
		Name:             payload.Name,
		DefaultCurrency:  strings.ToUpper(strings.TrimSpace(payload.DefaultCurrency)),
		CountryCode:      strings.ToUpper(strings.TrimSpace(payload.CountryCode)),
		PricesIncludeTax: payload.PricesIncludeTax,
		IsDefault:        payload.IsDefault,
	}
	if raw := chi.URLParam(r, "id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, common.CodeInvalidArgument, "invalid store id", nil)
			return
		}
		s.ID = id
	} else {
		s.ID = uuid.New()
	}
	if err := h.Repo.Upsert(r.Context(), s); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to save store", nil)
		return
	}
	if h.Bus != nil {
		if _, err := h.Bus.Emit(r.Context(), events.TopicStoreChanged, s.ID, nil); err != nil {
			h.Logger.Error().Err(err).Msg("emit store.changed")
		}
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": s})
}
