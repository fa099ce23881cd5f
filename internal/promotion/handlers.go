package promotion

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/commerce-pricing/internal/common"
	"github.com/noah-isme/commerce-pricing/internal/condition"
	"github.com/noah-isme/commerce-pricing/internal/events"
)

// Handler exposes administrative promotion management endpoints. Writes emit
// a promotion.changed event so open orders get recalculated.
type Handler struct {
	Repo       Repository
	Offers     *OfferRegistry
	Conditions *condition.Registry
	Bus        *events.Bus
	Logger     zerolog.Logger
}

type promotionPayload struct {
	Label       string                    `json:"label"`
	Description string                    `json:"description"`
	Enabled     bool                      `json:"enabled"`
	Priority    int                       `json:"priority"`
	Stackable   bool                      `json:"stackable"`
	StartsAt    *time.Time                `json:"starts_at"`
	EndsAt      *time.Time                `json:"ends_at"`
	Offer       OfferDefinition           `json:"offer"`
	Conditions  condition.GroupDefinition `json:"conditions"`
}

func (h *Handler) validate(p promotionPayload) error {
	if strings.TrimSpace(p.Label) == "" {
		return errors.New("label is required")
	}
	if _, err := h.Offers.Build(p.Offer); err != nil {
		return err
	}
	if _, err := h.Conditions.BuildGroup(p.Conditions); err != nil {
		return err
	}
	return nil
}

// List returns all promotions ordered by priority.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	promos, err := h.Repo.List(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list promotions", nil)
		return
	}
	page, perPage := common.ParsePagination(r, 50)
	meta := common.Pagination{Page: page, PerPage: perPage, TotalItems: len(promos)}
	start := (page - 1) * perPage
	if start > len(promos) {
		start = len(promos)
	}
	end := start + perPage
	if end > len(promos) {
		end = len(promos)
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": promos[start:end], "meta": meta})
}

// Get returns one promotion.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeInvalidArgument, "invalid promotion id", nil)
		return
	}
	p, err := h.Repo.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "promotion not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load promotion", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": p})
}

// Create inserts a new promotion.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var payload promotionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeInvalidArgument, "invalid payload", nil)
		return
	}
	if err := h.validate(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeInvalidArgument, err.Error(), nil)
		return
	}
	p := Promotion{
		ID:          uuid.New(),
		Label:       payload.Label,
		Description: payload.Description,
		Enabled:     payload.Enabled,
		Priority:    payload.Priority,
		Stackable:   payload.Stackable,
		StartsAt:    payload.StartsAt,
		EndsAt:      payload.EndsAt,
		Offer:       payload.Offer,
		Conditions:  payload.Conditions,
	}
	if err := h.Repo.Upsert(r.Context(), p); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to save promotion", nil)
		return
	}
	h.emit(r, p.ID)
	common.JSON(w, http.StatusCreated, map[string]any{"data": p})
}

// Update replaces an existing promotion.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeInvalidArgument, "invalid promotion id", nil)
		return
	}
	if _, err := h.Repo.Get(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "promotion not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load promotion", nil)
		return
	}
	var payload promotionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeInvalidArgument, "invalid payload", nil)
		return
	}
	if err := h.validate(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeInvalidArgument, err.Error(), nil)
		return
	}
	p := Promotion{
		ID:          id,
		Label:       payload.Label,
		Description: payload.Description,
		Enabled:     payload.Enabled,
		Priority:    payload.Priority,
		Stackable:   payload.Stackable,
		StartsAt:    payload.StartsAt,
		EndsAt:      payload.EndsAt,
		Offer:       payload.Offer,
		Conditions:  payload.Conditions,
	}
	if err := h.Repo.Upsert(r.Context(), p); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to save promotion", nil)
		return
	}
	h.emit(r, id)
	common.JSON(w, http.StatusOK, map[string]any{"data": p})
}

// Delete removes a promotion.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeInvalidArgument, "invalid promotion id", nil)
		return
	}
	if err := h.Repo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "promotion not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to delete promotion", nil)
		return
	}
	h.emit(r, id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) emit(r *http.Request, id uuid.UUID) {
	if h.Bus == nil {
		return
	}
	if _, err := h.Bus.Emit(r.Context(), events.TopicPromotionChanged, id, nil); err != nil {
		h.Logger.Error().Err(err).Msg("emit promotion.changed")
	}
}
