package tax

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/commerce-pricing/internal/calc"
	"github.com/noah-isme/commerce-pricing/internal/common"
	"github.com/noah-isme/commerce-pricing/internal/events"
)

// Handler exposes administrative tax zone and tax type endpoints. Writes emit
// a tax.changed event so open orders get recalculated.
type Handler struct {
	Zones  ZoneRepository
	Types  TypeRepository
	Bus    *events.Bus
	Logger zerolog.Logger
}

type zonePayload struct {
	Label       string      `json:"label"`
	Territories []Territory `json:"territories"`
	Rates       []Rate      `json:"rates"`
}

func validateZone(p zonePayload) error {
	if strings.TrimSpace(p.Label) == "" {
		return errors.New("label is required")
	}
	defaults := 0
	for _, r := range p.Rates {
		if r.Default {
			defaults++
		}
		for _, pct := range r.Percentages {
			if !calc.Valid(pct.Number) {
				return errors.New("rate percentage must be a decimal number")
			}
		}
	}
	if len(p.Rates) > 0 && defaults != 1 {
		return errors.New("exactly one rate must be the default")
	}
	return nil
}

// ListZones returns all tax zones.
func (h *Handler) ListZones(w http.ResponseWriter, r *http.Request) {
	zones, err := h.Zones.List(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list tax zones", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": zones})
}

// GetZone returns one tax zone.
func (h *Handler) GetZone(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeInvalidArgument, "invalid zone id", nil)
		return
	}
	z, err := h.Zones.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "tax zone not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load tax zone", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": z})
}

// UpsertZone creates or updates a tax zone.
func (h *Handler) UpsertZone(w http.ResponseWriter, r *http.Request) {
	var payload zonePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeInvalidArgument, "invalid payload", nil)
		return
	}
	if err := validateZone(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeInvalidArgument, err.Error(), nil)
		return
	}
	z := Zone{
		Label:       payload.Label,
		Territories: payload.Territories,
		Rates:       payload.Rates,
	}
	if raw := chi.URLParam(r, "id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, common.CodeInvalidArgument, "invalid zone id", nil)
			return
		}
		z.ID = id
	} else {
		z.ID = uuid.New()
	}
	if err := h.Zones.Upsert(r.Context(), z); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to save tax zone", nil)
		return
	}
	h.emit(r, z.ID)
	common.JSON(w, http.StatusOK, map[string]any{"data": z})
}

// DeleteZone removes a tax zone.
func (h *Handler) DeleteZone(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeInvalidArgument, "invalid zone id", nil)
		return
	}
	if err := h.Zones.Delete(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "tax zone not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to delete tax zone", nil)
		return
	}
	h.emit(r, id)
	w.WriteHeader(http.StatusNoContent)
}

type typePayload struct {
	Label            string    `json:"label"`
	ZoneID           uuid.UUID `json:"zone_id"`
	RoundingMode     string    `json:"rounding_mode"`
	DisplayInclusive bool      `json:"display_inclusive"`
	Compound         bool      `json:"compound"`
	Enabled          bool      `json:"enabled"`
}

func (h *Handler) validateType(r *http.Request, p typePayload) error {
	if strings.TrimSpace(p.Label) == "" {
		return errors.New("label is required")
	}
	if p.ZoneID == uuid.Nil {
		return errors.New("zone_id is required")
	}
	if _, err := h.Zones.Get(r.Context(), p.ZoneID); err != nil {
		return errors.New("zone_id references an unknown tax zone")
	}
	if p.RoundingMode != "" {
		if _, err := calc.Round("0", 0, calc.RoundMode(p.RoundingMode)); err != nil {
			return errors.New("unknown rounding mode")
		}
	}
	return nil
}

// ListTypes returns all tax types.
func (h *Handler) ListTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.Types.List(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list tax types", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": types})
}

// UpsertType creates or updates a tax type.
func (h *Handler) UpsertType(w http.ResponseWriter, r *http.Request) {
	var payload typePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeInvalidArgument, "invalid payload", nil)
		return
	}
	if err := h.validateType(r, payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeInvalidArgument, err.Error(), nil)
		return
	}
	t := Type{
		Label:            payload.Label,
		ZoneID:           payload.ZoneID,
		RoundingMode:     payload.RoundingMode,
		DisplayInclusive: payload.DisplayInclusive,
		Compound:         payload.Compound,
		Enabled:          payload.Enabled,
		CreatedAt:        time.Now().UTC(),
	}
	if raw := chi.URLParam(r, "id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, common.CodeInvalidArgument, "invalid tax type id", nil)
			return
		}
		t.ID = id
	} else {
		t.ID = uuid.New()
	}
	if err := h.Types.Upsert(r.Context(), t); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to save tax type", nil)
		return
	}
	h.emit(r, t.ID)
	common.JSON(w, http.StatusOK, map[string]any{"data": t})
}

// DeleteType removes a tax type.
func (h *Handler) DeleteType(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeInvalidArgument, "invalid tax type id", nil)
		return
	}
	if err := h.Types.Delete(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "tax type not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to delete tax type", nil)
		return
	}
	h.emit(r, id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) emit(r *http.Request, id uuid.UUID) {
	if h.Bus == nil {
		return
	}
	if _, err := h.Bus.Emit(r.Context(), events.TopicTaxChanged, id, nil); err != nil {
		h.Logger.Error().Err(err).Msg("emit tax.changed")
	}
}
