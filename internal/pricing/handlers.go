package pricing

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/commerce-pricing/internal/common"
	"github.com/noah-isme/commerce-pricing/internal/events"
	"github.com/noah-isme/commerce-pricing/internal/lock"
	"github.com/noah-isme/commerce-pricing/internal/order"
	"github.com/noah-isme/commerce-pricing/internal/price"
	"github.com/noah-isme/commerce-pricing/internal/store"
)

// Handler exposes the pricing API: stateless previews plus order lifecycle
// endpoints that persist recalculated state.
type Handler struct {
	Orders    order.Repository
	Processor *Processor
	Stores    *store.Chain
	Types     *order.TypeChain
	Validator *validator.Validate
	Locker    lock.Locker
	LockTTL   time.Duration
	Bus       *events.Bus
	Logger    zerolog.Logger
}

type pricePayload struct {
	Number       string `json:"number" validate:"required"`
	CurrencyCode string `json:"currency_code" validate:"required,len=3"`
}

type itemPayload struct {
	ProductID *uuid.UUID   `json:"product_id"`
	SKU       string       `json:"sku"`
	Title     string       `json:"title"`
	Quantity  string       `json:"quantity" validate:"required"`
	UnitPrice pricePayload `json:"unit_price" validate:"required"`
}

type profilePayload struct {
	Address order.Address `json:"address"`
}

type orderPayload struct {
	StoreID         *uuid.UUID      `json:"store_id"`
	Email           string          `json:"email" validate:"omitempty,email"`
	CurrencyCode    string          `json:"currency_code" validate:"omitempty,len=3"`
	BillingProfile  *profilePayload `json:"billing_profile"`
	ShippingProfile *profilePayload `json:"shipping_profile"`
	Items           []itemPayload   `json:"items" validate:"required,min=1,dive"`
}

func (p orderPayload) toOrder() (*order.Order, error) {
	o := &order.Order{
		Email:        p.Email,
		CurrencyCode: p.CurrencyCode,
	}
	if p.StoreID != nil {
		o.StoreID = *p.StoreID
	}
	if p.BillingProfile != nil {
		o.BillingProfile = &order.Profile{Address: p.BillingProfile.Address}
	}
	if p.ShippingProfile != nil {
		o.ShippingProfile = &order.Profile{Address: p.ShippingProfile.Address}
	}
	for _, it := range p.Items {
		unit, err := price.New(it.UnitPrice.Number, it.UnitPrice.CurrencyCode)
		if err != nil {
			return nil, err
		}
		o.Items = append(o.Items, &order.Item{
			ID:        uuid.New(),
			ProductID: it.ProductID,
			SKU:       it.SKU,
			Title:     it.Title,
			Quantity:  it.Quantity,
			UnitPrice: unit,
		})
	}
	if o.CurrencyCode == "" && len(o.Items) > 0 {
		o.CurrencyCode = o.Items[0].UnitPrice.CurrencyCode
	}
	return o, nil
}

func (h *Handler) decodeOrder(w http.ResponseWriter, r *http.Request) (*order.Order, bool) {
	var payload orderPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeInvalidArgument, "invalid payload", nil)
		return nil, false
	}
	if h.Validator != nil {
		if err := h.Validator.Struct(payload); err != nil {
			common.JSONError(w, http.StatusBadRequest, common.CodeInvalidArgument, err.Error(), nil)
			return nil, false
		}
	}
	o, err := payload.toOrder()
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeInvalidArgument, err.Error(), nil)
		return nil, false
	}
	h.resolveType(r, o)
	return o, true
}

func (h *Handler) resolveType(r *http.Request, o *order.Order) {
	if h.Types == nil {
		if o.State == "" {
			o.State = order.StateDraft
		}
		return
	}
	if state, ok, err := h.Types.Resolve(r.Context(), o); err == nil && ok {
		o.State = state
	}
}

func (h *Handler) resolveStore(r *http.Request, o *order.Order) {
	if h.Stores == nil {
		return
	}
	s, ok, err := h.Stores.Resolve(r.Context(), o)
	if err != nil || !ok {
		return
	}
	o.StoreID = s.ID
	if o.CurrencyCode == "" {
		o.CurrencyCode = s.DefaultCurrency
	}
}

// Preview calculates adjustments and totals for an order payload without
// persisting anything.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	o, ok := h.decodeOrder(w, r)
	if !ok {
		return
	}
	h.resolveStore(r, o)
	o.ID = uuid.New()
	if err := h.Processor.Refresh(r.Context(), o); err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": o})
}

// Create stores a new draft order with its calculated totals.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	o, ok := h.decodeOrder(w, r)
	if !ok {
		return
	}
	h.resolveStore(r, o)
	o.ID = uuid.New()
	if err := h.Processor.Refresh(r.Context(), o); err != nil {
		writeError(w, err)
		return
	}
	if err := h.Orders.Create(r.Context(), o); err != nil {
		writeError(w, err)
		return
	}
	h.emit(r, events.TopicOrderCreated, o.ID)
	common.JSON(w, http.StatusCreated, map[string]any{"data": o})
}

// Get returns a stored order.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeInvalidArgument, "invalid order id", nil)
		return
	}
	o, err := h.Orders.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": o})
}

// Recalculate refreshes a stored order under the per-order lock and persists
// the result with the optimistic version check.
func (h *Handler) Recalculate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeInvalidArgument, "invalid order id", nil)
		return
	}

	var refreshed *order.Order
	err = h.Locker.WithLock(r.Context(), lock.OrderKey(id), h.LockTTL, func(ctx context.Context) error {
		o, err := h.Orders.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := h.Processor.Refresh(ctx, o); err != nil {
			return err
		}
		if err := h.Orders.Save(ctx, o); err != nil {
			return err
		}
		refreshed = o
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	h.emit(r, events.TopicOrderRecalculated, id)
	common.JSON(w, http.StatusOK, map[string]any{"data": refreshed})
}

func (h *Handler) emit(r *http.Request, topic string, aggregateID uuid.UUID) {
	if h.Bus == nil {
		return
	}
	if _, err := h.Bus.Emit(r.Context(), topic, aggregateID, nil); err != nil {
		h.Logger.Error().Err(err).Str("topic", topic).Msg("emit event")
	}
}
