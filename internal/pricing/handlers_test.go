package pricing_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/commerce-pricing/internal/common"
	"github.com/noah-isme/commerce-pricing/internal/events"
	"github.com/noah-isme/commerce-pricing/internal/lock"
	"github.com/noah-isme/commerce-pricing/internal/order"
	"github.com/noah-isme/commerce-pricing/internal/pricing"
	"github.com/noah-isme/commerce-pricing/internal/promotion"
	"github.com/noah-isme/commerce-pricing/internal/tax"
)

func newTestServer(t *testing.T, orders order.Repository, proc *pricing.Processor) (*httptest.Server, *events.MemoryStore) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := &events.MemoryStore{}
	h := &pricing.Handler{
		Orders:    orders,
		Processor: proc,
		Validator: validator.New(validator.WithRequiredStructEnabled()),
		Locker:    lock.Locker{R: client},
		Bus:       &events.Bus{Store: store},
	}

	r := chi.NewRouter()
	r.Post("/pricing/preview", h.Preview)
	r.Post("/orders", h.Create)
	r.Get("/orders/{id}", h.Get)
	r.Post("/orders/{id}/recalculate", h.Recalculate)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, store
}

type orderEnvelope struct {
	Data struct {
		ID         string `json:"id"`
		Version    int64  `json:"version"`
		TotalPrice struct {
			Number       string `json:"number"`
			CurrencyCode string `json:"currency_code"`
		} `json:"total_price"`
		Adjustments []struct {
			Type  string `json:"type"`
			Label string `json:"label"`
		} `json:"adjustments"`
	} `json:"data"`
}

const previewBody = `{
  "currency_code": "USD",
  "shipping_profile": {"address": {"country_code": "US", "administrative_area": "WI"}},
  "billing_profile": {"address": {"country_code": "US", "administrative_area": "WI"}},
  "items": [
    {"title": "Widget", "quantity": "1", "unit_price": {"number": "3.00", "currency_code": "USD"}}
  ]
}`

func TestPreviewCalculatesTotals(t *testing.T) {
	zone, typ := wisconsinVAT()
	proc := newProcessor([]promotion.Promotion{halfOffPromotion()}, []tax.Zone{zone}, []tax.Type{typ})
	srv, _ := newTestServer(t, order.NewMemoryRepository(), proc)

	resp, err := http.Post(srv.URL+"/pricing/preview", "application/json", strings.NewReader(previewBody))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var env orderEnvelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	assert.Equal(t, "1.80", env.Data.TotalPrice.Number)
	assert.Equal(t, "USD", env.Data.TotalPrice.CurrencyCode)
}

func TestPreviewRejectsInvalidPayload(t *testing.T) {
	proc := newProcessor(nil, nil, nil)
	srv, _ := newTestServer(t, order.NewMemoryRepository(), proc)

	resp, err := http.Post(srv.URL+"/pricing/preview", "application/json", strings.NewReader(`{"items": []}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreatePersistsDraftAndEmits(t *testing.T) {
	zone, typ := wisconsinVAT()
	proc := newProcessor(nil, []tax.Zone{zone}, []tax.Type{typ})
	orders := order.NewMemoryRepository()
	srv, store := newTestServer(t, orders, proc)

	resp, err := http.Post(srv.URL+"/orders", "application/json", strings.NewReader(previewBody))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var env orderEnvelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	assert.Equal(t, "3.60", env.Data.TotalPrice.Number)

	ids, err := orders.ListDraftIDs(context.Background())
	require.NoError(t, err)
	require.Len(t, ids, 1)

	evs := store.Events()
	require.Len(t, evs, 1)
	assert.Equal(t, events.TopicOrderCreated, evs[0].Topic)
}

func TestRecalculateBumpsVersion(t *testing.T) {
	zone, typ := wisconsinVAT()
	proc := newProcessor(nil, []tax.Zone{zone}, []tax.Type{typ})
	orders := order.NewMemoryRepository()

	o := threeDollarOrder()
	o.ShippingProfile = o.BillingProfile
	require.NoError(t, orders.Create(context.Background(), o))

	srv, store := newTestServer(t, orders, proc)

	resp, err := http.Post(srv.URL+"/orders/"+o.ID.String()+"/recalculate", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var env orderEnvelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	assert.Equal(t, "3.60", env.Data.TotalPrice.Number)
	assert.Equal(t, int64(2), env.Data.Version)

	evs := store.Events()
	require.Len(t, evs, 1)
	assert.Equal(t, events.TopicOrderRecalculated, evs[0].Topic)
}

// staleRepository simulates a concurrent writer beating every save.
type staleRepository struct {
	order.Repository
}

func (staleRepository) Save(context.Context, *order.Order) error {
	return order.ErrStaleVersion
}

func TestRecalculateStaleVersionConflict(t *testing.T) {
	zone, typ := wisconsinVAT()
	proc := newProcessor(nil, []tax.Zone{zone}, []tax.Type{typ})
	orders := order.NewMemoryRepository()

	o := threeDollarOrder()
	require.NoError(t, orders.Create(context.Background(), o))

	srv, store := newTestServer(t, staleRepository{orders}, proc)

	resp, err := http.Post(srv.URL+"/orders/"+o.ID.String()+"/recalculate", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, common.CodeStaleVersion, body.Error.Code)
	assert.Empty(t, store.Events())
}

func TestGetUnknownOrderReturns404(t *testing.T) {
	proc := newProcessor(nil, nil, nil)
	srv, _ := newTestServer(t, order.NewMemoryRepository(), proc)

	resp, err := http.Get(srv.URL + "/orders/6f1b3c52-8e0a-4c57-9134-3f9d5a5b4de1")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, common.CodeOrderNotFound, body.Error.Code)
}
