package tax_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/noah-isme/commerce-pricing/internal/condition"
	"github.com/noah-isme/commerce-pricing/internal/currency"
	"github.com/noah-isme/commerce-pricing/internal/obs"
	"github.com/noah-isme/commerce-pricing/internal/order"
	"github.com/noah-isme/commerce-pricing/internal/price"
	"github.com/noah-isme/commerce-pricing/internal/tax"
)

func newEngine(zones []tax.Zone, types []tax.Type) *tax.Engine {
	return &tax.Engine{
		Types:   tax.NewMemoryTypeRepository(types...),
		Zones:   tax.NewMemoryZoneRepository(zones...),
		Rates:   tax.NewRateChain(condition.DefaultRegistry()),
		Rounder: currency.Rounder{Currencies: currency.ISORepository()},
	}
}

func usOrder(items ...*order.Item) *order.Order {
	return &order.Order{
		ID:           uuid.New(),
		CurrencyCode: "USD",
		BillingProfile: &order.Profile{
			Address: order.Address{CountryCode: "US", AdministrativeArea: "WI"},
		},
		Items: items,
	}
}

func TestTerritoryMatching(t *testing.T) {
	wi := tax.Territory{CountryCode: "US", AdministrativeArea: "WI"}
	assert.True(t, wi.Matches(order.Address{CountryCode: "US", AdministrativeArea: "WI"}))
	assert.True(t, wi.Matches(order.Address{CountryCode: "us", AdministrativeArea: "wi"}))
	assert.False(t, wi.Matches(order.Address{CountryCode: "US", AdministrativeArea: "CA"}))
	assert.False(t, wi.Matches(order.Address{CountryCode: "DE"}))

	country := tax.Territory{CountryCode: "US"}
	assert.True(t, country.Matches(order.Address{CountryCode: "US", AdministrativeArea: "CA"}))

	postal := tax.Territory{CountryCode: "US", PostalCodes: []string{"53703"}}
	assert.True(t, postal.Matches(order.Address{CountryCode: "US", PostalCode: "53703"}))
	assert.False(t, postal.Matches(order.Address{CountryCode: "US", PostalCode: "10001"}))
}

func TestZoneChainDefersOutsideTerritory(t *testing.T) {
	zone := tax.Zone{
		Label:       "US - Wisconsin",
		Territories: []tax.Territory{{CountryCode: "US", AdministrativeArea: "WI"}},
	}
	c := tax.NewZoneChain()

	matched, ok, err := c.Resolve(context.Background(), tax.ZoneSubject{
		Zone:    zone,
		Address: order.Address{CountryCode: "US", AdministrativeArea: "WI"},
	})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "US - Wisconsin", matched.Label)

	_, ok, err = c.Resolve(context.Background(), tax.ZoneSubject{
		Zone:    zone,
		Address: order.Address{CountryCode: "DE"},
	})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRatePercentageAt(t *testing.T) {
	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	jul := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	rate := tax.Rate{
		Percentages: []tax.Percentage{
			{Number: "0.19"},
			{Number: "0.20", StartsAt: &jan},
			{Number: "0.21", StartsAt: &jul},
		},
	}

	assert.Equal(t, "0.19", rate.PercentageAt(jan.AddDate(0, 0, -1)))
	assert.Equal(t, "0.20", rate.PercentageAt(jan))
	assert.Equal(t, "0.20", rate.PercentageAt(jul.AddDate(0, 0, -1)))
	assert.Equal(t, "0.21", rate.PercentageAt(jul.AddDate(0, 1, 0)))

	undated := tax.Rate{Percentages: []tax.Percentage{{Number: "0.07"}}}
	assert.Equal(t, "0.07", undated.PercentageAt(time.Now()))

	var empty tax.Rate
	assert.Equal(t, "", empty.PercentageAt(time.Now()))
}

func TestApplyAddsInclusiveTax(t *testing.T) {
	zone := tax.Zone{
		ID:          uuid.New(),
		Label:       "US-WI",
		Territories: []tax.Territory{{CountryCode: "US", AdministrativeArea: "WI"}},
		Rates: []tax.Rate{
			{ID: "standard", Label: "US VAT", Default: true, Percentages: []tax.Percentage{{Number: "0.2"}}},
		},
	}
	typ := tax.Type{ID: uuid.New(), Label: "VAT", ZoneID: zone.ID, DisplayInclusive: true, Enabled: true}

	engine := newEngine([]tax.Zone{zone}, []tax.Type{typ})
	o := usOrder(&order.Item{Quantity: "1", UnitPrice: price.MustNew("3.00", "USD")})

	require.NoError(t, engine.Apply(context.Background(), o))

	require.Len(t, o.Items[0].Adjustments, 1)
	adj := o.Items[0].Adjustments[0]
	assert.Equal(t, price.AdjustmentTax, adj.Type)
	assert.Equal(t, "US VAT", adj.Label)
	assert.Equal(t, typ.ID.String(), adj.SourceID)
	assert.Equal(t, "0.2", adj.Percentage)
	assert.True(t, adj.Included)
	assert.True(t, adj.Amount.Equal(price.MustNew("0.60", "USD")))

	total, err := o.Items[0].AdjustedTotal()
	require.NoError(t, err)
	assert.True(t, total.Equal(price.MustNew("3.60", "USD")))
}

func TestApplyTaxesPromotionAdjustedBase(t *testing.T) {
	zone := tax.Zone{
		ID:          uuid.New(),
		Label:       "US-WI",
		Territories: []tax.Territory{{CountryCode: "US"}},
		Rates: []tax.Rate{
			{ID: "standard", Default: true, Percentages: []tax.Percentage{{Number: "0.2"}}},
		},
	}
	typ := tax.Type{ID: uuid.New(), Label: "VAT", ZoneID: zone.ID, DisplayInclusive: true, Enabled: true}

	engine := newEngine([]tax.Zone{zone}, []tax.Type{typ})
	item := &order.Item{Quantity: "1", UnitPrice: price.MustNew("3.00", "USD")}
	item.AddAdjustment(price.Adjustment{
		Type:   price.AdjustmentPromotion,
		Label:  "50% off",
		Amount: price.MustNew("-1.50", "USD"),
	})
	o := usOrder(item)

	require.NoError(t, engine.Apply(context.Background(), o))

	// 20% of the discounted 1.50, not of the bare 3.00
	require.Len(t, o.Items[0].Adjustments, 2)
	assert.True(t, o.Items[0].Adjustments[1].Amount.Equal(price.MustNew("0.30", "USD")))

	total, err := o.Items[0].AdjustedTotal()
	require.NoError(t, err)
	assert.True(t, total.Equal(price.MustNew("1.80", "USD")))
}

func TestCompoundTaxRunsAfterNonCompound(t *testing.T) {
	gstZone := tax.Zone{
		ID:          uuid.New(),
		Label:       "CA",
		Territories: []tax.Territory{{CountryCode: "CA"}},
		Rates:       []tax.Rate{{ID: "gst", Label: "GST", Default: true, Percentages: []tax.Percentage{{Number: "0.05"}}}},
	}
	pstZone := tax.Zone{
		ID:          uuid.New(),
		Label:       "CA-QC",
		Territories: []tax.Territory{{CountryCode: "CA"}},
		Rates:       []tax.Rate{{ID: "qst", Label: "QST", Default: true, Percentages: []tax.Percentage{{Number: "0.1"}}}},
	}
	gst := tax.Type{ID: uuid.New(), Label: "GST", ZoneID: gstZone.ID, Enabled: true}
	qst := tax.Type{ID: uuid.New(), Label: "QST", ZoneID: pstZone.ID, Compound: true, Enabled: true}

	engine := newEngine([]tax.Zone{gstZone, pstZone}, []tax.Type{gst, qst})
	o := &order.Order{
		ID:             uuid.New(),
		CurrencyCode:   "CAD",
		BillingProfile: &order.Profile{Address: order.Address{CountryCode: "CA"}},
		Items:          []*order.Item{{Quantity: "1", UnitPrice: price.MustNew("100.00", "CAD")}},
	}

	require.NoError(t, engine.Apply(context.Background(), o))

	require.Len(t, o.Items[0].Adjustments, 2)
	assert.Equal(t, "GST", o.Items[0].Adjustments[0].Label)
	assert.True(t, o.Items[0].Adjustments[0].Amount.Equal(price.MustNew("5.00", "CAD")))
	// compound QST applies on 105.00, not 100.00
	assert.Equal(t, "QST", o.Items[0].Adjustments[1].Label)
	assert.True(t, o.Items[0].Adjustments[1].Amount.Equal(price.MustNew("10.50", "CAD")))
}

func TestNoMatchingZoneIsNoop(t *testing.T) {
	zone := tax.Zone{
		ID:          uuid.New(),
		Label:       "DE",
		Territories: []tax.Territory{{CountryCode: "DE"}},
		Rates:       []tax.Rate{{ID: "standard", Default: true, Percentages: []tax.Percentage{{Number: "0.19"}}}},
	}
	typ := tax.Type{ID: uuid.New(), Label: "VAT", ZoneID: zone.ID, Enabled: true}

	engine := newEngine([]tax.Zone{zone}, []tax.Type{typ})
	o := usOrder(&order.Item{Quantity: "1", UnitPrice: price.MustNew("3.00", "USD")})

	require.NoError(t, engine.Apply(context.Background(), o))
	assert.Empty(t, o.Items[0].Adjustments)
}

func TestMissingAddressIsNoop(t *testing.T) {
	zone := tax.Zone{
		ID:          uuid.New(),
		Label:       "US",
		Territories: []tax.Territory{{CountryCode: "US"}},
		Rates:       []tax.Rate{{ID: "standard", Default: true, Percentages: []tax.Percentage{{Number: "0.07"}}}},
	}
	typ := tax.Type{ID: uuid.New(), Label: "Sales tax", ZoneID: zone.ID, Enabled: true}

	engine := newEngine([]tax.Zone{zone}, []tax.Type{typ})
	o := &order.Order{
		ID:           uuid.New(),
		CurrencyCode: "USD",
		Items:        []*order.Item{{Quantity: "1", UnitPrice: price.MustNew("3.00", "USD")}},
	}

	require.NoError(t, engine.Apply(context.Background(), o))
	assert.Empty(t, o.Items[0].Adjustments)
}

func TestZoneWithoutDefaultRateYieldsNoAdjustment(t *testing.T) {
	zone := tax.Zone{
		ID:          uuid.New(),
		Label:       "US",
		Territories: []tax.Territory{{CountryCode: "US"}},
		Rates:       []tax.Rate{},
	}
	typ := tax.Type{ID: uuid.New(), Label: "Sales tax", ZoneID: zone.ID, Enabled: true}

	engine := newEngine([]tax.Zone{zone}, []tax.Type{typ})
	o := usOrder(&order.Item{Quantity: "1", UnitPrice: price.MustNew("3.00", "USD")})

	require.NoError(t, engine.Apply(context.Background(), o))
	assert.Empty(t, o.Items[0].Adjustments)
}

func TestConditionGatedRateBeatsDefault(t *testing.T) {
	zone := tax.Zone{
		ID:          uuid.New(),
		Label:       "US",
		Territories: []tax.Territory{{CountryCode: "US"}},
		Rates: []tax.Rate{
			{ID: "standard", Label: "Standard", Default: true, Percentages: []tax.Percentage{{Number: "0.1"}}},
			{
				ID:          "luxury",
				Label:       "Luxury",
				Percentages: []tax.Percentage{{Number: "0.25"}},
				Conditions: condition.GroupDefinition{
					Conditions: []condition.Definition{
						{ID: condition.IDOrderTotalPrice, Config: map[string]any{"operator": ">=", "number": "1000"}},
					},
				},
			},
		},
	}
	typ := tax.Type{ID: uuid.New(), Label: "Sales tax", ZoneID: zone.ID, Enabled: true}

	engine := newEngine([]tax.Zone{zone}, []tax.Type{typ})

	cheap := usOrder(&order.Item{Quantity: "1", UnitPrice: price.MustNew("100.00", "USD")})
	require.NoError(t, engine.Apply(context.Background(), cheap))
	require.Len(t, cheap.Items[0].Adjustments, 1)
	assert.Equal(t, "Standard", cheap.Items[0].Adjustments[0].Label)
	assert.True(t, cheap.Items[0].Adjustments[0].Amount.Equal(price.MustNew("10.00", "USD")))

	pricey := usOrder(&order.Item{Quantity: "1", UnitPrice: price.MustNew("2000.00", "USD")})
	require.NoError(t, engine.Apply(context.Background(), pricey))
	require.Len(t, pricey.Items[0].Adjustments, 1)
	assert.Equal(t, "Luxury", pricey.Items[0].Adjustments[0].Label)
	assert.True(t, pricey.Items[0].Adjustments[0].Amount.Equal(price.MustNew("500.00", "USD")))
}

func TestShippingProfileProvider(t *testing.T) {
	zone := tax.Zone{
		ID:          uuid.New(),
		Label:       "DE",
		Territories: []tax.Territory{{CountryCode: "DE"}},
		Rates:       []tax.Rate{{ID: "standard", Label: "VAT", Default: true, Percentages: []tax.Percentage{{Number: "0.19"}}}},
	}
	typ := tax.Type{ID: uuid.New(), Label: "VAT", ZoneID: zone.ID, Enabled: true}

	engine := newEngine([]tax.Zone{zone}, []tax.Type{typ})
	engine.Profile = tax.ShippingProfile

	o := &order.Order{
		ID:              uuid.New(),
		CurrencyCode:    "EUR",
		BillingProfile:  &order.Profile{Address: order.Address{CountryCode: "US"}},
		ShippingProfile: &order.Profile{Address: order.Address{CountryCode: "DE"}},
		Items:           []*order.Item{{Quantity: "1", UnitPrice: price.MustNew("10.00", "EUR")}},
	}

	require.NoError(t, engine.Apply(context.Background(), o))
	require.Len(t, o.Items[0].Adjustments, 1)
	assert.True(t, o.Items[0].Adjustments[0].Amount.Equal(price.MustNew("1.90", "EUR")))
}

func TestApplyCountsTaxAdjustments(t *testing.T) {
	obs.MustRegisterDomainMetrics("taxtest", prometheus.NewRegistry())

	zone := tax.Zone{
		ID:          uuid.New(),
		Label:       "US-WI",
		Territories: []tax.Territory{{CountryCode: "US", AdministrativeArea: "WI"}},
		Rates: []tax.Rate{
			{ID: "standard", Default: true, Percentages: []tax.Percentage{{Number: "0.2"}}},
		},
	}
	typ := tax.Type{ID: uuid.New(), Label: "VAT", ZoneID: zone.ID, DisplayInclusive: true, Enabled: true}
	engine := newEngine([]tax.Zone{zone}, []tax.Type{typ})
	o := usOrder(&order.Item{Quantity: "1", UnitPrice: price.MustNew("3.00", "USD")})

	counter := obs.TaxAppliedTotal.WithLabelValues("VAT")
	before := testutil.ToFloat64(counter)

	require.NoError(t, engine.Apply(context.Background(), o))

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}
