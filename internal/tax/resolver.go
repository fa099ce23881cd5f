package tax

import (
	"context"

	"github.com/noah-isme/commerce-pricing/internal/chain"
	"github.com/noah-isme/commerce-pricing/internal/condition"
	"github.com/noah-isme/commerce-pricing/internal/order"
)

// RateSubject is what a rate resolver works with: the zone being charged and
// the order/item the rate will apply to.
type RateSubject struct {
	Zone    Zone
	Subject condition.Subject
}

// Resolver picks a tax rate within a zone. Returning ok=false defers to the
// next resolver; returning chain.ErrStop ends resolution with no applicable
// rate at all, which yields no adjustment rather than an error.
type Resolver = chain.Resolver[RateSubject, Rate]

// Chain is an ordered list of rate resolvers.
type Chain = chain.Chain[RateSubject, Rate]

// NewRateChain builds the default rate resolution order: condition-gated
// rates first, then the zone's default rate as the fallback.
func NewRateChain(conditions *condition.Registry) *Chain {
	return chain.New[RateSubject, Rate](
		ConditionRateResolver{Conditions: conditions},
		DefaultRateResolver{},
	)
}

// ConditionRateResolver returns the first non-default rate whose condition
// group passes for the order. Rates without conditions are left to the
// default-rate fallback.
type ConditionRateResolver struct {
	Conditions *condition.Registry
}

func (r ConditionRateResolver) Resolve(ctx context.Context, s RateSubject) (Rate, bool, error) {
	for _, rate := range s.Zone.Rates {
		if rate.Default || len(rate.Conditions.Conditions) == 0 {
			continue
		}
		group, err := r.Conditions.BuildGroup(rate.Conditions)
		if err != nil {
			return Rate{}, false, err
		}
		ok, err := group.Evaluate(ctx, s.Subject)
		if err != nil {
			return Rate{}, false, err
		}
		if ok {
			return rate, true, nil
		}
	}
	return Rate{}, false, nil
}

// DefaultRateResolver falls back to the zone's default rate. A zone without a
// default rate has no applicable rate, which stops the chain outright.
type DefaultRateResolver struct{}

func (DefaultRateResolver) Resolve(_ context.Context, s RateSubject) (Rate, bool, error) {
	rate, ok := s.Zone.DefaultRate()
	if !ok {
		return Rate{}, false, chain.ErrStop
	}
	return rate, true, nil
}

// ZoneSubject pairs a candidate zone with the address being taxed.
type ZoneSubject struct {
	Zone    Zone
	Address order.Address
}

// ZoneResolver decides whether a candidate zone applies to an address.
type ZoneResolver = chain.Resolver[ZoneSubject, Zone]

// ZoneChain is an ordered list of zone resolvers.
type ZoneChain = chain.Chain[ZoneSubject, Zone]

// NewZoneChain builds the default zone resolution: territory matching only.
func NewZoneChain() *ZoneChain {
	return chain.New[ZoneSubject, Zone](TerritoryZoneResolver{})
}

// TerritoryZoneResolver resolves when one of the zone's territories covers
// the address, deferring otherwise.
type TerritoryZoneResolver struct{}

func (TerritoryZoneResolver) Resolve(_ context.Context, s ZoneSubject) (Zone, bool, error) {
	if s.Zone.Matches(s.Address) {
		return s.Zone, true, nil
	}
	return Zone{}, false, nil
}
