package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CalculationTotal counts order recalculation outcomes by trigger.
	CalculationTotal *prometheus.CounterVec
	// CalculationDuration records recalculation latency in milliseconds.
	CalculationDuration *prometheus.HistogramVec
	// PromotionAppliedTotal counts promotion adjustments by offer kind.
	PromotionAppliedTotal *prometheus.CounterVec
	// TaxAppliedTotal counts tax adjustments by tax type label.
	TaxAppliedTotal *prometheus.CounterVec
	// CurrencyCacheTotal tracks currency cache lookups by result.
	CurrencyCacheTotal *prometheus.CounterVec
	// StaleVersionTotal counts saves rejected by the optimistic version check.
	StaleVersionTotal prometheus.Counter
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CalculationTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calculation_total",
			Help:      "Count of order recalculation outcomes.",
		}, []string{"trigger", "result"})
		CalculationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "calculation_duration_ms",
			Help:      "Order recalculation latency in milliseconds.",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		}, []string{"trigger"})
		PromotionAppliedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "promotion_applied_total",
			Help:      "Count of promotion adjustments attached during recalculation.",
		}, []string{"offer"})
		TaxAppliedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tax_applied_total",
			Help:      "Count of tax adjustments attached during recalculation.",
		}, []string{"tax_type"})
		CurrencyCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "currency_cache_total",
			Help:      "Currency cache lookups by result.",
		}, []string{"result"})
		StaleVersionTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_version_total",
			Help:      "Saves rejected because the order version advanced concurrently.",
		})

		mustRegisterCollector(reg, CalculationTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CalculationTotal = v
			}
		})
		mustRegisterCollector(reg, CalculationDuration, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.HistogramVec); ok {
				CalculationDuration = v
			}
		})
		mustRegisterCollector(reg, PromotionAppliedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PromotionAppliedTotal = v
			}
		})
		mustRegisterCollector(reg, TaxAppliedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				TaxAppliedTotal = v
			}
		})
		mustRegisterCollector(reg, CurrencyCacheTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CurrencyCacheTotal = v
			}
		})
		mustRegisterCollector(reg, StaleVersionTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				StaleVersionTotal = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
