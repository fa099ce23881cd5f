package events

// Topic constants for domain events emitted by the pricing service.
const (
	TopicOrderCreated      = "order.created"
	TopicOrderRecalculated = "order.recalculated"
	TopicPromotionChanged  = "promotion.changed"
	TopicTaxChanged        = "tax.changed"
	TopicCurrencyChanged   = "currency.changed"
	TopicStoreChanged      = "store.changed"
)

// RecalcTopics lists the topics that should trigger a recalculation of open
// orders.
func RecalcTopics() []string {
	return []string{
		TopicPromotionChanged,
		TopicTaxChanged,
		TopicCurrencyChanged,
		TopicStoreChanged,
	}
}
