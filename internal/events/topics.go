package events

// Topic constants for domain events emitted by the service.
const (
	TopicOrderConfirmed = "order.confirmed"
	TopicProductCreated = "product.created"
)

// DefaultTopics returns the canonical list of topics this service emits.
func DefaultTopics() []string {
	return []string{
		TopicOrderConfirmed,
		TopicProductCreated,
	}
}
