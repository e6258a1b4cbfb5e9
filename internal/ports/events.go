package ports

import "context"

// EventPublisher is the outbound domain-event publish port.
// The partition key preserves per-share ordering on partitioned brokers; the
// logging fallback ignores it.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload []byte, partitionKey string) error
}
