package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clipstage/share-access-service/internal/domain"
)

// ShareRepository reads share-link state from the project registry.
// This service never writes registry rows; the registry is owned elsewhere.
type ShareRepository interface {
	GetByID(ctx context.Context, shareID uuid.UUID) (domain.Share, error)
	IsRecipient(ctx context.Context, shareID uuid.UUID, email string) (bool, error)
}

// AssetRepository reads asset state needed for content-token policy decisions.
type AssetRepository interface {
	GetByID(ctx context.Context, assetID uuid.UUID) (domain.Asset, error)
}

// SecurityEventRepository is the append-only audit sink.
// There is intentionally no update or delete operation.
type SecurityEventRepository interface {
	Insert(ctx context.Context, event domain.SecurityEvent) error
	List(ctx context.Context, filter domain.SecurityEventFilter) ([]domain.SecurityEvent, error)
}

// OutboxEvent is the write-side event payload prior to storage.
// It is adapter-neutral to keep application code independent of broker specifics.
type OutboxEvent struct {
	EventID      uuid.UUID
	EventType    string
	PartitionKey string
	Payload      []byte
	OccurredAt   time.Time
}

// OutboxRecord represents durable outbox state, including retry/error metadata.
type OutboxRecord struct {
	OutboxID       uuid.UUID
	EventType      string
	PartitionKey   string
	Payload        []byte
	RetryCount     int
	LastError      *string
	CreatedAt      time.Time
	PublishedAt    *time.Time
	LastErrorAt    *time.Time
	FirstSeenAt    time.Time
	ClaimToken     *string
	ClaimUntil     *time.Time
	DeadLetteredAt *time.Time
}

// OutboxRepository controls publish-retry workflow for domain events.
// This explicit contract enables transactional outbox patterns without leaking DB details.
type OutboxRepository interface {
	Enqueue(ctx context.Context, event OutboxEvent) error
	ClaimUnpublished(ctx context.Context, limit int, claimToken string, claimUntil time.Time) ([]OutboxRecord, error)
	MarkPublished(ctx context.Context, outboxID uuid.UUID, claimToken string, at time.Time) error
	MarkFailed(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error
	MarkDeadLettered(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error
}
