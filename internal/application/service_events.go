package application

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/clipstage/share-access-service/internal/domain"
	"github.com/clipstage/share-access-service/internal/ports"
)

const (
	// eventPasswordVerified is emitted when a share passcode check succeeds.
	eventPasswordVerified = "share.password.verified"
	// eventPasswordFailed is emitted on every failed passcode attempt.
	eventPasswordFailed = "share.password.failed"
	// eventOTPRequested is emitted whenever a one-time code is asked for,
	// authorized recipient or not.
	eventOTPRequested = "share.otp.requested"
	// eventOTPDispatch is the outbox-only payload the mailer consumes.
	eventOTPDispatch = "share.otp.dispatch"
	// eventOTPFailed is emitted on every failed code redemption.
	eventOTPFailed = "share.otp.failed"
	// eventOTPVerified is emitted when a code is redeemed successfully.
	eventOTPVerified = "share.otp.verified"
	// eventLockoutTriggered is emitted by the attempt that crosses the
	// failure threshold.
	eventLockoutTriggered = "share.lockout.triggered"
	// eventLockoutRejected is emitted when a request is refused because
	// its identifier is inside an active lockout.
	eventLockoutRejected = "share.lockout.rejected"
	// eventRateLimitDegraded is emitted when the rate-limit store is
	// unreachable and the guard fails open.
	eventRateLimitDegraded = "share.ratelimit.degraded"
	// eventSessionRevoked is emitted when a viewer ends their session.
	eventSessionRevoked = "share.session.revoked"
	// eventContentTokenIssued is emitted for every scoped token handed out.
	eventContentTokenIssued = "share.content_token.issued"
	// eventContentTokenDenied is emitted when a scoped token request is
	// refused on authorization or approval grounds.
	eventContentTokenDenied = "share.content_token.denied"
)

// recordSecurityEvent appends one row to the audit trail and enqueues a
// copy for downstream consumers. Auditing is best effort: a failure is
// logged loudly but never fails the access flow it rides on.
func (s *Service) recordSecurityEvent(ctx context.Context, eventType string, severity domain.Severity, shareID *uuid.UUID, ip string, details map[string]any, wasBlocked bool) {
	now := s.nowFn()
	event := domain.SecurityEvent{
		EventID:    uuid.New(),
		Type:       eventType,
		Severity:   severity,
		ShareID:    shareID,
		IPAddress:  ip,
		Details:    details,
		WasBlocked: wasBlocked,
		OccurredAt: now,
	}
	if err := s.securityEvents.Insert(ctx, event); err != nil {
		slog.Default().ErrorContext(ctx, "failed to persist security event",
			"service", "Share-Access-Service",
			"module", "share-access",
			"layer", "application",
			"operation", "record_security_event",
			"outcome", "failure",
			"event_type", eventType,
			"error", err,
		)
	}

	partitionKey := event.EventID.String()
	if shareID != nil {
		partitionKey = shareID.String()
	}
	payload, _ := json.Marshal(map[string]any{
		"event_id":    event.EventID,
		"event_type":  eventType,
		"severity":    severity,
		"share_id":    shareID,
		"ip_address":  ip,
		"details":     details,
		"was_blocked": wasBlocked,
		"occurred_at": now,
	})
	if err := s.outbox.Enqueue(ctx, ports.OutboxEvent{
		EventID:      event.EventID,
		EventType:    eventType,
		PartitionKey: partitionKey,
		Payload:      payload,
		OccurredAt:   now,
	}); err != nil {
		slog.Default().WarnContext(ctx, "failed to enqueue security event",
			"service", "Share-Access-Service",
			"module", "share-access",
			"layer", "application",
			"operation", "record_security_event",
			"outcome", "failure",
			"event_type", eventType,
			"error", err,
		)
	}
}

// ListSecurityEvents serves the internal audit listing.
func (s *Service) ListSecurityEvents(ctx context.Context, q SecurityEventQuery) ([]domain.SecurityEvent, error) {
	filter := domain.SecurityEventFilter{
		Type:  strings.TrimSpace(q.Type),
		Limit: q.Limit,
	}

	if severity := domain.Severity(strings.ToUpper(strings.TrimSpace(q.Severity))); severity != "" {
		switch severity {
		case domain.SeverityInfo, domain.SeverityWarning, domain.SeverityCritical:
			filter.Severity = severity
		default:
			return nil, fmt.Errorf("%w: unknown severity %q", domain.ErrInvalidInput, q.Severity)
		}
	}
	if raw := strings.TrimSpace(q.ShareID); raw != "" {
		shareID, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid share id", domain.ErrInvalidInput)
		}
		filter.ShareID = &shareID
	}
	if !q.Since.IsZero() {
		since := q.Since
		filter.Since = &since
	}
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	if filter.Limit > 500 {
		filter.Limit = 500
	}

	return s.securityEvents.List(ctx, filter)
}
