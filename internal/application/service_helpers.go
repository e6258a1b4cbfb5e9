package application

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clipstage/share-access-service/internal/domain"
	"github.com/clipstage/share-access-service/internal/ports"
)

// identifierHash derives the opaque key under which failures are
// counted. Raw IPs and recipient addresses never reach the rate-limit
// store or the audit log; only this salted digest does.
func (s *Service) identifierHash(parts ...string) string {
	salt := s.cfg.IdentifierSalt
	if salt == "" {
		salt = "share-access-dev-salt"
	}
	h := sha256.New()
	h.Write([]byte(salt))
	for _, part := range parts {
		h.Write([]byte{0})
		h.Write([]byte(strings.ToLower(strings.TrimSpace(part))))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (s *Service) credentialKey(ip string, shareID uuid.UUID) string {
	return s.identifierHash("cred", ip, shareID.String())
}

func (s *Service) recipientKey(ip string, shareID uuid.UUID, email string) string {
	return s.identifierHash("cred", ip, shareID.String(), email)
}

func (s *Service) codeKey(shareID uuid.UUID, email string) string {
	return s.identifierHash("code", shareID.String(), email)
}

// normalizeEmail canonicalizes and validates recipient address format.
func normalizeEmail(email string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(email))
	if trimmed == "" {
		return "", fmt.Errorf("%w: email is required", domain.ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(trimmed); err != nil {
		return "", fmt.Errorf("%w: invalid email", domain.ErrInvalidInput)
	}
	return trimmed, nil
}

// hashToken stores one-way code fingerprints instead of raw secrets.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(token)))
	return hex.EncodeToString(sum[:])
}

// randomHex returns a cryptographically random hex token.
func randomHex(bytesLen int) string {
	raw := make([]byte, bytesLen)
	_, _ = rand.Read(raw)
	return hex.EncodeToString(raw)
}

func newSessionID() string {
	return randomHex(32)
}

// randomDigits returns a zero-padded random numeric code.
func randomDigits(size int) string {
	if size <= 0 {
		size = 6
	}
	max := 1
	for i := 0; i < size; i++ {
		max *= 10
	}
	nRaw := make([]byte, 8)
	_, _ = rand.Read(nRaw)
	n := int(nRaw[0])<<24 | int(nRaw[1])<<16 | int(nRaw[2])<<8 | int(nRaw[3])
	if n < 0 {
		n = -n
	}
	value := n % max
	return fmt.Sprintf("%0*d", size, value)
}

// maskSendLatency pads rejected code-request paths with a randomized
// delay inside the configured bounds so response timing does not
// separate authorized recipients from strangers.
func (s *Service) maskSendLatency(ctx context.Context) {
	min, max := s.sendLatencyBounds()
	s.sleepFn(ctx, domain.JitterBetween(min, max))
}

// checkLockout rejects the request up front when the identifier is
// inside an active lockout. A degraded rate-limit store fails open:
// the outage is logged and audited, the credential check proceeds.
func (s *Service) checkLockout(ctx context.Context, key string, shareID *uuid.UUID, ip string) error {
	now := s.nowFn()
	entry, err := s.rateLimits.CheckLockout(ctx, key, now)
	if err != nil {
		s.rateLimitDegraded(ctx, shareID, ip, err)
		return nil
	}
	if entry.Limited(now) {
		s.recordSecurityEvent(ctx, eventLockoutRejected, domain.SeverityCritical, shareID, ip, map[string]any{
			"identifier":          key,
			"retry_after_seconds": entry.RetryAfterSeconds(now),
		}, true)
		return domain.NewRateLimitError(entry.RetryAfterSeconds(now))
	}
	return nil
}

// failCredential charges one failed attempt against the identifier,
// audits it and translates the outcome into the caller-facing error: a
// plain denial, or a rate-limit rejection when this attempt crossed
// the threshold.
func (s *Service) failCredential(ctx context.Context, key string, shareID *uuid.UUID, ip, eventType, reason string) error {
	now := s.nowFn()
	entry, err := s.rateLimits.RecordFailure(ctx, key, now, s.maxAttempts(), s.attemptWindow())
	if err != nil {
		s.rateLimitDegraded(ctx, shareID, ip, err)
		s.recordSecurityEvent(ctx, eventType, domain.SeverityWarning, shareID, ip, map[string]any{
			"identifier": key,
			"reason":     reason,
		}, false)
		return domain.ErrAccessDenied
	}

	severity := domain.SeverityWarning
	if entry.Count >= s.maxAttempts() {
		severity = domain.SeverityCritical
	}
	s.recordSecurityEvent(ctx, eventType, severity, shareID, ip, map[string]any{
		"identifier": key,
		"reason":     reason,
		"attempts":   entry.Count,
	}, false)

	if entry.Limited(now) {
		s.recordSecurityEvent(ctx, eventLockoutTriggered, domain.SeverityCritical, shareID, ip, map[string]any{
			"identifier":          key,
			"attempts":            entry.Count,
			"retry_after_seconds": entry.RetryAfterSeconds(now),
		}, true)
		return domain.NewRateLimitError(entry.RetryAfterSeconds(now))
	}
	return domain.ErrAccessDenied
}

func (s *Service) rateLimitDegraded(ctx context.Context, shareID *uuid.UUID, ip string, cause error) {
	slog.Default().WarnContext(ctx, "rate-limit store unavailable, failing open",
		"service", "Share-Access-Service",
		"module", "share-access",
		"layer", "application",
		"operation", "rate_limit",
		"outcome", "degraded",
		"error", cause,
	)
	s.recordSecurityEvent(ctx, eventRateLimitDegraded, domain.SeverityWarning, shareID, ip, map[string]any{
		"error": cause.Error(),
	}, false)
}

// grantAccess establishes the authenticated state after a successful
// credential check: a server-side session (reusing the caller's cookie
// session when it is still alive) plus a signed share capability token.
func (s *Service) grantAccess(ctx context.Context, reqCtx RequestContext, share domain.Share) (VerifyResult, error) {
	now := s.nowFn()

	sessionID := reqCtx.SessionID()
	created := false
	if sessionID == "" {
		sessionID = newSessionID()
		created = true
	}
	if err := s.sessions.Authorize(ctx, sessionID, share.ShareID.String(), now); err != nil {
		if errors.Is(err, domain.ErrSessionExpired) && !created {
			// Stale cookie past its absolute cap; mint a fresh session.
			sessionID = newSessionID()
			created = true
			err = s.sessions.Authorize(ctx, sessionID, share.ShareID.String(), now)
		}
		if err != nil {
			return VerifyResult{}, fmt.Errorf("%w: authorize session: %v", domain.ErrUnavailable, err)
		}
	}

	var expiresAt time.Time
	var expiresIn int64
	if ttl := s.shareTokenTTL(); ttl > 0 {
		expiresAt = now.Add(ttl)
		expiresIn = int64(ttl.Seconds())
	}
	token, err := s.tokenSigner.SignShareToken(ports.ShareTokenClaims{
		ShareID:     share.ShareID,
		Permissions: share.Permissions,
		Guest:       share.Guest,
		IssuedAt:    now,
		ExpiresAt:   expiresAt,
	})
	if err != nil {
		return VerifyResult{}, fmt.Errorf("sign share token: %w", err)
	}

	return VerifyResult{
		SessionID:      sessionID,
		SessionCreated: created,
		ShareToken:     token,
		ExpiresIn:      expiresIn,
		Permissions:    permissionStrings(share.Permissions),
		Guest:          share.Guest,
	}, nil
}
