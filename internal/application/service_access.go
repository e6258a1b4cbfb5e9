package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/clipstage/share-access-service/internal/domain"
	"github.com/clipstage/share-access-service/internal/ports"
)

const otpAckMessage = "If that address is authorized for this share, a code is on its way."

// VerifyPassword checks a supplied passcode against the share's stored
// credential. The lockout guard runs before the credential is touched;
// unknown, expired and revoked shares charge the guard exactly like a
// wrong passcode so none of them can be told apart from outside.
func (s *Service) VerifyPassword(ctx context.Context, reqCtx RequestContext, shareID uuid.UUID, passcode string) (VerifyResult, error) {
	if err := domain.ValidateSharePasscode(passcode); err != nil {
		return VerifyResult{}, err
	}

	key := s.credentialKey(reqCtx.ClientIP, shareID)
	if err := s.checkLockout(ctx, key, &shareID, reqCtx.ClientIP); err != nil {
		return VerifyResult{}, err
	}

	share, err := s.loadUsableShare(ctx, shareID)
	if err != nil {
		if errors.Is(err, domain.ErrAccessDenied) {
			return VerifyResult{}, s.failCredential(ctx, key, &shareID, reqCtx.ClientIP, eventPasswordFailed, "unknown_share")
		}
		return VerifyResult{}, err
	}

	// Open shares need no credential at all.
	if share.AuthMode == domain.AuthModeNone {
		result, err := s.grantAccess(ctx, reqCtx, share)
		if err != nil {
			return VerifyResult{}, err
		}
		s.recordSecurityEvent(ctx, eventPasswordVerified, domain.SeverityInfo, &shareID, reqCtx.ClientIP, map[string]any{
			"auth_mode": string(share.AuthMode),
		}, false)
		return result, nil
	}

	if !share.AuthMode.RequiresPasscode() {
		return VerifyResult{}, s.failCredential(ctx, key, &shareID, reqCtx.ClientIP, eventPasswordFailed, "passcode_not_enabled")
	}
	if len(share.PasscodeCiphertext) == 0 {
		return VerifyResult{}, fmt.Errorf("%w: share has passcode auth but no stored passcode", domain.ErrConfiguration)
	}

	stored, err := s.cipher.Decrypt(share.PasscodeCiphertext)
	if err != nil {
		return VerifyResult{}, fmt.Errorf("%w: decrypt stored passcode: %v", domain.ErrConfiguration, err)
	}

	if !domain.ConstantTimeEqual([]byte(stored), []byte(passcode)) {
		return VerifyResult{}, s.failCredential(ctx, key, &shareID, reqCtx.ClientIP, eventPasswordFailed, "passcode_mismatch")
	}

	if err := s.rateLimits.Clear(ctx, key); err != nil {
		s.rateLimitDegraded(ctx, &shareID, reqCtx.ClientIP, err)
	}

	result, err := s.grantAccess(ctx, reqCtx, share)
	if err != nil {
		return VerifyResult{}, err
	}
	s.recordSecurityEvent(ctx, eventPasswordVerified, domain.SeverityInfo, &shareID, reqCtx.ClientIP, map[string]any{
		"auth_mode":       string(share.AuthMode),
		"session_created": result.SessionCreated,
	}, false)
	return result, nil
}

// RequestOTP issues a one-time code to an authorized recipient. The
// acknowledgement is identical for authorized and unauthorized
// addresses, and rejected paths sleep for a randomized interval so
// timing does not betray the recipient list either.
func (s *Service) RequestOTP(ctx context.Context, reqCtx RequestContext, shareID uuid.UUID, email string) (OTPRequestAck, error) {
	ack := OTPRequestAck{Message: otpAckMessage}

	recipient, err := normalizeEmail(email)
	if err != nil {
		return OTPRequestAck{}, err
	}

	key := s.recipientKey(reqCtx.ClientIP, shareID, recipient)
	if err := s.checkLockout(ctx, key, &shareID, reqCtx.ClientIP); err != nil {
		return OTPRequestAck{}, err
	}

	share, err := s.loadUsableShare(ctx, shareID)
	if err != nil {
		if errors.Is(err, domain.ErrAccessDenied) {
			s.maskSendLatency(ctx)
			s.recordSecurityEvent(ctx, eventOTPRequested, domain.SeverityInfo, &shareID, reqCtx.ClientIP, map[string]any{
				"authorized": false,
				"reason":     "unknown_share",
			}, false)
			return ack, nil
		}
		return OTPRequestAck{}, err
	}

	if !share.AuthMode.AllowsOTP() {
		s.maskSendLatency(ctx)
		s.recordSecurityEvent(ctx, eventOTPRequested, domain.SeverityInfo, &shareID, reqCtx.ClientIP, map[string]any{
			"authorized": false,
			"reason":     "otp_not_enabled",
		}, false)
		return ack, nil
	}

	authorized, err := s.shares.IsRecipient(ctx, shareID, recipient)
	if err != nil {
		return OTPRequestAck{}, fmt.Errorf("%w: check recipient: %v", domain.ErrUnavailable, err)
	}
	if !authorized {
		s.maskSendLatency(ctx)
		s.recordSecurityEvent(ctx, eventOTPRequested, domain.SeverityInfo, &shareID, reqCtx.ClientIP, map[string]any{
			"authorized": false,
			"reason":     "recipient_not_listed",
		}, false)
		return ack, nil
	}

	now := s.nowFn()
	code := randomDigits(s.otpLength())
	if err := s.codes.Put(ctx, s.codeKey(shareID, recipient), ports.StoredCode{
		CodeHash:          hashToken(code),
		AttemptsRemaining: s.otpMaxAttempts(),
		ExpiresAt:         now.Add(s.otpTTL()),
	}, s.otpTTL()); err != nil {
		return OTPRequestAck{}, fmt.Errorf("%w: store code: %v", domain.ErrUnavailable, err)
	}

	payload, _ := json.Marshal(map[string]any{
		"share_id":        shareID,
		"project_id":      share.ProjectID,
		"recipient":       recipient,
		"code":            code,
		"expires_minutes": int(s.otpTTL().Minutes()),
		"requested_at":    now,
	})
	if err := s.outbox.Enqueue(ctx, ports.OutboxEvent{
		EventID:      uuid.New(),
		EventType:    eventOTPDispatch,
		PartitionKey: shareID.String(),
		Payload:      payload,
		OccurredAt:   now,
	}); err != nil {
		return OTPRequestAck{}, fmt.Errorf("%w: enqueue code dispatch: %v", domain.ErrUnavailable, err)
	}

	s.recordSecurityEvent(ctx, eventOTPRequested, domain.SeverityInfo, &shareID, reqCtx.ClientIP, map[string]any{
		"authorized": true,
	}, false)
	return ack, nil
}

// VerifyOTP redeems an emailed code. Codes are single use with a small
// per-code attempt budget on top of the shared lockout guard.
func (s *Service) VerifyOTP(ctx context.Context, reqCtx RequestContext, shareID uuid.UUID, email, code string) (VerifyResult, error) {
	recipient, err := normalizeEmail(email)
	if err != nil {
		return VerifyResult{}, err
	}
	if err := domain.ValidateOTPCode(code); err != nil {
		return VerifyResult{}, err
	}

	key := s.recipientKey(reqCtx.ClientIP, shareID, recipient)
	if err := s.checkLockout(ctx, key, &shareID, reqCtx.ClientIP); err != nil {
		return VerifyResult{}, err
	}

	share, err := s.loadUsableShare(ctx, shareID)
	if err != nil {
		if errors.Is(err, domain.ErrAccessDenied) {
			return VerifyResult{}, s.failCredential(ctx, key, &shareID, reqCtx.ClientIP, eventOTPFailed, "unknown_share")
		}
		return VerifyResult{}, err
	}
	if !share.AuthMode.AllowsOTP() {
		return VerifyResult{}, s.failCredential(ctx, key, &shareID, reqCtx.ClientIP, eventOTPFailed, "otp_not_enabled")
	}

	codeKey := s.codeKey(shareID, recipient)
	stored, err := s.codes.Get(ctx, codeKey)
	if err != nil {
		return VerifyResult{}, fmt.Errorf("%w: load code: %v", domain.ErrUnavailable, err)
	}
	if stored == nil {
		return VerifyResult{}, s.failCredential(ctx, key, &shareID, reqCtx.ClientIP, eventOTPFailed, "no_active_code")
	}

	now := s.nowFn()
	if !stored.ExpiresAt.After(now) {
		_ = s.codes.Consume(ctx, codeKey)
		return VerifyResult{}, s.failCredential(ctx, key, &shareID, reqCtx.ClientIP, eventOTPFailed, "code_expired")
	}

	if !domain.ConstantTimeEqual([]byte(hashToken(code)), []byte(stored.CodeHash)) {
		if _, decErr := s.codes.DecrementAttempts(ctx, codeKey, *stored, now); decErr != nil {
			slog.Default().WarnContext(ctx, "failed to decrement code attempts",
				"service", "Share-Access-Service",
				"module", "share-access",
				"layer", "application",
				"operation", "verify_otp",
				"outcome", "degraded",
				"error", decErr,
			)
		}
		return VerifyResult{}, s.failCredential(ctx, key, &shareID, reqCtx.ClientIP, eventOTPFailed, "code_mismatch")
	}

	if err := s.codes.Consume(ctx, codeKey); err != nil {
		slog.Default().WarnContext(ctx, "failed to consume verified code",
			"service", "Share-Access-Service",
			"module", "share-access",
			"layer", "application",
			"operation", "verify_otp",
			"outcome", "degraded",
			"error", err,
		)
	}
	if err := s.rateLimits.Clear(ctx, key); err != nil {
		s.rateLimitDegraded(ctx, &shareID, reqCtx.ClientIP, err)
	}

	result, err := s.grantAccess(ctx, reqCtx, share)
	if err != nil {
		return VerifyResult{}, err
	}
	s.recordSecurityEvent(ctx, eventOTPVerified, domain.SeverityInfo, &shareID, reqCtx.ClientIP, map[string]any{
		"session_created": result.SessionCreated,
	}, false)
	return result, nil
}

// GetAuthStatus reports a share's authentication requirements and
// whether the caller already clears them.
func (s *Service) GetAuthStatus(ctx context.Context, reqCtx RequestContext, shareID uuid.UUID) (AuthStatus, error) {
	share, err := s.loadUsableShare(ctx, shareID)
	if err != nil {
		return AuthStatus{}, err
	}

	status := AuthStatus{
		ShareID:      share.ShareID,
		RequiresAuth: share.AuthMode != domain.AuthModeNone,
		AuthMode:     share.AuthMode,
	}
	decision := s.Authorize(ctx, reqCtx, share)
	if decision.Allowed {
		status.Authenticated = true
		status.Method = decision.Source
		status.Permissions = permissionStrings(decision.Permissions)
		status.Guest = decision.Guest
	}
	return status, nil
}

// Authorize resolves the caller's standing toward a share from every
// acceptable source, strongest first: a platform staff token, a share
// capability token, the viewer session cookie, and finally the share
// being open. A session hit slides the session's inactivity window.
func (s *Service) Authorize(ctx context.Context, reqCtx RequestContext, share domain.Share) AccessDecision {
	denied := AccessDecision{ShareID: share.ShareID}

	if bearer := strings.TrimSpace(reqCtx.BearerToken); bearer != "" {
		if staff, err := s.tokenSigner.ParseStaffToken(bearer); err == nil {
			return AccessDecision{
				Allowed:     true,
				Source:      "staff",
				ShareID:     share.ShareID,
				Permissions: allPermissions(),
				StaffRole:   staff.Role,
			}
		}
		if claims, err := s.tokenSigner.ParseShareToken(bearer); err == nil && claims.ShareID == share.ShareID {
			return AccessDecision{
				Allowed:     true,
				Source:      "share_token",
				ShareID:     share.ShareID,
				Permissions: claims.Permissions,
				Guest:       claims.Guest,
			}
		}
	}

	if sessionID := reqCtx.SessionID(); sessionID != "" {
		ok, err := s.sessions.IsAuthorized(ctx, sessionID, share.ShareID.String())
		if err != nil {
			slog.Default().WarnContext(ctx, "session store unavailable, treating session as absent",
				"service", "Share-Access-Service",
				"module", "share-access",
				"layer", "application",
				"operation", "authorize",
				"outcome", "degraded",
				"error", err,
			)
		} else if ok {
			if err := s.sessions.Refresh(ctx, sessionID, s.nowFn()); err == nil {
				return AccessDecision{
					Allowed:     true,
					Source:      "session",
					SessionID:   sessionID,
					ShareID:     share.ShareID,
					Permissions: share.Permissions,
					Guest:       share.Guest,
				}
			}
		}
	}

	if share.AuthMode == domain.AuthModeNone {
		return AccessDecision{
			Allowed:     true,
			Source:      "open",
			ShareID:     share.ShareID,
			Permissions: share.Permissions,
			Guest:       share.Guest,
		}
	}

	return denied
}

// RevokeCurrentSession ends the caller's viewer session. Revoking an
// absent or already-dead session is a no-op so logout stays idempotent.
func (s *Service) RevokeCurrentSession(ctx context.Context, reqCtx RequestContext) error {
	sessionID := reqCtx.SessionID()
	if sessionID == "" {
		return nil
	}
	if err := s.sessions.Revoke(ctx, sessionID); err != nil {
		return fmt.Errorf("%w: revoke session: %v", domain.ErrUnavailable, err)
	}
	s.recordSecurityEvent(ctx, eventSessionRevoked, domain.SeverityInfo, nil, reqCtx.ClientIP, nil, false)
	return nil
}

func allPermissions() []domain.Permission {
	return []domain.Permission{domain.PermissionView, domain.PermissionComment, domain.PermissionDownload}
}
