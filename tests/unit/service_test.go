package unit

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/clipstage/share-access-service/internal/application"
	"github.com/clipstage/share-access-service/internal/domain"
	"github.com/clipstage/share-access-service/internal/ports"
)

const testClientIP = "203.0.113.7"

func TestVerifyPasswordGrantsSessionAndToken(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	share := f.addPasswordShare(t, "rough-cut-42", domain.PermissionView, domain.PermissionComment)

	res, err := f.service.VerifyPassword(ctx, viewerContext(), share.ShareID, "rough-cut-42")
	if err != nil {
		t.Fatalf("verify password failed: %v", err)
	}
	if res.SessionID == "" || !res.SessionCreated {
		t.Fatalf("expected a fresh session, got %+v", res)
	}
	if res.ShareToken == "" {
		t.Fatalf("expected a share token")
	}
	if res.ExpiresIn <= 0 {
		t.Fatalf("expected token expiry, got %d", res.ExpiresIn)
	}
	if len(res.Permissions) != 2 || res.Permissions[0] != "view" || res.Permissions[1] != "comment" {
		t.Fatalf("unexpected permissions: %v", res.Permissions)
	}

	ok, err := f.sessions.IsAuthorized(ctx, res.SessionID, share.ShareID.String())
	if err != nil || !ok {
		t.Fatalf("expected session authorized for share, ok=%v err=%v", ok, err)
	}

	claims, ok := f.signer.shareTokens[res.ShareToken]
	if !ok {
		t.Fatalf("expected signed share token to be recorded")
	}
	if claims.ShareID != share.ShareID {
		t.Fatalf("token bound to wrong share: %s", claims.ShareID)
	}
	if len(f.events.ofType("share.password.verified")) != 1 {
		t.Fatalf("expected one verified audit event")
	}
}

func TestVerifyPasswordWrongPasscodeDenied(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	share := f.addPasswordShare(t, "rough-cut-42", domain.PermissionView)

	_, err := f.service.VerifyPassword(ctx, viewerContext(), share.ShareID, "not-the-passcode")
	if !errors.Is(err, domain.ErrAccessDenied) {
		t.Fatalf("expected access denied, got %v", err)
	}

	failed := f.events.ofType("share.password.failed")
	if len(failed) != 1 {
		t.Fatalf("expected one failure event, got %d", len(failed))
	}
	if failed[0].Severity != domain.SeverityWarning {
		t.Fatalf("expected warning severity below threshold, got %s", failed[0].Severity)
	}
	if failed[0].IPAddress != testClientIP {
		t.Fatalf("expected client ip on audit row, got %q", failed[0].IPAddress)
	}
}

func TestVerifyPasswordLockoutAfterRepeatedFailures(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	share := f.addPasswordShare(t, "correct-horse", domain.PermissionView)

	for i := 0; i < 4; i++ {
		if _, err := f.service.VerifyPassword(ctx, viewerContext(), share.ShareID, "wrong-guess"); !errors.Is(err, domain.ErrAccessDenied) {
			t.Fatalf("attempt %d: expected access denied, got %v", i+1, err)
		}
	}

	_, err := f.service.VerifyPassword(ctx, viewerContext(), share.ShareID, "wrong-guess")
	var rateErr *domain.RateLimitError
	if !errors.As(err, &rateErr) {
		t.Fatalf("expected rate limit error on fifth failure, got %v", err)
	}
	if rateErr.RetryAfterSeconds != 900 {
		t.Fatalf("expected 900s retry window, got %d", rateErr.RetryAfterSeconds)
	}
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected rate limited sentinel in error chain")
	}

	// The right passcode is refused while the lockout stands.
	_, err = f.service.VerifyPassword(ctx, viewerContext(), share.ShareID, "correct-horse")
	rateErr = nil
	if !errors.As(err, &rateErr) {
		t.Fatalf("expected lockout to block the correct passcode, got %v", err)
	}
	if rateErr.RetryAfterSeconds <= 0 || rateErr.RetryAfterSeconds > 900 {
		t.Fatalf("unexpected retry interval: %d", rateErr.RetryAfterSeconds)
	}

	failed := f.events.ofType("share.password.failed")
	if len(failed) != 5 {
		t.Fatalf("expected five failure events, got %d", len(failed))
	}
	if failed[4].Severity != domain.SeverityCritical {
		t.Fatalf("expected threshold failure to escalate, got %s", failed[4].Severity)
	}
	if len(f.events.ofType("share.lockout.triggered")) != 1 {
		t.Fatalf("expected one lockout trigger event")
	}
	rejected := f.events.ofType("share.lockout.rejected")
	if len(rejected) != 1 || !rejected[0].WasBlocked {
		t.Fatalf("expected a blocked lockout rejection event, got %+v", rejected)
	}
}

func TestVerifyPasswordUnknownShareLooksLikeWrongPasscode(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	unknown := uuid.New()

	_, err := f.service.VerifyPassword(ctx, viewerContext(), unknown, "whatever-1")
	if !errors.Is(err, domain.ErrAccessDenied) {
		t.Fatalf("expected access denied for unknown share, got %v", err)
	}
	if errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("not-found must never leak to callers")
	}

	// Unknown shares charge the same counter as wrong passcodes.
	for i := 0; i < 4; i++ {
		_, err = f.service.VerifyPassword(ctx, viewerContext(), unknown, "whatever-1")
	}
	var rateErr *domain.RateLimitError
	if !errors.As(err, &rateErr) {
		t.Fatalf("expected unknown share probes to hit the lockout, got %v", err)
	}
}

func TestVerifyPasswordExpiredOrRevokedShareDenied(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	past := time.Now().UTC().Add(-time.Hour)
	sealed, _ := f.cipher.Encrypt("final-cut-9")

	expired := domain.Share{
		ShareID:            uuid.New(),
		ProjectID:          uuid.New(),
		AuthMode:           domain.AuthModePassword,
		PasscodeCiphertext: sealed,
		Permissions:        []domain.Permission{domain.PermissionView},
		ExpiresAt:          &past,
	}
	f.shares.put(expired)

	revoked := domain.Share{
		ShareID:            uuid.New(),
		ProjectID:          uuid.New(),
		AuthMode:           domain.AuthModePassword,
		PasscodeCiphertext: sealed,
		Permissions:        []domain.Permission{domain.PermissionView},
		RevokedAt:          &past,
	}
	f.shares.put(revoked)

	if _, err := f.service.VerifyPassword(ctx, viewerContext(), expired.ShareID, "final-cut-9"); !errors.Is(err, domain.ErrAccessDenied) {
		t.Fatalf("expected expired share to deny even the right passcode, got %v", err)
	}
	if _, err := f.service.VerifyPassword(ctx, viewerContext(), revoked.ShareID, "final-cut-9"); !errors.Is(err, domain.ErrAccessDenied) {
		t.Fatalf("expected revoked share to deny even the right passcode, got %v", err)
	}
}

func TestVerifyPasswordOpenShareNeedsNoCredential(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	share := f.addOpenShare(t, domain.PermissionView)

	res, err := f.service.VerifyPassword(ctx, viewerContext(), share.ShareID, "ignored")
	if err != nil {
		t.Fatalf("open share verify failed: %v", err)
	}
	if res.ShareToken == "" || res.SessionID == "" {
		t.Fatalf("expected full grant on open share, got %+v", res)
	}
	if len(f.events.ofType("share.password.failed")) != 0 {
		t.Fatalf("open share must not record credential failures")
	}
	if len(f.limits.counts) != 0 {
		t.Fatalf("open share must not charge the failure counter")
	}
}

func TestVerifyPasswordReusesLiveSession(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	share := f.addPasswordShare(t, "rough-cut-42", domain.PermissionView)

	first, err := f.service.VerifyPassword(ctx, viewerContext(), share.ShareID, "rough-cut-42")
	if err != nil {
		t.Fatalf("first verify failed: %v", err)
	}

	second, err := f.service.VerifyPassword(ctx, sessionContext(first.SessionID), share.ShareID, "rough-cut-42")
	if err != nil {
		t.Fatalf("second verify failed: %v", err)
	}
	if second.SessionCreated {
		t.Fatalf("expected cookie session to be reused")
	}
	if second.SessionID != first.SessionID {
		t.Fatalf("expected same session id, got %s and %s", first.SessionID, second.SessionID)
	}
}

func TestVerifyPasswordReplacesExpiredCookieSession(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	share := f.addPasswordShare(t, "rough-cut-42", domain.PermissionView)
	f.sessions.expired["stale-session"] = true

	res, err := f.service.VerifyPassword(ctx, sessionContext("stale-session"), share.ShareID, "rough-cut-42")
	if err != nil {
		t.Fatalf("verify with stale cookie failed: %v", err)
	}
	if !res.SessionCreated || res.SessionID == "stale-session" {
		t.Fatalf("expected a replacement session, got %+v", res)
	}
}

func TestVerifyPasswordFailsOpenOnRateLimitOutage(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	share := f.addPasswordShare(t, "rough-cut-42", domain.PermissionView)
	f.limits.checkErr = errors.New("store down")

	res, err := f.service.VerifyPassword(ctx, viewerContext(), share.ShareID, "rough-cut-42")
	if err != nil {
		t.Fatalf("expected verify to proceed during outage, got %v", err)
	}
	if res.ShareToken == "" {
		t.Fatalf("expected grant despite rate-limit outage")
	}
	if len(f.events.ofType("share.ratelimit.degraded")) == 0 {
		t.Fatalf("expected degraded-store audit event")
	}
}

func TestRequestOTPStoresCodeAndQueuesDispatch(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	share := f.addOTPShare(t, "client@studio.example")

	ack, err := f.service.RequestOTP(ctx, viewerContext(), share.ShareID, " Client@Studio.example ")
	if err != nil {
		t.Fatalf("request otp failed: %v", err)
	}
	if ack.Message == "" {
		t.Fatalf("expected acknowledgement message")
	}

	dispatches := f.outbox.ofType("share.otp.dispatch")
	if len(dispatches) != 1 {
		t.Fatalf("expected one dispatch event, got %d", len(dispatches))
	}
	if dispatches[0].PartitionKey != share.ShareID.String() {
		t.Fatalf("expected dispatch keyed by share, got %s", dispatches[0].PartitionKey)
	}

	var payload map[string]any
	if err := json.Unmarshal(dispatches[0].Payload, &payload); err != nil {
		t.Fatalf("invalid dispatch payload: %v", err)
	}
	code, _ := payload["code"].(string)
	if len(code) != 6 {
		t.Fatalf("expected six digit code in dispatch, got %q", code)
	}
	if payload["recipient"] != "client@studio.example" {
		t.Fatalf("expected normalized recipient, got %v", payload["recipient"])
	}

	if len(f.codes.items) != 1 {
		t.Fatalf("expected one stored code, got %d", len(f.codes.items))
	}
	for _, stored := range f.codes.items {
		if stored.CodeHash == code {
			t.Fatalf("code must be stored hashed, not raw")
		}
		if stored.AttemptsRemaining != 3 {
			t.Fatalf("expected attempt budget of 3, got %d", stored.AttemptsRemaining)
		}
	}
}

func TestRequestOTPRejectionsShareOneAck(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	share := f.addOTPShare(t, "listed@studio.example")
	passwordShare := f.addPasswordShare(t, "pass-1", domain.PermissionView)

	stranger, err := f.service.RequestOTP(ctx, viewerContext(), share.ShareID, "stranger@elsewhere.example")
	if err != nil {
		t.Fatalf("stranger request errored: %v", err)
	}
	unknownShare, err := f.service.RequestOTP(ctx, viewerContext(), uuid.New(), "listed@studio.example")
	if err != nil {
		t.Fatalf("unknown share request errored: %v", err)
	}
	wrongMode, err := f.service.RequestOTP(ctx, viewerContext(), passwordShare.ShareID, "listed@studio.example")
	if err != nil {
		t.Fatalf("wrong mode request errored: %v", err)
	}
	listed, err := f.service.RequestOTP(ctx, viewerContext(), share.ShareID, "listed@studio.example")
	if err != nil {
		t.Fatalf("listed request errored: %v", err)
	}

	if stranger.Message != listed.Message || unknownShare.Message != listed.Message || wrongMode.Message != listed.Message {
		t.Fatalf("acknowledgements must be identical for all callers")
	}
	if got := len(f.outbox.ofType("share.otp.dispatch")); got != 1 {
		t.Fatalf("expected exactly one dispatch for the listed recipient, got %d", got)
	}
	if len(f.codes.items) != 1 {
		t.Fatalf("expected a code only for the listed recipient, got %d", len(f.codes.items))
	}
}

func TestVerifyOTPRedeemsCodeOnce(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	share := f.addOTPShare(t, "client@studio.example")

	if _, err := f.service.RequestOTP(ctx, viewerContext(), share.ShareID, "client@studio.example"); err != nil {
		t.Fatalf("request otp failed: %v", err)
	}
	code := f.dispatchedCode(t)

	res, err := f.service.VerifyOTP(ctx, viewerContext(), share.ShareID, "client@studio.example", code)
	if err != nil {
		t.Fatalf("verify otp failed: %v", err)
	}
	if res.SessionID == "" || res.ShareToken == "" {
		t.Fatalf("expected full grant, got %+v", res)
	}
	if len(f.events.ofType("share.otp.verified")) != 1 {
		t.Fatalf("expected one verified event")
	}

	// Codes are single use.
	if _, err := f.service.VerifyOTP(ctx, viewerContext(), share.ShareID, "client@studio.example", code); !errors.Is(err, domain.ErrAccessDenied) {
		t.Fatalf("expected replayed code to be rejected, got %v", err)
	}
}

func TestVerifyOTPWrongCodeSpendsAttempts(t *testing.T) {
	t.Parallel()

	cfg := defaultTestConfig()
	cfg.MaxAttempts = 10

	f := newFixtureWithConfig(cfg)
	ctx := context.Background()
	share := f.addOTPShare(t, "client@studio.example")

	if _, err := f.service.RequestOTP(ctx, viewerContext(), share.ShareID, "client@studio.example"); err != nil {
		t.Fatalf("request otp failed: %v", err)
	}
	code := f.dispatchedCode(t)
	wrong := "000000"
	if wrong == code {
		wrong = "999999"
	}

	for i := 0; i < 3; i++ {
		if _, err := f.service.VerifyOTP(ctx, viewerContext(), share.ShareID, "client@studio.example", wrong); !errors.Is(err, domain.ErrAccessDenied) {
			t.Fatalf("wrong attempt %d: expected access denied, got %v", i+1, err)
		}
	}

	// Budget exhausted; even the genuine code no longer redeems.
	if _, err := f.service.VerifyOTP(ctx, viewerContext(), share.ShareID, "client@studio.example", code); !errors.Is(err, domain.ErrAccessDenied) {
		t.Fatalf("expected exhausted code to be rejected, got %v", err)
	}
	if len(f.codes.items) != 0 {
		t.Fatalf("expected code to be purged after exhaustion")
	}
}

func TestVerifyOTPExpiredCodeRejected(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	share := f.addOTPShare(t, "client@studio.example")

	if _, err := f.service.RequestOTP(ctx, viewerContext(), share.ShareID, "client@studio.example"); err != nil {
		t.Fatalf("request otp failed: %v", err)
	}
	code := f.dispatchedCode(t)

	for key, stored := range f.codes.items {
		stored.ExpiresAt = time.Now().UTC().Add(-time.Minute)
		f.codes.items[key] = stored
	}

	if _, err := f.service.VerifyOTP(ctx, viewerContext(), share.ShareID, "client@studio.example", code); !errors.Is(err, domain.ErrAccessDenied) {
		t.Fatalf("expected expired code to be rejected, got %v", err)
	}
	if len(f.codes.items) != 0 {
		t.Fatalf("expected expired code to be consumed on rejection")
	}
}

func TestVerifyOTPRequiresOTPMode(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	share := f.addPasswordShare(t, "pass-1", domain.PermissionView)

	if _, err := f.service.VerifyOTP(ctx, viewerContext(), share.ShareID, "anyone@studio.example", "123456"); !errors.Is(err, domain.ErrAccessDenied) {
		t.Fatalf("expected otp on password share to be denied, got %v", err)
	}
}

func TestAuthorizePrecedence(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	share := f.addPasswordShare(t, "pass-1", domain.PermissionView)

	f.signer.staffTokens["staff-token-1"] = ports.StaffClaims{UserID: uuid.New(), Role: "OWNER"}
	staff := f.service.Authorize(ctx, application.RequestContext{ClientIP: testClientIP, BearerToken: "staff-token-1"}, share)
	if !staff.Allowed || staff.Source != "staff" {
		t.Fatalf("expected staff bypass, got %+v", staff)
	}
	if !staff.Can(domain.PermissionDownload) || staff.StaffRole != "OWNER" {
		t.Fatalf("staff decision should carry full permissions and role, got %+v", staff)
	}

	res, err := f.service.VerifyPassword(ctx, viewerContext(), share.ShareID, "pass-1")
	if err != nil {
		t.Fatalf("verify password failed: %v", err)
	}

	bearer := f.service.Authorize(ctx, application.RequestContext{ClientIP: testClientIP, BearerToken: res.ShareToken}, share)
	if !bearer.Allowed || bearer.Source != "share_token" {
		t.Fatalf("expected share token source, got %+v", bearer)
	}

	session := f.service.Authorize(ctx, sessionContext(res.SessionID), share)
	if !session.Allowed || session.Source != "session" || session.SessionID != res.SessionID {
		t.Fatalf("expected session source, got %+v", session)
	}

	// A token minted for one share unlocks nothing else.
	other := f.addPasswordShare(t, "pass-2", domain.PermissionView)
	cross := f.service.Authorize(ctx, application.RequestContext{ClientIP: testClientIP, BearerToken: res.ShareToken}, other)
	if cross.Allowed {
		t.Fatalf("share token must not unlock a different share")
	}

	open := f.addOpenShare(t, domain.PermissionView)
	anon := f.service.Authorize(ctx, application.RequestContext{ClientIP: testClientIP}, open)
	if !anon.Allowed || anon.Source != "open" {
		t.Fatalf("expected open share to admit anonymous callers, got %+v", anon)
	}

	denied := f.service.Authorize(ctx, application.RequestContext{ClientIP: testClientIP}, share)
	if denied.Allowed {
		t.Fatalf("expected protected share to deny anonymous callers")
	}
}

func TestGetAuthStatusReflectsSession(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	share := f.addPasswordShare(t, "pass-1", domain.PermissionView, domain.PermissionComment)

	before, err := f.service.GetAuthStatus(ctx, viewerContext(), share.ShareID)
	if err != nil {
		t.Fatalf("auth status failed: %v", err)
	}
	if !before.RequiresAuth || before.Authenticated {
		t.Fatalf("expected unauthenticated status, got %+v", before)
	}
	if before.AuthMode != domain.AuthModePassword {
		t.Fatalf("unexpected auth mode: %s", before.AuthMode)
	}

	res, err := f.service.VerifyPassword(ctx, viewerContext(), share.ShareID, "pass-1")
	if err != nil {
		t.Fatalf("verify password failed: %v", err)
	}

	after, err := f.service.GetAuthStatus(ctx, sessionContext(res.SessionID), share.ShareID)
	if err != nil {
		t.Fatalf("auth status failed: %v", err)
	}
	if !after.Authenticated || after.Method != "session" {
		t.Fatalf("expected authenticated session status, got %+v", after)
	}
	if len(after.Permissions) != 2 {
		t.Fatalf("expected share permissions in status, got %v", after.Permissions)
	}

	if _, err := f.service.GetAuthStatus(ctx, viewerContext(), uuid.New()); !errors.Is(err, domain.ErrAccessDenied) {
		t.Fatalf("expected unknown share status to deny, got %v", err)
	}
}

func TestIssueContentTokenOriginalRequiresApproval(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	share := f.addOpenShare(t, domain.PermissionView, domain.PermissionDownload)
	pending := f.addAsset(t, share.ProjectID, domain.ApprovalPending, "720p")

	_, err := f.service.IssueContentToken(ctx, viewerContext(), application.ContentTokenRequest{
		ShareID: share.ShareID.String(),
		AssetID: pending.AssetID.String(),
		Quality: "original",
	})
	if !errors.Is(err, domain.ErrAccessDenied) {
		t.Fatalf("expected unapproved original to be denied, got %v", err)
	}

	denied := f.events.ofType("share.content_token.denied")
	if len(denied) != 1 || !denied[0].WasBlocked {
		t.Fatalf("expected blocked denial event, got %+v", denied)
	}
}

func TestIssueContentTokenPreviewAllowedBeforeApproval(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	share := f.addOpenShare(t, domain.PermissionView, domain.PermissionDownload)
	pending := f.addAsset(t, share.ProjectID, domain.ApprovalPending, "720p")

	res, err := f.service.IssueContentToken(ctx, viewerContext(), application.ContentTokenRequest{
		ShareID: share.ShareID.String(),
		AssetID: pending.AssetID.String(),
		Quality: "720p",
	})
	if err != nil {
		t.Fatalf("preview token failed: %v", err)
	}
	if res.DownloadAllowed {
		t.Fatalf("watermarked preview must never be download eligible")
	}
	if res.Quality != "720p" || res.Token == "" {
		t.Fatalf("unexpected token result: %+v", res)
	}

	claims := f.signer.contentTokens[res.Token]
	if claims.Quality != "720p" || claims.AssetID != pending.AssetID {
		t.Fatalf("token claims not scoped to the request: %+v", claims)
	}
}

func TestIssueContentTokenDownloadPolicy(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	withDownload := f.addOpenShare(t, domain.PermissionView, domain.PermissionDownload)
	approved := f.addAsset(t, withDownload.ProjectID, domain.ApprovalApproved, "720p")

	res, err := f.service.IssueContentToken(ctx, viewerContext(), application.ContentTokenRequest{
		ShareID: withDownload.ShareID.String(),
		AssetID: approved.AssetID.String(),
		Quality: "original",
	})
	if err != nil {
		t.Fatalf("original token failed: %v", err)
	}
	if !res.DownloadAllowed {
		t.Fatalf("expected download eligibility on approved original with download permission")
	}

	// Same asset through a preview rendition is never download eligible.
	preview, err := f.service.IssueContentToken(ctx, viewerContext(), application.ContentTokenRequest{
		ShareID: withDownload.ShareID.String(),
		AssetID: approved.AssetID.String(),
		Quality: "720p",
	})
	if err != nil {
		t.Fatalf("preview token failed: %v", err)
	}
	if preview.DownloadAllowed {
		t.Fatalf("preview renditions must not be download eligible")
	}

	// A view-only share strips download even on the approved original.
	viewOnly := f.addOpenShare(t, domain.PermissionView)
	approved2 := f.addAsset(t, viewOnly.ProjectID, domain.ApprovalApproved)
	res2, err := f.service.IssueContentToken(ctx, viewerContext(), application.ContentTokenRequest{
		ShareID: viewOnly.ShareID.String(),
		AssetID: approved2.AssetID.String(),
		Quality: "original",
	})
	if err != nil {
		t.Fatalf("view-only original token failed: %v", err)
	}
	if res2.DownloadAllowed {
		t.Fatalf("view-only share must not grant download")
	}
}

func TestIssueContentTokenRejectsAssetOutsideShare(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	share := f.addOpenShare(t, domain.PermissionView)
	foreign := f.addAsset(t, uuid.New(), domain.ApprovalApproved)

	_, err := f.service.IssueContentToken(ctx, viewerContext(), application.ContentTokenRequest{
		ShareID: share.ShareID.String(),
		AssetID: foreign.AssetID.String(),
		Quality: "original",
	})
	if !errors.Is(err, domain.ErrAccessDenied) {
		t.Fatalf("expected asset outside the shared project to be denied, got %v", err)
	}
}

func TestIssueContentTokenValidatesRequest(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	share := f.addOpenShare(t, domain.PermissionView)
	asset := f.addAsset(t, share.ProjectID, domain.ApprovalApproved, "720p")

	if _, err := f.service.IssueContentToken(ctx, viewerContext(), application.ContentTokenRequest{
		ShareID: "not-a-uuid",
		AssetID: asset.AssetID.String(),
		Quality: "original",
	}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid share id to be rejected, got %v", err)
	}

	if _, err := f.service.IssueContentToken(ctx, viewerContext(), application.ContentTokenRequest{
		ShareID: share.ShareID.String(),
		AssetID: asset.AssetID.String(),
		Quality: "4k",
	}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected unknown quality to be rejected, got %v", err)
	}

	if _, err := f.service.IssueContentToken(ctx, viewerContext(), application.ContentTokenRequest{
		ShareID: share.ShareID.String(),
		AssetID: uuid.NewString(),
		Quality: "original",
	}); !errors.Is(err, domain.ErrAccessDenied) {
		t.Fatalf("expected unknown asset to be denied, got %v", err)
	}
}

func TestIssueContentTokenRequiresAuthentication(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	share := f.addPasswordShare(t, "pass-1", domain.PermissionView)
	asset := f.addAsset(t, share.ProjectID, domain.ApprovalApproved)

	_, err := f.service.IssueContentToken(ctx, viewerContext(), application.ContentTokenRequest{
		ShareID: share.ShareID.String(),
		AssetID: asset.AssetID.String(),
		Quality: "original",
	})
	if !errors.Is(err, domain.ErrAccessDenied) {
		t.Fatalf("expected anonymous caller to be denied, got %v", err)
	}
	if len(f.events.ofType("share.content_token.denied")) != 1 {
		t.Fatalf("expected denial event")
	}
}

func TestIssueContentTokenMintsSessionForTokenBearer(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	share := f.addPasswordShare(t, "pass-1", domain.PermissionView)
	asset := f.addAsset(t, share.ProjectID, domain.ApprovalApproved)

	res, err := f.service.VerifyPassword(ctx, viewerContext(), share.ShareID, "pass-1")
	if err != nil {
		t.Fatalf("verify password failed: %v", err)
	}

	// Bearer-only caller: no cookie rode along.
	tok, err := f.service.IssueContentToken(ctx, application.RequestContext{ClientIP: testClientIP, BearerToken: res.ShareToken}, application.ContentTokenRequest{
		ShareID: share.ShareID.String(),
		AssetID: asset.AssetID.String(),
		Quality: "original",
	})
	if err != nil {
		t.Fatalf("issue content token failed: %v", err)
	}
	if !tok.SessionCreated || tok.SessionID == "" {
		t.Fatalf("expected a minted binding session, got %+v", tok)
	}
	if tok.SessionID == res.SessionID {
		t.Fatalf("expected a fresh session for the bearer caller")
	}

	ok, err := f.sessions.IsAuthorized(ctx, tok.SessionID, share.ShareID.String())
	if err != nil || !ok {
		t.Fatalf("expected minted session to be authorized, ok=%v err=%v", ok, err)
	}
	claims := f.signer.contentTokens[tok.Token]
	if claims.SessionID != tok.SessionID {
		t.Fatalf("token must be bound to the minted session, got %q", claims.SessionID)
	}
}

func TestValidateContentTokenRequiresLiveSession(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	share := f.addOpenShare(t, domain.PermissionView)
	asset := f.addAsset(t, share.ProjectID, domain.ApprovalApproved)

	tok, err := f.service.IssueContentToken(ctx, viewerContext(), application.ContentTokenRequest{
		ShareID: share.ShareID.String(),
		AssetID: asset.AssetID.String(),
		Quality: "original",
	})
	if err != nil {
		t.Fatalf("issue content token failed: %v", err)
	}

	claims, err := f.service.ValidateContentToken(ctx, tok.Token)
	if err != nil {
		t.Fatalf("validate content token failed: %v", err)
	}
	if claims.AssetID != asset.AssetID || claims.ShareID != share.ShareID {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	if err := f.sessions.Revoke(ctx, tok.SessionID); err != nil {
		t.Fatalf("revoke session failed: %v", err)
	}
	if _, err := f.service.ValidateContentToken(ctx, tok.Token); !errors.Is(err, domain.ErrAccessDenied) {
		t.Fatalf("expected token with dead session to be rejected, got %v", err)
	}

	if _, err := f.service.ValidateContentToken(ctx, "garbage"); !errors.Is(err, domain.ErrAccessDenied) {
		t.Fatalf("expected malformed token to be rejected, got %v", err)
	}
}

func TestRevokeCurrentSessionIsIdempotent(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	if err := f.service.RevokeCurrentSession(ctx, viewerContext()); err != nil {
		t.Fatalf("revoke without cookie should be a no-op, got %v", err)
	}
	if len(f.events.ofType("share.session.revoked")) != 0 {
		t.Fatalf("no-op revoke must not audit")
	}

	share := f.addPasswordShare(t, "pass-1", domain.PermissionView)
	res, err := f.service.VerifyPassword(ctx, viewerContext(), share.ShareID, "pass-1")
	if err != nil {
		t.Fatalf("verify password failed: %v", err)
	}

	if err := f.service.RevokeCurrentSession(ctx, sessionContext(res.SessionID)); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	ok, _ := f.sessions.IsAuthorized(ctx, res.SessionID, share.ShareID.String())
	if ok {
		t.Fatalf("expected session to be gone after revoke")
	}
	if len(f.events.ofType("share.session.revoked")) != 1 {
		t.Fatalf("expected one revocation event")
	}

	// Revoking the dead cookie again stays a no-op.
	if err := f.service.RevokeCurrentSession(ctx, sessionContext(res.SessionID)); err != nil {
		t.Fatalf("second revoke should succeed, got %v", err)
	}
}

func TestListSecurityEventsFilterValidation(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	share := f.addPasswordShare(t, "pass-1", domain.PermissionView)

	if _, err := f.service.VerifyPassword(ctx, viewerContext(), share.ShareID, "wrong"); !errors.Is(err, domain.ErrAccessDenied) {
		t.Fatalf("seed failure errored unexpectedly: %v", err)
	}

	if _, err := f.service.ListSecurityEvents(ctx, application.SecurityEventQuery{Severity: "extreme"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected unknown severity to be rejected, got %v", err)
	}
	if _, err := f.service.ListSecurityEvents(ctx, application.SecurityEventQuery{ShareID: "nope"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected malformed share id to be rejected, got %v", err)
	}

	warnings, err := f.service.ListSecurityEvents(ctx, application.SecurityEventQuery{Severity: "warning"})
	if err != nil {
		t.Fatalf("list warnings failed: %v", err)
	}
	if len(warnings) == 0 {
		t.Fatalf("expected at least one warning event")
	}
	for _, e := range warnings {
		if e.Severity != domain.SeverityWarning {
			t.Fatalf("severity filter leaked %s event", e.Severity)
		}
	}

	byType, err := f.service.ListSecurityEvents(ctx, application.SecurityEventQuery{Type: "share.password.failed", ShareID: share.ShareID.String()})
	if err != nil {
		t.Fatalf("list by type failed: %v", err)
	}
	if len(byType) != 1 {
		t.Fatalf("expected one failure event for the share, got %d", len(byType))
	}
}

func newFixture() *fixture {
	return newFixtureWithConfig(defaultTestConfig())
}

func defaultTestConfig() application.Config {
	return application.Config{
		MaxAttempts:        5,
		AttemptWindow:      15 * time.Minute,
		OTPLength:          6,
		OTPTTL:             10 * time.Minute,
		OTPMaxAttempts:     3,
		SessionIdleTTL:     time.Hour,
		SessionAbsoluteTTL: 24 * time.Hour,
		ShareTokenTTL:      72 * time.Hour,
		ContentTokenTTL:    15 * time.Minute,
		IdentifierSalt:     "unit-test-salt",
		SendLatencyMin:     time.Millisecond,
		SendLatencyMax:     2 * time.Millisecond,
	}
}

func newFixtureWithConfig(cfg application.Config) *fixture {
	shares := &fakeShares{
		byID:       map[uuid.UUID]domain.Share{},
		recipients: map[uuid.UUID]map[string]bool{},
	}
	assets := &fakeAssets{byID: map[uuid.UUID]domain.Asset{}}
	events := &fakeEvents{}
	outbox := &fakeOutbox{}
	limits := &fakeRateLimits{counts: map[string]int64{}, lockUntil: map[string]time.Time{}}
	codes := &fakeCodes{items: map[string]ports.StoredCode{}}
	sessions := &fakeSessions{members: map[string]map[string]bool{}, expired: map[string]bool{}}
	signer := &fakeSigner{
		shareTokens:   map[string]ports.ShareTokenClaims{},
		contentTokens: map[string]ports.ContentTokenClaims{},
		staffTokens:   map[string]ports.StaffClaims{},
	}

	svc := application.NewService(application.Dependencies{
		Config:         cfg,
		Shares:         shares,
		Assets:         assets,
		SecurityEvents: events,
		Outbox:         outbox,
		RateLimits:     limits,
		Codes:          codes,
		Sessions:       sessions,
		Cipher:         fakeCipher{},
		TokenSigner:    signer,
	})

	return &fixture{
		service:  svc,
		shares:   shares,
		assets:   assets,
		events:   events,
		outbox:   outbox,
		limits:   limits,
		codes:    codes,
		sessions: sessions,
		cipher:   fakeCipher{},
		signer:   signer,
	}
}

type fixture struct {
	service  *application.Service
	shares   *fakeShares
	assets   *fakeAssets
	events   *fakeEvents
	outbox   *fakeOutbox
	limits   *fakeRateLimits
	codes    *fakeCodes
	sessions *fakeSessions
	cipher   fakeCipher
	signer   *fakeSigner
}

func (f *fixture) addPasswordShare(t *testing.T, passcode string, perms ...domain.Permission) domain.Share {
	t.Helper()
	sealed, err := f.cipher.Encrypt(passcode)
	if err != nil {
		t.Fatalf("seal passcode: %v", err)
	}
	share := domain.Share{
		ShareID:            uuid.New(),
		ProjectID:          uuid.New(),
		AuthMode:           domain.AuthModePassword,
		PasscodeCiphertext: sealed,
		Permissions:        perms,
		CreatedAt:          time.Now().UTC(),
	}
	f.shares.put(share)
	return share
}

func (f *fixture) addOTPShare(t *testing.T, recipients ...string) domain.Share {
	t.Helper()
	share := domain.Share{
		ShareID:     uuid.New(),
		ProjectID:   uuid.New(),
		AuthMode:    domain.AuthModeOTP,
		Permissions: []domain.Permission{domain.PermissionView, domain.PermissionComment},
		CreatedAt:   time.Now().UTC(),
	}
	f.shares.put(share, recipients...)
	return share
}

func (f *fixture) addOpenShare(t *testing.T, perms ...domain.Permission) domain.Share {
	t.Helper()
	share := domain.Share{
		ShareID:     uuid.New(),
		ProjectID:   uuid.New(),
		AuthMode:    domain.AuthModeNone,
		Permissions: perms,
		Guest:       true,
		CreatedAt:   time.Now().UTC(),
	}
	f.shares.put(share)
	return share
}

func (f *fixture) addAsset(t *testing.T, projectID uuid.UUID, status domain.ApprovalStatus, qualities ...string) domain.Asset {
	t.Helper()
	asset := domain.Asset{
		AssetID:        uuid.New(),
		ProjectID:      projectID,
		FileName:       "hero_v3.mp4",
		ApprovalStatus: status,
		Qualities:      qualities,
		CreatedAt:      time.Now().UTC(),
	}
	f.assets.put(asset)
	return asset
}

// dispatchedCode digs the raw one-time code out of the queued dispatch
// payload, the only place it exists outside the recipient's inbox.
func (f *fixture) dispatchedCode(t *testing.T) string {
	t.Helper()
	dispatches := f.outbox.ofType("share.otp.dispatch")
	if len(dispatches) == 0 {
		t.Fatalf("no dispatch event queued")
	}
	var payload map[string]any
	if err := json.Unmarshal(dispatches[len(dispatches)-1].Payload, &payload); err != nil {
		t.Fatalf("invalid dispatch payload: %v", err)
	}
	code, _ := payload["code"].(string)
	if code == "" {
		t.Fatalf("dispatch payload missing code")
	}
	return code
}

func viewerContext() application.RequestContext {
	return application.RequestContext{ClientIP: testClientIP, Cookies: map[string]string{}}
}

func sessionContext(sessionID string) application.RequestContext {
	return application.RequestContext{
		ClientIP: testClientIP,
		Cookies:  map[string]string{application.SessionCookieName: sessionID},
	}
}

type fakeShares struct {
	mu         sync.Mutex
	byID       map[uuid.UUID]domain.Share
	recipients map[uuid.UUID]map[string]bool
}

func (f *fakeShares) put(share domain.Share, recipients ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[share.ShareID] = share
	if len(recipients) > 0 {
		set := map[string]bool{}
		for _, r := range recipients {
			set[strings.ToLower(r)] = true
		}
		f.recipients[share.ShareID] = set
	}
}

func (f *fakeShares) GetByID(_ context.Context, shareID uuid.UUID) (domain.Share, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	share, ok := f.byID[shareID]
	if !ok {
		return domain.Share{}, domain.ErrNotFound
	}
	return share, nil
}

func (f *fakeShares) IsRecipient(_ context.Context, shareID uuid.UUID, email string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.recipients[shareID][email], nil
}

type fakeAssets struct {
	mu   sync.Mutex
	byID map[uuid.UUID]domain.Asset
}

func (f *fakeAssets) put(asset domain.Asset) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[asset.AssetID] = asset
}

func (f *fakeAssets) GetByID(_ context.Context, assetID uuid.UUID) (domain.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	asset, ok := f.byID[assetID]
	if !ok {
		return domain.Asset{}, domain.ErrNotFound
	}
	return asset, nil
}

type fakeEvents struct {
	mu    sync.Mutex
	items []domain.SecurityEvent
}

func (f *fakeEvents) Insert(_ context.Context, event domain.SecurityEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, event)
	return nil
}

func (f *fakeEvents) List(_ context.Context, filter domain.SecurityEventFilter) ([]domain.SecurityEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.SecurityEvent, 0)
	for _, e := range f.items {
		if filter.Severity != "" && e.Severity != filter.Severity {
			continue
		}
		if filter.Type != "" && e.Type != filter.Type {
			continue
		}
		if filter.ShareID != nil && (e.ShareID == nil || *e.ShareID != *filter.ShareID) {
			continue
		}
		if filter.Since != nil && e.OccurredAt.Before(*filter.Since) {
			continue
		}
		out = append(out, e)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

func (f *fakeEvents) ofType(eventType string) []domain.SecurityEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.SecurityEvent
	for _, e := range f.items {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type fakeOutbox struct {
	mu     sync.Mutex
	events []ports.OutboxEvent
}

func (f *fakeOutbox) Enqueue(_ context.Context, event ports.OutboxEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeOutbox) ClaimUnpublished(context.Context, int, string, time.Time) ([]ports.OutboxRecord, error) {
	return nil, nil
}
func (f *fakeOutbox) MarkPublished(context.Context, uuid.UUID, string, time.Time) error { return nil }
func (f *fakeOutbox) MarkFailed(context.Context, uuid.UUID, string, string, time.Time) error {
	return nil
}
func (f *fakeOutbox) MarkDeadLettered(context.Context, uuid.UUID, string, string, time.Time) error {
	return nil
}

func (f *fakeOutbox) ofType(eventType string) []ports.OutboxEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []ports.OutboxEvent
	for _, e := range f.events {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

type fakeRateLimits struct {
	mu        sync.Mutex
	counts    map[string]int64
	lockUntil map[string]time.Time
	checkErr  error
	recordErr error
}

func (f *fakeRateLimits) CheckLockout(_ context.Context, identifierHash string, now time.Time) (ports.RateLimitEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.checkErr != nil {
		return ports.RateLimitEntry{}, f.checkErr
	}
	entry := ports.RateLimitEntry{IdentifierHash: identifierHash, Count: f.counts[identifierHash]}
	if until, ok := f.lockUntil[identifierHash]; ok && until.After(now) {
		u := until
		entry.LockoutUntil = &u
	}
	return entry, nil
}

func (f *fakeRateLimits) RecordFailure(_ context.Context, identifierHash string, now time.Time, maxAttempts int, window time.Duration) (ports.RateLimitEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recordErr != nil {
		return ports.RateLimitEntry{}, f.recordErr
	}
	f.counts[identifierHash]++
	entry := ports.RateLimitEntry{
		IdentifierHash: identifierHash,
		Count:          f.counts[identifierHash],
		FirstAttemptAt: now,
		LastAttemptAt:  now,
	}
	if f.counts[identifierHash] >= int64(maxAttempts) {
		until := now.Add(window)
		f.lockUntil[identifierHash] = until
		entry.LockoutUntil = &until
	}
	return entry, nil
}

func (f *fakeRateLimits) Clear(_ context.Context, identifierHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.counts, identifierHash)
	delete(f.lockUntil, identifierHash)
	return nil
}

type fakeCodes struct {
	mu    sync.Mutex
	items map[string]ports.StoredCode
}

func (f *fakeCodes) Put(_ context.Context, key string, code ports.StoredCode, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[key] = code
	return nil
}

func (f *fakeCodes) Get(_ context.Context, key string) (*ports.StoredCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	code, ok := f.items[key]
	if !ok {
		return nil, nil
	}
	cp := code
	return &cp, nil
}

func (f *fakeCodes) DecrementAttempts(_ context.Context, key string, code ports.StoredCode, now time.Time) (*ports.StoredCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	code.AttemptsRemaining--
	if code.AttemptsRemaining <= 0 || !code.ExpiresAt.After(now) {
		if code.AttemptsRemaining < 0 {
			code.AttemptsRemaining = 0
		}
		delete(f.items, key)
		return &code, nil
	}
	f.items[key] = code
	return &code, nil
}

func (f *fakeCodes) Consume(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, key)
	return nil
}

type fakeSessions struct {
	mu      sync.Mutex
	members map[string]map[string]bool
	expired map[string]bool
}

func (f *fakeSessions) Authorize(_ context.Context, sessionID, shareID string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.expired[sessionID] {
		return domain.ErrSessionExpired
	}
	if f.members[sessionID] == nil {
		f.members[sessionID] = map[string]bool{}
	}
	f.members[sessionID][shareID] = true
	return nil
}

func (f *fakeSessions) IsAuthorized(_ context.Context, sessionID, shareID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.members[sessionID][shareID], nil
}

func (f *fakeSessions) Refresh(_ context.Context, sessionID string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.members[sessionID] == nil {
		return domain.ErrSessionExpired
	}
	return nil
}

func (f *fakeSessions) Revoke(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.members, sessionID)
	return nil
}

type fakeCipher struct{}

func (fakeCipher) Encrypt(plaintext string) ([]byte, error) {
	return []byte("sealed:" + plaintext), nil
}

func (fakeCipher) Decrypt(ciphertext []byte) (string, error) {
	raw := string(ciphertext)
	if !strings.HasPrefix(raw, "sealed:") {
		return "", errors.New("malformed ciphertext")
	}
	return strings.TrimPrefix(raw, "sealed:"), nil
}

type fakeSigner struct {
	mu            sync.Mutex
	shareTokens   map[string]ports.ShareTokenClaims
	contentTokens map[string]ports.ContentTokenClaims
	staffTokens   map[string]ports.StaffClaims
}

func (f *fakeSigner) SignShareToken(claims ports.ShareTokenClaims) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	token := "share-" + uuid.NewString()
	f.shareTokens[token] = claims
	return token, nil
}

func (f *fakeSigner) ParseShareToken(raw string) (ports.ShareTokenClaims, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	claims, ok := f.shareTokens[raw]
	if !ok {
		return ports.ShareTokenClaims{}, domain.ErrTokenInvalid
	}
	return claims, nil
}

func (f *fakeSigner) SignContentToken(claims ports.ContentTokenClaims) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	token := "content-" + uuid.NewString()
	f.contentTokens[token] = claims
	return token, nil
}

func (f *fakeSigner) ParseContentToken(raw string) (ports.ContentTokenClaims, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	claims, ok := f.contentTokens[raw]
	if !ok {
		return ports.ContentTokenClaims{}, domain.ErrTokenInvalid
	}
	return claims, nil
}

func (f *fakeSigner) ParseStaffToken(raw string) (ports.StaffClaims, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	claims, ok := f.staffTokens[raw]
	if !ok {
		return ports.StaffClaims{}, domain.ErrTokenInvalid
	}
	return claims, nil
}

func (f *fakeSigner) PublicJWKs() ([]map[string]any, error) {
	return []map[string]any{{"kid": "fake"}}, nil
}
