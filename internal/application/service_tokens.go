package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/clipstage/share-access-service/internal/domain"
	"github.com/clipstage/share-access-service/internal/ports"
)

// IssueContentToken mints a short-lived token scoped to one rendition
// of one asset, bound to the caller's session. Unapproved assets only
// ever get watermarked renditions and are never download-eligible.
func (s *Service) IssueContentToken(ctx context.Context, reqCtx RequestContext, req ContentTokenRequest) (ContentTokenResult, error) {
	shareID, err := uuid.Parse(strings.TrimSpace(req.ShareID))
	if err != nil {
		return ContentTokenResult{}, fmt.Errorf("%w: invalid share id", domain.ErrInvalidInput)
	}
	assetID, err := uuid.Parse(strings.TrimSpace(req.AssetID))
	if err != nil {
		return ContentTokenResult{}, fmt.Errorf("%w: invalid asset id", domain.ErrInvalidInput)
	}
	quality := strings.ToLower(strings.TrimSpace(req.Quality))
	if quality == "" {
		return ContentTokenResult{}, fmt.Errorf("%w: quality is required", domain.ErrInvalidInput)
	}

	share, err := s.loadUsableShare(ctx, shareID)
	if err != nil {
		return ContentTokenResult{}, err
	}

	decision := s.Authorize(ctx, reqCtx, share)
	if !decision.Allowed {
		return ContentTokenResult{}, s.denyContentToken(ctx, shareID, reqCtx.ClientIP, "unauthenticated")
	}
	if !decision.Can(domain.PermissionView) {
		return ContentTokenResult{}, s.denyContentToken(ctx, shareID, reqCtx.ClientIP, "missing_view_permission")
	}

	asset, err := s.assets.GetByID(ctx, assetID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ContentTokenResult{}, s.denyContentToken(ctx, shareID, reqCtx.ClientIP, "unknown_asset")
		}
		return ContentTokenResult{}, fmt.Errorf("%w: load asset: %v", domain.ErrUnavailable, err)
	}
	if asset.ProjectID != share.ProjectID {
		return ContentTokenResult{}, s.denyContentToken(ctx, shareID, reqCtx.ClientIP, "asset_outside_share")
	}
	if !asset.HasQuality(quality) {
		return ContentTokenResult{}, fmt.Errorf("%w: unknown quality %q", domain.ErrInvalidInput, quality)
	}
	if quality == domain.QualityOriginal && !asset.Approved() {
		return ContentTokenResult{}, s.denyContentToken(ctx, shareID, reqCtx.ClientIP, "asset_not_approved")
	}

	downloadAllowed := quality == domain.QualityOriginal &&
		asset.Approved() &&
		decision.Can(domain.PermissionDownload)

	now := s.nowFn()
	sessionID := decision.SessionID
	created := false
	if sessionID == "" {
		// Token-bearer and open-share callers have no server session
		// yet; mint one so the token is still bound to a revocable
		// context.
		sessionID = newSessionID()
		created = true
		if err := s.sessions.Authorize(ctx, sessionID, share.ShareID.String(), now); err != nil {
			return ContentTokenResult{}, fmt.Errorf("%w: authorize session: %v", domain.ErrUnavailable, err)
		}
	}

	ttl := s.contentTokenTTL()
	token, err := s.tokenSigner.SignContentToken(ports.ContentTokenClaims{
		AssetID:         asset.AssetID,
		ShareID:         share.ShareID,
		Quality:         quality,
		SessionID:       sessionID,
		DownloadAllowed: downloadAllowed,
		IssuedAt:        now,
		ExpiresAt:       now.Add(ttl),
	})
	if err != nil {
		return ContentTokenResult{}, fmt.Errorf("sign content token: %w", err)
	}

	s.recordSecurityEvent(ctx, eventContentTokenIssued, domain.SeverityInfo, &shareID, reqCtx.ClientIP, map[string]any{
		"asset_id":         asset.AssetID,
		"quality":          quality,
		"download_allowed": downloadAllowed,
		"source":           decision.Source,
	}, false)

	return ContentTokenResult{
		Token:           token,
		ExpiresIn:       int64(ttl.Seconds()),
		Quality:         quality,
		DownloadAllowed: downloadAllowed,
		SessionID:       sessionID,
		SessionCreated:  created,
	}, nil
}

// ValidateContentToken verifies a scoped token for the delivery tier:
// signature, expiry and that the bound session is still alive. Every
// failure comes back as a plain denial.
func (s *Service) ValidateContentToken(ctx context.Context, raw string) (ports.ContentTokenClaims, error) {
	claims, err := s.tokenSigner.ParseContentToken(strings.TrimSpace(raw))
	if err != nil {
		return ports.ContentTokenClaims{}, domain.ErrAccessDenied
	}
	ok, err := s.sessions.IsAuthorized(ctx, claims.SessionID, claims.ShareID.String())
	if err != nil {
		return ports.ContentTokenClaims{}, fmt.Errorf("%w: check session: %v", domain.ErrUnavailable, err)
	}
	if !ok {
		return ports.ContentTokenClaims{}, domain.ErrAccessDenied
	}
	return claims, nil
}

func (s *Service) denyContentToken(ctx context.Context, shareID uuid.UUID, ip, reason string) error {
	s.recordSecurityEvent(ctx, eventContentTokenDenied, domain.SeverityWarning, &shareID, ip, map[string]any{
		"reason": reason,
	}, true)
	return domain.ErrAccessDenied
}
