package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clipstage/share-access-service/internal/domain"
	"github.com/clipstage/share-access-service/internal/ports"
)

type Service struct {
	cfg            Config
	shares         ports.ShareRepository
	assets         ports.AssetRepository
	securityEvents ports.SecurityEventRepository
	outbox         ports.OutboxRepository
	rateLimits     ports.RateLimitStore
	codes          ports.CodeStore
	sessions       ports.SessionStore
	cipher         ports.PasscodeCipher
	tokenSigner    ports.TokenSigner
	nowFn          func() time.Time
	sleepFn        func(ctx context.Context, d time.Duration)
}

type Dependencies struct {
	Config         Config
	Shares         ports.ShareRepository
	Assets         ports.AssetRepository
	SecurityEvents ports.SecurityEventRepository
	Outbox         ports.OutboxRepository
	RateLimits     ports.RateLimitStore
	Codes          ports.CodeStore
	Sessions       ports.SessionStore
	Cipher         ports.PasscodeCipher
	TokenSigner    ports.TokenSigner
}

func NewService(deps Dependencies) *Service {
	return &Service{
		cfg:            deps.Config,
		shares:         deps.Shares,
		assets:         deps.Assets,
		securityEvents: deps.SecurityEvents,
		outbox:         deps.Outbox,
		rateLimits:     deps.RateLimits,
		codes:          deps.Codes,
		sessions:       deps.Sessions,
		cipher:         deps.Cipher,
		tokenSigner:    deps.TokenSigner,
		nowFn:          func() time.Time { return time.Now().UTC() },
		sleepFn:        sleepWithContext,
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// Config accessors. Defaults live here rather than in a constructor so
// that a zero-value Config in tests still produces working flows.

func (s *Service) maxAttempts() int {
	if s.cfg.MaxAttempts > 0 {
		return s.cfg.MaxAttempts
	}
	return 5
}

func (s *Service) attemptWindow() time.Duration {
	if s.cfg.AttemptWindow > 0 {
		return s.cfg.AttemptWindow
	}
	return 15 * time.Minute
}

func (s *Service) otpLength() int {
	if s.cfg.OTPLength >= 4 && s.cfg.OTPLength <= 10 {
		return s.cfg.OTPLength
	}
	return 6
}

func (s *Service) otpTTL() time.Duration {
	if s.cfg.OTPTTL > 0 {
		return s.cfg.OTPTTL
	}
	return 10 * time.Minute
}

func (s *Service) otpMaxAttempts() int {
	if s.cfg.OTPMaxAttempts > 0 {
		return s.cfg.OTPMaxAttempts
	}
	return 3
}

func (s *Service) contentTokenTTL() time.Duration {
	if s.cfg.ContentTokenTTL > 0 {
		return s.cfg.ContentTokenTTL
	}
	return 15 * time.Minute
}

func (s *Service) shareTokenTTL() time.Duration {
	return s.cfg.ShareTokenTTL
}

func (s *Service) sendLatencyBounds() (time.Duration, time.Duration) {
	min, max := s.cfg.SendLatencyMin, s.cfg.SendLatencyMax
	if min <= 0 {
		min = 250 * time.Millisecond
	}
	if max <= min {
		max = min + 650*time.Millisecond
	}
	return min, max
}

// loadUsableShare resolves a share and hides its existence from
// unauthenticated callers: unknown, expired and revoked shares all come
// back as ErrAccessDenied. Registry outages surface as ErrUnavailable
// so the transport can answer 503 instead of a misleading denial.
func (s *Service) loadUsableShare(ctx context.Context, shareID uuid.UUID) (domain.Share, error) {
	share, err := s.shares.GetByID(ctx, shareID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Share{}, domain.ErrAccessDenied
		}
		return domain.Share{}, fmt.Errorf("%w: load share: %v", domain.ErrUnavailable, err)
	}
	if !share.Usable(s.nowFn()) {
		return domain.Share{}, domain.ErrAccessDenied
	}
	return share, nil
}

// PublicJWKs exposes the verification keys for the delivery tier.
func (s *Service) PublicJWKs() ([]map[string]any, error) {
	return s.tokenSigner.PublicJWKs()
}
