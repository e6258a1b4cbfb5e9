package ports

import (
	"time"

	"github.com/google/uuid"

	"github.com/clipstage/share-access-service/internal/domain"
)

// PasscodeCipher seals share passcodes for at-rest storage. Encryption is
// reversible because owners can reveal a share's passcode from the dashboard;
// comparison against supplied values happens on the decrypted plaintext.
type PasscodeCipher interface {
	Encrypt(plaintext string) ([]byte, error)
	Decrypt(ciphertext []byte) (string, error)
}

// ShareTokenClaims is the payload of a stateless share capability token.
type ShareTokenClaims struct {
	ShareID     uuid.UUID
	Permissions []domain.Permission
	Guest       bool
	IssuedAt    time.Time
	ExpiresAt   time.Time
	KeyID       string
}

// ContentTokenClaims binds a scoped content token to exactly one
// (asset, quality) pair and the session that requested it.
type ContentTokenClaims struct {
	AssetID         uuid.UUID
	ShareID         uuid.UUID
	Quality         string
	SessionID       string
	DownloadAllowed bool
	IssuedAt        time.Time
	ExpiresAt       time.Time
	KeyID           string
}

// StaffClaims is the subset of a platform access token this service consumes
// for the owner/staff bypass path. Those tokens are minted by the platform
// auth service; this service only verifies them.
type StaffClaims struct {
	UserID    uuid.UUID
	Role      string
	ExpiresAt time.Time
}

// TokenSigner issues and verifies the signed tokens this service deals in.
// Share and content tokens are signed locally; staff tokens are verify-only.
type TokenSigner interface {
	SignShareToken(claims ShareTokenClaims) (string, error)
	ParseShareToken(raw string) (ShareTokenClaims, error)
	SignContentToken(claims ContentTokenClaims) (string, error)
	ParseContentToken(raw string) (ContentTokenClaims, error)
	ParseStaffToken(raw string) (StaffClaims, error)
	PublicJWKs() ([]map[string]any, error)
}
