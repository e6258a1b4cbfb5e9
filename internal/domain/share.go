package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuthMode selects which verification paths a share permits.
type AuthMode string

const (
	AuthModeNone     AuthMode = "NONE"
	AuthModePassword AuthMode = "PASSWORD"
	AuthModeOTP      AuthMode = "OTP"
	AuthModeBoth     AuthMode = "BOTH"
)

// RequiresPasscode reports whether the mode needs a stored passcode ciphertext.
func (m AuthMode) RequiresPasscode() bool {
	return m == AuthModePassword || m == AuthModeBoth
}

// AllowsOTP reports whether the one-time-code path is permitted.
func (m AuthMode) AllowsOTP() bool {
	return m == AuthModeOTP || m == AuthModeBoth
}

// Permission is a capability granted by a share.
type Permission string

const (
	PermissionView     Permission = "view"
	PermissionComment  Permission = "comment"
	PermissionDownload Permission = "download"
)

// Share is the read-model of a project share link as owned by the project
// registry. This service reads it to decide authentication requirements; it
// never mutates registry rows.
type Share struct {
	ShareID            uuid.UUID
	ProjectID          uuid.UUID
	AuthMode           AuthMode
	PasscodeCiphertext []byte
	Permissions        []Permission
	Guest              bool
	ExpiresAt          *time.Time
	RevokedAt          *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Usable reports whether the share can still grant access at the given time.
// Expired and revoked shares behave exactly like unknown ones downstream.
func (s Share) Usable(now time.Time) bool {
	if s.RevokedAt != nil {
		return false
	}
	if s.ExpiresAt != nil && !now.Before(*s.ExpiresAt) {
		return false
	}
	return true
}

// HasPermission reports membership in the share's permission set.
func (s Share) HasPermission(p Permission) bool {
	for _, have := range s.Permissions {
		if have == p {
			return true
		}
	}
	return false
}
