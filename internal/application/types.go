package application

import (
	"time"

	"github.com/google/uuid"

	"github.com/clipstage/share-access-service/internal/domain"
)

// SessionCookieName is the cookie that carries the anonymous viewer
// session identifier. The HTTP adapter sets and clears it; the
// application layer only reads it out of RequestContext.Cookies.
const SessionCookieName = "share_session"

// Config carries the tunables for share access flows. Zero values fall
// back to the defaults the accessors on Service apply, so a partially
// populated Config (as tests tend to build) still behaves sanely.
type Config struct {
	// MaxAttempts is the number of failed credential attempts inside
	// AttemptWindow that triggers a lockout for the identifier.
	MaxAttempts int
	// AttemptWindow bounds both the failure-counting window and the
	// lockout duration once the threshold is crossed.
	AttemptWindow time.Duration

	// OTPLength is the number of digits in an emailed one-time code.
	OTPLength int
	// OTPTTL is how long an issued code stays redeemable.
	OTPTTL time.Duration
	// OTPMaxAttempts is the per-code verification attempt budget.
	OTPMaxAttempts int

	// SessionIdleTTL is the sliding inactivity window for viewer
	// sessions; SessionAbsoluteTTL caps total lifetime regardless of
	// activity. Both are enforced by the session store.
	SessionIdleTTL     time.Duration
	SessionAbsoluteTTL time.Duration

	// ShareTokenTTL bounds share capability tokens. Zero means the
	// token carries no expiry and lives on its signature alone.
	ShareTokenTTL time.Duration
	// ContentTokenTTL bounds scoped content tokens. These cover a
	// playback session, not long-term storage by the client.
	ContentTokenTTL time.Duration

	// IdentifierSalt keys the hashing of client identifiers (IP,
	// share, recipient) before they appear in rate-limit keys and
	// audit rows. All instances must share the same salt.
	IdentifierSalt string

	// SendLatencyMin/Max bound the randomized delay injected on
	// unauthorized code-request paths so their timing matches the
	// genuine dispatch path.
	SendLatencyMin time.Duration
	SendLatencyMax time.Duration
}

// RequestContext carries the caller-facing facts of one request into
// the application layer: where it came from and what credentials rode
// along. Handlers build it; the service never touches net/http.
type RequestContext struct {
	ClientIP    string
	Cookies     map[string]string
	BearerToken string
}

// SessionID returns the viewer session cookie value, if present.
func (r RequestContext) SessionID() string {
	return r.Cookies[SessionCookieName]
}

// AccessDecision is the outcome of resolving a request against every
// acceptable credential source for a share.
type AccessDecision struct {
	Allowed     bool
	Source      string // "staff", "share_token", "session" or "open"
	SessionID   string
	ShareID     uuid.UUID
	Permissions []domain.Permission
	Guest       bool
	StaffRole   string
}

// Can reports whether the decision grants the given permission.
func (d AccessDecision) Can(p domain.Permission) bool {
	if !d.Allowed {
		return false
	}
	for _, have := range d.Permissions {
		if have == p {
			return true
		}
	}
	return false
}

// VerifyResult is returned by the password and OTP verifiers on
// success. SessionID is always populated; SessionCreated tells the
// handler whether a new cookie needs to be set.
type VerifyResult struct {
	SessionID      string
	SessionCreated bool
	ShareToken     string
	ExpiresIn      int64 // seconds; 0 when the token has no expiry
	Permissions    []string
	Guest          bool
}

// OTPRequestAck is the fixed acknowledgement returned by RequestOTP
// regardless of recipient validity.
type OTPRequestAck struct {
	Message string
}

// AuthStatus describes a share's authentication requirements and the
// caller's current standing against them.
type AuthStatus struct {
	ShareID       uuid.UUID
	RequiresAuth  bool
	AuthMode      domain.AuthMode
	Authenticated bool
	Method        string // populated only when Authenticated
	Permissions   []string
	Guest         bool
}

// ContentTokenRequest asks for a scoped token for one rendition of one
// asset reachable through a share.
type ContentTokenRequest struct {
	ShareID string
	AssetID string
	Quality string
}

// ContentTokenResult carries the signed scoped token plus the session
// it was bound to. SessionCreated is set when the binding session had
// to be minted because the caller authenticated without one.
type ContentTokenResult struct {
	Token           string
	ExpiresIn       int64
	Quality         string
	DownloadAllowed bool
	SessionID       string
	SessionCreated  bool
}

// SecurityEventQuery filters the internal audit listing.
type SecurityEventQuery struct {
	Severity string
	ShareID  string
	Type     string
	Since    time.Time
	Limit    int
}

func permissionStrings(perms []domain.Permission) []string {
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		out = append(out, string(p))
	}
	return out
}
