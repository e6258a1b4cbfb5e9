package domain

import (
	"time"

	"github.com/google/uuid"
)

// Severity tags a security event for triage.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// SecurityEvent is one append-only audit record. Rows are never updated or
// deleted by this service.
type SecurityEvent struct {
	EventID    uuid.UUID
	Type       string
	Severity   Severity
	ShareID    *uuid.UUID
	IPAddress  string
	Details    map[string]any
	WasBlocked bool
	OccurredAt time.Time
}

// SecurityEventFilter narrows audit listings.
type SecurityEventFilter struct {
	Severity Severity
	ShareID  *uuid.UUID
	Type     string
	Since    *time.Time
	Limit    int
	Offset   int
}
