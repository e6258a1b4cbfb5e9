package postgres

import (
	"time"

	"github.com/google/uuid"
)

type shareModel struct {
	ShareID            uuid.UUID  `gorm:"column:share_id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProjectID          uuid.UUID  `gorm:"column:project_id"`
	AuthMode           string     `gorm:"column:auth_mode"`
	PasscodeCiphertext []byte     `gorm:"column:passcode_ciphertext"`
	Permissions        string     `gorm:"column:permissions"`
	Guest              bool       `gorm:"column:guest"`
	ExpiresAt          *time.Time `gorm:"column:expires_at"`
	RevokedAt          *time.Time `gorm:"column:revoked_at"`
	CreatedAt          time.Time  `gorm:"column:created_at"`
	UpdatedAt          time.Time  `gorm:"column:updated_at"`
}

func (shareModel) TableName() string { return "shares" }

type shareRecipientModel struct {
	ShareID uuid.UUID `gorm:"column:share_id;type:uuid;primaryKey"`
	Email   string    `gorm:"column:email;primaryKey"`
	AddedAt time.Time `gorm:"column:added_at"`
}

func (shareRecipientModel) TableName() string { return "share_recipients" }

type assetModel struct {
	AssetID        uuid.UUID `gorm:"column:asset_id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProjectID      uuid.UUID `gorm:"column:project_id"`
	FileName       string    `gorm:"column:file_name"`
	ApprovalStatus string    `gorm:"column:approval_status"`
	Qualities      string    `gorm:"column:qualities"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

func (assetModel) TableName() string { return "assets" }

type securityEventModel struct {
	EventID    uuid.UUID  `gorm:"column:event_id;type:uuid;primaryKey"`
	EventType  string     `gorm:"column:event_type"`
	Severity   string     `gorm:"column:severity"`
	ShareID    *uuid.UUID `gorm:"column:share_id"`
	IPAddress  *string    `gorm:"column:ip_address"`
	Details    string     `gorm:"column:details;type:jsonb"`
	WasBlocked bool       `gorm:"column:was_blocked"`
	OccurredAt time.Time  `gorm:"column:occurred_at"`
}

func (securityEventModel) TableName() string { return "security_events" }

type shareAccessOutboxModel struct {
	OutboxID       uuid.UUID  `gorm:"column:outbox_id;type:uuid;primaryKey"`
	EventType      string     `gorm:"column:event_type"`
	PartitionKey   string     `gorm:"column:partition_key"`
	Payload        string     `gorm:"column:payload;type:jsonb"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	FirstSeenAt    time.Time  `gorm:"column:first_seen_at"`
	PublishedAt    *time.Time `gorm:"column:published_at"`
	RetryCount     int        `gorm:"column:retry_count"`
	LastError      *string    `gorm:"column:last_error"`
	LastErrorAt    *time.Time `gorm:"column:last_error_at"`
	ClaimToken     *string    `gorm:"column:claim_token"`
	ClaimUntil     *time.Time `gorm:"column:claim_until"`
	DeadLetteredAt *time.Time `gorm:"column:dead_lettered_at"`
}

func (shareAccessOutboxModel) TableName() string { return "share_access_outbox" }
