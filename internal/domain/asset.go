package domain

import (
	"time"

	"github.com/google/uuid"
)

// ApprovalStatus tracks review sign-off for an asset.
// Only approved assets may ever be served unwatermarked or downloaded.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "PENDING"
	ApprovalChanges  ApprovalStatus = "CHANGES_REQUESTED"
	ApprovalApproved ApprovalStatus = "APPROVED"
)

// QualityOriginal is the unwatermarked source rendition. Every other quality
// label refers to a watermarked preview rendition produced by the pipeline.
const QualityOriginal = "original"

// Asset is the read-model of a video asset within a shared project.
type Asset struct {
	AssetID        uuid.UUID
	ProjectID      uuid.UUID
	FileName       string
	ApprovalStatus ApprovalStatus
	Qualities      []string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Approved reports whether review sign-off has been granted.
func (a Asset) Approved() bool { return a.ApprovalStatus == ApprovalApproved }

// HasQuality reports whether the rendition pipeline produced the given quality.
// The original rendition always exists once the asset row does.
func (a Asset) HasQuality(quality string) bool {
	if quality == QualityOriginal {
		return true
	}
	for _, q := range a.Qualities {
		if q == quality {
			return true
		}
	}
	return false
}
