package postgres

import (
	"encoding/json"
	"strings"

	"github.com/clipstage/share-access-service/internal/domain"
)

func toDomainShare(row shareModel) domain.Share {
	perms := make([]domain.Permission, 0, 3)
	for _, p := range splitList(row.Permissions) {
		perms = append(perms, domain.Permission(p))
	}
	return domain.Share{
		ShareID:            row.ShareID,
		ProjectID:          row.ProjectID,
		AuthMode:           domain.AuthMode(row.AuthMode),
		PasscodeCiphertext: row.PasscodeCiphertext,
		Permissions:        perms,
		Guest:              row.Guest,
		ExpiresAt:          row.ExpiresAt,
		RevokedAt:          row.RevokedAt,
		CreatedAt:          row.CreatedAt,
		UpdatedAt:          row.UpdatedAt,
	}
}

func toDomainAsset(row assetModel) domain.Asset {
	return domain.Asset{
		AssetID:        row.AssetID,
		ProjectID:      row.ProjectID,
		FileName:       row.FileName,
		ApprovalStatus: domain.ApprovalStatus(row.ApprovalStatus),
		Qualities:      splitList(row.Qualities),
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}
}

func toDomainSecurityEvent(row securityEventModel) domain.SecurityEvent {
	ip := ""
	if row.IPAddress != nil {
		ip = *row.IPAddress
	}
	details := map[string]any{}
	if row.Details != "" {
		_ = json.Unmarshal([]byte(row.Details), &details)
	}
	return domain.SecurityEvent{
		EventID:    row.EventID,
		Type:       row.EventType,
		Severity:   domain.Severity(row.Severity),
		ShareID:    row.ShareID,
		IPAddress:  ip,
		Details:    details,
		WasBlocked: row.WasBlocked,
		OccurredAt: row.OccurredAt,
	}
}

// splitList decodes the comma-joined storage form of permission/quality sets.
func splitList(raw string) []string {
	out := make([]string, 0, 4)
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func nullableString(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
