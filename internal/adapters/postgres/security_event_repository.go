package postgres

import (
	"context"
	"encoding/json"

	"gorm.io/gorm"

	"github.com/clipstage/share-access-service/internal/domain"
)

type securityEventRepository struct {
	db *gorm.DB
}

func (r *securityEventRepository) Insert(ctx context.Context, event domain.SecurityEvent) error {
	details := "{}"
	if len(event.Details) > 0 {
		if raw, err := json.Marshal(event.Details); err == nil {
			details = string(raw)
		}
	}
	rec := securityEventModel{
		EventID:    event.EventID,
		EventType:  event.Type,
		Severity:   string(event.Severity),
		ShareID:    event.ShareID,
		IPAddress:  nullableString(event.IPAddress),
		Details:    details,
		WasBlocked: event.WasBlocked,
		OccurredAt: event.OccurredAt,
	}
	return r.db.WithContext(ctx).Create(&rec).Error
}

func (r *securityEventRepository) List(ctx context.Context, filter domain.SecurityEventFilter) ([]domain.SecurityEvent, error) {
	query := r.db.WithContext(ctx).Model(&securityEventModel{})
	if filter.Severity != "" {
		query = query.Where("severity = ?", string(filter.Severity))
	}
	if filter.ShareID != nil {
		query = query.Where("share_id = ?", *filter.ShareID)
	}
	if filter.Type != "" {
		query = query.Where("event_type = ?", filter.Type)
	}
	if filter.Since != nil {
		query = query.Where("occurred_at >= ?", *filter.Since)
	}

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var rows []securityEventModel
	if err := query.Order("occurred_at DESC").Limit(limit).Offset(filter.Offset).Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.SecurityEvent, 0, len(rows))
	for _, row := range rows {
		result = append(result, toDomainSecurityEvent(row))
	}
	return result, nil
}
