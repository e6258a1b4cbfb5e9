package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clipstage/share-access-service/internal/domain"
)

type shareRepository struct {
	db *gorm.DB
}

func (r *shareRepository) GetByID(ctx context.Context, shareID uuid.UUID) (domain.Share, error) {
	var rec shareModel
	if err := r.db.WithContext(ctx).Where("share_id = ?", shareID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Share{}, domain.ErrNotFound
		}
		return domain.Share{}, err
	}
	return toDomainShare(rec), nil
}

func (r *shareRepository) IsRecipient(ctx context.Context, shareID uuid.UUID, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&shareRecipientModel{}).
		Where("share_id = ?", shareID).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
