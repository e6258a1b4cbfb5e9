package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clipstage/share-access-service/internal/domain"
)

type assetRepository struct {
	db *gorm.DB
}

func (r *assetRepository) GetByID(ctx context.Context, assetID uuid.UUID) (domain.Asset, error) {
	var rec assetModel
	if err := r.db.WithContext(ctx).Where("asset_id = ?", assetID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Asset{}, domain.ErrNotFound
		}
		return domain.Asset{}, err
	}
	return toDomainAsset(rec), nil
}
