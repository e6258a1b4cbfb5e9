package postgres

import (
	"gorm.io/gorm"

	"github.com/clipstage/share-access-service/internal/ports"
)

type Repositories struct {
	Shares         ports.ShareRepository
	Assets         ports.AssetRepository
	SecurityEvents ports.SecurityEventRepository
	Outbox         ports.OutboxRepository
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Shares:         &shareRepository{db: db},
		Assets:         &assetRepository{db: db},
		SecurityEvents: &securityEventRepository{db: db},
		Outbox:         &outboxRepository{db: db},
	}
}
