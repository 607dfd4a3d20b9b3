package repository

import (
	"context"

	"keurimmo/internal/domain/entity"
)

type ListingRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Listing, error)
	ListByAgent(ctx context.Context, agentID string, limit, offset int) ([]*entity.Listing, int64, error)
}
