package repository

import (
	"context"
	"errors"

	"edtech-market-scout/internal/entity"

	"gorm.io/gorm"
)

// TrendRepository defines the interface for trend analysis persistence.
type TrendRepository interface {
	Create(ctx context.Context, trend *entity.TrendAnalysis) error
	FindLatest(ctx context.Context, sessionID string) (*entity.TrendAnalysis, error)
}

// NewTrendRepository creates a new TrendRepository.
func NewTrendRepository(db *gorm.DB) TrendRepository {
	return &trendRepository{db: db}
}

type trendRepository struct {
	db *gorm.DB
}

func (r *trendRepository) Create(ctx context.Context, trend *entity.TrendAnalysis) error {
	return r.db.WithContext(ctx).Create(trend).Error
}

func (r *trendRepository) FindLatest(ctx context.Context, sessionID string) (*entity.TrendAnalysis, error) {
	var trend entity.TrendAnalysis
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		First(&trend).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &trend, nil
}
