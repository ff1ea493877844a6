package repository

import (
	"context"
	"errors"
	"time"

	"edtech-market-scout/internal/entity"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SessionRepository defines the interface for research session persistence.
type SessionRepository interface {
	Create(ctx context.Context, session *entity.ResearchSession) error
	FindByID(ctx context.Context, id string) (*entity.ResearchSession, error)
	FindAll(ctx context.Context, limit, offset int) ([]entity.ResearchSession, error)
	// ClaimRun atomically transitions a session to RUNNING. It returns
	// false when the session is already RUNNING, which is how the losing
	// path of the dual dispatch learns to back off. Terminal sessions are
	// reclaimable so refresh can re-run them.
	ClaimRun(ctx context.Context, id string) (bool, error)
	SetStatus(ctx context.Context, id string, status entity.SessionStatus, errorMessage string) error
	SetCompaniesFound(ctx context.Context, id string, count int) error
	SetCharts(ctx context.Context, id string, charts datatypes.JSON) error
	SetScoringConfig(ctx context.Context, id string, cfg datatypes.JSON) error
	FindRunningSince(ctx context.Context, cutoff time.Time) ([]entity.ResearchSession, error)
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

type sessionRepository struct {
	db *gorm.DB
}

func (r *sessionRepository) Create(ctx context.Context, session *entity.ResearchSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *sessionRepository) FindByID(ctx context.Context, id string) (*entity.ResearchSession, error) {
	var session entity.ResearchSession
	err := r.db.WithContext(ctx).First(&session, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepository) FindAll(ctx context.Context, limit, offset int) ([]entity.ResearchSession, error) {
	var sessions []entity.ResearchSession
	err := r.db.WithContext(ctx).
		Order("updated_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&sessions).Error
	return sessions, err
}

func (r *sessionRepository) ClaimRun(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&entity.ResearchSession{}).
		Where("id = ? AND status <> ?", id, entity.SessionStatusRunning).
		Updates(map[string]interface{}{
			"status":        entity.SessionStatusRunning,
			"error_message": "",
			"updated_at":    time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		// Either the session does not exist or another orchestrator holds it.
		var count int64
		if err := r.db.WithContext(ctx).Model(&entity.ResearchSession{}).
			Where("id = ?", id).Count(&count).Error; err != nil {
			return false, err
		}
		if count == 0 {
			return false, ErrNotFound
		}
		return false, nil
	}
	return true, nil
}

func (r *sessionRepository) SetStatus(ctx context.Context, id string, status entity.SessionStatus, errorMessage string) error {
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	}
	if errorMessage != "" {
		updates["error_message"] = errorMessage
	}
	return r.db.WithContext(ctx).Model(&entity.ResearchSession{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *sessionRepository) SetCompaniesFound(ctx context.Context, id string, count int) error {
	return r.db.WithContext(ctx).Model(&entity.ResearchSession{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"companies_found": count,
			"updated_at":      time.Now(),
		}).Error
}

func (r *sessionRepository) SetCharts(ctx context.Context, id string, charts datatypes.JSON) error {
	return r.db.WithContext(ctx).Model(&entity.ResearchSession{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"charts":     charts,
			"updated_at": time.Now(),
		}).Error
}

func (r *sessionRepository) SetScoringConfig(ctx context.Context, id string, cfg datatypes.JSON) error {
	return r.db.WithContext(ctx).Model(&entity.ResearchSession{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"scoring_config": cfg,
			"updated_at":     time.Now(),
		}).Error
}

func (r *sessionRepository) FindRunningSince(ctx context.Context, cutoff time.Time) ([]entity.ResearchSession, error) {
	var sessions []entity.ResearchSession
	err := r.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", entity.SessionStatusRunning, cutoff).
		Find(&sessions).Error
	return sessions, err
}
