package repository

import (
	"context"
	"encoding/json"
	"time"

	"edtech-market-scout/internal/entity"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SessionLogRepository defines the interface for the append-only session
// log stream.
type SessionLogRepository interface {
	Append(ctx context.Context, sessionID string, level entity.LogLevel, message string, meta map[string]any) error
	FindBySession(ctx context.Context, sessionID string, since *time.Time) ([]entity.SessionLog, error)
}

// NewSessionLogRepository creates a new SessionLogRepository.
func NewSessionLogRepository(db *gorm.DB) SessionLogRepository {
	return &sessionLogRepository{db: db}
}

type sessionLogRepository struct {
	db *gorm.DB
}

func (r *sessionLogRepository) Append(ctx context.Context, sessionID string, level entity.LogLevel, message string, meta map[string]any) error {
	log := entity.SessionLog{
		SessionID: sessionID,
		Ts:        time.Now(),
		Level:     level,
		Message:   message,
	}
	if len(meta) > 0 {
		metaBytes, err := json.Marshal(meta)
		if err == nil {
			log.Meta = datatypes.JSON(metaBytes)
		}
	}
	return r.db.WithContext(ctx).Create(&log).Error
}

func (r *sessionLogRepository) FindBySession(ctx context.Context, sessionID string, since *time.Time) ([]entity.SessionLog, error) {
	query := r.db.WithContext(ctx).Where("session_id = ?", sessionID)
	if since != nil {
		query = query.Where("ts > ?", *since)
	}

	var logs []entity.SessionLog
	err := query.Order("ts ASC, id ASC").Find(&logs).Error
	return logs, err
}
