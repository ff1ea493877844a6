package service

import (
	"context"
	"fmt"
	"time"

	"edtech-market-scout/internal/entity"
	"edtech-market-scout/internal/scout/config"
	"edtech-market-scout/internal/scout/repository"
	"edtech-market-scout/pkg/logger"

	"github.com/patrickmn/go-cache"
	"github.com/robfig/cron/v3"
)

// Reaper watches for sessions stuck in RUNNING. Past the soft limit a
// session gets one warning log; past the hard ceiling it is marked FAILED
// so a crashed worker cannot leave it RUNNING forever.
type Reaper interface {
	Start() error
	Stop()
	Sweep(ctx context.Context)
}

type reaper struct {
	cfg         *config.Config
	log         *logger.Logger
	sessionRepo repository.SessionRepository
	logRepo     repository.SessionLogRepository
	cron        *cron.Cron
	warned      *cache.Cache
}

// NewReaper creates a new Reaper.
func NewReaper(cfg *config.Config, log *logger.Logger, sessionRepo repository.SessionRepository, logRepo repository.SessionLogRepository) Reaper {
	return &reaper{
		cfg:         cfg,
		log:         log,
		sessionRepo: sessionRepo,
		logRepo:     logRepo,
		cron:        cron.New(),
		warned:      cache.New(2*cfg.Scout.HardRunLimit, 10*time.Minute),
	}
}

func (r *reaper) Start() error {
	_, err := r.cron.AddFunc(r.cfg.Scout.ReaperSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		r.Sweep(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule reaper: %w", err)
	}
	r.cron.Start()
	r.log.Info("Reaper started", logger.StringField("schedule", r.cfg.Scout.ReaperSchedule))
	return nil
}

func (r *reaper) Stop() {
	r.cron.Stop()
}

// Sweep inspects RUNNING sessions whose updated_at has not moved past the
// soft limit. A session that keeps making progress keeps bumping
// updated_at and is never touched.
func (r *reaper) Sweep(ctx context.Context) {
	now := time.Now()
	sessions, err := r.sessionRepo.FindRunningSince(ctx, now.Add(-r.cfg.Scout.SoftRunLimit))
	if err != nil {
		r.log.Error("Reaper sweep failed", logger.ErrorField(err))
		return
	}

	for _, session := range sessions {
		stalled := now.Sub(session.UpdatedAt)

		if stalled >= r.cfg.Scout.HardRunLimit {
			message := fmt.Sprintf("Session exceeded the %s run ceiling and was reaped", r.cfg.Scout.HardRunLimit)
			if err := r.sessionRepo.SetStatus(ctx, session.ID, entity.SessionStatusFailed, message); err != nil {
				r.log.Error("Failed to reap session", logger.ErrorField(err), logger.StringField("session_id", session.ID))
				continue
			}
			if err := r.logRepo.Append(ctx, session.ID, entity.LogLevelError, message, nil); err != nil {
				r.log.Error("Failed to log reaped session", logger.ErrorField(err), logger.StringField("session_id", session.ID))
			}
			r.log.Warn("Reaped stalled session", logger.StringField("session_id", session.ID), logger.Field("stalled", stalled.String()))
			continue
		}

		if _, alreadyWarned := r.warned.Get(session.ID); alreadyWarned {
			continue
		}
		r.warned.SetDefault(session.ID, true)
		message := fmt.Sprintf("Session has been running for %s, approaching the %s ceiling", stalled.Round(time.Second), r.cfg.Scout.HardRunLimit)
		if err := r.logRepo.Append(ctx, session.ID, entity.LogLevelWarning, message, nil); err != nil {
			r.log.Error("Failed to log slow session warning", logger.ErrorField(err), logger.StringField("session_id", session.ID))
		}
	}
}
