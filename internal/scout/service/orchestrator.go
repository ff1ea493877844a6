package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"edtech-market-scout/internal/entity"
	"edtech-market-scout/internal/scout/config"
	"edtech-market-scout/internal/scout/dto"
	"edtech-market-scout/internal/scout/repository"
	"edtech-market-scout/pkg/logger"
	"edtech-market-scout/pkg/utils"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const maxErrorMessageLength = 512

// Orchestrator drives a research session through discovery, profiling,
// chart aggregation and trend synthesis, emitting session log lines as it
// goes.
type Orchestrator interface {
	// Start creates a PENDING session and dispatches it for execution.
	Start(ctx context.Context, segment string, maxCompanies int) (*entity.ResearchSession, error)
	// Refresh re-dispatches an existing session. The run is additive:
	// companies are upserted by name and profiles replaced wholesale.
	Refresh(ctx context.Context, sessionID string) error
	// Run executes the session pipeline. The call that loses the claim
	// race returns nil without doing work.
	Run(ctx context.Context, sessionID string) error
}

type orchestrator struct {
	cfg         *config.Config
	log         *logger.Logger
	dispatcher  Dispatcher
	discovery   DiscoveryService
	profiler    ProfilerService
	trend       TrendService
	sessionRepo repository.SessionRepository
	logRepo     repository.SessionLogRepository
	companyRepo repository.SessionCompanyRepository
}

// NewOrchestrator creates a new Orchestrator.
func NewOrchestrator(cfg *config.Config, log *logger.Logger, dispatcher Dispatcher,
	discovery DiscoveryService, profiler ProfilerService, trend TrendService,
	sessionRepo repository.SessionRepository, logRepo repository.SessionLogRepository,
	companyRepo repository.SessionCompanyRepository) Orchestrator {
	return &orchestrator{
		cfg:         cfg,
		log:         log,
		dispatcher:  dispatcher,
		discovery:   discovery,
		profiler:    profiler,
		trend:       trend,
		sessionRepo: sessionRepo,
		logRepo:     logRepo,
		companyRepo: companyRepo,
	}
}

func (o *orchestrator) Start(ctx context.Context, segment string, maxCompanies int) (*entity.ResearchSession, error) {
	segment = strings.TrimSpace(segment)
	if segment == "" {
		return nil, fmt.Errorf("segment must not be empty")
	}
	if maxCompanies <= 0 {
		maxCompanies = o.cfg.Scout.DefaultMaxCompanies
	}
	if maxCompanies > 15 {
		maxCompanies = 15
	}

	session := &entity.ResearchSession{
		ID:           uuid.NewString(),
		Label:        segment,
		Segment:      strings.ToLower(utils.CollapseWhitespace(segment)),
		Status:       entity.SessionStatusPending,
		MaxCompanies: maxCompanies,
	}
	if err := o.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	o.appendLog(ctx, session.ID, entity.LogLevelInfo, fmt.Sprintf("Research session created for %q", session.Label), nil)
	o.dispatch(ctx, session.ID)
	return session, nil
}

func (o *orchestrator) Refresh(ctx context.Context, sessionID string) error {
	session, err := o.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Status == entity.SessionStatusRunning {
		return fmt.Errorf("session %s is already running", sessionID)
	}

	o.appendLog(ctx, sessionID, entity.LogLevelInfo, "Refresh requested", nil)
	o.dispatch(ctx, sessionID)
	return nil
}

// dispatch hands the session to the worker queue, falling back to an
// in-process background run when the broker is unreachable.
func (o *orchestrator) dispatch(ctx context.Context, sessionID string) {
	if err := o.dispatcher.Enqueue(ctx, sessionID); err == nil {
		return
	}

	o.log.Warn("Dispatch failed, running session in-process", logger.StringField("session_id", sessionID))
	utils.GoSafe(func() {
		runCtx, cancel := context.WithTimeout(context.Background(), o.cfg.Scout.RunTimeout)
		defer cancel()
		if err := o.Run(runCtx, sessionID); err != nil {
			o.log.Error("In-process session run failed", logger.ErrorField(err), logger.StringField("session_id", sessionID))
		}
	})
}

func (o *orchestrator) Run(ctx context.Context, sessionID string) error {
	claimed, err := o.sessionRepo.ClaimRun(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to claim session %s: %w", sessionID, err)
	}
	if !claimed {
		o.log.Debug("Session already claimed, skipping", logger.StringField("session_id", sessionID))
		return nil
	}

	session, err := o.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return o.fail(ctx, sessionID, fmt.Errorf("failed to load session: %w", err))
	}

	o.appendLog(ctx, sessionID, entity.LogLevelInfo, fmt.Sprintf("Starting discovery for %q", session.Label), nil)

	candidates, fallback := o.discovery.Discover(ctx, session.Segment, session.MaxCompanies)
	if fallback {
		o.appendLog(ctx, sessionID, entity.LogLevelWarning, "Discovery produced no usable results, continuing with placeholder candidates", nil)
	} else {
		o.appendLog(ctx, sessionID, entity.LogLevelInfo, fmt.Sprintf("Discovered %d candidate companies", len(candidates)), nil)
	}

	companies, err := o.persistCandidates(ctx, session, candidates, fallback)
	if err != nil {
		return o.fail(ctx, sessionID, fmt.Errorf("failed to persist candidates: %w", err))
	}

	o.profileCompanies(ctx, session, companies)

	charts, err := json.Marshal(BuildCharts(companies))
	if err != nil {
		return o.fail(ctx, sessionID, fmt.Errorf("failed to build charts: %w", err))
	}
	if err := o.sessionRepo.SetCharts(ctx, sessionID, datatypes.JSON(charts)); err != nil {
		return o.fail(ctx, sessionID, fmt.Errorf("failed to store charts: %w", err))
	}

	if trendFallback, err := o.trend.Synthesize(ctx, sessionID, session.Segment, companies); err != nil {
		o.appendLog(ctx, sessionID, entity.LogLevelWarning, fmt.Sprintf("Trend synthesis failed: %s", utils.TruncateString(err.Error(), 200)), nil)
	} else if trendFallback {
		o.appendLog(ctx, sessionID, entity.LogLevelWarning, "Trend synthesis degraded to tag-frequency summary", nil)
	}

	if err := o.sessionRepo.SetStatus(ctx, sessionID, entity.SessionStatusCompleted, ""); err != nil {
		return fmt.Errorf("failed to complete session %s: %w", sessionID, err)
	}
	o.appendLog(ctx, sessionID, entity.LogLevelSuccess, fmt.Sprintf("Research completed with %d companies", len(companies)), nil)
	return nil
}

// persistCandidates stores the discovered set as PENDING companies and
// commits companies_found so pollers see progress before profiling starts.
func (o *orchestrator) persistCandidates(ctx context.Context, session *entity.ResearchSession, candidates []dto.DiscoveredCompany, fallback bool) ([]entity.SessionCompany, error) {
	reliability := entity.ReliabilityMedium
	if fallback {
		reliability = entity.ReliabilityLow
	}

	companies := make([]entity.SessionCompany, 0, len(candidates))
	for _, candidate := range candidates {
		company := entity.SessionCompany{
			ID:              uuid.NewString(),
			SessionID:       session.ID,
			Name:            candidate.Name,
			Domain:          candidate.Domain,
			Summary:         candidate.Description,
			PrimaryTags:     candidate.Tags,
			Status:          entity.CompanyStatusPending,
			DataReliability: reliability,
		}
		if err := o.companyRepo.UpsertByName(ctx, &company); err != nil {
			return nil, err
		}
		companies = append(companies, company)
	}

	if err := o.sessionRepo.SetCompaniesFound(ctx, session.ID, len(companies)); err != nil {
		return nil, err
	}
	return companies, nil
}

// profileCompanies runs the profiler per company with panic and error
// isolation: one bad company never aborts the session.
func (o *orchestrator) profileCompanies(ctx context.Context, session *entity.ResearchSession, companies []entity.SessionCompany) {
	for i := range companies {
		company := &companies[i]
		err := o.profileOne(ctx, session, company)
		if err == nil {
			o.appendLog(ctx, session.ID, entity.LogLevelSuccess, fmt.Sprintf("Profiled %s", company.Name), map[string]any{"company_id": company.ID})
			continue
		}

		o.log.Error("Company profiling failed", logger.ErrorField(err), logger.StringField("company", company.Name), logger.StringField("session_id", session.ID))
		o.appendLog(ctx, session.ID, entity.LogLevelError,
			fmt.Sprintf("Failed to profile %s: %s", company.Name, utils.TruncateString(err.Error(), 200)),
			map[string]any{"company_id": company.ID})

		company.Status = entity.CompanyStatusFailed
		if setErr := o.companyRepo.SetStatus(ctx, company.ID, entity.CompanyStatusFailed); setErr != nil {
			o.log.Error("Failed to mark company FAILED", logger.ErrorField(setErr), logger.StringField("company_id", company.ID))
		}
	}
}

func (o *orchestrator) profileOne(ctx context.Context, session *entity.ResearchSession, company *entity.SessionCompany) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while profiling %s: %v", company.Name, r)
		}
	}()
	return o.profiler.Profile(ctx, company, session.Segment)
}

// fail transitions the session to FAILED and records the reason. The
// original error is returned for the caller's own logging.
func (o *orchestrator) fail(ctx context.Context, sessionID string, cause error) error {
	message := utils.TruncateString(cause.Error(), maxErrorMessageLength)
	if err := o.sessionRepo.SetStatus(ctx, sessionID, entity.SessionStatusFailed, message); err != nil {
		o.log.Error("Failed to mark session FAILED", logger.ErrorField(err), logger.StringField("session_id", sessionID))
	}
	o.appendLog(ctx, sessionID, entity.LogLevelError, fmt.Sprintf("Research failed: %s", message), nil)
	return cause
}

func (o *orchestrator) appendLog(ctx context.Context, sessionID string, level entity.LogLevel, message string, meta map[string]any) {
	if err := o.logRepo.Append(ctx, sessionID, level, message, meta); err != nil {
		o.log.Error("Failed to append session log", logger.ErrorField(err), logger.StringField("session_id", sessionID))
	}
}
