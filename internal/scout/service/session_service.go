package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"edtech-market-scout/internal/entity"
	"edtech-market-scout/internal/scout/dto"
	"edtech-market-scout/internal/scout/repository"
	"edtech-market-scout/pkg/logger"

	"gorm.io/datatypes"
)

// SessionService is the read side of the research pipeline: session views,
// incremental logs, scoring configuration and company drill-downs.
type SessionService interface {
	List(ctx context.Context, limit, offset int) ([]dto.SessionListItem, error)
	Get(ctx context.Context, sessionID string) (*dto.SessionResponse, error)
	GetLogs(ctx context.Context, sessionID string, since *time.Time) ([]dto.SessionLogItem, error)
	UpdateScoring(ctx context.Context, sessionID string, cfg *dto.ScoringConfig) error
	GetTrend(ctx context.Context, sessionID string) (*dto.TrendResponse, error)
	GetCompanyProfile(ctx context.Context, companyID string) (*dto.CompanyProfileResponse, error)
}

type sessionService struct {
	log         *logger.Logger
	sessionRepo repository.SessionRepository
	logRepo     repository.SessionLogRepository
	companyRepo repository.SessionCompanyRepository
	trendRepo   repository.TrendRepository
}

// NewSessionService creates a new SessionService.
func NewSessionService(log *logger.Logger, sessionRepo repository.SessionRepository,
	logRepo repository.SessionLogRepository, companyRepo repository.SessionCompanyRepository,
	trendRepo repository.TrendRepository) SessionService {
	return &sessionService{
		log:         log,
		sessionRepo: sessionRepo,
		logRepo:     logRepo,
		companyRepo: companyRepo,
		trendRepo:   trendRepo,
	}
}

func (s *sessionService) List(ctx context.Context, limit, offset int) ([]dto.SessionListItem, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	sessions, err := s.sessionRepo.FindAll(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	items := make([]dto.SessionListItem, 0, len(sessions))
	for _, session := range sessions {
		items = append(items, dto.SessionListItem{
			ID:        session.ID,
			Label:     session.Label,
			Status:    string(session.Status),
			UpdatedAt: session.UpdatedAt,
		})
	}
	return items, nil
}

func (s *sessionService) Get(ctx context.Context, sessionID string) (*dto.SessionResponse, error) {
	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	companies, err := s.companyRepo.FindBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session companies: %w", err)
	}

	resp := &dto.SessionResponse{
		ID:             session.ID,
		Label:          session.Label,
		Segment:        session.Segment,
		Status:         string(session.Status),
		MaxCompanies:   session.MaxCompanies,
		CompaniesFound: session.CompaniesFound,
		ErrorMessage:   session.ErrorMessage,
		CreatedAt:      session.CreatedAt,
		UpdatedAt:      session.UpdatedAt,
		Companies:      make([]dto.CompanyCard, 0, len(companies)),
	}
	resp.Charts = parseCharts(s.log, session.Charts)
	resp.ScoringConfig = parseScoring(s.log, session.ScoringConfig)
	for _, company := range companies {
		resp.Companies = append(resp.Companies, toCompanyCard(company))
	}
	return resp, nil
}

func (s *sessionService) GetLogs(ctx context.Context, sessionID string, since *time.Time) ([]dto.SessionLogItem, error) {
	if _, err := s.sessionRepo.FindByID(ctx, sessionID); err != nil {
		return nil, err
	}

	logs, err := s.logRepo.FindBySession(ctx, sessionID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load session logs: %w", err)
	}

	items := make([]dto.SessionLogItem, 0, len(logs))
	for _, log := range logs {
		item := dto.SessionLogItem{
			ID:      log.ID,
			Ts:      log.Ts,
			Level:   log.Level,
			Message: log.Message,
		}
		if len(log.Meta) > 0 {
			var meta map[string]any
			if err := json.Unmarshal(log.Meta, &meta); err == nil {
				item.Meta = meta
			}
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *sessionService) UpdateScoring(ctx context.Context, sessionID string, cfg *dto.ScoringConfig) error {
	if _, err := s.sessionRepo.FindByID(ctx, sessionID); err != nil {
		return err
	}

	payload, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal scoring config: %w", err)
	}
	return s.sessionRepo.SetScoringConfig(ctx, sessionID, datatypes.JSON(payload))
}

func (s *sessionService) GetTrend(ctx context.Context, sessionID string) (*dto.TrendResponse, error) {
	trend, err := s.trendRepo.FindLatest(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	resp := &dto.TrendResponse{
		Overview: trend.Overview,
		Bars:     []dto.TrendBar{},
	}
	if len(trend.Bars) > 0 {
		if err := json.Unmarshal(trend.Bars, &resp.Bars); err != nil {
			s.log.Warn("Failed to decode trend bars", logger.ErrorField(err), logger.StringField("session_id", sessionID))
		}
	}
	return resp, nil
}

func (s *sessionService) GetCompanyProfile(ctx context.Context, companyID string) (*dto.CompanyProfileResponse, error) {
	company, err := s.companyRepo.FindByID(ctx, companyID)
	if err != nil {
		return nil, err
	}

	resp := &dto.CompanyProfileResponse{
		CompanyCard: toCompanyCard(*company),
		Sources:     []dto.CompanySourceItem{},
	}

	profile, err := s.companyRepo.FindProfile(ctx, companyID)
	if err == nil {
		resp.ScoreAnalysis = profile.ScoreAnalysis
		resp.MarketPosition = profile.MarketPosition
		resp.Background = profile.Background
		resp.RecentDevelopments = profile.RecentDevelopments
		resp.ProductsServices = profile.ProductsServices
		resp.ScaleReach = profile.ScaleReach
		resp.StrategicNotes = profile.StrategicNotes
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to load company profile: %w", err)
	}

	sources, err := s.companyRepo.FindSources(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load company sources: %w", err)
	}
	for _, src := range sources {
		resp.Sources = append(resp.Sources, dto.CompanySourceItem{
			URL:        src.URL,
			Label:      src.Label,
			SourceType: src.SourceType,
		})
	}
	return resp, nil
}

func toCompanyCard(company entity.SessionCompany) dto.CompanyCard {
	return dto.CompanyCard{
		ID:              company.ID,
		Name:            company.Name,
		Domain:          company.Domain,
		Score:           company.Score,
		Status:          string(company.Status),
		DataReliability: string(company.DataReliability),
		LastVerifiedAt:  company.LastVerifiedAt,
		FoundedYear:     company.FoundedYear,
		Employees:       company.Employees,
		HQCity:          company.HQCity,
		HQCountry:       company.HQCountry,
		PrimaryTags:     company.PrimaryTags,
		Summary:         company.Summary,
	}
}

func parseCharts(log *logger.Logger, raw datatypes.JSON) *dto.ChartsPayload {
	if len(raw) == 0 {
		return nil
	}
	var charts dto.ChartsPayload
	if err := json.Unmarshal(raw, &charts); err != nil {
		log.Warn("Failed to decode session charts", logger.ErrorField(err))
		return nil
	}
	return &charts
}

func parseScoring(log *logger.Logger, raw datatypes.JSON) *dto.ScoringConfig {
	if len(raw) == 0 {
		return nil
	}
	var cfg dto.ScoringConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		log.Warn("Failed to decode scoring config", logger.ErrorField(err))
		return nil
	}
	return &cfg
}
