package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"edtech-market-scout/internal/entity"
	"edtech-market-scout/internal/scout/dto"
	"edtech-market-scout/internal/scout/repository"

	"gorm.io/datatypes"
)

// In-memory repository fakes mirroring the persistence semantics the
// services rely on: claim-run guarding, case-insensitive name upserts and
// strict since-filtering.

type fakeSessionRepo struct {
	mu            sync.Mutex
	sessions      map[string]*entity.ResearchSession
	failSetCharts error
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]*entity.ResearchSession)}
}

func (r *fakeSessionRepo) Create(_ context.Context, session *entity.ResearchSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	session.CreatedAt = now
	session.UpdatedAt = now
	clone := *session
	r.sessions[session.ID] = &clone
	return nil
}

func (r *fakeSessionRepo) FindByID(_ context.Context, id string) (*entity.ResearchSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *session
	return &clone, nil
}

func (r *fakeSessionRepo) FindAll(_ context.Context, limit, offset int) ([]entity.ResearchSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]entity.ResearchSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		all = append(all, *s)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].UpdatedAt.After(all[j].UpdatedAt) })
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (r *fakeSessionRepo) ClaimRun(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok {
		return false, repository.ErrNotFound
	}
	if session.Status == entity.SessionStatusRunning {
		return false, nil
	}
	session.Status = entity.SessionStatusRunning
	session.ErrorMessage = ""
	session.UpdatedAt = time.Now()
	return true, nil
}

func (r *fakeSessionRepo) SetStatus(_ context.Context, id string, status entity.SessionStatus, errorMessage string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok {
		return repository.ErrNotFound
	}
	session.Status = status
	session.ErrorMessage = errorMessage
	session.UpdatedAt = time.Now()
	return nil
}

func (r *fakeSessionRepo) SetCompaniesFound(_ context.Context, id string, count int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok {
		return repository.ErrNotFound
	}
	session.CompaniesFound = count
	session.UpdatedAt = time.Now()
	return nil
}

func (r *fakeSessionRepo) SetCharts(_ context.Context, id string, charts datatypes.JSON) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failSetCharts != nil {
		return r.failSetCharts
	}
	session, ok := r.sessions[id]
	if !ok {
		return repository.ErrNotFound
	}
	session.Charts = charts
	session.UpdatedAt = time.Now()
	return nil
}

func (r *fakeSessionRepo) SetScoringConfig(_ context.Context, id string, cfg datatypes.JSON) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok {
		return repository.ErrNotFound
	}
	session.ScoringConfig = cfg
	session.UpdatedAt = time.Now()
	return nil
}

func (r *fakeSessionRepo) FindRunningSince(_ context.Context, cutoff time.Time) ([]entity.ResearchSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.ResearchSession
	for _, s := range r.sessions {
		if s.Status == entity.SessionStatusRunning && s.UpdatedAt.Before(cutoff) {
			out = append(out, *s)
		}
	}
	return out, nil
}

type fakeLogRepo struct {
	mu     sync.Mutex
	nextID uint
	logs   []entity.SessionLog
}

func newFakeLogRepo() *fakeLogRepo {
	return &fakeLogRepo{}
}

func (r *fakeLogRepo) Append(_ context.Context, sessionID string, level entity.LogLevel, message string, _ map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	r.logs = append(r.logs, entity.SessionLog{
		ID:        r.nextID,
		SessionID: sessionID,
		Ts:        time.Now(),
		Level:     level,
		Message:   message,
	})
	return nil
}

func (r *fakeLogRepo) FindBySession(_ context.Context, sessionID string, since *time.Time) ([]entity.SessionLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.SessionLog
	for _, log := range r.logs {
		if log.SessionID != sessionID {
			continue
		}
		if since != nil && !log.Ts.After(*since) {
			continue
		}
		out = append(out, log)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Ts.Equal(out[j].Ts) {
			return out[i].ID < out[j].ID
		}
		return out[i].Ts.Before(out[j].Ts)
	})
	return out, nil
}

func (r *fakeLogRepo) levels(sessionID string) []entity.LogLevel {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.LogLevel
	for _, log := range r.logs {
		if log.SessionID == sessionID {
			out = append(out, log.Level)
		}
	}
	return out
}

type fakeCompanyRepo struct {
	mu        sync.Mutex
	companies map[string]*entity.SessionCompany
	profiles  map[string]*entity.CompanyProfile
	sources   map[string][]entity.CompanySource
}

func newFakeCompanyRepo() *fakeCompanyRepo {
	return &fakeCompanyRepo{
		companies: make(map[string]*entity.SessionCompany),
		profiles:  make(map[string]*entity.CompanyProfile),
		sources:   make(map[string][]entity.CompanySource),
	}
}

func (r *fakeCompanyRepo) UpsertByName(_ context.Context, company *entity.SessionCompany) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.companies {
		if existing.SessionID == company.SessionID && strings.EqualFold(existing.Name, company.Name) {
			existing.Status = entity.CompanyStatusPending
			if company.Domain != "" {
				existing.Domain = company.Domain
			}
			if len(company.PrimaryTags) > 0 {
				existing.PrimaryTags = company.PrimaryTags
			}
			if company.Summary != "" {
				existing.Summary = company.Summary
			}
			*company = *existing
			return nil
		}
	}
	now := time.Now()
	company.CreatedAt = now
	company.UpdatedAt = now
	clone := *company
	r.companies[company.ID] = &clone
	return nil
}

func (r *fakeCompanyRepo) FindByID(_ context.Context, id string) (*entity.SessionCompany, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	company, ok := r.companies[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *company
	return &clone, nil
}

func (r *fakeCompanyRepo) FindBySession(_ context.Context, sessionID string) ([]entity.SessionCompany, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.SessionCompany
	for _, c := range r.companies {
		if c.SessionID == sessionID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeCompanyRepo) Update(_ context.Context, company *entity.SessionCompany) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.companies[company.ID]; !ok {
		return repository.ErrNotFound
	}
	company.UpdatedAt = time.Now()
	clone := *company
	r.companies[company.ID] = &clone
	return nil
}

func (r *fakeCompanyRepo) SetStatus(_ context.Context, id string, status entity.CompanyStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	company, ok := r.companies[id]
	if !ok {
		return repository.ErrNotFound
	}
	company.Status = status
	company.UpdatedAt = time.Now()
	return nil
}

func (r *fakeCompanyRepo) SaveProfile(_ context.Context, profile *entity.CompanyProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *profile
	r.profiles[profile.CompanyID] = &clone
	return nil
}

func (r *fakeCompanyRepo) FindProfile(_ context.Context, companyID string) (*entity.CompanyProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	profile, ok := r.profiles[companyID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *profile
	return &clone, nil
}

func (r *fakeCompanyRepo) AddSources(_ context.Context, companyID string, sources []entity.CompanySource) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing := make(map[string]bool)
	for _, src := range r.sources[companyID] {
		existing[src.URL] = true
	}
	for _, src := range sources {
		if src.URL == "" || existing[src.URL] {
			continue
		}
		existing[src.URL] = true
		r.sources[companyID] = append(r.sources[companyID], src)
	}
	return nil
}

func (r *fakeCompanyRepo) FindSources(_ context.Context, companyID string) ([]entity.CompanySource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]entity.CompanySource(nil), r.sources[companyID]...), nil
}

type fakeTrendRepo struct {
	mu     sync.Mutex
	trends []entity.TrendAnalysis
}

func newFakeTrendRepo() *fakeTrendRepo {
	return &fakeTrendRepo{}
}

func (r *fakeTrendRepo) Create(_ context.Context, trend *entity.TrendAnalysis) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if trend.CreatedAt.IsZero() {
		trend.CreatedAt = time.Now()
	}
	r.trends = append(r.trends, *trend)
	return nil
}

func (r *fakeTrendRepo) FindLatest(_ context.Context, sessionID string) (*entity.TrendAnalysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *entity.TrendAnalysis
	for i := range r.trends {
		t := &r.trends[i]
		if t.SessionID != sessionID {
			continue
		}
		if latest == nil || t.CreatedAt.After(latest.CreatedAt) {
			latest = t
		}
	}
	if latest == nil {
		return nil, repository.ErrNotFound
	}
	clone := *latest
	return &clone, nil
}

// fakeAIRepo replays scripted responses in order; when the script runs out
// the last entry repeats. A non-nil err fails every call.
type fakeAIRepo struct {
	mu        sync.Mutex
	responses []string
	err       error
	calls     int
	perCall   func(call int) (string, error)
}

func (r *fakeAIRepo) Generate(_ context.Context, _, _ string, _ int) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	call := r.calls
	r.calls++
	if r.perCall != nil {
		return r.perCall(call)
	}
	if r.err != nil {
		return "", r.err
	}
	if len(r.responses) == 0 {
		return "", errors.New("no scripted response")
	}
	if call >= len(r.responses) {
		call = len(r.responses) - 1
	}
	return r.responses[call], nil
}

type fakeSearchRepo struct {
	results []dto.SearchResult
}

func (r *fakeSearchRepo) Search(_ context.Context, _ string, limit int) ([]dto.SearchResult, error) {
	if limit < len(r.results) {
		return append([]dto.SearchResult(nil), r.results[:limit]...), nil
	}
	return append([]dto.SearchResult(nil), r.results...), nil
}

// fakeProfiler marks companies COMPLETE unless their name is scripted to
// fail or panic.
type fakeProfiler struct {
	failNames  map[string]error
	panicNames map[string]bool
	profiled   []string
}

func (p *fakeProfiler) Profile(_ context.Context, company *entity.SessionCompany, _ string) error {
	if p.panicNames[company.Name] {
		panic("profiler blew up on " + company.Name)
	}
	if err, ok := p.failNames[company.Name]; ok {
		return err
	}
	p.profiled = append(p.profiled, company.Name)
	company.Status = entity.CompanyStatusComplete
	return nil
}

type fakeDispatcher struct {
	mu       sync.Mutex
	err      error
	enqueued []string
}

func (d *fakeDispatcher) Enqueue(_ context.Context, sessionID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.enqueued = append(d.enqueued, sessionID)
	return nil
}
