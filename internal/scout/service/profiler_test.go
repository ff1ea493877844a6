package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"edtech-market-scout/internal/entity"
	"edtech-market-scout/internal/scout/dto"
	"edtech-market-scout/internal/scout/repository"

	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingTransport struct{}

func (failingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return nil, errors.New("offline")
}

func newTestProfiler(t *testing.T, aiRepo repository.AIRepository, searchRepo repository.SearchRepository, companyRepo repository.SessionCompanyRepository) *profilerService {
	t.Helper()
	feedParser := gofeed.NewParser()
	feedParser.Client = &http.Client{Transport: failingTransport{}}
	return &profilerService{
		cfg:         testConfig(),
		log:         testLogger(t),
		aiRepo:      aiRepo,
		searchRepo:  searchRepo,
		companyRepo: companyRepo,
		client:      &http.Client{Timeout: testConfig().Scout.WebsiteFetchTimeout},
		feedParser:  feedParser,
	}
}

func seedCompany(t *testing.T, repo *fakeCompanyRepo, name, domain string) *entity.SessionCompany {
	t.Helper()
	company := &entity.SessionCompany{
		ID:        uuid.NewString(),
		SessionID: uuid.NewString(),
		Name:      name,
		Domain:    domain,
		Status:    entity.CompanyStatusPending,
	}
	require.NoError(t, repo.UpsertByName(context.Background(), company))
	return company
}

const profileJSON = `{
	"summary": "Leading open-source LMS.",
	"score_analysis": "Strong adoption.",
	"market_position": "Category leader.",
	"background": "Founded in Australia.",
	"recent_developments": "New mobile app.",
	"products_services": ["LMS", "Hosting"],
	"scale_reach": "Global.",
	"strategic_notes": "Watch pricing.",
	"score": 82,
	"founded_year": 2002,
	"employees": 250,
	"hq_city": "Perth",
	"hq_country": "Australia",
	"primary_tags": ["LMS", "Open Source"],
	"sources": [
		{"url": "https://example.com/a", "label": "Profile", "source_type": "web"},
		{"url": "https://example.com/b", "label": "News", "source_type": "news"},
		{"url": "https://example.com/c", "label": "Docs", "source_type": "official_site"}
	]
}`

func TestProfilePersistsModelOutput(t *testing.T) {
	companyRepo := newFakeCompanyRepo()
	company := seedCompany(t, companyRepo, "Moodle", "")
	svc := newTestProfiler(t, &fakeAIRepo{responses: []string{profileJSON}}, &fakeSearchRepo{}, companyRepo)

	err := svc.Profile(context.Background(), company, "lms platforms")
	require.NoError(t, err)

	assert.Equal(t, entity.CompanyStatusComplete, company.Status)
	assert.NotNil(t, company.LastVerifiedAt)
	require.NotNil(t, company.Score)
	assert.Equal(t, 82, *company.Score)
	assert.Equal(t, "Perth", company.HQCity)
	assert.Equal(t, entity.ReliabilityMedium, company.DataReliability)

	profile, err := companyRepo.FindProfile(context.Background(), company.ID)
	require.NoError(t, err)
	assert.Equal(t, "Leading open-source LMS.", profile.Summary)
	assert.Equal(t, "LMS; Hosting", profile.ProductsServices)

	sources, err := companyRepo.FindSources(context.Background(), company.ID)
	require.NoError(t, err)
	assert.Len(t, sources, 3)
}

func TestProfileToleratesUnreachableWebsite(t *testing.T) {
	companyRepo := newFakeCompanyRepo()
	company := seedCompany(t, companyRepo, "Moodle", "127.0.0.1:1")
	svc := newTestProfiler(t, &fakeAIRepo{responses: []string{profileJSON}}, &fakeSearchRepo{}, companyRepo)

	err := svc.Profile(context.Background(), company, "lms platforms")
	require.NoError(t, err)
	assert.Equal(t, entity.CompanyStatusComplete, company.Status)
}

func TestProfileFetchesWebsiteContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><script>var x=1;</script></head><body><article><p>Moodle is a learning platform designed to provide educators with a single robust system.</p><p>It powers tens of thousands of learning environments globally and is trusted by institutions large and small.</p></article></body></html>`))
	}))
	defer server.Close()

	companyRepo := newFakeCompanyRepo()
	company := seedCompany(t, companyRepo, "Moodle", server.URL)
	svc := newTestProfiler(t, &fakeAIRepo{responses: []string{profileJSON}}, &fakeSearchRepo{}, companyRepo)

	text := svc.fetchWebsite(context.Background(), company.Domain)
	assert.Contains(t, text, "learning platform")
	assert.NotContains(t, text, "var x=1")
}

func TestProfileStoresPlaceholderOnUnparseableResponse(t *testing.T) {
	companyRepo := newFakeCompanyRepo()
	company := seedCompany(t, companyRepo, "Moodle", "")
	svc := newTestProfiler(t, &fakeAIRepo{responses: []string{"sorry, I cannot help with that"}}, &fakeSearchRepo{}, companyRepo)

	err := svc.Profile(context.Background(), company, "lms platforms")
	require.NoError(t, err)

	assert.Equal(t, entity.CompanyStatusComplete, company.Status)
	assert.Equal(t, entity.ReliabilityLow, company.DataReliability)

	profile, err := companyRepo.FindProfile(context.Background(), company.ID)
	require.NoError(t, err)
	assert.Contains(t, profile.Summary, "Insufficient public data")

	sources, err := companyRepo.FindSources(context.Background(), company.ID)
	require.NoError(t, err)
	assert.Empty(t, sources)
}

func TestProfileReturnsErrorOnModelFailure(t *testing.T) {
	companyRepo := newFakeCompanyRepo()
	company := seedCompany(t, companyRepo, "Moodle", "")
	svc := newTestProfiler(t, &fakeAIRepo{err: repository.ErrAIUnavailable}, &fakeSearchRepo{}, companyRepo)

	err := svc.Profile(context.Background(), company, "lms platforms")
	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrAIUnavailable)
	assert.Equal(t, entity.CompanyStatusPending, company.Status)
}

func TestCollectSourcesDedupesAndCaps(t *testing.T) {
	result := &dto.CompanyProfileResult{}
	for i := 0; i < 12; i++ {
		result.Sources = append(result.Sources, dto.ProfileSource{URL: "https://example.com/" + strings.Repeat("x", i+1)})
	}
	result.Sources = append(result.Sources, dto.ProfileSource{URL: ""})
	result.Sources = append(result.Sources, dto.ProfileSource{URL: result.Sources[0].URL})

	sources := collectSources(result, []dto.ProfileSource{{URL: "https://news.example.com/1", SourceType: "news"}})

	assert.Len(t, sources, maxSourcesPerPass)
	seen := make(map[string]bool)
	for _, src := range sources {
		assert.False(t, seen[src.URL])
		seen[src.URL] = true
	}
}

func TestReliabilityFromSources(t *testing.T) {
	assert.Equal(t, entity.ReliabilityLow, reliabilityFromSources(0))
	assert.Equal(t, entity.ReliabilityLow, reliabilityFromSources(2))
	assert.Equal(t, entity.ReliabilityMedium, reliabilityFromSources(3))
	assert.Equal(t, entity.ReliabilityMedium, reliabilityFromSources(4))
	assert.Equal(t, entity.ReliabilityHigh, reliabilityFromSources(5))
}
