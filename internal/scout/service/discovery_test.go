package service

import (
	"context"
	"errors"
	"testing"

	"edtech-market-scout/internal/scout/dto"
	"edtech-market-scout/internal/scout/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverParsesModelOutput(t *testing.T) {
	aiRepo := &fakeAIRepo{responses: []string{"```json\n" + `[
		{"name": "Moodle", "domain": "moodle.org", "description": "Open-source LMS", "tags": ["LMS", "Open Source"]},
		{"name": "Canvas", "domain": "instructure.com", "description": "Cloud LMS", "tags": ["LMS"]}
	]` + "\n```"}}
	searchRepo := &fakeSearchRepo{results: []dto.SearchResult{
		{Title: "Top LMS platforms", URL: "https://example.com/lms", Snippet: "Moodle and Canvas lead the market"},
	}}
	svc := NewDiscoveryService(testConfig(), testLogger(t), aiRepo, searchRepo)

	companies, fallback := svc.Discover(context.Background(), "lms platforms", 5)

	assert.False(t, fallback)
	require.Len(t, companies, 2)
	assert.Equal(t, "Moodle", companies[0].Name)
	assert.Equal(t, "moodle.org", companies[0].Domain)
	assert.Equal(t, []string{"LMS", "Open Source"}, companies[0].Tags)
	assert.Equal(t, "Canvas", companies[1].Name)
}

func TestDiscoverAcceptsWrappedObject(t *testing.T) {
	aiRepo := &fakeAIRepo{responses: []string{`{"companies": [{"name": "Moodle"}]}`}}
	svc := NewDiscoveryService(testConfig(), testLogger(t), aiRepo, &fakeSearchRepo{})

	companies, fallback := svc.Discover(context.Background(), "lms platforms", 5)

	assert.False(t, fallback)
	require.Len(t, companies, 1)
	assert.Equal(t, "Moodle", companies[0].Name)
}

func TestDiscoverDedupesNamesCaseInsensitively(t *testing.T) {
	aiRepo := &fakeAIRepo{responses: []string{`[
		{"name": "Moodle"},
		{"name": "MOODLE"},
		{"name": "  "},
		{"name": "Canvas"}
	]`}}
	svc := NewDiscoveryService(testConfig(), testLogger(t), aiRepo, &fakeSearchRepo{})

	companies, fallback := svc.Discover(context.Background(), "lms platforms", 5)

	assert.False(t, fallback)
	require.Len(t, companies, 2)
	assert.Equal(t, "Moodle", companies[0].Name)
	assert.Equal(t, "Canvas", companies[1].Name)
}

func TestDiscoverTruncatesToMaxCompanies(t *testing.T) {
	aiRepo := &fakeAIRepo{responses: []string{`[
		{"name": "A"}, {"name": "B"}, {"name": "C"}, {"name": "D"}
	]`}}
	svc := NewDiscoveryService(testConfig(), testLogger(t), aiRepo, &fakeSearchRepo{})

	companies, _ := svc.Discover(context.Background(), "lms platforms", 2)

	assert.Len(t, companies, 2)
}

func TestDiscoverFallbackOnModelError(t *testing.T) {
	aiRepo := &fakeAIRepo{err: repository.ErrAIUnavailable}
	svc := NewDiscoveryService(testConfig(), testLogger(t), aiRepo, &fakeSearchRepo{})

	companies, fallback := svc.Discover(context.Background(), "language learning apps", 5)

	assert.True(t, fallback)
	require.NotEmpty(t, companies)
	assert.Equal(t, "Language Learning Apps Group", companies[0].Name)
	for _, c := range companies {
		assert.NotEmpty(t, c.Name)
	}
}

func TestDiscoverFallbackOnUnparseableOutput(t *testing.T) {
	aiRepo := &fakeAIRepo{responses: []string{"I could not find any companies, sorry!"}}
	svc := NewDiscoveryService(testConfig(), testLogger(t), aiRepo, &fakeSearchRepo{})

	companies, fallback := svc.Discover(context.Background(), "proctoring", 5)

	assert.True(t, fallback)
	assert.NotEmpty(t, companies)
}

func TestDiscoverFallbackRespectsMaxCompanies(t *testing.T) {
	aiRepo := &fakeAIRepo{err: errors.New("provider down")}
	svc := NewDiscoveryService(testConfig(), testLogger(t), aiRepo, &fakeSearchRepo{})

	companies, fallback := svc.Discover(context.Background(), "tutoring", 2)

	assert.True(t, fallback)
	assert.Len(t, companies, 2)
}

func TestParseDiscoveryResponseRejectsGarbage(t *testing.T) {
	_, err := parseDiscoveryResponse("not json at all")
	assert.Error(t, err)
}
