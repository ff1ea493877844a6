package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"edtech-market-scout/internal/scout/config"
	"edtech-market-scout/internal/scout/dto"
	"edtech-market-scout/pkg/logger"
)

type tavilySearchRepository struct {
	client *http.Client
	cfg    *config.Config
	logger *logger.Logger
}

// NewTavilySearchRepository creates a SearchRepository backed by the
// Tavily search API.
func NewTavilySearchRepository(cfg *config.Config, log *logger.Logger) SearchRepository {
	return &tavilySearchRepository{
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		cfg:    cfg,
		logger: log,
	}
}

type tavilyRequest struct {
	APIKey      string `json:"api_key"`
	Query       string `json:"query"`
	SearchDepth string `json:"search_depth"`
	MaxResults  int    `json:"max_results"`
}

type tavilyResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

type tavilyResponse struct {
	Results []tavilyResult `json:"results"`
}

// Search queries the provider and returns up to limit results. Every
// failure mode, missing key included, yields an empty slice and a nil
// error: search results are advisory grounding and callers must keep
// working without them.
func (r *tavilySearchRepository) Search(ctx context.Context, query string, limit int) ([]dto.SearchResult, error) {
	if r.cfg.Search.APIKey == "" {
		r.logger.Warn("Search provider not configured, returning no results", logger.StringField("query", query))
		return nil, nil
	}

	payload := tavilyRequest{
		APIKey:      r.cfg.Search.APIKey,
		Query:       query,
		SearchDepth: "advanced",
		MaxResults:  limit,
	}

	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		r.logger.Warn("Failed to marshal search payload", logger.ErrorField(err))
		return nil, nil
	}

	req, err := http.NewRequestWithContext(ctx, "POST", r.cfg.Search.BaseURL, bytes.NewBuffer(jsonPayload))
	if err != nil {
		r.logger.Warn("Failed to create search request", logger.ErrorField(err))
		return nil, nil
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Warn("Search request failed", logger.ErrorField(err), logger.StringField("query", query))
		return nil, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		r.logger.Warn("Search returned non-OK status",
			logger.IntField("status_code", resp.StatusCode),
			logger.StringField("query", query),
		)
		return nil, nil
	}

	var searchResp tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		r.logger.Warn("Failed to decode search response", logger.ErrorField(err))
		return nil, nil
	}

	results := make([]dto.SearchResult, 0, len(searchResp.Results))
	for _, item := range searchResp.Results {
		if item.URL == "" {
			continue
		}
		results = append(results, dto.SearchResult{
			Title:   item.Title,
			URL:     item.URL,
			Snippet: item.Content,
		})
	}
	return results, nil
}
