package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"edtech-market-scout/internal/entity"
	"edtech-market-scout/internal/scout/config"
	"edtech-market-scout/internal/scout/dto"
	"edtech-market-scout/internal/scout/repository"
	"edtech-market-scout/pkg/logger"
	"edtech-market-scout/pkg/utils"

	"github.com/google/uuid"
)

const trendSystem = "You are a market research analyst summarizing trends in the education technology industry. You base your analysis only on the provided company data. You answer with strict JSON and nothing else."

// TrendService synthesizes the session-level trend narrative and bar
// dataset from the profiled company set.
type TrendService interface {
	// Synthesize writes a new TrendAnalysis row for the session. The
	// boolean reports whether the deterministic fallback was used because
	// the model output was unavailable or unparseable.
	Synthesize(ctx context.Context, sessionID, segment string, companies []entity.SessionCompany) (bool, error)
}

type trendService struct {
	cfg       *config.Config
	log       *logger.Logger
	aiRepo    repository.AIRepository
	trendRepo repository.TrendRepository
}

// NewTrendService creates a new TrendService.
func NewTrendService(cfg *config.Config, log *logger.Logger, aiRepo repository.AIRepository, trendRepo repository.TrendRepository) TrendService {
	return &trendService{
		cfg:       cfg,
		log:       log,
		aiRepo:    aiRepo,
		trendRepo: trendRepo,
	}
}

func (s *trendService) Synthesize(ctx context.Context, sessionID, segment string, companies []entity.SessionCompany) (bool, error) {
	result, fallback := s.generate(ctx, segment, companies)

	bars, err := json.Marshal(result.Bars)
	if err != nil {
		return fallback, fmt.Errorf("failed to marshal trend bars: %w", err)
	}

	trend := &entity.TrendAnalysis{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Overview:  result.Overview,
		Bars:      bars,
	}
	if err := s.trendRepo.Create(ctx, trend); err != nil {
		return fallback, fmt.Errorf("failed to store trend analysis: %w", err)
	}
	return fallback, nil
}

func (s *trendService) generate(ctx context.Context, segment string, companies []entity.SessionCompany) (*dto.TrendResult, bool) {
	raw, err := s.aiRepo.Generate(ctx, trendSystem, s.buildPrompt(segment, companies), s.cfg.LLM.MaxOutputTokens)
	if err != nil {
		s.log.Warn("Trend model call failed, using tag-impact fallback", logger.ErrorField(err), logger.StringField("segment", segment))
		return fallbackTrend(segment, companies), true
	}

	var result dto.TrendResult
	if err := json.Unmarshal([]byte(utils.CleanJSONResponse(raw)), &result); err != nil {
		s.log.Warn("Trend response unparseable, using tag-impact fallback", logger.ErrorField(err), logger.StringField("segment", segment))
		return fallbackTrend(segment, companies), true
	}
	if result.Overview == "" && len(result.Bars) == 0 {
		return fallbackTrend(segment, companies), true
	}
	return &result, false
}

func (s *trendService) buildPrompt(segment string, companies []entity.SessionCompany) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Summarize market trends in the %q education technology segment from these profiled companies:\n\n", segment)
	for _, c := range companies {
		fmt.Fprintf(&b, "- %s", c.Name)
		if len(c.PrimaryTags) > 0 {
			fmt.Fprintf(&b, " [%s]", strings.Join(c.PrimaryTags, ", "))
		}
		if c.Summary != "" {
			fmt.Fprintf(&b, ": %s", utils.TruncateString(c.Summary, 300))
		}
		b.WriteString("\n")
	}
	b.WriteString("\nRespond with one JSON object: {\"overview\": string (3-5 sentences), \"bars\": [{\"label\": string, \"impact\": int 0-100}]} with 3-6 bars for the most significant trends. JSON only, no markdown.")
	return b.String()
}

// fallbackTrend derives bars from tag frequency: the impact of a tag is the
// share of companies carrying it.
func fallbackTrend(segment string, companies []entity.SessionCompany) *dto.TrendResult {
	tagCounts := make(map[string]int)
	for _, c := range companies {
		for _, tag := range c.PrimaryTags {
			if tag != "" {
				tagCounts[tag]++
			}
		}
	}

	tags := make([]string, 0, len(tagCounts))
	for tag := range tagCounts {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool {
		if tagCounts[tags[i]] != tagCounts[tags[j]] {
			return tagCounts[tags[i]] > tagCounts[tags[j]]
		}
		return tags[i] < tags[j]
	})
	if len(tags) > 6 {
		tags = tags[:6]
	}

	bars := make([]dto.TrendBar, 0, len(tags))
	for _, tag := range tags {
		impact := 0
		if len(companies) > 0 {
			impact = tagCounts[tag] * 100 / len(companies)
		}
		bars = append(bars, dto.TrendBar{Label: tag, Impact: impact})
	}

	return &dto.TrendResult{
		Overview: fmt.Sprintf("Automated trend synthesis was unavailable for the %s segment. The bars below reflect how frequently each theme appears across the %d profiled companies.", segment, len(companies)),
		Bars:     bars,
	}
}
