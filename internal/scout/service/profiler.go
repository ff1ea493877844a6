package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"edtech-market-scout/internal/entity"
	"edtech-market-scout/internal/scout/config"
	"edtech-market-scout/internal/scout/dto"
	"edtech-market-scout/internal/scout/repository"
	"edtech-market-scout/pkg/logger"
	"edtech-market-scout/pkg/utils"

	"github.com/PuerkitoBio/goquery"
	"github.com/mauidude/go-readability"
	"github.com/mmcdole/gofeed"
)

const (
	websiteContentBudget = 3000
	profileContextBudget = 8000
	maxNewsSources       = 3
	maxSourcesPerPass    = 10

	profilerSystem = "You are a market research analyst profiling education technology companies. You cross-reference facts across at least two sources before stating them, and you set a field to null when you are not certain rather than fabricating. You answer with strict JSON and nothing else."

	insufficientDataText = "Insufficient public data was found to build a reliable profile for this company."
)

// ProfilerService produces a structured profile and citation set for a
// single candidate company. Any returned error is isolated per company by
// the orchestrator.
type ProfilerService interface {
	Profile(ctx context.Context, company *entity.SessionCompany, segment string) error
}

type profilerService struct {
	cfg         *config.Config
	log         *logger.Logger
	aiRepo      repository.AIRepository
	searchRepo  repository.SearchRepository
	companyRepo repository.SessionCompanyRepository
	client      *http.Client
	feedParser  *gofeed.Parser
}

// NewProfilerService creates a new ProfilerService.
func NewProfilerService(cfg *config.Config, log *logger.Logger, aiRepo repository.AIRepository, searchRepo repository.SearchRepository, companyRepo repository.SessionCompanyRepository) ProfilerService {
	return &profilerService{
		cfg:         cfg,
		log:         log,
		aiRepo:      aiRepo,
		searchRepo:  searchRepo,
		companyRepo: companyRepo,
		client:      &http.Client{Timeout: cfg.Scout.WebsiteFetchTimeout},
		feedParser:  gofeed.NewParser(),
	}
}

func (s *profilerService) Profile(ctx context.Context, company *entity.SessionCompany, segment string) error {
	evidence, newsSources := s.gatherContext(ctx, company, segment)

	result, degraded, err := s.generateProfile(ctx, company, segment, evidence)
	if err != nil {
		return err
	}

	var sources []dto.ProfileSource
	if !degraded {
		sources = collectSources(result, newsSources)
	}
	result.DataReliability = string(reliabilityFromSources(len(sources)))

	if err := s.persist(ctx, company, result, sources); err != nil {
		return fmt.Errorf("failed to persist profile for %s: %w", company.Name, err)
	}
	return nil
}

// generateProfile calls the model and parses its answer. A model failure
// is returned as an error; a successful call with unparseable JSON degrades
// to the insufficient-data placeholder (reported by the bool) instead.
func (s *profilerService) generateProfile(ctx context.Context, company *entity.SessionCompany, segment, evidence string) (*dto.CompanyProfileResult, bool, error) {
	raw, err := s.aiRepo.Generate(ctx, profilerSystem, s.buildPrompt(company, segment, evidence), s.cfg.LLM.MaxOutputTokens)
	if err != nil {
		return nil, false, fmt.Errorf("profile generation failed for %s: %w", company.Name, err)
	}

	var result dto.CompanyProfileResult
	if err := json.Unmarshal([]byte(utils.CleanJSONResponse(raw)), &result); err != nil {
		s.log.Warn("Profile response unparseable, storing insufficient-data profile",
			logger.ErrorField(err), logger.StringField("company", company.Name))
		return &dto.CompanyProfileResult{Summary: insufficientDataText}, true, nil
	}
	return &result, false, nil
}

// gatherContext assembles the evidence block: search snippets, the
// company's own website reduced to text, and recent news headlines. Every
// lookup failure yields empty input, never an error.
func (s *profilerService) gatherContext(ctx context.Context, company *entity.SessionCompany, segment string) (string, []dto.ProfileSource) {
	var parts []string

	queries := []string{
		fmt.Sprintf("%s company profile", company.Name),
		fmt.Sprintf("%s products services", company.Name),
		fmt.Sprintf("%s %s background", company.Name, segment),
	}
	for _, query := range queries {
		hits, err := s.searchRepo.Search(ctx, query, 3)
		if err != nil {
			s.log.Warn("Profile search query failed", logger.ErrorField(err), logger.StringField("query", query))
			continue
		}
		for _, hit := range hits {
			parts = append(parts, fmt.Sprintf("[%s] %s: %s", hit.URL, hit.Title, utils.TruncateString(hit.Snippet, maxSnippetLength)))
		}
	}

	if company.Domain != "" {
		if text := s.fetchWebsite(ctx, company.Domain); text != "" {
			parts = append(parts, fmt.Sprintf("Official website (%s):\n%s", company.Domain, text))
		}
	}

	newsItems, newsSources := s.fetchNews(ctx, company.Name)
	parts = append(parts, newsItems...)

	return utils.TruncateString(strings.Join(parts, "\n\n"), profileContextBudget), newsSources
}

// fetchWebsite downloads the company homepage and reduces it to plain
// text. Any failure returns an empty string.
func (s *profilerService) fetchWebsite(ctx context.Context, domain string) string {
	url := domain
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "https://" + url
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		s.log.Warn("Failed to create website request", logger.ErrorField(err), logger.StringField("url", url))
		return ""
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := s.client.Do(req)
	if err != nil {
		s.log.Warn("Failed to fetch website", logger.ErrorField(err), logger.StringField("url", url))
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.log.Warn("Website fetch returned non-200 status", logger.IntField("status", resp.StatusCode), logger.StringField("url", url))
		return ""
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		s.log.Warn("Failed to read website body", logger.ErrorField(err), logger.StringField("url", url))
		return ""
	}

	doc, err := readability.NewDocument(string(body))
	if err != nil {
		s.log.Warn("Failed to extract website content", logger.ErrorField(err), logger.StringField("url", url))
		return ""
	}
	htmlDoc, err := goquery.NewDocumentFromReader(strings.NewReader(doc.Content()))
	if err != nil {
		s.log.Warn("Failed to parse website content", logger.ErrorField(err), logger.StringField("url", url))
		return ""
	}

	return utils.TruncateString(utils.CollapseWhitespace(htmlDoc.Text()), websiteContentBudget)
}

// fetchNews pulls recent headlines for the company from Google News RSS,
// contributing context lines plus up to maxNewsSources citation rows.
func (s *profilerService) fetchNews(ctx context.Context, name string) ([]string, []dto.ProfileSource) {
	url := fmt.Sprintf("https://news.google.com/rss/search?q=%s&hl=en-US&gl=US&ceid=US:en", strings.ReplaceAll(name, " ", "+"))
	feed, err := s.feedParser.ParseURLWithContext(url, ctx)
	if err != nil {
		s.log.Warn("Failed to parse news feed", logger.ErrorField(err), logger.StringField("company", name))
		return nil, nil
	}

	var lines []string
	var sources []dto.ProfileSource
	for _, item := range feed.Items {
		if len(sources) >= maxNewsSources {
			break
		}
		if item.Link == "" || item.Title == "" {
			continue
		}
		published := ""
		if item.PublishedParsed != nil {
			published = item.PublishedParsed.Format("2006-01-02")
		}
		lines = append(lines, fmt.Sprintf("News %s: %s", published, item.Title))
		sources = append(sources, dto.ProfileSource{
			URL:        item.Link,
			Label:      utils.TruncateString(item.Title, 200),
			SourceType: "news",
		})
	}
	return lines, sources
}

func (s *profilerService) buildPrompt(company *entity.SessionCompany, segment, evidence string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Build a structured research profile of the company %q", company.Name)
	if company.Domain != "" {
		fmt.Fprintf(&b, " (%s)", company.Domain)
	}
	fmt.Fprintf(&b, " in the %q education technology segment.\n\n", segment)
	if evidence != "" {
		b.WriteString("Evidence:\n")
		b.WriteString(evidence)
		b.WriteString("\n\n")
	}
	b.WriteString("Respond with one JSON object with exactly these keys:\n")
	b.WriteString(`{"summary": string, "score_analysis": string, "market_position": string, "background": string, "recent_developments": string, "products_services": [string], "scale_reach": string, "strategic_notes": string, "score": int 0-100 or null, "founded_year": int or null, "employees": int or null, "hq_city": string or null, "hq_country": string or null, "primary_tags": [string], "sources": [{"url": string, "label": string, "source_type": string}]}`)
	b.WriteString("\nSet a field to null when the evidence does not support it. JSON only, no markdown.")
	return b.String()
}

// collectSources merges model-claimed citations with the news feed hits,
// dropping empty and duplicate URLs and capping the per-pass total.
func collectSources(result *dto.CompanyProfileResult, newsSources []dto.ProfileSource) []dto.ProfileSource {
	seen := make(map[string]bool)
	merged := make([]dto.ProfileSource, 0, len(result.Sources)+len(newsSources))
	for _, src := range append(result.Sources, newsSources...) {
		url := strings.TrimSpace(src.URL)
		if url == "" || seen[url] {
			continue
		}
		seen[url] = true
		src.URL = url
		merged = append(merged, src)
		if len(merged) >= maxSourcesPerPass {
			break
		}
	}
	return merged
}

func reliabilityFromSources(count int) entity.DataReliability {
	switch {
	case count >= 5:
		return entity.ReliabilityHigh
	case count >= 3:
		return entity.ReliabilityMedium
	default:
		return entity.ReliabilityLow
	}
}

func (s *profilerService) persist(ctx context.Context, company *entity.SessionCompany, result *dto.CompanyProfileResult, sources []dto.ProfileSource) error {
	profile := &entity.CompanyProfile{
		CompanyID:          company.ID,
		Summary:            result.Summary,
		ScoreAnalysis:      result.ScoreAnalysis,
		MarketPosition:     result.MarketPosition,
		Background:         result.Background,
		RecentDevelopments: result.RecentDevelopments,
		ProductsServices:   strings.Join(result.ProductsServices, "; "),
		ScaleReach:         result.ScaleReach,
		StrategicNotes:     result.StrategicNotes,
	}
	if err := s.companyRepo.SaveProfile(ctx, profile); err != nil {
		return err
	}

	if len(sources) > 0 {
		rows := make([]entity.CompanySource, 0, len(sources))
		for _, src := range sources {
			rows = append(rows, entity.CompanySource{
				CompanyID:  company.ID,
				URL:        src.URL,
				Label:      src.Label,
				SourceType: src.SourceType,
			})
		}
		if err := s.companyRepo.AddSources(ctx, company.ID, rows); err != nil {
			return err
		}
	}

	now := time.Now()
	company.Status = entity.CompanyStatusComplete
	company.LastVerifiedAt = &now
	company.DataReliability = reliabilityFromSources(len(sources))
	if result.Summary != "" {
		company.Summary = result.Summary
	}
	if result.Score != nil {
		company.Score = result.Score
	}
	if result.FoundedYear != nil {
		company.FoundedYear = result.FoundedYear
	}
	if result.Employees != nil {
		company.Employees = result.Employees
	}
	if result.HQCity != "" {
		company.HQCity = result.HQCity
	}
	if result.HQCountry != "" {
		company.HQCountry = result.HQCountry
	}
	if len(result.PrimaryTags) > 0 {
		company.PrimaryTags = result.PrimaryTags
	}
	return s.companyRepo.Update(ctx, company)
}
