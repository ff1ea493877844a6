package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"edtech-market-scout/internal/scout/config"
	"edtech-market-scout/internal/scout/dto"
	"edtech-market-scout/internal/scout/repository"
	"edtech-market-scout/pkg/logger"
	"edtech-market-scout/pkg/utils"
)

const (
	maxSearchResults  = 15
	maxSnippetLength  = 300
	discoverySystem   = "You are a market research assistant specialized in the education technology industry. You only report companies that are supported by the provided evidence or that you are certain exist. You never invent companies. You answer with strict JSON and nothing else."
	placeholderSuffix = "Group Labs Systems"
)

// DiscoveryService maps a market segment to a set of candidate companies.
type DiscoveryService interface {
	// Discover returns 1..maxCompanies candidates for the segment. The
	// boolean reports whether the deterministic fallback set was used
	// because no usable model output could be obtained. The result is
	// never empty.
	Discover(ctx context.Context, segment string, maxCompanies int) ([]dto.DiscoveredCompany, bool)
}

type discoveryService struct {
	cfg        *config.Config
	log        *logger.Logger
	aiRepo     repository.AIRepository
	searchRepo repository.SearchRepository
}

// NewDiscoveryService creates a new DiscoveryService.
func NewDiscoveryService(cfg *config.Config, log *logger.Logger, aiRepo repository.AIRepository, searchRepo repository.SearchRepository) DiscoveryService {
	return &discoveryService{
		cfg:        cfg,
		log:        log,
		aiRepo:     aiRepo,
		searchRepo: searchRepo,
	}
}

func (s *discoveryService) Discover(ctx context.Context, segment string, maxCompanies int) ([]dto.DiscoveredCompany, bool) {
	results := s.gatherEvidence(ctx, segment)

	raw, err := s.aiRepo.Generate(ctx, discoverySystem, s.buildPrompt(segment, maxCompanies, results), s.cfg.LLM.MaxOutputTokens)
	if err != nil {
		s.log.Warn("Discovery model call failed, using fallback candidates", logger.ErrorField(err), logger.StringField("segment", segment))
		return s.fallbackCandidates(segment, maxCompanies), true
	}

	companies, err := parseDiscoveryResponse(raw)
	if err != nil {
		s.log.Warn("Discovery response unparseable, using fallback candidates", logger.ErrorField(err), logger.StringField("segment", segment))
		return s.fallbackCandidates(segment, maxCompanies), true
	}

	companies = dedupeByName(companies)
	if len(companies) == 0 {
		s.log.Warn("Discovery produced no usable candidates, using fallback", logger.StringField("segment", segment))
		return s.fallbackCandidates(segment, maxCompanies), true
	}

	if len(companies) > maxCompanies {
		companies = companies[:maxCompanies]
	}
	return companies, false
}

// gatherEvidence issues diversified search queries and collects up to
// maxSearchResults hits deduplicated by URL. Failed queries are skipped.
func (s *discoveryService) gatherEvidence(ctx context.Context, segment string) []dto.SearchResult {
	queries := []string{
		fmt.Sprintf("%s companies list", segment),
		fmt.Sprintf("top %s companies", segment),
		fmt.Sprintf("%s market competitors edtech", segment),
	}

	seen := make(map[string]bool)
	collected := make([]dto.SearchResult, 0, maxSearchResults)
	for _, query := range queries {
		if len(collected) >= maxSearchResults {
			break
		}
		hits, err := s.searchRepo.Search(ctx, query, 5)
		if err != nil {
			s.log.Warn("Discovery search query failed", logger.ErrorField(err), logger.StringField("query", query))
			continue
		}
		for _, hit := range hits {
			if seen[hit.URL] || len(collected) >= maxSearchResults {
				continue
			}
			seen[hit.URL] = true
			hit.Snippet = utils.TruncateString(hit.Snippet, maxSnippetLength)
			collected = append(collected, hit)
		}
	}
	return collected
}

func (s *discoveryService) buildPrompt(segment string, maxCompanies int, results []dto.SearchResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Identify up to %d real companies operating in the %q education technology segment.\n\n", maxCompanies, segment)
	if len(results) > 0 {
		b.WriteString("Search evidence:\n")
		for i, r := range results {
			fmt.Fprintf(&b, "%d. %s (%s)\n   %s\n", i+1, r.Title, r.URL, r.Snippet)
		}
		b.WriteString("\n")
	}
	b.WriteString("Rules:\n")
	b.WriteString("- Only include companies that appear in the evidence above or that you are certain exist.\n")
	b.WriteString("- Never invent a company.\n")
	b.WriteString("- For each company provide: name (required), domain, description, tags (list of strings).\n")
	b.WriteString("- Respond with a JSON array only. No markdown, no explanations.\n")
	b.WriteString(`Example: [{"name":"Acme Learning","domain":"acmelearning.com","description":"...","tags":["LMS"]}]`)
	return b.String()
}

// parseDiscoveryResponse accepts either a bare JSON array or an object
// wrapping it under "companies". Entries without a name are dropped.
func parseDiscoveryResponse(raw string) ([]dto.DiscoveredCompany, error) {
	cleaned := utils.CleanJSONResponse(raw)

	var companies []dto.DiscoveredCompany
	if err := json.Unmarshal([]byte(cleaned), &companies); err != nil {
		var wrapped struct {
			Companies []dto.DiscoveredCompany `json:"companies"`
		}
		if wrapErr := json.Unmarshal([]byte(cleaned), &wrapped); wrapErr != nil {
			return nil, fmt.Errorf("failed to parse discovery response: %w", err)
		}
		companies = wrapped.Companies
	}

	valid := make([]dto.DiscoveredCompany, 0, len(companies))
	for _, c := range companies {
		c.Name = strings.TrimSpace(c.Name)
		if c.Name == "" {
			continue
		}
		valid = append(valid, c)
	}
	return valid, nil
}

func dedupeByName(companies []dto.DiscoveredCompany) []dto.DiscoveredCompany {
	seen := make(map[string]bool)
	out := make([]dto.DiscoveredCompany, 0, len(companies))
	for _, c := range companies {
		key := strings.ToLower(c.Name)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}

// fallbackCandidates builds deterministic placeholder entries so profiling
// always has something to operate on. They carry no domain and are marked
// low reliability downstream.
func (s *discoveryService) fallbackCandidates(segment string, maxCompanies int) []dto.DiscoveredCompany {
	title := titleCase(segment)
	suffixes := strings.Fields(placeholderSuffix)
	candidates := make([]dto.DiscoveredCompany, 0, len(suffixes))
	for _, suffix := range suffixes {
		candidates = append(candidates, dto.DiscoveredCompany{
			Name:        fmt.Sprintf("%s %s", title, suffix),
			Description: fmt.Sprintf("Placeholder candidate for the %s segment.", segment),
		})
	}
	if len(candidates) > maxCompanies {
		candidates = candidates[:maxCompanies]
	}
	return candidates
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
