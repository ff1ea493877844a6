package dto

import (
	"time"

	"edtech-market-scout/internal/entity"
)

// StartSessionRequest is the payload for starting a research session.
type StartSessionRequest struct {
	Segment      string `json:"segment"`
	MaxCompanies int    `json:"max_companies"`
}

// SessionListItem is the compact session row for list views.
type SessionListItem struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CompanyCard is the company summary embedded in a session detail view.
type CompanyCard struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Domain          string     `json:"domain,omitempty"`
	Score           *int       `json:"score,omitempty"`
	Status          string     `json:"status"`
	DataReliability string     `json:"data_reliability,omitempty"`
	LastVerifiedAt  *time.Time `json:"last_verified_at,omitempty"`
	FoundedYear     *int       `json:"founded_year,omitempty"`
	Employees       *int       `json:"employees,omitempty"`
	HQCity          string     `json:"hq_city,omitempty"`
	HQCountry       string     `json:"hq_country,omitempty"`
	PrimaryTags     []string   `json:"primary_tags"`
	Summary         string     `json:"summary,omitempty"`
}

// SessionResponse is the full session view returned to pollers.
type SessionResponse struct {
	ID             string         `json:"id"`
	Label          string         `json:"label"`
	Segment        string         `json:"segment,omitempty"`
	Status         string         `json:"status"`
	MaxCompanies   int            `json:"max_companies"`
	CompaniesFound int            `json:"companies_found"`
	Charts         *ChartsPayload `json:"charts,omitempty"`
	ScoringConfig  *ScoringConfig `json:"scoring_config,omitempty"`
	ErrorMessage   string         `json:"error_message,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	Companies      []CompanyCard  `json:"companies"`
}

// SessionLogItem is one progress event returned by the logs endpoint.
type SessionLogItem struct {
	ID      uint            `json:"id"`
	Ts      time.Time       `json:"ts"`
	Level   entity.LogLevel `json:"level"`
	Message string          `json:"message"`
	Meta    map[string]any  `json:"meta,omitempty"`
}

// ScoringCriterion is one user-adjustable scoring weight.
type ScoringCriterion struct {
	Key    string  `json:"key"`
	Label  string  `json:"label"`
	Weight float64 `json:"weight"`
}

// ScoringConfig is the weighting configuration attached to a session.
type ScoringConfig struct {
	Criteria []ScoringCriterion `json:"criteria"`
}

// TrendBar is one bar of the trend chart.
type TrendBar struct {
	Label  string `json:"label"`
	Impact int    `json:"impact"`
}

// TrendResponse is the latest trend analysis for a session.
type TrendResponse struct {
	Overview string     `json:"overview"`
	Bars     []TrendBar `json:"bars"`
}

// CompanySourceItem is one citation in a company profile view.
type CompanySourceItem struct {
	URL        string `json:"url"`
	Label      string `json:"label,omitempty"`
	SourceType string `json:"source_type,omitempty"`
}

// CompanyProfileResponse is the full company view including profile fields
// and sources.
type CompanyProfileResponse struct {
	CompanyCard
	ScoreAnalysis      string              `json:"score_analysis,omitempty"`
	MarketPosition     string              `json:"market_position,omitempty"`
	Background         string              `json:"background,omitempty"`
	RecentDevelopments string              `json:"recent_developments,omitempty"`
	ProductsServices   string              `json:"products_services,omitempty"`
	ScaleReach         string              `json:"scale_reach,omitempty"`
	StrategicNotes     string              `json:"strategic_notes,omitempty"`
	Sources            []CompanySourceItem `json:"sources"`
}
