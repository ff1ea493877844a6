package entity

import (
	"time"

	"github.com/lib/pq"
)

// CompanyStatus is the per-candidate profiling state. A company starts
// PENDING and ends in exactly one of COMPLETE or FAILED.
type CompanyStatus string

const (
	CompanyStatusPending  CompanyStatus = "PENDING"
	CompanyStatusComplete CompanyStatus = "COMPLETE"
	CompanyStatusFailed   CompanyStatus = "FAILED"
)

// DataReliability is a coarse confidence tier derived from how many
// corroborating sources backed a profile.
type DataReliability string

const (
	ReliabilityLow    DataReliability = "low"
	ReliabilityMedium DataReliability = "medium"
	ReliabilityHigh   DataReliability = "high"
)

// SessionCompany is a competitor discovered within one research session.
// Name is unique per session, case-insensitive.
type SessionCompany struct {
	ID              string          `gorm:"primaryKey" json:"id"`
	SessionID       string          `gorm:"not null;index" json:"session_id"`
	Name            string          `gorm:"not null;index" json:"name"`
	Domain          string          `json:"domain,omitempty"`
	LogoURL         string          `json:"logo_url,omitempty"`
	Score           *int            `json:"score,omitempty"`
	Status          CompanyStatus   `gorm:"default:PENDING" json:"status"`
	DataReliability DataReliability `gorm:"default:medium" json:"data_reliability"`
	LastVerifiedAt  *time.Time      `json:"last_verified_at,omitempty"`
	FoundedYear     *int            `json:"founded_year,omitempty"`
	Employees       *int            `json:"employees,omitempty"`
	HQCity          string          `gorm:"column:hq_city" json:"hq_city,omitempty"`
	HQCountry       string          `gorm:"column:hq_country" json:"hq_country,omitempty"`
	PrimaryTags     pq.StringArray  `gorm:"type:text[]" json:"primary_tags"`
	Summary         string          `json:"summary,omitempty"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for the SessionCompany model.
func (SessionCompany) TableName() string {
	return "session_companies"
}

// CompanyProfile is the 1:1 structured profile owned by a SessionCompany.
// It is replaced wholesale on refresh.
type CompanyProfile struct {
	CompanyID          string `gorm:"primaryKey" json:"company_id"`
	Summary            string `json:"summary,omitempty"`
	ScoreAnalysis      string `json:"score_analysis,omitempty"`
	MarketPosition     string `json:"market_position,omitempty"`
	Background         string `json:"background,omitempty"`
	RecentDevelopments string `json:"recent_developments,omitempty"`
	ProductsServices   string `json:"products_services,omitempty"`
	ScaleReach         string `json:"scale_reach,omitempty"`
	StrategicNotes     string `json:"strategic_notes,omitempty"`
}

// TableName specifies the table name for the CompanyProfile model.
func (CompanyProfile) TableName() string {
	return "company_profiles"
}

// CompanySource is an evidentiary citation backing a profile.
type CompanySource struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	CompanyID  string `gorm:"not null;index" json:"company_id"`
	URL        string `gorm:"not null" json:"url"`
	Label      string `json:"label,omitempty"`
	SourceType string `json:"source_type,omitempty"`
}

// TableName specifies the table name for the CompanySource model.
func (CompanySource) TableName() string {
	return "company_sources"
}
