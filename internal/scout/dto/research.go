package dto

// SearchResult is one hit returned by the web search provider.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// DiscoveredCompany is a candidate extracted by the discovery stage. Only
// Name is mandatory; everything else is best-effort enrichment.
type DiscoveredCompany struct {
	Name        string   `json:"name"`
	Domain      string   `json:"domain,omitempty"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// ProfileSource is a citation claimed by the model for a profile.
type ProfileSource struct {
	URL        string `json:"url"`
	Label      string `json:"label,omitempty"`
	SourceType string `json:"source_type,omitempty"`
}

// CompanyProfileResult is the fixed-shape JSON object the model is asked
// to produce during profiling.
type CompanyProfileResult struct {
	Summary            string          `json:"summary"`
	ScoreAnalysis      string          `json:"score_analysis"`
	MarketPosition     string          `json:"market_position"`
	Background         string          `json:"background"`
	RecentDevelopments string          `json:"recent_developments"`
	ProductsServices   []string        `json:"products_services"`
	ScaleReach         string          `json:"scale_reach"`
	StrategicNotes     string          `json:"strategic_notes"`
	Score              *int            `json:"score"`
	FoundedYear        *int            `json:"founded_year"`
	Employees          *int            `json:"employees"`
	HQCity             string          `json:"hq_city"`
	HQCountry          string          `json:"hq_country"`
	PrimaryTags        []string        `json:"primary_tags"`
	DataReliability    string          `json:"data_reliability"`
	Sources            []ProfileSource `json:"sources"`
}

// TrendResult is the JSON object the model is asked to produce for the
// session trend analysis.
type TrendResult struct {
	Overview string     `json:"overview"`
	Bars     []TrendBar `json:"bars"`
}
