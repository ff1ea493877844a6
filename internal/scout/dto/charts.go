package dto

// SegmentationSlice is one tag bucket in the segmentation chart.
type SegmentationSlice struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// CompanyScalePoint is one company in the scale chart.
type CompanyScalePoint struct {
	Name      string `json:"name"`
	Employees int    `json:"employees"`
}

// PerformancePoint is one company in the performance matrix.
type PerformancePoint struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// EvolutionPoint is one company in the market evolution chart.
type EvolutionPoint struct {
	Name  string `json:"name"`
	Year  int    `json:"year"`
	Score int    `json:"score"`
	Size  string `json:"size"`
}

// ChartsPayload is the aggregate chart dataset stored on a session once
// profiling finishes.
type ChartsPayload struct {
	Segmentation      []SegmentationSlice `json:"segmentation"`
	CompanyScale      []CompanyScalePoint `json:"company_scale"`
	PerformanceMatrix []PerformancePoint  `json:"performance_matrix"`
	MarketEvolution   []EvolutionPoint    `json:"market_evolution"`
}
