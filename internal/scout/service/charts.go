package service

import (
	"hash/fnv"
	"sort"
	"time"

	"edtech-market-scout/internal/entity"
	"edtech-market-scout/internal/scout/dto"
)

// BuildCharts computes the aggregate chart payload from the final company
// set of a session. It is pure data transformation: missing employee counts,
// scores and founding years are filled with placeholders derived from a hash
// of the company name, so repeated runs over the same companies produce the
// same charts.
func BuildCharts(companies []entity.SessionCompany) *dto.ChartsPayload {
	payload := &dto.ChartsPayload{
		Segmentation:      make([]dto.SegmentationSlice, 0),
		CompanyScale:      make([]dto.CompanyScalePoint, 0, len(companies)),
		PerformanceMatrix: make([]dto.PerformancePoint, 0, len(companies)),
		MarketEvolution:   make([]dto.EvolutionPoint, 0, len(companies)),
	}

	currentYear := time.Now().Year()
	tagCounts := make(map[string]int)

	for _, company := range companies {
		for _, tag := range company.PrimaryTags {
			if tag == "" {
				continue
			}
			tagCounts[tag]++
		}

		employees := placeholderInRange(company.Name, "employees", 10, 5000)
		if company.Employees != nil && *company.Employees > 0 {
			employees = *company.Employees
		}

		score := placeholderInRange(company.Name, "score", 40, 95)
		if company.Score != nil {
			score = *company.Score
		}

		year := placeholderInRange(company.Name, "year", 1980, currentYear)
		if company.FoundedYear != nil {
			year = clampYear(*company.FoundedYear, currentYear)
		}

		payload.CompanyScale = append(payload.CompanyScale, dto.CompanyScalePoint{
			Name:      company.Name,
			Employees: employees,
		})
		payload.PerformanceMatrix = append(payload.PerformanceMatrix, dto.PerformancePoint{
			Name:  company.Name,
			Score: score,
		})
		payload.MarketEvolution = append(payload.MarketEvolution, dto.EvolutionPoint{
			Name:  company.Name,
			Year:  year,
			Score: score,
			Size:  sizeBucket(employees),
		})
	}

	tags := make([]string, 0, len(tagCounts))
	for tag := range tagCounts {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	for _, tag := range tags {
		payload.Segmentation = append(payload.Segmentation, dto.SegmentationSlice{
			Label: tag,
			Count: tagCounts[tag],
		})
	}

	return payload
}

// placeholderInRange maps a company name to a stable value in [min, max].
func placeholderInRange(name, salt string, min, max int) int {
	h := fnv.New32a()
	h.Write([]byte(name))
	h.Write([]byte(salt))
	return min + int(h.Sum32()%uint32(max-min+1))
}

func clampYear(year, currentYear int) int {
	if year < 1980 {
		return 1980
	}
	if year > currentYear {
		return currentYear
	}
	return year
}

func sizeBucket(employees int) string {
	switch {
	case employees < 200:
		return "small"
	case employees < 1000:
		return "medium"
	default:
		return "large"
	}
}
