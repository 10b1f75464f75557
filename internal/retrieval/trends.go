package retrieval

import (
	"sort"
	"strings"
)

// TrendSummary aggregates the sources behind one query
type TrendSummary struct {
	Companies    []string `json:"companies_mentioned"`
	YearRange    []int    `json:"year_range,omitempty"`
	TotalSources int      `json:"total_experiences"`
}

// CompanyCount is one row of the index-wide trend report
type CompanyCount struct {
	Company string `json:"company"`
	Count   int    `json:"count"`
}

// TrendReport summarizes the whole index
type TrendReport struct {
	TopCompanies []CompanyCount `json:"top_companies"`
	YearRange    []int          `json:"year_range,omitempty"`
	TotalRecords int            `json:"total_records"`
}

// topCompanyLimit caps the index-wide company ranking
const topCompanyLimit = 10

// summarizeTrends keeps companies in the order they first appear in
// the sources, which are already ranked best-first.
func summarizeTrends(sources []Source) *TrendSummary {
	var companies []string
	seen := make(map[string]bool)
	minYear, maxYear := 0, 0
	for _, s := range sources {
		if s.Company != "" && !seen[s.Company] {
			seen[s.Company] = true
			companies = append(companies, s.Company)
		}
		if s.Year != 0 {
			if minYear == 0 || s.Year < minYear {
				minYear = s.Year
			}
			if s.Year > maxYear {
				maxYear = s.Year
			}
		}
	}

	summary := &TrendSummary{
		Companies:    companies,
		TotalSources: len(sources),
	}
	if minYear != 0 {
		summary.YearRange = []int{minYear, maxYear}
	}
	return summary
}

// AnalyzeTrends ranks companies by live record count across the whole
// index. company narrows to records whose company contains the given
// substring (case-insensitive); year narrows to that interview year;
// zero values disable the filter. Ties order alphabetically so the
// report is stable.
func (e *Engine) AnalyzeTrends(company string, year int) (*TrendReport, error) {
	idx, err := e.snapshot()
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	minYear, maxYear := 0, 0
	total := 0
	for _, meta := range idx.AllMeta() {
		if company != "" && !strings.Contains(strings.ToLower(meta.Company), strings.ToLower(company)) {
			continue
		}
		if year != 0 && meta.Year != year {
			continue
		}
		total++
		if meta.Company != "" {
			counts[meta.Company]++
		}
		if meta.Year != 0 {
			if minYear == 0 || meta.Year < minYear {
				minYear = meta.Year
			}
			if meta.Year > maxYear {
				maxYear = meta.Year
			}
		}
	}

	top := make([]CompanyCount, 0, len(counts))
	for company, count := range counts {
		top = append(top, CompanyCount{Company: company, Count: count})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Count != top[j].Count {
			return top[i].Count > top[j].Count
		}
		return top[i].Company < top[j].Company
	})
	if len(top) > topCompanyLimit {
		top = top[:topCompanyLimit]
	}

	report := &TrendReport{
		TopCompanies: top,
		TotalRecords: total,
	}
	if minYear != 0 {
		report.YearRange = []int{minYear, maxYear}
	}
	return report, nil
}
