package usecase

import (
	"sort"

	"creativelens/internal/domain"
)

// TopN is how many ads the top filter keeps.
const TopN = 10

// ApplyFilter returns a new slice; the input, already sorted by spend, is not reordered.
func ApplyFilter(ads []domain.AggregatedAdPerformance, mode domain.FilterMode) []domain.AggregatedAdPerformance {
	switch mode {
	case domain.FilterMatched:
		out := make([]domain.AggregatedAdPerformance, 0, len(ads))
		for _, ad := range ads {
			if ad.IsMatched {
				out = append(out, ad)
			}
		}
		return out

	case domain.FilterTop10:
		out := make([]domain.AggregatedAdPerformance, len(ads))
		copy(out, ads)
		// Stable so equal ROAS keeps the spend order.
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].ROAS > out[j].ROAS
		})
		if len(out) > TopN {
			out = out[:TopN]
		}
		return out

	default:
		out := make([]domain.AggregatedAdPerformance, len(ads))
		copy(out, ads)
		return out
	}
}

// Unmatched lists the ads with no resolved creative, in input order.
func Unmatched(ads []domain.AggregatedAdPerformance) []domain.AggregatedAdPerformance {
	var out []domain.AggregatedAdPerformance
	for _, ad := range ads {
		if !ad.IsMatched {
			out = append(out, ad)
		}
	}
	return out
}
