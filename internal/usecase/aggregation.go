package usecase

import (
	"sort"

	"creativelens/internal/domain"
)

// RecordsInWindow keeps records whose day parses and falls inside the window.
func RecordsInWindow(records []domain.PerformanceRecord, window domain.DateWindow) []domain.PerformanceRecord {
	loc := window.Start.Location()
	var out []domain.PerformanceRecord
	for _, r := range records {
		day, ok := domain.ParseRecordDay(r.Day, loc)
		if !ok || !window.Contains(day) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// GroupByAdName groups records by ad name, preserving first-appearance order of
// the names. Records without an ad name cannot form a group and are dropped.
func GroupByAdName(records []domain.PerformanceRecord) ([]string, map[string][]domain.PerformanceRecord) {
	var order []string
	groups := make(map[string][]domain.PerformanceRecord)
	for _, r := range records {
		if r.AdName == "" {
			continue
		}
		if _, seen := groups[r.AdName]; !seen {
			order = append(order, r.AdName)
		}
		groups[r.AdName] = append(groups[r.AdName], r)
	}
	return order, groups
}

// Aggregate produces one row per distinct ad name, sorted by spend descending.
// Ads with equal spend keep the order in which they first appear in records.
func Aggregate(records []domain.PerformanceRecord, history []domain.AnalysisHistoryEntry, currency string, matcher CreativeMatcher) []domain.AggregatedAdPerformance {
	order, groups := GroupByAdName(records)
	result := make([]domain.AggregatedAdPerformance, 0, len(order))

	for _, adName := range order {
		result = append(result, aggregateAd(adName, groups[adName], history, currency, matcher))
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Spend > result[j].Spend
	})

	return result
}

// calculates the summary row for a single ad
func aggregateAd(adName string, records []domain.PerformanceRecord, history []domain.AnalysisHistoryEntry, currency string, matcher CreativeMatcher) domain.AggregatedAdPerformance {
	first := records[0]
	agg := domain.AggregatedAdPerformance{
		AdName:                 adName,
		ImageVideoPresentation: first.ImageVideoPresentation,
		Currency:               currency,
		RecordCount:            len(records),
	}

	adSets := make(map[string]struct{})
	for _, r := range records {
		agg.Spend += r.Spend
		agg.Purchases += r.Purchases
		agg.PurchaseValue += r.PurchaseValue
		agg.Impressions += r.Impressions
		agg.Clicks += r.ClicksAll
		adSets[r.AdSetName] = struct{}{}
	}
	agg.InMultipleAdSets = len(adSets) > 1

	agg.ROAS, agg.CPA, agg.CPM, agg.CTR = DerivedRatios(agg.Spend, agg.Purchases, agg.PurchaseValue, agg.Impressions, agg.Clicks)

	if matcher != nil {
		if match, strategy := matcher.Match(first, history); match != nil {
			agg.IsMatched = true
			agg.MatchStrategy = string(strategy)
			agg.CreativeDescription = match.Description
			agg.CreativeDataURL = match.DataURL
			agg.CreativeType = string(match.FileType)
		}
	}

	return agg
}

// DerivedRatios computes ROAS, CPA, CPM and CTR. A zero denominator yields 0.
func DerivedRatios(spend, purchases, purchaseValue float64, impressions, clicks int64) (roas, cpa, cpm, ctr float64) {
	if spend > 0 {
		roas = purchaseValue / spend
	}
	if purchases > 0 {
		cpa = spend / purchases
	}
	if impressions > 0 {
		cpm = spend / float64(impressions) * 1000
		ctr = float64(clicks) / float64(impressions) * 100
	}
	return roas, cpa, cpm, ctr
}

// ClientSummaryFor rolls the client's in-window records into totals and match counts.
func ClientSummaryFor(client domain.Client, records []domain.PerformanceRecord, history []domain.AnalysisHistoryEntry, matcher CreativeMatcher) domain.ClientSummary {
	summary := domain.ClientSummary{Client: client}
	for _, r := range records {
		summary.TotalSpend += r.Spend
		summary.TotalValue += r.PurchaseValue
	}
	if summary.TotalSpend > 0 {
		summary.ROAS = summary.TotalValue / summary.TotalSpend
	}

	order, groups := GroupByAdName(records)
	summary.TotalAds = len(order)
	if matcher == nil {
		return summary
	}
	for _, adName := range order {
		if match, _ := matcher.Match(groups[adName][0], history); match != nil {
			summary.MatchedCount++
		}
	}
	return summary
}
