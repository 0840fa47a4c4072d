package domain

import "strings"

// PerformanceRecord is one report row per (campaign, ad set, ad, day) for a client.
type PerformanceRecord struct {
	ClientID               string `json:"clientId"`
	UniqueID               string `json:"uniqueId"`
	CampaignName           string `json:"campaignName"`
	AdSetName              string `json:"adSetName"`
	AdName                 string `json:"adName"`
	Day                    string `json:"day"`
	AccountName            string `json:"accountName"`
	ImageVideoPresentation string `json:"imageVideoPresentation"`

	Spend         float64 `json:"spend"`
	Impressions   int64   `json:"impressions"`
	ClicksAll     int64   `json:"clicksAll"`
	Purchases     float64 `json:"purchases"`
	PurchaseValue float64 `json:"purchaseValue"`
	Currency      string  `json:"currency"`

	CampaignDelivery            string  `json:"campaignDelivery"`
	AdSetDelivery               string  `json:"adSetDelivery"`
	AdDelivery                  string  `json:"adDelivery"`
	Reach                       int64   `json:"reach"`
	Frequency                   float64 `json:"frequency"`
	LandingPageViews            float64 `json:"landingPageViews"`
	CPM                         float64 `json:"cpm"`
	CTRAll                      float64 `json:"ctrAll"`
	CPCAll                      float64 `json:"cpcAll"`
	VideoPlays3s                float64 `json:"videoPlays3s"`
	CheckoutsInitiated          float64 `json:"checkoutsInitiated"`
	PurchaseRate                float64 `json:"purchaseRate"`
	PageLikes                   float64 `json:"pageLikes"`
	AddsToCart                  float64 `json:"addsToCart"`
	CheckoutsInitiatedOnWebsite float64 `json:"checkoutsInitiatedOnWebsite"`
	CampaignBudget              string  `json:"campaignBudget"`
	CampaignBudgetType          string  `json:"campaignBudgetType"`
	IncludedCustomAudiences     string  `json:"includedCustomAudiences"`
	ExcludedCustomAudiences     string  `json:"excludedCustomAudiences"`
	LinkClicks                  int64   `json:"linkClicks"`
	PaymentInfoAdds             float64 `json:"paymentInfoAdds"`
	PageEngagement              float64 `json:"pageEngagement"`
	PostComments                float64 `json:"postComments"`
	PostInteractions            float64 `json:"postInteractions"`
	PostReactions               float64 `json:"postReactions"`
	PostShares                  float64 `json:"postShares"`
	Bid                         string  `json:"bid"`
	BidType                     string  `json:"bidType"`
	WebsiteURL                  string  `json:"websiteUrl"`
	CTRLink                     float64 `json:"ctrLink"`
	Objective                   string  `json:"objective"`
	PurchaseType                string  `json:"purchaseType"`
	ReportStart                 string  `json:"reportStart"`
	ReportEnd                   string  `json:"reportEnd"`
	Attention                   float64 `json:"attention"`
	Desire                      float64 `json:"desire"`
	Interest                    float64 `json:"interest"`
	VideoPlays25Percent         float64 `json:"videoPlays25percent"`
	VideoPlays50Percent         float64 `json:"videoPlays50percent"`
	VideoPlays75Percent         float64 `json:"videoPlays75percent"`
	VideoPlays95Percent         float64 `json:"videoPlays95percent"`
	VideoPlays100Percent        float64 `json:"videoPlays100percent"`
	VideoPlayRate3s             float64 `json:"videoPlayRate3s"`
	AOV                         float64 `json:"aov"`
	LPViewRate                  float64 `json:"lpViewRate"`
	AdcToLpv                    float64 `json:"adcToLpv"`
	VideoCapture                string  `json:"videoCapture"`
	LandingConversionRate       float64 `json:"landingConversionRate"`
	PercentPurchases            float64 `json:"percentPurchases"`
	Visualizations              float64 `json:"visualizations"`
	ImageID                     string  `json:"imageId"`
	ImageName                   string  `json:"imageName"`
	CVRLinkClick                float64 `json:"cvrLinkClick"`
	VideoRetentionProprietary   float64 `json:"videoRetentionProprietary"`
	VideoRetentionMeta          float64 `json:"videoRetentionMeta"`
	VideoAveragePlayTime        float64 `json:"videoAveragePlayTime"`
	ThruPlays                   float64 `json:"thruPlays"`
	VideoPlays                  float64 `json:"videoPlays"`
	VideoPlays2sContinuousUniq  float64 `json:"videoPlays2sContinuousUnique"`
	CTRUniqueLink               float64 `json:"ctrUniqueLink"`

	// Set only by an operator link.
	LinkedFileName string `json:"linkedFileName,omitempty"`
	LinkedFileHash string `json:"linkedFileHash,omitempty"`
}

// BuildUniqueID returns the natural key used to deduplicate rows on import.
func BuildUniqueID(campaign, adSet, ad, day string) string {
	return strings.Join([]string{campaign, adSet, ad, day}, "_")
}

// HasManualLink reports whether an operator attached a creative to this row.
func (r PerformanceRecord) HasManualLink() bool {
	return r.LinkedFileHash != ""
}

// PerformanceData is the persisted performance table: client id to its rows.
type PerformanceData map[string][]PerformanceRecord

// AggregatedAdPerformance is the per-ad view computed over a date window. Never persisted.
type AggregatedAdPerformance struct {
	AdName                 string  `json:"adName"`
	ImageVideoPresentation string  `json:"imageVideoPresentation"`
	Spend                  float64 `json:"spend"`
	Purchases              float64 `json:"purchases"`
	PurchaseValue          float64 `json:"purchaseValue"`
	Impressions            int64   `json:"impressions"`
	Clicks                 int64   `json:"clicks"`
	ROAS                   float64 `json:"roas"`
	CPA                    float64 `json:"cpa"`
	CPM                    float64 `json:"cpm"`
	CTR                    float64 `json:"ctr"`
	IsMatched              bool    `json:"isMatched"`
	MatchStrategy          string  `json:"matchStrategy,omitempty"`
	CreativeDescription    string  `json:"creativeDescription,omitempty"`
	CreativeDataURL        string  `json:"creativeDataUrl,omitempty"`
	CreativeType           string  `json:"creativeType,omitempty"`
	Currency               string  `json:"currency"`
	InMultipleAdSets       bool    `json:"inMultipleAdSets"`
	RecordCount            int     `json:"recordCount"`
}

// FilterMode selects which aggregated rows a view shows.
type FilterMode string

const (
	FilterAll     FilterMode = "all"
	FilterMatched FilterMode = "matched"
	FilterTop10   FilterMode = "top10"
)

// ParseFilterMode maps user input to a FilterMode. Unknown values fall back to FilterAll.
func ParseFilterMode(s string) FilterMode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "matched", "matched-only", "linked":
		return FilterMatched
	case "top10", "top-10", "top 10":
		return FilterTop10
	default:
		return FilterAll
	}
}

// ClientSummary is the per-client rollup shown on the client list.
type ClientSummary struct {
	Client       Client  `json:"client"`
	TotalSpend   float64 `json:"totalSpend"`
	TotalValue   float64 `json:"totalValue"`
	ROAS         float64 `json:"roas"`
	TotalAds     int     `json:"totalAds"`
	MatchedCount int     `json:"matchedCount"`
}
