package domain

import (
	"strings"
	"time"
)

type Language string

const (
	LanguageES Language = "es"
	LanguageEN Language = "en"
)

// ParseLanguage defaults to Spanish, the reports' own language.
func ParseLanguage(s string) Language {
	if strings.EqualFold(strings.TrimSpace(s), string(LanguageEN)) {
		return LanguageEN
	}
	return LanguageES
}

// FormatGroup is a creative's aspect-ratio class.
type FormatGroup string

const (
	FormatSquareLike FormatGroup = "SQUARE_LIKE"
	FormatVertical   FormatGroup = "VERTICAL"
)

// ParseFormatGroup returns false for anything that is not a known group.
func ParseFormatGroup(s string) (FormatGroup, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(FormatSquareLike), "SQUARE":
		return FormatSquareLike, true
	case string(FormatVertical):
		return FormatVertical, true
	}
	return "", false
}

// FormatGroupFor classifies dimensions: landscape and square creatives are square-like.
func FormatGroupFor(width, height int) FormatGroup {
	if height > 0 && float64(width)/float64(height) >= 1 {
		return FormatSquareLike
	}
	return FormatVertical
}

type FileType string

const (
	FileTypeImage FileType = "image"
	FileTypeVideo FileType = "video"
)

// Creative is an uploaded asset after fingerprinting.
type Creative struct {
	Filename    string      `json:"filename"`
	Hash        string      `json:"hash"`
	Size        int64       `json:"size"`
	ContentType string      `json:"contentType"`
	Type        FileType    `json:"type"`
	Width       int         `json:"width,omitempty"`
	Height      int         `json:"height,omitempty"`
	Format      FormatGroup `json:"format"`
	Data        []byte      `json:"-"`
}

// AnalysisHistoryEntry records one successful creative analysis.
type AnalysisHistoryEntry struct {
	ClientID    string   `json:"clientId"`
	Filename    string   `json:"filename"`
	Hash        string   `json:"hash"`
	Size        int64    `json:"size"`
	Date        string   `json:"date"`
	Description string   `json:"description"`
	DataURL     string   `json:"dataUrl"`
	FileType    FileType `json:"fileType"`
}

type RecommendationItem struct {
	Headline string   `json:"headline"`
	Points   []string `json:"points"`
}

type AdvantagePlusRecommendation struct {
	Enhancement   string `json:"enhancement"`
	Applicable    string `json:"applicable"`
	Justification string `json:"justification"`
}

type PlacementSummary struct {
	PlacementID string   `json:"placementId"`
	Summary     []string `json:"summary"`
}

type ChecklistItem struct {
	Severity string `json:"severity"`
	Text     string `json:"text"`
}

type OverallConclusion struct {
	Headline  string          `json:"headline"`
	Checklist []ChecklistItem `json:"checklist"`
}

// AnalysisResult is the structured output of the creative analyzer.
type AnalysisResult struct {
	CreativeDescription           string                        `json:"creativeDescription"`
	EffectivenessScore            float64                       `json:"effectivenessScore"`
	EffectivenessJustification    string                        `json:"effectivenessJustification"`
	ClarityScore                  float64                       `json:"clarityScore"`
	ClarityJustification          string                        `json:"clarityJustification"`
	TextToImageRatio              float64                       `json:"textToImageRatio"`
	TextToImageRatioJustification string                        `json:"textToImageRatioJustification"`
	FunnelStage                   string                        `json:"funnelStage"`
	FunnelStageJustification      string                        `json:"funnelStageJustification"`
	Recommendations               []RecommendationItem          `json:"recommendations"`
	AdvantagePlusAnalysis         []AdvantagePlusRecommendation `json:"advantagePlusAnalysis"`
	PlacementSummaries            []PlacementSummary            `json:"placementSummaries"`
	OverallConclusion             OverallConclusion             `json:"overallConclusion"`
}

// IsError reports whether the analyzer returned its error-shaped result.
func (r *AnalysisResult) IsError() bool {
	return r == nil || strings.Contains(strings.ToLower(r.OverallConclusion.Headline), "error")
}

// CachedAnalysis is what the analysis cache stores.
type CachedAnalysis struct {
	Result    AnalysisResult `json:"result"`
	CreatedAt time.Time      `json:"timestamp"`
}

// Expired reports whether the entry is older than ttl at now.
func (c CachedAnalysis) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(c.CreatedAt) > ttl
}

// AnalysisCacheKey identifies a cached analysis.
type AnalysisCacheKey struct {
	Hash     string
	ClientID string
	Language Language
	Format   FormatGroup
}

const AnalysisCachePrefix = "metaAdCreativeAnalysis_"

func (k AnalysisCacheKey) String() string {
	return AnalysisCachePrefix + k.Hash + "-" + k.ClientID + "-" + string(k.Language) + "-" + string(k.Format)
}

// Client owns performance records and history entries.
type Client struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Logo            string `json:"logo"`
	Currency        string `json:"currency"`
	UserID          string `json:"userId"`
	MetaAccountName string `json:"metaAccountName,omitempty"`
}

// LastUploadInfo remembers the last report imported for a client.
type LastUploadInfo struct {
	ClientID     string `json:"clientId"`
	FileHash     string `json:"fileHash"`
	RecordsAdded int    `json:"recordsAdded"`
}
