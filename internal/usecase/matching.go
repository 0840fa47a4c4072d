package usecase

import (
	"strings"

	"creativelens/internal/domain"
)

// MatchStrategy names the rule that resolved a record to a creative.
type MatchStrategy string

const (
	MatchNone       MatchStrategy = "none"
	MatchManualHash MatchStrategy = "manual_hash"
	MatchSubstring  MatchStrategy = "substring"
)

// CreativeMatcher resolves a performance record to at most one analyzed creative.
type CreativeMatcher interface {
	Match(record domain.PerformanceRecord, history []domain.AnalysisHistoryEntry) (*domain.AnalysisHistoryEntry, MatchStrategy)
}

// FilenameMatcher decides whether a report's free-text presentation field
// refers to a given creative filename.
type FilenameMatcher interface {
	MatchesFilename(presentation, filename string) bool
}

// SubstringFilenameMatcher matches when the filename appears anywhere in the
// presentation text, ignoring case.
type SubstringFilenameMatcher struct{}

func (SubstringFilenameMatcher) MatchesFilename(presentation, filename string) bool {
	if presentation == "" || filename == "" {
		return false
	}
	return strings.Contains(strings.ToLower(presentation), strings.ToLower(filename))
}

// PriorityMatcher applies the manual link first and only then the filename heuristic.
// A manual link whose hash is present in the client's history is final.
type PriorityMatcher struct {
	Filenames FilenameMatcher
}

func NewPriorityMatcher(filenames FilenameMatcher) *PriorityMatcher {
	if filenames == nil {
		filenames = SubstringFilenameMatcher{}
	}
	return &PriorityMatcher{Filenames: filenames}
}

func (m *PriorityMatcher) Match(record domain.PerformanceRecord, history []domain.AnalysisHistoryEntry) (*domain.AnalysisHistoryEntry, MatchStrategy) {
	if record.LinkedFileHash != "" {
		for i := range history {
			h := &history[i]
			if h.ClientID == record.ClientID && h.Hash == record.LinkedFileHash {
				return h, MatchManualHash
			}
		}
	}

	for i := range history {
		h := &history[i]
		if h.ClientID != record.ClientID {
			continue
		}
		if m.Filenames.MatchesFilename(record.ImageVideoPresentation, h.Filename) {
			return h, MatchSubstring
		}
	}

	return nil, MatchNone
}
