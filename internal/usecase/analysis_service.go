package usecase

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"creativelens/internal/domain"
	"creativelens/pkg/fingerprint"
	"creativelens/pkg/logger"
	"creativelens/pkg/metrics"
)

// AnalyzeInput is one creative submitted for analysis.
type AnalyzeInput struct {
	ClientID    string
	File        domain.UploadedFile
	ContentType string
	Language    domain.Language
	// Format overrides the group detected from the creative's dimensions.
	Format domain.FormatGroup
}

// AnalysisOutcome is what an analysis request produced. Failed results are
// returned for display but are never cached or recorded in history.
type AnalysisOutcome struct {
	Creative     domain.Creative              `json:"creative"`
	Result       *domain.AnalysisResult       `json:"result"`
	Cached       bool                         `json:"cached"`
	Failed       bool                         `json:"failed"`
	HistoryEntry *domain.AnalysisHistoryEntry `json:"historyEntry,omitempty"`
}

// PriorAnalysis is an earlier analysis of the same file.
type PriorAnalysis struct {
	Entry  domain.AnalysisHistoryEntry `json:"entry"`
	Client *domain.Client              `json:"client,omitempty"`
}

// AnalysisService runs creative analyses through the cache and records them in history.
type AnalysisService struct {
	analyzer       domain.Analyzer
	inspector      domain.CreativeInspector
	cache          domain.AnalysisCache
	historyRepo    domain.HistoryRepository
	clientRepo     domain.ClientRepository
	logger         *logger.Logger
	metrics        *metrics.Metrics
	contextEntries int
	now            func() time.Time
}

func NewAnalysisService(
	analyzer domain.Analyzer,
	inspector domain.CreativeInspector,
	cache domain.AnalysisCache,
	historyRepo domain.HistoryRepository,
	clientRepo domain.ClientRepository,
	logger *logger.Logger,
	metrics *metrics.Metrics,
	contextEntries int,
) *AnalysisService {
	if contextEntries <= 0 {
		contextEntries = 15
	}
	return &AnalysisService{
		analyzer:       analyzer,
		inspector:      inspector,
		cache:          cache,
		historyRepo:    historyRepo,
		clientRepo:     clientRepo,
		logger:         logger,
		metrics:        metrics,
		contextEntries: contextEntries,
		now:            time.Now,
	}
}

// Analyze returns a cached analysis younger than the cache TTL when one exists
// for the same content, client, language and format; otherwise it calls the analyzer.
func (s *AnalysisService) Analyze(ctx context.Context, in AnalyzeInput) (*AnalysisOutcome, error) {
	log := s.logger.WithContext(logger.WithClient(ctx, in.ClientID))

	client, err := s.clientRepo.Get(ctx, in.ClientID)
	if err != nil {
		return nil, err
	}

	creative, err := s.readCreative(in.File, in.ContentType)
	if err != nil {
		return nil, err
	}
	if in.Format != "" {
		creative.Format = in.Format
	}
	if creative.Format == "" {
		return nil, domain.ErrUnknownFormat
	}
	if in.Language == "" {
		in.Language = domain.LanguageES
	}

	out := &AnalysisOutcome{Creative: creative}
	key := domain.AnalysisCacheKey{Hash: creative.Hash, ClientID: client.ID, Language: in.Language, Format: creative.Format}

	cached, err := s.cache.Get(ctx, key)
	switch {
	case err != nil:
		s.metrics.RecordCacheLookup("error")
		log.WithError(err).Warn("Failed to read analysis cache")
	case cached != nil && !cached.Expired(s.now(), s.cache.TTL()):
		s.metrics.RecordCacheLookup("hit")
		log.WithField("file_name", creative.Filename).Info("Using cached analysis")
		result := cached.Result
		out.Result = &result
		out.Cached = true
		return out, nil
	default:
		s.metrics.RecordCacheLookup("miss")
	}

	history, err := s.historyRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load analysis history: %w", err)
	}

	req := domain.AnalysisRequest{
		Creative: creative,
		ClientID: client.ID,
		Language: in.Language,
		Format:   creative.Format,
		Context:  s.buildContext(*client, domain.ForClient(history, client.ID)),
	}

	start := time.Now()
	result, err := s.analyzer.Analyze(ctx, req)
	if err != nil {
		s.metrics.RecordAnalyzerCall("failed", time.Since(start))
		log.WithError(err).Error("Analyzer call failed")
		return nil, fmt.Errorf("%w: %v", domain.ErrAnalysisFailed, err)
	}
	out.Result = result

	if result.IsError() {
		s.metrics.RecordAnalyzerCall("error_result", time.Since(start))
		out.Failed = true
		log.WithField("file_name", creative.Filename).Warn("Analyzer returned an error result")
		return out, nil
	}
	s.metrics.RecordAnalyzerCall("success", time.Since(start))

	entry := domain.AnalysisHistoryEntry{
		ClientID:    client.ID,
		Filename:    creative.Filename,
		Hash:        creative.Hash,
		Size:        creative.Size,
		Date:        s.now().UTC().Format(time.RFC3339Nano),
		Description: result.CreativeDescription,
		DataURL:     dataURL(creative),
		FileType:    creative.Type,
	}
	if err := s.historyRepo.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to record analysis: %w", err)
	}
	out.HistoryEntry = &entry

	// Cache only after history holds the entry.
	if err := s.cache.Set(ctx, key, *result); err != nil {
		s.metrics.RecordCacheWriteFailure()
		log.WithError(err).Warn("Could not save analysis to cache")
	}

	log.WithFields(map[string]any{
		"file_name": creative.Filename,
		"hash":      creative.Hash,
		"format":    string(creative.Format),
		"language":  string(in.Language),
	}).Info("Creative analyzed")

	return out, nil
}

// FindPrior looks for an earlier analysis of a file with the same hash, name and size.
func (s *AnalysisService) FindPrior(ctx context.Context, file domain.UploadedFile) (*PriorAnalysis, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %q: %w", file.Name(), err)
	}
	defer rc.Close()

	hash, size, err := fingerprint.Reader(rc)
	if err != nil {
		return nil, err
	}

	history, err := s.historyRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load analysis history: %w", err)
	}
	for _, h := range history {
		if h.Hash == hash && h.Filename == file.Name() && h.Size == size {
			prior := &PriorAnalysis{Entry: h}
			client, err := s.clientRepo.Get(ctx, h.ClientID)
			switch {
			case err == nil:
				prior.Client = client
			case !errors.Is(err, domain.ErrClientNotFound):
				return nil, err
			}
			return prior, nil
		}
	}
	return nil, nil
}

// History returns the client's analyses, oldest first.
func (s *AnalysisService) History(ctx context.Context, clientID string) ([]domain.AnalysisHistoryEntry, error) {
	if _, err := s.clientRepo.Get(ctx, clientID); err != nil {
		return nil, err
	}
	history, err := s.historyRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load analysis history: %w", err)
	}
	entries := domain.ForClient(history, clientID)
	if entries == nil {
		entries = []domain.AnalysisHistoryEntry{}
	}
	return entries, nil
}

func (s *AnalysisService) readCreative(file domain.UploadedFile, contentType string) (domain.Creative, error) {
	rc, err := file.Open()
	if err != nil {
		return domain.Creative{}, fmt.Errorf("failed to open %q: %w", file.Name(), err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return domain.Creative{}, fmt.Errorf("failed to read %q: %w", file.Name(), err)
	}

	creative, err := s.inspector.Inspect(file.Name(), contentType, data)
	if err != nil {
		return domain.Creative{}, err
	}
	creative.Filename = file.Name()
	creative.Hash = fingerprint.Bytes(data)
	creative.Size = int64(len(data))
	creative.Data = data
	return creative, nil
}

// buildContext summarizes the client's most recent analyses for the analyzer.
func (s *AnalysisService) buildContext(client domain.Client, history []domain.AnalysisHistoryEntry) string {
	if len(history) > s.contextEntries {
		history = history[len(history)-s.contextEntries:]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Client: %s (Currency: %s)\n\n", client.Name, client.Currency)
	b.WriteString("Most recent creatives analyzed for this client:\n")
	if len(history) == 0 {
		b.WriteString("No previous history.")
		return b.String()
	}
	for i, h := range history {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "File: %s\nDate: %s\nDescription: %s", h.Filename, h.Date, h.Description)
	}
	return b.String()
}

func dataURL(c domain.Creative) string {
	return "data:" + c.ContentType + ";base64," + base64.StdEncoding.EncodeToString(c.Data)
}
