package usecase

import (
	"context"
	"fmt"
	"time"

	"creativelens/internal/domain"
	"creativelens/pkg/logger"
	"creativelens/pkg/metrics"
)

// PerformanceService builds the aggregated ad views and client rollups.
type PerformanceService struct {
	perfRepo    domain.PerformanceRepository
	historyRepo domain.HistoryRepository
	clientRepo  domain.ClientRepository
	matcher     CreativeMatcher
	logger      *logger.Logger
	metrics     *metrics.Metrics
	loc         *time.Location
	windowDays  int
	now         func() time.Time
}

func NewPerformanceService(
	perfRepo domain.PerformanceRepository,
	historyRepo domain.HistoryRepository,
	clientRepo domain.ClientRepository,
	matcher CreativeMatcher,
	logger *logger.Logger,
	metrics *metrics.Metrics,
	loc *time.Location,
	windowDays int,
) *PerformanceService {
	if loc == nil {
		loc = time.Local
	}
	if windowDays <= 0 {
		windowDays = 7
	}
	return &PerformanceService{
		perfRepo:    perfRepo,
		historyRepo: historyRepo,
		clientRepo:  clientRepo,
		matcher:     matcher,
		logger:      logger,
		metrics:     metrics,
		loc:         loc,
		windowDays:  windowDays,
		now:         time.Now,
	}
}

// DefaultWindow covers the last configured number of days ending today.
func (s *PerformanceService) DefaultWindow() domain.DateWindow {
	return domain.LastDays(s.now().In(s.loc), s.windowDays)
}

// ResolveWindow parses optional YYYY-MM-DD bounds. Missing bounds use the default window.
func (s *PerformanceService) ResolveWindow(from, to string) (domain.DateWindow, error) {
	if from == "" && to == "" {
		return s.DefaultWindow(), nil
	}
	def := s.DefaultWindow()
	if from == "" {
		from = def.Start.Format(domain.DateLayout)
	}
	if to == "" {
		to = def.End.Format(domain.DateLayout)
	}
	return domain.NewDateWindow(from, to, s.loc)
}

// GetAggregated returns the filtered per-ad view of a client's records inside the window.
func (s *PerformanceService) GetAggregated(ctx context.Context, clientID string, window domain.DateWindow, mode domain.FilterMode) ([]domain.AggregatedAdPerformance, error) {
	start := time.Now()
	log := s.logger.WithContext(ctx)

	client, err := s.clientRepo.Get(ctx, clientID)
	if err != nil {
		return nil, err
	}

	ads, err := s.aggregateClient(ctx, *client, window)
	if err != nil {
		log.WithError(err).Error("Failed to aggregate performance")
		return nil, err
	}

	for _, ad := range ads {
		if ad.IsMatched {
			s.metrics.RecordMatch(ad.MatchStrategy)
		} else {
			s.metrics.RecordMatch(string(MatchNone))
		}
	}
	filtered := ApplyFilter(ads, mode)
	s.metrics.RecordAggregation(len(ads), time.Since(start))

	log.WithFields(map[string]any{
		"client_id": clientID,
		"window":    window.String(),
		"filter":    string(mode),
		"ads":       len(ads),
		"returned":  len(filtered),
	}).Info("Aggregated performance")

	return filtered, nil
}

// aggregateClient runs the unfiltered aggregation for one client.
func (s *PerformanceService) aggregateClient(ctx context.Context, client domain.Client, window domain.DateWindow) ([]domain.AggregatedAdPerformance, error) {
	records, err := s.perfRepo.GetByClient(ctx, client.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load performance data: %w", err)
	}
	history, err := s.historyRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load analysis history: %w", err)
	}

	inWindow := RecordsInWindow(records, window)
	return Aggregate(inWindow, domain.ForClient(history, client.ID), client.Currency, s.matcher), nil
}

// Summaries rolls up every client over the window, in stored client order.
func (s *PerformanceService) Summaries(ctx context.Context, window domain.DateWindow) ([]domain.ClientSummary, error) {
	clients, err := s.clientRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load clients: %w", err)
	}
	data, err := s.perfRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load performance data: %w", err)
	}
	history, err := s.historyRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load analysis history: %w", err)
	}

	summaries := make([]domain.ClientSummary, 0, len(clients))
	for _, c := range clients {
		inWindow := RecordsInWindow(data[c.ID], window)
		summaries = append(summaries, ClientSummaryFor(c, inWindow, domain.ForClient(history, c.ID), s.matcher))
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"clients": len(summaries),
		"window":  window.String(),
	}).Info("Built client summaries")

	return summaries, nil
}
