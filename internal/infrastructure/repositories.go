package infrastructure

import (
	"context"
	"fmt"
	"sync"

	"creativelens/internal/domain"
	"creativelens/pkg/logger"
)

// PerformanceRepository stores the performance table: client id to records.
type PerformanceRepository struct {
	store  domain.KeyValueStore
	mutex  sync.Mutex
	logger *logger.Logger
}

func NewPerformanceRepository(store domain.KeyValueStore, logger *logger.Logger) *PerformanceRepository {
	return &PerformanceRepository{store: store, logger: logger}
}

func (r *PerformanceRepository) GetAll(ctx context.Context) (domain.PerformanceData, error) {
	data := make(domain.PerformanceData)
	if _, err := r.store.Get(ctx, domain.TablePerformanceData, &data); err != nil {
		return nil, err
	}
	if data == nil {
		data = make(domain.PerformanceData)
	}
	return data, nil
}

func (r *PerformanceRepository) SaveAll(ctx context.Context, data domain.PerformanceData) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.store.Set(ctx, domain.TablePerformanceData, data)
}

func (r *PerformanceRepository) GetByClient(ctx context.Context, clientID string) ([]domain.PerformanceRecord, error) {
	data, err := r.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return data[clientID], nil
}

// Update serializes read-modify-write cycles so concurrent imports and links
// cannot overwrite each other.
func (r *PerformanceRepository) Update(ctx context.Context, fn func(domain.PerformanceData) error) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	data, err := r.GetAll(ctx)
	if err != nil {
		return err
	}
	if err := fn(data); err != nil {
		return err
	}
	if err := r.store.Set(ctx, domain.TablePerformanceData, data); err != nil {
		return err
	}

	r.logger.WithContext(ctx).WithField("clients", len(data)).Debug("Saved performance data")
	return nil
}

// HistoryRepository keeps the analysis history bounded to its capacity.
type HistoryRepository struct {
	store    domain.KeyValueStore
	capacity int
	mutex    sync.Mutex
	logger   *logger.Logger
}

func NewHistoryRepository(store domain.KeyValueStore, capacity int, logger *logger.Logger) *HistoryRepository {
	if capacity <= 0 {
		capacity = domain.DefaultHistoryCapacity
	}
	return &HistoryRepository{store: store, capacity: capacity, logger: logger}
}

func (r *HistoryRepository) List(ctx context.Context) ([]domain.AnalysisHistoryEntry, error) {
	var entries []domain.AnalysisHistoryEntry
	if _, err := r.store.Get(ctx, domain.TableAnalysisHistory, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Append adds the newest entry and evicts the oldest beyond capacity.
func (r *HistoryRepository) Append(ctx context.Context, entry domain.AnalysisHistoryEntry) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	entries, err := r.List(ctx)
	if err != nil {
		return err
	}
	buf := domain.NewHistoryBuffer(r.capacity, entries)
	evicted := buf.Append(entry)
	if err := r.store.Set(ctx, domain.TableAnalysisHistory, buf.Entries()); err != nil {
		return err
	}

	if evicted > 0 {
		r.logger.WithContext(ctx).WithFields(map[string]any{
			"evicted":  evicted,
			"capacity": r.capacity,
		}).Info("Evicted oldest analysis history entries")
	}
	return nil
}

func (r *HistoryRepository) Replace(ctx context.Context, entries []domain.AnalysisHistoryEntry) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	buf := domain.NewHistoryBuffer(r.capacity, entries)
	return r.store.Set(ctx, domain.TableAnalysisHistory, buf.Entries())
}

// ClientRepository stores the client list in insertion order.
type ClientRepository struct {
	store domain.KeyValueStore
}

func NewClientRepository(store domain.KeyValueStore) *ClientRepository {
	return &ClientRepository{store: store}
}

func (r *ClientRepository) List(ctx context.Context) ([]domain.Client, error) {
	var clients []domain.Client
	if _, err := r.store.Get(ctx, domain.TableClients, &clients); err != nil {
		return nil, err
	}
	return clients, nil
}

func (r *ClientRepository) Get(ctx context.Context, id string) (*domain.Client, error) {
	clients, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range clients {
		if clients[i].ID == id {
			return &clients[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrClientNotFound, id)
}

func (r *ClientRepository) Save(ctx context.Context, clients []domain.Client) error {
	return r.store.Set(ctx, domain.TableClients, clients)
}

// ReportLogRepository stores the last imported report per client.
type ReportLogRepository struct {
	store domain.KeyValueStore
}

func NewReportLogRepository(store domain.KeyValueStore) *ReportLogRepository {
	return &ReportLogRepository{store: store}
}

func (r *ReportLogRepository) Get(ctx context.Context) (map[string]domain.LastUploadInfo, error) {
	entries := make(map[string]domain.LastUploadInfo)
	if _, err := r.store.Get(ctx, domain.TableProcessedReports, &entries); err != nil {
		return nil, err
	}
	if entries == nil {
		entries = make(map[string]domain.LastUploadInfo)
	}
	return entries, nil
}

func (r *ReportLogRepository) Save(ctx context.Context, entries map[string]domain.LastUploadInfo) error {
	return r.store.Set(ctx, domain.TableProcessedReports, entries)
}
