package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"creativelens/internal/domain"
	"creativelens/internal/infrastructure"
	"creativelens/pkg/logger"
	"creativelens/pkg/metrics"
)

// testStore wires the repositories over a connected in-memory database.
type testStore struct {
	db        *infrastructure.Database
	perf      *infrastructure.PerformanceRepository
	history   *infrastructure.HistoryRepository
	clients   *infrastructure.ClientRepository
	reportLog *infrastructure.ReportLogRepository
	metrics   *metrics.Metrics
}

func newTestStore(t *testing.T) *testStore {
	t.Helper()
	return newTestStoreWithQuota(t, 0)
}

// newTestStoreWithQuota caps the in-memory backend at quota bytes; 0 means unlimited.
func newTestStoreWithQuota(t *testing.T, quota int64) *testStore {
	t.Helper()
	log := logger.Discard()
	m := metrics.New(prometheus.NewRegistry())
	db := infrastructure.NewDatabase(infrastructure.NewMemoryBackend(quota), log, m)
	require.NoError(t, db.Connect(context.Background()))

	return &testStore{
		db:        db,
		perf:      infrastructure.NewPerformanceRepository(db, log),
		history:   infrastructure.NewHistoryRepository(db, domain.DefaultHistoryCapacity, log),
		clients:   infrastructure.NewClientRepository(db),
		reportLog: infrastructure.NewReportLogRepository(db),
		metrics:   m,
	}
}

func (s *testStore) seedClients(t *testing.T, clients ...domain.Client) {
	t.Helper()
	require.NoError(t, s.clients.Save(context.Background(), clients))
}

func (s *testStore) seedRecords(t *testing.T, clientID string, records ...domain.PerformanceRecord) {
	t.Helper()
	err := s.perf.Update(context.Background(), func(data domain.PerformanceData) error {
		data[clientID] = append(data[clientID], records...)
		return nil
	})
	require.NoError(t, err)
}

func (s *testStore) seedHistory(t *testing.T, entries ...domain.AnalysisHistoryEntry) {
	t.Helper()
	for _, e := range entries {
		require.NoError(t, s.history.Append(context.Background(), e))
	}
}

// memFile is an in-memory upload.
type memFile struct {
	name string
	data []byte
	err  error
}

func (f memFile) Name() string { return f.name }

func (f memFile) Open() (io.ReadCloser, error) {
	if f.err != nil {
		return nil, f.err
	}
	return io.NopCloser(bytes.NewReader(f.data)), nil
}

var errCorruptUpload = errors.New("corrupt upload")

func testWindow(t *testing.T) domain.DateWindow {
	t.Helper()
	w, err := domain.NewDateWindow("2024-05-01", "2024-05-07", time.UTC)
	require.NoError(t, err)
	return w
}
