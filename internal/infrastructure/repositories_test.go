package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"creativelens/internal/domain"
	"creativelens/pkg/logger"
)

func TestPerformanceRepository_UpdateAndRead(t *testing.T) {
	ctx := context.Background()
	db, _ := newConnectedDatabase(t, 0)
	repo := NewPerformanceRepository(db, logger.Discard())

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)

	err = repo.Update(ctx, func(data domain.PerformanceData) error {
		data["c1"] = append(data["c1"], domain.PerformanceRecord{ClientID: "c1", AdName: "Ad1"})
		return nil
	})
	require.NoError(t, err)

	records, err := repo.GetByClient(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Ad1", records[0].AdName)
}

func TestPerformanceRepository_UpdateErrorSavesNothing(t *testing.T) {
	ctx := context.Background()
	db, _ := newConnectedDatabase(t, 0)
	repo := NewPerformanceRepository(db, logger.Discard())

	boom := errors.New("boom")
	err := repo.Update(ctx, func(data domain.PerformanceData) error {
		data["c1"] = []domain.PerformanceRecord{{AdName: "x"}}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	records, err := repo.GetByClient(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestPerformanceRepository_ConcurrentUpdatesKeepAllWrites(t *testing.T) {
	ctx := context.Background()
	db, _ := newConnectedDatabase(t, 0)
	repo := NewPerformanceRepository(db, logger.Discard())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Go(func() {
			_ = repo.Update(ctx, func(data domain.PerformanceData) error {
				data["c1"] = append(data["c1"], domain.PerformanceRecord{AdName: fmt.Sprintf("ad-%d", i)})
				return nil
			})
		})
	}
	wg.Wait()

	records, err := repo.GetByClient(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, records, 20)
}

func TestHistoryRepository_AppendCapsAtCapacity(t *testing.T) {
	ctx := context.Background()
	db, _ := newConnectedDatabase(t, 0)
	repo := NewHistoryRepository(db, 3, logger.Discard())

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Append(ctx, domain.AnalysisHistoryEntry{Hash: fmt.Sprintf("h%d", i)}))
	}

	entries, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "h2", entries[0].Hash)
	assert.Equal(t, "h4", entries[2].Hash)

	require.NoError(t, repo.Replace(ctx, entries[:1]))
	entries, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestClientRepository_Get(t *testing.T) {
	ctx := context.Background()
	db, _ := newConnectedDatabase(t, 0)
	repo := NewClientRepository(db)

	require.NoError(t, repo.Save(ctx, []domain.Client{{ID: "c1", Name: "Acme"}, {ID: "c2", Name: "Beta"}}))

	client, err := repo.Get(ctx, "c2")
	require.NoError(t, err)
	assert.Equal(t, "Beta", client.Name)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrClientNotFound)
}

func TestReportLogRepository(t *testing.T) {
	ctx := context.Background()
	db, _ := newConnectedDatabase(t, 0)
	repo := NewReportLogRepository(db)

	entries, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.NotNil(t, entries)

	entries["c1"] = domain.LastUploadInfo{ClientID: "c1", FileHash: "abc", RecordsAdded: 4}
	require.NoError(t, repo.Save(ctx, entries))

	got, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc", got["c1"].FileHash)
}

func TestRepositories_NotConnected(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t, NewMemoryBackend(0))

	_, err := NewClientRepository(db).List(ctx)
	assert.ErrorIs(t, err, domain.ErrNotConnected)

	_, err = NewPerformanceRepository(db, logger.Discard()).GetAll(ctx)
	assert.ErrorIs(t, err, domain.ErrNotConnected)

	err = NewHistoryRepository(db, 0, logger.Discard()).Append(ctx, domain.AnalysisHistoryEntry{})
	assert.ErrorIs(t, err, domain.ErrNotConnected)
}
