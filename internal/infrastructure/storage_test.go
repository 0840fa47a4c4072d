package infrastructure

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"creativelens/internal/domain"
	"creativelens/pkg/logger"
	"creativelens/pkg/metrics"
)

func newTestDatabase(t *testing.T, backend Backend) *Database {
	t.Helper()
	return NewDatabase(backend, logger.Discard(), metrics.New(prometheus.NewRegistry()))
}

func newConnectedDatabase(t *testing.T, quota int64) (*Database, *MemoryBackend) {
	t.Helper()
	backend := NewMemoryBackend(quota)
	db := newTestDatabase(t, backend)
	require.NoError(t, db.Connect(context.Background()))
	return db, backend
}

type failingBackend struct {
	*MemoryBackend
}

func (failingBackend) Ping(ctx context.Context) error { return errors.New("connection refused") }

func TestDatabase_RefusesUntilConnected(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t, NewMemoryBackend(0))
	assert.False(t, db.Connected())

	var clients []domain.Client
	_, err := db.Get(ctx, domain.TableClients, &clients)
	assert.ErrorIs(t, err, domain.ErrNotConnected)
	assert.ErrorIs(t, db.Set(ctx, domain.TableClients, clients), domain.ErrNotConnected)
	assert.ErrorIs(t, db.Clear(ctx, domain.TableClients), domain.ErrNotConnected)
	assert.ErrorIs(t, db.ClearAll(ctx), domain.ErrNotConnected)

	// config stays reachable so the connection can be configured
	require.NoError(t, db.Set(ctx, domain.TableConfig, map[string]string{"backend": "memory"}))
	var cfg map[string]string
	ok, err := db.Get(ctx, domain.TableConfig, &cfg)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "memory", cfg["backend"])

	require.NoError(t, db.Connect(ctx))
	assert.True(t, db.Connected())
	ok, err = db.Get(ctx, domain.TableClients, &clients)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDatabase_FailedConnectStaysDisconnected(t *testing.T) {
	db := newTestDatabase(t, failingBackend{NewMemoryBackend(0)})

	err := db.Connect(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotConnected)
	assert.False(t, db.Connected())
}

func TestDatabase_RoundTrip(t *testing.T) {
	ctx := context.Background()
	db, _ := newConnectedDatabase(t, 0)

	in := []domain.Client{{ID: "c1", Name: "Acme", Currency: "EUR"}}
	require.NoError(t, db.Set(ctx, domain.TableClients, in))

	var out []domain.Client
	ok, err := db.Get(ctx, domain.TableClients, &out)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, in, out)

	require.NoError(t, db.Clear(ctx, domain.TableClients))
	out = nil
	ok, err = db.Get(ctx, domain.TableClients, &out)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, out)
}

func TestDatabase_QuotaExceeded(t *testing.T) {
	ctx := context.Background()
	db, backend := newConnectedDatabase(t, 64)

	require.NoError(t, db.Set(ctx, domain.TableClients, []string{"small"}))

	big := make([]string, 50)
	for i := range big {
		big[i] = "creative"
	}
	err := db.Set(ctx, domain.TableAnalysisHistory, big)
	assert.ErrorIs(t, err, domain.ErrStorageQuotaExceeded)

	var got []string
	ok, err := db.Get(ctx, domain.TableClients, &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"small"}, got)
	assert.LessOrEqual(t, backend.Used(), int64(64))
}

func TestDatabase_ClearAllKeepsConfig(t *testing.T) {
	ctx := context.Background()
	db, _ := newConnectedDatabase(t, 0)

	for _, table := range domain.UserTables {
		require.NoError(t, db.Set(ctx, table, []string{table}))
	}
	require.NoError(t, db.Set(ctx, domain.TableConfig, map[string]string{"k": "v"}))

	require.NoError(t, db.ClearAll(ctx))

	for _, table := range domain.UserTables {
		var v []string
		ok, err := db.Get(ctx, table, &v)
		require.NoError(t, err)
		assert.False(t, ok, table)
	}
	var cfg map[string]string
	ok, err := db.Get(ctx, domain.TableConfig, &cfg)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDatabase_FactoryResetWhileDisconnected(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend(0)
	db := newTestDatabase(t, backend)

	require.NoError(t, db.Set(ctx, domain.TableConfig, map[string]string{"k": "v"}))
	require.NoError(t, db.FactoryReset(ctx))

	var cfg map[string]string
	ok, err := db.Get(ctx, domain.TableConfig, &cfg)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, backend.Used())
}
