package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"creativelens/internal/domain"
	"creativelens/pkg/logger"
)

func newClientService(store *testStore) *ClientService {
	svc := NewClientService(store.clients, store.history, store.perf, store.reportLog, logger.Discard())
	svc.newID = func() string { return "fixed-id" }
	return svc
}

func TestClientService_Create(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc := newClientService(store)

	client, err := svc.Create(ctx, ClientInput{Name: "  Acme ", Currency: "usd", MetaAccountName: "Acme Ads"})
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", client.ID)
	assert.Equal(t, "Acme", client.Name)
	assert.Equal(t, "USD", client.Currency)
	assert.NotEmpty(t, client.Logo)

	clients, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, clients, 1)

	_, err = svc.Create(ctx, ClientInput{Name: "Other", MetaAccountName: "Acme Ads"})
	assert.ErrorIs(t, err, domain.ErrInvalidClient)

	_, err = svc.Create(ctx, ClientInput{Name: "   "})
	assert.ErrorIs(t, err, domain.ErrInvalidClient)
}

func TestClientService_ListEmpty(t *testing.T) {
	clients, err := newClientService(newTestStore(t)).List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, clients)
	assert.Empty(t, clients)
}

func TestClientService_DeleteErasesOwnedData(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	store.seedClients(t, domain.Client{ID: "c1"}, domain.Client{ID: "c2"})
	store.seedRecords(t, "c1", domain.PerformanceRecord{ClientID: "c1", AdName: "a"})
	store.seedRecords(t, "c2", domain.PerformanceRecord{ClientID: "c2", AdName: "b"})
	store.seedHistory(t,
		domain.AnalysisHistoryEntry{ClientID: "c1", Hash: "1"},
		domain.AnalysisHistoryEntry{ClientID: "c2", Hash: "2"},
	)
	require.NoError(t, store.reportLog.Save(ctx, map[string]domain.LastUploadInfo{
		"c1": {ClientID: "c1", FileHash: "x"},
		"c2": {ClientID: "c2", FileHash: "y"},
	}))

	require.NoError(t, newClientService(store).Delete(ctx, "c1"))

	clients, err := store.clients.List(ctx)
	require.NoError(t, err)
	require.Len(t, clients, 1)
	assert.Equal(t, "c2", clients[0].ID)

	history, err := store.history.List(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "c2", history[0].ClientID)

	all, err := store.perf.GetAll(ctx)
	require.NoError(t, err)
	assert.NotContains(t, all, "c1")
	assert.Len(t, all["c2"], 1)

	uploads, err := store.reportLog.Get(ctx)
	require.NoError(t, err)
	assert.NotContains(t, uploads, "c1")
	assert.Contains(t, uploads, "c2")
}

func TestClientService_DeleteUnknown(t *testing.T) {
	err := newClientService(newTestStore(t)).Delete(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrClientNotFound)
}
