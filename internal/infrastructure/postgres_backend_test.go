package infrastructure

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockPostgres(t *testing.T) (*PostgresBackend, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresBackend(db), mock
}

func TestPostgresBackend_PingCreatesTable(t *testing.T) {
	backend, mock := newMockPostgres(t)

	mock.ExpectExec(createStorageTable).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, backend.Ping(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresBackend_Load(t *testing.T) {
	backend, mock := newMockPostgres(t)

	mock.ExpectQuery(selectStorage).
		WithArgs("clients").
		WillReturnRows(sqlmock.NewRows([]string{"data"}).AddRow([]byte(`[{"id":"c1"}]`)))

	data, ok, err := backend.Load(context.Background(), "clients")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `[{"id":"c1"}]`, string(data))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresBackend_LoadMissing(t *testing.T) {
	backend, mock := newMockPostgres(t)

	mock.ExpectQuery(selectStorage).
		WithArgs("clients").
		WillReturnRows(sqlmock.NewRows([]string{"data"}))

	data, ok, err := backend.Load(context.Background(), "clients")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, data)
}

func TestPostgresBackend_SaveAndDelete(t *testing.T) {
	backend, mock := newMockPostgres(t)
	ctx := context.Background()

	mock.ExpectExec(upsertStorage).
		WithArgs("clients", `[]`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(deleteStorage).
		WithArgs("clients").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, backend.Save(ctx, "clients", []byte(`[]`)))
	require.NoError(t, backend.Delete(ctx, "clients"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresBackend_Reset(t *testing.T) {
	backend, mock := newMockPostgres(t)

	mock.ExpectExec(dropStorage).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(createStorageTable).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, backend.Reset(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresBackend_ErrorsPropagate(t *testing.T) {
	backend, mock := newMockPostgres(t)
	db := newTestDatabase(t, backend)

	mock.ExpectExec(createStorageTable).WillReturnError(errors.New("permission denied"))

	err := db.Connect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
	assert.False(t, db.Connected())
}
