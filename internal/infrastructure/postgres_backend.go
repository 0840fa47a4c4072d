package infrastructure

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

const (
	createStorageTable = `CREATE TABLE IF NOT EXISTS storage (
	table_name TEXT PRIMARY KEY,
	data JSONB
)`
	selectStorage = `SELECT data FROM storage WHERE table_name = $1`
	upsertStorage = `INSERT INTO storage (table_name, data) VALUES ($1, $2)
ON CONFLICT (table_name) DO UPDATE SET data = EXCLUDED.data`
	deleteStorage = `DELETE FROM storage WHERE table_name = $1`
	dropStorage   = `DROP TABLE IF EXISTS storage`
)

// PostgresBackend stores each table as one JSONB row of the storage table.
type PostgresBackend struct {
	db *sql.DB
}

// OpenPostgres opens a lib/pq pool. No connection is made until Ping.
func OpenPostgres(dsn string) (*PostgresBackend, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	return NewPostgresBackend(db), nil
}

func NewPostgresBackend(db *sql.DB) *PostgresBackend {
	return &PostgresBackend{db: db}
}

func (b *PostgresBackend) Name() string { return "postgres" }

// Ping checks the connection and creates the storage table if needed.
func (b *PostgresBackend) Ping(ctx context.Context) error {
	if err := b.db.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres ping: %w", err)
	}
	if _, err := b.db.ExecContext(ctx, createStorageTable); err != nil {
		return fmt.Errorf("failed to create storage table: %w", err)
	}
	return nil
}

func (b *PostgresBackend) Load(ctx context.Context, table string) ([]byte, bool, error) {
	var data []byte
	err := b.db.QueryRowContext(ctx, selectStorage, table).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (b *PostgresBackend) Save(ctx context.Context, table string, data []byte) error {
	_, err := b.db.ExecContext(ctx, upsertStorage, table, string(data))
	return err
}

func (b *PostgresBackend) Delete(ctx context.Context, table string) error {
	_, err := b.db.ExecContext(ctx, deleteStorage, table)
	return err
}

func (b *PostgresBackend) Reset(ctx context.Context) error {
	if _, err := b.db.ExecContext(ctx, dropStorage); err != nil {
		return err
	}
	_, err := b.db.ExecContext(ctx, createStorageTable)
	return err
}

func (b *PostgresBackend) Close() error {
	return b.db.Close()
}
