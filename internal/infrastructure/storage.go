package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"creativelens/internal/domain"
	"creativelens/pkg/logger"
	"creativelens/pkg/metrics"
)

// Backend persists one JSON document per table name.
type Backend interface {
	Name() string
	Ping(ctx context.Context) error
	// Load returns false when the table has never been written.
	Load(ctx context.Context, table string) ([]byte, bool, error)
	Save(ctx context.Context, table string, data []byte) error
	Delete(ctx context.Context, table string) error
	// Reset drops every table, configuration included.
	Reset(ctx context.Context) error
}

// Database is the storage session. Until Connect succeeds every table except
// config refuses reads and writes with domain.ErrNotConnected.
type Database struct {
	backend   Backend
	connected atomic.Bool
	logger    *logger.Logger
	metrics   *metrics.Metrics
}

func NewDatabase(backend Backend, logger *logger.Logger, metrics *metrics.Metrics) *Database {
	return &Database{backend: backend, logger: logger, metrics: metrics}
}

func (d *Database) Backend() string { return d.backend.Name() }

func (d *Database) Connected() bool { return d.connected.Load() }

// Connect pings the backend. A failed ping leaves the session disconnected.
func (d *Database) Connect(ctx context.Context) error {
	start := time.Now()
	if err := d.backend.Ping(ctx); err != nil {
		d.connected.Store(false)
		d.metrics.RecordStorage("connect", "", "failed", time.Since(start))
		return fmt.Errorf("%w: %v", domain.ErrNotConnected, err)
	}
	d.connected.Store(true)
	d.metrics.RecordStorage("connect", "", "success", time.Since(start))
	return nil
}

func (d *Database) guard(table string) error {
	if table == domain.TableConfig || d.Connected() {
		return nil
	}
	return domain.ErrNotConnected
}

func (d *Database) Get(ctx context.Context, table string, dest any) (bool, error) {
	if err := d.guard(table); err != nil {
		return false, err
	}
	start := time.Now()
	data, ok, err := d.backend.Load(ctx, table)
	if err != nil {
		d.metrics.RecordStorage("get", table, "failed", time.Since(start))
		return false, fmt.Errorf("failed to load %s: %w", table, err)
	}
	d.metrics.RecordStorage("get", table, "success", time.Since(start))
	if !ok || len(data) == 0 || string(data) == "null" {
		return false, nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", table, err)
	}
	return true, nil
}

func (d *Database) Set(ctx context.Context, table string, value any) error {
	if err := d.guard(table); err != nil {
		return err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", table, err)
	}

	start := time.Now()
	if err := d.backend.Save(ctx, table, data); err != nil {
		d.metrics.RecordStorage("set", table, "failed", time.Since(start))
		if errors.Is(err, domain.ErrStorageQuotaExceeded) {
			d.logger.WithContext(ctx).WithFields(map[string]any{
				"table": table,
				"bytes": len(data),
			}).Error("Storage is full, delete old clients or analyses to free space")
		}
		return fmt.Errorf("failed to save %s: %w", table, err)
	}
	d.metrics.RecordStorage("set", table, "success", time.Since(start))
	return nil
}

func (d *Database) Clear(ctx context.Context, table string) error {
	if err := d.guard(table); err != nil {
		return err
	}
	start := time.Now()
	if err := d.backend.Delete(ctx, table); err != nil {
		d.metrics.RecordStorage("clear", table, "failed", time.Since(start))
		return fmt.Errorf("failed to clear %s: %w", table, err)
	}
	d.metrics.RecordStorage("clear", table, "success", time.Since(start))
	return nil
}

// ClearAll erases the user tables and leaves configuration in place.
func (d *Database) ClearAll(ctx context.Context) error {
	if !d.Connected() {
		return domain.ErrNotConnected
	}
	for _, table := range domain.UserTables {
		if err := d.Clear(ctx, table); err != nil {
			return err
		}
	}
	d.logger.WithContext(ctx).WithField("tables", len(domain.UserTables)).Warn("Cleared all user tables")
	return nil
}

// FactoryReset drops everything. It works while disconnected so a broken
// configuration can be wiped.
func (d *Database) FactoryReset(ctx context.Context) error {
	start := time.Now()
	if err := d.backend.Reset(ctx); err != nil {
		d.metrics.RecordStorage("reset", "", "failed", time.Since(start))
		return fmt.Errorf("failed to reset storage: %w", err)
	}
	d.metrics.RecordStorage("reset", "", "success", time.Since(start))
	d.logger.WithContext(ctx).Warn("Storage factory reset")
	return nil
}
