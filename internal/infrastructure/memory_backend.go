package infrastructure

import (
	"context"
	"fmt"
	"sync"

	"creativelens/internal/domain"
)

// MemoryBackend keeps tables in process memory. A positive quota caps the
// total stored bytes across all tables.
type MemoryBackend struct {
	tables map[string][]byte
	used   int64
	quota  int64
	mutex  sync.RWMutex
}

func NewMemoryBackend(quotaBytes int64) *MemoryBackend {
	return &MemoryBackend{
		tables: make(map[string][]byte),
		quota:  quotaBytes,
	}
}

func (b *MemoryBackend) Name() string { return "memory" }

func (b *MemoryBackend) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (b *MemoryBackend) Load(ctx context.Context, table string) ([]byte, bool, error) {
	b.mutex.RLock()
	defer b.mutex.RUnlock()

	data, ok := b.tables[table]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, true, nil
}

func (b *MemoryBackend) Save(ctx context.Context, table string, data []byte) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	used := b.used - int64(len(b.tables[table])) + int64(len(data))
	if b.quota > 0 && used > b.quota {
		return fmt.Errorf("%w: %d of %d bytes", domain.ErrStorageQuotaExceeded, used, b.quota)
	}

	stored := make([]byte, len(data))
	copy(stored, data)
	b.tables[table] = stored
	b.used = used
	return nil
}

func (b *MemoryBackend) Delete(ctx context.Context, table string) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.used -= int64(len(b.tables[table]))
	delete(b.tables, table)
	return nil
}

func (b *MemoryBackend) Reset(ctx context.Context) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.tables = make(map[string][]byte)
	b.used = 0
	return nil
}

// Used reports the bytes currently stored.
func (b *MemoryBackend) Used() int64 {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	return b.used
}
