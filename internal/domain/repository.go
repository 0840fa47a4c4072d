package domain

import (
	"context"
	"io"
	"time"
)

// Logical tables held by the key-value store.
const (
	TableClients          = "clients"
	TableAnalysisHistory  = "analysis_history"
	TablePerformanceData  = "performance_data"
	TableUsers            = "users"
	TableLoggedInUser     = "logged_in_user"
	TableConfig           = "config"
	TableProcessedReports = "processed_reports_hashes"
)

// UserTables are erased by a client-data wipe. Config survives it.
var UserTables = []string{
	TableClients,
	TableAnalysisHistory,
	TableUsers,
	TablePerformanceData,
	TableProcessedReports,
	TableLoggedInUser,
}

// KeyValueStore persists one serialized value per table. Get leaves dest
// untouched when the table has never been written.
type KeyValueStore interface {
	Get(ctx context.Context, table string, dest any) (bool, error)
	Set(ctx context.Context, table string, value any) error
	Clear(ctx context.Context, table string) error
	ClearAll(ctx context.Context) error
	Connected() bool
}

// StorageSession is a KeyValueStore whose connection state is explicit.
type StorageSession interface {
	KeyValueStore
	Connect(ctx context.Context) error
	FactoryReset(ctx context.Context) error
}

// interface for performance data operations
type PerformanceRepository interface {
	GetAll(ctx context.Context) (PerformanceData, error)
	SaveAll(ctx context.Context, data PerformanceData) error
	GetByClient(ctx context.Context, clientID string) ([]PerformanceRecord, error)
	// Update loads the table, applies fn and saves the result as one write.
	// Nothing is saved when fn returns an error.
	Update(ctx context.Context, fn func(PerformanceData) error) error
}

// interface for analysis history operations
type HistoryRepository interface {
	List(ctx context.Context) ([]AnalysisHistoryEntry, error)
	Append(ctx context.Context, entry AnalysisHistoryEntry) error
	Replace(ctx context.Context, entries []AnalysisHistoryEntry) error
}

// interface for client operations
type ClientRepository interface {
	List(ctx context.Context) ([]Client, error)
	Get(ctx context.Context, id string) (*Client, error)
	Save(ctx context.Context, clients []Client) error
}

// interface for per-client processed report hashes
type ReportLogRepository interface {
	Get(ctx context.Context) (map[string]LastUploadInfo, error)
	Save(ctx context.Context, entries map[string]LastUploadInfo) error
}

// AnalysisCache stores analyzer results keyed by creative identity with a TTL.
type AnalysisCache interface {
	Get(ctx context.Context, key AnalysisCacheKey) (*CachedAnalysis, error)
	Set(ctx context.Context, key AnalysisCacheKey, result AnalysisResult) error
	Purge(ctx context.Context) error
	TTL() time.Duration
}

// UploadedFile is a file handed in by the operator. Open may fail for corrupt uploads.
type UploadedFile interface {
	Name() string
	Open() (io.ReadCloser, error)
}

// CreativeInspector classifies raw creative bytes.
type CreativeInspector interface {
	Inspect(filename, contentType string, data []byte) (Creative, error)
}

// AnalysisRequest is what the creative analyzer receives.
type AnalysisRequest struct {
	Creative Creative
	ClientID string
	Language Language
	Format   FormatGroup
	Context  string
}

// Analyzer produces a structured creative analysis. It is an external collaborator.
type Analyzer interface {
	Analyze(ctx context.Context, req AnalysisRequest) (*AnalysisResult, error)
}

// RawRow is one spreadsheet row keyed by header text.
type RawRow map[string]string

// ReportReader turns an uploaded spreadsheet into header-keyed rows.
type ReportReader interface {
	ReadRows(r io.Reader) ([]RawRow, error)
}
