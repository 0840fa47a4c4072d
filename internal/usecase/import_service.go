package usecase

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"creativelens/internal/domain"
	"creativelens/pkg/fingerprint"
	"creativelens/pkg/logger"
	"creativelens/pkg/metrics"
)

// AccountImport is the outcome for one ad account found in a report.
type AccountImport struct {
	AccountName string `json:"accountName"`
	ClientID    string `json:"clientId"`
	Added       int    `json:"added"`
	Duplicates  int    `json:"duplicates"`
}

// ImportResult summarizes a report import.
type ImportResult struct {
	FileName        string          `json:"fileName"`
	FileHash        string          `json:"fileHash"`
	Rows            int             `json:"rows"`
	SkippedRows     int             `json:"skippedRows"`
	Accounts        []AccountImport `json:"accounts"`
	UnknownAccounts []string        `json:"unknownAccounts,omitempty"`
	CreatedClients  []domain.Client `json:"createdClients,omitempty"`
	AlreadyImported bool            `json:"alreadyImported"`
}

// ImportService loads ad-performance reports into the performance table.
type ImportService struct {
	reader     domain.ReportReader
	perfRepo   domain.PerformanceRepository
	clientRepo domain.ClientRepository
	reportLog  domain.ReportLogRepository
	logger     *logger.Logger
	metrics    *metrics.Metrics
	newID      func() string
}

func NewImportService(
	reader domain.ReportReader,
	perfRepo domain.PerformanceRepository,
	clientRepo domain.ClientRepository,
	reportLog domain.ReportLogRepository,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *ImportService {
	return &ImportService{
		reader:     reader,
		perfRepo:   perfRepo,
		clientRepo: clientRepo,
		reportLog:  reportLog,
		logger:     logger,
		metrics:    metrics,
		newID:      uuid.NewString,
	}
}

// Import reads a report, routes rows to clients by account name and appends
// rows whose unique id the client does not already have. Accounts with no
// client are reported, and become new clients when createMissing is set.
func (s *ImportService) Import(ctx context.Context, fileName string, r io.Reader, createMissing bool) (*ImportResult, error) {
	log := s.logger.WithContext(ctx).WithField("file_name", fileName)

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	rows, err := s.reader.ReadRows(bytes.NewReader(data))
	if err != nil {
		s.metrics.RecordImport("failed", 1)
		return nil, fmt.Errorf("%w: %v", domain.ErrEmptyReport, err)
	}
	if len(rows) == 0 {
		s.metrics.RecordImport("failed", 1)
		return nil, domain.ErrEmptyReport
	}

	result := &ImportResult{FileName: fileName, FileHash: fingerprint.Bytes(data), Rows: len(rows)}

	accounts := accountsInOrder(rows)
	clients, err := s.clientRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load clients: %w", err)
	}
	byAccount := make(map[string]domain.Client, len(clients))
	for _, c := range clients {
		if c.MetaAccountName != "" {
			byAccount[c.MetaAccountName] = c
		}
	}

	for _, name := range accounts {
		if _, ok := byAccount[name]; !ok {
			result.UnknownAccounts = append(result.UnknownAccounts, name)
		}
	}

	if createMissing && len(result.UnknownAccounts) > 0 {
		for _, name := range result.UnknownAccounts {
			c := domain.Client{
				ID:              s.newID(),
				Name:            name,
				Logo:            avatarURL(name),
				Currency:        currencyFor(rows, name),
				MetaAccountName: name,
			}
			clients = append(clients, c)
			byAccount[name] = c
			result.CreatedClients = append(result.CreatedClients, c)
		}
		if err := s.clientRepo.Save(ctx, clients); err != nil {
			return nil, fmt.Errorf("failed to save new clients: %w", err)
		}
		log.WithField("created", len(result.CreatedClients)).Info("Created clients for new accounts")
		result.UnknownAccounts = nil
	}

	uploads, err := s.reportLog.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load report log: %w", err)
	}
	if uploads == nil {
		uploads = make(map[string]domain.LastUploadInfo)
	}

	perAccount := make(map[string]*AccountImport)
	err = s.perfRepo.Update(ctx, func(perf domain.PerformanceData) error {
		seen := make(map[string]map[string]struct{})
		for _, row := range rows {
			client, ok := byAccount[row[ColAccountName]]
			if !ok {
				result.SkippedRows++
				continue
			}
			acc := perAccount[client.MetaAccountName]
			if acc == nil {
				acc = &AccountImport{AccountName: client.MetaAccountName, ClientID: client.ID}
				perAccount[client.MetaAccountName] = acc
			}

			ids := seen[client.ID]
			if ids == nil {
				ids = make(map[string]struct{}, len(perf[client.ID]))
				for _, existing := range perf[client.ID] {
					ids[existing.UniqueID] = struct{}{}
				}
				seen[client.ID] = ids
			}

			rec := MapRow(row, client.ID)
			if _, dup := ids[rec.UniqueID]; dup {
				acc.Duplicates++
				continue
			}
			ids[rec.UniqueID] = struct{}{}
			perf[client.ID] = append(perf[client.ID], rec)
			acc.Added++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.AlreadyImported = len(perAccount) > 0
	added, duplicates := 0, 0
	for _, name := range accounts {
		acc, ok := perAccount[name]
		if !ok {
			continue
		}
		if uploads[acc.ClientID].FileHash != result.FileHash {
			result.AlreadyImported = false
		}
		uploads[acc.ClientID] = domain.LastUploadInfo{ClientID: acc.ClientID, FileHash: result.FileHash, RecordsAdded: acc.Added}
		result.Accounts = append(result.Accounts, *acc)
		added += acc.Added
		duplicates += acc.Duplicates
	}
	if len(perAccount) > 0 {
		if err := s.reportLog.Save(ctx, uploads); err != nil {
			log.WithError(err).Warn("Failed to save report log")
		}
	}

	s.metrics.RecordImport("added", added)
	s.metrics.RecordImport("duplicate", duplicates)
	s.metrics.RecordImport("skipped", result.SkippedRows)

	log.WithFields(map[string]any{
		"rows":       result.Rows,
		"accounts":   len(result.Accounts),
		"added":      added,
		"duplicates": duplicates,
		"skipped":    result.SkippedRows,
		"unknown":    len(result.UnknownAccounts),
	}).Info("Report imported")

	return result, nil
}

// accountsInOrder lists distinct non-empty account names by first appearance.
func accountsInOrder(rows []domain.RawRow) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, row := range rows {
		name := row[ColAccountName]
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// currencyFor takes the currency of the account's first row that names one.
func currencyFor(rows []domain.RawRow, account string) string {
	for _, row := range rows {
		if row[ColAccountName] == account && row[ColCurrency] != "" {
			return row[ColCurrency]
		}
	}
	return defaultCurrency
}

func avatarURL(name string) string {
	initial := ""
	if name != "" {
		initial = strings.ToUpper(string([]rune(name)[:1]))
	}
	return "https://avatar.vercel.sh/" + url.PathEscape(name) + ".png?text=" + url.QueryEscape(initial)
}
