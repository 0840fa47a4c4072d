package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"creativelens/internal/domain"
	"creativelens/pkg/logger"
)

// ClientInput is what an operator supplies to create a client.
type ClientInput struct {
	Name            string `json:"name"`
	Logo            string `json:"logo"`
	Currency        string `json:"currency"`
	UserID          string `json:"userId"`
	MetaAccountName string `json:"metaAccountName"`
}

// ClientService manages clients and erases everything they own on delete.
type ClientService struct {
	clientRepo  domain.ClientRepository
	historyRepo domain.HistoryRepository
	perfRepo    domain.PerformanceRepository
	reportLog   domain.ReportLogRepository
	logger      *logger.Logger
	newID       func() string
}

func NewClientService(
	clientRepo domain.ClientRepository,
	historyRepo domain.HistoryRepository,
	perfRepo domain.PerformanceRepository,
	reportLog domain.ReportLogRepository,
	logger *logger.Logger,
) *ClientService {
	return &ClientService{
		clientRepo:  clientRepo,
		historyRepo: historyRepo,
		perfRepo:    perfRepo,
		reportLog:   reportLog,
		logger:      logger,
		newID:       uuid.NewString,
	}
}

func (s *ClientService) List(ctx context.Context) ([]domain.Client, error) {
	clients, err := s.clientRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load clients: %w", err)
	}
	if clients == nil {
		clients = []domain.Client{}
	}
	return clients, nil
}

func (s *ClientService) Get(ctx context.Context, id string) (*domain.Client, error) {
	return s.clientRepo.Get(ctx, id)
}

// Create adds a client. Account names must be unique so report rows route to one client.
func (s *ClientService) Create(ctx context.Context, in ClientInput) (*domain.Client, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidClient)
	}

	clients, err := s.clientRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load clients: %w", err)
	}
	account := strings.TrimSpace(in.MetaAccountName)
	if account != "" {
		for _, c := range clients {
			if c.MetaAccountName == account {
				return nil, fmt.Errorf("%w: account %q already belongs to %s", domain.ErrInvalidClient, account, c.Name)
			}
		}
	}

	client := domain.Client{
		ID:              s.newID(),
		Name:            name,
		Logo:            in.Logo,
		Currency:        strings.ToUpper(strings.TrimSpace(in.Currency)),
		UserID:          in.UserID,
		MetaAccountName: account,
	}
	if client.Currency == "" {
		client.Currency = defaultCurrency
	}
	if client.Logo == "" {
		client.Logo = avatarURL(name)
	}

	if err := s.clientRepo.Save(ctx, append(clients, client)); err != nil {
		return nil, fmt.Errorf("failed to save client: %w", err)
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"client_id": client.ID,
		"name":      client.Name,
	}).Info("Client created")
	return &client, nil
}

// Delete removes the client with its history, performance rows and report log entry.
func (s *ClientService) Delete(ctx context.Context, id string) error {
	log := s.logger.WithContext(logger.WithClient(ctx, id))

	clients, err := s.clientRepo.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to load clients: %w", err)
	}
	kept := make([]domain.Client, 0, len(clients))
	var name string
	for _, c := range clients {
		if c.ID == id {
			name = c.Name
			continue
		}
		kept = append(kept, c)
	}
	if len(kept) == len(clients) {
		return domain.ErrClientNotFound
	}
	log.WithField("name", name).Warn("Deleting client and all associated data")

	if err := s.clientRepo.Save(ctx, kept); err != nil {
		return fmt.Errorf("failed to save clients: %w", err)
	}

	history, err := s.historyRepo.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to load analysis history: %w", err)
	}
	if err := s.historyRepo.Replace(ctx, domain.WithoutClient(history, id)); err != nil {
		return fmt.Errorf("failed to save analysis history: %w", err)
	}

	err = s.perfRepo.Update(ctx, func(data domain.PerformanceData) error {
		delete(data, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete performance data: %w", err)
	}

	uploads, err := s.reportLog.Get(ctx)
	if err != nil {
		return fmt.Errorf("failed to load report log: %w", err)
	}
	if _, ok := uploads[id]; ok {
		delete(uploads, id)
		if err := s.reportLog.Save(ctx, uploads); err != nil {
			return fmt.Errorf("failed to save report log: %w", err)
		}
	}

	log.Info("Client deleted")
	return nil
}
