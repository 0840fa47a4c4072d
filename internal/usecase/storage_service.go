package usecase

import (
	"context"
	"fmt"

	"creativelens/internal/domain"
	"creativelens/pkg/logger"
)

// StorageStatus is the connection state reported to operators.
type StorageStatus struct {
	Backend   string `json:"backend"`
	Connected bool   `json:"connected"`
}

// StorageService exposes the storage session's connection and wipe operations.
type StorageService struct {
	session domain.StorageSession
	cache   domain.AnalysisCache
	backend string
	logger  *logger.Logger
}

func NewStorageService(session domain.StorageSession, cache domain.AnalysisCache, backend string, logger *logger.Logger) *StorageService {
	return &StorageService{session: session, cache: cache, backend: backend, logger: logger}
}

func (s *StorageService) Status() StorageStatus {
	return StorageStatus{Backend: s.backend, Connected: s.session.Connected()}
}

// Connect tests the backend and marks the session connected on success.
func (s *StorageService) Connect(ctx context.Context) (StorageStatus, error) {
	log := s.logger.WithContext(ctx).WithField("backend", s.backend)
	if err := s.session.Connect(ctx); err != nil {
		log.WithError(err).Error("Storage connection test failed")
		return s.Status(), err
	}
	log.Info("Storage connected")
	return s.Status(), nil
}

// ClearAllData erases every user table and cached analysis. Configuration survives.
func (s *StorageService) ClearAllData(ctx context.Context) error {
	log := s.logger.WithContext(ctx)
	if err := s.session.ClearAll(ctx); err != nil {
		return fmt.Errorf("failed to clear data: %w", err)
	}
	if err := s.cache.Purge(ctx); err != nil {
		return fmt.Errorf("failed to purge analysis cache: %w", err)
	}
	log.Warn("All client data cleared")
	return nil
}

// FactoryReset erases everything including configuration.
func (s *StorageService) FactoryReset(ctx context.Context) error {
	log := s.logger.WithContext(ctx)
	if err := s.session.FactoryReset(ctx); err != nil {
		return fmt.Errorf("failed to reset storage: %w", err)
	}
	if err := s.cache.Purge(ctx); err != nil {
		return fmt.Errorf("failed to purge analysis cache: %w", err)
	}
	log.Warn("Storage factory reset")
	return nil
}
