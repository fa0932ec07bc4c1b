// internal/service/audit_service.go
package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"macscan/internal/model"
	"macscan/internal/registry"
	"macscan/internal/repository"
)

// AuditService mirrors registry changes into the Postgres audit store. It
// consumes the change-event stream so persistence stays off the engine's
// hot path; a slow or down database costs history, never scanning.
type AuditService struct {
	registry *registry.Registry
	repo     repository.RecordRepository
	logger   *zap.Logger

	cancel func()
	wg     sync.WaitGroup
}

// NewAuditService creates an audit service.
func NewAuditService(reg *registry.Registry, repo repository.RecordRepository, logger *zap.Logger) *AuditService {
	return &AuditService{
		registry: reg,
		repo:     repo,
		logger:   logger.With(zap.String("service", "audit")),
	}
}

// LoadHistory seeds the registry with previously persisted records. They
// enter as Removed history; live scanning takes over from there.
func (s *AuditService) LoadHistory(ctx context.Context) error {
	records, err := s.repo.ListAll(ctx)
	if err != nil {
		return err
	}

	for _, rec := range records {
		s.registry.Seed(rec)
	}

	s.logger.Info("Scan history loaded", zap.Int("records", len(records)))
	return nil
}

// Start subscribes to registry events and persists them until Stop.
func (s *AuditService) Start() {
	events, cancel := s.registry.Bus().Subscribe()
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for event := range events {
			s.persist(event)
		}
	}()

	s.logger.Info("Audit persistence started")
}

// Stop unsubscribes and waits for the persistence goroutine to drain.
func (s *AuditService) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.logger.Info("Audit persistence stopped")
}

func (s *AuditService) persist(event model.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rec := event.Record
	if err := s.repo.Upsert(ctx, rec); err != nil {
		s.logger.Warn("Audit upsert failed", zap.Error(err), zap.String("port_id", rec.PortID))
		return
	}

	// Attempt log rows only for settled attempts.
	if rec.Status == model.StatusSuccess || rec.Status == model.StatusFailed {
		if err := s.repo.AppendAttempt(ctx, rec); err != nil {
			s.logger.Warn("Audit attempt append failed", zap.Error(err), zap.String("port_id", rec.PortID))
		}
	}
}
