// internal/service/monitor_service.go
package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"macscan/internal/config"
	"macscan/internal/engine"
	"macscan/internal/model"
	"macscan/internal/registry"
	"macscan/internal/repository"
)

// MonitorService is the query/control facade over the scan engine: filtered
// snapshots, record lifecycle actions and scan loop control. The optional
// repository mirrors operator deletions into the audit store.
type MonitorService struct {
	engine *engine.Engine
	repo   repository.RecordRepository
	config *config.Config
	logger *zap.Logger
}

// ScanStatus describes the engine for the status endpoint.
type ScanStatus struct {
	Scanning bool `json:"scanning"`
	Records  int  `json:"records"`
	Inflight int  `json:"inflight"`
}

// NewMonitorService creates a monitor service. repo may be nil when the
// audit store is disabled.
func NewMonitorService(eng *engine.Engine, repo repository.RecordRepository, cfg *config.Config, logger *zap.Logger) *MonitorService {
	return &MonitorService{
		engine: eng,
		repo:   repo,
		config: cfg,
		logger: logger.With(zap.String("service", "monitor")),
	}
}

// ListRecords returns a filtered snapshot of the registry. statusCSV is a
// comma-separated list of status labels; query is free text matched against
// port ID, MAC and status.
func (s *MonitorService) ListRecords(statusCSV, query string) ([]*model.Record, error) {
	filter := &registry.Filter{Query: query}

	if statusCSV != "" {
		for _, part := range strings.Split(statusCSV, ",") {
			status := model.RecordStatus(strings.ToUpper(strings.TrimSpace(part)))
			if !status.Valid() {
				return nil, fmt.Errorf("unknown status %q", part)
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}

	return s.engine.Registry().Snapshot(filter), nil
}

// GetRecord returns one record or nil if the port was never seen.
func (s *MonitorService) GetRecord(portID string) *model.Record {
	return s.engine.Registry().Get(portID)
}

// ResetRecord discards a record's outcome and forces a fresh identification
// cycle on the next scheduler tick.
func (s *MonitorService) ResetRecord(portID string) (*model.Record, error) {
	rec := s.engine.Reset(portID)
	if rec == nil {
		return nil, fmt.Errorf("no record for port %q", portID)
	}

	s.logger.Info("Record reset", zap.String("port_id", portID))
	return rec, nil
}

// ClearAll removes all settled records. In-flight identifications are kept.
func (s *MonitorService) ClearAll(ctx context.Context) int {
	return s.clear(ctx, nil)
}

// ClearFailed removes settled records that never produced a MAC, mirroring
// the desktop tool's "remove useless rows" action.
func (s *MonitorService) ClearFailed(ctx context.Context) int {
	return s.clear(ctx, func(rec *model.Record) bool {
		return rec.MAC != ""
	})
}

func (s *MonitorService) clear(ctx context.Context, keep func(*model.Record) bool) int {
	removed := s.engine.Registry().Clear(keep)

	if s.repo != nil && len(removed) > 0 {
		if err := s.repo.DeleteByPortIDs(ctx, removed); err != nil {
			s.logger.Error("Failed to clear records from audit store", zap.Error(err))
		}
	}

	return len(removed)
}

// StartScanning resumes the discovery loop.
func (s *MonitorService) StartScanning() bool {
	return s.engine.StartScanning()
}

// StopScanning pauses the discovery loop.
func (s *MonitorService) StopScanning() bool {
	return s.engine.StopScanning()
}

// Status reports scan loop and registry counters.
func (s *MonitorService) Status() ScanStatus {
	return ScanStatus{
		Scanning: s.engine.IsScanning(),
		Records:  s.engine.Registry().Len(),
		Inflight: s.engine.InflightCount(),
	}
}

// Subscribe returns a registry change-event stream plus its cancel func.
func (s *MonitorService) Subscribe() (<-chan model.Event, func()) {
	return s.engine.Registry().Bus().Subscribe()
}
