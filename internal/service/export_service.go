// internal/service/export_service.go
package service

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"macscan/internal/model"
	"macscan/internal/registry"
)

// ExportService hands a consistent, ordered view of the registry to
// external exporters. The snapshot is taken once per call; concurrent scan
// writes never show through a row sequence.
type ExportService struct {
	source Snapshotter
	logger *zap.Logger
}

// Snapshotter is the registry capability the exporter needs.
type Snapshotter interface {
	Snapshot(filter *registry.Filter) []*model.Record
}

// NewExportService creates an export service.
func NewExportService(source Snapshotter, logger *zap.Logger) *ExportService {
	return &ExportService{
		source: source,
		logger: logger.With(zap.String("service", "export")),
	}
}

// Rows returns export tuples ordered by first appearance. The timestamp is
// the record's last attempt when one exists, otherwise first_seen, matching
// the row times of the desktop tool this replaced.
func (s *ExportService) Rows(filter *registry.Filter) []model.ExportRow {
	records := s.source.Snapshot(filter)

	rows := make([]model.ExportRow, 0, len(records))
	for _, rec := range records {
		ts := rec.FirstSeen
		if rec.LastAttempt != nil {
			ts = *rec.LastAttempt
		}
		rows = append(rows, model.ExportRow{
			Timestamp: ts,
			PortID:    rec.PortID,
			MAC:       rec.MAC,
			Status:    string(rec.Status),
		})
	}

	return rows
}

// WriteCSV streams rows as CSV with a header line.
func (s *ExportService) WriteCSV(w io.Writer, rows []model.ExportRow) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"time", "port", "mac", "status"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, row := range rows {
		record := []string{
			row.Timestamp.Format(time.RFC3339),
			row.PortID,
			row.MAC,
			row.Status,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}

	return nil
}
