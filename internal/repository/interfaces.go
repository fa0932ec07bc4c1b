// internal/repository/interfaces.go
package repository

import (
	"context"

	"macscan/internal/model"
)

// RecordRepository persists scan records for audit and restart recovery.
// The in-memory registry stays authoritative; persistence is best-effort
// and never on the engine's hot path.
type RecordRepository interface {
	Upsert(ctx context.Context, rec *model.Record) error
	ListAll(ctx context.Context) ([]*model.Record, error)
	AppendAttempt(ctx context.Context, rec *model.Record) error
	DeleteByPortIDs(ctx context.Context, portIDs []string) error
}
