// internal/registry/registry.go
package registry

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"macscan/internal/model"
)

// Registry is the authoritative table of every port ever observed and its
// identification state. It is the sole writer of records; all mutations go
// through its methods so that status, mac, attempt_count and last_error are
// always updated as one unit. Removal always wins over a late worker result
// for the same port.
type Registry struct {
	mu      sync.RWMutex
	records map[string]*model.Record
	bus     *Bus
	logger  *zap.Logger
	now     func() time.Time
}

// New creates an empty registry.
func New(logger *zap.Logger) *Registry {
	return &Registry{
		records: make(map[string]*model.Record),
		bus:     NewBus(logger),
		logger:  logger.With(zap.String("component", "registry")),
		now:     time.Now,
	}
}

// SetClock overrides the registry clock. Test hook.
func (r *Registry) SetClock(now func() time.Time) {
	r.now = now
}

// Bus returns the change-event bus for subscribers.
func (r *Registry) Bus() *Bus {
	return r.bus
}

// Close shuts down the event bus.
func (r *Registry) Close() {
	r.bus.Close()
}

// Get returns a copy of the record for portID, or nil if never seen.
func (r *Registry) Get(portID string) *model.Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[portID]
	if !ok {
		return nil
	}
	return rec.Clone()
}

// ActivePorts returns the set of port IDs whose records are not Removed.
// This is the "known_active" side of the scheduler's snapshot diff.
func (r *Registry) ActivePorts() map[string]struct{} {
	r.mu.RLock()
	defer r.mu.RUnlock()

	active := make(map[string]struct{}, len(r.records))
	for id, rec := range r.records {
		if rec.Status.IsActive() {
			active[id] = struct{}{}
		}
	}
	return active
}

// Dispatch handles an appeared port at a tick boundary. It creates the
// record on first appearance and moves it to Reading in the same critical
// section, so no Pending-without-pending-job state is ever observable. The
// returned directive tells the scheduler what, if anything, to enqueue.
func (r *Registry) Dispatch(portID string) Directive {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()

	rec, ok := r.records[portID]
	if !ok {
		rec = &model.Record{
			PortID:    portID,
			Status:    model.StatusPending,
			FirstSeen: now,
			UpdatedAt: now,
		}
		r.records[portID] = rec
		r.publish(model.EventRecordAdded, "", rec)

		r.transition(rec, model.StatusReading)
		return DirectiveIdentify
	}

	switch rec.Status {
	case model.StatusPending:
		// Left Pending by an explicit reset; start a fresh cycle.
		r.transition(rec, model.StatusReading)
		return DirectiveIdentify
	case model.StatusReading:
		// Mid-flight; the tick leaves it untouched.
		return DirectiveNone
	case model.StatusSuccess, model.StatusFailed:
		// Still listed and already settled; nothing to do.
		return DirectiveNone
	case model.StatusRemoved:
		// Reappearance. A previously confirmed MAC is kept: the record goes
		// straight back to Success without a fresh bootloader round-trip.
		// An explicit reset is the only way to re-identify such a port.
		if rec.MAC != "" {
			r.transition(rec, model.StatusSuccess)
			return DirectiveNone
		}
		rec.AttemptCount = 0
		rec.LastError = ""
		r.transition(rec, model.StatusReading)
		return DirectiveIdentify
	default:
		return DirectiveNone
	}
}

// MarkRemoved handles a disappeared port at a tick boundary. Only active
// records transition; an already-Removed record is left alone.
func (r *Registry) MarkRemoved(portID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[portID]
	if !ok || !rec.Status.IsActive() {
		return false
	}

	r.transition(rec, model.StatusRemoved)
	return true
}

// ApplySuccess records a worker result carrying a MAC. The write is refused
// when the record has been superseded by a Removal (the cancellation race)
// or when the record is not in Reading.
func (r *Registry) ApplySuccess(portID, mac string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[portID]
	if !ok || rec.Status != model.StatusReading {
		r.discarded(portID, "success")
		return false
	}

	now := r.now()
	rec.MAC = mac
	rec.LastAttempt = &now
	rec.AttemptCount++
	rec.LastError = ""
	r.transition(rec, model.StatusSuccess)
	return true
}

// ApplyFailure records one failed attempt. When the retry budget is not yet
// exhausted the record stays in Reading and the caller re-enqueues after
// backoff; otherwise the record settles as Failed with last_error kept.
func (r *Registry) ApplyFailure(portID string, attemptErr error, maxAttempts int) (exhausted, applied bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[portID]
	if !ok || rec.Status != model.StatusReading {
		r.discarded(portID, "failure")
		return false, false
	}

	now := r.now()
	rec.LastAttempt = &now
	rec.AttemptCount++
	rec.LastError = attemptErr.Error()

	if rec.AttemptCount >= maxAttempts {
		r.transition(rec, model.StatusFailed)
		return true, true
	}

	rec.UpdatedAt = now
	return false, true
}

// Reset clears a record's identification outcome and returns it to Pending
// so the next dispatch starts a fresh cycle. Explicit operator action; this
// is the only path that may discard a confirmed MAC.
func (r *Registry) Reset(portID string) *model.Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[portID]
	if !ok {
		return nil
	}

	rec.MAC = ""
	rec.AttemptCount = 0
	rec.LastError = ""
	rec.LastAttempt = nil
	r.transition(rec, model.StatusPending)
	return rec.Clone()
}

// Seed inserts a historical record, typically loaded from the audit store at
// startup. Seeded records always enter as Removed; live scanning takes over
// from there. Existing records are never overwritten.
func (r *Registry) Seed(rec *model.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[rec.PortID]; ok {
		return
	}

	c := rec.Clone()
	c.Status = model.StatusRemoved
	r.records[rec.PortID] = c
}

// Clear removes records matching keep==false from the table. Operator
// action mirroring the desktop tool's clear buttons; the scanning engine
// itself never deletes a record.
func (r *Registry) Clear(keep func(*model.Record) bool) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []string
	for id, rec := range r.records {
		// In-flight records stay; a worker still holds this port.
		if rec.Status == model.StatusPending || rec.Status == model.StatusReading {
			continue
		}
		if keep != nil && keep(rec) {
			continue
		}
		delete(r.records, id)
		removed = append(removed, id)
	}

	if len(removed) > 0 {
		sort.Strings(removed)
		r.logger.Info("Records cleared", zap.Int("removed", len(removed)))
	}
	return removed
}

// Len returns the number of records in the table.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// Snapshot returns a point-in-time copy of all records matching the filter,
// ordered by first appearance then port ID. The copies are immutable with
// respect to ongoing scans.
func (r *Registry) Snapshot(filter *Filter) []*model.Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.Record, 0, len(r.records))
	for _, rec := range r.records {
		if filter.matches(rec) {
			out = append(out, rec.Clone())
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].FirstSeen.Equal(out[j].FirstSeen) {
			return out[i].FirstSeen.Before(out[j].FirstSeen)
		}
		return out[i].PortID < out[j].PortID
	})

	return out
}

// transition applies a status change and publishes it. Caller holds the lock.
func (r *Registry) transition(rec *model.Record, to model.RecordStatus) {
	from := rec.Status
	rec.Status = to
	rec.UpdatedAt = r.now()

	r.logger.Debug("Record transition",
		zap.String("port_id", rec.PortID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.Int("attempt_count", rec.AttemptCount),
	)

	r.publish(model.EventStatusChanged, from, rec)
}

// publish emits a change event with a detached record copy. Caller holds the lock.
func (r *Registry) publish(typ model.EventType, from model.RecordStatus, rec *model.Record) {
	r.bus.Publish(model.Event{
		Type:      typ,
		PortID:    rec.PortID,
		OldStatus: from,
		Record:    rec.Clone(),
		Timestamp: r.now(),
	})
}

// discarded logs a worker result that arrived after the record left Reading.
// Not an error condition; Removal is authoritative.
func (r *Registry) discarded(portID, kind string) {
	r.logger.Debug("Late worker result discarded",
		zap.String("port_id", portID),
		zap.String("result", kind),
	)
}

// Directive tells the scheduler what to do after a dispatch decision.
type Directive int

const (
	DirectiveNone Directive = iota
	DirectiveIdentify
)
