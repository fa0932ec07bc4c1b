// internal/engine/scheduler.go
package engine

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"macscan/internal/portlist"
	"macscan/internal/registry"
)

// Scheduler drives the discovery loop: every tick it snapshots the OS port
// list, diffs it against the registry and dispatches identification jobs for
// new ports. It never blocks on identification results.
type Scheduler struct {
	interval time.Duration
	lister   portlist.Lister
	registry *registry.Registry
	pool     *Pool
	logger   *zap.Logger

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// NewScheduler creates a scheduler; StartScanning begins the loop.
func NewScheduler(interval time.Duration, lister portlist.Lister, reg *registry.Registry, pool *Pool, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		interval: interval,
		lister:   lister,
		registry: reg,
		pool:     pool,
		logger:   logger.With(zap.String("component", "scheduler")),
	}
}

// StartScanning launches the tick loop. Returns false if already running.
func (s *Scheduler) StartScanning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	go s.loop(s.stop, s.done)
	s.logger.Info("Scanning started", zap.Duration("interval", s.interval))
	return true
}

// StopScanning halts the tick loop and waits for the current tick to finish.
// In-flight identification jobs keep running; only discovery pauses.
// Returns false if not running.
func (s *Scheduler) StopScanning() bool {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return false
	}
	s.running = false
	stop, done := s.stop, s.done
	s.mu.Unlock()

	close(stop)
	<-done
	s.logger.Info("Scanning stopped")
	return true
}

// IsScanning reports whether the discovery loop is active.
func (s *Scheduler) IsScanning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// First tick immediately so devices attached before startup are not
	// delayed by one interval.
	s.Tick(context.Background())

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.Tick(context.Background())
		}
	}
}

// Tick runs one discovery pass. Exported so tests (and a future one-shot
// mode) can drive the scheduler without the timer.
func (s *Scheduler) Tick(ctx context.Context) {
	snapshot, err := s.lister.List(ctx)
	if err != nil {
		// Transient enumeration failure: no state changes, retry next tick.
		s.logger.Warn("Port enumeration failed, will retry", zap.Error(err))
		return
	}

	appeared, disappeared := Diff(snapshot, s.registry.ActivePorts())

	if len(appeared) > 0 || len(disappeared) > 0 {
		s.logger.Info("Port set changed",
			zap.Strings("appeared", appeared),
			zap.Strings("disappeared", disappeared),
		)
	}

	// Removal first so a worker result racing with this tick is refused by
	// the registry before the cancel signal even lands.
	for _, portID := range disappeared {
		s.registry.MarkRemoved(portID)
		s.pool.Cancel(portID)
	}

	// Dispatch covers brand-new ports, reset records waiting in Pending and
	// reappearances of removed ports; everything else is a no-op.
	for _, portID := range snapshot {
		if s.registry.Dispatch(portID) == registry.DirectiveIdentify {
			s.pool.Enqueue(portID)
		}
	}
}
