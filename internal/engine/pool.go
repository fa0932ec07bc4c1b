// internal/engine/pool.go
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"macscan/internal/identify"
	"macscan/internal/model"
	"macscan/internal/registry"
	"macscan/internal/utils"
)

// PoolConfig bounds the identification workers
type PoolConfig struct {
	Workers        int
	AttemptTimeout time.Duration
	MaxAttempts    int
	RetryDelay     time.Duration
	BackoffMax     time.Duration
}

// Pool runs identification attempts with bounded concurrency. New ports are
// dispatched ahead of retries so a freshly plugged device is never stuck
// behind the retry queue of a flaky one. Results are written back through
// the registry, which arbitrates races with removals.
type Pool struct {
	config     PoolConfig
	registry   *registry.Registry
	identifier identify.Identifier
	logger     *zap.Logger

	fresh chan string
	retry chan string

	mu       sync.Mutex
	inflight map[string]context.CancelFunc
	started  bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPool creates a worker pool; Start must be called before Enqueue.
func NewPool(config PoolConfig, reg *registry.Registry, identifier identify.Identifier, logger *zap.Logger) *Pool {
	return &Pool{
		config:     config,
		registry:   reg,
		identifier: identifier,
		logger:     logger.With(zap.String("component", "worker-pool")),
		fresh:      make(chan string, 256),
		retry:      make(chan string, 256),
		inflight:   make(map[string]context.CancelFunc),
	}
}

// Start launches the worker goroutines.
func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true

	p.ctx, p.cancel = context.WithCancel(context.Background())
	for i := 0; i < p.config.Workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	p.logger.Info("Worker pool started", zap.Int("workers", p.config.Workers))
}

// Stop cancels outstanding jobs and waits up to grace for workers to drain.
// No job outlives this call's return by more than the forced-abandonment
// path: after grace the workers are left to die with the process.
func (p *Pool) Stop(grace time.Duration) {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	cancel := p.cancel
	p.mu.Unlock()

	cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("Worker pool stopped")
	case <-time.After(grace):
		p.logger.Warn("Worker pool stop grace period exceeded, abandoning jobs",
			zap.Duration("grace", grace),
		)
	}
}

// Enqueue schedules a first identification attempt for a port. Called by
// the scheduler; fire-and-forget.
func (p *Pool) Enqueue(portID string) {
	select {
	case p.fresh <- portID:
	default:
		// Queue saturated; the record stays in Reading and the operator can
		// reset it. With the default bounds this needs hundreds of
		// simultaneous hotplugs.
		p.logger.Error("Fresh queue full, dropping dispatch", zap.String("port_id", portID))
	}
}

// Cancel aborts the in-flight attempt for a port, if any. Idempotent;
// cancelling a finished or never-started job is a no-op.
func (p *Pool) Cancel(portID string) {
	p.mu.Lock()
	cancel, ok := p.inflight[portID]
	p.mu.Unlock()

	if ok {
		cancel()
	}
}

// InflightCount returns the number of attempts currently holding a worker.
func (p *Pool) InflightCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.inflight)
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	logger := p.logger.With(zap.Int("worker", id))
	for {
		// Drain fresh dispatches before touching the retry queue.
		select {
		case <-p.ctx.Done():
			return
		case portID := <-p.fresh:
			p.run(portID, logger)
			continue
		default:
		}

		select {
		case <-p.ctx.Done():
			return
		case portID := <-p.fresh:
			p.run(portID, logger)
		case portID := <-p.retry:
			p.run(portID, logger)
		}
	}
}

// run executes one identification attempt for a port.
func (p *Pool) run(portID string, logger *zap.Logger) {
	rec := p.registry.Get(portID)
	if rec == nil || rec.Status != model.StatusReading {
		// Removed (or reset) while queued; nothing to do.
		return
	}

	attemptCtx, cancel := context.WithTimeout(p.ctx, p.config.AttemptTimeout)

	p.mu.Lock()
	if _, busy := p.inflight[portID]; busy {
		// A cancelled attempt for this port has not unwound yet. Exclusive
		// port access is absolute, so push this dispatch back a moment.
		p.mu.Unlock()
		cancel()
		time.AfterFunc(100*time.Millisecond, func() {
			select {
			case <-p.ctx.Done():
			case p.retry <- portID:
			default:
			}
		})
		return
	}
	p.inflight[portID] = cancel
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		delete(p.inflight, portID)
		p.mu.Unlock()
		cancel()
	}()

	portLogger := utils.NewPortLogger(logger, portID)
	start := time.Now()

	mac, err := p.identifier.Identify(attemptCtx, portID)
	duration := time.Since(start)

	if err == nil {
		mac = identify.NormalizeMAC(mac)
		portLogger.LogAttempt(rec.AttemptCount+1, duration, mac, nil)
		if !p.registry.ApplySuccess(portID, mac) {
			portLogger.Debug("Success discarded, record superseded")
		}
		return
	}

	// A plain cancellation means the port was removed or the engine is
	// shutting down; the partial result is discarded and the removal (or
	// shutdown) is authoritative.
	if errors.Is(err, context.Canceled) && attemptCtx.Err() == context.Canceled {
		portLogger.Debug("Attempt cancelled", zap.Duration("duration", duration))
		return
	}

	attemptErr := identify.Classify(err)
	portLogger.LogAttempt(rec.AttemptCount+1, duration, "", err)

	exhausted, applied := p.registry.ApplyFailure(portID, attemptErr, p.config.MaxAttempts)
	if !applied || exhausted {
		return
	}

	// Retry budget remains; re-enqueue after backoff.
	updated := p.registry.Get(portID)
	if updated == nil {
		return
	}
	delay := p.Backoff(updated.AttemptCount)
	portLogger.Debug("Scheduling retry",
		zap.Int("attempt_count", updated.AttemptCount),
		zap.Duration("delay", delay),
	)

	time.AfterFunc(delay, func() {
		select {
		case <-p.ctx.Done():
		case p.retry <- portID:
		default:
			p.logger.Error("Retry queue full, dropping retry", zap.String("port_id", portID))
		}
	})
}

// Backoff returns the delay before retry number attempt+1. Linear in the
// attempt count and capped, so it is monotonically non-decreasing.
func (p *Pool) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := p.config.RetryDelay * time.Duration(attempt)
	if p.config.BackoffMax > 0 && delay > p.config.BackoffMax {
		delay = p.config.BackoffMax
	}
	return delay
}
