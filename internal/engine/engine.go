// internal/engine/engine.go

// Package engine wires the discovery scheduler, the identification worker
// pool and the device registry into one lifecycle-managed unit.
package engine

import (
	"time"

	"go.uber.org/zap"

	"macscan/internal/config"
	"macscan/internal/identify"
	"macscan/internal/model"
	"macscan/internal/portlist"
	"macscan/internal/registry"
)

// Engine owns the scan pipeline: scheduler tick → port diff → dispatch →
// worker pool → registry writes.
type Engine struct {
	config    *config.ScanConfig
	registry  *registry.Registry
	pool      *Pool
	scheduler *Scheduler
	logger    *zap.Logger
}

// New assembles an engine from its collaborators. The registry is created
// here and owned by the engine; everything else is injected.
func New(cfg *config.Config, lister portlist.Lister, identifier identify.Identifier, logger *zap.Logger) *Engine {
	reg := registry.New(logger)

	pool := NewPool(PoolConfig{
		Workers:        cfg.Scan.Workers,
		AttemptTimeout: cfg.Identify.Timeout,
		MaxAttempts:    cfg.Scan.MaxAttempts,
		RetryDelay:     cfg.Scan.RetryDelay,
		BackoffMax:     cfg.Scan.BackoffMax,
	}, reg, identifier, logger)

	scheduler := NewScheduler(cfg.Scan.PollInterval, lister, reg, pool, logger)

	return &Engine{
		config:    &cfg.Scan,
		registry:  reg,
		pool:      pool,
		scheduler: scheduler,
		logger:    logger.With(zap.String("component", "engine")),
	}
}

// Registry exposes the authoritative record table for the query facade.
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

// Start brings up the worker pool and, when configured, the discovery loop.
func (e *Engine) Start() {
	e.pool.Start()
	if e.config.AutoStart {
		e.scheduler.StartScanning()
	}
	e.logger.Info("Engine started", zap.Bool("auto_start", e.config.AutoStart))
}

// Stop halts discovery, cancels outstanding identification jobs with the
// configured grace period and closes the event bus.
func (e *Engine) Stop() {
	e.scheduler.StopScanning()
	e.pool.Stop(e.gracePeriod())
	e.registry.Close()
	e.logger.Info("Engine stopped")
}

// StartScanning resumes the discovery loop. Returns false if already active.
func (e *Engine) StartScanning() bool {
	return e.scheduler.StartScanning()
}

// StopScanning pauses the discovery loop. Returns false if not active.
func (e *Engine) StopScanning() bool {
	return e.scheduler.StopScanning()
}

// IsScanning reports whether the discovery loop is active.
func (e *Engine) IsScanning() bool {
	return e.scheduler.IsScanning()
}

// Reset clears a record and, when the discovery loop will see the port
// again, lets the next tick start a fresh identification cycle.
func (e *Engine) Reset(portID string) *model.Record {
	e.pool.Cancel(portID)
	return e.registry.Reset(portID)
}

// InflightCount reports how many identification attempts hold a worker.
func (e *Engine) InflightCount() int {
	return e.pool.InflightCount()
}

func (e *Engine) gracePeriod() time.Duration {
	if e.config.ShutdownGrace > 0 {
		return e.config.ShutdownGrace
	}
	return 5 * time.Second
}
