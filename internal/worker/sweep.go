// Package worker runs the periodic maintenance sweep in the background.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pilotos/fleetcore/internal/metrics"
	"github.com/pilotos/fleetcore/internal/service"
)

// Config holds the configuration for the sweep worker.
type Config struct {
	// Interval is how often the sweep runs.
	// Default: 1 hour
	Interval time.Duration

	// RunTimeout is the maximum time a single sweep is allowed to run.
	// Default: 5 minutes
	RunTimeout time.Duration

	// ShutdownTimeout is how long to wait for a running sweep to complete
	// during graceful shutdown.
	// Default: 30 seconds
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		Interval:        time.Hour,
		RunTimeout:      5 * time.Minute,
		ShutdownTimeout: 30 * time.Second,
	}
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	if c.Interval < time.Second {
		return fmt.Errorf("interval must be at least 1 second, got %v", c.Interval)
	}
	if c.RunTimeout < time.Second {
		return fmt.Errorf("run timeout must be at least 1 second, got %v", c.RunTimeout)
	}
	if c.ShutdownTimeout < time.Second {
		return fmt.Errorf("shutdown timeout must be at least 1 second, got %v", c.ShutdownTimeout)
	}
	return nil
}

// Sweeper periodically runs the maintenance sweep. The sweep's transitions
// are exactly-once at the database level, so overlapping runs from multiple
// instances are safe; within one instance runs never overlap.
type Sweeper struct {
	maintenance service.MaintenanceService
	config      Config
	logger      *slog.Logger

	wg     sync.WaitGroup
	stopCh chan struct{}
}

// New creates a new Sweeper. It must be started with Start() and stopped
// with Stop().
func New(maintenance service.MaintenanceService, config Config, logger *slog.Logger) (*Sweeper, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Sweeper{
		maintenance: maintenance,
		config:      config,
		logger:      logger,
		stopCh:      make(chan struct{}),
	}, nil
}

// Start runs one sweep immediately, then keeps sweeping on the interval.
func (s *Sweeper) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.run(ctx)
	s.logger.Info("sweep worker started", "interval", s.config.Interval)
}

// Stop signals the worker to stop and waits for a running sweep to finish,
// up to the configured ShutdownTimeout.
func (s *Sweeper) Stop() {
	close(s.stopCh)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("sweep worker stopped")
	case <-time.After(s.config.ShutdownTimeout):
		s.logger.Warn("sweep worker shutdown timeout exceeded")
	}
}

func (s *Sweeper) run(ctx context.Context) {
	defer s.wg.Done()

	s.sweep(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, s.config.RunTimeout)
	defer cancel()

	start := time.Now()
	stats, err := s.maintenance.Sweep(runCtx)
	metrics.SweepDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.SweepRuns.WithLabelValues("error").Inc()
		s.logger.Error("maintenance sweep failed", "error", err)
		return
	}
	metrics.SweepRuns.WithLabelValues("ok").Inc()

	if stats.Overdue > 0 || stats.Reminded > 0 || stats.Reopened > 0 {
		s.logger.Info("maintenance sweep transitions",
			"overdue", stats.Overdue,
			"reminded", stats.Reminded,
			"reopened", stats.Reopened)
	}
}
