// Package pipeline runs the long-lived background loops: periodic
// dislocation scans and the cold-storage archive schedule.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/alanyoungcy/newsgap/internal/domain"
)

// ScanRunner runs one dislocation scan.
type ScanRunner interface {
	RunScan(ctx context.Context) (domain.DislocationRun, error)
}

// Scanner repeats dislocation scans on an interval. Extra scans can be
// requested with Trigger; requests made while a scan is running collapse
// into one.
type Scanner struct {
	runner  ScanRunner
	trigger chan struct{}
	logger  *slog.Logger
}

// NewScanner creates a new Scanner.
func NewScanner(runner ScanRunner, logger *slog.Logger) *Scanner {
	return &Scanner{
		runner:  runner,
		trigger: make(chan struct{}, 1),
		logger:  logger.With(slog.String("component", "scanner")),
	}
}

// Trigger requests an out-of-schedule scan without blocking.
func (s *Scanner) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Run executes a single scan and logs its outcome.
func (s *Scanner) Run(ctx context.Context) {
	run, err := s.runner.RunScan(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("scan failed", slog.String("error", err.Error()))
		}
		return
	}
	s.logger.Info("scan finished",
		slog.String("run_id", run.ID),
		slog.Int("signals", run.Result.Meta.SignalCount),
		slog.Int("source_errors", len(run.SourceErrors)),
	)
}

// RunLoop scans immediately, then on every tick of interval and on every
// Trigger, until ctx is cancelled.
func (s *Scanner) RunLoop(ctx context.Context, interval time.Duration) error {
	s.Run(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scanner loop stopped")
			return ctx.Err()
		case <-ticker.C:
			s.Run(ctx)
		case <-s.trigger:
			s.logger.Info("manual scan triggered")
			s.Run(ctx)
			ticker.Reset(interval)
		}
	}
}
