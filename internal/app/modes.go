package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/newsgap/internal/dislocation"
	"github.com/alanyoungcy/newsgap/internal/pipeline"
	"github.com/alanyoungcy/newsgap/internal/server"
	"github.com/alanyoungcy/newsgap/internal/server/handler"
	"github.com/alanyoungcy/newsgap/internal/server/ws"
	"github.com/alanyoungcy/newsgap/internal/service"
)

// shutdownTimeout bounds graceful HTTP shutdown.
const shutdownTimeout = 5 * time.Second

// ErrReplayMismatch is returned by replay mode when the re-run differs from
// the stored result.
var ErrReplayMismatch = errors.New("app: replay result differs from stored run")

// ScanMode runs one scan, prints its {signals, meta} result as JSON and
// returns. Sinks run only when their sections are enabled.
func (a *App) ScanMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting scan mode")

	svc := a.newDislocationService(deps)
	run, err := svc.RunScan(ctx)
	if err != nil {
		return fmt.Errorf("scan mode: %w", err)
	}
	return a.printJSON(run.Result)
}

// ReplayMode re-runs the detector over a stored snapshot and prints the
// report. A result that differs from the stored one is an error.
func (a *App) ReplayMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting replay mode", slog.String("path", a.cfg.Scan.ReplayPath))

	svc := a.newDislocationService(deps)
	report, err := svc.Replay(ctx, a.cfg.Scan.ReplayPath)
	if err != nil {
		return fmt.Errorf("replay mode: %w", err)
	}
	if err := a.printJSON(report); err != nil {
		return err
	}
	if !report.Matches {
		return ErrReplayMismatch
	}
	return nil
}

// MonitorMode scans on an interval, alerts on HIGH signals and serves the
// HTTP API. SIGHUP requests an immediate scan.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode")
	return a.runLoop(ctx, deps, nil)
}

// FullMode is monitor mode plus the archive cron.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	var archiver *pipeline.Archiver
	if deps.Archiver != nil {
		archiver = pipeline.NewArchiver(deps.Archiver, a.cfg.Archive.RetentionDays, a.logger)
	} else {
		a.logger.WarnContext(ctx, "archive disabled; full mode runs without the archive cron")
	}
	return a.runLoop(ctx, deps, archiver)
}

// runLoop starts the orchestrator, the SIGHUP trigger and, when enabled,
// the HTTP server under one errgroup.
func (a *App) runLoop(ctx context.Context, deps *Dependencies, archiver *pipeline.Archiver) error {
	g, ctx := errgroup.WithContext(ctx)

	svc := a.newDislocationService(deps)
	scanner := pipeline.NewScanner(svc, a.logger)
	orch := pipeline.NewOrchestrator(scanner, archiver, a.cfg.Scan.Interval.Duration, a.cfg.Archive.Cron, a.logger)

	g.Go(func() error {
		return orch.Run(ctx)
	})

	g.Go(func() error {
		hup := make(chan os.Signal, 1)
		signal.Notify(hup, syscall.SIGHUP)
		defer signal.Stop(hup)
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-hup:
				a.logger.InfoContext(ctx, "SIGHUP received, triggering scan")
				scanner.Trigger()
			}
		}
	})

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, svc)
	}

	return g.Wait()
}

// newDislocationService builds the service with every configured sink.
func (a *App) newDislocationService(deps *Dependencies) *service.DislocationService {
	var alerts *service.AlertService
	if deps.Notifier.Enabled() {
		alerts = service.NewAlertService(deps.Notifier, deps.Deduper, a.cfg.Scan.AlertTTL.Duration, a.logger)
	}

	svcDeps := service.DislocationDeps{
		News:     deps.News,
		Markets:  deps.Markets,
		Detector: dislocation.NewDetector(),
		Runs:     deps.Runs,
		Cache:    deps.Cache,
		Bus:      deps.Bus,
		Lock:     deps.Lock,
		Alerts:   alerts,
		Audit:    deps.Audit,
	}
	// A nil *SnapshotStore must not become a non-nil interface.
	if deps.Snapshots != nil {
		svcDeps.Snapshots = deps.Snapshots
		svcDeps.Replays = deps.Snapshots
	}

	return service.NewDislocationService(svcDeps, service.DislocationConfig{
		Mode:         a.cfg.Mode,
		LockTTL:      a.cfg.Scan.LockTTL.Duration,
		FetchTimeout: a.cfg.Scan.FetchTimeout.Duration,
	}, a.logger)
}

// startHTTPServer registers the API and WebSocket hub and runs the server
// until ctx is cancelled.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, svc *service.DislocationService) {
	hub := ws.NewHub(deps.Bus, ws.Config{
		Mode:           a.cfg.Mode,
		AllowedOrigins: a.cfg.Server.CORSOrigins,
		Latest:         svc.Latest,
		StartedAt:      time.Now().UTC(),
	}, a.logger)

	g.Go(func() error {
		if err := hub.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("ws hub: %w", err)
		}
		return nil
	})

	handlers := server.Handlers{
		Health:       handler.NewHealthHandler(deps.HealthChecks, a.logger),
		Status:       handler.NewStatusHandler(svc, hub),
		Dislocations: handler.NewDislocationHandler(svc, a.logger),
		History:      handler.NewHistoryHandler(deps.Runs, deps.Audit, a.logger),
	}
	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  a.cfg.Server.RateWindow.Duration,
	}, handlers, hub, deps.RateLimiter, a.logger)

	g.Go(func() error {
		return srv.Start()
	})

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}

func (a *App) printJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("app: write output: %w", err)
	}
	return nil
}
