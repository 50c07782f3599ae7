// Package service holds the application services that sit between the
// collaborators (news, venues, stores, caches) and the outer surfaces
// (CLI, HTTP API, pipeline loops).
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/newsgap/internal/dislocation"
	"github.com/alanyoungcy/newsgap/internal/domain"
)

// Default bus names and lock settings for dislocation scans.
const (
	DefaultLockKey      = "scan:dislocations"
	DefaultLockTTL      = 2 * time.Minute
	DefaultChannel      = "ch:dislocation"
	DefaultStream       = "stream:dislocations"
	DefaultFetchTimeout = 30 * time.Second
)

// DislocationConfig holds the tunables of a DislocationService.
type DislocationConfig struct {
	Mode         string
	LockKey      string
	LockTTL      time.Duration
	Channel      string
	Stream       string
	FetchTimeout time.Duration
}

func (c *DislocationConfig) applyDefaults() {
	if c.LockKey == "" {
		c.LockKey = DefaultLockKey
	}
	if c.LockTTL <= 0 {
		c.LockTTL = DefaultLockTTL
	}
	if c.Channel == "" {
		c.Channel = DefaultChannel
	}
	if c.Stream == "" {
		c.Stream = DefaultStream
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = DefaultFetchTimeout
	}
}

// DislocationDeps lists the collaborators of a DislocationService. News,
// Markets and Detector are required; every other field is an optional sink
// and is skipped when nil.
type DislocationDeps struct {
	News     domain.NewsSource
	Markets  domain.MarketSource
	Detector *dislocation.Detector

	Runs      domain.RunStore
	Cache     domain.ResultCache
	Bus       domain.SignalBus
	Snapshots domain.SnapshotWriter
	Replays   domain.SnapshotReader
	Lock      domain.LockManager
	Alerts    *AlertService
	Audit     domain.AuditStore
}

// ReplayReport is the outcome of re-running a stored snapshot.
type ReplayReport struct {
	RunID   string                   `json:"runId"`
	Path    string                   `json:"path"`
	Now     time.Time                `json:"now"`
	Result  domain.DislocationResult `json:"result"`
	Matches bool                     `json:"matchesStored"`
}

// DislocationService runs detection scans: it gathers news and market
// events in parallel, runs the detector and fans the run out to the
// configured sinks.
type DislocationService struct {
	deps   DislocationDeps
	cfg    DislocationConfig
	logger *slog.Logger

	now   func() time.Time
	newID func() string

	startedAt time.Time
	totalRuns atomic.Int64

	mu   sync.RWMutex
	last *domain.DislocationRun
}

// NewDislocationService creates a DislocationService.
func NewDislocationService(deps DislocationDeps, cfg DislocationConfig, logger *slog.Logger) *DislocationService {
	cfg.applyDefaults()
	if deps.Detector == nil {
		deps.Detector = dislocation.NewDetector()
	}
	return &DislocationService{
		deps:      deps,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "dislocation_service")),
		now:       time.Now,
		newID:     uuid.NewString,
		startedAt: time.Now(),
	}
}

// DetectDislocations runs one scan and returns its result. Collaborator
// failures degrade to empty inputs; an error is only returned when ctx is
// done before the scan completes.
func (s *DislocationService) DetectDislocations(ctx context.Context) (domain.DislocationResult, error) {
	run, err := s.RunScan(ctx)
	if err != nil {
		return domain.DislocationResult{}, err
	}
	return run.Result, nil
}

// RunScan is DetectDislocations returning the full run record. When another
// scan holds the lock the latest cached run is returned instead.
func (s *DislocationService) RunScan(ctx context.Context) (domain.DislocationRun, error) {
	if s.deps.Lock != nil {
		unlock, err := s.deps.Lock.Acquire(ctx, s.cfg.LockKey, s.cfg.LockTTL)
		switch {
		case err == nil:
			defer unlock()
		case errors.Is(err, domain.ErrLockHeld):
			if run, lerr := s.Latest(ctx); lerr == nil {
				s.logger.InfoContext(ctx, "scan in progress elsewhere, serving latest",
					slog.String("run_id", run.ID),
				)
				return run, nil
			}
			s.logger.WarnContext(ctx, "scan lock held and no cached result, scanning anyway")
		default:
			s.logger.WarnContext(ctx, "scan lock unavailable, scanning unlocked",
				slog.String("error", err.Error()),
			)
		}
	}

	run, snap, err := s.scan(ctx)
	if err != nil {
		return domain.DislocationRun{}, err
	}
	run = s.sink(ctx, run, snap)
	return run, nil
}

// scan fetches inputs and runs the detector. now is sampled exactly once.
func (s *DislocationService) scan(ctx context.Context) (domain.DislocationRun, domain.ScanSnapshot, error) {
	start := time.Now()
	now := s.now().UTC()

	news, events, sourceErrs := s.fetch(ctx)
	if err := ctx.Err(); err != nil {
		return domain.DislocationRun{}, domain.ScanSnapshot{}, fmt.Errorf("dislocation_service: scan: %w", err)
	}

	result := s.deps.Detector.Detect(news, events, now)
	run := domain.DislocationRun{
		ID:           s.newID(),
		StartedAt:    now,
		Duration:     time.Since(start),
		SourceErrors: sourceErrs,
		Result:       result,
	}
	snap := domain.ScanSnapshot{
		RunID:  run.ID,
		Now:    now,
		News:   news,
		Events: events,
		Result: result,
	}

	s.logger.InfoContext(ctx, "scan completed",
		slog.String("run_id", run.ID),
		slog.Int("news", len(news)),
		slog.Int("events", len(events)),
		slog.Int("signals", result.Meta.SignalCount),
		slog.Float64("avg_score", result.Meta.AvgDislocationScore),
		slog.Duration("duration", run.Duration),
	)
	return run, snap, nil
}

// fetch pulls news and market events concurrently. A failed collaborator
// yields an empty list plus an entry in the returned error strings.
func (s *DislocationService) fetch(ctx context.Context) ([]domain.NewsItem, []domain.MarketEvent, []string) {
	fctx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()

	var (
		news   []domain.NewsItem
		events []domain.MarketEvent
		mu     sync.Mutex
		errs   []string
	)
	record := func(source string, err error) {
		s.logger.WarnContext(ctx, "source failed, continuing with empty input",
			slog.String("source", source),
			slog.String("error", err.Error()),
		)
		mu.Lock()
		errs = append(errs, source+": "+err.Error())
		mu.Unlock()
	}

	var g errgroup.Group
	g.Go(func() error {
		if s.deps.News == nil {
			record("news", domain.ErrNoSources)
			return nil
		}
		items, err := s.deps.News.FetchNews(fctx)
		if err != nil {
			record("news", err)
			return nil
		}
		news = items
		return nil
	})
	g.Go(func() error {
		if s.deps.Markets == nil {
			record("markets", domain.ErrNoSources)
			return nil
		}
		evs, err := s.deps.Markets.FetchEvents(fctx)
		if err != nil {
			record("markets", err)
			return nil
		}
		events = evs
		return nil
	})
	_ = g.Wait()

	return news, events, errs
}

// sink hands the run to every configured sink. Sink failures are logged
// and never fail the scan.
func (s *DislocationService) sink(ctx context.Context, run domain.DislocationRun, snap domain.ScanSnapshot) domain.DislocationRun {
	if s.deps.Snapshots != nil {
		path, err := s.deps.Snapshots.WriteSnapshot(ctx, snap)
		if err != nil {
			s.warn(ctx, "snapshot write failed", run.ID, err)
		} else {
			run.SnapshotPath = path
		}
	}

	if s.deps.Runs != nil {
		if err := s.deps.Runs.SaveRun(ctx, run); err != nil {
			s.warn(ctx, "save run failed", run.ID, err)
		}
	}

	if s.deps.Cache != nil {
		if err := s.deps.Cache.SetLatest(ctx, run); err != nil {
			s.warn(ctx, "cache latest failed", run.ID, err)
		}
	}

	if s.deps.Bus != nil {
		s.publish(ctx, run)
	}

	if s.deps.Alerts != nil {
		s.deps.Alerts.Alert(ctx, run)
	}

	if s.deps.Audit != nil {
		for _, e := range run.SourceErrors {
			if err := s.deps.Audit.Log(ctx, "source.failed", map[string]any{
				"run_id": run.ID,
				"error":  e,
			}); err != nil {
				s.warn(ctx, "audit log failed", run.ID, err)
			}
		}
		if err := s.deps.Audit.Log(ctx, "scan.completed", map[string]any{
			"run_id":          run.ID,
			"signal_count":    run.Result.Meta.SignalCount,
			"avg_score":       run.Result.Meta.AvgDislocationScore,
			"news_scanned":    run.Result.Meta.NewsSourcesScanned,
			"markets_scanned": run.Result.Meta.MarketsScanned,
			"duration_ms":     run.Duration.Milliseconds(),
			"snapshot_path":   run.SnapshotPath,
		}); err != nil {
			s.warn(ctx, "audit log failed", run.ID, err)
		}
	}

	s.mu.Lock()
	s.last = &run
	s.mu.Unlock()
	s.totalRuns.Add(1)
	return run
}

func (s *DislocationService) publish(ctx context.Context, run domain.DislocationRun) {
	payload, err := json.Marshal(struct {
		Type  string                   `json:"type"`
		RunID string                   `json:"runId"`
		Data  domain.DislocationResult `json:"data"`
	}{Type: "dislocations", RunID: run.ID, Data: run.Result})
	if err != nil {
		s.warn(ctx, "marshal bus payload failed", run.ID, err)
		return
	}
	if err := s.deps.Bus.Publish(ctx, s.cfg.Channel, payload); err != nil {
		s.warn(ctx, "publish failed", run.ID, err)
	}
	if err := s.deps.Bus.StreamAppend(ctx, s.cfg.Stream, payload); err != nil {
		s.warn(ctx, "stream append failed", run.ID, err)
	}
}

func (s *DislocationService) warn(ctx context.Context, msg, runID string, err error) {
	s.logger.WarnContext(ctx, msg,
		slog.String("run_id", runID),
		slog.String("error", err.Error()),
	)
}

// Latest returns the most recent run, from the shared cache when one is
// configured and from this process's memory otherwise.
func (s *DislocationService) Latest(ctx context.Context) (domain.DislocationRun, error) {
	if s.deps.Cache != nil {
		run, err := s.deps.Cache.GetLatest(ctx)
		if err == nil {
			return run, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "cache read failed, using local result",
				slog.String("error", err.Error()),
			)
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return domain.DislocationRun{}, fmt.Errorf("dislocation_service: latest: %w", domain.ErrNotFound)
	}
	return *s.last, nil
}

// Replay reruns the detector over a stored snapshot with the snapshot's
// own clock and reports whether the output matches what was stored.
func (s *DislocationService) Replay(ctx context.Context, path string) (ReplayReport, error) {
	if s.deps.Replays == nil {
		return ReplayReport{}, fmt.Errorf("dislocation_service: replay: no snapshot reader configured")
	}
	snap, err := s.deps.Replays.ReadSnapshot(ctx, path)
	if err != nil {
		return ReplayReport{}, fmt.Errorf("dislocation_service: replay %s: %w", path, err)
	}

	result := s.deps.Detector.Detect(snap.News, snap.Events, snap.Now)

	fresh, err := json.Marshal(result)
	if err != nil {
		return ReplayReport{}, fmt.Errorf("dislocation_service: replay marshal: %w", err)
	}
	stored, err := json.Marshal(snap.Result)
	if err != nil {
		return ReplayReport{}, fmt.Errorf("dislocation_service: replay marshal stored: %w", err)
	}

	report := ReplayReport{
		RunID:   snap.RunID,
		Path:    path,
		Now:     snap.Now,
		Result:  result,
		Matches: bytes.Equal(fresh, stored),
	}
	if !report.Matches {
		s.logger.WarnContext(ctx, "replay diverged from stored result",
			slog.String("run_id", snap.RunID),
			slog.String("path", path),
		)
	}
	return report, nil
}

// Status summarises the service for the status endpoint.
func (s *DislocationService) Status() domain.ScanStatus {
	st := domain.ScanStatus{
		Mode:          s.cfg.Mode,
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		TotalRuns:     s.totalRuns.Load(),
	}
	s.mu.RLock()
	if s.last != nil {
		st.LastRunID = s.last.ID
		st.LastRunAt = s.last.StartedAt
		st.LastSignals = s.last.Result.Meta.SignalCount
	}
	s.mu.RUnlock()
	return st
}
