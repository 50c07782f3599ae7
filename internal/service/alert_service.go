package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/alanyoungcy/newsgap/internal/domain"
	"github.com/alanyoungcy/newsgap/internal/notify"
)

// DefaultAlertTTL is how long an alerted signal id stays suppressed.
const DefaultAlertTTL = 6 * time.Hour

// Notifier is the slice of notify.Notifier the alert service needs.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// AlertService notifies operators of HIGH-conviction signals and degraded
// scans. A signal id is alerted at most once per TTL.
type AlertService struct {
	notifier Notifier
	dedup    domain.Deduper
	ttl      time.Duration
	logger   *slog.Logger
}

// NewAlertService creates an AlertService. dedup may be nil, in which case
// every HIGH signal of every run is sent.
func NewAlertService(notifier Notifier, dedup domain.Deduper, ttl time.Duration, logger *slog.Logger) *AlertService {
	if ttl <= 0 {
		ttl = DefaultAlertTTL
	}
	return &AlertService{
		notifier: notifier,
		dedup:    dedup,
		ttl:      ttl,
		logger:   logger.With(slog.String("component", "alert_service")),
	}
}

// Alert sends one notification per new HIGH signal in the run, and one
// scan_failed notification when any source failed. It returns the number
// of signal alerts sent.
func (a *AlertService) Alert(ctx context.Context, run domain.DislocationRun) int {
	if len(run.SourceErrors) > 0 {
		title, msg := notify.FormatScanFailure(run.ID, run.SourceErrors)
		if err := a.notifier.Notify(ctx, notify.EventScanFailed, title, msg); err != nil {
			a.logger.WarnContext(ctx, "scan failure alert failed",
				slog.String("run_id", run.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	sent := 0
	for _, sig := range run.Result.HighConviction() {
		if !a.isNew(ctx, sig.ID) {
			continue
		}
		title, msg := notify.FormatSignal(sig)
		if err := a.notifier.Notify(ctx, notify.EventDislocationHigh, title, msg); err != nil {
			a.logger.WarnContext(ctx, "signal alert failed",
				slog.String("signal_id", sig.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		sent++
	}
	return sent
}

// isNew fails open: a dedup backend error lets the alert through.
func (a *AlertService) isNew(ctx context.Context, signalID string) bool {
	if a.dedup == nil {
		return true
	}
	fresh, err := a.dedup.MarkIfNew(ctx, "alert:"+signalID, a.ttl)
	if err != nil {
		a.logger.WarnContext(ctx, "alert dedup failed, sending anyway",
			slog.String("signal_id", signalID),
			slog.String("error", err.Error()),
		)
		return true
	}
	return fresh
}
