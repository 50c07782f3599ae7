package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// Orchestrator runs the scan loop and, when configured, the archive cron.
type Orchestrator struct {
	scanner      *Scanner
	archiver     *Archiver
	scanInterval time.Duration
	archiveCron  string
	logger       *slog.Logger
}

// NewOrchestrator creates a new Orchestrator. archiver may be nil.
func NewOrchestrator(
	scanner *Scanner,
	archiver *Archiver,
	scanInterval time.Duration,
	archiveCron string,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		scanner:      scanner,
		archiver:     archiver,
		scanInterval: scanInterval,
		archiveCron:  archiveCron,
		logger:       logger.With(slog.String("component", "orchestrator")),
	}
}

// Run starts the sub-pipelines under an errgroup. Cancellation of ctx is a
// clean shutdown; any other failure stops the group and is returned.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info("pipeline orchestrator starting",
		slog.Duration("scan_interval", o.scanInterval),
		slog.String("archive_cron", o.archiveCron),
		slog.Bool("archiver", o.archiver != nil),
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := o.scanner.RunLoop(ctx, o.scanInterval)
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("scanner: %w", err)
	})

	if o.archiver != nil {
		g.Go(func() error {
			err := o.archiver.RunCron(ctx, o.archiveCron)
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("archiver: %w", err)
		})
	}

	if err := g.Wait(); err != nil {
		o.logger.Error("pipeline orchestrator stopped with error", slog.String("error", err.Error()))
		return err
	}

	o.logger.Info("pipeline orchestrator stopped cleanly")
	return nil
}
