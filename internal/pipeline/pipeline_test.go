package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alanyoungcy/newsgap/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNextCronTime(t *testing.T) {
	base := time.Date(2026, 10, 16, 12, 7, 30, 0, time.UTC) // Friday
	tests := []struct {
		expr string
		want time.Time
	}{
		{"* * * * *", time.Date(2026, 10, 16, 12, 8, 0, 0, time.UTC)},
		{"*/15 * * * *", time.Date(2026, 10, 16, 12, 15, 0, 0, time.UTC)},
		{"0 3 * * *", time.Date(2026, 10, 17, 3, 0, 0, 0, time.UTC)},
		{"0 3 1 * *", time.Date(2026, 11, 1, 3, 0, 0, 0, time.UTC)},
		{"30 9 * * 1-5", time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)},
		{"0 0,12 * * *", time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)},
		{"10-20/5 12 * * *", time.Date(2026, 10, 16, 12, 10, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := nextCronTime(tt.expr, base)
		if err != nil {
			t.Errorf("nextCronTime(%q) error: %v", tt.expr, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("nextCronTime(%q) = %v, want %v", tt.expr, got, tt.want)
		}
	}
}

func TestParseCronRejectsBadInput(t *testing.T) {
	for _, expr := range []string{"", "* * * *", "60 * * * *", "* 24 * * *", "* * 0 * *", "*/0 * * * *", "5-1 * * * *", "a * * * *"} {
		if _, err := parseCron(expr); err == nil {
			t.Errorf("parseCron(%q) succeeded, want error", expr)
		}
	}
}

func TestCronImpossibleDate(t *testing.T) {
	if _, err := nextCronTime("0 0 31 2 *", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)); err == nil {
		t.Error("Feb 31 should never match")
	}
}

type fakeArchiver struct {
	cutoff time.Time
	n      int64
	err    error
}

func (f *fakeArchiver) ArchiveRuns(_ context.Context, before time.Time) (int64, error) {
	f.cutoff = before
	return f.n, f.err
}

func TestArchiverRunCutoff(t *testing.T) {
	fa := &fakeArchiver{n: 7}
	a := NewArchiver(fa, 30, discardLogger())
	a.now = func() time.Time { return time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC) }

	n, err := a.Run(context.Background())
	if err != nil || n != 7 {
		t.Fatalf("Run = (%d, %v), want (7, nil)", n, err)
	}
	if want := time.Date(2026, 9, 16, 12, 0, 0, 0, time.UTC); !fa.cutoff.Equal(want) {
		t.Errorf("cutoff = %v, want %v", fa.cutoff, want)
	}

	fa.err = errors.New("s3 down")
	if _, err := a.Run(context.Background()); err == nil {
		t.Error("expected error from archiver")
	}
}

func TestArchiverRunCronRejectsBadSchedule(t *testing.T) {
	a := NewArchiver(&fakeArchiver{}, 30, discardLogger())
	if err := a.RunCron(context.Background(), "not a cron"); err == nil {
		t.Error("RunCron with bad expression should fail fast")
	}
}

type countingRunner struct {
	mu    sync.Mutex
	calls int
	ran   chan struct{}
}

func (c *countingRunner) RunScan(context.Context) (domain.DislocationRun, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	c.ran <- struct{}{}
	return domain.DislocationRun{ID: "run"}, nil
}

func TestScannerRunsImmediatelyAndOnTrigger(t *testing.T) {
	runner := &countingRunner{ran: make(chan struct{}, 10)}
	s := NewScanner(runner, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.RunLoop(ctx, time.Hour) }()

	waitRun := func(what string) {
		select {
		case <-runner.ran:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %s scan", what)
		}
	}
	waitRun("initial")
	s.Trigger()
	waitRun("triggered")

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("RunLoop err = %v, want context.Canceled", err)
	}
	if runner.calls != 2 {
		t.Errorf("calls = %d, want 2", runner.calls)
	}
}

func TestTriggerDoesNotBlock(t *testing.T) {
	s := NewScanner(&countingRunner{ran: make(chan struct{}, 1)}, discardLogger())
	for i := 0; i < 5; i++ {
		s.Trigger()
	}
	if len(s.trigger) != 1 {
		t.Errorf("pending triggers = %d, want 1", len(s.trigger))
	}
}

func TestOrchestratorCleanShutdown(t *testing.T) {
	runner := &countingRunner{ran: make(chan struct{}, 10)}
	o := NewOrchestrator(NewScanner(runner, discardLogger()), nil, time.Hour, "", discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()

	<-runner.ran
	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run = %v, want nil on cancellation", err)
	}
}
