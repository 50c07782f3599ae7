package platform

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/alanyoungcy/newsgap/internal/domain"
)

type fakeVenue struct {
	name   string
	events []domain.MarketEvent
	err    error
}

func (f fakeVenue) Name() string { return f.name }

func (f fakeVenue) FetchEvents(context.Context) ([]domain.MarketEvent, error) {
	return f.events, f.err
}

func TestMultiSource(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	src := NewMultiSource([]Venue{
		fakeVenue{name: "polymarket", events: []domain.MarketEvent{{ID: "p1"}, {ID: "p2"}}},
		fakeVenue{name: "broken", err: errors.New("down")},
		fakeVenue{name: "kalshi", events: []domain.MarketEvent{{ID: "k1"}}},
	}, 0, logger)

	events, err := src.FetchEvents(context.Background())
	if err != nil {
		t.Fatalf("FetchEvents: %v", err)
	}
	if len(events) != 3 || events[0].ID != "p1" || events[2].ID != "k1" {
		t.Errorf("events = %+v", events)
	}

	_, err = NewMultiSource(nil, 0, logger).FetchEvents(context.Background())
	if !errors.Is(err, domain.ErrNoSources) {
		t.Errorf("err = %v, want ErrNoSources", err)
	}

	down := errors.New("down")
	_, err = NewMultiSource([]Venue{fakeVenue{name: "x", err: down}}, 5, logger).FetchEvents(context.Background())
	if !errors.Is(err, down) {
		t.Errorf("err = %v, want wrapped down", err)
	}
}
