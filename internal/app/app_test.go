package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alanyoungcy/newsgap/internal/config"
	"github.com/alanyoungcy/newsgap/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newsServer(t *testing.T) *httptest.Server {
	t.Helper()
	published := time.Now().UTC().Add(-10 * time.Minute).Format(time.RFC3339)
	body := `{"news":[{"id":"n1","title":"Bitcoin rally lifts crypto markets","source":"wire","publishedAt":"` +
		published + `","sentiment":"positive"}]}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func gammaServer(t *testing.T) *httptest.Server {
	t.Helper()
	body := `[
		{"id":"e1","title":"Bitcoin price","volume":"2500000","markets":[
			{"id":"m1","question":"Will Bitcoin rally above 150k?","outcomePrices":"[\"0.20\",\"0.80\"]"}
		]},
		{"id":"e2","title":"Election","volume":1000,"markets":[
			{"id":"m2","question":"Will the senate flip?","outcomePrices":"[\"0.5\",\"0.5\"]"}
		]}
	]`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/events" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestScanModePrintsResult(t *testing.T) {
	cfg := config.Defaults()
	cfg.Mode = "scan"
	cfg.News.APIURL = newsServer(t).URL
	cfg.News.RatePerSecond = 0
	cfg.Polymarket.GammaHost = gammaServer(t).URL
	cfg.Scan.VenueRatePerSecond = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	var out bytes.Buffer
	a := New(&cfg, discardLogger())
	a.SetOutput(&out)
	defer a.Close()

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !strings.Contains(out.String(), `"signals": [`) {
		t.Errorf("signals should render as an array:\n%s", out.String())
	}
	var result domain.DislocationResult
	if err := json.Unmarshal(out.Bytes(), &result); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if result.Meta.NewsSourcesScanned != 1 {
		t.Errorf("newsSourcesScanned = %d, want 1", result.Meta.NewsSourcesScanned)
	}
	if result.Meta.MarketsScanned != 2 {
		t.Errorf("marketsScanned = %d, want 2", result.Meta.MarketsScanned)
	}
	if result.Meta.SignalCount != len(result.Signals) {
		t.Errorf("signalCount = %d, signals = %d", result.Meta.SignalCount, len(result.Signals))
	}
}

func TestScanModeDegradesOnFailingVenue(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer broken.Close()

	cfg := config.Defaults()
	cfg.Mode = "scan"
	cfg.News.APIURL = newsServer(t).URL
	cfg.News.RatePerSecond = 0
	cfg.Polymarket.GammaHost = broken.URL

	var out bytes.Buffer
	a := New(&cfg, discardLogger())
	a.SetOutput(&out)
	defer a.Close()

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	var result domain.DislocationResult
	if err := json.Unmarshal(out.Bytes(), &result); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if result.Meta.MarketsScanned != 0 || len(result.Signals) != 0 {
		t.Errorf("meta = %+v, want an empty run", result.Meta)
	}
}

func TestWireRequiresSources(t *testing.T) {
	cfg := config.Defaults()
	cfg.Mode = "scan"
	if _, _, err := Wire(context.Background(), &cfg, discardLogger()); !errors.Is(err, domain.ErrNoSources) {
		t.Fatalf("Wire() error = %v, want ErrNoSources", err)
	}

	cfg.News.Feeds = []string{"https://example.com/rss"}
	cfg.Polymarket.Enabled = false
	if _, _, err := Wire(context.Background(), &cfg, discardLogger()); !errors.Is(err, domain.ErrNoSources) {
		t.Fatalf("Wire() error = %v, want ErrNoSources for markets", err)
	}
}

func TestWireKalshiKeyMissing(t *testing.T) {
	cfg := config.Defaults()
	cfg.Mode = "scan"
	cfg.News.Feeds = []string{"https://example.com/rss"}
	cfg.Kalshi.Enabled = true
	cfg.Kalshi.ApiKey = "key-id"
	cfg.Kalshi.RsaPrivateKeyPath = filepath.Join(t.TempDir(), "missing.pem")

	_, _, err := Wire(context.Background(), &cfg, discardLogger())
	if err == nil || !strings.Contains(err.Error(), "read kalshi key") {
		t.Fatalf("Wire() error = %v, want key read failure", err)
	}
}

func TestWireLeavesDisabledSinksNil(t *testing.T) {
	cfg := config.Defaults()
	cfg.Mode = "monitor"
	cfg.News.Feeds = []string{"https://example.com/rss"}

	deps, cleanup, err := Wire(context.Background(), &cfg, discardLogger())
	if err != nil {
		t.Fatalf("Wire: %v", err)
	}
	defer cleanup()

	if deps.Runs != nil || deps.Audit != nil || deps.Cache != nil ||
		deps.Lock != nil || deps.RateLimiter != nil || deps.Snapshots != nil || deps.Archiver != nil {
		t.Errorf("disabled backends should stay nil: %+v", deps)
	}
	if len(deps.HealthChecks) != 0 {
		t.Errorf("HealthChecks = %v, want none", deps.HealthChecks)
	}
	if deps.Bus == nil || deps.Deduper == nil {
		t.Error("in-process bus and deduper should back a Redis-less setup")
	}
	if deps.Notifier.Enabled() {
		t.Error("notifier should have no senders")
	}
}

func TestRunUnknownMode(t *testing.T) {
	cfg := config.Defaults()
	cfg.Mode = "trade"
	cfg.News.Feeds = []string{"https://example.com/rss"}

	a := New(&cfg, discardLogger())
	defer a.Close()
	err := a.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), `unsupported mode "trade"`) {
		t.Fatalf("Run() error = %v", err)
	}
}
