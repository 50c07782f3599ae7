package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alanyoungcy/newsgap/internal/domain"
	"github.com/alanyoungcy/newsgap/internal/server/handler"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubService struct{}

func (stubService) Latest(context.Context) (domain.DislocationRun, error) {
	return domain.DislocationRun{ID: "r1"}, nil
}

func (stubService) RunScan(context.Context) (domain.DislocationRun, error) {
	return domain.DislocationRun{ID: "r2"}, nil
}

func (stubService) Status() domain.ScanStatus { return domain.ScanStatus{Mode: "monitor"} }

type countingLimiter struct {
	allow int
	err   error
	calls int
}

func (c *countingLimiter) Allow(context.Context, string, int, time.Duration) (bool, error) {
	c.calls++
	if c.err != nil {
		return false, c.err
	}
	return c.calls <= c.allow, nil
}

func testRoutes(cfg Config, limiter domain.RateLimiter) http.Handler {
	logger := discardLogger()
	handlers := Handlers{
		Health:       handler.NewHealthHandler(nil, logger),
		Status:       handler.NewStatusHandler(stubService{}, nil),
		Dislocations: handler.NewDislocationHandler(stubService{}, logger),
		History:      handler.NewHistoryHandler(nil, nil, logger),
	}
	return Routes(cfg, handlers, nil, limiter, logger)
}

func do(h http.Handler, method, path string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAuth(t *testing.T) {
	h := testRoutes(Config{APIKey: "secret"}, nil)

	tests := []struct {
		name   string
		method string
		path   string
		hdr    map[string]string
		want   int
	}{
		{"health is public", http.MethodGet, "/api/health", nil, http.StatusOK},
		{"missing token", http.MethodGet, "/api/dislocations", nil, http.StatusUnauthorized},
		{"wrong token", http.MethodGet, "/api/dislocations", map[string]string{"X-API-Key": "nope"}, http.StatusUnauthorized},
		{"bearer", http.MethodGet, "/api/dislocations", map[string]string{"Authorization": "Bearer secret"}, http.StatusOK},
		{"api key header", http.MethodPost, "/api/dislocations/scan", map[string]string{"X-API-Key": "secret"}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := do(h, tt.method, tt.path, tt.hdr); rec.Code != tt.want {
				t.Errorf("%s %s = %d, want %d", tt.method, tt.path, rec.Code, tt.want)
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	limiter := &countingLimiter{allow: 2}
	h := testRoutes(Config{RateLimit: 2, RateWindow: time.Minute}, limiter)

	for i := 0; i < 2; i++ {
		if rec := do(h, http.MethodGet, "/api/status", nil); rec.Code != http.StatusOK {
			t.Fatalf("request %d = %d", i, rec.Code)
		}
	}
	rec := do(h, http.MethodGet, "/api/status", nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("third request = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q", rec.Header().Get("Retry-After"))
	}
}

func TestRateLimitFailsOpen(t *testing.T) {
	h := testRoutes(Config{RateLimit: 1}, &countingLimiter{err: errors.New("redis down")})
	if rec := do(h, http.MethodGet, "/api/status", nil); rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 when limiter errors", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	h := testRoutes(Config{APIKey: "secret", CORSOrigins: []string{"https://dash.example.com"}}, nil)

	rec := do(h, http.MethodOptions, "/api/dislocations", map[string]string{
		"Origin":                        "https://dash.example.com",
		"Access-Control-Request-Method": http.MethodGet,
	})
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://dash.example.com" {
		t.Errorf("Allow-Origin = %q", got)
	}
	if rec.Code >= 400 {
		t.Errorf("preflight status = %d", rec.Code)
	}

	rec = do(h, http.MethodOptions, "/api/dislocations", map[string]string{
		"Origin":                        "https://evil.example.com",
		"Access-Control-Request-Method": http.MethodGet,
	})
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("disallowed origin got Allow-Origin %q", got)
	}
}

func TestUnknownRoute(t *testing.T) {
	h := testRoutes(Config{}, nil)
	if rec := do(h, http.MethodDelete, "/api/dislocations", nil); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("DELETE = %d, want 405", rec.Code)
	}
}
