package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/alanyoungcy/newsgap/internal/domain"
)

// GammaClient is the REST client for the Polymarket Gamma API, which
// provides market discovery, metadata, and search.
type GammaClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewGammaClient creates a new Gamma API client.
//
// baseURL is the Gamma API root, e.g. "https://gamma-api.polymarket.com".
func NewGammaClient(baseURL string) *GammaClient {
	return &GammaClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// EventQuery filters the /events listing.
type EventQuery struct {
	Limit     int
	Offset    int
	TagSlug   string
	Order     string // e.g. "volume"
	Ascending bool
}

func (q EventQuery) values() url.Values {
	params := url.Values{}
	params.Set("active", "true")
	params.Set("closed", "false")
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		params.Set("offset", strconv.Itoa(q.Offset))
	}
	if q.TagSlug != "" {
		params.Set("tag_slug", q.TagSlug)
	}
	if q.Order != "" {
		params.Set("order", q.Order)
		params.Set("ascending", strconv.FormatBool(q.Ascending))
	}
	return params
}

// GetEvents returns open events with their nested markets.
func (g *GammaClient) GetEvents(ctx context.Context, q EventQuery) ([]domain.MarketEvent, error) {
	path := "/events?" + q.values().Encode()

	body, err := g.doGet(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("polymarket/gamma: get events: %w", err)
	}

	var apiEvents []APIEvent
	if err := json.Unmarshal(body, &apiEvents); err != nil {
		return nil, fmt.Errorf("polymarket/gamma: decode events: %w", err)
	}

	events := make([]domain.MarketEvent, 0, len(apiEvents))
	for i := range apiEvents {
		ev := apiEvents[i].ToDomainEvent()
		if len(ev.Markets) == 0 {
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

// GetEvent returns a single event by its ID from the Gamma API.
func (g *GammaClient) GetEvent(ctx context.Context, id string) (domain.MarketEvent, error) {
	path := fmt.Sprintf("/events/%s", url.PathEscape(id))

	body, err := g.doGet(ctx, path)
	if err != nil {
		return domain.MarketEvent{}, fmt.Errorf("polymarket/gamma: get event %s: %w", id, err)
	}

	var event APIEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return domain.MarketEvent{}, fmt.Errorf("polymarket/gamma: decode event: %w", err)
	}

	return event.ToDomainEvent(), nil
}

// EventSource adapts a GammaClient and a fixed query to the market source
// contract.
type EventSource struct {
	Client *GammaClient
	Query  EventQuery
}

var _ domain.MarketSource = (*EventSource)(nil)

// Name identifies the source in logs.
func (s *EventSource) Name() string { return string(domain.PlatformPolymarket) }

// FetchEvents runs the configured query.
func (s *EventSource) FetchEvents(ctx context.Context) ([]domain.MarketEvent, error) {
	return s.Client.GetEvents(ctx, s.Query)
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// doGet sends an unauthenticated GET request to the Gamma API.
func (g *GammaClient) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}

	return body, nil
}

// checkHTTPStatus maps non-2xx status codes to appropriate domain errors.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	bodyStr := string(body)
	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, bodyStr)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, bodyStr)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, bodyStr)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, bodyStr)
	}
}
