package news

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/alanyoungcy/newsgap/internal/domain"
)

// HTTPSourceConfig configures a JSON news API source.
type HTTPSourceConfig struct {
	Name      string
	URL       string
	APIKey    string
	Timeout   time.Duration
	RatePerS  float64
	Labeler   *Labeler
	Transport http.RoundTripper
}

// HTTPSource polls a JSON endpoint that returns a list of headlines, either as
// a bare array or wrapped in {"news": [...]} / {"items": [...]}.
type HTTPSource struct {
	name       string
	url        string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	labeler    *Labeler
}

var _ Source = (*HTTPSource)(nil)

// NewHTTPSource creates a JSON news source.
func NewHTTPSource(cfg HTTPSourceConfig) *HTTPSource {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	limit := rate.Inf
	if cfg.RatePerS > 0 {
		limit = rate.Limit(cfg.RatePerS)
	}
	return &HTTPSource{
		name:       cfg.Name,
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout, Transport: cfg.Transport},
		limiter:    rate.NewLimiter(limit, 1),
		labeler:    cfg.Labeler,
	}
}

// Name returns the configured source name.
func (s *HTTPSource) Name() string { return s.name }

// apiItem tolerates the field spellings seen across news APIs.
type apiItem struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Headline    string `json:"headline"`
	Source      string `json:"source"`
	URL         string `json:"url"`
	Link        string `json:"link"`
	PublishedAt string `json:"publishedAt"`
	Published   string `json:"published_at"`
	Time        string `json:"time"`
	Sentiment   string `json:"sentiment"`
}

type apiEnvelope struct {
	News  []apiItem `json:"news"`
	Items []apiItem `json:"items"`
}

// FetchNews retrieves and normalises the current headlines.
func (s *HTTPSource) FetchNews(ctx context.Context) ([]domain.NewsItem, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("news/http: %s: wait: %w", s.name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("news/http: %s: create request: %w", s.name, err)
	}
	req.Header.Set("Accept", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("news/http: %s: request: %w", s.name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("news/http: %s: read response: %w", s.name, err)
	}
	if err := checkStatus(resp.StatusCode, body); err != nil {
		return nil, fmt.Errorf("news/http: %s: %w", s.name, err)
	}

	raw, err := decodeItems(body)
	if err != nil {
		return nil, fmt.Errorf("news/http: %s: decode: %w", s.name, err)
	}

	out := make([]domain.NewsItem, 0, len(raw))
	for _, it := range raw {
		item := s.toDomain(it)
		if item.Title == "" {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

func decodeItems(body []byte) ([]apiItem, error) {
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "[") {
		var items []apiItem
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, err
		}
		return items, nil
	}
	var env apiEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, err
	}
	if len(env.News) > 0 {
		return env.News, nil
	}
	return env.Items, nil
}

func (s *HTTPSource) toDomain(it apiItem) domain.NewsItem {
	item := domain.NewsItem{
		ID:          it.ID,
		Title:       firstNonEmpty(it.Title, it.Headline),
		Source:      firstNonEmpty(it.Source, s.name),
		URL:         firstNonEmpty(it.URL, it.Link),
		PublishedAt: firstNonEmpty(it.PublishedAt, it.Published, it.Time),
		Sentiment:   domain.SentimentLabel(it.Sentiment),
	}
	if item.ID == "" {
		item.ID = stableID(firstNonEmpty(item.URL, item.Title))
	}
	if it.Sentiment == "" && s.labeler != nil {
		item.Sentiment = s.labeler.Label(item.Title)
	} else {
		item.Sentiment = item.Sentiment.Normalize()
	}
	return item
}

// stableID derives a short identifier from a URL or title.
func stableID(key string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(key)))[:16]
}

// checkStatus maps non-2xx status codes to domain errors.
func checkStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}
	snippet := string(body)
	if len(snippet) > 200 {
		snippet = snippet[:200]
	}
	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, snippet)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, snippet)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, snippet)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, snippet)
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
