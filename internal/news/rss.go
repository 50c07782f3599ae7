package news

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/alanyoungcy/newsgap/internal/domain"
)

// RSSSource fetches headlines from an RSS or Atom feed.
type RSSSource struct {
	name     string
	url      string
	maxItems int
	parser   *gofeed.Parser
	labeler  *Labeler
}

var _ Source = (*RSSSource)(nil)

// RSSSourceConfig configures an RSS/Atom feed source.
type RSSSourceConfig struct {
	Name     string
	URL      string
	MaxItems int
	Timeout  time.Duration
	Labeler  *Labeler
}

// NewRSSSource creates a feed source. Items carry no sentiment of their own,
// so every headline is run through the labeler.
func NewRSSSource(cfg RSSSourceConfig) *RSSSource {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: timeout}
	parser.UserAgent = "newsgap/1.0"

	labeler := cfg.Labeler
	if labeler == nil {
		labeler = NewLabeler(nil, nil)
	}
	return &RSSSource{
		name:     cfg.Name,
		url:      cfg.URL,
		maxItems: cfg.MaxItems,
		parser:   parser,
		labeler:  labeler,
	}
}

// Name returns the configured source name.
func (s *RSSSource) Name() string { return s.name }

// FetchNews parses the feed and converts its entries.
func (s *RSSSource) FetchNews(ctx context.Context) ([]domain.NewsItem, error) {
	feed, err := s.parser.ParseURLWithContext(s.url, ctx)
	if err != nil {
		return nil, fmt.Errorf("news/rss: %s: parse %s: %w", s.name, s.url, err)
	}
	return s.convert(feed), nil
}

func (s *RSSSource) convert(feed *gofeed.Feed) []domain.NewsItem {
	source := firstNonEmpty(s.name, feed.Title)
	items := make([]domain.NewsItem, 0, len(feed.Items))
	for _, entry := range feed.Items {
		if entry.Title == "" {
			continue
		}
		published := ""
		if entry.PublishedParsed != nil {
			published = entry.PublishedParsed.UTC().Format(time.RFC3339)
		} else if entry.UpdatedParsed != nil {
			published = entry.UpdatedParsed.UTC().Format(time.RFC3339)
		}
		items = append(items, domain.NewsItem{
			ID:          stableID(firstNonEmpty(entry.Link, entry.GUID, entry.Title)),
			Title:       entry.Title,
			Source:      source,
			URL:         entry.Link,
			PublishedAt: published,
			Sentiment:   s.labeler.Label(entry.Title),
		})
		if s.maxItems > 0 && len(items) == s.maxItems {
			break
		}
	}
	return items
}
