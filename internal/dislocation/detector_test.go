package dislocation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/alanyoungcy/newsgap/internal/domain"
)

var testNow = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func bitcoinEvents() []domain.MarketEvent {
	return []domain.MarketEvent{
		{
			ID:       "evt-btc",
			Title:    "Bitcoin price targets",
			Slug:     "bitcoin-price-targets",
			Category: "Crypto",
			Volume:   2_000_000,
			EndDate:  "2026-03-01T00:00:00Z",
			Platform: domain.PlatformPolymarket,
			Markets: []domain.SubMarket{
				{ID: "mkt-100k", Question: "Will Bitcoin hit 100K before March 2026?", ConditionID: "0xabc", OutcomePrices: []string{"0.35", "0.65"}, Volume: 800_000},
				{ID: "mkt-sol", Question: "Will Solana flip Ethereum?", OutcomePrices: []string{"0.05", "0.95"}},
			},
		},
		{
			ID:     "evt-fed",
			Title:  "Fed decision",
			Volume: 300_000,
			Markets: []domain.SubMarket{
				{ID: "mkt-cut", Question: "Will the Fed cut rates in December?", OutcomePrices: []string{"0.80", "0.20"}},
			},
		},
	}
}

func TestDetectBitcoinExample(t *testing.T) {
	news := []domain.NewsItem{
		{ID: "n1", Title: "Bitcoin hits 100K record today", Source: "Reuters", URL: "https://example.com/n1", PublishedAt: "10m", Sentiment: "positive"},
	}

	res := NewDetector().Detect(news, bitcoinEvents(), testNow)
	if len(res.Signals) != 1 {
		t.Fatalf("len(signals) = %d, want 1", len(res.Signals))
	}
	sig := res.Signals[0]
	if sig.ID != "dsl-n1-mkt-100k" {
		t.Errorf("id = %q", sig.ID)
	}
	if sig.Score != 93 {
		t.Errorf("score = %d, want 93", sig.Score)
	}
	if sig.Direction != domain.BullishGap || sig.Conviction != domain.ConvictionHigh {
		t.Errorf("direction/conviction = %s/%s, want BULLISH_GAP/HIGH", sig.Direction, sig.Conviction)
	}
	if sig.CorrelationConfidence != 0.4 {
		t.Errorf("confidence = %v, want 0.4", sig.CorrelationConfidence)
	}
	if !reflect.DeepEqual(sig.MatchedKeywords, []string{"bitcoin", "100k"}) {
		t.Errorf("matched = %v", sig.MatchedKeywords)
	}
	if sig.News.FreshnessMinutes != 10 || sig.News.Sentiment != 0.6 {
		t.Errorf("news snapshot = %+v", sig.News)
	}
	m := sig.Market
	if m.EventID != "evt-btc" || m.YesPrice != 0.35 || m.NoPrice != 0.65 || m.EventVolume != 2_000_000 {
		t.Errorf("market snapshot = %+v", m)
	}
	if m.Slug != "bitcoin-price-targets" || m.EndDate != "2026-03-01T00:00:00Z" || m.Category != domain.CategoryCrypto {
		t.Errorf("market fallbacks = %+v", m)
	}
	if sig.ActionableWindow != "~60 minutes" {
		t.Errorf("window = %q", sig.ActionableWindow)
	}
	if !strings.Contains(sig.Narrative, "underpricing") || !strings.Contains(sig.Narrative, "35% YES") {
		t.Errorf("narrative = %q", sig.Narrative)
	}

	if res.Meta.SignalCount != 1 || res.Meta.AvgDislocationScore != 93 {
		t.Errorf("meta = %+v", res.Meta)
	}
	if res.Meta.NewsSourcesScanned != 1 || res.Meta.MarketsScanned != 2 {
		t.Errorf("meta scan counts = %+v", res.Meta)
	}
	if !res.Meta.GeneratedAt.Equal(testNow) {
		t.Errorf("generatedAt = %v, want %v", res.Meta.GeneratedAt, testNow)
	}
}

func TestDetectEmptyNews(t *testing.T) {
	res := NewDetector().Detect(nil, bitcoinEvents(), testNow)
	if res.Meta.SignalCount != 0 || res.Meta.AvgDislocationScore != 0 {
		t.Errorf("meta = %+v", res.Meta)
	}
	if res.Meta.NewsSourcesScanned != 0 || res.Meta.MarketsScanned != 2 {
		t.Errorf("scan counts = %+v", res.Meta)
	}
	raw, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !bytes.Contains(raw, []byte(`"signals":[]`)) {
		t.Errorf("signals should marshal as [], got %s", raw)
	}
}

func TestDetectEmptyMarkets(t *testing.T) {
	news := []domain.NewsItem{{ID: "n1", Title: "Bitcoin hits 100K record today", Sentiment: "positive"}}
	res := NewDetector().Detect(news, nil, testNow)
	if len(res.Signals) != 0 || res.Meta.NewsSourcesScanned != 1 || res.Meta.MarketsScanned != 0 {
		t.Errorf("result = %+v", res)
	}
}

func TestDetectBearishAndNeutral(t *testing.T) {
	news := []domain.NewsItem{
		{ID: "n1", Title: "Fed cut rates talk fades", Source: "WSJ", PublishedAt: "1h", Sentiment: "negative"},
		{ID: "n2", Title: "Fed rates decision December", Source: "CNBC", PublishedAt: "5m", Sentiment: "neutral"},
	}
	res := NewDetector().Detect(news, bitcoinEvents(), testNow)
	if len(res.Signals) != 2 {
		t.Fatalf("len(signals) = %d, want 2: %+v", len(res.Signals), res.Signals)
	}
	for _, s := range res.Signals {
		if s.Direction != domain.BearishGap {
			t.Errorf("%s direction = %s, want BEARISH_GAP", s.ID, s.Direction)
		}
		if (s.News.Sentiment > s.Market.MarketSentiment) != (s.Direction == domain.BullishGap) {
			t.Errorf("%s direction inconsistent with sentiments", s.ID)
		}
	}
	if res.Signals[0].ID != "dsl-n1-mkt-cut" {
		t.Errorf("first signal = %s, want the negative headline", res.Signals[0].ID)
	}
}

func TestDetectDeterministic(t *testing.T) {
	news := []domain.NewsItem{
		{ID: "n1", Title: "Bitcoin hits 100K record today", Source: "Reuters", PublishedAt: "10m", Sentiment: "positive"},
		{ID: "n2", Title: "Fed cut rates talk fades", Source: "WSJ", PublishedAt: "2026-10-16T11:00:00Z", Sentiment: "BEARISH"},
	}
	d := NewDetector()
	a, err := json.Marshal(d.Detect(news, bitcoinEvents(), testNow))
	if err != nil {
		t.Fatal(err)
	}
	b, err := json.Marshal(d.Detect(news, bitcoinEvents(), testNow))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Errorf("two runs differ:\n%s\n%s", a, b)
	}
}

func TestDetectCapAndOrder(t *testing.T) {
	var events []domain.MarketEvent
	for i := range 15 {
		events = append(events, domain.MarketEvent{
			ID:     fmt.Sprintf("e%d", i),
			Volume: float64(i) * 200_000,
			Markets: []domain.SubMarket{{
				ID:            fmt.Sprintf("m%d", i),
				Question:      "Will Ethereum ETF approval happen?",
				OutcomePrices: []string{fmt.Sprintf("%.2f", 0.05*float64(i)), "0.5"},
			}},
		})
	}
	news := []domain.NewsItem{
		{ID: "a", Title: "Ethereum ETF approval imminent", Sentiment: "positive", PublishedAt: "30m"},
		{ID: "b", Title: "Ethereum ETF approval imminent", Sentiment: "positive", PublishedAt: "5m"},
	}

	res := NewDetector().Detect(news, events, testNow)
	if len(res.Signals) > MaxSignals {
		t.Fatalf("len(signals) = %d, want <= %d", len(res.Signals), MaxSignals)
	}
	if len(res.Signals) != MaxSignals {
		t.Errorf("len(signals) = %d, want %d", len(res.Signals), MaxSignals)
	}
	total := 0
	for i, s := range res.Signals {
		total += s.Score
		if s.Score < DislocationThreshold || s.Score > 100 {
			t.Errorf("signal %s score %d out of bounds", s.ID, s.Score)
		}
		if s.CorrelationConfidence < MinCorrelation || s.CorrelationConfidence > 1 {
			t.Errorf("signal %s confidence %v out of bounds", s.ID, s.CorrelationConfidence)
		}
		if i == 0 {
			continue
		}
		prev := res.Signals[i-1]
		if prev.Score < s.Score {
			t.Errorf("signals not sorted by score at %d: %d < %d", i, prev.Score, s.Score)
		}
		if prev.Score == s.Score && prev.News.FreshnessMinutes > s.News.FreshnessMinutes {
			t.Errorf("tie at %d not broken by freshness", i)
		}
	}
	if want := float64(total) / float64(len(res.Signals)); res.Meta.AvgDislocationScore != want {
		t.Errorf("avg = %v, want %v", res.Meta.AvgDislocationScore, want)
	}
	if res.Meta.MarketsScanned != 15 || res.Meta.NewsSourcesScanned != 2 {
		t.Errorf("scan counts = %+v", res.Meta)
	}
}

type exactSimilarity struct{}

func (exactSimilarity) Similarity(news, market []string) (float64, []string) {
	if reflect.DeepEqual(news, market) {
		return 1, news
	}
	return 0, []string{}
}

func TestDetectWithSimilarity(t *testing.T) {
	events := []domain.MarketEvent{{ID: "e", Markets: []domain.SubMarket{{ID: "m", Question: "Fed cuts rates", OutcomePrices: []string{"0.2", "0.8"}}}}}
	news := []domain.NewsItem{
		{ID: "hit", Title: "Fed cuts rates", Sentiment: "positive", PublishedAt: "1m"},
		{ID: "miss", Title: "Fed cuts rates again", Sentiment: "positive", PublishedAt: "1m"},
	}
	res := NewDetector(WithSimilarity(exactSimilarity{})).Detect(news, events, testNow)
	if len(res.Signals) != 1 || res.Signals[0].News.ID != "hit" {
		t.Fatalf("signals = %+v, want only the exact match", res.Signals)
	}
}

func TestRank(t *testing.T) {
	sig := func(id string, score, fresh int, conf float64) domain.DislocationSignal {
		return domain.DislocationSignal{ID: id, Score: score, News: domain.SignalNews{FreshnessMinutes: fresh}, CorrelationConfidence: conf}
	}
	in := []domain.DislocationSignal{
		sig("low", 24, 0, 1),
		sig("b", 50, 30, 0.5),
		sig("a", 50, 10, 0.5),
		sig("c", 50, 10, 0.9),
		sig("top", 80, 100, 0.3),
		sig("edge", 25, 0, 0.3),
	}
	var ids []string
	for _, s := range Rank(in) {
		ids = append(ids, s.ID)
	}
	want := []string{"top", "c", "a", "b", "edge"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("Rank order = %v, want %v", ids, want)
	}
}

func TestDetectTitleFallsBackToEvent(t *testing.T) {
	events := []domain.MarketEvent{{
		ID:    "evt-eth",
		Title: "Ethereum merge outcome",
		Markets: []domain.SubMarket{
			{ID: "mkt-eth", OutcomePrices: []string{"0.20", "0.80"}},
		},
	}}
	news := []domain.NewsItem{
		{ID: "n1", Title: "Ethereum merge outcome confirmed", Source: "wire", PublishedAt: "5m", Sentiment: "positive"},
	}

	res := NewDetector().Detect(news, events, testNow)
	if len(res.Signals) != 1 {
		t.Fatalf("len(signals) = %d, want 1", len(res.Signals))
	}
	if got := res.Signals[0].Market.Title; got != "Ethereum merge outcome" {
		t.Errorf("market title = %q, want the event title", got)
	}
}
