package kalshi

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/alanyoungcy/newsgap/internal/domain"
)

func TestGetEventsPaginates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("with_nested_markets") != "true" || r.URL.Query().Get("status") != "open" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		if r.Header.Get("KALSHI-ACCESS-SIGNATURE") != "" {
			t.Error("unsigned client sent a signature")
		}
		switch r.URL.Query().Get("cursor") {
		case "":
			_, _ = io.WriteString(w, `{"cursor":"p2","events":[
				{"event_ticker":"FED-26DEC","title":"Fed decision in December","category":"Economics","markets":[
					{"ticker":"FED-26DEC-CUT","title":"Will the Fed cut rates in December?","status":"active","last_price":62,"volume":1500,"close_time":"2026-12-10T19:00:00Z"},
					{"ticker":"FED-26DEC-HIKE","title":"","yes_sub_title":"Hike","status":"active","yes_bid":4,"yes_ask":6,"volume":500},
					{"ticker":"FED-26DEC-OLD","status":"settled","last_price":99}
				]}
			]}`)
		case "p2":
			_, _ = io.WriteString(w, `{"cursor":"","events":[
				{"event_ticker":"NOPRICE","title":"No quotes yet","markets":[{"ticker":"NOPRICE-A","title":"Will it happen?","status":"active"}]}
			]}`)
		}
	}))
	defer srv.Close()

	events, err := NewClient(srv.URL, "").GetEvents(context.Background(), 10)
	if err != nil {
		t.Fatalf("GetEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("len(events) = %d, want 2", len(events))
	}

	fed := events[0]
	if fed.Platform != domain.PlatformKalshi || fed.Volume != 2000 || len(fed.Markets) != 2 {
		t.Errorf("fed event = %+v", fed)
	}
	if got := fed.Markets[0].OutcomePrices; !reflect.DeepEqual(got, []string{"0.62", "0.38"}) {
		t.Errorf("last-price outcome prices = %v", got)
	}
	hike := fed.Markets[1]
	if hike.Question != "Fed decision in December Hike" {
		t.Errorf("fallback question = %q", hike.Question)
	}
	if !reflect.DeepEqual(hike.OutcomePrices, []string{"0.05", "0.95"}) {
		t.Errorf("midpoint outcome prices = %v", hike.OutcomePrices)
	}
	if fed.EndDate != "2026-12-10T19:00:00Z" {
		t.Errorf("event end date = %q", fed.EndDate)
	}
	if events[1].Markets[0].OutcomePrices != nil {
		t.Errorf("unpriced market should carry no prices, got %v", events[1].Markets[0].OutcomePrices)
	}
}

func TestGetEventsSigned(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatal(err)
	}
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("KALSHI-ACCESS-KEY") != "key-id" {
			t.Errorf("access key = %q", r.Header.Get("KALSHI-ACCESS-KEY"))
		}
		sig, err := base64.StdEncoding.DecodeString(r.Header.Get("KALSHI-ACCESS-SIGNATURE"))
		if err != nil {
			t.Fatalf("decode signature: %v", err)
		}
		msg := r.Header.Get("KALSHI-ACCESS-TIMESTAMP") + r.Method + r.URL.Path
		hash := sha256.Sum256([]byte(msg))
		if err := rsa.VerifyPSS(&key.PublicKey, crypto.SHA256, hash[:], sig, &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash}); err != nil {
			t.Errorf("signature does not verify: %v", err)
		}
		_, _ = io.WriteString(w, `{"events":[]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key-id")
	if err := c.SetRSAPrivateKey(pemBytes); err != nil {
		t.Fatalf("SetRSAPrivateKey: %v", err)
	}
	if _, err := c.GetEvents(context.Background(), 5); err != nil {
		t.Fatalf("GetEvents: %v", err)
	}
}

func TestCheckStatus(t *testing.T) {
	if err := checkStatus(http.StatusTooManyRequests, []byte(`{"code":"rate","message":"slow down"}`)); !errors.Is(err, domain.ErrRateLimited) {
		t.Errorf("429 err = %v", err)
	}
	if err := checkStatus(http.StatusUnauthorized, nil); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("401 err = %v", err)
	}
	if err := checkStatus(http.StatusOK, nil); err != nil {
		t.Errorf("200 err = %v", err)
	}
}
