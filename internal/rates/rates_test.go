package rates

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type stubFetcher struct {
	calls int
	rates map[string]decimal.Decimal
	err   error
}

func (s *stubFetcher) Fetch(_ context.Context, _ string) (map[string]decimal.Decimal, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make(map[string]decimal.Decimal, len(s.rates))
	for k, v := range s.rates {
		out[k] = v
	}
	return out, nil
}

func TestCacheFreshnessWindow(t *testing.T) {
	f := &stubFetcher{rates: map[string]decimal.Decimal{"EUR": decimal.RequireFromString("19.9")}}
	c := NewCache(f, "mdl", time.Hour, discard)
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	c.SetClock(func() time.Time { return now })

	first := c.Rates(context.Background())
	if first.Fallback {
		t.Fatal("Rates() returned fallback, want live")
	}
	if !first.Rates["MDL"].Equal(decimal.NewFromInt(1)) {
		t.Errorf("Rates() base multiplier = %v, want 1", first.Rates["MDL"])
	}

	now = now.Add(59 * time.Minute)
	if second := c.Rates(context.Background()); second != first {
		t.Error("Rates() within window returned a different value")
	}
	if f.calls != 1 {
		t.Errorf("fetch calls = %d, want 1", f.calls)
	}

	now = now.Add(2 * time.Minute)
	third := c.Rates(context.Background())
	if third == first {
		t.Error("Rates() after window returned the stale value")
	}
	if f.calls != 2 {
		t.Errorf("fetch calls = %d, want 2", f.calls)
	}
}

func TestCacheFallbackOnFailure(t *testing.T) {
	f := &stubFetcher{err: errors.New("boom")}
	c := NewCache(f, "MDL", time.Hour, discard)

	r := c.Rates(context.Background())
	if !r.Fallback {
		t.Fatal("Rates() Fallback = false, want true")
	}
	if !r.Rates["EUR"].Equal(decimal.RequireFromString("19.5")) {
		t.Errorf("fallback EUR = %v, want 19.5", r.Rates["EUR"])
	}

	// fallbacks are not cached
	c.Rates(context.Background())
	if f.calls != 2 {
		t.Errorf("fetch calls = %d, want 2", f.calls)
	}
}

func TestCacheFallbackWithoutKey(t *testing.T) {
	c := NewCache(NewHTTPFetcher("http://127.0.0.1:0", ""), "MDL", time.Hour, discard)
	if r := c.Rates(context.Background()); !r.Fallback {
		t.Error("Rates() without API key Fallback = false, want true")
	}
}

func TestFallbackRebase(t *testing.T) {
	r := Fallback("EUR", time.Now())
	if !r.Rates["EUR"].Equal(decimal.NewFromInt(1)) {
		t.Errorf("EUR multiplier = %v, want 1", r.Rates["EUR"])
	}
	want := decimal.RequireFromString("3.9").Div(decimal.RequireFromString("19.5")).Round(6)
	if !r.Rates["RON"].Equal(want) {
		t.Errorf("RON multiplier = %v, want %v", r.Rates["RON"], want)
	}

	r = Fallback("JPY", time.Now())
	if len(r.Rates) != 1 {
		t.Errorf("unknown base rates = %v, want identity only", r.Rates)
	}
}

func TestHTTPFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/secret/latest/MDL" {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, `{"result":"success","base_code":"MDL","conversion_rates":{"MDL":1,"EUR":0.05,"usd":0.0625,"XXX":0}}`)
	}))
	defer srv.Close()

	got, err := NewHTTPFetcher(srv.URL+"/", "secret").Fetch(context.Background(), "mdl")
	if err != nil {
		t.Fatalf("Fetch() unexpected error = %v", err)
	}
	tests := map[string]string{"MDL": "1", "EUR": "20", "USD": "16"}
	for code, want := range tests {
		if !got[code].Equal(decimal.RequireFromString(want)) {
			t.Errorf("Fetch()[%s] = %v, want %s", code, got[code], want)
		}
	}
	if _, ok := got["XXX"]; ok {
		t.Error("Fetch() kept a zero rate")
	}
}

func TestParseConversionRatesKeepsPrecision(t *testing.T) {
	got, err := parseConversionRates(map[string]any{
		"result":           "success",
		"conversion_rates": map[string]any{"MDL": 1.0, "KRW": 1430.0},
	})
	if err != nil {
		t.Fatalf("parseConversionRates() unexpected error = %v", err)
	}
	krw := got["KRW"]
	if krw.Equal(decimal.RequireFromString("0.000699")) {
		t.Errorf("KRW rate = %v, rounded to 6 places", krw)
	}
	// 1,430,000 KRW is 1000 MDL
	if total := krw.Mul(decimal.NewFromInt(1430000)).Round(2); !total.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("1430000 KRW = %v MDL, want 1000", total)
	}
}

func TestHTTPFetcherErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{}`},
		{"api error", http.StatusOK, `{"result":"error","error-type":"invalid-key"}`},
		{"no table", http.StatusOK, `{"result":"success"}`},
		{"garbage", http.StatusOK, `<html>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()
			if _, err := NewHTTPFetcher(srv.URL, "k").Fetch(context.Background(), "MDL"); err == nil {
				t.Error("Fetch() expected error")
			}
		})
	}
}

func TestConvertUnsupported(t *testing.T) {
	r := Fallback("MDL", time.Now())
	_, err := r.Convert(decimal.NewFromInt(1), "JPY")
	if !errors.Is(err, ErrUnsupportedCurrency) {
		t.Errorf("Convert() error = %v, want ErrUnsupportedCurrency", err)
	}
	if !strings.Contains(err.Error(), "JPY") {
		t.Errorf("Convert() error = %v, want currency named", err)
	}
}
