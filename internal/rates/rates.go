package rates

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

var ErrUnsupportedCurrency = errors.New("unsupported currency")

// ExchangeRates maps a currency code to the multiplier converting one unit
// of it into Base.
type ExchangeRates struct {
	Base      string                     `json:"base"`
	Rates     map[string]decimal.Decimal `json:"rates"`
	FetchedAt time.Time                  `json:"fetched_at"`
	Fallback  bool                       `json:"fallback"`
}

// Convert returns amount expressed in the base currency.
func (r *ExchangeRates) Convert(amount decimal.Decimal, currency string) (decimal.Decimal, error) {
	m, ok := r.Rates[strings.ToUpper(currency)]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrUnsupportedCurrency, currency)
	}
	return amount.Mul(m), nil
}

// Supports reports whether currency can be converted.
func (r *ExchangeRates) Supports(currency string) bool {
	_, ok := r.Rates[strings.ToUpper(currency)]
	return ok
}

// fallbackMDL is used whenever live rates are unavailable. MDL per unit.
var fallbackMDL = map[string]string{
	"MDL": "1",
	"EUR": "19.50",
	"USD": "17.80",
	"RON": "3.90",
	"GBP": "23.00",
}

// Fallback returns the static table rebased on base. Unknown bases get
// just the identity rate.
func Fallback(base string, now time.Time) *ExchangeRates {
	base = strings.ToUpper(base)
	out := &ExchangeRates{Base: base, Rates: map[string]decimal.Decimal{base: decimal.NewFromInt(1)}, FetchedAt: now, Fallback: true}
	div, ok := fallbackMDL[base]
	if !ok {
		return out
	}
	d := decimal.RequireFromString(div)
	for code, v := range fallbackMDL {
		out.Rates[code] = decimal.RequireFromString(v).Div(d).Round(6)
	}
	return out
}

// Fetcher loads live multipliers against base.
type Fetcher interface {
	Fetch(ctx context.Context, base string) (map[string]decimal.Decimal, error)
}

// Cache keeps the last live table for ttl. Concurrent misses may fetch
// more than once; that is harmless.
type Cache struct {
	fetcher Fetcher
	base    string
	ttl     time.Duration
	logger  *slog.Logger
	now     func() time.Time

	mu      sync.Mutex
	current *ExchangeRates
}

func NewCache(fetcher Fetcher, base string, ttl time.Duration, logger *slog.Logger) *Cache {
	return &Cache{
		fetcher: fetcher,
		base:    strings.ToUpper(base),
		ttl:     ttl,
		logger:  logger,
		now:     time.Now,
	}
}

// SetClock replaces time.Now.
func (c *Cache) SetClock(now func() time.Time) {
	c.now = now
}

func (c *Cache) Base() string {
	return c.base
}

// Rates never fails: live data when possible, the fallback table otherwise.
func (c *Cache) Rates(ctx context.Context) *ExchangeRates {
	now := c.now()

	c.mu.Lock()
	cur := c.current
	c.mu.Unlock()
	if cur != nil && now.Sub(cur.FetchedAt) < c.ttl {
		return cur
	}

	rates, err := c.fetcher.Fetch(ctx, c.base)
	if err != nil {
		c.logger.Warn("Using fallback exchange rates", "base", c.base, "error", err)
		return Fallback(c.base, now)
	}
	rates[c.base] = decimal.NewFromInt(1)

	fresh := &ExchangeRates{Base: c.base, Rates: rates, FetchedAt: now}
	c.mu.Lock()
	c.current = fresh
	c.mu.Unlock()
	return fresh
}
