package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/shopspring/decimal"
)

var ErrNoAPIKey = errors.New("exchange rate API key not configured")

// HTTPFetcher reads an exchangerate-api v6 style "latest" document:
//
//	{"result": "success", "base_code": "MDL", "conversion_rates": {"EUR": 0.0513, ...}}
//
// where each value is units of the currency per one base unit.
type HTTPFetcher struct {
	http    *http.Client
	baseURL string
	key     string
}

func NewHTTPFetcher(baseURL, key string) *HTTPFetcher {
	return &HTTPFetcher{
		http:    &http.Client{Timeout: 8 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		key:     key,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, base string) (map[string]decimal.Decimal, error) {
	if f.key == "" {
		return nil, ErrNoAPIKey
	}
	url := fmt.Sprintf("%s/%s/latest/%s", f.baseURL, f.key, strings.ToUpper(base))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "investtrack/1.0")
	resp, err := f.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rates http %d", resp.StatusCode)
	}

	var doc any
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding rates: %w", err)
	}
	return parseConversionRates(doc)
}

func parseConversionRates(doc any) (map[string]decimal.Decimal, error) {
	if result, err := jsonpath.Get("$.result", doc); err == nil && result != "success" {
		return nil, fmt.Errorf("rates api result %v", result)
	}
	jval, err := jsonpath.Get("$.conversion_rates", doc)
	if err != nil {
		return nil, fmt.Errorf("rates: %w", err)
	}
	table, ok := jval.(map[string]any)
	if !ok || len(table) == 0 {
		return nil, errors.New("rates: conversion_rates missing")
	}

	out := make(map[string]decimal.Decimal, len(table))
	for code, v := range table {
		f, ok := v.(float64)
		if !ok || f <= 0 {
			continue
		}
		// invert "per base" into "base per unit"; totals are rounded, rates are not
		out[strings.ToUpper(code)] = decimal.NewFromInt(1).Div(decimal.NewFromFloat(f))
	}
	if len(out) == 0 {
		return nil, errors.New("rates: no usable rate")
	}
	return out, nil
}
