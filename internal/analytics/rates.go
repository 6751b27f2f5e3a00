package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

// DefaultRatesURL serves daily EUR-based exchange rates as a static JSON
// document, no API key required.
const DefaultRatesURL = "https://latest.currency-api.pages.dev/v1/currencies/eur.json"

// ErrUnknownCurrency indicates a transaction carries a currency the rates
// table does not cover.
var ErrUnknownCurrency = errors.New("unknown currency")

// Rates supplies EUR-based exchange rates keyed by lowercase currency code.
type Rates interface {
	FromEUR(ctx context.Context) (map[string]float64, error)
}

// HTTPRates fetches the rates document over HTTP and caches it for a TTL so
// one summary request does not hammer the endpoint per transaction.
type HTTPRates struct {
	url    string
	client *http.Client
	ttl    time.Duration

	mu        sync.Mutex
	cached    map[string]float64
	fetchedAt time.Time
}

// NewHTTPRates creates a rates client. Empty url uses DefaultRatesURL; nil
// client uses a 10-second-timeout default.
func NewHTTPRates(url string, client *http.Client) *HTTPRates {
	if url == "" {
		url = DefaultRatesURL
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPRates{url: url, client: client, ttl: time.Hour}
}

// FromEUR returns the cached table when fresh, otherwise refetches.
func (r *HTTPRates) FromEUR(ctx context.Context) (map[string]float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cached != nil && time.Since(r.fetchedAt) < r.ttl {
		return r.cached, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return nil, fmt.Errorf("building rates request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching exchange rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rates endpoint returned %s", resp.Status)
	}

	var doc struct {
		EUR map[string]float64 `json:"eur"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding rates document: %w", err)
	}
	if len(doc.EUR) == 0 {
		return nil, errors.New("rates document carries no eur table")
	}

	r.cached = doc.EUR
	r.fetchedAt = time.Now()
	return r.cached, nil
}

// ConvertToKZT converts an amount in the given currency to tenge using an
// EUR-based rates table: KZT passes through, EUR converts directly, anything
// else cross-rates through EUR.
func ConvertToKZT(amount float64, currency string, fromEUR map[string]float64) (float64, error) {
	eurToKZT, ok := fromEUR["kzt"]
	if !ok {
		return 0, fmt.Errorf("%w: rates table has no kzt entry", ErrUnknownCurrency)
	}

	switch strings.ToUpper(currency) {
	case "KZT":
		return amount, nil
	case "EUR":
		return amount * eurToKZT, nil
	}

	eurToCurrency, ok := fromEUR[strings.ToLower(currency)]
	if !ok || eurToCurrency == 0 {
		return 0, fmt.Errorf("%w: %s", ErrUnknownCurrency, currency)
	}
	amountInEUR := amount / eurToCurrency
	return amountInEUR * eurToKZT, nil
}
