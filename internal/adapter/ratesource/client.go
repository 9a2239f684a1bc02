// Package ratesource fetches USD-based exchange rate tables from an
// open.er-api.com style HTTP endpoint.
package ratesource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultURL is the public endpoint returning the latest USD table
const DefaultURL = "https://open.er-api.com/v6/latest/USD"

// Client is a client for the exchange rate API.
type Client struct {
	URL        string
	HTTPClient *http.Client
}

// NewClient creates a new rate API client.
func NewClient(url string, timeout time.Duration) *Client {
	if url == "" {
		url = DefaultURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		URL: url,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// LatestResponse is the payload returned by the latest-rates endpoint.
type LatestResponse struct {
	Result    string                     `json:"result"`
	BaseCode  string                     `json:"base_code"`
	ErrorType string                     `json:"error-type"`
	Rates     map[string]decimal.Decimal `json:"rates"`
}

// APIError is returned when the upstream answers but reports a failure.
type APIError struct {
	StatusCode int
	Type       string
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("rate api error: status %d: %s", e.StatusCode, e.Type)
	}
	return fmt.Sprintf("rate api error: status %d", e.StatusCode)
}

// FetchUSDRates retrieves the latest table and returns the rates keyed by
// upper-case currency code.
func (c *Client) FetchUSDRates(ctx context.Context) (map[string]decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create rates request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute rates request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read rates response: %w", err)
	}

	var payload LatestResponse
	decodeErr := json.Unmarshal(bodyBytes, &payload)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("level=warn component=rate_client op=latest status=%d error_type=%q", resp.StatusCode, payload.ErrorType)
		return nil, &APIError{StatusCode: resp.StatusCode, Type: payload.ErrorType}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("failed to decode rates response: %w", decodeErr)
	}
	if payload.Result != "" && payload.Result != "success" {
		return nil, &APIError{StatusCode: resp.StatusCode, Type: payload.ErrorType}
	}
	if payload.BaseCode != "" && !strings.EqualFold(payload.BaseCode, "USD") {
		return nil, fmt.Errorf("rates response has base %s, want USD", payload.BaseCode)
	}

	rates := make(map[string]decimal.Decimal, len(payload.Rates))
	for code, rate := range payload.Rates {
		rates[strings.ToUpper(code)] = rate
	}
	return rates, nil
}
