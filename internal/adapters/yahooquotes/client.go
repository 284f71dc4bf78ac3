package yahooquotes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"tradetracker/internal/ports"
)

const defaultBaseURL = "https://query1.finance.yahoo.com/v7/finance/quote"

// Client implements the ports.QuoteProvider interface against the Yahoo
// Finance quote API.
type Client struct {
	httpClient *http.Client
	logger     ports.Logger
	baseURL    string
	maxRetries int
}

// Config holds configuration specific to the Yahoo Finance client adapter.
type Config struct {
	Logger     ports.Logger
	Timeout    time.Duration // HTTP request timeout (default 30s)
	MaxRetries int           // Attempts per lookup (default 3)
	BaseURL    string        // Override for tests
}

// New creates a new Yahoo Finance client adapter.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Yahoo Finance client")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		logger:     cfg.Logger,
		baseURL:    baseURL,
		maxRetries: maxRetries,
	}, nil
}

// yahooQuoteResponse represents the response from the Yahoo Finance quote API.
type yahooQuoteResponse struct {
	QuoteResponse struct {
		Result []struct {
			Symbol             string   `json:"symbol"`
			CurrentPrice       *float64 `json:"currentPrice"`
			RegularMarketPrice *float64 `json:"regularMarketPrice"`
		} `json:"result"`
		Error interface{} `json:"error"`
	} `json:"quoteResponse"`
}

// GetCurrentPrice retrieves the latest price for a ticker, retrying with
// exponential backoff. Failures are wrapped with ports.ErrPriceFetch.
func (c *Client) GetCurrentPrice(ctx context.Context, ticker string) (float64, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			wait := time.Duration(1<<uint(attempt-1)) * time.Second
			c.logger.Warn(ctx, "Retrying price lookup", map[string]interface{}{
				"ticker":  ticker,
				"attempt": attempt + 1,
				"wait":    wait.String(),
			})
			select {
			case <-ctx.Done():
				return 0, fmt.Errorf("%w: %v", ports.ErrPriceFetch, ctx.Err())
			case <-time.After(wait):
			}
		}

		price, err := c.fetchQuote(ctx, ticker)
		if err != nil {
			lastErr = err
			continue
		}
		if price <= 0 {
			lastErr = fmt.Errorf("invalid price %v for ticker %s", price, ticker)
			continue
		}
		return price, nil
	}

	return 0, fmt.Errorf("%w: ticker %s after %d attempts: %v", ports.ErrPriceFetch, ticker, c.maxRetries, lastErr)
}

func (c *Client) fetchQuote(ctx context.Context, ticker string) (float64, error) {
	params := url.Values{}
	params.Add("symbols", ticker)
	params.Add("fields", "symbol,regularMarketPrice,currentPrice")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	// Set headers to mimic a browser; Yahoo rejects the default Go agent.
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch quote: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("Yahoo Finance API returned status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to read response body: %w", err)
	}

	var result yahooQuoteResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return 0, fmt.Errorf("failed to parse response: %w", err)
	}

	if result.QuoteResponse.Error != nil {
		return 0, fmt.Errorf("Yahoo Finance API error: %v", result.QuoteResponse.Error)
	}
	if len(result.QuoteResponse.Result) == 0 {
		return 0, fmt.Errorf("no quote data returned for ticker %s", ticker)
	}

	// Prefer currentPrice, fall back to regularMarketPrice.
	quote := result.QuoteResponse.Result[0]
	if quote.CurrentPrice != nil && *quote.CurrentPrice > 0 {
		return *quote.CurrentPrice, nil
	}
	if quote.RegularMarketPrice != nil && *quote.RegularMarketPrice > 0 {
		return *quote.RegularMarketPrice, nil
	}
	return 0, fmt.Errorf("no usable price in quote data for ticker %s", ticker)
}
