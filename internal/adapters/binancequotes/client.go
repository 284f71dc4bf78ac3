package binancequotes

import (
	"context"
	"fmt"
	"strconv"

	"tradetracker/internal/ports"

	"github.com/adshao/go-binance/v2"
)

// Client implements the ports.QuoteProvider interface using the go-binance
// library. Useful when the journal tracks crypto pairs (e.g., "ETHUSDT")
// instead of stock tickers.
type Client struct {
	spotClient *binance.Client
	logger     ports.Logger
}

// Config holds configuration specific to the Binance client adapter.
type Config struct {
	APIKey    string
	SecretKey string
	Logger    ports.Logger
}

// New creates a new Binance quote adapter. API keys may be empty since the
// ticker price endpoint is public.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Binance client")
	}
	return &Client{
		spotClient: binance.NewClient(cfg.APIKey, cfg.SecretKey),
		logger:     cfg.Logger,
	}, nil
}

// GetCurrentPrice retrieves the latest spot price for a symbol.
// Failures are wrapped with ports.ErrPriceFetch.
func (c *Client) GetCurrentPrice(ctx context.Context, ticker string) (float64, error) {
	prices, err := c.spotClient.NewListPricesService().Symbol(ticker).Do(ctx)
	if err != nil {
		c.logger.Error(ctx, err, "Binance price lookup failed", map[string]interface{}{"ticker": ticker})
		return 0, fmt.Errorf("%w: ticker %s: %v", ports.ErrPriceFetch, ticker, err)
	}
	if len(prices) == 0 {
		return 0, fmt.Errorf("%w: no ticker data returned for symbol %s", ports.ErrPriceFetch, ticker)
	}

	price, err := strconv.ParseFloat(prices[0].Price, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: could not parse price '%s': %v", ports.ErrPriceFetch, prices[0].Price, err)
	}
	return price, nil
}
