package ports

import "context"

// QuoteProvider defines the interface for looking up current market prices.
// This abstraction decouples the trade tracker from any specific market data
// vendor (Yahoo Finance, Binance, etc.).
type QuoteProvider interface {
	// GetCurrentPrice retrieves the latest price for a ticker.
	// Implementations wrap vendor failures with ErrPriceFetch.
	GetCurrentPrice(ctx context.Context, ticker string) (float64, error)
}
