package domain

import "time"

// Trade represents one executed stock position owned by a user.
type Trade struct {
	ID              int64       // Unique identifier for the trade (assigned by the DB)
	UserID          int64       // Owner of the trade
	StrategyID      int64       // Strategy this trade belongs to
	Ticker          string      // Instrument symbol (e.g., "AAPL")
	TimeHorizon     TimeHorizon // Holding-period classification (Short, Mid, Long)
	DateOfTrade     time.Time   // Date the trade was executed
	Price           float64     // Execution price, immutable after creation
	Units           float64     // Original fill size, immutable after creation
	Quantity        float64     // Mirrors Units (kept as its own column in the journal)
	CurrentPrice    float64     // Latest known market price for Ticker
	OpenQuantity    float64     // Remaining unmatched size; starts equal to Units
	MatchedTradeIDs []int64     // Trades this one has been netted against, append-only
	PNL             float64     // PnL reported for the last match this trade took part in
	RealisedPNL     float64     // PnL locked in on quantity that has been matched off
	UnrealisedPNL   float64     // Mark-to-market PnL on the still-open quantity
	CreatedAt       time.Time   // Timestamp when the record was created
}

// IsClosed reports whether the trade has no open quantity left.
func (t *Trade) IsClosed() bool {
	return t.OpenQuantity == 0
}

// HasMatched reports whether the trade has already been netted against id.
func (t *Trade) HasMatched(id int64) bool {
	for _, m := range t.MatchedTradeIDs {
		if m == id {
			return true
		}
	}
	return false
}
