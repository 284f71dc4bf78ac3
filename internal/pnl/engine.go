// Package pnl implements the trade netting and profit-and-loss rules.
//
// All operations are pure: they take trade snapshots by value and return
// updated snapshots, leaving persistence to the caller. The netting write
// must be committed atomically for both trades (see ports.TradeRepository).
package pnl

import (
	"fmt"
	"math"

	"tradetracker/internal/domain"
	"tradetracker/internal/ports"
)

// Revalue sets a new current price on the trade and recomputes its
// unrealised PnL as (currentPrice - tradePrice) * openQuantity.
// It touches nothing else, so repeated calls with the same price are
// idempotent. Returns ErrInvalidPrice for NaN or infinite prices.
func Revalue(t domain.Trade, currentPrice float64) (domain.Trade, error) {
	if math.IsNaN(currentPrice) || math.IsInf(currentPrice, 0) {
		return domain.Trade{}, fmt.Errorf("%w: %v", ports.ErrInvalidPrice, currentPrice)
	}
	t.CurrentPrice = currentPrice
	t.UnrealisedPNL = (currentPrice - t.Price) * t.OpenQuantity
	return t, nil
}

// MatchResult holds the two updated trade snapshots after netting,
// ordered by ascending trade ID.
type MatchResult struct {
	First  domain.Trade
	Second domain.Trade

	// MatchedQuantity is the magnitude netted off this round.
	MatchedQuantity float64
}

// Match nets the open quantities of two trades against each other and
// distributes realised/unrealised PnL between them.
//
// The trades are normalized to ascending ID order first, so the result is
// identical regardless of argument order. The lower-ID trade is treated as
// the opening leg: in a perfect offset it realises zero, and the later leg
// realises (currentPrice - tradePrice) * openQuantity computed from its own
// fields. In a partial match the smaller leg closes flat and the survivor's
// unrealised PnL is restated against the blended cost basis of both legs.
func Match(a, b domain.Trade) (MatchResult, error) {
	if b.ID < a.ID {
		a, b = b, a
	}

	if err := checkMatchable(a, b); err != nil {
		return MatchResult{}, err
	}

	matchedQty := math.Min(math.Abs(a.OpenQuantity), math.Abs(b.OpenQuantity))

	if a.OpenQuantity+b.OpenQuantity == 0 {
		// Perfect offset: both legs close flat. The earlier trade is the
		// baseline and realises nothing; the later trade realises against
		// its own current price.
		a.MatchedTradeIDs = appendMatched(a.MatchedTradeIDs, b.ID)
		b.MatchedTradeIDs = appendMatched(b.MatchedTradeIDs, a.ID)

		a.PNL = 0
		b.PNL = (b.CurrentPrice - b.Price) * b.OpenQuantity
		b.RealisedPNL = b.PNL

		a.OpenQuantity = 0
		b.OpenQuantity = 0

		return MatchResult{First: a, Second: b, MatchedQuantity: matchedQty}, nil
	}

	// Partial match: the leg with the smaller open magnitude closes in full
	// and the survivor absorbs the net quantity.
	closed, survivor := &b, &a
	if math.Abs(a.OpenQuantity) < math.Abs(b.OpenQuantity) {
		closed, survivor = &a, &b
	}

	closed.MatchedTradeIDs = appendMatched(closed.MatchedTradeIDs, survivor.ID)
	closed.PNL = 0

	// Blended-cost unrealised PnL: mark the combined remaining position to
	// the survivor's current price and subtract both legs' pre-match cost
	// basis. Quantities are signed throughout.
	totalOpen := closed.OpenQuantity + survivor.OpenQuantity
	survivor.UnrealisedPNL = totalOpen*survivor.CurrentPrice -
		(closed.OpenQuantity*closed.Price + survivor.OpenQuantity*survivor.Price)

	survivor.OpenQuantity = totalOpen
	closed.OpenQuantity = 0

	return MatchResult{First: a, Second: b, MatchedQuantity: matchedQty}, nil
}

// checkMatchable validates the netting preconditions. a and b must already
// be in ascending ID order.
func checkMatchable(a, b domain.Trade) error {
	if a.ID == b.ID {
		return fmt.Errorf("%w: a trade cannot be matched against itself", ports.ErrMatchRejected)
	}
	if a.Ticker != b.Ticker {
		return fmt.Errorf("%w: trades must have the same ticker", ports.ErrMatchRejected)
	}
	if a.TimeHorizon != b.TimeHorizon {
		return fmt.Errorf("%w: trades must have the same time horizon", ports.ErrMatchRejected)
	}
	if a.StrategyID != b.StrategyID {
		return fmt.Errorf("%w: trades must belong to the same strategy", ports.ErrMatchRejected)
	}
	if a.OpenQuantity == 0 && b.OpenQuantity == 0 {
		return fmt.Errorf("%w: both trades are already fully closed", ports.ErrMatchRejected)
	}
	return nil
}

// appendMatched records a counterparty ID, keeping the list an ordered set.
func appendMatched(ids []int64, id int64) []int64 {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
