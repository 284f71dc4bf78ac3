package utils

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"tradetracker/internal/domain"
)

// WriteTradesCSV streams a trade journal as CSV.
func WriteTradesCSV(w io.Writer, trades []*domain.Trade) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	// Write header
	writer.Write([]string{"id", "date_of_trade", "ticker", "strategy_id", "time_horizon",
		"price", "units", "current_price", "open_qty", "pnl", "realised_pnl", "unrealised_pnl"})

	for _, t := range trades {
		writer.Write([]string{
			strconv.FormatInt(t.ID, 10),
			t.DateOfTrade.Format(time.DateOnly),
			t.Ticker,
			strconv.FormatInt(t.StrategyID, 10),
			string(t.TimeHorizon),
			strconv.FormatFloat(t.Price, 'f', -1, 64),
			strconv.FormatFloat(t.Units, 'f', -1, 64),
			strconv.FormatFloat(t.CurrentPrice, 'f', -1, 64),
			strconv.FormatFloat(t.OpenQuantity, 'f', -1, 64),
			strconv.FormatFloat(t.PNL, 'f', -1, 64),
			strconv.FormatFloat(t.RealisedPNL, 'f', -1, 64),
			strconv.FormatFloat(t.UnrealisedPNL, 'f', -1, 64),
		})
	}
	return writer.Error()
}
