package app

import (
	"context"
	"sort"
)

// StrategySummary holds aggregate PnL metrics for one strategy.
type StrategySummary struct {
	StrategyID    int64   `json:"strategy_id"`
	StrategyName  string  `json:"strategy_name"`
	TotalTrades   int     `json:"total_trades"`
	OpenTrades    int     `json:"open_trades"`
	ClosedTrades  int     `json:"closed_trades"`
	RealisedPNL   float64 `json:"realised_pnl"`
	UnrealisedPNL float64 `json:"unrealised_pnl"`
	NetPNL        float64 `json:"net_pnl"`
}

// SummarizeByStrategy aggregates the user's trades per strategy: counts of
// open and closed positions plus realised, unrealised and net PnL.
func (s *TradeService) SummarizeByStrategy(ctx context.Context, userID int64) ([]StrategySummary, error) {
	trades, err := s.trades.FindTradesByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	strategies, err := s.strategies.FindStrategiesByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	names := make(map[int64]string, len(strategies))
	for _, strategy := range strategies {
		names[strategy.ID] = strategy.Name
	}

	byStrategy := make(map[int64]*StrategySummary)
	for _, trade := range trades {
		summary, ok := byStrategy[trade.StrategyID]
		if !ok {
			summary = &StrategySummary{
				StrategyID:   trade.StrategyID,
				StrategyName: names[trade.StrategyID],
			}
			byStrategy[trade.StrategyID] = summary
		}

		summary.TotalTrades++
		if trade.IsClosed() {
			summary.ClosedTrades++
		} else {
			summary.OpenTrades++
		}
		summary.RealisedPNL += trade.RealisedPNL
		summary.UnrealisedPNL += trade.UnrealisedPNL
		summary.NetPNL += trade.RealisedPNL + trade.UnrealisedPNL
	}

	summaries := make([]StrategySummary, 0, len(byStrategy))
	for _, summary := range byStrategy {
		summaries = append(summaries, *summary)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].StrategyID < summaries[j].StrategyID
	})
	return summaries, nil
}
