package server

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"tradetracker/internal/app"
	"tradetracker/internal/domain"
	"tradetracker/internal/ports"
	"tradetracker/internal/utils"
)

type tradeResponse struct {
	ID              int64   `json:"id"`
	DateOfTrade     string  `json:"date_of_trade"`
	Ticker          string  `json:"ticker"`
	StrategyID      int64   `json:"strategy_id"`
	TimeHorizon     string  `json:"time_horizon"`
	Price           float64 `json:"price"`
	Units           float64 `json:"units"`
	Qty             float64 `json:"qty"`
	CurrentPrice    float64 `json:"current_price"`
	OpenQty         float64 `json:"open_qty"`
	MatchedTradeIDs []int64 `json:"matched_trade_ids"`
	PNL             float64 `json:"pnl"`
	RealisedPNL     float64 `json:"realised_pnl"`
	UnrealisedPNL   float64 `json:"unrealised_pnl"`
}

func toTradeResponse(t *domain.Trade) tradeResponse {
	matched := t.MatchedTradeIDs
	if matched == nil {
		matched = []int64{}
	}
	return tradeResponse{
		ID:              t.ID,
		DateOfTrade:     t.DateOfTrade.Format(time.DateOnly),
		Ticker:          t.Ticker,
		StrategyID:      t.StrategyID,
		TimeHorizon:     string(t.TimeHorizon),
		Price:           t.Price,
		Units:           t.Units,
		Qty:             t.Quantity,
		CurrentPrice:    t.CurrentPrice,
		OpenQty:         t.OpenQuantity,
		MatchedTradeIDs: matched,
		PNL:             t.PNL,
		RealisedPNL:     t.RealisedPNL,
		UnrealisedPNL:   t.UnrealisedPNL,
	}
}

type createTradeRequest struct {
	DateOfTrade string  `json:"date_of_trade"`
	Ticker      string  `json:"ticker"`
	StrategyID  int64   `json:"strategy_id"`
	TimeHorizon string  `json:"time_horizon"`
	Price       float64 `json:"price"`
	Units       float64 `json:"units"`
}

func (s *Server) handleCreateTrade(w http.ResponseWriter, r *http.Request) {
	var req createTradeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	dateOfTrade, err := time.Parse(time.DateOnly, req.DateOfTrade)
	if err != nil {
		writeError(w, fmt.Errorf("%w: date_of_trade must be YYYY-MM-DD", ports.ErrInvalidRequest))
		return
	}

	trade, err := s.service.CreateTrade(r.Context(), userIDFrom(r.Context()), app.CreateTradeParams{
		StrategyID:  req.StrategyID,
		Ticker:      req.Ticker,
		TimeHorizon: domain.TimeHorizon(req.TimeHorizon),
		DateOfTrade: dateOfTrade,
		Price:       req.Price,
		Units:       req.Units,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTradeResponse(trade))
}

func (s *Server) handleListTrades(w http.ResponseWriter, r *http.Request) {
	trades, err := s.service.ListTrades(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]tradeResponse, 0, len(trades))
	for _, trade := range trades {
		resp = append(resp, toTradeResponse(trade))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetTrade(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "tradeID")
	if err != nil {
		writeError(w, err)
		return
	}

	trade, err := s.service.GetTrade(r.Context(), userIDFrom(r.Context()), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTradeResponse(trade))
}

type updateTradeRequest struct {
	DateOfTrade     *string  `json:"date_of_trade"`
	Ticker          *string  `json:"ticker"`
	StrategyID      *int64   `json:"strategy_id"`
	TimeHorizon     *string  `json:"time_horizon"`
	Price           *float64 `json:"price"`
	Units           *float64 `json:"units"`
	Qty             *float64 `json:"qty"`
	CurrentPrice    *float64 `json:"current_price"`
	OpenQty         *float64 `json:"open_qty"`
	MatchedTradeIDs []int64  `json:"matched_trade_ids"`
	PNL             *float64 `json:"pnl"`
	RealisedPNL     *float64 `json:"realised_pnl"`
	UnrealisedPNL   *float64 `json:"unrealised_pnl"`
}

func (s *Server) handleUpdateTrade(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "tradeID")
	if err != nil {
		writeError(w, err)
		return
	}

	var req updateTradeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	params := app.UpdateTradeParams{
		StrategyID:      req.StrategyID,
		Ticker:          req.Ticker,
		Price:           req.Price,
		Units:           req.Units,
		Quantity:        req.Qty,
		CurrentPrice:    req.CurrentPrice,
		OpenQuantity:    req.OpenQty,
		MatchedTradeIDs: req.MatchedTradeIDs,
		PNL:             req.PNL,
		RealisedPNL:     req.RealisedPNL,
		UnrealisedPNL:   req.UnrealisedPNL,
	}
	if req.TimeHorizon != nil {
		horizon := domain.TimeHorizon(*req.TimeHorizon)
		params.TimeHorizon = &horizon
	}
	if req.DateOfTrade != nil {
		dateOfTrade, err := time.Parse(time.DateOnly, *req.DateOfTrade)
		if err != nil {
			writeError(w, fmt.Errorf("%w: date_of_trade must be YYYY-MM-DD", ports.ErrInvalidRequest))
			return
		}
		params.DateOfTrade = &dateOfTrade
	}

	trade, err := s.service.UpdateTrade(r.Context(), userIDFrom(r.Context()), id, params)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTradeResponse(trade))
}

func (s *Server) handleDeleteTrade(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "tradeID")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := s.service.DeleteTrade(r.Context(), userIDFrom(r.Context()), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"detail": "Trade with ID " + strconv.FormatInt(id, 10) + " deleted successfully",
	})
}

type compareTradesRequest struct {
	TradeIDs []int64 `json:"trade_ids"`
}

func (s *Server) handleCompareTrades(w http.ResponseWriter, r *http.Request) {
	var req compareTradesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if len(req.TradeIDs) != 2 {
		writeError(w, fmt.Errorf("%w: exactly two trades must be selected for comparison", ports.ErrInvalidRequest))
		return
	}

	first, second, err := s.service.CompareTrades(r.Context(), req.TradeIDs[0], req.TradeIDs[1])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":        "Trades matched and updated.",
		"updated_trades": []tradeResponse{toTradeResponse(first), toTradeResponse(second)},
	})
}

func (s *Server) handleUpdatePrices(w http.ResponseWriter, r *http.Request) {
	updated, err := s.service.RefreshPrices(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":        fmt.Sprintf("%d trades updated successfully.", updated),
		"updated_trades": updated,
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.service.SummarizeByStrategy(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	trades, err := s.service.ListTrades(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="trades.csv"`)
	if err := utils.WriteTradesCSV(w, trades); err != nil {
		s.logger.Error(r.Context(), err, "Failed to stream trade CSV export")
	}
}
