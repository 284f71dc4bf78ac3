package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradetracker/internal/adapters/sqlite"
	"tradetracker/internal/app"
	"tradetracker/internal/auth"
	"tradetracker/internal/ports"
)

type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

// stubQuotes serves fixed prices without hitting a real provider.
type stubQuotes struct {
	prices map[string]float64
}

func (s *stubQuotes) GetCurrentPrice(ctx context.Context, ticker string) (float64, error) {
	price, ok := s.prices[ticker]
	if !ok {
		return 0, fmt.Errorf("%w: no quote for %s", ports.ErrPriceFetch, ticker)
	}
	return price, nil
}

// setupTestServer wires a full server against a temporary SQLite database.
func setupTestServer(t *testing.T, quotes *stubQuotes) (http.Handler, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "trade-tracker-server-test-*")
	require.NoError(t, err)

	logger := &mockLogger{}
	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath: filepath.Join(tmpDir, "test.db"),
		Logger: logger,
	})
	require.NoError(t, err)

	authMgr, err := auth.New(auth.Config{Secret: "test-secret"})
	require.NoError(t, err)

	service, err := app.NewTradeService(logger, repo, repo, repo, quotes, authMgr)
	require.NoError(t, err)

	srv, err := New(Config{Port: 0, Logger: logger, Service: service, Auth: authMgr})
	require.NoError(t, err)

	cleanup := func() {
		repo.Close()
		os.RemoveAll(tmpDir)
	}
	return srv.Handler(), cleanup
}

func doRequest(t *testing.T, handler http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reqBody *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewBuffer(raw)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func registerUser(t *testing.T, handler http.Handler, email string) string {
	t.Helper()
	rec := doRequest(t, handler, http.MethodPost, "/auth/register", "", map[string]string{
		"email":    email,
		"name":     "Test User",
		"password": "hunter22",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var token struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	decodeBody(t, rec, &token)
	require.NotEmpty(t, token.AccessToken)
	require.Equal(t, "bearer", token.TokenType)
	return token.AccessToken
}

func TestHealthAndRoot(t *testing.T) {
	handler, cleanup := setupTestServer(t, &stubQuotes{})
	defer cleanup()

	rec := doRequest(t, handler, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, handler, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Trade Tracker")
}

func TestAuthFlow(t *testing.T) {
	handler, cleanup := setupTestServer(t, &stubQuotes{})
	defer cleanup()

	token := registerUser(t, handler, "alice@example.com")
	assert.NotEmpty(t, token)

	// Duplicate registration is rejected.
	rec := doRequest(t, handler, http.MethodPost, "/auth/register", "", map[string]string{
		"email":    "alice@example.com",
		"name":     "Alice Again",
		"password": "hunter22",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "already registered")

	rec = doRequest(t, handler, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "hunter22",
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, handler, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid authentication credentials")
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	handler, cleanup := setupTestServer(t, &stubQuotes{})
	defer cleanup()

	rec := doRequest(t, handler, http.MethodGet, "/trades", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(t, handler, http.MethodGet, "/strategies", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStrategyEndpoints(t *testing.T) {
	handler, cleanup := setupTestServer(t, &stubQuotes{})
	defer cleanup()
	token := registerUser(t, handler, "alice@example.com")

	rec := doRequest(t, handler, http.MethodPost, "/strategies", token, map[string]string{"name": "Momentum"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var strategy struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}
	decodeBody(t, rec, &strategy)
	assert.Equal(t, "Momentum", strategy.Name)

	rec = doRequest(t, handler, http.MethodGet, "/strategies", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var strategies []struct {
		Name string `json:"name"`
	}
	decodeBody(t, rec, &strategies)
	require.Len(t, strategies, 1)

	rec = doRequest(t, handler, http.MethodDelete, fmt.Sprintf("/strategies/%d", strategy.ID), token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "deleted successfully")

	// Deleting again is a 404.
	rec = doRequest(t, handler, http.MethodDelete, fmt.Sprintf("/strategies/%d", strategy.ID), token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func createTrade(t *testing.T, handler http.Handler, token, ticker string, units, price float64) tradeResponse {
	t.Helper()
	rec := doRequest(t, handler, http.MethodPost, "/trades", token, map[string]interface{}{
		"date_of_trade": "2024-03-01",
		"ticker":        ticker,
		"strategy_id":   1,
		"time_horizon":  "Short",
		"price":         price,
		"units":         units,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var trade tradeResponse
	decodeBody(t, rec, &trade)
	return trade
}

func TestTradeLifecycle(t *testing.T) {
	quotes := &stubQuotes{prices: map[string]float64{"AAPL": 15.0}}
	handler, cleanup := setupTestServer(t, quotes)
	defer cleanup()
	token := registerUser(t, handler, "alice@example.com")

	trade := createTrade(t, handler, token, "aapl", 100, 10)
	assert.Equal(t, "AAPL", trade.Ticker)
	assert.Equal(t, 15.0, trade.CurrentPrice)
	assert.Equal(t, 100.0, trade.OpenQty)
	assert.Equal(t, []int64{}, trade.MatchedTradeIDs)

	// Bad date format.
	rec := doRequest(t, handler, http.MethodPost, "/trades", token, map[string]interface{}{
		"date_of_trade": "01/03/2024",
		"ticker":        "AAPL",
		"strategy_id":   1,
		"time_horizon":  "Short",
		"price":         10,
		"units":         100,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "YYYY-MM-DD")

	// Unknown ticker fails trade creation.
	rec = doRequest(t, handler, http.MethodPost, "/trades", token, map[string]interface{}{
		"date_of_trade": "2024-03-01",
		"ticker":        "NOPE",
		"strategy_id":   1,
		"time_horizon":  "Short",
		"price":         10,
		"units":         100,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, handler, http.MethodGet, fmt.Sprintf("/trades/%d", trade.ID), token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, handler, http.MethodGet, "/trades/999", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, handler, http.MethodPut, fmt.Sprintf("/trades/%d", trade.ID), token, map[string]interface{}{
		"ticker": "msft",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated tradeResponse
	decodeBody(t, rec, &updated)
	assert.Equal(t, "MSFT", updated.Ticker)
	assert.Equal(t, 10.0, updated.Price)

	rec = doRequest(t, handler, http.MethodDelete, fmt.Sprintf("/trades/%d", trade.ID), token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "deleted successfully")

	rec = doRequest(t, handler, http.MethodGet, "/trades", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var trades []tradeResponse
	decodeBody(t, rec, &trades)
	assert.Empty(t, trades)
}

func TestTradesAreScopedToUser(t *testing.T) {
	quotes := &stubQuotes{prices: map[string]float64{"AAPL": 15.0}}
	handler, cleanup := setupTestServer(t, quotes)
	defer cleanup()

	aliceToken := registerUser(t, handler, "alice@example.com")
	bobToken := registerUser(t, handler, "bob@example.com")

	trade := createTrade(t, handler, aliceToken, "AAPL", 100, 10)

	rec := doRequest(t, handler, http.MethodGet, fmt.Sprintf("/trades/%d", trade.ID), bobToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, handler, http.MethodGet, "/trades", bobToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var trades []tradeResponse
	decodeBody(t, rec, &trades)
	assert.Empty(t, trades)
}

func TestCompareEndpoint(t *testing.T) {
	quotes := &stubQuotes{prices: map[string]float64{"AAPL": 15.0}}
	handler, cleanup := setupTestServer(t, quotes)
	defer cleanup()
	token := registerUser(t, handler, "alice@example.com")

	long := createTrade(t, handler, token, "AAPL", 100, 10)
	short := createTrade(t, handler, token, "AAPL", -100, 12)

	rec := doRequest(t, handler, http.MethodPost, "/trades/compare", token, map[string]interface{}{
		"trade_ids": []int64{long.ID, short.ID},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result struct {
		Message       string          `json:"message"`
		UpdatedTrades []tradeResponse `json:"updated_trades"`
	}
	decodeBody(t, rec, &result)
	assert.Equal(t, "Trades matched and updated.", result.Message)
	require.Len(t, result.UpdatedTrades, 2)

	first, second := result.UpdatedTrades[0], result.UpdatedTrades[1]
	assert.Equal(t, long.ID, first.ID)
	assert.Equal(t, 0.0, first.OpenQty)
	assert.Equal(t, 0.0, first.PNL)
	assert.Equal(t, 0.0, second.OpenQty)
	assert.Equal(t, (15.0-12.0)*-100, second.RealisedPNL)
	assert.Equal(t, []int64{short.ID}, first.MatchedTradeIDs)
	assert.Equal(t, []int64{long.ID}, second.MatchedTradeIDs)

	// A closed pair cannot be matched again.
	rec = doRequest(t, handler, http.MethodPost, "/trades/compare", token, map[string]interface{}{
		"trade_ids": []int64{long.ID, short.ID},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Exactly two IDs are required.
	rec = doRequest(t, handler, http.MethodPost, "/trades/compare", token, map[string]interface{}{
		"trade_ids": []int64{long.ID},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "exactly two trades")

	rec = doRequest(t, handler, http.MethodPost, "/trades/compare", token, map[string]interface{}{
		"trade_ids": []int64{long.ID, 999},
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdatePricesEndpoint(t *testing.T) {
	quotes := &stubQuotes{prices: map[string]float64{"AAPL": 15.0}}
	handler, cleanup := setupTestServer(t, quotes)
	defer cleanup()
	token := registerUser(t, handler, "alice@example.com")

	// No trades yet.
	rec := doRequest(t, handler, http.MethodPut, "/trades/update_prices", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	createTrade(t, handler, token, "AAPL", 100, 10)
	quotes.prices["AAPL"] = 20.0

	rec = doRequest(t, handler, http.MethodPut, "/trades/update_prices", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result struct {
		Message       string `json:"message"`
		UpdatedTrades int    `json:"updated_trades"`
	}
	decodeBody(t, rec, &result)
	assert.Equal(t, 1, result.UpdatedTrades)
	assert.Contains(t, result.Message, "1 trades updated")

	rec = doRequest(t, handler, http.MethodGet, "/trades", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var trades []tradeResponse
	decodeBody(t, rec, &trades)
	require.Len(t, trades, 1)
	assert.Equal(t, 20.0, trades[0].CurrentPrice)
	assert.Equal(t, (20.0-10.0)*100, trades[0].UnrealisedPNL)
}

func TestSummaryEndpoint(t *testing.T) {
	quotes := &stubQuotes{prices: map[string]float64{"AAPL": 15.0, "MSFT": 210.0}}
	handler, cleanup := setupTestServer(t, quotes)
	defer cleanup()
	token := registerUser(t, handler, "alice@example.com")

	createTrade(t, handler, token, "AAPL", 100, 10)
	createTrade(t, handler, token, "MSFT", 20, 200)

	rec := doRequest(t, handler, http.MethodGet, "/trades/summary", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var summaries []struct {
		StrategyID  int64 `json:"strategy_id"`
		TotalTrades int   `json:"total_trades"`
		OpenTrades  int   `json:"open_trades"`
	}
	decodeBody(t, rec, &summaries)
	require.Len(t, summaries, 1)
	assert.Equal(t, 2, summaries[0].TotalTrades)
	assert.Equal(t, 2, summaries[0].OpenTrades)
}

func TestExportEndpoint(t *testing.T) {
	quotes := &stubQuotes{prices: map[string]float64{"AAPL": 15.0}}
	handler, cleanup := setupTestServer(t, quotes)
	defer cleanup()
	token := registerUser(t, handler, "alice@example.com")

	createTrade(t, handler, token, "AAPL", 100, 10)

	rec := doRequest(t, handler, http.MethodGet, "/trades/export", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "trades.csv")

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "ticker")
	assert.Contains(t, lines[1], "AAPL")
}
