package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"tradetracker/internal/auth"
	"tradetracker/internal/domain"
	"tradetracker/internal/pnl"
	"tradetracker/internal/ports"
)

// TradeService orchestrates accounts, strategies, trades and the netting
// operations on top of the persistence and quote-provider ports.
type TradeService struct {
	logger     ports.Logger
	trades     ports.TradeRepository
	strategies ports.StrategyRepository
	users      ports.UserRepository
	quotes     ports.QuoteProvider
	authMgr    *auth.Manager

	// matchMu serializes netting requests. A match rewrites two rows and
	// concurrent matches touching an overlapping trade would lose updates.
	matchMu sync.Mutex
}

// NewTradeService creates a new application service instance.
func NewTradeService(
	logger ports.Logger,
	trades ports.TradeRepository,
	strategies ports.StrategyRepository,
	users ports.UserRepository,
	quotes ports.QuoteProvider,
	authMgr *auth.Manager,
) (*TradeService, error) {
	if logger == nil || trades == nil || strategies == nil || users == nil || quotes == nil || authMgr == nil {
		return nil, fmt.Errorf("missing required dependencies for TradeService")
	}
	return &TradeService{
		logger:     logger,
		trades:     trades,
		strategies: strategies,
		users:      users,
		quotes:     quotes,
		authMgr:    authMgr,
	}, nil
}

// --- Accounts ---

// Register creates a new user account and returns a signed access token.
func (s *TradeService) Register(ctx context.Context, email, name, password string) (string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return "", fmt.Errorf("%w: email and password are required", ports.ErrInvalidRequest)
	}

	existing, err := s.users.FindUserByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("failed to check for existing user: %w", err)
	}
	if existing != nil {
		return "", fmt.Errorf("%w: email is already registered", ports.ErrDuplicateEntry)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return "", err
	}

	user := &domain.User{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if _, err := s.users.CreateUser(ctx, user); err != nil {
		return "", err
	}
	s.logger.Info(ctx, "User registered", map[string]interface{}{"user_id": user.ID, "email": email})

	return s.authMgr.IssueToken(user)
}

// Login verifies credentials and returns a signed access token.
func (s *TradeService) Login(ctx context.Context, email, password string) (string, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	user, err := s.users.FindUserByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, password) {
		return "", fmt.Errorf("%w: invalid credentials", ports.ErrUnauthorized)
	}
	s.logger.Info(ctx, "User logged in", map[string]interface{}{"user_id": user.ID})

	return s.authMgr.IssueToken(user)
}

// --- Strategies ---

// CreateStrategy creates a strategy label for the user.
func (s *TradeService) CreateStrategy(ctx context.Context, userID int64, name string) (*domain.Strategy, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: strategy name is required", ports.ErrInvalidRequest)
	}
	strategy := &domain.Strategy{UserID: userID, Name: name}
	if _, err := s.strategies.CreateStrategy(ctx, strategy); err != nil {
		return nil, err
	}
	return strategy, nil
}

// ListStrategies returns all strategies owned by the user.
func (s *TradeService) ListStrategies(ctx context.Context, userID int64) ([]*domain.Strategy, error) {
	return s.strategies.FindStrategiesByUser(ctx, userID)
}

// DeleteStrategy removes one of the user's strategies.
func (s *TradeService) DeleteStrategy(ctx context.Context, userID, id int64) error {
	strategy, err := s.strategies.FindStrategyByID(ctx, id)
	if err != nil {
		return err
	}
	if strategy == nil || strategy.UserID != userID {
		return fmt.Errorf("%w: strategy %d", ports.ErrNotFound, id)
	}
	return s.strategies.DeleteStrategy(ctx, id)
}

// --- Trades ---

// CreateTradeParams holds the caller-supplied fields for a new trade.
type CreateTradeParams struct {
	StrategyID  int64
	Ticker      string
	TimeHorizon domain.TimeHorizon
	DateOfTrade time.Time
	Price       float64
	Units       float64
}

// CreateTrade records a new trade for the user. The current market price is
// fetched up front; a quote failure aborts creation (ErrPriceFetch).
func (s *TradeService) CreateTrade(ctx context.Context, userID int64, p CreateTradeParams) (*domain.Trade, error) {
	p.Ticker = strings.TrimSpace(strings.ToUpper(p.Ticker))
	if p.Ticker == "" {
		return nil, fmt.Errorf("%w: ticker is required", ports.ErrInvalidRequest)
	}
	if !p.TimeHorizon.IsValid() {
		return nil, fmt.Errorf("%w: time horizon must be Short, Mid or Long", ports.ErrInvalidRequest)
	}
	if p.Units == 0 {
		return nil, fmt.Errorf("%w: units must be non-zero", ports.ErrInvalidRequest)
	}

	currentPrice, err := s.quotes.GetCurrentPrice(ctx, p.Ticker)
	if err != nil {
		s.logger.Error(ctx, err, "Price lookup failed during trade creation", map[string]interface{}{"ticker": p.Ticker})
		return nil, err
	}

	trade := &domain.Trade{
		UserID:       userID,
		StrategyID:   p.StrategyID,
		Ticker:       p.Ticker,
		TimeHorizon:  p.TimeHorizon,
		DateOfTrade:  p.DateOfTrade,
		Price:        p.Price,
		Units:        p.Units,
		Quantity:     p.Units,
		CurrentPrice: currentPrice,
		OpenQuantity: p.Units,
		CreatedAt:    time.Now().UTC(),
	}
	if _, err := s.trades.CreateTrade(ctx, trade); err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "Trade created", map[string]interface{}{
		"trade_id": trade.ID,
		"ticker":   trade.Ticker,
		"units":    trade.Units,
	})
	return trade, nil
}

// GetTrade returns one of the user's trades by ID.
func (s *TradeService) GetTrade(ctx context.Context, userID, id int64) (*domain.Trade, error) {
	trade, err := s.trades.FindTradeByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if trade == nil || trade.UserID != userID {
		return nil, fmt.Errorf("%w: trade %d", ports.ErrNotFound, id)
	}
	return trade, nil
}

// ListTrades returns all trades owned by the user, newest first.
func (s *TradeService) ListTrades(ctx context.Context, userID int64) ([]*domain.Trade, error) {
	return s.trades.FindTradesByUser(ctx, userID)
}

// UpdateTradeParams holds optional field updates; nil means unchanged.
type UpdateTradeParams struct {
	StrategyID      *int64
	Ticker          *string
	TimeHorizon     *domain.TimeHorizon
	DateOfTrade     *time.Time
	Price           *float64
	Units           *float64
	Quantity        *float64
	CurrentPrice    *float64
	OpenQuantity    *float64
	MatchedTradeIDs []int64
	PNL             *float64
	RealisedPNL     *float64
	UnrealisedPNL   *float64
}

// UpdateTrade applies the provided fields to one of the user's trades.
func (s *TradeService) UpdateTrade(ctx context.Context, userID, id int64, p UpdateTradeParams) (*domain.Trade, error) {
	trade, err := s.GetTrade(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if p.StrategyID != nil {
		trade.StrategyID = *p.StrategyID
	}
	if p.Ticker != nil {
		trade.Ticker = strings.TrimSpace(strings.ToUpper(*p.Ticker))
	}
	if p.TimeHorizon != nil {
		if !p.TimeHorizon.IsValid() {
			return nil, fmt.Errorf("%w: time horizon must be Short, Mid or Long", ports.ErrInvalidRequest)
		}
		trade.TimeHorizon = *p.TimeHorizon
	}
	if p.DateOfTrade != nil {
		trade.DateOfTrade = *p.DateOfTrade
	}
	if p.Price != nil {
		trade.Price = *p.Price
	}
	if p.Units != nil {
		trade.Units = *p.Units
	}
	if p.Quantity != nil {
		trade.Quantity = *p.Quantity
	}
	if p.CurrentPrice != nil {
		trade.CurrentPrice = *p.CurrentPrice
	}
	if p.OpenQuantity != nil {
		trade.OpenQuantity = *p.OpenQuantity
	}
	if p.MatchedTradeIDs != nil {
		trade.MatchedTradeIDs = p.MatchedTradeIDs
	}
	if p.PNL != nil {
		trade.PNL = *p.PNL
	}
	if p.RealisedPNL != nil {
		trade.RealisedPNL = *p.RealisedPNL
	}
	if p.UnrealisedPNL != nil {
		trade.UnrealisedPNL = *p.UnrealisedPNL
	}

	if err := s.trades.UpdateTrade(ctx, trade); err != nil {
		return nil, err
	}
	return trade, nil
}

// DeleteTrade removes one of the user's trades.
func (s *TradeService) DeleteTrade(ctx context.Context, userID, id int64) error {
	if _, err := s.GetTrade(ctx, userID, id); err != nil {
		return err
	}
	return s.trades.DeleteTrade(ctx, id)
}

// --- Netting ---

// CompareTrades nets two trades against each other and persists both
// updated records atomically. Returns the updated trades in ascending
// ID order.
func (s *TradeService) CompareTrades(ctx context.Context, idA, idB int64) (*domain.Trade, *domain.Trade, error) {
	s.matchMu.Lock()
	defer s.matchMu.Unlock()

	tradeA, err := s.trades.FindTradeByID(ctx, idA)
	if err != nil {
		return nil, nil, err
	}
	tradeB, err := s.trades.FindTradeByID(ctx, idB)
	if err != nil {
		return nil, nil, err
	}
	if tradeA == nil || tradeB == nil {
		return nil, nil, fmt.Errorf("%w: one or both trades not found", ports.ErrNotFound)
	}

	result, err := pnl.Match(*tradeA, *tradeB)
	if err != nil {
		return nil, nil, err
	}

	first, second := result.First, result.Second
	if err := s.trades.UpdateTradePair(ctx, &first, &second); err != nil {
		return nil, nil, err
	}

	s.logger.Info(ctx, "Trades matched", map[string]interface{}{
		"first_id":    first.ID,
		"second_id":   second.ID,
		"matched_qty": result.MatchedQuantity,
	})
	return &first, &second, nil
}

// --- Price Refresh ---

// RefreshPrices updates current prices and unrealised PnL for all of the
// user's trades. A quote failure for one ticker skips the affected trades
// without aborting the rest. Returns the number of trades updated.
func (s *TradeService) RefreshPrices(ctx context.Context, userID int64) (int, error) {
	trades, err := s.trades.FindTradesByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	if len(trades) == 0 {
		return 0, fmt.Errorf("%w: no trades found to update", ports.ErrNotFound)
	}
	return s.refreshTrades(ctx, trades), nil
}

// RefreshAllPrices updates every trade in the journal. Used by the
// scheduled background refresh.
func (s *TradeService) RefreshAllPrices(ctx context.Context) (int, error) {
	trades, err := s.trades.FindAllTrades(ctx)
	if err != nil {
		return 0, err
	}
	return s.refreshTrades(ctx, trades), nil
}

// refreshTrades fetches one quote per distinct ticker and revalues each
// trade. Failed tickers are fetched once and then skipped.
func (s *TradeService) refreshTrades(ctx context.Context, trades []*domain.Trade) int {
	prices := make(map[string]float64)
	failed := make(map[string]bool)
	updated := 0

	for _, trade := range trades {
		price, ok := prices[trade.Ticker]
		if !ok {
			if failed[trade.Ticker] {
				continue
			}
			fetched, err := s.quotes.GetCurrentPrice(ctx, trade.Ticker)
			if err != nil {
				s.logger.Warn(ctx, "Skipping ticker after failed price lookup", map[string]interface{}{
					"ticker": trade.Ticker,
				})
				failed[trade.Ticker] = true
				continue
			}
			prices[trade.Ticker] = fetched
			price = fetched
		}

		revalued, err := pnl.Revalue(*trade, price)
		if err != nil {
			s.logger.Warn(ctx, "Skipping trade with invalid price", map[string]interface{}{
				"trade_id": trade.ID,
				"price":    price,
			})
			continue
		}
		if err := s.trades.UpdateTrade(ctx, &revalued); err != nil {
			s.logger.Error(ctx, err, "Failed to persist revalued trade", map[string]interface{}{
				"trade_id": trade.ID,
			})
			continue
		}
		updated++
	}
	return updated
}
