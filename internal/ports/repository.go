package ports

import (
	"context"

	"tradetracker/internal/domain"
)

// TradeRepository defines the interface for storing and retrieving trades.
type TradeRepository interface {
	// CreateTrade saves a new trade and returns its assigned ID.
	CreateTrade(ctx context.Context, trade *domain.Trade) (int64, error)
	// UpdateTrade modifies an existing trade.
	UpdateTrade(ctx context.Context, trade *domain.Trade) error
	// UpdateTradePair persists two trades atomically: both updates commit
	// together or neither does. Used by the netting operation.
	UpdateTradePair(ctx context.Context, a, b *domain.Trade) error
	// FindTradeByID retrieves a trade by its unique ID.
	// Returns nil, nil if not found.
	FindTradeByID(ctx context.Context, id int64) (*domain.Trade, error)
	// FindTradesByUser retrieves all trades owned by a user, newest first.
	FindTradesByUser(ctx context.Context, userID int64) ([]*domain.Trade, error)
	// FindAllTrades retrieves every trade in the journal, newest first.
	FindAllTrades(ctx context.Context) ([]*domain.Trade, error)
	// DeleteTrade removes a trade by ID.
	DeleteTrade(ctx context.Context, id int64) error
}

// StrategyRepository defines the interface for storing and retrieving strategies.
type StrategyRepository interface {
	// CreateStrategy saves a new strategy and returns its assigned ID.
	CreateStrategy(ctx context.Context, strategy *domain.Strategy) (int64, error)
	// FindStrategyByID retrieves a strategy by its unique ID.
	// Returns nil, nil if not found.
	FindStrategyByID(ctx context.Context, id int64) (*domain.Strategy, error)
	// FindStrategiesByUser retrieves all strategies owned by a user.
	FindStrategiesByUser(ctx context.Context, userID int64) ([]*domain.Strategy, error)
	// DeleteStrategy removes a strategy by ID.
	DeleteStrategy(ctx context.Context, id int64) error
}

// UserRepository defines the interface for storing and retrieving user accounts.
type UserRepository interface {
	// CreateUser saves a new user and returns its assigned ID.
	// Returns ErrDuplicateEntry if the email is already registered.
	CreateUser(ctx context.Context, user *domain.User) (int64, error)
	// FindUserByEmail retrieves a user by email.
	// Returns nil, nil if not found.
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
	// FindUserByID retrieves a user by its unique ID.
	// Returns nil, nil if not found.
	FindUserByID(ctx context.Context, id int64) (*domain.User, error)
}
