package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"tradetracker/internal/domain"
	"tradetracker/internal/ports"

	"github.com/mattn/go-sqlite3"
)

// Repository implements the ports.TradeRepository, ports.StrategyRepository
// and ports.UserRepository interfaces using SQLite.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/trade_tracker.db" // Default path
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// Open database connection
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000") // WAL mode for better concurrency
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close() // Close the connection if ping fails
		err = fmt.Errorf("failed to ping database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// Set connection pool settings (important for SQLite)
	db.SetMaxOpenConns(1) // SQLite handles concurrency internally, but Go driver benefits from limiting connections
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cfg.Logger.Info(context.Background(), "SQLite database connection established", map[string]interface{}{"path": dbPath})

	repo := &Repository{db: db, logger: cfg.Logger}

	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	cfg.Logger.Info(context.Background(), "Database schema initialized/verified")

	return repo, nil
}

// initializeSchema creates tables if they don't exist.
// NOTE: This is a basic approach. A proper migration tool is recommended for production.
func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS strategies (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		name TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS trades (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		strategy_id INTEGER NOT NULL,
		ticker TEXT NOT NULL,
		time_horizon TEXT NOT NULL,
		date_of_trade TIMESTAMP NOT NULL,
		price REAL NOT NULL,
		units REAL NOT NULL,
		qty REAL NOT NULL,
		current_price REAL NOT NULL DEFAULT 0,
		open_qty REAL NOT NULL DEFAULT 0,
		matched_trade_ids TEXT NOT NULL DEFAULT '',
		pnl REAL NOT NULL DEFAULT 0,
		realised_pnl REAL NOT NULL DEFAULT 0,
		unrealised_pnl REAL NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL
	);
	-- Add indexes for common lookups
	CREATE INDEX IF NOT EXISTS idx_strategies_user ON strategies (user_id);
	CREATE INDEX IF NOT EXISTS idx_trades_user ON trades (user_id);
	CREATE INDEX IF NOT EXISTS idx_trades_ticker ON trades (ticker);
	`
	_, err := r.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Info(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

// --- UserRepository Implementation ---

// CreateUser saves a new user and returns its assigned ID.
func (r *Repository) CreateUser(ctx context.Context, user *domain.User) (int64, error) {
	const query = `
	INSERT INTO users (email, name, password_hash, created_at)
	VALUES (?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query, user.Email, user.Name, user.PasswordHash, user.CreatedAt)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return 0, fmt.Errorf("%w: email %s", ports.ErrDuplicateEntry, user.Email)
		}
		return 0, fmt.Errorf("failed to insert user %s: %w", user.Email, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for user: %w", err)
	}
	user.ID = id
	return id, nil
}

// FindUserByEmail retrieves a user by email. Returns nil, nil if not found.
func (r *Repository) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `
	SELECT id, email, name, password_hash, created_at
	FROM users WHERE email = ?`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query user by email: %w", err)
	}
	return user, nil
}

// FindUserByID retrieves a user by ID. Returns nil, nil if not found.
func (r *Repository) FindUserByID(ctx context.Context, id int64) (*domain.User, error) {
	const query = `
	SELECT id, email, name, password_hash, created_at
	FROM users WHERE id = ?`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query user by ID %d: %w", id, err)
	}
	return user, nil
}

// --- StrategyRepository Implementation ---

// CreateStrategy saves a new strategy and returns its assigned ID.
func (r *Repository) CreateStrategy(ctx context.Context, strategy *domain.Strategy) (int64, error) {
	const query = `INSERT INTO strategies (user_id, name) VALUES (?, ?)`

	result, err := r.db.ExecContext(ctx, query, strategy.UserID, strategy.Name)
	if err != nil {
		return 0, fmt.Errorf("failed to insert strategy %s: %w", strategy.Name, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for strategy: %w", err)
	}
	strategy.ID = id
	return id, nil
}

// FindStrategyByID retrieves a strategy by ID. Returns nil, nil if not found.
func (r *Repository) FindStrategyByID(ctx context.Context, id int64) (*domain.Strategy, error) {
	const query = `SELECT id, user_id, name FROM strategies WHERE id = ?`

	strategy := &domain.Strategy{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&strategy.ID, &strategy.UserID, &strategy.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query strategy by ID %d: %w", id, err)
	}
	return strategy, nil
}

// FindStrategiesByUser retrieves all strategies owned by a user.
func (r *Repository) FindStrategiesByUser(ctx context.Context, userID int64) ([]*domain.Strategy, error) {
	const query = `SELECT id, user_id, name FROM strategies WHERE user_id = ? ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query strategies for user %d: %w", userID, err)
	}
	defer rows.Close()

	var strategies []*domain.Strategy
	for rows.Next() {
		strategy := &domain.Strategy{}
		if err := rows.Scan(&strategy.ID, &strategy.UserID, &strategy.Name); err != nil {
			return nil, fmt.Errorf("failed to scan strategy row: %w", err)
		}
		strategies = append(strategies, strategy)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating strategy rows: %w", err)
	}
	return strategies, nil
}

// DeleteStrategy removes a strategy by ID.
func (r *Repository) DeleteStrategy(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM strategies WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete strategy %d: %w", id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for strategy delete: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: strategy %d", ports.ErrNotFound, id)
	}
	return nil
}

// --- TradeRepository Implementation ---

const tradeColumns = `id, user_id, strategy_id, ticker, time_horizon, date_of_trade,
	price, units, qty, current_price, open_qty, matched_trade_ids, pnl, realised_pnl, unrealised_pnl, created_at`

// CreateTrade saves a new trade and returns its assigned ID.
func (r *Repository) CreateTrade(ctx context.Context, trade *domain.Trade) (int64, error) {
	const query = `
	INSERT INTO trades (user_id, strategy_id, ticker, time_horizon, date_of_trade,
		price, units, qty, current_price, open_qty, matched_trade_ids, pnl, realised_pnl, unrealised_pnl, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		trade.UserID, trade.StrategyID, trade.Ticker, string(trade.TimeHorizon), trade.DateOfTrade,
		trade.Price, trade.Units, trade.Quantity, trade.CurrentPrice, trade.OpenQuantity,
		encodeMatchedIDs(trade.MatchedTradeIDs), trade.PNL, trade.RealisedPNL, trade.UnrealisedPNL, trade.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert trade for ticker %s: %w", trade.Ticker, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for trade: %w", err)
	}
	trade.ID = id
	return id, nil
}

const updateTradeQuery = `
	UPDATE trades
	SET strategy_id = ?, ticker = ?, time_horizon = ?, date_of_trade = ?,
		price = ?, units = ?, qty = ?, current_price = ?, open_qty = ?,
		matched_trade_ids = ?, pnl = ?, realised_pnl = ?, unrealised_pnl = ?
	WHERE id = ?`

func tradeUpdateArgs(trade *domain.Trade) []interface{} {
	return []interface{}{
		trade.StrategyID, trade.Ticker, string(trade.TimeHorizon), trade.DateOfTrade,
		trade.Price, trade.Units, trade.Quantity, trade.CurrentPrice, trade.OpenQuantity,
		encodeMatchedIDs(trade.MatchedTradeIDs), trade.PNL, trade.RealisedPNL, trade.UnrealisedPNL,
		trade.ID,
	}
}

// UpdateTrade modifies an existing trade.
func (r *Repository) UpdateTrade(ctx context.Context, trade *domain.Trade) error {
	result, err := r.db.ExecContext(ctx, updateTradeQuery, tradeUpdateArgs(trade)...)
	if err != nil {
		return fmt.Errorf("failed to update trade %d: %w", trade.ID, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for trade update: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: trade %d", ports.ErrNotFound, trade.ID)
	}
	return nil
}

// UpdateTradePair persists two trades in a single transaction. The netting
// operation requires both sides of a match to commit together or not at all.
func (r *Repository) UpdateTradePair(ctx context.Context, a, b *domain.Trade) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for trade pair: %w", err)
	}
	defer tx.Rollback() // No-op once committed

	for _, trade := range []*domain.Trade{a, b} {
		result, err := tx.ExecContext(ctx, updateTradeQuery, tradeUpdateArgs(trade)...)
		if err != nil {
			return fmt.Errorf("failed to update trade %d in pair: %w", trade.ID, err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected for trade %d in pair: %w", trade.ID, err)
		}
		if rows == 0 {
			return fmt.Errorf("%w: trade %d", ports.ErrNotFound, trade.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit trade pair update: %w", err)
	}
	return nil
}

// FindTradeByID retrieves a trade by ID. Returns nil, nil if not found.
func (r *Repository) FindTradeByID(ctx context.Context, id int64) (*domain.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE id = ?`

	trade, err := scanTrade(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query trade by ID %d: %w", id, err)
	}
	return trade, nil
}

// FindTradesByUser retrieves all trades owned by a user, newest first.
func (r *Repository) FindTradesByUser(ctx context.Context, userID int64) ([]*domain.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE user_id = ? ORDER BY date_of_trade DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades for user %d: %w", userID, err)
	}
	return collectTrades(rows)
}

// FindAllTrades retrieves every trade in the journal, newest first.
func (r *Repository) FindAllTrades(ctx context.Context) ([]*domain.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades ORDER BY date_of_trade DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query all trades: %w", err)
	}
	return collectTrades(rows)
}

// DeleteTrade removes a trade by ID.
func (r *Repository) DeleteTrade(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM trades WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete trade %d: %w", id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for trade delete: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: trade %d", ports.ErrNotFound, id)
	}
	return nil
}

// --- Scanning Helpers ---

// scanner defines an interface satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(s scanner) (*domain.User, error) {
	user := &domain.User{}
	err := s.Scan(&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func scanTrade(s scanner) (*domain.Trade, error) {
	trade := &domain.Trade{}
	var horizon, matched string
	err := s.Scan(&trade.ID, &trade.UserID, &trade.StrategyID, &trade.Ticker, &horizon, &trade.DateOfTrade,
		&trade.Price, &trade.Units, &trade.Quantity, &trade.CurrentPrice, &trade.OpenQuantity,
		&matched, &trade.PNL, &trade.RealisedPNL, &trade.UnrealisedPNL, &trade.CreatedAt)
	if err != nil {
		return nil, err
	}
	trade.TimeHorizon = domain.TimeHorizon(horizon)
	trade.MatchedTradeIDs, err = decodeMatchedIDs(matched)
	if err != nil {
		return nil, fmt.Errorf("corrupt matched_trade_ids for trade %d: %w", trade.ID, err)
	}
	return trade, nil
}

func collectTrades(rows *sql.Rows) ([]*domain.Trade, error) {
	defer rows.Close()

	var trades []*domain.Trade
	for rows.Next() {
		trade, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade row: %w", err)
		}
		trades = append(trades, trade)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trade rows: %w", err)
	}
	return trades, nil
}

// encodeMatchedIDs stores the matched-trade list as a comma-separated string.
func encodeMatchedIDs(ids []int64) string {
	if len(ids) == 0 {
		return ""
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

func decodeMatchedIDs(raw string) ([]int64, error) {
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
