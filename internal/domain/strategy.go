package domain

// Strategy is a named label a user's trades belong to. Pure reference data;
// matching only requires two trades to share the same StrategyID.
type Strategy struct {
	ID     int64  // Unique identifier for the strategy (assigned by the DB)
	UserID int64  // Owner of the strategy
	Name   string // Display name, unique per user
}
