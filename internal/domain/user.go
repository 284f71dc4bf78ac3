package domain

import "time"

// User is an account that owns strategies and trades.
type User struct {
	ID           int64     // Unique identifier for the user (assigned by the DB)
	Email        string    // Login email, unique
	Name         string    // Display name
	PasswordHash string    // bcrypt hash, never the plain password
	CreatedAt    time.Time // Timestamp when the account was created
}
