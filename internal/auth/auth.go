// Package auth issues and verifies the JWT access tokens used by the API
// and handles password hashing for user accounts.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"tradetracker/internal/domain"
	"tradetracker/internal/ports"
)

// Manager signs and verifies access tokens with a shared HS256 secret.
type Manager struct {
	secret []byte
	ttl    time.Duration
}

// Config holds configuration for the auth manager.
type Config struct {
	Secret   string        // HS256 signing secret, required
	TokenTTL time.Duration // Token lifetime (default 50h, matching the legacy API)
}

// New creates a new auth manager. The signing secret must be provided by
// configuration; there is no built-in default.
func New(cfg Config) (*Manager, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("%w: JWT signing secret is required", ports.ErrConfigurationError)
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 3000 * time.Minute
	}
	return &Manager{secret: []byte(cfg.Secret), ttl: ttl}, nil
}

// Claims are the token claims carried by an access token.
type Claims struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}

// IssueToken creates a signed access token for the user.
func (m *Manager) IssueToken(user *domain.User) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: user.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// VerifyToken validates a token string and returns the user ID it carries.
func (m *Manager) VerifyToken(tokenString string) (int64, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return 0, fmt.Errorf("%w: invalid authentication credentials", ports.ErrUnauthorized)
	}
	if claims.UserID == 0 {
		return 0, fmt.Errorf("%w: token carries no user id", ports.ErrUnauthorized)
	}
	return claims.UserID, nil
}

// HashPassword hashes a plain password with bcrypt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether the plain password matches the stored hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
