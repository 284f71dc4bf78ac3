package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"tradetracker/internal/ports"
)

type contextKey string

const userIDKey contextKey = "userID"

// userIDFrom extracts the authenticated user ID placed on the request
// context by authMiddleware.
func userIDFrom(ctx context.Context) int64 {
	id, _ := ctx.Value(userIDKey).(int64)
	return id
}

// authMiddleware verifies the Bearer token and stores the user ID on the
// request context.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			writeError(w, ports.ErrUnauthorized)
			return
		}

		userID, err := s.authMgr.VerifyToken(token)
		if err != nil {
			writeError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps application errors to HTTP status codes. The response
// shape ({"detail": ...}) matches the legacy API this service replaces.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	detail := "An internal server error occurred"

	switch {
	case errors.Is(err, ports.ErrNotFound):
		status = http.StatusNotFound
		detail = err.Error()
	case errors.Is(err, ports.ErrUnauthorized):
		status = http.StatusUnauthorized
		detail = "Invalid authentication credentials"
	case errors.Is(err, ports.ErrMatchRejected),
		errors.Is(err, ports.ErrInvalidPrice),
		errors.Is(err, ports.ErrPriceFetch),
		errors.Is(err, ports.ErrDuplicateEntry),
		errors.Is(err, ports.ErrInvalidRequest):
		status = http.StatusBadRequest
		detail = err.Error()
	}

	writeJSON(w, status, map[string]string{"detail": detail})
}

// parseIDParam parses a numeric chi URL parameter.
func parseIDParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", ports.ErrInvalidRequest, name)
	}
	return id, nil
}

func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return ports.ErrInvalidRequest
	}
	return nil
}
