package server

import (
	"net/http"
	"strconv"

	"tradetracker/internal/domain"
)

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	token, err := s.service.Register(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	token, err := s.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer"})
}

type strategyRequest struct {
	Name string `json:"name"`
}

type strategyResponse struct {
	ID     int64  `json:"id"`
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
}

func toStrategyResponse(s *domain.Strategy) strategyResponse {
	return strategyResponse{ID: s.ID, UserID: s.UserID, Name: s.Name}
}

func (s *Server) handleListStrategies(w http.ResponseWriter, r *http.Request) {
	strategies, err := s.service.ListStrategies(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]strategyResponse, 0, len(strategies))
	for _, strategy := range strategies {
		resp = append(resp, toStrategyResponse(strategy))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateStrategy(w http.ResponseWriter, r *http.Request) {
	var req strategyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	strategy, err := s.service.CreateStrategy(r.Context(), userIDFrom(r.Context()), req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toStrategyResponse(strategy))
}

func (s *Server) handleDeleteStrategy(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "strategyID")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := s.service.DeleteStrategy(r.Context(), userIDFrom(r.Context()), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"detail": "Strategy with ID " + strconv.FormatInt(id, 10) + " deleted successfully",
	})
}
