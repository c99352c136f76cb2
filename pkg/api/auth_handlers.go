package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/farid/collabco/pkg/auth"
	"github.com/farid/collabco/pkg/store"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Message  string `json:"message,omitempty"`
	Token    string `json:"token"`
	Username string `json:"username"`
	UserID   string `json:"userId"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	const route = "/api/register"

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondMessage(w, route, http.StatusBadRequest, "invalid request body")
		return
	}

	if _, err := s.store.FindUserByEmail(r.Context(), req.Email); err == nil {
		s.respondMessage(w, route, http.StatusBadRequest, "user already exists")
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		s.respondServerError(w, route, err)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.respondServerError(w, route, err)
		return
	}

	user, err := s.store.CreateUser(r.Context(), req.Username, req.Email, hash)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			s.respondMessage(w, route, http.StatusBadRequest, "user already exists")
			return
		}
		s.respondServerError(w, route, err)
		return
	}

	token, err := s.tokens.GenerateToken(user.ID)
	if err != nil {
		s.respondServerError(w, route, err)
		return
	}

	s.respondJSON(w, route, http.StatusCreated, authResponse{
		Message:  "user created successfully",
		Token:    token,
		Username: user.Username,
		UserID:   user.ID,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	const route = "/api/login"

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondMessage(w, route, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.store.FindUserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.respondMessage(w, route, http.StatusBadRequest, "user not found")
			return
		}
		s.respondServerError(w, route, err)
		return
	}

	if !auth.CheckPassword(user.Password, req.Password) {
		s.respondMessage(w, route, http.StatusBadRequest, "invalid credentials")
		return
	}

	token, err := s.tokens.GenerateToken(user.ID)
	if err != nil {
		s.respondServerError(w, route, err)
		return
	}

	s.respondJSON(w, route, http.StatusOK, authResponse{
		Token:    token,
		Username: user.Username,
		UserID:   user.ID,
	})
}

type meResponse struct {
	UserID   string `json:"userId"`
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	const route = "/api/user/me"

	user, err := s.store.FindUserByID(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.respondMessage(w, route, http.StatusNotFound, "user not found")
			return
		}
		s.respondServerError(w, route, err)
		return
	}

	s.respondJSON(w, route, http.StatusOK, meResponse{
		UserID:   user.ID,
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
	})
}
