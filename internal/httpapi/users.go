package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/laxmihoney/honeychat/internal/users"
)

type signupRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signupResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	UID      string `json:"uid"`
	Username string `json:"username"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	req.FullName = strings.TrimSpace(req.FullName)
	if len(req.FullName) < 2 || len(req.FullName) > 255 {
		respondError(w, http.StatusBadRequest, "invalid_full_name", "full_name must be 2-255 characters")
		return
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(req.Email)); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_email", "email address is not valid")
		return
	}
	if len(req.Password) < 8 || len(req.Password) > 256 {
		respondError(w, http.StatusBadRequest, "invalid_password", "password must be 8-256 characters")
		return
	}

	user, err := s.users.Create(r.Context(), req.FullName, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, users.ErrEmailTaken) {
			respondError(w, http.StatusConflict, "email_taken", "email already registered")
			return
		}
		s.logger.Error("signup failed", slog.String("error", err.Error()))
		respondError(w, http.StatusInternalServerError, "internal", "could not create account")
		return
	}

	if s.metrics != nil {
		s.metrics.UserSignups.Inc()
	}
	respondJSON(w, http.StatusCreated, signupResponse{
		Success:  true,
		Message:  "account created",
		UID:      user.UID.String(),
		Username: user.Username,
	})
}

func (s *Server) handleEmailCheck(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	exists, err := s.users.EmailExists(r.Context(), email)
	if err != nil {
		s.logger.Error("email check failed", slog.String("error", err.Error()))
		respondError(w, http.StatusInternalServerError, "internal", "lookup failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"exists": exists})
}

func (s *Server) handleUsernameCheck(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	exists, err := s.users.UsernameExists(r.Context(), username)
	if err != nil {
		s.logger.Error("username check failed", slog.String("error", err.Error()))
		respondError(w, http.StatusInternalServerError, "internal", "lookup failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"exists": exists})
}
