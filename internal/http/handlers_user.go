package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pratik-sharma-25/expenseTracker/internal/auth"
	"github.com/pratik-sharma-25/expenseTracker/internal/core"
	"github.com/pratik-sharma-25/expenseTracker/internal/storage"
)

type signupRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	email := strings.ToLower(sanitizeInput(req.Email))
	name := sanitizeInput(req.Name)

	user, err := s.authn.Signup(r.Context(), email, name, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, core.ErrEmptyEmail),
		errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrEmptyPassword):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, storage.ErrDuplicateEmail):
		writeError(w, http.StatusConflict, "Email is already registered")
		return
	default:
		slog.ErrorContext(r.Context(), "Signup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Error creating user")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"message": "User created successfully",
		"userId":  user.ID,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	email := strings.ToLower(sanitizeInput(req.Email))

	token, err := s.authn.Login(r.Context(), email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Login failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Error logging in")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}
