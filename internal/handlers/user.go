// internal/handlers/user.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/averyls/mingle/internal/auth"
	"github.com/averyls/mingle/internal/database"
	"github.com/averyls/mingle/internal/models"
)

// CreateUserHandler registers a new account.
//
// Request payload:
//
//	{
//	  "email": "someone@example.com",
//	  "password": "password",
//	  "username": "someone"
//	}
func (s *Server) CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Username string `json:"username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.Email == "" || req.Password == "" || req.Username == "" {
		writeMessage(w, http.StatusBadRequest, "email, password and username are required")
		return
	}

	user := models.User{
		Email:    req.Email,
		Password: req.Password,
		Username: req.Username,
	}
	if err := s.Accounts.CreateUser(r.Context(), &user); err != nil {
		if errors.Is(err, database.ErrEmailTaken) {
			writeMessage(w, http.StatusConflict, "email already exists")
			return
		}
		s.writeError(w, err)
		return
	}

	user.Password = ""
	writeJSON(w, http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// LoginHandler checks credentials and returns a session token, also set as
// an HttpOnly cookie.
func (s *Server) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	token, err := s.Accounts.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		s.Logger.WithError(err).Info("failed login attempt")
		writeMessage(w, http.StatusForbidden, "authentication failed")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    token,
		HttpOnly: true,
		Path:     "/",
		MaxAge:   auth.TokenExpireSec,
	})
	writeJSON(w, http.StatusOK, loginResponse{Token: token})
}
