// internal/handlers/api_server.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/averyls/mingle/internal/friends"
	"github.com/averyls/mingle/internal/middleware"
	"github.com/averyls/mingle/internal/models"
)

// AccountService is the account-facing slice of the user directory:
// registration, login, and the routine listing/search reads.
type AccountService interface {
	CreateUser(ctx context.Context, user *models.User) error
	Authenticate(ctx context.Context, email, password string) (string, error)
	ListUsers(ctx context.Context, exclude uuid.UUID, page, limit int) ([]models.UserSummary, int, error)
	Search(ctx context.Context, exclude uuid.UUID, query string) ([]models.UserSummary, error)
}

// Server holds the HTTP surface's collaborators and owns route registration.
type Server struct {
	Logger      *logrus.Logger
	Accounts    AccountService
	Friends     *friends.Service
	Recommender *friends.Recommender
	Profiles    *friends.Profiles
}

// Routes builds the full route table. Everything except registration and
// login sits behind the cookie-JWT authentication middleware.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /user/create", s.CreateUserHandler)
	mux.HandleFunc("POST /user/login", s.LoginHandler)

	authed := func(h http.HandlerFunc) http.Handler {
		return middleware.Authenticate(h)
	}

	mux.Handle("POST /friends/request", authed(s.SendFriendRequestHandler))
	mux.Handle("POST /friends/accept", authed(s.AcceptFriendRequestHandler))
	mux.Handle("POST /friends/reject", authed(s.RejectFriendRequestHandler))
	mux.Handle("DELETE /friends/remove/{friendID}", authed(s.RemoveFriendHandler))
	mux.Handle("GET /friends/requests", authed(s.ListPendingRequestsHandler))
	mux.Handle("GET /friends/list", authed(s.ListFriendsHandler))

	mux.Handle("GET /users", authed(s.ListUsersHandler))
	mux.Handle("GET /users/search", authed(s.SearchUsersHandler))
	mux.Handle("GET /users/recommendations", authed(s.RecommendationsHandler))
	mux.Handle("GET /users/profile/{userID}", authed(s.ProfileHandler))

	return middleware.LogMiddleware(s.Logger)(mux)
}

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, messageResponse{Message: msg})
}

// writeError maps typed graph errors to HTTP statuses with stable messages.
// Anything unrecognized is logged and reported as a generic failure so
// storage details never reach the client.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, friends.ErrSelfRequest):
		writeMessage(w, http.StatusBadRequest, friends.ErrSelfRequest.Error())
	case errors.Is(err, friends.ErrAlreadyFriends):
		writeMessage(w, http.StatusBadRequest, friends.ErrAlreadyFriends.Error())
	case errors.Is(err, friends.ErrDuplicatePendingRequest):
		writeMessage(w, http.StatusBadRequest, friends.ErrDuplicatePendingRequest.Error())
	case errors.Is(err, friends.ErrInvalidTransition):
		writeMessage(w, http.StatusBadRequest, friends.ErrInvalidTransition.Error())
	case errors.Is(err, friends.ErrRequestNotFound):
		writeMessage(w, http.StatusNotFound, friends.ErrRequestNotFound.Error())
	case errors.Is(err, friends.ErrUserNotFound):
		writeMessage(w, http.StatusNotFound, friends.ErrUserNotFound.Error())
	case errors.Is(err, friends.ErrStorageUnavailable):
		writeMessage(w, http.StatusServiceUnavailable, "temporarily unavailable, please retry")
	default:
		s.Logger.WithError(err).Error("request failed")
		writeMessage(w, http.StatusInternalServerError, "something went wrong")
	}
}

// actingUser pulls the authenticated user id from the request context. A
// miss means the handler was mounted without the auth middleware.
func (s *Server) actingUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := middleware.UserID(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return uuid.Nil, false
	}
	return userID, true
}
