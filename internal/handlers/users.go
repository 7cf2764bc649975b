// internal/handlers/users.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/averyls/mingle/internal/models"
)

type userListResponse struct {
	Users   []models.UserSummary `json:"users"`
	Total   int                  `json:"total"`
	Page    int                  `json:"page"`
	Pages   int                  `json:"pages"`
	HasMore bool                 `json:"hasMore"`
}

// ListUsersHandler returns one page of the user directory, excluding the
// caller. Query params: page (default 1), limit (default 10).
func (s *Server) ListUsersHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.actingUser(w, r)
	if !ok {
		return
	}

	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 10)

	users, total, err := s.Accounts.ListUsers(r.Context(), userID, page, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}

	pages := total / limit
	if total%limit != 0 {
		pages++
	}
	writeJSON(w, http.StatusOK, userListResponse{
		Users:   users,
		Total:   total,
		Page:    page,
		Pages:   pages,
		HasMore: page*limit < total,
	})
}

// SearchUsersHandler matches usernames by substring, excluding the caller.
func (s *Server) SearchUsersHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.actingUser(w, r)
	if !ok {
		return
	}

	query := r.URL.Query().Get("query")
	if query == "" {
		writeMessage(w, http.StatusBadRequest, "search query required")
		return
	}

	users, err := s.Accounts.Search(r.Context(), userID, query)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// RecommendationsHandler returns suggested connections for the caller,
// ranked by mutual friend count.
func (s *Server) RecommendationsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.actingUser(w, r)
	if !ok {
		return
	}

	recs, err := s.Recommender.Recommend(r.Context(), userID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

// ProfileHandler returns the public profile of the user named in the path.
func (s *Server) ProfileHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.actingUser(w, r); !ok {
		return
	}

	targetID, err := uuid.Parse(r.PathValue("userID"))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid user id")
		return
	}

	profile, err := s.Profiles.Profile(r.Context(), targetID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func queryInt(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v < 1 {
		return def
	}
	return v
}
