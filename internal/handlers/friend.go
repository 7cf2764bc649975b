// internal/handlers/friend.go
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
)

// SendFriendRequestHandler handles the authenticated user sending a friend
// request to another user.
//
// Request payload: { "friend_id": "some-uuid-string" }
func (s *Server) SendFriendRequestHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.actingUser(w, r)
	if !ok {
		return
	}

	var req struct {
		FriendID string `json:"friend_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid payload")
		return
	}
	friendID, err := uuid.Parse(req.FriendID)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid friend_id")
		return
	}

	if _, err := s.Friends.SendRequest(r.Context(), userID, friendID); err != nil {
		s.writeError(w, err)
		return
	}
	writeMessage(w, http.StatusCreated, "friend request sent")
}

// AcceptFriendRequestHandler resolves a pending request on the authenticated
// user's inbound list and connects the pair.
//
// Request payload: { "request_id": "some-uuid-string" }
func (s *Server) AcceptFriendRequestHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.actingUser(w, r)
	if !ok {
		return
	}

	requestID, ok := decodeRequestID(w, r)
	if !ok {
		return
	}

	if _, err := s.Friends.AcceptRequest(r.Context(), userID, requestID); err != nil {
		s.writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "friend request accepted")
}

// RejectFriendRequestHandler resolves a pending request without creating an
// edge.
//
// Request payload: { "request_id": "some-uuid-string" }
func (s *Server) RejectFriendRequestHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.actingUser(w, r)
	if !ok {
		return
	}

	requestID, ok := decodeRequestID(w, r)
	if !ok {
		return
	}

	if _, err := s.Friends.RejectRequest(r.Context(), userID, requestID); err != nil {
		s.writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "friend request rejected")
}

// RemoveFriendHandler unfriends the user named in the path. Removing an
// already-absent edge still succeeds.
func (s *Server) RemoveFriendHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.actingUser(w, r)
	if !ok {
		return
	}

	friendID, err := uuid.Parse(r.PathValue("friendID"))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid friend id")
		return
	}

	if err := s.Friends.RemoveFriend(r.Context(), userID, friendID); err != nil {
		s.writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "friend removed")
}

// ListPendingRequestsHandler returns the authenticated user's inbound
// pending requests, oldest first, with senders resolved.
func (s *Server) ListPendingRequestsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.actingUser(w, r)
	if !ok {
		return
	}

	reqs, err := s.Friends.PendingRequests(r.Context(), userID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reqs)
}

// ListFriendsHandler returns the authenticated user's friends as summaries.
func (s *Server) ListFriendsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.actingUser(w, r)
	if !ok {
		return
	}

	list, err := s.Friends.Friends(r.Context(), userID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func decodeRequestID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	var req struct {
		RequestID string `json:"request_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid payload")
		return uuid.Nil, false
	}
	requestID, err := uuid.Parse(req.RequestID)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request_id")
		return uuid.Nil, false
	}
	return requestID, true
}
