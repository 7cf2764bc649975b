package models

import (
	"time"

	"github.com/google/uuid"
)

// RequestStatus is the lifecycle state of a friend request. A request starts
// pending and moves exactly once to accepted or rejected; both are terminal.
type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusAccepted RequestStatus = "accepted"
	StatusRejected RequestStatus = "rejected"
)

// Terminal reports whether a request in this status can no longer transition.
func (s RequestStatus) Terminal() bool {
	return s == StatusAccepted || s == StatusRejected
}

// FriendRequest is one user proposing friendship to another. The record is
// owned by the recipient: all lookups are scoped to To.
type FriendRequest struct {
	ID        uuid.UUID     `json:"id"`
	From      uuid.UUID     `json:"from"`
	To        uuid.UUID     `json:"to"`
	Status    RequestStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
}

// PendingRequest is a FriendRequest resolved for display: the sender's id
// replaced with their public summary.
type PendingRequest struct {
	ID        uuid.UUID   `json:"id"`
	From      UserSummary `json:"from"`
	CreatedAt time.Time   `json:"created_at"`
}

// Recommendation is a suggested connection. MutualCount is how many of the
// target's friends are also friends with the candidate; it is zero for
// cold-start suggestions, where no mutual friends exist yet.
type Recommendation struct {
	User        UserSummary `json:"user"`
	MutualCount int         `json:"mutual_count,omitempty"`
}

// Profile is a user's public view: identity plus current friends.
type Profile struct {
	User    UserSummary   `json:"user"`
	Friends []UserSummary `json:"friends"`
}
