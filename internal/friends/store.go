package friends

import (
	"context"

	"github.com/google/uuid"

	"github.com/averyls/mingle/internal/models"
)

// Store is the durable relationship graph: friendship edges plus each user's
// inbound request list. It is the sole source of truth for graph state.
//
// Edge mutations are two-sided and must be atomic: after AddFriendEdge
// returns, both directions are visible to any reader, or neither is.
// Implementations must serialize operations touching the same user pair
// (the Postgres store leans on transactions; the in-memory store takes
// per-user locks in canonical id order).
type Store interface {
	// AddFriendEdge connects a and b in both directions. Idempotent: adding an
	// existing edge is a no-op. Rejects a == b with ErrSelfRequest.
	AddFriendEdge(ctx context.Context, a, b uuid.UUID) error

	// RemoveFriendEdge disconnects a and b in both directions. Idempotent.
	RemoveFriendEdge(ctx context.Context, a, b uuid.UUID) error

	// AreFriends reports whether an edge exists between a and b.
	AreFriends(ctx context.Context, a, b uuid.UUID) (bool, error)

	// AppendRequest adds a new pending request to its recipient's inbound list.
	// Fails with ErrDuplicatePendingRequest if a pending request for the same
	// (from, to) pair exists, or ErrAlreadyFriends if the pair is connected.
	AppendRequest(ctx context.Context, req *models.FriendRequest) error

	// AcceptRequest transitions the request to accepted and creates the
	// friendship edge as one atomic unit. The request must not end up accepted
	// with the edge missing: on failure the request stays pending and is
	// retryable. Returns the accepted request.
	AcceptRequest(ctx context.Context, to, requestID uuid.UUID) (*models.FriendRequest, error)

	// UpdateRequestStatus transitions a request to a terminal status without
	// side effects (used for rejection). Fails with ErrRequestNotFound if the
	// id does not exist under to, or ErrInvalidTransition if the request is
	// already terminal.
	UpdateRequestStatus(ctx context.Context, to, requestID uuid.UUID, status models.RequestStatus) (*models.FriendRequest, error)

	// ListFriends returns the ids in user's friend set.
	ListFriends(ctx context.Context, user uuid.UUID) ([]uuid.UUID, error)

	// ListPendingRequests returns user's inbound pending requests, oldest first.
	ListPendingRequests(ctx context.Context, user uuid.UUID) ([]models.FriendRequest, error)

	// FriendSets returns the friend set of every given user in one batch read.
	// Users with no friends map to an empty set.
	FriendSets(ctx context.Context, users []uuid.UUID) (map[uuid.UUID][]uuid.UUID, error)
}

// UserDirectory resolves user ids to identity data. It is owned by the
// identity subsystem; the graph only reads from it and never assumes it is
// consistent with the Store beyond "referenced ids generally resolve".
type UserDirectory interface {
	// FindByID resolves a single user, or ErrUserNotFound.
	FindByID(ctx context.Context, id uuid.UUID) (*models.UserSummary, error)

	// FindByIDs resolves a batch of users. Ids that no longer resolve are
	// simply absent from the result, not an error.
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.UserSummary, error)

	// List returns up to limit users excluding the given id, in the
	// directory's stable iteration order.
	List(ctx context.Context, exclude uuid.UUID, limit int) ([]models.UserSummary, error)
}

// RecommendationCache holds computed recommendation lists keyed by user.
// A nil or failing cache only costs recomputation; it never fails a request.
type RecommendationCache interface {
	Get(ctx context.Context, user uuid.UUID) ([]models.Recommendation, bool)
	Set(ctx context.Context, user uuid.UUID, recs []models.Recommendation)
	Invalidate(ctx context.Context, users ...uuid.UUID)
}

// nopCache is the fallback when no cache is wired.
type nopCache struct{}

func (nopCache) Get(context.Context, uuid.UUID) ([]models.Recommendation, bool) { return nil, false }
func (nopCache) Set(context.Context, uuid.UUID, []models.Recommendation)        {}
func (nopCache) Invalidate(context.Context, ...uuid.UUID)                       {}
