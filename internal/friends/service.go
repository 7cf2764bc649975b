package friends

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/averyls/mingle/internal/models"
)

// Service runs the friend request state machine against a Store. Requests
// start pending and move exactly once to accepted or rejected; accepting is
// the only way a friendship edge comes into existence.
//
// Every method takes the acting user as an already-authenticated id; the
// service never sees credentials or transport types.
type Service struct {
	store     Store
	directory UserDirectory
	cache     RecommendationCache
	now       func() time.Time
}

func NewService(store Store, directory UserDirectory, cache RecommendationCache) *Service {
	if cache == nil {
		cache = nopCache{}
	}
	return &Service{
		store:     store,
		directory: directory,
		cache:     cache,
		now:       time.Now,
	}
}

// SendRequest creates a pending request from one user to another.
//
// Preconditions: from != to, the recipient resolves in the directory, the
// pair is not already connected, and no pending request for the same
// direction exists. The duplicate and already-friends checks are enforced
// again inside the store so concurrent sends between the same pair cannot
// both slip through.
func (s *Service) SendRequest(ctx context.Context, from, to uuid.UUID) (*models.FriendRequest, error) {
	if from == to {
		return nil, ErrSelfRequest
	}
	if _, err := s.directory.FindByID(ctx, to); err != nil {
		return nil, err
	}

	connected, err := s.store.AreFriends(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("checking friendship: %w", err)
	}
	if connected {
		return nil, ErrAlreadyFriends
	}

	req := &models.FriendRequest{
		ID:        uuid.New(),
		From:      from,
		To:        to,
		Status:    models.StatusPending,
		CreatedAt: s.now(),
	}
	if err := s.store.AppendRequest(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// AcceptRequest resolves a pending request in the acting user's inbound list
// and connects the pair. Status transition and edge creation happen as one
// atomic store operation; if it fails the request is still pending and the
// call can be retried.
func (s *Service) AcceptRequest(ctx context.Context, to, requestID uuid.UUID) (*models.FriendRequest, error) {
	req, err := s.store.AcceptRequest(ctx, to, requestID)
	if err != nil {
		return nil, err
	}
	// Both users' neighborhoods changed.
	s.cache.Invalidate(ctx, req.From, req.To)
	return req, nil
}

// RejectRequest resolves a pending request without creating an edge. The
// record stays on the recipient's list in its terminal state; a rejected
// sender may send a fresh request later.
func (s *Service) RejectRequest(ctx context.Context, to, requestID uuid.UUID) (*models.FriendRequest, error) {
	return s.store.UpdateRequestStatus(ctx, to, requestID, models.StatusRejected)
}

// RemoveFriend deletes the edge between two users. Idempotent: removing an
// absent edge succeeds. Historical request records are left untouched, so
// reconnecting requires a new request.
func (s *Service) RemoveFriend(ctx context.Context, user, friend uuid.UUID) error {
	if user == friend {
		return nil
	}
	if err := s.store.RemoveFriendEdge(ctx, user, friend); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, user, friend)
	return nil
}

// Friends returns the user's friend set resolved to public summaries.
// Friends whose accounts no longer resolve in the directory are omitted.
func (s *Service) Friends(ctx context.Context, user uuid.UUID) ([]models.UserSummary, error) {
	ids, err := s.store.ListFriends(ctx, user)
	if err != nil {
		return nil, err
	}
	return resolveSummaries(ctx, s.directory, ids)
}

// PendingRequests returns the user's inbound pending requests, oldest first,
// with each sender resolved to a summary. Requests from senders that no
// longer resolve are omitted rather than failing the whole response.
func (s *Service) PendingRequests(ctx context.Context, user uuid.UUID) ([]models.PendingRequest, error) {
	reqs, err := s.store.ListPendingRequests(ctx, user)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(reqs))
	for _, r := range reqs {
		ids = append(ids, r.From)
	}
	senders, err := s.directory.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]models.PendingRequest, 0, len(reqs))
	for _, r := range reqs {
		from, ok := senders[r.From]
		if !ok {
			continue
		}
		out = append(out, models.PendingRequest{ID: r.ID, From: from, CreatedAt: r.CreatedAt})
	}
	return out, nil
}

// resolveSummaries maps ids to directory summaries, preserving input order
// and dropping ids that do not resolve.
func resolveSummaries(ctx context.Context, dir UserDirectory, ids []uuid.UUID) ([]models.UserSummary, error) {
	if len(ids) == 0 {
		return []models.UserSummary{}, nil
	}
	found, err := dir.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]models.UserSummary, 0, len(ids))
	for _, id := range ids {
		if u, ok := found[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}
