package database

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/averyls/mingle/internal/friends"
	"github.com/averyls/mingle/internal/models"
)

// MemoryStore is an in-memory relationship graph for tests and for running
// the server without Postgres. It keeps the same contract as the Postgres
// store: two-sided edges are never observable half-applied, and operations
// on the same user pair are serialized by per-user locks taken in canonical
// id order (so inconsistent acquisition order cannot deadlock).
type MemoryStore struct {
	// EdgeFailure, when set, is consulted before every edge write. Tests use
	// it to simulate storage faults during the accept transaction.
	EdgeFailure func(a, b uuid.UUID) error

	// Logger, when set, records accepts aborted by an edge-write failure.
	Logger *logrus.Logger

	metaMu sync.Mutex
	locks  map[uuid.UUID]*sync.Mutex

	stateMu  sync.RWMutex
	edges    map[uuid.UUID]map[uuid.UUID]bool
	requests map[uuid.UUID][]*models.FriendRequest
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		locks:    make(map[uuid.UUID]*sync.Mutex),
		edges:    make(map[uuid.UUID]map[uuid.UUID]bool),
		requests: make(map[uuid.UUID][]*models.FriendRequest),
	}
}

func (s *MemoryStore) userLock(id uuid.UUID) *sync.Mutex {
	s.metaMu.Lock()
	defer s.metaMu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// lockPair acquires both users' locks in canonical order and returns the
// matching unlock.
func (s *MemoryStore) lockPair(a, b uuid.UUID) func() {
	if a == b {
		l := s.userLock(a)
		l.Lock()
		return l.Unlock
	}
	first, second := a, b
	if second.String() < first.String() {
		first, second = second, first
	}
	l1, l2 := s.userLock(first), s.userLock(second)
	l1.Lock()
	l2.Lock()
	return func() {
		l2.Unlock()
		l1.Unlock()
	}
}

func (s *MemoryStore) setEdge(a, b uuid.UUID) {
	if s.edges[a] == nil {
		s.edges[a] = make(map[uuid.UUID]bool)
	}
	s.edges[a][b] = true
}

func (s *MemoryStore) AddFriendEdge(ctx context.Context, a, b uuid.UUID) error {
	if a == b {
		return friends.ErrSelfRequest
	}
	unlock := s.lockPair(a, b)
	defer unlock()

	if s.EdgeFailure != nil {
		if err := s.EdgeFailure(a, b); err != nil {
			return fmt.Errorf("%w: %v", friends.ErrStorageUnavailable, err)
		}
	}

	s.stateMu.Lock()
	s.setEdge(a, b)
	s.setEdge(b, a)
	s.stateMu.Unlock()
	return nil
}

func (s *MemoryStore) RemoveFriendEdge(ctx context.Context, a, b uuid.UUID) error {
	unlock := s.lockPair(a, b)
	defer unlock()

	s.stateMu.Lock()
	delete(s.edges[a], b)
	delete(s.edges[b], a)
	s.stateMu.Unlock()
	return nil
}

func (s *MemoryStore) AreFriends(ctx context.Context, a, b uuid.UUID) (bool, error) {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.edges[a][b], nil
}

func (s *MemoryStore) AppendRequest(ctx context.Context, req *models.FriendRequest) error {
	unlock := s.lockPair(req.From, req.To)
	defer unlock()

	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	if s.edges[req.From][req.To] {
		return friends.ErrAlreadyFriends
	}
	for _, existing := range s.requests[req.To] {
		if existing.From == req.From && existing.Status == models.StatusPending {
			return friends.ErrDuplicatePendingRequest
		}
	}

	cp := *req
	s.requests[req.To] = append(s.requests[req.To], &cp)
	return nil
}

// AcceptRequest transitions the request and writes both edge directions in a
// single critical section, so a concurrent reader either sees the request
// still pending or the friendship fully in place, never the half-applied
// middle. The EdgeFailure hook runs before any mutation; when it fails, the
// request is untouched and stays retryable.
func (s *MemoryStore) AcceptRequest(ctx context.Context, to, requestID uuid.UUID) (*models.FriendRequest, error) {
	// Peek at the sender so the pair locks can be ordered.
	s.stateMu.RLock()
	peek := s.findRequest(to, requestID)
	var from uuid.UUID
	if peek != nil {
		from = peek.From
	}
	s.stateMu.RUnlock()
	if peek == nil {
		return nil, friends.ErrRequestNotFound
	}

	unlock := s.lockPair(from, to)
	defer unlock()

	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	req := s.findRequest(to, requestID)
	if req == nil {
		return nil, friends.ErrRequestNotFound
	}
	if req.Status != models.StatusPending {
		return nil, friends.ErrInvalidTransition
	}

	if s.EdgeFailure != nil {
		if err := s.EdgeFailure(req.From, to); err != nil {
			if s.Logger != nil {
				s.Logger.WithFields(logrus.Fields{
					"request_id": requestID,
					"from":       req.From,
					"to":         to,
				}).Error("edge write failed during accept, request left pending")
			}
			return nil, fmt.Errorf("%w: %v", friends.ErrStorageUnavailable, err)
		}
	}

	req.Status = models.StatusAccepted
	s.setEdge(req.From, to)
	s.setEdge(to, req.From)
	cp := *req
	return &cp, nil
}

func (s *MemoryStore) UpdateRequestStatus(ctx context.Context, to, requestID uuid.UUID, status models.RequestStatus) (*models.FriendRequest, error) {
	if !status.Terminal() {
		return nil, friends.ErrInvalidTransition
	}

	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	req := s.findRequest(to, requestID)
	if req == nil {
		return nil, friends.ErrRequestNotFound
	}
	if req.Status != models.StatusPending {
		return nil, friends.ErrInvalidTransition
	}
	req.Status = status
	cp := *req
	return &cp, nil
}

func (s *MemoryStore) ListFriends(ctx context.Context, user uuid.UUID) ([]uuid.UUID, error) {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return sortedIDs(s.edges[user]), nil
}

func (s *MemoryStore) ListPendingRequests(ctx context.Context, user uuid.UUID) ([]models.FriendRequest, error) {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()

	// Requests are appended in arrival order, which is createdAt order.
	out := []models.FriendRequest{}
	for _, req := range s.requests[user] {
		if req.Status == models.StatusPending {
			out = append(out, *req)
		}
	}
	return out, nil
}

func (s *MemoryStore) FriendSets(ctx context.Context, users []uuid.UUID) (map[uuid.UUID][]uuid.UUID, error) {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()

	sets := make(map[uuid.UUID][]uuid.UUID, len(users))
	for _, u := range users {
		sets[u] = sortedIDs(s.edges[u])
	}
	return sets, nil
}

func (s *MemoryStore) findRequest(to, requestID uuid.UUID) *models.FriendRequest {
	for _, req := range s.requests[to] {
		if req.ID == requestID {
			return req
		}
	}
	return nil
}

func sortedIDs(set map[uuid.UUID]bool) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	// Deterministic order keeps reads reproducible across calls.
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// MemoryDirectory is an in-memory user directory. List iterates users in
// insertion order, which keeps cold-start recommendations deterministic.
type MemoryDirectory struct {
	mu    sync.RWMutex
	users map[uuid.UUID]models.UserSummary
	order []uuid.UUID
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{users: make(map[uuid.UUID]models.UserSummary)}
}

func (d *MemoryDirectory) Add(u models.UserSummary) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.users[u.ID]; !ok {
		d.order = append(d.order, u.ID)
	}
	d.users[u.ID] = u
}

func (d *MemoryDirectory) Remove(id uuid.UUID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.users, id)
}

func (d *MemoryDirectory) FindByID(ctx context.Context, id uuid.UUID) (*models.UserSummary, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[id]
	if !ok {
		return nil, friends.ErrUserNotFound
	}
	return &u, nil
}

func (d *MemoryDirectory) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.UserSummary, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[uuid.UUID]models.UserSummary, len(ids))
	for _, id := range ids {
		if u, ok := d.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

func (d *MemoryDirectory) List(ctx context.Context, exclude uuid.UUID, limit int) ([]models.UserSummary, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := []models.UserSummary{}
	for _, id := range d.order {
		if id == exclude {
			continue
		}
		u, ok := d.users[id]
		if !ok {
			continue
		}
		out = append(out, u)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}
