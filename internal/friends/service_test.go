package friends_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/averyls/mingle/internal/database"
	"github.com/averyls/mingle/internal/friends"
	"github.com/averyls/mingle/internal/models"
)

// spyCache records invalidations so tests can assert cache hygiene on
// graph mutations.
type spyCache struct {
	mu          sync.Mutex
	invalidated []uuid.UUID
}

func (c *spyCache) Get(context.Context, uuid.UUID) ([]models.Recommendation, bool) {
	return nil, false
}
func (c *spyCache) Set(context.Context, uuid.UUID, []models.Recommendation) {}
func (c *spyCache) Invalidate(_ context.Context, users ...uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, users...)
}

type fixture struct {
	store *database.MemoryStore
	dir   *database.MemoryDirectory
	cache *spyCache
	svc   *friends.Service
}

func newFixture(t *testing.T, users ...string) (*fixture, []uuid.UUID) {
	t.Helper()
	f := &fixture{
		store: database.NewMemoryStore(),
		dir:   database.NewMemoryDirectory(),
		cache: &spyCache{},
	}
	f.svc = friends.NewService(f.store, f.dir, f.cache)

	ids := make([]uuid.UUID, len(users))
	for i, name := range users {
		ids[i] = uuid.New()
		f.dir.Add(models.UserSummary{ID: ids[i], Username: name, Email: name + "@example.com"})
	}
	return f, ids
}

func TestSendRequestToSelf(t *testing.T) {
	f, ids := newFixture(t, "alice")
	_, err := f.svc.SendRequest(context.Background(), ids[0], ids[0])
	assert.ErrorIs(t, err, friends.ErrSelfRequest)
}

func TestSendRequestToUnknownUser(t *testing.T) {
	f, ids := newFixture(t, "alice")
	_, err := f.svc.SendRequest(context.Background(), ids[0], uuid.New())
	assert.ErrorIs(t, err, friends.ErrUserNotFound)
}

func TestSendAcceptCreatesSymmetricEdge(t *testing.T) {
	ctx := context.Background()
	f, ids := newFixture(t, "alice", "bob")
	alice, bob := ids[0], ids[1]

	req, err := f.svc.SendRequest(ctx, alice, bob)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, req.Status)

	accepted, err := f.svc.AcceptRequest(ctx, bob, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, accepted.Status)

	ab, err := f.store.AreFriends(ctx, alice, bob)
	require.NoError(t, err)
	ba, err := f.store.AreFriends(ctx, bob, alice)
	require.NoError(t, err)
	assert.True(t, ab, "edge must be visible from alice's side")
	assert.True(t, ba, "edge must be visible from bob's side")

	// Both neighborhoods changed, both caches dropped.
	assert.ElementsMatch(t, []uuid.UUID{alice, bob}, f.cache.invalidated)

	// The request is terminal now.
	_, err = f.svc.AcceptRequest(ctx, bob, req.ID)
	assert.ErrorIs(t, err, friends.ErrInvalidTransition)
}

func TestDuplicatePendingRequest(t *testing.T) {
	ctx := context.Background()
	f, ids := newFixture(t, "alice", "bob")

	_, err := f.svc.SendRequest(ctx, ids[0], ids[1])
	require.NoError(t, err)

	_, err = f.svc.SendRequest(ctx, ids[0], ids[1])
	assert.ErrorIs(t, err, friends.ErrDuplicatePendingRequest)
}

func TestSendRequestWhenAlreadyFriends(t *testing.T) {
	ctx := context.Background()
	f, ids := newFixture(t, "alice", "bob")
	require.NoError(t, f.store.AddFriendEdge(ctx, ids[0], ids[1]))

	_, err := f.svc.SendRequest(ctx, ids[0], ids[1])
	assert.ErrorIs(t, err, friends.ErrAlreadyFriends)
}

func TestRejectLeavesNoEdgeAndAllowsResend(t *testing.T) {
	ctx := context.Background()
	f, ids := newFixture(t, "alice", "bob")
	alice, bob := ids[0], ids[1]

	req, err := f.svc.SendRequest(ctx, alice, bob)
	require.NoError(t, err)

	rejected, err := f.svc.RejectRequest(ctx, bob, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, rejected.Status)

	connected, err := f.store.AreFriends(ctx, alice, bob)
	require.NoError(t, err)
	assert.False(t, connected)

	// A rejected direction is free for a fresh request.
	fresh, err := f.svc.SendRequest(ctx, alice, bob)
	require.NoError(t, err)
	assert.NotEqual(t, req.ID, fresh.ID)

	// The old record stays terminal.
	_, err = f.svc.RejectRequest(ctx, bob, req.ID)
	assert.ErrorIs(t, err, friends.ErrInvalidTransition)
}

func TestRejectUnknownRequest(t *testing.T) {
	f, ids := newFixture(t, "alice")
	_, err := f.svc.RejectRequest(context.Background(), ids[0], uuid.New())
	assert.ErrorIs(t, err, friends.ErrRequestNotFound)
}

func TestRemoveFriendIdempotentAndResend(t *testing.T) {
	ctx := context.Background()
	f, ids := newFixture(t, "alice", "bob")
	alice, bob := ids[0], ids[1]

	req, err := f.svc.SendRequest(ctx, alice, bob)
	require.NoError(t, err)
	_, err = f.svc.AcceptRequest(ctx, bob, req.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.RemoveFriend(ctx, alice, bob))
	// Second removal of an absent edge succeeds.
	require.NoError(t, f.svc.RemoveFriend(ctx, alice, bob))

	for _, pair := range [][2]uuid.UUID{{alice, bob}, {bob, alice}} {
		connected, err := f.store.AreFriends(ctx, pair[0], pair[1])
		require.NoError(t, err)
		assert.False(t, connected)
	}

	// Unfriended pair can reconnect via a fresh request.
	fresh, err := f.svc.SendRequest(ctx, alice, bob)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, fresh.Status)
	assert.NotEqual(t, req.ID, fresh.ID)
}

func TestAcceptLeavesRequestPendingWhenEdgeWriteFails(t *testing.T) {
	ctx := context.Background()
	f, ids := newFixture(t, "alice", "bob")
	alice, bob := ids[0], ids[1]

	req, err := f.svc.SendRequest(ctx, alice, bob)
	require.NoError(t, err)

	f.store.EdgeFailure = func(a, b uuid.UUID) error {
		return assert.AnError
	}
	_, err = f.svc.AcceptRequest(ctx, bob, req.ID)
	require.ErrorIs(t, err, friends.ErrStorageUnavailable)

	// Neither side of the edge exists and the request is still pending.
	connected, err := f.store.AreFriends(ctx, alice, bob)
	require.NoError(t, err)
	assert.False(t, connected)

	pending, err := f.store.ListPendingRequests(ctx, bob)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, req.ID, pending[0].ID)

	// The accept is retryable once the store recovers.
	f.store.EdgeFailure = nil
	_, err = f.svc.AcceptRequest(ctx, bob, req.ID)
	require.NoError(t, err)
	connected, err = f.store.AreFriends(ctx, alice, bob)
	require.NoError(t, err)
	assert.True(t, connected)
}

func TestPendingRequestsOrderedAndResolved(t *testing.T) {
	ctx := context.Background()
	f, ids := newFixture(t, "alice", "bob", "carol", "dave")
	alice := ids[0]

	first, err := f.svc.SendRequest(ctx, ids[1], alice)
	require.NoError(t, err)
	_, err = f.svc.SendRequest(ctx, ids[2], alice)
	require.NoError(t, err)
	third, err := f.svc.SendRequest(ctx, ids[3], alice)
	require.NoError(t, err)

	// Carol's account goes away; her request should be omitted, not fail the read.
	f.dir.Remove(ids[2])

	pending, err := f.svc.PendingRequests(ctx, alice)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first.ID, pending[0].ID)
	assert.Equal(t, "bob", pending[0].From.Username)
	assert.Equal(t, third.ID, pending[1].ID)
	assert.Equal(t, "dave", pending[1].From.Username)
}

func TestFriendsOmitsUnresolvedAccounts(t *testing.T) {
	ctx := context.Background()
	f, ids := newFixture(t, "alice", "bob", "carol")
	alice := ids[0]

	require.NoError(t, f.store.AddFriendEdge(ctx, alice, ids[1]))
	require.NoError(t, f.store.AddFriendEdge(ctx, alice, ids[2]))
	f.dir.Remove(ids[2])

	list, err := f.svc.Friends(ctx, alice)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "bob", list[0].Username)
}

func TestRemoveFriendInvalidatesBothCaches(t *testing.T) {
	ctx := context.Background()
	f, ids := newFixture(t, "alice", "bob")

	require.NoError(t, f.store.AddFriendEdge(ctx, ids[0], ids[1]))
	require.NoError(t, f.svc.RemoveFriend(ctx, ids[0], ids[1]))
	assert.ElementsMatch(t, []uuid.UUID{ids[0], ids[1]}, f.cache.invalidated)
}
