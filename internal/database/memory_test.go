package database

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/averyls/mingle/internal/models"
)

// TestMemoryStoreSymmetryUnderConcurrency hammers a small user set with
// concurrent edge additions and removals, then checks that every surviving
// edge is present in both directions.
func TestMemoryStoreSymmetryUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	users := make([]uuid.UUID, 6)
	for i := range users {
		users[i] = uuid.New()
	}

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(seed int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				a := users[(seed+i)%len(users)]
				b := users[(seed+i*3+1)%len(users)]
				if a == b {
					continue
				}
				if i%3 == 0 {
					_ = store.RemoveFriendEdge(ctx, a, b)
				} else {
					_ = store.AddFriendEdge(ctx, a, b)
				}
			}
		}(w)
	}
	wg.Wait()

	sets, err := store.FriendSets(ctx, users)
	require.NoError(t, err)
	for owner, friendIDs := range sets {
		for _, f := range friendIDs {
			reverse, err := store.AreFriends(ctx, f, owner)
			require.NoError(t, err)
			assert.True(t, reverse, "edge %s -> %s has no mirror", owner, f)
		}
	}
}

func TestMemoryStoreRejectsSelfEdge(t *testing.T) {
	store := NewMemoryStore()
	u := uuid.New()
	err := store.AddFriendEdge(context.Background(), u, u)
	assert.Error(t, err)
}

func TestMemoryStoreAddEdgeIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	a, b := uuid.New(), uuid.New()

	require.NoError(t, store.AddFriendEdge(ctx, a, b))
	require.NoError(t, store.AddFriendEdge(ctx, a, b))

	ids, err := store.ListFriends(ctx, a)
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}

func TestMemoryStorePendingOrderIsArrivalOrder(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	to := uuid.New()

	base := time.Now()
	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		req := &models.FriendRequest{
			ID:        uuid.New(),
			From:      uuid.New(),
			To:        to,
			Status:    models.StatusPending,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, store.AppendRequest(ctx, req))
		ids = append(ids, req.ID)
	}

	pending, err := store.ListPendingRequests(ctx, to)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	for i, req := range pending {
		assert.Equal(t, ids[i], req.ID)
	}
}

// TestMemoryStoreConcurrentSendsSinglePending races duplicate sends for the
// same direction; exactly one may win.
func TestMemoryStoreConcurrentSendsSinglePending(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	from, to := uuid.New(), uuid.New()

	var wg sync.WaitGroup
	errs := make([]error, 16)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = store.AppendRequest(ctx, &models.FriendRequest{
				ID:        uuid.New(),
				From:      from,
				To:        to,
				Status:    models.StatusPending,
				CreatedAt: time.Now(),
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded)

	pending, err := store.ListPendingRequests(ctx, to)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

// TestMemoryStoreConcurrentAccepts races accepts of the same request; one
// wins, the rest observe the terminal state, and the edge exists once.
func TestMemoryStoreConcurrentAccepts(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	from, to := uuid.New(), uuid.New()

	req := &models.FriendRequest{
		ID:        uuid.New(),
		From:      from,
		To:        to,
		Status:    models.StatusPending,
		CreatedAt: time.Now(),
	}
	require.NoError(t, store.AppendRequest(ctx, req))

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = store.AcceptRequest(ctx, to, req.ID)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded)

	connected, err := store.AreFriends(ctx, from, to)
	require.NoError(t, err)
	assert.True(t, connected)

	ids, err := store.ListFriends(ctx, to)
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}

// TestMemoryStoreAcceptAtomicToReaders holds an accept open at the edge write
// and reads from another goroutine. The reader must never see the request
// resolved while the friendship is still absent.
func TestMemoryStoreAcceptAtomicToReaders(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	from, to := uuid.New(), uuid.New()

	req := &models.FriendRequest{
		ID:        uuid.New(),
		From:      from,
		To:        to,
		Status:    models.StatusPending,
		CreatedAt: time.Now(),
	}
	require.NoError(t, store.AppendRequest(ctx, req))

	entered := make(chan struct{})
	release := make(chan struct{})
	store.EdgeFailure = func(uuid.UUID, uuid.UUID) error {
		close(entered)
		<-release
		return nil
	}

	acceptErr := make(chan error, 1)
	go func() {
		_, err := store.AcceptRequest(ctx, to, req.ID)
		acceptErr <- err
	}()
	<-entered

	type snapshot struct {
		pending   int
		connected bool
		err       error
	}
	reads := make(chan snapshot, 1)
	go func() {
		var snap snapshot
		pending, err := store.ListPendingRequests(ctx, to)
		if err != nil {
			snap.err = err
			reads <- snap
			return
		}
		snap.pending = len(pending)
		snap.connected, snap.err = store.AreFriends(ctx, from, to)
		reads <- snap
	}()

	// Give the reader time to park on the store before letting the accept
	// finish.
	time.Sleep(10 * time.Millisecond)
	close(release)

	require.NoError(t, <-acceptErr)
	snap := <-reads
	require.NoError(t, snap.err)
	if snap.pending == 0 {
		assert.True(t, snap.connected, "request resolved but edge absent")
	} else {
		assert.False(t, snap.connected, "edge present while request still pending")
	}

	connected, err := store.AreFriends(ctx, from, to)
	require.NoError(t, err)
	assert.True(t, connected)
}
