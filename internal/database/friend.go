package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/averyls/mingle/internal/friends"
	"github.com/averyls/mingle/internal/models"
)

// uniqueViolation is the Postgres error code raised when an insert trips a
// unique index, here the partial index on pending friend requests.
const uniqueViolation = "23505"

// storeMaxAttempts bounds retries of transiently failed operations before
// the failure surfaces as ErrStorageUnavailable.
const storeMaxAttempts = 3

// Store is the Postgres-backed relationship graph. Friendship edges are
// stored as two mirrored rows, always written and deleted inside one
// transaction, so no reader ever sees a half-applied edge.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// withRetry runs op up to storeMaxAttempts times, retrying only failures pgx
// reports as safe to retry (e.g. a connection dropped before the statement
// was sent). The final transient failure is wrapped in ErrStorageUnavailable.
func withRetry(ctx context.Context, op func() error) error {
	var err error
	for attempt := 0; attempt < storeMaxAttempts; attempt++ {
		if err = op(); err == nil || !pgconn.SafeToRetry(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 50 * time.Millisecond):
		}
	}
	return fmt.Errorf("%w: %v", friends.ErrStorageUnavailable, err)
}

// AddFriendEdge inserts both directions of the edge in one transaction.
// Re-adding an existing edge is a no-op.
func (s *Store) AddFriendEdge(ctx context.Context, a, b uuid.UUID) error {
	if a == b {
		return friends.ErrSelfRequest
	}
	q := `
		INSERT INTO friendships (user_id, friend_id)
		VALUES ($1, $2), ($2, $1)
		ON CONFLICT DO NOTHING
	`
	return withRetry(ctx, func() error {
		return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
			_, err := tx.Exec(ctx, q, a, b)
			return err
		})
	})
}

// RemoveFriendEdge deletes both directions of the edge in one transaction,
// succeeding even if the edge does not exist.
func (s *Store) RemoveFriendEdge(ctx context.Context, a, b uuid.UUID) error {
	q := `
		DELETE FROM friendships
		WHERE (user_id = $1 AND friend_id = $2)
		   OR (user_id = $2 AND friend_id = $1)
	`
	return withRetry(ctx, func() error {
		return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
			_, err := tx.Exec(ctx, q, a, b)
			return err
		})
	})
}

func (s *Store) AreFriends(ctx context.Context, a, b uuid.UUID) (bool, error) {
	var connected bool
	q := `SELECT EXISTS (SELECT 1 FROM friendships WHERE user_id = $1 AND friend_id = $2)`
	err := withRetry(ctx, func() error {
		return s.pool.QueryRow(ctx, q, a, b).Scan(&connected)
	})
	return connected, err
}

// AppendRequest inserts a pending request. The already-friends check runs in
// the same transaction as the insert so a racing accept cannot slip a request
// in between; the pending-uniqueness invariant is enforced by the partial
// unique index.
func (s *Store) AppendRequest(ctx context.Context, req *models.FriendRequest) error {
	return withRetry(ctx, func() error {
		err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
			var connected bool
			checkQ := `SELECT EXISTS (SELECT 1 FROM friendships WHERE user_id = $1 AND friend_id = $2)`
			if err := tx.QueryRow(ctx, checkQ, req.From, req.To).Scan(&connected); err != nil {
				return err
			}
			if connected {
				return friends.ErrAlreadyFriends
			}

			insertQ := `
				INSERT INTO friend_requests (id, from_id, to_id, status, created_at)
				VALUES ($1, $2, $3, $4, $5)
			`
			_, err := tx.Exec(ctx, insertQ, req.ID, req.From, req.To, req.Status, req.CreatedAt)
			return err
		})

		if isUniqueViolation(err) {
			return friends.ErrDuplicatePendingRequest
		}
		return err
	})
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// AcceptRequest flips the request to accepted and writes both edge rows in a
// single transaction. If anything fails the transaction rolls back and the
// request is still pending, so the caller can retry.
func (s *Store) AcceptRequest(ctx context.Context, to, requestID uuid.UUID) (*models.FriendRequest, error) {
	req := &models.FriendRequest{ID: requestID, To: to, Status: models.StatusAccepted}
	err := withRetry(ctx, func() error {
		return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
			updateQ := `
				UPDATE friend_requests
				SET status = 'accepted'
				WHERE id = $1 AND to_id = $2 AND status = 'pending'
				RETURNING from_id, created_at
			`
			err := tx.QueryRow(ctx, updateQ, requestID, to).Scan(&req.From, &req.CreatedAt)
			if errors.Is(err, pgx.ErrNoRows) {
				return requestLookupError(ctx, tx, to, requestID)
			}
			if err != nil {
				return err
			}

			edgeQ := `
				INSERT INTO friendships (user_id, friend_id)
				VALUES ($1, $2), ($2, $1)
				ON CONFLICT DO NOTHING
			`
			_, err = tx.Exec(ctx, edgeQ, req.From, to)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// UpdateRequestStatus transitions a pending request to a terminal status
// without touching edges. Used for rejection.
func (s *Store) UpdateRequestStatus(ctx context.Context, to, requestID uuid.UUID, status models.RequestStatus) (*models.FriendRequest, error) {
	if !status.Terminal() {
		return nil, friends.ErrInvalidTransition
	}
	req := &models.FriendRequest{ID: requestID, To: to, Status: status}
	err := withRetry(ctx, func() error {
		return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
			q := `
				UPDATE friend_requests
				SET status = $3
				WHERE id = $1 AND to_id = $2 AND status = 'pending'
				RETURNING from_id, created_at
			`
			err := tx.QueryRow(ctx, q, requestID, to, status).Scan(&req.From, &req.CreatedAt)
			if errors.Is(err, pgx.ErrNoRows) {
				return requestLookupError(ctx, tx, to, requestID)
			}
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// requestLookupError distinguishes a missing request from one that is
// already terminal, after a conditional update matched no rows.
func requestLookupError(ctx context.Context, tx pgx.Tx, to, requestID uuid.UUID) error {
	var status models.RequestStatus
	q := `SELECT status FROM friend_requests WHERE id = $1 AND to_id = $2`
	err := tx.QueryRow(ctx, q, requestID, to).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return friends.ErrRequestNotFound
	}
	if err != nil {
		return err
	}
	return friends.ErrInvalidTransition
}

func (s *Store) ListFriends(ctx context.Context, user uuid.UUID) ([]uuid.UUID, error) {
	q := `
		SELECT friend_id FROM friendships
		WHERE user_id = $1
		ORDER BY created_at, friend_id
	`
	var ids []uuid.UUID
	err := withRetry(ctx, func() error {
		rows, err := s.pool.Query(ctx, q, user)
		if err != nil {
			return err
		}
		defer rows.Close()

		ids = ids[:0]
		for rows.Next() {
			var id uuid.UUID
			if err := rows.Scan(&id); err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *Store) ListPendingRequests(ctx context.Context, user uuid.UUID) ([]models.FriendRequest, error) {
	q := `
		SELECT id, from_id, to_id, status, created_at
		FROM friend_requests
		WHERE to_id = $1 AND status = 'pending'
		ORDER BY created_at ASC, id
	`
	var reqs []models.FriendRequest
	err := withRetry(ctx, func() error {
		rows, err := s.pool.Query(ctx, q, user)
		if err != nil {
			return err
		}
		defer rows.Close()

		reqs = reqs[:0]
		for rows.Next() {
			var r models.FriendRequest
			if err := rows.Scan(&r.ID, &r.From, &r.To, &r.Status, &r.CreatedAt); err != nil {
				return err
			}
			reqs = append(reqs, r)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return reqs, nil
}

// FriendSets fetches the friend set of every given user in one query, for
// the recommender's second-hop read.
func (s *Store) FriendSets(ctx context.Context, users []uuid.UUID) (map[uuid.UUID][]uuid.UUID, error) {
	sets := make(map[uuid.UUID][]uuid.UUID, len(users))
	for _, u := range users {
		sets[u] = nil
	}
	if len(users) == 0 {
		return sets, nil
	}

	q := `SELECT user_id, friend_id FROM friendships WHERE user_id = ANY($1)`
	err := withRetry(ctx, func() error {
		rows, err := s.pool.Query(ctx, q, users)
		if err != nil {
			return err
		}
		defer rows.Close()

		for k := range sets {
			sets[k] = nil
		}
		for rows.Next() {
			var owner, friend uuid.UUID
			if err := rows.Scan(&owner, &friend); err != nil {
				return err
			}
			sets[owner] = append(sets[owner], friend)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return sets, nil
}
