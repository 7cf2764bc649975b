package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// The partial unique index on friend_requests is what enforces the
// at-most-one-pending-per-direction invariant at the storage layer; resolved
// requests fall out of the index, so a rejected pair can request again.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id uuid PRIMARY KEY,
		email text UNIQUE NOT NULL,
		password text NOT NULL,
		username text NOT NULL,
		created_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS friendships (
		user_id uuid NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		friend_id uuid NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		created_at timestamptz NOT NULL DEFAULT now(),
		PRIMARY KEY (user_id, friend_id),
		CHECK (user_id <> friend_id)
	)`,
	`CREATE TABLE IF NOT EXISTS friend_requests (
		id uuid PRIMARY KEY,
		from_id uuid NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		to_id uuid NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		status text NOT NULL CHECK (status IN ('pending', 'accepted', 'rejected')),
		created_at timestamptz NOT NULL DEFAULT now(),
		CHECK (from_id <> to_id)
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS friend_requests_pending_uq
		ON friend_requests (from_id, to_id) WHERE status = 'pending'`,
	`CREATE INDEX IF NOT EXISTS friend_requests_inbound_idx
		ON friend_requests (to_id, created_at)`,
}

// Migrate applies the schema. Every statement is idempotent, so this is safe
// to run at each startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	return pgx.BeginTxFunc(ctx, pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, stmt := range schemaStatements {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("applying schema: %w", err)
			}
		}
		return nil
	})
}
