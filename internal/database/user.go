package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/averyls/mingle/internal/auth"
	"github.com/averyls/mingle/internal/friends"
	"github.com/averyls/mingle/internal/models"
)

// ErrEmailTaken is returned when registration hits the unique email index.
var ErrEmailTaken = errors.New("email already exists")

// Directory is the Postgres-backed user directory: account records plus the
// read-only identity resolution the graph consumes.
type Directory struct {
	pool *pgxpool.Pool
}

func NewDirectory(pool *pgxpool.Pool) *Directory {
	return &Directory{pool: pool}
}

// CreateUser hashes the password and inserts the account. The caller's
// plaintext password field is replaced with the hash.
func (d *Directory) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		id, err := uuid.NewRandom()
		if err != nil {
			return fmt.Errorf("failed to generate user id: %w", err)
		}
		user.ID = id
	}

	hash, err := auth.CreateHash(user.Password, auth.Params)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.Password = hash

	q := `INSERT INTO users (id, email, password, username) VALUES ($1, $2, $3, $4)`
	err = pgx.BeginTxFunc(ctx, d.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, execErr := tx.Exec(ctx, q, user.ID, user.Email, user.Password, user.Username)
		return execErr
	})
	if isUniqueViolation(err) {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// Authenticate checks credentials and returns a signed session token.
func (d *Directory) Authenticate(ctx context.Context, email, password string) (string, error) {
	var u models.User
	q := `SELECT id, password FROM users WHERE email = $1`
	err := d.pool.QueryRow(ctx, q, email).Scan(&u.ID, &u.Password)
	if err != nil {
		return "", fmt.Errorf("user not found or db error: %w", err)
	}

	match, err := auth.ComparePasswordAndHash(password, u.Password)
	if err != nil || !match {
		return "", fmt.Errorf("invalid credentials")
	}

	token, err := auth.CreateJWT(u.ID.String())
	if err != nil {
		return "", fmt.Errorf("failed to create jwt: %w", err)
	}
	return token, nil
}

// FindByID resolves one user to their public summary.
func (d *Directory) FindByID(ctx context.Context, id uuid.UUID) (*models.UserSummary, error) {
	var u models.UserSummary
	q := `SELECT id, username, email FROM users WHERE id = $1`
	err := d.pool.QueryRow(ctx, q, id).Scan(&u.ID, &u.Username, &u.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, friends.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// FindByIDs resolves a batch of ids; missing ids are absent from the result.
func (d *Directory) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.UserSummary, error) {
	out := make(map[uuid.UUID]models.UserSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	q := `SELECT id, username, email FROM users WHERE id = ANY($1)`
	rows, err := d.pool.Query(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var u models.UserSummary
		if err := rows.Scan(&u.ID, &u.Username, &u.Email); err != nil {
			return nil, err
		}
		out[u.ID] = u
	}
	return out, rows.Err()
}

// List returns up to limit users excluding the given id, oldest account
// first. The fixed ordering keeps cold-start recommendations reproducible.
func (d *Directory) List(ctx context.Context, exclude uuid.UUID, limit int) ([]models.UserSummary, error) {
	q := `
		SELECT id, username, email FROM users
		WHERE id <> $1
		ORDER BY created_at, id
		LIMIT $2
	`
	return d.scanSummaries(ctx, q, exclude, limit)
}

// ListUsers returns one page of the directory excluding the caller, plus the
// total count of other users.
func (d *Directory) ListUsers(ctx context.Context, exclude uuid.UUID, page, limit int) ([]models.UserSummary, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	var total int
	countQ := `SELECT count(*) FROM users WHERE id <> $1`
	if err := d.pool.QueryRow(ctx, countQ, exclude).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := `
		SELECT id, username, email FROM users
		WHERE id <> $1
		ORDER BY created_at, id
		LIMIT $2 OFFSET $3
	`
	users, err := d.scanSummaries(ctx, q, exclude, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// Search matches usernames case-insensitively by substring, excluding the caller.
func (d *Directory) Search(ctx context.Context, exclude uuid.UUID, query string) ([]models.UserSummary, error) {
	q := `
		SELECT id, username, email FROM users
		WHERE id <> $1 AND username ILIKE '%' || $2 || '%'
		ORDER BY username, id
	`
	return d.scanSummaries(ctx, q, exclude, query)
}

func (d *Directory) scanSummaries(ctx context.Context, q string, args ...any) ([]models.UserSummary, error) {
	rows, err := d.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []models.UserSummary{}
	for rows.Next() {
		var u models.UserSummary
		if err := rows.Scan(&u.ID, &u.Username, &u.Email); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
