package users

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
)

const (
	pingTimeout  = 1 * time.Second
	queryTimeout = 3 * time.Second
	pgUniqueCode = "23505"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	username   TEXT PRIMARY KEY,
	pass_hash  BYTEA NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

type PostgresStore struct {
	db   *sql.DB
	cost int
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, cost: bcrypt.DefaultCost}
}

// NewPostgresStoreWithCost lets tests trade hash strength for speed.
func NewPostgresStoreWithCost(db *sql.DB, cost int) *PostgresStore {
	return &PostgresStore{db: db, cost: cost}
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	return withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, schema)
		return err
	})
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return withTimeout(ctx, pingTimeout, func(ctx context.Context) error {
		return s.db.PingContext(ctx)
	})
}

func (s *PostgresStore) Create(ctx context.Context, username, password string) error {
	var taken bool
	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		return s.db.QueryRowContext(ctx, `
			SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)
		`, username).Scan(&taken)
	})
	if err != nil {
		return err
	}
	if taken {
		return ErrUsernameExists
	}

	hash, err := hashPassword(password, s.cost)
	if err != nil {
		return err
	}

	return withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO users (username, pass_hash)
			VALUES ($1, $2)
		`, username, hash)

		if err == nil {
			return nil
		}
		if isUniqueViolation(err) {
			return ErrUsernameExists
		}
		return err
	})
}

func (s *PostgresStore) Verify(ctx context.Context, username, password string) (User, error) {
	var u User
	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		return s.db.QueryRowContext(ctx, `
			SELECT username, pass_hash, created_at
			FROM users
			WHERE username = $1
		`, username).Scan(&u.Username, &u.Hash, &u.CreatedAt)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, err
	}

	if err := checkPassword(u.Hash, password); err != nil {
		return User{}, err
	}
	return u, nil
}

func withTimeout(parent context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()
	return fn(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueCode
}
