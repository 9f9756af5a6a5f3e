package catalog

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pingTimeout  = 1 * time.Second
	queryTimeout = 3 * time.Second
	seedTimeout  = 10 * time.Second

	pgForeignKeyCode = "23503"
)

const schema = `
CREATE TABLE IF NOT EXISTS books (
	seq    BIGSERIAL UNIQUE,
	isbn   TEXT PRIMARY KEY,
	author TEXT NOT NULL,
	title  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS book_reviews (
	isbn       TEXT NOT NULL REFERENCES books (isbn) ON DELETE CASCADE,
	username   TEXT NOT NULL,
	review     TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (isbn, username)
);
`

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	return withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, schema)
		return err
	})
}

// Seed inserts books that are not stored yet. Existing rows and their reviews
// are left alone so restarts keep what customers wrote.
func (s *PostgresStore) Seed(ctx context.Context, books []Book) error {
	return withTimeout(ctx, seedTimeout, func(ctx context.Context) error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		for _, b := range books {
			res, err := tx.ExecContext(ctx, `
				INSERT INTO books (isbn, author, title)
				VALUES ($1, $2, $3)
				ON CONFLICT (isbn) DO NOTHING
			`, b.ISBN, b.Author, b.Title)
			if err != nil {
				return err
			}
			if n, _ := res.RowsAffected(); n == 0 {
				continue
			}

			for user, text := range b.Reviews {
				if _, err := tx.ExecContext(ctx, `
					INSERT INTO book_reviews (isbn, username, review)
					VALUES ($1, $2, $3)
				`, b.ISBN, user, text); err != nil {
					return err
				}
			}
		}

		return tx.Commit()
	})
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return withTimeout(ctx, pingTimeout, func(ctx context.Context) error {
		return s.db.PingContext(ctx)
	})
}

func (s *PostgresStore) List(ctx context.Context) ([]Book, error) {
	return s.query(ctx, `TRUE`)
}

func (s *PostgresStore) Get(ctx context.Context, isbn string) (Book, bool, error) {
	books, err := s.query(ctx, `isbn = $1`, isbn)
	if err != nil {
		return Book{}, false, err
	}
	if len(books) == 0 {
		return Book{}, false, nil
	}
	return books[0], true, nil
}

func (s *PostgresStore) ListByAuthor(ctx context.Context, author string) ([]Book, error) {
	return s.query(ctx, `lower(author) = lower($1)`, author)
}

func (s *PostgresStore) ListByTitle(ctx context.Context, title string) ([]Book, error) {
	return s.query(ctx, `lower(title) = lower($1)`, title)
}

func (s *PostgresStore) SearchTitle(ctx context.Context, fragment string) ([]Book, error) {
	// strpos avoids escaping LIKE wildcards in user input.
	return s.query(ctx, `strpos(lower(title), lower($1)) > 0`, fragment)
}

func (s *PostgresStore) PutReview(ctx context.Context, isbn, username, text string) (Book, bool, error) {
	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO book_reviews (isbn, username, review)
			VALUES ($1, $2, $3)
			ON CONFLICT (isbn, username)
			DO UPDATE SET review = EXCLUDED.review, updated_at = now()
		`, isbn, username, text)
		return err
	})
	if isForeignKeyViolation(err) {
		return Book{}, false, nil
	}
	if err != nil {
		return Book{}, false, err
	}
	return s.Get(ctx, isbn)
}

func (s *PostgresStore) DeleteReview(ctx context.Context, isbn, username string) (Book, bool, error) {
	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, `
			DELETE FROM book_reviews
			WHERE isbn = $1 AND username = $2
		`, isbn, username)
		return err
	})
	if err != nil {
		return Book{}, false, err
	}
	return s.Get(ctx, isbn)
}

// query runs a filtered select over books; where is always a constant from
// this file, never user input.
func (s *PostgresStore) query(ctx context.Context, where string, args ...any) ([]Book, error) {
	var out []Book

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		rows, err := s.db.QueryContext(ctx, `
			SELECT isbn, author, title
			FROM books
			WHERE `+where+`
			ORDER BY seq ASC
		`, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = make([]Book, 0, 16)
		for rows.Next() {
			b := Book{Reviews: map[string]string{}}
			if err := rows.Scan(&b.ISBN, &b.Author, &b.Title); err != nil {
				return err
			}
			out = append(out, b)
		}
		if err := rows.Err(); err != nil {
			return err
		}

		return s.attachReviews(ctx, out)
	})

	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) attachReviews(ctx context.Context, books []Book) error {
	if len(books) == 0 {
		return nil
	}

	idx := make(map[string]int, len(books))
	isbns := make([]string, 0, len(books))
	for i, b := range books {
		idx[b.ISBN] = i
		isbns = append(isbns, b.ISBN)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT isbn, username, review
		FROM book_reviews
		WHERE isbn = ANY($1)
	`, isbns)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var isbn, user, text string
		if err := rows.Scan(&isbn, &user, &text); err != nil {
			return err
		}
		if i, ok := idx[isbn]; ok {
			books[i].Reviews[user] = text
		}
	}
	return rows.Err()
}

func withTimeout(parent context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()
	return fn(ctx)
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyCode
}
