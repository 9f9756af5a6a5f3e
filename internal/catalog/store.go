package catalog

import (
	"context"
	"maps"
)

type Book struct {
	ISBN    string            `json:"isbn"`
	Author  string            `json:"author"`
	Title   string            `json:"title"`
	Reviews map[string]string `json:"reviews"`
}

func (b Book) clone() Book {
	out := b
	out.Reviews = make(map[string]string, len(b.Reviews))
	maps.Copy(out.Reviews, b.Reviews)
	return out
}

// Store lists books in seed insertion order. The bool results report whether
// the ISBN exists.
type Store interface {
	Ping(ctx context.Context) error

	List(ctx context.Context) ([]Book, error)
	Get(ctx context.Context, isbn string) (Book, bool, error)
	ListByAuthor(ctx context.Context, author string) ([]Book, error)
	ListByTitle(ctx context.Context, title string) ([]Book, error)
	SearchTitle(ctx context.Context, fragment string) ([]Book, error)

	PutReview(ctx context.Context, isbn, username, text string) (Book, bool, error)
	DeleteReview(ctx context.Context, isbn, username string) (Book, bool, error)
}
