package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

var ErrEmptyISBN = errors.New("seed book without isbn")

// DefaultSeed is the catalog the shop opens with.
func DefaultSeed() []Book {
	return []Book{
		{ISBN: "1", Author: "Chinua Achebe", Title: "Things Fall Apart"},
		{ISBN: "2", Author: "Hans Christian Andersen", Title: "Fairy tales"},
		{ISBN: "3", Author: "Dante Alighieri", Title: "The Divine Comedy"},
		{ISBN: "4", Author: "Unknown", Title: "The Epic Of Gilgamesh"},
		{ISBN: "5", Author: "Unknown", Title: "The Book Of Job"},
		{ISBN: "6", Author: "Unknown", Title: "One Thousand and One Nights"},
		{ISBN: "7", Author: "Unknown", Title: "Njál's Saga"},
		{ISBN: "8", Author: "Jane Austen", Title: "Pride and Prejudice"},
		{ISBN: "9", Author: "Honoré de Balzac", Title: "Le Père Goriot"},
		{ISBN: "10", Author: "Samuel Beckett", Title: "Molloy, Malone Dies, The Unnamable, the trilogy"},
	}
}

// LoadSeed reads a JSON array of books. An empty path yields DefaultSeed.
func LoadSeed(path string) ([]Book, error) {
	if path == "" {
		return DefaultSeed(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}

	var books []Book
	if err := json.Unmarshal(raw, &books); err != nil {
		return nil, fmt.Errorf("decode seed %s: %w", path, err)
	}

	seen := make(map[string]struct{}, len(books))
	for i, b := range books {
		if b.ISBN == "" {
			return nil, fmt.Errorf("%w: entry %d", ErrEmptyISBN, i)
		}
		if _, dup := seen[b.ISBN]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateISBN, b.ISBN)
		}
		seen[b.ISBN] = struct{}{}
	}
	return books, nil
}
