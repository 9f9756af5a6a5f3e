package users

import (
	"context"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUsernameExists     = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrPasswordTooLong    = errors.New("password too long")
)

// MaxPasswordBytes is the bcrypt input limit.
const MaxPasswordBytes = 72

type User struct {
	Username  string
	Hash      []byte
	CreatedAt time.Time
}

// Store keys users by the exact username string; no case folding or trimming.
type Store interface {
	Create(ctx context.Context, username, password string) error
	Verify(ctx context.Context, username, password string) (User, error)
	Ping(ctx context.Context) error
}

func hashPassword(password string, cost int) ([]byte, error) {
	if len(password) > MaxPasswordBytes {
		return nil, ErrPasswordTooLong
	}
	return bcrypt.GenerateFromPassword([]byte(password), cost)
}

func checkPassword(hash []byte, password string) error {
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}
