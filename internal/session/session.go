// Package session holds server-side customer sessions and the gate that
// keeps anonymous requests out of the customer area.
package session

import (
	"context"
	"time"
)

// Authorization is the sign-in marker stored in a session.
type Authorization struct {
	Username    string `json:"username"`
	AccessToken string `json:"access_token"`
}

type Session struct {
	ID            string
	Authorization *Authorization
	ExpiresAt     time.Time
}

// Authorized reports whether the session carries a sign-in marker. A nil
// session is anonymous.
func (s *Session) Authorized() bool {
	return s != nil && s.Authorization != nil
}

// Username is empty for anonymous sessions.
func (s *Session) Username() string {
	if !s.Authorized() {
		return ""
	}
	return s.Authorization.Username
}

type ctxKey struct{}

func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(ctxKey{}).(*Session)
	return s
}
