package session

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"go.uber.org/zap"

	"BookShop/pkg/kit"
)

const (
	DefaultCookieName = "bookshop.sid"
	DefaultTTL        = time.Hour

	keyUsername    = "authorization.username"
	keyAccessToken = "authorization.access_token"
)

type Options struct {
	CookieName string
	CookiePath string
	TTL        time.Duration
	Secure     bool
}

// Manager binds sessions to a cookie through scs. scs only writes the cookie
// when a session is modified, so anonymous visitors never receive one.
type Manager struct {
	sm     *scs.SessionManager
	tokens *TokenMaker
	log    *zap.Logger
}

func NewManager(store scs.Store, tokens *TokenMaker, opts Options, log *zap.Logger) *Manager {
	if opts.CookieName == "" {
		opts.CookieName = DefaultCookieName
	}
	if opts.CookiePath == "" {
		opts.CookiePath = "/"
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if log == nil {
		log = zap.NewNop()
	}

	sm := scs.New()
	sm.Store = store
	sm.Lifetime = opts.TTL
	sm.Cookie.Name = opts.CookieName
	sm.Cookie.Path = opts.CookiePath
	sm.Cookie.HttpOnly = true
	sm.Cookie.Secure = opts.Secure
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Persist = true
	sm.ErrorFunc = func(w http.ResponseWriter, r *http.Request, err error) {
		log.Error("session commit failed", zap.Error(err))
		kit.WriteInternal(w, r)
	}

	return &Manager{sm: sm, tokens: tokens, log: log}
}

// Middleware loads the caller's session and attaches its capability view to
// the request context.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return m.sm.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := m.load(r.Context())
		next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), sess)))
	}))
}

func (m *Manager) load(ctx context.Context) *Session {
	s := &Session{ID: m.sm.Token(ctx)}

	username := m.sm.GetString(ctx, keyUsername)
	tok := m.sm.GetString(ctx, keyAccessToken)
	if username == "" || tok == "" {
		return s
	}

	if _, err := m.tokens.Parse(tok); err != nil {
		return s
	}

	s.Authorization = &Authorization{Username: username, AccessToken: tok}
	s.ExpiresAt = m.sm.Deadline(ctx)
	return s
}

// SignIn rotates the session token and stores the sign-in marker. ctx must
// come from a request that passed through Middleware.
func (m *Manager) SignIn(ctx context.Context, username string) error {
	tok, err := m.tokens.New(username, m.sm.Lifetime)
	if err != nil {
		return fmt.Errorf("issue access token: %w", err)
	}

	if err := m.sm.RenewToken(ctx); err != nil {
		return fmt.Errorf("renew session token: %w", err)
	}
	m.sm.Put(ctx, keyUsername, username)
	m.sm.Put(ctx, keyAccessToken, tok)

	if cur := FromContext(ctx); cur != nil {
		*cur = Session{
			ID:            m.sm.Token(ctx),
			Authorization: &Authorization{Username: username, AccessToken: tok},
			ExpiresAt:     m.sm.Deadline(ctx),
		}
	}
	return nil
}

// SignOut destroys the session; scs expires the cookie on commit.
func (m *Manager) SignOut(ctx context.Context) error {
	if err := m.sm.Destroy(ctx); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	if cur := FromContext(ctx); cur != nil {
		*cur = Session{}
	}
	return nil
}
