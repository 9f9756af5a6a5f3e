// Package customer serves sign-in, sign-out and the review routes that sit
// behind the session gate.
package customer

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"BookShop/internal/catalog"
	"BookShop/internal/session"
	"BookShop/internal/users"
	"BookShop/pkg/kit"
)

const maxBodyBytes = 1 << 20

const (
	msgBadBody       = "Invalid request body."
	msgCredsReq      = "Username and password are required."
	msgBadLogin      = "Invalid login. Check username and password."
	msgLoggedIn      = "User successfully logged in"
	msgLoggedOut     = "User logged out"
	msgNoISBN        = "No book found for the given ISBN"
	msgReviewReq     = "Review text is required."
	msgReviewSaved   = "Review added or updated successfully."
	msgReviewDeleted = "Review deleted successfully."
)

type Server struct {
	Catalog  catalog.Store
	Users    users.Store
	Sessions *session.Manager
	Log      *zap.Logger
	Metrics  *kit.Metrics
}

// Routes expects to be mounted under the session middleware.
func (s *Server) Routes() http.Handler {
	r := kit.NewRouter()

	r.Post("/login", s.login)
	r.Post("/logout", s.logout)

	r.Route("/auth", func(ar chi.Router) {
		ar.Use(session.Gate)
		ar.Put("/review/{isbn}", s.putReview)
		ar.Delete("/review/{isbn}", s.deleteReview)
	})

	return r
}

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req loginReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		kit.WriteError(w, r, http.StatusBadRequest, msgBadBody)
		return
	}
	if req.Username == "" || req.Password == "" {
		kit.WriteError(w, r, http.StatusBadRequest, msgCredsReq)
		return
	}

	u, err := s.Users.Verify(r.Context(), req.Username, req.Password)
	if errors.Is(err, users.ErrInvalidCredentials) {
		s.Metrics.Event("login", "rejected")
		kit.WriteError(w, r, http.StatusUnauthorized, msgBadLogin)
		return
	}
	if err != nil {
		s.internal(w, r, "verify user failed", err)
		return
	}

	if err := s.Sessions.SignIn(r.Context(), u.Username); err != nil {
		s.internal(w, r, "sign in failed", err)
		return
	}

	s.Metrics.Event("login", "ok")
	kit.WriteMessage(w, http.StatusOK, msgLoggedIn)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if err := s.Sessions.SignOut(r.Context()); err != nil {
		s.internal(w, r, "sign out failed", err)
		return
	}
	kit.WriteMessage(w, http.StatusOK, msgLoggedOut)
}

type reviewResp struct {
	Message string            `json:"message"`
	ISBN    string            `json:"isbn"`
	Reviews map[string]string `json:"reviews"`
}

func (s *Server) putReview(w http.ResponseWriter, r *http.Request) {
	isbn := kit.URLParam(r, "isbn")
	username := session.FromContext(r.Context()).Username()

	text, err := reviewText(w, r)
	if err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, msgBadBody)
		return
	}
	if text == "" {
		kit.WriteError(w, r, http.StatusBadRequest, msgReviewReq)
		return
	}

	b, ok, err := s.Catalog.PutReview(r.Context(), isbn, username, text)
	if err != nil {
		s.internal(w, r, "put review failed", err, zap.String("isbn", isbn))
		return
	}
	if !ok {
		kit.WriteError(w, r, http.StatusNotFound, msgNoISBN)
		return
	}

	s.Metrics.Event("review_put", "ok")
	kit.WriteJSON(w, http.StatusOK, reviewResp{Message: msgReviewSaved, ISBN: b.ISBN, Reviews: b.Reviews})
}

func (s *Server) deleteReview(w http.ResponseWriter, r *http.Request) {
	isbn := kit.URLParam(r, "isbn")
	username := session.FromContext(r.Context()).Username()

	b, ok, err := s.Catalog.DeleteReview(r.Context(), isbn, username)
	if err != nil {
		s.internal(w, r, "delete review failed", err, zap.String("isbn", isbn))
		return
	}
	if !ok {
		kit.WriteError(w, r, http.StatusNotFound, msgNoISBN)
		return
	}

	s.Metrics.Event("review_delete", "ok")
	kit.WriteJSON(w, http.StatusOK, reviewResp{Message: msgReviewDeleted, ISBN: b.ISBN, Reviews: b.Reviews})
}

// reviewText takes ?review= first and falls back to a JSON {"review": ...} body.
func reviewText(w http.ResponseWriter, r *http.Request) (string, error) {
	if q := r.URL.Query().Get("review"); q != "" {
		return q, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var body struct {
		Review string `json:"review"`
	}
	err := json.NewDecoder(r.Body).Decode(&body)
	if errors.Is(err, io.EOF) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return body.Review, nil
}

func (s *Server) internal(w http.ResponseWriter, r *http.Request, msg string, err error, fields ...zap.Field) {
	if s.Log != nil {
		s.Log.Error(msg, append(fields, zap.Error(err))...)
	}
	kit.WriteInternal(w, r)
}
