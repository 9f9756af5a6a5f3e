// Package general serves the public catalog queries and registration.
package general

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"BookShop/internal/catalog"
	"BookShop/internal/users"
	"BookShop/pkg/kit"
)

const maxBodyBytes = 1 << 20

const (
	msgNoISBN     = "No book found for the given ISBN"
	msgNoAuthor   = "No books found for the given author"
	msgNoTitle    = "No books found for the given title"
	msgBadBody    = "Invalid request body."
	msgCredsReq   = "Username and password are required."
	msgUserExists = "Username already exists."
	msgPassLong   = "Password is too long."
	msgRegistered = "User registered successfully."

	matchExact = "exact"
)

type Server struct {
	Catalog catalog.Store
	Users   users.Store
	Log     *zap.Logger
	Metrics *kit.Metrics
}

func (s *Server) Routes() http.Handler {
	r := kit.NewRouter()

	r.Get("/", s.list)
	r.Get("/isbn/{isbn}", s.byISBN)
	r.Get("/author/{author}", s.byAuthor)
	r.Get("/title/{title}", s.byTitle)
	r.Post("/register", s.register)

	return r
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	books, err := s.Catalog.List(r.Context())
	if err != nil {
		s.internal(w, r, "list books failed", err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, books)
}

func (s *Server) byISBN(w http.ResponseWriter, r *http.Request) {
	isbn := kit.URLParam(r, "isbn")

	b, ok, err := s.Catalog.Get(r.Context(), isbn)
	if err != nil {
		s.internal(w, r, "get book failed", err, zap.String("isbn", isbn))
		return
	}
	if !ok {
		kit.WriteError(w, r, http.StatusNotFound, msgNoISBN)
		return
	}
	kit.WriteJSON(w, http.StatusOK, b)
}

func (s *Server) byAuthor(w http.ResponseWriter, r *http.Request) {
	author := kit.URLParam(r, "author")

	books, err := s.Catalog.ListByAuthor(r.Context(), author)
	if err != nil {
		s.internal(w, r, "books by author failed", err, zap.String("author", author))
		return
	}
	s.writeBooks(w, r, books, msgNoAuthor)
}

// byTitle does a substring search by default; ?match=exact switches to whole
// title comparison. Both ignore case.
func (s *Server) byTitle(w http.ResponseWriter, r *http.Request) {
	title := kit.URLParam(r, "title")

	var (
		books []catalog.Book
		err   error
	)
	if r.URL.Query().Get("match") == matchExact {
		books, err = s.Catalog.ListByTitle(r.Context(), title)
	} else {
		books, err = s.Catalog.SearchTitle(r.Context(), title)
	}
	if err != nil {
		s.internal(w, r, "books by title failed", err, zap.String("title", title))
		return
	}
	s.writeBooks(w, r, books, msgNoTitle)
}

func (s *Server) writeBooks(w http.ResponseWriter, r *http.Request, books []catalog.Book, notFound string) {
	if len(books) == 0 {
		kit.WriteError(w, r, http.StatusNotFound, notFound)
		return
	}
	kit.WriteJSON(w, http.StatusOK, books)
}

type registerReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req registerReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		kit.WriteError(w, r, http.StatusBadRequest, msgBadBody)
		return
	}

	if req.Username == "" || req.Password == "" {
		s.Metrics.Event("register", "invalid")
		kit.WriteError(w, r, http.StatusBadRequest, msgCredsReq)
		return
	}

	err := s.Users.Create(r.Context(), req.Username, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, users.ErrUsernameExists):
		s.Metrics.Event("register", "conflict")
		kit.WriteError(w, r, http.StatusConflict, msgUserExists)
		return
	case errors.Is(err, users.ErrPasswordTooLong):
		s.Metrics.Event("register", "invalid")
		kit.WriteError(w, r, http.StatusBadRequest, msgPassLong)
		return
	default:
		s.internal(w, r, "register failed", err)
		return
	}

	s.Metrics.Event("register", "ok")
	kit.WriteMessage(w, http.StatusCreated, msgRegistered)
}

func (s *Server) internal(w http.ResponseWriter, r *http.Request, msg string, err error, fields ...zap.Field) {
	if s.Log != nil {
		s.Log.Error(msg, append(fields, zap.Error(err))...)
	}
	kit.WriteInternal(w, r)
}
