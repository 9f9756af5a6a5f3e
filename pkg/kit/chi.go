package kit

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
)

const unmatchedRoute = "unmatched"

// ChiRoutePattern labels a request by its chi route pattern so that path
// parameters like ISBNs and author names do not explode label cardinality.
func ChiRoutePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return unmatchedRoute
	}
	if rp := rctx.RoutePattern(); rp != "" {
		return rp
	}
	return unmatchedRoute
}

// URLParam returns a decoded path parameter. chi routes on the escaped path
// when the request has one, leaving sequences like %2F in the value.
func URLParam(r *http.Request, key string) string {
	v := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return v
	}
	if dec, err := url.PathUnescape(v); err == nil {
		return dec
	}
	return v
}

const (
	msgRouteNotFound    = "Route not found"
	msgMethodNotAllowed = "Method not allowed"
)

// NewRouter returns a chi router whose fallback responses carry the same JSON
// error body as the handlers.
func NewRouter() *chi.Mux {
	r := chi.NewRouter()
	r.NotFound(NotFound)
	r.MethodNotAllowed(MethodNotAllowed)
	return r
}

func NotFound(w http.ResponseWriter, r *http.Request) {
	WriteError(w, r, http.StatusNotFound, msgRouteNotFound)
}

func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	WriteError(w, r, http.StatusMethodNotAllowed, msgMethodNotAllowed)
}
