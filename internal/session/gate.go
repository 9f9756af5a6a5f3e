package session

import (
	"net/http"

	"BookShop/pkg/kit"
)

const MsgAccessRestricted = "Access restricted! Please sign in to continue."

// Gate lets a request through only when its session is authorized.
func Gate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !FromContext(r.Context()).Authorized() {
			kit.WriteMessage(w, http.StatusUnauthorized, MsgAccessRestricted)
			return
		}
		next.ServeHTTP(w, r)
	})
}
