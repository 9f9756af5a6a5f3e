package kit

import (
	"encoding/json"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
)

const msgInternal = "Internal server error"

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteMessage(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, MessageResponse{Message: msg})
}

func WriteError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	WriteJSON(w, status, ErrorResponse{
		Message:   msg,
		RequestID: chimw.GetReqID(r.Context()),
	})
}

// WriteInternal hides the cause from the client; callers log it.
func WriteInternal(w http.ResponseWriter, r *http.Request) {
	WriteError(w, r, http.StatusInternalServerError, msgInternal)
}
