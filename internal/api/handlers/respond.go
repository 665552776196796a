package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/danielokon-py/Tutora/internal/core"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps a typed error onto the shared failure envelope. Raw
// internals never reach the client; the message text stays human-readable.
func writeError(w http.ResponseWriter, err error) {
	status := core.HTTPStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "something went wrong processing the request"
	}
	writeJSON(w, status, map[string]any{"success": false, "message": message})
}

// requestedNotebook extracts the notebook the client scoped the request to;
// empty means "the active notebook".
func requestedNotebook(r *http.Request) string {
	if id := r.Header.Get("X-Notebook-ID"); id != "" {
		return id
	}
	return r.URL.Query().Get("notebook")
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return core.E(core.KindInvalidInput, "invalid request body")
	}
	return nil
}
