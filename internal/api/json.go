package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

// errResponse is the body of every non-2xx JSON reply.
type errResponse struct {
	Error string `json:"error" validate:"required"`
	Path  string `json:"path,omitempty"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// pathError names the logical object the failure refers to.
func pathError(msg, path string) errResponse {
	return errResponse{Error: msg, Path: path}
}
