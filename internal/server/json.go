package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/playperu/meimei/internal/meimei"
)

// ErrUnknownSession is returned for session ids that were never issued or
// have been pruned.
var ErrUnknownSession = errors.New("unknown session")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func readJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeDomainError maps game errors to status codes. A location id the
// catalog does not know is a data mismatch and is logged as a server error.
func writeDomainError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, ErrUnknownSession):
		writeError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, meimei.ErrRejected):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, meimei.ErrNotFound):
		logger.Error("catalog lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	default:
		logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
