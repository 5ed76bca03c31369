package server

import (
	"log/slog"
	"net/http"
	"regexp"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/meimei/internal/scores"
)

var namespacePattern = regexp.MustCompile(`^[a-z0-9_]{1,64}$`)

type ScoresResponse struct {
	Namespace string `json:"namespace"`
	Scores    []int  `json:"scores"`
}

type AddScoreRequest struct {
	Score int `json:"score"`
}

func scoreNamespace(w http.ResponseWriter, r *http.Request) (string, bool) {
	ns := chi.URLParam(r, "namespace")
	if !namespacePattern.MatchString(ns) {
		writeError(w, http.StatusBadRequest, "invalid namespace")
		return "", false
	}
	return ns, true
}

func handleTopScores(logger *slog.Logger, store *scores.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ns, ok := scoreNamespace(w, r)
		if !ok {
			return
		}
		top, err := store.Top(r.Context(), ns)
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, ScoresResponse{Namespace: ns, Scores: top})
	}
}

func handleAddScore(logger *slog.Logger, store *scores.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ns, ok := scoreNamespace(w, r)
		if !ok {
			return
		}
		var req AddScoreRequest
		if err := readJSON(r, &req); err != nil || req.Score < 0 {
			writeError(w, http.StatusBadRequest, "score must be a non-negative integer")
			return
		}
		top, err := store.Add(r.Context(), ns, req.Score)
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, ScoresResponse{Namespace: ns, Scores: top})
	}
}

func handleResetScores(logger *slog.Logger, store *scores.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ns, ok := scoreNamespace(w, r)
		if !ok {
			return
		}
		if err := store.Reset(r.Context(), ns); err != nil {
			writeDomainError(w, logger, err)
			return
		}
		logger.Info("scores reset", "namespace", ns)
		w.WriteHeader(http.StatusNoContent)
	}
}
