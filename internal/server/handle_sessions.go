package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/meimei/internal/game"
	"github.com/playperu/meimei/internal/hittest"
	"github.com/playperu/meimei/internal/meimei"
	"github.com/playperu/meimei/internal/session"
)

// SessionResponse is the client view of a play-through. The current target
// is sent without coordinates.
type SessionResponse struct {
	ID                   string        `json:"id"`
	State                game.State    `json:"state"`
	Current              *CatalogEntry `json:"current,omitempty"`
	VisitedIDs           []string      `json:"visitedIds"`
	TargetVisits         int           `json:"targetVisits"`
	Attempts             int           `json:"attempts"`
	CostDays             int           `json:"costDays"`
	TotalDaysTraveled    int           `json:"totalDaysTraveled"`
	ShowingTravelSummary bool          `json:"showingTravelSummary"`
	Complete             bool          `json:"complete"`
}

type ClickRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	// Transform marks X and Y as display coordinates.
	Transform *hittest.Transform `json:"transform,omitempty"`
}

type ClickResponse struct {
	Outcome game.Outcome    `json:"outcome"`
	Session SessionResponse `json:"session"`
}

type ContinueResponse struct {
	Solved          *CatalogEntry   `json:"solved,omitempty"`
	HasNextLocation bool            `json:"hasNextLocation"`
	Complete        bool            `json:"complete"`
	Session         SessionResponse `json:"session"`
}

type PathResponse struct {
	Path []meimei.Point `json:"path"`
}

func sessionResponse(id string, ctl *game.Controller) (SessionResponse, error) {
	st := ctl.Model().Snapshot()
	resp := SessionResponse{
		ID:                   id,
		State:                ctl.State(),
		VisitedIDs:           st.VisitedIDs,
		TargetVisits:         st.TargetVisits,
		Attempts:             len(st.Attempts),
		CostDays:             st.CostDays,
		TotalDaysTraveled:    st.TotalDaysTraveled,
		ShowingTravelSummary: st.ShowingTravelSummary,
		Complete:             st.Complete,
	}
	if resp.VisitedIDs == nil {
		resp.VisitedIDs = []string{}
	}
	if st.CurrentLocationID != "" && !st.Complete {
		loc, err := ctl.Model().Current()
		if err != nil {
			return SessionResponse{}, err
		}
		e := catalogEntry(loc)
		resp.Current = &e
	}
	return resp, nil
}

func handleCreateSession(logger *slog.Logger, sessions *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ls, err := sessions.Create(r.Context())
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		resp, err := sessionResponse(ls.id, ls.ctl)
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, resp)
	}
}

func handleGetSession(logger *slog.Logger, sessions *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var resp SessionResponse
		err := sessions.View(r.Context(), id, func(ctl *game.Controller) (err error) {
			resp, err = sessionResponse(id, ctl)
			return err
		})
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleClick(logger *slog.Logger, sessions *Registry, broker *Broker, metrics *Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ClickRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		id := chi.URLParam(r, "id")
		var resp ClickResponse
		err := sessions.Update(r.Context(), id, func(ctl *game.Controller) error {
			p := meimei.Point{X: req.X, Y: req.Y}
			var (
				out game.Outcome
				err error
			)
			if req.Transform != nil {
				out, err = ctl.ClickDisplay(p, *req.Transform)
			} else {
				out, err = ctl.Click(p)
			}
			if err != nil {
				return err
			}
			resp.Outcome = out
			resp.Session, err = sessionResponse(id, ctl)
			return err
		})
		if errors.Is(err, hittest.ErrInvalidTransform) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}

		switch resp.Outcome.Kind {
		case game.OutcomeRejected, game.OutcomeIgnored:
			writeError(w, http.StatusConflict, "click "+string(resp.Outcome.Kind)+" in state "+string(resp.Session.State))
			return
		case game.OutcomeHit:
			metrics.Attempts.WithLabelValues(string(session.StatusHit)).Inc()
			broker.Publish(id, SessionEvent{
				Type:              EventAttemptHit,
				LocationID:        resp.Outcome.Attempt.LocationID,
				CostDays:          resp.Outcome.Attempt.CostDays,
				TotalDaysTraveled: resp.Outcome.Attempt.TotalDaysTraveled,
			})
		case game.OutcomeMiss:
			metrics.Attempts.WithLabelValues(string(session.StatusMiss)).Inc()
			broker.Publish(id, SessionEvent{
				Type:              EventAttemptMiss,
				LocationID:        resp.Outcome.Attempt.LocationID,
				CostDays:          resp.Outcome.Attempt.CostDays,
				TotalDaysTraveled: resp.Outcome.Attempt.TotalDaysTraveled,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleContinue(logger *slog.Logger, sessions *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var (
			ack  session.AckResult
			resp ContinueResponse
		)
		err := sessions.Update(r.Context(), id, func(ctl *game.Controller) (err error) {
			ack, err = ctl.Continue()
			if err != nil {
				return err
			}
			resp.Session, err = sessionResponse(id, ctl)
			return err
		})
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		if ack.Rejected {
			writeError(w, http.StatusConflict, "nothing to acknowledge")
			return
		}

		resp.HasNextLocation = ack.HasNextLocation
		resp.Complete = ack.Complete
		if ack.Solved != nil {
			e := catalogEntry(*ack.Solved)
			resp.Solved = &e
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleDismissTravel(logger *slog.Logger, sessions *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var dismissed bool
		err := sessions.Update(r.Context(), chi.URLParam(r, "id"), func(ctl *game.Controller) error {
			dismissed = ctl.DismissTravelSummary()
			return nil
		})
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		if !dismissed {
			writeError(w, http.StatusConflict, "travel summary is not showing")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handlePath(logger *slog.Logger, sessions *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var resp PathResponse
		err := sessions.View(r.Context(), chi.URLParam(r, "id"), func(ctl *game.Controller) (err error) {
			resp.Path, err = ctl.Model().VisitedPath()
			return err
		})
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleHint(logger *slog.Logger, sessions *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			circle hittest.Circle
			ok     bool
		)
		err := sessions.View(r.Context(), chi.URLParam(r, "id"), func(ctl *game.Controller) (err error) {
			circle, ok, err = ctl.Hint()
			return err
		})
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		if !ok {
			writeError(w, http.StatusConflict, "no hint available yet")
			return
		}
		writeJSON(w, http.StatusOK, circle)
	}
}

func handleRestart(logger *slog.Logger, sessions *Registry, metrics *Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var resp SessionResponse
		err := sessions.Update(r.Context(), id, func(ctl *game.Controller) error {
			if err := ctl.Start(); err != nil {
				return err
			}
			var err error
			resp, err = sessionResponse(id, ctl)
			return err
		})
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		metrics.SessionsStarted.Inc()
		writeJSON(w, http.StatusOK, resp)
	}
}
