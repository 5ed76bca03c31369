package server

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/playperu/meimei/internal/flagquiz"
	"github.com/playperu/meimei/internal/scores"
)

type FlagQuizResponse struct {
	ID string `json:"id"`
	flagquiz.View
}

type FlagAnswerRequest struct {
	Code string `json:"code"`
}

type FlagAnswerResponse struct {
	Correct bool             `json:"correct"`
	Quiz    FlagQuizResponse `json:"quiz"`
}

// FlagQuizzes holds running flag minigames. A finished quiz records its
// score and is dropped after a grace period so its final view stays
// readable. Abandoned quizzes are swept by RunEviction.
type FlagQuizzes struct {
	flags   []flagquiz.Flag
	rounds  int
	delay   time.Duration
	scores  *scores.Store
	metrics *Metrics
	logger  *slog.Logger
	now     func() time.Time

	mu      sync.Mutex
	quizzes map[string]*liveQuiz
}

type liveQuiz struct {
	ctl      *flagquiz.Controller
	lastUsed time.Time
}

func NewFlagQuizzes(rounds int, delay time.Duration, scoreStore *scores.Store, metrics *Metrics, logger *slog.Logger) *FlagQuizzes {
	return &FlagQuizzes{
		flags:   flagquiz.DefaultFlags,
		rounds:  rounds,
		delay:   delay,
		scores:  scoreStore,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
		quizzes: make(map[string]*liveQuiz),
	}
}

func (q *FlagQuizzes) Start() (string, *flagquiz.Controller, error) {
	model, err := flagquiz.NewModel(q.flags, q.rounds, rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())))
	if err != nil {
		return "", nil, err
	}
	id := uuid.NewString()
	ctl := flagquiz.NewController(model, flagquiz.Options{
		AdvanceDelay: q.delay,
		OnFinished:   func(ev flagquiz.FinishedEvent) { q.finished(id, ev) },
		Logger:       q.logger.With("quiz", id),
	})
	if err := ctl.Start(); err != nil {
		return "", nil, err
	}

	q.mu.Lock()
	q.quizzes[id] = &liveQuiz{ctl: ctl, lastUsed: q.now()}
	q.mu.Unlock()
	return id, ctl, nil
}

func (q *FlagQuizzes) Get(id string) (*flagquiz.Controller, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	lq, ok := q.quizzes[id]
	if !ok {
		return nil, fmt.Errorf("flag quiz %q: %w", id, ErrUnknownSession)
	}
	lq.lastUsed = q.now()
	return lq.ctl, nil
}

// Evict closes and drops quizzes nobody touched for ttl.
func (q *FlagQuizzes) Evict(ttl time.Duration) int {
	cutoff := q.now().Add(-ttl)

	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for id, lq := range q.quizzes {
		if lq.lastUsed.Before(cutoff) {
			lq.ctl.Close()
			delete(q.quizzes, id)
			n++
		}
	}
	return n
}

// RunEviction sweeps idle quizzes every ttl/2 until ctx is done.
func (q *FlagQuizzes) RunEviction(ctx context.Context, ttl time.Duration) error {
	ticker := time.NewTicker(max(ttl/2, time.Second))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		if n := q.Evict(ttl); n > 0 {
			q.logger.Info("evicted idle flag quizzes", "count", n)
		}
	}
}

func (q *FlagQuizzes) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.quizzes)
}

// Close cancels every pending round timer.
func (q *FlagQuizzes) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for id, lq := range q.quizzes {
		lq.ctl.Close()
		delete(q.quizzes, id)
	}
}

func (q *FlagQuizzes) finished(id string, ev flagquiz.FinishedEvent) {
	q.metrics.FlagQuizzes.Inc()
	if q.scores != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := q.scores.Add(ctx, scores.DefaultNamespace, ev.Score); err != nil {
			q.logger.Error("recording flag quiz score", "quiz", id, "error", err)
		}
	}
	time.AfterFunc(time.Minute, func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		if lq, ok := q.quizzes[id]; ok {
			lq.ctl.Close()
			delete(q.quizzes, id)
		}
	})
}

func handleStartFlagQuiz(logger *slog.Logger, quizzes *FlagQuizzes) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ctl, err := quizzes.Start()
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, FlagQuizResponse{ID: id, View: ctl.View()})
	}
}

func handleGetFlagQuiz(logger *slog.Logger, quizzes *FlagQuizzes) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		ctl, err := quizzes.Get(id)
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, FlagQuizResponse{ID: id, View: ctl.View()})
	}
}

func handleFlagAnswer(logger *slog.Logger, quizzes *FlagQuizzes) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req FlagAnswerRequest
		if err := readJSON(r, &req); err != nil || req.Code == "" {
			writeError(w, http.StatusBadRequest, "code is required")
			return
		}

		id := chi.URLParam(r, "id")
		ctl, err := quizzes.Get(id)
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		correct, err := ctl.Answer(req.Code)
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, FlagAnswerResponse{
			Correct: correct,
			Quiz:    FlagQuizResponse{ID: id, View: ctl.View()},
		})
	}
}
