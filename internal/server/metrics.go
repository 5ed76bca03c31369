package server

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the game's Prometheus collectors.
type Metrics struct {
	gatherer prometheus.Gatherer

	Attempts          *prometheus.CounterVec
	SessionsStarted   prometheus.Counter
	SessionsCompleted prometheus.Counter
	DaysTraveled      prometheus.Histogram
	FlagQuizzes       prometheus.Counter
}

// NewMetrics registers the collectors against reg, defaulting to the global
// registry when nil. Registering twice returns the existing collectors.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	attempts, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meimei_attempts_total",
		Help: "Map clicks evaluated against a target, labeled by result.",
	}, []string{"result"}), "meimei_attempts_total")
	if err != nil {
		return nil, err
	}
	started, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "meimei_sessions_started_total",
		Help: "Play-throughs started or restarted.",
	}), "meimei_sessions_started_total")
	if err != nil {
		return nil, err
	}
	completed, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "meimei_sessions_completed_total",
		Help: "Play-throughs that reached completion.",
	}), "meimei_sessions_completed_total")
	if err != nil {
		return nil, err
	}
	days, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "meimei_days_traveled",
		Help:    "Total days traveled at session completion.",
		Buckets: []float64{5, 10, 15, 20, 30, 40, 60, 100},
	}), "meimei_days_traveled")
	if err != nil {
		return nil, err
	}
	quizzes, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "meimei_flag_quizzes_finished_total",
		Help: "Flag minigames played to the last round.",
	}), "meimei_flag_quizzes_finished_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		gatherer:          gatherer,
		Attempts:          attempts,
		SessionsStarted:   started,
		SessionsCompleted: completed,
		DaysTraveled:      days,
		FlagQuizzes:       quizzes,
	}, nil
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T, name string) (T, error) {
	if err := reg.Register(c); err != nil {
		are, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return c, err
		}
		existing, ok := are.ExistingCollector.(T)
		if !ok {
			return c, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return existing, nil
	}
	return c, nil
}
