package server

import (
	"context"
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"

	"github.com/playperu/meimei/internal/handler/health"
)

func addRoutes(r chi.Router, logger *slog.Logger, d Deps) {
	checks := map[string]health.Checker{
		"sqlite": health.CheckerFunc(d.DB.PingContext),
		"catalog": health.CheckerFunc(func(context.Context) error {
			return d.Catalog.Validate()
		}),
	}

	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("Mei Mei API", "/openapi.json", "/docs"))
	r.Mount("/healthz", health.NewHandler(logger, checks).Routes())
	r.Handle("/metrics", d.Metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(noStore)

		r.Get("/catalog/{projection}", handleCatalog(d.Catalog))

		r.Post("/sessions", handleCreateSession(logger, d.Sessions))
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", handleGetSession(logger, d.Sessions))
			r.Post("/clicks", handleClick(logger, d.Sessions, d.Broker, d.Metrics))
			r.Post("/continue", handleContinue(logger, d.Sessions))
			r.Post("/travel/dismiss", handleDismissTravel(logger, d.Sessions))
			r.Post("/restart", handleRestart(logger, d.Sessions, d.Metrics))
			r.Get("/path", handlePath(logger, d.Sessions))
			r.Get("/hint", handleHint(logger, d.Sessions))
			r.Get("/events", handleEvents(logger, d.Sessions, d.Broker))
			r.Get("/ws", handleSessionWS(logger, d.Sessions, d.Broker))
		})

		r.Post("/flags", handleStartFlagQuiz(logger, d.Flags))
		r.Get("/flags/{id}", handleGetFlagQuiz(logger, d.Flags))
		r.Post("/flags/{id}/answer", handleFlagAnswer(logger, d.Flags))

		r.Get("/scores/{namespace}", handleTopScores(logger, d.Scores))
		r.Post("/scores/{namespace}", handleAddScore(logger, d.Scores))
		r.With(adminAuthMiddleware(logger, d.Admin)).
			Delete("/scores/{namespace}", handleResetScores(logger, d.Scores))
	})

	if d.SPADir != "" {
		if info, err := os.Stat(d.SPADir); err == nil && info.IsDir() {
			logger.Info("serving SPA", "dir", d.SPADir)
			r.NotFound(handleSPA(d.SPADir))
		}
	}
}
