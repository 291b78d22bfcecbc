// Package main provides the IntelliDoc API server entrypoint.
package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/spherical-ai/intellidoc/cmd/intellidoc-api/handlers"
	"github.com/spherical-ai/intellidoc/internal/observability"
)

// NewRouter creates the API router with all routes configured.
func NewRouter(logger *observability.Logger, app *application, requestTimeout time.Duration) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(requestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy","service":"intellidoc"}`))
	})

	processingHandler := handlers.NewProcessingHandler(logger, app.Orchestrator)
	jobsHandler := handlers.NewJobsHandler(logger, app.Orchestrator)
	catalogHandler := handlers.NewCatalogHandler(logger, app.Catalog)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/process", processingHandler.Process)

		r.Route("/jobs", func(r chi.Router) {
			r.Post("/", processingHandler.Submit)
			r.Get("/", jobsHandler.List)
			r.Get("/{jobID}/status", jobsHandler.Status)
			r.Get("/{jobID}/result", jobsHandler.Result)
			r.Post("/{jobID}/cancel", jobsHandler.Cancel)
		})

		r.Get("/catalog/types", catalogHandler.ListTypes)
	})

	return r
}
