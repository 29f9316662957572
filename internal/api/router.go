package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/prensa-app/prensa/internal/database"
	"github.com/prensa-app/prensa/internal/pipeline"
)

// Deps carries everything the route table needs.
type Deps struct {
	DB         *sql.DB // nil when running on in-memory storage
	Runner     Runner
	Items      pipeline.ItemRepository
	Inserter   ItemInserter
	ProcErrors pipeline.ErrorRepository
	Stories    StoryLister
	Sources    SourceLister
	Topics     TopicLister
	MaxRetries int
	Metrics    http.Handler
	Logger     *slog.Logger
}

// SetupRoutes configures all API routes.
func SetupRoutes(mux *http.ServeMux, deps Deps) {
	pipelineHandler := NewPipelineHandler(deps.Runner, deps.Items, deps.ProcErrors, deps.MaxRetries, deps.Logger)
	errorHandler := NewProcessingErrorHandler(deps.ProcErrors, deps.Logger)
	itemHandler := NewItemHandler(deps.Inserter, deps.Logger)
	contentHandler := NewContentHandler(deps.Stories, deps.Sources, deps.Topics, deps.Logger)

	mux.HandleFunc("/api/pipeline/run", pipelineHandler.TriggerRun)
	mux.HandleFunc("/api/pipeline/status", pipelineHandler.Status)
	mux.HandleFunc("/api/pipeline/failed", pipelineHandler.ListFailed)

	mux.HandleFunc("/api/items", itemHandler.IngestItems)

	mux.HandleFunc("/api/processing-errors", errorHandler.ListErrors)
	mux.HandleFunc("/api/processing-errors/", errorHandler.ResolveError)

	mux.HandleFunc("/api/stories", contentHandler.ListStories)
	mux.HandleFunc("/api/sources", contentHandler.ListSources)
	mux.HandleFunc("/api/topics", contentHandler.ListTopics)

	mux.HandleFunc("/healthz", healthHandler(deps.DB, deps.Logger))

	if deps.Metrics != nil {
		mux.Handle("/metrics", deps.Metrics)
	}
}

func healthHandler(db *sql.DB, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]interface{}{"status": "ok"}

		if db != nil {
			if err := database.HealthCheck(r.Context(), db); err != nil {
				logger.Error("health check failed", "error", err)
				writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
					"status": "unhealthy",
					"error":  err.Error(),
				})
				return
			}
			resp["database"] = database.Stats(db)
		}

		writeJSON(w, http.StatusOK, resp)
	}
}
