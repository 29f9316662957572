package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/prensa-app/prensa/internal/models"
	"github.com/prensa-app/prensa/internal/pipeline"
)

// Runner triggers pipeline runs. Implemented by pipeline.Processor.
type Runner interface {
	Run(ctx context.Context, limit int) (*pipeline.RunSummary, error)
}

// PipelineHandler exposes the run trigger and the operational status view.
type PipelineHandler struct {
	runner     Runner
	items      pipeline.ItemRepository
	procErrors pipeline.ErrorRepository
	maxRetries int
	logger     *slog.Logger

	// Serializes externally triggered runs. The claim query makes concurrent
	// runs safe, but back-to-back manual triggers just burn provider quota.
	runMu sync.Mutex
}

// NewPipelineHandler creates a new pipeline handler.
func NewPipelineHandler(runner Runner, items pipeline.ItemRepository, procErrors pipeline.ErrorRepository, maxRetries int, logger *slog.Logger) *PipelineHandler {
	return &PipelineHandler{
		runner:     runner,
		items:      items,
		procErrors: procErrors,
		maxRetries: maxRetries,
		logger:     logger,
	}
}

type runRequest struct {
	Limit int `json:"limit"`
}

// TriggerRun starts a pipeline run and returns its summary.
// POST /api/pipeline/run {"limit": 25}
func (h *PipelineHandler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req runRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}

	h.runMu.Lock()
	defer h.runMu.Unlock()

	summary, err := h.runner.Run(r.Context(), req.Limit)
	if err != nil {
		h.logger.Error("pipeline run failed", "error", err)
		http.Error(w, "Pipeline run failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// StatusResponse is the operational snapshot of the item queue.
type StatusResponse struct {
	ItemsByStatus    map[models.ItemStatus]int `json:"items_by_status"`
	ExhaustedCount   int                       `json:"exhausted_count"`
	UnresolvedErrors int                       `json:"unresolved_errors"`
}

// Status reports item counts by status plus the permanently-failed backlog.
// GET /api/pipeline/status
func (h *PipelineHandler) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()

	counts, err := h.items.CountByStatus(ctx)
	if err != nil {
		h.logger.Error("failed to count items by status", "error", err)
		http.Error(w, "Failed to load status", http.StatusInternalServerError)
		return
	}

	exhausted, err := h.items.CountExhausted(ctx, h.maxRetries)
	if err != nil {
		h.logger.Error("failed to count exhausted items", "error", err)
		http.Error(w, "Failed to load status", http.StatusInternalServerError)
		return
	}

	unresolved, err := h.procErrors.CountUnresolved(ctx)
	if err != nil {
		h.logger.Error("failed to count unresolved errors", "error", err)
		unresolved = 0
	}

	writeJSON(w, http.StatusOK, StatusResponse{
		ItemsByStatus:    counts,
		ExhaustedCount:   exhausted,
		UnresolvedErrors: unresolved,
	})
}

// ListFailed returns the dead-letter view: items out of retries, with their
// recorded processing errors.
// GET /api/pipeline/failed?limit=50
func (h *PipelineHandler) ListFailed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := parseLimit(r, 50)
	ctx := r.Context()

	items, err := h.items.ListExhausted(ctx, h.maxRetries, limit)
	if err != nil {
		h.logger.Error("failed to list exhausted items", "error", err)
		http.Error(w, "Failed to list failed items", http.StatusInternalServerError)
		return
	}

	errors, err := h.procErrors.List(ctx, limit, true)
	if err != nil {
		h.logger.Error("failed to list processing errors", "error", err)
		http.Error(w, "Failed to list failed items", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items":  items,
		"errors": errors,
		"count":  len(items),
	})
}

func parseLimit(r *http.Request, fallback int) int {
	limitStr := r.URL.Query().Get("limit")
	if limitStr == "" {
		return fallback
	}
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		return fallback
	}
	return limit
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
