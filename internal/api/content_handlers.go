package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/prensa-app/prensa/internal/models"
)

// StoryLister reads recent stories for the admin view.
type StoryLister interface {
	ListRecent(ctx context.Context, limit int) ([]models.Story, error)
}

// SourceLister reads all publisher sources.
type SourceLister interface {
	List(ctx context.Context) ([]models.SourceRecord, error)
}

// TopicLister reads the full topic taxonomy.
type TopicLister interface {
	List(ctx context.Context) ([]models.Topic, error)
}

// ContentHandler exposes read-only views over produced stories, sources and
// topics, for operators checking pipeline output.
type ContentHandler struct {
	stories StoryLister
	sources SourceLister
	topics  TopicLister
	logger  *slog.Logger
}

// NewContentHandler creates a new content handler.
func NewContentHandler(stories StoryLister, sources SourceLister, topics TopicLister, logger *slog.Logger) *ContentHandler {
	return &ContentHandler{stories: stories, sources: sources, topics: topics, logger: logger}
}

// ListStories returns the newest stories.
// GET /api/stories?limit=50
func (h *ContentHandler) ListStories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := parseLimit(r, 50)
	stories, err := h.stories.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list stories", "error", err)
		http.Error(w, "Failed to list stories", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"stories": stories,
		"count":   len(stories),
	})
}

// ListSources returns all publisher sources.
// GET /api/sources
func (h *ContentHandler) ListSources(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sources, err := h.sources.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list sources", "error", err)
		http.Error(w, "Failed to list sources", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sources": sources,
		"count":   len(sources),
	})
}

// ListTopics returns the canonical taxonomy.
// GET /api/topics
func (h *ContentHandler) ListTopics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	topics, err := h.topics.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list topics", "error", err)
		http.Error(w, "Failed to list topics", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"topics": topics,
		"count":  len(topics),
	})
}
