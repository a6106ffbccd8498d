package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/moodstory/internal/models"
	"github.com/snappy-loop/moodstory/internal/processor"
)

const missingQueryMessage = "Missing 'query' in request data"

// StoryRunner runs the story pipeline. Implemented by processor.StoryProcessor.
type StoryRunner interface {
	Run(ctx context.Context, prompt string, progress processor.ProgressFunc) (*models.StoryResult, error)
}

// Handler contains all HTTP handlers
type Handler struct {
	stories StoryRunner
}

// NewHandler creates a new handler
func NewHandler(stories StoryRunner) *Handler {
	return &Handler{stories: stories}
}

// GenerateStory handles POST /api/generate-story
func (h *Handler) GenerateStory(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateStoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeStoryError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		writeStoryError(w, http.StatusBadRequest, missingQueryMessage)
		return
	}

	result, err := h.stories.Run(r.Context(), query, nil)
	if err != nil {
		log.Error().Err(err).Msg("Story generation aborted")
		writeStoryError(w, http.StatusInternalServerError, "story generation aborted")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Health handles GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.HealthResponse{Status: "ok", Message: "API is running"})
}

// CORS allows the browser frontend to call the API from another origin.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func writeStoryError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, models.ErrorResponse{Success: false, Message: message})
}
