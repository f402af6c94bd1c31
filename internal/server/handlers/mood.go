// internal/server/handlers/mood.go

package handlers

import (
	"context"
	"errors"
	"net/http"

	"connectr/internal/domain/mood"
	moodsvc "connectr/internal/service/mood"
)

// MoodService is the journal API used by the handlers
type MoodService interface {
	RecordMood(ctx context.Context, userID string, req moodsvc.RecordRequest) (*mood.Entry, error)
	History(ctx context.Context, userID string, days int) ([]mood.Entry, mood.Window, error)
	Statistics(ctx context.Context, userID string, days int) (mood.Statistics, error)
	Insights(ctx context.Context, userID string, days int) (mood.Insight, error)
}

// MoodHandler handles mood journal requests for the authenticated user
type MoodHandler struct {
	service      MoodService
	maxBodyBytes int64
}

// NewMoodHandler creates a new mood handler
func NewMoodHandler(service MoodService, maxBodyBytes int64) *MoodHandler {
	return &MoodHandler{
		service:      service,
		maxBodyBytes: maxBodyBytes,
	}
}

// RecordMood adds an entry to the caller's journal
func (h *MoodHandler) RecordMood(w http.ResponseWriter, r *http.Request) {
	var req moodsvc.RecordRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		if errors.Is(err, mood.ErrUnknownMood) {
			respondWithServiceError(w, r, err)
			return
		}
		respondWithError(w, r, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	entry, err := h.service.RecordMood(r.Context(), callerID(r), req)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, entry)
}

type historyResponse struct {
	Entries []mood.Entry `json:"entries"`
	Window  mood.Window  `json:"window"`
}

// History lists the caller's entries for the requested number of days
func (h *MoodHandler) History(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days", 0)
	if err != nil {
		respondWithError(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}

	entries, window, err := h.service.History(r.Context(), callerID(r), days)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, historyResponse{Entries: entries, Window: window})
}

// Statistics returns the caller's mood counts and percentages
func (h *MoodHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days", 0)
	if err != nil {
		respondWithError(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}

	stats, err := h.service.Statistics(r.Context(), callerID(r), days)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, stats)
}

// Insights returns a written summary of the caller's recent moods
func (h *MoodHandler) Insights(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days", 0)
	if err != nil {
		respondWithError(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}

	insight, err := h.service.Insights(r.Context(), callerID(r), days)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, insight)
}
