// internal/server/handlers/user.go

package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"connectr/internal/domain/geo"
	"connectr/internal/domain/identity"
	identitysvc "connectr/internal/service/identity"
)

// LocationService is the location API used by the handlers
type LocationService interface {
	geo.Service
	UpdateSharing(ctx context.Context, userID string, level identity.LocationSharingLevel) error
}

// UserHandler handles profile, location and sharing requests
type UserHandler struct {
	users        IdentityService
	locations    LocationService
	maxBodyBytes int64
}

// NewUserHandler creates a new user handler
func NewUserHandler(users IdentityService, locations LocationService, maxBodyBytes int64) *UserHandler {
	return &UserHandler{
		users:        users,
		locations:    locations,
		maxBodyBytes: maxBodyBytes,
	}
}

// GetUser returns a user's profile
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	user, err := h.users.GetUser(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	// Other users see the profile without the raw location
	if id != callerID(r) {
		user.Location = nil
		user.LocationUpdatedAt = nil
	}

	respondWithJSON(w, http.StatusOK, user)
}

// UpdateUser edits the caller's profile
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req identitysvc.UpdateProfileRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		respondWithError(w, r, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	user, err := h.users.UpdateUser(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, user)
}

// DeleteUser removes the caller's account
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.users.DeleteUser(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UpdateLocation stores the caller's current position
func (h *UserHandler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := identity.Authorize(r.Context(), id); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	var loc geo.Coordinate
	if err := decodeJSON(w, r, h.maxBodyBytes, &loc); err != nil {
		respondWithError(w, r, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.locations.UpdateLocation(r.Context(), id, loc); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type sharingRequest struct {
	Level identity.LocationSharingLevel `json:"level"`
}

// UpdateSharing changes how precisely the caller's location is shown
func (h *UserHandler) UpdateSharing(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := identity.Authorize(r.Context(), id); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	var req sharingRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		respondWithError(w, r, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.locations.UpdateSharing(r.Context(), id, req.Level); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
