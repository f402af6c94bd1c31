// internal/server/handlers/respond.go

package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"connectr/internal/domain/geo"
	"connectr/internal/domain/identity"
	"connectr/internal/domain/mood"
	moodsvc "connectr/internal/service/mood"
	"connectr/internal/validation"
)

// Helper for JSON responses
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Failed to marshal response"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// Helper for error responses
func respondWithError(w http.ResponseWriter, r *http.Request, code int, message string, err error) {
	if err != nil && code >= 500 {
		zerolog.Ctx(r.Context()).Error().
			Err(err).
			Int("status", code).
			Str("path", r.URL.Path).
			Msg(message)
	}

	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithServiceError maps domain errors to HTTP status codes
func respondWithServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verrs *validation.Errors
	if errors.As(err, &verrs) {
		respondWithJSON(w, http.StatusBadRequest, verrs)
		return
	}

	switch {
	case errors.Is(err, mood.ErrUnknownMood),
		errors.Is(err, moodsvc.ErrInvalidEntry),
		errors.Is(err, moodsvc.ErrInvalidWindow),
		errors.Is(err, geo.ErrInvalidCoordinate),
		errors.Is(err, identity.ErrInvalidSharing),
		errors.Is(err, identity.ErrResetTokenInvalid):
		respondWithError(w, r, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, identity.ErrInvalidCredentials),
		errors.Is(err, identity.ErrInvalidToken):
		respondWithError(w, r, http.StatusUnauthorized, err.Error(), nil)
	case errors.Is(err, identity.ErrForbidden):
		respondWithError(w, r, http.StatusForbidden, "Forbidden", nil)
	case errors.Is(err, identity.ErrUserNotFound):
		respondWithError(w, r, http.StatusNotFound, "User not found", nil)
	case errors.Is(err, identity.ErrLocationUnknown),
		errors.Is(err, mood.ErrEmptyWindow):
		respondWithError(w, r, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, identity.ErrEmailTaken):
		respondWithError(w, r, http.StatusConflict, "Email already registered", nil)
	default:
		respondWithError(w, r, http.StatusInternalServerError, "Internal server error", err)
	}
}

// decodeJSON reads a size-limited JSON body into v
func decodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, v interface{}) error {
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	}

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit)
		}
		return err
	}

	return nil
}

// queryInt parses an optional integer query parameter, returning def when absent
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return v, nil
}

// queryFloat parses a float query parameter
func queryFloat(r *http.Request, name string) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, fmt.Errorf("missing %s", name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return v, nil
}
