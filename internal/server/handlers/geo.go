// internal/server/handlers/geo.go

package handlers

import (
	"net/http"
	"strconv"

	"connectr/internal/domain/geo"
)

// GeoHandler handles proximity-related HTTP requests
type GeoHandler struct {
	service geo.Service
}

// NewGeoHandler creates a new geo handler
func NewGeoHandler(service geo.Service) *GeoHandler {
	return &GeoHandler{
		service: service,
	}
}

type nearbyResponse struct {
	Connections []geo.Connection `json:"connections"`
}

// GetNearbyConnections returns users close to the caller's last known location
func (h *GeoHandler) GetNearbyConnections(w http.ResponseWriter, r *http.Request) {
	var radius float64
	if raw := r.URL.Query().Get("radius"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			respondWithError(w, r, http.StatusBadRequest, "Invalid radius", nil)
			return
		}
		radius = v
	}

	connections, err := h.service.FindNearby(r.Context(), callerID(r), radius)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, nearbyResponse{Connections: connections})
}

// GetDistance returns the great-circle distance between two points
func (h *GeoHandler) GetDistance(w http.ResponseWriter, r *http.Request) {
	var coords [4]float64
	for i, name := range []string{"lat1", "lng1", "lat2", "lng2"} {
		v, err := queryFloat(r, name)
		if err != nil {
			respondWithError(w, r, http.StatusBadRequest, err.Error(), nil)
			return
		}
		coords[i] = v
	}

	from := geo.Coordinate{Latitude: coords[0], Longitude: coords[1]}
	to := geo.Coordinate{Latitude: coords[2], Longitude: coords[3]}

	distance, err := h.service.Distance(from, to)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"from":        from,
		"to":          to,
		"distance_km": distance,
	})
}
