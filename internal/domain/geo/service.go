// internal/domain/geo/service.go

package geo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

// EarthRadiusKm is the mean Earth radius used by the haversine formula
const EarthRadiusKm = 6371.0

// ErrInvalidCoordinate is returned for latitudes or longitudes outside their valid range
var ErrInvalidCoordinate = errors.New("invalid coordinate")

// Coordinate is a point on the Earth's surface in degrees
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate checks latitude is in [-90,90] and longitude in [-180,180]
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Latitude) || math.IsInf(c.Latitude, 0) || c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("%w: latitude %v", ErrInvalidCoordinate, c.Latitude)
	}
	if math.IsNaN(c.Longitude) || math.IsInf(c.Longitude, 0) || c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("%w: longitude %v", ErrInvalidCoordinate, c.Longitude)
	}
	return nil
}

// Distance calculates the great-circle distance between two coordinates in kilometers
func Distance(a, b Coordinate) (float64, error) {
	if err := a.Validate(); err != nil {
		return 0, err
	}
	if err := b.Validate(); err != nil {
		return 0, err
	}

	lat1 := a.Latitude * math.Pi / 180.0
	lat2 := b.Latitude * math.Pi / 180.0
	dLat := lat2 - lat1
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180.0

	hSin := math.Sin(dLat / 2)
	hSin *= hSin

	vSin := math.Sin(dLon / 2)
	vSin *= vSin

	h := hSin + math.Cos(lat1)*math.Cos(lat2)*vSin

	// Rounding can push h a hair past 1 for antipodal points
	h = math.Min(h, 1)

	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(h)), nil
}

// WithinRadius checks if b lies within radiusKm of a
func WithinRadius(a, b Coordinate, radiusKm float64) (bool, error) {
	d, err := Distance(a, b)
	if err != nil {
		return false, err
	}
	return d <= radiusKm, nil
}

// Candidate is a located user considered for proximity matching
type Candidate struct {
	UserID   string
	Location Coordinate
}

// Match is a candidate within range together with its distance
type Match struct {
	Candidate
	DistanceKm float64
}

// FilterNearby keeps the candidates within radiusKm of origin, nearest first.
// Candidates with invalid coordinates are skipped.
func FilterNearby(origin Coordinate, candidates []Candidate, radiusKm float64) ([]Match, error) {
	if err := origin.Validate(); err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(candidates))
	for _, c := range candidates {
		d, err := Distance(origin, c.Location)
		if err != nil {
			continue
		}
		if d <= radiusKm {
			matches = append(matches, Match{Candidate: c, DistanceKm: d})
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].DistanceKm != matches[j].DistanceKm {
			return matches[i].DistanceKm < matches[j].DistanceKm
		}
		return matches[i].UserID < matches[j].UserID
	})

	return matches, nil
}

// Connection is a nearby user as shown to the requesting user
type Connection struct {
	UserID     string     `json:"user_id"`
	Name       string     `json:"name"`
	PhotoURL   string     `json:"photo_url,omitempty"`
	DistanceKm float64    `json:"distance_km"`
	Location   Coordinate `json:"location"`
	LastSeen   time.Time  `json:"last_seen"`
}

// Service defines the interface for location and proximity services
type Service interface {
	// UpdateLocation records a user's current location
	UpdateLocation(ctx context.Context, userID string, location Coordinate) error

	// FindNearby returns users within radiusKm of the user's last known location
	FindNearby(ctx context.Context, userID string, radiusKm float64) ([]Connection, error)

	// Distance calculates the distance between two coordinates in kilometers
	Distance(a, b Coordinate) (float64, error)
}
