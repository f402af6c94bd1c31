// internal/service/geo/service.go

package geo

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"connectr/internal/domain/events"
	"connectr/internal/domain/geo"
	"connectr/internal/domain/identity"
)

// LocationStore defines the storage interface for user locations
type LocationStore interface {
	// GetUser retrieves a user by ID
	GetUser(ctx context.Context, id string) (*identity.User, error)

	// UpdateLocation sets a user's last known location
	UpdateLocation(ctx context.Context, userID string, location geo.Coordinate, at time.Time) error

	// UpdateSharing sets a user's location sharing level
	UpdateSharing(ctx context.Context, userID string, level identity.LocationSharingLevel) error

	// ListLocatedUsers returns users whose location was updated at or after since
	ListLocatedUsers(ctx context.Context, since time.Time) ([]identity.User, error)

	// ClearLocationsBefore forgets locations last updated before the cutoff
	ClearLocationsBefore(ctx context.Context, before time.Time) (int64, error)
}

// ProximityConfig contains configuration for the proximity service
type ProximityConfig struct {
	DefaultRadius float64
	MinRadius     float64
	MaxRadius     float64
	LocationTTL   time.Duration
}

// ProximityService implements the geo.Service interface
type ProximityService struct {
	store     LocationStore
	privacy   *PrivacyManager
	publisher events.Publisher
	config    ProximityConfig
	log       zerolog.Logger
	now       func() time.Time
}

// NewProximityService creates a new proximity service
func NewProximityService(
	store LocationStore,
	privacy *PrivacyManager,
	publisher events.Publisher,
	config ProximityConfig,
	log zerolog.Logger,
) *ProximityService {
	return &ProximityService{
		store:     store,
		privacy:   privacy,
		publisher: publisher,
		config:    config,
		log:       log.With().Str("component", "proximity_service").Logger(),
		now:       time.Now,
	}
}

// UpdateLocation records a user's current location
func (s *ProximityService) UpdateLocation(ctx context.Context, userID string, location geo.Coordinate) error {
	if err := location.Validate(); err != nil {
		return err
	}

	at := s.now().UTC()
	if err := s.store.UpdateLocation(ctx, userID, location, at); err != nil {
		return fmt.Errorf("error updating location: %w", err)
	}

	event := events.Event{
		Type:   events.TypeLocationUpdated,
		UserID: userID,
		Time:   at,
		Data:   location,
	}
	if err := s.publisher.Publish(events.Subject(events.LocationTopic, userID, events.TypeLocationUpdated), event); err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("Failed to publish location event")
	}

	return nil
}

// UpdateSharing changes how precisely a user's location is shown to others
func (s *ProximityService) UpdateSharing(ctx context.Context, userID string, level identity.LocationSharingLevel) error {
	if !s.privacy.ValidatePrivacySetting(level) {
		return fmt.Errorf("%w: %q", identity.ErrInvalidSharing, level)
	}
	if err := s.store.UpdateSharing(ctx, userID, level); err != nil {
		return fmt.Errorf("error updating location sharing: %w", err)
	}
	return nil
}

// FindNearby returns users within radiusKm of the user's last known location, nearest first
func (s *ProximityService) FindNearby(ctx context.Context, userID string, radiusKm float64) ([]geo.Connection, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error getting user: %w", err)
	}

	since := s.now().Add(-s.config.LocationTTL)
	if user.Location == nil || user.LocationUpdatedAt == nil || user.LocationUpdatedAt.Before(since) {
		return nil, identity.ErrLocationUnknown
	}

	radius := s.ClampRadius(radiusKm)

	located, err := s.store.ListLocatedUsers(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("error listing located users: %w", err)
	}

	byID := make(map[string]identity.User, len(located))
	candidates := make([]geo.Candidate, 0, len(located))
	for _, u := range located {
		if u.ID == userID || u.Location == nil || u.LocationSharing == identity.LocationSharingDisabled {
			continue
		}
		byID[u.ID] = u
		candidates = append(candidates, geo.Candidate{UserID: u.ID, Location: *u.Location})
	}

	matches, err := geo.FilterNearby(*user.Location, candidates, radius)
	if err != nil {
		return nil, err
	}

	connections := make([]geo.Connection, 0, len(matches))
	for _, m := range matches {
		u := byID[m.UserID]
		connections = append(connections, geo.Connection{
			UserID:     u.ID,
			Name:       u.Name,
			PhotoURL:   u.PhotoURL,
			DistanceKm: s.privacy.ReportedDistance(m.DistanceKm, u.LocationSharing),
			Location:   s.privacy.ApplyPrivacySettings(m.Location, u.LocationSharing),
			LastSeen:   *u.LocationUpdatedAt,
		})
	}

	s.log.Debug().
		Str("user_id", userID).
		Float64("radius_km", radius).
		Int("candidates", len(candidates)).
		Int("matches", len(connections)).
		Msg("Nearby search")

	return connections, nil
}

// Distance calculates the distance between two coordinates in kilometers
func (s *ProximityService) Distance(a, b geo.Coordinate) (float64, error) {
	return geo.Distance(a, b)
}

// ClampRadius applies the default to a non-positive radius and keeps it within bounds
func (s *ProximityService) ClampRadius(radiusKm float64) float64 {
	if radiusKm <= 0 || math.IsNaN(radiusKm) {
		return s.config.DefaultRadius
	}
	return math.Max(s.config.MinRadius, math.Min(s.config.MaxRadius, radiusKm))
}

// PruneStaleLocations forgets locations older than the configured TTL
func (s *ProximityService) PruneStaleLocations(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.config.LocationTTL)

	n, err := s.store.ClearLocationsBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("error pruning locations: %w", err)
	}

	s.log.Info().Int64("cleared", n).Time("cutoff", cutoff).Msg("Pruned stale locations")
	return n, nil
}

// PrivacyManager reduces location precision according to a user's sharing level
type PrivacyManager struct {
	privacyLevels map[identity.LocationSharingLevel]float64
}

// NewPrivacyManager creates a new privacy manager
func NewPrivacyManager() *PrivacyManager {
	return &PrivacyManager{
		privacyLevels: map[identity.LocationSharingLevel]float64{
			identity.LocationSharingDisabled:     0.0,    // No location sharing
			identity.LocationSharingApproximate:  0.05,   // ~5km precision
			identity.LocationSharingNeighborhood: 0.01,   // ~1km precision
			identity.LocationSharingPrecise:      0.0001, // ~10m precision
		},
	}
}

// ApplyPrivacySettings snaps a location to the grid of the sharing level.
// Unknown levels are treated as neighborhood; disabled yields the zero coordinate.
func (p *PrivacyManager) ApplyPrivacySettings(location geo.Coordinate, level identity.LocationSharingLevel) geo.Coordinate {
	if level == identity.LocationSharingDisabled {
		return geo.Coordinate{}
	}

	precision, ok := p.privacyLevels[level]
	if !ok {
		precision = p.privacyLevels[identity.LocationSharingNeighborhood]
	}

	return geo.Coordinate{
		Latitude:  roundTo(location.Latitude, precision),
		Longitude: roundTo(location.Longitude, precision),
	}
}

// DistancePrecision is the granularity in km at which distances are reported for a level
func (p *PrivacyManager) DistancePrecision(level identity.LocationSharingLevel) float64 {
	switch level {
	case identity.LocationSharingPrecise:
		return 0.01
	case identity.LocationSharingApproximate:
		return 5
	default:
		return 1
	}
}

// ReportedDistance rounds a distance to the level's granularity, never below one unit
func (p *PrivacyManager) ReportedDistance(km float64, level identity.LocationSharingLevel) float64 {
	precision := p.DistancePrecision(level)
	return max(roundTo(km, precision), precision)
}

// ValidatePrivacySetting checks if a privacy setting is valid
func (p *PrivacyManager) ValidatePrivacySetting(level identity.LocationSharingLevel) bool {
	_, valid := p.privacyLevels[level]
	return valid
}

// roundTo snaps v to a multiple of precision, then trims binary noise to the precision's decimal places
func roundTo(v, precision float64) float64 {
	if precision <= 0 {
		return v
	}
	snapped := math.Round(v/precision) * precision

	decimals := int(math.Ceil(-math.Log10(precision) - 1e-9))
	if decimals <= 0 {
		return math.Round(snapped)
	}
	scale := math.Pow10(decimals)
	return math.Round(snapped*scale) / scale
}

var _ geo.Service = (*ProximityService)(nil)
