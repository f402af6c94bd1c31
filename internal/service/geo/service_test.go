package geo

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"connectr/internal/adapter/storage/memory"
	"connectr/internal/domain/events"
	"connectr/internal/domain/geo"
	"connectr/internal/domain/identity"
)

type capturePublisher struct {
	subjects []string
}

func (p *capturePublisher) Publish(subject string, _ events.Event) error {
	p.subjects = append(p.subjects, subject)
	return nil
}

var nyc = geo.Coordinate{Latitude: 40.7128, Longitude: -74.0060}

func newTestProximity(t *testing.T) (*ProximityService, *memory.Store, *capturePublisher, *time.Time) {
	t.Helper()

	store := memory.NewStore()
	pub := &capturePublisher{}
	svc := NewProximityService(store, NewPrivacyManager(), pub, ProximityConfig{
		DefaultRadius: 5,
		MinRadius:     1,
		MaxRadius:     50,
		LocationTTL:   24 * time.Hour,
	}, zerolog.Nop())

	now := time.Date(2024, 5, 8, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	return svc, store, pub, &now
}

func addUser(t *testing.T, store *memory.Store, id string, sharing identity.LocationSharingLevel) {
	t.Helper()
	require.NoError(t, store.CreateUser(context.Background(), identity.User{
		ID:              id,
		Email:           id + "@example.com",
		Name:            "User " + id,
		LocationSharing: sharing,
	}))
}

func TestProximityService_UpdateLocation(t *testing.T) {
	svc, store, pub, now := newTestProximity(t)
	ctx := context.Background()
	addUser(t, store, "a", identity.LocationSharingPrecise)

	require.NoError(t, svc.UpdateLocation(ctx, "a", nyc))

	user, err := store.GetUser(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, user.Location)
	assert.Equal(t, nyc, *user.Location)
	assert.Equal(t, *now, *user.LocationUpdatedAt)
	assert.Equal(t, []string{"location.a.updated"}, pub.subjects)

	err = svc.UpdateLocation(ctx, "a", geo.Coordinate{Latitude: 91})
	assert.ErrorIs(t, err, geo.ErrInvalidCoordinate)

	err = svc.UpdateLocation(ctx, "missing", nyc)
	assert.ErrorIs(t, err, identity.ErrUserNotFound)
}

func TestProximityService_FindNearby(t *testing.T) {
	svc, store, _, now := newTestProximity(t)
	ctx := context.Background()

	addUser(t, store, "me", identity.LocationSharingPrecise)
	addUser(t, store, "close", identity.LocationSharingPrecise)
	addUser(t, store, "hood", identity.LocationSharingNeighborhood)
	addUser(t, store, "far", identity.LocationSharingPrecise)
	addUser(t, store, "hidden", identity.LocationSharingDisabled)
	addUser(t, store, "stale", identity.LocationSharingPrecise)

	start := *now
	*now = start.Add(-48 * time.Hour)
	require.NoError(t, svc.UpdateLocation(ctx, "stale", nyc))
	*now = start

	require.NoError(t, svc.UpdateLocation(ctx, "me", nyc))
	require.NoError(t, svc.UpdateLocation(ctx, "close", geo.Coordinate{Latitude: 40.7138, Longitude: -74.0060}))
	require.NoError(t, svc.UpdateLocation(ctx, "hood", geo.Coordinate{Latitude: 40.7228, Longitude: -74.0060}))
	require.NoError(t, svc.UpdateLocation(ctx, "far", geo.Coordinate{Latitude: 40.8128, Longitude: -74.0060}))
	require.NoError(t, svc.UpdateLocation(ctx, "hidden", nyc))

	connections, err := svc.FindNearby(ctx, "me", 5)
	require.NoError(t, err)
	require.Len(t, connections, 2)

	assert.Equal(t, "close", connections[0].UserID)
	assert.InDelta(t, 0.11, connections[0].DistanceKm, 0.001)
	assert.InDelta(t, 40.7138, connections[0].Location.Latitude, 1e-9)

	assert.Equal(t, "hood", connections[1].UserID)
	assert.InDelta(t, 1.0, connections[1].DistanceKm, 1e-9)
	assert.InDelta(t, 40.72, connections[1].Location.Latitude, 1e-9)
	assert.InDelta(t, -74.01, connections[1].Location.Longitude, 1e-9)

	connections, err = svc.FindNearby(ctx, "me", 20)
	require.NoError(t, err)
	require.Len(t, connections, 3)
	assert.Equal(t, "far", connections[2].UserID)
}

func TestProximityService_FindNearby_LocationUnknown(t *testing.T) {
	svc, store, _, now := newTestProximity(t)
	ctx := context.Background()
	addUser(t, store, "me", identity.LocationSharingPrecise)

	_, err := svc.FindNearby(ctx, "me", 5)
	assert.ErrorIs(t, err, identity.ErrLocationUnknown)

	require.NoError(t, svc.UpdateLocation(ctx, "me", nyc))
	*now = now.Add(25 * time.Hour)

	_, err = svc.FindNearby(ctx, "me", 5)
	assert.ErrorIs(t, err, identity.ErrLocationUnknown)

	_, err = svc.FindNearby(ctx, "missing", 5)
	assert.ErrorIs(t, err, identity.ErrUserNotFound)
}

func TestProximityService_ClampRadius(t *testing.T) {
	svc, _, _, _ := newTestProximity(t)

	assert.Equal(t, 5.0, svc.ClampRadius(0))
	assert.Equal(t, 5.0, svc.ClampRadius(-3))
	assert.Equal(t, 1.0, svc.ClampRadius(0.2))
	assert.Equal(t, 12.5, svc.ClampRadius(12.5))
	assert.Equal(t, 50.0, svc.ClampRadius(500))
}

func TestProximityService_UpdateSharing(t *testing.T) {
	svc, store, _, _ := newTestProximity(t)
	ctx := context.Background()
	addUser(t, store, "a", identity.LocationSharingPrecise)

	require.NoError(t, svc.UpdateSharing(ctx, "a", identity.LocationSharingApproximate))
	user, err := store.GetUser(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, identity.LocationSharingApproximate, user.LocationSharing)

	err = svc.UpdateSharing(ctx, "a", "everyone")
	assert.ErrorIs(t, err, identity.ErrInvalidSharing)
}

func TestProximityService_PruneStaleLocations(t *testing.T) {
	svc, store, _, now := newTestProximity(t)
	ctx := context.Background()
	addUser(t, store, "old", identity.LocationSharingPrecise)
	addUser(t, store, "new", identity.LocationSharingPrecise)

	start := *now
	*now = start.Add(-30 * time.Hour)
	require.NoError(t, svc.UpdateLocation(ctx, "old", nyc))
	*now = start
	require.NoError(t, svc.UpdateLocation(ctx, "new", nyc))

	n, err := svc.PruneStaleLocations(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	old, err := store.GetUser(ctx, "old")
	require.NoError(t, err)
	assert.Nil(t, old.Location)

	fresh, err := store.GetUser(ctx, "new")
	require.NoError(t, err)
	assert.NotNil(t, fresh.Location)
}

func TestPrivacyManager(t *testing.T) {
	p := NewPrivacyManager()
	loc := geo.Coordinate{Latitude: 40.71284, Longitude: -74.00597}

	assert.Equal(t, geo.Coordinate{}, p.ApplyPrivacySettings(loc, identity.LocationSharingDisabled))

	approx := p.ApplyPrivacySettings(loc, identity.LocationSharingApproximate)
	assert.InDelta(t, 40.70, approx.Latitude, 1e-9)
	assert.InDelta(t, -74.00, approx.Longitude, 1e-9)

	// Same input always lands on the same grid point
	assert.Equal(t, approx, p.ApplyPrivacySettings(loc, identity.LocationSharingApproximate))

	assert.True(t, p.ValidatePrivacySetting(identity.LocationSharingNeighborhood))
	assert.False(t, p.ValidatePrivacySetting("public"))
}

func TestPrivacyManager_ReportedDistance(t *testing.T) {
	p := NewPrivacyManager()

	assert.Equal(t, 5.0, p.ReportedDistance(0.4, identity.LocationSharingApproximate))
	assert.Equal(t, 5.0, p.ReportedDistance(2.4, identity.LocationSharingApproximate))
	assert.Equal(t, 10.0, p.ReportedDistance(8, identity.LocationSharingApproximate))
	assert.Equal(t, 1.0, p.ReportedDistance(0.2, identity.LocationSharingNeighborhood))
	assert.Equal(t, 0.01, p.ReportedDistance(0.001, identity.LocationSharingPrecise))
	assert.Equal(t, 0.11, p.ReportedDistance(0.1112, identity.LocationSharingPrecise))
}

func TestProximityService_FindNearby_ApproximateNeverZero(t *testing.T) {
	svc, store, _, _ := newTestProximity(t)
	ctx := context.Background()
	addUser(t, store, "me", identity.LocationSharingPrecise)
	addUser(t, store, "vague", identity.LocationSharingApproximate)

	require.NoError(t, svc.UpdateLocation(ctx, "me", nyc))
	require.NoError(t, svc.UpdateLocation(ctx, "vague", geo.Coordinate{Latitude: 40.7228, Longitude: -74.0060}))

	connections, err := svc.FindNearby(ctx, "me", 5)
	require.NoError(t, err)
	require.Len(t, connections, 1)
	assert.Equal(t, 5.0, connections[0].DistanceKm)
}

func TestPrivacyManager_CoordinatesEncodeCleanly(t *testing.T) {
	p := NewPrivacyManager()
	loc := p.ApplyPrivacySettings(geo.Coordinate{Latitude: 37.77493, Longitude: -122.41942}, identity.LocationSharingPrecise)

	body, err := json.Marshal(loc)
	require.NoError(t, err)
	assert.Contains(t, string(body), "37.7749")
	assert.Contains(t, string(body), "-122.4194")
	assert.NotContains(t, string(body), "0000000")
	assert.NotContains(t, string(body), "9999999")
}
