package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	eventsadapter "connectr/internal/adapter/events"
	"connectr/internal/adapter/storage/memory"
	"connectr/internal/config"
	"connectr/internal/domain/identity"
	"connectr/internal/security"
	geosvc "connectr/internal/service/geo"
	identitysvc "connectr/internal/service/identity"
	moodsvc "connectr/internal/service/mood"
)

type testAPI struct {
	handler http.Handler
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	store := memory.NewStore()
	pub := eventsadapter.NoopPublisher{}
	log := zerolog.Nop()

	enc, err := security.NewEncryptor("test-key", "test-salt")
	require.NoError(t, err)

	tokens, err := security.NewJWTTokenManager(security.JWTConfig{Secret: "test-secret", TTL: time.Hour})
	require.NoError(t, err)

	hasher := security.NewArgon2Hasher(security.Argon2idParams{Time: 1, Memory: 1024, Threads: 1})

	moods := moodsvc.NewService(store, enc, pub, moodsvc.Config{
		DefaultWindowDays: 7,
		MaxWindowDays:     365,
		MaxNotesLength:    2000,
		MaxActivities:     20,
		EventsTopic:       "mood",
	}, log)

	locations := geosvc.NewProximityService(store, geosvc.NewPrivacyManager(), pub, geosvc.ProximityConfig{
		DefaultRadius: 5,
		MinRadius:     1,
		MaxRadius:     50,
		LocationTTL:   24 * time.Hour,
	}, log)

	users := identitysvc.NewService(store, moods, tokens, hasher, pub, identitysvc.Config{
		ResetTokenExpiry:       time.Hour,
		DefaultLocationSharing: identity.LocationSharingPrecise,
		EventsTopic:            "identity",
	}, log)

	srv := NewServer(config.ServerConfig{
		MaxBodyBytes:   10 * 1024,
		RequestTimeout: 5 * time.Second,
		CorsOrigins:    []string{"*"},
	}, Dependencies{
		Identity:  users,
		Mood:      moods,
		Locations: locations,
		Tokens:    tokens,
	}, log)

	return &testAPI{handler: srv.Handler()}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

// signUp registers and logs in a user, returning its ID and token
func (a *testAPI) signUp(t *testing.T, email string) (string, string) {
	t.Helper()

	rec := a.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":    email,
		"password": "Passw0rdX",
		"name":     "Test User",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = a.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    email,
		"password": "Passw0rdX",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var session struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	return session.User.ID, session.Token
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	rec = api.do(t, http.MethodGet, "/api/v1/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuth(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email": "bad", "password": "x", "name": "A",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var verrs struct {
		Errors []string `json:"errors"`
	}
	decode(t, rec, &verrs)
	assert.Len(t, verrs.Errors, 3)

	_, token := api.signUp(t, "ada@example.com")

	rec = api.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email": "ada@example.com", "password": "Passw0rdX", "name": "Ada Again",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "ada@example.com", "password": "Wrong1Pass",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/v1/moods", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/v1/moods", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/v1/auth/logout", token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/v1/moods", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/v1/auth/reset-password", "", map[string]string{"email": "ghost@example.com"})
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestMoodEndpoints(t *testing.T) {
	api := newTestAPI(t)
	_, token := api.signUp(t, "ada@example.com")

	rec := api.do(t, http.MethodGet, "/api/v1/moods/insights", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	for _, m := range []string{"happy", "Happy", "sad"} {
		rec = api.do(t, http.MethodPost, "/api/v1/moods", token, map[string]interface{}{
			"mood":       m,
			"activities": []string{"walk"},
			"notes":      "private note",
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec = api.do(t, http.MethodPost, "/api/v1/moods", token, map[string]string{"mood": "bored"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/v1/moods?days=7", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var history struct {
		Entries []struct {
			Mood  string `json:"mood"`
			Notes string `json:"notes"`
		} `json:"entries"`
		Window struct {
			Days int `json:"days"`
		} `json:"window"`
	}
	decode(t, rec, &history)
	require.Len(t, history.Entries, 3)
	assert.Equal(t, "private note", history.Entries[0].Notes)
	assert.Equal(t, 7, history.Window.Days)

	rec = api.do(t, http.MethodGet, "/api/v1/moods/statistics", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats struct {
		TotalEntries     int            `json:"total_entries"`
		MoodCounts       map[string]int `json:"mood_counts"`
		MoodPercentages  map[string]int `json:"mood_percentages"`
		MostFrequentMood *string        `json:"most_frequent_mood"`
	}
	decode(t, rec, &stats)
	assert.Equal(t, 3, stats.TotalEntries)
	assert.Equal(t, map[string]int{"Happy": 2, "Sad": 1}, stats.MoodCounts)
	assert.Equal(t, map[string]int{"Happy": 67, "Sad": 33}, stats.MoodPercentages)
	require.NotNil(t, stats.MostFrequentMood)
	assert.Equal(t, "Happy", *stats.MostFrequentMood)

	rec = api.do(t, http.MethodGet, "/api/v1/moods/insights?days=7", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var insight struct {
		Summary        string `json:"summary"`
		Recommendation string `json:"recommendation"`
	}
	decode(t, rec, &insight)
	assert.Equal(t, "Over the past week, you've logged 3 moods.", insight.Summary)
	assert.NotEmpty(t, insight.Recommendation)

	rec = api.do(t, http.MethodGet, "/api/v1/moods/statistics?days=-1", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/v1/moods/statistics?days=abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUserAndGeoEndpoints(t *testing.T) {
	api := newTestAPI(t)
	adaID, adaToken := api.signUp(t, "ada@example.com")
	graceID, graceToken := api.signUp(t, "grace@example.com")

	rec := api.do(t, http.MethodPut, "/api/v1/users/"+adaID+"/location", adaToken, map[string]float64{
		"latitude": 40.7128, "longitude": -74.0060,
	})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = api.do(t, http.MethodPut, "/api/v1/users/"+graceID+"/location", graceToken, map[string]float64{
		"latitude": 40.7138, "longitude": -74.0060,
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = api.do(t, http.MethodPut, "/api/v1/users/"+graceID+"/location", adaToken, map[string]float64{
		"latitude": 0, "longitude": 0,
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(t, http.MethodPut, "/api/v1/users/"+adaID+"/location", adaToken, map[string]float64{
		"latitude": 100, "longitude": 0,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/v1/connections/nearby?radius=5", adaToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var nearby struct {
		Connections []struct {
			UserID     string  `json:"user_id"`
			DistanceKm float64 `json:"distance_km"`
		} `json:"connections"`
	}
	decode(t, rec, &nearby)
	require.Len(t, nearby.Connections, 1)
	assert.Equal(t, graceID, nearby.Connections[0].UserID)
	assert.InDelta(t, 0.11, nearby.Connections[0].DistanceKm, 0.001)

	rec = api.do(t, http.MethodPut, "/api/v1/users/"+graceID+"/sharing", graceToken, map[string]string{"level": "disabled"})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = api.do(t, http.MethodPut, "/api/v1/users/"+graceID+"/sharing", graceToken, map[string]string{"level": "loud"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/v1/connections/nearby", adaToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &nearby)
	assert.Empty(t, nearby.Connections)

	rec = api.do(t, http.MethodGet, "/api/v1/geo/distance?lat1=40.7128&lng1=-74.0060&lat2=34.0522&lng2=-118.2437", adaToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var distance struct {
		DistanceKm float64 `json:"distance_km"`
	}
	decode(t, rec, &distance)
	assert.InDelta(t, 3935.75, distance.DistanceKm, 1)

	rec = api.do(t, http.MethodGet, "/api/v1/geo/distance?lat1=40&lng1=-74", adaToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Profiles of others hide the raw location
	rec = api.do(t, http.MethodGet, "/api/v1/users/"+graceID, adaToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "latitude")

	rec = api.do(t, http.MethodPut, "/api/v1/users/"+adaID, adaToken, map[string]string{
		"name": "Ada King", "email": "ada@example.com",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Ada King")

	rec = api.do(t, http.MethodDelete, "/api/v1/users/"+graceID, adaToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(t, http.MethodDelete, "/api/v1/users/"+adaID, adaToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/v1/users/"+adaID, graceToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNearby_RequiresOwnLocation(t *testing.T) {
	api := newTestAPI(t)
	_, token := api.signUp(t, "ada@example.com")

	rec := api.do(t, http.MethodGet, "/api/v1/connections/nearby", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "location"))
}

func TestBodyLimit(t *testing.T) {
	api := newTestAPI(t)
	_, token := api.signUp(t, "ada@example.com")

	rec := api.do(t, http.MethodPost, "/api/v1/moods", token, map[string]string{
		"mood":  "calm",
		"notes": strings.Repeat("x", 20*1024),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
