package storage

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgconn"
	"github.com/stretchr/testify/assert"

	"connectr/internal/config"
	"connectr/internal/domain/geo"
)

func TestIsUniqueViolation(t *testing.T) {
	dup := &pgconn.PgError{Code: uniqueViolation, ConstraintName: "users_email_key"}
	assert.True(t, isUniqueViolation(dup))
	assert.True(t, isUniqueViolation(fmt.Errorf("insert: %w", dup)))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("boom")))
}

func TestIsMalformedID(t *testing.T) {
	assert.True(t, isMalformedID(fmt.Errorf("scan: %w", &pgconn.PgError{Code: invalidTextRepresentation})))
	assert.False(t, isMalformedID(&pgconn.PgError{Code: uniqueViolation}))
	assert.False(t, isMalformedID(nil))
}

func TestSplitLocation(t *testing.T) {
	lat, lng := splitLocation(nil)
	assert.Nil(t, lat)
	assert.Nil(t, lng)

	lat, lng = splitLocation(&geo.Coordinate{Latitude: 1.5, Longitude: -2.5})
	assert.Equal(t, 1.5, *lat)
	assert.Equal(t, -2.5, *lng)
}

func TestConnString(t *testing.T) {
	got := ConnString(config.DatabaseConfig{
		Host:     "db",
		Port:     5433,
		User:     "app",
		Password: "secret",
		Database: "connectr",
		SSLMode:  "require",
	})
	assert.Equal(t, "postgres://app:secret@db:5433/connectr?sslmode=require", got)
}
