// internal/adapter/storage/schema.go

package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4/pgxpool"
)

const (
	uniqueViolation           = "23505"
	invalidTextRepresentation = "22P02"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id                  UUID PRIMARY KEY,
	email               TEXT NOT NULL UNIQUE,
	name                TEXT NOT NULL,
	photo_url           TEXT NOT NULL DEFAULT '',
	password_hash       TEXT NOT NULL,
	latitude            DOUBLE PRECISION,
	longitude           DOUBLE PRECISION,
	location_updated_at TIMESTAMPTZ,
	location_sharing    TEXT NOT NULL DEFAULT 'neighborhood',
	reset_token_hash    TEXT NOT NULL DEFAULT '',
	reset_expires_at    TIMESTAMPTZ,
	created_at          TIMESTAMPTZ NOT NULL,
	updated_at          TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS users_location_updated_at_idx
	ON users (location_updated_at)
	WHERE location_updated_at IS NOT NULL;

CREATE TABLE IF NOT EXISTS mood_entries (
	id         UUID PRIMARY KEY,
	user_id    UUID NOT NULL REFERENCES users (id) ON DELETE CASCADE,
	mood       TEXT NOT NULL,
	activities TEXT[] NOT NULL DEFAULT '{}',
	notes      TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS mood_entries_user_created_idx
	ON mood_entries (user_id, created_at DESC);
`

// EnsureSchema creates the tables the stores use if they do not exist
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("error creating schema: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// isMalformedID reports a value the database could not parse, such as a non-UUID id
func isMalformedID(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == invalidTextRepresentation
}
