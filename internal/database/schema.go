package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema holds the membership service tables. Lookups on non-key fields
// (email, username, owner, plan name) are served by secondary indexes.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id UUID PRIMARY KEY,
	username TEXT NOT NULL,
	email TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	salt TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS users_email_idx ON users (email);
CREATE INDEX IF NOT EXISTS users_username_idx ON users (username);

CREATE TABLE IF NOT EXISTS membership_types (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	price NUMERIC NOT NULL
);
CREATE INDEX IF NOT EXISTS membership_types_name_idx ON membership_types (name);

CREATE TABLE IF NOT EXISTS discounts (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL,
	percentage NUMERIC NOT NULL,
	start_date TIMESTAMPTZ NOT NULL,
	end_date TIMESTAMPTZ NOT NULL,
	is_active BOOLEAN NOT NULL
);
CREATE INDEX IF NOT EXISTS discounts_user_id_idx ON discounts (user_id);

CREATE TABLE IF NOT EXISTS memberships (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL,
	membership_type_id UUID NOT NULL,
	is_active BOOLEAN NOT NULL,
	start_date TIMESTAMPTZ NOT NULL,
	end_date TIMESTAMPTZ NOT NULL,
	price NUMERIC NOT NULL
);
CREATE INDEX IF NOT EXISTS memberships_user_id_idx ON memberships (user_id);
`

// EnsureSchema creates the membership service tables if they do not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}
