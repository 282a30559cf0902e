package database

import (
	"context"
	"fmt"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		username TEXT NOT NULL,
		username_key TEXT NOT NULL,
		display_name TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'USER',
		refresh_token TEXT NOT NULL DEFAULT '',
		refresh_expires_at TIMESTAMPTZ,
		logout_timestamp TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS categories (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		label TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		UNIQUE (user_id, label)
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		category_id BIGINT NOT NULL REFERENCES categories(id),
		label TEXT NOT NULL,
		date DATE NOT NULL,
		amount DOUBLE PRECISION NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL,
		username_key TEXT NOT NULL,
		display_name TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'USER',
		refresh_token TEXT NOT NULL DEFAULT '',
		refresh_expires_at DATETIME,
		logout_timestamp DATETIME,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS categories (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		label TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		UNIQUE (user_id, label)
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		category_id INTEGER NOT NULL REFERENCES categories(id),
		label TEXT NOT NULL,
		date DATE NOT NULL,
		amount REAL NOT NULL,
		created_at DATETIME NOT NULL
	)`,
}

var commonIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS users_username_key_idx ON users (username_key)`,
	`CREATE INDEX IF NOT EXISTS users_refresh_token_idx ON users (refresh_token)`,
	`CREATE INDEX IF NOT EXISTS transactions_user_id_idx ON transactions (user_id)`,
	`CREATE INDEX IF NOT EXISTS transactions_category_id_idx ON transactions (category_id)`,
}

// Migrate creates the schema if it does not exist yet.
func (s *DBService) Migrate(ctx context.Context) error {
	schema := postgresSchema
	if s.driver == DriverSQLite {
		schema = sqliteSchema
	}

	for _, statement := range append(schema, commonIndexes...) {
		if _, err := s.DB.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("could not migrate database: %w", err)
		}
	}
	return nil
}
