package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	id SERIAL PRIMARY KEY,
	tenant_id INTEGER NOT NULL,
	conversation_id UUID NOT NULL UNIQUE,
	insent_timestamp TIMESTAMPTZ NOT NULL,
	call_id VARCHAR(255),
	callee_phone_number VARCHAR(255),
	caller_phone_number VARCHAR(255),
	call_start_timestamp TIMESTAMPTZ NOT NULL,
	call_end_timestamp TIMESTAMPTZ NOT NULL,
	call_duration INTEGER,
	customer_id VARCHAR(255),
	customer_details JSONB,
	call_project_id VARCHAR(255),
	call_project_details JSONB,
	crm_date JSONB,
	representative_id VARCHAR(255) NOT NULL,
	representative_name VARCHAR(255) NOT NULL,
	representative_details JSONB,
	conversation_transcript JSONB NOT NULL,
	conversation_summary TEXT,
	tags TEXT[],
	sentiment JSONB,
	resolution_status VARCHAR(50),
	audio_file_id VARCHAR(255),
	audio_file_details JSONB,
	language VARCHAR(50),
	analytics JSONB
);

CREATE TABLE IF NOT EXISTS api_keys (
	id SERIAL PRIMARY KEY,
	username VARCHAR(255) NOT NULL UNIQUE,
	hashed_password VARCHAR(255) NOT NULL
);
`

// Connect opens a Postgres connection pool and verifies it with a
// ping. The handle is passed to repositories rather than held as
// package state.
func Connect(databaseURL string) (*sql.DB, error) {
	conn, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return conn, nil
}

// Migrate creates the conversations and api_keys tables if they do
// not exist yet.
func Migrate(ctx context.Context, conn *sql.DB) error {
	if _, err := conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to run schema migration: %w", err)
	}
	return nil
}
