package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// DB wraps the Postgres connection pool
type DB struct {
	*sql.DB
}

// NewDB opens and pings a Postgres database
func NewDB(databaseURL string) (*DB, error) {
	sqlDB, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &DB{DB: sqlDB}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS feedback_labels (
	seq             BIGSERIAL,
	id              TEXT PRIMARY KEY,
	request_id      TEXT NOT NULL,
	tenant_id       TEXT NOT NULL DEFAULT '',
	reviewer_id     TEXT NOT NULL DEFAULT '',
	actual_label    SMALLINT NOT NULL,
	predicted_label SMALLINT NOT NULL,
	false_positive  BOOLEAN NOT NULL,
	false_negative  BOOLEAN NOT NULL,
	confidence      DOUBLE PRECISION NOT NULL,
	notes           TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS feedback_labels_request_idx ON feedback_labels (request_id);
CREATE INDEX IF NOT EXISTS feedback_labels_tenant_idx ON feedback_labels (tenant_id);

CREATE TABLE IF NOT EXISTS training_job_events (
	id          TEXT PRIMARY KEY,
	job_id      TEXT NOT NULL,
	at          TIMESTAMPTZ NOT NULL,
	from_status TEXT,
	to_status   TEXT NOT NULL,
	reason      TEXT NOT NULL,
	meta_json   JSONB
);
CREATE INDEX IF NOT EXISTS training_job_events_job_idx ON training_job_events (job_id, at);
`

// EnsureSchema creates the tables used by the repositories
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
