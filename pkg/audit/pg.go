package audit

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgLogPrefix = "audit:pg"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS command_audit (
	id         BIGSERIAL PRIMARY KEY,
	command    TEXT NOT NULL,
	status     TEXT NOT NULL,
	code       TEXT NOT NULL DEFAULT '',
	message    TEXT NOT NULL DEFAULT '',
	mutating   BOOLEAN NOT NULL,
	duration_ms DOUBLE PRECISION NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS command_audit_created_at_idx ON command_audit (created_at DESC);
`

// PGRecorder is a Recorder backed by Postgres.
type PGRecorder struct {
	pool *pgxpool.Pool
}

// NewPGRecorder creates a PGRecorder and ensures the audit schema exists.
func NewPGRecorder(ctx context.Context, pool *pgxpool.Pool) (*PGRecorder, error) {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return nil, fmt.Errorf("%s - failed to ensure schema: %w", pgLogPrefix, err)
	}
	return &PGRecorder{pool: pool}, nil
}

// Record inserts one audit row.
func (r *PGRecorder) Record(ctx context.Context, entry Entry) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO command_audit (command, status, code, message, mutating, duration_ms)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.Command, entry.Status, entry.Code, entry.Message, entry.Mutating,
		float64(entry.Duration)/float64(time.Millisecond))
	if err != nil {
		return fmt.Errorf("%s - insert failed: %w", pgLogPrefix, err)
	}
	return nil
}

// RecordedEntry is one row read back from the audit trail.
type RecordedEntry struct {
	Command    string    `json:"command"`
	Status     string    `json:"status"`
	Code       string    `json:"code,omitempty"`
	Message    string    `json:"message,omitempty"`
	Mutating   bool      `json:"mutating"`
	DurationMS float64   `json:"durationMs"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Recent returns the most recent audit rows, newest first.
func (r *PGRecorder) Recent(ctx context.Context, limit int) ([]RecordedEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx,
		`SELECT command, status, code, message, mutating, duration_ms, created_at
		 FROM command_audit ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("%s - query failed: %w", pgLogPrefix, err)
	}
	defer rows.Close()

	var entries []RecordedEntry
	for rows.Next() {
		var e RecordedEntry
		if err := rows.Scan(&e.Command, &e.Status, &e.Code, &e.Message, &e.Mutating, &e.DurationMS, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s - scan failed: %w", pgLogPrefix, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Clear truncates the audit trail; the schema is preserved.
func Clear(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, `TRUNCATE command_audit`); err != nil {
		return fmt.Errorf("%s - truncate failed: %w", pgLogPrefix, err)
	}
	return nil
}

// safeDBName matches allowed database names (alphanumeric and underscore
// only).
var safeDBName = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// EnsureDatabase creates the database from databaseURL if it does not exist.
// Call before NewPool when the bridge should auto-create its audit DB on
// platform Postgres.
func EnsureDatabase(ctx context.Context, databaseURL string) error {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return fmt.Errorf("%s - invalid database URL: %w", pgLogPrefix, err)
	}
	dbname := strings.TrimPrefix(u.Path, "/")
	if idx := strings.Index(dbname, "?"); idx >= 0 {
		dbname = dbname[:idx]
	}
	dbname = strings.TrimSpace(dbname)
	if dbname == "" {
		return fmt.Errorf("%s - database name empty in URL", pgLogPrefix)
	}
	if !safeDBName.MatchString(dbname) {
		return fmt.Errorf("%s - database name %q contains invalid characters", pgLogPrefix, dbname)
	}

	postgres := *u
	postgres.Path = "/postgres"
	config, err := pgxpool.ParseConfig(postgres.String())
	if err != nil {
		return fmt.Errorf("%s - failed to parse postgres URL: %w", pgLogPrefix, err)
	}
	config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return fmt.Errorf("%s - failed to connect to postgres: %w", pgLogPrefix, err)
	}
	defer pool.Close()

	var exists bool
	err = pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)`, dbname).Scan(&exists)
	if err != nil && err != pgx.ErrNoRows {
		return fmt.Errorf("%s - failed to check database: %w", pgLogPrefix, err)
	}

	if !exists {
		slog.Info(fmt.Sprintf("%s - Creating database %q", pgLogPrefix, dbname))
		_, err = pool.Exec(ctx, fmt.Sprintf("CREATE DATABASE %s", quoteIdent(dbname)))
		if err != nil {
			return fmt.Errorf("%s - CREATE DATABASE failed: %w", pgLogPrefix, err)
		}
	}
	return nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
