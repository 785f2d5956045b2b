// Package audit provides an optional Postgres-backed trail of dispatched
// commands. The bridge itself owns no session state; the audit trail is pure
// observability and the server runs without it when no database is
// configured.
package audit

import (
	"context"
	"time"
)

// Entry is one dispatched command.
type Entry struct {
	Command  string
	Status   string
	Code     string
	Message  string
	Mutating bool
	Duration time.Duration
}

// Recorder records dispatched commands.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// NoOpRecorder is a Recorder that drops everything (no database configured).
type NoOpRecorder struct{}

// Record is a no-op.
func (r *NoOpRecorder) Record(_ context.Context, _ Entry) error {
	return nil
}
