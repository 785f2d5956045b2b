// Package dispatcher routes decoded commands to handlers: read-only handlers
// run on the calling worker, mutating handlers are serialized onto the host
// loop through the scheduler. Every failure is converted to a structured
// error response here; nothing escapes past the worker boundary.
package dispatcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/soundctl/livebridge/pkg/audit"
	"github.com/soundctl/livebridge/pkg/events"
	"github.com/soundctl/livebridge/pkg/protocol"
	"github.com/soundctl/livebridge/pkg/registry"
	"github.com/soundctl/livebridge/pkg/scheduler"
	"github.com/soundctl/livebridge/pkg/session"
)

const logPrefix = "dispatcher:dispatch"

// Dispatcher classifies and routes commands against the active registry
// snapshot.
type Dispatcher struct {
	store     *registry.Store
	sched     *scheduler.Scheduler
	session   *session.Session
	publisher events.EventPublisher
	recorder  audit.Recorder
	timeout   time.Duration
}

// NewDispatcherParams holds parameters for NewDispatcher. Publisher and
// Recorder may be nil; no-op implementations are substituted.
type NewDispatcherParams struct {
	Store     *registry.Store
	Scheduler *scheduler.Scheduler
	Session   *session.Session
	Publisher events.EventPublisher
	Recorder  audit.Recorder
	Timeout   time.Duration
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(params NewDispatcherParams) *Dispatcher {
	pub := params.Publisher
	if pub == nil {
		pub = &events.NoOpPublisher{}
	}
	rec := params.Recorder
	if rec == nil {
		rec = &audit.NoOpRecorder{}
	}
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{
		store:     params.Store,
		sched:     params.Scheduler,
		session:   params.Session,
		publisher: pub,
		recorder:  rec,
		timeout:   timeout,
	}
}

// Dispatch executes one command and always returns exactly one response.
//
// The registry is checked for staleness first; the snapshot captured here is
// used for the whole dispatch even if a newer one is swapped in meanwhile.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd *protocol.Command) *protocol.Response {
	started := time.Now()
	snap := d.store.ReloadIfChanged()

	entry, err := snap.Lookup(cmd.Type)
	if err != nil {
		return d.finish(ctx, cmd, started, false, nil, err)
	}

	params, err := entry.ValidateParams(cmd.Params)
	if err != nil {
		return d.finish(ctx, cmd, started, entry.Mutating, nil, err)
	}

	slog.Debug(fmt.Sprintf("%s - type=%s mutating=%t", logPrefix, cmd.Type, entry.Mutating))

	var result interface{}
	if entry.Mutating {
		task := d.sched.Submit(func() (interface{}, error) {
			return entry.Invoke(d.session, params)
		})
		result, err = task.Wait(d.timeout)
	} else {
		result, err = d.invokeDirect(entry, params)
	}

	return d.finish(ctx, cmd, started, entry.Mutating, result, err)
}

// invokeDirect runs a read-only handler on the calling worker, converting a
// panic into an error so one request cannot take the worker down.
func (d *Dispatcher) invokeDirect(entry *registry.HandlerEntry, params registry.Params) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error(fmt.Sprintf("%s - handler panic in %s: %v", logPrefix, entry.Type, r))
			err = protocol.Errorf(protocol.CodeInternal, "internal error: %v", r)
		}
	}()
	return entry.Invoke(d.session, params)
}

// finish wraps the outcome into a wire response, records the audit entry and
// publishes a change event for successful mutations.
func (d *Dispatcher) finish(ctx context.Context, cmd *protocol.Command, started time.Time, mutating bool, result interface{}, err error) *protocol.Response {
	var resp *protocol.Response
	if err != nil {
		resp = protocol.ErrorResponse(err)
	} else {
		if result == nil {
			result = map[string]interface{}{}
		}
		resp = protocol.Success(result)
	}

	entry := audit.Entry{
		Command:  cmd.Type,
		Status:   resp.Status,
		Message:  resp.Message,
		Mutating: mutating,
		Duration: time.Since(started),
	}
	if err != nil {
		entry.Code = protocol.CodeOf(err)
	}
	if recErr := d.recorder.Record(ctx, entry); recErr != nil {
		slog.Warn(fmt.Sprintf("%s - audit record failed: %v", logPrefix, recErr))
	}

	if mutating && err == nil {
		event := &events.SessionChangedEvent{
			Command:    cmd.Type,
			Status:     resp.Status,
			TrackCount: d.session.TrackCount(),
			SceneCount: d.session.SceneCount(),
			Tempo:      d.session.Tempo(),
			Timestamp:  time.Now().UTC().Format(time.RFC3339),
		}
		if pubErr := d.publisher.PublishChanged(ctx, event); pubErr != nil {
			slog.Warn(fmt.Sprintf("%s - change event publish failed: %v", logPrefix, pubErr))
		}
	}

	return resp
}
