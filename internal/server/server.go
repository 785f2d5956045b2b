// Package server orchestrates all components: registry store, host session,
// scheduler, dispatcher, TCP listener and the optional COMMS/audit sinks.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"

	comms "github.com/nats-io/nats.go"

	"github.com/soundctl/livebridge/internal/config"
	"github.com/soundctl/livebridge/pkg/audit"
	"github.com/soundctl/livebridge/pkg/commsutil"
	"github.com/soundctl/livebridge/pkg/dispatcher"
	"github.com/soundctl/livebridge/pkg/events"
	"github.com/soundctl/livebridge/pkg/handlers"
	"github.com/soundctl/livebridge/pkg/protocol"
	"github.com/soundctl/livebridge/pkg/registry"
	"github.com/soundctl/livebridge/pkg/scheduler"
	"github.com/soundctl/livebridge/pkg/session"
)

const logPrefix = "server:server"

// Server accepts bridge connections and runs one worker per connection.
type Server struct {
	disp *dispatcher.Dispatcher
	ln   net.Listener
	wg   sync.WaitGroup
}

// NewServer creates a Server around a dispatcher.
func NewServer(disp *dispatcher.Dispatcher) *Server {
	return &Server{disp: disp}
}

// Listen binds the TCP listener. Use Addr afterwards to learn the bound
// address (useful with a ":0" port in tests).
func (s *Server) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("%s - failed to listen on %s: %w", logPrefix, addr, err)
	}
	s.ln = ln
	slog.Info(fmt.Sprintf("%s - Listening on %s", logPrefix, ln.Addr()))
	return nil
}

// Addr returns the bound listener address.
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Serve accepts connections until the listener is closed, spawning one
// worker per connection. A worker failure never affects other workers or the
// host loop.
func (s *Server) Serve(ctx context.Context) error {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				s.wg.Wait()
				return nil
			}
			slog.Warn(fmt.Sprintf("%s - accept error: %v", logPrefix, err))
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(ctx, conn)
		}()
	}
}

// Close shuts the listener down; in-flight workers finish their current
// request.
func (s *Server) Close() error {
	if s.ln == nil {
		return nil
	}
	return s.ln.Close()
}

// handleConn runs one connection's request/response cycle. Every complete
// request produces exactly one response; only a transport-level failure ends
// the loop without one.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	remote := conn.RemoteAddr()
	slog.Info(fmt.Sprintf("%s - Client connected from %s", logPrefix, remote))
	defer func() {
		conn.Close()
		slog.Info(fmt.Sprintf("%s - Client disconnected from %s", logPrefix, remote))
	}()

	codec := protocol.NewCodec(conn)
	for {
		if ctx.Err() != nil {
			return
		}

		cmd, err := codec.ReadCommand()
		if err != nil {
			if err == io.EOF {
				return
			}
			var streamErr *protocol.StreamError
			if errors.As(err, &streamErr) {
				// Framing is gone; answer once and drop the connection.
				if writeErr := codec.WriteResponse(protocol.ErrorResponse(streamErr.Err)); writeErr != nil {
					slog.Warn(fmt.Sprintf("%s - write error response: %v", logPrefix, writeErr))
				}
				return
			}
			// Shape error: the stream is still framed, keep the
			// connection for the next request.
			if writeErr := codec.WriteResponse(protocol.ErrorResponse(err)); writeErr != nil {
				return
			}
			continue
		}

		resp := s.disp.Dispatch(ctx, cmd)
		if err := codec.WriteResponse(resp); err != nil {
			slog.Warn(fmt.Sprintf("%s - write response: %v", logPrefix, err))
			return
		}
	}
}

// Run starts the bridge, blocks until a shutdown signal, then cleans up.
func Run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("%s - failed to load config: %w", logPrefix, err)
	}

	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	if err := cfg.ValidateForServe(); err != nil {
		return err
	}

	slog.Info(fmt.Sprintf("%s - Starting livebridge", logPrefix))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Step 1: Build the command registry from the definition file.
	store, err := registry.NewStore(cfg.CommandsFile, handlers.Builtins())
	if err != nil {
		return fmt.Errorf("%s - failed to build command registry: %w", logPrefix, err)
	}

	// Step 2: Host state and the scheduler that serializes mutations onto
	// the host loop.
	sess := session.New()
	sched := scheduler.New()
	go sched.Loop(ctx, cfg.TickInterval, cfg.MaxTasksPerTick)

	// Step 3: Optional COMMS change events.
	var publisher events.EventPublisher = &events.NoOpPublisher{}
	var nc *comms.Conn
	if cfg.COMMSURL != "" {
		nc, err = commsutil.Connect(cfg.COMMSURL, cfg.COMMSName)
		if err != nil {
			return fmt.Errorf("%s - failed to connect to COMMS: %w", logPrefix, err)
		}
		opts := &events.CommsPublisherOpts{}
		if cfg.ChangeEventSubject != "" {
			opts.GlobalChangeSubject = cfg.ChangeEventSubject
		}
		publisher = events.NewCommsPublisher(nc, opts)
	}

	// Step 4: Optional audit trail.
	var recorder audit.Recorder = &audit.NoOpRecorder{}
	if cfg.DatabaseURL != "" {
		pool, err := audit.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			if nc != nil {
				nc.Close()
			}
			return fmt.Errorf("%s - failed to connect to database: %w", logPrefix, err)
		}
		defer pool.Close()
		pg, err := audit.NewPGRecorder(ctx, pool)
		if err != nil {
			if nc != nil {
				nc.Close()
			}
			return fmt.Errorf("%s - failed to prepare audit trail: %w", logPrefix, err)
		}
		recorder = pg
	}

	// Step 5: Dispatcher and listener.
	disp := dispatcher.NewDispatcher(dispatcher.NewDispatcherParams{
		Store:     store,
		Scheduler: sched,
		Session:   sess,
		Publisher: publisher,
		Recorder:  recorder,
		Timeout:   cfg.DispatchTimeout,
	})

	srv := NewServer(disp)
	if err := srv.Listen(cfg.BindAddr); err != nil {
		if nc != nil {
			nc.Close()
		}
		return err
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ctx)
	}()

	slog.Info(fmt.Sprintf("%s - Livebridge is ready (%d commands)", logPrefix, store.Active().Len()))

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		slog.Info(fmt.Sprintf("%s - Received signal %s, shutting down", logPrefix, sig))
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}

	// Graceful shutdown
	cancel()
	srv.Close()
	if nc != nil {
		nc.Drain()
	}

	slog.Info(fmt.Sprintf("%s - Shutdown complete", logPrefix))
	return nil
}
