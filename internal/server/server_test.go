package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/soundctl/livebridge/pkg/client"
	"github.com/soundctl/livebridge/pkg/dispatcher"
	"github.com/soundctl/livebridge/pkg/handlers"
	"github.com/soundctl/livebridge/pkg/registry"
	"github.com/soundctl/livebridge/pkg/scheduler"
	"github.com/soundctl/livebridge/pkg/session"
)

// startTestBridge starts a full bridge on an ephemeral port and returns its
// address.
func startTestBridge(t *testing.T) string {
	t.Helper()

	store, err := registry.NewStore("", handlers.Builtins())
	if err != nil {
		t.Fatalf("server:server_test - store: %v", err)
	}

	sess := session.New()
	sched := scheduler.New()

	ctx, cancel := context.WithCancel(context.Background())
	go sched.Loop(ctx, time.Millisecond, 32)

	disp := dispatcher.NewDispatcher(dispatcher.NewDispatcherParams{
		Store:     store,
		Scheduler: sched,
		Session:   sess,
		Timeout:   5 * time.Second,
	})

	srv := NewServer(disp)
	if err := srv.Listen("127.0.0.1:0"); err != nil {
		t.Fatalf("server:server_test - listen: %v", err)
	}
	go srv.Serve(ctx)

	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return srv.Addr().String()
}

func TestServer_EndToEnd(t *testing.T) {
	addr := startTestBridge(t)

	c := client.New(addr)
	defer c.Close()

	// Read before any mutation.
	result, err := c.Send("get_session_info", nil)
	if err != nil {
		t.Fatalf("server:server_test - get_session_info failed: %v", err)
	}
	var info struct {
		Tempo      float64 `json:"tempo"`
		TrackCount int     `json:"track_count"`
	}
	if err := json.Unmarshal(result, &info); err != nil {
		t.Fatalf("server:server_test - decode info: %v", err)
	}
	if info.Tempo != 120.0 || info.TrackCount != 0 {
		t.Errorf("server:server_test - info = %+v", info)
	}

	// Mutation runs on the host loop and its result comes back on the same
	// connection.
	result, err = c.Send("create_midi_track", map[string]interface{}{"index": -1})
	if err != nil {
		t.Fatalf("server:server_test - create_midi_track failed: %v", err)
	}
	var created struct {
		Index int    `json:"index"`
		Name  string `json:"name"`
	}
	if err := json.Unmarshal(result, &created); err != nil {
		t.Fatalf("server:server_test - decode created: %v", err)
	}
	if created.Index != 0 || created.Name != "1 MIDI" {
		t.Errorf("server:server_test - created = %+v", created)
	}

	// The mutation is visible to the next read.
	result, err = c.Send("get_session_info", nil)
	if err != nil {
		t.Fatalf("server:server_test - get_session_info failed: %v", err)
	}
	if err := json.Unmarshal(result, &info); err != nil {
		t.Fatalf("server:server_test - decode info: %v", err)
	}
	if info.TrackCount != 1 {
		t.Errorf("server:server_test - TrackCount = %d, want 1", info.TrackCount)
	}
}

func TestServer_ErrorResponsesKeepConnection(t *testing.T) {
	addr := startTestBridge(t)

	c := client.New(addr)
	defer c.Close()

	// Unknown command comes back as a remote error.
	_, err := c.Send("explode", nil)
	if err == nil {
		t.Fatal("server:server_test - expected error for unknown command")
	}
	remoteErr, ok := err.(*client.RemoteError)
	if !ok {
		t.Fatalf("server:server_test - expected *client.RemoteError, got %T", err)
	}
	if remoteErr.Message != "Unknown command: explode" {
		t.Errorf("server:server_test - Message = %q", remoteErr.Message)
	}

	// The same connection still serves the next request.
	if _, err := c.Send("get_session_info", nil); err != nil {
		t.Fatalf("server:server_test - connection unusable after error: %v", err)
	}
}

func TestServer_MalformedJSONClosesConnection(t *testing.T) {
	addr := startTestBridge(t)

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("server:server_test - dial: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("{this is not json\n")); err != nil {
		t.Fatalf("server:server_test - write: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	reader := bufio.NewReader(conn)
	line, err := reader.ReadBytes('\n')
	if err != nil {
		t.Fatalf("server:server_test - read error response: %v", err)
	}

	var resp struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(line, &resp); err != nil {
		t.Fatalf("server:server_test - decode response: %v", err)
	}
	if resp.Status != "error" || resp.Message != "request body is not valid JSON" {
		t.Errorf("server:server_test - response = %+v", resp)
	}

	// The server closes a connection whose framing is corrupted.
	if _, err := reader.ReadByte(); err == nil {
		t.Error("server:server_test - expected closed connection after malformed JSON")
	}
}

func TestServer_ShapeErrorKeepsConnection(t *testing.T) {
	addr := startTestBridge(t)

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("server:server_test - dial: %v", err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(5 * time.Second))
	reader := bufio.NewReader(conn)

	// Valid JSON with the wrong shape: error response, connection stays up.
	if _, err := conn.Write([]byte(`{"params": {}}` + "\n")); err != nil {
		t.Fatalf("server:server_test - write: %v", err)
	}
	line, err := reader.ReadBytes('\n')
	if err != nil {
		t.Fatalf("server:server_test - read response: %v", err)
	}
	var resp struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(line, &resp); err != nil {
		t.Fatalf("server:server_test - decode response: %v", err)
	}
	if resp.Status != "error" {
		t.Errorf("server:server_test - Status = %q, want error", resp.Status)
	}

	// A valid request on the same connection succeeds.
	if _, err := conn.Write([]byte(`{"type": "get_session_info"}` + "\n")); err != nil {
		t.Fatalf("server:server_test - write: %v", err)
	}
	line, err = reader.ReadBytes('\n')
	if err != nil {
		t.Fatalf("server:server_test - read response: %v", err)
	}
	if err := json.Unmarshal(line, &resp); err != nil {
		t.Fatalf("server:server_test - decode response: %v", err)
	}
	if resp.Status != "success" {
		t.Errorf("server:server_test - Status = %q, want success", resp.Status)
	}
}

func TestServer_ConcurrentClients(t *testing.T) {
	addr := startTestBridge(t)

	const clients = 4
	done := make(chan error, clients)
	for i := 0; i < clients; i++ {
		go func() {
			c := client.New(addr)
			defer c.Close()
			_, err := c.Send("create_midi_track", nil)
			done <- err
		}()
	}
	for i := 0; i < clients; i++ {
		if err := <-done; err != nil {
			t.Fatalf("server:server_test - concurrent create failed: %v", err)
		}
	}

	c := client.New(addr)
	defer c.Close()
	result, err := c.Send("get_session_info", nil)
	if err != nil {
		t.Fatalf("server:server_test - get_session_info failed: %v", err)
	}
	var info struct {
		TrackCount int `json:"track_count"`
	}
	if err := json.Unmarshal(result, &info); err != nil {
		t.Fatalf("server:server_test - decode info: %v", err)
	}
	if info.TrackCount != clients {
		t.Errorf("server:server_test - TrackCount = %d, want %d", info.TrackCount, clients)
	}
}
