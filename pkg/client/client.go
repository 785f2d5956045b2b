// Package client is a TCP client for the bridge: one command out, one
// response back on the same connection. It is what the external tool-wrapping
// layer (and the bridge's own end-to-end tests) talk through.
package client

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"
)

const logPrefix = "client:client"

// Default per-command deadlines. Mutating commands wait out the host loop's
// rendezvous bound, so they get a longer leash.
const (
	DefaultReadTimeout     = 10 * time.Second
	DefaultMutatingTimeout = 15 * time.Second
)

// Response is the decoded bridge response.
type Response struct {
	Status  string          `json:"status"`
	Result  json.RawMessage `json:"result,omitempty"`
	Message string          `json:"message,omitempty"`
}

// RemoteError is a bridge-side failure surfaced by Send.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return e.Message
}

// Client is a single-connection bridge client. Safe for concurrent use; the
// request/response cycle is serialized per connection.
type Client struct {
	addr string

	mu   sync.Mutex
	conn net.Conn
}

// New creates a client for the given bridge address. The connection is
// established lazily on the first Send.
func New(addr string) *Client {
	return &Client{addr: addr}
}

// Connect dials the bridge. Calling Connect on a connected client is a no-op.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked()
}

func (c *Client) connectLocked() error {
	if c.conn != nil {
		return nil
	}
	conn, err := net.DialTimeout("tcp", c.addr, 5*time.Second)
	if err != nil {
		return fmt.Errorf("%s - failed to connect to bridge at %s: %w", logPrefix, c.addr, err)
	}
	slog.Info(fmt.Sprintf("%s - Connected to bridge at %s", logPrefix, c.addr))
	c.conn = conn
	return nil
}

// Close tears down the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// Send issues one command and waits for its response. A bridge-side error
// response is returned as *RemoteError; transport failures drop the
// connection so the next Send redials.
func (c *Client) Send(commandType string, params interface{}) (json.RawMessage, error) {
	return c.SendTimeout(commandType, params, DefaultReadTimeout)
}

// SendTimeout is Send with an explicit response deadline.
func (c *Client) SendTimeout(commandType string, params interface{}, timeout time.Duration) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.connectLocked(); err != nil {
		return nil, err
	}

	if params == nil {
		params = map[string]interface{}{}
	}
	payload, err := json.Marshal(map[string]interface{}{
		"type":   commandType,
		"params": params,
	})
	if err != nil {
		return nil, fmt.Errorf("%s - failed to encode command: %w", logPrefix, err)
	}

	if err := c.conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		return nil, err
	}
	if _, err := c.conn.Write(payload); err != nil {
		c.drop()
		return nil, fmt.Errorf("%s - connection to bridge lost: %w", logPrefix, err)
	}

	resp, err := c.readResponse()
	if err != nil {
		c.drop()
		return nil, err
	}

	if resp.Status == "error" {
		message := resp.Message
		if message == "" {
			message = "unknown error from bridge"
		}
		return nil, &RemoteError{Message: message}
	}
	return resp.Result, nil
}

// readResponse accumulates bytes until a complete JSON response parses.
// Responses are not length-prefixed, so partial reads are expected.
func (c *Client) readResponse() (*Response, error) {
	buf := make([]byte, 0, 8192)
	chunk := make([]byte, 8192)

	for {
		n, err := c.conn.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			var resp Response
			if jsonErr := json.Unmarshal(buf, &resp); jsonErr == nil {
				return &resp, nil
			}
			// Incomplete JSON, keep receiving.
		}
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				return nil, fmt.Errorf("%s - timeout waiting for bridge response", logPrefix)
			}
			return nil, fmt.Errorf("%s - connection closed before a complete response: %w", logPrefix, err)
		}
	}
}

func (c *Client) drop() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}
