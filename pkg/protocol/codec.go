package protocol

import (
	"encoding/json"
	"errors"
	"io"
)

// Codec reads commands from and writes responses to a byte stream. The
// underlying json.Decoder buffers partial reads, so a request split across
// several TCP segments is accumulated until a complete JSON value parses.
type Codec struct {
	dec *json.Decoder
	enc *json.Encoder
}

// NewCodec wraps a stream (typically a net.Conn) in a Codec.
func NewCodec(rw io.ReadWriter) *Codec {
	return &Codec{dec: json.NewDecoder(rw), enc: json.NewEncoder(rw)}
}

// ReadCommand reads the next complete request from the stream.
//
// Shape errors (non-object payload, missing type, non-object params) return a
// MALFORMED_REQUEST *Error and leave the stream usable for the next request.
// Syntax errors also return MALFORMED_REQUEST but the decoder state is
// unrecoverable; the caller should close the connection. io.EOF is passed
// through untouched so callers can distinguish a clean disconnect.
func (c *Codec) ReadCommand() (*Command, error) {
	var raw json.RawMessage
	if err := c.dec.Decode(&raw); err != nil {
		if err == io.EOF || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, io.EOF
		}
		return nil, &StreamError{Err: &Error{Code: CodeMalformedRequest, Message: "request body is not valid JSON"}}
	}
	return ParseCommand(raw)
}

// StreamError marks a decode failure that corrupts the connection's framing.
// The caller should send the wrapped error response and close the connection;
// shape-level failures (plain *Error) leave the stream usable.
type StreamError struct {
	Err *Error
}

func (e *StreamError) Error() string {
	return e.Err.Error()
}

// Unwrap exposes the wrapped *Error.
func (e *StreamError) Unwrap() error {
	return e.Err
}

// ParseCommand validates a raw JSON value as a command envelope.
func ParseCommand(raw json.RawMessage) (*Command, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, &Error{Code: CodeMalformedRequest, Message: "request body must be a JSON object"}
	}

	typeRaw, ok := fields["type"]
	if !ok {
		return nil, &Error{Code: CodeMalformedRequest, Message: "request is missing required field \"type\""}
	}
	var cmdType string
	if err := json.Unmarshal(typeRaw, &cmdType); err != nil || cmdType == "" {
		return nil, &Error{Code: CodeMalformedRequest, Message: "request field \"type\" must be a non-empty string"}
	}

	params := json.RawMessage("{}")
	if paramsRaw, ok := fields["params"]; ok && string(paramsRaw) != "null" {
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(paramsRaw, &probe); err != nil {
			return nil, &Error{Code: CodeMalformedRequest, Message: "request field \"params\" must be a JSON object"}
		}
		params = paramsRaw
	}

	return &Command{Type: cmdType, Params: params}, nil
}

// WriteResponse serializes one response onto the stream.
func (c *Codec) WriteResponse(resp *Response) error {
	return c.enc.Encode(resp)
}
