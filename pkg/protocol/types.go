// Package protocol defines the wire envelope and structured errors for the bridge.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Status values for Response.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Error codes used across the bridge.
const (
	CodeMalformedRequest   = "MALFORMED_REQUEST"
	CodeUnknownCommand     = "UNKNOWN_COMMAND"
	CodeInvalidArgument    = "INVALID_ARGUMENT"
	CodeOutOfRange         = "OUT_OF_RANGE"
	CodePreconditionFailed = "PRECONDITION_FAILED"
	CodeDispatchTimeout    = "DISPATCH_TIMEOUT"
	CodeInternal           = "INTERNAL_ERROR"
)

// Command is the JSON envelope for an incoming bridge request.
type Command struct {
	Type   string          `json:"type"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response is the JSON envelope for a bridge response. Result is present on
// success, Message on error.
type Response struct {
	Status  string      `json:"status"`
	Result  interface{} `json:"result,omitempty"`
	Message string      `json:"message,omitempty"`
}

// Success builds a success response wrapping a handler result.
func Success(result interface{}) *Response {
	return &Response{Status: StatusSuccess, Result: result}
}

// Error is a structured error carried internally until the dispatcher boundary,
// where it is flattened into a Response.
type Error struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

// Errorf builds an *Error with a formatted message.
func Errorf(code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ErrorResponse converts any error into a wire error response. Structured
// errors keep their message; everything else is surfaced verbatim.
func ErrorResponse(err error) *Response {
	if be, ok := err.(*Error); ok {
		return &Response{Status: StatusError, Message: be.Message}
	}
	return &Response{Status: StatusError, Message: err.Error()}
}

// CodeOf returns the error code of a structured error, or INTERNAL_ERROR for
// any other error.
func CodeOf(err error) string {
	if be, ok := err.(*Error); ok {
		return be.Code
	}
	return CodeInternal
}
