package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"testing"
)

func TestParseCommand_Valid(t *testing.T) {
	cmd, err := ParseCommand(json.RawMessage(`{"type": "set_tempo", "params": {"tempo": 128}}`))
	if err != nil {
		t.Fatalf("protocol:codec_test - unexpected error: %v", err)
	}
	if cmd.Type != "set_tempo" {
		t.Errorf("protocol:codec_test - Type = %q, want %q", cmd.Type, "set_tempo")
	}
	if string(cmd.Params) != `{"tempo": 128}` {
		t.Errorf("protocol:codec_test - Params = %s", cmd.Params)
	}
}

func TestParseCommand_MissingParams(t *testing.T) {
	cmd, err := ParseCommand(json.RawMessage(`{"type": "get_session_info"}`))
	if err != nil {
		t.Fatalf("protocol:codec_test - unexpected error: %v", err)
	}
	if string(cmd.Params) != "{}" {
		t.Errorf("protocol:codec_test - Params = %s, want {}", cmd.Params)
	}
}

func TestParseCommand_NullParams(t *testing.T) {
	cmd, err := ParseCommand(json.RawMessage(`{"type": "get_session_info", "params": null}`))
	if err != nil {
		t.Fatalf("protocol:codec_test - unexpected error: %v", err)
	}
	if string(cmd.Params) != "{}" {
		t.Errorf("protocol:codec_test - Params = %s, want {}", cmd.Params)
	}
}

func TestParseCommand_Rejections(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"non-object payload", `[1, 2, 3]`},
		{"missing type", `{"params": {}}`},
		{"empty type", `{"type": "", "params": {}}`},
		{"non-string type", `{"type": 42}`},
		{"non-object params", `{"type": "set_tempo", "params": [1]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseCommand(json.RawMessage(tc.raw))
			if err == nil {
				t.Fatalf("protocol:codec_test - expected error for %s", tc.raw)
			}
			var perr *Error
			if !errors.As(err, &perr) {
				t.Fatalf("protocol:codec_test - expected *Error, got %T", err)
			}
			if perr.Code != CodeMalformedRequest {
				t.Errorf("protocol:codec_test - Code = %q, want %q", perr.Code, CodeMalformedRequest)
			}
		})
	}
}

func TestCodec_ReadWrite(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString(`{"type": "create_clip", "params": {"track_index": 0}}`)
	buf.WriteString(`{"type": "get_session_info"}`)

	codec := NewCodec(&buf)

	first, err := codec.ReadCommand()
	if err != nil {
		t.Fatalf("protocol:codec_test - first read failed: %v", err)
	}
	if first.Type != "create_clip" {
		t.Errorf("protocol:codec_test - Type = %q, want create_clip", first.Type)
	}

	second, err := codec.ReadCommand()
	if err != nil {
		t.Fatalf("protocol:codec_test - second read failed: %v", err)
	}
	if second.Type != "get_session_info" {
		t.Errorf("protocol:codec_test - Type = %q, want get_session_info", second.Type)
	}

	if _, err := codec.ReadCommand(); err != io.EOF {
		t.Errorf("protocol:codec_test - expected io.EOF at end of stream, got %v", err)
	}

	if err := codec.WriteResponse(Success(map[string]interface{}{"ok": true})); err != nil {
		t.Fatalf("protocol:codec_test - write failed: %v", err)
	}
	var resp Response
	if err := json.Unmarshal(buf.Bytes(), &resp); err != nil {
		t.Fatalf("protocol:codec_test - response not valid JSON: %v", err)
	}
	if resp.Status != StatusSuccess {
		t.Errorf("protocol:codec_test - Status = %q, want success", resp.Status)
	}
}

func TestCodec_SyntaxErrorIsStreamError(t *testing.T) {
	codec := NewCodec(bytes.NewBufferString(`{not json`))

	_, err := codec.ReadCommand()
	if err == nil {
		t.Fatal("protocol:codec_test - expected error for invalid JSON")
	}
	var streamErr *StreamError
	if !errors.As(err, &streamErr) {
		t.Fatalf("protocol:codec_test - expected *StreamError, got %T", err)
	}
	if streamErr.Err.Code != CodeMalformedRequest {
		t.Errorf("protocol:codec_test - Code = %q, want %q", streamErr.Err.Code, CodeMalformedRequest)
	}
}

func TestCodec_TruncatedStreamIsEOF(t *testing.T) {
	codec := NewCodec(bytes.NewBufferString(`{"type": "get_ses`))
	if _, err := codec.ReadCommand(); err != io.EOF {
		t.Errorf("protocol:codec_test - expected io.EOF for truncated stream, got %v", err)
	}
}

func TestErrorResponse(t *testing.T) {
	resp := ErrorResponse(&Error{Code: CodeOutOfRange, Message: "Track index out of range"})
	if resp.Status != StatusError {
		t.Errorf("protocol:codec_test - Status = %q, want error", resp.Status)
	}
	if resp.Message != "Track index out of range" {
		t.Errorf("protocol:codec_test - Message = %q", resp.Message)
	}

	resp = ErrorResponse(errors.New("boom"))
	if resp.Message != "boom" {
		t.Errorf("protocol:codec_test - Message = %q, want boom", resp.Message)
	}
}

func TestCodeOf(t *testing.T) {
	if code := CodeOf(&Error{Code: CodeUnknownCommand}); code != CodeUnknownCommand {
		t.Errorf("protocol:codec_test - CodeOf = %q, want %q", code, CodeUnknownCommand)
	}
	if code := CodeOf(errors.New("plain")); code != CodeInternal {
		t.Errorf("protocol:codec_test - CodeOf = %q, want %q", code, CodeInternal)
	}
}
