// Package registry maps command types to handlers. The mapping is built from
// a definition file and held as an immutable snapshot that is swapped
// wholesale when the file changes; in-flight dispatches keep the snapshot
// they captured.
package registry

import (
	"encoding/json"
	"math"

	"github.com/soundctl/livebridge/pkg/protocol"
	"github.com/soundctl/livebridge/pkg/session"
)

// Param value types accepted in a command definition.
const (
	TypeString = "string"
	TypeInt    = "int"
	TypeFloat  = "float"
	TypeBool   = "bool"
	TypeArray  = "array"
	TypeObject = "object"
)

// HandlerFunc is the typed handler contract: host state plus a validated
// parameter bag in, result or error out.
type HandlerFunc func(s *session.Session, p Params) (interface{}, error)

// ParamSpec declares one parameter of a command: its type plus either a
// default or a required marker.
type ParamSpec struct {
	Name     string      `json:"name"`
	Type     string      `json:"type"`
	Default  interface{} `json:"default,omitempty"`
	Required bool        `json:"required,omitempty"`
}

// CommandDef is one command entry in the definition file. Handler names a
// builtin implementation; Mutating routes the command through the host-loop
// scheduler instead of the calling worker.
type CommandDef struct {
	Handler  string      `json:"handler"`
	Mutating bool        `json:"mutating"`
	Params   []ParamSpec `json:"params,omitempty"`
}

// Definition is the root of the command definition file.
type Definition struct {
	Name     string                `json:"name"`
	Version  string                `json:"version"`
	Commands map[string]CommandDef `json:"commands"`
}

// HandlerEntry is a resolved command: its classification, parameter spec and
// bound handler. Entries are owned by a Snapshot and never mutated.
type HandlerEntry struct {
	Type     string
	Mutating bool
	Params   []ParamSpec
	Invoke   HandlerFunc
}

// Params is the validated parameter bag passed to handlers. Every declared
// parameter is present: validation applies defaults and rejects requests
// missing required values, so the typed getters below cannot miss.
type Params struct {
	values map[string]interface{}
	raw    json.RawMessage
}

// String returns a string parameter.
func (p Params) String(name string) string {
	v, _ := p.values[name].(string)
	return v
}

// Int returns an integer parameter.
func (p Params) Int(name string) int {
	v, _ := p.values[name].(int)
	return v
}

// Float returns a float parameter.
func (p Params) Float(name string) float64 {
	v, _ := p.values[name].(float64)
	return v
}

// Bool returns a boolean parameter.
func (p Params) Bool(name string) bool {
	v, _ := p.values[name].(bool)
	return v
}

// Unmarshal decodes the raw params object into target, for handlers that
// want a structured view (e.g. note lists).
func (p Params) Unmarshal(target interface{}) error {
	if len(p.raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(p.raw, target); err != nil {
		return protocol.Errorf(protocol.CodeInvalidArgument, "invalid params: %v", err)
	}
	return nil
}

// ValidateParams checks a raw params object against a command's parameter
// spec, applying defaults for absent values.
func (e *HandlerEntry) ValidateParams(raw json.RawMessage) (Params, error) {
	incoming := map[string]interface{}{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &incoming); err != nil {
			return Params{}, &protocol.Error{Code: protocol.CodeMalformedRequest, Message: "params must be a JSON object"}
		}
	}

	values := make(map[string]interface{}, len(e.Params))
	for _, spec := range e.Params {
		v, ok := incoming[spec.Name]
		if !ok || v == nil {
			if spec.Required {
				return Params{}, protocol.Errorf(protocol.CodeInvalidArgument,
					"command %q requires parameter %q", e.Type, spec.Name)
			}
			values[spec.Name] = spec.Default
			continue
		}
		coerced, err := coerce(spec.Type, v)
		if err != nil {
			return Params{}, protocol.Errorf(protocol.CodeInvalidArgument,
				"parameter %q of command %q must be %s", spec.Name, e.Type, spec.Type)
		}
		values[spec.Name] = coerced
	}
	return Params{values: values, raw: raw}, nil
}

// coerce converts a decoded JSON value to a spec type. JSON numbers arrive as
// float64; integer parameters only accept whole values.
func coerce(specType string, v interface{}) (interface{}, error) {
	switch specType {
	case TypeString:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case TypeInt:
		if i, ok := v.(int); ok {
			return i, nil
		}
		if f, ok := v.(float64); ok && f == math.Trunc(f) {
			return int(f), nil
		}
	case TypeFloat:
		if i, ok := v.(int); ok {
			return float64(i), nil
		}
		if f, ok := v.(float64); ok {
			return f, nil
		}
	case TypeBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case TypeArray:
		if a, ok := v.([]interface{}); ok {
			return a, nil
		}
	case TypeObject:
		if m, ok := v.(map[string]interface{}); ok {
			return m, nil
		}
	}
	return nil, protocol.Errorf(protocol.CodeInvalidArgument, "value is not %s", specType)
}

// normalizeDefault coerces a default value from the definition file into the
// runtime representation handlers expect (ints as int, not float64).
func normalizeDefault(specType string, v interface{}) (interface{}, error) {
	if v == nil {
		switch specType {
		case TypeString:
			return "", nil
		case TypeInt:
			return 0, nil
		case TypeFloat:
			return 0.0, nil
		case TypeBool:
			return false, nil
		case TypeArray:
			return []interface{}{}, nil
		case TypeObject:
			return map[string]interface{}{}, nil
		}
		return nil, protocol.Errorf(protocol.CodeInternal, "unknown param type %q", specType)
	}
	return coerce(specType, v)
}
