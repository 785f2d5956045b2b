package registry

import (
	"fmt"
	"sort"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/soundctl/livebridge/pkg/protocol"
)

// formatConstraint is the definition file format this build understands.
// Incompatible files are rejected at build time and the previous snapshot
// stays in force.
const formatConstraint = "^1"

// Fingerprint identifies the state of the definition source a snapshot was
// built from.
type Fingerprint struct {
	ModTime time.Time
	Size    int64
}

// Equal reports whether two fingerprints match.
func (f Fingerprint) Equal(other Fingerprint) bool {
	return f.ModTime.Equal(other.ModTime) && f.Size == other.Size
}

// Snapshot is an immutable command table plus the fingerprint of the source
// it was built from. A dispatch that begins against one snapshot completes
// against it even if a newer snapshot is swapped in meanwhile.
type Snapshot struct {
	Name        string
	Version     string
	Fingerprint Fingerprint
	entries     map[string]*HandlerEntry
}

// Lookup resolves a command type to its handler entry.
func (s *Snapshot) Lookup(commandType string) (*HandlerEntry, error) {
	entry, ok := s.entries[commandType]
	if !ok {
		return nil, protocol.Errorf(protocol.CodeUnknownCommand, "Unknown command: %s", commandType)
	}
	return entry, nil
}

// Commands returns the registered command types, sorted.
func (s *Snapshot) Commands() []string {
	types := make([]string, 0, len(s.entries))
	for t := range s.entries {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Len returns the number of registered commands.
func (s *Snapshot) Len() int {
	return len(s.entries)
}

// Build resolves a definition against the builtin handler table, producing an
// immutable snapshot. Any defect (bad version, unbound handler, bad param
// spec) fails the whole build.
func Build(def *Definition, builtins map[string]HandlerFunc, fp Fingerprint) (*Snapshot, error) {
	if len(def.Commands) == 0 {
		return nil, fmt.Errorf("definition %q declares no commands", def.Name)
	}
	if err := checkFormatVersion(def.Version); err != nil {
		return nil, err
	}

	entries := make(map[string]*HandlerEntry, len(def.Commands))
	for commandType, cmd := range def.Commands {
		handlerName := cmd.Handler
		if handlerName == "" {
			handlerName = commandType
		}
		invoke, ok := builtins[handlerName]
		if !ok {
			return nil, fmt.Errorf("command %q binds unknown handler %q", commandType, handlerName)
		}

		params := make([]ParamSpec, len(cmd.Params))
		for i, spec := range cmd.Params {
			if spec.Name == "" {
				return nil, fmt.Errorf("command %q has a parameter with no name", commandType)
			}
			switch spec.Type {
			case TypeString, TypeInt, TypeFloat, TypeBool, TypeArray, TypeObject:
			default:
				return nil, fmt.Errorf("command %q parameter %q has unknown type %q",
					commandType, spec.Name, spec.Type)
			}
			if spec.Required {
				params[i] = spec
				continue
			}
			def, err := normalizeDefault(spec.Type, spec.Default)
			if err != nil {
				return nil, fmt.Errorf("command %q parameter %q: default does not match type %s",
					commandType, spec.Name, spec.Type)
			}
			spec.Default = def
			params[i] = spec
		}

		entries[commandType] = &HandlerEntry{
			Type:     commandType,
			Mutating: cmd.Mutating,
			Params:   params,
			Invoke:   invoke,
		}
	}

	return &Snapshot{
		Name:        def.Name,
		Version:     def.Version,
		Fingerprint: fp,
		entries:     entries,
	}, nil
}

func checkFormatVersion(version string) error {
	if version == "" {
		return fmt.Errorf("definition is missing a format version")
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("definition version %q is not valid semver: %w", version, err)
	}
	constraint, err := semver.NewConstraint(formatConstraint)
	if err != nil {
		return fmt.Errorf("bad format constraint %q: %w", formatConstraint, err)
	}
	if !constraint.Check(v) {
		return fmt.Errorf("definition version %s is outside the supported range %s", version, formatConstraint)
	}
	return nil
}
