package registry

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
)

const storeLogPrefix = "registry:store"

// Store holds the active snapshot and rebuilds it when the definition file
// changes. Swaps are atomic pointer replacements; concurrent dispatches never
// observe a half-updated table.
type Store struct {
	path     string
	builtins map[string]HandlerFunc

	active atomic.Pointer[Snapshot]
	// Serializes rebuilds; lookups and swaps stay lock-free.
	reloadMu sync.Mutex
}

// NewStore builds the initial snapshot. If path is empty or unreadable the
// embedded default definition is used (and reloads are effectively disabled
// until the file appears).
func NewStore(path string, builtins map[string]HandlerFunc) (*Store, error) {
	s := &Store{path: path, builtins: builtins}

	snap, err := s.buildFromFile()
	if err != nil {
		if path != "" {
			slog.Warn(fmt.Sprintf("%s - %v; using embedded default definition", storeLogPrefix, err))
		}
		snap, err = Build(DefaultDefinition(), builtins, Fingerprint{})
		if err != nil {
			return nil, fmt.Errorf("%s - failed to build default definition: %w", storeLogPrefix, err)
		}
	}

	s.active.Store(snap)
	slog.Info(fmt.Sprintf("%s - Loaded %q v%s (%d commands)", storeLogPrefix, snap.Name, snap.Version, snap.Len()))
	return s, nil
}

// Active returns the current snapshot. Callers hold it for the duration of a
// dispatch; it is never mutated.
func (s *Store) Active() *Snapshot {
	return s.active.Load()
}

// ReloadIfChanged compares the definition file's fingerprint against the
// active snapshot and swaps in a rebuilt snapshot on mismatch. A rebuild
// failure keeps the previous snapshot in force and only logs a diagnostic.
// Returns the snapshot the caller should dispatch against.
func (s *Store) ReloadIfChanged() *Snapshot {
	current := s.active.Load()
	if s.path == "" {
		return current
	}

	info, err := os.Stat(s.path)
	if err != nil {
		// File removed or unreadable: the last good snapshot stays active.
		return current
	}
	fp := Fingerprint{ModTime: info.ModTime(), Size: info.Size()}
	if fp.Equal(current.Fingerprint) {
		return current
	}

	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	// Another worker may have finished the same reload while we waited.
	current = s.active.Load()
	if fp.Equal(current.Fingerprint) {
		return current
	}

	snap, err := s.buildFromFile()
	if err != nil {
		slog.Error(fmt.Sprintf("%s - reload failed, keeping %q v%s: %v",
			storeLogPrefix, current.Name, current.Version, err))
		return current
	}

	s.active.Store(snap)
	slog.Info(fmt.Sprintf("%s - Reloaded %q v%s (%d commands)",
		storeLogPrefix, snap.Name, snap.Version, snap.Len()))
	return snap
}

// buildFromFile reads, parses and builds a snapshot from the definition file.
func (s *Store) buildFromFile() (*Snapshot, error) {
	if s.path == "" {
		return nil, fmt.Errorf("no definition file configured")
	}
	info, err := os.Stat(s.path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", s.path, err)
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	var def Definition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}

	fp := Fingerprint{ModTime: info.ModTime(), Size: info.Size()}
	snap, err := Build(&def, s.builtins, fp)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", s.path, err)
	}
	return snap, nil
}
