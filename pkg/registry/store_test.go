package registry

import (
	"os"
	"path/filepath"
	"testing"
)

func writeDefinition(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("registry:store_test - write definition: %v", err)
	}
}

const defV1 = `{
	"name": "test-commands",
	"version": "1.0.0",
	"commands": {
		"do_thing": {"handler": "do_thing", "mutating": true}
	}
}`

const defV2 = `{
	"name": "test-commands",
	"version": "1.1.0",
	"commands": {
		"do_thing": {"handler": "do_thing", "mutating": true},
		"other_thing": {"handler": "other_thing"}
	}
}`

func TestNewStore_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "commands.json")
	writeDefinition(t, path, defV1)

	store, err := NewStore(path, testBuiltins())
	if err != nil {
		t.Fatalf("registry:store_test - NewStore failed: %v", err)
	}

	snap := store.Active()
	if snap.Version != "1.0.0" {
		t.Errorf("registry:store_test - Version = %q, want 1.0.0", snap.Version)
	}
	if snap.Len() != 1 {
		t.Errorf("registry:store_test - Len = %d, want 1", snap.Len())
	}
}

func TestReloadIfChanged_SwapsOnFileChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "commands.json")
	writeDefinition(t, path, defV1)

	store, err := NewStore(path, testBuiltins())
	if err != nil {
		t.Fatalf("registry:store_test - NewStore failed: %v", err)
	}

	writeDefinition(t, path, defV2)

	snap := store.ReloadIfChanged()
	if snap.Version != "1.1.0" {
		t.Errorf("registry:store_test - Version = %q, want 1.1.0 after reload", snap.Version)
	}
	if snap.Len() != 2 {
		t.Errorf("registry:store_test - Len = %d, want 2 after reload", snap.Len())
	}
	if store.Active() != snap {
		t.Error("registry:store_test - Active should return the reloaded snapshot")
	}
}

func TestReloadIfChanged_UnchangedFileKeepsSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "commands.json")
	writeDefinition(t, path, defV1)

	store, err := NewStore(path, testBuiltins())
	if err != nil {
		t.Fatalf("registry:store_test - NewStore failed: %v", err)
	}

	before := store.Active()
	if after := store.ReloadIfChanged(); after != before {
		t.Error("registry:store_test - expected the same snapshot for an unchanged file")
	}
}

func TestReloadIfChanged_BrokenFileKeepsOldSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "commands.json")
	writeDefinition(t, path, defV1)

	store, err := NewStore(path, testBuiltins())
	if err != nil {
		t.Fatalf("registry:store_test - NewStore failed: %v", err)
	}

	writeDefinition(t, path, `{"name": "broken", "version": "9.0.0", "commands": {"x": {}}}`)

	snap := store.ReloadIfChanged()
	if snap.Version != "1.0.0" {
		t.Errorf("registry:store_test - Version = %q, want the old 1.0.0 after failed rebuild", snap.Version)
	}
	if _, err := snap.Lookup("do_thing"); err != nil {
		t.Errorf("registry:store_test - old snapshot should still serve do_thing: %v", err)
	}
}

func TestReloadIfChanged_FileRemovedKeepsOldSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "commands.json")
	writeDefinition(t, path, defV1)

	store, err := NewStore(path, testBuiltins())
	if err != nil {
		t.Fatalf("registry:store_test - NewStore failed: %v", err)
	}

	if err := os.Remove(path); err != nil {
		t.Fatalf("registry:store_test - remove definition: %v", err)
	}

	if snap := store.ReloadIfChanged(); snap.Version != "1.0.0" {
		t.Errorf("registry:store_test - Version = %q, want 1.0.0 after file removal", snap.Version)
	}
}

func TestNewStore_UnreadableFileError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "commands.json")
	writeDefinition(t, path, `not json at all`)

	// A broken file falls back to the embedded default definition, which needs
	// the full builtin table; with a partial table the build fails outright.
	if _, err := NewStore(path, testBuiltins()); err == nil {
		t.Fatal("registry:store_test - expected error when fallback cannot build")
	}
}
