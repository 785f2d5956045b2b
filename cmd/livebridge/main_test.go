package main

import (
	"strings"
	"testing"
)

const mainTestPrefix = "cmd/livebridge:main_test"

func TestUsage_NonEmpty(t *testing.T) {
	if len(usage) == 0 {
		t.Fatalf("%s - usage string is empty", mainTestPrefix)
	}
}

func TestUsage_ContainsCommands(t *testing.T) {
	required := []string{"serve", "check", "ensure-db", "clear", "DATABASE_URL", "BIND_ADDR"}
	for _, word := range required {
		if !strings.Contains(usage, word) {
			t.Errorf("%s - usage should contain %q", mainTestPrefix, word)
		}
	}
}

func TestCheck_ShippedDefinitionFile(t *testing.T) {
	if err := runCheck("../../config/commands.json"); err != nil {
		t.Fatalf("%s - shipped definition file is invalid: %v", mainTestPrefix, err)
	}
}
