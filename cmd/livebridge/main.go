// Package main is the entrypoint for the livebridge command bridge.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"os"

	"github.com/soundctl/livebridge/internal/config"
	"github.com/soundctl/livebridge/internal/server"
	"github.com/soundctl/livebridge/pkg/audit"
	"github.com/soundctl/livebridge/pkg/handlers"
	"github.com/soundctl/livebridge/pkg/registry"
)

const usage = `Usage: livebridge [command]
       livebridge serve              Start the bridge (TCP command server on BIND_ADDR).
       livebridge check [file]       Validate a command definition file without serving.
       livebridge ensure-db [name]   Create the audit database if missing (default name: livebridge_test). Uses DATABASE_URL host/user.
       livebridge clear              Truncate the command audit trail; schema is preserved.

Commands:
  serve           (default) Start the bridge.
  check [file]    Parse and build a definition file (default COMMANDS_FILE); exit non-zero on errors.
  ensure-db [name] Create database (e.g. livebridge_test) on same host as DATABASE_URL; then run tests with that URL.
  clear           Truncate audit data; schema preserved.

Environment: BIND_ADDR (default 127.0.0.1:9877), COMMANDS_FILE, DISPATCH_TIMEOUT, COMMS_URL, DATABASE_URL. See README.
`

func main() {
	args := os.Args[1:]
	cmd := ""
	if len(args) > 0 && args[0] != "" {
		cmd = args[0]
	}

	switch cmd {
	case "check":
		file := ""
		if len(args) > 1 {
			file = args[1]
		}
		if err := runCheck(file); err != nil {
			log.Fatalf("livebridge check: %v", err)
		}
		return
	case "clear":
		if err := runClear(); err != nil {
			log.Fatalf("livebridge clear: %v", err)
		}
		return
	case "ensure-db":
		dbName := "livebridge_test"
		if len(args) > 1 && args[1] != "" {
			dbName = args[1]
		}
		if err := runEnsureDB(dbName); err != nil {
			log.Fatalf("livebridge ensure-db: %v", err)
		}
		return
	case "help", "-h", "--help":
		fmt.Print(usage)
		return
	case "serve", "":
		// serve (explicit or default)
		break
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q.\n%s", cmd, usage)
		os.Exit(1)
	}

	if err := server.Run(); err != nil {
		log.Fatalf("livebridge: %v", err)
	}
}

func runCheck(fileOverride string) error {
	path := fileOverride
	if path == "" {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		path = cfg.CommandsFile
	}
	if path == "" {
		return fmt.Errorf("no definition file given (set COMMANDS_FILE or pass a path)")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read definition file: %w", err)
	}
	var def registry.Definition
	if err := json.Unmarshal(data, &def); err != nil {
		return fmt.Errorf("parse definition file: %w", err)
	}
	snap, err := registry.Build(&def, handlers.Builtins(), registry.Fingerprint{})
	if err != nil {
		return err
	}
	fmt.Printf("Definition %q (version %s) is valid: %d commands.\n", def.Name, def.Version, snap.Len())
	return nil
}

func runClear() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := audit.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	if err := audit.Clear(ctx, pool); err != nil {
		return fmt.Errorf("clear audit trail: %w", err)
	}
	return nil
}

func runEnsureDB(dbName string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	u, err := url.Parse(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	// Replace path with target database name; query (e.g. sslmode) is kept on u.RawQuery.
	u.Path = "/" + dbName
	targetURL := u.String()
	ctx := context.Background()
	if err := audit.EnsureDatabase(ctx, targetURL); err != nil {
		return err
	}
	fmt.Printf("Database %q is ready.\n", dbName)
	return nil
}
