// Package config provides bridge configuration loaded from environment
// variables.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const logPrefix = "config:LoadConfig"

// Config holds livebridge configuration.
type Config struct {
	// BindAddr is the TCP address the bridge listens on. The default port is
	// the one the host's remote clients have always dialed.
	BindAddr string `envconfig:"BIND_ADDR" default:"127.0.0.1:9877"`

	// CommandsFile is the hot-reloadable command definition file. Empty means
	// the embedded default definition (no reloads).
	CommandsFile string `envconfig:"COMMANDS_FILE" default:"config/commands.json"`

	// DispatchTimeout bounds how long a worker waits on the host loop for a
	// mutating command's result.
	DispatchTimeout time.Duration `envconfig:"DISPATCH_TIMEOUT" default:"10s"`

	// TickInterval is the host loop cadence; MaxTasksPerTick caps how many
	// queued mutations a single tick may drain.
	TickInterval    time.Duration `envconfig:"TICK_INTERVAL" default:"20ms"`
	MaxTasksPerTick int           `envconfig:"MAX_TASKS_PER_TICK" default:"32"`

	// COMMS: connect to standalone NATS at COMMSURL. Empty disables change
	// events.
	COMMSURL           string `envconfig:"COMMS_URL"`
	COMMSName          string `envconfig:"SERVICE_NAME" default:"livebridge"`
	ChangeEventSubject string `envconfig:"CHANGE_EVENT_SUBJECT"`

	// Database: audit trail of dispatched commands. Empty disables auditing.
	DatabaseURL string `envconfig:"DATABASE_URL"`

	// Logging
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// ValidateForServe checks required config when running the bridge.
func (c *Config) ValidateForServe() error {
	if c.BindAddr == "" {
		return fmt.Errorf("%s - BIND_ADDR is required for serve", logPrefix)
	}
	if c.DispatchTimeout <= 0 {
		return fmt.Errorf("%s - DISPATCH_TIMEOUT must be positive", logPrefix)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("%s - TICK_INTERVAL must be positive", logPrefix)
	}
	if c.MaxTasksPerTick <= 0 {
		return fmt.Errorf("%s - MAX_TASKS_PER_TICK must be positive", logPrefix)
	}
	return nil
}

// ValidateForDB checks required config when running DB-dependent commands
// (ensure-db, clear).
func (c *Config) ValidateForDB() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("%s - DATABASE_URL is required", logPrefix)
	}
	return nil
}
