package config

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g.
// FLEET_ORCHESTRATOR_MAX_CONCURRENT_AGENTS.
const EnvPrefix = "FLEET"

// Config represents the complete fleet configuration
type Config struct {
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator" yaml:"orchestrator"`
	Notify       NotifyConfig       `mapstructure:"notify" yaml:"notify"`
	Server       ServerConfig       `mapstructure:"server" yaml:"server"`
	Logging      LoggingConfig      `mapstructure:"logging" yaml:"logging"`
	Telemetry    TelemetryConfig    `mapstructure:"telemetry" yaml:"telemetry"`
}

// OrchestratorConfig controls admission and timing of the orchestrator
type OrchestratorConfig struct {
	// MaxConcurrentAgents is how many tasks may run at once. It can be
	// changed while the server runs by editing the config file.
	MaxConcurrentAgents int `mapstructure:"max_concurrent_agents" yaml:"max_concurrent_agents"`
	// MetricsIntervalSeconds is how often agent_metrics_updated is pushed (0 = disabled)
	MetricsIntervalSeconds int `mapstructure:"metrics_interval_seconds" yaml:"metrics_interval_seconds"`
	// StopTimeoutSeconds bounds how long API stop/unregister calls wait for a task to wind down
	StopTimeoutSeconds int `mapstructure:"stop_timeout_seconds" yaml:"stop_timeout_seconds"`
	// ShutdownTimeoutSeconds bounds graceful shutdown
	ShutdownTimeoutSeconds int `mapstructure:"shutdown_timeout_seconds" yaml:"shutdown_timeout_seconds"`
}

// NotifyConfig controls event delivery
type NotifyConfig struct {
	// QueueSize is the capacity of the event queue; events beyond it are dropped
	QueueSize int `mapstructure:"queue_size" yaml:"queue_size"`
	// WebsocketEnabled exposes the /api/v1/events WebSocket stream
	WebsocketEnabled bool `mapstructure:"websocket_enabled" yaml:"websocket_enabled"`
	// RedisURL enables the Redis stream notifier when non-empty (redis://host:port/db)
	RedisURL string `mapstructure:"redis_url" yaml:"redis_url"`
	// RedisStream is the stream key events are appended to
	RedisStream string `mapstructure:"redis_stream" yaml:"redis_stream"`
	// RedisMaxLen approximately caps the stream length (0 = unbounded)
	RedisMaxLen int64 `mapstructure:"redis_max_len" yaml:"redis_max_len"`
}

// ServerConfig controls the HTTP API
type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error"
	Level string `mapstructure:"level" yaml:"level"`
	// Dir is where fleet.log is written; empty logs to stderr
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// TelemetryConfig controls OpenTelemetry export
type TelemetryConfig struct {
	// OTLPEndpoint is the OTLP/HTTP collector host:port; empty disables export
	OTLPEndpoint string `mapstructure:"otlp_endpoint" yaml:"otlp_endpoint"`
	Insecure     bool   `mapstructure:"insecure" yaml:"insecure"`
	ServiceName  string `mapstructure:"service_name" yaml:"service_name"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Orchestrator: OrchestratorConfig{
			MaxConcurrentAgents:    10,
			MetricsIntervalSeconds: 30,
			StopTimeoutSeconds:     30,
			ShutdownTimeoutSeconds: 30,
		},
		Notify: NotifyConfig{
			QueueSize:        1024,
			WebsocketEnabled: true,
			RedisURL:         "",
			RedisStream:      "fleet.events",
			RedisMaxLen:      10000,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Logging: LoggingConfig{
			Level: "info",
			Dir:   "",
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: "",
			Insecure:     false,
			ServiceName:  "fleet",
		},
	}
}

// MetricsInterval returns the metrics push interval (0 means disabled)
func (c *OrchestratorConfig) MetricsInterval() time.Duration {
	return time.Duration(c.MetricsIntervalSeconds) * time.Second
}

// StopTimeout returns the stop/unregister wait bound
func (c *OrchestratorConfig) StopTimeout() time.Duration {
	return time.Duration(c.StopTimeoutSeconds) * time.Second
}

// ShutdownTimeout returns the graceful shutdown bound
func (c *OrchestratorConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Orchestrator defaults
	viper.SetDefault("orchestrator.max_concurrent_agents", defaults.Orchestrator.MaxConcurrentAgents)
	viper.SetDefault("orchestrator.metrics_interval_seconds", defaults.Orchestrator.MetricsIntervalSeconds)
	viper.SetDefault("orchestrator.stop_timeout_seconds", defaults.Orchestrator.StopTimeoutSeconds)
	viper.SetDefault("orchestrator.shutdown_timeout_seconds", defaults.Orchestrator.ShutdownTimeoutSeconds)

	// Notify defaults
	viper.SetDefault("notify.queue_size", defaults.Notify.QueueSize)
	viper.SetDefault("notify.websocket_enabled", defaults.Notify.WebsocketEnabled)
	viper.SetDefault("notify.redis_url", defaults.Notify.RedisURL)
	viper.SetDefault("notify.redis_stream", defaults.Notify.RedisStream)
	viper.SetDefault("notify.redis_max_len", defaults.Notify.RedisMaxLen)

	// Server defaults
	viper.SetDefault("server.addr", defaults.Server.Addr)

	// Logging defaults
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)

	// Telemetry defaults
	viper.SetDefault("telemetry.otlp_endpoint", defaults.Telemetry.OTLPEndpoint)
	viper.SetDefault("telemetry.insecure", defaults.Telemetry.Insecure)
	viper.SetDefault("telemetry.service_name", defaults.Telemetry.ServiceName)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Validate the configuration
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// Watch re-loads the configuration whenever the config file changes and
// passes each valid result to onChange. Invalid edits are reported to
// onError and otherwise ignored, leaving the previous settings in effect.
// Watch requires a config file to have been read by viper.
func Watch(onChange func(*Config), onError func(error)) {
	var mu sync.Mutex
	viper.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		mu.Lock()
		defer mu.Unlock()

		cfg, err := Load()
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onChange(cfg)
	})
	viper.WatchConfig()
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "fleet")
	}
	// Fall back to ~/.config/fleet
	home, err := os.UserHomeDir()
	if err != nil {
		return ".fleet"
	}
	return filepath.Join(home, ".config", "fleet")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
