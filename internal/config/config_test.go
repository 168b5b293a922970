package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}

	// Verify default orchestrator config
	if cfg.Orchestrator.MaxConcurrentAgents != 10 {
		t.Errorf("Orchestrator.MaxConcurrentAgents = %d, want 10", cfg.Orchestrator.MaxConcurrentAgents)
	}
	if cfg.Orchestrator.MetricsIntervalSeconds != 30 {
		t.Errorf("Orchestrator.MetricsIntervalSeconds = %d, want 30", cfg.Orchestrator.MetricsIntervalSeconds)
	}

	// Verify default notify config
	if cfg.Notify.QueueSize != 1024 {
		t.Errorf("Notify.QueueSize = %d, want 1024", cfg.Notify.QueueSize)
	}
	if !cfg.Notify.WebsocketEnabled {
		t.Error("Notify.WebsocketEnabled should be true by default")
	}
	if cfg.Notify.RedisURL != "" {
		t.Errorf("Notify.RedisURL = %q, want empty", cfg.Notify.RedisURL)
	}
	if cfg.Notify.RedisStream != "fleet.events" {
		t.Errorf("Notify.RedisStream = %q, want %q", cfg.Notify.RedisStream, "fleet.events")
	}

	if cfg.Server.Addr != ":8080" {
		t.Errorf("Server.Addr = %q, want %q", cfg.Server.Addr, ":8080")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}
	if cfg.Telemetry.OTLPEndpoint != "" {
		t.Error("Telemetry should be disabled by default")
	}
}

func TestOrchestratorConfig_Durations(t *testing.T) {
	cfg := OrchestratorConfig{
		MetricsIntervalSeconds: 15,
		StopTimeoutSeconds:     2,
		ShutdownTimeoutSeconds: 45,
	}

	if got := cfg.MetricsInterval(); got != 15*time.Second {
		t.Errorf("MetricsInterval() = %v, want 15s", got)
	}
	if got := cfg.StopTimeout(); got != 2*time.Second {
		t.Errorf("StopTimeout() = %v, want 2s", got)
	}
	if got := cfg.ShutdownTimeout(); got != 45*time.Second {
		t.Errorf("ShutdownTimeout() = %v, want 45s", got)
	}

	cfg.MetricsIntervalSeconds = 0
	if got := cfg.MetricsInterval(); got != 0 {
		t.Errorf("MetricsInterval() = %v, want 0 when disabled", got)
	}
}

func TestConfigDir(t *testing.T) {
	t.Run("with XDG_CONFIG_HOME", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/custom/config")
		result := ConfigDir()
		expected := "/custom/config/fleet"
		if result != expected {
			t.Errorf("ConfigDir() = %q, want %q", result, expected)
		}
	})

	t.Run("without XDG_CONFIG_HOME", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")
		result := ConfigDir()

		home, _ := os.UserHomeDir()
		expected := filepath.Join(home, ".config", "fleet")
		if result != expected {
			t.Errorf("ConfigDir() = %q, want %q", result, expected)
		}
	})
}

func TestConfigFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	result := ConfigFile()
	expected := "/custom/config/fleet/config.yaml"
	if result != expected {
		t.Errorf("ConfigFile() = %q, want %q", result, expected)
	}
}

func TestGet(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	SetDefaults()

	cfg := Get()
	if cfg == nil {
		t.Fatal("Get() returned nil")
	}
	if cfg.Orchestrator.MaxConcurrentAgents != 10 {
		t.Errorf("Get().Orchestrator.MaxConcurrentAgents = %d, want 10", cfg.Orchestrator.MaxConcurrentAgents)
	}
	if cfg.Notify.RedisMaxLen != 10000 {
		t.Errorf("Get().Notify.RedisMaxLen = %d, want 10000", cfg.Notify.RedisMaxLen)
	}
}

func TestLoad_FromFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	SetDefaults()

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "orchestrator:\n  max_concurrent_agents: 3\nserver:\n  addr: 127.0.0.1:9000\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig() error = %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Orchestrator.MaxConcurrentAgents != 3 {
		t.Errorf("MaxConcurrentAgents = %d, want 3", cfg.Orchestrator.MaxConcurrentAgents)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Errorf("Server.Addr = %q, want %q", cfg.Server.Addr, "127.0.0.1:9000")
	}
	// Unset keys keep their defaults
	if cfg.Notify.QueueSize != 1024 {
		t.Errorf("Notify.QueueSize = %d, want 1024", cfg.Notify.QueueSize)
	}
}

func TestLoad_Invalid(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	SetDefaults()
	viper.Set("orchestrator.max_concurrent_agents", 0)

	_, err := Load()
	if err == nil {
		t.Fatal("Load() should reject max_concurrent_agents = 0")
	}
	verrs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("Load() error type = %T, want ValidationErrors", err)
	}
	if verrs[0].Field != "orchestrator.max_concurrent_agents" {
		t.Errorf("Field = %q, want orchestrator.max_concurrent_agents", verrs[0].Field)
	}

	// Get falls back to defaults
	if got := Get().Orchestrator.MaxConcurrentAgents; got != 10 {
		t.Errorf("Get() fallback MaxConcurrentAgents = %d, want 10", got)
	}
}

func TestWatch(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	SetDefaults()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("orchestrator:\n  max_concurrent_agents: 2\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig() error = %v", err)
	}

	changes := make(chan int, 8)
	Watch(func(cfg *Config) {
		changes <- cfg.Orchestrator.MaxConcurrentAgents
	}, nil)

	// Give the watcher time to register before editing
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("orchestrator:\n  max_concurrent_agents: 7\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case n := <-changes:
			if n == 7 {
				return
			}
		case <-deadline:
			t.Fatal("Watch() did not report the edited max_concurrent_agents")
		}
	}
}
