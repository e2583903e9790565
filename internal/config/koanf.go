// Linewatch - Real-time Production Line Telemetry Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linewatch

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the config files searched, first match wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/linewatch/config.yaml",
	"/etc/linewatch/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns the built-in defaults. They are loaded first and
// overridden by the config file and environment.
func defaultConfig() *Config {
	return &Config{
		Feed: FeedConfig{
			Endpoint:         "ws://localhost:8080",
			ClientID:         "linewatch",
			HandshakeTimeout: 10 * time.Second,
			ReadLimit:        1 << 20,
		},
		Buffer: BufferConfig{
			Capacity:      60,
			MaxEntities:   256,
			IdleTTL:       time.Hour,
			SweepInterval: time.Minute,
		},
		Throttle: ThrottleConfig{
			Interval: time.Second,
		},
		Heartbeat: HeartbeatConfig{
			Enabled:  true,
			Interval: 30 * time.Second,
			Timeout:  10 * time.Second,
		},
		Reconnect: ReconnectConfig{
			Base:             time.Second,
			Factor:           2,
			Cap:              30 * time.Second,
			Jitter:           0.2,
			MaxRetries:       0, // retry forever
			BreakerThreshold: 5,
			BreakerTimeout:   30 * time.Second,
		},
		Commands: CommandsConfig{
			Rate:  5,
			Burst: 10,
		},
		Alarms: AlarmsConfig{
			Capacity: 100,
		},
		Server: ServerConfig{
			Enabled:         true,
			Host:            "0.0.0.0",
			Port:            8090,
			Timeout:         30 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   300,
			RateLimitWindow: time.Minute,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			Caller:     false,
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Supervisor: SupervisorConfig{
			FailureThreshold: 5,
			FailureDecay:     30,
			FailureBackoff:   15 * time.Second,
			ShutdownTimeout:  10 * time.Second,
		},
	}
}

// Load loads configuration with Koanf v2 in layers:
//  1. Defaults: built-in values from defaultConfig
//  2. Config File: optional YAML file (CONFIG_PATH or DefaultConfigPaths)
//  3. Environment Variables: mapped through envTransformFunc
//
// Precedence is ENV > File > Defaults. The result is validated.
func Load() (*Config, error) {
	return load(findConfigFile())
}

func load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// findConfigFile returns the first config file found, or "" when none exists.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are parsed from comma-separated env values.
var sliceConfigPaths = []string{
	"server.cors_origins",
}

// processSliceFields splits comma-separated strings for known slice fields.
// Env vars arrive as strings while YAML already yields slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps lower-cased environment variable names to config paths.
var envMappings = map[string]string{
	"feed_endpoint":          "feed.endpoint",
	"feed_client_id":         "feed.client_id",
	"feed_handshake_timeout": "feed.handshake_timeout",
	"feed_read_limit":        "feed.read_limit",

	"buffer_capacity":       "buffer.capacity",
	"buffer_max_entities":   "buffer.max_entities",
	"buffer_idle_ttl":       "buffer.idle_ttl",
	"buffer_sweep_interval": "buffer.sweep_interval",

	"throttle_interval": "throttle.interval",

	"heartbeat_enabled":  "heartbeat.enabled",
	"heartbeat_interval": "heartbeat.interval",
	"heartbeat_timeout":  "heartbeat.timeout",

	"reconnect_base":              "reconnect.base",
	"reconnect_factor":            "reconnect.factor",
	"reconnect_cap":               "reconnect.cap",
	"reconnect_jitter":            "reconnect.jitter",
	"reconnect_max_retries":       "reconnect.max_retries",
	"reconnect_breaker_threshold": "reconnect.breaker_threshold",
	"reconnect_breaker_timeout":   "reconnect.breaker_timeout",

	"command_rate":  "commands.rate",
	"command_burst": "commands.burst",

	"alarm_capacity": "alarms.capacity",

	"http_enabled":      "server.enabled",
	"http_host":         "server.host",
	"http_port":         "server.port",
	"http_timeout":      "server.timeout",
	"cors_origins":      "server.cors_origins",
	"rate_limit_reqs":   "server.rate_limit_reqs",
	"rate_limit_window": "server.rate_limit_window",

	"log_level":        "logging.level",
	"log_format":       "logging.format",
	"log_caller":       "logging.caller",
	"log_file":         "logging.file",
	"log_max_size_mb":  "logging.max_size_mb",
	"log_max_backups":  "logging.max_backups",
	"log_max_age_days": "logging.max_age_days",
	"log_compress":     "logging.compress",

	"supervisor_failure_threshold": "supervisor.failure_threshold",
	"supervisor_failure_decay":     "supervisor.failure_decay",
	"supervisor_failure_backoff":   "supervisor.failure_backoff",
	"supervisor_shutdown_timeout":  "supervisor.shutdown_timeout",
}

// envTransformFunc maps environment variable names to koanf paths. Unmapped
// variables return "" and are skipped, so unrelated environment does not
// leak into the configuration.
//
// Examples:
//   - FEED_ENDPOINT -> feed.endpoint
//   - BUFFER_CAPACITY -> buffer.capacity
//   - HTTP_PORT -> server.port
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
