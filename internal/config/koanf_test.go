// Linewatch - Real-time Production Line Telemetry Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linewatch

package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load("")
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}

	tests := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"feed endpoint", cfg.Feed.Endpoint, "ws://localhost:8080"},
		{"client id", cfg.Feed.ClientID, "linewatch"},
		{"read limit", cfg.Feed.ReadLimit, int64(1 << 20)},
		{"buffer capacity", cfg.Buffer.Capacity, 60},
		{"max entities", cfg.Buffer.MaxEntities, 256},
		{"throttle", cfg.Throttle.Interval, time.Second},
		{"heartbeat", cfg.Heartbeat.Enabled, true},
		{"reconnect cap", cfg.Reconnect.Cap, 30 * time.Second},
		{"jitter", cfg.Reconnect.Jitter, 0.2},
		{"max retries", cfg.Reconnect.MaxRetries, 0},
		{"command rate", cfg.Commands.Rate, 5.0},
		{"alarm capacity", cfg.Alarms.Capacity, 100},
		{"http port", cfg.Server.Port, 8090},
		{"cors", cfg.Server.CORSOrigins, []string{"*"}},
		{"log level", cfg.Logging.Level, "info"},
		{"supervisor backoff", cfg.Supervisor.FailureBackoff, 15 * time.Second},
	}
	for _, tt := range tests {
		if !reflect.DeepEqual(tt.got, tt.want) {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeYAML(t, `
feed:
  endpoint: wss://plant.example.com/telemetry
  client_id: from-file
buffer:
  capacity: 120
throttle:
  interval: 250ms
server:
  cors_origins:
    - https://dash.example.com
`)
	t.Setenv("FEED_CLIENT_ID", "from-env")
	t.Setenv("RECONNECT_MAX_RETRIES", "7")
	t.Setenv("HEARTBEAT_ENABLED", "false")
	t.Setenv("UNRELATED_VARIABLE", "ignored")

	cfg, err := load(path)
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}

	if cfg.Feed.Endpoint != "wss://plant.example.com/telemetry" {
		t.Errorf("endpoint = %q", cfg.Feed.Endpoint)
	}
	if cfg.Feed.ClientID != "from-env" {
		t.Errorf("client id = %q, env should win over file", cfg.Feed.ClientID)
	}
	if cfg.Buffer.Capacity != 120 {
		t.Errorf("capacity = %d", cfg.Buffer.Capacity)
	}
	if cfg.Throttle.Interval != 250*time.Millisecond {
		t.Errorf("throttle = %v", cfg.Throttle.Interval)
	}
	if cfg.Reconnect.MaxRetries != 7 || cfg.Heartbeat.Enabled {
		t.Errorf("reconnect/heartbeat = %d/%v", cfg.Reconnect.MaxRetries, cfg.Heartbeat.Enabled)
	}
	if !reflect.DeepEqual(cfg.Server.CORSOrigins, []string{"https://dash.example.com"}) {
		t.Errorf("cors = %v", cfg.Server.CORSOrigins)
	}
}

func TestLoad_CommaSeparatedCORS(t *testing.T) {
	t.Setenv("CORS_ORIGINS", "https://a.example.com, https://b.example.com,")
	cfg, err := load("")
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}
	want := []string{"https://a.example.com", "https://b.example.com"}
	if !reflect.DeepEqual(cfg.Server.CORSOrigins, want) {
		t.Errorf("cors = %v, want %v", cfg.Server.CORSOrigins, want)
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Run("invalid endpoint", func(t *testing.T) {
		t.Setenv("FEED_ENDPOINT", "http://not-a-websocket")
		if _, err := load(""); err == nil {
			t.Error("expected validation error")
		}
	})
	t.Run("malformed yaml", func(t *testing.T) {
		if _, err := load(writeYAML(t, "feed: [unclosed")); err == nil {
			t.Error("expected parse error")
		}
	})
	t.Run("missing file", func(t *testing.T) {
		if _, err := load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
			t.Error("expected file error")
		}
	})
}

func TestFindConfigFile_EnvOverride(t *testing.T) {
	path := writeYAML(t, "buffer:\n  capacity: 5\n")
	t.Setenv(ConfigPathEnvVar, path)
	if got := findConfigFile(); got != path {
		t.Errorf("findConfigFile() = %q, want %q", got, path)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Buffer.Capacity != 5 {
		t.Errorf("capacity = %d, want 5", cfg.Buffer.Capacity)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := map[string]string{
		"FEED_ENDPOINT":            "feed.endpoint",
		"BUFFER_CAPACITY":          "buffer.capacity",
		"COMMAND_BURST":            "commands.burst",
		"HTTP_PORT":                "server.port",
		"LOG_FILE":                 "logging.file",
		"SUPERVISOR_FAILURE_DECAY": "supervisor.failure_decay",
		"PATH":                     "",
		"HOME":                     "",
	}
	for in, want := range tests {
		if got := envTransformFunc(in); got != want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", in, got, want)
		}
	}
}
