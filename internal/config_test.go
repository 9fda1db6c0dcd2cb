package internal

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("COMMAND_DECK_SERVER", "")
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Server != DefaultServer {
		t.Errorf("Server = %q, want %q", cfg.Server, DefaultServer)
	}
	if cfg.ReconnectDelay != DefaultReconnectDelay {
		t.Errorf("ReconnectDelay = %v, want %v", cfg.ReconnectDelay, DefaultReconnectDelay)
	}
	if cfg.IntegrationCooldown != DefaultIntegrationCooldown {
		t.Errorf("IntegrationCooldown = %v, want %v", cfg.IntegrationCooldown, DefaultIntegrationCooldown)
	}
	if cfg.RequestTimeout != 0 {
		t.Errorf("RequestTimeout = %v, want 0", cfg.RequestTimeout)
	}
}

func TestLoadConfig_File(t *testing.T) {
	t.Setenv("COMMAND_DECK_SERVER", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`server: https://deck.example.com/
push_path: events
reconnect_delay: 2s
integration_cooldown: 500ms
journal: /tmp/deck.db
`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Server != "https://deck.example.com" {
		t.Errorf("Server = %q", cfg.Server)
	}
	if cfg.PushPath != "/events" {
		t.Errorf("PushPath = %q, want /events", cfg.PushPath)
	}
	if cfg.ReconnectDelay != 2*time.Second {
		t.Errorf("ReconnectDelay = %v", cfg.ReconnectDelay)
	}
	if cfg.IntegrationCooldown != 500*time.Millisecond {
		t.Errorf("IntegrationCooldown = %v", cfg.IntegrationCooldown)
	}
	if cfg.Journal != "/tmp/deck.db" {
		t.Errorf("Journal = %q", cfg.Journal)
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("COMMAND_DECK_SERVER", "http://10.0.0.5:9000")
	t.Setenv("COMMAND_DECK_RECONNECT_DELAY", "750ms")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Server != "http://10.0.0.5:9000" {
		t.Errorf("Server = %q", cfg.Server)
	}
	if cfg.ReconnectDelay != 750*time.Millisecond {
		t.Errorf("ReconnectDelay = %v", cfg.ReconnectDelay)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "bad yaml", body: "server: [unterminated"},
		{name: "bad scheme", body: "server: ftp://deck"},
		{name: "no host", body: "server: http://"},
		{name: "negative cooldown", body: "integration_cooldown: -1s"},
	}
	t.Setenv("COMMAND_DECK_SERVER", "")

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.body), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadConfig(path); err == nil {
				t.Error("LoadConfig() expected error")
			}
		})
	}
}

func TestConfig_PushURL(t *testing.T) {
	tests := []struct {
		server string
		path   string
		want   string
	}{
		{server: "http://127.0.0.1:8000", path: "/ws", want: "ws://127.0.0.1:8000/ws"},
		{server: "https://deck.example.com", path: "/ws", want: "wss://deck.example.com/ws"},
		{server: "http://host/studio", path: "/events", want: "ws://host/studio/events"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			cfg := Config{Server: tt.server, PushPath: tt.path}
			got, err := cfg.PushURL()
			if err != nil {
				t.Fatalf("PushURL() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("PushURL() = %q, want %q", got, tt.want)
			}
		})
	}
}
