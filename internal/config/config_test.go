package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
anthropic:
  model: claude-test-model
server:
  host: 0.0.0.0
  port: 9000
storage:
  path: /tmp/fleet-test.db
fleet:
  sweep_interval: 30s
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}

	if cfg.Anthropic.Model != "claude-test-model" {
		t.Errorf("model = %q", cfg.Anthropic.Model)
	}
	if cfg.Server.Host != "0.0.0.0" || cfg.Server.Port != 9000 {
		t.Errorf("server = %s:%d", cfg.Server.Host, cfg.Server.Port)
	}
	if cfg.Storage.Path != "/tmp/fleet-test.db" {
		t.Errorf("storage path = %q", cfg.Storage.Path)
	}
	if cfg.Fleet.SweepInterval != 30*time.Second {
		t.Errorf("sweep interval = %v", cfg.Fleet.SweepInterval)
	}
}

func TestLoadFromPathDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("{}\n"), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("default host = %q", cfg.Server.Host)
	}
	if cfg.Server.Port != 8844 {
		t.Errorf("default port = %d", cfg.Server.Port)
	}
	if cfg.Fleet.SweepInterval != 10*time.Second {
		t.Errorf("default sweep interval = %v", cfg.Fleet.SweepInterval)
	}
	if cfg.Anthropic.UseAWSBedrock {
		t.Error("bedrock enabled by default")
	}
}

func TestAPIKeyEnvExpansion(t *testing.T) {
	t.Setenv("TEST_FLEET_KEY", "sk-ant-expanded-key-value")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "anthropic:\n  api_key: ${TEST_FLEET_KEY}\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.Anthropic.APIKey != "sk-ant-expanded-key-value" {
		t.Errorf("api key = %q, want expanded value", cfg.Anthropic.APIKey)
	}
}

func TestDatabasePath(t *testing.T) {
	cfg := Default()
	cfg.Storage.Path = "/var/lib/fleet.db"
	if got := cfg.DatabasePath(); got != "/var/lib/fleet.db" {
		t.Errorf("explicit path = %q", got)
	}

	cfg.Storage.Path = ""
	t.Setenv("XDG_DATA_HOME", "/xdg/data")
	want := filepath.Join("/xdg/data", "taskfleet", "fleet.db")
	if got := cfg.DatabasePath(); got != want {
		t.Errorf("xdg path = %q, want %q", got, want)
	}
}

func TestGetAPIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	os.Unsetenv("ANTHROPIC_API_KEY")

	if _, err := GetAPIKey(nil); err != ErrNoAPIKey {
		t.Errorf("nil config: err = %v, want ErrNoAPIKey", err)
	}

	cfg := Default()
	cfg.Anthropic.APIKey = "sk-ant-from-config"
	key, err := GetAPIKey(cfg)
	if err != nil {
		t.Fatalf("GetAPIKey: %v", err)
	}
	if key != "sk-ant-from-config" {
		t.Errorf("key = %q", key)
	}

	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-from-env")
	key, err = GetAPIKey(cfg)
	if err != nil {
		t.Fatalf("GetAPIKey: %v", err)
	}
	if key != "sk-ant-from-env" {
		t.Errorf("env should win, got %q", key)
	}
}

func TestValidateAPIKey(t *testing.T) {
	if err := ValidateAPIKey(""); err != ErrNoAPIKey {
		t.Errorf("empty key: err = %v", err)
	}
	if err := ValidateAPIKey("not-a-key"); err == nil {
		t.Error("expected error for bad prefix")
	}
	if err := ValidateAPIKey("sk-ant-x"); err == nil {
		t.Error("expected error for short key")
	}
	if err := ValidateAPIKey("sk-ant-abcdefghijklmnop"); err != nil {
		t.Errorf("valid key rejected: %v", err)
	}
}

func TestMaskAPIKey(t *testing.T) {
	if got := MaskAPIKey(""); got != "(not set)" {
		t.Errorf("empty = %q", got)
	}
	if got := MaskAPIKey("short"); got != "***" {
		t.Errorf("short = %q", got)
	}
	masked := MaskAPIKey("sk-ant-REDACTED")
	if masked != "sk-ant-...1234" {
		t.Errorf("masked = %q", masked)
	}
}
