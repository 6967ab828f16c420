package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	yamlContent := []byte(`
server:
  host: "127.0.0.1"
  port: 8090
storage:
  data_dir: "/tmp/marketview/data"
  sqlite_path: "/tmp/marketview/marketview.db"
market:
  offline: false
  api_key: "test-key"
  api_secret: "test-secret"
  rate_limit_per_min: 100
admin:
  credentials:
    - username: "root1"
      password: "pw1"
logging:
  level: "debug"
  format: "text"
client:
  server_url: "http://127.0.0.1:8090"
`)

	path := filepath.Join(t.TempDir(), "marketview.yaml")
	if err := os.WriteFile(path, yamlContent, 0o644); err != nil {
		t.Fatalf("writing temp config: %v", err)
	}

	// Clear any environment overrides that might interfere.
	for _, k := range []string{
		"MARKETVIEW_DATA_DIR", "SQLITE_PATH", "HOST", "PORT",
		"MARKETVIEW_OFFLINE", "LOG_LEVEL", "LOG_FORMAT",
		"APCA_API_KEY_ID", "APCA_API_SECRET_KEY",
	} {
		os.Unsetenv(k)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "127.0.0.1")
	}
	if cfg.Server.Port != 8090 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 8090)
	}
	if cfg.Storage.DataDir != "/tmp/marketview/data" {
		t.Errorf("Storage.DataDir = %q, want %q", cfg.Storage.DataDir, "/tmp/marketview/data")
	}
	if cfg.Market.Offline {
		t.Error("Market.Offline = true, want false")
	}
	if cfg.Market.APIKey != "test-key" {
		t.Errorf("Market.APIKey = %q, want %q", cfg.Market.APIKey, "test-key")
	}
	if len(cfg.Admin.Credentials) != 1 || cfg.Admin.Credentials[0].Username != "root1" {
		t.Errorf("Admin.Credentials = %+v, want single root1 entry", cfg.Admin.Credentials)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "text" {
		t.Errorf("Logging = %+v, want debug/text", cfg.Logging)
	}
	if cfg.Client.ServerURL != "http://127.0.0.1:8090" {
		t.Errorf("Client.ServerURL = %q, want %q", cfg.Client.ServerURL, "http://127.0.0.1:8090")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	os.Unsetenv("PORT")
	os.Unsetenv("MARKETVIEW_OFFLINE")

	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load() returned error for missing file: %v", err)
	}
	if cfg.Server.Port != 5000 {
		t.Errorf("Server.Port = %d, want default %d", cfg.Server.Port, 5000)
	}
	if !cfg.Market.Offline {
		t.Error("Market.Offline = false, want default true")
	}
	if len(cfg.Admin.Credentials) != 2 {
		t.Errorf("Admin.Credentials len = %d, want 2 defaults", len(cfg.Admin.Credentials))
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	yamlContent := []byte(`
storage:
  data_dir: "/original/data"
market:
  api_key: "yaml-key"
  api_secret: "yaml-secret"
`)

	path := filepath.Join(t.TempDir(), "marketview.yaml")
	if err := os.WriteFile(path, yamlContent, 0o644); err != nil {
		t.Fatalf("writing temp config: %v", err)
	}

	os.Setenv("MARKETVIEW_DATA_DIR", "/env/data")
	os.Setenv("APCA_API_KEY_ID", "env-key")
	os.Setenv("PORT", "9999")
	defer os.Unsetenv("MARKETVIEW_DATA_DIR")
	defer os.Unsetenv("APCA_API_KEY_ID")
	defer os.Unsetenv("PORT")
	os.Unsetenv("APCA_API_SECRET_KEY")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Storage.DataDir != "/env/data" {
		t.Errorf("Storage.DataDir = %q, want %q (env override)", cfg.Storage.DataDir, "/env/data")
	}
	if cfg.Market.APIKey != "env-key" {
		t.Errorf("Market.APIKey = %q, want %q (env override)", cfg.Market.APIKey, "env-key")
	}
	// api_secret should remain from YAML since no env override was set.
	if cfg.Market.APISecret != "yaml-secret" {
		t.Errorf("Market.APISecret = %q, want %q (from YAML)", cfg.Market.APISecret, "yaml-secret")
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want %d (env override)", cfg.Server.Port, 9999)
	}
}
