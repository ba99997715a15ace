package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigJSONDefaults(t *testing.T) {
	path := writeConfig(t, "config.json", `{"ollama": {"api_key": "secret"}}`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Ollama.Endpoint != DefaultEndpoint {
		t.Fatalf("endpoint default not applied: %q", cfg.Ollama.Endpoint)
	}
	if cfg.Ollama.APIKey != "secret" {
		t.Fatalf("api key not loaded: %q", cfg.Ollama.APIKey)
	}
	if cfg.Server.Address() != "localhost:8080" {
		t.Fatalf("unexpected address %q", cfg.Server.Address())
	}
	if cfg.Ollama.VisionTimeout() != 120*time.Second {
		t.Fatalf("unexpected timeout %v", cfg.Ollama.VisionTimeout())
	}
}

func TestLoadConfigTOML(t *testing.T) {
	path := writeConfig(t, "config.toml", `
[ollama]
endpoint = "http://gpu-box:11434"
vision_model = "qwen2.5vl"
temperature = 0.1

[database]
driver = "SQLite3"
dsn = "/tmp/organizer.db"

[log]
format = "json"
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Ollama.VisionModel != "qwen2.5vl" || cfg.Ollama.Temperature != 0.1 {
		t.Fatalf("ollama section not decoded: %+v", cfg.Ollama)
	}
	if cfg.Database.Driver != "sqlite3" {
		t.Fatalf("driver not normalized: %q", cfg.Database.Driver)
	}
	if cfg.Log.Format != "json" || cfg.Log.Level != "info" {
		t.Fatalf("log section unexpected: %+v", cfg.Log)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	path := writeConfig(t, "bad.json", `{"ollama": {"endpoint": "not a url"}, "database": {"driver": "oracle"}, "log": {"format": "xml"}}`)
	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"ollama.endpoint", "database.driver", "log.format"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}
