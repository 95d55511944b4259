package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default("/tmp/timebox.db")
	if cfg.Database.Path != "/tmp/timebox.db" {
		t.Fatalf("unexpected db path %q", cfg.Database.Path)
	}
	if cfg.Storage.Key != "timebox.activities" {
		t.Fatalf("unexpected storage key %q", cfg.Storage.Key)
	}
	if cfg.WarningThreshold() != time.Minute {
		t.Fatalf("unexpected warning threshold %s", cfg.WarningThreshold())
	}
	if !cfg.Alert.Enabled || cfg.Alert.Beeps != 3 || cfg.AlertInterval() != 400*time.Millisecond {
		t.Fatalf("unexpected alert defaults %+v", cfg.Alert)
	}
	if cfg.Server.Bind != "127.0.0.1:8080" || cfg.Server.APIEndpoint != "/api/v1" || cfg.Server.MCPEndpoint != "/mcp" {
		t.Fatalf("unexpected server defaults %+v", cfg.Server)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	defaults := Default("/tmp/timebox.db")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"), defaults)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.Path != defaults.Database.Path {
		t.Fatalf("expected default db path, got %q", cfg.Database.Path)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[database]
path = "/custom/timebox.db"

[storage]
key = "work.activities"

[timer]
warning_seconds = 120

[alert]
enabled = false
beeps = 1

[export]
dir = "/tmp/exports"

[server]
bind = "0.0.0.0:9090"

[logging]
level = "debug"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(path, Default("/tmp/default.db"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.Path != "/custom/timebox.db" {
		t.Fatalf("unexpected db path %q", cfg.Database.Path)
	}
	if cfg.Storage.Key != "work.activities" {
		t.Fatalf("unexpected storage key %q", cfg.Storage.Key)
	}
	if cfg.WarningThreshold() != 2*time.Minute {
		t.Fatalf("unexpected warning threshold %s", cfg.WarningThreshold())
	}
	if cfg.Alert.Enabled || cfg.Alert.Beeps != 1 {
		t.Fatalf("unexpected alert config %+v", cfg.Alert)
	}
	if cfg.Alert.IntervalMS != 400 {
		t.Fatalf("expected untouched interval default, got %d", cfg.Alert.IntervalMS)
	}
	if cfg.Export.Dir != "/tmp/exports" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected export/logging config %+v %+v", cfg.Export, cfg.Logging)
	}
	if cfg.Server.Bind != "0.0.0.0:9090" || cfg.Server.APIEndpoint != "/api/v1" {
		t.Fatalf("unexpected server config %+v", cfg.Server)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"beeps":   "[alert]\nbeeps = 0\n",
		"warning": "[timer]\nwarning_seconds = -1\n",
		"level":   "[logging]\nlevel = \"loud\"\n",
		"key":     "[storage]\nkey = \" \"\n",
		"toml":    "[alert\n",
		"bind":    "[server]\nbind = \"\"\n",
		"collide": "[server]\napi_endpoint = \"/mcp/\"\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				t.Fatalf("WriteFile() error = %v", err)
			}
			if _, err := Load(path, Default("/tmp/default.db")); err == nil {
				t.Fatal("expected Load() error")
			}
		})
	}
}

func TestEnsureConfigDir(t *testing.T) {
	target := filepath.Join(t.TempDir(), "a", "b", "config.toml")
	if err := EnsureConfigDir(target); err != nil {
		t.Fatalf("EnsureConfigDir() error = %v", err)
	}
	if _, err := os.Stat(filepath.Dir(target)); err != nil {
		t.Fatalf("expected dir to exist, stat error %v", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := Default("/tmp/timebox.db")
	cfg.Timer.WarningSeconds = 90
	cfg.Alert.Enabled = false
	cfg.Export.Dir = "/tmp/exports"
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := Load(path, Default("/tmp/other.db"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Database.Path != "/tmp/timebox.db" || got.Timer.WarningSeconds != 90 || got.Alert.Enabled || got.Export.Dir != "/tmp/exports" {
		t.Fatalf("unexpected round trip config %#v", got)
	}
}

func TestSaveRejectsInvalidConfig(t *testing.T) {
	cfg := Default("/tmp/timebox.db")
	cfg.Alert.Beeps = 0
	if err := Save(filepath.Join(t.TempDir(), "config.toml"), cfg); err == nil {
		t.Fatal("expected Save() validation error")
	}
	if err := Save(" ", Default("/tmp/timebox.db")); err == nil {
		t.Fatal("expected Save() error for blank path")
	}
}
