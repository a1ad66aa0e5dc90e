package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := Default("/tmp/taskflow.db")
	if cfg.Storage.Path != "/tmp/taskflow.db" || cfg.Storage.Backend != BackendSQLite {
		t.Fatalf("unexpected storage %#v", cfg.Storage)
	}
	if cfg.Board.PageSize != 4 {
		t.Fatalf("unexpected page size %d", cfg.Board.PageSize)
	}
	if !cfg.Confirm.Delete || !cfg.Confirm.Import || !cfg.Confirm.Clear {
		t.Fatal("expected confirmations enabled by default")
	}
	if cfg.Backup.Schedule != "" {
		t.Fatal("expected scheduled backups disabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	defaults := Default("/tmp/taskflow.db")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"), defaults)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Storage.Path != defaults.Storage.Path {
		t.Fatalf("expected default store path, got %q", cfg.Storage.Path)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[storage]
backend = "file"
path = "/custom/taskflow.json"

[board]
page_size = 6
timezone = "UTC"

[server]
bind = "0.0.0.0:9000"

[backup]
schedule = "0 3 * * *"
dir = "/custom/backups"
keep = 3

[confirm]
delete = false
`)
	cfg, err := Load(path, Default("/tmp/default.db"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Storage.Backend != BackendFile || cfg.Storage.Path != "/custom/taskflow.json" {
		t.Fatalf("unexpected storage %#v", cfg.Storage)
	}
	if cfg.Board.PageSize != 6 {
		t.Fatalf("unexpected page size %d", cfg.Board.PageSize)
	}
	if cfg.Server.Bind != "0.0.0.0:9000" || cfg.Server.APIEndpoint != "/api/v1" {
		t.Fatalf("unexpected server %#v", cfg.Server)
	}
	if cfg.Backup.Keep != 3 || cfg.Backup.Schedule != "0 3 * * *" {
		t.Fatalf("unexpected backup %#v", cfg.Backup)
	}
	if cfg.Confirm.Delete || !cfg.Confirm.Import {
		t.Fatalf("unexpected confirm %#v", cfg.Confirm)
	}
	loc, err := cfg.Location()
	if err != nil || loc != time.UTC {
		t.Fatalf("Location() = %v, %v", loc, err)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"backend":       "[storage]\nbackend = \"redis\"\npath = \"/x\"\n",
		"page size":     "[board]\npage_size = 0\n",
		"timezone":      "[board]\ntimezone = \"Mars/Olympus\"\n",
		"endpoint":      "[server]\napi_endpoint = \"api\"\n",
		"schedule":      "[backup]\nschedule = \"every now and then\"\ndir = \"/b\"\n",
		"schedule dir":  "[backup]\nschedule = \"@daily\"\ndir = \"\"\n",
		"log level":     "[logging]\nlevel = \"loud\"\n",
		"malformed":     "[storage\n",
		"negative keep": "[backup]\nkeep = -1\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, content), Default("/tmp/default.db")); err == nil {
				t.Fatal("expected error")
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
