package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(configPathEnv, "")
	t.Setenv(dbPathEnv, "")
	t.Setenv(serverAddrEnv, "")
	t.Setenv(geminiAPIKeyEnv, "")
	t.Setenv(geminiModelEnv, "")
	t.Setenv(telegramTokenEnv, "")

	cfg := Load()

	if cfg.Database.Path != "alfred.db" {
		t.Fatalf("unexpected db path: %s", cfg.Database.Path)
	}
	if cfg.Server.Addr != ":8080" {
		t.Fatalf("unexpected addr: %s", cfg.Server.Addr)
	}
	if cfg.Scheduler.Interval() != 15*time.Minute {
		t.Fatalf("unexpected interval: %s", cfg.Scheduler.Interval())
	}
	if cfg.Generation.Model != "gemini-2.5-flash" {
		t.Fatalf("unexpected model: %s", cfg.Generation.Model)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
database:
  path: /data/alfred.db
scheduler:
  intervalMinutes: 5
  parallelism: 8
generation:
  model: gemini-2.0-flash
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(configPathEnv, path)
	t.Setenv(dbPathEnv, "")
	t.Setenv(geminiModelEnv, "")

	cfg := Load()

	if cfg.Database.Path != "/data/alfred.db" {
		t.Fatalf("file value not applied: %s", cfg.Database.Path)
	}
	if cfg.Scheduler.Interval() != 5*time.Minute {
		t.Fatalf("file interval not applied: %s", cfg.Scheduler.Interval())
	}
	if cfg.Scheduler.Parallelism != 8 {
		t.Fatalf("file parallelism not applied: %d", cfg.Scheduler.Parallelism)
	}
	// Unset file keys keep defaults.
	if cfg.Server.Addr != ":8080" {
		t.Fatalf("unset key should keep default, got %s", cfg.Server.Addr)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("database:\n  path: /data/alfred.db\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(configPathEnv, path)
	t.Setenv(dbPathEnv, "/override/alfred.db")
	t.Setenv(geminiAPIKeyEnv, "test-key")

	cfg := Load()

	if cfg.Database.Path != "/override/alfred.db" {
		t.Fatalf("env should win over file, got %s", cfg.Database.Path)
	}
	if cfg.Generation.APIKey != "test-key" {
		t.Fatalf("env api key not applied: %s", cfg.Generation.APIKey)
	}
}

func TestMissingConfigFileFallsBack(t *testing.T) {
	t.Setenv(configPathEnv, filepath.Join(t.TempDir(), "absent.yaml"))
	t.Setenv(dbPathEnv, "")

	cfg := Load()

	if cfg.Database.Path != "alfred.db" {
		t.Fatalf("expected defaults on missing file, got %s", cfg.Database.Path)
	}
}
