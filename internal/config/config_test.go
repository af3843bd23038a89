package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir()) // no config.yml present
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("expected default port, got %d", cfg.Server.Port)
	}
	if cfg.Retention.Months != 2 || cfg.Retention.Interval != 24*time.Hour {
		t.Fatalf("unexpected retention defaults: %+v", cfg.Retention)
	}
	if !cfg.Retention.Enabled {
		t.Fatal("retention should default to enabled")
	}
	if cfg.Addr() != "0.0.0.0:8080" {
		t.Fatalf("unexpected addr %s", cfg.Addr())
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := writeConfig(t, `
server:
  host: 127.0.0.1
  port: 9000
database:
  path: /tmp/test.db
retention:
  months: 3
  interval: 6h
  export_dir: /tmp/audits
auth:
  allowed_user_ids: [101, 202]
`)
	cfg, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Fatalf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Retention.Months != 3 || cfg.Retention.Interval != 6*time.Hour {
		t.Fatalf("unexpected retention config: %+v", cfg.Retention)
	}
	if cfg.Retention.ExportDir != "/tmp/audits" {
		t.Fatalf("unexpected export dir %s", cfg.Retention.ExportDir)
	}
	if len(cfg.Auth.AllowedUserIDs) != 2 || cfg.Auth.AllowedUserIDs[0] != 101 {
		t.Fatalf("unexpected allow-list: %v", cfg.Auth.AllowedUserIDs)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := []string{
		"server:\n  port: -1\n",
		"retention:\n  months: 0\n",
		"retention:\n  interval: 5s\n",
		"database:\n  path: \"\"\n",
	}
	for _, content := range cases {
		dir := writeConfig(t, content)
		if _, err := Load(dir); err == nil {
			t.Errorf("expected validation error for %q", content)
		}
	}
}

func TestUserAllowed(t *testing.T) {
	var cfg Config
	if !cfg.UserAllowed(7) {
		t.Fatal("empty allow-list must be open")
	}
	cfg.Auth.AllowedUserIDs = []int64{1, 2}
	if !cfg.UserAllowed(2) {
		t.Fatal("listed user must be allowed")
	}
	if cfg.UserAllowed(3) {
		t.Fatal("unlisted user must be rejected")
	}
}
