package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadAppliesDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Database.Driver != DriverPostgres {
		t.Fatalf("expected default driver %q, got %q", DriverPostgres, cfg.Database.Driver)
	}
	if cfg.Security.JWTAccessTTL != 15*time.Minute {
		t.Fatalf("expected access ttl 15m, got %s", cfg.Security.JWTAccessTTL)
	}
	if cfg.Security.RefreshTTL != 7*24*time.Hour {
		t.Fatalf("expected refresh ttl 168h, got %s", cfg.Security.RefreshTTL)
	}
	if cfg.Security.CSRFTTL != 24*time.Hour {
		t.Fatalf("expected csrf ttl 24h, got %s", cfg.Security.CSRFTTL)
	}
	if cfg.Jobs.RefreshTokenCleanup != "0 0 * * * *" {
		t.Fatalf("unexpected refresh cleanup schedule %q", cfg.Jobs.RefreshTokenCleanup)
	}
	if cfg.Worker.Group != "notification-workers" {
		t.Fatalf("unexpected worker group %q", cfg.Worker.Group)
	}
}

func TestLoadReadsEnvironmentOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("TIMESHEETS_DATABASE_DRIVER", "sqlite")
	t.Setenv("TIMESHEETS_SECURITY_JWTACCESSTTL", "5m")
	t.Setenv("TIMESHEETS_NOTIFICATIONS_TRANSPORT", "log")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Database.Driver != DriverSQLite {
		t.Fatalf("expected sqlite driver, got %q", cfg.Database.Driver)
	}
	if cfg.Security.JWTAccessTTL != 5*time.Minute {
		t.Fatalf("expected 5m access ttl, got %s", cfg.Security.JWTAccessTTL)
	}
	if cfg.Notifications.Transport != TransportLog {
		t.Fatalf("expected log transport, got %q", cfg.Notifications.Transport)
	}
}

func TestLoadReadsExplicitFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	path := filepath.Join(dir, "custom.yaml")
	content := []byte("database:\n  driver: sqlite\n  sqlitepath: /tmp/custom.db\njobs:\n  draftreminderage: 72h\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Database.SQLitePath != "/tmp/custom.db" {
		t.Fatalf("expected sqlite path from file, got %q", cfg.Database.SQLitePath)
	}
	if cfg.Jobs.DraftReminderAge != 72*time.Hour {
		t.Fatalf("expected 72h reminder age, got %s", cfg.Jobs.DraftReminderAge)
	}
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("TIMESHEETS_DATABASE_DRIVER", "mysql")

	if _, err := Load(""); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestLoadRequiresSecretsInProduction(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("TIMESHEETS_ENVIRONMENT", "production")

	if _, err := Load(""); err == nil {
		t.Fatal("expected error when production secrets are missing")
	}
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir %s: %v", dir, err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("restore working directory: %v", err)
		}
	})
}
