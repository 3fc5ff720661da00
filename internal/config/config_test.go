package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Matt-Gary/Accounting-app/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "STORE_BACKEND", "MATERIALIZE_ON_READ", "ORACLE_TIMEOUT", "MATERIALIZE_CRON"} {
		t.Setenv(k, "")
	}

	cfg := config.Load()
	if cfg.Port != 8080 {
		t.Errorf("port = %d", cfg.Port)
	}
	if cfg.StoreBackend != config.BackendSupabase {
		t.Errorf("backend = %s", cfg.StoreBackend)
	}
	if !cfg.MaterializeOnRead {
		t.Error("materialize on read should default to true")
	}
	if cfg.OracleTimeout != 5*time.Second {
		t.Errorf("oracle timeout = %s", cfg.OracleTimeout)
	}
	if cfg.MaterializeCron != "" {
		t.Errorf("scheduler should be off by default, got %q", cfg.MaterializeCron)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STORE_BACKEND", "SQLite")
	t.Setenv("MATERIALIZE_ON_READ", "false")
	t.Setenv("ORACLE_TIMEOUT", "750ms")
	t.Setenv("SUPABASE_URL", "https://x.supabase.co/")
	t.Setenv("SUPABASE_KEY", "anon")
	t.Setenv("SUPABASE_ANON_KEY", "")
	t.Setenv("SUPABASE_SERVICE_ROLE_KEY", "")

	cfg := config.Load()
	if cfg.Port != 9090 {
		t.Errorf("port = %d", cfg.Port)
	}
	if cfg.StoreBackend != config.BackendSQLite {
		t.Errorf("backend = %s", cfg.StoreBackend)
	}
	if cfg.MaterializeOnRead {
		t.Error("expected materialize on read disabled")
	}
	if cfg.OracleTimeout != 750*time.Millisecond {
		t.Errorf("oracle timeout = %s", cfg.OracleTimeout)
	}
	if cfg.SupabaseURL != "https://x.supabase.co" {
		t.Errorf("trailing slash not trimmed: %s", cfg.SupabaseURL)
	}
	if cfg.SupabaseServiceKey != "anon" {
		t.Errorf("service key should fall back to the anon key, got %q", cfg.SupabaseServiceKey)
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("PORT", "not-a-number")
	t.Setenv("MATERIALIZE_ON_READ", "maybe")
	cfg := config.Load()
	if cfg.Port != 8080 || !cfg.MaterializeOnRead {
		t.Errorf("invalid values should fall back to defaults: %+v", cfg)
	}
}

func TestLoadDotEnv_DoesNotOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "ACCT_TEST_A=from_file\nACCT_TEST_B=\"quoted\"\n# comment\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ACCT_TEST_A", "from_env")
	t.Setenv("ACCT_TEST_B", "")
	os.Unsetenv("ACCT_TEST_B")

	if err := config.LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("ACCT_TEST_A"); got != "from_env" {
		t.Errorf("env must take precedence, got %q", got)
	}
	if got := os.Getenv("ACCT_TEST_B"); got != "quoted" {
		t.Errorf("expected value from file, got %q", got)
	}
}

func TestLoadDotEnv_MissingFile(t *testing.T) {
	if err := config.LoadDotEnv(filepath.Join(t.TempDir(), "nope.env")); err == nil {
		t.Error("expected error for missing file")
	}
}
