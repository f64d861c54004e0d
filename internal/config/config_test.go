package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sample = `
server:
  port: "9090"
  cors_origins: ["http://localhost:5173"]
redis:
  addr: "localhost:6379"
postgres:
  url: "postgres://from-yaml"
auth:
  jwt_secret: "yaml-secret"
  token_ttl: "12h"
llm:
  model: "llama-3.1-8b-instant"
  attempts: 3
quiz:
  max_questions: 5
  history_window: 8
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadYAMLWithEnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("DATABASE_URL", "postgres://from-env")
	t.Setenv("GROQ_API_KEY", "gsk_test")
	t.Setenv("AUTH_JWT_SECRET", "")

	cfg, err := Load(writeConfig(t, sample))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || len(cfg.Server.CORSOrigins) != 1 {
		t.Fatalf("server section: %+v", cfg.Server)
	}
	if cfg.Postgres.URL != "postgres://from-env" {
		t.Fatalf("env must override yaml, got %q", cfg.Postgres.URL)
	}
	if cfg.LLM.APIKey != "gsk_test" || cfg.LLM.Attempts != 3 || cfg.Auth.JWTSecret != "yaml-secret" {
		t.Fatalf("llm/auth: %+v %+v", cfg.LLM, cfg.Auth)
	}
	if cfg.Quiz.MaxQuestions != 5 || cfg.Quiz.HistoryWindow != 8 {
		t.Fatalf("quiz: %+v", cfg.Quiz)
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("AUTH_JWT_SECRET=dotenv-secret\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	// godotenv never overrides variables that are already set.
	t.Setenv("AUTH_JWT_SECRET", "")
	os.Unsetenv("AUTH_JWT_SECRET")

	cfg, err := Load(filepath.Join(dir, "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Auth.JWTSecret != "dotenv-secret" {
		t.Fatalf("expected secret from .env, got %q", cfg.Auth.JWTSecret)
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	chdir(t, t.TempDir())
	if _, err := Load(writeConfig(t, "server: [")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestTTLDuration(t *testing.T) {
	if got := TTLDuration("", time.Minute); got != time.Minute {
		t.Fatalf("empty: %v", got)
	}
	if got := TTLDuration("90s", time.Minute); got != 90*time.Second {
		t.Fatalf("valid: %v", got)
	}
	if got := TTLDuration("soon", time.Minute); got != time.Minute {
		t.Fatalf("invalid: %v", got)
	}
}

// chdir changes the working directory for the duration of the test
// (stand-in for testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
