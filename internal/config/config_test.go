package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadAppliesEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
server:
  port: "9090"
postgres:
  url: postgres://file
scoring:
  question_value: 5
auth:
  jwt_secret: from-file
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("POSTGRES_URL", "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Postgres.URL != "postgres://file" {
		t.Fatalf("unexpected file values: %+v", cfg)
	}
	if cfg.Scoring.QuestionValue != 5 {
		t.Fatalf("expected question value 5, got %v", cfg.Scoring.QuestionValue)
	}
	if cfg.Auth.JWTSecret != "from-env" {
		t.Fatalf("expected env secret, got %q", cfg.Auth.JWTSecret)
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("REDIS_ADDR=dotenv:6379\n"), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Setenv("REDIS_ADDR", "")
	os.Unsetenv("REDIS_ADDR")

	LoadDotEnv(path)
	if got := os.Getenv("REDIS_ADDR"); got != "dotenv:6379" {
		t.Fatalf("expected value from .env, got %q", got)
	}
	LoadDotEnv(filepath.Join(t.TempDir(), "missing.env"))
}

func TestTTLDuration(t *testing.T) {
	if got := TTLDuration("", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback, got %s", got)
	}
	if got := TTLDuration("30s", time.Minute); got != 30*time.Second {
		t.Fatalf("expected 30s, got %s", got)
	}
	if got := TTLDuration("soon", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback for bad input, got %s", got)
	}
}
