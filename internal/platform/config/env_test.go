package config

import (
	"strings"
	"testing"
)

type envTestConfig struct {
	Port int `env:"SPARKCARDS_TEST_PORT" envDefault:"123"`
}

type prefixedTestConfig struct {
	DBPath string `env:"TEST_DB_PATH" envDefault:"data/test.db"`
}

func TestParseEnvDefaults(t *testing.T) {
	var cfg envTestConfig

	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Port != 123 {
		t.Fatalf("port = %d, want 123", cfg.Port)
	}
}

func TestParseEnvError(t *testing.T) {
	var cfg envTestConfig
	t.Setenv("SPARKCARDS_TEST_PORT", "not-an-int")

	err := ParseEnv(&cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

func TestParseEnvWithPrefixReadsPrefixedKey(t *testing.T) {
	t.Setenv("SPARKCARDS_TEST_DB_PATH", "/tmp/study.db")

	var cfg prefixedTestConfig
	if err := ParseEnvWithPrefix(&cfg, EnvPrefix); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.DBPath != "/tmp/study.db" {
		t.Fatalf("db path = %q, want %q", cfg.DBPath, "/tmp/study.db")
	}
}

func TestParseEnvWithPrefixBlankFallsBack(t *testing.T) {
	var cfg prefixedTestConfig
	if err := ParseEnvWithPrefix(&cfg, "  "); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.DBPath != "data/test.db" {
		t.Fatalf("db path = %q, want default", cfg.DBPath)
	}
}
