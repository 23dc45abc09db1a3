package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port: got %d, want 8080", cfg.Server.Port)
	}
	if cfg.Search.MatchMode != "contains" {
		t.Errorf("Search.MatchMode: got %q, want contains", cfg.Search.MatchMode)
	}
	if cfg.Search.ScoreMode != "interval" {
		t.Errorf("Search.ScoreMode: got %q, want interval", cfg.Search.ScoreMode)
	}
	if cfg.Search.SampleReviews != 2 {
		t.Errorf("Search.SampleReviews: got %d, want 2", cfg.Search.SampleReviews)
	}
	if cfg.Database.Driver != DriverSQLite {
		t.Errorf("Database.Driver: got %q, want %q", cfg.Database.Driver, DriverSQLite)
	}
}

func TestLoadYAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")
	yamlDoc := `
server:
  port: 9000
database:
  driver: postgres
  host: db.internal
search:
  matchMode: prefix
  catalogTimeout: 750ms
`
	if err := os.WriteFile(path, []byte(yamlDoc), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CS_SERVER_PORT", "9100")
	t.Setenv("CS_KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("env override: got port %d, want 9100", cfg.Server.Port)
	}
	if cfg.Database.Host != "db.internal" {
		t.Errorf("Database.Host: got %q", cfg.Database.Host)
	}
	if cfg.Search.MatchMode != "prefix" {
		t.Errorf("Search.MatchMode: got %q, want prefix", cfg.Search.MatchMode)
	}
	if cfg.Search.CatalogTimeout != 750*time.Millisecond {
		t.Errorf("Search.CatalogTimeout: got %v", cfg.Search.CatalogTimeout)
	}
	if cfg.Search.SampleReviews != 2 {
		t.Errorf("defaults should survive partial YAML, got SampleReviews=%d", cfg.Search.SampleReviews)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Errorf("Kafka.Brokers: got %v", cfg.Kafka.Brokers)
	}
}

func TestValidateRejectsUnknownModes(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"match mode", func(c *Config) { c.Search.MatchMode = "fuzzy" }},
		{"score mode", func(c *Config) { c.Search.ScoreMode = "nearest" }},
		{"window without span", func(c *Config) {
			c.Search.ScoreMode = "window"
			c.Search.ScoreWindowSpan = 0
		}},
		{"driver", func(c *Config) { c.Database.Driver = "mysql" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestDSN(t *testing.T) {
	sqlite := DatabaseConfig{Driver: DriverSQLite, Path: "/tmp/c.db"}
	if got := sqlite.DSN(); got != "file:/tmp/c.db?mode=rwc&_busy_timeout=5000" {
		t.Errorf("sqlite DSN: got %q", got)
	}
	pg := DatabaseConfig{Driver: DriverPostgres, Host: "h", Port: 1, User: "u", Password: "p", Database: "d", SSLMode: "disable"}
	if got := pg.DSN(); got != "host=h port=1 user=u password=p dbname=d sslmode=disable" {
		t.Errorf("postgres DSN: got %q", got)
	}
}
