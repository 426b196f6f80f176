package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Port != "5000" {
		t.Errorf("Server.Port = %q, expected %q", cfg.Server.Port, "5000")
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Database.Driver = %q, expected sqlite", cfg.Database.Driver)
	}
	if cfg.RateLimit.Burst != 100 {
		t.Errorf("RateLimit.Burst = %d, expected 100", cfg.RateLimit.Burst)
	}
	if cfg.Redis.Enabled || cfg.Kafka.Enabled {
		t.Error("optional integrations should be disabled by default")
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("SERVER_PORT", "")
	t.Setenv("PORT", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != "5000" {
		t.Errorf("Server.Port = %q, expected default", cfg.Server.Port)
	}
}

func TestLoad_YAMLAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("server:\n  port: \"7000\"\n  mode: release\njwt:\n  secret: from-file\nrealtime:\n  send_buffer: 8\n")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("SERVER_PORT", "")
	t.Setenv("PORT", "")
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != "7000" {
		t.Errorf("Server.Port = %q, expected 7000", cfg.Server.Port)
	}
	if cfg.Server.Mode != "release" {
		t.Errorf("Server.Mode = %q, expected release", cfg.Server.Mode)
	}
	if cfg.JWT.Secret != "from-env" {
		t.Errorf("JWT.Secret = %q, env should win", cfg.JWT.Secret)
	}
	if cfg.Realtime.SendBuffer != 8 {
		t.Errorf("Realtime.SendBuffer = %d, expected 8", cfg.Realtime.SendBuffer)
	}
	// Unset sections keep their defaults.
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Database.Driver = %q, expected default", cfg.Database.Driver)
	}
	if !cfg.Kafka.Enabled || len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Errorf("unexpected kafka config %+v", cfg.Kafka)
	}
}

func TestParseRedisURL(t *testing.T) {
	tests := []struct {
		url      string
		addr     string
		password string
		db       int
	}{
		{"redis://localhost:6379", "localhost:6379", "", 0},
		{"redis://:secret@cache:6380/2", "cache:6380", "secret", 2},
		{"redis://user:pw@10.0.0.5:6379/1", "10.0.0.5:6379", "pw", 1},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.parseRedisURL(tt.url)
			if cfg.Redis.Addr != tt.addr {
				t.Errorf("Addr = %q, expected %q", cfg.Redis.Addr, tt.addr)
			}
			if cfg.Redis.Password != tt.password {
				t.Errorf("Password = %q, expected %q", cfg.Redis.Password, tt.password)
			}
			if cfg.Redis.DB != tt.db {
				t.Errorf("DB = %d, expected %d", cfg.Redis.DB, tt.db)
			}
		})
	}
}

func TestApplyFloors(t *testing.T) {
	cfg := &Config{}
	cfg.applyFloors()

	if cfg.JWT.ExpireHour <= 0 || cfg.RateLimit.RPS <= 0 || cfg.Realtime.SendBuffer <= 0 {
		t.Errorf("zero values should be replaced: %+v", cfg)
	}
	if cfg.Sweeper.Schedule == "" {
		t.Error("sweeper schedule should get a default")
	}
}
