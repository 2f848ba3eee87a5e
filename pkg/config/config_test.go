package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("JWT_TTL", "2h")

	cfg := Load()
	if cfg.ServiceName != "freight-service" {
		t.Fatalf("service name = %q", cfg.ServiceName)
	}
	if cfg.HTTPPort != 8080 {
		t.Fatalf("port = %d", cfg.HTTPPort)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Fatalf("brokers = %v", cfg.KafkaBrokers)
	}
	if cfg.JWTTTL != 2*time.Hour {
		t.Fatalf("ttl = %v", cfg.JWTTTL)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	base := Config{JWTSecret: "x", StorageDriver: StorageDriverMemory, DocumentStore: DocumentStoreDisk, JWTTTL: time.Hour}

	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"ok", func(*Config) {}, false},
		{"missing secret", func(c *Config) { c.JWTSecret = "" }, true},
		{"bad storage", func(c *Config) { c.StorageDriver = "sqlite" }, true},
		{"bad document store", func(c *Config) { c.DocumentStore = "s3" }, true},
		{"zero ttl", func(c *Config) { c.JWTTTL = 0 }, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}
