package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr() != ":8080" {
		t.Errorf("expected :8080, got %s", cfg.Addr())
	}
	if cfg.Store.Backend != BackendPostgres {
		t.Errorf("expected postgres backend, got %s", cfg.Store.Backend)
	}
	if cfg.Redis.CacheTTL != 30*time.Second {
		t.Errorf("expected 30s cache ttl, got %v", cfg.Redis.CacheTTL)
	}
	if cfg.Engine.DefaultLimit != 10 || cfg.Engine.Scoring.WeakMatchPenalty != 0.5 {
		t.Errorf("unexpected engine defaults %+v", cfg.Engine)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("CACHE_TTL", "2m")
	t.Setenv("DB_POOL_SIZE", "7")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("WEAK_MATCH_PENALTY", "0.25")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Redis.CacheTTL != 2*time.Minute {
		t.Errorf("expected 2m, got %v", cfg.Redis.CacheTTL)
	}
	if cfg.Store.DBPoolSize != 7 {
		t.Errorf("expected pool size 7, got %d", cfg.Store.DBPoolSize)
	}
	if want := []string{"https://a.example", "https://b.example"}; !reflect.DeepEqual(cfg.Server.CORSOrigins, want) {
		t.Errorf("expected %v, got %v", want, cfg.Server.CORSOrigins)
	}
	if cfg.Engine.Scoring.WeakMatchPenalty != 0.25 {
		t.Errorf("expected penalty 0.25, got %v", cfg.Engine.Scoring.WeakMatchPenalty)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected debug, got %s", cfg.Logging.Level)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := "server:\n  port: 7000\nstore:\n  backend: mongo\n  mongo_uri: mongodb://localhost:27017\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("PORT", "7001")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Backend != BackendMongo || cfg.Store.MongoURI == "" {
		t.Errorf("expected mongo settings from file, got %+v", cfg.Store)
	}
	if cfg.Server.Port != 7001 {
		t.Errorf("env should win over file, got port %d", cfg.Server.Port)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"bad backend", map[string]string{"STORE_BACKEND": "sqlite"}, "backend"},
		{"mongo without uri", map[string]string{"STORE_BACKEND": "mongo"}, "mongo_uri"},
		{"port out of range", map[string]string{"PORT": "70000"}, "port"},
		{"default above max", map[string]string{"DEFAULT_LIMIT": "40", "MAX_LIMIT": "20"}, "default_limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}
