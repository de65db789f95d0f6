package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("MONGO_DATABASE", "")
	t.Setenv("DISPATCH_WORKERS", "")

	cfg := Load()
	if cfg.Port != "8080" || cfg.MongoDatabase != "socialmedia" || cfg.DispatchWorkers != 2 {
		t.Fatalf("defaults = %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("DISPATCH_QUEUE_SIZE", "1024")
	t.Setenv("VALKEY_ADDR", "localhost:6379")

	cfg := Load()
	if !cfg.IsProduction() {
		t.Fatal("ENV=production not detected")
	}
	if cfg.DispatchQueueSize != 1024 || cfg.ValkeyAddr != "localhost:6379" {
		t.Fatalf("overrides = %+v", cfg)
	}
}

func TestGetEnvIntFallsBackOnGarbage(t *testing.T) {
	t.Setenv("DISPATCH_QUEUE_SIZE", "lots")
	if got := getEnvInt("DISPATCH_QUEUE_SIZE", 256); got != 256 {
		t.Fatalf("got %d, want fallback 256", got)
	}
}
