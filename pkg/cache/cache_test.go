package cache

import (
	"testing"
	"time"

	"lottery/pkg/config"
)

func TestNew_Memory(t *testing.T) {
	c, err := New(nil)
	if err != nil {
		t.Fatalf("New(nil) error = %v", err)
	}
	defer c.Close()

	if _, ok := c.(*MemoryCache); !ok {
		t.Errorf("expected *MemoryCache, got %T", c)
	}
}

func TestNew_UnknownBackend(t *testing.T) {
	if _, err := New(&Options{Backend: "memcached"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestFromConfig(t *testing.T) {
	opts := FromConfig(&config.CacheConfig{
		Driver:     BackendRedis,
		Host:       "redis",
		Port:       6380,
		Password:   "pw",
		DB:         2,
		DefaultTTL: time.Hour,
	})

	if opts.Backend != BackendRedis || opts.RedisAddr != "redis:6380" {
		t.Errorf("unexpected options: %+v", opts)
	}
	if opts.RedisDB != 2 || opts.RedisPassword != "pw" || opts.DefaultTTL != time.Hour {
		t.Errorf("unexpected options: %+v", opts)
	}
	// не заданные поля берутся по умолчанию
	if opts.MaxEntries != DefaultOptions().MaxEntries {
		t.Errorf("MaxEntries = %d", opts.MaxEntries)
	}
}
