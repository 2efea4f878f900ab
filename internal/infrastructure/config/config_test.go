package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"MISTRAL_API_KEY": "k",
	}))
	if err != nil {
		t.Fatalf("load returned error: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("unexpected port %q", cfg.Port)
	}
	if cfg.StoreDriver != DriverSQLite || cfg.SQLite.Path != "data/ai_messenger.db" {
		t.Errorf("unexpected store config: %s %s", cfg.StoreDriver, cfg.SQLite.Path)
	}
	if cfg.Session.Timeout != time.Hour {
		t.Errorf("unexpected session timeout %s", cfg.Session.Timeout)
	}
	if cfg.Relay.Workers != 8 || cfg.Relay.ProviderTimeout != 30*time.Second || cfg.Relay.SweepInterval != 0 {
		t.Errorf("unexpected relay config: %+v", cfg.Relay)
	}
	if cfg.Provider.Model != "mistral-small-latest" {
		t.Errorf("unexpected model %q", cfg.Provider.Model)
	}
	if cfg.Login.MaxAttempts != 5 || cfg.Login.Window != time.Minute {
		t.Errorf("unexpected login config: %+v", cfg.Login)
	}
	if cfg.Redis.Enabled {
		t.Error("redis must be disabled by default")
	}
	if cfg.Redis.PoolSize != 10 || cfg.Redis.DialTimeout != 5*time.Second || cfg.Redis.ReadTimeout != 3*time.Second {
		t.Errorf("unexpected redis client config: %+v", cfg.Redis)
	}
}

func TestLoad_RedisClientOptions(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"AI_PROVIDER":         "loopback",
		"REDIS_ENABLED":       "true",
		"REDIS_PASSWORD":      "s3cret",
		"REDIS_POOL_SIZE":     "32",
		"REDIS_READ_TIMEOUT":  "750ms",
		"REDIS_WRITE_TIMEOUT": "1s",
	}))
	if err != nil {
		t.Fatalf("load returned error: %v", err)
	}
	if cfg.Redis.Password != "s3cret" || cfg.Redis.PoolSize != 32 {
		t.Errorf("unexpected redis config: %+v", cfg.Redis)
	}
	if cfg.Redis.ReadTimeout != 750*time.Millisecond || cfg.Redis.WriteTimeout != time.Second {
		t.Errorf("unexpected redis timeouts: %+v", cfg.Redis)
	}
}

func TestLoad_ClaimTTL(t *testing.T) {
	base := func(extra map[string]string) map[string]string {
		env := map[string]string{"AI_PROVIDER": "loopback", "REDIS_ENABLED": "true"}
		for k, v := range extra {
			env[k] = v
		}
		return env
	}

	if _, err := load(context.Background(), envconfig.MapLookuper(base(map[string]string{
		"RELAY_PROVIDER_TIMEOUT": "30s",
		"RELAY_CLAIM_TTL":        "60s",
	}))); err == nil {
		t.Error("expected error when claim ttl equals twice the provider timeout")
	}

	if _, err := load(context.Background(), envconfig.MapLookuper(base(map[string]string{
		"RELAY_PROVIDER_TIMEOUT": "30s",
		"RELAY_CLAIM_TTL":        "61s",
	}))); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	// without redis there is no claim store to expire
	if _, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"AI_PROVIDER":     "loopback",
		"RELAY_CLAIM_TTL": "1s",
	})); err != nil {
		t.Errorf("unexpected error with redis disabled: %v", err)
	}
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"AI_PROVIDER":     "loopback",
		"STORE_DRIVER":    "mongo",
		"SESSION_TIMEOUT": "0s",
		"REDIS_ENABLED":   "true",
	}))
	if err != nil {
		t.Fatalf("load returned error: %v", err)
	}
	if cfg.Session.Timeout != 0 {
		t.Errorf("expected zero session timeout, got %s", cfg.Session.Timeout)
	}
	if cfg.StoreDriver != DriverMongo || !cfg.Redis.Enabled {
		t.Errorf("overrides not applied: %+v", cfg)
	}
}

func TestLoad_Validation(t *testing.T) {
	cases := map[string]map[string]string{
		"missing key":      {},
		"unknown driver":   {"AI_PROVIDER": "loopback", "STORE_DRIVER": "postgres"},
		"unknown provider": {"AI_PROVIDER": "gpt"},
	}
	for name, env := range cases {
		if _, err := load(context.Background(), envconfig.MapLookuper(env)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
