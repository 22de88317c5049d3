package config

import (
	"testing"
	"time"
)

func TestLoadEnv_Defaults(t *testing.T) {
	cfg := LoadEnv()

	if cfg.Store.Driver != DriverMongo {
		t.Errorf("Store.Driver = %q, want %q", cfg.Store.Driver, DriverMongo)
	}
	if !cfg.Stock.AllowOverReservation {
		t.Error("AllowOverReservation should default to true")
	}
	if cfg.Stock.LockTTL != 5*time.Second {
		t.Errorf("LockTTL = %v, want 5s", cfg.Stock.LockTTL)
	}
	if cfg.Stock.ExpirySweepInterval != 0 {
		t.Errorf("ExpirySweepInterval = %v, want 0", cfg.Stock.ExpirySweepInterval)
	}
}

func TestLoadEnv_Overrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "Postgres")
	t.Setenv("STOCK_ALLOW_OVER_RESERVATION", "false")
	t.Setenv("STOCK_EXPIRY_SWEEP_SECONDS", "90")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("REDIS_DB", "not-a-number")

	cfg := LoadEnv()

	if cfg.Store.Driver != DriverPostgres {
		t.Errorf("Store.Driver = %q, want %q", cfg.Store.Driver, DriverPostgres)
	}
	if cfg.Stock.AllowOverReservation {
		t.Error("AllowOverReservation should be false")
	}
	if cfg.Stock.ExpirySweepInterval != 90*time.Second {
		t.Errorf("ExpirySweepInterval = %v, want 90s", cfg.Stock.ExpirySweepInterval)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Errorf("Kafka.Brokers = %v", cfg.Kafka.Brokers)
	}
	if cfg.Redis.DB != 0 {
		t.Errorf("Redis.DB = %d, want fallback 0", cfg.Redis.DB)
	}
}
