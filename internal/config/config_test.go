package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func load(t *testing.T, env map[string]string) Config {
	t.Helper()

	var cfg Config
	err := envconfig.ProcessWith(context.Background(), &envconfig.Config{
		Target:   &cfg,
		Lookuper: envconfig.MapLookuper(env),
	})
	if err != nil {
		t.Fatalf("process env: %v", err)
	}
	return cfg
}

func TestDefaults(t *testing.T) {
	cfg := load(t, nil)

	if cfg.Env != "local" {
		t.Errorf("Env = %q, want local", cfg.Env)
	}
	if got := cfg.API.ADDR(); got != "0.0.0.0:8080" {
		t.Errorf("API.ADDR() = %q", got)
	}
	if got := cfg.Observability.ADDR(); got != "127.0.0.1:8383" {
		t.Errorf("Observability.ADDR() = %q", got)
	}
	if cfg.Vendor.BaseURL != "https://dg-api.wata.pro" {
		t.Errorf("Vendor.BaseURL = %q", cfg.Vendor.BaseURL)
	}
	if cfg.Catalog.Schedule != "*/15 * * * *" {
		t.Errorf("Catalog.Schedule = %q", cfg.Catalog.Schedule)
	}
	if cfg.Purchase.Debounce != 500*time.Millisecond {
		t.Errorf("Purchase.Debounce = %v", cfg.Purchase.Debounce)
	}
	if cfg.DB.MaxLifetime != time.Hour {
		t.Errorf("DB.MaxLifetime = %v", cfg.DB.MaxLifetime)
	}
	if !cfg.Backend.UseMock() {
		t.Error("backend without init data should use the mock")
	}
}

func TestOverrides(t *testing.T) {
	cfg := load(t, map[string]string{
		"ENV":                        "production",
		"BACKEND_INIT_DATA":          "query_id=1&user=%7B%22id%22%3A42%7D",
		"BACKEND_RATE_LIMIT_RPS":     "5",
		"VENDOR_API_TOKEN":           "steam-token",
		"VENDOR_DIGITAL_GOODS_TOKEN": "goods-token",
		"CATALOG_SERVICE_IDS":        "steam,psn",
		"API_PORT":                   "9090",
		"DB_PATH":                    ":memory:",
	})

	if cfg.Backend.UseMock() {
		t.Error("backend with init data should not use the mock")
	}
	if cfg.Backend.RateLimit.RPS != 5 {
		t.Errorf("RPS = %v", cfg.Backend.RateLimit.RPS)
	}
	if cfg.Vendor.APIToken != "steam-token" || cfg.Vendor.DigitalGoodsToken != "goods-token" {
		t.Errorf("vendor tokens = %q/%q", cfg.Vendor.APIToken, cfg.Vendor.DigitalGoodsToken)
	}
	if len(cfg.Catalog.ServiceIDs) != 2 || cfg.Catalog.ServiceIDs[1] != "psn" {
		t.Errorf("ServiceIDs = %v", cfg.Catalog.ServiceIDs)
	}
	if cfg.API.ADDR() != "0.0.0.0:9090" {
		t.Errorf("API.ADDR() = %q", cfg.API.ADDR())
	}
}

func TestDevForcesMock(t *testing.T) {
	cfg := load(t, map[string]string{"BACKEND_INIT_DATA": "x", "BACKEND_DEV": "true"})
	if !cfg.Backend.UseMock() {
		t.Error("BACKEND_DEV should force the mock")
	}
}
