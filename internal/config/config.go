package config

import (
	"fmt"
	"strings"
	"time"
)

type Config struct {
	Env              string                  `env:"ENV,default=local"`
	Logger           LoggerConfig            `env:",prefix=LOGGER_"`
	Observability    ObservabilityHTTPConfig `env:",prefix=OBSERVABILITY_"`
	API              APIConfig               `env:",prefix=API_"`
	ShutdownDuration time.Duration           `env:"SHUTDOWN_DURATION,default=30s"`
	DB               SQLiteConfig            `env:",prefix=DB_"`
	Backend          BackendConfig           `env:",prefix=BACKEND_"`
	Vendor           VendorConfig            `env:",prefix=VENDOR_"`
	Purchase         PurchaseConfig          `env:",prefix=PURCHASE_"`
	Catalog          CatalogConfig           `env:",prefix=CATALOG_"`
	Health           HealthConfig            `env:",prefix=HEALTH_"`
}

// BackendConfig points the core at the mini-app backend.
type BackendConfig struct {
	BaseURL   string        `env:"BASE_URL,default=http://127.0.0.1:8080/miniapp"`
	Timeout   time.Duration `env:"TIMEOUT,default=30s"`
	InitData  string        `env:"INIT_DATA"`
	Lang      string        `env:"LANG,default=ru"`
	Dev       bool          `env:"DEV,default=false"`
	RateLimit struct {
		Burst int     `env:"BURST,default=0"`
		RPS   float64 `env:"RPS,default=20.0"`
	} `env:",prefix=RATE_LIMIT_"`
}

// UseMock reports whether requests should be served by the mock transport.
func (c BackendConfig) UseMock() bool {
	return c.Dev || strings.TrimSpace(c.InitData) == ""
}

type VendorConfig struct {
	BaseURL           string        `env:"BASE_URL,default=https://dg-api.wata.pro"`
	APIToken          string        `env:"API_TOKEN"`
	DigitalGoodsToken string        `env:"DIGITAL_GOODS_TOKEN"`
	Timeout           time.Duration `env:"TIMEOUT,default=30s"`
}

type APIConfig struct {
	Host         string        `env:"HOST,default=0.0.0.0"`
	Port         uint16        `env:"PORT,default=8080"`
	PublicOrigin string        `env:"PUBLIC_ORIGIN"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT,default=30s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT,default=30s"`
	IdleTimeout  time.Duration `env:"IDLE_TIMEOUT,default=1m"`
}

func (a APIConfig) ADDR() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

type PurchaseConfig struct {
	Debounce time.Duration `env:"DEBOUNCE,default=500ms"`
}

type CatalogConfig struct {
	ServiceIDs []string      `env:"SERVICE_IDS"`
	Schedule   string        `env:"SCHEDULE,default=*/15 * * * *"`
	TTL        time.Duration `env:"TTL,default=10m"`
}

type HealthConfig struct {
	Interval time.Duration `env:"INTERVAL,default=30s"`
}

type LoggerConfig struct {
	Level string `env:"LEVEL,default=debug"`
}

type ObservabilityHTTPConfig struct {
	Host         string        `env:"HOST,default=127.0.0.1"`
	Port         uint16        `env:"PORT,default=8383"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT,default=30s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT,default=30s"`
	IdleTimeout  time.Duration `env:"IDLE_TIMEOUT,default=1m"`
}

func (a ObservabilityHTTPConfig) ADDR() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

type SQLiteConfig struct {
	Path         string        `env:"PATH,default=./data/miniapp.db"`
	MaxOpenConns int           `env:"MAX_OPEN_CONNS,default=1"`
	MaxLifetime  time.Duration `env:"MAX_LIFETIME,default=1h"`
}
