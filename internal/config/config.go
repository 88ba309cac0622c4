package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Ecomdash EcomdashConfig
	Sheets   SheetsConfig
	Pipeline PipelineConfig
	Browser  BrowserConfig
	ColSync  ColSyncConfig
	Redis    RedisConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type EcomdashConfig struct {
	LoginEmail   string
	LoginPass    string
	AppURL       string
	DashboardURL string
}

type SheetsConfig struct {
	CredentialsB64 string
	MasterfileID   string
	DestinationID  string

	OrderIDRange  string
	MasterRange   string
	OrdersSheet   string
	ProductsSheet string
	ItemizedSheet string
	ReportSheet   string
	SalesSheet    string
}

type PipelineConfig struct {
	BatchSize  int
	OrderDelay time.Duration
	BatchDelay time.Duration
	// DateMode is "string" for canonical YYYY/MM/DD cells or "serial" for
	// spreadsheet date serials.
	DateMode string
}

type BrowserConfig struct {
	Headless       bool
	Timeout        time.Duration
	ViewportWidth  int
	ViewportHeight int
}

type ColSyncConfig struct {
	FillOnlyBlanks bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	LockKey  string
	LockTTL  time.Duration
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	// Local development convenience; a missing .env is fine.
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvOrDefault("SERVER_PORT", "8080"),
			Host:            getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 30*time.Minute),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Ecomdash: EcomdashConfig{
			LoginEmail:   os.Getenv("LOGIN_EMAIL"),
			LoginPass:    os.Getenv("LOGIN_PASS"),
			AppURL:       getEnvOrDefault("ECOMDASH_APP_URL", "https://app.ecomdash.com"),
			DashboardURL: getEnvOrDefault("ECOMDASH_DASHBOARD_URL", "https://dashboard.ecomdash.com"),
		},
		Sheets: SheetsConfig{
			CredentialsB64: os.Getenv("GCP_CREDENTIALS_B64"),
			MasterfileID:   os.Getenv("MASTERFILE_ID"),
			DestinationID:  os.Getenv("DESTINATION_ID"),
			OrderIDRange:   getEnvOrDefault("ORDER_ID_RANGE", "Distinct_Orders!A2:A"),
			MasterRange:    getEnvOrDefault("MASTER_RANGE", "SalesMasterfile!A:AP"),
			OrdersSheet:    getEnvOrDefault("ORDERS_SHEET_NAME", "Orders"),
			ProductsSheet:  getEnvOrDefault("PRODUCTS_SHEET_NAME", "Products"),
			ItemizedSheet:  getEnvOrDefault("ITEMIZED_SHEET_NAME", "Itemized"),
			ReportSheet:    getEnvOrDefault("REPORT_SHEET_NAME", "SalesMasterfile"),
			SalesSheet:     getEnvOrDefault("SALES_SHEET_NAME", "SalesData"),
		},
		Pipeline: PipelineConfig{
			BatchSize:  getIntOrDefault("BATCH_SIZE", 100),
			OrderDelay: getDurationOrDefault("ORDER_DELAY", 2*time.Second),
			BatchDelay: getDurationOrDefault("BATCH_DELAY", 5*time.Second),
			DateMode:   getEnvOrDefault("ORDER_DATE_MODE", "string"),
		},
		Browser: BrowserConfig{
			Headless:       getBoolOrDefault("BROWSER_HEADLESS", true),
			Timeout:        getDurationOrDefault("BROWSER_TIMEOUT", 60*time.Second),
			ViewportWidth:  getIntOrDefault("BROWSER_VIEWPORT_WIDTH", 1280),
			ViewportHeight: getIntOrDefault("BROWSER_VIEWPORT_HEIGHT", 800),
		},
		ColSync: ColSyncConfig{
			FillOnlyBlanks: getBoolOrDefault("FILL_ONLY_BLANKS", true),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getIntOrDefault("REDIS_DB", 0),
			LockKey:  getEnvOrDefault("REDIS_LOCK_KEY", "ecomdash-sync:run-lock"),
			LockTTL:  getDurationOrDefault("REDIS_LOCK_TTL", 30*time.Minute),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Pipeline.BatchSize < 1 {
		return fmt.Errorf("BATCH_SIZE must be at least 1")
	}

	if m := c.Pipeline.DateMode; m != "string" && m != "serial" {
		return fmt.Errorf("ORDER_DATE_MODE must be \"string\" or \"serial\", got %q", m)
	}

	if c.Sheets.CredentialsB64 != "" {
		if _, err := c.Sheets.Credentials(); err != nil {
			return fmt.Errorf("GCP_CREDENTIALS_B64 is not valid base64: %w", err)
		}
	}

	return nil
}

// Credentials decodes the base64-encoded service account JSON blob.
func (s SheetsConfig) Credentials() ([]byte, error) {
	return base64.StdEncoding.DecodeString(s.CredentialsB64)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
