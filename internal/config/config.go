package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"

	BlobMemory = "memory"
	BlobS3     = "s3"
)

type Config struct {
	Port           string        `mapstructure:"PORT"`
	Env            string        `mapstructure:"ENV"`
	AuthSigningKey string        `mapstructure:"AUTH_SIGNING_KEY"`
	AuthIssuer     string        `mapstructure:"AUTH_ISSUER"`
	AuthAudience   string        `mapstructure:"AUTH_AUDIENCE"`
	StoreDriver    string        `mapstructure:"STORE_DRIVER"`
	SQLitePath     string        `mapstructure:"SQLITE_PATH"`
	DatabaseURL    string        `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32         `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins    []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS   float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int           `mapstructure:"RATE_LIMIT_BURST"`
	BodyLimit      string        `mapstructure:"BODY_LIMIT"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	SeedDemoData   bool          `mapstructure:"SEED_DEMO_DATA"`

	BlobDriver      string `mapstructure:"BLOB_DRIVER"`
	BlobS3Bucket    string `mapstructure:"BLOB_S3_BUCKET"`
	BlobS3Region    string `mapstructure:"BLOB_S3_REGION"`
	BlobS3Endpoint  string `mapstructure:"BLOB_S3_ENDPOINT"`
	BlobS3PathStyle bool   `mapstructure:"BLOB_S3_PATH_STYLE"`

	ReportScheduleEnabled bool   `mapstructure:"REPORT_SCHEDULE_ENABLED"`
	ReportScheduleAt      string `mapstructure:"REPORT_SCHEDULE_AT"`

	TracingEnabled        bool    `mapstructure:"TRACING_ENABLED"`
	TracingJaegerEndpoint string  `mapstructure:"TRACING_JAEGER_ENDPOINT"`
	TracingSampleRate     float64 `mapstructure:"TRACING_SAMPLE_RATE"`
}

var keys = []string{
	"PORT", "ENV", "AUTH_SIGNING_KEY", "AUTH_ISSUER", "AUTH_AUDIENCE",
	"STORE_DRIVER", "SQLITE_PATH", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "BODY_LIMIT", "REQUEST_TIMEOUT",
	"SEED_DEMO_DATA",
	"BLOB_DRIVER", "BLOB_S3_BUCKET", "BLOB_S3_REGION", "BLOB_S3_ENDPOINT", "BLOB_S3_PATH_STYLE",
	"REPORT_SCHEDULE_ENABLED", "REPORT_SCHEDULE_AT",
	"TRACING_ENABLED", "TRACING_JAEGER_ENDPOINT", "TRACING_SAMPLE_RATE",
}

// Load reads configuration from the environment, with an optional .env file
// in the working directory underneath it.
func Load() (*Config, error) {
	return load(".env")
}

func load(envFile string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(envFile)
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("AUTH_ISSUER", "hms")
	v.SetDefault("STORE_DRIVER", StoreMemory)
	v.SetDefault("SQLITE_PATH", "hms.db")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 50)
	v.SetDefault("RATE_LIMIT_BURST", 100)
	v.SetDefault("BODY_LIMIT", "2M")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("SEED_DEMO_DATA", false)
	v.SetDefault("BLOB_DRIVER", BlobMemory)
	v.SetDefault("BLOB_S3_REGION", "us-east-1")
	v.SetDefault("REPORT_SCHEDULE_ENABLED", false)
	v.SetDefault("REPORT_SCHEDULE_AT", "23:30")
	v.SetDefault("TRACING_ENABLED", false)
	v.SetDefault("TRACING_JAEGER_ENDPOINT", "http://localhost:14268/api/traces")
	v.SetDefault("TRACING_SAMPLE_RATE", 1.0)

	// Unmarshal only sees environment values for keys viper already knows.
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// A missing .env is fine.
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.CORSOrigins = splitList(v.GetString("CORS_ORIGINS"))
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	cfg.BlobDriver = strings.ToLower(strings.TrimSpace(cfg.BlobDriver))
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// ScheduleTime parses REPORT_SCHEDULE_AT as HH:MM.
func (c *Config) ScheduleTime() (time.Time, error) {
	t, err := time.Parse("15:04", c.ReportScheduleAt)
	if err != nil {
		return time.Time{}, fmt.Errorf("REPORT_SCHEDULE_AT must be HH:MM, got %q", c.ReportScheduleAt)
	}
	return t, nil
}

// Validate checks that the configuration is safe to run. Outside development
// tokens must be verifiable, so AUTH_SIGNING_KEY is required.
func (c *Config) Validate() error {
	if !c.IsDev() && c.AuthSigningKey == "" {
		return fmt.Errorf("AUTH_SIGNING_KEY is required when ENV=%q", c.Env)
	}
	if c.AuthSigningKey != "" && len(c.AuthSigningKey) < 32 {
		return fmt.Errorf("AUTH_SIGNING_KEY must be at least 32 characters")
	}

	switch c.StoreDriver {
	case StoreMemory:
	case StoreSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required when STORE_DRIVER is %q", StoreSQLite)
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER is %q", StorePostgres)
		}
		if c.DBMinConns > c.DBMaxConns {
			return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be %q, %q or %q, got %q", StoreMemory, StoreSQLite, StorePostgres, c.StoreDriver)
	}

	switch c.BlobDriver {
	case BlobMemory:
	case BlobS3:
		if c.BlobS3Bucket == "" {
			return fmt.Errorf("BLOB_S3_BUCKET is required when BLOB_DRIVER is %q", BlobS3)
		}
	default:
		return fmt.Errorf("BLOB_DRIVER must be %q or %q, got %q", BlobMemory, BlobS3, c.BlobDriver)
	}

	if c.ReportScheduleEnabled {
		if _, err := c.ScheduleTime(); err != nil {
			return err
		}
	}
	if c.TracingEnabled && c.TracingJaegerEndpoint == "" {
		return fmt.Errorf("TRACING_JAEGER_ENDPOINT is required when TRACING_ENABLED is true")
	}
	if c.TracingSampleRate < 0 || c.TracingSampleRate > 1 {
		return fmt.Errorf("TRACING_SAMPLE_RATE must be between 0 and 1, got %v", c.TracingSampleRate)
	}
	return nil
}
