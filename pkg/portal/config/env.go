package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// envConfig lists the environment variables read by WithEnv. Unset variables
// leave the current configuration untouched.
type envConfig struct {
	Port        string `env:"PORT" env-description:"HTTP listen port"`
	Environment string `env:"ENVIRONMENT" env-description:"development, production or testing"`
	LogLevel    string `env:"LOG_LEVEL" env-description:"debug, info, warn or error"`

	DatabaseURL string `env:"DATABASE_URL" env-description:"'memory' or a postgres:// connection string"`
	DBSchema    string `env:"DB_SCHEMA" env-description:"Postgres schema for entity tables"`
	AutoMigrate string `env:"AUTO_MIGRATE" env-description:"create entity tables on startup"`

	StorageURL    string `env:"STORAGE_URL" env-description:"memory://, file:///dir, s3://region or minio://host:port"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL" env-description:"prefix of attachment URLs"`
	CDNBuckets    string `env:"CDN_BUCKETS" env-description:"bucket=url pairs served from a CDN, comma separated"`

	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	AWSRegion          string `env:"AWS_REGION"`
	MinIOAccessKey     string `env:"MINIO_ACCESS_KEY"`
	MinIOSecretKey     string `env:"MINIO_SECRET_KEY"`

	JWTSecret string `env:"JWT_SECRET" env-description:"HS256 signing secret"`

	CacheSize      int           `env:"LIST_CACHE_SIZE"`
	CacheTTL       time.Duration `env:"LIST_CACHE_TTL"`
	DeleteTimeout  time.Duration `env:"DELETE_TIMEOUT"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`

	EventLogging string `env:"ENABLE_EVENT_LOGGING"`
	CORS         string `env:"ENABLE_CORS"`
}

// WithEnv applies environment variable overrides.
//
// Server:
//
//	PORT, ENVIRONMENT, LOG_LEVEL, JWT_SECRET, ENABLE_CORS, REQUEST_TIMEOUT
//
// Database:
//
//	DATABASE_URL - "memory" (default) or "postgres://..."/"postgresql://..."
//	DB_SCHEMA, AUTO_MIGRATE
//
// Storage:
//
//	STORAGE_URL - see ParseStorageURL
//	PUBLIC_BASE_URL
//	CDN_BUCKETS - "venues=https://venues.cdn.example.com,posts=..."
//	AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY, AWS_REGION (s3)
//	MINIO_ACCESS_KEY, MINIO_SECRET_KEY (minio)
//
// Caching and cleanup:
//
//	LIST_CACHE_SIZE, LIST_CACHE_TTL, DELETE_TIMEOUT
func WithEnv() Option {
	return func(c *ServerConfig) error {
		var env envConfig
		if err := cleanenv.ReadEnv(&env); err != nil {
			return fmt.Errorf("failed to read environment: %w", err)
		}
		return env.apply(c)
	}
}

// EnvUsage describes the environment variables understood by WithEnv
func EnvUsage() string {
	var env envConfig
	desc, err := cleanenv.GetDescription(&env, nil)
	if err != nil {
		return ""
	}
	return desc
}

func (e envConfig) apply(c *ServerConfig) error {
	setString(&c.Port, e.Port)
	setString(&c.Environment, e.Environment)
	setString(&c.LogLevel, e.LogLevel)
	setString(&c.DBSchema, e.DBSchema)
	setString(&c.PublicBaseURL, e.PublicBaseURL)
	setString(&c.JWTSecret, e.JWTSecret)

	if e.CDNBuckets != "" {
		buckets, err := ParseCDNBuckets(e.CDNBuckets)
		if err != nil {
			return err
		}
		c.CDNBuckets = buckets
	}

	if err := applyDatabaseURL(c, e.DatabaseURL); err != nil {
		return err
	}

	if e.StorageURL != "" {
		storage, err := ParseStorageURL(e.StorageURL)
		if err != nil {
			return err
		}
		c.Storage = storage
	}
	switch c.Storage.Type {
	case StorageS3:
		setString(&c.Storage.AccessKeyID, e.AWSAccessKeyID)
		setString(&c.Storage.SecretAccessKey, e.AWSSecretAccessKey)
		if c.Storage.Region == "" {
			c.Storage.Region = e.AWSRegion
		}
	case StorageMinIO:
		setString(&c.Storage.AccessKeyID, e.MinIOAccessKey)
		setString(&c.Storage.SecretAccessKey, e.MinIOSecretKey)
	}

	if e.CacheSize != 0 {
		c.CacheMaxSize = e.CacheSize
	}
	if e.CacheTTL != 0 {
		c.CacheTTL = e.CacheTTL
	}
	if e.DeleteTimeout != 0 {
		c.DeleteTimeout = e.DeleteTimeout
	}
	if e.RequestTimeout != 0 {
		c.RequestTimeout = e.RequestTimeout
	}

	for _, b := range []struct {
		key string
		raw string
		dst *bool
	}{
		{"AUTO_MIGRATE", e.AutoMigrate, &c.AutoMigrate},
		{"ENABLE_EVENT_LOGGING", e.EventLogging, &c.EnableEventLogging},
		{"ENABLE_CORS", e.CORS, &c.EnableCORS},
	} {
		if b.raw == "" {
			continue
		}
		v, err := strconv.ParseBool(b.raw)
		if err != nil {
			return fmt.Errorf("invalid boolean for %s: %w", b.key, err)
		}
		*b.dst = v
	}

	return nil
}

func applyDatabaseURL(c *ServerConfig, dbURL string) error {
	switch {
	case dbURL == "":
		return nil
	case dbURL == "memory":
		c.DatabaseType = "memory"
		c.DatabaseURL = ""
	case len(dbURL) > 13 && dbURL[:13] == "postgresql://", len(dbURL) > 11 && dbURL[:11] == "postgres://":
		c.DatabaseType = "postgres"
		c.DatabaseURL = dbURL
	default:
		return fmt.Errorf("unsupported DATABASE_URL format: %s (use 'memory' or 'postgresql://...')", dbURL)
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
