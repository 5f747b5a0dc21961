package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:               "8080",
		Environment:        "development",
		LogLevel:           "info",
		DatabaseType:       "memory",
		DBSchema:           "public",
		AutoMigrate:        true,
		Storage:            StorageConfig{Type: StorageMemory},
		FilesPrefix:        "/files",
		CacheMaxSize:       512,
		CacheTTL:           time.Minute,
		DeleteTimeout:      30 * time.Second,
		RequestTimeout:     60 * time.Second,
		MetricsNamespace:   "venue_admin",
		EnableEventLogging: true,
	}
}

// Storage backend types
const (
	StorageMemory = "memory"
	StorageFS     = "fs"
	StorageS3     = "s3"
	StorageMinIO  = "minio"
)

// ServerConfig represents server configuration for the venue admin portal
type ServerConfig struct {
	Port        string
	Environment string // development, production, testing
	LogLevel    string // debug, info, warn, error

	// Database configuration
	DatabaseURL  string
	DatabaseType string // "memory", "postgres"
	DBSchema     string // Postgres schema holding the entity tables
	AutoMigrate  bool

	// Storage configuration
	Storage       StorageConfig
	PublicBaseURL string // prefix of attachment URLs; derived from the backend when empty
	FilesPrefix   string // route serving memory/fs objects

	// CDNBuckets maps a bucket to the CDN base URL its objects are served from
	CDNBuckets map[string]string

	JWTSecret string

	// List cache
	CacheMaxSize int
	CacheTTL     time.Duration

	DeleteTimeout    time.Duration
	RequestTimeout   time.Duration
	MetricsNamespace string

	EnableEventLogging bool
	EnableCORS         bool
}

// StorageConfig selects and configures the object storage backend
type StorageConfig struct {
	Type string // memory, fs, s3, minio

	BaseDir string // fs

	Region          string // s3, minio
	Endpoint        string // s3 URL or minio host:port
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool // minio
	UsePathStyle    bool // s3
	CreateBuckets   bool

	EnableSSE    bool
	SSEAlgorithm string
	SSEKMSKeyID  string
}

// ParseStorageURL parses STORAGE_URL values:
//
//	memory://                                      in-memory storage (default)
//	file:///var/lib/venue-admin                    filesystem storage
//	s3://us-east-1?endpoint=http://host:9000&path_style=true&create_buckets=true
//	minio://localhost:9000?ssl=false&create_buckets=true
func ParseStorageURL(raw string) (StorageConfig, error) {
	if raw == "" || raw == "memory" || raw == "memory://" {
		return StorageConfig{Type: StorageMemory}, nil
	}

	if dir, ok := strings.CutPrefix(raw, "file://"); ok {
		if dir == "" {
			return StorageConfig{}, errors.New("filesystem path cannot be empty in STORAGE_URL")
		}
		return StorageConfig{Type: StorageFS, BaseDir: dir}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return StorageConfig{}, fmt.Errorf("invalid STORAGE_URL: %w", err)
	}
	q := u.Query()

	createBuckets, err := queryBool(q, "create_buckets")
	if err != nil {
		return StorageConfig{}, err
	}

	switch u.Scheme {
	case "s3":
		pathStyle, err := queryBool(q, "path_style")
		if err != nil {
			return StorageConfig{}, err
		}
		sse := q.Get("sse")
		return StorageConfig{
			Type:          StorageS3,
			Region:        u.Host,
			Endpoint:      q.Get("endpoint"),
			UsePathStyle:  pathStyle,
			CreateBuckets: createBuckets,
			EnableSSE:     sse != "",
			SSEAlgorithm:  sse,
			SSEKMSKeyID:   q.Get("kms_key_id"),
		}, nil

	case "minio":
		if u.Host == "" {
			return StorageConfig{}, errors.New("minio endpoint cannot be empty in STORAGE_URL")
		}
		ssl, err := queryBool(q, "ssl")
		if err != nil {
			return StorageConfig{}, err
		}
		return StorageConfig{
			Type:          StorageMinIO,
			Endpoint:      u.Host,
			Region:        q.Get("region"),
			UseSSL:        ssl,
			CreateBuckets: createBuckets,
		}, nil
	}

	return StorageConfig{}, fmt.Errorf("unsupported STORAGE_URL format: %s (use 'memory://', 'file://...', 's3://...' or 'minio://...')", raw)
}

func queryBool(q url.Values, key string) (bool, error) {
	raw := q.Get(key)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid boolean for STORAGE_URL parameter %s: %w", key, err)
	}
	return v, nil
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	if c.DatabaseType != "memory" && c.DatabaseType != "postgres" {
		return errors.New("database_type must be 'memory' or 'postgres'")
	}

	if c.DatabaseType == "postgres" && c.DatabaseURL == "" {
		return errors.New("database_url is required when using postgres")
	}

	switch c.Storage.Type {
	case StorageMemory:
	case StorageFS:
		if c.Storage.BaseDir == "" {
			return errors.New("filesystem storage requires a base directory")
		}
	case StorageS3:
	case StorageMinIO:
		if c.Storage.Endpoint == "" {
			return errors.New("minio storage requires an endpoint")
		}
	default:
		return fmt.Errorf("unsupported storage type: %s", c.Storage.Type)
	}

	if c.PublicBaseURL != "" {
		u, err := url.Parse(c.PublicBaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("public_base_url must be an absolute URL, got: %s", c.PublicBaseURL)
		}
	}

	for bucket, base := range c.CDNBuckets {
		u, err := url.Parse(base)
		if bucket == "" || err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("cdn bucket %q needs an absolute URL, got: %s", bucket, base)
		}
	}

	if c.FilesPrefix == "" || !strings.HasPrefix(c.FilesPrefix, "/") {
		return fmt.Errorf("files prefix must start with '/', got: %q", c.FilesPrefix)
	}

	if c.JWTSecret == "" {
		return errors.New("jwt_secret is required")
	}
	if c.Environment == "production" && len(c.JWTSecret) < 32 {
		return errors.New("jwt_secret must be at least 32 characters in production")
	}

	if c.CacheMaxSize < 0 {
		return errors.New("cache size cannot be negative")
	}

	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}

	return nil
}

// ResolvedPublicBaseURL returns the prefix attachment URLs are built from
func (c *ServerConfig) ResolvedPublicBaseURL() string {
	if c.PublicBaseURL != "" {
		return strings.TrimSuffix(c.PublicBaseURL, "/")
	}

	switch c.Storage.Type {
	case StorageS3:
		if c.Storage.Endpoint != "" {
			return strings.TrimSuffix(c.Storage.Endpoint, "/")
		}
		region := c.Storage.Region
		if region == "" {
			region = "us-east-1"
		}
		return fmt.Sprintf("https://s3.%s.amazonaws.com", region)
	case StorageMinIO:
		scheme := "http"
		if c.Storage.UseSSL {
			scheme = "https"
		}
		return fmt.Sprintf("%s://%s", scheme, c.Storage.Endpoint)
	default:
		return "http://localhost:" + c.Port + c.FilesPrefix
	}
}

// ParseCDNBuckets parses CDN_BUCKETS values of the form
// "venues=https://venues.cdn.example.com,posts=https://posts.cdn.example.com".
func ParseCDNBuckets(raw string) (map[string]string, error) {
	buckets := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		bucket, base, ok := strings.Cut(pair, "=")
		bucket, base = strings.TrimSpace(bucket), strings.TrimSpace(base)
		if !ok || bucket == "" || base == "" {
			return nil, fmt.Errorf("invalid CDN_BUCKETS entry %q (use bucket=url)", pair)
		}
		buckets[bucket] = base
	}
	return buckets, nil
}

// ServesFiles reports whether stored objects are served by this process
func (c *ServerConfig) ServesFiles() bool {
	return c.Storage.Type == StorageMemory || c.Storage.Type == StorageFS
}

// SlogLevel returns LogLevel as a slog.Level
func (c *ServerConfig) SlogLevel() slog.Level {
	level, _ := parseLevel(c.LogLevel)
	return level
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level: %s", s)
	}
	return level, nil
}
