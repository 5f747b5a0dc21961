package config

import (
	"fmt"
	"time"
)

// WithPort sets the server port
func WithPort(port string) Option {
	return func(c *ServerConfig) error {
		if port == "" {
			return fmt.Errorf("port cannot be empty")
		}
		c.Port = port
		return nil
	}
}

// WithEnvironment sets the environment (development, production, testing)
func WithEnvironment(env string) Option {
	return func(c *ServerConfig) error {
		if env == "" {
			return fmt.Errorf("environment cannot be empty")
		}
		c.Environment = env
		return nil
	}
}

// WithLogLevel sets the minimum log level
func WithLogLevel(level string) Option {
	return func(c *ServerConfig) error {
		if _, err := parseLevel(level); err != nil {
			return err
		}
		c.LogLevel = level
		return nil
	}
}

// WithDatabase configures the database backend
func WithDatabase(dbType, url string) Option {
	return func(c *ServerConfig) error {
		if dbType != "memory" && dbType != "postgres" {
			return fmt.Errorf("database type must be 'memory' or 'postgres', got: %s", dbType)
		}
		if dbType == "postgres" && url == "" {
			return fmt.Errorf("database URL is required for postgres")
		}
		c.DatabaseType = dbType
		c.DatabaseURL = url
		return nil
	}
}

// WithDatabaseSchema sets the Postgres schema holding entity tables
func WithDatabaseSchema(schema string) Option {
	return func(c *ServerConfig) error {
		if schema == "" {
			return fmt.Errorf("database schema cannot be empty")
		}
		c.DBSchema = schema
		return nil
	}
}

// WithAutoMigrate toggles table creation on startup
func WithAutoMigrate(enabled bool) Option {
	return func(c *ServerConfig) error {
		c.AutoMigrate = enabled
		return nil
	}
}

// WithStorageURL selects the storage backend from a STORAGE_URL value
func WithStorageURL(raw string) Option {
	return func(c *ServerConfig) error {
		storage, err := ParseStorageURL(raw)
		if err != nil {
			return err
		}
		c.Storage = storage
		return nil
	}
}

// WithFilesystemStorage stores objects under baseDir
func WithFilesystemStorage(baseDir string) Option {
	return func(c *ServerConfig) error {
		if baseDir == "" {
			return fmt.Errorf("filesystem base directory cannot be empty")
		}
		c.Storage = StorageConfig{Type: StorageFS, BaseDir: baseDir}
		return nil
	}
}

// WithS3Storage stores objects in S3 or an S3-compatible service. Endpoint
// may be empty for AWS.
func WithS3Storage(region, endpoint, accessKeyID, secretAccessKey string) Option {
	return func(c *ServerConfig) error {
		if region == "" {
			region = "us-east-1"
		}
		c.Storage = StorageConfig{
			Type:            StorageS3,
			Region:          region,
			Endpoint:        endpoint,
			AccessKeyID:     accessKeyID,
			SecretAccessKey: secretAccessKey,
			UsePathStyle:    endpoint != "",
		}
		return nil
	}
}

// WithS3Encryption enables server-side encryption for the S3 backend
func WithS3Encryption(algorithm, kmsKeyID string) Option {
	return func(c *ServerConfig) error {
		if c.Storage.Type != StorageS3 {
			return fmt.Errorf("server-side encryption requires s3 storage, got: %s", c.Storage.Type)
		}
		if algorithm != "AES256" && algorithm != "aws:kms" {
			return fmt.Errorf("SSE algorithm must be 'AES256' or 'aws:kms', got: %s", algorithm)
		}
		c.Storage.EnableSSE = true
		c.Storage.SSEAlgorithm = algorithm
		c.Storage.SSEKMSKeyID = kmsKeyID
		return nil
	}
}

// WithMinIOStorage stores objects in MinIO at endpoint (host:port)
func WithMinIOStorage(endpoint, accessKey, secretKey string, useSSL bool) Option {
	return func(c *ServerConfig) error {
		if endpoint == "" {
			return fmt.Errorf("minio endpoint cannot be empty")
		}
		c.Storage = StorageConfig{
			Type:            StorageMinIO,
			Endpoint:        endpoint,
			AccessKeyID:     accessKey,
			SecretAccessKey: secretKey,
			UseSSL:          useSSL,
		}
		return nil
	}
}

// WithCreateBuckets creates missing buckets on first write (s3, minio)
func WithCreateBuckets(enabled bool) Option {
	return func(c *ServerConfig) error {
		c.Storage.CreateBuckets = enabled
		return nil
	}
}

// WithPublicBaseURL sets the prefix of attachment URLs
func WithPublicBaseURL(base string) Option {
	return func(c *ServerConfig) error {
		c.PublicBaseURL = base
		return nil
	}
}

// WithCDNBuckets serves the listed buckets from their own CDN hosts. Buckets
// not listed keep the public base URL.
func WithCDNBuckets(buckets map[string]string) Option {
	return func(c *ServerConfig) error {
		if len(buckets) == 0 {
			c.CDNBuckets = nil
			return nil
		}
		c.CDNBuckets = make(map[string]string, len(buckets))
		for bucket, base := range buckets {
			c.CDNBuckets[bucket] = base
		}
		return nil
	}
}

// WithFilesPrefix sets the route serving memory/fs objects
func WithFilesPrefix(prefix string) Option {
	return func(c *ServerConfig) error {
		c.FilesPrefix = prefix
		return nil
	}
}

// WithJWTSecret sets the HS256 secret used to verify session tokens
func WithJWTSecret(secret string) Option {
	return func(c *ServerConfig) error {
		if secret == "" {
			return fmt.Errorf("jwt secret cannot be empty")
		}
		c.JWTSecret = secret
		return nil
	}
}

// WithListCache sizes the list-page cache. A size of zero disables it.
func WithListCache(size int, ttl time.Duration) Option {
	return func(c *ServerConfig) error {
		if size < 0 {
			return fmt.Errorf("cache size cannot be negative, got: %d", size)
		}
		c.CacheMaxSize = size
		c.CacheTTL = ttl
		return nil
	}
}

// WithDeleteTimeout bounds each background attachment delete
func WithDeleteTimeout(d time.Duration) Option {
	return func(c *ServerConfig) error {
		if d <= 0 {
			return fmt.Errorf("delete timeout must be positive, got: %s", d)
		}
		c.DeleteTimeout = d
		return nil
	}
}

// WithRequestTimeout bounds HTTP request handling
func WithRequestTimeout(d time.Duration) Option {
	return func(c *ServerConfig) error {
		if d <= 0 {
			return fmt.Errorf("request timeout must be positive, got: %s", d)
		}
		c.RequestTimeout = d
		return nil
	}
}

// WithMetricsNamespace sets the Prometheus namespace
func WithMetricsNamespace(ns string) Option {
	return func(c *ServerConfig) error {
		c.MetricsNamespace = ns
		return nil
	}
}

// WithEventLogging toggles logging of record lifecycle events
func WithEventLogging(enabled bool) Option {
	return func(c *ServerConfig) error {
		c.EnableEventLogging = enabled
		return nil
	}
}

// WithCORS toggles permissive CORS headers
func WithCORS(enabled bool) Option {
	return func(c *ServerConfig) error {
		c.EnableCORS = enabled
		return nil
	}
}
