package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/jwtauth"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/tendant/venue-admin/pkg/media"
	"github.com/tendant/venue-admin/pkg/media/publicurl"
	fsstorage "github.com/tendant/venue-admin/pkg/media/storage/fs"
	memorystorage "github.com/tendant/venue-admin/pkg/media/storage/memory"
	miniostorage "github.com/tendant/venue-admin/pkg/media/storage/minio"
	s3storage "github.com/tendant/venue-admin/pkg/media/storage/s3"
	"github.com/tendant/venue-admin/pkg/portal"
	"github.com/tendant/venue-admin/pkg/portal/api"
	"github.com/tendant/venue-admin/pkg/portal/repo/memory"
	repopg "github.com/tendant/venue-admin/pkg/portal/repo/postgres"
)

// Components are the wired parts of a running portal
type Components struct {
	Service    *portal.Service
	Repository portal.Repository
	Storage    media.Storage
	URLs       publicurl.Strategy
	Uploader   *media.Uploader
	Cleaner    *media.Cleaner
	Auth       *jwtauth.JWTAuth
	Registry   *prometheus.Registry

	// Files serves stored objects; nil unless the backend is memory or fs
	Files http.Handler

	// Pool is nil for the memory repository
	Pool *pgxpool.Pool
}

// Close waits for pending attachment deletes and releases the database pool
func (c *Components) Close() {
	if c.Cleaner != nil {
		c.Cleaner.Wait()
	}
	if c.Pool != nil {
		c.Pool.Close()
	}
}

// RouterOptions returns the api options matching the components and config
func (c *Components) RouterOptions(cfg *ServerConfig) []api.ServerOption {
	opts := []api.ServerOption{
		api.WithAuth(c.Auth),
		api.WithGatherer(c.Registry),
		api.WithRequestTimeout(cfg.RequestTimeout),
		api.WithCORS(cfg.EnableCORS),
	}
	if c.Files != nil {
		opts = append(opts, api.WithFiles(cfg.FilesPrefix, c.Files))
	}
	if c.Pool != nil {
		opts = append(opts, api.WithHealthCheck("database", c.Pool.Ping))
	}
	return opts
}

// Build wires storage, repository, caches, metrics and the portal service
func (c *ServerConfig) Build(ctx context.Context) (*Components, error) {
	logger := slog.Default()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	observer, err := media.NewPrometheusObserver(c.MetricsNamespace, registry)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	urls, err := c.BuildURLStrategy()
	if err != nil {
		return nil, err
	}
	store, files, err := c.buildStorage(urls)
	if err != nil {
		return nil, fmt.Errorf("failed to build storage: %w", err)
	}

	mediaOpts := []media.Option{
		media.WithLogger(logger),
		media.WithObserver(observer),
		media.WithDeleteTimeout(c.DeleteTimeout),
	}
	uploader := media.NewUploader(store, mediaOpts...)
	cleaner := media.NewCleaner(store, urls, mediaOpts...)

	repo, pool, err := c.BuildRepository(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build repository: %w", err)
	}

	options := []portal.Option{
		portal.WithRepository(repo),
		portal.WithSchemas(portal.BuiltinSchemas()...),
		portal.WithUploader(uploader),
		portal.WithCleaner(cleaner),
		portal.WithLogger(logger),
	}

	if c.CacheMaxSize > 0 {
		cache, err := portal.NewListCache(portal.CacheConfig{MaxSize: c.CacheMaxSize, TTL: c.CacheTTL})
		if err != nil {
			closePool(pool)
			return nil, fmt.Errorf("failed to create list cache: %w", err)
		}
		options = append(options, portal.WithListCache(cache))
	}

	if c.EnableEventLogging {
		options = append(options, portal.WithEventSink(portal.NewLoggingEventSink(logger)))
	}

	service, err := portal.New(options...)
	if err != nil {
		closePool(pool)
		return nil, err
	}

	return &Components{
		Service:    service,
		Repository: repo,
		Storage:    store,
		URLs:       urls,
		Uploader:   uploader,
		Cleaner:    cleaner,
		Auth:       api.NewJWTAuth(c.JWTSecret),
		Registry:   registry,
		Files:      files,
		Pool:       pool,
	}, nil
}

// BuildStorage creates the configured storage backend. The returned handler
// serves stored objects for the memory and fs backends and is nil otherwise.
func (c *ServerConfig) BuildStorage() (media.Storage, http.Handler, error) {
	urls, err := c.BuildURLStrategy()
	if err != nil {
		return nil, nil, err
	}
	return c.buildStorage(urls)
}

func (c *ServerConfig) buildStorage(urls publicurl.Strategy) (media.Storage, http.Handler, error) {
	switch c.Storage.Type {
	case StorageMemory:
		b := memorystorage.NewWithStrategy(urls)
		return b, b.Handler(), nil

	case StorageFS:
		b, err := fsstorage.New(fsstorage.Config{BaseDir: c.Storage.BaseDir, URLs: urls})
		if err != nil {
			return nil, nil, err
		}
		return b, b.Handler(), nil

	case StorageS3:
		b, err := s3storage.New(s3storage.Config{
			Region:                 c.Storage.Region,
			AccessKeyID:            c.Storage.AccessKeyID,
			SecretAccessKey:        c.Storage.SecretAccessKey,
			Endpoint:               c.Storage.Endpoint,
			UsePathStyle:           c.Storage.UsePathStyle,
			URLs:                   urls,
			EnableSSE:              c.Storage.EnableSSE,
			SSEAlgorithm:           c.Storage.SSEAlgorithm,
			SSEKMSKeyID:            c.Storage.SSEKMSKeyID,
			CreateBucketIfNotExist: c.Storage.CreateBuckets,
		})
		if err != nil {
			return nil, nil, err
		}
		return b, nil, nil

	case StorageMinIO:
		b, err := miniostorage.New(miniostorage.Config{
			Endpoint:               c.Storage.Endpoint,
			AccessKeyID:            c.Storage.AccessKeyID,
			SecretAccessKey:        c.Storage.SecretAccessKey,
			UseSSL:                 c.Storage.UseSSL,
			Region:                 c.Storage.Region,
			URLs:                   urls,
			CreateBucketIfNotExist: c.Storage.CreateBuckets,
		})
		if err != nil {
			return nil, nil, err
		}
		return b, nil, nil

	default:
		return nil, nil, fmt.Errorf("unsupported storage backend type: %s", c.Storage.Type)
	}
}

// BuildURLStrategy returns the strategy shared by the storage backend, which
// builds attachment URLs with it, and the cleaner, which parses them back into
// bucket and path. With CDN buckets configured those buckets use their CDN
// hosts and the rest fall back to the public base URL.
func (c *ServerConfig) BuildURLStrategy() (publicurl.Strategy, error) {
	if len(c.CDNBuckets) > 0 {
		return publicurl.New(publicurl.Config{
			Type:       publicurl.StrategyTypeCDN,
			BaseURL:    c.ResolvedPublicBaseURL(),
			CDNBuckets: c.CDNBuckets,
		})
	}
	return publicurl.New(publicurl.Config{
		Type:    publicurl.StrategyTypePath,
		BaseURL: c.ResolvedPublicBaseURL(),
	})
}

// BuildRepository creates the record repository. For postgres the pool is
// returned so the caller can close it; tables are created when AutoMigrate is set.
func (c *ServerConfig) BuildRepository(ctx context.Context) (portal.Repository, *pgxpool.Pool, error) {
	switch c.DatabaseType {
	case "memory":
		return memory.New(), nil, nil
	case "postgres":
		if c.DatabaseURL == "" {
			return nil, nil, errors.New("database_url is required for postgres")
		}
		pool, err := newPool(ctx, c.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		repo := repopg.NewWithPool(pool, repopg.WithSchemaName(c.DBSchema))
		if c.AutoMigrate {
			if err := repo.Migrate(ctx, portal.BuiltinSchemas()...); err != nil {
				pool.Close()
				return nil, nil, fmt.Errorf("failed to migrate: %w", err)
			}
		}
		return repo, pool, nil
	default:
		return nil, nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}
}

// PingPostgres verifies connectivity to Postgres.
func PingPostgres(ctx context.Context, databaseURL string) error {
	if databaseURL == "" {
		return errors.New("database_url is required")
	}
	pool, err := newPool(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

func newPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	return pool, nil
}

func closePool(pool *pgxpool.Pool) {
	if pool != nil {
		pool.Close()
	}
}
