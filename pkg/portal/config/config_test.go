package config

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/venue-admin/pkg/media"
	"github.com/tendant/venue-admin/pkg/portal"
)

const testSecret = "config-test-secret"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(WithJWTSecret(testSecret))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "memory", cfg.DatabaseType)
	assert.Equal(t, StorageMemory, cfg.Storage.Type)
	assert.True(t, cfg.AutoMigrate)
	assert.True(t, cfg.ServesFiles())
	assert.Equal(t, "http://localhost:8080/files", cfg.ResolvedPublicBaseURL())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    []Option
		wantErr string
	}{
		{"missing secret", nil, "jwt_secret is required"},
		{"short production secret", []Option{WithJWTSecret("short"), WithEnvironment("production")}, "at least 32 characters"},
		{"fs without dir", []Option{WithJWTSecret(testSecret), func(c *ServerConfig) error {
			c.Storage = StorageConfig{Type: StorageFS}
			return nil
		}}, "base directory"},
		{"relative public base", []Option{WithJWTSecret(testSecret), WithPublicBaseURL("/files")}, "absolute URL"},
		{"bad files prefix", []Option{WithJWTSecret(testSecret), WithFilesPrefix("files")}, "must start with '/'"},
		{"bad log level", []Option{WithJWTSecret(testSecret), func(c *ServerConfig) error {
			c.LogLevel = "loud"
			return nil
		}}, "invalid log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.opts...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestOptionErrors(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{"empty port", WithPort("")},
		{"unknown database", WithDatabase("mysql", "mysql://localhost")},
		{"postgres without url", WithDatabase("postgres", "")},
		{"negative cache", WithListCache(-1, time.Minute)},
		{"zero delete timeout", WithDeleteTimeout(0)},
		{"sse on memory", WithS3Encryption("AES256", "")},
		{"empty minio endpoint", WithMinIOStorage("", "k", "s", false)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(WithJWTSecret(testSecret), tt.opt)
			assert.Error(t, err)
		})
	}
}

func TestParseStorageURL(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    StorageConfig
		wantErr bool
	}{
		{"empty defaults to memory", "", StorageConfig{Type: StorageMemory}, false},
		{"memory keyword", "memory", StorageConfig{Type: StorageMemory}, false},
		{"memory URL", "memory://", StorageConfig{Type: StorageMemory}, false},
		{"filesystem URL", "file:///var/data", StorageConfig{Type: StorageFS, BaseDir: "/var/data"}, false},
		{"S3 region", "s3://eu-west-1", StorageConfig{Type: StorageS3, Region: "eu-west-1"}, false},
		{"S3 compatible", "s3://us-east-1?endpoint=http://localhost:9000&path_style=true&create_buckets=true",
			StorageConfig{Type: StorageS3, Region: "us-east-1", Endpoint: "http://localhost:9000", UsePathStyle: true, CreateBuckets: true}, false},
		{"S3 encryption", "s3://us-east-1?sse=aws:kms&kms_key_id=key-1",
			StorageConfig{Type: StorageS3, Region: "us-east-1", EnableSSE: true, SSEAlgorithm: "aws:kms", SSEKMSKeyID: "key-1"}, false},
		{"MinIO", "minio://localhost:9000?ssl=true", StorageConfig{Type: StorageMinIO, Endpoint: "localhost:9000", UseSSL: true}, false},
		{"MinIO without host", "minio://", StorageConfig{}, true},
		{"bad boolean", "s3://us-east-1?path_style=maybe", StorageConfig{}, true},
		{"empty filesystem path", "file://", StorageConfig{}, true},
		{"unsupported scheme", "ftp://example.com", StorageConfig{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStorageURL(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolvedPublicBaseURL(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
		want string
	}{
		{"explicit base wins", []Option{WithPublicBaseURL("https://cdn.example.com/media/")}, "https://cdn.example.com/media"},
		{"memory uses port and prefix", []Option{WithPort("9090"), WithFilesPrefix("/uploads")}, "http://localhost:9090/uploads"},
		{"aws s3", []Option{WithS3Storage("eu-central-1", "", "", "")}, "https://s3.eu-central-1.amazonaws.com"},
		{"s3 compatible endpoint", []Option{WithS3Storage("", "http://localhost:9000/", "", "")}, "http://localhost:9000"},
		{"minio tls", []Option{WithMinIOStorage("minio.internal:9000", "k", "s", true)}, "https://minio.internal:9000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(append([]Option{WithJWTSecret(testSecret)}, tt.opts...)...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.ResolvedPublicBaseURL())
		})
	}
}

func TestBuildMemory(t *testing.T) {
	cfg, err := Load(WithJWTSecret(testSecret), WithEventLogging(false))
	require.NoError(t, err)

	components, err := cfg.Build(context.Background())
	require.NoError(t, err)
	defer components.Close()

	assert.Nil(t, components.Pool)
	require.NotNil(t, components.Files)
	assert.NotEmpty(t, components.RouterOptions(cfg))

	ctx := portal.WithSession(context.Background(), portal.Session{UserID: "u1", TenantID: "t1"})
	data := append([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, make([]byte, 64)...)
	result, err := components.Service.UploadAttachment(ctx, "clubs", "logo_url", media.File{
		Name:   "logo.png",
		Size:   int64(len(data)),
		Reader: bytes.NewReader(data),
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(result.URL, cfg.ResolvedPublicBaseURL()+"/"))

	req := httptest.NewRequest(http.MethodGet, strings.TrimPrefix(result.URL, cfg.ResolvedPublicBaseURL()), nil)
	rec := httptest.NewRecorder()
	components.Files.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, data, rec.Body.Bytes())

	families, err := components.Registry.Gather()
	require.NoError(t, err)
	var names []string
	for _, mf := range families {
		names = append(names, mf.GetName())
	}
	assert.Contains(t, names, "venue_admin_uploaded_bytes_total")
}

func TestBuildFilesystem(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(WithJWTSecret(testSecret), WithFilesystemStorage(dir), WithListCache(0, 0))
	require.NoError(t, err)

	components, err := cfg.Build(context.Background())
	require.NoError(t, err)
	defer components.Close()

	assert.NotNil(t, components.Files)

	urls, err := cfg.BuildURLStrategy()
	require.NoError(t, err)
	bucket, path, err := urls.Parse(components.Storage.PublicURL("venues", "clubs/logos/a.png"))
	require.NoError(t, err)
	assert.Equal(t, "venues", bucket)
	assert.Equal(t, "clubs/logos/a.png", path)
}

func TestBuildWithCDNBuckets(t *testing.T) {
	cfg, err := Load(WithJWTSecret(testSecret), WithListCache(0, 0),
		WithCDNBuckets(map[string]string{"venues": "https://venues.cdn.example.com"}))
	require.NoError(t, err)

	components, err := cfg.Build(context.Background())
	require.NoError(t, err)
	defer components.Close()

	ctx := portal.WithSession(context.Background(), portal.Session{UserID: "u1", TenantID: "t1"})
	data := append([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, make([]byte, 64)...)
	result, err := components.Service.UploadAttachment(ctx, "clubs", "logo_url", media.File{
		Name:   "logo.png",
		Size:   int64(len(data)),
		Reader: bytes.NewReader(data),
	})
	require.NoError(t, err)
	assert.Equal(t, "https://venues.cdn.example.com/"+result.Path, result.URL)

	// The cleaner resolves the same URLs the backend produced.
	bucket, path, err := components.URLs.Parse(result.URL)
	require.NoError(t, err)
	assert.Equal(t, "venues", bucket)
	assert.Equal(t, result.Path, path)

	// Buckets without a CDN host keep the public base URL.
	assert.Equal(t, cfg.ResolvedPublicBaseURL()+"/posts/covers/a.png", components.Storage.PublicURL("posts", "covers/a.png"))
}

func TestParseCDNBuckets(t *testing.T) {
	buckets, err := ParseCDNBuckets("venues=https://a.example.com,,posts = https://b.example.com")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"venues": "https://a.example.com", "posts": "https://b.example.com"}, buckets)

	_, err = ParseCDNBuckets("=https://a.example.com")
	assert.Error(t, err)

	_, err = Load(WithJWTSecret(testSecret), WithCDNBuckets(map[string]string{"venues": "cdn.example.com"}))
	assert.ErrorContains(t, err, "needs an absolute URL")
}

func TestBuildRepositoryRejectsUnknownType(t *testing.T) {
	cfg := defaults()
	cfg.DatabaseType = "sqlite"
	_, _, err := cfg.BuildRepository(context.Background())
	assert.Error(t, err)
}
