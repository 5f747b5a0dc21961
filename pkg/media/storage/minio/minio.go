package minio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/tendant/venue-admin/pkg/media"
	"github.com/tendant/venue-admin/pkg/media/publicurl"
)

// Config options for the MinIO backend
type Config struct {
	Endpoint        string // host:port, without scheme
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	Region          string

	// PublicBaseURL is prepended to <bucket>/<path>; defaults to the endpoint
	PublicBaseURL string

	// URLs overrides PublicBaseURL, e.g. with per-bucket CDN hosts
	URLs publicurl.Strategy

	CreateBucketIfNotExist bool
}

// Backend is a MinIO implementation of the media.Storage interface
type Backend struct {
	client *minio.Client
	urls   publicurl.Strategy
	config Config

	ensured sync.Map // bucket -> struct{}
}

// New creates a new MinIO storage backend
func New(config Config) (*Backend, error) {
	if config.Endpoint == "" {
		return nil, errors.New("minio endpoint is required")
	}
	if strings.Contains(config.Endpoint, "://") {
		return nil, fmt.Errorf("minio endpoint must not include a scheme: %s", config.Endpoint)
	}

	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKeyID, config.SecretAccessKey, ""),
		Secure: config.UseSSL,
		Region: config.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MinIO client: %w", err)
	}

	urls := config.URLs
	if urls == nil {
		base := config.PublicBaseURL
		if base == "" {
			scheme := "http"
			if config.UseSSL {
				scheme = "https"
			}
			base = fmt.Sprintf("%s://%s", scheme, config.Endpoint)
		}
		urls = publicurl.NewPathStrategy(base)
	}

	return &Backend{
		client: client,
		urls:   urls,
		config: config,
	}, nil
}

// Store uploads content. Without Overwrite an existing object is reported as
// media.ErrObjectExists.
func (b *Backend) Store(ctx context.Context, bucket, path string, reader io.Reader, opts media.StoreOptions) error {
	if err := b.ensureBucket(ctx, bucket); err != nil {
		return err
	}

	if !opts.Overwrite {
		exists, err := b.exists(ctx, bucket, path)
		if err != nil {
			return err
		}
		if exists {
			return media.ErrObjectExists
		}
	}

	size := opts.Size
	if size <= 0 {
		size = -1
	}
	putOpts := minio.PutObjectOptions{ContentType: opts.ContentType}
	if _, err := b.client.PutObject(ctx, bucket, path, reader, size, putOpts); err != nil {
		return fmt.Errorf("failed to upload to MinIO: %w", err)
	}
	return nil
}

// PublicURL returns the public URL of the object
func (b *Backend) PublicURL(bucket, path string) string {
	return b.urls.PublicURL(bucket, path)
}

// Delete removes the object
func (b *Backend) Delete(ctx context.Context, bucket, path string) error {
	exists, err := b.exists(ctx, bucket, path)
	if err != nil {
		return err
	}
	if !exists {
		return media.ErrObjectNotFound
	}

	if err := b.client.RemoveObject(ctx, bucket, path, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete from MinIO: %w", err)
	}
	return nil
}

func (b *Backend) exists(ctx context.Context, bucket, path string) (bool, error) {
	_, err := b.client.StatObject(ctx, bucket, path, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat MinIO object: %w", err)
}

func (b *Backend) ensureBucket(ctx context.Context, bucket string) error {
	if !b.config.CreateBucketIfNotExist {
		return nil
	}
	if _, ok := b.ensured.Load(bucket); ok {
		return nil
	}

	exists, err := b.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		err := b.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: b.config.Region})
		if err != nil {
			code := minio.ToErrorResponse(err).Code
			if code != "BucketAlreadyOwnedByYou" && code != "BucketAlreadyExists" {
				return fmt.Errorf("failed to create bucket: %w", err)
			}
		}
	}

	b.ensured.Store(bucket, struct{}{})
	return nil
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound
}
