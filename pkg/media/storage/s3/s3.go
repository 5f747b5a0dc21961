package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/tendant/venue-admin/pkg/media"
	"github.com/tendant/venue-admin/pkg/media/publicurl"
)

// Config describes how to reach the bucket host. Buckets themselves come from
// the upload constraints.
type Config struct {
	Region          string
	AccessKeyID     string // empty falls back to the default AWS credential chain
	SecretAccessKey string
	Endpoint        string // set for MinIO, R2 and other S3-compatible hosts
	UsePathStyle    bool

	// PublicBaseURL is prepended to <bucket>/<path> for public URLs. When empty
	// the endpoint (or the AWS virtual-host URL) is used.
	PublicBaseURL string

	// URLs overrides PublicBaseURL, e.g. with per-bucket CDN hosts
	URLs publicurl.Strategy

	EnableSSE    bool
	SSEAlgorithm string // "AES256" or "aws:kms"
	SSEKMSKeyID  string // only read for aws:kms

	// CreateBucketIfNotExist creates a bucket the first time it is written to
	CreateBucketIfNotExist bool
}

// Backend is an S3-compatible implementation of the media.Storage interface
type Backend struct {
	client *s3.Client
	urls   publicurl.Strategy
	config Config

	ensured sync.Map // bucket -> struct{}
}

// New creates a backend for AWS S3 or an S3-compatible endpoint
func New(config Config) (*Backend, error) {
	if config.Region == "" {
		config.Region = "us-east-1"
	}

	var awsCfg aws.Config
	var err error

	if config.AccessKeyID != "" && config.SecretAccessKey != "" {
		awsCfg, err = awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(config.Region),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				config.AccessKeyID,
				config.SecretAccessKey,
				"",
			)),
		)
	} else {
		awsCfg, err = awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(config.Region),
		)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Options []func(*s3.Options)
	if config.Endpoint != "" {
		s3Options = append(s3Options, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(config.Endpoint)
			o.UsePathStyle = config.UsePathStyle
		})
	}

	urls := config.URLs
	if urls == nil {
		urls = publicurl.NewPathStrategy(publicBase(config))
	}

	return &Backend{
		client: s3.NewFromConfig(awsCfg, s3Options...),
		urls:   urls,
		config: config,
	}, nil
}

func publicBase(config Config) string {
	if config.PublicBaseURL != "" {
		return config.PublicBaseURL
	}
	if config.Endpoint != "" {
		return strings.TrimSuffix(config.Endpoint, "/")
	}
	return fmt.Sprintf("https://s3.%s.amazonaws.com", config.Region)
}

// Store uploads content. Without Overwrite the put is conditional on the key
// not existing (If-None-Match: *).
func (b *Backend) Store(ctx context.Context, bucket, path string, reader io.Reader, opts media.StoreOptions) error {
	if err := b.ensureBucket(ctx, bucket); err != nil {
		return err
	}

	if opts.Overwrite {
		return b.storeMultipart(ctx, bucket, path, reader, opts)
	}

	body, size, err := seekable(reader, opts.Size)
	if err != nil {
		return fmt.Errorf("failed to buffer upload: %w", err)
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(path),
		Body:          body,
		ContentLength: aws.Int64(size),
		IfNoneMatch:   aws.String("*"),
	}
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}
	b.applySSE(input)

	if _, err := b.client.PutObject(ctx, input); err != nil {
		if isPreconditionFailed(err) {
			return media.ErrObjectExists
		}
		return fmt.Errorf("failed to upload to S3: %w", err)
	}
	return nil
}

func (b *Backend) storeMultipart(ctx context.Context, bucket, path string, reader io.Reader, opts media.StoreOptions) error {
	uploader := manager.NewUploader(b.client)

	input := &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(path),
		Body:   reader,
	}
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}
	b.applySSE(input)

	if _, err := uploader.Upload(ctx, input); err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}
	return nil
}

func (b *Backend) applySSE(input *s3.PutObjectInput) {
	if !b.config.EnableSSE {
		return
	}
	switch b.config.SSEAlgorithm {
	case "AES256":
		input.ServerSideEncryption = types.ServerSideEncryptionAes256
	case "aws:kms":
		input.ServerSideEncryption = types.ServerSideEncryptionAwsKms
		if b.config.SSEKMSKeyID != "" {
			input.SSEKMSKeyId = aws.String(b.config.SSEKMSKeyID)
		}
	}
}

// PublicURL returns the public URL of the object
func (b *Backend) PublicURL(bucket, path string) string {
	return b.urls.PublicURL(bucket, path)
}

// Delete deletes the object. S3 does not report missing keys on delete, so the
// key is checked first.
func (b *Backend) Delete(ctx context.Context, bucket, path string) error {
	_, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return media.ErrObjectNotFound
		}
		return fmt.Errorf("failed to stat S3 object: %w", err)
	}

	_, err = b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from S3: %w", err)
	}
	return nil
}

// ensureBucket creates the bucket once per process when configured to
func (b *Backend) ensureBucket(ctx context.Context, bucket string) error {
	if !b.config.CreateBucketIfNotExist {
		return nil
	}
	if _, ok := b.ensured.Load(bucket); ok {
		return nil
	}

	_, err := b.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(bucket),
	})
	if err == nil {
		b.ensured.Store(bucket, struct{}{})
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) &&
		!strings.Contains(err.Error(), "NoSuchBucket") {
		return fmt.Errorf("failed to check bucket: %w", err)
	}

	createInput := &s3.CreateBucketInput{
		Bucket: aws.String(bucket),
	}
	if b.config.Region != "us-east-1" {
		createInput.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(b.config.Region),
		}
	}

	if _, err := b.client.CreateBucket(ctx, createInput); err != nil {
		var owned *types.BucketAlreadyOwnedByYou
		var exists *types.BucketAlreadyExists
		if !errors.As(err, &owned) && !errors.As(err, &exists) {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	b.ensured.Store(bucket, struct{}{})
	return nil
}

func isPreconditionFailed(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "PreconditionFailed" {
		return true
	}
	var respErr *smithyhttp.ResponseError
	return errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusPreconditionFailed
}

// seekable returns a body the SDK can sign and retry. Readers that already
// seek are used as-is.
func seekable(reader io.Reader, size int64) (io.ReadSeeker, int64, error) {
	if rs, ok := reader.(io.ReadSeeker); ok && size >= 0 {
		return rs, size, nil
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, 0, err
	}
	return bytes.NewReader(data), int64(len(data)), nil
}
