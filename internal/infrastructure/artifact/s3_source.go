package artifact

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Config holds the client settings for an S3-compatible endpoint.
// Bucket and object keys are passed to NewS3Source.
type S3Config struct {
	// Endpoint overrides the AWS endpoint, e.g. "http://127.0.0.1:9000" for MinIO.
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
}

// ConnectS3 creates an S3 client. A custom endpoint implies path-style
// addressing.
func ConnectS3(cfg S3Config) *s3.Client {
	return s3.NewFromConfig(aws.Config{Region: cfg.Region}, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
		if cfg.AccessKey != "" {
			o.Credentials = credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
		}
	})
}

// S3Source downloads artifacts from a bucket
type S3Source struct {
	downloader *manager.Downloader
	bucket     string
	keys       map[string]string
}

// NewS3Source creates a new S3Source
func NewS3Source(client *s3.Client, bucket string, keys map[string]string) (*S3Source, error) {
	if client == nil {
		return nil, errors.New("s3 client can't be nil")
	}
	if bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}
	return &S3Source{
		downloader: manager.NewDownloader(client),
		bucket:     bucket,
		keys:       keys,
	}, nil
}

// Name returns the source name
func (s *S3Source) Name() string {
	return "s3"
}

// Fetch downloads the artifact object into dst
func (s *S3Source) Fetch(ctx context.Context, artifact string, dst Destination) error {
	key, ok := s.keys[artifact]
	if !ok || key == "" {
		return fmt.Errorf("no s3 key for %s: %w", artifact, ErrNoSource)
	}

	_, err := s.downloader.Download(ctx, dst, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return nil
	}

	var noSuchKey *types.NoSuchKey
	var respErr *awshttp.ResponseError
	if errors.As(err, &noSuchKey) || (errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusNotFound) {
		return fmt.Errorf("s3://%s/%s: %w", s.bucket, key, ErrNotFound)
	}
	return fmt.Errorf("s3://%s/%s: %w", s.bucket, key, err)
}
