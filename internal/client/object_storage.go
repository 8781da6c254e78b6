package client

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/fusecpt/ats/internal/config"
)

// ObjectStorage stores uploaded files (client logos, resumes).
type ObjectStorage interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	GetPublicURL(key string) string
}

// S3Client implements ObjectStorage for any S3 compatible endpoint.
type S3Client struct {
	s3Client   *s3.Client
	bucketName string
	endpoint   string
	publicURL  string
}

// NewS3Client creates a storage client. An empty endpoint targets AWS itself;
// otherwise path style addressing is used, as R2 and MinIO expect.
func NewS3Client(ctx context.Context, cfg *config.StorageConfig) (*S3Client, error) {
	if cfg.BucketName == "" || cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, fmt.Errorf("storage configuration incomplete")
	}

	region := cfg.Region
	if region == "" {
		region = "auto"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
		awsconfig.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Client{
		s3Client:   s3Client,
		bucketName: cfg.BucketName,
		endpoint:   strings.TrimSuffix(cfg.Endpoint, "/"),
		publicURL:  strings.TrimSuffix(cfg.PublicURL, "/"),
	}, nil
}

// Upload stores body under key and returns its public URL.
func (c *S3Client) Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(c.bucketName),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	}

	if _, err := c.s3Client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload object: %w", err)
	}

	return c.GetPublicURL(key), nil
}

func (c *S3Client) Delete(ctx context.Context, key string) error {
	input := &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucketName),
		Key:    aws.String(key),
	}

	if _, err := c.s3Client.DeleteObject(ctx, input); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}

	return nil
}

// GetPublicURL returns the URL a browser can load key from.
func (c *S3Client) GetPublicURL(key string) string {
	switch {
	case c.publicURL != "":
		return fmt.Sprintf("%s/%s", c.publicURL, key)
	case c.endpoint != "":
		return fmt.Sprintf("%s/%s/%s", c.endpoint, c.bucketName, key)
	default:
		return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", c.bucketName, key)
	}
}
