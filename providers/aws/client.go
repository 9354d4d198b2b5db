package aws

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// PutObjectAPI is the slice of the S3 client used for backups
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Client mirrors model store backups into an S3 bucket
type Client struct {
	s3Client PutObjectAPI
	bucket   string
	prefix   string
}

// NewClient creates a new S3 backup client from the default AWS config chain
func NewClient(ctx context.Context, region, bucket, prefix string) (*Client, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewClientWithAPI(s3.NewFromConfig(cfg), bucket, prefix)
}

// NewClientWithAPI wraps an existing S3 client
func NewClientWithAPI(api PutObjectAPI, bucket, prefix string) (*Client, error) {
	if bucket == "" {
		return nil, fmt.Errorf("backup bucket is required")
	}
	return &Client{
		s3Client: api,
		bucket:   bucket,
		prefix:   strings.Trim(prefix, "/"),
	}, nil
}

// Upload stores one backup file under prefix/key
func (c *Client) Upload(ctx context.Context, key string, body []byte) error {
	objectKey := c.ObjectKey(key)
	_, err := c.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      awssdk.String(c.bucket),
		Key:         awssdk.String(objectKey),
		Body:        bytes.NewReader(body),
		ContentType: awssdk.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", c.bucket, objectKey, err)
	}
	return nil
}

// ObjectKey maps a backup-relative key to the bucket key
func (c *Client) ObjectKey(key string) string {
	if c.prefix == "" {
		return key
	}
	return path.Join(c.prefix, key)
}
