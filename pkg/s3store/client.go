// Package s3store provides read-only access to CloudTrail delivery buckets:
// listing log objects under day prefixes and downloading them to local files.
package s3store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ListedObject is one key returned by a listing page.
type ListedObject struct {
	Key  string
	Size int64
}

// ListPage is one page of a prefix listing. NextToken is empty on the
// last page.
type ListPage struct {
	Objects   []ListedObject
	NextToken string
}

// ObjectStore is the remote surface the pipeline needs. *Client implements
// it against S3; tests substitute fakes.
type ObjectStore interface {
	// ListPage returns one page of keys under prefix, continuing from token
	// (empty for the first page).
	ListPage(ctx context.Context, prefix, token string) (*ListPage, error)
	// Download writes the object's bytes into w and returns the byte count.
	// A missing object yields an error satisfying errors.Is(err, ErrNotFound).
	Download(ctx context.Context, key string, w io.WriterAt) (int64, error)
}

// Client provides S3 operations against a single CloudTrail delivery bucket.
type Client struct {
	s3Client   *s3.Client
	downloader *manager.Downloader
	bucket     string
}

var _ ObjectStore = (*Client)(nil)

// NewClient creates a client for the bucket using default AWS configuration.
// The bucket may be a plain name or an S3 bucket ARN.
func NewClient(ctx context.Context, bucket string) (*Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return NewClientWithConfig(cfg, bucket)
}

// NewClientWithConfig creates a client with a custom AWS config.
func NewClientWithConfig(cfg aws.Config, bucket string) (*Client, error) {
	name, err := ParseBucket(bucket)
	if err != nil {
		return nil, err
	}

	s3Client := s3.NewFromConfig(cfg)
	return &Client{
		s3Client:   s3Client,
		downloader: manager.NewDownloader(s3Client),
		bucket:     name,
	}, nil
}

// Bucket returns the resolved bucket name.
func (c *Client) Bucket() string {
	return c.bucket
}

// ListPage returns one page of keys under prefix.
func (c *Client) ListPage(ctx context.Context, prefix, token string) (*ListPage, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(c.bucket),
		Prefix: aws.String(prefix),
	}
	if token != "" {
		input.ContinuationToken = aws.String(token)
	}

	resp, err := c.s3Client.ListObjectsV2(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("list s3://%s/%s: %w", c.bucket, prefix, err)
	}

	page := &ListPage{Objects: make([]ListedObject, 0, len(resp.Contents))}
	for _, obj := range resp.Contents {
		page.Objects = append(page.Objects, ListedObject{
			Key:  aws.ToString(obj.Key),
			Size: aws.ToInt64(obj.Size),
		})
	}
	if aws.ToBool(resp.IsTruncated) {
		page.NextToken = aws.ToString(resp.NextContinuationToken)
	}
	return page, nil
}

// Download fetches the object into w using the S3 download manager.
func (c *Client) Download(ctx context.Context, key string, w io.WriterAt) (int64, error) {
	n, err := c.downloader.Download(ctx, w, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) || isNotFound(err) {
			return 0, fmt.Errorf("get object s3://%s/%s: %w", c.bucket, key, ErrNotFound)
		}
		return 0, fmt.Errorf("get object s3://%s/%s: %w", c.bucket, key, err)
	}
	return n, nil
}

// ParseBucket extracts the bucket name from either a plain name or an S3
// bucket ARN (arn:aws:s3:::bucket-name).
func ParseBucket(bucketOrARN string) (string, error) {
	if bucketOrARN == "" {
		return "", errors.New("empty bucket identifier")
	}

	if !strings.HasPrefix(bucketOrARN, "arn:") {
		if strings.Contains(bucketOrARN, "://") {
			return "", fmt.Errorf("invalid bucket identifier %q: looks like a URI", bucketOrARN)
		}
		return bucketOrARN, nil
	}

	// arn:partition:service:region:account:resource
	parts := strings.Split(bucketOrARN, ":")
	if len(parts) < 6 || parts[2] != "s3" {
		return "", fmt.Errorf("invalid S3 bucket ARN %q", bucketOrARN)
	}

	resource := strings.Join(parts[5:], ":")
	if idx := strings.Index(resource, "/"); idx >= 0 {
		resource = resource[:idx]
	}
	if resource == "" {
		return "", fmt.Errorf("invalid S3 bucket ARN %q: missing bucket name", bucketOrARN)
	}
	return resource, nil
}
