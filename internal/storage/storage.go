package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const (
	BucketDepositReceipts    = "deposit-receipts"
	BucketKYCDocuments       = "kyc-documents"
	BucketSupportAttachments = "support-attachments"
)

var (
	ErrNotConfigured = errors.New("storage not configured")
	ErrUnknownBucket = errors.New("unknown bucket")
)

var buckets = map[string]bool{
	BucketDepositReceipts:    true,
	BucketKYCDocuments:       true,
	BucketSupportAttachments: true,
}

func IsBucket(name string) bool { return buckets[name] }

type Object struct {
	Bucket    string `json:"bucket"`
	Path      string `json:"path"`
	PublicURL string `json:"public_url"`
	Size      int64  `json:"size"`
}

// S3API is the part of the S3 client uploads need.
type S3API interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Config points at the hosted storage service. Uploads go through its S3-compatible
// endpoint at <URL>/storage/v1/s3.
type Config struct {
	URL       string
	Region    string
	AccessKey string
	SecretKey string
}

type Client struct {
	baseURL string
	api     S3API
	now     func() time.Time
}

type Option func(*Client)

// WithS3 replaces the S3 client, e.g. with a mock in tests.
func WithS3(api S3API) Option {
	return func(c *Client) { c.api = api }
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func NewClient(cfg Config, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		now:     time.Now,
	}
	if c.baseURL != "" && cfg.AccessKey != "" && cfg.SecretKey != "" {
		c.api = newS3Client(c.baseURL, cfg)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newS3Client(baseURL string, cfg Config) *s3.Client {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	return s3.New(s3.Options{
		Region:       region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		BaseEndpoint: aws.String(baseURL + "/storage/v1/s3"),
		UsePathStyle: true,
	})
}

func (c *Client) Configured() bool {
	return c != nil && c.baseURL != "" && c.api != nil
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ObjectPath builds <owner>/<unix-millis>-<sanitized name>.
func ObjectPath(owner, filename string, at time.Time) string {
	name := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	name = unsafeName.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		name = "file"
	}
	return fmt.Sprintf("%s/%d-%s", owner, at.UnixMilli(), name)
}

func (c *Client) PublicURL(bucket, objectPath string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", c.baseURL, bucket, escapePath(objectPath))
}

func (c *Client) Upload(ctx context.Context, bucket, owner, filename, contentType string, body io.Reader, size int64) (*Object, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	if !IsBucket(bucket) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBucket, bucket)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	objectPath := ObjectPath(owner, filename, c.now())
	in := &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(objectPath),
		Body:        body,
		ContentType: aws.String(contentType),
	}
	if size > 0 {
		in.ContentLength = aws.Int64(size)
	}
	if _, err := c.api.PutObject(ctx, in); err != nil {
		return nil, fmt.Errorf("upload %s: %w", bucket, err)
	}

	return &Object{
		Bucket:    bucket,
		Path:      objectPath,
		PublicURL: c.PublicURL(bucket, objectPath),
		Size:      size,
	}, nil
}

func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, s := range parts {
		parts[i] = url.PathEscape(s)
	}
	return strings.Join(parts, "/")
}
