package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"holiday/logger"
)

const contentType = "text/html; charset=utf-8"

// ObjectAPI is the part of *minio.Client the adapter uses.
type ObjectAPI interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	GetBucketPolicy(ctx context.Context, bucketName string) (string, error)
	SetBucketPolicy(ctx context.Context, bucketName, policy string) error
	BucketExists(ctx context.Context, bucketName string) (bool, error)
}

// WebsiteAPI is the part of the S3 client that manages the bucket website
// configuration. minio-go has no website calls.
type WebsiteAPI interface {
	GetBucketWebsite(ctx context.Context, in *s3.GetBucketWebsiteInput, optFns ...func(*s3.Options)) (*s3.GetBucketWebsiteOutput, error)
	PutBucketWebsite(ctx context.Context, in *s3.PutBucketWebsiteInput, optFns ...func(*s3.Options)) (*s3.PutBucketWebsiteOutput, error)
	DeleteBucketWebsite(ctx context.Context, in *s3.DeleteBucketWebsiteInput, optFns ...func(*s3.Options)) (*s3.DeleteBucketWebsiteOutput, error)
}

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
	Bucket    string
	Transport http.RoundTripper
	Website   WebsiteAPI
}

type Client struct {
	api     ObjectAPI
	website WebsiteAPI
	bucket  string
	log     logger.Logger
}

// NewClient connects to an S3-compatible endpoint. Without static keys the
// standard AWS environment, shared-credentials file and instance role are
// tried in that order.
func NewClient(cfg Config, log logger.Logger) (*Client, error) {
	creds := credentials.NewChainCredentials([]credentials.Provider{
		&credentials.EnvAWS{},
		&credentials.FileAWSCredentials{},
		&credentials.IAM{},
	})
	if cfg.AccessKey != "" {
		creds = credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, "")
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:     creds,
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: cfg.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("s3 client: %w", err)
	}
	return New(mc, cfg.Website, cfg.Bucket, log), nil
}

func New(api ObjectAPI, website WebsiteAPI, bucket string, log logger.Logger) *Client {
	return &Client{api: api, website: website, bucket: bucket, log: log}
}

// KeyFor is the object key a domain's placeholder page lives at.
func KeyFor(domain string) string {
	return "holiday/" + domain + "/index.html"
}

func (c *Client) KeyFor(domain string) string { return KeyFor(domain) }

func (c *Client) Bucket() string { return c.bucket }

// Upload writes the placeholder page for domain. Overwriting is success.
func (c *Client) Upload(ctx context.Context, domain, html string) error {
	key := KeyFor(domain)
	_, err := c.api.PutObject(ctx, c.bucket, key, strings.NewReader(html), int64(len(html)), minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: "no-cache",
	})
	if err != nil {
		return fmt.Errorf("upload s3://%s/%s: %w", c.bucket, key, err)
	}
	c.log.Info("uploaded placeholder", logger.String("domain", domain), logger.String("key", key), logger.Int("bytes", len(html)))
	return nil
}

// ObjectExists reports whether the placeholder page for domain is present.
func (c *Client) ObjectExists(ctx context.Context, domain string) (bool, error) {
	key := KeyFor(domain)
	_, err := c.api.StatObject(ctx, c.bucket, key, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if IsNotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("stat s3://%s/%s: %w", c.bucket, key, err)
}

// EnsureStaticHosting turns the bucket website on (or off) and makes the
// holiday/ prefix publicly readable (or not). Returns true if either the
// website configuration or the bucket policy changed.
func (c *Client) EnsureStaticHosting(ctx context.Context, enabled bool) (bool, error) {
	siteChanged, err := c.ensureWebsite(ctx, enabled)
	if err != nil {
		return false, err
	}
	policyChanged, err := c.ensurePublicRead(ctx, enabled)
	if err != nil {
		return siteChanged, err
	}
	return siteChanged || policyChanged, nil
}

func (c *Client) ensurePublicRead(ctx context.Context, enabled bool) (bool, error) {
	current, err := c.api.GetBucketPolicy(ctx, c.bucket)
	if err != nil && !isNoPolicy(err) {
		return false, fmt.Errorf("get policy for bucket %s: %w", c.bucket, err)
	}

	var (
		next    string
		changed bool
	)
	if enabled {
		next, changed, err = addPublicRead(current, c.bucket)
	} else {
		next, changed, err = removePublicRead(current)
	}
	if err != nil {
		return false, fmt.Errorf("bucket %s policy: %w", c.bucket, err)
	}
	if !changed {
		c.log.Debug("bucket policy already in desired state", logger.String("bucket", c.bucket), logger.Bool("public", enabled))
		return false, nil
	}

	if err := c.api.SetBucketPolicy(ctx, c.bucket, next); err != nil {
		return false, fmt.Errorf("set policy for bucket %s: %w", c.bucket, err)
	}
	c.log.Info("bucket policy updated", logger.String("bucket", c.bucket), logger.Bool("public", enabled))
	return true, nil
}

// Healthy checks that the bucket is reachable and exists.
func (c *Client) Healthy(ctx context.Context) error {
	ok, err := c.api.BucketExists(ctx, c.bucket)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("bucket %s does not exist", c.bucket)
	}
	return nil
}

func IsNotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}

func isNoPolicy(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchBucketPolicy"
}
