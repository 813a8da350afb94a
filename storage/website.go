package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"holiday/logger"
)

const indexDocument = "index.html"

// ensureWebsite puts or deletes the bucket website configuration. An
// existing configuration with the same index document counts as enabled.
func (c *Client) ensureWebsite(ctx context.Context, enabled bool) (bool, error) {
	if c.website == nil {
		return false, fmt.Errorf("bucket %s: no website client configured", c.bucket)
	}

	out, err := c.website.GetBucketWebsite(ctx, &s3.GetBucketWebsiteInput{Bucket: aws.String(c.bucket)})
	exists := err == nil
	if err != nil && !isNoWebsite(err) {
		return false, fmt.Errorf("get website for bucket %s: %w", c.bucket, err)
	}

	if enabled {
		if exists && out.IndexDocument != nil && aws.ToString(out.IndexDocument.Suffix) == indexDocument {
			c.log.Debug("bucket website already enabled", logger.String("bucket", c.bucket))
			return false, nil
		}
		_, err := c.website.PutBucketWebsite(ctx, &s3.PutBucketWebsiteInput{
			Bucket: aws.String(c.bucket),
			WebsiteConfiguration: &s3types.WebsiteConfiguration{
				IndexDocument: &s3types.IndexDocument{Suffix: aws.String(indexDocument)},
			},
		})
		if err != nil {
			return false, fmt.Errorf("put website for bucket %s: %w", c.bucket, err)
		}
		c.log.Info("bucket website enabled", logger.String("bucket", c.bucket))
		return true, nil
	}

	if !exists {
		c.log.Debug("bucket website already disabled", logger.String("bucket", c.bucket))
		return false, nil
	}
	if _, err := c.website.DeleteBucketWebsite(ctx, &s3.DeleteBucketWebsiteInput{Bucket: aws.String(c.bucket)}); err != nil {
		return false, fmt.Errorf("delete website for bucket %s: %w", c.bucket, err)
	}
	c.log.Info("bucket website disabled", logger.String("bucket", c.bucket))
	return true, nil
}

func isNoWebsite(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchWebsiteConfiguration"
}
