package geoindex

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Load fetches the on-disk spatial index from uri (either a local
// filesystem path or an s3://bucket/key locator) and parses and validates
// it. This is the provider's one entry point into the index; callers
// never touch JSON or S3 directly.
func Load(ctx context.Context, uri string) (*Index, error) {
	data, err := fetch(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("fetch spatial index %q: %w", uri, err)
	}
	return Parse(data)
}

func fetch(ctx context.Context, uri string) ([]byte, error) {
	if !strings.HasPrefix(uri, "s3://") {
		return os.ReadFile(uri)
	}

	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("invalid s3 uri: %w", err)
	}
	bucket := u.Host
	key := strings.TrimPrefix(u.Path, "/")

	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = "us-east-1"
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg)
	result, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get object s3://%s/%s: %w", bucket, key, err)
	}
	defer result.Body.Close()

	return io.ReadAll(result.Body)
}
