package tracefile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sethvargo/go-retry"
)

// Environment variables used to reach S3-compatible storage.
const (
	EnvS3Endpoint = "CACHESIM_S3_ENDPOINT"
	EnvS3Insecure = "CACHESIM_S3_INSECURE"
	EnvAccessKey  = "AWS_ACCESS_KEY_ID"
	EnvSecretKey  = "AWS_SECRET_ACCESS_KEY"
	EnvRegion     = "AWS_REGION"

	defaultS3Endpoint = "s3.amazonaws.com"
	s3MaxRetries      = 4
)

// SplitS3URL returns the bucket and the key of an s3://bucket/key URL.
func SplitS3URL(location string) (bucket, key string, err error) {
	u, err := url.Parse(location)
	if err != nil {
		return "", "", fmt.Errorf("parsing %q: %w", location, err)
	}

	bucket = u.Host
	key = strings.TrimPrefix(u.Path, "/")

	if u.Scheme != "s3" || bucket == "" || key == "" {
		return "", "", fmt.Errorf("%q is not an s3://bucket/key URL", location)
	}

	return bucket, key, nil
}

func newS3Client() (*minio.Client, error) {
	endpoint := os.Getenv(EnvS3Endpoint)
	if endpoint == "" {
		endpoint = defaultS3Endpoint
	}

	var creds *credentials.Credentials
	if id := os.Getenv(EnvAccessKey); id != "" {
		creds = credentials.NewStaticV4(id, os.Getenv(EnvSecretKey), "")
	} else {
		creds = credentials.NewIAM("")
	}

	return minio.New(endpoint, &minio.Options{
		Creds:  creds,
		Secure: os.Getenv(EnvS3Insecure) == "",
		Region: os.Getenv(EnvRegion),
	})
}

func openS3(ctx context.Context, location string) (io.ReadCloser, error) {
	bucket, key, err := SplitS3URL(location)
	if err != nil {
		return nil, err
	}

	client, err := newS3Client()
	if err != nil {
		return nil, fmt.Errorf("creating s3 client: %w", err)
	}

	var obj *minio.Object

	b := retry.WithMaxRetries(s3MaxRetries, retry.NewFibonacci(500*time.Millisecond))
	err = retry.Do(ctx, b, func(ctx context.Context) error {
		o, err := client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
		if err != nil {
			return retryable(err)
		}

		if _, err := o.Stat(); err != nil {
			_ = o.Close()
			return retryable(err)
		}

		obj = o

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", location, err)
	}

	slog.Debug("s3 trace fetched", "bucket", bucket, "key", key)

	return obj, nil
}

// retryable marks transient storage errors for another attempt. Missing
// objects and access problems are permanent.
func retryable(err error) error {
	if errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket", "AccessDenied", "InvalidAccessKeyId",
		"SignatureDoesNotMatch":
		return err
	}

	return retry.RetryableError(err)
}
