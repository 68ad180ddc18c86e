// Package testutil provides test utilities and helpers for integration tests
// against the evidence package's remote backends (S3/MinIO, Azure/Azurite,
// GCS/FakeGCS).
package testutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/caseforge/filecarver/evidence"
)

// ServiceChecker probes whether the local emulators an evidence-source
// integration test depends on are actually running, so those tests can
// skip cleanly instead of failing on a machine without Docker Compose up.
type ServiceChecker struct {
	client *http.Client
}

// NewServiceChecker builds a ServiceChecker with a short probe timeout.
func NewServiceChecker() *ServiceChecker {
	return &ServiceChecker{
		client: &http.Client{
			Timeout: 2 * time.Second,
		},
	}
}

// IsMinIOAvailable reports whether a MinIO instance (the S3Source test
// backend) is reachable.
func (sc *ServiceChecker) IsMinIOAvailable() bool {
	endpoint := os.Getenv("MINIO_ENDPOINT")
	if endpoint == "" {
		endpoint = "http://localhost:9000"
	}

	resp, err := sc.client.Get(endpoint + "/minio/health/live")
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode == http.StatusOK
}

// IsLocalStackAvailable reports whether a LocalStack instance is running,
// for tests that exercise S3Source against AWS's own API shape rather
// than MinIO's.
func (sc *ServiceChecker) IsLocalStackAvailable() bool {
	endpoint := os.Getenv("LOCALSTACK_ENDPOINT")
	if endpoint == "" {
		endpoint = "http://localhost:4566"
	}

	resp, err := sc.client.Get(endpoint + "/_localstack/health")
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode == http.StatusOK
}

// IsAzuriteAvailable reports whether Azurite (the AzureSource test
// backend) is reachable.
func (sc *ServiceChecker) IsAzuriteAvailable() bool {
	endpoint := "http://localhost:10000"
	resp, err := sc.client.Get(endpoint + "/devstoreaccount1?comp=list")
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	// Azurite returns 403 for an unauthenticated list, which still means
	// it's running; 200 would mean unexpected success without SAS headers.
	return resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusOK
}

// IsFakeGCSAvailable reports whether fake-gcs-server (the GCSSource test
// backend) is reachable.
func (sc *ServiceChecker) IsFakeGCSAvailable() bool {
	endpoint := "http://localhost:4443"
	resp, err := sc.client.Get(endpoint + "/storage/v1/b")
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusUnauthorized
}

// GetMinIOClient returns an S3 client configured to talk to a local MinIO
// instance, for seeding and tearing down evidence objects in integration
// tests of S3Source.
func GetMinIOClient() (*s3.Client, error) {
	ctx := context.Background()

	endpoint := os.Getenv("MINIO_ENDPOINT")
	if endpoint == "" {
		endpoint = "http://localhost:9000"
	}

	accessKey := os.Getenv("MINIO_ACCESS_KEY")
	if accessKey == "" {
		accessKey = "minioadmin"
	}

	secretKey := os.Getenv("MINIO_SECRET_KEY")
	if secretKey == "" {
		secretKey = "minioadmin"
	}

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	return client, nil
}

// CreateEvidenceBucket creates a bucket to hold one test run's evidence
// objects, tolerating a bucket that already exists from a prior run.
func CreateEvidenceBucket(client *s3.Client, bucket string) error {
	ctx := context.Background()

	_, err := client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(bucket),
	})
	if err != nil && !isAlreadyExistsError(err) {
		return fmt.Errorf("failed to create bucket: %w", err)
	}

	return nil
}

// PutEvidenceObject uploads data as a synthetic disk image under key in
// bucket, for an S3Source integration test to then open and carve.
func PutEvidenceObject(client *s3.Client, bucket, key string, data []byte) error {
	ctx := context.Background()

	_, err := client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("failed to put evidence object: %w", err)
	}
	return nil
}

// MinIOEvidenceConfig builds an evidence.S3Config pointed at the local
// MinIO instance, ready to Open() the object PutEvidenceObject uploaded.
func MinIOEvidenceConfig(bucket, key string) evidence.S3Config {
	endpoint := os.Getenv("MINIO_ENDPOINT")
	if endpoint == "" {
		endpoint = "http://localhost:9000"
	}
	accessKey := os.Getenv("MINIO_ACCESS_KEY")
	if accessKey == "" {
		accessKey = "minioadmin"
	}
	secretKey := os.Getenv("MINIO_SECRET_KEY")
	if secretKey == "" {
		secretKey = "minioadmin"
	}

	return evidence.S3Config{
		Bucket:          bucket,
		Key:             key,
		Region:          "us-east-1",
		Endpoint:        endpoint,
		AccessKeyID:     accessKey,
		SecretAccessKey: secretKey,
	}
}

// CleanupEvidenceBucket removes every object in bucket and deletes the
// bucket itself, so repeated integration test runs start from empty.
func CleanupEvidenceBucket(client *s3.Client, bucket string) error {
	ctx := context.Background()

	paginator := s3.NewListObjectsV2Paginator(client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("failed to list objects: %w", err)
		}

		for _, obj := range page.Contents {
			_, err = client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(bucket),
				Key:    obj.Key,
			})
			if err != nil {
				return fmt.Errorf("failed to delete object %s: %w", *obj.Key, err)
			}
		}
	}

	_, err := client.DeleteBucket(ctx, &s3.DeleteBucketInput{
		Bucket: aws.String(bucket),
	})
	if err != nil {
		return fmt.Errorf("failed to delete bucket: %w", err)
	}

	return nil
}

// WaitForService polls checkFunc until it reports true or timeout elapses.
func WaitForService(name string, checkFunc func() bool, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s service not available after %v", name, timeout)
		case <-ticker.C:
			if checkFunc() {
				return nil
			}
		}
	}
}

func isAlreadyExistsError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "BucketAlreadyExists" || code == "BucketAlreadyOwnedByYou"
	}

	return false
}
