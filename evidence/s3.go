package evidence

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/caseforge/filecarver/resilience"
)

// S3Config configures an evidence source backed by a single S3 object, a
// disk image uploaded to a case bucket rather than copied to local disk.
type S3Config struct {
	Bucket          string
	Key             string
	Region          string
	Endpoint        string // for S3-compatible stores (MinIO); empty uses AWS default
	AccessKeyID     string
	SecretAccessKey string
}

func (c S3Config) Open() (Source, error) {
	if c.Bucket == "" || c.Key == "" {
		return nil, fmt.Errorf("evidence: s3 config requires bucket and key")
	}

	ctx := context.Background()
	var optFns []func(*awsconfig.LoadOptions) error
	if c.Region != "" {
		optFns = append(optFns, awsconfig.WithRegion(c.Region))
	}
	if c.AccessKeyID != "" {
		optFns = append(optFns, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKeyID, c.SecretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("evidence: load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if c.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Endpoint)
			o.UsePathStyle = true
		}
	})

	head, err := client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.Bucket),
		Key:    aws.String(c.Key),
	})
	if err != nil {
		return nil, fmt.Errorf("evidence: head s3://%s/%s: %w", c.Bucket, c.Key, err)
	}

	return &S3Source{
		client:     client,
		bucket:     c.Bucket,
		key:        c.Key,
		size:       aws.ToInt64(head.ContentLength),
		resilience: resilience.New(),
	}, nil
}

// S3Source reads evidence from a single S3 object via ranged GetObject
// calls. Transient network failures are retried through resilience.Manager.
type S3Source struct {
	client     *s3.Client
	bucket     string
	key        string
	size       int64
	resilience *resilience.Manager
}

func (s *S3Source) Len() int64 { return s.size }

func (s *S3Source) Name() string { return fmt.Sprintf("s3://%s/%s", s.bucket, s.key) }

func (s *S3Source) ReadAt(buf []byte, offset int64) (int, error) {
	if offset >= s.size {
		return 0, nil
	}
	end := offset + int64(len(buf)) - 1
	if end >= s.size {
		end = s.size - 1
	}
	rangeHeader := fmt.Sprintf("bytes=%d-%d", offset, end)

	var n int
	err := s.resilience.ExecuteWithBreaker("s3-evidence", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.key),
			Range:  aws.String(rangeHeader),
		})
		if err != nil {
			return err
		}
		defer func() { _ = out.Body.Close() }()

		n = 0
		for n < len(buf) {
			r, rerr := out.Body.Read(buf[n:])
			n += r
			if rerr != nil {
				break
			}
		}
		return nil
	})
	if err != nil {
		return n, &Error{Kind: ErrIO, Op: "read_at", Err: err}
	}
	return n, nil
}

func (s *S3Source) Close() error { return nil }
