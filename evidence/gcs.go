package evidence

import (
	"context"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"

	"github.com/caseforge/filecarver/resilience"
)

// GCSConfig configures an evidence source backed by a single object in
// Google Cloud Storage. Authentication always uses application default
// credentials (GOOGLE_APPLICATION_CREDENTIALS or the ambient metadata
// server); there is intentionally no per-call credentials-file option, so
// the evidence path carries no direct dependency on google.golang.org/api.
type GCSConfig struct {
	Bucket string
	Object string
}

func (c GCSConfig) Open() (Source, error) {
	if c.Bucket == "" || c.Object == "" {
		return nil, fmt.Errorf("evidence: gcs config requires bucket and object")
	}

	ctx := context.Background()
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("evidence: create gcs client: %w", err)
	}

	obj := client.Bucket(c.Bucket).Object(c.Object)
	attrs, err := obj.Attrs(ctx)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("evidence: attrs for gs://%s/%s: %w", c.Bucket, c.Object, err)
	}

	return &GCSSource{
		client:     client,
		obj:        obj,
		name:       fmt.Sprintf("gs://%s/%s", c.Bucket, c.Object),
		size:       attrs.Size,
		resilience: resilience.New(),
	}, nil
}

// GCSSource reads evidence from a GCS object via ranged NewRangeReader
// calls.
type GCSSource struct {
	client     *storage.Client
	obj        *storage.ObjectHandle
	name       string
	size       int64
	resilience *resilience.Manager
}

func (s *GCSSource) Len() int64   { return s.size }
func (s *GCSSource) Name() string { return s.name }

func (s *GCSSource) ReadAt(buf []byte, offset int64) (int, error) {
	if offset >= s.size {
		return 0, nil
	}
	length := int64(len(buf))
	if offset+length > s.size {
		length = s.size - offset
	}

	var n int
	err := s.resilience.ExecuteWithBreaker("gcs-evidence", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		r, err := s.obj.NewRangeReader(ctx, offset, length)
		if err != nil {
			return err
		}
		defer func() { _ = r.Close() }()

		n = 0
		for n < len(buf) && int64(n) < length {
			read, rerr := r.Read(buf[n:length])
			n += read
			if rerr != nil {
				if rerr != io.EOF {
					return rerr
				}
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

func (s *GCSSource) Close() error { return s.client.Close() }
