package evidence

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/Azure/azure-storage-blob-go/azblob"

	"github.com/caseforge/filecarver/resilience"
)

// AzureConfig configures an evidence source backed by a single blob in
// Azure Blob Storage.
type AzureConfig struct {
	Account   string
	Container string
	Blob      string
	SASToken  string // required; service/account key auth is not supported here
}

func (c AzureConfig) Open() (Source, error) {
	if c.Account == "" || c.Container == "" || c.Blob == "" {
		return nil, fmt.Errorf("evidence: azure config requires account, container, and blob")
	}

	u, err := url.Parse(fmt.Sprintf("https://%s.blob.core.windows.net/%s/%s?%s", c.Account, c.Container, c.Blob, c.SASToken))
	if err != nil {
		return nil, fmt.Errorf("evidence: build azure blob url: %w", err)
	}
	blobURL := azblob.NewBlockBlobURL(*u, azblob.NewPipeline(azblob.NewAnonymousCredential(), azblob.PipelineOptions{}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	props, err := blobURL.GetProperties(ctx, azblob.BlobAccessConditions{}, azblob.ClientProvidedKeyOptions{})
	if err != nil {
		return nil, fmt.Errorf("evidence: get properties for %s: %w", u.String(), err)
	}

	return &AzureSource{
		blobURL:    blobURL,
		name:       fmt.Sprintf("azure://%s/%s/%s", c.Account, c.Container, c.Blob),
		size:       props.ContentLength(),
		resilience: resilience.New(),
	}, nil
}

// AzureSource reads evidence from an Azure Blob Storage blob via ranged
// downloads.
type AzureSource struct {
	blobURL    azblob.BlockBlobURL
	name       string
	size       int64
	resilience *resilience.Manager
}

func (s *AzureSource) Len() int64   { return s.size }
func (s *AzureSource) Name() string { return s.name }

func (s *AzureSource) ReadAt(buf []byte, offset int64) (int, error) {
	if offset >= s.size {
		return 0, nil
	}
	count := int64(len(buf))
	if offset+count > s.size {
		count = s.size - offset
	}

	var n int
	err := s.resilience.ExecuteWithBreaker("azure-evidence", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		resp, err := s.blobURL.Download(ctx, offset, count, azblob.BlobAccessConditions{}, false, azblob.ClientProvidedKeyOptions{})
		if err != nil {
			return err
		}
		body := resp.Body(azblob.RetryReaderOptions{})
		defer func() { _ = body.Close() }()

		n = 0
		for n < len(buf) && int64(n) < count {
			r, rerr := body.Read(buf[n:count])
			n += r
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

func (s *AzureSource) Close() error { return nil }
