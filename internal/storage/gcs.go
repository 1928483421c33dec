package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	gcs "cloud.google.com/go/storage"
	"github.com/nikolayk812/goldorder/internal/port"
	"google.golang.org/api/option"
)

// GCSOptions configure the Cloud Storage client.
type GCSOptions struct {
	CredentialsFile string
	// Endpoint points the client at an emulator; authentication is disabled when set.
	Endpoint string
}

// NewGCSClient builds a Cloud Storage client from opts.
func NewGCSClient(ctx context.Context, opts GCSOptions) (*gcs.Client, error) {
	var clientOpts []option.ClientOption

	if opts.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}
	if endpoint := strings.TrimSpace(opts.Endpoint); endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(endpoint), option.WithoutAuthentication())
	}

	client, err := gcs.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("gcs.NewClient: %w", err)
	}

	return client, nil
}

// GCSStore keeps blobs as objects in one bucket.
type GCSStore struct {
	client *gcs.Client
	bucket string
}

var _ port.BlobStore = (*GCSStore)(nil)

func NewGCSStore(client *gcs.Client, bucket string) (*GCSStore, error) {
	if client == nil {
		return nil, errors.New("storage: client is required")
	}
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, errors.New("storage: bucket name is required")
	}
	return &GCSStore{client: client, bucket: bucket}, nil
}

// Store sniffs the content type only when contentType is empty.
func (s *GCSStore) Store(ctx context.Context, subdir, fileName, contentType string, data []byte) (string, error) {
	key, err := JoinPath(subdir, fileName)
	if err != nil {
		return "", err
	}

	// fails if the object exists, object names are random
	obj := s.client.Bucket(s.bucket).Object(key).If(gcs.Conditions{DoesNotExist: true})

	w := obj.NewWriter(ctx)
	w.ContentType = contentType
	if w.ContentType == "" {
		w.ContentType = http.DetectContentType(data)
	}

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("w.Write: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("w.Close: %w", err)
	}

	return key, nil
}

func (s *GCSStore) Load(ctx context.Context, key string) ([]byte, error) {
	if err := ValidatePath(key); err != nil {
		return nil, err
	}

	r, err := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil, fmt.Errorf("obj.NewReader[%s]: %w", key, ErrObjectNotFound)
		}
		return nil, fmt.Errorf("obj.NewReader: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("io.ReadAll: %w", err)
	}

	return data, nil
}

func (s *GCSStore) Delete(ctx context.Context, key string) error {
	if err := ValidatePath(key); err != nil {
		return err
	}

	if err := s.client.Bucket(s.bucket).Object(key).Delete(ctx); err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return fmt.Errorf("obj.Delete[%s]: %w", key, ErrObjectNotFound)
		}
		return fmt.Errorf("obj.Delete: %w", err)
	}

	return nil
}
