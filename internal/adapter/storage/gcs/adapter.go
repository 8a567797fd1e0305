// Package gcs provides a Google Cloud Storage implementation of the storage
// adapter interfaces.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"

	gcstorage "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	storageAdapter "github.com/tigerroll/ordersink/internal/adapter/storage"
	"github.com/tigerroll/ordersink/internal/support/logger"
)

// ProviderType defines the type identifier for this GCS storage adapter.
const ProviderType = "gcs"

func init() {
	storageAdapter.RegisterAdapterFactory(ProviderType, func(cfg storageAdapter.StorageConfig, name string) (storageAdapter.StorageConnection, error) {
		return NewGCSAdapter(context.Background(), cfg, name)
	})
}

// gcsAdapter implements the storage.StorageConnection interface over a GCS client.
type gcsAdapter struct {
	client *gcstorage.Client
	cfg    storageAdapter.StorageConfig
	name   string
}

var _ storageAdapter.StorageConnection = (*gcsAdapter)(nil)

// NewGCSAdapter creates a new gcsAdapter instance. When a credentials file is
// configured it is used explicitly; otherwise application default credentials
// apply.
func NewGCSAdapter(ctx context.Context, cfg storageAdapter.StorageConfig, name string) (storageAdapter.StorageConnection, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := gcstorage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs storage adapter '%s': failed to create client: %w", name, err)
	}
	return &gcsAdapter{client: client, cfg: cfg, name: name}, nil
}

// Close releases the underlying GCS client.
func (a *gcsAdapter) Close() error {
	logger.Debugf("GCS storage adapter '%s' closed.", a.name)
	return a.client.Close()
}

// Type returns the type of the adapter, which is "gcs".
func (a *gcsAdapter) Type() string {
	return ProviderType
}

// Name returns the name of this connection.
func (a *gcsAdapter) Name() string {
	return a.name
}

// DefaultBucket returns the configured default bucket.
func (a *gcsAdapter) DefaultBucket() string {
	return a.cfg.BucketName
}

func (a *gcsAdapter) resolveBucket(bucket string) (string, error) {
	if bucket == "" {
		bucket = a.cfg.BucketName
	}
	if bucket == "" {
		return "", fmt.Errorf("gcs storage adapter '%s': no bucket specified and no default configured", a.name)
	}
	return bucket, nil
}

// Upload uploads data to the specified bucket and object name.
func (a *gcsAdapter) Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error {
	bucket, err := a.resolveBucket(bucket)
	if err != nil {
		return err
	}

	w := a.client.Bucket(bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, data); err != nil {
		// Close to release the writer; the copy error is the one that matters.
		_ = w.Close()
		return fmt.Errorf("failed to write object 'gs://%s/%s': %w", bucket, objectName, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize object 'gs://%s/%s': %w", bucket, objectName, err)
	}
	logger.Debugf("Uploaded data to 'gs://%s/%s' (gcs adapter '%s').", bucket, objectName, a.name)
	return nil
}

// Download downloads data from the specified bucket and object name.
// The returned io.ReadCloser must be closed by the caller.
func (a *gcsAdapter) Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error) {
	bucket, err := a.resolveBucket(bucket)
	if err != nil {
		return nil, err
	}

	r, err := a.client.Bucket(bucket).Object(objectName).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open object 'gs://%s/%s': %w", bucket, objectName, err)
	}
	logger.Debugf("Downloaded data from 'gs://%s/%s' (gcs adapter '%s').", bucket, objectName, a.name)
	return r, nil
}

// ListObjects lists objects within the specified bucket and prefix, calling
// fn for each object found.
func (a *gcsAdapter) ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error {
	bucket, err := a.resolveBucket(bucket)
	if err != nil {
		return err
	}

	it := a.client.Bucket(bucket).Objects(ctx, &gcstorage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to list objects in 'gs://%s' with prefix '%s': %w", bucket, prefix, err)
		}
		if err := fn(attrs.Name); err != nil {
			return err
		}
	}
	logger.Debugf("Listed objects in 'gs://%s' with prefix '%s' (gcs adapter '%s').", bucket, prefix, a.name)
	return nil
}

// DeleteObject deletes the specified object from the bucket. Deleting a
// non-existent object is not an error.
func (a *gcsAdapter) DeleteObject(ctx context.Context, bucket, objectName string) error {
	bucket, err := a.resolveBucket(bucket)
	if err != nil {
		return err
	}

	if err := a.client.Bucket(bucket).Object(objectName).Delete(ctx); err != nil {
		if errors.Is(err, gcstorage.ErrObjectNotExist) {
			logger.Warnf("Attempted to delete non-existent object 'gs://%s/%s' (gcs adapter '%s').", bucket, objectName, a.name)
			return nil
		}
		return fmt.Errorf("failed to delete object 'gs://%s/%s': %w", bucket, objectName, err)
	}
	logger.Debugf("Deleted object 'gs://%s/%s' (gcs adapter '%s').", bucket, objectName, a.name)
	return nil
}
