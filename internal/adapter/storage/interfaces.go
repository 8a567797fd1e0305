// Package storage defines the common interfaces for object storage adapters.
// These interfaces abstract storage operations, allowing the pipeline to read
// batch objects and write quarantine exports through a unified API regardless
// of backend (GCS or local file system).
package storage

import (
	"context"
	"io"
)

// StorageExecutor defines generic storage operations.
type StorageExecutor interface {
	// Upload uploads data to the specified bucket and object name.
	// 'data' is the stream of data to upload. 'contentType' is the MIME type of the data.
	Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error
	// Download downloads data from the specified bucket and object name.
	// It returns a ReadCloser which must be closed by the caller after use.
	Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error)
	// ListObjects lists objects within the specified bucket and prefix.
	// The 'fn' callback is called for each object name found.
	ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error
	// DeleteObject deletes the specified object from the bucket.
	DeleteObject(ctx context.Context, bucket, objectName string) error
}

// StorageConnection represents one named storage connection.
type StorageConnection interface {
	StorageExecutor

	// Close releases any resources held by the connection.
	Close() error
	// Type returns the backend type ("local" or "gcs").
	Type() string
	// Name returns the logical connection name.
	Name() string
	// DefaultBucket returns the bucket operations default to when the caller
	// passes an empty bucket.
	DefaultBucket() string
}

// StorageProvider manages the acquisition and lifecycle of storage connections.
type StorageProvider interface {
	// GetConnection retrieves (or lazily creates) the connection with the given name.
	GetConnection(name string) (StorageConnection, error)
	// CloseAll closes all connections managed by this provider.
	CloseAll() error
}
