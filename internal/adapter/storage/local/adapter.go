// Package local provides a local file system implementation of the storage
// adapter interfaces, used for development and tests.
package local

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	storageAdapter "github.com/tigerroll/ordersink/internal/adapter/storage"
	"github.com/tigerroll/ordersink/internal/support/logger"
)

// ProviderType defines the type identifier for this local storage adapter.
const ProviderType = "local"

func init() {
	storageAdapter.RegisterAdapterFactory(ProviderType, func(cfg storageAdapter.StorageConfig, name string) (storageAdapter.StorageConnection, error) {
		return NewLocalAdapter(cfg, name)
	})
}

// localAdapter implements the storage.StorageConnection interface for local
// file system operations.
type localAdapter struct {
	cfg  storageAdapter.StorageConfig
	name string
}

var _ storageAdapter.StorageConnection = (*localAdapter)(nil)

// NewLocalAdapter creates a new localAdapter instance. It validates the
// BaseDir configuration and attempts to create it if it doesn't exist.
func NewLocalAdapter(cfg storageAdapter.StorageConfig, name string) (storageAdapter.StorageConnection, error) {
	if cfg.BaseDir == "" {
		return nil, fmt.Errorf("local storage adapter '%s': BaseDir must be specified in configuration", name)
	}
	info, err := os.Stat(cfg.BaseDir)
	if err != nil {
		if os.IsNotExist(err) {
			if err := os.MkdirAll(cfg.BaseDir, 0755); err != nil {
				return nil, fmt.Errorf("local storage adapter '%s': failed to create BaseDir '%s': %w", name, cfg.BaseDir, err)
			}
		} else {
			return nil, fmt.Errorf("local storage adapter '%s': failed to stat BaseDir '%s': %w", name, cfg.BaseDir, err)
		}
	} else if !info.IsDir() {
		return nil, fmt.Errorf("local storage adapter '%s': BaseDir '%s' is not a directory", name, cfg.BaseDir)
	}

	return &localAdapter{cfg: cfg, name: name}, nil
}

// Close does nothing for the local file system adapter as it holds no special resources.
func (a *localAdapter) Close() error {
	logger.Debugf("Local storage adapter '%s' closed.", a.name)
	return nil
}

// Type returns the type of the adapter, which is "local".
func (a *localAdapter) Type() string {
	return ProviderType
}

// Name returns the name of this connection.
func (a *localAdapter) Name() string {
	return a.name
}

// DefaultBucket returns the configured default bucket.
func (a *localAdapter) DefaultBucket() string {
	return a.cfg.BucketName
}

// Upload uploads data to the specified bucket (treated as a directory) and
// object name (file path). It creates the necessary directories if they don't exist.
func (a *localAdapter) Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error {
	fullPath, err := a.resolvePath(bucket, objectName)
	if err != nil {
		return fmt.Errorf("failed to resolve path for upload: %w", err)
	}

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory '%s': %w", dir, err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("failed to create file '%s': %w", fullPath, err)
	}
	defer file.Close()

	if _, err = io.Copy(file, data); err != nil {
		return fmt.Errorf("failed to write data to file '%s': %w", fullPath, err)
	}
	logger.Debugf("Uploaded data to '%s' (local adapter '%s').", fullPath, a.name)
	return nil
}

// Download downloads data from the specified bucket (treated as a directory)
// and object name (file path). The returned io.ReadCloser must be closed by
// the caller.
func (a *localAdapter) Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error) {
	fullPath, err := a.resolvePath(bucket, objectName)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path for download: %w", err)
	}

	file, err := os.Open(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file '%s': %w", fullPath, err)
	}
	logger.Debugf("Downloaded data from '%s' (local adapter '%s').", fullPath, a.name)
	return file, nil
}

// ListObjects lists objects within the specified bucket (treated as a
// directory) and prefix, calling fn for each object found.
func (a *localAdapter) ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error {
	basePath, err := a.resolvePath(bucket, "")
	if err != nil {
		return fmt.Errorf("failed to resolve base path for listing: %w", err)
	}

	err = filepath.WalkDir(basePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		objectName, err := filepath.Rel(basePath, path)
		if err != nil {
			return fmt.Errorf("failed to get relative path for '%s' from '%s': %w", path, basePath, err)
		}
		objectName = strings.ReplaceAll(objectName, "\\", "/")

		if prefix != "" && !strings.HasPrefix(objectName, prefix) {
			return nil
		}
		return fn(objectName)
	})
	if err != nil {
		return fmt.Errorf("failed to list objects in '%s' with prefix '%s': %w", basePath, prefix, err)
	}
	logger.Debugf("Listed objects in '%s' with prefix '%s' (local adapter '%s').", basePath, prefix, a.name)
	return nil
}

// DeleteObject deletes the specified object from the bucket (treated as a
// directory). Deleting a non-existent object is not an error.
func (a *localAdapter) DeleteObject(ctx context.Context, bucket, objectName string) error {
	fullPath, err := a.resolvePath(bucket, objectName)
	if err != nil {
		return fmt.Errorf("failed to resolve path for delete: %w", err)
	}

	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			logger.Warnf("Attempted to delete non-existent object '%s' (local adapter '%s').", fullPath, a.name)
			return nil
		}
		return fmt.Errorf("failed to delete file '%s': %w", fullPath, err)
	}
	logger.Debugf("Deleted object '%s' (local adapter '%s').", fullPath, a.name)
	return nil
}

// resolvePath resolves the full path of a file relative to the BaseDir.
// It also ensures the resolved path does not escape the BaseDir.
func (a *localAdapter) resolvePath(bucket, objectName string) (string, error) {
	baseDir := a.cfg.BaseDir
	if baseDir == "" {
		return "", fmt.Errorf("BaseDir is not configured for local adapter '%s'", a.name)
	}

	if bucket == "" {
		bucket = a.cfg.BucketName
	}

	var fullPath string
	if bucket == "" {
		fullPath = filepath.Join(baseDir, objectName)
	} else {
		fullPath = filepath.Join(baseDir, bucket, objectName)
	}

	absBaseDir, err := filepath.Abs(baseDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path for BaseDir '%s': %w", baseDir, err)
	}
	absFullPath, err := filepath.Abs(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path for '%s': %w", fullPath, err)
	}
	if !strings.HasPrefix(absFullPath, absBaseDir) {
		return "", fmt.Errorf("resolved path '%s' is outside of BaseDir '%s'", fullPath, baseDir)
	}
	return fullPath, nil
}
