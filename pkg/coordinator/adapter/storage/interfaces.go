// Package storage defines the common interfaces for archive storage backends.
// The archive component writes retired execution records through these
// interfaces, so GCS and local-disk deployments share one code path.
package storage

import (
	"context"
	"io"

	storageConfig "github.com/pressflow/pacer/pkg/coordinator/adapter/storage/config"
)

// StorageProviderGroup is the Fx value group collecting all registered StorageProviders.
const StorageProviderGroup = "storage_providers"

// StorageExecutor defines generic object storage operations.
type StorageExecutor interface {
	// Upload writes the data stream to the given bucket and object name.
	Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error
	// Download opens the given object for reading. The caller must close the
	// returned ReadCloser.
	Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error)
	// ListObjects calls fn for each object name under the given prefix.
	ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error
	// DeleteObject removes the given object. Deleting a missing object is not an error.
	DeleteObject(ctx context.Context, bucket, objectName string) error
}

// StorageConnection is one named, configured storage backend.
type StorageConnection interface {
	StorageExecutor

	// Close releases resources held by the connection.
	Close() error
	// Type returns the backend type (e.g., "gcs", "local").
	Type() string
	// Name returns the configured connection name.
	Name() string
	// Config returns the storage configuration backing this connection.
	Config() storageConfig.StorageConfig
}

// StorageProvider manages connections of one backend type.
type StorageProvider interface {
	// GetConnection retrieves (or lazily creates) the named connection.
	GetConnection(ctx context.Context, name string) (StorageConnection, error)
	// CloseAll closes all connections managed by this provider.
	CloseAll() error
	// Type returns the backend type this provider serves.
	Type() string
}

// StorageConnectionResolver routes a named connection to the provider whose
// type matches its configuration.
type StorageConnectionResolver interface {
	ResolveStorageConnection(ctx context.Context, name string) (StorageConnection, error)
	CloseAll() error
}
