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

	storageAdapter "github.com/pressflow/pacer/pkg/coordinator/adapter/storage"
	storageConfig "github.com/pressflow/pacer/pkg/coordinator/adapter/storage/config"
	config "github.com/pressflow/pacer/pkg/coordinator/core/config"
	"github.com/pressflow/pacer/pkg/coordinator/support/util/logger"
)

// ProviderType identifies the GCS storage backend.
const ProviderType = "gcs"

type gcsAdapter struct {
	client *gcstorage.Client
	cfg    storageConfig.StorageConfig
	name   string
}

var _ storageAdapter.StorageConnection = (*gcsAdapter)(nil)

// NewGCSAdapter creates an adapter backed by a GCS client. When
// credentials_file is set it is used explicitly; otherwise application
// default credentials apply.
func NewGCSAdapter(ctx context.Context, cfg storageConfig.StorageConfig, name string) (storageAdapter.StorageConnection, error) {
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

func (a *gcsAdapter) Close() error {
	return a.client.Close()
}

func (a *gcsAdapter) Type() string {
	return ProviderType
}

func (a *gcsAdapter) Name() string {
	return a.name
}

func (a *gcsAdapter) Config() storageConfig.StorageConfig {
	return a.cfg
}

func (a *gcsAdapter) bucketName(bucket string) string {
	if bucket != "" {
		return bucket
	}
	return a.cfg.BucketName
}

func (a *gcsAdapter) Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error {
	w := a.client.Bucket(a.bucketName(bucket)).Object(objectName).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := io.Copy(w, data); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to upload object '%s': %w", objectName, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize upload of '%s': %w", objectName, err)
	}
	logger.Debugf("Uploaded object '%s' to bucket '%s' (gcs adapter '%s').", objectName, a.bucketName(bucket), a.name)
	return nil
}

func (a *gcsAdapter) Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error) {
	r, err := a.client.Bucket(a.bucketName(bucket)).Object(objectName).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open object '%s': %w", objectName, err)
	}
	return r, nil
}

func (a *gcsAdapter) ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error {
	it := a.client.Bucket(a.bucketName(bucket)).Objects(ctx, &gcstorage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to list objects with prefix '%s': %w", prefix, err)
		}
		if err := fn(attrs.Name); err != nil {
			return err
		}
	}
}

func (a *gcsAdapter) DeleteObject(ctx context.Context, bucket, objectName string) error {
	err := a.client.Bucket(a.bucketName(bucket)).Object(objectName).Delete(ctx)
	if errors.Is(err, gcstorage.ErrObjectNotExist) {
		logger.Warnf("Attempted to delete non-existent object '%s' (gcs adapter '%s').", objectName, a.name)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete object '%s': %w", objectName, err)
	}
	return nil
}

// GCSProvider implements storage.StorageProvider for Google Cloud Storage.
type GCSProvider struct {
	*storageAdapter.BaseProvider
}

// NewProvider creates a new storage.StorageProvider for GCS.
func NewProvider(cfg *config.Config) storageAdapter.StorageProvider {
	return &GCSProvider{
		BaseProvider: storageAdapter.NewBaseProvider(cfg, ProviderType, NewGCSAdapter),
	}
}
