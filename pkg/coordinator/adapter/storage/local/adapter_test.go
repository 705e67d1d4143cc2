// Package local_test provides unit tests for the local file system storage
// adapter.
package local_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	storage "github.com/pressflow/pacer/pkg/coordinator/adapter/storage"
	storageConfig "github.com/pressflow/pacer/pkg/coordinator/adapter/storage/config"
	local "github.com/pressflow/pacer/pkg/coordinator/adapter/storage/local"
)

func newAdapter(t *testing.T) (storage.StorageConnection, string) {
	t.Helper()
	baseDir := t.TempDir()
	conn, err := local.NewLocalAdapter(storageConfig.StorageConfig{
		Type:       local.ProviderType,
		BucketName: "archive",
		BaseDir:    baseDir,
	}, "test-local")
	assert.NoError(t, err)
	return conn, baseDir
}

func TestNewLocalAdapter_CreatesMissingBaseDir(t *testing.T) {
	baseDir := filepath.Join(t.TempDir(), "nested", "storage")
	conn, err := local.NewLocalAdapter(storageConfig.StorageConfig{BaseDir: baseDir}, "test-local")
	assert.NoError(t, err)
	assert.Equal(t, local.ProviderType, conn.Type())
	assert.Equal(t, "test-local", conn.Name())

	info, err := os.Stat(baseDir)
	assert.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestNewLocalAdapter_RequiresBaseDir(t *testing.T) {
	_, err := local.NewLocalAdapter(storageConfig.StorageConfig{}, "test-local")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "base_dir must be specified")
}

func TestNewLocalAdapter_RejectsFileAsBaseDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	assert.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	_, err := local.NewLocalAdapter(storageConfig.StorageConfig{BaseDir: file}, "test-local")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "is not a directory")
}

func TestUploadAndDownloadRoundTrip(t *testing.T) {
	adapter, baseDir := newAdapter(t)
	ctx := context.Background()

	payload := "dt=2026-01-07/records-0001.parquet contents"
	err := adapter.Upload(ctx, "archive", "executions/dt=2026-01-07/records-0001.parquet",
		strings.NewReader(payload), "application/octet-stream")
	assert.NoError(t, err)

	// Objects land under base_dir/bucket/objectName.
	_, err = os.Stat(filepath.Join(baseDir, "archive", "executions", "dt=2026-01-07", "records-0001.parquet"))
	assert.NoError(t, err)

	reader, err := adapter.Download(ctx, "archive", "executions/dt=2026-01-07/records-0001.parquet")
	assert.NoError(t, err)
	defer reader.Close()
	data, err := io.ReadAll(reader)
	assert.NoError(t, err)
	assert.Equal(t, payload, string(data))
}

func TestUpload_EmptyBucketFallsBackToConfigured(t *testing.T) {
	adapter, baseDir := newAdapter(t)
	ctx := context.Background()

	assert.NoError(t, adapter.Upload(ctx, "", "obj.txt", strings.NewReader("x"), "text/plain"))
	_, err := os.Stat(filepath.Join(baseDir, "archive", "obj.txt"))
	assert.NoError(t, err)
}

func TestListObjects_FiltersByPrefix(t *testing.T) {
	adapter, _ := newAdapter(t)
	ctx := context.Background()

	for _, name := range []string{
		"executions/dt=2026-01-06/records-0001.parquet",
		"executions/dt=2026-01-07/records-0001.parquet",
		"executions/dt=2026-01-07/records-0002.parquet",
	} {
		assert.NoError(t, adapter.Upload(ctx, "archive", name, strings.NewReader("x"), ""))
	}

	var listed []string
	err := adapter.ListObjects(ctx, "archive", "executions/dt=2026-01-07/", func(objectName string) error {
		listed = append(listed, objectName)
		return nil
	})
	assert.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"executions/dt=2026-01-07/records-0001.parquet",
		"executions/dt=2026-01-07/records-0002.parquet",
	}, listed)
}

func TestListObjects_MissingBucketIsEmpty(t *testing.T) {
	adapter, _ := newAdapter(t)

	var listed []string
	err := adapter.ListObjects(context.Background(), "never-created", "", func(objectName string) error {
		listed = append(listed, objectName)
		return nil
	})
	assert.NoError(t, err)
	assert.Empty(t, listed)
}

func TestDeleteObject(t *testing.T) {
	adapter, baseDir := newAdapter(t)
	ctx := context.Background()

	assert.NoError(t, adapter.Upload(ctx, "archive", "obj.txt", strings.NewReader("x"), ""))
	assert.NoError(t, adapter.DeleteObject(ctx, "archive", "obj.txt"))
	_, err := os.Stat(filepath.Join(baseDir, "archive", "obj.txt"))
	assert.True(t, os.IsNotExist(err))

	// Deleting a missing object is tolerated.
	assert.NoError(t, adapter.DeleteObject(ctx, "archive", "obj.txt"))
}

func TestPathEscapeIsRejected(t *testing.T) {
	adapter, _ := newAdapter(t)
	ctx := context.Background()

	err := adapter.Upload(ctx, "archive", "../../etc/passwd", strings.NewReader("x"), "")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "outside of base_dir")

	_, err = adapter.Download(ctx, "archive", "../secrets.txt")
	assert.Error(t, err)
}
