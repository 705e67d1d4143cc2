package config

// StorageConfig holds configuration for a single storage connection.
type StorageConfig struct {
	// Type of storage backend (e.g., "gcs", "local").
	Type string `yaml:"type"`
	// BucketName is the default bucket for operations.
	BucketName string `yaml:"bucket_name"`
	// CredentialsFile is the path to a credentials file (service account key for GCS).
	CredentialsFile string `yaml:"credentials_file"`
	// BaseDir is the base directory for local file system storage.
	BaseDir string `yaml:"base_dir"`
}
