package storage

// StorageConfig holds configuration for a single storage connection.
type StorageConfig struct {
	Type            string `yaml:"type"`             // Type of storage ("gcs" or "local").
	BucketName      string `yaml:"bucket_name"`      // Default bucket name for operations.
	CredentialsFile string `yaml:"credentials_file"` // Path to credentials file (service account key for GCS).
	BaseDir         string `yaml:"base_dir"`         // Base directory for local file system operations.
}
