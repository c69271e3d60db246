package storage

import "strings"

// Config is the backend-agnostic storage configuration used by the factory.
type Config struct {
	Type      string // minio, s3, r2, s3compatible; auto-detected when empty
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Region    string
	PublicURL string
}

// NewStorage creates an ObjectStorage instance based on the configuration.
func NewStorage(cfg *Config) (ObjectStorage, error) {
	// Auto-detect storage type if not specified
	storageType := cfg.Type
	if storageType == "" {
		storageType = detectStorageType(cfg.Endpoint)
	}

	if storageType == "minio" {
		return NewMinIOStorage(&MinIOConfig{
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			UseSSL:    cfg.UseSSL,
			Bucket:    cfg.Bucket,
		})
	}

	return NewS3Storage(&S3Config{
		Type:      StorageType(storageType),
		Endpoint:  cfg.Endpoint,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		UseSSL:    cfg.UseSSL,
		Bucket:    cfg.Bucket,
		Region:    cfg.Region,
		PublicURL: cfg.PublicURL,
	})
}

// detectStorageType attempts to detect the storage type from the endpoint
func detectStorageType(endpoint string) string {
	endpoint = strings.ToLower(endpoint)

	switch {
	case strings.Contains(endpoint, "r2.cloudflarestorage.com"):
		return string(StorageTypeR2)
	case strings.Contains(endpoint, "amazonaws.com"):
		return string(StorageTypeS3)
	default:
		return "minio"
	}
}
