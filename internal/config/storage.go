package config

// StorageConfig selects and configures the object store used for resumes,
// post images and author avatars.
type StorageConfig struct {
    Type      string // "local" or "s3"
    BasePath  string // local: directory for stored objects
    BaseURL   string // public URL prefix for object links
    Bucket    string // s3: bucket name
    Region    string // s3: region ("auto" for R2)
    Endpoint  string // s3: custom endpoint (R2, MinIO); empty uses AWS
    AccessKey string
    SecretKey string
    URLExpiry int // minutes a presigned download link stays valid
}

// LoadStorageConfig reads STORAGE_* variables.  Local disk is the default so
// a developer machine needs no cloud credentials.
func LoadStorageConfig() StorageConfig {
    return StorageConfig{
        Type:      getenv("STORAGE_TYPE", "local"),
        BasePath:  getenv("STORAGE_BASE_PATH", "./uploads"),
        BaseURL:   getenv("STORAGE_BASE_URL", ""),
        Bucket:    getenv("STORAGE_BUCKET", ""),
        Region:    getenv("STORAGE_REGION", "us-east-1"),
        Endpoint:  getenv("STORAGE_ENDPOINT", ""),
        AccessKey: getenv("STORAGE_ACCESS_KEY", ""),
        SecretKey: getenv("STORAGE_SECRET_KEY", ""),
        URLExpiry: atoi(getenv("STORAGE_URL_EXPIRY_MIN", "15")),
    }
}
