package env

import (
	"fmt"
	"os"
)

const (
	DatabaseURL = "DATABASE_URL"
	RestHost    = "REST_HOST"
	UploadURL   = "UPLOAD_URL"
	BlobBucket  = "BLOB_BUCKET"
	S3Region    = "S3_REGION"
	S3Endpoint  = "S3_ENDPOINT"
	S3AccessKey = "S3_ACCESS_KEY"
	S3SecretKey = "S3_SECRET_KEY"
	FSRootPath  = "FS_ROOT_PATH"
)

func NewErrNotSet(env string) error {
	return fmt.Errorf("env %s isn't set", env)
}

func Get(key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", NewErrNotSet(key)
	}
	return value, nil
}

func GetOptional(key string, optional string) string {
	value := os.Getenv(key)
	if value == "" {
		return optional
	}
	return value
}
