package storage

import "time"

// Config holds S3 (or S3-compatible) bucket settings, loaded with config.Load.
type Config struct {
	Bucket         string        `env:"S3_BUCKET,required"`
	Region         string        `env:"S3_REGION" envDefault:"us-east-1"`
	AccessKeyID    string        `env:"S3_ACCESS_KEY_ID"`
	SecretKey      string        `env:"S3_SECRET_ACCESS_KEY"`
	Endpoint       string        `env:"S3_ENDPOINT"`                            // MinIO, R2 and friends
	ForcePathStyle bool          `env:"S3_FORCE_PATH_STYLE" envDefault:"false"` // required by MinIO
	UploadURLTTL   time.Duration `env:"S3_UPLOAD_URL_TTL" envDefault:"15m"`
	DownloadURLTTL time.Duration `env:"S3_DOWNLOAD_URL_TTL" envDefault:"1h"`
}
