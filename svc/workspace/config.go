package workspace

import "time"

// Config holds workspace service settings, loaded with config.Load.
type Config struct {
	AppBaseURL     string        `env:"APP_BASE_URL" envDefault:"http://localhost:8080"`
	InvitationTTL  time.Duration `env:"INVITATION_TTL" envDefault:"168h"`
	UploadURLTTL   time.Duration `env:"S3_UPLOAD_URL_TTL" envDefault:"15m"`
	DownloadURLTTL time.Duration `env:"S3_DOWNLOAD_URL_TTL" envDefault:"1h"`
	MaxUploadBytes int64         `env:"MAX_UPLOAD_BYTES" envDefault:"5368709120"`
}

func defaultConfig() Config {
	return Config{
		AppBaseURL:     "http://localhost:8080",
		InvitationTTL:  7 * 24 * time.Hour,
		UploadURLTTL:   15 * time.Minute,
		DownloadURLTTL: time.Hour,
		MaxUploadBytes: 5 << 30,
	}
}
