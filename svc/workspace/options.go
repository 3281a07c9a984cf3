package workspace

import (
	"log/slog"
	"time"
)

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithClock replaces time.Now. Every limit decision reads time through it.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLogger(log *slog.Logger) ServiceOption {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithConfig overrides the defaults. Zero fields keep their default.
func WithConfig(cfg Config) ServiceOption {
	return func(s *Service) {
		if cfg.AppBaseURL != "" {
			s.cfg.AppBaseURL = cfg.AppBaseURL
		}
		if cfg.InvitationTTL > 0 {
			s.cfg.InvitationTTL = cfg.InvitationTTL
		}
		if cfg.UploadURLTTL > 0 {
			s.cfg.UploadURLTTL = cfg.UploadURLTTL
		}
		if cfg.DownloadURLTTL > 0 {
			s.cfg.DownloadURLTTL = cfg.DownloadURLTTL
		}
		if cfg.MaxUploadBytes > 0 {
			s.cfg.MaxUploadBytes = cfg.MaxUploadBytes
		}
	}
}
