package api

import (
	"golang.org/x/time/rate"

	"github.com/matthigger/oh-sched-web/pkg/logger"
)

// Defaults applied when options are omitted.
const (
	defaultMaxUploadBytes = 10 << 20
	defaultRunRate        = 1.0
	defaultRunBurst       = 4
	multipartMemory       = 8 << 20
)

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithOutputRoot sets the directory holding per-run outputs.
func WithOutputRoot(dir string) Option {
	return func(s *Server) {
		if dir != "" {
			s.outputRoot = dir
		}
	}
}

// WithUsageFile sets the combined usage CSV served at /download/usage.csv.
func WithUsageFile(path string) Option {
	return func(s *Server) {
		if path != "" {
			s.usageFile = path
		}
	}
}

// WithMaxUploadBytes caps the size of a POST body.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

// WithRunRate limits scheduling requests to perSecond with the given burst.
// A non-positive rate disables limiting.
func WithRunRate(perSecond float64, burst int) Option {
	return func(s *Server) {
		switch {
		case perSecond <= 0:
			s.limiter = nil
		case burst > 0:
			s.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
		}
	}
}

// WithLogger sets a custom logger for the server.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}
