package engine

import (
	"time"

	"github.com/matthigger/oh-sched-web/pkg/logger"
)

// Default engine settings.
const (
	defaultTimeout   = 2 * time.Minute
	defaultWaitDelay = 2 * time.Second
)

// DefaultCommand invokes the oh_sched CLI. {csv}, {config} and {out} are
// replaced with the CSV path, the config path and the calendar path.
var DefaultCommand = []string{"oh_sched", "{csv}", "--config", "{config}"}

// Option applies a configuration option to the ExecEngine.
type Option func(*ExecEngine)

// WithCommand sets the command line template. Empty commands are ignored.
func WithCommand(argv []string) Option {
	return func(e *ExecEngine) {
		if len(argv) > 0 && argv[0] != "" {
			e.command = append([]string(nil), argv...)
		}
	}
}

// WithTimeout bounds every run.
func WithTimeout(d time.Duration) Option {
	return func(e *ExecEngine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithLogger sets a custom logger for the engine.
func WithLogger(l logger.Logger) Option {
	return func(e *ExecEngine) {
		if l != nil {
			e.logger = l
		}
	}
}
