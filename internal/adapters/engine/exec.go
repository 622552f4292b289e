package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/matthigger/oh-sched-web/pkg/logger"
)

// ExecEngine runs the scheduler as a child process.
type ExecEngine struct {
	command []string
	timeout time.Duration
	logger  logger.Logger
}

// NewExecEngine constructs an ExecEngine using DefaultCommand unless
// overridden.
func NewExecEngine(opts ...Option) *ExecEngine {
	e := &ExecEngine{
		command: append([]string(nil), DefaultCommand...),
		timeout: defaultTimeout,
		logger:  logger.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Schedule implements Engine.
func (e *ExecEngine) Schedule(ctx context.Context, req Request) (Output, error) {
	if len(e.command) == 0 {
		return Output{}, ErrNoCommand
	}

	b, err := req.Config.Marshal()
	if err != nil {
		return Output{}, fmt.Errorf("%w: %w", ErrScheduleFailed, err)
	}
	// The config gets its own directory so no upload name can shadow it.
	cfgDir, err := os.MkdirTemp(req.WorkDir, "engine-")
	if err != nil {
		return Output{}, fmt.Errorf("%w: config dir: %w", ErrScheduleFailed, err)
	}
	defer func() { _ = os.RemoveAll(cfgDir) }()
	cfgPath := filepath.Join(cfgDir, ConfigFile)
	if err := os.WriteFile(cfgPath, b, 0o600); err != nil {
		return Output{}, fmt.Errorf("%w: write config: %w", ErrScheduleFailed, err)
	}

	argv := e.expand(req.CSVPath, cfgPath, req.Config.FOut)

	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	cmd.Dir = req.WorkDir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = defaultWaitDelay

	start := time.Now()
	e.logger.Debug(ctx, "starting scheduler",
		logger.String("command", strings.Join(argv, " ")),
		logger.Duration("timeout", e.timeout),
	)
	runErr := cmd.Run()
	out := Output{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	elapsed := time.Since(start)

	switch {
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		return out, fmt.Errorf("%w: timed out after %s: %w", ErrScheduleFailed, e.timeout, context.DeadlineExceeded)
	case ctx.Err() != nil:
		return out, fmt.Errorf("%w: %w", ErrScheduleFailed, ctx.Err())
	case runErr != nil:
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return out, fmt.Errorf("%w: exit status %d", ErrScheduleFailed, exitErr.ExitCode())
		}
		return out, fmt.Errorf("%w: start %s: %w", ErrScheduleFailed, argv[0], runErr)
	}

	if _, err := os.Stat(req.Config.FOut); err != nil {
		return out, fmt.Errorf("%w: %s", ErrNoCalendar, filepath.Base(req.Config.FOut))
	}

	e.logger.Debug(ctx, "scheduler finished", logger.Duration("elapsed", elapsed))
	return out, nil
}

func (e *ExecEngine) expand(csvPath, cfgPath, outPath string) []string {
	r := strings.NewReplacer("{csv}", csvPath, "{config}", cfgPath, "{out}", outPath)
	argv := make([]string, len(e.command))
	for i, arg := range e.command {
		argv[i] = r.Replace(arg)
	}
	return argv
}
