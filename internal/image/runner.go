package image

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultTimeout bounds each external tool invocation.
const DefaultTimeout = 10 * time.Minute

// ExternalToolError reports a tool that exited non-zero. Stderr is kept
// verbatim.
type ExternalToolError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *ExternalToolError) Error() string {
	msg := fmt.Sprintf("%s exited with code %d", e.Command, e.ExitCode)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

// TimeoutError reports a tool that did not finish in time.
type TimeoutError struct {
	Command string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Command, e.Timeout)
}

// Runner runs an external tool and returns its standard output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// ExecRunner runs tools as child processes.
type ExecRunner struct {
	Timeout time.Duration
	Logger  *zap.Logger
	Dir     string
}

// execCommand wraps exec.CommandContext for testability.
var execCommand = exec.CommandContext

func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	command := strings.Join(append([]string{name}, args...), " ")
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Debug("running", zap.String("command", command))

	var stdout, stderr bytes.Buffer
	cmd := execCommand(ctx, name, args...)
	cmd.Dir = r.Dir
	cmd.WaitDelay = 5 * time.Second
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	logger.Debug("finished", zap.String("command", command), zap.Duration("took", time.Since(start)))

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return stdout.String(), &TimeoutError{Command: command, Timeout: timeout}
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return stdout.String(), &ExternalToolError{Command: command, ExitCode: exitErr.ExitCode(), Stderr: stderr.String()}
		}
		return stdout.String(), fmt.Errorf("running %s: %w", command, err)
	}
	return stdout.String(), nil
}
