// Package ffmpeg is the single subprocess boundary of the pipeline.
// Everything above it sees a structured {exit code, stdout, stderr}
// result and can be tested with a fake Runner.
package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/mattn/go-shellwords"
)

// ErrTimeout reports that an invocation exceeded the configured timeout.
var ErrTimeout = errors.New("media tool timed out")

// Result captures one finished invocation.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Runner executes the external media tool, blocking until it exits.
// A non-zero exit code is reported in Result, not as an error; the
// error return is reserved for failures to run the process at all.
type Runner interface {
	Run(ctx context.Context, args ...string) (Result, error)
}

// ExecRunner runs a configured command line via os/exec.
type ExecRunner struct {
	cmd     []string
	timeout time.Duration
	log     *slog.Logger
}

// NewExecRunner parses the configured command (shell-words, so wrappers
// like "nice -n 10 ffmpeg" work) and returns a Runner. A zero timeout
// means invocations block indefinitely.
func NewExecRunner(command string, timeout time.Duration, log *slog.Logger) (*ExecRunner, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse ffmpeg command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("ffmpeg command empty")
	}
	return &ExecRunner{
		cmd:     args,
		timeout: timeout,
		log:     log.With(slog.String("component", "ffmpeg")),
	}, nil
}

func (r *ExecRunner) Run(ctx context.Context, args ...string) (Result, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	full := append(append([]string{}, r.cmd[1:]...), args...)
	cmd := exec.CommandContext(ctx, r.cmd[0], full...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.log.Debug("running media tool", slog.String("args", strings.Join(args, " ")))
	err := cmd.Run()

	res := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if ctx.Err() == context.DeadlineExceeded {
		return res, fmt.Errorf("%w after %s", ErrTimeout, r.timeout)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	if err != nil {
		return res, fmt.Errorf("run media tool: %w", err)
	}
	return res, nil
}
