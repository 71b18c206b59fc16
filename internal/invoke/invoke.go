// Package invoke executes external media tools as subprocesses under a
// bounded wall clock and classifies their outcome. It is the single
// implementation of the stage execution contract used throughout the bridge:
// every external tool (ranker, TTS, ffmpeg, ffprobe) runs through Runner.Run
// and yields an Outcome, so callers share one failure-handling path.
package invoke

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"time"
)

// Status classifies how a subprocess run ended.
type Status int

const (
	// StatusSuccess means the process exited zero before the deadline.
	StatusSuccess Status = iota
	// StatusProcessFailure means the process ran but exited non-zero.
	StatusProcessFailure
	// StatusTimeout means the wall clock expired; the process was killed
	// before Run returned.
	StatusTimeout
	// StatusExecutionError means the process could not be launched at all
	// (missing binary, permission denied).
	StatusExecutionError
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusProcessFailure:
		return "process_failure"
	case StatusTimeout:
		return "timeout"
	case StatusExecutionError:
		return "execution_error"
	default:
		return "unknown"
	}
}

// Outcome is the structured result of one subprocess run. Stdout and stderr
// are captured in full, not streamed.
type Outcome struct {
	Status   Status
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
	// Err carries the launch error for StatusExecutionError.
	Err error
}

// IsSuccess returns true when the subprocess exited cleanly.
func (o Outcome) IsSuccess() bool { return o.Status == StatusSuccess }

// ToolFailure is the error form of a non-zero exit, carrying the captured
// stderr for diagnostics.
type ToolFailure struct {
	Tool     string
	ExitCode int
	Stderr   string
}

func (e *ToolFailure) Error() string {
	return fmt.Sprintf("%s exited %d: %s", e.Tool, e.ExitCode, tail(e.Stderr, 512))
}

// ToolTimeout is the error form of an expired wall clock. It is distinct
// from ToolFailure so callers can tell "took too long" from "rejected input".
type ToolTimeout struct {
	Tool  string
	After time.Duration
}

func (e *ToolTimeout) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Tool, e.After)
}

// AsError converts a non-success Outcome into the matching error type.
// Returns nil for a successful outcome.
func (o Outcome) AsError(tool string) error {
	switch o.Status {
	case StatusSuccess:
		return nil
	case StatusTimeout:
		return &ToolTimeout{Tool: tool, After: o.Duration}
	case StatusExecutionError:
		return fmt.Errorf("cannot launch %s: %w", tool, o.Err)
	default:
		return &ToolFailure{Tool: tool, ExitCode: o.ExitCode, Stderr: o.Stderr}
	}
}

// Runner executes external commands. There are no retries at this layer;
// retry policy belongs to callers.
type Runner struct {
	logger *slog.Logger
}

func NewRunner(logger *slog.Logger) *Runner {
	return &Runner{logger: logger}
}

// Run executes name with args, waiting at most timeout. The child process is
// guaranteed to be terminated before Run returns a timeout outcome.
func (r *Runner) Run(ctx context.Context, timeout time.Duration, name string, args ...string) Outcome {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf
	// Grace period between context cancellation (SIGKILL of the child) and
	// giving up on I/O copying for any leaked descriptors.
	cmd.WaitDelay = 5 * time.Second

	r.logger.Debug("executing command", "cmd", name, "args", args, "timeout", timeout)

	err := cmd.Run()
	elapsed := time.Since(start)

	outcome := Outcome{
		Stdout:   stdoutBuf.String(),
		Stderr:   stderrBuf.String(),
		Duration: elapsed,
	}

	switch {
	case err == nil:
		outcome.Status = StatusSuccess
		r.logger.Debug("command succeeded", "cmd", name, "duration_ms", elapsed.Milliseconds())

	case ctx.Err() == context.DeadlineExceeded:
		outcome.Status = StatusTimeout
		outcome.ExitCode = -1
		r.logger.Warn("command timed out",
			"cmd", name,
			"timeout", timeout,
			"duration_ms", elapsed.Milliseconds(),
		)

	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			outcome.Status = StatusProcessFailure
			outcome.ExitCode = exitErr.ExitCode()
			r.logger.Warn("command failed",
				"cmd", name,
				"exit_code", outcome.ExitCode,
				"duration_ms", elapsed.Milliseconds(),
				"stderr_tail", tail(outcome.Stderr, 512),
			)
		} else {
			outcome.Status = StatusExecutionError
			outcome.ExitCode = -1
			outcome.Err = err
			r.logger.Error("command could not be launched", "cmd", name, "error", err)
		}
	}

	return outcome
}

// tail returns the last maxLen bytes of s, prefixed with an ellipsis when
// truncated.
func tail(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return "..." + s[len(s)-maxLen:]
}
