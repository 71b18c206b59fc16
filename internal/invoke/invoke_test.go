package invoke

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"testing"
	"time"
)

func testRunner() *Runner {
	return NewRunner(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRun_Success(t *testing.T) {
	out := testRunner().Run(context.Background(), 5*time.Second, "/bin/sh", "-c", "echo hello")

	if !out.IsSuccess() {
		t.Fatalf("Status = %v, want success (stderr: %s)", out.Status, out.Stderr)
	}
	if got := strings.TrimSpace(out.Stdout); got != "hello" {
		t.Errorf("Stdout = %q, want %q", got, "hello")
	}
	if out.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", out.ExitCode)
	}
}

func TestRun_ProcessFailure(t *testing.T) {
	out := testRunner().Run(context.Background(), 5*time.Second, "/bin/sh", "-c", "echo oops >&2; exit 3")

	if out.Status != StatusProcessFailure {
		t.Fatalf("Status = %v, want %v", out.Status, StatusProcessFailure)
	}
	if out.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", out.ExitCode)
	}
	if !strings.Contains(out.Stderr, "oops") {
		t.Errorf("Stderr = %q, want to contain %q", out.Stderr, "oops")
	}
}

func TestRun_Timeout(t *testing.T) {
	start := time.Now()
	out := testRunner().Run(context.Background(), 100*time.Millisecond, "/bin/sh", "-c", "sleep 10")

	if out.Status != StatusTimeout {
		t.Fatalf("Status = %v, want %v", out.Status, StatusTimeout)
	}
	// Run must not wait for the full sleep: the child is killed at the
	// deadline, not abandoned.
	if elapsed := time.Since(start); elapsed > 8*time.Second {
		t.Errorf("Run took %s, child was not terminated at the deadline", elapsed)
	}
}

func TestRun_ExecutionError(t *testing.T) {
	out := testRunner().Run(context.Background(), time.Second, "/nonexistent/binary-xyz")

	if out.Status != StatusExecutionError {
		t.Fatalf("Status = %v, want %v", out.Status, StatusExecutionError)
	}
	if out.Err == nil {
		t.Error("Err = nil, want launch error")
	}
}

func TestRun_CapturesFullStdout(t *testing.T) {
	out := testRunner().Run(context.Background(), 5*time.Second,
		"/bin/sh", "-c", `i=0; while [ $i -lt 200 ]; do echo "line $i"; i=$((i+1)); done`)

	if !out.IsSuccess() {
		t.Fatalf("Status = %v, want success", out.Status)
	}
	if !strings.Contains(out.Stdout, "line 0\n") || !strings.Contains(out.Stdout, "line 199") {
		t.Error("stdout capture is not complete")
	}
}

func TestOutcome_AsError(t *testing.T) {
	tests := []struct {
		name    string
		outcome Outcome
		check   func(t *testing.T, err error)
	}{
		{
			name:    "success is nil",
			outcome: Outcome{Status: StatusSuccess},
			check: func(t *testing.T, err error) {
				if err != nil {
					t.Errorf("AsError() = %v, want nil", err)
				}
			},
		},
		{
			name:    "failure carries stderr",
			outcome: Outcome{Status: StatusProcessFailure, ExitCode: 2, Stderr: "bad input"},
			check: func(t *testing.T, err error) {
				var tf *ToolFailure
				if !errors.As(err, &tf) {
					t.Fatalf("AsError() = %T, want *ToolFailure", err)
				}
				if tf.ExitCode != 2 || tf.Stderr != "bad input" {
					t.Errorf("ToolFailure = %+v", tf)
				}
			},
		},
		{
			name:    "timeout is distinct",
			outcome: Outcome{Status: StatusTimeout, Duration: time.Second},
			check: func(t *testing.T, err error) {
				var tt *ToolTimeout
				if !errors.As(err, &tt) {
					t.Fatalf("AsError() = %T, want *ToolTimeout", err)
				}
			},
		},
		{
			name:    "execution error wraps cause",
			outcome: Outcome{Status: StatusExecutionError, Err: exec.ErrNotFound},
			check: func(t *testing.T, err error) {
				if !errors.Is(err, exec.ErrNotFound) {
					t.Errorf("AsError() = %v, want wrapped ErrNotFound", err)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, tt.outcome.AsError("tool"))
		})
	}
}

func TestStatus_String(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusSuccess, "success"},
		{StatusProcessFailure, "process_failure"},
		{StatusTimeout, "timeout"},
		{StatusExecutionError, "execution_error"},
		{Status(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("Status(%d).String() = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestTail(t *testing.T) {
	tests := []struct {
		input  string
		maxLen int
		want   string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello world", 5, "...world"},
	}
	for _, tt := range tests {
		if got := tail(tt.input, tt.maxLen); got != tt.want {
			t.Errorf("tail(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
		}
	}
}
