package agentcli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"syscall"
	"time"
)

// Runner invokes the child agent binary.
type Runner struct {
	BinPath string
}

// RunSpec describes one child-agent invocation.
type RunSpec struct {
	Prompt    string
	Model     string        // forwarded as --model when non-empty and not "auto"
	Force     bool          // pass --force
	Timeout   time.Duration // 0 means no timeout
	Dir       string        // working directory (default: user home)
	ExtraEnv  []string      // KEY=VALUE pairs appended to the inherited env
	ExtraArgs []string      // passthrough args placed before -p

	// Detach runs the child in its own session so terminal signals sent to
	// the parent do not reach it.
	Detach bool
}

// RunResult captures the child agent's observable outcome.
type RunResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// ErrBinaryNotFound marks a missing child-agent binary.
var ErrBinaryNotFound = errors.New("cursor-agent binary not found")

// TimeoutError reports a killed run, carrying the timeout that was applied.
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("child agent timed out after %ds", int(e.Timeout.Seconds()))
}

// Run executes the child agent once with the prompt on the command line and
// waits for completion. A non-zero exit is not an error here; callers inspect
// ExitCode. Errors are reserved for spawn failures and timeouts.
func (r *Runner) Run(ctx context.Context, spec RunSpec) (RunResult, error) {
	if spec.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	args := make([]string, 0, len(spec.ExtraArgs)+6)
	if spec.Force {
		args = append(args, "--force")
	}
	if spec.Model != "" && spec.Model != "auto" {
		args = append(args, "--model", spec.Model)
	}
	args = append(args, spec.ExtraArgs...)
	if spec.Prompt != "" {
		args = append(args, "-p", spec.Prompt)
	}

	cmd := exec.CommandContext(ctx, r.BinPath, args...)
	cmd.Dir = spec.Dir
	if cmd.Dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cmd.Dir = home
		}
	}
	cmd.Env = append(os.Environ(), spec.ExtraEnv...)
	if spec.Detach {
		cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	res := RunResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			slog.Warn("child agent timed out", "timeout", spec.Timeout, "model", spec.Model)
			return res, &TimeoutError{Timeout: spec.Timeout}
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			slog.Debug("child agent exited non-zero",
				"exit_code", res.ExitCode, "elapsed", time.Since(start).Round(time.Millisecond))
			return res, nil
		}
		if errors.Is(err, exec.ErrNotFound) || os.IsNotExist(err) {
			return res, fmt.Errorf("%w at %s", ErrBinaryNotFound, r.BinPath)
		}
		return res, fmt.Errorf("run child agent: %w", err)
	}
	slog.Debug("child agent completed",
		"elapsed", time.Since(start).Round(time.Millisecond), "stdout_bytes", stdout.Len())
	return res, nil
}
