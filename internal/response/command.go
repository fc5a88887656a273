package response

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

// #region external-command

// CommandResult is what a helper invocation produced.
type CommandResult struct {
	Succeeded bool
	Stdout    string
	Stderr    string
	Duration  time.Duration
}

// ExternalCommand is the injected capability the executor uses to
// shell out to verification and self-healing helpers. The executor
// depends on this interface, never on a specific script path.
type ExternalCommand interface {
	Run(ctx context.Context, name string, args ...string) CommandResult
}

// #endregion external-command

// #region exec-runner

// ExecRunner runs helpers as real subprocesses with a bounded timeout.
type ExecRunner struct {
	Timeout time.Duration
}

// Run executes name with args, capturing output. A missing helper or
// a non-zero exit is a failed result, not an error: helper failures
// are first-class outcomes the caller records and moves past.
func (r ExecRunner) Run(ctx context.Context, name string, args ...string) CommandResult {
	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	start := time.Now()
	var stdout, stderr strings.Builder
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()

	res := CommandResult{
		Succeeded: err == nil,
		Stdout:    stdout.String(),
		Stderr:    stderr.String(),
		Duration:  time.Since(start),
	}
	if err != nil && res.Stderr == "" {
		res.Stderr = err.Error()
	}
	return res
}

// #endregion exec-runner
