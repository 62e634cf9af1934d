package conda

import (
	"context"
	"os/exec"
	"strings"
)

// Runner executes external commands. The install pipeline talks to conda
// exclusively through this interface so tests can substitute a recording
// fake and assert on the exact invocations (flags, ordering, environment)
// without a conda installation present.
type Runner interface {
	// Run executes name with args, using env as the full process
	// environment (nil means inherit). It returns captured stdout.
	// On a non-zero exit, err is non-nil and the returned string holds
	// trimmed stderr output for diagnostics.
	Run(ctx context.Context, env []string, name string, args ...string) (string, error)
}

// ExecRunner is the production Runner backed by os/exec.
type ExecRunner struct{}

// NewExecRunner returns a Runner that executes real processes.
func NewExecRunner() Runner {
	return &ExecRunner{}
}

// Run executes the command, capturing stdout and stderr separately so
// stderr can be surfaced in error messages while stdout is returned on
// success (conda's --json output arrives on stdout).
func (r *ExecRunner) Run(ctx context.Context, env []string, name string, args ...string) (string, error) {
	// #nosec G204 — args are constructed internally, not from user input
	cmd := exec.CommandContext(ctx, name, args...)
	if env != nil {
		cmd.Env = env
	}

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return strings.TrimSpace(stderr.String()), err
	}
	return stdout.String(), nil
}
