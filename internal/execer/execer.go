// Package execer runs external CLI tools and captures their output.
// Both client adapters (talosctl, kubectl) call through the Runner
// interface so tests can script tool behavior without subprocesses.
package execer

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// Runner executes an external command and returns its combined output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// ExecRunner runs commands via os/exec.
type ExecRunner struct{}

// Run executes the command and returns combined stdout+stderr. On failure
// the error carries the exit status; the output is still returned so
// callers can classify the diagnostic text.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	// #nosec G204 -- command name and arguments are built from validated config
	cmd := exec.CommandContext(ctx, name, args...)

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	if err := cmd.Run(); err != nil {
		return buf.String(), fmt.Errorf("%s: %w", name, err)
	}
	return buf.String(), nil
}
