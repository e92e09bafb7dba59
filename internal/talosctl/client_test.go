package talosctl

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingRunner records invocations and replays scripted responses.
type recordingRunner struct {
	calls  [][]string
	output string
	err    error

	// onRun, if set, runs before returning (used to create artifacts).
	onRun func(args []string)
}

func (r *recordingRunner) Run(_ context.Context, name string, args ...string) (string, error) {
	r.calls = append(r.calls, append([]string{name}, args...))
	if r.onRun != nil {
		r.onRun(args)
	}
	return r.output, r.err
}

func writeArtifacts(t *testing.T, dir string) {
	t.Helper()
	payload := strings.Repeat("x", 1024)
	for _, name := range []string{"controlplane.yaml", "worker.yaml", "talosconfig"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(payload), 0o600))
	}
}

func TestGenConfig(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	runner := &recordingRunner{onRun: func([]string) { writeArtifacts(t, dir) }}
	c := NewClientWithRunner(runner)

	artifacts, err := c.GenConfig(context.Background(), "test", "https://10.0.0.1:6443", dir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "controlplane.yaml"), artifacts.ControlPlaneConfig)
	assert.Equal(t, filepath.Join(dir, "worker.yaml"), artifacts.WorkerConfig)
	assert.Equal(t, filepath.Join(dir, "talosconfig"), artifacts.TalosConfig)

	require.Len(t, runner.calls, 1)
	call := runner.calls[0]
	assert.Equal(t, "talosctl", call[0])
	assert.Contains(t, call, "gen")
	assert.Contains(t, call, "config")
	assert.Contains(t, call, "--force")
}

func TestGenConfig_MissingArtifact(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	runner := &recordingRunner{onRun: func([]string) {
		// Only two of three artifacts produced.
		payload := strings.Repeat("x", 1024)
		_ = os.WriteFile(filepath.Join(dir, "controlplane.yaml"), []byte(payload), 0o600)
		_ = os.WriteFile(filepath.Join(dir, "worker.yaml"), []byte(payload), 0o600)
	}}
	c := NewClientWithRunner(runner)

	_, err := c.GenConfig(context.Background(), "test", "https://10.0.0.1:6443", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestGenConfig_TruncatedArtifact(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	runner := &recordingRunner{onRun: func([]string) {
		writeArtifacts(t, dir)
		// Simulate truncated output
		require.NoError(t, os.WriteFile(filepath.Join(dir, "talosconfig"), []byte("oops"), 0o600))
	}}
	c := NewClientWithRunner(runner)

	_, err := c.GenConfig(context.Background(), "test", "https://10.0.0.1:6443", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "implausibly small")
}

func TestApplyConfig_Insecure(t *testing.T) {
	t.Parallel()

	runner := &recordingRunner{}
	c := NewClientWithRunner(runner)

	_, err := c.ApplyConfig(context.Background(), "10.0.0.2", "worker.yaml", TrustContext{}, true)
	require.NoError(t, err)

	call := runner.calls[0]
	assert.Contains(t, call, "--insecure")
	assert.NotContains(t, call, "--talosconfig")
}

func TestApplyConfig_Secure(t *testing.T) {
	t.Parallel()

	runner := &recordingRunner{}
	c := NewClientWithRunner(runner)

	trust := TrustContext{ConfigPath: "/secrets/talosconfig"}
	_, err := c.ApplyConfig(context.Background(), "10.0.0.2", "worker.yaml", trust, false)
	require.NoError(t, err)

	call := runner.calls[0]
	assert.NotContains(t, call, "--insecure")
	assert.Contains(t, call, "--talosconfig")
	assert.Contains(t, call, "/secrets/talosconfig")
}

func TestReset_WipesStateAndEphemeral(t *testing.T) {
	t.Parallel()

	runner := &recordingRunner{}
	c := NewClientWithRunner(runner)

	_, err := c.Reset(context.Background(), "10.0.0.2", TrustContext{ConfigPath: "tc"}, false)
	require.NoError(t, err)

	call := strings.Join(runner.calls[0], " ")
	assert.Contains(t, call, "--system-labels-to-wipe STATE")
	assert.Contains(t, call, "--system-labels-to-wipe EPHEMERAL")
	assert.Contains(t, call, "--graceful=false")
	assert.Contains(t, call, "--wait=false")
	assert.Contains(t, call, "--reboot")
}

func TestReset_FailureReturnsOutput(t *testing.T) {
	t.Parallel()

	runner := &recordingRunner{
		output: "x509: certificate signed by unknown authority",
		err:    errors.New("talosctl: exit status 1"),
	}
	c := NewClientWithRunner(runner)

	out, err := c.Reset(context.Background(), "10.0.0.2", TrustContext{ConfigPath: "tc"}, false)
	require.Error(t, err)
	assert.Equal(t, FailureTrustMismatch, DefaultClassifier().Classify(out))
}

func TestKubeconfig_VerifiesFileExists(t *testing.T) {
	t.Parallel()

	runner := &recordingRunner{}
	c := NewClientWithRunner(runner)

	// Runner "succeeds" but never writes the file.
	_, err := c.Kubeconfig(context.Background(), "10.0.0.1", filepath.Join(t.TempDir(), "kubeconfig"), TrustContext{ConfigPath: "tc"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not written")
}
