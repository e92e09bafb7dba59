package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoot(t *testing.T) {
	cmd := Root()

	require.NotNil(t, cmd)
	assert.Equal(t, "talosboot", cmd.Use)
	assert.Equal(t, "Bootstrap a Talos Kubernetes cluster on existing machines", cmd.Short)
}

func TestRoot_HasSubcommands(t *testing.T) {
	cmd := Root()

	subcommands := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		subcommands[sub.Name()] = true
	}

	for _, expected := range []string{"up", "addons", "doctor", "version"} {
		assert.True(t, subcommands[expected], "Expected subcommand %s not found", expected)
	}
}

func TestUp_Flags(t *testing.T) {
	cmd := Up()

	for _, name := range []string{
		"config", "cluster-name", "controlplane", "worker", "vip",
		"secrets-dir", "kubeconfig", "manifests-dir",
		"force-rebuild", "regen-secrets", "skip-addons", "addons-only",
		"talos-timeout", "k8s-timeout", "kubectl-timeout",
	} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "Expected flag --%s", name)
	}
}

func TestAddons_Flags(t *testing.T) {
	cmd := Addons()

	assert.NotNil(t, cmd.Flags().Lookup("config"))
	assert.NotNil(t, cmd.Flags().Lookup("kubeconfig"))
	assert.Nil(t, cmd.Flags().Lookup("force-rebuild"), "addons does not rebuild")
}

func TestVersion(t *testing.T) {
	cmd := Version()

	require.NotNil(t, cmd)
	assert.Equal(t, "version", cmd.Use)
	assert.NotNil(t, cmd.Run)
}

func TestSetVersionInfo(t *testing.T) {
	origVersion, origCommit, origDate := version, commit, date
	defer func() {
		version, commit, date = origVersion, origCommit, origDate
	}()

	SetVersionInfo("1.2.3", "abc123", "2026-01-01")

	assert.Equal(t, "1.2.3", version)
	assert.Equal(t, "abc123", commit)
	assert.Equal(t, "2026-01-01", date)
}
