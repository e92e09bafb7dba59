package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := &Config{
		ClusterName:  "test",
		ControlPlane: "10.0.0.1",
		Workers:      []string{"10.0.0.2", "10.0.0.3"},
		VIP:          "10.0.0.9",
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_OK(t *testing.T) {
	t.Parallel()
	require.NoError(t, validConfig().Validate())
}

func TestValidate_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing cluster name", func(c *Config) { c.ClusterName = "" }, "cluster_name"},
		{"missing controlplane", func(c *Config) { c.ControlPlane = "" }, "controlplane is required"},
		{"no workers", func(c *Config) { c.Workers = nil }, "at least one worker"},
		{"duplicate worker", func(c *Config) { c.Workers = []string{"10.0.0.2", "10.0.0.2"} }, "duplicate"},
		{"worker duplicates controlplane", func(c *Config) { c.Workers = []string{"10.0.0.1"} }, "duplicate"},
		{"missing vip", func(c *Config) { c.VIP = "" }, "vip is required"},
		{"vip collides with node", func(c *Config) { c.VIP = "10.0.0.2" }, "collides"},
		{"malformed address", func(c *Config) { c.Workers = []string{"10.0.0.2/24"} }, "not a valid address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_HostnamesAccepted(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.ControlPlane = "cp-1.example.internal"
	assert.NoError(t, cfg.Validate())
}

func TestAllNodes_ControlPlaneFirst(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"}, cfg.AllNodes())
}

func TestEndpoint(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "https://10.0.0.1:6443", validConfig().Endpoint())
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "talosboot.yaml")
	data := `cluster_name: prod
controlplane: 10.0.0.1
workers:
  - 10.0.0.2
  - 10.0.0.3
vip: 10.0.0.9
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "prod", cfg.ClusterName)
	assert.Equal(t, []string{"10.0.0.2", "10.0.0.3"}, cfg.Workers)
	// Defaults applied
	assert.Equal(t, "secrets", cfg.SecretsDir)
	assert.Equal(t, "kubeconfig", cfg.KubeconfigPath)
	assert.Equal(t, "manifests", cfg.ManifestsDir)
}

func TestLoadFile_Invalid(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "talosboot.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cluster_name: x\n"), 0o600))

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestLoadTimeouts_EnvOverride(t *testing.T) {
	t.Setenv("TALOSBOOT_TIMEOUT_KUBECTL", "90s")
	t.Setenv("TALOSBOOT_SETTLE_DELAY", "bogus")

	timeouts := LoadTimeouts()
	assert.Equal(t, 90*time.Second, timeouts.Kubectl)
	// Invalid value falls back to default
	assert.Equal(t, 10*time.Second, timeouts.SettleDelay)
}
