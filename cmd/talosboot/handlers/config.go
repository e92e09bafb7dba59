// Package handlers implements the command logic behind the cobra
// bindings: configuration resolution, orchestrator wiring, and add-on
// installation.
package handlers

import (
	"fmt"
	"time"

	"github.com/imamik/talosboot/internal/config"
)

// UpOptions carries every flag the up, addons, and doctor commands
// accept. Inline target flags override values from the config file.
type UpOptions struct {
	ConfigPath string

	ClusterName    string
	ControlPlane   string
	Workers        []string
	VIP            string
	SecretsDir     string
	KubeconfigPath string
	ManifestsDir   string

	ForceRebuild bool
	RegenSecrets bool
	SkipAddons   bool
	AddonsOnly   bool

	// Timeout overrides; zero means use the environment/default value.
	TalosTimeout   time.Duration
	K8sTimeout     time.Duration
	KubectlTimeout time.Duration
}

// applyTimeoutOverrides overlays non-zero flag values onto the loaded
// timeouts.
func applyTimeoutOverrides(t *config.Timeouts, opts UpOptions) {
	if opts.TalosTimeout > 0 {
		t.TalosAPI = opts.TalosTimeout
	}
	if opts.K8sTimeout > 0 {
		t.KubeAPI = opts.K8sTimeout
	}
	if opts.KubectlTimeout > 0 {
		t.Kubectl = opts.KubectlTimeout
	}
}

// resolveConfig builds the validated cluster target from the config
// file and flag overrides.
func resolveConfig(opts UpOptions) (*config.Config, error) {
	cfg := &config.Config{}

	if opts.ConfigPath != "" {
		loaded, err := config.LoadFile(opts.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	if opts.ClusterName != "" {
		cfg.ClusterName = opts.ClusterName
	}
	if opts.ControlPlane != "" {
		cfg.ControlPlane = opts.ControlPlane
	}
	if len(opts.Workers) > 0 {
		cfg.Workers = opts.Workers
	}
	if opts.VIP != "" {
		cfg.VIP = opts.VIP
	}
	if opts.SecretsDir != "" {
		cfg.SecretsDir = opts.SecretsDir
	}
	if opts.KubeconfigPath != "" {
		cfg.KubeconfigPath = opts.KubeconfigPath
	}
	if opts.ManifestsDir != "" {
		cfg.ManifestsDir = opts.ManifestsDir
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	cfg.ForceRebuild = opts.ForceRebuild
	cfg.RegenSecrets = opts.RegenSecrets
	cfg.SkipAddons = opts.SkipAddons
	cfg.AddonsOnly = opts.AddonsOnly

	return cfg, nil
}
