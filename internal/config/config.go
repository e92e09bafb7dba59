// Package config defines the cluster target configuration, its validation
// rules, and tunable timeouts for the bootstrap pipeline.
package config

import (
	"fmt"

	"github.com/siderolabs/talos/pkg/machinery/constants"
)

// Config identifies the target cluster and the local state layout.
// It is immutable for the duration of one run.
type Config struct {
	// ClusterName names the cluster in generated credentials.
	ClusterName string `yaml:"cluster_name"`

	// ControlPlane is the address of the control plane node.
	ControlPlane string `yaml:"controlplane"`

	// Workers are worker node addresses, in apply order.
	Workers []string `yaml:"workers"`

	// VIP is the floating address handed to the load-balancer add-on.
	VIP string `yaml:"vip"`

	// SecretsDir holds generated trust material and machine configs.
	SecretsDir string `yaml:"secrets_dir"`

	// KubeconfigPath is the well-known location of the admin credential.
	KubeconfigPath string `yaml:"kubeconfig"`

	// ManifestsDir holds the add-on payload directories.
	ManifestsDir string `yaml:"manifests_dir"`

	// Mode switches (flags only, not persisted).
	ForceRebuild bool `yaml:"-"`
	SkipAddons   bool `yaml:"-"`
	AddonsOnly   bool `yaml:"-"`
	RegenSecrets bool `yaml:"-"`
}

// ApplyDefaults fills zero-valued fields with defaults.
func (c *Config) ApplyDefaults() {
	if c.SecretsDir == "" {
		c.SecretsDir = "secrets"
	}
	if c.KubeconfigPath == "" {
		c.KubeconfigPath = "kubeconfig"
	}
	if c.ManifestsDir == "" {
		c.ManifestsDir = "manifests"
	}
}

// AllNodes returns every node address, control plane first, workers in
// their configured order.
func (c *Config) AllNodes() []string {
	nodes := make([]string, 0, len(c.Workers)+1)
	nodes = append(nodes, c.ControlPlane)
	nodes = append(nodes, c.Workers...)
	return nodes
}

// Endpoint returns the Kubernetes API endpoint used in generated configs.
func (c *Config) Endpoint() string {
	return fmt.Sprintf("https://%s:%d", c.ControlPlane, constants.DefaultControlPlanePort)
}
