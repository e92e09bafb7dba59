// Package talosctl wraps the talosctl CLI behind a narrow client used by
// the bootstrap coordinators. Raw exit codes and diagnostic output are
// translated into classified outcomes; trust material is always passed
// explicitly, never read from ambient configuration.
package talosctl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/imamik/talosboot/internal/execer"
)

const (
	// minArtifactSize guards against silently truncated or empty output
	// from config generation.
	minArtifactSize = 256

	controlPlaneConfigFile = "controlplane.yaml"
	workerConfigFile       = "worker.yaml"
	talosConfigFile        = "talosconfig"
)

// TrustContext points at the talosconfig file carrying the active trust
// material. It is threaded through every secure call by the caller.
type TrustContext struct {
	ConfigPath string
}

// Artifacts are the files produced by config generation.
type Artifacts struct {
	ControlPlaneConfig string
	WorkerConfig       string
	TalosConfig        string
}

// Client wraps the talosctl binary.
type Client struct {
	runner execer.Runner
	bin    string
}

// NewClient returns a client that shells out to talosctl.
func NewClient() *Client {
	return &Client{runner: execer.ExecRunner{}, bin: "talosctl"}
}

// NewClientWithRunner returns a client using the given runner. Used by
// tests to script talosctl behavior.
func NewClientWithRunner(r execer.Runner) *Client {
	return &Client{runner: r, bin: "talosctl"}
}

// GenConfig generates a fresh credential bundle (machine configs plus
// trust material) into outDir. Fails if any artifact is missing or
// implausibly small.
func (c *Client) GenConfig(ctx context.Context, clusterName, endpoint, outDir string) (Artifacts, error) {
	out, err := c.runner.Run(ctx, c.bin, "gen", "config", clusterName, endpoint,
		"--output", outDir,
		"--force")
	if err != nil {
		return Artifacts{}, fmt.Errorf("gen config failed: %w\n%s", err, out)
	}

	artifacts := Artifacts{
		ControlPlaneConfig: filepath.Join(outDir, controlPlaneConfigFile),
		WorkerConfig:       filepath.Join(outDir, workerConfigFile),
		TalosConfig:        filepath.Join(outDir, talosConfigFile),
	}

	for _, path := range []string{artifacts.ControlPlaneConfig, artifacts.WorkerConfig, artifacts.TalosConfig} {
		info, err := os.Stat(path)
		if err != nil {
			return Artifacts{}, fmt.Errorf("generated artifact %s missing: %w", path, err)
		}
		if info.Size() < minArtifactSize {
			return Artifacts{}, fmt.Errorf("generated artifact %s implausibly small (%d bytes)", path, info.Size())
		}
	}

	return artifacts, nil
}

// ApplyConfig applies a machine config payload to a node. With insecure
// set, the call skips trust verification (fresh or reset nodes); otherwise
// it authenticates using the given trust context.
func (c *Client) ApplyConfig(ctx context.Context, node, payloadFile string, trust TrustContext, insecure bool) (string, error) {
	args := []string{"apply-config", "--nodes", node, "--file", payloadFile}
	if insecure {
		args = append(args, "--insecure")
	} else {
		args = append(args, "--talosconfig", trust.ConfigPath, "--endpoints", node)
	}
	return c.runner.Run(ctx, c.bin, args...)
}

// Reset wipes the STATE and EPHEMERAL partitions of a node and reboots it.
// Non-blocking (wait=false), non-graceful, per the reset protocol.
func (c *Client) Reset(ctx context.Context, node string, trust TrustContext, insecure bool) (string, error) {
	args := []string{"reset", "--nodes", node,
		"--system-labels-to-wipe", "STATE",
		"--system-labels-to-wipe", "EPHEMERAL",
		"--reboot",
		"--graceful=false",
		"--wait=false"}
	if insecure {
		args = append(args, "--insecure")
	} else {
		args = append(args, "--talosconfig", trust.ConfigPath, "--endpoints", node)
	}
	return c.runner.Run(ctx, c.bin, args...)
}

// Bootstrap initializes etcd on the given control plane node.
func (c *Client) Bootstrap(ctx context.Context, node string, trust TrustContext) (string, error) {
	return c.runner.Run(ctx, c.bin, "bootstrap",
		"--nodes", node,
		"--endpoints", node,
		"--talosconfig", trust.ConfigPath)
}

// Kubeconfig fetches the cluster admin credential from a control plane
// node into outPath, overwriting any existing file. Verifies the file
// exists afterwards.
func (c *Client) Kubeconfig(ctx context.Context, node, outPath string, trust TrustContext) (string, error) {
	out, err := c.runner.Run(ctx, c.bin, "kubeconfig", outPath,
		"--nodes", node,
		"--endpoints", node,
		"--talosconfig", trust.ConfigPath,
		"--force")
	if err != nil {
		return out, err
	}
	if _, statErr := os.Stat(outPath); statErr != nil {
		return out, fmt.Errorf("kubeconfig not written to %s: %w", outPath, statErr)
	}
	return out, nil
}

// ServiceStatus returns the status text for a named service on a node.
// Used to detect a failed etcd after bootstrap by pattern match.
func (c *Client) ServiceStatus(ctx context.Context, node, service string, trust TrustContext) (string, error) {
	return c.runner.Run(ctx, c.bin, "service", service,
		"--nodes", node,
		"--endpoints", node,
		"--talosconfig", trust.ConfigPath)
}

// Version returns the talosctl client version output, used by doctor.
func (c *Client) Version(ctx context.Context) (string, error) {
	return c.runner.Run(ctx, c.bin, "version", "--client", "--short")
}
