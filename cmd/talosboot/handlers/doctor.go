package handlers

import (
	"context"
	"fmt"
	"os"

	"github.com/siderolabs/talos/pkg/machinery/constants"

	"github.com/imamik/talosboot/internal/k8s"
	"github.com/imamik/talosboot/internal/netutil"
	"github.com/imamik/talosboot/internal/util/prerequisites"
)

// Doctor handles the doctor command.
//
// It always reports tool availability. With a resolvable target it also
// validates the configuration, probes the control plane ports, and, if a
// kubeconfig exists, queries node readiness.
func Doctor(ctx context.Context, opts UpOptions) error {
	results := prerequisites.CheckDefault()
	fmt.Println("Client tools:")
	for _, r := range results.Results {
		if r.Found {
			fmt.Printf("  OK      %-10s %s\n", r.Tool.Name, r.Version)
		} else {
			fmt.Printf("  MISSING %-10s install: %s\n", r.Tool.Name, r.Tool.InstallURL)
		}
	}
	toolErr := results.Error()

	// Without a target there is nothing more to check.
	if opts.ConfigPath == "" && opts.ControlPlane == "" {
		return toolErr
	}

	cfg, err := resolveConfig(opts)
	if err != nil {
		return err
	}
	fmt.Printf("\nCluster %s:\n", cfg.ClusterName)

	probe := func(label string, port int) {
		if netutil.IsReachable(ctx, cfg.ControlPlane, port) {
			fmt.Printf("  OK      %s (%s:%d)\n", label, cfg.ControlPlane, port)
		} else {
			fmt.Printf("  DOWN    %s (%s:%d)\n", label, cfg.ControlPlane, port)
		}
	}
	probe("talos management API", constants.ApidPort)
	probe("kubernetes API", constants.DefaultControlPlanePort)

	if _, err := os.Stat(cfg.KubeconfigPath); err != nil {
		fmt.Printf("  -       no kubeconfig at %s (cluster not bootstrapped yet)\n", cfg.KubeconfigPath)
		return toolErr
	}

	client, err := k8s.NewClient(cfg.KubeconfigPath)
	if err != nil {
		fmt.Printf("  ERROR   kubeconfig unusable: %v\n", err)
		return toolErr
	}
	total, ready, err := client.NodeCounts(ctx)
	if err != nil {
		fmt.Printf("  ERROR   node list failed: %v\n", err)
		return toolErr
	}
	fmt.Printf("  NODES   %d/%d ready\n", ready, total)

	return toolErr
}
