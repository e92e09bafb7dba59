package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/talosboot/cmd/talosboot/handlers"
)

// Doctor returns the command for diagnosing the local setup and the
// target cluster.
func Doctor() *cobra.Command {
	var opts handlers.UpOptions

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check prerequisites and cluster health",
		Long: `Check that the required client tools are installed, validate the
configuration, and report the live cluster status.

Pre-cluster mode (no kubeconfig yet):
  - verifies talosctl and kubectl are in PATH
  - validates the configuration file
  - probes the control plane management port

Cluster mode (kubeconfig exists):
  - additionally queries node readiness with the cached credential

Examples:
  talosboot doctor -c talosboot.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Doctor(cmd.Context(), opts)
		},
	}

	bindTargetFlags(cmd, &opts)

	return cmd
}
