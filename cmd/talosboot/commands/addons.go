package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/talosboot/cmd/talosboot/handlers"
)

// Addons returns the command that installs the add-on stack against an
// already bootstrapped cluster.
func Addons() *cobra.Command {
	var opts handlers.UpOptions

	cmd := &cobra.Command{
		Use:   "addons",
		Short: "Install add-ons on an existing cluster",
		Long: `Install the add-on stack (load balancer, address pool, ingress
controller, sample workload) using the cached admin kubeconfig.

The cluster must already be bootstrapped; run 'talosboot up' first.

Examples:
  talosboot addons -c talosboot.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Addons(cmd.Context(), opts)
		},
	}

	bindTargetFlags(cmd, &opts)

	return cmd
}
