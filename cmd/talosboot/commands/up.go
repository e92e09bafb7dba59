package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/talosboot/cmd/talosboot/handlers"
)

// Up returns the command that bootstraps the whole cluster.
//
// The target can come from a YAML configuration file or be specified
// entirely on the command line.
//
// Optional flags:
//
//	--config, -c: Path to cluster configuration YAML file
//	--cluster-name, --controlplane, --worker, --vip: inline target definition
//	--force-rebuild: wipe and rebuild even if the cluster is healthy
//	--regen-secrets: discard cached credentials and generate fresh ones
//	--skip-addons: stop after bootstrap, do not install add-ons
func Up() *cobra.Command {
	var opts handlers.UpOptions

	cmd := &cobra.Command{
		Use:   "up",
		Short: "Bootstrap the cluster and install add-ons",
		Long: `Bootstrap a Talos Kubernetes cluster on the configured machines.

If the cluster already answers with the cached credentials, nothing is
touched and the command returns immediately. Otherwise talosboot resets
the nodes, applies fresh machine configs, bootstraps etcd, fetches the
admin kubeconfig, and installs the add-on stack.

Examples:
  # Bootstrap using talosboot.yaml in the current directory
  talosboot up -c talosboot.yaml

  # Bootstrap an inline target
  talosboot up --cluster-name lab --controlplane 10.0.0.1 \
    --worker 10.0.0.2 --worker 10.0.0.3 --vip 10.0.0.9

  # Force a full wipe and rebuild
  talosboot up -c talosboot.yaml --force-rebuild`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Up(cmd.Context(), opts)
		},
	}

	bindTargetFlags(cmd, &opts)
	cmd.Flags().BoolVar(&opts.ForceRebuild, "force-rebuild", false, "Wipe and rebuild even if the cluster is healthy")
	cmd.Flags().BoolVar(&opts.RegenSecrets, "regen-secrets", false, "Discard cached credentials and generate fresh ones")
	cmd.Flags().BoolVar(&opts.SkipAddons, "skip-addons", false, "Stop after bootstrap, do not install add-ons")
	cmd.Flags().BoolVar(&opts.AddonsOnly, "addons-only", false, "Skip bootstrap and only install add-ons")
	cmd.Flags().DurationVar(&opts.TalosTimeout, "talos-timeout", 0, "Override the wait for the Talos management API")
	cmd.Flags().DurationVar(&opts.K8sTimeout, "k8s-timeout", 0, "Override the wait for the Kubernetes API")
	cmd.Flags().DurationVar(&opts.KubectlTimeout, "kubectl-timeout", 0, "Override the wait for kubectl readiness")

	return cmd
}

// bindTargetFlags attaches the flags shared by up and addons.
func bindTargetFlags(cmd *cobra.Command, opts *handlers.UpOptions) {
	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to configuration file")
	cmd.Flags().StringVar(&opts.ClusterName, "cluster-name", "", "Cluster name")
	cmd.Flags().StringVar(&opts.ControlPlane, "controlplane", "", "Control plane address")
	cmd.Flags().StringArrayVar(&opts.Workers, "worker", nil, "Worker address (repeatable)")
	cmd.Flags().StringVar(&opts.VIP, "vip", "", "Virtual address for load-balanced ingress")
	cmd.Flags().StringVar(&opts.SecretsDir, "secrets-dir", "", "Directory for generated credentials")
	cmd.Flags().StringVar(&opts.KubeconfigPath, "kubeconfig", "", "Path for the admin kubeconfig")
	cmd.Flags().StringVar(&opts.ManifestsDir, "manifests-dir", "", "Directory holding add-on manifest payloads")
}
