// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument
// parsing and flag binding. Command execution is delegated to handler
// functions in the handlers package.
package commands

import "github.com/spf13/cobra"

// Root returns the root command for the talosboot CLI.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "talosboot",
		Short: "Bootstrap a Talos Kubernetes cluster on existing machines",
	}

	cmd.AddCommand(Up())
	cmd.AddCommand(Addons())
	cmd.AddCommand(Doctor())
	cmd.AddCommand(Version())

	return cmd
}
