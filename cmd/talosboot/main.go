// Package main is the entry point for the talosboot CLI.
//
// talosboot bootstraps a Talos Linux Kubernetes cluster on pre-existing
// machines: it generates credentials, drives every node through the TLS
// trust-transition protocol, bootstraps etcd, retrieves the admin
// kubeconfig, and installs the base add-on stack.
//
// Commands: up, addons, doctor, version.
//
// For detailed usage information, run:
//
//	talosboot --help
package main

import (
	"fmt"
	"os"

	"github.com/imamik/talosboot/cmd/talosboot/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
