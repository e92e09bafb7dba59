package handlers

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/imamik/talosboot/internal/addons"
	"github.com/imamik/talosboot/internal/config"
	"github.com/imamik/talosboot/internal/creds"
	"github.com/imamik/talosboot/internal/kubectl"
	"github.com/imamik/talosboot/internal/provisioning"
	"github.com/imamik/talosboot/internal/talosctl"
	"github.com/imamik/talosboot/internal/util/prerequisites"
)

// Up handles the up command: full bootstrap plus add-on installation.
func Up(ctx context.Context, opts UpOptions) error {
	cfg, err := resolveConfig(opts)
	if err != nil {
		return err
	}
	if err := prerequisites.CheckDefault().Error(); err != nil {
		return err
	}

	logger := log.New(os.Stdout, "", log.LstdFlags)

	if cfg.AddonsOnly {
		timeouts := config.LoadTimeouts()
		applyTimeoutOverrides(timeouts, opts)
		return installAddons(ctx, cfg, timeouts, logger)
	}

	talos := talosctl.NewClient()
	pctx := provisioning.NewContext(ctx, cfg, talos, logger)
	applyTimeoutOverrides(pctx.Timeouts, opts)
	manager := creds.NewManager(cfg, talos, logger)

	result, err := provisioning.NewOrchestrator(pctx, manager).Run(ctx)
	if err != nil {
		return err
	}
	if result.FastPath {
		logger.Printf("[up] cluster already healthy, credentials verified")
	} else {
		logger.Printf("[up] bootstrap complete after %d attempt(s)", result.Attempts)
	}

	if cfg.SkipAddons {
		logger.Printf("[up] skipping add-on installation")
		fmt.Printf("Cluster %s is ready. Kubeconfig: %s\n", cfg.ClusterName, cfg.KubeconfigPath)
		return nil
	}

	if err := installAddons(ctx, cfg, pctx.Timeouts, logger); err != nil {
		return err
	}

	fmt.Printf("Cluster %s is ready. Kubeconfig: %s, ingress: %s\n",
		cfg.ClusterName, cfg.KubeconfigPath, cfg.VIP)
	return nil
}

// installAddons installs the add-on stack using the cached kubeconfig.
func installAddons(ctx context.Context, cfg *config.Config, timeouts *config.Timeouts, logger *log.Logger) error {
	if _, err := os.Stat(cfg.KubeconfigPath); err != nil {
		return fmt.Errorf("kubeconfig %s not found, run 'talosboot up' first: %w", cfg.KubeconfigPath, err)
	}

	installer := addons.NewInstaller(kubectl.NewClient(cfg.KubeconfigPath), cfg, timeouts, logger)
	return installer.Install(ctx)
}
