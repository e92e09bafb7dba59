// Package addons installs the cluster add-on stack once bootstrap has
// produced a verified kubeconfig: the load balancer, its address pool,
// the ingress controller, and a sample workload. Manifest payloads live
// on disk under the configured manifests directory; this package only
// applies them and gates on readiness.
package addons

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/imamik/talosboot/internal/config"
	"github.com/imamik/talosboot/internal/kubectl"
	"github.com/imamik/talosboot/internal/netutil"
	"github.com/imamik/talosboot/internal/util/retry"
)

// Payload directory names under the manifests directory.
const (
	payloadMetalLB = "metallb"
	payloadIngress = "ingress-nginx"
	payloadSample  = "whoami"

	// poolTemplate is rendered with the cluster VIP before applying.
	poolTemplate = "pool.yaml.tmpl"
)

const ingressService = "ingress-nginx-controller"

// Installer applies the add-on payloads in order through the
// orchestrator CLI adapter.
type Installer struct {
	kube     *kubectl.Client
	cfg      *config.Config
	timeouts *config.Timeouts
	logger   *log.Logger

	// retryDelay is the initial backoff delay for transient apply
	// failures. Shortened in tests.
	retryDelay time.Duration
}

// NewInstaller returns an installer that applies manifests with the
// given credential.
func NewInstaller(kube *kubectl.Client, cfg *config.Config, timeouts *config.Timeouts, logger *log.Logger) *Installer {
	return &Installer{
		kube:       kube,
		cfg:        cfg,
		timeouts:   timeouts,
		logger:     logger,
		retryDelay: 2 * time.Second,
	}
}

// Install applies the full add-on stack: MetalLB, the VIP address pool,
// ingress-nginx, and the sample workload, then waits for the ingress
// service to receive its external address.
func (i *Installer) Install(ctx context.Context) error {
	if err := i.verifyPayloads(); err != nil {
		return err
	}

	steps := []struct {
		name string
		run  func(context.Context) error
	}{
		{"metallb", i.installMetalLB},
		{"address-pool", i.installAddressPool},
		{"ingress-nginx", i.installIngress},
		{"sample-workload", i.installSampleWorkload},
	}

	for _, step := range steps {
		i.logger.Printf("[addons] installing %s...", step.name)
		if err := step.run(ctx); err != nil {
			return fmt.Errorf("addon %s: %w", step.name, err)
		}
		i.logger.Printf("[addons] %s installed", step.name)
	}

	i.logger.Printf("[addons] waiting for external address on %s...", ingressService)
	if err := i.waitForExternalAddress(ctx); err != nil {
		return err
	}
	i.logger.Printf("[addons] ingress reachable at %s", i.cfg.VIP)
	return nil
}

// verifyPayloads stats every required payload up front so a missing
// manifest never leaves the cluster half-installed.
func (i *Installer) verifyPayloads() error {
	required := []string{
		i.payloadPath(payloadMetalLB),
		filepath.Join(i.payloadPath(payloadMetalLB), poolTemplate),
		i.payloadPath(payloadIngress),
		i.payloadPath(payloadSample),
	}
	for _, path := range required {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("add-on payload missing: %s: %w", path, err)
		}
	}
	return nil
}

func (i *Installer) payloadPath(name string) string {
	return filepath.Join(i.cfg.ManifestsDir, name)
}

func (i *Installer) installMetalLB(ctx context.Context) error {
	if err := i.applyWithRetry(ctx, i.payloadPath(payloadMetalLB)); err != nil {
		return err
	}
	if out, err := i.kube.RolloutStatus(ctx, "deployment/controller", "metallb-system", i.timeouts.Rollout); err != nil {
		return fmt.Errorf("rollout: %w\n%s", err, out)
	}
	return nil
}

// installAddressPool renders the pool template with the cluster VIP and
// applies the result. The rendered file is temporary; the template on
// disk is never modified.
func (i *Installer) installAddressPool(ctx context.Context) error {
	rendered, err := i.renderAddressPool()
	if err != nil {
		return err
	}
	defer func() {
		_ = os.Remove(rendered)
	}()
	return i.applyWithRetry(ctx, rendered)
}

func (i *Installer) installIngress(ctx context.Context) error {
	if err := i.applyWithRetry(ctx, i.payloadPath(payloadIngress)); err != nil {
		return err
	}
	if out, err := i.kube.RolloutStatus(ctx, "deployment/"+ingressService, "ingress-nginx", i.timeouts.Rollout); err != nil {
		return fmt.Errorf("rollout: %w\n%s", err, out)
	}
	return nil
}

func (i *Installer) installSampleWorkload(ctx context.Context) error {
	if err := i.applyWithRetry(ctx, i.payloadPath(payloadSample)); err != nil {
		return err
	}
	if out, err := i.kube.RolloutStatus(ctx, "deployment/whoami", "default", i.timeouts.Rollout); err != nil {
		return fmt.Errorf("rollout: %w\n%s", err, out)
	}
	return nil
}

// applyWithRetry applies a manifest path, retrying transient failures
// (API server still settling, webhook endpoints not yet up) with
// exponential backoff. Non-transient failures abort immediately.
func (i *Installer) applyWithRetry(ctx context.Context, path string) error {
	return retry.WithExponentialBackoff(ctx, func() error {
		out, err := i.kube.Apply(ctx, path)
		if err == nil {
			return nil
		}
		if isTransient(out + " " + err.Error()) {
			i.logger.Printf("[addons] transient apply failure for %s, retrying: %v", path, err)
			return fmt.Errorf("apply %s: %w\n%s", path, err, out)
		}
		return retry.Fatal(fmt.Errorf("apply %s: %w\n%s", path, err, out))
	}, retry.WithMaxRetries(4), retry.WithInitialDelay(i.retryDelay))
}

// waitForExternalAddress polls the ingress service until the load
// balancer reports an external address.
func (i *Installer) waitForExternalAddress(ctx context.Context) error {
	err := netutil.PollUntil(ctx, i.timeouts.AddressAssign, i.timeouts.PollInterval, func(ctx context.Context) bool {
		out, err := i.kube.Get(ctx, "svc", "-n", "ingress-nginx", ingressService,
			"-o", "jsonpath={.status.loadBalancer.ingress[0].ip}")
		return err == nil && strings.TrimSpace(out) != ""
	})
	if err != nil {
		return fmt.Errorf("external address was not assigned to %s: %w", ingressService, err)
	}
	return nil
}

// isTransient reports whether apply output looks like a temporary
// condition worth retrying.
func isTransient(out string) bool {
	patterns := []string{
		"EOF",
		"connection refused",
		"connection reset",
		"i/o timeout",
		"no such host",
		"TLS handshake timeout",
		"context deadline exceeded",
		"no endpoints available",
		"failed calling webhook",
	}
	for _, pattern := range patterns {
		if strings.Contains(out, pattern) {
			return true
		}
	}
	return false
}
