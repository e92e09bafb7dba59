package provisioning

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/siderolabs/talos/pkg/machinery/constants"

	"github.com/imamik/talosboot/internal/creds"
	"github.com/imamik/talosboot/internal/kubectl"
	"github.com/imamik/talosboot/internal/netutil"
)

// State names a position in the bootstrap state machine.
type State string

const (
	StateCheckingHealth       State = "CheckingHealth"
	StateFastPathDone         State = "FastPathDone"
	StateResolvingCredentials State = "ResolvingCredentials"
	StateResettingNodes       State = "ResettingNodes"
	StateApplyingConfigs      State = "ApplyingConfigs"
	StateBootstrappingEtcd    State = "BootstrappingEtcd"
	StateAwaitingK8sAPI       State = "AwaitingK8sAPI"
	StateFetchingKubeconfig   State = "FetchingKubeconfig"
	StateAwaitingKubectl      State = "AwaitingKubectl"
	StateDone                 State = "Done"
	StateFailedFatal          State = "FailedFatal"
)

// Named pipeline conditions. Any of them (or any other rebuild error)
// triggers the single whole-pipeline retry.
var (
	ErrEtcdFailed      = errors.New("etcd_failed")
	ErrKubeAPIDown     = errors.New("k8s_api_down")
	ErrKubectlNotReady = errors.New("kubectl_not_ready")
)

// maxRebuildAttempts bounds total rebuild attempts: one run plus exactly
// one whole-pipeline retry, so a persistently broken node cannot loop the
// pipeline forever.
const maxRebuildAttempts = 2

// Result describes a completed bootstrap run.
type Result struct {
	Bundle   *creds.Bundle
	FastPath bool
	Attempts int
}

// Orchestrator is the top-level state machine. It sequences credential
// resolution, fleet reset, config application, etcd bootstrap, kubeconfig
// retrieval, and readiness gates, then hands off to add-on installation.
type Orchestrator struct {
	pctx  *Context
	creds CredentialResolver
	state State

	// kubeReady reports whether the orchestrator CLI can list nodes using
	// the given credential. Overridable for tests.
	kubeReady func(ctx context.Context, kubeconfigPath string) bool
}

// NewOrchestrator creates the top-level state machine.
func NewOrchestrator(pctx *Context, resolver CredentialResolver) *Orchestrator {
	return &Orchestrator{
		pctx:  pctx,
		creds: resolver,
		kubeReady: func(ctx context.Context, kubeconfigPath string) bool {
			return kubectl.NewClient(kubeconfigPath).Ready(ctx)
		},
	}
}

// WithKubeReady overrides the kubectl readiness probe. Used by tests.
func (o *Orchestrator) WithKubeReady(probe func(ctx context.Context, kubeconfigPath string) bool) *Orchestrator {
	o.kubeReady = probe
	return o
}

// State returns the current state.
func (o *Orchestrator) State() State {
	return o.state
}

func (o *Orchestrator) transition(s State) {
	o.state = s
	o.pctx.Logger.Printf("[bootstrap] -> %s", s)
}

// Run drives the cluster to a working state and returns the verified
// credential bundle for add-on handoff.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	cfg := o.pctx.Config

	o.transition(StateCheckingHealth)
	if !cfg.ForceRebuild && !cfg.RegenSecrets {
		if bundle := o.creds.ResolveWorking(ctx); bundle != nil {
			o.transition(StateFastPathDone)
			return &Result{Bundle: bundle, FastPath: true}, nil
		}
	}

	o.transition(StateResolvingCredentials)

	var bundle *creds.Bundle
	if !cfg.RegenSecrets {
		if recovered := o.creds.RecoverFromTrust(ctx); recovered != nil {
			if !cfg.ForceRebuild {
				// The control plane still honors the existing trust
				// material and the re-derived admin credential works.
				o.transition(StateDone)
				return &Result{Bundle: recovered}, nil
			}
			bundle = recovered
		}
	}

	if bundle == nil {
		fresh, err := o.creds.GenerateFresh(ctx)
		if err != nil {
			o.transition(StateFailedFatal)
			return nil, err
		}
		bundle = fresh
	}

	var lastErr error
	for attempt := 1; attempt <= maxRebuildAttempts; attempt++ {
		rebuilt, err := o.rebuild(ctx, bundle)
		if err == nil {
			o.transition(StateDone)
			return &Result{Bundle: rebuilt, Attempts: attempt}, nil
		}
		lastErr = err
		if attempt < maxRebuildAttempts {
			o.pctx.Logger.Printf("[bootstrap] rebuild attempt %d/%d failed: %v; retrying whole pipeline once", attempt, maxRebuildAttempts, err)
		}
	}

	o.transition(StateFailedFatal)
	return nil, fmt.Errorf("bootstrap failed after %d attempts: %w", maxRebuildAttempts, lastErr)
}

// rebuild is one full pass of the rebuilding sequence. It starts at the
// fleet reset so a retry re-enters at ResettingNodes.
func (o *Orchestrator) rebuild(ctx context.Context, bundle *creds.Bundle) (*creds.Bundle, error) {
	cfg := o.pctx.Config

	o.transition(StateResettingNodes)
	reset := NewResetCoordinator(o.pctx, bundle.Trust)
	if _, err := reset.ResetAll(ctx, cfg.AllNodes(), PolicyAllOrNothing); err != nil {
		return nil, err
	}

	// Regenerate after the wipe so the configs about to be applied are
	// paired with exactly the trust material in use, not one from a
	// previous attempt.
	fresh, err := o.creds.GenerateFresh(ctx)
	if err != nil {
		return nil, err
	}
	bundle = fresh

	o.transition(StateApplyingConfigs)
	apply := NewApplyCoordinator(o.pctx, bundle)
	if err := apply.ApplyAll(ctx); err != nil {
		return nil, err
	}

	o.transition(StateBootstrappingEtcd)
	o.pctx.Logger.Printf("[bootstrap] bootstrapping etcd on %s...", cfg.ControlPlane)
	if out, err := o.pctx.Talos.Bootstrap(ctx, cfg.ControlPlane, bundle.Trust); err != nil {
		return nil, fmt.Errorf("etcd bootstrap failed: %w\n%s", err, out)
	}

	if o.pctx.Timeouts.EtcdSettle > 0 {
		time.Sleep(o.pctx.Timeouts.EtcdSettle)
	}
	if err := o.probeEtcd(ctx, bundle); err != nil {
		return nil, err
	}

	o.transition(StateAwaitingK8sAPI)
	if err := o.pctx.WaitForPort(ctx, cfg.ControlPlane, constants.DefaultControlPlanePort, o.pctx.Timeouts.KubeAPI); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKubeAPIDown, err)
	}

	o.transition(StateFetchingKubeconfig)
	if out, err := o.pctx.Talos.Kubeconfig(ctx, cfg.ControlPlane, cfg.KubeconfigPath, bundle.Trust); err != nil {
		return nil, fmt.Errorf("kubeconfig retrieval failed: %w\n%s", err, out)
	}

	o.transition(StateAwaitingKubectl)
	err = netutil.PollUntil(ctx, o.pctx.Timeouts.Kubectl, o.pctx.Timeouts.PollInterval, func(ctx context.Context) bool {
		return o.kubeReady(ctx, cfg.KubeconfigPath)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKubectlNotReady, err)
	}

	return bundle, nil
}

// probeEtcd checks the etcd service state after bootstrap. The probe is
// advisory: a failed status query is logged and ignored, but a reported
// Failed state fails the whole attempt.
func (o *Orchestrator) probeEtcd(ctx context.Context, bundle *creds.Bundle) error {
	out, err := o.pctx.Talos.ServiceStatus(ctx, o.pctx.Config.ControlPlane, "etcd", bundle.Trust)
	if err != nil {
		o.pctx.Logger.Printf("[bootstrap] etcd status query failed (ignored): %v", err)
		return nil
	}
	if etcdFailed(out) {
		return fmt.Errorf("%w: etcd reports a failed state\n%s", ErrEtcdFailed, out)
	}
	return nil
}

// etcdFailed pattern-matches the service status output for a failed state
// line.
func etcdFailed(output string) bool {
	for _, line := range strings.Split(output, "\n") {
		upper := strings.ToUpper(line)
		if strings.Contains(upper, "STATE") && strings.Contains(upper, "FAILED") {
			return true
		}
	}
	return false
}
