package provisioning

import (
	"context"
	"fmt"
	"time"

	"github.com/siderolabs/talos/pkg/machinery/constants"

	"github.com/imamik/talosboot/internal/creds"
	"github.com/imamik/talosboot/internal/talosctl"
)

// ApplyCoordinator delivers role-specific configuration payloads to nodes,
// establishing trust as needed. Node trust state is not observable in
// advance, so each node runs a three-tier escalation: insecure apply works
// on a fresh node, a configured node with matching trust needs the secure
// path, and a node holding stale/foreign trust needs a forced reset before
// it accepts anything.
type ApplyCoordinator struct {
	pctx   *Context
	bundle *creds.Bundle
}

// NewApplyCoordinator creates a coordinator applying the given bundle.
func NewApplyCoordinator(pctx *Context, bundle *creds.Bundle) *ApplyCoordinator {
	return &ApplyCoordinator{pctx: pctx, bundle: bundle}
}

func (a *ApplyCoordinator) payloadFor(role NodeRole) string {
	if role == RoleControlPlane {
		return a.bundle.Artifacts.ControlPlaneConfig
	}
	return a.bundle.Artifacts.WorkerConfig
}

// applyLadder is the per-node apply protocol. Forced-reset-and-retry is a
// single ladder step, so it runs at most once per node per invocation.
func (a *ApplyCoordinator) applyLadder(node string, role NodeRole) Ladder {
	payload := a.payloadFor(role)

	return Ladder{
		Node:     node,
		Classify: a.pctx.Classifier.Classify,
		Steps: []Step{
			{
				Name: "apply-insecure",
				Run: func(ctx context.Context) (string, error) {
					return a.pctx.Talos.ApplyConfig(ctx, node, payload, talosctl.TrustContext{}, true)
				},
				Next: map[talosctl.FailureKind]string{
					talosctl.FailureCertificateRequired: "apply-secure",
				},
				Default: StatusFatal,
			},
			{
				Name: "apply-secure",
				Run: func(ctx context.Context) (string, error) {
					return a.pctx.Talos.ApplyConfig(ctx, node, payload, a.bundle.Trust, false)
				},
				Next: map[talosctl.FailureKind]string{
					talosctl.FailureTrustMismatch: "forced-reset",
				},
				Default: StatusFatal,
			},
			{
				Name: "forced-reset",
				Run: func(ctx context.Context) (string, error) {
					return a.forcedResetAndRetry(ctx, node, payload)
				},
				Default: StatusFatal,
			},
		},
	}
}

// forcedResetAndRetry is the escape hatch for a node trusting a stale or
// foreign credential bundle: reset this node only, wait for its management
// API to return, then apply insecurely once more.
func (a *ApplyCoordinator) forcedResetAndRetry(ctx context.Context, node, payload string) (string, error) {
	a.pctx.Logger.Printf("[apply] %s trusts a different credential bundle, forcing reset...", node)

	reset := NewResetCoordinator(a.pctx, a.bundle.Trust)
	outcome := reset.ResetNode(ctx, node)
	if outcome.Failed() {
		return outcome.Output, fmt.Errorf("forced reset of %s failed: %s", node, outcome.Reason)
	}

	if err := a.pctx.WaitForPort(ctx, node, constants.ApidPort, a.pctx.Timeouts.TalosAPI); err != nil {
		return "", fmt.Errorf("management API of %s did not return after forced reset: %w", node, err)
	}

	return a.pctx.Talos.ApplyConfig(ctx, node, payload, talosctl.TrustContext{}, true)
}

// ApplyNode runs the apply protocol on a single node.
func (a *ApplyCoordinator) ApplyNode(ctx context.Context, node string, role NodeRole) Outcome {
	a.pctx.Logger.Printf("[apply] applying %s config to %s...", role, node)
	outcome := a.applyLadder(node, role).Run(ctx)
	a.pctx.Logger.Printf("[apply] %s", outcome)
	return outcome
}

// ApplyAll applies the control plane config first, settles, then each
// worker in the configured order. Workers apply sequentially so log output
// stays deterministic. Any failed node aborts with its full diagnostics.
func (a *ApplyCoordinator) ApplyAll(ctx context.Context) error {
	cfg := a.pctx.Config

	outcome := a.ApplyNode(ctx, cfg.ControlPlane, RoleControlPlane)
	if outcome.Failed() {
		return fmt.Errorf("config apply failed on control plane %s: %s\n%s", outcome.Node, outcome.Reason, outcome.Output)
	}

	// Give the control plane time to restart with its new config before
	// workers try to join it.
	a.settle()

	for _, worker := range cfg.Workers {
		outcome := a.ApplyNode(ctx, worker, RoleWorker)
		if outcome.Failed() {
			return fmt.Errorf("config apply failed on worker %s: %s\n%s", outcome.Node, outcome.Reason, outcome.Output)
		}
	}

	return nil
}

func (a *ApplyCoordinator) settle() {
	if a.pctx.Timeouts.SettleDelay > 0 {
		time.Sleep(a.pctx.Timeouts.SettleDelay)
	}
}
