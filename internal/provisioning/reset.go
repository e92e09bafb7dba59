package provisioning

import (
	"context"
	"fmt"
	"strings"

	"github.com/siderolabs/talos/pkg/machinery/constants"
	"golang.org/x/sync/errgroup"

	"github.com/imamik/talosboot/internal/talosctl"
)

// ResetPolicy selects the fleet-level strictness of a multi-node reset.
type ResetPolicy int

const (
	// PolicyAllOrNothing aborts the run if any node fails to reset, so
	// config application never proceeds against a mixed old/new fleet.
	PolicyAllOrNothing ResetPolicy = iota

	// PolicyBestEffort proceeds past individual failures with a warning.
	// The apply coordinator's forced-reset escape hatch is the backstop.
	PolicyBestEffort
)

// ResetCoordinator wipes persistent and ephemeral state on a node set and
// waits for the fleet to re-announce itself.
type ResetCoordinator struct {
	pctx  *Context
	trust talosctl.TrustContext
}

// NewResetCoordinator creates a coordinator resetting under the given
// trust context. The secure attempt uses it; the insecure fallback does not.
func NewResetCoordinator(pctx *Context, trust talosctl.TrustContext) *ResetCoordinator {
	return &ResetCoordinator{pctx: pctx, trust: trust}
}

// resetLadder is the per-node reset protocol: try the configured trust
// context first, fall back to an unverified request on a trust failure.
// A node stuck in maintenance mode has no reset API and fails fatally.
func (r *ResetCoordinator) resetLadder(node string) Ladder {
	return Ladder{
		Node:     node,
		Classify: r.pctx.Classifier.Classify,
		Steps: []Step{
			{
				Name: "reset-secure",
				Run: func(ctx context.Context) (string, error) {
					return r.pctx.Talos.Reset(ctx, node, r.trust, false)
				},
				Next: map[talosctl.FailureKind]string{
					talosctl.FailureTrustMismatch: "reset-insecure",
				},
				Fatal:   []talosctl.FailureKind{talosctl.FailureMaintenanceMode},
				Default: StatusRecoverable,
			},
			{
				Name: "reset-insecure",
				Run: func(ctx context.Context) (string, error) {
					return r.pctx.Talos.Reset(ctx, node, talosctl.TrustContext{}, true)
				},
				Fatal:   []talosctl.FailureKind{talosctl.FailureMaintenanceMode},
				Default: StatusRecoverable,
			},
		},
	}
}

// ResetNode runs the reset protocol on a single node.
func (r *ResetCoordinator) ResetNode(ctx context.Context, node string) Outcome {
	return r.resetLadder(node).Run(ctx)
}

// ResetAll runs the per-node reset protocol across every node. Per-node
// protocols are independent, so they run concurrently bounded by the node
// count; outcomes are reported in input order to keep logs deterministic.
//
// Under PolicyAllOrNothing any non-success outcome aborts with an error
// naming exactly the failed nodes. Under PolicyBestEffort failures are
// surfaced as warnings and the run proceeds at the caller's risk.
//
// After the fleet policy passes, the coordinator blocks until the control
// plane's management API is reachable again; timeout is fatal.
func (r *ResetCoordinator) ResetAll(ctx context.Context, nodes []string, policy ResetPolicy) ([]Outcome, error) {
	r.pctx.Logger.Printf("[reset] resetting %d nodes (wipe STATE+EPHEMERAL, reboot)...", len(nodes))

	outcomes := make([]Outcome, len(nodes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(len(nodes))
	for i, node := range nodes {
		g.Go(func() error {
			outcomes[i] = r.ResetNode(gctx, node)
			return nil
		})
	}
	_ = g.Wait()

	var failed []string
	for _, o := range outcomes {
		r.pctx.Logger.Printf("[reset] %s", o)
		if o.Failed() {
			failed = append(failed, o.Node)
		}
	}

	if len(failed) > 0 {
		switch policy {
		case PolicyAllOrNothing:
			return outcomes, fmt.Errorf("reset failed on node(s) %s: aborting to avoid a mixed old/new fleet\n%s",
				strings.Join(failed, ", "), diagnostics(outcomes))
		case PolicyBestEffort:
			r.pctx.Logger.Printf("[reset] WARNING: reset failed on node(s) %s; proceeding best-effort", strings.Join(failed, ", "))
		}
	}

	r.pctx.Logger.Printf("[reset] waiting for control plane management API at %s:%d...", r.pctx.Config.ControlPlane, constants.ApidPort)
	if err := r.pctx.WaitForPort(ctx, r.pctx.Config.ControlPlane, constants.ApidPort, r.pctx.Timeouts.TalosAPI); err != nil {
		return outcomes, fmt.Errorf("control plane management API did not return after reset: %w", err)
	}

	return outcomes, nil
}

// diagnostics collects the per-node transcripts of failed outcomes.
func diagnostics(outcomes []Outcome) string {
	var b strings.Builder
	for _, o := range outcomes {
		if o.Failed() {
			fmt.Fprintf(&b, "--- %s (%s)\n%s", o.Node, o.Reason, o.Output)
		}
	}
	return b.String()
}
