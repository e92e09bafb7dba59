package provisioning

import (
	"context"

	"github.com/imamik/talosboot/internal/creds"
	"github.com/imamik/talosboot/internal/talosctl"
)

// TalosClient is the control-plane adapter surface the coordinators need.
// Implemented by *talosctl.Client; tests substitute scripted fakes.
type TalosClient interface {
	ApplyConfig(ctx context.Context, node, payloadFile string, trust talosctl.TrustContext, insecure bool) (string, error)
	Reset(ctx context.Context, node string, trust talosctl.TrustContext, insecure bool) (string, error)
	Bootstrap(ctx context.Context, node string, trust talosctl.TrustContext) (string, error)
	Kubeconfig(ctx context.Context, node, outPath string, trust talosctl.TrustContext) (string, error)
	ServiceStatus(ctx context.Context, node, service string, trust talosctl.TrustContext) (string, error)
}

// CredentialResolver is the credential manager surface the orchestrator
// needs. Implemented by *creds.Manager.
type CredentialResolver interface {
	ResolveWorking(ctx context.Context) *creds.Bundle
	RecoverFromTrust(ctx context.Context) *creds.Bundle
	GenerateFresh(ctx context.Context) (*creds.Bundle, error)
}
