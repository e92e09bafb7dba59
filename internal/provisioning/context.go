// Package provisioning contains the bootstrap state-reconciliation engine:
// the node reset coordinator, the config apply coordinator, and the
// top-level orchestrator state machine that sequences them.
package provisioning

import (
	"context"
	"log"
	"time"

	"github.com/imamik/talosboot/internal/config"
	"github.com/imamik/talosboot/internal/netutil"
	"github.com/imamik/talosboot/internal/talosctl"
)

// Context wraps the dependencies and settings shared by the coordinators.
type Context struct {
	context.Context
	Config     *config.Config
	Timeouts   *config.Timeouts
	Logger     *log.Logger
	Talos      TalosClient
	Classifier talosctl.Classifier

	// WaitForPort is the reachability probe; overridable for tests.
	WaitForPort func(ctx context.Context, host string, port int, timeout time.Duration) error
}

// NewContext creates a provisioning context with the default prober and
// failure classifier.
func NewContext(ctx context.Context, cfg *config.Config, talos TalosClient, logger *log.Logger) *Context {
	return &Context{
		Context:     ctx,
		Config:      cfg,
		Timeouts:    config.LoadTimeouts(),
		Logger:      logger,
		Talos:       talos,
		Classifier:  talosctl.DefaultClassifier(),
		WaitForPort: netutil.WaitForPort,
	}
}

// NodeRole determines which config payload is applied to a node.
type NodeRole int

const (
	RoleControlPlane NodeRole = iota
	RoleWorker
)

func (r NodeRole) String() string {
	if r == RoleControlPlane {
		return "controlplane"
	}
	return "worker"
}
