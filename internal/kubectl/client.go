// Package kubectl wraps the kubectl CLI for manifest application and
// readiness checks. Every call passes the credential file explicitly via
// --kubeconfig; nothing is read from ambient environment.
package kubectl

import (
	"context"
	"fmt"
	"time"

	"github.com/imamik/talosboot/internal/execer"
)

// Client wraps the kubectl binary against a single kubeconfig.
type Client struct {
	runner         execer.Runner
	bin            string
	kubeconfigPath string
}

// NewClient returns a client that shells out to kubectl using the given
// credential file.
func NewClient(kubeconfigPath string) *Client {
	return &Client{runner: execer.ExecRunner{}, bin: "kubectl", kubeconfigPath: kubeconfigPath}
}

// NewClientWithRunner returns a client using the given runner. Used by
// tests to script kubectl behavior.
func NewClientWithRunner(r execer.Runner, kubeconfigPath string) *Client {
	return &Client{runner: r, bin: "kubectl", kubeconfigPath: kubeconfigPath}
}

// KubeconfigPath returns the credential file this client operates with.
func (c *Client) KubeconfigPath() string {
	return c.kubeconfigPath
}

func (c *Client) run(ctx context.Context, args ...string) (string, error) {
	full := append([]string{"--kubeconfig", c.kubeconfigPath}, args...)
	return c.runner.Run(ctx, c.bin, full...)
}

// Get fetches a resource, e.g. Get(ctx, "svc", "-n", "ingress-nginx", "ingress-nginx-controller").
func (c *Client) Get(ctx context.Context, args ...string) (string, error) {
	return c.run(ctx, append([]string{"get"}, args...)...)
}

// Apply applies a manifest file or directory.
func (c *Client) Apply(ctx context.Context, path string) (string, error) {
	return c.run(ctx, "apply", "-f", path)
}

// RolloutStatus blocks until the named resource finishes rolling out or
// the timeout expires.
func (c *Client) RolloutStatus(ctx context.Context, resource, namespace string, timeout time.Duration) (string, error) {
	return c.run(ctx, "rollout", "status", resource,
		"-n", namespace,
		"--timeout", timeout.String())
}

// ListNodes lists cluster nodes. Success means the API server answers and
// the credential is accepted; used as the CLI readiness gate.
func (c *Client) ListNodes(ctx context.Context) (string, error) {
	return c.run(ctx, "get", "nodes", "-o", "wide")
}

// Ready reports whether the cluster answers a node list with this credential.
func (c *Client) Ready(ctx context.Context) bool {
	_, err := c.ListNodes(ctx)
	return err == nil
}

// Version returns the kubectl client version, used by doctor.
func (c *Client) Version(ctx context.Context) (string, error) {
	out, err := c.runner.Run(ctx, c.bin, "version", "--client")
	if err != nil {
		return out, fmt.Errorf("kubectl version: %w", err)
	}
	return out, nil
}
