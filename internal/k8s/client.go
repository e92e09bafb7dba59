// Package k8s provides a minimal Kubernetes API client used for cluster
// health probes. Manifest application goes through the kubectl adapter;
// this client only answers "is the cluster alive and does this credential
// work".
package k8s

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"
)

// Client wraps Kubernetes API operations for health checks.
type Client struct {
	clientset kubernetes.Interface
}

// NewClient creates a new Kubernetes client from a kubeconfig file.
func NewClient(kubeconfigPath string) (*Client, error) {
	config, err := clientcmd.BuildConfigFromFlags("", kubeconfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to build kubeconfig: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create clientset: %w", err)
	}

	return &Client{clientset: clientset}, nil
}

// NewClientFromClientset wraps an existing clientset. Used by tests with
// the client-go fake.
func NewClientFromClientset(cs kubernetes.Interface) *Client {
	return &Client{clientset: cs}
}

// NodeCounts returns total and ready node counts.
func (c *Client) NodeCounts(ctx context.Context) (total, ready int, err error) {
	nodes, err := c.clientset.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list nodes: %w", err)
	}

	for _, node := range nodes.Items {
		total++
		for _, cond := range node.Status.Conditions {
			if cond.Type == corev1.NodeReady && cond.Status == corev1.ConditionTrue {
				ready++
				break
			}
		}
	}
	return total, ready, nil
}

// Healthy reports whether the API server answers a node list with this
// credential and at least one node exists. This is the fast-path probe:
// it must not mutate anything.
func (c *Client) Healthy(ctx context.Context) bool {
	total, _, err := c.NodeCounts(ctx)
	return err == nil && total > 0
}
