package config

import (
	"os"
	"time"
)

// Timeouts holds all configurable timeout values.
// These values can be customized via environment variables.
type Timeouts struct {
	TalosAPI      time.Duration // Wait for a node's management API after reset/apply
	KubeAPI       time.Duration // Wait for the Kubernetes API port after bootstrap
	Kubectl       time.Duration // Wait for kubectl to answer a node list
	Rollout       time.Duration // Add-on rollout wait
	AddressAssign time.Duration // Wait for the load balancer external address
	SettleDelay   time.Duration // Pause after a disruptive operation
	EtcdSettle    time.Duration // Pause between etcd bootstrap and health probe
	PollInterval  time.Duration // Fixed interval for readiness polling
}

// LoadTimeouts loads timeout configuration from environment variables.
// If an environment variable is not set or invalid, a default is used.
//
// Environment variables:
//   - TALOSBOOT_TIMEOUT_TALOS_API (default: 10m)
//   - TALOSBOOT_TIMEOUT_KUBE_API (default: 10m)
//   - TALOSBOOT_TIMEOUT_KUBECTL (default: 5m)
//   - TALOSBOOT_TIMEOUT_ROLLOUT (default: 5m)
//   - TALOSBOOT_TIMEOUT_ADDRESS_ASSIGN (default: 5m)
//   - TALOSBOOT_SETTLE_DELAY (default: 10s)
//   - TALOSBOOT_ETCD_SETTLE (default: 10s)
//   - TALOSBOOT_POLL_INTERVAL (default: 5s)
func LoadTimeouts() *Timeouts {
	return &Timeouts{
		TalosAPI:      parseDuration("TALOSBOOT_TIMEOUT_TALOS_API", 10*time.Minute),
		KubeAPI:       parseDuration("TALOSBOOT_TIMEOUT_KUBE_API", 10*time.Minute),
		Kubectl:       parseDuration("TALOSBOOT_TIMEOUT_KUBECTL", 5*time.Minute),
		Rollout:       parseDuration("TALOSBOOT_TIMEOUT_ROLLOUT", 5*time.Minute),
		AddressAssign: parseDuration("TALOSBOOT_TIMEOUT_ADDRESS_ASSIGN", 5*time.Minute),
		SettleDelay:   parseDuration("TALOSBOOT_SETTLE_DELAY", 10*time.Second),
		EtcdSettle:    parseDuration("TALOSBOOT_ETCD_SETTLE", 10*time.Second),
		PollInterval:  parseDuration("TALOSBOOT_POLL_INTERVAL", 5*time.Second),
	}
}

// TestTimeouts returns short timeouts for tests.
func TestTimeouts() *Timeouts {
	return &Timeouts{
		TalosAPI:      200 * time.Millisecond,
		KubeAPI:       200 * time.Millisecond,
		Kubectl:       200 * time.Millisecond,
		Rollout:       200 * time.Millisecond,
		AddressAssign: 200 * time.Millisecond,
		SettleDelay:   0,
		EtcdSettle:    0,
		PollInterval:  10 * time.Millisecond,
	}
}

// parseDuration parses a duration from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseDuration(envVar string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}

	return d
}
