// Package netutil provides network reachability probes used by the
// bootstrap coordinators: TCP port waits, host reachability checks, and a
// generic fixed-interval polling loop.
package netutil

import (
	"context"
	"fmt"
	"net"
	"time"
)

const (
	// PollInterval is the fixed interval between probe attempts.
	PollInterval = 5 * time.Second
	// DialTimeout bounds a single TCP dial attempt.
	DialTimeout = 2 * time.Second
)

// WaitForPort waits for a TCP port to be open.
func WaitForPort(ctx context.Context, host string, port int, timeout time.Duration) error {
	address := net.JoinHostPort(host, fmt.Sprintf("%d", port))

	err := PollUntil(ctx, timeout, PollInterval, func(ctx context.Context) bool {
		d := net.Dialer{Timeout: DialTimeout}
		conn, err := d.DialContext(ctx, "tcp", address)
		if err == nil {
			_ = conn.Close()
			return true
		}
		return false
	})
	if err != nil {
		return fmt.Errorf("timeout waiting for %s", address)
	}
	return nil
}

// IsReachable reports whether the host answers on the given TCP port.
// A single dial attempt, no polling.
func IsReachable(ctx context.Context, host string, port int) bool {
	address := net.JoinHostPort(host, fmt.Sprintf("%d", port))
	d := net.Dialer{Timeout: DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// PollUntil calls fn at a fixed interval until it returns true or the
// timeout expires. The first attempt happens immediately. Returns an error
// on timeout or context cancellation; callers decide whether that is fatal.
func PollUntil(ctx context.Context, timeout, interval time.Duration, fn func(context.Context) bool) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if fn(ctx) {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				return fmt.Errorf("timeout after %s waiting for condition", timeout)
			}
			return ctx.Err()
		case <-ticker.C:
			if fn(ctx) {
				return nil
			}
		}
	}
}
