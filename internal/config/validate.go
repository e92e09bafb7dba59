package config

import (
	"fmt"
	"net"
	"strings"
)

// Validate checks the configuration for common errors and returns a
// detailed error if validation fails.
func (c *Config) Validate() error {
	if c.ClusterName == "" {
		return fmt.Errorf("cluster_name is required")
	}
	if err := validateAddress("controlplane", c.ControlPlane); err != nil {
		return err
	}
	if len(c.Workers) == 0 {
		return fmt.Errorf("at least one worker is required")
	}

	seen := map[string]bool{c.ControlPlane: true}
	for i, w := range c.Workers {
		if err := validateAddress(fmt.Sprintf("workers[%d]", i), w); err != nil {
			return err
		}
		if seen[w] {
			return fmt.Errorf("duplicate node address: %s", w)
		}
		seen[w] = true
	}

	if err := validateAddress("vip", c.VIP); err != nil {
		return err
	}
	if seen[c.VIP] {
		return fmt.Errorf("vip %s collides with a node address", c.VIP)
	}

	return nil
}

// validateAddress accepts an IP address or a resolvable-looking hostname.
func validateAddress(field, addr string) error {
	if addr == "" {
		return fmt.Errorf("%s is required", field)
	}
	if net.ParseIP(addr) != nil {
		return nil
	}
	if strings.ContainsAny(addr, " /:") {
		return fmt.Errorf("%s: %q is not a valid address", field, addr)
	}
	return nil
}
