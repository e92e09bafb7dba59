package addons

import (
	"fmt"
	"os"
	"path/filepath"
	"text/template"
)

// poolData is the template context for the address pool manifest.
type poolData struct {
	ClusterName string
	VIP         string
}

// renderAddressPool executes the pool template with the cluster VIP and
// writes the result to a temporary file. The caller removes the file
// after applying it.
func (i *Installer) renderAddressPool() (string, error) {
	path := filepath.Join(i.payloadPath(payloadMetalLB), poolTemplate)

	tmpl, err := template.ParseFiles(path)
	if err != nil {
		return "", fmt.Errorf("parse address pool template %s: %w", path, err)
	}

	out, err := os.CreateTemp("", "talosboot-pool-*.yaml")
	if err != nil {
		return "", fmt.Errorf("create rendered pool file: %w", err)
	}

	data := poolData{ClusterName: i.cfg.ClusterName, VIP: i.cfg.VIP}
	if err := tmpl.Execute(out, data); err != nil {
		_ = out.Close()
		_ = os.Remove(out.Name())
		return "", fmt.Errorf("render address pool template: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(out.Name())
		return "", fmt.Errorf("write rendered pool file: %w", err)
	}

	return out.Name(), nil
}
