// Package creds manages the on-disk credential bundle: the talosconfig
// trust material, the role-specific machine configs, and the cluster admin
// kubeconfig. It decides between reusing existing credentials and
// regenerating from scratch.
//
// Invariant: a bundle produced by GenerateFresh must be paired with a full
// fleet reset before any config is applied with it. Stale trust material
// applied to nodes that trust an older bundle produces irreconcilable TLS
// mismatches; the orchestrator owns that ordering.
package creds

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	clientconfig "github.com/siderolabs/talos/pkg/machinery/client/config"

	"github.com/imamik/talosboot/internal/config"
	"github.com/imamik/talosboot/internal/k8s"
	"github.com/imamik/talosboot/internal/talosctl"
)

// Bundle is the active credential set for one run.
type Bundle struct {
	Artifacts      talosctl.Artifacts
	Trust          talosctl.TrustContext
	KubeconfigPath string

	// Generated marks a bundle produced by fresh generation this run.
	// Such a bundle requires a full fleet reset before use.
	Generated bool
}

// Manager owns the credential bundle lifecycle. The bundle files are read
// and replaced whole, never partially edited.
type Manager struct {
	cfg    *config.Config
	talos  *talosctl.Client
	logger *log.Logger

	// healthProbe reports whether the kubeconfig at the given path yields
	// a working cluster. Overridable for tests; defaults to a client-go
	// node list.
	healthProbe func(ctx context.Context, kubeconfigPath string) bool
}

// NewManager creates a credential manager for the target.
func NewManager(cfg *config.Config, talos *talosctl.Client, logger *log.Logger) *Manager {
	return &Manager{
		cfg:    cfg,
		talos:  talos,
		logger: logger,
		healthProbe: func(ctx context.Context, kubeconfigPath string) bool {
			client, err := k8s.NewClient(kubeconfigPath)
			if err != nil {
				return false
			}
			return client.Healthy(ctx)
		},
	}
}

// WithHealthProbe overrides the cluster health probe. Used by tests.
func (m *Manager) WithHealthProbe(probe func(ctx context.Context, kubeconfigPath string) bool) *Manager {
	m.healthProbe = probe
	return m
}

func (m *Manager) artifacts() talosctl.Artifacts {
	return talosctl.Artifacts{
		ControlPlaneConfig: filepath.Join(m.cfg.SecretsDir, "controlplane.yaml"),
		WorkerConfig:       filepath.Join(m.cfg.SecretsDir, "worker.yaml"),
		TalosConfig:        filepath.Join(m.cfg.SecretsDir, "talosconfig"),
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Size() > 0
}

// ResolveWorking is the fast path: if the cached admin credential already
// yields a working cluster, return the existing bundle and skip rebuild.
// Returns nil when no working credential is available.
func (m *Manager) ResolveWorking(ctx context.Context) *Bundle {
	if !fileExists(m.cfg.KubeconfigPath) {
		return nil
	}
	if !m.healthProbe(ctx, m.cfg.KubeconfigPath) {
		m.logger.Printf("[creds] cached kubeconfig at %s does not reach a healthy cluster", m.cfg.KubeconfigPath)
		return nil
	}

	m.logger.Printf("[creds] cluster already reachable with cached credential %s", m.cfg.KubeconfigPath)
	return &Bundle{
		Artifacts:      m.artifacts(),
		Trust:          talosctl.TrustContext{ConfigPath: m.artifacts().TalosConfig},
		KubeconfigPath: m.cfg.KubeconfigPath,
	}
}

// RecoverFromTrust attempts to re-derive the admin credential from
// existing trust material against the live control plane. Succeeds only if
// the control plane still recognizes that trust material and the derived
// credential actually works.
func (m *Manager) RecoverFromTrust(ctx context.Context) *Bundle {
	artifacts := m.artifacts()
	if !fileExists(artifacts.TalosConfig) {
		return nil
	}

	trust := talosctl.TrustContext{ConfigPath: artifacts.TalosConfig}

	m.logger.Printf("[creds] trust material found at %s, attempting kubeconfig recovery", artifacts.TalosConfig)
	out, err := m.talos.Kubeconfig(ctx, m.cfg.ControlPlane, m.cfg.KubeconfigPath, trust)
	if err != nil {
		m.logger.Printf("[creds] recovery failed: %v\n%s", err, out)
		return nil
	}

	if !m.healthProbe(ctx, m.cfg.KubeconfigPath) {
		m.logger.Printf("[creds] recovered kubeconfig does not reach a healthy cluster")
		return nil
	}

	m.logger.Printf("[creds] recovered working credential from existing trust material")
	return &Bundle{
		Artifacts:      artifacts,
		Trust:          trust,
		KubeconfigPath: m.cfg.KubeconfigPath,
	}
}

// GenerateFresh wipes any existing generated files for this target and
// produces a new credential bundle. The generated trust material is parsed
// to guard against malformed output; missing or undersized artifacts fail
// inside the adapter.
func (m *Manager) GenerateFresh(ctx context.Context) (*Bundle, error) {
	if err := m.wipe(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(m.cfg.SecretsDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create secrets dir: %w", err)
	}

	m.logger.Printf("[creds] generating fresh credentials for cluster %s", m.cfg.ClusterName)
	artifacts, err := m.talos.GenConfig(ctx, m.cfg.ClusterName, m.cfg.Endpoint(), m.cfg.SecretsDir)
	if err != nil {
		return nil, fmt.Errorf("credential generation failed: %w", err)
	}

	// The size check in the adapter catches truncation; parsing catches
	// structurally broken trust material.
	talosCfg, err := clientconfig.Open(artifacts.TalosConfig)
	if err != nil {
		return nil, fmt.Errorf("generated trust material unreadable: %w", err)
	}
	if talosCfg.Context == "" || len(talosCfg.Contexts) == 0 {
		return nil, fmt.Errorf("generated trust material has no context")
	}

	return &Bundle{
		Artifacts:      artifacts,
		Trust:          talosctl.TrustContext{ConfigPath: artifacts.TalosConfig},
		KubeconfigPath: m.cfg.KubeconfigPath,
		Generated:      true,
	}, nil
}

// wipe removes previously generated credential files. Files are removed
// whole; there is no partial editing of the bundle.
func (m *Manager) wipe() error {
	artifacts := m.artifacts()
	for _, path := range []string{
		artifacts.ControlPlaneConfig,
		artifacts.WorkerConfig,
		artifacts.TalosConfig,
		m.cfg.KubeconfigPath,
	} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove stale credential %s: %w", path, err)
		}
	}
	return nil
}
