package provisioning

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/imamik/talosboot/internal/config"
	"github.com/imamik/talosboot/internal/creds"
	"github.com/imamik/talosboot/internal/talosctl"
)

// eventLog records adapter calls in order so tests can assert cross-module
// call ordering (e.g. reset-before-apply).
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, fmt.Sprintf(format, args...))
}

func (l *eventLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

func (l *eventLog) count(prefix string) int {
	n := 0
	for _, e := range l.list() {
		if strings.HasPrefix(e, prefix) {
			n++
		}
	}
	return n
}

// firstIndex returns the index of the first event with the prefix, or -1.
func (l *eventLog) firstIndex(prefix string) int {
	for i, e := range l.list() {
		if strings.HasPrefix(e, prefix) {
			return i
		}
	}
	return -1
}

// fakeTalos is a scripted control-plane adapter. Unset behaviors succeed.
type fakeTalos struct {
	log *eventLog

	resetFn      func(node string, insecure bool) (string, error)
	applyFn      func(node string, insecure bool) (string, error)
	bootstrapFn  func(node string) (string, error)
	kubeconfigFn func(node, outPath string) (string, error)
	statusFn     func(node, service string) (string, error)
}

func (f *fakeTalos) mode(insecure bool) string {
	if insecure {
		return "insecure"
	}
	return "secure"
}

func (f *fakeTalos) ApplyConfig(_ context.Context, node, _ string, _ talosctl.TrustContext, insecure bool) (string, error) {
	f.log.add("apply:%s:%s", node, f.mode(insecure))
	if f.applyFn != nil {
		return f.applyFn(node, insecure)
	}
	return "", nil
}

func (f *fakeTalos) Reset(_ context.Context, node string, _ talosctl.TrustContext, insecure bool) (string, error) {
	f.log.add("reset:%s:%s", node, f.mode(insecure))
	if f.resetFn != nil {
		return f.resetFn(node, insecure)
	}
	return "", nil
}

func (f *fakeTalos) Bootstrap(_ context.Context, node string, _ talosctl.TrustContext) (string, error) {
	f.log.add("bootstrap:%s", node)
	if f.bootstrapFn != nil {
		return f.bootstrapFn(node)
	}
	return "", nil
}

func (f *fakeTalos) Kubeconfig(_ context.Context, node, outPath string, _ talosctl.TrustContext) (string, error) {
	f.log.add("kubeconfig:%s", node)
	if f.kubeconfigFn != nil {
		return f.kubeconfigFn(node, outPath)
	}
	return "", nil
}

func (f *fakeTalos) ServiceStatus(_ context.Context, node, service string, _ talosctl.TrustContext) (string, error) {
	f.log.add("status:%s:%s", node, service)
	if f.statusFn != nil {
		return f.statusFn(node, service)
	}
	return "NODE  10.0.0.1\nID    etcd\nSTATE Running\n", nil
}

// fakeResolver is a scripted credential manager.
type fakeResolver struct {
	log *eventLog

	working   *creds.Bundle
	recovered *creds.Bundle
	genErr    error
	genCount  int
}

func (f *fakeResolver) ResolveWorking(context.Context) *creds.Bundle {
	f.log.add("resolve")
	return f.working
}

func (f *fakeResolver) RecoverFromTrust(context.Context) *creds.Bundle {
	f.log.add("recover")
	return f.recovered
}

func (f *fakeResolver) GenerateFresh(context.Context) (*creds.Bundle, error) {
	f.genCount++
	f.log.add("generate:%d", f.genCount)
	if f.genErr != nil {
		return nil, f.genErr
	}
	return &creds.Bundle{
		Artifacts: talosctl.Artifacts{
			ControlPlaneConfig: "secrets/controlplane.yaml",
			WorkerConfig:       "secrets/worker.yaml",
			TalosConfig:        "secrets/talosconfig",
		},
		Trust:          talosctl.TrustContext{ConfigPath: "secrets/talosconfig"},
		KubeconfigPath: "kubeconfig",
		Generated:      true,
	}, nil
}

func testBundle() *creds.Bundle {
	return &creds.Bundle{
		Artifacts: talosctl.Artifacts{
			ControlPlaneConfig: "secrets/controlplane.yaml",
			WorkerConfig:       "secrets/worker.yaml",
			TalosConfig:        "secrets/talosconfig",
		},
		Trust:          talosctl.TrustContext{ConfigPath: "secrets/talosconfig"},
		KubeconfigPath: "kubeconfig",
	}
}

func testTarget() *config.Config {
	return &config.Config{
		ClusterName:    "test",
		ControlPlane:   "10.0.0.1",
		Workers:        []string{"10.0.0.2", "10.0.0.3"},
		VIP:            "10.0.0.9",
		SecretsDir:     "secrets",
		KubeconfigPath: "kubeconfig",
		ManifestsDir:   "manifests",
	}
}

// testContext builds a provisioning context with the fake adapter, short
// timeouts, and a prober that records waits and succeeds immediately.
func testContext(talos TalosClient, events *eventLog) *Context {
	return &Context{
		Context:    context.Background(),
		Config:     testTarget(),
		Timeouts:   config.TestTimeouts(),
		Logger:     log.New(io.Discard, "", 0),
		Talos:      talos,
		Classifier: talosctl.DefaultClassifier(),
		WaitForPort: func(_ context.Context, host string, port int, _ time.Duration) error {
			events.add("waitport:%s:%d", host, port)
			return nil
		},
	}
}

// Canned diagnostic outputs matching the default classifier.
const (
	outTrustMismatch  = "rpc error: tls: failed to verify certificate: x509: certificate signed by unknown authority"
	outCertRequired   = "rpc error: code = Unavailable desc = tls: certificate required"
	outMaintenance    = "rpc error: code = Unimplemented desc = API is not implemented in maintenance mode"
	outEtcdFailedText = "NODE  10.0.0.1\nID    etcd\nSTATE Failed\nHEALTH ?\n"
)

var errExit = errors.New("exit status 1")
