package talosctl

import "strings"

// FailureKind is the classified cause of a failed talosctl invocation.
// All escalation logic switches on this enum, never on raw output.
type FailureKind int

const (
	// FailureUnknown is any output the classifier does not recognize.
	// Treated conservatively: terminal, never an implicit retry.
	FailureUnknown FailureKind = iota

	// FailureTrustMismatch means the node trusts a different credential
	// bundle than the one used for the call (CA mismatch).
	FailureTrustMismatch

	// FailureCertificateRequired means the node is configured and rejects
	// unauthenticated requests; a secure (mTLS) call is needed.
	FailureCertificateRequired

	// FailureMaintenanceMode means the node is in maintenance/minimal boot
	// mode where the requested API is unavailable.
	FailureMaintenanceMode
)

func (k FailureKind) String() string {
	switch k {
	case FailureTrustMismatch:
		return "trust-mismatch"
	case FailureCertificateRequired:
		return "certificate-required"
	case FailureMaintenanceMode:
		return "maintenance-mode"
	default:
		return "unknown"
	}
}

// Classifier maps diagnostic output to a FailureKind by substring match.
// The exact wording is tool-version-dependent, so the pattern table is a
// value callers can override rather than a hard-coded switch.
type Classifier struct {
	MaintenanceMode     []string
	TrustMismatch       []string
	CertificateRequired []string
}

// DefaultClassifier returns patterns matching current talosctl wording.
func DefaultClassifier() Classifier {
	return Classifier{
		MaintenanceMode: []string{
			"not implemented in maintenance mode",
			"maintenance service",
			"machine is in maintenance mode",
		},
		TrustMismatch: []string{
			"certificate signed by unknown authority",
			"x509: certificate",
			"tls: failed to verify certificate",
			"authentication handshake failed",
		},
		CertificateRequired: []string{
			"certificate required",
			"connection closed before server preface",
			"code = unauthenticated",
		},
	}
}

// Classify returns the FailureKind for the given diagnostic output.
// Matching is case-insensitive. Maintenance mode is checked first since
// its messages can also mention certificates.
func (c Classifier) Classify(output string) FailureKind {
	lower := strings.ToLower(output)

	for _, p := range c.MaintenanceMode {
		if strings.Contains(lower, strings.ToLower(p)) {
			return FailureMaintenanceMode
		}
	}
	for _, p := range c.TrustMismatch {
		if strings.Contains(lower, strings.ToLower(p)) {
			return FailureTrustMismatch
		}
	}
	for _, p := range c.CertificateRequired {
		if strings.Contains(lower, strings.ToLower(p)) {
			return FailureCertificateRequired
		}
	}
	return FailureUnknown
}
