package provisioning

import "fmt"

// Status is the terminal state of a per-node operation.
type Status int

const (
	// StatusSuccess means the operation completed.
	StatusSuccess Status = iota
	// StatusRecoverable means the operation failed with a known
	// remediation path; the coordinator policy decides what happens.
	StatusRecoverable
	// StatusFatal means the operation failed with no remediation path.
	StatusFatal
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusRecoverable:
		return "failed-recoverable"
	default:
		return "failed-fatal"
	}
}

// Outcome is the structured per-node result of a reset or apply operation.
// Coordinators collect outcomes instead of raising, so fleet-level policy
// (all-or-nothing vs best-effort) is applied in one place.
type Outcome struct {
	Node   string
	Status Status
	Reason string
	// Output is the diagnostic transcript of every attempt, so the
	// operator can distinguish a wrong IP from a TLS mismatch from a boot
	// problem without re-running.
	Output string
}

// Failed reports whether the outcome is anything but success.
func (o Outcome) Failed() bool {
	return o.Status != StatusSuccess
}

func (o Outcome) String() string {
	if o.Status == StatusSuccess {
		return fmt.Sprintf("%s: %s", o.Node, o.Status)
	}
	return fmt.Sprintf("%s: %s (%s)", o.Node, o.Status, o.Reason)
}
