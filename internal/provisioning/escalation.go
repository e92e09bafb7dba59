package provisioning

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/imamik/talosboot/internal/talosctl"
)

// Step is one tier of an escalation ladder. A failed step's output is
// classified, and the classification either names the next step to try or
// terminates the ladder.
type Step struct {
	Name string
	Run  func(ctx context.Context) (string, error)

	// Next maps a classified failure to the name of the step to escalate
	// to. A step is never entered twice within one ladder run.
	Next map[talosctl.FailureKind]string

	// Fatal lists failure kinds that terminate fatally at this step.
	Fatal []talosctl.FailureKind

	// Default is the terminal status for any failure not covered above.
	Default Status
}

// Ladder executes an ordered set of escalation steps for one node.
// It is the single retry mechanism shared by the reset and apply
// protocols; there are no other retry loops at the node level.
type Ladder struct {
	Node     string
	Steps    []Step
	Classify func(string) talosctl.FailureKind
}

// Run executes the ladder starting at the first step. Escalation never
// revisits a step already tried in this run, which bounds the total number
// of attempts to the number of steps.
func (l Ladder) Run(ctx context.Context) Outcome {
	if len(l.Steps) == 0 {
		return Outcome{Node: l.Node, Status: StatusFatal, Reason: "empty escalation ladder"}
	}

	byName := make(map[string]*Step, len(l.Steps))
	for i := range l.Steps {
		byName[l.Steps[i].Name] = &l.Steps[i]
	}

	var transcript strings.Builder
	visited := map[string]bool{}
	step := &l.Steps[0]

	for {
		visited[step.Name] = true

		out, err := step.Run(ctx)
		if err == nil {
			return Outcome{Node: l.Node, Status: StatusSuccess, Output: transcript.String()}
		}

		// Classify over both the captured output and the error text:
		// dial failures surface in the error before any output exists.
		kind := l.Classify(out + "\n" + err.Error())
		fmt.Fprintf(&transcript, "[%s] %s: %v\n%s\n", step.Name, kind, err, strings.TrimSpace(out))

		if nextName, ok := step.Next[kind]; ok {
			next, defined := byName[nextName]
			if defined && !visited[nextName] {
				step = next
				continue
			}
			// Escalation target already tried and failed: terminal, never
			// a loop.
			return Outcome{
				Node:   l.Node,
				Status: StatusFatal,
				Reason: fmt.Sprintf("%s recurred after %s was already attempted", kind, nextName),
				Output: transcript.String(),
			}
		}

		if slices.Contains(step.Fatal, kind) {
			return Outcome{
				Node:   l.Node,
				Status: StatusFatal,
				Reason: fmt.Sprintf("%s at step %s", kind, step.Name),
				Output: transcript.String(),
			}
		}

		return Outcome{
			Node:   l.Node,
			Status: step.Default,
			Reason: fmt.Sprintf("%s at step %s", kind, step.Name),
			Output: transcript.String(),
		}
	}
}
