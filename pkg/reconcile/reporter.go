package reconcile

import (
	"fmt"
	"io"
	"sync"
)

// Op identifies a reconciliation decision.
type Op string

const (
	// OpCreate is the creation of a missing remote policy.
	OpCreate Op = "create"
	// OpUpdate is an update of an existing remote policy.
	OpUpdate Op = "update"
	// OpAttach is the binding of a policy to a target.
	OpAttach Op = "attach"
	// OpDetach is the unbinding of a policy from a target.
	OpDetach Op = "detach"
	// OpSkip is a policy skipped without mutation (bad or oversize content).
	OpSkip Op = "skip"
	// OpNoop is an update short-circuited because remote state already matches.
	OpNoop Op = "noop"
	// OpWarn is a non-fatal condition worth surfacing, such as an
	// organizational-unit name absent from the hierarchy.
	OpWarn Op = "warn"
)

// Action is one reported reconciliation decision. Every branch of the
// reconciler, mutating or not, emits exactly one Action describing the
// decision taken.
type Action struct {
	Op     Op
	Policy string
	Target string
	Detail string
	DryRun bool
}

// Reporter receives every reconciliation decision as it happens. A
// Reporter is injected into the reconciler; there is no process-wide
// output state.
type Reporter interface {
	Report(a Action)
}

// TextReporter writes one human-readable status line per action.
type TextReporter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewTextReporter creates a TextReporter writing to w.
func NewTextReporter(w io.Writer) *TextReporter {
	return &TextReporter{w: w}
}

// Report implements Reporter.
func (r *TextReporter) Report(a Action) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prefix := ""
	if a.DryRun {
		prefix = "[dry-run] "
	}

	switch a.Op {
	case OpAttach, OpDetach:
		fmt.Fprintf(r.w, "%s%s policy %q target %s\n", prefix, a.Op, a.Policy, a.Target)
	case OpWarn:
		fmt.Fprintf(r.w, "%swarning: policy %q: %s\n", prefix, a.Policy, a.Detail)
	default:
		if a.Detail != "" {
			fmt.Fprintf(r.w, "%s%s policy %q: %s\n", prefix, a.Op, a.Policy, a.Detail)
		} else {
			fmt.Fprintf(r.w, "%s%s policy %q\n", prefix, a.Op, a.Policy)
		}
	}
}

// MultiReporter fans every action out to each wrapped reporter, in order.
type MultiReporter []Reporter

// Report implements Reporter.
func (m MultiReporter) Report(a Action) {
	for _, r := range m {
		r.Report(a)
	}
}
