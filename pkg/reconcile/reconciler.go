package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"mercator-hq/saturn/pkg/content"
	"mercator-hq/saturn/pkg/manifest"
	"mercator-hq/saturn/pkg/store"
)

// Options configure a reconciliation run.
type Options struct {
	// BaseDir is the directory policy content files are resolved against.
	BaseDir string

	// DryRun computes and reports every intended mutation without
	// invoking any of them. Suppression is uniform across create,
	// update, attach, and detach.
	DryRun bool

	// SkipUnchanged short-circuits the update call when the remote
	// policy's content and description already match the desired state.
	// Off by default: the engine otherwise issues the update
	// unconditionally, matching the remote plane's last-write-wins model.
	SkipUnchanged bool
}

// Result summarizes one reconciliation run. Mutation counters count
// computed (reported) mutations, so a dry run yields the same counts the
// equivalent apply would attempt. Failed counts policies whose apply hit
// at least one remote error.
type Result struct {
	Processed int `json:"processed"`
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Attached  int `json:"attached"`
	Detached  int `json:"detached"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// errConvergence marks a partially failed attachment convergence. Each
// attach/detach call is independent; one failure never blocks the
// others, and no compensating rollback exists. Convergence completes on
// a subsequent run.
var errConvergence = errors.New("attachment convergence incomplete")

// Reconciler converges declared policy specs against remote state.
// It is single-threaded: specs are processed one at a time in manifest
// order.
type Reconciler struct {
	store    store.PolicyStore
	indexer  *Indexer
	preparer *content.Preparer
	reporter Reporter
	logger   *slog.Logger
	metrics  *Metrics
	opts     Options
}

// New creates a Reconciler. reporter receives one action per decision;
// metrics may be nil when no collection is wanted.
func New(st store.PolicyStore, preparer *content.Preparer, reporter Reporter, logger *slog.Logger, metrics *Metrics, opts Options) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		store:    st,
		indexer:  NewIndexer(st, logger),
		preparer: preparer,
		reporter: reporter,
		logger:   logger.With("component", "reconcile"),
		metrics:  metrics,
		opts:     opts,
	}
}

// Run reconciles every spec in the manifest against remote state.
//
// The session check and index construction happen once, up front; a
// failure there is global and aborts the run before any mutation. After
// that, failures are scoped to a single policy and the loop always
// advances to the next spec. The indexes are never refreshed mid-run.
func (r *Reconciler) Run(ctx context.Context, m *manifest.Manifest) (*Result, error) {
	start := time.Now()

	if err := r.store.CheckSession(ctx); err != nil {
		return nil, &store.PreconditionError{Cause: err}
	}

	policies, err := r.indexer.IndexPolicies(ctx)
	if err != nil {
		return nil, err
	}

	hierarchy, err := r.indexer.IndexHierarchy(ctx)
	if err != nil {
		var noRoot *NoRootError
		if !errors.As(err, &noRoot) {
			return nil, err
		}
		// Empty target pool: every declared OU name will be dropped.
		r.logger.Warn("hierarchy has no root node, organizational-unit targets will not resolve")
	}

	res := &Result{}
	for _, spec := range m.Policies {
		outcome := r.reconcileOne(ctx, spec, policies, hierarchy, res)
		res.Processed++

		switch outcome {
		case outcomeSkipped:
			res.Skipped++
		case outcomeFailed:
			res.Failed++
		}
		r.metrics.observeOutcome(outcome)
	}

	r.metrics.observeRunSeconds(time.Since(start).Seconds())
	r.logger.Info("reconciliation complete",
		"processed", res.Processed,
		"skipped", res.Skipped,
		"failed", res.Failed,
		"dry_run", r.opts.DryRun,
	)
	return res, nil
}

const (
	outcomeConverged = "converged"
	outcomeSkipped   = "skipped"
	outcomeFailed    = "failed"
)

// reconcileOne drives a single spec through the per-policy state
// machine: prepare content, resolve or create the remote resource, then
// converge attachments.
func (r *Reconciler) reconcileOne(ctx context.Context, spec manifest.PolicySpec, policies map[string]store.RemotePolicy, hierarchy map[string]string, res *Result) string {
	logger := r.logger.With("policy", spec.Name)

	prepared, err := r.preparer.PrepareFile(filepath.Join(r.opts.BaseDir, spec.ResourceFile))
	if err != nil {
		var tooLarge *content.ContentTooLargeError
		if errors.As(err, &tooLarge) {
			r.metrics.observeOversize()
		}
		r.reporter.Report(Action{Op: OpSkip, Policy: spec.Name, Detail: err.Error()})
		logger.Warn("skipping policy", "error", err)
		return outcomeSkipped
	}

	var policyID string
	if existing, ok := policies[spec.Name]; ok {
		policyID = existing.ID

		if r.opts.SkipUnchanged && existing.Content == prepared && existing.Description == spec.Description {
			r.reporter.Report(Action{Op: OpNoop, Policy: spec.Name, Target: existing.ID, Detail: "remote state already matches"})
			res.Unchanged++
		} else {
			r.reporter.Report(Action{Op: OpUpdate, Policy: spec.Name, Target: existing.ID, DryRun: r.opts.DryRun})
			r.metrics.observeMutation(OpUpdate, r.opts.DryRun)
			res.Updated++

			if !r.opts.DryRun {
				if err := r.store.UpdatePolicy(ctx, existing.ID, spec.Name, spec.Description, prepared); err != nil {
					logger.Error("policy update failed", "error", err)
					return outcomeFailed
				}
			}
		}
	} else {
		r.reporter.Report(Action{Op: OpCreate, Policy: spec.Name, DryRun: r.opts.DryRun})
		r.metrics.observeMutation(OpCreate, r.opts.DryRun)
		res.Created++

		if r.opts.DryRun {
			// Creation produced no identity, so there is nothing to
			// attach to; the attachment step is skipped entirely.
			return outcomeConverged
		}

		id, err := r.store.CreatePolicy(ctx, spec.Name, spec.Description, prepared)
		if err != nil {
			logger.Error("policy creation failed", "error", err)
			return outcomeFailed
		}
		policyID = id
	}

	if err := r.convergeAttachments(ctx, spec, policyID, hierarchy, res, logger); err != nil {
		return outcomeFailed
	}
	return outcomeConverged
}

// convergeAttachments fetches the policy's current targets, computes the
// desired set, and applies the difference.
func (r *Reconciler) convergeAttachments(ctx context.Context, spec manifest.PolicySpec, policyID string, hierarchy map[string]string, res *Result, logger *slog.Logger) error {
	current, err := r.indexer.CurrentAttachments(ctx, policyID)
	if err != nil {
		logger.Error("listing attachments failed", "error", err)
		return err
	}

	desired := r.desiredTargets(spec, hierarchy)
	toAdd, toRemove := Diff(desired, current)

	incomplete := false
	for _, target := range toAdd {
		r.reporter.Report(Action{Op: OpAttach, Policy: spec.Name, Target: target, DryRun: r.opts.DryRun})
		r.metrics.observeMutation(OpAttach, r.opts.DryRun)
		res.Attached++

		if !r.opts.DryRun {
			if err := r.store.Attach(ctx, policyID, target); err != nil {
				logger.Error("attach failed", "target", target, "error", err)
				incomplete = true
			}
		}
	}

	for _, target := range toRemove {
		r.reporter.Report(Action{Op: OpDetach, Policy: spec.Name, Target: target, DryRun: r.opts.DryRun})
		r.metrics.observeMutation(OpDetach, r.opts.DryRun)
		res.Detached++

		if !r.opts.DryRun {
			if err := r.store.Detach(ctx, policyID, target); err != nil {
				logger.Error("detach failed", "target", target, "error", err)
				incomplete = true
			}
		}
	}

	if incomplete {
		return errConvergence
	}
	return nil
}

// desiredTargets resolves the spec's declared targets into a flat id
// set: organizational-unit names through the hierarchy index, account
// ids as-is. A name absent from the index drops that single target from
// the desired set; the drop is surfaced as a warning rather than
// aborting the run.
func (r *Reconciler) desiredTargets(spec manifest.PolicySpec, hierarchy map[string]string) map[string]struct{} {
	desired := make(map[string]struct{})

	for _, name := range spec.DeploymentTargets.OrganizationalUnits {
		id, ok := hierarchy[name]
		if !ok {
			r.reporter.Report(Action{
				Op:     OpWarn,
				Policy: spec.Name,
				Target: name,
				Detail: fmt.Sprintf("organizational unit %q not found in hierarchy, target dropped", name),
			})
			continue
		}
		desired[id] = struct{}{}
	}

	for _, account := range spec.DeploymentTargets.Accounts {
		desired[account] = struct{}{}
	}

	return desired
}
