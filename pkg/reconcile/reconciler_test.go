package reconcile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/saturn/pkg/content"
	"mercator-hq/saturn/pkg/manifest"
	"mercator-hq/saturn/pkg/store"
)

// recordingReporter captures every reported action for assertions.
type recordingReporter struct {
	mu      sync.Mutex
	actions []Action
}

func (r *recordingReporter) Report(a Action) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, a)
}

func (r *recordingReporter) byOp(op Op) []Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Action
	for _, a := range r.actions {
		if a.Op == op {
			out = append(out, a)
		}
	}
	return out
}

func writeContent(t *testing.T, dir, name, doc string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newTestReconciler(t *testing.T, st store.PolicyStore, baseDir string, opts Options) (*Reconciler, *recordingReporter) {
	t.Helper()
	opts.BaseDir = baseDir
	reporter := &recordingReporter{}
	metrics := NewMetrics(prometheus.NewRegistry())
	return New(st, content.NewPreparer(nil), reporter, nil, metrics, opts), reporter
}

// seedScenario builds the baseline remote state used by several tests:
// hierarchy root r-1 with child OU1 (ou-9), existing policy p-123 named
// DenyLeaveOrg attached to acct-1.
func seedScenario(st *store.MemoryStore) {
	st.SeedNode(store.HierarchyNode{ID: "r-1", Name: "organization-root"})
	st.SeedNode(store.HierarchyNode{ID: "ou-9", Name: "OU1", ParentID: "r-1"})
	st.SeedPolicy(store.RemotePolicy{ID: "p-123", Name: "DenyLeaveOrg", Description: "old", Content: "{}"})
	st.SeedAttachment("p-123", "acct-1")
}

func denyLeaveOrgManifest() *manifest.Manifest {
	return &manifest.Manifest{
		Policies: []manifest.PolicySpec{{
			Name:         "DenyLeaveOrg",
			Description:  "Prevent member accounts from leaving",
			ResourceFile: "deny-leave-org.json",
			DeploymentTargets: manifest.DeploymentTargets{
				OrganizationalUnits: []string{"OU1"},
				Accounts:            []string{"acct-2"},
			},
		}},
	}
}

func TestReconciler_EndToEnd_ExistingPolicy(t *testing.T) {
	st := store.NewMemoryStore()
	seedScenario(st)

	dir := t.TempDir()
	writeContent(t, dir, "deny-leave-org.json", `{ "Effect": "Deny" }`)

	r, _ := newTestReconciler(t, st, dir, Options{})
	res, err := r.Run(context.Background(), denyLeaveOrgManifest())
	if err != nil {
		t.Fatalf("Run() error = %v, want nil", err)
	}

	want := []string{
		"UpdatePolicy(p-123)",
		"Attach(p-123,acct-2)",
		"Attach(p-123,ou-9)",
		"Detach(p-123,acct-1)",
	}
	if len(st.Mutations) != len(want) {
		t.Fatalf("Mutations = %v, want %v", st.Mutations, want)
	}
	for i := range want {
		if st.Mutations[i] != want[i] {
			t.Errorf("Mutations[%d] = %q, want %q", i, st.Mutations[i], want[i])
		}
	}

	if res.Updated != 1 || res.Attached != 2 || res.Detached != 1 {
		t.Errorf("Result = %+v, want 1 update, 2 attach, 1 detach", res)
	}

	updated, _ := st.PolicyByName("DenyLeaveOrg")
	if updated.Content != `{"Effect":"Deny"}` {
		t.Errorf("remote content = %q, want minified document", updated.Content)
	}
	if updated.Description != "Prevent member accounts from leaving" {
		t.Errorf("remote description = %q, want manifest description", updated.Description)
	}
}

func TestReconciler_SecondRunIsIdempotentOnAttachments(t *testing.T) {
	st := store.NewMemoryStore()
	seedScenario(st)

	dir := t.TempDir()
	writeContent(t, dir, "deny-leave-org.json", `{ "Effect": "Deny" }`)

	r, _ := newTestReconciler(t, st, dir, Options{})
	ctx := context.Background()

	if _, err := r.Run(ctx, denyLeaveOrgManifest()); err != nil {
		t.Fatal(err)
	}

	res, err := r.Run(ctx, denyLeaveOrgManifest())
	if err != nil {
		t.Fatalf("second Run() error = %v, want nil", err)
	}

	// The update is still issued unconditionally, but the attachment
	// diff must be empty.
	if res.Attached != 0 || res.Detached != 0 {
		t.Errorf("second run Result = %+v, want no attachment mutations", res)
	}
	if res.Updated != 1 {
		t.Errorf("second run Updated = %d, want 1 (unconditional update)", res.Updated)
	}
}

func TestReconciler_DryRun_IssuesNoMutations(t *testing.T) {
	st := store.NewMemoryStore()
	seedScenario(st)

	dir := t.TempDir()
	writeContent(t, dir, "deny-leave-org.json", `{ "Effect": "Deny" }`)
	writeContent(t, dir, "new.json", `{ "Effect": "Deny", "Action": "*" }`)

	m := denyLeaveOrgManifest()
	m.Policies = append(m.Policies, manifest.PolicySpec{
		Name:         "BrandNew",
		ResourceFile: "new.json",
		DeploymentTargets: manifest.DeploymentTargets{
			OrganizationalUnits: []string{"OU1"},
		},
	})

	r, reporter := newTestReconciler(t, st, dir, Options{DryRun: true})
	res, err := r.Run(context.Background(), m)
	if err != nil {
		t.Fatalf("Run() error = %v, want nil", err)
	}

	if len(st.Mutations) != 0 {
		t.Fatalf("Mutations = %v, want none under dry-run", st.Mutations)
	}

	// Intended mutations are still computed and reported.
	if res.Updated != 1 || res.Created != 1 || res.Attached != 2 || res.Detached != 1 {
		t.Errorf("Result = %+v, want 1 update, 1 create, 2 attach, 1 detach", res)
	}
	for _, a := range reporter.actions {
		if a.Op == OpWarn {
			continue
		}
		if !a.DryRun {
			t.Errorf("action %+v not flagged dry-run", a)
		}
	}
}

func TestReconciler_DryRunCreation_SkipsAttachmentStep(t *testing.T) {
	st := store.NewMemoryStore()
	st.SeedNode(store.HierarchyNode{ID: "r-1", Name: "organization-root"})

	dir := t.TempDir()
	writeContent(t, dir, "new.json", `{"Effect":"Deny"}`)

	m := &manifest.Manifest{Policies: []manifest.PolicySpec{{
		Name:         "BrandNew",
		ResourceFile: "new.json",
		DeploymentTargets: manifest.DeploymentTargets{
			OrganizationalUnits: []string{"Root"},
			Accounts:            []string{"acct-1"},
		},
	}}}

	r, reporter := newTestReconciler(t, st, dir, Options{DryRun: true})
	res, err := r.Run(context.Background(), m)
	if err != nil {
		t.Fatal(err)
	}

	// No identity was produced, so no attach actions may be reported.
	if got := reporter.byOp(OpAttach); len(got) != 0 {
		t.Errorf("attach actions = %v, want none after dry-run creation", got)
	}
	if res.Attached != 0 {
		t.Errorf("Result.Attached = %d, want 0", res.Attached)
	}
}

func TestReconciler_CreationPath(t *testing.T) {
	st := store.NewMemoryStore()
	st.SeedNode(store.HierarchyNode{ID: "r-1", Name: "organization-root"})
	st.SeedNode(store.HierarchyNode{ID: "ou-9", Name: "OU1", ParentID: "r-1"})

	dir := t.TempDir()
	writeContent(t, dir, "new.json", `{"Effect":"Deny"}`)

	m := &manifest.Manifest{Policies: []manifest.PolicySpec{{
		Name:         "BrandNew",
		Description:  "fresh",
		ResourceFile: "new.json",
		DeploymentTargets: manifest.DeploymentTargets{
			OrganizationalUnits: []string{"OU1"},
		},
	}}}

	r, _ := newTestReconciler(t, st, dir, Options{})
	res, err := r.Run(context.Background(), m)
	if err != nil {
		t.Fatal(err)
	}

	created, ok := st.PolicyByName("BrandNew")
	if !ok {
		t.Fatal("policy BrandNew was not created")
	}
	if got := st.Attachments(created.ID); len(got) != 1 || got[0] != "ou-9" {
		t.Errorf("attachments = %v, want [ou-9]", got)
	}
	if res.Created != 1 || res.Attached != 1 {
		t.Errorf("Result = %+v, want 1 create, 1 attach", res)
	}
}

func TestReconciler_OversizeContentSkippedWithoutRemoteCalls(t *testing.T) {
	st := store.NewMemoryStore()
	st.SeedNode(store.HierarchyNode{ID: "r-1", Name: "organization-root"})

	dir := t.TempDir()
	huge := `{"k":"` + strings.Repeat("a", content.MaxContentBytes) + `"}`
	writeContent(t, dir, "huge.json", huge)

	m := &manifest.Manifest{Policies: []manifest.PolicySpec{{
		Name:         "TooBig",
		ResourceFile: "huge.json",
	}}}

	r, reporter := newTestReconciler(t, st, dir, Options{})
	res, err := r.Run(context.Background(), m)
	if err != nil {
		t.Fatalf("Run() error = %v, want nil (skip is not fatal)", err)
	}

	if len(st.Mutations) != 0 {
		t.Errorf("Mutations = %v, want none for oversize policy", st.Mutations)
	}
	if res.Skipped != 1 {
		t.Errorf("Result.Skipped = %d, want 1", res.Skipped)
	}
	skips := reporter.byOp(OpSkip)
	if len(skips) != 1 || !strings.Contains(skips[0].Detail, "exceeds maximum") {
		t.Errorf("skip actions = %v, want one oversize diagnostic", skips)
	}
}

func TestReconciler_MalformedContentSkipsOnlyThatPolicy(t *testing.T) {
	st := store.NewMemoryStore()
	st.SeedNode(store.HierarchyNode{ID: "r-1", Name: "organization-root"})

	dir := t.TempDir()
	writeContent(t, dir, "bad.json", `{not json`)
	writeContent(t, dir, "good.json", `{"Effect":"Deny"}`)

	m := &manifest.Manifest{Policies: []manifest.PolicySpec{
		{Name: "Broken", ResourceFile: "bad.json"},
		{Name: "Fine", ResourceFile: "good.json"},
	}}

	r, _ := newTestReconciler(t, st, dir, Options{})
	res, err := r.Run(context.Background(), m)
	if err != nil {
		t.Fatal(err)
	}

	if res.Skipped != 1 {
		t.Errorf("Result.Skipped = %d, want 1", res.Skipped)
	}
	if _, ok := st.PolicyByName("Fine"); !ok {
		t.Error("second policy was not processed after first was skipped")
	}
}

func TestReconciler_UnresolvedTargetDroppedWithWarning(t *testing.T) {
	st := store.NewMemoryStore()
	st.SeedNode(store.HierarchyNode{ID: "r-1", Name: "organization-root"})
	st.SeedNode(store.HierarchyNode{ID: "ou-9", Name: "OU1", ParentID: "r-1"})

	dir := t.TempDir()
	writeContent(t, dir, "p.json", `{"Effect":"Deny"}`)

	m := &manifest.Manifest{Policies: []manifest.PolicySpec{{
		Name:         "Partial",
		ResourceFile: "p.json",
		DeploymentTargets: manifest.DeploymentTargets{
			OrganizationalUnits: []string{"OU1", "DoesNotExist"},
		},
	}}}

	r, reporter := newTestReconciler(t, st, dir, Options{})
	res, err := r.Run(context.Background(), m)
	if err != nil {
		t.Fatal(err)
	}

	warns := reporter.byOp(OpWarn)
	if len(warns) != 1 || warns[0].Target != "DoesNotExist" {
		t.Fatalf("warn actions = %v, want one for DoesNotExist", warns)
	}

	created, _ := st.PolicyByName("Partial")
	if got := st.Attachments(created.ID); len(got) != 1 || got[0] != "ou-9" {
		t.Errorf("attachments = %v, want only resolved target [ou-9]", got)
	}
	if res.Failed != 0 {
		t.Errorf("Result.Failed = %d, want 0 (dropped target is not a failure)", res.Failed)
	}
}

func TestReconciler_NoRootTreatsTargetPoolAsEmpty(t *testing.T) {
	st := store.NewMemoryStore() // no nodes at all

	dir := t.TempDir()
	writeContent(t, dir, "p.json", `{"Effect":"Deny"}`)

	m := &manifest.Manifest{Policies: []manifest.PolicySpec{{
		Name:         "OnlyAccounts",
		ResourceFile: "p.json",
		DeploymentTargets: manifest.DeploymentTargets{
			OrganizationalUnits: []string{"OU1"},
			Accounts:            []string{"acct-7"},
		},
	}}}

	r, _ := newTestReconciler(t, st, dir, Options{})
	_, err := r.Run(context.Background(), m)
	if err != nil {
		t.Fatalf("Run() error = %v, want nil (missing root is non-fatal)", err)
	}

	created, ok := st.PolicyByName("OnlyAccounts")
	if !ok {
		t.Fatal("policy was not created")
	}
	if got := st.Attachments(created.ID); len(got) != 1 || got[0] != "acct-7" {
		t.Errorf("attachments = %v, want literal account target only", got)
	}
}

func TestReconciler_AttachFailureDoesNotBlockOtherTargets(t *testing.T) {
	st := store.NewMemoryStore()
	seedScenario(st)
	st.Fail = map[string]error{
		"Detach": &store.RemoteCallError{Op: "Detach", Cause: errors.New("throttled")},
	}

	dir := t.TempDir()
	writeContent(t, dir, "deny-leave-org.json", `{"Effect":"Deny"}`)

	r, _ := newTestReconciler(t, st, dir, Options{})
	res, err := r.Run(context.Background(), denyLeaveOrgManifest())
	if err != nil {
		t.Fatalf("Run() error = %v, want nil (per-policy failures are scoped)", err)
	}

	// Both attaches still went through despite the detach failure.
	if got := st.Attachments("p-123"); len(got) != 3 {
		t.Errorf("attachments = %v, want acct-1 (stuck), acct-2, ou-9", got)
	}
	if res.Failed != 1 {
		t.Errorf("Result.Failed = %d, want 1", res.Failed)
	}
}

func TestReconciler_PreconditionFailureAbortsBeforeAnyListing(t *testing.T) {
	st := store.NewMemoryStore()
	st.SessionErr = errors.New("expired token")

	r, reporter := newTestReconciler(t, st, t.TempDir(), Options{})
	_, err := r.Run(context.Background(), denyLeaveOrgManifest())

	var precondition *store.PreconditionError
	if !errors.As(err, &precondition) {
		t.Fatalf("Run() error type = %T, want *PreconditionError", err)
	}
	if len(reporter.actions) != 0 {
		t.Errorf("actions = %v, want none after precondition failure", reporter.actions)
	}
	if len(st.Mutations) != 0 {
		t.Errorf("Mutations = %v, want none", st.Mutations)
	}
}

func TestReconciler_SkipUnchangedShortCircuitsUpdate(t *testing.T) {
	st := store.NewMemoryStore()
	st.SeedNode(store.HierarchyNode{ID: "r-1", Name: "organization-root"})
	st.SeedPolicy(store.RemotePolicy{
		ID:          "p-9",
		Name:        "Stable",
		Description: "same",
		Content:     `{"Effect":"Deny"}`,
	})

	dir := t.TempDir()
	writeContent(t, dir, "stable.json", `{ "Effect": "Deny" }`)

	m := &manifest.Manifest{Policies: []manifest.PolicySpec{{
		Name:         "Stable",
		Description:  "same",
		ResourceFile: "stable.json",
	}}}

	r, reporter := newTestReconciler(t, st, dir, Options{SkipUnchanged: true})
	res, err := r.Run(context.Background(), m)
	if err != nil {
		t.Fatal(err)
	}

	if len(st.Mutations) != 0 {
		t.Errorf("Mutations = %v, want none when remote already matches", st.Mutations)
	}
	if res.Unchanged != 1 || res.Updated != 0 {
		t.Errorf("Result = %+v, want 1 unchanged, 0 updated", res)
	}
	if got := reporter.byOp(OpNoop); len(got) != 1 {
		t.Errorf("noop actions = %v, want exactly one", got)
	}
}
