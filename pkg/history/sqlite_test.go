package history

import (
	"path/filepath"
	"testing"
	"time"

	"mercator-hq/saturn/pkg/reconcile"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"), nil)
	if err != nil {
		t.Fatalf("Open() error = %v, want nil", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_RecordAndRecent(t *testing.T) {
	s := openTestStore(t)

	actions := []Action{
		{RunID: "run-1", Op: "update", Policy: "DenyLeaveOrg", Target: "p-123", At: time.Now()},
		{RunID: "run-1", Op: "attach", Policy: "DenyLeaveOrg", Target: "ou-9", At: time.Now()},
		{RunID: "run-1", Op: "detach", Policy: "DenyLeaveOrg", Target: "acct-1", DryRun: true, At: time.Now()},
	}
	for _, a := range actions {
		if err := s.Record(a); err != nil {
			t.Fatalf("Record() error = %v, want nil", err)
		}
	}

	got, err := s.Recent(10)
	if err != nil {
		t.Fatalf("Recent() error = %v, want nil", err)
	}

	if len(got) != 3 {
		t.Fatalf("Recent() returned %d actions, want 3", len(got))
	}
	for i, a := range got {
		if a.Op != actions[i].Op || a.Target != actions[i].Target {
			t.Errorf("Recent()[%d] = %+v, want op %q target %q", i, a, actions[i].Op, actions[i].Target)
		}
	}
	if !got[2].DryRun {
		t.Error("Recent()[2].DryRun = false, want true")
	}
}

func TestStore_RecentWindowsNewestActions(t *testing.T) {
	s := openTestStore(t)

	for _, op := range []string{"a", "b", "c", "d"} {
		if err := s.Record(Action{RunID: "run-1", Op: op, Policy: "p", At: time.Now()}); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.Recent(2)
	if err != nil {
		t.Fatal(err)
	}

	if len(got) != 2 || got[0].Op != "c" || got[1].Op != "d" {
		t.Errorf("Recent(2) = %v, want last two in insertion order", got)
	}
}

func TestRecorder_StampsRunID(t *testing.T) {
	s := openTestStore(t)
	rec := NewRecorder(s, nil)

	rec.Report(reconcile.Action{Op: reconcile.OpCreate, Policy: "X"})
	rec.Report(reconcile.Action{Op: reconcile.OpAttach, Policy: "X", Target: "ou-1"})

	got, err := s.Recent(10)
	if err != nil {
		t.Fatal(err)
	}

	if len(got) != 2 {
		t.Fatalf("Recent() returned %d actions, want 2", len(got))
	}
	for _, a := range got {
		if a.RunID != rec.RunID() {
			t.Errorf("action run id = %q, want %q", a.RunID, rec.RunID())
		}
	}
}
