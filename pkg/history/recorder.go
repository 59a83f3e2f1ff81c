package history

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"mercator-hq/saturn/pkg/reconcile"
)

// Recorder adapts a Store to the reconciler's Reporter seam. One
// Recorder covers one run: every reported action is stamped with the
// same generated run id.
type Recorder struct {
	store  *Store
	runID  string
	logger *slog.Logger
}

// NewRecorder creates a Recorder with a fresh run id.
func NewRecorder(store *Store, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		store:  store,
		runID:  uuid.NewString(),
		logger: logger.With("component", "history.recorder"),
	}
}

// RunID returns the id stamped on this run's actions.
func (r *Recorder) RunID() string {
	return r.runID
}

// Report implements reconcile.Reporter. Recording failures must not
// disturb reconciliation; they are logged and dropped.
func (r *Recorder) Report(a reconcile.Action) {
	err := r.store.Record(Action{
		RunID:  r.runID,
		Op:     string(a.Op),
		Policy: a.Policy,
		Target: a.Target,
		Detail: a.Detail,
		DryRun: a.DryRun,
		At:     time.Now(),
	})
	if err != nil {
		r.logger.Warn("failed to record action", "error", err)
	}
}
