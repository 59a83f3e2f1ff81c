// Package history persists reconciliation decisions to a local SQLite
// database.
//
// Every action the reconciler reports (mutations, skips, warnings, and
// their dry-run equivalents) is recorded under the run's id, giving an
// audit trail of what the tool decided and when. The Recorder type plugs
// into the reconciler's Reporter seam, so recording needs no hooks in
// the engine itself.
package history
