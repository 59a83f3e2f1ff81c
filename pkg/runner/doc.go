// Package runner drives repeated reconciliation passes.
//
// A Watcher triggers a pass when the manifest or a policy content file
// changes on disk, with debouncing so editor save storms collapse into
// one run. A Scheduler triggers passes on a cron schedule. Both invoke
// the same RunFunc the one-shot CLI path uses; the engine itself never
// knows what triggered it.
package runner
