// Package reconcile converges declared resource-control policies with
// the live state of the remote management plane.
//
// A run builds two read-only indexes over remote state (policy name →
// policy, hierarchy-node name → node id), then processes each declared
// spec in manifest order: prepare the content document, resolve or
// create the remote policy, and converge its attachment set by computing
// the symmetric difference between desired and current targets. Dry-run
// mode computes and reports every intended mutation without invoking any
// of them. Failures are scoped: a bad content file or a failed remote
// call affects only its own policy (or its own attachment), and the
// driver always advances to the next unit of work.
package reconcile
