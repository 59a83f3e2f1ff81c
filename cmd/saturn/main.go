// Saturn is a declarative manager for organization resource control policies.
//
// It converges a YAML manifest of policy declarations against the remote
// management plane, providing:
//   - Minimal mutations: create, update, attach, detach
//   - Non-destructive dry-run planning
//   - Content preparation with size enforcement and substitutions
//   - A local SQLite history of every reconciliation decision
//
// Usage:
//
//	# Converge the manifest against the management plane
//	saturn apply --manifest rcp-manifest.yaml
//
//	# Preview mutations without applying them
//	saturn plan --manifest rcp-manifest.yaml
//
//	# Validate manifest and policy content locally
//	saturn validate --manifest rcp-manifest.yaml
//
//	# Re-run on manifest or policy file changes
//	saturn watch
//
//	# Show recent reconciliation decisions
//	saturn history --limit 50
//
// For complete documentation, see: https://github.com/mercator-hq/saturn
package main

func main() {
	Execute()
}
