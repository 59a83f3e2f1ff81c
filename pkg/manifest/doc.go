// Package manifest loads and validates the declarative policy manifest.
//
// The manifest is the single input enumerating every desired
// resource-control policy for one reconciliation run: its name,
// description, the path to its content document, and the organizational
// units and accounts it should be attached to. Specs are immutable once
// loaded.
package manifest
