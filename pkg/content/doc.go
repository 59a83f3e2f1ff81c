// Package content prepares resource-control policy documents for upload
// to the management plane.
//
// Preparation parses the raw JSON document, re-serializes it with no
// extraneous whitespace to obtain a deterministic minimal byte
// representation, applies configured literal substitutions in order, and
// enforces the management plane's serialized size budget.
package content
