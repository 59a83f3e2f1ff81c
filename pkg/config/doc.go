// Package config loads and validates saturn's tool configuration.
//
// Configuration comes from an optional YAML file layered over built-in
// defaults, with environment overrides for values that should not live
// on disk (the management-plane token in particular).
package config
